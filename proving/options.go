package proving

import (
	"errors"
	"runtime"

	"go.uber.org/zap"
)

type option struct {
	// How many goroutines search for a nonce in parallel.
	workers    uint
	startNonce uint64
	logger     *zap.Logger
}

func (o *option) validate() error {
	if o.workers == 0 {
		return errors.New("`workers` must be greater than 0")
	}
	return nil
}

type OptionFunc func(*option) error

func applyOpts(opts ...OptionFunc) (*option, error) {
	options := &option{
		workers: uint(runtime.NumCPU()),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	if err := options.validate(); err != nil {
		return nil, err
	}
	return options, nil
}

func WithWorkers(workers uint) OptionFunc {
	return func(o *option) error {
		if workers == 0 {
			return errors.New("`workers` must be greater than 0")
		}
		o.workers = workers
		return nil
	}
}

// WithStartNonce sets the first nonce tried.
func WithStartNonce(nonce uint64) OptionFunc {
	return func(o *option) error {
		o.startNonce = nonce
		return nil
	}
}

func WithLogger(logger *zap.Logger) OptionFunc {
	return func(o *option) error {
		o.logger = logger
		return nil
	}
}
