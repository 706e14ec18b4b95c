package persistence

import (
	"go.uber.org/zap"
)

type option struct {
	logger     *zap.Logger
	spaceCheck bool
}

type OptionFunc func(*option) error

func applyOpts(opts ...OptionFunc) (*option, error) {
	o := &option{
		logger:     zap.NewNop(),
		spaceCheck: true,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithLogger sets the logger of the store.
func WithLogger(logger *zap.Logger) OptionFunc {
	return func(o *option) error {
		o.logger = logger
		return nil
	}
}

// WithoutSpaceCheck disables the free space check done before a dump is generated.
func WithoutSpaceCheck() OptionFunc {
	return func(o *option) error {
		o.spaceCheck = false
		return nil
	}
}
