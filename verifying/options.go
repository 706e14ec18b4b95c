package verifying

import (
	"go.uber.org/zap"
)

type option struct {
	// whether the light path also checks the result value against the difficulty
	valueCheck bool
	logger     *zap.Logger
}

func applyOpts(options ...OptionFunc) *option {
	opts := &option{
		valueCheck: true,
		logger:     zap.NewNop(),
	}
	for _, opt := range options {
		opt(opts)
	}
	return opts
}

type OptionFunc func(*option)

// WithoutValueCheck makes the light verifier accept any seal with a matching
// mix digest, regardless of the difficulty.
func WithoutValueCheck() OptionFunc {
	return func(o *option) {
		o.valueCheck = false
	}
}

func WithLogger(logger *zap.Logger) OptionFunc {
	return func(o *option) {
		o.logger = logger
	}
}
