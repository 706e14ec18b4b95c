package pow

import (
	"go.uber.org/zap"
)

type option struct {
	logger *zap.Logger
}

type OptionFunc func(*option) error

func applyOpts(opts ...OptionFunc) (*option, error) {
	o := &option{logger: zap.NewNop()}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func WithLogger(logger *zap.Logger) OptionFunc {
	return func(o *option) error {
		o.logger = logger
		return nil
	}
}
