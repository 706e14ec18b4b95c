package cache

import (
	"errors"

	"go.uber.org/zap"
)

type option struct {
	dir          string
	cachesInMem  int
	cachesOnDisk int
	testMode     bool
	pregenerate  bool
	spaceCheck   bool
	logger       *zap.Logger
}

func (o *option) validate() error {
	if o.cachesInMem <= 0 {
		return errors.New("`cachesInMem` must be greater than 0")
	}
	if o.cachesOnDisk <= 0 {
		return errors.New("`cachesOnDisk` must be greater than 0")
	}
	return nil
}

type OptionFunc func(*option) error

func applyOpts(opts ...OptionFunc) (*option, error) {
	o := &option{
		cachesInMem:  3,
		cachesOnDisk: 3,
		spaceCheck:   true,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// WithDir keeps the cache dumps in dir across restarts. Without it a scratch
// directory is created and removed on Close.
func WithDir(dir string) OptionFunc {
	return func(o *option) error {
		o.dir = dir
		return nil
	}
}

// WithCachesInMem sets the number of epoch caches held in memory.
func WithCachesInMem(n int) OptionFunc {
	return func(o *option) error {
		if n <= 0 {
			return errors.New("`cachesInMem` must be greater than 0")
		}
		o.cachesInMem = n
		return nil
	}
}

// WithCachesOnDisk sets the number of most recent epoch dumps kept on disk.
func WithCachesOnDisk(n int) OptionFunc {
	return func(o *option) error {
		o.cachesOnDisk = n
		return nil
	}
}

// WithTestMode uses tiny caches and datasets. Seals produced in test mode are
// not valid in normal mode and vice versa.
func WithTestMode() OptionFunc {
	return func(o *option) error {
		o.testMode = true
		return nil
	}
}

// WithPregeneration builds the cache of the next epoch in the background
// whenever an epoch is requested.
func WithPregeneration() OptionFunc {
	return func(o *option) error {
		o.pregenerate = true
		return nil
	}
}

// WithoutSpaceCheck skips the free disk space check before generating a dump.
func WithoutSpaceCheck() OptionFunc {
	return func(o *option) error {
		o.spaceCheck = false
		return nil
	}
}

func WithLogger(logger *zap.Logger) OptionFunc {
	return func(o *option) error {
		o.logger = logger
		return nil
	}
}
