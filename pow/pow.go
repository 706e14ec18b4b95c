// Package pow is the entry point of the seal verifier. It exposes the PoW
// algorithms a block import pipeline uses to get the difficulty of new blocks
// and to verify their seals.
package pow

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/spacemeshos/powseal/config"
	"github.com/spacemeshos/powseal/metrics"
	"github.com/spacemeshos/powseal/shared"
)

// Algorithm is a PoW variant.
//
// Verify returns false with a nil error for an invalid seal. A non-nil error
// means the verification could not be completed and says nothing about the
// seal.
type Algorithm interface {
	Difficulty(parent shared.Hash) (*uint256.Int, error)
	Verify(parent, preHash shared.Hash, preDigest, seal []byte, difficulty *uint256.Int) (bool, error)
	Close() error
}

// StateAccessor reads the difficulty required of a block's child from chain state.
type StateAccessor interface {
	Difficulty(parent shared.Hash) (*uint256.Int, error)
}

var (
	_ Algorithm = (*Fixed)(nil)
	_ Algorithm = (*Runtime)(nil)
)

// New creates the algorithm selected by cfg.Algorithm. state is only used by
// the runtime variant.
func New(cfg config.Config, state StateAccessor, opts ...OptionFunc) (Algorithm, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	switch cfg.Algorithm {
	case config.AlgorithmFixed:
		return NewFixed(cfg, opts...)
	case config.AlgorithmRuntime:
		return NewRuntime(state, opts...)
	default:
		return nil, fmt.Errorf("unknown algorithm %q", cfg.Algorithm)
	}
}

// verdict collapses a verification error into the facade result and records it.
func verdict(algorithm string, logger *zap.Logger, err error) (bool, error) {
	switch {
	case err == nil:
		metrics.Verifications.WithLabelValues(algorithm, metrics.ResultValid).Inc()
		return true, nil
	case shared.IsVerdict(err):
		metrics.Verifications.WithLabelValues(algorithm, metrics.ResultInvalid).Inc()
		logger.Debug("seal rejected", zap.String("algorithm", algorithm), zap.Error(err))
		return false, nil
	default:
		result := metrics.ResultEnvironmentError
		var cacheErr *shared.CacheError
		if errors.As(err, &cacheErr) {
			result = metrics.ResultCacheError
		}
		metrics.Verifications.WithLabelValues(algorithm, result).Inc()
		logger.Error("seal verification failed", zap.String("algorithm", algorithm), zap.Error(err))
		return false, err
	}
}
