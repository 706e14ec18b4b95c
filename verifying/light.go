package verifying

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/spacemeshos/powseal/cache"
	"github.com/spacemeshos/powseal/seal"
	"github.com/spacemeshos/powseal/shared"
)

// LightVerifier checks ethash seals using the epoch caches of a cache.Manager.
type LightVerifier struct {
	caches     *cache.Manager
	valueCheck bool
	logger     *zap.Logger
}

// NewLightVerifier creates a light verifier. The caches remain owned by the
// caller.
func NewLightVerifier(caches *cache.Manager, opts ...OptionFunc) (*LightVerifier, error) {
	if caches == nil {
		return nil, errors.New("`caches` is required")
	}
	options := applyOpts(opts...)
	return &LightVerifier{
		caches:     caches,
		valueCheck: options.valueCheck,
		logger:     options.logger,
	}, nil
}

// VerifyLight recomputes hashimoto light for powHash and nonce with the cache of
// the epoch of height and compares the result with mixDigest. With the value
// check enabled, the result value must also satisfy difficulty.
//
// Heights past the last supported epoch fail with shared.ErrEpochOutOfRange.
// Failures to obtain the cache are returned as *shared.CacheError.
func (v *LightVerifier) VerifyLight(height uint64, powHash shared.Hash, nonce uint64, mixDigest shared.Hash, difficulty *uint256.Int) error {
	if v.valueCheck && (difficulty == nil || difficulty.IsZero()) {
		return shared.ErrZeroDifficulty
	}

	c, err := v.caches.Get(height)
	if err != nil {
		return err
	}

	mix, value := c.Compute(powHash, nonce)
	if mix != mixDigest {
		v.logger.Debug("mix digest mismatch",
			zap.Uint64("height", height),
			zap.Stringer("expected", mix),
			zap.Stringer("given", mixDigest),
		)
		return fmt.Errorf("%w: `mixDigest`; expected: %v, given: %v", shared.ErrMismatchedSealElement, mix, mixDigest)
	}

	if v.valueCheck {
		if got := shared.BoundaryToDifficulty(value); got.Lt(difficulty) {
			return fmt.Errorf("%w: value %v meets difficulty %v, required %v",
				shared.ErrInvalidProofOfWork, value, got.Dec(), difficulty.Dec())
		}
	}
	return nil
}

// Verify checks an encoded light seal presented for preHash. The seal's pow
// hash must be preHash.
func (v *LightVerifier) Verify(preHash shared.Hash, raw []byte, difficulty *uint256.Int) error {
	s, err := seal.DecodeLight(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrDecode, err)
	}
	if s.PowHash != preHash {
		return fmt.Errorf("%w: `powHash`; expected: %v, given: %v", shared.ErrMismatchedSealElement, preHash, s.PowHash)
	}
	return v.VerifyLight(s.BlockHeight, s.PowHash, s.Nonce, s.MixDigest, difficulty)
}
