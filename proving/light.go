package proving

import (
	"context"
	"errors"
	"sync"

	"github.com/holiman/uint256"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/powseal/cache"
	"github.com/spacemeshos/powseal/seal"
	"github.com/spacemeshos/powseal/shared"
)

// errFound stops the other workers once one found a seal.
var errFound = errors.New("seal found")

// SealLight searches for an ethash seal of powHash at height whose result value
// satisfies difficulty. Workers try interleaved nonces beginning at the start
// nonce option. The search runs until found or ctx is done.
func SealLight(ctx context.Context, caches *cache.Manager, height uint64, powHash shared.Hash, difficulty *uint256.Int, opts ...OptionFunc) (seal.Light, error) {
	options, err := applyOpts(opts...)
	if err != nil {
		return seal.Light{}, err
	}

	c, err := caches.Get(height)
	if err != nil {
		return seal.Light{}, err
	}

	var (
		once   sync.Once
		result seal.Light
	)
	eg, egCtx := errgroup.WithContext(ctx)
	for i := uint(0); i < options.workers; i++ {
		nonce := options.startNonce + uint64(i)
		eg.Go(func() error {
			for {
				mix, value := c.Compute(powHash, nonce)
				if !shared.BoundaryToDifficulty(value).Lt(difficulty) {
					once.Do(func() {
						result = seal.Light{
							BlockHeight: height,
							PowHash:     powHash,
							MixDigest:   mix,
							Nonce:       nonce,
						}
					})
					return errFound
				}

				select {
				case <-egCtx.Done():
					return egCtx.Err()
				default:
				}
				nonce += uint64(options.workers)
			}
		})
	}

	err = eg.Wait()
	if !errors.Is(err, errFound) {
		return seal.Light{}, err
	}

	options.logger.Debug("found light seal",
		zap.Uint64("height", height),
		zap.Uint64("nonce", result.Nonce),
		zap.Stringer("mix_digest", result.MixDigest),
	)
	return result, nil
}
