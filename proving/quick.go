// Package proving produces PoW seals.
package proving

import (
	"context"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/spacemeshos/powseal/seal"
	"github.com/spacemeshos/powseal/shared"
)

// ctxCheckInterval is the number of nonces tried between context checks.
const ctxCheckInterval = 1 << 10

// ComputeQuick derives the quick seal of preHash for difficulty and nonce.
// The seal is only valid if its work meets difficulty.
func ComputeQuick(difficulty *uint256.Int, preHash shared.Hash, nonce *uint256.Int) seal.Quick {
	c := seal.Compute{
		Difficulty: *difficulty,
		PreHash:    preHash,
		Nonce:      *nonce,
	}
	return c.Seal()
}

// SearchQuick tries nonces in increasing order, starting with the start nonce
// option, until it finds a quick seal whose work meets difficulty.
// The search runs until found or ctx is done.
func SearchQuick(ctx context.Context, difficulty *uint256.Int, preHash shared.Hash, opts ...OptionFunc) (seal.Quick, error) {
	options, err := applyOpts(opts...)
	if err != nil {
		return seal.Quick{}, err
	}

	c := seal.Compute{Difficulty: *difficulty, PreHash: preHash}
	c.Nonce.SetUint64(options.startNonce)
	for attempts := uint64(1); ; attempts++ {
		work := c.Work()
		if shared.MeetsDifficulty(work, difficulty) {
			options.logger.Debug("found quick seal",
				zap.String("nonce", c.Nonce.Dec()),
				zap.Uint64("attempts", attempts),
			)
			return seal.Quick{Difficulty: c.Difficulty, Work: work, Nonce: c.Nonce}, nil
		}

		if attempts%ctxCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return seal.Quick{}, ctx.Err()
			default:
			}
		}
		c.Nonce.AddUint64(&c.Nonce, 1)
	}
}
