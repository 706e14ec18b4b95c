// Package verifying checks PoW seals.
//
// Verification functions return nil for a valid seal. An invalid seal yields
// one of the verdict errors of the shared package; any other error means the
// verification could not be completed.
package verifying

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/spacemeshos/powseal/seal"
	"github.com/spacemeshos/powseal/shared"
)

// VerifyQuick checks an encoded quick seal presented for preHash.
//
// The seal is valid when its work meets difficulty and equals the SHA3-256 of
// the encoded (difficulty, preHash, nonce), and its difficulty is difficulty.
func VerifyQuick(preHash shared.Hash, raw []byte, difficulty *uint256.Int) error {
	if difficulty == nil || difficulty.IsZero() {
		return shared.ErrZeroDifficulty
	}

	s, err := seal.DecodeQuick(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrDecode, err)
	}

	if !shared.MeetsDifficulty(s.Work, difficulty) {
		return fmt.Errorf("%w: work %v, difficulty %v", shared.ErrDifficultyNotMet, s.Work, difficulty.Dec())
	}

	c := seal.Compute{
		Difficulty: *difficulty,
		PreHash:    preHash,
		Nonce:      s.Nonce,
	}
	recomputed := c.Seal()
	if recomputed == s {
		return nil
	}

	if recomputed.Difficulty != s.Difficulty {
		return fmt.Errorf("%w: `difficulty`; expected: %v, given: %v",
			shared.ErrMismatchedSealElement, recomputed.Difficulty.Dec(), s.Difficulty.Dec())
	}
	return fmt.Errorf("%w: `work`; expected: %v, given: %v", shared.ErrMismatchedSealElement, recomputed.Work, s.Work)
}
