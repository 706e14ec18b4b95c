package shared

import (
	"github.com/holiman/uint256"
)

// MaxDifficulty is 2^256-1, the largest representable difficulty.
var MaxDifficulty = new(uint256.Int).SetAllOne()

// MeetsDifficulty reports whether hash, read as a big-endian 256-bit integer,
// multiplied by difficulty still fits into 256 bits.
//
// A zero difficulty is accepted by any hash; callers must reject it before
// calling.
func MeetsDifficulty(hash Hash, difficulty *uint256.Int) bool {
	var h uint256.Int
	h.SetBytes32(hash[:])
	_, overflow := new(uint256.Int).MulOverflow(&h, difficulty)
	return !overflow
}

// BoundaryToDifficulty converts an ethash result value into the difficulty it
// satisfies, i.e. floor(2^256 / value). Values of 0 and 1 saturate at MaxDifficulty.
func BoundaryToDifficulty(value Hash) *uint256.Int {
	var v uint256.Int
	v.SetBytes32(value[:])
	if v.LtUint64(2) {
		return new(uint256.Int).Set(MaxDifficulty)
	}
	// (2^256 - v) / v + 1 == 2^256 / v
	d := new(uint256.Int).Sub(MaxDifficulty, &v)
	d.AddUint64(d, 1)
	d.Div(d, &v)
	return d.AddUint64(d, 1)
}

// DifficultyToBoundary returns the largest result value accepted for difficulty,
// 2^256 / difficulty, saturating at 2^256-1 for difficulties of 0 and 1.
func DifficultyToBoundary(difficulty *uint256.Int) Hash {
	if difficulty.LtUint64(2) {
		return Hash(MaxDifficulty.Bytes32())
	}
	b := new(uint256.Int).Sub(MaxDifficulty, difficulty)
	b.AddUint64(b, 1)
	b.Div(b, difficulty)
	b.AddUint64(b, 1)
	return Hash(b.Bytes32())
}
