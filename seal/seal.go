// Package seal implements the canonical binary encoding of PoW seals.
//
// All structures use a fixed-width little-endian layout: 256-bit integers are
// written as 32 bytes, 64-bit integers as 8 bytes, hashes as their 32 raw bytes,
// fields in declaration order with no padding or length prefixes.
package seal

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"github.com/spacemeshos/powseal/shared"
)

const (
	u256Size = 32
	u64Size  = 8

	QuickSize   = 2*u256Size + shared.HashLength
	ComputeSize = 2*u256Size + shared.HashLength
	LightSize   = 2*u64Size + 2*shared.HashLength
)

var ErrInvalidLength = errors.New("invalid seal length")

// Quick is the seal of the quick-seal algorithm as presented in a block.
type Quick struct {
	Difficulty uint256.Int
	Work       shared.Hash
	Nonce      uint256.Int
}

// Compute holds the inputs from which the work of a quick seal is derived.
type Compute struct {
	Difficulty uint256.Int
	PreHash    shared.Hash
	Nonce      uint256.Int
}

// Light is the seal of the ethash algorithm.
type Light struct {
	BlockHeight uint64
	PowHash     shared.Hash
	MixDigest   shared.Hash
	Nonce       uint64
}

func (s *Quick) Encode() []byte {
	b := make([]byte, QuickSize)
	off := putU256(b, &s.Difficulty)
	off += copy(b[off:], s.Work[:])
	putU256(b[off:], &s.Nonce)
	return b
}

func DecodeQuick(b []byte) (Quick, error) {
	var s Quick
	if err := checkLength("quick", QuickSize, b); err != nil {
		return s, err
	}
	off := readU256(b, &s.Difficulty)
	off += copy(s.Work[:], b[off:])
	readU256(b[off:], &s.Nonce)
	return s, nil
}

func (c *Compute) Encode() []byte {
	b := make([]byte, ComputeSize)
	off := putU256(b, &c.Difficulty)
	off += copy(b[off:], c.PreHash[:])
	putU256(b[off:], &c.Nonce)
	return b
}

func DecodeCompute(b []byte) (Compute, error) {
	var c Compute
	if err := checkLength("compute", ComputeSize, b); err != nil {
		return c, err
	}
	off := readU256(b, &c.Difficulty)
	off += copy(c.PreHash[:], b[off:])
	readU256(b[off:], &c.Nonce)
	return c, nil
}

// Work returns the SHA3-256 digest of the encoding of c.
func (c *Compute) Work() shared.Hash {
	return sha3.Sum256(c.Encode())
}

// Seal derives the quick seal for c.
func (c *Compute) Seal() Quick {
	return Quick{
		Difficulty: c.Difficulty,
		Work:       c.Work(),
		Nonce:      c.Nonce,
	}
}

func (s *Light) Encode() []byte {
	b := make([]byte, LightSize)
	binary.LittleEndian.PutUint64(b, s.BlockHeight)
	off := u64Size
	off += copy(b[off:], s.PowHash[:])
	off += copy(b[off:], s.MixDigest[:])
	binary.LittleEndian.PutUint64(b[off:], s.Nonce)
	return b
}

func DecodeLight(b []byte) (Light, error) {
	var s Light
	if err := checkLength("light", LightSize, b); err != nil {
		return s, err
	}
	s.BlockHeight = binary.LittleEndian.Uint64(b)
	off := u64Size
	off += copy(s.PowHash[:], b[off:])
	off += copy(s.MixDigest[:], b[off:off+shared.HashLength])
	s.Nonce = binary.LittleEndian.Uint64(b[off:])
	return s, nil
}

func checkLength(name string, expected int, b []byte) error {
	if len(b) != expected {
		return fmt.Errorf("%w: `%s`; expected: %d, given: %d", ErrInvalidLength, name, expected, len(b))
	}
	return nil
}

// putU256 writes v as 32 little-endian bytes. uint256.Int keeps its limbs
// least significant first.
func putU256(b []byte, v *uint256.Int) int {
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(b[i*u64Size:], v[i])
	}
	return u256Size
}

func readU256(b []byte, v *uint256.Int) int {
	for i := 0; i < 4; i++ {
		v[i] = binary.LittleEndian.Uint64(b[i*u64Size:])
	}
	return u256Size
}
