package shared

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/minio/sha256-simd"
)

const HashLength = 32

// Hash is a 32 byte digest: a block pre-hash, a quick-seal work value, an
// ethash mix-digest or an ethash result value.
type Hash [HashLength]byte

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// BytesToHash sets b to a Hash. If b is larger than HashLength it is cropped from the left.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// HexToHash parses a 64 character hex string, with or without a 0x prefix.
func HexToHash(s string) (Hash, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	if len(b) != HashLength {
		return Hash{}, fmt.Errorf("invalid `hash` length; expected: %d, given: %d", HashLength, len(b))
	}
	return BytesToHash(b), nil
}

// CalcHash returns the SHA-256 digest of the concatenation of the given byte arrays.
func CalcHash(byteArrays ...[]byte) Hash {
	h := sha256.New()
	for _, ba := range byteArrays {
		h.Write(ba)
	}
	var out Hash
	h.Sum(out[:0])
	return out
}
