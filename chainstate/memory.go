// Package chainstate provides an in-process source of block difficulties.
package chainstate

import (
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/spacemeshos/powseal/shared"
)

var ErrUnknownBlock = errors.New("unknown block")

// Memory maps parent block hashes to the difficulty of their children.
// It is safe for concurrent use.
type Memory struct {
	mu           sync.RWMutex
	difficulties map[shared.Hash]uint256.Int
	fallback     *uint256.Int
}

// NewMemory creates an empty state. Blocks without a set difficulty get
// fallback, or ErrUnknownBlock when fallback is nil.
func NewMemory(fallback *uint256.Int) *Memory {
	m := &Memory{difficulties: make(map[shared.Hash]uint256.Int)}
	if fallback != nil {
		m.fallback = new(uint256.Int).Set(fallback)
	}
	return m
}

func (m *Memory) SetDifficulty(parent shared.Hash, difficulty *uint256.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.difficulties[parent] = *difficulty
}

func (m *Memory) Difficulty(parent shared.Hash) (*uint256.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if d, ok := m.difficulties[parent]; ok {
		return &d, nil
	}
	if m.fallback != nil {
		return new(uint256.Int).Set(m.fallback), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownBlock, parent)
}
