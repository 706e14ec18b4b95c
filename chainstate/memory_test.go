package chainstate

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/powseal/shared"
)

func TestMemory(t *testing.T) {
	r := require.New(t)

	m := NewMemory(nil)
	parent := shared.BytesToHash([]byte("parent"))

	_, err := m.Difficulty(parent)
	r.ErrorIs(err, ErrUnknownBlock)

	m.SetDifficulty(parent, uint256.NewInt(7))
	d, err := m.Difficulty(parent)
	r.NoError(err)
	r.Equal(uint256.NewInt(7), d)

	// Returned values are copies.
	d.SetUint64(8)
	d, err = m.Difficulty(parent)
	r.NoError(err)
	r.Equal(uint256.NewInt(7), d)
}

func TestMemory_Fallback(t *testing.T) {
	r := require.New(t)

	fallback := uint256.NewInt(1_000_000)
	m := NewMemory(fallback)
	fallback.SetUint64(1)

	d, err := m.Difficulty(shared.Hash{})
	r.NoError(err)
	r.Equal(uint256.NewInt(1_000_000), d)
}

func TestMemory_Concurrent(t *testing.T) {
	m := NewMemory(uint256.NewInt(1))

	var eg errgroup.Group
	for i := 0; i < 16; i++ {
		i := i
		eg.Go(func() error {
			parent := shared.BytesToHash([]byte{byte(i)})
			m.SetDifficulty(parent, uint256.NewInt(uint64(i)))
			_, err := m.Difficulty(parent)
			return err
		})
	}
	require.NoError(t, eg.Wait())
}
