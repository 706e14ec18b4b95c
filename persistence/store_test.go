package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/powseal/internal/hashimoto"
	"github.com/spacemeshos/powseal/shared"
)

const testSize = hashimoto.TestCacheSize

func newTestStore(t *testing.T) *Store {
	s, err := NewStore(t.TempDir(), WithLogger(zaptest.NewLogger(t)), WithoutSpaceCheck())
	require.NoError(t, err)
	return s
}

func fill(epoch uint64) func([]uint32) {
	return func(buffer []uint32) {
		for i := range buffer {
			buffer[i] = uint32(i)*7 + uint32(epoch)
		}
	}
}

func expected(epoch uint64) []uint32 {
	buffer := make([]uint32, testSize/4)
	fill(epoch)(buffer)
	return buffer
}

func corrupt(t *testing.T, path string, offset int64) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteAt([]byte{0xff, 0xee}, offset)
	require.NoError(t, err)
}

func TestStore_GenerateAndLoad(t *testing.T) {
	r := require.New(t)
	s := newTestStore(t)

	dump, err := s.Generate(1, testSize, fill(1))
	r.NoError(err)
	r.Equal(expected(1), dump.Data())
	r.NoError(dump.Close())
	r.NoError(dump.Close())
	r.Nil(dump.Data())

	dump, err = s.Load(1, testSize)
	r.NoError(err)
	defer dump.Close()
	r.Equal(expected(1), dump.Data())

	m, err := LoadMetadata(s.Path(1))
	r.NoError(err)
	r.Equal(uint32(AlgorithmRevision), m.Revision)
	r.Equal(uint64(1), m.Epoch)
	r.Equal(uint64(testSize), m.Size)
	r.Len(m.Checksum, shared.HashLength)
}

func TestStore_Path(t *testing.T) {
	r := require.New(t)
	s := newTestStore(t)

	r.Equal(s.Path(3), s.Path(3))
	r.NotEqual(s.Path(3), s.Path(4))
	r.Equal(s.Dir(), filepath.Dir(s.Path(0)))

	info := fakeInfo(filepath.Base(s.Path(5)))
	r.True(isDumpFile(info))
	r.False(isDumpFile(fakeInfo(filepath.Base(s.Path(5)) + metadataSuffix)))
	r.False(isDumpFile(fakeInfo(filepath.Base(s.Path(5)) + ".123.tmp")))
	r.False(isDumpFile(fakeInfo("full-R23-0000000000000000")))
}

func TestStore_LoadMissing(t *testing.T) {
	r := require.New(t)
	s := newTestStore(t)

	_, err := s.Load(0, testSize)
	r.ErrorIs(err, ErrMetadataMissing)
}

func TestStore_LoadCorrupted(t *testing.T) {
	r := require.New(t)
	s := newTestStore(t)

	dump, err := s.Generate(0, testSize, fill(0))
	r.NoError(err)
	r.NoError(dump.Close())

	corrupt(t, s.Path(0), 64)
	_, err = s.Load(0, testSize)
	r.ErrorIs(err, ErrChecksumMismatch)

	corrupt(t, s.Path(0), 0)
	_, err = s.Load(0, testSize)
	r.ErrorIs(err, ErrInvalidDumpMagic)
}

func TestStore_LoadMismatch(t *testing.T) {
	r := require.New(t)
	s := newTestStore(t)

	dump, err := s.Generate(2, testSize, fill(2))
	r.NoError(err)
	r.NoError(dump.Close())

	_, err = s.Load(2, 2*testSize)
	var mismatch shared.ConfigMismatchError
	r.ErrorAs(err, &mismatch)
	r.Equal("Size", mismatch.Param)
}

func TestStore_Regenerate(t *testing.T) {
	r := require.New(t)
	s := newTestStore(t)

	dump, err := s.Generate(0, testSize, fill(0))
	r.NoError(err)
	r.NoError(dump.Close())

	dump, err = s.Generate(0, testSize, fill(9))
	r.NoError(err)
	r.NoError(dump.Close())

	dump, err = s.Load(0, testSize)
	r.NoError(err)
	defer dump.Close()
	r.Equal(expected(9), dump.Data())
}

func TestStore_Prune(t *testing.T) {
	r := require.New(t)
	s := newTestStore(t)

	for epoch := uint64(0); epoch < 5; epoch++ {
		dump, err := s.Generate(epoch, testSize, fill(epoch))
		r.NoError(err)
		r.NoError(dump.Close())
	}
	r.NoError(os.WriteFile(filepath.Join(s.Dir(), "unrelated"), []byte{1}, shared.OwnerReadWrite))

	epochs, err := s.Epochs()
	r.NoError(err)
	r.Equal([]uint64{0, 1, 2, 3, 4}, epochs)

	r.NoError(s.Prune(3, 2))

	epochs, err = s.Epochs()
	r.NoError(err)
	r.Equal([]uint64{2, 3, 4}, epochs)

	_, err = os.Stat(s.Path(1))
	r.True(os.IsNotExist(err))
	_, err = os.Stat(metadataPath(s.Path(1)))
	r.True(os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(s.Dir(), "unrelated"))
	r.NoError(err)

	usage, err := s.Usage()
	r.NoError(err)
	r.Equal(uint64(3*(testSize+len(dumpMagic)*4)), usage)

	r.NoError(s.Prune(4, 1, 2))
	epochs, err = s.Epochs()
	r.NoError(err)
	r.Equal([]uint64{2, 4}, epochs)
}

func TestStore_NotEnoughSpace(t *testing.T) {
	r := require.New(t)

	s, err := NewStore(t.TempDir())
	r.NoError(err)

	_, err = s.Generate(0, 1<<60, fill(0))
	r.ErrorIs(err, ErrNotEnoughSpace)

	_, err = os.Stat(s.Path(0))
	r.True(os.IsNotExist(err))
}

func TestNewStore_RequiresDir(t *testing.T) {
	_, err := NewStore("")
	require.Error(t, err)
}
