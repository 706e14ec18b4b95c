package persistence

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fileInfo struct{ name string }

func (f fileInfo) Name() string       { return f.name }
func (f fileInfo) Size() int64        { return 0 }
func (f fileInfo) Mode() fs.FileMode  { return 0 }
func (f fileInfo) ModTime() time.Time { return time.Time{} }
func (f fileInfo) IsDir() bool        { return false }
func (f fileInfo) Sys() any           { return nil }

func fakeInfo(name string) os.FileInfo { return fileInfo{name} }

func TestMetadata_SaveLoad(t *testing.T) {
	r := require.New(t)
	path := filepath.Join(t.TempDir(), "cache")

	m := &Metadata{Revision: AlgorithmRevision, Epoch: 12, Size: 1024, Checksum: []byte{1, 2, 3}}
	r.NoError(SaveMetadata(path, m))

	loaded, err := LoadMetadata(path)
	r.NoError(err)
	r.Equal(m, loaded)

	m.Epoch = 13
	r.NoError(SaveMetadata(path, m))
	loaded, err = LoadMetadata(path)
	r.NoError(err)
	r.Equal(uint64(13), loaded.Epoch)
}

func TestMetadata_Garbage(t *testing.T) {
	r := require.New(t)
	path := filepath.Join(t.TempDir(), "cache")

	r.NoError(os.WriteFile(metadataPath(path), []byte{1}, 0o600))
	_, err := LoadMetadata(path)
	r.ErrorContains(err, "deserialization failure")
}
