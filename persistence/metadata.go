package persistence

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	"github.com/nullstyle/go-xdr/xdr3"
)

const metadataSuffix = ".meta"

var ErrMetadataMissing = errors.New("dump metadata file is missing")

// Metadata describes a cache dump. It is persisted next to the dump.
type Metadata struct {
	Revision uint32
	Epoch    uint64
	Size     uint64
	Checksum []byte
}

func metadataPath(dumpPath string) string {
	return dumpPath + metadataSuffix
}

func SaveMetadata(dumpPath string, m *Metadata) error {
	var w bytes.Buffer
	if _, err := xdr.Marshal(&w, m); err != nil {
		return fmt.Errorf("serialization failure: %w", err)
	}

	if err := atomic.WriteFile(metadataPath(dumpPath), &w); err != nil {
		return fmt.Errorf("write to disk failure: %w", err)
	}

	return nil
}

func LoadMetadata(dumpPath string) (*Metadata, error) {
	data, err := os.ReadFile(metadataPath(dumpPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMetadataMissing
		}
		return nil, fmt.Errorf("read file failure: %w", err)
	}

	m := &Metadata{}
	if _, err := xdr.Unmarshal(bytes.NewReader(data), m); err != nil {
		return nil, fmt.Errorf("deserialization failure: %w", err)
	}

	return m, nil
}
