package persistence

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/spacemeshos/powseal/internal/hashimoto"
	"github.com/spacemeshos/powseal/shared"
)

var ErrNotEnoughSpace = errors.New("not enough disk space")

// Store keeps ethash verification caches as memory mapped dump files in a
// directory, one file per epoch plus a metadata sidecar.
type Store struct {
	dir        string
	logger     *zap.Logger
	spaceCheck bool
}

func NewStore(dir string, opts ...OptionFunc) (*Store, error) {
	options, err := applyOpts(opts...)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, errors.New("`dir` is required")
	}
	if err := os.MkdirAll(dir, shared.OwnerReadWriteExec); err != nil {
		return nil, fmt.Errorf("dir creation failure: %w", err)
	}
	return &Store{
		dir:        dir,
		logger:     options.logger,
		spaceCheck: options.spaceCheck,
	}, nil
}

func (s *Store) Dir() string { return s.dir }

func dumpPrefix() string {
	return fmt.Sprintf("cache-R%d-", AlgorithmRevision)
}

// Path returns the dump file path of an epoch.
func (s *Store) Path(epoch uint64) string {
	var endian string
	if !hashimoto.IsLittleEndian() {
		endian = ".be"
	}
	seed := hashimoto.SeedHash(epoch)
	return filepath.Join(s.dir, fmt.Sprintf("%s%x%s", dumpPrefix(), seed[:8], endian))
}

// isDumpFile matches complete dumps only, not their metadata or the temporary
// files used while writing either.
func isDumpFile(info os.FileInfo) bool {
	name := info.Name()
	if info.IsDir() || !strings.HasPrefix(name, dumpPrefix()) {
		return false
	}
	seed := strings.TrimSuffix(strings.TrimPrefix(name, dumpPrefix()), ".be")
	_, err := hex.DecodeString(seed)
	return len(seed) == 16 && err == nil
}

// Load maps the dump of an epoch and checks it against its metadata.
func (s *Store) Load(epoch, size uint64) (*Dump, error) {
	path := s.Path(epoch)

	m, err := LoadMetadata(path)
	if err != nil {
		return nil, err
	}
	if m.Revision != AlgorithmRevision {
		return nil, shared.ConfigMismatchError{Param: "Revision", Expected: strconv.Itoa(AlgorithmRevision), Found: fmt.Sprint(m.Revision), DataDir: s.dir}
	}
	if m.Epoch != epoch {
		return nil, shared.ConfigMismatchError{Param: "Epoch", Expected: fmt.Sprint(epoch), Found: fmt.Sprint(m.Epoch), DataDir: s.dir}
	}
	if m.Size != size {
		return nil, shared.ConfigMismatchError{Param: "Size", Expected: fmt.Sprint(size), Found: fmt.Sprint(m.Size), DataDir: s.dir}
	}

	dump, err := memoryMap(path)
	if err != nil {
		return nil, err
	}
	if uint64(len(dump.data))*4 != size {
		dump.Close()
		return nil, fmt.Errorf("invalid dump size; expected: %d, given: %d", size, len(dump.data)*4)
	}
	if sum := shared.CalcHash(dumpBody(dump.mmap)); !bytes.Equal(sum[:], m.Checksum) {
		dump.Close()
		return nil, ErrChecksumMismatch
	}

	s.logger.Debug("loaded ethash cache from disk",
		zap.Uint64("epoch", epoch),
		zap.String("path", path),
		zap.String("size", bytefmt.ByteSize(size)),
	)
	return dump, nil
}

// Generate creates the dump of an epoch of the given size, filled by generator,
// and returns it mapped read only. The file is written under a temporary name
// and moved into place once complete.
func (s *Store) Generate(epoch, size uint64, generator func(buffer []uint32)) (*Dump, error) {
	required := uint64(len(dumpMagic))*4 + size
	if s.spaceCheck {
		available := shared.AvailableSpace(s.dir)
		if required > available {
			return nil, fmt.Errorf("%w. required: %v, available: %v",
				ErrNotEnoughSpace, bytefmt.ByteSize(required), bytefmt.ByteSize(available))
		}
	}

	path := s.Path(epoch)
	temp, err := os.CreateTemp(s.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, err
	}
	defer os.Remove(temp.Name())
	defer temp.Close()

	if err := temp.Truncate(int64(required)); err != nil {
		return nil, err
	}
	mem, buffer, err := memoryMapFile(temp, true)
	if err != nil {
		return nil, err
	}
	copy(buffer, dumpMagic)
	generator(buffer[len(dumpMagic):])
	checksum := shared.CalcHash(dumpBody(mem))

	if err := mem.Flush(); err != nil {
		mem.Unmap()
		return nil, err
	}
	if err := mem.Unmap(); err != nil {
		return nil, err
	}
	if err := temp.Close(); err != nil {
		return nil, err
	}
	if err := atomic.ReplaceFile(temp.Name(), path); err != nil {
		return nil, fmt.Errorf("atomic replace: %w", err)
	}

	err = SaveMetadata(path, &Metadata{
		Revision: AlgorithmRevision,
		Epoch:    epoch,
		Size:     size,
		Checksum: checksum[:],
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("generated ethash cache",
		zap.Uint64("epoch", epoch),
		zap.String("path", path),
		zap.String("size", bytefmt.ByteSize(size)),
	)
	return memoryMap(path)
}

// Epochs lists the epochs of the dumps present in the store, in ascending order.
// Dumps without readable metadata are skipped.
func (s *Store) Epochs() ([]uint64, error) {
	files, err := shared.GetFiles(s.dir, isDumpFile)
	if err != nil {
		return nil, err
	}

	epochs := make([]uint64, 0, len(files))
	for _, file := range files {
		m, err := LoadMetadata(filepath.Join(s.dir, file.Name()))
		if err != nil {
			continue
		}
		epochs = append(epochs, m.Epoch)
	}
	sort.Slice(epochs, func(i, j int) bool { return epochs[i] < epochs[j] })
	return epochs, nil
}

// Prune removes the dumps of all epochs older than the newest keep epochs up
// to current, along with dumps whose metadata can't be read. Dumps of the
// inUse epochs are kept regardless.
func (s *Store) Prune(current uint64, keep int, inUse ...uint64) error {
	files, err := shared.GetFiles(s.dir, isDumpFile)
	if err != nil {
		return err
	}

	for _, file := range files {
		path := filepath.Join(s.dir, file.Name())
		m, err := LoadMetadata(path)
		if err == nil && (m.Epoch+uint64(keep) > current || slices.Contains(inUse, m.Epoch)) {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		if err := os.Remove(metadataPath(path)); err != nil && !os.IsNotExist(err) {
			return err
		}
		s.logger.Debug("removed ethash cache dump", zap.String("path", path))
	}
	return nil
}

// Usage returns the number of bytes taken by the dumps in the store.
func (s *Store) Usage() (uint64, error) {
	files, err := shared.GetFiles(s.dir, isDumpFile)
	if err != nil {
		return 0, err
	}

	var total uint64
	for _, file := range files {
		total += uint64(file.Size())
	}
	return total, nil
}
