package persistence

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"github.com/edsrzf/mmap-go"
)

// AlgorithmRevision is the data structure version used for file naming.
const AlgorithmRevision = 23

var dumpMagic = []uint32{0xbaddcafe, 0xfee1dead}

var (
	ErrInvalidDumpMagic = errors.New("invalid dump magic")
	ErrChecksumMismatch = errors.New("dump checksum mismatch")
)

// Dump is a cache held in a read-only memory mapped file.
type Dump struct {
	file *os.File
	mmap mmap.MMap
	data []uint32
}

// Data returns the cache words, without the magic header.
// It must not be used after Close.
func (d *Dump) Data() []uint32 { return d.data }

// Close unmaps the dump and closes its file. It is safe to call more than once.
func (d *Dump) Close() error {
	if d.mmap == nil {
		return nil
	}
	err := d.mmap.Unmap()
	if cerr := d.file.Close(); err == nil {
		err = cerr
	}
	d.mmap, d.file, d.data = nil, nil, nil
	return err
}

// memoryMap tries to memory map a file of uint32s for read only access.
func memoryMap(path string) (*Dump, error) {
	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	mem, buffer, err := memoryMapFile(file, false)
	if err != nil {
		file.Close()
		return nil, err
	}
	for i, magic := range dumpMagic {
		if len(buffer) <= i || buffer[i] != magic {
			mem.Unmap()
			file.Close()
			return nil, ErrInvalidDumpMagic
		}
	}
	return &Dump{file: file, mmap: mem, data: buffer[len(dumpMagic):]}, nil
}

// memoryMapFile maps an already opened file, returning the mapping and its
// uint32 view.
func memoryMapFile(file *os.File, write bool) (mmap.MMap, []uint32, error) {
	flag := mmap.RDONLY
	if write {
		flag = mmap.RDWR
	}
	mem, err := mmap.Map(file, flag, 0)
	if err != nil {
		return nil, nil, err
	}
	if len(mem) < 4 {
		mem.Unmap()
		return nil, nil, fmt.Errorf("dump too small: %d bytes", len(mem))
	}
	return mem, unsafe.Slice((*uint32)(unsafe.Pointer(&mem[0])), len(mem)/4), nil
}

// dumpBody returns the dump's bytes following the magic header.
func dumpBody(mem mmap.MMap) []byte {
	return mem[len(dumpMagic)*4:]
}
