package cache

import (
	"runtime"

	"github.com/spacemeshos/powseal/internal/hashimoto"
	"github.com/spacemeshos/powseal/persistence"
	"github.com/spacemeshos/powseal/shared"
)

// Cache is the verification cache of one epoch. It is immutable once returned
// by a Manager and safe for concurrent use.
type Cache struct {
	epoch       uint64
	datasetSize uint64
	cache       []uint32
	dump        *persistence.Dump
}

func newCache(epoch, datasetSize uint64, dump *persistence.Dump) *Cache {
	c := &Cache{
		epoch:       epoch,
		datasetSize: datasetSize,
		cache:       dump.Data(),
		dump:        dump,
	}
	// The dump stays mapped as long as anyone holds the cache, even after
	// eviction.
	runtime.SetFinalizer(c, (*Cache).finalizer)
	return c
}

func (c *Cache) finalizer() {
	c.dump.Close()
}

func (c *Cache) Epoch() uint64 { return c.epoch }

// Size returns the size of the cache in bytes.
func (c *Cache) Size() uint64 { return uint64(len(c.cache)) * 4 }

// DatasetSize returns the size in bytes of the full dataset the cache stands in for.
func (c *Cache) DatasetSize() uint64 { return c.datasetSize }

// Compute evaluates hashimoto light for hash and nonce, returning the mix
// digest and the result value.
func (c *Cache) Compute(hash shared.Hash, nonce uint64) (mix, value shared.Hash) {
	digest, result := hashimoto.Light(c.datasetSize, c.cache, hash[:], nonce)
	// Keep the mapping alive until hashimoto is done with it.
	runtime.KeepAlive(c)
	return shared.BytesToHash(digest), shared.BytesToHash(result)
}
