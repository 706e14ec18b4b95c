// Package cache maintains the per-epoch ethash verification caches.
package cache

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.uber.org/zap"

	"github.com/spacemeshos/powseal/internal/hashimoto"
	"github.com/spacemeshos/powseal/metrics"
	"github.com/spacemeshos/powseal/persistence"
	"github.com/spacemeshos/powseal/shared"
)

var ErrClosed = errors.New("cache manager closed")

// Manager lazily builds epoch caches, keeps the last built ones in memory
// and persists them as dumps on disk.
//
// Lookups of cached epochs only take a read lock. A missing epoch is built
// under a lock of its own, so requests for other epochs are not blocked by it
// and concurrent requests for the same epoch share one build.
//
// Hits don't refresh an epoch's position, so memory is evicted in build
// order. Epochs are served roughly in chain order, which makes the oldest
// built the first one no longer needed.
type Manager struct {
	logger       *zap.Logger
	store        *persistence.Store
	scratch      bool
	testMode     bool
	pregenerate  bool
	cachesOnDisk int

	epochs epochMutex

	mu          sync.RWMutex
	lru         *simplelru.LRU[uint64, *Cache]
	future      *Cache
	futureEpoch uint64
	highest     uint64
	closed      bool

	// builds in flight, waited for by Close
	wg sync.WaitGroup
}

// New creates a cache manager. The manager must be closed after use with Close().
func New(opts ...OptionFunc) (*Manager, error) {
	options, err := applyOpts(opts...)
	if err != nil {
		return nil, err
	}

	dir, scratch := options.dir, false
	if dir == "" {
		dir, err = os.MkdirTemp("", "powseal-cache-")
		if err != nil {
			return nil, fmt.Errorf("failed to create scratch dir: %w", err)
		}
		scratch = true
	}

	storeOpts := []persistence.OptionFunc{persistence.WithLogger(options.logger)}
	if !options.spaceCheck {
		storeOpts = append(storeOpts, persistence.WithoutSpaceCheck())
	}
	store, err := persistence.NewStore(dir, storeOpts...)
	if err != nil {
		if scratch {
			os.RemoveAll(dir)
		}
		return nil, err
	}

	m := &Manager{
		logger:       options.logger,
		store:        store,
		scratch:      scratch,
		testMode:     options.testMode,
		pregenerate:  options.pregenerate,
		cachesOnDisk: options.cachesOnDisk,
	}
	m.lru, err = simplelru.NewLRU[uint64, *Cache](options.cachesInMem, m.onEvict)
	if err != nil {
		return nil, err
	}

	m.logger.Info("ethash cache manager started",
		zap.String("dir", dir),
		zap.Bool("scratch", scratch),
		zap.Bool("test_mode", options.testMode),
		zap.Int("caches_in_mem", options.cachesInMem),
		zap.Int("caches_on_disk", options.cachesOnDisk),
	)
	return m, nil
}

func (m *Manager) onEvict(epoch uint64, _ *Cache) {
	m.logger.Debug("evicted ethash cache", zap.Uint64("epoch", epoch))
}

// Dir returns the directory holding the cache dumps.
func (m *Manager) Dir() string { return m.store.Dir() }

// DiskUsage returns the number of bytes taken by the cache dumps on disk.
func (m *Manager) DiskUsage() (uint64, error) { return m.store.Usage() }

// Sizes returns the cache and dataset sizes used for an epoch.
func (m *Manager) Sizes(epoch uint64) (cacheSize, datasetSize uint64) {
	if m.testMode {
		return hashimoto.TestCacheSize, hashimoto.TestDatasetSize
	}
	return hashimoto.CacheSize(epoch), hashimoto.DatasetSize(epoch)
}

// Get returns the cache of the epoch containing height, building it if needed.
// Heights at or past MaxEpoch fail with shared.ErrEpochOutOfRange. Build
// failures are returned as *shared.CacheError.
func (m *Manager) Get(height uint64) (*Cache, error) {
	epoch := hashimoto.Epoch(height)
	if epoch >= hashimoto.MaxEpoch {
		return nil, fmt.Errorf("%w: height %d, epoch %d, max epoch %d",
			shared.ErrEpochOutOfRange, height, epoch, hashimoto.MaxEpoch-1)
	}

	m.mu.RLock()
	c, ok := m.lru.Peek(epoch)
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, &shared.CacheError{Epoch: epoch, Op: "lookup", Err: ErrClosed}
	}
	if ok {
		m.schedule(epoch + 1)
		return c, nil
	}

	lock := m.epochs.Epoch(epoch)
	lock.Lock()
	defer lock.Unlock()

	// Someone else may have built it, or it was pregenerated, while we waited.
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, &shared.CacheError{Epoch: epoch, Op: "lookup", Err: ErrClosed}
	}
	if c, ok := m.lru.Peek(epoch); ok {
		m.mu.Unlock()
		return c, nil
	}
	if m.future != nil && m.futureEpoch == epoch {
		c = m.future
		m.future = nil
		m.add(epoch, c)
		m.mu.Unlock()
		m.logger.Debug("using pregenerated ethash cache", zap.Uint64("epoch", epoch))
		m.schedule(epoch + 1)
		return c, nil
	}
	m.wg.Add(1)
	m.mu.Unlock()
	defer m.wg.Done()

	c, err := m.build(epoch)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, &shared.CacheError{Epoch: epoch, Op: "lookup", Err: ErrClosed}
	}
	m.add(epoch, c)
	m.mu.Unlock()

	m.prune()
	m.schedule(epoch + 1)
	return c, nil
}

// add must be called with mu held.
func (m *Manager) add(epoch uint64, c *Cache) {
	m.lru.Add(epoch, c)
	m.highest = max(m.highest, epoch)
	metrics.CachedEpochs.Set(float64(m.lru.Len()))
}

// Epochs returns the epochs currently held in memory, oldest first.
func (m *Manager) Epochs() []uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lru.Keys()
}

// build loads the dump of an epoch from disk, generating it if it's missing or
// unusable.
func (m *Manager) build(epoch uint64) (*Cache, error) {
	cacheSize, datasetSize := m.Sizes(epoch)
	logger := m.logger.With(zap.Uint64("epoch", epoch), zap.String("size", bytefmt.ByteSize(cacheSize)))

	start := time.Now()
	source := metrics.SourceDisk
	dump, err := m.store.Load(epoch, cacheSize)
	if err != nil {
		if !errors.Is(err, persistence.ErrMetadataMissing) {
			logger.Warn("failed to load ethash cache, regenerating", zap.Error(err))
		}

		seed := hashimoto.SeedHash(epoch)
		dump, err = m.store.Generate(epoch, cacheSize, func(buffer []uint32) {
			hashimoto.GenerateCache(buffer, seed)
		})
		if err != nil {
			logger.Error("failed to generate ethash cache", zap.Error(err))
			return nil, &shared.CacheError{Epoch: epoch, Op: "generate", Err: err}
		}
		source = metrics.SourceGenerated
	}
	elapsed := time.Since(start)
	metrics.CacheBuilds.WithLabelValues(source).Inc()
	metrics.CacheBuildDuration.Observe(elapsed.Seconds())
	logger.Debug("ethash cache ready", zap.String("source", source), zap.Duration("elapsed", elapsed))

	return newCache(epoch, datasetSize, dump), nil
}

// prune removes dumps outside the newest cachesOnDisk epochs up to the highest
// epoch served. Dumps of epochs held in memory or pregenerated are kept.
func (m *Manager) prune() {
	m.mu.RLock()
	highest := m.highest
	inUse := m.lru.Keys()
	if m.pregenerate {
		inUse = append(inUse, m.futureEpoch)
	}
	m.mu.RUnlock()

	if err := m.store.Prune(highest, m.cachesOnDisk, inUse...); err != nil {
		m.logger.Warn("failed to prune old ethash caches", zap.Error(err))
	}
}

// schedule starts building the cache of epoch in the background, unless
// pregeneration is off, epoch is out of range or it is already built or
// scheduled.
func (m *Manager) schedule(epoch uint64) {
	if !m.pregenerate || epoch >= hashimoto.MaxEpoch {
		return
	}

	m.mu.RLock()
	skip := m.closed || m.futureEpoch >= epoch || m.lru.Contains(epoch)
	m.mu.RUnlock()
	if skip {
		return
	}

	m.mu.Lock()
	if m.closed || m.futureEpoch >= epoch || m.lru.Contains(epoch) {
		m.mu.Unlock()
		return
	}
	previous := m.futureEpoch
	m.futureEpoch = epoch
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()

		lock := m.epochs.Epoch(epoch)
		lock.Lock()
		defer lock.Unlock()

		m.mu.RLock()
		_, ok := m.lru.Peek(epoch)
		m.mu.RUnlock()
		if ok {
			return
		}

		c, err := m.build(epoch)
		if err != nil {
			m.logger.Warn("failed to pregenerate ethash cache", zap.Uint64("epoch", epoch), zap.Error(err))
			m.mu.Lock()
			// Let the next lookup retry.
			if m.futureEpoch == epoch {
				m.futureEpoch = previous
			}
			m.mu.Unlock()
			return
		}

		m.mu.Lock()
		if m.futureEpoch == epoch && !m.closed {
			m.future = c
		}
		m.mu.Unlock()
		m.prune()
	}()
}

// Close waits for builds in flight to finish and drops all caches. Caches
// still held by callers stay usable. A scratch directory is removed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	m.lru.Purge()
	m.future = nil
	metrics.CachedEpochs.Set(0)
	m.mu.Unlock()

	if m.scratch {
		if err := os.RemoveAll(m.store.Dir()); err != nil {
			return fmt.Errorf("failed to remove scratch dir: %w", err)
		}
	}
	return nil
}
