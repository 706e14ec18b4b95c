package cache

import "sync"

// epochMutex hands out one mutex per epoch. It serializes builds of the same
// epoch while builds of different epochs proceed in parallel.
type epochMutex struct {
	mtx   sync.Mutex
	epoch map[uint64]*sync.Mutex
}

func (g *epochMutex) Epoch(epoch uint64) *sync.Mutex {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	if g.epoch == nil {
		g.epoch = make(map[uint64]*sync.Mutex)
	}

	if _, ok := g.epoch[epoch]; !ok {
		g.epoch[epoch] = new(sync.Mutex)
	}

	return g.epoch[epoch]
}
