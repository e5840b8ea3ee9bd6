package matchlock

import "sync"

// Registry - one mutex per active match, created on demand. Operations on
// different matches run in parallel; operations on the same match are
// strictly serialized, so two submitted moves can never both validate
// against the same pre-move state.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewRegistry() *Registry {
	return &Registry{
		locks: make(map[string]*lockEntry),
	}
}

// Lock - acquires the mutex for the given match id and returns the
// release func. The entry is dropped from the registry once the last
// holder or waiter releases, so finished matches do not accumulate.
func (that *Registry) Lock(id string) func() {
	that.mu.Lock()
	entry, ok := that.locks[id]
	if !ok {
		entry = &lockEntry{}
		that.locks[id] = entry
	}
	entry.refs++
	that.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		that.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(that.locks, id)
		}
		that.mu.Unlock()
	}
}

// Active - number of match ids currently holding a lock entry.
func (that *Registry) Active() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.locks)
}
