package index

import "sync"

// State tracks per-user index readiness.
type State int

const (
	StateNoIndex State = iota
	StateLoading
	StateReady
)

// Registry is the in-process map of resident indexes, one entry per user.
// A rebuild holds the user's write lock across delete+recreate so concurrent
// queries for the same user never observe a half-written index; operations
// for different users do not contend.
type Registry struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

type entry struct {
	lock  sync.RWMutex
	state State
	idx   *Index
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[int64]*entry)}
}

func (r *Registry) entryFor(userID int64) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[userID]
	if !ok {
		e = &entry{}
		r.entries[userID] = e
	}
	return e
}

// Get returns the resident index for the user under a read lock, blocking if
// a rebuild for that user is in flight. The returned release func must be
// called when the caller is done reading.
func (r *Registry) Get(userID int64) (*Index, State, func()) {
	e := r.entryFor(userID)
	e.lock.RLock()
	return e.idx, e.state, e.lock.RUnlock
}

// Update acquires the user's exclusive lock, runs fn, and stores its result.
// fn returning a nil index resets the user to NO_INDEX (delete-of-last-
// document); errors leave the previous entry in place. The lock is always
// released, even when fn panics or fails.
func (r *Registry) Update(userID int64, fn func() (*Index, error)) error {
	e := r.entryFor(userID)
	e.lock.Lock()
	defer e.lock.Unlock()

	prev := e.state
	e.state = StateLoading
	idx, err := fn()
	if err != nil {
		e.state = prev
		return err
	}
	e.idx = idx
	if idx == nil {
		e.state = StateNoIndex
	} else {
		e.state = StateReady
	}
	return nil
}
