package control

import (
	"errors"
	"sort"
	"sync"
)

// Registry is the concurrency-safe contract for tracking live sessions.
type Registry interface {
	// Add registers s. It fails with ErrSessionExists if the id is taken.
	Add(s *Session) error

	// Get returns the session with the given id.
	Get(id SessionID) (*Session, bool)

	// Remove unregisters and returns the session with the given id. The
	// caller owns closing it.
	Remove(id SessionID) (*Session, bool)

	// IDs returns the registered ids in ascending order.
	IDs() []SessionID

	// ActiveSessionCount returns the number of registered sessions.
	// Used for metrics.
	ActiveSessionCount() int
}

var (
	// ErrSessionNotFound is returned for an id that is not registered.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists is returned when registering a duplicate id.
	ErrSessionExists = errors.New("session already exists")
)

// InMemoryRegistry is a concurrency-safe Registry backed by a Store; by
// default that is an InMemoryStore.
type InMemoryRegistry struct {
	mu    sync.RWMutex
	store Store
}

// NewInMemoryRegistry constructs a registry with a default in-memory store.
func NewInMemoryRegistry() *InMemoryRegistry {
	return NewInMemoryRegistryWithStore(NewInMemoryStore())
}

// NewInMemoryRegistryWithStore constructs a registry that uses the given Store.
func NewInMemoryRegistryWithStore(store Store) *InMemoryRegistry {
	return &InMemoryRegistry{store: store}
}

// Add implements Registry.Add.
func (r *InMemoryRegistry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store.GetSession(s.ID); exists {
		return ErrSessionExists
	}
	r.store.SetSession(s)
	return nil
}

// Get implements Registry.Get.
func (r *InMemoryRegistry) Get(id SessionID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.GetSession(id)
}

// Remove implements Registry.Remove.
func (r *InMemoryRegistry) Remove(id SessionID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.store.GetSession(id)
	if !ok {
		return nil, false
	}
	r.store.DeleteSession(id)
	return s, true
}

// IDs implements Registry.IDs.
func (r *InMemoryRegistry) IDs() []SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.store.ListSessionIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ActiveSessionCount implements Registry.ActiveSessionCount.
func (r *InMemoryRegistry) ActiveSessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.store.ListSessionIDs())
}
