package memory

import (
	"sync"

	"github.com/risa-org/signalfish/store"
)

// Store is a thread-safe in-memory store.Store.
// Seats are lost when the process exits.
type Store struct {
	mu    sync.RWMutex
	seats map[string]store.Seat
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{seats: make(map[string]store.Seat)}
}

// Save records seat under key, replacing any earlier one.
func (s *Store) Save(key string, seat store.Seat) error {
	s.mu.Lock()
	s.seats[key] = seat
	s.mu.Unlock()
	return nil
}

// Load returns the seat saved under key.
func (s *Store) Load(key string) (store.Seat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seat, ok := s.seats[key]
	return seat, ok
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	delete(s.seats, key)
	s.mu.Unlock()
	return nil
}

// Count returns the number of seats held.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seats)
}
