package file

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/risa-org/signalfish/protocol"
	"github.com/risa-org/signalfish/store"
)

// record is the JSON structure persisted to disk for each seat.
type record struct {
	Key       string            `json:"key"`
	GameName  string            `json:"game_name"`
	PlayerID  protocol.PlayerID `json:"player_id"`
	RoomID    protocol.RoomID   `json:"room_id"`
	RoomCode  string            `json:"room_code"`
	AuthToken string            `json:"auth_token"`
	SavedAt   time.Time         `json:"saved_at"`
}

// Store is a file-backed store.Store. Seats survive process restarts, so a
// command-line client can reconnect from a later invocation.
// Not safe for several processes writing the same file.
type Store struct {
	mu    sync.RWMutex
	path  string
	seats map[string]store.Seat
}

var _ store.Store = (*Store)(nil)

// New opens a store at path, loading any seats already saved there.
// A missing file is an empty store; it is created on first write.
func New(path string) (*Store, error) {
	s := &Store{
		path:  path,
		seats: make(map[string]store.Seat),
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load seats from %s: %w", path, err)
	}

	return s, nil
}

// Save records seat under key and writes the file.
func (s *Store) Save(key string, seat store.Seat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seats[key] = seat
	if err := s.flush(); err != nil {
		return fmt.Errorf("failed to persist seat: %w", err)
	}
	return nil
}

func (s *Store) Load(key string) (store.Seat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seat, ok := s.seats[key]
	return seat, ok
}

// Delete removes a seat and writes the file.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seats, key)
	return s.flush()
}

// Count returns the number of seats currently stored.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seats)
}

// load reads seats from the JSON file. A missing file is not an error.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}

	for _, r := range records {
		s.seats[r.Key] = store.Seat{
			GameName:  r.GameName,
			PlayerID:  r.PlayerID,
			RoomID:    r.RoomID,
			RoomCode:  r.RoomCode,
			AuthToken: r.AuthToken,
			SavedAt:   r.SavedAt,
		}
	}
	return nil
}

// flush writes every seat to the file. Must be called with the write lock
// held.
func (s *Store) flush() error {
	records := make([]record, 0, len(s.seats))
	for key, seat := range s.seats {
		records = append(records, record{
			Key:       key,
			GameName:  seat.GameName,
			PlayerID:  seat.PlayerID,
			RoomID:    seat.RoomID,
			RoomCode:  seat.RoomCode,
			AuthToken: seat.AuthToken,
			SavedAt:   seat.SavedAt,
		})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	// write to a temp file then rename so a crash never leaves a torn file
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
