// Package favorites keeps the user's favorites list in memory and mirrors every change to a
// durable slot.
//
// The list is ordered by insertion and unique by movie id. Storage failures never reach the
// caller: a bad or unreadable slot loads as an empty list, and a failed write keeps the
// in-memory change. Both cases are logged as [shared.StorageError].
package favorites

import (
	"encoding/json"
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/kpx/internal/models"
	"github.com/desertthunder/kpx/internal/shared"
)

// SlotKey is the durable slot holding the JSON favorites list.
const SlotKey = "favorites"

// Slot is a durable string store keyed by name.
type Slot interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Store owns the favorites list. Construct one with [New] and pass it to consumers.
type Store struct {
	mu     sync.RWMutex
	slot   Slot
	items  []models.MovieSummary
	logger *log.Logger
}

// New creates an empty store backed by slot. Call [Store.Load] to read the persisted list.
func New(slot Slot, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Store{slot: slot, items: []models.MovieSummary{}, logger: logger}
}

// Load replaces the in-memory list with the persisted one.
//
// A missing slot yields an empty list. Read and decode failures also yield an empty list and are
// logged, not returned.
func (s *Store) Load() {
	items := s.read()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
}

func (s *Store) read() []models.MovieSummary {
	raw, found, err := s.slot.Get(SlotKey)
	if err != nil {
		s.logger.Error("could not read favorites", "error", &shared.StorageError{Op: "read", Key: SlotKey, Err: err})
		return []models.MovieSummary{}
	}
	if !found || raw == "" {
		return []models.MovieSummary{}
	}

	var items []models.MovieSummary
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Error("could not decode favorites", "error", &shared.StorageError{Op: "decode", Key: SlotKey, Err: err})
		return []models.MovieSummary{}
	}
	return dedupe(items)
}

// Add appends movie unless a favorite with the same id exists. The first stored snapshot wins.
// Returns whether the list changed.
func (s *Store) Add(movie models.MovieSummary) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(movie.ID) >= 0 {
		return false
	}
	s.items = append(s.items, movie)
	s.persist()
	return true
}

// Remove drops the favorite with id. The list is persisted even when id was absent.
// Returns whether the list changed.
func (s *Store) Remove(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i >= 0 {
		s.items = slices.Delete(s.items, i, i+1)
	}
	s.persist()
	return i >= 0
}

// Toggle removes movie when it is a favorite and adds it otherwise. Returns the new membership.
func (s *Store) Toggle(movie models.MovieSummary) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(movie.ID); i >= 0 {
		s.items = slices.Delete(s.items, i, i+1)
		s.persist()
		return false
	}
	s.items = append(s.items, movie)
	s.persist()
	return true
}

// IsFavorite reports whether id is in the list.
func (s *Store) IsFavorite(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(id) >= 0
}

// Get returns the stored snapshot for id.
func (s *Store) Get(id int) (models.MovieSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i], true
	}
	return models.MovieSummary{}, false
}

// List returns a copy of the favorites in insertion order.
func (s *Store) List() []models.MovieSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Len returns the number of favorites.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// indexOf must be called with the lock held.
func (s *Store) indexOf(id int) int {
	return slices.IndexFunc(s.items, func(m models.MovieSummary) bool { return m.ID == id })
}

// persist writes the whole list; must be called with the write lock held.
func (s *Store) persist() {
	data, err := json.Marshal(s.items)
	if err != nil {
		s.logger.Error("could not encode favorites", "error", &shared.StorageError{Op: "encode", Key: SlotKey, Err: err})
		return
	}
	if err := s.slot.Set(SlotKey, string(data)); err != nil {
		s.logger.Error("could not save favorites", "error", &shared.StorageError{Op: "write", Key: SlotKey, Err: err})
		return
	}
	s.logger.Debug("favorites saved", "count", len(s.items))
}

func dedupe(items []models.MovieSummary) []models.MovieSummary {
	out := make([]models.MovieSummary, 0, len(items))
	seen := make(map[int]bool, len(items))
	for _, m := range items {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	return out
}
