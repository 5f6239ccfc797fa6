// Package favorites implements the locally persisted favorites collection.
//
// The collection is an insertion-ordered list of movie summaries with no two
// entries sharing an ID. Every mutation overwrites the full persisted list;
// Clear deletes the persisted key, and a missing key loads as an empty list.
package favorites

import (
	"sync"

	"github.com/amaumene/movieshelf/internal/constants"
	"github.com/amaumene/movieshelf/internal/models"
	"github.com/amaumene/movieshelf/internal/storage"
	"github.com/amaumene/movieshelf/internal/store"
	"github.com/amaumene/movieshelf/pkg/logger"
)

// State is the observable favorites state.
type State struct {
	Favorites []models.MovieSummary `json:"favorites"`
	IsLoading bool                  `json:"isLoading"`
}

// Store holds the favorites collection and mirrors it to storage.
type Store struct {
	state   *store.Store[State]
	storage *storage.Storage
	logger  logger.Logger
	key     string

	// held across a state update and its persistence write so writes land
	// in mutation order
	mu sync.Mutex
}

// New creates an empty store. Call Initialize to load persisted favorites.
func New(s *storage.Storage, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		state:   store.New(State{Favorites: []models.MovieSummary{}}),
		storage: s,
		logger:  log,
		key:     constants.FavoritesStorageKey,
	}
}

// Initialize replaces the in-memory list with the persisted one.
// Absent or undecodable data loads as an empty list. Each call re-reads
// storage; the last call wins.
func (f *Store) Initialize() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state.SetState(func(s State) State {
		s.IsLoading = true
		return s
	})

	saved, ok := storage.GetAs[[]models.MovieSummary](f.storage, f.key)
	if !ok || saved == nil {
		saved = []models.MovieSummary{}
	}
	saved = dedupe(saved)

	f.state.SetState(func(State) State {
		return State{Favorites: saved, IsLoading: false}
	})
	f.logger.Debugf("[Favorites] loaded %d favorites", len(saved))
}

// Add appends movie unless a favorite with the same ID exists.
func (f *Store) Add(movie models.MovieSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.add(movie)
}

// Remove drops the favorite with movieID, if any.
func (f *Store) Remove(movieID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remove(movieID)
}

// Toggle removes movie when it is a favorite and adds it otherwise.
func (f *Store) Toggle(movie models.MovieSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if indexOf(f.state.GetState().Favorites, movie.ID) >= 0 {
		f.remove(movie.ID)
		return
	}
	f.add(movie)
}

// Clear empties the collection and deletes the persisted key.
func (f *Store) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state.SetState(func(s State) State {
		s.Favorites = []models.MovieSummary{}
		return s
	})
	_ = f.storage.Remove(f.key)
}

// IsFavorite reports whether movieID is in the collection.
func (f *Store) IsFavorite(movieID int) bool {
	return indexOf(f.state.GetState().Favorites, movieID) >= 0
}

// Favorites returns a copy of the collection in insertion order.
func (f *Store) Favorites() []models.MovieSummary {
	favs := f.state.GetState().Favorites
	out := make([]models.MovieSummary, len(favs))
	copy(out, favs)
	return out
}

func (f *Store) Count() int {
	return len(f.state.GetState().Favorites)
}

func (f *Store) IsLoading() bool {
	return f.state.GetState().IsLoading
}

// State returns the current state snapshot.
func (f *Store) State() State {
	s := f.state.GetState()
	s.Favorites = f.Favorites()
	return s
}

// Subscribe registers fn for state changes and returns the unsubscribe func.
func (f *Store) Subscribe(fn func(state, prev State)) func() {
	return f.state.Subscribe(fn)
}

// add and remove must be called with f.mu held.
func (f *Store) add(movie models.MovieSummary) {
	var updated []models.MovieSummary
	changed := false
	f.state.SetState(func(s State) State {
		if indexOf(s.Favorites, movie.ID) >= 0 {
			return s
		}
		updated = make([]models.MovieSummary, len(s.Favorites), len(s.Favorites)+1)
		copy(updated, s.Favorites)
		updated = append(updated, movie)
		changed = true
		s.Favorites = updated
		return s
	})
	if changed {
		f.persist(updated)
	}
}

func (f *Store) remove(movieID int) {
	var updated []models.MovieSummary
	changed := false
	f.state.SetState(func(s State) State {
		if indexOf(s.Favorites, movieID) < 0 {
			return s
		}
		updated = make([]models.MovieSummary, 0, len(s.Favorites))
		for _, m := range s.Favorites {
			if m.ID != movieID {
				updated = append(updated, m)
			}
		}
		changed = true
		s.Favorites = updated
		return s
	})
	// nothing matched: the persisted list is already identical
	if changed {
		f.persist(updated)
	}
}

// persist writes the full list. Failures are logged by the adapter and the
// in-memory state stays updated.
func (f *Store) persist(list []models.MovieSummary) {
	if err := f.storage.Set(f.key, list); err != nil {
		f.logger.Warnf("[Favorites] change not saved durably (%d favorites in memory)", len(list))
	}
}

func indexOf(list []models.MovieSummary, movieID int) int {
	for i, m := range list {
		if m.ID == movieID {
			return i
		}
	}
	return -1
}

// dedupe keeps the first occurrence of every ID.
func dedupe(list []models.MovieSummary) []models.MovieSummary {
	seen := make(map[int]struct{}, len(list))
	out := list[:0:0]
	for _, m := range list {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}
