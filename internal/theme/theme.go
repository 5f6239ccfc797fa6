// Package theme holds the persisted light/dark mode selection.
package theme

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/amaumene/movieshelf/internal/constants"
	apperrors "github.com/amaumene/movieshelf/internal/errors"
	"github.com/amaumene/movieshelf/internal/models"
	"github.com/amaumene/movieshelf/internal/storage"
	"github.com/amaumene/movieshelf/internal/store"
	"github.com/amaumene/movieshelf/pkg/logger"
)

// SystemPreference reports the platform colour scheme.
type SystemPreference interface {
	ColorScheme() models.ThemeMode
}

// StaticPreference always reports the same mode.
type StaticPreference models.ThemeMode

func (p StaticPreference) ColorScheme() models.ThemeMode {
	return models.ThemeMode(p)
}

// EnvPreference reads COLOR_SCHEME (or a configured fallback), defaulting to light.
type EnvPreference struct {
	Fallback string
}

func (p EnvPreference) ColorScheme() models.ThemeMode {
	v := os.Getenv("COLOR_SCHEME")
	if v == "" {
		v = p.Fallback
	}
	if strings.EqualFold(strings.TrimSpace(v), string(models.ThemeDark)) {
		return models.ThemeDark
	}
	return models.ThemeLight
}

// State pairs the mode with its palette. Theme always equals ThemeFor(Mode).
type State struct {
	Mode  models.ThemeMode `json:"themeMode"`
	Theme models.Theme     `json:"theme"`
}

func stateFor(mode models.ThemeMode) State {
	return State{Mode: mode, Theme: models.ThemeFor(mode)}
}

type Store struct {
	state   *store.Store[State]
	storage *storage.Storage
	system  SystemPreference
	logger  logger.Logger
	key     string
	mu      sync.Mutex
}

// New creates a store in light mode. Call Initialize to apply the persisted
// or system mode.
func New(s *storage.Storage, system SystemPreference, log logger.Logger) *Store {
	if system == nil {
		system = EnvPreference{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		state:   store.New(stateFor(models.ThemeLight)),
		storage: s,
		system:  system,
		logger:  log,
		key:     constants.ThemeStorageKey,
	}
}

// Initialize applies the persisted mode when valid; otherwise the system
// preference is applied and persisted.
func (t *Store) Initialize() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if mode, ok := storage.GetAs[models.ThemeMode](t.storage, t.key); ok && mode.Valid() {
		t.apply(mode, false)
		return
	}

	mode := t.systemMode()
	t.logger.Debugf("[Theme] no saved mode, using system preference %q", mode)
	t.apply(mode, true)
}

// Toggle flips between light and dark.
func (t *Store) Toggle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.apply(t.state.GetState().Mode.Opposite(), true)
}

// SetTheme selects mode explicitly. Invalid modes are rejected and leave
// the state untouched.
func (t *Store) SetTheme(mode models.ThemeMode) error {
	if !mode.Valid() {
		return fmt.Errorf("theme mode %q: %w", mode, apperrors.New(apperrors.KindContract, "invalid theme mode", nil))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.apply(mode, true)
	return nil
}

// SetSystemTheme re-reads the system preference and applies it, even when
// it matches the current mode.
func (t *Store) SetSystemTheme() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.apply(t.systemMode(), true)
}

func (t *Store) Mode() models.ThemeMode { return t.state.GetState().Mode }

func (t *Store) Theme() models.Theme { return t.state.GetState().Theme }

func (t *Store) IsDarkMode() bool { return t.Mode() == models.ThemeDark }

func (t *Store) State() State { return t.state.GetState() }

func (t *Store) Subscribe(fn func(state, prev State)) func() {
	return t.state.Subscribe(fn)
}

func (t *Store) systemMode() models.ThemeMode {
	mode := t.system.ColorScheme()
	if !mode.Valid() {
		return models.ThemeLight
	}
	return mode
}

// apply must be called with t.mu held. Mode and palette change in one update.
func (t *Store) apply(mode models.ThemeMode, persist bool) {
	t.state.SetState(func(State) State {
		return stateFor(mode)
	})
	if persist {
		_ = t.storage.Set(t.key, mode)
	}
}
