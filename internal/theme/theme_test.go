package theme

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/movieshelf/internal/constants"
	apperrors "github.com/amaumene/movieshelf/internal/errors"
	"github.com/amaumene/movieshelf/internal/models"
	"github.com/amaumene/movieshelf/internal/storage"
	"github.com/amaumene/movieshelf/pkg/logger"
)

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	engine, err := storage.NewBolt(filepath.Join(t.TempDir(), "theme.db"))
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return storage.New(engine, logger.NewNop())
}

func savedMode(t *testing.T, s *storage.Storage) models.ThemeMode {
	t.Helper()
	mode, _ := storage.GetAs[models.ThemeMode](s, constants.ThemeStorageKey)
	return mode
}

func TestDefaultsToLight(t *testing.T) {
	ts := New(newTestStorage(t), StaticPreference(models.ThemeDark), nil)

	assert.Equal(t, models.ThemeLight, ts.Mode())
	assert.Equal(t, models.LightTheme, ts.Theme())
}

func TestInitializeUsesPersistedMode(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Set(constants.ThemeStorageKey, models.ThemeDark))

	ts := New(s, StaticPreference(models.ThemeLight), nil)
	ts.Initialize()

	assert.Equal(t, models.ThemeDark, ts.Mode())
	assert.Equal(t, models.DarkTheme, ts.Theme())
}

func TestInitializeFallsBackToSystemAndPersists(t *testing.T) {
	s := newTestStorage(t)

	ts := New(s, StaticPreference(models.ThemeDark), nil)
	ts.Initialize()

	assert.Equal(t, models.ThemeDark, ts.Mode())
	assert.Equal(t, models.ThemeDark, savedMode(t, s))
}

func TestInitializeIgnoresInvalidPersistedMode(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Set(constants.ThemeStorageKey, "sepia"))

	ts := New(s, StaticPreference(models.ThemeDark), nil)
	ts.Initialize()

	assert.Equal(t, models.ThemeDark, ts.Mode())
	assert.Equal(t, models.ThemeDark, savedMode(t, s))
}

func TestToggleTwiceRestoresTheme(t *testing.T) {
	s := newTestStorage(t)
	ts := New(s, StaticPreference(models.ThemeLight), nil)
	ts.Initialize()
	original := ts.State()

	ts.Toggle()
	assert.Equal(t, models.ThemeDark, ts.Mode())
	assert.True(t, ts.IsDarkMode())
	assert.Equal(t, models.ThemeDark, savedMode(t, s))

	ts.Toggle()
	assert.Equal(t, original, ts.State())
	assert.Equal(t, models.ThemeLight, savedMode(t, s))
}

func TestSetThemeIsIdempotent(t *testing.T) {
	ts := New(newTestStorage(t), StaticPreference(models.ThemeLight), nil)

	require.NoError(t, ts.SetTheme(models.ThemeDark))
	first := ts.State()
	require.NoError(t, ts.SetTheme(models.ThemeDark))

	assert.Equal(t, first, ts.State())
}

func TestSetThemeRejectsInvalidMode(t *testing.T) {
	ts := New(newTestStorage(t), StaticPreference(models.ThemeLight), nil)

	err := ts.SetTheme("sepia")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindContract, apperrors.KindOf(err))
	assert.Equal(t, models.ThemeLight, ts.Mode())
}

func TestSetSystemTheme(t *testing.T) {
	s := newTestStorage(t)
	ts := New(s, StaticPreference(models.ThemeDark), nil)
	require.NoError(t, ts.SetTheme(models.ThemeLight))

	ts.SetSystemTheme()
	assert.Equal(t, models.ThemeDark, ts.Mode())

	// applying the same mode again is a valid transition
	var notified int
	ts.Subscribe(func(State, State) { notified++ })
	ts.SetSystemTheme()
	assert.Equal(t, models.ThemeDark, ts.Mode())
	assert.Equal(t, 1, notified)
}

func TestObserversSeeConsistentState(t *testing.T) {
	ts := New(newTestStorage(t), StaticPreference(models.ThemeLight), nil)

	ts.Subscribe(func(state, prev State) {
		assert.Equal(t, state.Mode, state.Theme.Mode)
		assert.Equal(t, models.ThemeFor(state.Mode), state.Theme)
	})

	ts.Toggle()
	ts.Toggle()
	require.NoError(t, ts.SetTheme(models.ThemeDark))
}

func TestEnvPreference(t *testing.T) {
	t.Setenv("COLOR_SCHEME", "Dark")
	assert.Equal(t, models.ThemeDark, EnvPreference{}.ColorScheme())

	t.Setenv("COLOR_SCHEME", "")
	assert.Equal(t, models.ThemeLight, EnvPreference{}.ColorScheme())
	assert.Equal(t, models.ThemeDark, EnvPreference{Fallback: "dark"}.ColorScheme())
}
