// Package constants defines application-wide constants and default values.
package constants

const (
	AppName    = "movieshelf"
	AppVersion = "1.0.0"
	UserAgent  = AppName + "/" + AppVersion

	// Metadata API
	DefaultTMDBBaseURL      = "https://api.themoviedb.org/3"
	DefaultTMDBImageBaseURL = "https://image.tmdb.org/t/p"

	// Storage keys
	FavoritesStorageKey = "favorites"
	ThemeStorageKey     = "theme_mode"

	// Storage backends
	StorageBackendBolt     = "bolt"
	StorageBackendRedis    = "redis"
	StorageBackendSQLite   = "sqlite"
	StorageBackendPostgres = "postgres"

	// Query cache capacity (entries)
	DefaultCacheSize = 500

	// Client-side pacing is opt-in (TMDB_RATE_LIMIT > 0); by default only the
	// API's own limits apply
	TMDBRateBurst = 20 // burst capacity when pacing is enabled

	// Search input gating
	MinSearchQueryLength = 2

	DefaultTrendingWindow = TrendingWindowWeek
	TrendingWindowDay     = "day"
	TrendingWindowWeek    = "week"
)

// Poster image size tokens
const (
	PosterSmall    = "w185"
	PosterMedium   = "w342"
	PosterLarge    = "w500"
	PosterOriginal = "original"
)

// Backdrop image size tokens
const (
	BackdropSmall    = "w300"
	BackdropMedium   = "w780"
	BackdropLarge    = "w1280"
	BackdropOriginal = "original"
)

// Profile image size tokens
const (
	ProfileSmall  = "w185"
	ProfileMedium = "h632"
)
