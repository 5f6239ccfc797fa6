package main

import (
	"github.com/amaumene/movieshelf/internal/config"
	"github.com/amaumene/movieshelf/internal/constants"
	"github.com/amaumene/movieshelf/internal/favorites"
	"github.com/amaumene/movieshelf/internal/handlers"
	"github.com/amaumene/movieshelf/internal/movies"
	"github.com/amaumene/movieshelf/internal/query"
	"github.com/amaumene/movieshelf/internal/services"
	"github.com/amaumene/movieshelf/internal/storage"
	"github.com/amaumene/movieshelf/internal/theme"
	"github.com/amaumene/movieshelf/pkg/httputil"
	"github.com/amaumene/movieshelf/pkg/logger"
	"github.com/amaumene/movieshelf/pkg/ratelimiter"
)

var (
	Logger           logger.Logger
	Config           *config.Config
	Storage          *storage.Storage
	queryClient      *query.Client
	movieQueries     *movies.Queries
	handler          *handlers.Handler
	serviceContainer *services.Container
)

func InitializeLogger() {
	Logger = logger.New()
}

func InitializeConfig() {
	var err error
	Config, err = config.Load()
	if err != nil {
		Logger.Fatalf("failed to load configuration: %v", err)
	}

	if Config.LogLevel != "" {
		if !logger.IsKnownLevel(Config.LogLevel) {
			Logger.Warnf("[App] warning: unknown log level '%s', defaulting to info", Config.LogLevel)
		}
		Logger = logger.NewWithLevel(Config.LogLevel)
	}

	if Config.TMDBAPIKey == "" {
		Logger.Warnf("[App] TMDB_API_KEY is not set, metadata requests will fail")
	}
}

func InitializeStorage() {
	var (
		engine storage.Engine
		err    error
	)

	switch Config.StorageBackend {
	case constants.StorageBackendRedis:
		engine, err = storage.NewRedis(storage.RedisOptions{
			Addr:     Config.RedisAddr,
			Password: Config.RedisPassword,
			DB:       Config.RedisDB,
		})
	case constants.StorageBackendPostgres:
		engine, err = storage.NewPostgres(Config.PostgresDSN)
	case constants.StorageBackendSQLite:
		engine, err = storage.NewSQLite(Config.DatabasePath)
	default:
		engine, err = storage.NewBolt(Config.DatabasePath)
	}
	if err != nil {
		Logger.Fatalf("failed to initialize %s storage: %v", Config.StorageBackend, err)
	}

	Storage = storage.New(engine, Logger)
	Logger.Infof("[App] %s storage initialized successfully", Config.StorageBackend)
}

func InitializeServices() {
	tmdbService := services.NewTMDB("", Logger)
	if Config.TMDBAPIKey != "" {
		tmdbService.SetAPIKey(Config.TMDBAPIKey)
	}
	tmdbService.SetBaseURL(Config.TMDBBaseURL)
	tmdbService.SetImageBaseURL(Config.TMDBImageBaseURL)
	tmdbService.SetHTTPClient(httputil.NewHTTPClient(Config.RequestTimeout, constants.UserAgent))
	if Config.RateLimit > 0 {
		tmdbService.SetRateLimiter(ratelimiter.NewTokenBucket(Config.RateBurst, Config.RateLimit))
		Logger.Infof("[App] pacing TMDB requests at %d/s", Config.RateLimit)
	}

	queryClient = query.NewClient(Config.CacheSize, Logger)
	movieQueries = movies.NewQueries(queryClient, tmdbService)

	favoritesStore := favorites.New(Storage, Logger)
	favoritesStore.Initialize()

	system := theme.EnvPreference{Fallback: Config.ColorScheme}
	themeStore := theme.New(Storage, system, Logger)
	themeStore.Initialize()

	cleanupService := services.NewCleanupService(queryClient, Logger)
	cleanupService.SetInterval(Config.CacheCleanupInterval)

	serviceContainer = &services.Container{
		TMDB:      tmdbService,
		Queries:   queryClient,
		Storage:   Storage,
		Favorites: favoritesStore,
		Theme:     themeStore,
		Logger:    Logger,
		Cleanup:   cleanupService,
	}

	handler = handlers.New(serviceContainer, Config)

	Logger.Infof("[App] services initialized successfully (%d favorites, %s theme)",
		favoritesStore.Count(), themeStore.Mode())
}
