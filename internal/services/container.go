// Package services provides the TMDB API client and the dependency injection
// container for application services.
package services

import (
	"context"

	"github.com/amaumene/movieshelf/internal/favorites"
	"github.com/amaumene/movieshelf/internal/models"
	"github.com/amaumene/movieshelf/internal/query"
	"github.com/amaumene/movieshelf/internal/storage"
	"github.com/amaumene/movieshelf/internal/theme"
	"github.com/amaumene/movieshelf/pkg/logger"
)

// Container holds all application services for dependency injection.
type Container struct {
	TMDB      TMDBService
	Queries   *query.Client
	Storage   *storage.Storage
	Favorites *favorites.Store
	Theme     *theme.Store
	Logger    logger.Logger
	Cleanup   *CleanupService
}

// TMDBService defines the interface for TMDB API operations.
type TMDBService interface {
	GetPopularMovies(ctx context.Context, page int) (*models.MoviesResponse, error)
	GetTrendingMovies(ctx context.Context, window string, page int) (*models.MoviesResponse, error)
	GetMovieDetails(ctx context.Context, id int) (*models.MovieDetails, error)
	GetMovieCredits(ctx context.Context, id int) (*models.MovieCredits, error)
	SearchMovies(ctx context.Context, query string, page, year int) (*models.MoviesResponse, error)
	GetPerson(ctx context.Context, id int) (*models.Person, error)
	GetPersonMovieCredits(ctx context.Context, id int) (*models.PersonCredits, error)
	ImageURL(path *string, size string) string
}

// Close releases the resources held by the container.
func (c *Container) Close() error {
	if c.Cleanup != nil {
		c.Cleanup.Stop()
	}
	if c.Storage != nil {
		return c.Storage.Close()
	}
	return nil
}
