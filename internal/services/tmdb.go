package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/amaumene/movieshelf/internal/constants"
	apperrors "github.com/amaumene/movieshelf/internal/errors"
	"github.com/amaumene/movieshelf/internal/models"
	"github.com/amaumene/movieshelf/pkg/httputil"
	"github.com/amaumene/movieshelf/pkg/logger"
	"github.com/amaumene/movieshelf/pkg/ratelimiter"
	"github.com/amaumene/movieshelf/pkg/security"
)

type TMDB struct {
	apiKey       string
	baseURL      string
	imageBaseURL string
	rateLimiter  ratelimiter.RateLimiter
	httpClient   *http.Client
	logger       logger.Logger
	validator    *security.APIKeyValidator
}

func NewTMDB(apiKey string, log logger.Logger) *TMDB {
	validator := security.NewAPIKeyValidator()

	// Sanitize the API key if provided
	sanitizedKey := ""
	if apiKey != "" {
		sanitizedKey = validator.SanitizeAPIKey(apiKey)
	}
	if log == nil {
		log = logger.New()
	}

	return &TMDB{
		apiKey:       sanitizedKey,
		baseURL:      constants.DefaultTMDBBaseURL,
		imageBaseURL: constants.DefaultTMDBImageBaseURL,
		rateLimiter:  ratelimiter.Unlimited(),
		httpClient:   httputil.NewHTTPClient(constants.RequestTimeout, constants.UserAgent),
		logger:       log,
		validator:    validator,
	}
}

func (t *TMDB) SetAPIKey(apiKey string) {
	// Sanitize and validate the API key
	sanitizedKey := t.validator.SanitizeAPIKey(apiKey)
	if apiKey != "" && !t.validator.IsValidTMDBKey(sanitizedKey) {
		t.logger.Errorf("[TMDB] failed to set API key: invalid format (key: %s)", t.validator.MaskAPIKey(sanitizedKey))
		return
	}
	t.apiKey = sanitizedKey
}

func (t *TMDB) SetBaseURL(baseURL string) {
	if baseURL != "" {
		t.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func (t *TMDB) SetImageBaseURL(imageBaseURL string) {
	if imageBaseURL != "" {
		t.imageBaseURL = strings.TrimRight(imageBaseURL, "/")
	}
}

func (t *TMDB) SetHTTPClient(client *http.Client) {
	if client != nil {
		t.httpClient = client
	}
}

func (t *TMDB) SetRateLimiter(limiter ratelimiter.RateLimiter) {
	if limiter != nil {
		t.rateLimiter = limiter
	}
}

// ImageURL builds an image URL on the configured image host.
func (t *TMDB) ImageURL(path *string, size string) string {
	return ImageURL(t.imageBaseURL, path, size)
}

func (t *TMDB) GetPopularMovies(ctx context.Context, page int) (*models.MoviesResponse, error) {
	var resp models.MoviesResponse
	if err := t.get(ctx, "/movie/popular", pageParams(page), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTrendingMovies lists trending movies for window "day" or "week".
func (t *TMDB) GetTrendingMovies(ctx context.Context, window string, page int) (*models.MoviesResponse, error) {
	if window == "" {
		window = constants.DefaultTrendingWindow
	}
	if window != constants.TrendingWindowDay && window != constants.TrendingWindowWeek {
		return nil, apperrors.New(apperrors.KindContract, fmt.Sprintf("invalid trending window %q", window), nil)
	}

	var resp models.MoviesResponse
	if err := t.get(ctx, "/trending/movie/"+window, pageParams(page), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (t *TMDB) GetMovieDetails(ctx context.Context, id int) (*models.MovieDetails, error) {
	if id <= 0 {
		return nil, apperrors.NewInvalidIDError("movie", id)
	}

	var details models.MovieDetails
	if err := t.get(ctx, fmt.Sprintf("/movie/%d", id), nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (t *TMDB) GetMovieCredits(ctx context.Context, id int) (*models.MovieCredits, error) {
	if id <= 0 {
		return nil, apperrors.NewInvalidIDError("movie", id)
	}

	var credits models.MovieCredits
	if err := t.get(ctx, fmt.Sprintf("/movie/%d/credits", id), nil, &credits); err != nil {
		return nil, err
	}
	return &credits, nil
}

// SearchMovies runs a title search. year > 0 narrows it to that primary
// release year.
func (t *TMDB) SearchMovies(ctx context.Context, query string, page, year int) (*models.MoviesResponse, error) {
	params := pageParams(page)
	params.Set("query", query)
	if year > 0 {
		params.Set("primary_release_year", strconv.Itoa(year))
	}

	var resp models.MoviesResponse
	if err := t.get(ctx, "/search/movie", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (t *TMDB) GetPerson(ctx context.Context, id int) (*models.Person, error) {
	if id <= 0 {
		return nil, apperrors.NewInvalidIDError("person", id)
	}

	var person models.Person
	if err := t.get(ctx, fmt.Sprintf("/person/%d", id), nil, &person); err != nil {
		return nil, err
	}
	return &person, nil
}

func (t *TMDB) GetPersonMovieCredits(ctx context.Context, id int) (*models.PersonCredits, error) {
	if id <= 0 {
		return nil, apperrors.NewInvalidIDError("person", id)
	}

	var credits models.PersonCredits
	if err := t.get(ctx, fmt.Sprintf("/person/%d/movie_credits", id), nil, &credits); err != nil {
		return nil, err
	}
	return &credits, nil
}

func pageParams(page int) url.Values {
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	return params
}
