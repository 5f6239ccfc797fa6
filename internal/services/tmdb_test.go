package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/movieshelf/internal/constants"
	apperrors "github.com/amaumene/movieshelf/internal/errors"
	"github.com/amaumene/movieshelf/pkg/httputil"
	"github.com/amaumene/movieshelf/pkg/logger"
	"github.com/amaumene/movieshelf/pkg/ratelimiter"
)

const testAPIKey = "0123456789abcdef0123456789abcdef"

const popularBody = `{
  "page": 1,
  "results": [
    {"id": 1, "title": "Test Movie 1", "poster_path": "/test1.jpg", "backdrop_path": null,
     "release_date": "2023-01-01", "vote_average": 8.5, "vote_count": 1000, "popularity": 100,
     "adult": false, "genre_ids": [28, 12], "original_language": "en", "original_title": "Test Movie 1", "video": false},
    {"id": 2, "title": "Test Movie 2", "poster_path": "/test2.jpg", "backdrop_path": "/backdrop2.jpg",
     "release_date": "2023-02-01", "vote_average": 7.8, "vote_count": 800, "popularity": 90,
     "adult": false, "genre_ids": [18, 35], "original_language": "en", "original_title": "Test Movie 2", "video": false}
  ],
  "total_pages": 10,
  "total_results": 200
}`

func newTestTMDB(t *testing.T, handler http.HandlerFunc) *TMDB {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tmdb := NewTMDB(testAPIKey, logger.NewNop())
	tmdb.SetBaseURL(server.URL)
	tmdb.SetRateLimiter(ratelimiter.Unlimited())
	return tmdb
}

func TestGetPopularMovies(t *testing.T) {
	var gotPath, gotPage, gotKey, gotAgent string
	tmdb := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPage = r.URL.Query().Get("page")
		gotKey = r.URL.Query().Get("api_key")
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(popularBody))
	})

	resp, err := tmdb.GetPopularMovies(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "/movie/popular", gotPath)
	assert.Equal(t, constants.UserAgent, gotAgent)
	assert.Equal(t, "1", gotPage)
	assert.Equal(t, testAPIKey, gotKey)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Test Movie 1", resp.Results[0].Title)
	assert.Nil(t, resp.Results[0].BackdropPath)
	assert.Equal(t, []int{28, 12}, resp.Results[0].GenreIDs)
	assert.Equal(t, 10, resp.TotalPages)
	assert.True(t, resp.HasNextPage())
}

func TestGetPopularMoviesCustomPage(t *testing.T) {
	var gotPage string
	tmdb := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		gotPage = r.URL.Query().Get("page")
		w.Write([]byte(popularBody))
	})

	_, err := tmdb.GetPopularMovies(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "3", gotPage)
}

func TestGetTrendingMovies(t *testing.T) {
	var gotPath string
	tmdb := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(popularBody))
	})

	_, err := tmdb.GetTrendingMovies(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Equal(t, "/trending/movie/week", gotPath)

	_, err = tmdb.GetTrendingMovies(context.Background(), "day", 2)
	require.NoError(t, err)
	assert.Equal(t, "/trending/movie/day", gotPath)

	_, err = tmdb.GetTrendingMovies(context.Background(), "month", 1)
	assert.Equal(t, apperrors.KindContract, apperrors.KindOf(err))
}

func TestGetMovieDetailsAndCredits(t *testing.T) {
	tmdb := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movie/550":
			w.Write([]byte(`{"id": 550, "title": "Fight Club", "runtime": 139, "budget": 63000000, "revenue": 0,
				"genres": [{"id": 18, "name": "Drama"}], "tagline": null}`))
		case "/movie/550/credits":
			w.Write([]byte(`{"id": 550, "cast": [
				{"id": 2, "name": "Edward Norton", "character": "Narrator", "order": 1},
				{"id": 1, "name": "Brad Pitt", "character": "Tyler Durden", "order": 0}],
				"crew": [{"id": 7467, "name": "David Fincher", "job": "Director", "department": "Directing"}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	details, err := tmdb.GetMovieDetails(context.Background(), 550)
	require.NoError(t, err)
	assert.Equal(t, "Fight Club", details.Title)
	require.NotNil(t, details.Runtime)
	assert.Equal(t, 139, *details.Runtime)
	assert.True(t, details.BudgetDisclosed())
	assert.False(t, details.RevenueDisclosed())
	assert.Nil(t, details.Tagline)

	credits, err := tmdb.GetMovieCredits(context.Background(), 550)
	require.NoError(t, err)
	assert.Equal(t, "Brad Pitt", credits.SortedCast()[0].Name)
	require.Len(t, credits.Directors(), 1)
	assert.Equal(t, "David Fincher", credits.Directors()[0].Name)
}

func TestInvalidIDNeverHitsNetwork(t *testing.T) {
	called := false
	tmdb := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := tmdb.GetMovieDetails(context.Background(), 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidID)
	_, err = tmdb.GetMovieCredits(context.Background(), -1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidID)
	_, err = tmdb.GetPerson(context.Background(), 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidID)
	_, err = tmdb.GetPersonMovieCredits(context.Background(), 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidID)

	assert.False(t, called)
}

func TestSearchMovies(t *testing.T) {
	var gotQuery, gotPage, gotYear string
	tmdb := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		gotQuery = r.URL.Query().Get("query")
		gotPage = r.URL.Query().Get("page")
		gotYear = r.URL.Query().Get("primary_release_year")
		w.Write([]byte(`{"page": 1, "results": [], "total_pages": 0, "total_results": 0}`))
	})

	resp, err := tmdb.SearchMovies(context.Background(), "test query", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, "test query", gotQuery)
	assert.Equal(t, "2", gotPage)
	assert.Empty(t, gotYear)
	assert.Empty(t, resp.Results)
	assert.False(t, resp.HasNextPage())

	_, err = tmdb.SearchMovies(context.Background(), "the matrix", 1, 1999)
	require.NoError(t, err)
	assert.Equal(t, "1999", gotYear)
}

func TestGetPersonAndCredits(t *testing.T) {
	tmdb := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/person/287":
			w.Write([]byte(`{"id": 287, "name": "Brad Pitt", "birthday": "1963-12-18", "deathday": null,
				"place_of_birth": "Shawnee, Oklahoma, USA", "known_for_department": "Acting"}`))
		case "/person/287/movie_credits":
			w.Write([]byte(`{"id": 287, "cast": [
				{"id": 1, "title": "Low", "popularity": 1.5, "poster_path": "/low.jpg"},
				{"id": 2, "title": "NoPoster", "popularity": 90, "poster_path": null},
				{"id": 3, "title": "High", "popularity": 50.2, "poster_path": "/high.jpg"}], "crew": []}`))
		default:
			http.NotFound(w, r)
		}
	})

	person, err := tmdb.GetPerson(context.Background(), 287)
	require.NoError(t, err)
	assert.Equal(t, "Brad Pitt", person.Name)
	assert.Nil(t, person.Deathday)

	credits, err := tmdb.GetPersonMovieCredits(context.Background(), 287)
	require.NoError(t, err)
	known := credits.KnownFor()
	require.Len(t, known, 2)
	assert.Equal(t, "High", known[0].Title)
	assert.Equal(t, "Low", known[1].Title)
}

func TestHTTPErrorMapping(t *testing.T) {
	tmdb := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success": false, "status_code": 34, "status_message": "The resource you requested could not be found."}`))
	})

	_, err := tmdb.GetMovieDetails(context.Background(), 999)
	require.Error(t, err)

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "The resource you requested could not be found.", apiErr.StatusMessage)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, apperrors.KindHTTPStatus, apperrors.KindOf(err))
}

func TestHTTPErrorWithoutTMDBBody(t *testing.T) {
	tmdb := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("oops"))
	})

	_, err := tmdb.GetPopularMovies(context.Background(), 1)
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusCode(err))
	assert.Contains(t, err.Error(), "Internal Server Error")
}

func TestDecodeError(t *testing.T) {
	tmdb := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	})

	_, err := tmdb.GetPopularMovies(context.Background(), 1)
	assert.Equal(t, apperrors.KindDecode, apperrors.KindOf(err))
}

func TestTransportErrorRedactsAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	tmdb := NewTMDB(testAPIKey, logger.NewNop())
	tmdb.SetBaseURL(url)
	tmdb.SetRateLimiter(ratelimiter.Unlimited())

	_, err := tmdb.GetPopularMovies(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))
	assert.NotContains(t, err.Error(), testAPIKey)
}

func TestTimeoutError(t *testing.T) {
	release := make(chan struct{})
	tmdb := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)
	tmdb.SetHTTPClient(httputil.NewHTTPClient(20*time.Millisecond, ""))

	_, err := tmdb.GetPopularMovies(context.Background(), 1)
	assert.Equal(t, apperrors.KindTimeout, apperrors.KindOf(err))
}

func TestDefaultClientDoesNotPace(t *testing.T) {
	tmdb := NewTMDB(testAPIKey, logger.NewNop())

	for i := 0; i < 500; i++ {
		require.True(t, tmdb.rateLimiter.TakeToken())
	}
}

func TestMissingAPIKey(t *testing.T) {
	tmdb := NewTMDB("", logger.NewNop())

	_, err := tmdb.GetPopularMovies(context.Background(), 1)
	assert.Equal(t, apperrors.KindConfiguration, apperrors.KindOf(err))
}

func TestSetAPIKeyRejectsInvalidFormat(t *testing.T) {
	tmdb := NewTMDB(testAPIKey, logger.NewNop())
	tmdb.SetAPIKey("not-a-tmdb-key")
	assert.Equal(t, testAPIKey, tmdb.apiKey)

	tmdb.SetAPIKey(strings.ToUpper(testAPIKey))
	assert.Equal(t, strings.ToUpper(testAPIKey), tmdb.apiKey)
}

func TestImageURL(t *testing.T) {
	path := "/abc.jpg"
	empty := ""

	assert.Equal(t, "https://image.tmdb.org/t/p/w500/abc.jpg", ImageURL("https://image.tmdb.org/t/p", &path, "w500"))
	assert.Equal(t, "https://image.tmdb.org/t/p/original/abc.jpg", ImageURL("https://image.tmdb.org/t/p/", &path, "original"))
	assert.Equal(t, "", ImageURL("https://image.tmdb.org/t/p", nil, "w500"))
	assert.Equal(t, "", ImageURL("https://image.tmdb.org/t/p", &empty, "w500"))

	tmdb := NewTMDB(testAPIKey, logger.NewNop())
	assert.Equal(t, "https://image.tmdb.org/t/p/w185/abc.jpg", tmdb.ImageURL(&path, "w185"))
}
