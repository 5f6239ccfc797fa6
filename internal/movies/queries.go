// Package movies binds the TMDB service to the query client with the
// application's freshness and gating policy.
package movies

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/amaumene/movieshelf/internal/constants"
	"github.com/amaumene/movieshelf/internal/models"
	"github.com/amaumene/movieshelf/internal/query"
	"github.com/amaumene/movieshelf/internal/services"
)

// Queries constructs keyed queries for every TMDB read.
type Queries struct {
	client *query.Client
	tmdb   services.TMDBService
}

func NewQueries(client *query.Client, tmdb services.TMDBService) *Queries {
	return &Queries{client: client, tmdb: tmdb}
}

func (q *Queries) Client() *query.Client { return q.client }

func listOptions() query.Options {
	opts := query.DefaultOptions()
	opts.StaleTime = constants.ListStaleTime
	opts.GCTime = constants.ListGCTime
	return opts
}

func detailOptions(id int) query.Options {
	opts := query.DefaultOptions()
	opts.StaleTime = constants.DetailStaleTime
	opts.GCTime = constants.DetailGCTime
	opts.Enabled = id > 0
	return opts
}

func personOptions(id int) query.Options {
	opts := query.DefaultOptions()
	opts.StaleTime = constants.PersonStaleTime
	opts.GCTime = constants.PersonGCTime
	opts.Enabled = id > 0
	return opts
}

// searchOptions gates on the text as typed, before any normalization.
func searchOptions(text string) query.Options {
	opts := listOptions()
	opts.Enabled = SearchEnabled(text)
	return opts
}

// SearchEnabled reports whether text is long enough to search for.
func SearchEnabled(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= constants.MinSearchQueryLength
}

func (q *Queries) PopularMovies(page int) *query.Query[*models.MoviesResponse] {
	return query.NewQuery(q.client, PopularKey(page), func(ctx context.Context) (*models.MoviesResponse, error) {
		return q.tmdb.GetPopularMovies(ctx, page)
	}, listOptions())
}

func (q *Queries) InfinitePopularMovies() *query.InfiniteQuery[models.MovieSummary] {
	return query.NewInfiniteQuery(q.client, query.Key{"movies", "popular", "infinite"},
		func(ctx context.Context, page int) (*models.MoviesResponse, error) {
			return q.tmdb.GetPopularMovies(ctx, page)
		}, listOptions())
}

func (q *Queries) TrendingMovies(window string, page int) *query.Query[*models.MoviesResponse] {
	window = trendingWindow(window)
	return query.NewQuery(q.client, query.Key{"movies", "trending", window, page}, func(ctx context.Context) (*models.MoviesResponse, error) {
		return q.tmdb.GetTrendingMovies(ctx, window, page)
	}, listOptions())
}

func (q *Queries) InfiniteTrendingMovies(window string) *query.InfiniteQuery[models.MovieSummary] {
	window = trendingWindow(window)
	return query.NewInfiniteQuery(q.client, query.Key{"movies", "trending", window, "infinite"},
		func(ctx context.Context, page int) (*models.MoviesResponse, error) {
			return q.tmdb.GetTrendingMovies(ctx, window, page)
		}, listOptions())
}

func (q *Queries) MovieDetails(id int) *query.Query[*models.MovieDetails] {
	return query.NewQuery(q.client, MovieKey(id), func(ctx context.Context) (*models.MovieDetails, error) {
		return q.tmdb.GetMovieDetails(ctx, id)
	}, detailOptions(id))
}

func (q *Queries) MovieCredits(id int) *query.Query[*models.MovieCredits] {
	return query.NewQuery(q.client, query.Key{"movie", id, "credits"}, func(ctx context.Context) (*models.MovieCredits, error) {
		return q.tmdb.GetMovieCredits(ctx, id)
	}, detailOptions(id))
}

// SearchMovies searches the first result page for text. Texts shorter than
// two characters produce a disabled query.
func (q *Queries) SearchMovies(text string) *query.Query[*models.MoviesResponse] {
	input := ParseSearchInput(text)
	return query.NewQuery(q.client, SearchKey(input, false), func(ctx context.Context) (*models.MoviesResponse, error) {
		return q.tmdb.SearchMovies(ctx, input.Query, 1, input.Year)
	}, searchOptions(text))
}

func (q *Queries) InfiniteSearchMovies(text string) *query.InfiniteQuery[models.MovieSummary] {
	input := ParseSearchInput(text)
	return query.NewInfiniteQuery(q.client, SearchKey(input, true),
		func(ctx context.Context, page int) (*models.MoviesResponse, error) {
			return q.tmdb.SearchMovies(ctx, input.Query, page, input.Year)
		}, searchOptions(text))
}

func (q *Queries) Person(id int) *query.Query[*models.Person] {
	return query.NewQuery(q.client, query.Key{"person", id}, func(ctx context.Context) (*models.Person, error) {
		return q.tmdb.GetPerson(ctx, id)
	}, personOptions(id))
}

func (q *Queries) PersonMovieCredits(id int) *query.Query[*models.PersonCredits] {
	return query.NewQuery(q.client, query.Key{"person", id, "movie_credits"}, func(ctx context.Context) (*models.PersonCredits, error) {
		return q.tmdb.GetPersonMovieCredits(ctx, id)
	}, personOptions(id))
}

func PopularKey(page int) query.Key { return query.Key{"movies", "popular", page} }

func MovieKey(id int) query.Key { return query.Key{"movie", id} }

// SearchKey identifies a search by normalized text and year.
func SearchKey(input SearchInput, infinite bool) query.Key {
	key := query.Key{"movies", "search", input.Query, input.Year}
	if infinite {
		key = append(key, "infinite")
	}
	return key
}

func trendingWindow(window string) string {
	if window == "" {
		return constants.DefaultTrendingWindow
	}
	return window
}
