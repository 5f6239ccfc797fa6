// Package models defines data structures for TMDB API responses and
// locally persisted state.
package models

import "sort"

// MovieSummary is the result-list representation of a movie. ID is the
// stable identity.
type MovieSummary struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	Overview         string  `json:"overview"`
	PosterPath       *string `json:"poster_path"`
	BackdropPath     *string `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Popularity       float64 `json:"popularity"`
	Adult            bool    `json:"adult"`
	GenreIDs         []int   `json:"genre_ids"`
	OriginalLanguage string  `json:"original_language"`
	OriginalTitle    string  `json:"original_title"`
	Video            bool    `json:"video"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type ProductionCompany struct {
	ID            int     `json:"id"`
	LogoPath      *string `json:"logo_path"`
	Name          string  `json:"name"`
	OriginCountry string  `json:"origin_country"`
}

type ProductionCountry struct {
	ISO  string `json:"iso_3166_1"`
	Name string `json:"name"`
}

type SpokenLanguage struct {
	EnglishName string `json:"english_name"`
	ISO         string `json:"iso_639_1"`
	Name        string `json:"name"`
}

// MovieDetails is the full /movie/{id} payload. Budget and Revenue use 0
// for "not disclosed".
type MovieDetails struct {
	ID                  int                 `json:"id"`
	Title               string              `json:"title"`
	Overview            string              `json:"overview"`
	PosterPath          *string             `json:"poster_path"`
	BackdropPath        *string             `json:"backdrop_path"`
	ReleaseDate         string              `json:"release_date"`
	VoteAverage         float64             `json:"vote_average"`
	VoteCount           int                 `json:"vote_count"`
	Popularity          float64             `json:"popularity"`
	Adult               bool                `json:"adult"`
	OriginalLanguage    string              `json:"original_language"`
	OriginalTitle       string              `json:"original_title"`
	Video               bool                `json:"video"`
	Genres              []Genre             `json:"genres"`
	Homepage            *string             `json:"homepage"`
	IMDBId              *string             `json:"imdb_id"`
	ProductionCompanies []ProductionCompany `json:"production_companies"`
	ProductionCountries []ProductionCountry `json:"production_countries"`
	Runtime             *int                `json:"runtime"`
	SpokenLanguages     []SpokenLanguage    `json:"spoken_languages"`
	Status              string              `json:"status"`
	Tagline             *string             `json:"tagline"`
	Budget              int64               `json:"budget"`
	Revenue             int64               `json:"revenue"`
}

func (d *MovieDetails) BudgetDisclosed() bool  { return d.Budget > 0 }
func (d *MovieDetails) RevenueDisclosed() bool { return d.Revenue > 0 }

// Summary projects the details onto the list representation, e.g. to
// favorite a movie from its detail page.
func (d *MovieDetails) Summary() MovieSummary {
	genreIDs := make([]int, len(d.Genres))
	for i, g := range d.Genres {
		genreIDs[i] = g.ID
	}
	return MovieSummary{
		ID:               d.ID,
		Title:            d.Title,
		Overview:         d.Overview,
		PosterPath:       d.PosterPath,
		BackdropPath:     d.BackdropPath,
		ReleaseDate:      d.ReleaseDate,
		VoteAverage:      d.VoteAverage,
		VoteCount:        d.VoteCount,
		Popularity:       d.Popularity,
		Adult:            d.Adult,
		GenreIDs:         genreIDs,
		OriginalLanguage: d.OriginalLanguage,
		OriginalTitle:    d.OriginalTitle,
		Video:            d.Video,
	}
}

type CastMember struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Character   string  `json:"character"`
	ProfilePath *string `json:"profile_path"`
	Order       int     `json:"order"`
}

type CrewMember struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Job         string  `json:"job"`
	Department  string  `json:"department"`
	ProfilePath *string `json:"profile_path"`
}

type MovieCredits struct {
	ID   int          `json:"id,omitempty"`
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// SortedCast returns the cast in display order (ascending Order).
func (c *MovieCredits) SortedCast() []CastMember {
	cast := make([]CastMember, len(c.Cast))
	copy(cast, c.Cast)
	sort.SliceStable(cast, func(i, j int) bool {
		return cast[i].Order < cast[j].Order
	})
	return cast
}

// Directors returns crew members credited with the Director job.
func (c *MovieCredits) Directors() []CrewMember {
	var directors []CrewMember
	for _, m := range c.Crew {
		if m.Job == "Director" {
			directors = append(directors, m)
		}
	}
	return directors
}

// PaginatedResponse is the envelope of every paginated endpoint. Page is 1-based.
type PaginatedResponse[T any] struct {
	Page         int `json:"page"`
	Results      []T `json:"results"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
}

// MoviesResponse is the popular/trending/search payload.
type MoviesResponse = PaginatedResponse[MovieSummary]

func (p *PaginatedResponse[T]) HasNextPage() bool {
	return p.Page < p.TotalPages
}

// NextPage derives the next page number from this page's metadata.
func (p *PaginatedResponse[T]) NextPage() (int, bool) {
	if !p.HasNextPage() {
		return 0, false
	}
	return p.Page + 1, true
}

// APIErrorBody is the error payload TMDB returns alongside 4xx/5xx statuses.
type APIErrorBody struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Success       bool   `json:"success"`
}
