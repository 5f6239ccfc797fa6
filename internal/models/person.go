package models

import "sort"

type Person struct {
	ID                 int      `json:"id"`
	Name               string   `json:"name"`
	Biography          string   `json:"biography"`
	Birthday           *string  `json:"birthday"`
	Deathday           *string  `json:"deathday"`
	PlaceOfBirth       *string  `json:"place_of_birth"`
	ProfilePath        *string  `json:"profile_path"`
	Popularity         float64  `json:"popularity"`
	KnownForDepartment string   `json:"known_for_department"`
	Gender             int      `json:"gender"`
	Adult              bool     `json:"adult"`
	IMDBId             *string  `json:"imdb_id"`
	Homepage           *string  `json:"homepage"`
	AlsoKnownAs        []string `json:"also_known_as"`
}

type PersonMovieCredit struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Character   string  `json:"character"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  *string `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
	Popularity  float64 `json:"popularity"`
}

type PersonCrewCredit struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Job         string  `json:"job"`
	Department  string  `json:"department"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  *string `json:"poster_path"`
	Popularity  float64 `json:"popularity"`
}

type PersonCredits struct {
	ID   int                 `json:"id,omitempty"`
	Cast []PersonMovieCredit `json:"cast"`
	Crew []PersonCrewCredit  `json:"crew"`
}

// KnownFor returns the cast credits that have a poster, most popular first.
func (c *PersonCredits) KnownFor() []PersonMovieCredit {
	credits := make([]PersonMovieCredit, 0, len(c.Cast))
	for _, credit := range c.Cast {
		if credit.PosterPath != nil && *credit.PosterPath != "" {
			credits = append(credits, credit)
		}
	}
	sort.SliceStable(credits, func(i, j int) bool {
		return credits[i].Popularity > credits[j].Popularity
	})
	return credits
}
