// Package catalog defines the movie types shared across discovery,
// filtering, and comparison.
package catalog

import "strconv"

// Movie is the lean record returned by catalog discover listings.
type Movie struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview,omitempty"`
	ReleaseDate  string  `json:"releaseDate,omitempty"`
	PosterPath   *string `json:"posterPath,omitempty"`
	BackdropPath *string `json:"backdropPath,omitempty"`
	VoteAverage  float64 `json:"voteAverage"`
	VoteCount    int     `json:"voteCount"`
	Popularity   float64 `json:"popularity"`
	GenreIDs     []int64 `json:"genreIds,omitempty"`
}

// Year returns the release year parsed from ReleaseDate, or 0 when the
// date is absent or malformed.
func (m Movie) Year() int {
	if len(m.ReleaseDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(m.ReleaseDate[:4])
	if err != nil {
		return 0
	}
	return year
}

// EnrichedMovie is a Movie extended with detail, external-rating, and
// streaming-availability fields gathered by the enrichment pipeline.
type EnrichedMovie struct {
	Movie

	Genres  []string `json:"genres,omitempty"`
	Runtime int      `json:"runtime,omitempty"`
	ImdbID  string   `json:"imdbId,omitempty"`
	// ImdbRating is nil when the external rating is unavailable.
	// Unavailable ratings never exclude a movie from rating filters.
	ImdbRating *float64 `json:"imdbRating,omitempty"`
	Rated      string   `json:"rated,omitempty"`
	// Services lists the streaming services the movie is available on
	// in the configured watch region.
	Services []string `json:"services,omitempty"`
}

// Genre is a catalog genre.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
