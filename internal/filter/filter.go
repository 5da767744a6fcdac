// Package filter narrows and orders enriched movie lists in memory.
// Applying a filter never mutates its input and applying the same
// filter twice yields the same result.
package filter

import (
	"sort"
	"strings"

	"github.com/reelmates/reelmates/internal/catalog"
)

// Sort field constants.
const (
	SortPopularity  = "popularity"
	SortVoteAverage = "voteAverage"
	SortReleaseDate = "releaseDate"
	SortTitle       = "title"
	SortImdbRating  = "imdbRating"
)

// Show mode constants.
const (
	ShowAll       = "all"
	ShowWatched   = "watched"
	ShowUnwatched = "unwatched"
)

// Spec describes the criteria a movie must satisfy and the resulting
// order. Zero values mean "no constraint".
type Spec struct {
	// Genres passes movies carrying any of the listed genre IDs.
	Genres []int64 `json:"genres,omitempty"`
	// YearFrom and YearTo bound the release year inclusively. Movies
	// without a release date always pass the year bounds.
	YearFrom int `json:"yearFrom,omitempty"`
	YearTo   int `json:"yearTo,omitempty"`
	// MinVoteAverage and MaxVoteAverage bound the TMDB community
	// score inclusively.
	MinVoteAverage float64 `json:"minVoteAverage,omitempty"`
	MaxVoteAverage float64 `json:"maxVoteAverage,omitempty"`
	// MinImdbRating and MaxImdbRating bound the external rating.
	// Movies whose external rating is unavailable always pass.
	MinImdbRating float64 `json:"minImdbRating,omitempty"`
	MaxImdbRating float64 `json:"maxImdbRating,omitempty"`
	// Services passes movies available on any of the listed services.
	// Movies with no availability data always pass.
	Services []string `json:"services,omitempty"`
	// Search matches case-insensitively against the title.
	Search string `json:"search,omitempty"`
	// ShowMode restricts the result to watched or unwatched movies.
	ShowMode string `json:"showMode,omitempty"`
	// SortBy orders the result. Unknown or empty values leave the
	// input order untouched.
	SortBy string `json:"sortBy,omitempty"`
}

// Apply returns the movies matching the spec, ordered per SortBy.
// The watched set drives ShowMode; a nil map means nothing is
// watched. The input slice is never modified.
func Apply(movies []catalog.EnrichedMovie, spec Spec, watched map[int64]bool) []catalog.EnrichedMovie {
	result := make([]catalog.EnrichedMovie, 0, len(movies))
	search := strings.ToLower(strings.TrimSpace(spec.Search))

	for _, m := range movies {
		if !matchesShowMode(m, spec.ShowMode, watched) {
			continue
		}
		if !matchesGenres(m, spec.Genres) {
			continue
		}
		if !matchesYear(m, spec.YearFrom, spec.YearTo) {
			continue
		}
		if spec.MinVoteAverage > 0 && m.VoteAverage < spec.MinVoteAverage {
			continue
		}
		if spec.MaxVoteAverage > 0 && m.VoteAverage > spec.MaxVoteAverage {
			continue
		}
		if !matchesImdbRating(m, spec.MinImdbRating, spec.MaxImdbRating) {
			continue
		}
		if !matchesServices(m, spec.Services) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(m.Title), search) {
			continue
		}
		result = append(result, m)
	}

	sortMovies(result, spec.SortBy)

	return result
}

func matchesGenres(m catalog.EnrichedMovie, genres []int64) bool {
	if len(genres) == 0 {
		return true
	}
	for _, want := range genres {
		for _, have := range m.GenreIDs {
			if have == want {
				return true
			}
		}
	}
	return false
}

func matchesYear(m catalog.EnrichedMovie, from, to int) bool {
	if from == 0 && to == 0 {
		return true
	}
	year := m.Year()
	if year == 0 {
		// Unknown release dates never exclude a movie.
		return true
	}
	if from > 0 && year < from {
		return false
	}
	if to > 0 && year > to {
		return false
	}
	return true
}

func matchesShowMode(m catalog.EnrichedMovie, mode string, watched map[int64]bool) bool {
	switch mode {
	case ShowWatched:
		return watched[m.ID]
	case ShowUnwatched:
		return !watched[m.ID]
	default:
		return true
	}
}

func matchesImdbRating(m catalog.EnrichedMovie, min, max float64) bool {
	if m.ImdbRating == nil {
		// Absence of data never excludes a movie.
		return true
	}
	if min > 0 && *m.ImdbRating < min {
		return false
	}
	if max > 0 && *m.ImdbRating > max {
		return false
	}
	return true
}

func matchesServices(m catalog.EnrichedMovie, services []string) bool {
	if len(services) == 0 {
		return true
	}
	if len(m.Services) == 0 {
		// Absence of availability data never excludes a movie.
		return true
	}
	for _, want := range services {
		for _, have := range m.Services {
			if have == want {
				return true
			}
		}
	}
	return false
}

// sortMovies orders in place. The sort is stable so equal keys keep
// their relative input order.
func sortMovies(movies []catalog.EnrichedMovie, sortBy string) {
	switch sortBy {
	case SortPopularity:
		sort.SliceStable(movies, func(i, j int) bool {
			return movies[i].Popularity > movies[j].Popularity
		})
	case SortVoteAverage:
		sort.SliceStable(movies, func(i, j int) bool {
			return movies[i].VoteAverage > movies[j].VoteAverage
		})
	case SortReleaseDate:
		sort.SliceStable(movies, func(i, j int) bool {
			return movies[i].ReleaseDate > movies[j].ReleaseDate
		})
	case SortTitle:
		sort.SliceStable(movies, func(i, j int) bool {
			return strings.ToLower(movies[i].Title) < strings.ToLower(movies[j].Title)
		})
	case SortImdbRating:
		// Movies without an external rating sort last.
		sort.SliceStable(movies, func(i, j int) bool {
			ri, rj := movies[i].ImdbRating, movies[j].ImdbRating
			if ri == nil {
				return false
			}
			if rj == nil {
				return true
			}
			return *ri > *rj
		})
	}
}
