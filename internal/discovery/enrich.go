package discovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/reelmates/reelmates/internal/catalog"
	"github.com/reelmates/reelmates/internal/catalog/omdb"
	"github.com/reelmates/reelmates/internal/catalog/tmdb"
)

// DetailSource provides movie details and streaming availability.
type DetailSource interface {
	GetMovie(ctx context.Context, id int64) (*tmdb.MovieDetails, error)
	GetWatchProviders(ctx context.Context, id int64, region string) ([]string, error)
}

// RatingsSource provides external ratings by IMDb ID.
type RatingsSource interface {
	GetByIMDbID(ctx context.Context, imdbID string) (*omdb.TitleRatings, error)
}

// Enricher decorates discover results with details, external ratings,
// and streaming availability. Lookups run in fixed-width batches: a
// batch is fully resolved before the next one starts, keeping the load
// on the upstream APIs bounded.
type Enricher struct {
	details   DetailSource
	ratings   RatingsSource
	cache     *Cache
	region    string
	batchSize int
	logger    zerolog.Logger
}

// NewEnricher creates an enricher.
func NewEnricher(details DetailSource, ratings RatingsSource, cache *Cache, region string, batchSize int, logger zerolog.Logger) *Enricher {
	if batchSize <= 0 {
		batchSize = 3
	}
	return &Enricher{
		details:   details,
		ratings:   ratings,
		cache:     cache,
		region:    region,
		batchSize: batchSize,
		logger:    logger.With().Str("component", "enricher").Logger(),
	}
}

// Enrich resolves every movie in order. The result has the same length
// and order as the input; a movie whose lookups fail is returned with
// only its base fields populated.
func (e *Enricher) Enrich(ctx context.Context, movies []catalog.Movie) ([]catalog.EnrichedMovie, error) {
	out := make([]catalog.EnrichedMovie, len(movies))

	for start := 0; start < len(movies); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + e.batchSize
		if end > len(movies) {
			end = len(movies)
		}

		p := pool.New()
		for i := start; i < end; i++ {
			i := i
			p.Go(func() {
				out[i] = e.One(ctx, movies[i])
			})
		}
		p.Wait()
	}

	return out, nil
}

// One enriches a single movie. Partial upstream failures degrade to a
// partially filled result rather than an error.
func (e *Enricher) One(ctx context.Context, movie catalog.Movie) catalog.EnrichedMovie {
	if cached, ok := e.cache.GetEnrichedMovie(e.cacheKey(movie.ID)); ok {
		return *cached
	}

	details, err := e.details.GetMovie(ctx, movie.ID)
	if err != nil {
		e.logger.Warn().Err(err).Int64("movieId", movie.ID).Msg("Detail lookup failed")
		details = nil
	}

	return e.assemble(ctx, movie, details)
}

// FromDetails enriches a movie whose details were already fetched,
// avoiding a second detail request.
func (e *Enricher) FromDetails(ctx context.Context, details *tmdb.MovieDetails) catalog.EnrichedMovie {
	if cached, ok := e.cache.GetEnrichedMovie(e.cacheKey(details.ID)); ok {
		return *cached
	}

	movie := catalog.Movie{
		ID:           details.ID,
		Title:        details.Title,
		Overview:     details.Overview,
		ReleaseDate:  details.ReleaseDate,
		PosterPath:   details.PosterPath,
		BackdropPath: details.BackdropPath,
		VoteAverage:  details.VoteAverage,
		VoteCount:    details.VoteCount,
		Popularity:   details.Popularity,
	}

	return e.assemble(ctx, movie, details)
}

func (e *Enricher) cacheKey(id int64) string {
	return fmt.Sprintf("enriched:%d:%s", id, e.region)
}

// assemble fills the enrichment fields from the detail, ratings, and
// provider lookups, then caches the result.
func (e *Enricher) assemble(ctx context.Context, movie catalog.Movie, details *tmdb.MovieDetails) catalog.EnrichedMovie {
	enriched := catalog.EnrichedMovie{Movie: movie}

	if details != nil {
		genres := make([]string, len(details.Genres))
		genreIDs := make([]int64, len(details.Genres))
		for i, g := range details.Genres {
			genres[i] = g.Name
			genreIDs[i] = g.ID
		}
		enriched.Genres = genres
		if len(enriched.GenreIDs) == 0 {
			// Detail-only paths have no discover listing to carry the IDs.
			enriched.GenreIDs = genreIDs
		}
		enriched.Runtime = details.Runtime
		enriched.ImdbID = details.ImdbID
		if enriched.Overview == "" {
			enriched.Overview = details.Overview
		}
	}

	if enriched.ImdbID != "" {
		ratings, err := e.ratings.GetByIMDbID(ctx, enriched.ImdbID)
		if err != nil {
			if !errors.Is(err, omdb.ErrNotFound) {
				e.logger.Warn().Err(err).Str("imdbId", enriched.ImdbID).Msg("Ratings lookup failed")
			}
		} else {
			enriched.ImdbRating = ratings.ImdbRating
			enriched.Rated = ratings.Rated
		}
	}

	services, err := e.details.GetWatchProviders(ctx, movie.ID, e.region)
	if err != nil {
		e.logger.Warn().Err(err).Int64("movieId", movie.ID).Msg("Watch provider lookup failed")
	} else {
		enriched.Services = services
	}

	e.cache.Set(e.cacheKey(movie.ID), &enriched)

	return enriched
}
