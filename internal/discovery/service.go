package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelmates/reelmates/internal/catalog"
	"github.com/reelmates/reelmates/internal/catalog/tmdb"
	"github.com/reelmates/reelmates/internal/config"
	"github.com/reelmates/reelmates/internal/filter"
	"github.com/reelmates/reelmates/internal/providers"
	"github.com/reelmates/reelmates/internal/watched"
)

const (
	genresCacheKey = "genres"
	genresCacheTTL = 24 * time.Hour

	// voteCountFloor keeps quality sorts meaningful: a handful of
	// votes can produce a perfect average.
	voteCountFloor = 1000
)

// ListSource provides paged discover listings and the genre catalog.
type ListSource interface {
	DiscoverMovies(ctx context.Context, q tmdb.DiscoverQuery) ([]catalog.Movie, error)
	ListGenres(ctx context.Context) ([]catalog.Genre, error)
}

// WatchedSource provides a user's watched entries.
type WatchedSource interface {
	List(ctx context.Context, userID int64) ([]watched.Entry, error)
}

// Service drives the browse surface: paged discover fetches, the
// enrichment pipeline, and in-memory filtering.
type Service struct {
	source   ListSource
	details  DetailSource
	enricher *Enricher
	cache    *Cache
	watched  WatchedSource
	tokens   *TokenSource
	cfg      config.DiscoveryConfig
	region   string
	logger   zerolog.Logger
}

// NewService creates a discovery service.
func NewService(source ListSource, details DetailSource, enricher *Enricher, cache *Cache, watchedSource WatchedSource, cfg config.DiscoveryConfig, region string, logger zerolog.Logger) *Service {
	return &Service{
		source:   source,
		details:  details,
		enricher: enricher,
		cache:    cache,
		watched:  watchedSource,
		tokens:   &TokenSource{},
		cfg:      cfg,
		region:   region,
		logger:   logger.With().Str("component", "discovery").Logger(),
	}
}

// BrowseQuery holds the browse listing parameters.
type BrowseQuery struct {
	SortBy         string
	Genres         []int64
	Search         string
	YearFrom       int
	YearTo         int
	MinVoteAverage float64
	MaxVoteAverage float64
	MinImdbRating  float64
	MaxImdbRating  float64
	ShowMode       string
	// Services scopes the discover request to the named streaming
	// services and filters the enriched results.
	Services []string
}

// BrowseResult is a browse listing. Stale is set when a newer browse
// was issued while this one was in flight; clients drop stale results
// so a slow early response cannot overwrite a later one.
type BrowseResult struct {
	Token  int64                   `json:"token"`
	Stale  bool                    `json:"stale"`
	Movies []catalog.EnrichedMovie `json:"movies"`
}

// Browse fetches the configured number of discover pages, enriches
// them, and applies the in-memory filters. Criteria the catalog can
// express (genres, vote bounds, release years, providers) are pushed
// into the discover query; the rest is filtered after enrichment.
func (s *Service) Browse(ctx context.Context, userID int64, q BrowseQuery) (*BrowseResult, error) {
	token := s.tokens.Next()

	discoverQuery := tmdb.DiscoverQuery{
		SortBy:         sortParam(q.SortBy),
		WithGenres:     q.Genres,
		VoteAverageGTE: q.MinVoteAverage,
		VoteAverageLTE: q.MaxVoteAverage,
	}
	if q.SortBy == filter.SortVoteAverage {
		discoverQuery.VoteCountGTE = voteCountFloor
	}
	if q.YearFrom > 0 {
		discoverQuery.ReleaseDateGTE = fmt.Sprintf("%04d-01-01", q.YearFrom)
	}
	if q.YearTo > 0 {
		discoverQuery.ReleaseDateLTE = fmt.Sprintf("%04d-12-31", q.YearTo)
	}
	if ids := providers.IDsFor(q.Services); len(ids) > 0 {
		discoverQuery.WatchProviders = ids
		discoverQuery.WatchRegion = s.region
	}

	movies, err := s.fetchPages(ctx, discoverQuery, s.cfg.BrowsePages)
	if err != nil {
		return nil, err
	}

	enriched, err := s.enricher.Enrich(ctx, movies)
	if err != nil {
		return nil, err
	}

	watchedIDs, err := s.watchedSet(ctx, userID, q.ShowMode)
	if err != nil {
		return nil, err
	}

	filtered := filter.Apply(enriched, filter.Spec{
		Genres:         q.Genres,
		YearFrom:       q.YearFrom,
		YearTo:         q.YearTo,
		MinVoteAverage: q.MinVoteAverage,
		MaxVoteAverage: q.MaxVoteAverage,
		MinImdbRating:  q.MinImdbRating,
		MaxImdbRating:  q.MaxImdbRating,
		Services:       q.Services,
		Search:         q.Search,
		ShowMode:       q.ShowMode,
		SortBy:         q.SortBy,
	}, watchedIDs)

	s.logger.Debug().
		Int("fetched", len(movies)).
		Int("returned", len(filtered)).
		Bool("stale", s.tokens.IsStale(token)).
		Msg("Browse completed")

	return &BrowseResult{
		Token:  token,
		Stale:  s.tokens.IsStale(token),
		Movies: filtered,
	}, nil
}

// fetchPages walks discover pages 1..pages, deduplicating by movie ID.
// A failed page is logged and skipped; the walk errors only when every
// page fails.
func (s *Service) fetchPages(ctx context.Context, q tmdb.DiscoverQuery, pages int) ([]catalog.Movie, error) {
	var movies []catalog.Movie
	seen := make(map[int64]bool)

	var lastErr error
	fetched := 0
	for page := 1; page <= pages; page++ {
		q.Page = page
		results, err := s.source.DiscoverMovies(ctx, q)
		if err != nil {
			s.logger.Warn().Err(err).Int("page", page).Msg("Discover page failed")
			lastErr = err
			continue
		}
		fetched++
		for _, m := range results {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			movies = append(movies, m)
		}
	}

	if fetched == 0 && lastErr != nil {
		return nil, fmt.Errorf("catalog unreachable: %w", lastErr)
	}

	return movies, nil
}

// watchedSet loads the user's watched movie IDs when the show mode
// needs them.
func (s *Service) watchedSet(ctx context.Context, userID int64, showMode string) (map[int64]bool, error) {
	if showMode != filter.ShowWatched && showMode != filter.ShowUnwatched {
		return nil, nil
	}

	entries, err := s.watched.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load watched movies: %w", err)
	}

	ids := make(map[int64]bool, len(entries))
	for _, e := range entries {
		ids[e.MovieID] = true
	}
	return ids, nil
}

// WatchedMovie is a watched-list entry with full enrichment.
type WatchedMovie struct {
	catalog.EnrichedMovie
	Rating    int       `json:"rating"`
	WatchedAt time.Time `json:"watchedAt"`
}

// WatchedView returns the user's watched movies enriched with catalog
// details, narrowed by the given criteria. An entry whose detail
// lookup fails falls back to the stored title and poster.
func (s *Service) WatchedView(ctx context.Context, userID int64, spec filter.Spec) ([]WatchedMovie, error) {
	entries, err := s.watched.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load watched movies: %w", err)
	}

	byID := make(map[int64]watched.Entry, len(entries))
	enriched := make([]catalog.EnrichedMovie, 0, len(entries))
	for _, entry := range entries {
		byID[entry.MovieID] = entry

		movie, err := s.Movie(ctx, entry.MovieID)
		if err != nil {
			s.logger.Warn().Err(err).Int64("movieId", entry.MovieID).Msg("Watched detail lookup failed")
			enriched = append(enriched, catalog.EnrichedMovie{Movie: catalog.Movie{
				ID:         entry.MovieID,
				Title:      entry.Title,
				PosterPath: entry.PosterPath,
			}})
			continue
		}
		enriched = append(enriched, *movie)
	}

	filtered := filter.Apply(enriched, spec, nil)

	view := make([]WatchedMovie, len(filtered))
	for i, m := range filtered {
		entry := byID[m.ID]
		view[i] = WatchedMovie{
			EnrichedMovie: m,
			Rating:        entry.Rating,
			WatchedAt:     entry.WatchedAt,
		}
	}

	return view, nil
}

// Movie returns a single enriched movie by TMDB ID.
func (s *Service) Movie(ctx context.Context, id int64) (*catalog.EnrichedMovie, error) {
	if cached, ok := s.cache.GetEnrichedMovie(s.enricher.cacheKey(id)); ok {
		return cached, nil
	}

	details, err := s.details.GetMovie(ctx, id)
	if err != nil {
		return nil, err
	}

	enriched := s.enricher.FromDetails(ctx, details)
	return &enriched, nil
}

// Genres returns the genre catalog, served from cache when fresh.
func (s *Service) Genres(ctx context.Context) ([]catalog.Genre, error) {
	if genres, ok := s.cache.GetGenres(genresCacheKey); ok {
		return genres, nil
	}
	return s.RefreshGenres(ctx)
}

// RefreshGenres fetches the genre catalog and replaces the cached copy.
// The background scheduler calls this periodically so the cache stays
// warm between requests.
func (s *Service) RefreshGenres(ctx context.Context) ([]catalog.Genre, error) {
	genres, err := s.source.ListGenres(ctx)
	if err != nil {
		return nil, err
	}

	s.cache.SetWithTTL(genresCacheKey, genres, genresCacheTTL)

	s.logger.Debug().Int("genres", len(genres)).Msg("Genre catalog refreshed")

	return genres, nil
}

// sortParam maps the listing sort fields onto discover sort keys.
func sortParam(sortBy string) string {
	switch sortBy {
	case filter.SortVoteAverage:
		return "vote_average.desc"
	case filter.SortReleaseDate:
		return "primary_release_date.desc"
	default:
		return "popularity.desc"
	}
}
