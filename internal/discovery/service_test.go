package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelmates/reelmates/internal/catalog"
	"github.com/reelmates/reelmates/internal/catalog/tmdb"
	"github.com/reelmates/reelmates/internal/config"
	"github.com/reelmates/reelmates/internal/filter"
	"github.com/reelmates/reelmates/internal/watched"
)

type fakeListSource struct {
	pages      map[int][]catalog.Movie
	failPages  map[int]error
	genres     []catalog.Genre
	queries    []tmdb.DiscoverQuery
	genreCalls int
}

func (f *fakeListSource) DiscoverMovies(ctx context.Context, q tmdb.DiscoverQuery) ([]catalog.Movie, error) {
	f.queries = append(f.queries, q)
	if err := f.failPages[q.Page]; err != nil {
		return nil, err
	}
	return f.pages[q.Page], nil
}

func (f *fakeListSource) ListGenres(ctx context.Context) ([]catalog.Genre, error) {
	f.genreCalls++
	return f.genres, nil
}

type fakeWatchedLister struct {
	entries map[int64][]watched.Entry
}

func (f *fakeWatchedLister) List(ctx context.Context, userID int64) ([]watched.Entry, error) {
	return f.entries[userID], nil
}

func testDiscoveryConfig() config.DiscoveryConfig {
	return config.DiscoveryConfig{
		BrowsePages:     2,
		ComparePages:    20,
		MaxCandidates:   100,
		EnrichBatchSize: 3,
	}
}

func newTestService(source *fakeListSource, details *fakeDetails, watchedSource *fakeWatchedLister) *Service {
	if watchedSource == nil {
		watchedSource = &fakeWatchedLister{}
	}
	cache := NewCache(DefaultCacheConfig())
	enricher := NewEnricher(details, &fakeRatings{}, cache, "US", 3, zerolog.Nop())
	return NewService(source, details, enricher, cache, watchedSource, testDiscoveryConfig(), "US", zerolog.Nop())
}

func TestBrowseFetchesConfiguredPages(t *testing.T) {
	source := &fakeListSource{pages: map[int][]catalog.Movie{
		1: {{ID: 1, Title: "A"}, {ID: 2, Title: "B"}},
		2: {{ID: 3, Title: "C"}},
	}}
	details := &fakeDetails{details: map[int64]*tmdb.MovieDetails{}, providers: map[int64][]string{}}

	result, err := newTestService(source, details, nil).Browse(context.Background(), 1, BrowseQuery{})
	if err != nil {
		t.Fatalf("Browse() error = %v", err)
	}

	if len(source.queries) != 2 {
		t.Fatalf("discover called %d times, want 2", len(source.queries))
	}
	if source.queries[0].Page != 1 || source.queries[1].Page != 2 {
		t.Errorf("pages = %d, %d, want 1, 2", source.queries[0].Page, source.queries[1].Page)
	}
	if len(result.Movies) != 3 {
		t.Errorf("returned %d movies, want 3", len(result.Movies))
	}
}

func TestBrowseDeduplicatesAcrossPages(t *testing.T) {
	source := &fakeListSource{pages: map[int][]catalog.Movie{
		1: {{ID: 1, Title: "A"}, {ID: 2, Title: "B"}},
		2: {{ID: 2, Title: "B"}, {ID: 3, Title: "C"}},
	}}
	details := &fakeDetails{details: map[int64]*tmdb.MovieDetails{}, providers: map[int64][]string{}}

	result, err := newTestService(source, details, nil).Browse(context.Background(), 1, BrowseQuery{})
	if err != nil {
		t.Fatalf("Browse() error = %v", err)
	}

	if len(result.Movies) != 3 {
		t.Fatalf("returned %d movies, want 3 after dedup", len(result.Movies))
	}
}

func TestBrowseSkipsFailedPages(t *testing.T) {
	source := &fakeListSource{
		pages:     map[int][]catalog.Movie{2: {{ID: 3, Title: "C"}}},
		failPages: map[int]error{1: tmdb.ErrAPIError},
	}
	details := &fakeDetails{details: map[int64]*tmdb.MovieDetails{}, providers: map[int64][]string{}}

	result, err := newTestService(source, details, nil).Browse(context.Background(), 1, BrowseQuery{})
	if err != nil {
		t.Fatalf("Browse() error = %v", err)
	}
	if len(result.Movies) != 1 {
		t.Errorf("returned %d movies, want the surviving page", len(result.Movies))
	}
}

func TestBrowseErrorsWhenAllPagesFail(t *testing.T) {
	source := &fakeListSource{failPages: map[int]error{1: tmdb.ErrAPIError, 2: tmdb.ErrAPIError}}
	details := &fakeDetails{details: map[int64]*tmdb.MovieDetails{}, providers: map[int64][]string{}}

	_, err := newTestService(source, details, nil).Browse(context.Background(), 1, BrowseQuery{})
	if !errors.Is(err, tmdb.ErrAPIError) {
		t.Errorf("error = %v, want wrapped ErrAPIError", err)
	}
}

func TestBrowseQualitySortAddsVoteFloor(t *testing.T) {
	source := &fakeListSource{pages: map[int][]catalog.Movie{}}
	details := &fakeDetails{details: map[int64]*tmdb.MovieDetails{}, providers: map[int64][]string{}}

	_, err := newTestService(source, details, nil).Browse(context.Background(), 1, BrowseQuery{SortBy: filter.SortVoteAverage})
	if err != nil {
		t.Fatalf("Browse() error = %v", err)
	}

	if got := source.queries[0].SortBy; got != "vote_average.desc" {
		t.Errorf("sort_by = %s, want vote_average.desc", got)
	}
	if got := source.queries[0].VoteCountGTE; got != voteCountFloor {
		t.Errorf("vote_count.gte = %d, want %d", got, voteCountFloor)
	}
}

func TestBrowseDefaultSortHasNoVoteFloor(t *testing.T) {
	source := &fakeListSource{pages: map[int][]catalog.Movie{}}
	details := &fakeDetails{details: map[int64]*tmdb.MovieDetails{}, providers: map[int64][]string{}}

	_, err := newTestService(source, details, nil).Browse(context.Background(), 1, BrowseQuery{})
	if err != nil {
		t.Fatalf("Browse() error = %v", err)
	}

	if got := source.queries[0].SortBy; got != "popularity.desc" {
		t.Errorf("sort_by = %s, want popularity.desc", got)
	}
	if got := source.queries[0].VoteCountGTE; got != 0 {
		t.Errorf("vote_count.gte = %d, want 0", got)
	}
}

func TestBrowsePushesBoundsIntoDiscover(t *testing.T) {
	source := &fakeListSource{pages: map[int][]catalog.Movie{}}
	details := &fakeDetails{details: map[int64]*tmdb.MovieDetails{}, providers: map[int64][]string{}}

	_, err := newTestService(source, details, nil).Browse(context.Background(), 1, BrowseQuery{
		MinVoteAverage: 6.5,
		MaxVoteAverage: 9.0,
		YearFrom:       1990,
		YearTo:         1999,
	})
	if err != nil {
		t.Fatalf("Browse() error = %v", err)
	}

	q := source.queries[0]
	if q.VoteAverageGTE != 6.5 || q.VoteAverageLTE != 9.0 {
		t.Errorf("vote bounds = [%v, %v], want [6.5, 9.0]", q.VoteAverageGTE, q.VoteAverageLTE)
	}
	if q.ReleaseDateGTE != "1990-01-01" || q.ReleaseDateLTE != "1999-12-31" {
		t.Errorf("release window = [%s, %s]", q.ReleaseDateGTE, q.ReleaseDateLTE)
	}
}

func TestBrowseScopesDiscoverToServices(t *testing.T) {
	source := &fakeListSource{pages: map[int][]catalog.Movie{}}
	details := &fakeDetails{details: map[int64]*tmdb.MovieDetails{}, providers: map[int64][]string{}}

	_, err := newTestService(source, details, nil).Browse(context.Background(), 1, BrowseQuery{
		Services: []string{"Netflix", "Hulu"},
	})
	if err != nil {
		t.Fatalf("Browse() error = %v", err)
	}

	q := source.queries[0]
	if len(q.WatchProviders) != 2 {
		t.Fatalf("WatchProviders = %v, want Netflix and Hulu IDs", q.WatchProviders)
	}
	if q.WatchRegion != "US" {
		t.Errorf("WatchRegion = %s, want US", q.WatchRegion)
	}
}

func TestBrowseAppliesFilters(t *testing.T) {
	source := &fakeListSource{pages: map[int][]catalog.Movie{
		1: {
			{ID: 1, Title: "The Godfather", VoteAverage: 9.2},
			{ID: 2, Title: "Gigli", VoteAverage: 2.5},
		},
	}}
	details := &fakeDetails{details: map[int64]*tmdb.MovieDetails{}, providers: map[int64][]string{}}

	result, err := newTestService(source, details, nil).Browse(context.Background(), 1, BrowseQuery{MinVoteAverage: 7.0})
	if err != nil {
		t.Fatalf("Browse() error = %v", err)
	}

	if len(result.Movies) != 1 || result.Movies[0].ID != 1 {
		t.Errorf("filtered movies = %v", result.Movies)
	}
}

func TestBrowseKeepsMoviesWhenProviderLookupFails(t *testing.T) {
	source := &fakeListSource{pages: map[int][]catalog.Movie{
		1: {{ID: 1, Title: "A"}, {ID: 2, Title: "B"}},
	}}
	details := &fakeDetails{
		details:      map[int64]*tmdb.MovieDetails{},
		providers:    map[int64][]string{},
		providersErr: tmdb.ErrAPIError,
	}

	result, err := newTestService(source, details, nil).Browse(context.Background(), 1, BrowseQuery{
		Services: []string{"Netflix"},
	})
	if err != nil {
		t.Fatalf("Browse() error = %v", err)
	}

	// A failed availability lookup degrades to an empty service list;
	// the service filter must not drop those movies.
	if len(result.Movies) != 2 {
		t.Errorf("returned %d movies, want 2", len(result.Movies))
	}
}

func TestBrowseShowUnwatched(t *testing.T) {
	source := &fakeListSource{pages: map[int][]catalog.Movie{
		1: {{ID: 1, Title: "A"}, {ID: 2, Title: "B"}},
	}}
	details := &fakeDetails{details: map[int64]*tmdb.MovieDetails{}, providers: map[int64][]string{}}
	watchedSource := &fakeWatchedLister{entries: map[int64][]watched.Entry{
		7: {{MovieID: 1, Title: "A", Rating: 4}},
	}}

	result, err := newTestService(source, details, watchedSource).Browse(context.Background(), 7, BrowseQuery{
		ShowMode: filter.ShowUnwatched,
	})
	if err != nil {
		t.Fatalf("Browse() error = %v", err)
	}

	if len(result.Movies) != 1 || result.Movies[0].ID != 2 {
		t.Errorf("movies = %v, want only the unwatched one", result.Movies)
	}
}

func TestBrowseTokensIncrease(t *testing.T) {
	source := &fakeListSource{pages: map[int][]catalog.Movie{}}
	details := &fakeDetails{details: map[int64]*tmdb.MovieDetails{}, providers: map[int64][]string{}}
	svc := newTestService(source, details, nil)

	first, err := svc.Browse(context.Background(), 1, BrowseQuery{})
	if err != nil {
		t.Fatalf("Browse() error = %v", err)
	}
	second, err := svc.Browse(context.Background(), 1, BrowseQuery{})
	if err != nil {
		t.Fatalf("Browse() error = %v", err)
	}

	if second.Token <= first.Token {
		t.Errorf("tokens must increase: first=%d second=%d", first.Token, second.Token)
	}
	if first.Stale || second.Stale {
		t.Errorf("sequential browses must not be stale")
	}
}

func TestWatchedView(t *testing.T) {
	source := &fakeListSource{}
	details := &fakeDetails{
		details:   map[int64]*tmdb.MovieDetails{603: {ID: 603, Title: "The Matrix", Runtime: 136}},
		providers: map[int64][]string{603: {"Netflix"}},
	}
	watchedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	watchedSource := &fakeWatchedLister{entries: map[int64][]watched.Entry{
		7: {
			{MovieID: 603, Title: "The Matrix", Rating: 5, WatchedAt: watchedAt},
			{MovieID: 999, Title: "Lost Tape", Rating: 2, WatchedAt: watchedAt},
		},
	}}
	svc := newTestService(source, details, watchedSource)

	view, err := svc.WatchedView(context.Background(), 7, filter.Spec{})
	if err != nil {
		t.Fatalf("WatchedView() error = %v", err)
	}

	if len(view) != 2 {
		t.Fatalf("returned %d entries, want 2", len(view))
	}
	if view[0].Title != "The Matrix" || view[0].Runtime != 136 || view[0].Rating != 5 {
		t.Errorf("enriched entry = %+v", view[0])
	}
	if !view[0].WatchedAt.Equal(watchedAt) {
		t.Errorf("WatchedAt = %v, want %v", view[0].WatchedAt, watchedAt)
	}
	if view[1].Title != "Lost Tape" || view[1].Runtime != 0 {
		t.Errorf("fallback entry = %+v, want stored title only", view[1])
	}
}

func TestWatchedViewAppliesFilters(t *testing.T) {
	source := &fakeListSource{}
	details := &fakeDetails{
		details: map[int64]*tmdb.MovieDetails{
			603:   {ID: 603, Title: "The Matrix", Runtime: 136},
			27205: {ID: 27205, Title: "Inception", Runtime: 148},
		},
		providers: map[int64][]string{},
	}
	watchedSource := &fakeWatchedLister{entries: map[int64][]watched.Entry{
		7: {
			{MovieID: 603, Title: "The Matrix", Rating: 5},
			{MovieID: 27205, Title: "Inception", Rating: 4},
		},
	}}
	svc := newTestService(source, details, watchedSource)

	view, err := svc.WatchedView(context.Background(), 7, filter.Spec{Search: "matrix"})
	if err != nil {
		t.Fatalf("WatchedView() error = %v", err)
	}

	if len(view) != 1 || view[0].ID != 603 {
		t.Errorf("view = %+v, want only The Matrix", view)
	}
}

func TestWatchedViewFiltersByGenre(t *testing.T) {
	source := &fakeListSource{}
	details := &fakeDetails{
		details: map[int64]*tmdb.MovieDetails{
			603: {ID: 603, Title: "The Matrix", Genres: []tmdb.GenreEntry{{ID: 28, Name: "Action"}}},
			597: {ID: 597, Title: "Titanic", Genres: []tmdb.GenreEntry{{ID: 18, Name: "Drama"}}},
		},
		providers: map[int64][]string{},
	}
	watchedSource := &fakeWatchedLister{entries: map[int64][]watched.Entry{
		7: {
			{MovieID: 603, Title: "The Matrix", Rating: 5},
			{MovieID: 597, Title: "Titanic", Rating: 3},
		},
	}}
	svc := newTestService(source, details, watchedSource)

	view, err := svc.WatchedView(context.Background(), 7, filter.Spec{Genres: []int64{28}})
	if err != nil {
		t.Fatalf("WatchedView() error = %v", err)
	}

	if len(view) != 1 || view[0].ID != 603 {
		t.Errorf("view = %+v, want only The Matrix", view)
	}
}

func TestGenresCached(t *testing.T) {
	source := &fakeListSource{genres: []catalog.Genre{{ID: 28, Name: "Action"}}}
	details := &fakeDetails{details: map[int64]*tmdb.MovieDetails{}, providers: map[int64][]string{}}
	svc := newTestService(source, details, nil)

	for i := 0; i < 3; i++ {
		genres, err := svc.Genres(context.Background())
		if err != nil {
			t.Fatalf("Genres() error = %v", err)
		}
		if len(genres) != 1 {
			t.Fatalf("Genres() = %v", genres)
		}
	}

	if source.genreCalls != 1 {
		t.Errorf("genre catalog fetched %d times, want 1", source.genreCalls)
	}
}

func TestRefreshGenresReplacesCache(t *testing.T) {
	source := &fakeListSource{genres: []catalog.Genre{{ID: 28, Name: "Action"}}}
	details := &fakeDetails{details: map[int64]*tmdb.MovieDetails{}, providers: map[int64][]string{}}
	svc := newTestService(source, details, nil)

	if _, err := svc.Genres(context.Background()); err != nil {
		t.Fatalf("Genres() error = %v", err)
	}

	source.genres = []catalog.Genre{{ID: 28, Name: "Action"}, {ID: 35, Name: "Comedy"}}
	if _, err := svc.RefreshGenres(context.Background()); err != nil {
		t.Fatalf("RefreshGenres() error = %v", err)
	}

	genres, err := svc.Genres(context.Background())
	if err != nil {
		t.Fatalf("Genres() error = %v", err)
	}
	if len(genres) != 2 {
		t.Errorf("Genres() = %v, want the refreshed catalog", genres)
	}
}

func TestMovieDetailLookup(t *testing.T) {
	source := &fakeListSource{}
	details := &fakeDetails{
		details:   map[int64]*tmdb.MovieDetails{603: {ID: 603, Title: "The Matrix", Runtime: 136}},
		providers: map[int64][]string{603: {"Netflix"}},
	}
	svc := newTestService(source, details, nil)

	movie, err := svc.Movie(context.Background(), 603)
	if err != nil {
		t.Fatalf("Movie() error = %v", err)
	}

	if movie.Title != "The Matrix" || movie.Runtime != 136 {
		t.Errorf("unexpected movie: %+v", movie)
	}
	if len(movie.Services) != 1 || movie.Services[0] != "Netflix" {
		t.Errorf("Services = %v, want [Netflix]", movie.Services)
	}
}

func TestMovieNotFound(t *testing.T) {
	source := &fakeListSource{}
	details := &fakeDetails{details: map[int64]*tmdb.MovieDetails{}, providers: map[int64][]string{}}
	svc := newTestService(source, details, nil)

	_, err := svc.Movie(context.Background(), 999)
	if err != tmdb.ErrMovieNotFound {
		t.Errorf("error = %v, want ErrMovieNotFound", err)
	}
}
