package compare

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/reelmates/reelmates/internal/catalog"
	"github.com/reelmates/reelmates/internal/catalog/tmdb"
	"github.com/reelmates/reelmates/internal/config"
	"github.com/reelmates/reelmates/internal/users"
)

type fakeCatalog struct {
	pages     map[int][]catalog.Movie
	failPages map[int]error
	queries   []tmdb.DiscoverQuery
}

func (f *fakeCatalog) DiscoverMovies(ctx context.Context, q tmdb.DiscoverQuery) ([]catalog.Movie, error) {
	f.queries = append(f.queries, q)
	if err := f.failPages[q.Page]; err != nil {
		return nil, err
	}
	return f.pages[q.Page], nil
}

type fakeUsers struct {
	byID     map[int64]*users.User
	byPublic map[string]*users.User
}

func (f *fakeUsers) Get(ctx context.Context, id int64) (*users.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByPublicID(ctx context.Context, publicID string) (*users.User, error) {
	u, ok := f.byPublic[publicID]
	if !ok {
		return nil, users.ErrNotFound
	}
	return u, nil
}

type fakeWatched struct {
	union   map[int64]bool
	userIDs []int64
}

func (f *fakeWatched) UnionMovieIDs(ctx context.Context, userIDs []int64) (map[int64]bool, error) {
	f.userIDs = userIDs
	if f.union == nil {
		return map[int64]bool{}, nil
	}
	return f.union, nil
}

func testUser(id int64, publicID, username string, services ...string) *users.User {
	return &users.User{ID: id, PublicID: publicID, Username: username, Services: services}
}

func testCompareConfig() config.DiscoveryConfig {
	return config.DiscoveryConfig{
		BrowsePages:     2,
		ComparePages:    20,
		MaxCandidates:   100,
		EnrichBatchSize: 3,
	}
}

func newTestService(cat *fakeCatalog, us *fakeUsers, watched *fakeWatched) *Service {
	return NewService(cat, us, watched, testCompareConfig(), "US", zerolog.Nop())
}

func groupFixture() *fakeUsers {
	return &fakeUsers{
		byID: map[int64]*users.User{
			1: testUser(1, "pub-alice", "alice", "Netflix", "Hulu"),
		},
		byPublic: map[string]*users.User{
			"pub-bob":   testUser(2, "pub-bob", "bob", "Netflix", "Disney+"),
			"pub-carol": testUser(3, "pub-carol", "carol", "Hulu"),
		},
	}
}

func TestOverlapSharedService(t *testing.T) {
	cat := &fakeCatalog{pages: map[int][]catalog.Movie{
		1: {{ID: 10, Title: "Heat"}, {ID: 11, Title: "Ronin"}},
	}}
	us := groupFixture()
	watched := &fakeWatched{}

	result, err := newTestService(cat, us, watched).Overlap(context.Background(), 1, []string{"pub-bob"})
	if err != nil {
		t.Fatalf("Overlap() error = %v", err)
	}

	if result.Status != StatusOK {
		t.Errorf("Status = %s, want %s", result.Status, StatusOK)
	}
	if !reflect.DeepEqual(result.Usernames, []string{"alice", "bob"}) {
		t.Errorf("Usernames = %v", result.Usernames)
	}
	if !reflect.DeepEqual(result.SharedServices, []string{"Netflix"}) {
		t.Errorf("SharedServices = %v", result.SharedServices)
	}
	if len(result.Candidates) != 2 {
		t.Errorf("Candidates = %v", result.Candidates)
	}
}

func TestOverlapScopesDiscoverToSharedProviders(t *testing.T) {
	cat := &fakeCatalog{pages: map[int][]catalog.Movie{}}
	us := groupFixture()

	_, err := newTestService(cat, us, &fakeWatched{}).Overlap(context.Background(), 1, []string{"pub-bob"})
	if err != nil {
		t.Fatalf("Overlap() error = %v", err)
	}

	q := cat.queries[0]
	if !reflect.DeepEqual(q.WatchProviders, []int{8}) {
		t.Errorf("WatchProviders = %v, want [8]", q.WatchProviders)
	}
	if q.WatchRegion != "US" {
		t.Errorf("WatchRegion = %s, want US", q.WatchRegion)
	}
	if q.SortBy != "popularity.desc" {
		t.Errorf("SortBy = %s", q.SortBy)
	}
}

func TestOverlapExcludesWatchedByAnyMember(t *testing.T) {
	cat := &fakeCatalog{pages: map[int][]catalog.Movie{
		1: {{ID: 10, Title: "Heat"}, {ID: 11, Title: "Ronin"}, {ID: 12, Title: "Spy Game"}},
	}}
	us := groupFixture()
	watched := &fakeWatched{union: map[int64]bool{10: true, 12: true}}

	result, err := newTestService(cat, us, watched).Overlap(context.Background(), 1, []string{"pub-bob"})
	if err != nil {
		t.Fatalf("Overlap() error = %v", err)
	}

	if len(result.Candidates) != 1 || result.Candidates[0].ID != 11 {
		t.Errorf("Candidates = %v, want only Ronin", result.Candidates)
	}
	if !reflect.DeepEqual(watched.userIDs, []int64{1, 2}) {
		t.Errorf("union computed over %v, want [1 2]", watched.userIDs)
	}
}

func TestOverlapDeduplicatesFirstOccurrence(t *testing.T) {
	cat := &fakeCatalog{pages: map[int][]catalog.Movie{
		1: {{ID: 10, Title: "Heat", Popularity: 50}},
		2: {{ID: 10, Title: "Heat", Popularity: 40}, {ID: 11, Title: "Ronin"}},
	}}
	us := groupFixture()

	result, err := newTestService(cat, us, &fakeWatched{}).Overlap(context.Background(), 1, []string{"pub-bob"})
	if err != nil {
		t.Fatalf("Overlap() error = %v", err)
	}

	if len(result.Candidates) != 2 {
		t.Fatalf("Candidates = %v", result.Candidates)
	}
	if result.Candidates[0].Popularity != 50 {
		t.Errorf("first occurrence must win, got popularity %v", result.Candidates[0].Popularity)
	}
}

func TestOverlapCapsCandidates(t *testing.T) {
	pages := make(map[int][]catalog.Movie)
	id := int64(0)
	for page := 1; page <= 20; page++ {
		var movies []catalog.Movie
		for i := 0; i < 20; i++ {
			id++
			movies = append(movies, catalog.Movie{ID: id})
		}
		pages[page] = movies
	}
	cat := &fakeCatalog{pages: pages}
	us := groupFixture()

	result, err := newTestService(cat, us, &fakeWatched{}).Overlap(context.Background(), 1, []string{"pub-bob"})
	if err != nil {
		t.Fatalf("Overlap() error = %v", err)
	}

	if len(result.Candidates) != 100 {
		t.Errorf("Candidates = %d, want capped at 100", len(result.Candidates))
	}
	if len(cat.queries) >= 20 {
		t.Errorf("fetched %d pages, want the walk to stop at the cap", len(cat.queries))
	}
}

func TestOverlapSkipsFailedPages(t *testing.T) {
	cat := &fakeCatalog{
		pages:     map[int][]catalog.Movie{2: {{ID: 11, Title: "Ronin"}}},
		failPages: map[int]error{1: tmdb.ErrAPIError},
	}
	us := groupFixture()

	result, err := newTestService(cat, us, &fakeWatched{}).Overlap(context.Background(), 1, []string{"pub-bob"})
	if err != nil {
		t.Fatalf("Overlap() error = %v", err)
	}

	if len(result.Candidates) != 1 || result.Candidates[0].ID != 11 {
		t.Errorf("Candidates = %v, want the surviving page only", result.Candidates)
	}
}

func TestOverlapErrorsWhenAllPagesFail(t *testing.T) {
	failPages := make(map[int]error)
	for page := 1; page <= 20; page++ {
		failPages[page] = tmdb.ErrAPIError
	}
	cat := &fakeCatalog{failPages: failPages}

	_, err := newTestService(cat, groupFixture(), &fakeWatched{}).Overlap(context.Background(), 1, []string{"pub-bob"})
	if !errors.Is(err, tmdb.ErrAPIError) {
		t.Errorf("error = %v, want wrapped ErrAPIError", err)
	}
}

func TestOverlapNoSharedServices(t *testing.T) {
	cat := &fakeCatalog{}
	us := groupFixture()

	result, err := newTestService(cat, us, &fakeWatched{}).Overlap(context.Background(), 1, []string{"pub-bob", "pub-carol"})
	if err != nil {
		t.Fatalf("Overlap() error = %v", err)
	}

	if result.Status != StatusNoSharedServices {
		t.Errorf("Status = %s, want %s", result.Status, StatusNoSharedServices)
	}
	if len(result.Candidates) != 0 {
		t.Errorf("Candidates = %v, want none", result.Candidates)
	}
	if len(cat.queries) != 0 {
		t.Error("discover must not be called without shared services")
	}
}

func TestOverlapNoValidSharedServices(t *testing.T) {
	cat := &fakeCatalog{}
	us := &fakeUsers{
		byID: map[int64]*users.User{
			1: testUser(1, "pub-alice", "alice", "HBO Max"),
		},
		byPublic: map[string]*users.User{
			"pub-bob": testUser(2, "pub-bob", "bob", "HBO Max"),
		},
	}

	result, err := newTestService(cat, us, &fakeWatched{}).Overlap(context.Background(), 1, []string{"pub-bob"})
	if err != nil {
		t.Fatalf("Overlap() error = %v", err)
	}

	if result.Status != StatusNoValidSharedServices {
		t.Errorf("Status = %s, want %s", result.Status, StatusNoValidSharedServices)
	}
	if !reflect.DeepEqual(result.SharedServices, []string{"HBO Max"}) {
		t.Errorf("SharedServices = %v", result.SharedServices)
	}
	if len(cat.queries) != 0 {
		t.Error("discover must not be called without mappable services")
	}
}

func TestOverlapNoUsersSelected(t *testing.T) {
	_, err := newTestService(&fakeCatalog{}, groupFixture(), &fakeWatched{}).Overlap(context.Background(), 1, nil)
	if !errors.Is(err, ErrNoUsersSelected) {
		t.Errorf("error = %v, want ErrNoUsersSelected", err)
	}
}

func TestOverlapUnknownUser(t *testing.T) {
	_, err := newTestService(&fakeCatalog{}, groupFixture(), &fakeWatched{}).Overlap(context.Background(), 1, []string{"pub-ghost"})
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("error = %v, want ErrUserNotFound", err)
	}
}

func TestOverlapSkipsRequesterInSelection(t *testing.T) {
	cat := &fakeCatalog{pages: map[int][]catalog.Movie{}}
	us := groupFixture()
	watched := &fakeWatched{}

	result, err := newTestService(cat, us, watched).Overlap(context.Background(), 1, []string{"pub-alice", "pub-bob"})
	if err != nil {
		t.Fatalf("Overlap() error = %v", err)
	}

	if !reflect.DeepEqual(result.Usernames, []string{"alice", "bob"}) {
		t.Errorf("Usernames = %v, requester must not be counted twice", result.Usernames)
	}
}
