// Package compare finds movies nobody in a group has watched, scoped
// to streaming services everyone in the group subscribes to.
package compare

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/reelmates/reelmates/internal/catalog"
	"github.com/reelmates/reelmates/internal/catalog/tmdb"
	"github.com/reelmates/reelmates/internal/config"
	"github.com/reelmates/reelmates/internal/providers"
	"github.com/reelmates/reelmates/internal/users"
)

var (
	ErrNoUsersSelected = errors.New("at least one user must be selected")
	ErrUserNotFound    = errors.New("selected user not found")
)

// Status describes the outcome of an overlap computation. The terminal
// states are results, not errors: the group simply has nothing to
// compare over.
type Status string

const (
	StatusOK                    Status = "ok"
	StatusNoSharedServices      Status = "no_shared_services"
	StatusNoValidSharedServices Status = "no_valid_shared_services"
)

// Result is the outcome of an overlap computation.
type Result struct {
	Status         Status          `json:"status"`
	Usernames      []string        `json:"usernames"`
	SharedServices []string        `json:"sharedServices"`
	Candidates     []catalog.Movie `json:"candidates"`
}

// CatalogSource provides paged discover listings scoped to providers.
type CatalogSource interface {
	DiscoverMovies(ctx context.Context, q tmdb.DiscoverQuery) ([]catalog.Movie, error)
}

// UserSource resolves group members.
type UserSource interface {
	Get(ctx context.Context, id int64) (*users.User, error)
	GetByPublicID(ctx context.Context, publicID string) (*users.User, error)
}

// WatchedSource provides the union of movies any member has watched.
type WatchedSource interface {
	UnionMovieIDs(ctx context.Context, userIDs []int64) (map[int64]bool, error)
}

// Service computes unwatched overlap for groups of users.
type Service struct {
	source  CatalogSource
	users   UserSource
	watched WatchedSource
	cfg     config.DiscoveryConfig
	region  string
	logger  zerolog.Logger
}

// NewService creates a compare service.
func NewService(source CatalogSource, userSource UserSource, watchedSource WatchedSource, cfg config.DiscoveryConfig, region string, logger zerolog.Logger) *Service {
	return &Service{
		source:  source,
		users:   userSource,
		watched: watchedSource,
		cfg:     cfg,
		region:  region,
		logger:  logger.With().Str("component", "compare").Logger(),
	}
}

// Overlap computes the candidate list for the requester plus the
// selected users. Candidates are movies available on a service every
// member subscribes to that no member has watched, capped at the
// configured maximum.
func (s *Service) Overlap(ctx context.Context, requesterID int64, publicIDs []string) (*Result, error) {
	if len(publicIDs) == 0 {
		return nil, ErrNoUsersSelected
	}

	members, err := s.resolveMembers(ctx, requesterID, publicIDs)
	if err != nil {
		return nil, err
	}

	usernames := make([]string, len(members))
	serviceSets := make([][]string, len(members))
	memberIDs := make([]int64, len(members))
	for i, m := range members {
		usernames[i] = m.Username
		serviceSets[i] = m.Services
		memberIDs[i] = m.ID
	}

	shared := providers.Intersect(serviceSets...)
	if len(shared) == 0 {
		return &Result{
			Status:         StatusNoSharedServices,
			Usernames:      usernames,
			SharedServices: []string{},
			Candidates:     []catalog.Movie{},
		}, nil
	}

	providerIDs := providers.IDsFor(shared)
	if len(providerIDs) == 0 {
		return &Result{
			Status:         StatusNoValidSharedServices,
			Usernames:      usernames,
			SharedServices: shared,
			Candidates:     []catalog.Movie{},
		}, nil
	}

	watchedIDs, err := s.watched.UnionMovieIDs(ctx, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load watched movies: %w", err)
	}

	candidates, err := s.collectCandidates(ctx, providerIDs, watchedIDs)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int("members", len(members)).
		Strs("sharedServices", shared).
		Int("candidates", len(candidates)).
		Msg("Overlap computed")

	return &Result{
		Status:         StatusOK,
		Usernames:      usernames,
		SharedServices: shared,
		Candidates:     candidates,
	}, nil
}

// resolveMembers loads the requester and the selected users, skipping
// a selected ID that duplicates the requester.
func (s *Service) resolveMembers(ctx context.Context, requesterID int64, publicIDs []string) ([]*users.User, error) {
	requester, err := s.users.Get(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load requester: %w", err)
	}

	members := []*users.User{requester}
	seen := map[string]bool{requester.PublicID: true}

	for _, publicID := range publicIDs {
		if seen[publicID] {
			continue
		}
		seen[publicID] = true

		user, err := s.users.GetByPublicID(ctx, publicID)
		if err != nil {
			if errors.Is(err, users.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		members = append(members, user)
	}

	return members, nil
}

// collectCandidates walks the discover pages, dropping watched movies
// and duplicates. First occurrence wins; the walk stops once the cap
// is reached. A failed page is skipped; the walk errors only when no
// page could be fetched at all.
func (s *Service) collectCandidates(ctx context.Context, providerIDs []int, watchedIDs map[int64]bool) ([]catalog.Movie, error) {
	candidates := []catalog.Movie{}
	seen := make(map[int64]bool)

	fetched := 0
	var lastErr error
	for page := 1; page <= s.cfg.ComparePages; page++ {
		if len(candidates) >= s.cfg.MaxCandidates {
			break
		}

		results, err := s.source.DiscoverMovies(ctx, tmdb.DiscoverQuery{
			Page:           page,
			SortBy:         "popularity.desc",
			WatchProviders: providerIDs,
			WatchRegion:    s.region,
		})
		if err != nil {
			s.logger.Warn().Err(err).Int("page", page).Msg("Failed to fetch discover page")
			lastErr = err
			continue
		}
		fetched++

		for _, m := range results {
			if watchedIDs[m.ID] || seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			candidates = append(candidates, m)
			if len(candidates) >= s.cfg.MaxCandidates {
				break
			}
		}
	}

	if fetched == 0 && lastErr != nil {
		return nil, fmt.Errorf("catalog unreachable: %w", lastErr)
	}
	return candidates, nil
}
