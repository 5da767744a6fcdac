package watched

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Service applies the rating rules on top of the store.
type Service struct {
	store  *Store
	logger zerolog.Logger
}

// NewService creates a watched service.
func NewService(store *Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "watched").Logger(),
	}
}

// Set records or updates a watched movie. A rating of 0 removes the
// entry, so re-rating to zero behaves like unwatching.
func (s *Service) Set(ctx context.Context, userID int64, entry Entry) error {
	if entry.Rating == 0 {
		err := s.store.Delete(ctx, userID, entry.MovieID)
		if errors.Is(err, ErrNotFound) {
			// Unwatching a movie that was never watched is a no-op.
			return nil
		}
		return err
	}

	if entry.Rating < 1 || entry.Rating > 5 {
		return ErrInvalidRating
	}

	if err := s.store.Upsert(ctx, userID, entry); err != nil {
		return err
	}

	s.logger.Debug().
		Int64("userId", userID).
		Int64("movieId", entry.MovieID).
		Int("rating", entry.Rating).
		Msg("Watched entry saved")

	return nil
}

// Unwatch removes a watched entry. Removing an entry that does not
// exist is a no-op, so unwatch is idempotent.
func (s *Service) Unwatch(ctx context.Context, userID, movieID int64) error {
	err := s.store.Delete(ctx, userID, movieID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// List returns a user's watched entries, most recent first.
func (s *Service) List(ctx context.Context, userID int64) ([]Entry, error) {
	return s.store.List(ctx, userID)
}

// Get returns a single watched entry.
func (s *Service) Get(ctx context.Context, userID, movieID int64) (*Entry, error) {
	return s.store.Get(ctx, userID, movieID)
}

// UnionMovieIDs returns every movie ID watched by any of the users.
func (s *Service) UnionMovieIDs(ctx context.Context, userIDs []int64) (map[int64]bool, error) {
	return s.store.MovieIDsForUsers(ctx, userIDs)
}
