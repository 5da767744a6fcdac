// Package watched tracks which movies each user has seen and how they
// rated them.
package watched

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("watched entry not found")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// Entry is a single watched movie with the user's rating.
type Entry struct {
	MovieID    int64     `json:"movieId"`
	Title      string    `json:"title"`
	PosterPath *string   `json:"posterPath,omitempty"`
	Rating     int       `json:"rating"`
	WatchedAt  time.Time `json:"watchedAt"`
}

// Store persists watched entries.
type Store struct {
	db *sql.DB
}

// NewStore creates a watched store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Upsert records a movie as watched with a rating, replacing any
// previous rating for the same movie.
func (s *Store) Upsert(ctx context.Context, userID int64, entry Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watched (user_id, movie_id, title, poster_path, rating, watched_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, movie_id) DO UPDATE SET
			title = excluded.title,
			poster_path = excluded.poster_path,
			rating = excluded.rating
	`, userID, entry.MovieID, entry.Title, entry.PosterPath, entry.Rating)
	if err != nil {
		return fmt.Errorf("failed to upsert watched entry: %w", err)
	}
	return nil
}

// Delete removes a watched entry. Deleting an absent entry returns
// ErrNotFound.
func (s *Store) Delete(ctx context.Context, userID, movieID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM watched WHERE user_id = ? AND movie_id = ?`, userID, movieID)
	if err != nil {
		return fmt.Errorf("failed to delete watched entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns a single watched entry.
func (s *Store) Get(ctx context.Context, userID, movieID int64) (*Entry, error) {
	var e Entry
	err := s.db.QueryRowContext(ctx, `
		SELECT movie_id, title, poster_path, rating, watched_at
		FROM watched WHERE user_id = ? AND movie_id = ?
	`, userID, movieID).Scan(&e.MovieID, &e.Title, &e.PosterPath, &e.Rating, &e.WatchedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get watched entry: %w", err)
	}
	return &e, nil
}

// List returns a user's watched entries, most recent first.
func (s *Store) List(ctx context.Context, userID int64) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT movie_id, title, poster_path, rating, watched_at
		FROM watched WHERE user_id = ?
		ORDER BY watched_at DESC, movie_id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watched entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.MovieID, &e.Title, &e.PosterPath, &e.Rating, &e.WatchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watched entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watched entries: %w", err)
	}

	return entries, nil
}

// MovieIDsForUsers returns the union of movie IDs watched by any of
// the given users.
func (s *Store) MovieIDsForUsers(ctx context.Context, userIDs []int64) (map[int64]bool, error) {
	if len(userIDs) == 0 {
		return map[int64]bool{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	args := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT movie_id FROM watched WHERE user_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query watched movie ids: %w", err)
	}
	defer rows.Close()

	ids := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan movie id: %w", err)
		}
		ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate movie ids: %w", err)
	}

	return ids, nil
}
