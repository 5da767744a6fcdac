package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Store persists users and their service subscriptions.
type Store struct {
	db *sql.DB
}

// NewStore creates a user store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new user and returns it with the assigned ID.
func (s *Store) Create(ctx context.Context, user *User) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (public_id, username, email, password_hash)
		VALUES (?, ?, ?, ?)
	`, user.PublicID, user.Username, user.Email, user.PasswordHash)
	if err != nil {
		if isUniqueViolation(err, "users.username") {
			return ErrUsernameTaken
		}
		if isUniqueViolation(err, "users.email") {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user id: %w", err)
	}
	user.ID = id

	return nil
}

// GetByID returns a user by internal ID, with services loaded.
func (s *Store) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.getOne(ctx, `WHERE id = ?`, id)
}

// GetByPublicID returns a user by public ID, with services loaded.
func (s *Store) GetByPublicID(ctx context.Context, publicID string) (*User, error) {
	return s.getOne(ctx, `WHERE public_id = ?`, publicID)
}

// GetByUsername returns a user by username, with services loaded.
func (s *Store) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.getOne(ctx, `WHERE username = ?`, username)
}

func (s *Store) getOne(ctx context.Context, where string, arg interface{}) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, public_id, username, email, password_hash, created_at, updated_at
		FROM users `+where,
		arg,
	).Scan(&u.ID, &u.PublicID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	services, err := s.GetServices(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Services = services

	return &u, nil
}

// List returns all users with their services, ordered by username.
func (s *Store) List(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, public_id, username, email, password_hash, created_at, updated_at
		FROM users
		ORDER BY username COLLATE NOCASE
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.PublicID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	for i := range result {
		services, err := s.GetServices(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Services = services
	}

	return result, nil
}

// GetServices returns the service names a user subscribes to.
func (s *Store) GetServices(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT service FROM user_services WHERE user_id = ? ORDER BY service
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user services: %w", err)
	}
	defer rows.Close()

	services := []string{}
	for rows.Next() {
		var service string
		if err := rows.Scan(&service); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, service)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate services: %w", err)
	}

	return services, nil
}

// ReplaceServices swaps a user's full subscription set in one transaction.
func (s *Store) ReplaceServices(ctx context.Context, userID int64, services []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_services WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear services: %w", err)
	}

	for _, service := range services {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_services (user_id, service) VALUES (?, ?)
		`, userID, service); err != nil {
			return fmt.Errorf("failed to insert service: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit services: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a SQLite unique constraint
// failure on the given column.
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}
