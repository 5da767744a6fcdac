package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/reelmates/reelmates/internal/providers"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,32}$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

const minPasswordLength = 8

// Service handles user registration and profile management.
type Service struct {
	store  *Store
	logger zerolog.Logger
}

// NewService creates a user service.
func NewService(store *Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "users").Logger(),
	}
}

// Register creates a new account after validating the inputs.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))

	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &User{
		PublicID:     uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Services:     []string{},
	}

	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("username", username).
		Str("publicId", user.PublicID).
		Msg("User registered")

	return user, nil
}

// Authenticate checks credentials and returns the matching user.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.store.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := ValidatePassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Get returns a user by internal ID.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.store.GetByID(ctx, id)
}

// GetByPublicID returns a user by public ID.
func (s *Service) GetByPublicID(ctx context.Context, publicID string) (*User, error) {
	return s.store.GetByPublicID(ctx, publicID)
}

// Services returns the streaming services a user subscribes to.
func (s *Service) Services(ctx context.Context, userID int64) ([]string, error) {
	return s.store.GetServices(ctx, userID)
}

// ListProfiles returns the public profiles of every user except the
// excluded one, so the compare view lists only other members.
func (s *Service) ListProfiles(ctx context.Context, excludePublicID string) ([]Profile, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	profiles := make([]Profile, 0, len(list))
	for i := range list {
		if list[i].PublicID == excludePublicID {
			continue
		}
		profiles = append(profiles, list[i].Profile())
	}
	return profiles, nil
}

// SetServices replaces a user's subscription set. Names outside the
// supported catalog are dropped rather than rejected so stale clients
// cannot wedge a profile update.
func (s *Service) SetServices(ctx context.Context, userID int64, services []string) ([]string, error) {
	kept := make([]string, 0, len(services))
	seen := make(map[string]bool, len(services))
	for _, name := range services {
		name = strings.TrimSpace(name)
		if !providers.IsSupported(name) {
			s.logger.Debug().Str("service", name).Msg("Dropping unsupported service")
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		kept = append(kept, name)
	}

	if err := s.store.ReplaceServices(ctx, userID, kept); err != nil {
		return nil, fmt.Errorf("failed to update services: %w", err)
	}

	return kept, nil
}
