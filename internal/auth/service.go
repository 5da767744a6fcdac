package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/reelmates/reelmates/internal/database"
)

const TokenExpiry = 30 * 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

//nolint:gosec // settings key name, not a credential
const jwtSecretSettingKey = "jwt_secret"

// Claims represents the JWT claims carried by session tokens.
type Claims struct {
	UserID   int64  `json:"user_id"`
	PublicID string `json:"public_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service issues and validates session tokens.
type Service struct {
	jwtSecret []byte
}

// NewService creates an auth service. An empty configured secret is
// replaced by one generated once and persisted in the settings table,
// so tokens survive restarts.
func NewService(db *database.DB, jwtSecret string) (*Service, error) {
	secret := []byte(jwtSecret)

	if len(secret) == 0 {
		var err error
		secret, err = loadOrGenerateSecret(db)
		if err != nil {
			return nil, err
		}
	}

	return &Service{jwtSecret: secret}, nil
}

func loadOrGenerateSecret(db *database.DB) ([]byte, error) {
	ctx := context.Background()
	value, err := db.GetSetting(ctx, jwtSecretSettingKey)

	switch {
	case err == nil && value != "":
		secret, decErr := hex.DecodeString(value)
		if decErr != nil {
			return nil, fmt.Errorf("failed to decode stored JWT secret: %w", decErr)
		}
		return secret, nil

	case errors.Is(err, sql.ErrNoRows) || (err == nil && value == ""):
		return generateAndPersistSecret(db)

	default:
		return nil, fmt.Errorf("failed to load JWT secret from database: %w", err)
	}
}

func generateAndPersistSecret(db *database.DB) ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	if err := db.SetSetting(context.Background(), jwtSecretSettingKey, hex.EncodeToString(secret)); err != nil {
		return nil, fmt.Errorf("failed to persist JWT secret: %w", err)
	}
	return secret, nil
}

// GenerateToken creates a session token for a user.
func (s *Service) GenerateToken(userID int64, publicID, username string) (string, error) {
	claims := &Claims{
		UserID:   userID,
		PublicID: publicID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "reelmates",
			Subject:   fmt.Sprintf("%d", userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a session token and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
