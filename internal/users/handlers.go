package users

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/reelmates/reelmates/internal/auth"
	"github.com/reelmates/reelmates/internal/providers"
)

// Handlers exposes account and profile endpoints.
type Handlers struct {
	service *Service
	tokens  *auth.Service
	logger  zerolog.Logger
}

// NewHandlers creates user handlers.
func NewHandlers(service *Service, tokens *auth.Service, logger zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		tokens:  tokens,
		logger:  logger.With().Str("component", "users-api").Logger(),
	}
}

// RegisterPublicRoutes registers the unauthenticated account routes.
func (h *Handlers) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/auth/signup", h.signup)
	g.POST("/auth/login", h.login)
}

// RegisterRoutes registers the authenticated profile routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/users", h.list)
	g.GET("/users/me", h.me)
	g.PUT("/users/me/services", h.setServices)
	g.GET("/services", h.serviceCatalog)
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

func (h *Handlers) signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrEmailTaken):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrInvalidUsername), errors.Is(err, ErrInvalidEmail),
			errors.Is(err, ErrPasswordRequired), errors.Is(err, ErrPasswordTooShort):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Msg("Signup failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to create account")
		}
	}

	token, err := h.tokens.GenerateToken(user.ID, user.PublicID, user.Username)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to generate token")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create session")
	}

	return c.JSON(http.StatusCreated, sessionResponse{Token: token, User: user.Profile()})
}

func (h *Handlers) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		h.logger.Error().Err(err).Msg("Login failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to log in")
	}

	token, err := h.tokens.GenerateToken(user.ID, user.PublicID, user.Username)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to generate token")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create session")
	}

	return c.JSON(http.StatusOK, sessionResponse{Token: token, User: user.Profile()})
}

func (h *Handlers) list(c echo.Context) error {
	claims := auth.GetUser(c)
	profiles, err := h.service.ListProfiles(c.Request().Context(), claims.PublicID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list users")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list users")
	}
	return c.JSON(http.StatusOK, profiles)
}

func (h *Handlers) me(c echo.Context) error {
	claims := auth.GetUser(c)
	user, err := h.service.Get(c.Request().Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		h.logger.Error().Err(err).Msg("Failed to get user")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get user")
	}
	return c.JSON(http.StatusOK, user)
}

type setServicesRequest struct {
	Services []string `json:"services"`
}

func (h *Handlers) setServices(c echo.Context) error {
	var req setServicesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	claims := auth.GetUser(c)
	kept, err := h.service.SetServices(c.Request().Context(), claims.UserID, req.Services)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to set services")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update services")
	}

	return c.JSON(http.StatusOK, map[string][]string{"services": kept})
}

func (h *Handlers) serviceCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"services": providers.Names()})
}
