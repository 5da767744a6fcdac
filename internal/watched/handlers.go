package watched

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/reelmates/reelmates/internal/auth"
)

// Handlers exposes the watched-list endpoints.
type Handlers struct {
	service *Service
	logger  zerolog.Logger
}

// NewHandlers creates watched handlers.
func NewHandlers(service *Service, logger zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  logger.With().Str("component", "watched-api").Logger(),
	}
}

// RegisterRoutes registers the watched-list routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/watched", h.list)
	g.PUT("/watched/:movieId", h.set)
	g.DELETE("/watched/:movieId", h.remove)
}

type setRequest struct {
	Title      string  `json:"title"`
	PosterPath *string `json:"posterPath"`
	Rating     int     `json:"rating"`
}

func (h *Handlers) list(c echo.Context) error {
	claims := auth.GetUser(c)
	entries, err := h.service.List(c.Request().Context(), claims.UserID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list watched entries")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list watched movies")
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handlers) set(c echo.Context) error {
	movieID, err := strconv.ParseInt(c.Param("movieId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid movie id")
	}

	var req setRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	claims := auth.GetUser(c)
	entry := Entry{
		MovieID:    movieID,
		Title:      req.Title,
		PosterPath: req.PosterPath,
		Rating:     req.Rating,
	}

	if err := h.service.Set(c.Request().Context(), claims.UserID, entry); err != nil {
		if errors.Is(err, ErrInvalidRating) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		h.logger.Error().Err(err).Int64("movieId", movieID).Msg("Failed to save watched entry")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save watched movie")
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) remove(c echo.Context) error {
	movieID, err := strconv.ParseInt(c.Param("movieId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid movie id")
	}

	claims := auth.GetUser(c)
	if err := h.service.Unwatch(c.Request().Context(), claims.UserID, movieID); err != nil {
		h.logger.Error().Err(err).Int64("movieId", movieID).Msg("Failed to delete watched entry")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete watched movie")
	}

	return c.NoContent(http.StatusNoContent)
}
