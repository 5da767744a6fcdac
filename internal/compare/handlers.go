package compare

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/reelmates/reelmates/internal/auth"
	"github.com/reelmates/reelmates/internal/catalog"
	"github.com/reelmates/reelmates/internal/catalog/tmdb"
)

// EnrichSource fills in runtime, IMDb rating and provider data for a
// candidate list when the caller asks for it.
type EnrichSource interface {
	Enrich(ctx context.Context, movies []catalog.Movie) ([]catalog.EnrichedMovie, error)
}

// Handlers exposes the compare endpoint.
type Handlers struct {
	service  *Service
	enricher EnrichSource
	logger   zerolog.Logger
}

// NewHandlers creates compare handlers.
func NewHandlers(service *Service, enricher EnrichSource, logger zerolog.Logger) *Handlers {
	return &Handlers{
		service:  service,
		enricher: enricher,
		logger:   logger.With().Str("component", "compare-api").Logger(),
	}
}

// RegisterRoutes registers the compare routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.POST("/compare", h.compare)
}

type compareRequest struct {
	UserIDs []string `json:"userIds"`
	Enrich  bool     `json:"enrich"`
}

type compareResponse struct {
	*Result
	EnrichedCandidates []catalog.EnrichedMovie `json:"enrichedCandidates,omitempty"`
}

// compare computes the unwatched overlap for the requester and the
// selected users.
// POST /api/v1/compare
func (h *Handlers) compare(c echo.Context) error {
	var req compareRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	claims := auth.GetUser(c)
	result, err := h.service.Overlap(ctx, claims.UserID, req.UserIDs)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoUsersSelected):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrUserNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, tmdb.ErrAPIKeyMissing):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "catalog provider is not configured")
		case errors.Is(err, tmdb.ErrAPIError), errors.Is(err, tmdb.ErrRateLimited):
			return echo.NewHTTPError(http.StatusBadGateway, "catalog provider unavailable")
		default:
			h.logger.Error().Err(err).Msg("Compare failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to compare users")
		}
	}

	resp := compareResponse{Result: result}
	if req.Enrich && result.Status == StatusOK && len(result.Candidates) > 0 {
		enriched, err := h.enricher.Enrich(ctx, result.Candidates)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to enrich compare candidates")
			return echo.NewHTTPError(http.StatusBadGateway, "catalog provider unavailable")
		}
		resp.EnrichedCandidates = enriched
	}

	return c.JSON(http.StatusOK, resp)
}
