package discovery

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/reelmates/reelmates/internal/auth"
	"github.com/reelmates/reelmates/internal/catalog/tmdb"
	"github.com/reelmates/reelmates/internal/filter"
)

// SubscriptionSource resolves a user's streaming-service subscriptions.
type SubscriptionSource interface {
	Services(ctx context.Context, userID int64) ([]string, error)
}

// Handlers provides HTTP handlers for the browse surface.
type Handlers struct {
	service       *Service
	subscriptions SubscriptionSource
	logger        zerolog.Logger
}

// NewHandlers creates discovery handlers.
func NewHandlers(service *Service, subscriptions SubscriptionSource, logger zerolog.Logger) *Handlers {
	return &Handlers{
		service:       service,
		subscriptions: subscriptions,
		logger:        logger.With().Str("component", "discovery-api").Logger(),
	}
}

// RegisterRoutes registers the browse routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/movies", h.browse)
	g.GET("/movies/:id", h.movie)
	g.GET("/genres", h.genres)
	g.GET("/watched/view", h.watchedView)
}

// browse lists enriched movies. Without an explicit services parameter
// the listing is scoped to the user's own subscriptions.
// GET /api/v1/movies?sortBy=...&genres=...&search=...&yearFrom=...&yearTo=...&minVoteAverage=...&maxVoteAverage=...&minImdbRating=...&maxImdbRating=...&showMode=...&services=...
func (h *Handlers) browse(c echo.Context) error {
	user := auth.GetUser(c)

	q := BrowseQuery{
		SortBy:   c.QueryParam("sortBy"),
		Search:   c.QueryParam("search"),
		ShowMode: c.QueryParam("showMode"),
	}

	if genres := c.QueryParam("genres"); genres != "" {
		for _, part := range strings.Split(genres, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid genres parameter")
			}
			q.Genres = append(q.Genres, id)
		}
	}
	if services := c.QueryParam("services"); services != "" {
		q.Services = strings.Split(services, ",")
	} else {
		subscribed, err := h.subscriptions.Services(c.Request().Context(), user.UserID)
		if err != nil {
			h.logger.Error().Err(err).Msg("Subscription lookup failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to browse movies")
		}
		q.Services = subscribed
	}
	if v := c.QueryParam("yearFrom"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.YearFrom = n
		}
	}
	if v := c.QueryParam("yearTo"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.YearTo = n
		}
	}
	if v := c.QueryParam("minVoteAverage"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			q.MinVoteAverage = f
		}
	}
	if v := c.QueryParam("maxVoteAverage"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			q.MaxVoteAverage = f
		}
	}
	if v := c.QueryParam("minImdbRating"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			q.MinImdbRating = f
		}
	}
	if v := c.QueryParam("maxImdbRating"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			q.MaxImdbRating = f
		}
	}

	result, err := h.service.Browse(c.Request().Context(), user.UserID, q)
	if err != nil {
		return h.catalogError(c, err, "Browse failed", "failed to browse movies")
	}

	return c.JSON(http.StatusOK, result)
}

// movie returns a single enriched movie.
// GET /api/v1/movies/:id
func (h *Handlers) movie(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid movie id")
	}

	result, err := h.service.Movie(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, tmdb.ErrMovieNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "movie not found")
		}
		return h.catalogError(c, err, "Movie lookup failed", "failed to get movie")
	}

	return c.JSON(http.StatusOK, result)
}

// genres returns the genre catalog.
// GET /api/v1/genres
func (h *Handlers) genres(c echo.Context) error {
	genres, err := h.service.Genres(c.Request().Context())
	if err != nil {
		return h.catalogError(c, err, "Genre lookup failed", "failed to get genres")
	}

	return c.JSON(http.StatusOK, genres)
}

// watchedView returns the user's watched movies with full enrichment,
// narrowed by the same criteria the browse listing accepts.
// GET /api/v1/watched/view
func (h *Handlers) watchedView(c echo.Context) error {
	user := auth.GetUser(c)

	spec := filter.Spec{
		Search: c.QueryParam("search"),
		SortBy: c.QueryParam("sortBy"),
	}
	if genres := c.QueryParam("genres"); genres != "" {
		for _, part := range strings.Split(genres, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid genres parameter")
			}
			spec.Genres = append(spec.Genres, id)
		}
	}
	if v := c.QueryParam("minImdbRating"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			spec.MinImdbRating = f
		}
	}

	view, err := h.service.WatchedView(c.Request().Context(), user.UserID, spec)
	if err != nil {
		return h.catalogError(c, err, "Watched view failed", "failed to load watched movies")
	}

	return c.JSON(http.StatusOK, view)
}

// catalogError maps upstream catalog failures onto HTTP statuses.
func (h *Handlers) catalogError(c echo.Context, err error, logMsg, clientMsg string) error {
	if errors.Is(err, tmdb.ErrAPIKeyMissing) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "catalog provider is not configured")
	}
	if errors.Is(err, tmdb.ErrAPIError) || errors.Is(err, tmdb.ErrRateLimited) {
		h.logger.Error().Err(err).Msg(logMsg)
		return echo.NewHTTPError(http.StatusBadGateway, "catalog provider is unavailable")
	}
	h.logger.Error().Err(err).Msg(logMsg)
	return echo.NewHTTPError(http.StatusInternalServerError, clientMsg)
}
