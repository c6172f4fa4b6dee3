// Package v1 exposes the caller-facing matching API.
package v1

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/pawmatch/pawmatch/plugin/matcher"
	"github.com/pawmatch/pawmatch/plugin/matcher/timeout"
	"github.com/pawmatch/pawmatch/server/internal/observability"
	"github.com/pawmatch/pawmatch/server/middleware"
)

// MatchService handles recommendation requests over HTTP.
type MatchService struct {
	Engine  *matcher.Engine
	limiter *middleware.RateLimiter
}

// NewMatchService creates the API service around the engine.
func NewMatchService(engine *matcher.Engine) *MatchService {
	return &MatchService{
		Engine:  engine,
		limiter: middleware.NewRateLimiter(10, 20),
	}
}

// Register attaches the API routes to the echo server.
func (s *MatchService) Register(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.POST("/recommendations", s.GetRecommendations)
	g.DELETE("/embeddings/:entityId", s.InvalidateEmbedding)
	g.GET("/stats", s.GetStats)
}

// RecommendationsRequest is the request body for POST /recommendations.
type RecommendationsRequest struct {
	Requester  matcher.RequesterProfile `json:"requester"`
	Candidates []matcher.SitterProfile  `json:"candidates"`
	Limit      int                      `json:"limit"`
}

// RecommendationsResponse is the ordered recommendation list.
type RecommendationsResponse struct {
	RequestID       string                   `json:"request_id"`
	Recommendations []matcher.Recommendation `json:"recommendations"`
}

// GetRecommendations ranks the submitted candidates for the requester.
func (s *MatchService) GetRecommendations(c echo.Context) error {
	var req RecommendationsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}

	if !s.limiter.Allow(c.RealIP()) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
	}

	rc := observability.NewRequestContext(nil, req.Requester.OwnerID)

	ctx, cancel := context.WithTimeout(c.Request().Context(), timeout.RequestTimeout)
	defer cancel()

	recs, err := s.Engine.GetRecommendations(ctx, req.Requester, req.Candidates, req.Limit)
	if err != nil {
		if errors.Is(err, matcher.ErrInvalidInput) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		rc.Logger.ErrorContext(ctx, "matching request failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "matching failed")
	}

	rc.Logger.InfoContext(ctx, "recommendations served",
		observability.LogFieldCandidates, len(req.Candidates),
		"returned", len(recs),
		observability.LogFieldDuration, rc.DurationMS())

	return c.JSON(http.StatusOK, RecommendationsResponse{
		RequestID:       rc.RequestID,
		Recommendations: recs,
	})
}

// InvalidateEmbedding drops the cached embedding for an entity. The next
// matching request that touches the entity recomputes it.
func (s *MatchService) InvalidateEmbedding(c echo.Context) error {
	entityID := c.Param("entityId")
	if entityID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "entity id is required")
	}

	if err := s.Engine.InvalidateEmbedding(c.Request().Context(), entityID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "invalidate failed").SetInternal(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetStats returns engine counters.
func (s *MatchService) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Engine.Metrics().Stats())
}
