package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fusiond/internal/feedback"
	"github.com/fyrsmithlabs/fusiond/internal/fusion"
	"github.com/fyrsmithlabs/fusiond/internal/processor"
	"github.com/fyrsmithlabs/fusiond/internal/storage"
)

// SubmitFeedbackRequest is the request body for POST /api/v1/feedback.
type SubmitFeedbackRequest struct {
	Source      string           `json:"source"`
	Kind        string           `json:"kind"`
	Content     feedback.Content `json:"content"`
	Tags        []string         `json:"tags,omitempty"`
	Reliability *float64         `json:"reliability,omitempty"`
	CreatedAt   *time.Time       `json:"created_at,omitempty"`
}

// FuseRequest is the request body for POST /api/v1/fuse and
// POST /api/v1/strategies/recommend.
type FuseRequest struct {
	// IDs selects specific stored items. When empty, the filter fields
	// below select them instead.
	IDs []string `json:"ids,omitempty"`

	Source string `json:"source,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Tag    string `json:"tag,omitempty"`
	Limit  int    `json:"limit,omitempty"`

	TaskType string `json:"task_type,omitempty"`
}

func (r FuseRequest) filter() storage.Filter {
	return storage.Filter{Source: r.Source, Kind: r.Kind, Tag: r.Tag, Limit: r.Limit}
}

// FuseResponse is the response body for POST /api/v1/fuse.
type FuseResponse struct {
	Item     *feedback.Item `json:"item"`
	Weights  []float64      `json:"weights"`
	Strategy string         `json:"strategy"`
	Score    float64        `json:"score"`
}

// RecommendResponse is the response body for POST /api/v1/strategies/recommend.
type RecommendResponse struct {
	Strategy string `json:"strategy"`
}

func (s *Server) handleSubmitFeedback(c echo.Context) error {
	var req SubmitFeedbackRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid feedback request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	item, err := feedback.NewItem(req.Source, req.Kind, req.Content)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item.Tags = req.Tags
	if req.CreatedAt != nil {
		item.CreatedAt = *req.CreatedAt
	}
	if req.Reliability != nil {
		if err := item.SetReliability(*req.Reliability); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	if err := s.collector.Submit(c.Request().Context(), item); err != nil {
		s.logger.Error("failed to store feedback", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store feedback")
	}
	return c.JSON(http.StatusCreated, item)
}

func (s *Server) handleGetFeedback(c echo.Context) error {
	item, err := s.store.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "feedback item not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load feedback")
	}
	return c.JSON(http.StatusOK, item)
}

func (s *Server) handleDeleteFeedback(c echo.Context) error {
	err := s.store.Delete(c.Request().Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "feedback item not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete feedback")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListFeedback(c echo.Context) error {
	filter := storage.Filter{
		Source: c.QueryParam("source"),
		Kind:   c.QueryParam("kind"),
		Tag:    c.QueryParam("tag"),
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		filter.Limit = limit
	}

	items, err := s.store.List(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list feedback")
	}
	if items == nil {
		items = []*feedback.Item{}
	}
	return c.JSON(http.StatusOK, items)
}

func (s *Server) handleFuse(c echo.Context) error {
	var req FuseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	opts := fusion.Options{TaskType: req.TaskType}
	start := time.Now()

	var res *fusion.Result
	var err error
	if len(req.IDs) > 0 {
		res, err = s.processor.ProcessByIDs(c.Request().Context(), req.IDs, opts)
	} else {
		res, err = s.processor.Process(c.Request().Context(), req.filter(), opts)
	}
	switch {
	case errors.Is(err, processor.ErrNoMatch), errors.Is(err, fusion.ErrNoItems):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "no feedback items to fuse")
	case errors.Is(err, storage.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case err != nil:
		s.logger.Error("fusion failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "fusion failed")
	}

	s.metrics.RecordFusion(c.Request().Context(), res.Strategy, len(res.Weights), time.Since(start))

	return c.JSON(http.StatusOK, FuseResponse{
		Item:     res.Item,
		Weights:  res.Weights,
		Strategy: res.Strategy,
		Score:    fusion.EvaluateStrategyOutcome(res),
	})
}

func (s *Server) handleAnalyze(c echo.Context) error {
	var req FuseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	items, err := s.store.List(c.Request().Context(), req.filter())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list feedback")
	}
	return c.JSON(http.StatusOK, fusion.AnalyzeFeedbackPatterns(items))
}

func (s *Server) handleStrategyPerformance(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.AnalyzeStrategyPerformance())
}

func (s *Server) handleStrategyRecommend(c echo.Context) error {
	var req FuseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	items, err := s.store.List(c.Request().Context(), req.filter())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list feedback")
	}
	name := s.engine.StrategyRecommendation(items, fusion.Options{TaskType: req.TaskType})
	return c.JSON(http.StatusOK, RecommendResponse{Strategy: name})
}
