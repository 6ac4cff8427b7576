package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	v1 "github.com/mgriffes/jobforge/api/v1"
	"github.com/mgriffes/jobforge/internal/models"
	"github.com/mgriffes/jobforge/internal/services"
	srvErrors "github.com/mgriffes/jobforge/pkg/errors"
	"github.com/mgriffes/jobforge/pkg/pipeline"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// maxPipelineBytes caps the accepted pipeline document size.
	maxPipelineBytes = 1 << 20
)

// SubmitRun accepts a YAML pipeline document and starts a run
// (POST /runs)
func (h *Handler) SubmitRun(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPipelineBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, v1.Error{Error: "failed to read request body"})
		return
	}

	p, err := pipeline.Parse(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, v1.Error{Error: err.Error()})
		return
	}

	run, err := h.runner.Submit(c.Request.Context(), p)
	if err != nil {
		switch {
		case srvErrors.IsValidationError(err):
			c.JSON(http.StatusBadRequest, v1.Error{Error: err.Error()})
		case srvErrors.IsSchedulerClosedError(err):
			c.JSON(http.StatusServiceUnavailable, v1.Error{Error: "scheduler is shutting down"})
		default:
			zap.S().Named("run_handler").Errorw("failed to submit run", "error", err)
			c.JSON(http.StatusInternalServerError, v1.Error{Error: "failed to submit run"})
		}
		return
	}

	c.JSON(http.StatusAccepted, v1.SubmitRunResponse{
		Id:       run.ID.String(),
		Pipeline: run.Pipeline,
		State:    v1.RunState(run.State),
	})
}

// GetRuns returns the run history with filtering and pagination
// (GET /runs)
func (h *Handler) GetRuns(c *gin.Context) {
	// Parse pagination
	page := 1
	if v := c.Query("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			c.JSON(http.StatusBadRequest, v1.Error{Error: "invalid page"})
			return
		}
		page = p
	}
	pageSize := defaultPageSize
	if v := c.Query("pageSize"); v != "" {
		s, err := strconv.Atoi(v)
		if err != nil || s < 1 {
			c.JSON(http.StatusBadRequest, v1.Error{Error: "invalid pageSize"})
			return
		}
		pageSize = s
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
	}

	states := c.QueryArray("state")
	for _, s := range states {
		if _, err := models.ParseRunState(s); err != nil {
			c.JSON(http.StatusBadRequest, v1.Error{Error: err.Error()})
			return
		}
	}

	params := services.RunListParams{
		States:    states,
		Pipelines: c.QueryArray("pipeline"),
		Limit:     uint64(pageSize),
		Offset:    uint64((page - 1) * pageSize),
	}

	result, err := h.runner.List(c.Request.Context(), params)
	if err != nil {
		zap.S().Named("run_handler").Errorw("failed to list runs", "error", err)
		c.JSON(http.StatusInternalServerError, v1.Error{Error: "failed to list runs"})
		return
	}

	// Calculate page count
	pageCount := (result.Total + pageSize - 1) / pageSize
	if pageCount == 0 {
		pageCount = 1
	}

	// Map to API response
	runs := make([]v1.RunSummary, 0, len(result.Runs))
	for _, run := range result.Runs {
		runs = append(runs, v1.NewRunSummaryFromModel(run))
	}

	c.JSON(http.StatusOK, v1.RunList{
		Page:      page,
		PageCount: pageCount,
		Total:     result.Total,
		Runs:      runs,
	})
}

// GetRun returns one run with its task runs
// (GET /runs/{id})
func (h *Handler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, v1.Error{Error: "invalid run id"})
		return
	}

	run, tasks, err := h.runner.Get(c.Request.Context(), id)
	if err != nil {
		if srvErrors.IsResourceNotFoundError(err) {
			c.JSON(http.StatusNotFound, v1.Error{Error: err.Error()})
			return
		}
		zap.S().Named("run_handler").Errorw("failed to get run", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, v1.Error{Error: "failed to get run"})
		return
	}

	c.JSON(http.StatusOK, v1.NewRunFromModel(*run, tasks))
}

// GetSchedulerStats returns a snapshot of the scheduler counters
// (GET /scheduler/stats)
func (h *Handler) GetSchedulerStats(c *gin.Context) {
	var stats v1.SchedulerStats
	stats.FromStats(h.runner.Stats())
	c.JSON(http.StatusOK, stats)
}

// GetHealth reports daemon liveness
// (GET /health)
func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
