package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/mgriffes/jobforge/internal/services"
)

type Handler struct {
	runner *services.Runner
}

func New(runner *services.Runner) *Handler {
	return &Handler{
		runner: runner,
	}
}

// RegisterRoutes attaches every API route to the given group, normally
// the /api/v1 group created by the server.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.GetHealth)
	router.POST("/runs", h.SubmitRun)
	router.GET("/runs", h.GetRuns)
	router.GET("/runs/:id", h.GetRun)
	router.GET("/scheduler/stats", h.GetSchedulerStats)
}
