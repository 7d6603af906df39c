package handlers

import (
	"net/http"

	"github.com/gaslink/backend-go/internal/jobs"
	"github.com/gaslink/backend-go/internal/scheduler"
	"github.com/gin-gonic/gin"
)

type JobHandler struct {
	tracker   *jobs.Tracker
	scheduler *scheduler.Scheduler
}

func NewJobHandler(tracker *jobs.Tracker, sched *scheduler.Scheduler) *JobHandler {
	return &JobHandler{tracker: tracker, scheduler: sched}
}

// ListRuns returns recent job runs, optionally filtered by ?job=.
func (h *JobHandler) ListRuns(c *gin.Context) {
	limit, err := intQuery(c, "limit", 50)
	if err != nil {
		respondError(c, err)
		return
	}

	runs, err := h.tracker.Recent(c.Request.Context(), c.Query("job"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// RunNow triggers a registered job for all active distributors and waits
// for it to finish.
func (h *JobHandler) RunNow(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler is not running"})
		return
	}

	summary, err := h.scheduler.RunNow(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
