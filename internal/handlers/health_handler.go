package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type schedulerStatus interface {
	IsActive() bool
	IsRunning() bool
}

type HealthHandler struct {
	scheduler schedulerStatus
	started   time.Time
	now       func() time.Time
}

func NewHealthHandler(scheduler schedulerStatus) *HealthHandler {
	return &HealthHandler{scheduler: scheduler, started: time.Now(), now: time.Now}
}

type schedulerState struct {
	Active  bool `json:"active"`
	Running bool `json:"running"`
}

type healthResponse struct {
	Status        string         `json:"status"`
	Timestamp     time.Time      `json:"timestamp"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Scheduler     schedulerState `json:"scheduler"`
}

// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	now := h.now()

	resp := healthResponse{
		Status:        "ok",
		Timestamp:     now.UTC(),
		UptimeSeconds: int64(now.Sub(h.started).Seconds()),
	}
	if h.scheduler != nil {
		resp.Scheduler = schedulerState{
			Active:  h.scheduler.IsActive(),
			Running: h.scheduler.IsRunning(),
		}
	}

	c.JSON(http.StatusOK, resp)
}
