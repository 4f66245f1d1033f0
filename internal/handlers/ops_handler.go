package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/BruksfildServices01/psico-pay/internal/dto"
	"github.com/BruksfildServices01/psico-pay/internal/httperr"
	"github.com/BruksfildServices01/psico-pay/internal/httpresp"
	"github.com/BruksfildServices01/psico-pay/internal/middleware"
	"github.com/BruksfildServices01/psico-pay/internal/usecase/ops"
)

// ======================================================
// HANDLER
// ======================================================

type schedulerControl interface {
	schedulerStatus
	Start() error
	Stop()
	TryTrigger() bool
}

type OpsHandler struct {
	uc        *ops.Usecases
	scheduler schedulerControl
}

func NewOpsHandler(uc *ops.Usecases, scheduler schedulerControl) *OpsHandler {
	return &OpsHandler{uc: uc, scheduler: scheduler}
}

// ======================================================
// REQUESTS
// ======================================================

type flagRequest struct {
	Flag string `json:"flag" binding:"required"`
}

// ======================================================
// HELPERS
// ======================================================

var businessStatus = map[string]int{
	"session_not_found": http.StatusNotFound,
	"invalid_state":     http.StatusConflict,
	"already_paid":      http.StatusConflict,
	"already_sent":      http.StatusConflict,
	"invalid_flag":      http.StatusBadRequest,
	"invalid_action":    http.StatusBadRequest,
	"no_phone":          http.StatusBadRequest,
}

func writeUsecaseError(c *gin.Context, err error) {
	if code, ok := httperr.BusinessCode(err); ok {
		status, known := businessStatus[code]
		if !known {
			status = http.StatusUnprocessableEntity
		}
		httperr.Write(c, status, code, code)
		return
	}
	_ = c.Error(err)
	httperr.Internal(c, "internal_error", "Erro ao processar a operação.")
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.BadRequest(c, "invalid_session_id", "ID de sessão inválido.")
		return uuid.Nil, false
	}
	return id, true
}

// ======================================================
// SESSIONS
// ======================================================

// POST /api/ops/sessions/:id/reset-reminder
func (h *OpsHandler) ResetReminder(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req flagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Dados inválidos.")
		return
	}

	if err := h.uc.ResetReminder.Execute(c.Request.Context(), middleware.Actor(c), id, req.Flag); err != nil {
		writeUsecaseError(c, err)
		return
	}
	httpresp.OK(c, gin.H{"session_id": id, "flag": req.Flag, "reset": true})
}

// POST /api/ops/sessions/:id/confirm-payment
func (h *OpsHandler) ConfirmPayment(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	res, err := h.uc.ConfirmPayment.Execute(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		writeUsecaseError(c, err)
		return
	}
	httpresp.OK(c, gin.H{
		"session":           dto.NewSessionDTO(res.Session),
		"confirmation_sent": res.ConfirmationSent,
		"meet_link_sent":    res.MeetLinkSent,
	})
}

// POST /api/ops/sessions/:id/send-payment-link
func (h *OpsHandler) SendPaymentLink(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	res, err := h.uc.SendPaymentLink.Execute(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		writeUsecaseError(c, err)
		return
	}
	httpresp.OK(c, res)
}

// POST /api/ops/sessions/:id/send-reminder
func (h *OpsHandler) SendReminder(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req flagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Dados inválidos.")
		return
	}

	res, err := h.uc.SendReminder.Execute(c.Request.Context(), middleware.Actor(c), id, req.Flag)
	if err != nil {
		writeUsecaseError(c, err)
		return
	}
	httpresp.OK(c, res)
}

// POST /api/ops/sessions/:id/{cancel,complete,no-show}
func (h *OpsHandler) ChangeStatus(action ops.StatusAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionID(c)
		if !ok {
			return
		}

		s, err := h.uc.ChangeStatus.Execute(c.Request.Context(), middleware.Actor(c), id, action)
		if err != nil {
			writeUsecaseError(c, err)
			return
		}
		httpresp.OK(c, dto.NewSessionDTO(s))
	}
}

// GET /api/ops/sessions/upcoming?hours=48
func (h *OpsHandler) ListUpcoming(c *gin.Context) {
	hours := 48
	if v := c.Query("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httperr.BadRequest(c, "invalid_hours", "Parâmetro hours inválido.")
			return
		}
		hours = n
	}

	list, err := h.uc.ListUpcoming.Execute(c.Request.Context(), time.Duration(hours)*time.Hour)
	if err != nil {
		writeUsecaseError(c, err)
		return
	}
	httpresp.List(c, dto.NewSessionDTOs(list))
}

// GET /api/ops/notifications/failed?limit=50
func (h *OpsHandler) ListFailedNotifications(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			httperr.BadRequest(c, "invalid_limit", "Parâmetro limit inválido.")
			return
		}
		limit = n
	}

	list, err := h.uc.ListFailed.Execute(c.Request.Context(), limit)
	if err != nil {
		writeUsecaseError(c, err)
		return
	}
	httpresp.List(c, dto.NewNotificationDTOs(list))
}

// ======================================================
// SCHEDULER
// ======================================================

// POST /api/ops/run
func (h *OpsHandler) Run(c *gin.Context) {
	if !h.scheduler.TryTrigger() {
		httperr.Conflict(c, "already_running", "Reconciliação já em andamento.")
		return
	}
	httpresp.Accepted(c, gin.H{"triggered": true})
}

// POST /api/ops/scheduler/start
func (h *OpsHandler) StartScheduler(c *gin.Context) {
	if err := h.scheduler.Start(); err != nil {
		_ = c.Error(err)
		httperr.Internal(c, "scheduler_error", "Erro ao iniciar o agendador.")
		return
	}
	h.SchedulerStatus(c)
}

// POST /api/ops/scheduler/stop
func (h *OpsHandler) StopScheduler(c *gin.Context) {
	h.scheduler.Stop()
	h.SchedulerStatus(c)
}

// GET /api/ops/scheduler
func (h *OpsHandler) SchedulerStatus(c *gin.Context) {
	httpresp.OK(c, schedulerState{
		Active:  h.scheduler.IsActive(),
		Running: h.scheduler.IsRunning(),
	})
}
