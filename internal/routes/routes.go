package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/psico-pay/internal/app"
	"github.com/BruksfildServices01/psico-pay/internal/config"
	"github.com/BruksfildServices01/psico-pay/internal/handlers"
	"github.com/BruksfildServices01/psico-pay/internal/httperr"
	"github.com/BruksfildServices01/psico-pay/internal/middleware"
	"github.com/BruksfildServices01/psico-pay/internal/usecase/ops"
)

// RegisterRoutes wires every route and returns the webhook handler so the
// caller can drain acknowledged notifications on shutdown.
func RegisterRoutes(
	r *gin.Engine,
	db *gorm.DB,
	cfg *config.Config,
	a *app.App,
	log *zap.Logger,
) *handlers.WebhookHandler {

	// ======================================================
	// 🌍 MIDDLEWARE GLOBAL
	// ======================================================
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))

	r.SetHTMLTemplate(handlers.Templates())

	// ======================================================
	// 🧩 HANDLERS
	// ======================================================
	healthHandler := handlers.NewHealthHandler(a.Scheduler)
	webhookHandler := handlers.NewWebhookHandler(a.Confirm, cfg.MPWebhookSecret, 2*cfg.GatewayTimeout, log)
	paymentPagesHandler := handlers.NewPaymentPagesHandler(a.Therapist.Name)
	opsHandler := handlers.NewOpsHandler(a.Ops, a.Scheduler)
	auditLogsHandler := handlers.NewAuditLogsHandler(db, a.Therapist.ID, a.Location)

	// ======================================================
	// 🌐 PUBLIC
	// ======================================================
	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/webhook/mercadopago", webhookHandler.MercadoPago)

	r.NoRoute(func(c *gin.Context) {
		httperr.NotFound(c, "route_not_found", "Rota não encontrada.")
	})

	payment := r.Group("/payment")
	{
		payment.GET("/success", paymentPagesHandler.Success)
		payment.GET("/failure", paymentPagesHandler.Failure)
		payment.GET("/pending", paymentPagesHandler.Pending)
	}

	// ======================================================
	// 🔐 OPS (ADMIN)
	// ======================================================
	opsGroup := r.Group("/api/ops")
	opsGroup.Use(middleware.AuthMiddleware(cfg), middleware.RequireRole(middleware.RoleAdmin))
	{
		opsGroup.POST("/run", opsHandler.Run)

		opsGroup.GET("/scheduler", opsHandler.SchedulerStatus)
		opsGroup.POST("/scheduler/start", opsHandler.StartScheduler)
		opsGroup.POST("/scheduler/stop", opsHandler.StopScheduler)

		opsGroup.GET("/sessions/upcoming", opsHandler.ListUpcoming)
		opsGroup.GET("/notifications/failed", opsHandler.ListFailedNotifications)
		opsGroup.GET("/audit-logs", auditLogsHandler.List)

		sessions := opsGroup.Group("/sessions/:id")
		{
			sessions.POST("/reset-reminder", opsHandler.ResetReminder)
			sessions.POST("/confirm-payment", opsHandler.ConfirmPayment)
			sessions.POST("/send-payment-link", opsHandler.SendPaymentLink)
			sessions.POST("/send-reminder", opsHandler.SendReminder)
			sessions.POST("/cancel", opsHandler.ChangeStatus(ops.ActionCancel))
			sessions.POST("/complete", opsHandler.ChangeStatus(ops.ActionComplete))
			sessions.POST("/no-show", opsHandler.ChangeStatus(ops.ActionNoShow))
		}
	}

	return webhookHandler
}
