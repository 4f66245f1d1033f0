package handlers

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the HTML pages served by the API.
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

type paymentPage struct {
	Title   string
	Message string
	Icon    string
	Color   string
}

var paymentPages = map[string]paymentPage{
	"success": {
		Title:   "¡Pago confirmado!",
		Message: "Recibimos tu pago. Unos minutos antes de la sesión te enviaremos el enlace de la videollamada por WhatsApp.",
		Icon:    "✓",
		Color:   "#2e7d32",
	},
	"failure": {
		Title:   "El pago no se pudo completar",
		Message: "No se realizó ningún cargo. Podés volver a intentarlo con el mismo enlace que recibiste por WhatsApp.",
		Icon:    "✕",
		Color:   "#c62828",
	},
	"pending": {
		Title:   "Pago en proceso",
		Message: "Tu pago está siendo procesado. Te avisaremos por WhatsApp cuando se acredite.",
		Icon:    "…",
		Color:   "#f9a825",
	},
}

// PaymentPagesHandler serves the checkout return pages.
type PaymentPagesHandler struct {
	therapistName string
}

func NewPaymentPagesHandler(therapistName string) *PaymentPagesHandler {
	return &PaymentPagesHandler{therapistName: therapistName}
}

func (h *PaymentPagesHandler) Success(c *gin.Context) { h.render(c, "success") }
func (h *PaymentPagesHandler) Failure(c *gin.Context) { h.render(c, "failure") }
func (h *PaymentPagesHandler) Pending(c *gin.Context) { h.render(c, "pending") }

func (h *PaymentPagesHandler) render(c *gin.Context, result string) {
	page := paymentPages[result]
	c.HTML(http.StatusOK, "payment_result.html", gin.H{
		"Title":     page.Title,
		"Message":   page.Message,
		"Icon":      page.Icon,
		"Color":     template.CSS(page.Color),
		"Therapist": h.therapistName,
	})
}
