package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BruksfildServices01/psico-pay/internal/usecase/payment"
)

// ======================================================
// HANDLER
// ======================================================

type paymentConfirmer interface {
	Execute(ctx context.Context, n payment.Notification) payment.Outcome
}

type WebhookHandler struct {
	confirm paymentConfirmer
	secret  string
	timeout time.Duration
	log     *zap.Logger

	// async runs the processing after the ack; replaced in tests
	async func(func())

	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
}

func NewWebhookHandler(
	confirm paymentConfirmer,
	secret string,
	timeout time.Duration,
	log *zap.Logger,
) *WebhookHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebhookHandler{
		confirm: confirm,
		secret:  secret,
		timeout: timeout,
		log:     log.Named("webhook"),
		async:   func(fn func()) { go fn() },
	}
}

// ======================================================
// REQUEST
// ======================================================

type mercadoPagoNotification struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Action string `json:"action"`
	Data   struct {
		ID any `json:"id"`
	} `json:"data"`
	ID any `json:"id"`
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}

// parseNotification accepts the JSON body and the legacy query-string form.
func parseNotification(c *gin.Context, body []byte) payment.Notification {
	var raw mercadoPagoNotification
	if len(body) > 0 {
		_ = json.Unmarshal(body, &raw)
	}

	n := payment.Notification{
		Type:   raw.Type,
		Action: raw.Action,
		DataID: idString(raw.Data.ID),
	}
	if n.Type == "" {
		n.Type = raw.Topic
	}
	if n.Type == "" {
		n.Type = c.Query("type")
	}
	if n.Type == "" {
		n.Type = c.Query("topic")
	}
	if n.DataID == "" {
		n.DataID = c.Query("data.id")
	}
	if n.DataID == "" {
		n.DataID = idString(raw.ID)
	}
	if n.DataID == "" {
		n.DataID = c.Query("id")
	}
	return n
}

// ======================================================
// SIGNATURE
// ======================================================

func parseSignatureHeader(header string) (ts, v1 string) {
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ts":
			ts = strings.TrimSpace(v)
		case "v1":
			v1 = strings.TrimSpace(v)
		}
	}
	return ts, v1
}

func signatureManifest(dataID, requestID, ts string) string {
	return fmt.Sprintf("id:%s;request-id:%s;ts:%s;", strings.ToLower(dataID), requestID, ts)
}

func SignNotification(secret, dataID, requestID, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signatureManifest(dataID, requestID, ts)))
	return hex.EncodeToString(mac.Sum(nil))
}

func (h *WebhookHandler) validSignature(c *gin.Context, dataID string) bool {
	if h.secret == "" {
		return true
	}
	ts, v1 := parseSignatureHeader(c.GetHeader("x-signature"))
	if ts == "" || v1 == "" {
		return false
	}
	expected := SignNotification(h.secret, dataID, c.GetHeader("x-request-id"), ts)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(v1)))
}

// ======================================================
// POST /webhook/mercadopago
// ======================================================

func (h *WebhookHandler) MercadoPago(c *gin.Context) {
	body, _ := c.GetRawData()
	n := parseNotification(c, body)

	valid := h.validSignature(c, n.DataID)

	// o provedor reenvia se não receber 200 rápido
	c.String(http.StatusOK, "OK")

	if !valid {
		h.log.Warn("invalid webhook signature",
			zap.String("type", n.Type),
			zap.String("data_id", n.DataID),
		)
		return
	}

	h.track(func() {
		defer func() {
			if r := recover(); r != nil {
				h.log.Error("webhook processing panicked", zap.Any("panic", r), zap.String("data_id", n.DataID))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()

		out := h.confirm.Execute(ctx, n)
		h.log.Info("webhook processed",
			zap.String("type", n.Type),
			zap.String("action", n.Action),
			zap.String("data_id", n.DataID),
			zap.String("outcome", string(out)),
		)
	})
}

// track runs fn through async and counts it for Wait. Once draining, fn
// runs inline so nothing is started behind Wait's back.
func (h *WebhookHandler) track(fn func()) {
	h.mu.Lock()
	if h.draining {
		h.mu.Unlock()
		fn()
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()

	h.async(func() {
		defer h.wg.Done()
		fn()
	})
}

// Wait blocks until every acknowledged notification has been processed.
func (h *WebhookHandler) Wait(ctx context.Context) error {
	h.mu.Lock()
	h.draining = true
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
