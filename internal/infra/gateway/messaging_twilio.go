package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
	"github.com/BruksfildServices01/psico-pay/internal/validators"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// TwilioWhatsApp sends WhatsApp messages through Twilio's REST API.
type TwilioWhatsApp struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
	backoff    func(attempt int) time.Duration
	log        *zap.Logger
}

var _ domain.MessagingGateway = (*TwilioWhatsApp)(nil)

func NewTwilioWhatsApp(accountSID, authToken, from string, log *zap.Logger) *TwilioWhatsApp {
	if log == nil {
		log = zap.NewNop()
	}
	return &TwilioWhatsApp{
		accountSID: accountSID,
		authToken:  authToken,
		from:       whatsappAddress(from),
		baseURL:    twilioBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		backoff: func(int) time.Duration {
			return time.Duration(200+rand.Intn(300)) * time.Millisecond
		},
		log: log,
	}
}

// Send dispatches one message, retrying 429, 5xx and requests that never
// reached Twilio.
func (t *TwilioWhatsApp) Send(ctx context.Context, to, body string) domain.SendResult {
	if t.accountSID == "" || t.authToken == "" || t.from == "" {
		return domain.SendResult{Error: "twilio credentials missing"}
	}
	if !validators.IsValidPhone(to) {
		return domain.SendResult{Error: "invalid destination phone"}
	}
	if strings.TrimSpace(body) == "" {
		return domain.SendResult{Error: "empty message body"}
	}

	payload := url.Values{}
	payload.Set("To", whatsappAddress(to))
	payload.Set("From", t.from)
	payload.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.baseURL, t.accountSID)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		sid, retry, err := t.post(ctx, endpoint, payload)
		if err == nil {
			t.log.Info("whatsapp message sent",
				zap.String("to", validators.MaskPhone(to)),
				zap.String("sid", sid),
			)
			return domain.SendResult{Success: true, ProviderMessageID: sid}
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}

		if attempt < 3 {
			select {
			case <-ctx.Done():
			case <-time.After(t.backoff(attempt)):
			}
		}
	}

	t.log.Warn("whatsapp message failed",
		zap.String("to", validators.MaskPhone(to)),
		zap.Error(lastErr),
	)
	return domain.SendResult{Error: lastErr.Error()}
}

func (t *TwilioWhatsApp) post(ctx context.Context, endpoint string, payload url.Values) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
	if err != nil {
		return "", false, err
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", notDelivered(err), err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var parsed struct {
			SID string `json:"sid"`
		}
		_ = json.Unmarshal(body, &parsed)
		return parsed.SID, false, nil
	}

	err = fmt.Errorf("twilio send failed: %s", formatTwilioError(resp.StatusCode, body))
	// 4xx que não seja rate limit não adianta repetir
	retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	return "", retry, err
}

// notDelivered reports errors raised before the request left the client.
// Anything later, timeouts included, may have been accepted by Twilio.
func notDelivered(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

type twilioAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func formatTwilioError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}

func whatsappAddress(phone string) string {
	if phone == "" || strings.HasPrefix(phone, "whatsapp:") {
		return phone
	}
	return "whatsapp:" + phone
}
