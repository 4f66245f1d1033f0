package gateway

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"go.uber.org/zap"

	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
)

type preferenceCreator interface {
	Create(ctx context.Context, request preference.Request) (*preference.Response, error)
}

type paymentGetter interface {
	Get(ctx context.Context, id int) (*payment.Response, error)
}

type MercadoPagoConfig struct {
	AccessToken   string
	AppURL        string
	TherapistName string
	LinkTTL       time.Duration
}

// MercadoPago creates checkout preferences and reads payments.
type MercadoPago struct {
	prefs    preferenceCreator
	payments paymentGetter
	cfg      MercadoPagoConfig
	now      func() time.Time
	log      *zap.Logger
}

var _ domain.PaymentGateway = (*MercadoPago)(nil)

func NewMercadoPago(cfg MercadoPagoConfig, log *zap.Logger) (*MercadoPago, error) {
	mpCfg, err := mpconfig.New(cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("mercadopago config: %w", err)
	}
	return newMercadoPago(preference.NewClient(mpCfg), payment.NewClient(mpCfg), cfg, log), nil
}

func newMercadoPago(
	prefs preferenceCreator,
	payments paymentGetter,
	cfg MercadoPagoConfig,
	log *zap.Logger,
) *MercadoPago {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = 24 * time.Hour
	}
	return &MercadoPago{
		prefs:    prefs,
		payments: payments,
		cfg:      cfg,
		now:      time.Now,
		log:      log,
	}
}

func (m *MercadoPago) CreatePreference(
	ctx context.Context,
	req domain.PreferenceRequest,
) (*domain.Preference, error) {

	from := m.now()
	expires := from.Add(m.cfg.LinkTTL)

	request := preference.Request{
		Items: []preference.ItemRequest{
			{
				ID:          req.SessionID,
				Title:       "Sesión de Psicología - " + req.PatientName,
				Description: "Sesión con " + m.cfg.TherapistName,
				Quantity:    1,
				UnitPrice:   float64(req.AmountCents) / 100,
				CurrencyID:  req.Currency,
			},
		},
		Payer: &preference.PayerRequest{
			Name: req.PatientName,
		},
		BackURLs: &preference.BackURLsRequest{
			Success: m.cfg.AppURL + "/payment/success",
			Failure: m.cfg.AppURL + "/payment/failure",
			Pending: m.cfg.AppURL + "/payment/pending",
		},
		AutoReturn:         "approved",
		ExternalReference:  req.SessionID,
		NotificationURL:    m.cfg.AppURL + "/webhook/mercadopago",
		Expires:            true,
		ExpirationDateFrom: &from,
		ExpirationDateTo:   &expires,
		Metadata: map[string]any{
			"session_id":   req.SessionID,
			"patient_name": req.PatientName,
			"session_date": req.SessionDate.Format(time.RFC3339),
		},
	}

	res, err := m.prefs.Create(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("create preference: %w", err)
	}
	if res == nil || res.ID == "" || res.InitPoint == "" {
		return nil, fmt.Errorf("create preference: empty response")
	}

	m.log.Info("payment preference created",
		zap.String("session_id", req.SessionID),
		zap.String("preference_id", res.ID),
	)

	return &domain.Preference{
		ProviderPreferenceID: res.ID,
		PaymentLink:          res.InitPoint,
		SandboxLink:          res.SandboxInitPoint,
		ExpiresAt:            expires,
	}, nil
}

func (m *MercadoPago) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	id, err := strconv.Atoi(paymentID)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid payment id %q", paymentID)
	}

	res, err := m.payments.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payment %d: %w", id, err)
	}
	if res == nil {
		return nil, fmt.Errorf("get payment %d: empty response", id)
	}

	return &domain.Payment{
		ID:                strconv.Itoa(res.ID),
		Status:            res.Status,
		StatusDetail:      res.StatusDetail,
		ExternalReference: res.ExternalReference,
		AmountCents:       int64(math.Round(res.TransactionAmount * 100)),
	}, nil
}
