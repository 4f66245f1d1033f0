package messages

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buenosAires(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	require.NoError(t, err)
	return loc
}

func TestLongDate(t *testing.T) {
	// 2025-03-10 17:30 UTC = lunes 14:30 em Buenos Aires (UTC-3)
	at := time.Date(2025, 3, 10, 17, 30, 0, 0, time.UTC)

	assert.Equal(t, "lunes 10 de marzo a las 14:30", LongDate(at, buenosAires(t)))
	assert.Equal(t, "14:30", ClockTime(at, buenosAires(t)))
	assert.Equal(t, "17:30", ClockTime(at, nil))
}

func TestRender(t *testing.T) {
	d := Data{
		PatientName: "Juan Pérez",
		ScheduledAt: time.Date(2025, 3, 10, 17, 30, 0, 0, time.UTC),
		PaymentLink: "https://mp.example/pay/1",
		MeetLink:    "https://meet.google.com/abc-defg-hij",
		Location:    buenosAires(t),
	}

	t.Run("payment reminder", func(t *testing.T) {
		body, err := Render(PaymentReminder, d)
		require.NoError(t, err)
		assert.Contains(t, body, "Juan Pérez")
		assert.Contains(t, body, "lunes 10 de marzo a las 14:30")
		assert.Contains(t, body, d.PaymentLink)
	})

	t.Run("late payment", func(t *testing.T) {
		body, err := Render(LatePaymentReminder, d)
		require.NoError(t, err)
		assert.Contains(t, body, "14:30")
		assert.Contains(t, body, d.PaymentLink)
		assert.NotContains(t, body, d.MeetLink)
	})

	t.Run("courtesy", func(t *testing.T) {
		body, err := Render(CourtesyReminder, d)
		require.NoError(t, err)
		assert.Contains(t, body, "2 horas (14:30)")
		assert.NotContains(t, body, d.PaymentLink)
	})

	t.Run("meet link", func(t *testing.T) {
		body, err := Render(MeetLink, d)
		require.NoError(t, err)
		assert.Contains(t, body, d.MeetLink)
	})

	t.Run("confirmation", func(t *testing.T) {
		body, err := Render(PaymentConfirmation, d)
		require.NoError(t, err)
		assert.Contains(t, body, "¡Pago confirmado!")
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := Render(Kind("nope"), d)
		assert.Error(t, err)
	})
}
