// Package messages renders the WhatsApp texts sent to patients.
package messages

import (
	"fmt"
	"time"
)

type Kind string

const (
	PaymentReminder     Kind = "payment_reminder"
	LatePaymentReminder Kind = "late_payment_reminder"
	CourtesyReminder    Kind = "courtesy_reminder"
	MeetLink            Kind = "meet_link"
	PaymentConfirmation Kind = "payment_confirmation"
)

// Data carries everything a template may need. Times are rendered in Location.
type Data struct {
	PatientName string
	ScheduledAt time.Time
	PaymentLink string
	MeetLink    string
	Location    *time.Location
}

func Render(kind Kind, d Data) (string, error) {
	switch kind {
	case PaymentReminder:
		return fmt.Sprintf(
			"Hola %s!\n\nTenés una sesión programada para el %s.\n\n"+
				"Para confirmar tu asistencia, completá el pago en este enlace:\n%s\n\n"+
				"Con el pago confirmado, vas a recibir el link de la videollamada 15 minutos antes. ¡Gracias!",
			d.PatientName, LongDate(d.ScheduledAt, d.Location), d.PaymentLink,
		), nil
	case LatePaymentReminder:
		return fmt.Sprintf(
			"Hola %s,\n\nTu sesión está programada para las %s.\n\n"+
				"Para acceder a la videollamada necesitás completar el pago:\n%s\n\n"+
				"El link de la videollamada se envía automáticamente cuando se confirma el pago.",
			d.PatientName, ClockTime(d.ScheduledAt, d.Location), d.PaymentLink,
		), nil
	case CourtesyReminder:
		return fmt.Sprintf(
			"Hola %s!\n\nTu sesión comienza en 2 horas (%s).\n\n"+
				"Vas a recibir el link de la videollamada 15 minutos antes. ¡Nos vemos pronto!",
			d.PatientName, ClockTime(d.ScheduledAt, d.Location),
		), nil
	case MeetLink:
		return fmt.Sprintf(
			"Hola %s!\n\nTu sesión comienza en 15 minutos.\n\nIngresá acá:\n%s\n\n¡Te esperamos!",
			d.PatientName, d.MeetLink,
		), nil
	case PaymentConfirmation:
		return fmt.Sprintf(
			"¡Pago confirmado!\n\nGracias %s. Tu sesión del %s está confirmada.\n\n"+
				"Vas a recibir el link de la videollamada 15 minutos antes de empezar.",
			d.PatientName, LongDate(d.ScheduledAt, d.Location),
		), nil
	}
	return "", fmt.Errorf("unknown message kind %q", kind)
}
