package messages

import (
	"fmt"
	"time"
)

var weekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

var months = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// LongDate formats t as "lunes 5 de marzo a las 14:30".
func LongDate(t time.Time, loc *time.Location) string {
	t = in(t, loc)
	return fmt.Sprintf("%s %d de %s a las %s",
		weekdays[t.Weekday()], t.Day(), months[t.Month()-1], t.Format("15:04"))
}

// ClockTime formats t as "HH:mm".
func ClockTime(t time.Time, loc *time.Location) string {
	return in(t, loc).Format("15:04")
}

func in(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}
