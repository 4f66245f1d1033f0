package validators

import (
	"regexp"
	"strings"
)

// E.164: '+' seguido de 2 a 15 dígitos, sem zero inicial
var (
	phoneExact = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	phoneFind  = regexp.MustCompile(`\+[1-9]\d{1,14}`)
)

func IsValidPhone(phone string) bool {
	return phoneExact.MatchString(phone)
}

// FindPhone returns the first E.164 number found in free text.
func FindPhone(text string) (string, bool) {
	candidate := phoneFind.FindString(text)
	if candidate == "" || !IsValidPhone(candidate) {
		return "", false
	}
	return candidate, true
}

// MaskPhone hides every digit but the last four, for logs.
func MaskPhone(phone string) string {
	if len(phone) < 4 {
		return phone
	}
	head := phone[:len(phone)-4]
	var b strings.Builder
	for _, r := range head {
		if r >= '0' && r <= '9' {
			b.WriteByte('*')
			continue
		}
		b.WriteRune(r)
	}
	return b.String() + phone[len(phone)-4:]
}
