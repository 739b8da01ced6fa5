package phone

import "strings"

// Indian numbers arrive from providers and legacy records in at least four
// encodings of the same line: bare 10-digit, 12-digit with country code,
// +91-prefixed, and whatever string was originally stored. Normalize produces
// the +91 canonical form; BareDigits produces the 10-digit form. Callers that
// need format-tolerant matching should try both (see internal/ivr lookup order).

const countryCode = "91"

// Normalize converts a raw phone string to the +91 canonical form.
// Inputs it cannot confidently interpret are returned unchanged; guessing a
// country code for an odd-length number would corrupt the join key.
func Normalize(raw string) string {
	digits := digitsOf(raw)
	switch {
	case len(digits) == 10:
		return "+" + countryCode + digits
	case len(digits) == 12 && strings.HasPrefix(digits, countryCode):
		return "+" + digits
	case strings.HasPrefix(strings.TrimSpace(raw), "+"+countryCode):
		return "+" + digits
	}
	return raw
}

// BareDigits strips non-digits and drops a leading country code when the
// result is a 12-digit national number.
func BareDigits(raw string) string {
	digits := digitsOf(raw)
	if len(digits) == 12 && strings.HasPrefix(digits, countryCode) {
		return digits[2:]
	}
	return digits
}

// Valid reports whether raw looks like an Indian mobile number.
func Valid(raw string) bool {
	digits := digitsOf(raw)
	return len(digits) == 10 || (len(digits) == 12 && strings.HasPrefix(digits, countryCode))
}

func digitsOf(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
