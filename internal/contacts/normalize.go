// Package contacts resolves message handles (phone numbers and email
// addresses) to display names through an external directory, with a
// process-lifetime cache.
package contacts

import (
	"regexp"
	"strings"

	"github.com/chatbridge/chatbridge/internal/fault"
)

// emailRe matches a standard local-part@domain identifier. Email handles are
// used verbatim; only phone-shaped identifiers are normalized.
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// IsEmail reports whether the identifier is email-shaped.
func IsEmail(id string) bool {
	return emailRe.MatchString(id)
}

// Normalize canonicalizes a phone-shaped identifier:
//
//   - every non-digit character is stripped, except a leading plus sign
//   - a bare 10-digit number is assumed North American and prefixed with +1
//   - an 11-digit number already beginning with 1 is prefixed with +
//   - any other digit sequence keeps its leading plus sign, if present
//
// Email-shaped identifiers pass through unchanged. Normalize is idempotent.
func Normalize(id string) string {
	if IsEmail(id) {
		return id
	}

	trimmed := strings.TrimSpace(id)
	hasPlus := strings.HasPrefix(trimmed, "+")

	var b strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case !hasPlus && len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits
	case hasPlus:
		return "+" + digits
	default:
		return digits
	}
}

// Recipient bounds for phone-shaped identifiers (E.164 allows at most 15
// digits; anything under 10 cannot be a routable subscriber number here).
const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

// ValidRecipient checks that an identifier can address a delivery: either
// email-shaped, or a phone number whose normalized form has 10-15 digits.
func ValidRecipient(id string) error {
	if strings.TrimSpace(id) == "" {
		return fault.Invalid("recipient", "must not be empty")
	}
	if IsEmail(id) {
		return nil
	}
	n := 0
	for _, r := range Normalize(id) {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	if n < minPhoneDigits || n > maxPhoneDigits {
		return fault.Invalid("recipient", "phone number must have 10-15 digits")
	}
	return nil
}
