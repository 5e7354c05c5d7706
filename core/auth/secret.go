package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// SecretHeader carries the webhook secret token on every pushed update.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

const maxSecretLen = 256

// HeaderSecret returns the presented secret token from headers. Keys are
// matched case-insensitively so headers copied from other frameworks work.
func HeaderSecret(headers http.Header) string {
	if v := headers.Get(SecretHeader); v != "" {
		return v
	}
	for key, values := range headers {
		if strings.EqualFold(key, SecretHeader) && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// SecretMatches reports whether presented is exactly expected.
// Uses constant-time comparison.
func SecretMatches(expected, presented string) bool {
	return constantTimeEqual(expected, presented)
}

// ValidateSecret checks a secret token against the Bot API rules:
// 1-256 characters from A-Z, a-z, 0-9, "_" and "-".
func ValidateSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("empty secret token")
	}
	if len(secret) > maxSecretLen {
		return fmt.Errorf("secret token exceeds %d characters", maxSecretLen)
	}
	for _, r := range secret {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return fmt.Errorf("secret token contains invalid character %q", r)
		}
	}
	return nil
}

// constantTimeEqual compares two strings in constant time.
func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var result byte
	for i := 0; i < len(a); i++ {
		result |= a[i] ^ b[i]
	}
	return result == 0
}
