package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces the value of any attribute whose key looks like a credential.
const RedactedValue = "[REDACTED]"

// sensitiveFragments match keystore passphrases, JWT material and raw keys.
var sensitiveFragments = []string{
	"passphrase",
	"password",
	"secret",
	"private_key",
	"privkey",
	"authorization",
	"bearer",
	"token_raw",
	"mnemonic",
}

// IsSensitive reports whether values logged under key must be masked.
func IsSensitive(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	for _, fragment := range sensitiveFragments {
		if strings.Contains(normalized, fragment) {
			return true
		}
	}
	return false
}

// MaskField builds an attribute for key, masking value when the key is
// sensitive. Empty values stay empty so a missing secret is visible in logs.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) != "" && IsSensitive(key) {
		return slog.String(key, RedactedValue)
	}
	return slog.String(key, value)
}

// redactAttr is applied by the handler to every attribute, including those in
// groups, so a stray slog.String("passphrase", ...) never reaches the sink.
func redactAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindGroup || !IsSensitive(attr.Key) {
		return attr
	}
	if attr.Value.Kind() == slog.KindString && strings.TrimSpace(attr.Value.String()) == "" {
		return attr
	}
	return slog.String(attr.Key, RedactedValue)
}
