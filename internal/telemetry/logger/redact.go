package logger

import (
	"log/slog"
	"net/url"
	"strings"
)

// Key fragments whose values are redacted entirely.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"key",
	"credential",
	"auth",
	"bearer",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive masks credentials in an attribute. URL passwords are
// masked in place; values of sensitive-looking keys are replaced.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		strVal := a.Value.String()
		if masked, ok := maskURL(strVal); ok {
			return slog.String(a.Key, masked)
		}
		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	case slog.KindAny:
		// Transport metadata is logged as a map.
		if m, ok := a.Value.Any().(map[string]string); ok {
			return slog.Any(a.Key, RedactMap(m))
		}
	}
	return a
}

// maskURL masks the password of a URL with user info. ok is false when s
// is not such a URL.
func maskURL(s string) (string, bool) {
	if !strings.Contains(s, "://") || !strings.Contains(s, "@") {
		return "", false
	}
	u, err := url.Parse(s)
	if err != nil || u.User == nil {
		return "", false
	}
	if _, has := u.User.Password(); !has {
		return "", false
	}
	return u.Redacted(), true
}

// RedactString masks credentials embedded in a URL value.
func RedactString(value string) string {
	if masked, ok := maskURL(value); ok {
		return masked
	}
	return value
}

// RedactMap returns a copy of m safe for logging.
func RedactMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch {
		case v != "" && IsSensitiveKey(k):
			out[k] = redactedValue
		default:
			out[k] = RedactString(v)
		}
	}
	return out
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// IsSensitiveValue checks if a value carries credentials.
func IsSensitiveValue(value string) bool {
	_, ok := maskURL(value)
	return ok
}
