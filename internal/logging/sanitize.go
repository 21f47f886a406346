package logging

import (
	"regexp"
	"strings"
)

/* Field-name patterns whose values never belong in logs */
var sensitiveKeyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(password|passwd|pwd)`),
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)`),
	regexp.MustCompile(`(?i)(secret|token)`),
	regexp.MustCompile(`(?i)(ssn|social[_-]?security)`),
	regexp.MustCompile(`(?i)(income|salary|wage)`),
}

var longTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{32,}$`)

/* sanitizeValue redacts a field whose name or shape marks it sensitive */
func sanitizeValue(key string, value interface{}) interface{} {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if pattern.MatchString(keyLower) {
			return "[REDACTED]"
		}
	}

	/* Long opaque strings are likely tokens or keys regardless of field name */
	if str, ok := value.(string); ok && longTokenPattern.MatchString(str) {
		return "[REDACTED]"
	}

	return value
}

/* sanitizeFields recursively redacts sensitive values in log fields */
func sanitizeFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	sanitized := make(map[string]interface{}, len(fields))
	for key, value := range fields {
		if nested, ok := value.(map[string]interface{}); ok {
			sanitized[key] = sanitizeFields(nested)
			continue
		}
		sanitized[key] = sanitizeValue(key, value)
	}
	return sanitized
}
