package telemetry

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
)

const (
	minTokenLength = 20  // alphanumeric strings longer than this are treated as tokens
	maxInputLength = 256 // payload arguments are cut to this many bytes
	redacted       = "[REDACTED]"
)

var (
	secretPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|token|secret|password|passwd|pwd|authorization)[\s:=]+["']?([^\s"']+)`)

	// JWTs are three base64url segments, the first always starting with "eyJ".
	jwtPattern = regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`)

	secretKeys = map[string]bool{
		"secret":        true,
		"password":      true,
		"token":         true,
		"authorization": true,
		"auth_token":    true,
		"jwt_secret":    true,
		"access_token":  true,
		"client_secret": true,
		"private_key":   true,
		"credentials":   true,
	}

	// Arguments that carry the user's payload rather than settings.
	payloadKeys = map[string]bool{
		"input":   true,
		"text":    true,
		"payload": true,
		"header":  true,
	}
)

func isSecretKey(key string) bool {
	k := strings.ToLower(key)
	return secretKeys[k] || strings.Contains(k, "secret") || strings.Contains(k, "token") ||
		strings.Contains(k, "password") || strings.HasSuffix(k, "key")
}

// SanitiseArguments renders tool arguments as JSON with secrets redacted and large payloads
// truncated, for use as a span attribute.
func SanitiseArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	data, err := json.Marshal(sanitiseMap(args))
	if err != nil {
		return `{"error": "failed to serialise arguments"}`
	}
	return string(data)
}

func sanitiseMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	out := make(map[string]any, len(m))
	for key, value := range m {
		if isSecretKey(key) {
			out[key] = redacted
			continue
		}

		switch v := value.(type) {
		case map[string]any:
			out[key] = sanitiseMap(v)
		case string:
			s := sanitiseString(v)
			if payloadKeys[strings.ToLower(key)] {
				s = TruncateString(s, maxInputLength)
			}
			out[key] = s
		default:
			out[key] = value
		}
	}
	return out
}

// sanitiseString hides embedded credentials and bearer tokens.
func sanitiseString(s string) string {
	if s == "" {
		return s
	}

	s = jwtPattern.ReplaceAllString(s, "eyJ..."+redacted)

	if secretPattern.MatchString(s) {
		return secretPattern.ReplaceAllString(s, "$1="+redacted)
	}

	if len(s) > minTokenLength && isTokenLike(s) {
		return s[:4] + "..." + redacted
	}

	return s
}

func isTokenLike(s string) bool {
	for _, r := range s {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.'
		if !ok {
			return false
		}
	}
	return true
}

// SanitiseURL drops user info and redacts secret-looking query parameters.
func SanitiseURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "[INVALID_URL]"
	}

	parsed.User = nil
	if parsed.RawQuery != "" {
		query := parsed.Query()
		for key := range query {
			if isSecretKey(key) {
				query.Set(key, redacted)
			}
		}
		parsed.RawQuery = query.Encode()
	}

	return parsed.String()
}

// TruncateString shortens s to at most maxLen bytes, ending in "...".
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
