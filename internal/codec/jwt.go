package codec

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/gjson"
)

// DefaultJWTHeader is used by SignHS256 when no header is supplied
const DefaultJWTHeader = `{"alg":"HS256","typ":"JWT"}`

var base64URLSegment = regexp.MustCompile(`^[A-Za-z0-9_-]*={0,2}$`)

// segmentParser decodes base64url segments with or without padding
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// JWTParts is a decoded token. Header and Payload are indented JSON with the original
// key order.
type JWTParts struct {
	Header    string      `json:"header"`
	Payload   string      `json:"payload"`
	Signature string      `json:"signature"`
	Algorithm string      `json:"algorithm,omitempty"`
	Type      string      `json:"type,omitempty"`
	Times     []ClaimTime `json:"times,omitempty"`
}

// ClaimTime is a registered NumericDate claim rendered as a time. It is informational
// only; nothing checks expiry.
type ClaimTime struct {
	Claim string    `json:"claim"`
	Time  time.Time `json:"time"`
}

// IsJWT reports whether input has the shape of a JWT: three dot separated base64url
// segments, the first two non-empty and the first decoding to a JSON object
func IsJWT(input string) bool {
	parts := strings.Split(strings.TrimSpace(input), ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return false
	}
	for _, p := range parts {
		if !base64URLSegment.MatchString(p) {
			return false
		}
	}
	header, err := segmentParser.DecodeSegment(parts[0])
	if err != nil {
		return false
	}
	return gjson.ValidBytes(header) && gjson.ParseBytes(header).IsObject()
}

// DecodeJWT splits a token into its three segments and decodes the header and payload
func DecodeJWT(token string) (*JWTParts, error) {
	parts, err := splitJWT(token)
	if err != nil {
		return nil, err
	}
	header, err := decodeJSONSegment("header", parts[0])
	if err != nil {
		return nil, err
	}
	payload, err := decodeJSONSegment("payload", parts[1])
	if err != nil {
		return nil, err
	}

	out := &JWTParts{
		Signature: parts[2],
		Algorithm: gjson.GetBytes(header, "alg").String(),
		Type:      gjson.GetBytes(header, "typ").String(),
	}
	if out.Header, err = FormatJSON(string(header), 2); err != nil {
		return nil, &SyntaxError{Format: JWT, Err: fmt.Errorf("header: %w", err)}
	}
	if out.Payload, err = FormatJSON(string(payload), 2); err != nil {
		return nil, &SyntaxError{Format: JWT, Err: fmt.Errorf("payload: %w", err)}
	}
	for _, claim := range []string{"iat", "nbf", "exp"} {
		if r := gjson.GetBytes(payload, claim); r.Type == gjson.Number {
			out.Times = append(out.Times, ClaimTime{Claim: claim, Time: time.Unix(r.Int(), 0).UTC()})
		}
	}
	return out, nil
}

// VerifyHS256 reports whether the third segment equals HMAC-SHA256 over
// "<segment0>.<segment1>" keyed with secret. The header's alg is not consulted.
func VerifyHS256(token, secret string) (bool, error) {
	parts, err := splitJWT(token)
	if err != nil {
		return false, err
	}
	sig, err := segmentParser.DecodeSegment(parts[2])
	if err != nil {
		return false, &SyntaxError{Format: JWT, Err: fmt.Errorf("signature: %w", err)}
	}
	err = jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, []byte(secret))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, jwt.ErrSignatureInvalid):
		return false, nil
	default:
		return false, fmt.Errorf("failed to verify signature: %w", err)
	}
}

// SignHS256 builds an HS256 token from header and payload JSON. An empty header
// defaults to DefaultJWTHeader; a header naming any other alg is rejected.
func SignHS256(header, payload, secret string) (string, error) {
	if strings.TrimSpace(header) == "" {
		header = DefaultJWTHeader
	}
	h, err := CompactJSON(header)
	if err != nil {
		return "", fmt.Errorf("header: %w", err)
	}
	if !gjson.Parse(h).IsObject() {
		return "", fmt.Errorf("header must be a JSON object")
	}
	if alg := gjson.Get(h, "alg"); alg.Exists() && alg.String() != jwt.SigningMethodHS256.Alg() {
		return "", fmt.Errorf("header alg %q cannot be signed with HS256", alg.String())
	}
	p, err := CompactJSON(payload)
	if err != nil {
		return "", fmt.Errorf("payload: %w", err)
	}
	signingString := encodeSegment([]byte(h)) + "." + encodeSegment([]byte(p))
	sig, err := jwt.SigningMethodHS256.Sign(signingString, []byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signingString + "." + encodeSegment(sig), nil
}

func splitJWT(token string) ([]string, error) {
	s := strings.TrimSpace(token)
	if len(s) > 7 && strings.EqualFold(s[:7], "bearer ") {
		s = strings.TrimSpace(s[7:])
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return nil, &SyntaxError{Format: JWT, Err: fmt.Errorf("expected 3 segments, got %d", len(parts))}
	}
	return parts, nil
}

func decodeJSONSegment(name, seg string) ([]byte, error) {
	if seg == "" {
		return nil, &SyntaxError{Format: JWT, Err: fmt.Errorf("%s segment is empty", name)}
	}
	raw, err := segmentParser.DecodeSegment(seg)
	if err != nil {
		return nil, &SyntaxError{Format: JWT, Err: fmt.Errorf("%s is not base64url: %w", name, err)}
	}
	if !json.Valid(raw) {
		return nil, &SyntaxError{Format: JWT, Err: fmt.Errorf("%s is not JSON", name)}
	}
	return raw, nil
}

func encodeSegment(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
