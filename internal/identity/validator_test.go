package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devtoolshub/devtools-hub/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-with-enough-entropy"

func signHS256(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func newHMACValidator(t *testing.T, cfg Config) *Validator {
	t.Helper()
	cfg.Secret = testSecret
	v, err := NewValidator(cfg, testutil.CreateTestLogger())
	require.NoError(t, err)
	return v
}

func TestAuthenticate_HMACEmailClaim(t *testing.T) {
	v := newHMACValidator(t, Config{})
	token := signHS256(t, Claims{
		Email:            "Ada@Example.com",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})

	id, err := v.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &Identity{Email: "ada@example.com", Subject: "user-1", Source: SourceToken}, id)
}

func TestAuthenticate_SubjectEmailFallback(t *testing.T) {
	v := newHMACValidator(t, Config{})
	token := signHS256(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "bob@example.com"}})

	id, err := v.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", id.Email)
}

func TestAuthenticate_Rejections(t *testing.T) {
	v := newHMACValidator(t, Config{Issuer: "https://issuer.example", Audience: "devtools"})
	good := jwt.RegisteredClaims{Issuer: "https://issuer.example", Audience: jwt.ClaimStrings{"devtools"}}
	unverified := false

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrNoToken},
		{"garbage", "not.a.token", ErrInvalidToken},
		{"expired", signHS256(t, Claims{Email: "a@b.co", RegisteredClaims: jwt.RegisteredClaims{
			Issuer: good.Issuer, Audience: good.Audience, ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}}), ErrInvalidToken},
		{"wrong issuer", signHS256(t, Claims{Email: "a@b.co", RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "https://other", Audience: good.Audience,
		}}), ErrInvalidToken},
		{"wrong audience", signHS256(t, Claims{Email: "a@b.co", RegisteredClaims: jwt.RegisteredClaims{
			Issuer: good.Issuer, Audience: jwt.ClaimStrings{"someone-else"},
		}}), ErrInvalidToken},
		{"no email", signHS256(t, Claims{RegisteredClaims: good}), ErrNoEmail},
		{"unverified email", signHS256(t, Claims{Email: "a@b.co", EmailVerified: &unverified, RegisteredClaims: good}), ErrNoEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Authenticate(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthenticate_WrongSecret(t *testing.T) {
	v := newHMACValidator(t, Config{})
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Email: "a@b.co"}).SignedString([]byte("other"))
	require.NoError(t, err)

	_, err = v.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticate_NoneAlgorithmRejected(t *testing.T) {
	v := newHMACValidator(t, Config{})
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Email: "a@b.co"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewValidator_SecretAndJWKSExclusive(t *testing.T) {
	_, err := NewValidator(Config{Secret: "s", JWKSURL: "https://example.com/jwks"}, testutil.CreateTestLogger())
	assert.Error(t, err)
}

func TestAuthenticate_JWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_ = json.NewEncoder(w).Encode(JWKS{Keys: []JWK{{
			Kty: "RSA",
			Kid: "key-1",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	}))
	defer srv.Close()

	v, err := NewValidator(Config{JWKSURL: srv.URL}, testutil.CreateTestLogger())
	require.NoError(t, err)

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{Email: "rsa@example.com"})
	tok.Header["kid"] = "key-1"
	signed, err := tok.SignedString(key)
	require.NoError(t, err)

	for range 3 {
		id, err := v.Authenticate(context.Background(), signed)
		require.NoError(t, err)
		assert.Equal(t, "rsa@example.com", id.Email)
	}
	assert.Equal(t, int32(1), fetches.Load(), "key set is cached")

	// an HMAC token cannot be verified against a JWKS-configured validator
	_, err = v.Authenticate(context.Background(), signHS256(t, Claims{Email: "a@b.co"}))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearerToken(t *testing.T) {
	tok, err := ExtractBearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	tok, err = ExtractBearerToken("bearer   xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)

	_, err = ExtractBearerToken("")
	assert.ErrorIs(t, err, ErrNoToken)

	_, err = ExtractBearerToken("Basic dXNlcjpwYXNz")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
