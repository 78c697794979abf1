package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoToken is returned when the request carries no bearer token
	ErrNoToken = errors.New("no bearer token")

	// ErrInvalidToken wraps every signature, expiry, issuer or audience failure
	ErrInvalidToken = errors.New("invalid token")

	// ErrNoEmail is returned for a valid token that names no email address
	ErrNoEmail = errors.New("token has no email claim")
)

// Config selects how bearer tokens are verified. Exactly one of Secret and JWKSURL
// should be set; with neither, Authenticate always fails.
type Config struct {
	Secret   string
	JWKSURL  string
	Issuer   string
	Audience string
}

// Enabled reports whether any verification key is configured
func (c Config) Enabled() bool {
	return c.Secret != "" || c.JWKSURL != ""
}

// Claims are the token claims the hub reads
type Claims struct {
	Email         string `json:"email,omitempty"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
	jwt.RegisteredClaims
}

// Validator turns bearer tokens into identities
type Validator struct {
	config Config
	logger *logrus.Logger
	jwks   *JWKSClient
	now    func() time.Time
}

// NewValidator creates a validator for cfg
func NewValidator(cfg Config, logger *logrus.Logger) (*Validator, error) {
	if cfg.Secret != "" && cfg.JWKSURL != "" {
		return nil, fmt.Errorf("a JWT secret and a JWKS URL cannot both be configured")
	}

	v := &Validator{config: cfg, logger: logger, now: time.Now}
	if cfg.JWKSURL != "" {
		jwks, err := NewJWKSClient(cfg.JWKSURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create JWKS client: %w", err)
		}
		v.jwks = jwks
	}
	return v, nil
}

// Authenticate validates tokenString and returns the caller identity
func (v *Validator) Authenticate(ctx context.Context, tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}
	if !v.config.Enabled() {
		return nil, fmt.Errorf("%w: no verification key configured", ErrInvalidToken)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(v.validMethods()),
		jwt.WithTimeFunc(v.now),
		jwt.WithLeeway(30*time.Second),
	)
	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return v.keyFor(ctx, token)
	})
	if err != nil {
		v.logger.WithError(err).Debug("Token parsing failed")
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}

	if v.config.Issuer != "" && claims.Issuer != v.config.Issuer {
		v.logger.WithFields(logrus.Fields{
			"expected_issuer": v.config.Issuer,
			"token_issuer":    claims.Issuer,
		}).Debug("Token issuer validation failed")
		return nil, fmt.Errorf("%w: invalid issuer", ErrInvalidToken)
	}
	if v.config.Audience != "" && !slices.Contains(claims.Audience, v.config.Audience) {
		v.logger.WithFields(logrus.Fields{
			"expected_audience": v.config.Audience,
			"token_audience":    claims.Audience,
		}).Debug("Token audience validation failed")
		return nil, fmt.Errorf("%w: invalid audience", ErrInvalidToken)
	}

	email := normaliseEmail(claims.Email)
	if email == "" {
		email = normaliseEmail(claims.Subject)
	}
	if email == "" || (claims.EmailVerified != nil && !*claims.EmailVerified) {
		return nil, ErrNoEmail
	}

	v.logger.WithField("sub", claims.Subject).Debug("Token validation successful")
	return &Identity{Email: email, Subject: claims.Subject, Source: SourceToken}, nil
}

// AuthenticateRequest reads the Authorization header of r
func (v *Validator) AuthenticateRequest(r *http.Request) (*Identity, error) {
	token, err := ExtractBearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}
	return v.Authenticate(r.Context(), token)
}

func (v *Validator) validMethods() []string {
	if v.jwks != nil {
		return []string{"RS256", "RS384", "RS512"}
	}
	return []string{"HS256", "HS384", "HS512"}
}

func (v *Validator) keyFor(ctx context.Context, token *jwt.Token) (any, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if v.config.Secret == "" {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.config.Secret), nil
	case *jwt.SigningMethodRSA:
		if v.jwks == nil {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token header has no kid")
		}
		return v.jwks.GetKey(ctx, kid)
	default:
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
}

// ExtractBearerToken extracts a Bearer token from an Authorization header
func ExtractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrNoToken
	}

	const bearerPrefix = "bearer "
	if len(authHeader) < len(bearerPrefix) || !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", fmt.Errorf("%w: expected Bearer token", ErrInvalidToken)
	}

	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}
