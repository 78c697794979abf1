package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/devtoolshub/devtools-hub/internal/cache"
	"github.com/sirupsen/logrus"
)

// DefaultJWKSCacheTTL is how long a fetched key set is reused
const DefaultJWKSCacheTTL = 5 * time.Minute

const keySetCacheKey = "jwks"

// JWKS is a JSON Web Key Set document
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK is one RSA entry of a key set
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSClient resolves key IDs against a remote key set, refetching it at most once
// per DefaultJWKSCacheTTL
type JWKSClient struct {
	url    string
	client *http.Client
	keys   *cache.Cache
	logger *logrus.Logger
}

func NewJWKSClient(jwksURL string, logger *logrus.Logger) (*JWKSClient, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL is required")
	}
	return &JWKSClient{
		url:    jwksURL,
		client: &http.Client{Timeout: 10 * time.Second},
		keys:   cache.NewBoundedCache(DefaultJWKSCacheTTL, 1),
		logger: logger,
	}, nil
}

// GetKey returns the public key for keyID. A kid missing from a cached set triggers
// one refetch, since the issuer may have rotated its keys.
func (c *JWKSClient) GetKey(ctx context.Context, keyID string) (*rsa.PublicKey, error) {
	if set, ok := c.keys.Get(keySetCacheKey); ok {
		if key, found := set.(map[string]*rsa.PublicKey)[keyID]; found {
			return key, nil
		}
	}

	set, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.keys.Set(keySetCacheKey, set)

	if key, found := set[keyID]; found {
		return key, nil
	}
	return nil, fmt.Errorf("key %q not found in JWKS", keyID)
}

// fetch downloads the key set and parses its RSA keys; other key types are skipped
func (c *JWKSClient) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build JWKS request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch JWKS: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch JWKS: unexpected status %d", resp.StatusCode)
	}

	var doc JWKS
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode JWKS: %w", err)
	}

	set := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, jwk := range doc.Keys {
		key, err := jwk.publicKey()
		if err != nil {
			c.logger.WithError(err).WithField("kid", jwk.Kid).Debug("Skipping JWKS entry")
			continue
		}
		set[jwk.Kid] = key
	}
	c.logger.WithField("keys", len(set)).Debug("Refreshed JWKS")
	return set, nil
}

func (k JWK) publicKey() (*rsa.PublicKey, error) {
	if k.Kty != "RSA" {
		return nil, fmt.Errorf("unsupported key type %q", k.Kty)
	}
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	exp := new(big.Int).SetBytes(e)
	if !exp.IsInt64() || exp.Int64() < 3 || exp.Int64() > 1<<31-1 {
		return nil, errors.New("exponent out of range")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
}
