// Package keys resolves token signing keys by key id, lazily populating a
// Store from the identity provider's discovery document and JWKS endpoint.
//
// A Cache is an explicitly constructed instance with its lifecycle owned by
// service initialization; inject one into every component that verifies
// tokens so tests can substitute a fresh cache per run. Cached entries
// never expire: rotating signing keys requires a process restart or
// flushing the backing Store.
package keys

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/MicahParks/jwkset"
	"github.com/coreos/go-oidc/v3/oidc"
)

// Cache maps signing-key ids to verified RSA public keys. A miss triggers
// one refresh: the discovery document names the jwks_uri, and every key in
// the fetched set is decoded and stored, not just the requested one.
// Concurrent refreshes are allowed to race; see Store.
type Cache struct {
	issuer string
	store  Store
	hc     *http.Client
	log    *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithStore substitutes the backing store. Defaults to a MemoryStore.
func WithStore(s Store) Option {
	return func(c *Cache) { c.store = s }
}

// WithHTTPClient sets the client used for discovery and JWKS fetches.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Cache) { c.hc = hc }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// New constructs a Cache for the given issuer. The issuer must serve an
// OIDC discovery document at
// {issuer}/.well-known/openid-configuration exposing a jwks_uri.
func New(issuer string, opts ...Option) (*Cache, error) {
	if issuer == "" {
		return nil, errors.New("keys: issuer required")
	}
	c := &Cache{
		issuer: strings.TrimRight(issuer, "/"),
		hc:     http.DefaultClient,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.store == nil {
		c.store = NewMemoryStore()
	}
	return c, nil
}

// Get returns the public key stored under kid. On a store miss it refreshes
// from the provider and retries once; a key still absent after refresh
// fails with ErrKeyNotFound.
func (c *Cache) Get(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, fmt.Errorf("%w: empty key id", ErrKeyNotFound)
	}

	material, err := c.store.Get(ctx, kid)
	if err == nil {
		return ParsePublicKey(material)
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}

	if err := c.refresh(ctx); err != nil {
		return nil, err
	}

	material, err = c.store.Get(ctx, kid)
	if err != nil {
		return nil, err
	}
	return ParsePublicKey(material)
}

// refresh fetches the provider's full key set and stores every usable RSA
// key under its kid.
func (c *Cache) refresh(ctx context.Context) error {
	ctx = oidc.ClientContext(ctx, c.hc)
	provider, err := oidc.NewProvider(ctx, c.issuer)
	if err != nil {
		return fmt.Errorf("keys: discovery failed: %w", err)
	}
	var meta struct {
		JwksURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return fmt.Errorf("keys: invalid discovery metadata: %w", err)
	}
	if meta.JwksURI == "" {
		return errors.New("keys: discovery metadata missing jwks_uri")
	}

	jwks, err := c.fetchKeySet(ctx, meta.JwksURI)
	if err != nil {
		return err
	}

	stored := 0
	for _, key := range jwks.Keys {
		if key.KID == "" || key.KTY != jwkset.KtyRSA {
			continue
		}
		pub, err := rsaPublicKeyFromJWK(key.N, key.E)
		if err != nil {
			c.log.DebugContext(ctx, "keys.decode.skip", slog.String("kid", key.KID), slog.String("err", err.Error()))
			continue
		}
		material, err := MarshalPublicKey(pub)
		if err != nil {
			return fmt.Errorf("keys: encode key %s: %w", key.KID, err)
		}
		if err := c.store.Put(ctx, key.KID, material); err != nil {
			return fmt.Errorf("keys: store key %s: %w", key.KID, err)
		}
		stored++
	}
	c.log.DebugContext(ctx, "keys.refresh.ok", slog.Int("stored", stored))
	return nil
}

func (c *Cache) fetchKeySet(ctx context.Context, uri string) (*jwkset.JWKSMarshal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("keys: jwks request: %w", err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keys: jwks fetch: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("keys: jwks fetch returned %s", resp.Status)
	}
	var doc jwkset.JWKSMarshal
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("keys: invalid jwks document: %w", err)
	}
	return &doc, nil
}

// MarshalPublicKey renders a key as the PEM-encoded PKIX material Stores
// persist.
func MarshalPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// ParsePublicKey parses PEM-encoded PKIX material produced by
// MarshalPublicKey.
func ParsePublicKey(material []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(material)
	if block == nil {
		return nil, errors.New("keys: invalid key material")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("keys: invalid key material: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("keys: key material is not an RSA key")
	}
	return rsaPub, nil
}

func rsaPublicKeyFromJWK(n, e string) (*rsa.PublicKey, error) {
	modulus, err := decodeBase64URLUint(n)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	exponent, err := decodeBase64URLUint(e)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}
	if !exponent.IsInt64() || exponent.Int64() <= 0 || exponent.Int64() > int64(1)<<31 {
		return nil, errors.New("exponent out of range")
	}
	if modulus.Sign() <= 0 {
		return nil, errors.New("modulus out of range")
	}
	return &rsa.PublicKey{N: modulus, E: int(exponent.Int64())}, nil
}

func decodeBase64URLUint(s string) (*big.Int, error) {
	b, err := base64.URLEncoding.DecodeString(ensureBase64Padding(s))
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

// ensureBase64Padding restores the trailing '=' padding that providers
// routinely omit from base64url key material.
func ensureBase64Padding(s string) string {
	if m := len(s) % 4; m != 0 {
		return s + strings.Repeat("=", 4-m)
	}
	return s
}
