// Package jwtauth verifies bearer tokens against a single audience using
// signing keys resolved through an injected keys.Cache.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tregate/authgate-go/auth"
	"github.com/tregate/authgate-go/keys"
)

// Config controls validation behavior for access tokens.
type Config struct {
	Issuer      string
	AllowedAlgs []string
	Leeway      time.Duration
}

// DefaultConfig returns a Config with safe defaults for algorithm and
// leeway.
func DefaultConfig() *Config {
	return &Config{
		AllowedAlgs: []string{"RS256"},
		Leeway:      60 * time.Second,
	}
}

// Verifier validates tokens with keys from a shared cache. One Verifier
// serves every audience candidate: the audience is chosen per call, and no
// call branches on the outcome of a previous attempt. Retry policy belongs
// to the caller.
type Verifier struct {
	cfg  *Config
	keys *keys.Cache
}

// New constructs a Verifier. The key cache is required; its lifecycle is
// owned by the caller so tests can substitute a fresh cache per run.
func New(cfg *Config, kc *keys.Cache) (*Verifier, error) {
	if cfg == nil {
		return nil, errors.New("jwtauth: config is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("jwtauth: issuer is required")
	}
	if kc == nil {
		return nil, errors.New("jwtauth: key cache is required")
	}
	cc := *cfg
	if len(cc.AllowedAlgs) == 0 {
		cc.AllowedAlgs = []string{"RS256"}
	} else {
		cc.AllowedAlgs = append([]string(nil), cc.AllowedAlgs...)
	}
	return &Verifier{cfg: &cc, keys: kc}, nil
}

// Verify parses and verifies tok against exactly the given audience,
// enforcing signature, issuer, expiry and the allowed algorithms. Claims
// are returned only from a fully verified token.
func (v *Verifier) Verify(ctx context.Context, tok string, audience string) (jwt.MapClaims, error) {
	if tok == "" {
		return nil, fmt.Errorf("%w: empty token", auth.ErrMalformedToken)
	}
	if audience == "" {
		return nil, errors.New("jwtauth: audience is required")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(v.cfg.AllowedAlgs),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithAudience(audience),
		jwt.WithLeeway(v.cfg.Leeway),
	)

	parsed, err := parser.Parse(tok, v.keyFunc(ctx))
	if err != nil {
		return nil, classify(err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", auth.ErrMalformedToken)
	}
	return claims, nil
}

// keyFunc resolves the signing key named by the token's unverified kid
// header. A kid unknown to the provider surfaces as keys.ErrKeyNotFound.
func (v *Verifier) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: kid header missing", auth.ErrMalformedToken)
		}
		return v.keys.Get(ctx, kid)
	}
}

// classify maps parser failures onto the gateway's error taxonomy while
// preserving the original cause.
func classify(err error) error {
	switch {
	case errors.Is(err, auth.ErrMalformedToken),
		errors.Is(err, auth.ErrInvalidSignature),
		errors.Is(err, auth.ErrInvalidAudience),
		errors.Is(err, keys.ErrKeyNotFound):
		return err
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", auth.ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", auth.ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return fmt.Errorf("%w: %v", auth.ErrInvalidAudience, err)
	default:
		// Expiry, nbf, issuer and other policy failures stay generic; the
		// gate swallows them per candidate either way.
		return fmt.Errorf("jwtauth: token rejected: %w", err)
	}
}
