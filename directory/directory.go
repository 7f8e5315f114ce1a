// Package directory is a minimal client for the directory service that
// backs workspace role resolution (Microsoft Graph or a compatible
// implementation).
//
// The client authenticates with the OAuth2 client-credentials grant and
// reuses the access token until it expires, so consecutive calls in a
// request do not each round-trip to the token endpoint. Every operation
// validates the response media type and decodes into explicit structs;
// envelopes or fields the directory is required to return map to
// [auth.ErrInvalidAuthConfig] rather than panicking on absent data.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elnormous/contenttype"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrUnavailable reports a transport failure or an unexpected response
// from the directory service. Callers treat it as an upstream fault
// (HTTP 502), distinct from configuration errors.
var ErrUnavailable = errors.New("directory: service unavailable")

var jsonMediaType = contenttype.NewMediaType("application/json")

// DefaultBaseURL is the production directory endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// DefaultScope grants whatever application permissions the confidential
// client has been consented for.
const DefaultScope = "https://graph.microsoft.com/.default"

// Config describes the confidential client used to call the directory.
type Config struct {
	// ClientID and ClientSecret identify the application registration
	// that holds directory read permissions.
	ClientID     string
	ClientSecret string

	// Authority is the token issuer base, e.g.
	// "https://login.microsoftonline.com/<tenant>". The token endpoint
	// is derived as {Authority}/oauth2/v2.0/token.
	Authority string

	// BaseURL overrides the directory endpoint. Defaults to
	// DefaultBaseURL. Trailing slashes are trimmed.
	BaseURL string

	// Scopes requested for the client-credentials token. Defaults to
	// [DefaultScope].
	Scopes []string
}

// Normalize fills defaults in place.
func (c *Config) Normalize() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	c.Authority = strings.TrimRight(c.Authority, "/")
	if len(c.Scopes) == 0 {
		c.Scopes = []string{DefaultScope}
	}
}

// Validate returns an error naming the first missing required field.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return errors.New("directory: config missing ClientID")
	}
	if c.ClientSecret == "" {
		return errors.New("directory: config missing ClientSecret")
	}
	if c.Authority == "" {
		return errors.New("directory: config missing Authority")
	}
	return nil
}

// Copy returns a deep copy safe for mutation by the caller.
func (c Config) Copy() Config {
	dup := c
	dup.Scopes = append([]string(nil), c.Scopes...)
	return dup
}

// Option customizes a Client.
type Option func(*options)

type options struct {
	log  *slog.Logger
	base *http.Client
}

// WithLogger sets the logger used for debug events. Defaults to
// slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithHTTPClient sets the underlying transport used both for token
// acquisition and directory calls. Primarily for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.base = hc }
}

// Client calls the directory service. Safe for concurrent use; the
// embedded token source caches and refreshes the app token as needed.
type Client struct {
	hc   *http.Client
	base string
	log  *slog.Logger
}

// New builds a Client from cfg. The context governs token refreshes for
// the lifetime of the client, not just construction.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.Copy()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	if o.base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.base)
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.Authority + "/oauth2/v2.0/token",
		Scopes:       cfg.Scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return &Client{
		hc:   cc.Client(ctx),
		base: cfg.BaseURL,
		log:  o.log,
	}, nil
}

// getJSON issues a GET against the directory and decodes the body into
// out. path must begin with "/".
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

// postJSON issues a POST with a JSON body and decodes the response into
// out.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("directory: encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.DebugContext(req.Context(), "directory.request.fail",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: %s %s: unexpected status %d", ErrUnavailable, req.Method, req.URL.Path, resp.StatusCode)
	}
	ctype := contenttype.NewMediaType(resp.Header.Get("Content-Type"))
	if !ctype.Matches(jsonMediaType) {
		return fmt.Errorf("%w: %s %s: unexpected content type %q", ErrUnavailable, req.Method, req.URL.Path, resp.Header.Get("Content-Type"))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: decode response: %v", ErrUnavailable, req.Method, req.URL.Path, err)
	}
	return nil
}
