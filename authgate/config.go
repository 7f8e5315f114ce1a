package authgate

import (
	"errors"
	"strings"

	"github.com/joeshaw/envdecode"

	"github.com/tregate/authgate-go/directory"
)

// DefaultInstance is the public cloud identity provider base.
const DefaultInstance = "https://login.microsoftonline.com"

// Config describes one gateway deployment: the identity provider tenant
// tokens are issued from, the core API's audience, and the confidential
// client used for directory queries. Defaults can be loaded via
// envdecode.
type Config struct {
	// Instance is the identity provider base URL. ENV: AUTH_INSTANCE
	Instance string `env:"AUTH_INSTANCE,default=https://login.microsoftonline.com"`
	// TenantID of the directory tenant. ENV: AUTH_TENANT_ID
	TenantID string `env:"AUTH_TENANT_ID"`
	// Audience is the core API's application (client) id, validated
	// against the aud claim of core tokens. ENV: API_AUDIENCE
	Audience string `env:"API_AUDIENCE"`
	// ClientID and ClientSecret identify the confidential client used
	// for directory queries. Optional; without them the gate performs no
	// directory-backed workflows. ENV: API_CLIENT_ID / API_CLIENT_SECRET
	ClientID     string `env:"API_CLIENT_ID"`
	ClientSecret string `env:"API_CLIENT_SECRET"`
	// GraphURL overrides the directory endpoint. ENV: GRAPH_URL
	GraphURL string `env:"GRAPH_URL,default=https://graph.microsoft.com/v1.0"`
}

// NewConfigFromEnv populates a Config from the environment.
func NewConfigFromEnv() Config {
	var cfg Config
	// Use envdecode; defaults are provided via struct tags.
	_ = envdecode.Decode(&cfg)
	return cfg
}

// Normalize fills defaults in place.
func (c *Config) Normalize() {
	if c.Instance == "" {
		c.Instance = DefaultInstance
	}
	c.Instance = strings.TrimRight(c.Instance, "/")
	if c.GraphURL == "" {
		c.GraphURL = directory.DefaultBaseURL
	}
}

// Validate returns an error if required invariants are not met.
func (c Config) Validate() error {
	if c.TenantID == "" {
		return errors.New("authgate: tenant id required")
	}
	if c.Audience == "" {
		return errors.New("authgate: api audience required")
	}
	return nil
}

// Authority is the token issuer for this tenant. The identity provider's
// discovery document lives at {Authority}/.well-known/openid-configuration.
func (c Config) Authority() string {
	return c.Instance + "/" + c.TenantID + "/v2.0"
}

// AuthorizationEndpoint is where interactive clients send users to sign
// in. Advertised only; the gateway never calls it.
func (c Config) AuthorizationEndpoint() string {
	return c.Instance + "/" + c.TenantID + "/oauth2/v2.0/authorize"
}

// TokenEndpoint issues tokens for this tenant.
func (c Config) TokenEndpoint() string {
	return c.Instance + "/" + c.TenantID + "/oauth2/v2.0/token"
}
