package authgate

import "testing"

func TestConfigEndpoints(t *testing.T) {
	cfg := Config{Instance: "https://login.microsoftonline.com/", TenantID: "t1"}
	cfg.Normalize()

	if got := cfg.Authority(); got != "https://login.microsoftonline.com/t1/v2.0" {
		t.Errorf("Authority() = %q", got)
	}
	if got := cfg.AuthorizationEndpoint(); got != "https://login.microsoftonline.com/t1/oauth2/v2.0/authorize" {
		t.Errorf("AuthorizationEndpoint() = %q", got)
	}
	if got := cfg.TokenEndpoint(); got != "https://login.microsoftonline.com/t1/oauth2/v2.0/token" {
		t.Errorf("TokenEndpoint() = %q", got)
	}
}

func TestConfigNormalizeDefaults(t *testing.T) {
	var cfg Config
	cfg.Normalize()
	if cfg.Instance != DefaultInstance {
		t.Errorf("Instance = %q, want default", cfg.Instance)
	}
	if cfg.GraphURL == "" {
		t.Error("GraphURL not defaulted")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]Config{
		"missing tenant":   {Audience: "api-client-id"},
		"missing audience": {TenantID: "t1"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			cfg.Normalize()
			if err := cfg.Validate(); err == nil {
				t.Fatal("Validate() accepted incomplete config")
			}
		})
	}

	ok := Config{TenantID: "t1", Audience: "api-client-id"}
	ok.Normalize()
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate() rejected complete config: %v", err)
	}
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("AUTH_INSTANCE", "https://login.partner.example")
	t.Setenv("AUTH_TENANT_ID", "tenant-from-env")
	t.Setenv("API_AUDIENCE", "aud-from-env")
	t.Setenv("API_CLIENT_ID", "client-from-env")
	t.Setenv("API_CLIENT_SECRET", "secret-from-env")

	cfg := NewConfigFromEnv()
	if cfg.Instance != "https://login.partner.example" {
		t.Errorf("Instance = %q", cfg.Instance)
	}
	if cfg.TenantID != "tenant-from-env" || cfg.Audience != "aud-from-env" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.ClientID != "client-from-env" || cfg.ClientSecret != "secret-from-env" {
		t.Errorf("confidential client not populated: %+v", cfg)
	}
	if cfg.GraphURL == "" {
		t.Error("GraphURL default not applied")
	}
}
