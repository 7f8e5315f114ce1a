package authgate

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tregate/authgate-go/auth"
	"github.com/tregate/authgate-go/workspace"
)

func errorBody(t *testing.T, resp *http.Response) (int, string) {
	t.Helper()
	defer resp.Body.Close()
	var body struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code, body.Error.Message
}

func TestRequireMiddleware(t *testing.T) {
	ti := newTestIssuer(t)
	store := workspace.NewMemStore()
	store.Add(testWorkspace())
	g := ti.newGate(t, WithWorkspaceStore(store), WithRealm("tre"))

	mux := http.NewServeMux()
	requireWorkspaceOwner := g.Require(auth.RoleWorkspaceOwner, auth.RoleTREAdmin)
	mux.Handle("GET /api/workspaces/{workspace_id}", requireWorkspaceOwner(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			t.Error("handler ran without a user in context")
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"user": user.ID})
	})))
	requireAdmin := g.Require(auth.RoleTREAdmin)
	mux.Handle("GET /api/health", requireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	api := httptest.NewServer(mux)
	t.Cleanup(api.Close)

	get := func(t *testing.T, path, authz string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodGet, api.URL+path, nil)
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		resp, err := api.Client().Do(req)
		if err != nil {
			t.Fatalf("do request: %v", err)
		}
		return resp
	}

	wsToken := ti.signToken(t, ti.claims("ws-client-1", auth.RoleWorkspaceOwner))
	coreAdminToken := ti.signToken(t, ti.claims(coreAudience, auth.RoleTREAdmin))
	coreUserToken := ti.signToken(t, ti.claims(coreAudience, auth.RoleTREUser))

	t.Run("no credentials", func(t *testing.T) {
		resp := get(t, "/api/workspaces/ws-1", "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", resp.StatusCode)
		}
		if got := resp.Header.Get("WWW-Authenticate"); got != `Bearer realm="tre"` {
			t.Errorf("challenge = %q", got)
		}
		if code, _ := errorBody(t, resp); code != http.StatusUnauthorized {
			t.Errorf("body error code = %d", code)
		}
	})

	t.Run("malformed authorization header", func(t *testing.T) {
		resp := get(t, "/api/workspaces/ws-1", "Basic dXNlcjpwdw==")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", resp.StatusCode)
		}
		if got := resp.Header.Get("WWW-Authenticate"); !strings.Contains(got, `error="invalid_request"`) {
			t.Errorf("challenge = %q, want invalid_request", got)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		resp := get(t, "/api/workspaces/ws-1", "Bearer not-a-jwt")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", resp.StatusCode)
		}
		if got := resp.Header.Get("WWW-Authenticate"); !strings.Contains(got, `error="invalid_token"`) {
			t.Errorf("challenge = %q, want invalid_token", got)
		}
	})

	t.Run("workspace owner allowed", func(t *testing.T) {
		resp := get(t, "/api/workspaces/ws-1", "Bearer "+wsToken)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var body map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["user"] != "u1" {
			t.Errorf("handler saw user %q, want u1", body["user"])
		}
	})

	t.Run("core admin allowed on workspace route", func(t *testing.T) {
		resp := get(t, "/api/workspaces/ws-1", "Bearer "+coreAdminToken)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
	})

	t.Run("insufficient role", func(t *testing.T) {
		resp := get(t, "/api/health", "Bearer "+coreUserToken)
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", resp.StatusCode)
		}
		if code, _ := errorBody(t, resp); code != http.StatusForbidden {
			t.Errorf("body error code = %d", code)
		}
	})

	t.Run("unknown workspace", func(t *testing.T) {
		resp := get(t, "/api/workspaces/ws-404", "Bearer "+wsToken)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", resp.StatusCode)
		}
		if code, _ := errorBody(t, resp); code != http.StatusNotFound {
			t.Errorf("body error code = %d", code)
		}
	})

	t.Run("core route allowed", func(t *testing.T) {
		resp := get(t, "/api/health", "Bearer "+coreAdminToken)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", resp.StatusCode)
		}
	})
}

func TestProtectedResourceMetadataHandler(t *testing.T) {
	ti := newTestIssuer(t)
	g := ti.newGate(t)

	srv := httptest.NewServer(g.ProtectedResourceMetadataHandler("https://api.contoso.dev", "Contoso TRE API"))
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get metadata: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	var doc struct {
		Resource               string   `json:"resource"`
		AuthorizationServers   []string `json:"authorization_servers"`
		ScopesSupported        []string `json:"scopes_supported"`
		BearerMethodsSupported []string `json:"bearer_methods_supported"`
		ResourceName           string   `json:"resource_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if doc.Resource != "https://api.contoso.dev" {
		t.Errorf("resource = %q", doc.Resource)
	}
	if len(doc.AuthorizationServers) != 1 || doc.AuthorizationServers[0] != ti.issuer {
		t.Errorf("authorization_servers = %v, want [%s]", doc.AuthorizationServers, ti.issuer)
	}
	if len(doc.ScopesSupported) != 1 || doc.ScopesSupported[0] != "api://api-client-id/user_impersonation" {
		t.Errorf("scopes_supported = %v", doc.ScopesSupported)
	}
	if len(doc.BearerMethodsSupported) != 1 || doc.BearerMethodsSupported[0] != "authorization_header" {
		t.Errorf("bearer_methods_supported = %v", doc.BearerMethodsSupported)
	}
	if doc.ResourceName != "Contoso TRE API" {
		t.Errorf("resource_name = %q", doc.ResourceName)
	}
}
