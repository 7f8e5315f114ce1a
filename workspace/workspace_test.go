package workspace

import (
	"context"
	"errors"
	"testing"

	"github.com/tregate/authgate-go/auth"
)

func validWorkspace() Workspace {
	return Workspace{
		ID:                   "ws-1",
		DisplayName:          "Research Workspace One",
		ClientID:             "ws-client-1",
		ServicePrincipalID:   "sp-obj-1",
		ScopeID:              "api://ws-client-1",
		OwnerRoleID:          "owner-role",
		ResearcherRoleID:     "researcher-role",
		AirlockManagerRoleID: "airlock-role",
	}
}

func TestMemStore(t *testing.T) {
	s := NewMemStore()
	s.Add(validWorkspace())

	ws, err := s.GetWorkspace(context.Background(), "ws-1")
	if err != nil {
		t.Fatalf("GetWorkspace() failed: %v", err)
	}
	if ws.ClientID != "ws-client-1" {
		t.Fatalf("ClientID = %q, want ws-client-1", ws.ClientID)
	}

	if _, err := s.GetWorkspace(context.Background(), "ws-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAuthConfig(t *testing.T) {
	ws := validWorkspace()
	cfg, err := ws.AuthConfig()
	if err != nil {
		t.Fatalf("AuthConfig() failed: %v", err)
	}
	if cfg.ServicePrincipalID != "sp-obj-1" || cfg.ScopeID != "api://ws-client-1" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.RoleIDs[auth.RoleWorkspaceOwner] != "owner-role" ||
		cfg.RoleIDs[auth.RoleWorkspaceResearcher] != "researcher-role" ||
		cfg.RoleIDs[auth.RoleAirlockManager] != "airlock-role" {
		t.Fatalf("unexpected role ids: %v", cfg.RoleIDs)
	}
}

func TestAuthConfigInvalid(t *testing.T) {
	cases := map[string]func(*Workspace){
		"missing service principal": func(w *Workspace) { w.ServicePrincipalID = "" },
		"missing owner role":        func(w *Workspace) { w.OwnerRoleID = "" },
		"missing researcher role":   func(w *Workspace) { w.ResearcherRoleID = "" },
		"missing airlock role":      func(w *Workspace) { w.AirlockManagerRoleID = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			ws := validWorkspace()
			mutate(&ws)
			if _, err := ws.AuthConfig(); !errors.Is(err, auth.ErrInvalidAuthConfig) {
				t.Fatalf("err = %v, want ErrInvalidAuthConfig", err)
			}
		})
	}
}
