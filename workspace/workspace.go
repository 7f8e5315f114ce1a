// Package workspace models the per-workspace registration data the
// gateway needs to validate workspace-audience tokens, and the Store
// seam the gateway resolves workspaces through.
package workspace

import (
	"context"
	"errors"
	"sync"

	"github.com/tregate/authgate-go/auth"
)

// ErrNotFound is returned by a Store when no workspace exists under the
// requested id.
var ErrNotFound = errors.New("workspace: not found")

// ClientIDAutoCreate marks a workspace whose application registration
// will be created by the provisioner after the fact. Such workspaces
// have no auth material yet.
const ClientIDAutoCreate = "auto_create"

// Workspace carries the auth-relevant registration properties of one
// workspace. Captured when the workspace is created; read-only after.
type Workspace struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`

	// ClientID is the application (client) id of the workspace's own
	// registration. Workspace-audience tokens carry it as their aud.
	ClientID string `json:"client_id"`

	// ServicePrincipalID is the directory object id of the workspace
	// application's service principal.
	ServicePrincipalID string `json:"service_principal_id"`

	// ScopeID is the identifier URI callers request tokens for, e.g.
	// "api://<client id>".
	ScopeID string `json:"scope_id"`

	OwnerRoleID          string `json:"owner_role_id"`
	ResearcherRoleID     string `json:"researcher_role_id"`
	AirlockManagerRoleID string `json:"airlock_manager_role_id"`
}

// AuthConfig projects the workspace onto the role-resolution config,
// validating that the service principal and all three role ids are
// present.
func (w *Workspace) AuthConfig() (auth.WorkspaceAuthConfig, error) {
	cfg := auth.WorkspaceAuthConfig{
		ServicePrincipalID: w.ServicePrincipalID,
		ScopeID:            w.ScopeID,
		RoleIDs: map[string]string{
			auth.RoleWorkspaceOwner:      w.OwnerRoleID,
			auth.RoleWorkspaceResearcher: w.ResearcherRoleID,
			auth.RoleAirlockManager:      w.AirlockManagerRoleID,
		},
	}
	if err := cfg.Validate(); err != nil {
		return auth.WorkspaceAuthConfig{}, err
	}
	return cfg, nil
}

// Store resolves workspace ids to workspaces. Implementations must be
// safe for concurrent use and must return ErrNotFound (possibly
// wrapped) for unknown ids.
type Store interface {
	GetWorkspace(ctx context.Context, id string) (*Workspace, error)
}

// MemStore is an in-memory Store for tests and embedded setups.
type MemStore struct {
	mu  sync.RWMutex
	all map[string]Workspace
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{all: make(map[string]Workspace)}
}

// Add inserts or replaces a workspace keyed by its ID.
func (s *MemStore) Add(ws Workspace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all[ws.ID] = ws
}

func (s *MemStore) GetWorkspace(ctx context.Context, id string) (*Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.all[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ws, nil
}
