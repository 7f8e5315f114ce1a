package auth

import "fmt"

// Core roles are granted on the API's own application registration and
// arrive as claims in core-audience tokens.
const (
	RoleTREAdmin = "TREAdmin"
	RoleTREUser  = "TREUser"
)

// Workspace roles are granted on a single workspace's application
// registration and are validated against that workspace's audience.
const (
	RoleWorkspaceOwner      = "WorkspaceOwner"
	RoleWorkspaceResearcher = "WorkspaceResearcher"
	RoleAirlockManager      = "AirlockManager"
)

// CoreRoles returns the core role names.
func CoreRoles() []string {
	return []string{RoleTREAdmin, RoleTREUser}
}

// WorkspaceRoles returns the workspace role names in resolution priority
// order.
func WorkspaceRoles() []string {
	return []string{RoleWorkspaceOwner, RoleWorkspaceResearcher, RoleAirlockManager}
}

// WorkspaceRole is the resolved workspace-scoped role of one principal on
// one workspace.
type WorkspaceRole string

const (
	WorkspaceRoleNone       WorkspaceRole = ""
	WorkspaceRoleOwner      WorkspaceRole = RoleWorkspaceOwner
	WorkspaceRoleResearcher WorkspaceRole = RoleWorkspaceResearcher
	WorkspaceRoleAirlock    WorkspaceRole = RoleAirlockManager
)

// RoleAssignment links a principal to one app role on one resource, as
// recorded by the directory service. It is a value type; membership tests
// use structural equality on both fields.
type RoleAssignment struct {
	ResourceID string
	RoleID     string
}

// WorkspaceAuthConfig is the auth-relevant subset of a workspace's
// registration, captured once at workspace creation and read-only after:
// the workspace's service principal, its scope identifier, and the app role
// id backing each workspace role name.
type WorkspaceAuthConfig struct {
	ServicePrincipalID string
	ScopeID            string

	// RoleIDs maps a workspace role name to the app role id the directory
	// issues assignments under. All three workspace roles must be present.
	RoleIDs map[string]string
}

// Validate returns ErrInvalidAuthConfig when the service principal or any
// of the three workspace role id mappings is absent.
func (c WorkspaceAuthConfig) Validate() error {
	if c.ServicePrincipalID == "" {
		return fmt.Errorf("%w: workspace service principal id missing", ErrInvalidAuthConfig)
	}
	for _, role := range WorkspaceRoles() {
		if c.RoleIDs[role] == "" {
			return fmt.Errorf("%w: app role id for %s missing", ErrInvalidAuthConfig, role)
		}
	}
	return nil
}

// ResolveWorkspaceRole maps a caller's directory role assignments onto the
// workspace role model. Roles are checked in priority order (Owner, then
// Researcher, then AirlockManager) and the first assignment match wins.
// WorkspaceRoleNone is returned when no assignment matches any configured
// role id.
func ResolveWorkspaceRole(cfg WorkspaceAuthConfig, assignments []RoleAssignment) (WorkspaceRole, error) {
	if err := cfg.Validate(); err != nil {
		return WorkspaceRoleNone, err
	}
	for _, role := range WorkspaceRoles() {
		want := RoleAssignment{ResourceID: cfg.ServicePrincipalID, RoleID: cfg.RoleIDs[role]}
		for _, have := range assignments {
			if have == want {
				return WorkspaceRole(role), nil
			}
		}
	}
	return WorkspaceRoleNone, nil
}
