package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/tregate/authgate-go/auth"
	"github.com/tregate/authgate-go/directory"
	"github.com/tregate/authgate-go/workspace"
)

var errNoDirectory = errors.New("authgate: no directory client configured")

// ExtractWorkspaceAuthConfig resolves the auth material for a workspace
// application at registration time: its service principal, scope id, and
// the app role ids behind the three workspace roles. The auto-create
// marker yields a zero config; the provisioner registers the application
// later and the material is extracted on a subsequent pass.
func (g *Gate) ExtractWorkspaceAuthConfig(ctx context.Context, clientID string) (auth.WorkspaceAuthConfig, error) {
	if clientID == workspace.ClientIDAutoCreate {
		return auth.WorkspaceAuthConfig{}, nil
	}
	if g.dir == nil {
		return auth.WorkspaceAuthConfig{}, errNoDirectory
	}
	cfg, err := g.dir.AppAuthInfo(ctx, clientID)
	if err != nil {
		return auth.WorkspaceAuthConfig{}, err
	}
	for _, role := range auth.WorkspaceRoles() {
		if cfg.RoleIDs[role] == "" {
			return auth.WorkspaceAuthConfig{}, fmt.Errorf("%w: workspace application %s does not define the %s role", auth.ErrInvalidAuthConfig, clientID, role)
		}
	}
	return cfg, nil
}

// AssignedWorkspaceRole resolves which workspace role a principal holds
// on ws, consulting the directory for the principal's role assignments.
func (g *Gate) AssignedWorkspaceRole(ctx context.Context, principalID string, ws *workspace.Workspace) (auth.WorkspaceRole, error) {
	if g.dir == nil {
		return auth.WorkspaceRoleNone, errNoDirectory
	}
	cfg, err := ws.AuthConfig()
	if err != nil {
		return auth.WorkspaceRoleNone, err
	}
	assignments, err := g.dir.PrincipalRoleAssignments(ctx, principalID)
	if err != nil {
		return auth.WorkspaceRoleNone, err
	}
	return auth.ResolveWorkspaceRole(cfg, assignments)
}

// RoleDetails carries the contact lists for a workspace's governing
// roles.
type RoleDetails struct {
	OwnerEmails      []string
	ResearcherEmails []string
}

// WorkspaceRoleDetails lists the email addresses of users holding the
// Owner and Researcher roles on ws. Only User principals land in the
// lists; group assignments contribute nothing here even though their
// members are resolved, and principals without a mail address are
// omitted.
func (g *Gate) WorkspaceRoleDetails(ctx context.Context, ws *workspace.Workspace) (RoleDetails, error) {
	if g.dir == nil {
		return RoleDetails{}, errNoDirectory
	}
	cfg, err := ws.AuthConfig()
	if err != nil {
		return RoleDetails{}, err
	}
	assignments, err := g.dir.ListRoleAssignments(ctx, cfg.ServicePrincipalID)
	if err != nil {
		return RoleDetails{}, err
	}
	emails, err := g.dir.PrincipalEmails(ctx, assignments)
	if err != nil {
		return RoleDetails{}, err
	}
	var details RoleDetails
	for _, a := range assignments {
		if a.PrincipalType != directory.PrincipalTypeUser {
			continue
		}
		mail, ok := emails[a.PrincipalID]
		if !ok {
			continue
		}
		switch a.AppRoleID {
		case cfg.RoleIDs[auth.RoleWorkspaceOwner]:
			details.OwnerEmails = append(details.OwnerEmails, mail)
		case cfg.RoleIDs[auth.RoleWorkspaceResearcher]:
			details.ResearcherEmails = append(details.ResearcherEmails, mail)
		}
	}
	return details, nil
}
