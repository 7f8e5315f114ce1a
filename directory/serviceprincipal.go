package directory

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tregate/authgate-go/auth"
)

// Principal types as they appear on app role assignments.
const (
	PrincipalTypeUser  = "User"
	PrincipalTypeGroup = "Group"
)

// AppRole is a role defined on an application, carried by its service
// principal. Value is the role name that ends up in token role claims.
type AppRole struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// ServicePrincipal is the subset of the directory's servicePrincipal
// object the gateway consumes.
type ServicePrincipal struct {
	ID                    string    `json:"id"`
	ServicePrincipalNames []string  `json:"servicePrincipalNames"`
	AppRoles              []AppRole `json:"appRoles"`
}

// AppRoleAssignment links a principal (user, group, or service
// principal) to a role defined on a resource application.
type AppRoleAssignment struct {
	AppRoleID     string `json:"appRoleId"`
	PrincipalID   string `json:"principalId"`
	PrincipalType string `json:"principalType"`
}

// ServicePrincipalByAppID looks up the service principal for an
// application (client) id. A missing principal is a configuration
// problem, not a transport one.
func (c *Client) ServicePrincipalByAppID(ctx context.Context, appID string) (*ServicePrincipal, error) {
	if appID == "" {
		return nil, fmt.Errorf("%w: empty application id", auth.ErrInvalidAuthConfig)
	}
	var envelope struct {
		Value []ServicePrincipal `json:"value"`
	}
	path := "/servicePrincipals?$filter=" + url.QueryEscape("appId eq '"+appID+"'")
	if err := c.getJSON(ctx, path, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Value) == 0 {
		return nil, fmt.Errorf("%w: no service principal for application %q", auth.ErrInvalidAuthConfig, appID)
	}
	sp := envelope.Value[0]
	return &sp, nil
}

// ListRoleAssignments returns every app role assignment granted on the
// service principal identified by its object id.
func (c *Client) ListRoleAssignments(ctx context.Context, spObjectID string) ([]AppRoleAssignment, error) {
	var envelope struct {
		Value *[]AppRoleAssignment `json:"value"`
	}
	path := "/servicePrincipals/" + url.PathEscape(spObjectID) + "/appRoleAssignedTo?$select=appRoleId,principalId,principalType"
	if err := c.getJSON(ctx, path, &envelope); err != nil {
		return nil, err
	}
	if envelope.Value == nil {
		return nil, fmt.Errorf("%w: role assignment listing for %q has no value", auth.ErrInvalidAuthConfig, spObjectID)
	}
	return *envelope.Value, nil
}

// AppAuthInfo resolves the auth material for a workspace application:
// the service principal's object id, its first servicePrincipalNames
// entry (used as the token scope/audience id), and the app role ids for
// the workspace roles it defines. Roles the application does not define
// are simply absent from the map; callers decide whether that is fatal.
func (c *Client) AppAuthInfo(ctx context.Context, clientID string) (auth.WorkspaceAuthConfig, error) {
	sp, err := c.ServicePrincipalByAppID(ctx, clientID)
	if err != nil {
		return auth.WorkspaceAuthConfig{}, err
	}
	if len(sp.ServicePrincipalNames) == 0 {
		return auth.WorkspaceAuthConfig{}, fmt.Errorf("%w: service principal %s has no servicePrincipalNames", auth.ErrInvalidAuthConfig, sp.ID)
	}
	cfg := auth.WorkspaceAuthConfig{
		ServicePrincipalID: sp.ID,
		ScopeID:            sp.ServicePrincipalNames[0],
		RoleIDs:            make(map[string]string, 3),
	}
	for _, role := range sp.AppRoles {
		switch role.Value {
		case auth.RoleWorkspaceOwner, auth.RoleWorkspaceResearcher, auth.RoleAirlockManager:
			cfg.RoleIDs[role.Value] = role.ID
		}
	}
	return cfg, nil
}
