// Package auth defines the caller identity and two-tier role model enforced
// by the authorization gateway: core roles granted at the API scope
// (TREAdmin, TREUser) and workspace roles granted against a single
// workspace's own application registration (WorkspaceOwner,
// WorkspaceResearcher, AirlockManager).
//
// The public surface intentionally stays small: an Authorizer validates a
// bearer token against an endpoint's Requirement and returns the resolved
// User (or an error from the taxonomy below). HTTP transports are
// responsible for extracting the token from the request and mapping
// sentinel errors onto status codes and challenges.
//
// # Role resolution
//
// A core-audience token carries its roles directly in the "roles" claim;
// UserFromClaims lifts them into a User. Workspace roles can additionally
// be resolved from directory role-assignment records with
// ResolveWorkspaceRole, which checks assignments against a workspace's
// WorkspaceAuthConfig in priority order (Owner, then Researcher, then
// AirlockManager) and returns WorkspaceRoleNone when nothing matches.
//
// # Errors
//
// ErrMalformedToken, ErrInvalidSignature and ErrInvalidAudience classify
// verification failures for a single audience candidate. ErrUnauthenticated
// signals that every applicable candidate failed; ErrForbidden signals a
// verified caller without any required role. ErrInvalidAuthConfig marks a
// workspace or directory response that is missing required auth
// configuration; such defects are surfaced, never silently defaulted.
//
// Example:
//
//	user, err := az.Authorize(r.Context(), bearerToken, auth.Requirement{
//	    Roles:       []string{auth.RoleTREAdmin, auth.RoleTREUser},
//	    WorkspaceID: r.PathValue("workspace_id"),
//	})
//	if errors.Is(err, auth.ErrUnauthenticated) { /* 401 challenge */ }
//	if errors.Is(err, auth.ErrForbidden) { /* 403 */ }
package auth
