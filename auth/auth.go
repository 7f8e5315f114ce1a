package auth

import (
	"context"
	"errors"
)

// Verification-layer failures. Each classifies the rejection of one token
// against one audience candidate; callers decide whether another candidate
// applies before treating the request as unauthenticated.
var (
	// ErrMalformedToken indicates the token could not be parsed at all.
	ErrMalformedToken = errors.New("auth: malformed token")

	// ErrInvalidSignature indicates the token's signature did not verify
	// against the resolved signing key.
	ErrInvalidSignature = errors.New("auth: invalid token signature")

	// ErrInvalidAudience indicates the token's aud claim did not match the
	// audience candidate it was verified against.
	ErrInvalidAudience = errors.New("auth: token audience mismatch")
)

// Gate-layer decisions.
var (
	// ErrUnauthenticated indicates no applicable audience candidate produced
	// a verified token. Transports should answer with 401 and a bearer
	// challenge.
	ErrUnauthenticated = errors.New("auth: could not validate credentials")

	// ErrForbidden indicates a verified caller that holds none of the roles
	// an endpoint requires. Transports should answer with 403.
	ErrForbidden = errors.New("auth: caller lacks a required role")

	// ErrInvalidAuthConfig indicates a workspace or directory record is
	// missing required authorization configuration. It is a deployment
	// defect: deterministic, never retried, always surfaced.
	ErrInvalidAuthConfig = errors.New("auth: auth configuration missing or invalid")
)

// Requirement is the role demand an endpoint attaches at configuration
// time: the caller must hold at least one of Roles. WorkspaceID carries the
// request's workspace scope when the route has one; it selects the
// workspace's own application as the first audience candidate whenever
// Roles names a workspace role.
type Requirement struct {
	Roles       []string
	WorkspaceID string
}

// IncludesWorkspaceRole reports whether any required role is workspace
// scoped.
func (r Requirement) IncludesWorkspaceRole() bool {
	return r.includesAny(WorkspaceRoles())
}

// IncludesCoreRole reports whether any required role is granted at the core
// API scope.
func (r Requirement) IncludesCoreRole() bool {
	return r.includesAny(CoreRoles())
}

func (r Requirement) includesAny(names []string) bool {
	for _, have := range r.Roles {
		for _, want := range names {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Authorizer validates a bearer token against a Requirement and resolves
// the caller. Implementations must return ErrUnauthenticated when no
// audience candidate verifies and ErrForbidden when the verified caller
// holds none of the required roles.
type Authorizer interface {
	Authorize(ctx context.Context, token string, req Requirement) (User, error)
}
