// Package authgate decides, per request, whether a bearer token is valid
// and whether its caller holds a role the endpoint requires. It mounts as
// standard net/http middleware and reports every decision through the
// auth package's sentinel errors.
//
// Responsibilities
//   - Audience candidate selection (workspace app registration, then core API audience)
//   - Token verification against cached provider signing keys
//   - Role screening (token role claims vs. the endpoint's required roles)
//   - HTTP classification (401 bearer challenge, 403, 404, 5xx) via Require
//   - Directory-backed workspace workflows (assigned role, owner/researcher rosters)
//
// Construction
//
//	cfg := authgate.NewConfigFromEnv()
//	g, err := authgate.New(ctx, cfg,
//	    authgate.WithLogger(log),
//	    authgate.WithWorkspaceStore(store),
//	)
//
// # Audience Candidates
//
// A requirement naming a workspace role is first checked against the
// workspace's own app registration, resolved through the workspace
// store. A requirement naming a core role falls back to the core API
// audience. Individual candidate failures are swallowed and logged;
// only exhaustion of all applicable candidates yields
// auth.ErrUnauthenticated. An unknown workspace id is terminal and maps
// to 404 rather than falling through, so a caller can tell a bad token
// from a bad workspace reference.
//
// # Error Handling
//
// Authorize returns the auth package taxonomy. Require translates it to
// HTTP statuses, writes JSON error bodies, and emits an RFC 6750
// WWW-Authenticate challenge on 401. Directory transport faults surface
// as 502, workspace auth-configuration defects as 500.
//
// Example (mount in net/http):
//
//	mux := http.NewServeMux()
//	mux.Handle("GET /api/workspaces/{workspace_id}",
//	    g.Require(auth.WorkspaceRoles()...)(handler))
package authgate
