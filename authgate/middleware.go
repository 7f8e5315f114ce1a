package authgate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"

	"github.com/tregate/authgate-go/auth"
	"github.com/tregate/authgate-go/directory"
	"github.com/tregate/authgate-go/internal/logctx"
	"github.com/tregate/authgate-go/internal/wellknown"
	"github.com/tregate/authgate-go/workspace"
)

const (
	authorizationHeader   = "Authorization"
	wwwAuthenticateHeader = "WWW-Authenticate"
)

var jsonMediaType = contenttype.NewMediaType("application/json")

type userContextKey struct{}

// UserFromContext returns the caller that Require placed in the request
// context after successful authorization.
func UserFromContext(ctx context.Context) (auth.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(auth.User)
	return u, ok
}

// writeJSONError emits a minimal JSON body for gateway rejections.
// Shape: {"error":{"code":<httpStatus>,"message":"<reason>"}}
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": status, "message": msg}})
}

// buildBearerChallenge builds a Bearer challenge header value. Realm is
// omitted if empty. Params are emitted in the order error,
// error_description; Go map iteration would not be deterministic.
func buildBearerChallenge(realm string, params map[string]string) string {
	pieces := make([]string, 0, 1+len(params))
	esc := func(v string) string { return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) }
	if realm != "" {
		pieces = append(pieces, fmt.Sprintf(`realm="%s"`, esc(realm)))
	}
	if params != nil {
		if v, ok := params["error"]; ok {
			pieces = append(pieces, fmt.Sprintf(`error="%s"`, esc(v)))
		}
		if v, ok := params["error_description"]; ok {
			pieces = append(pieces, fmt.Sprintf(`error_description="%s"`, esc(v)))
		}
	}
	if len(pieces) == 0 {
		return "Bearer"
	}
	return "Bearer " + strings.Join(pieces, ", ")
}

// Require builds middleware enforcing that the caller holds at least one
// of roles. When the wrapped route carries a {workspace_id} path value,
// the requirement is scoped to that workspace and the workspace audience
// becomes the first verification candidate.
func (g *Gate) Require(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logctx.WithRequestData(r.Context(), &logctx.RequestData{
				RequestID:  uuid.NewString(),
				Method:     r.Method,
				UserAgent:  r.UserAgent(),
				RemoteAddr: r.RemoteAddr,
				Path:       r.URL.Path,
			})

			authHeader := r.Header.Get(authorizationHeader)
			if authHeader == "" {
				// RFC 6750 §3.1: no authentication information means no
				// error code, just a bare challenge.
				g.log.InfoContext(ctx, "auth.check.missing")
				w.Header().Add(wwwAuthenticateHeader, buildBearerChallenge(g.realm, nil))
				writeJSONError(w, http.StatusUnauthorized, "missing bearer credentials")
				return
			}
			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(authHeader, bearerPrefix) || len(strings.TrimSpace(authHeader)) <= len(bearerPrefix) {
				g.log.InfoContext(ctx, "auth.check.invalid", slog.String("err", "malformed bearer authorization header"))
				w.Header().Add(wwwAuthenticateHeader, buildBearerChallenge(g.realm, map[string]string{
					"error":             "invalid_request",
					"error_description": "malformed bearer authorization header",
				}))
				writeJSONError(w, http.StatusUnauthorized, "could not validate credentials")
				return
			}
			token := strings.TrimSpace(authHeader[len(bearerPrefix):])

			req := auth.Requirement{Roles: roles, WorkspaceID: r.PathValue("workspace_id")}
			ctx = logctx.WithAuthData(ctx, &logctx.AuthData{WorkspaceID: req.WorkspaceID})

			user, err := g.Authorize(ctx, token, req)
			if err != nil {
				g.deny(ctx, w, err)
				return
			}

			ctx = logctx.WithAuthData(ctx, &logctx.AuthData{UserID: user.ID, WorkspaceID: req.WorkspaceID})
			ctx = context.WithValue(ctx, userContextKey{}, user)
			g.log.InfoContext(ctx, "auth.check.ok")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// deny classifies an Authorize failure onto the HTTP surface.
func (g *Gate) deny(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		g.log.InfoContext(ctx, "auth.check.fail", slog.String("err", err.Error()))
		w.Header().Add(wwwAuthenticateHeader, buildBearerChallenge(g.realm, map[string]string{
			"error":             "invalid_token",
			"error_description": "could not validate credentials",
		}))
		writeJSONError(w, http.StatusUnauthorized, "could not validate credentials")
	case errors.Is(err, auth.ErrForbidden):
		g.log.InfoContext(ctx, "auth.role.denied", slog.String("err", err.Error()))
		writeJSONError(w, http.StatusForbidden, "caller lacks a required role")
	case errors.Is(err, workspace.ErrNotFound):
		g.log.InfoContext(ctx, "auth.workspace.missing", slog.String("err", err.Error()))
		writeJSONError(w, http.StatusNotFound, "workspace not found")
	case errors.Is(err, auth.ErrInvalidAuthConfig):
		g.log.ErrorContext(ctx, "auth.config.invalid", slog.String("err", err.Error()))
		writeJSONError(w, http.StatusInternalServerError, "auth configuration missing or invalid")
	case errors.Is(err, directory.ErrUnavailable):
		g.log.ErrorContext(ctx, "auth.directory.unavailable", slog.String("err", err.Error()))
		writeJSONError(w, http.StatusBadGateway, "directory service unavailable")
	default:
		g.log.ErrorContext(ctx, "auth.check.err", slog.String("err", err.Error()))
		writeJSONError(w, http.StatusInternalServerError, "authorization failed")
	}
}

// ProtectedResourceMetadataHandler serves the RFC 9728 document
// advertising which authorization server protects this resource.
// resource is the externally visible URL of the API; name is a
// human-readable label and may be empty.
func (g *Gate) ProtectedResourceMetadataHandler(resource, name string) http.Handler {
	doc := wellknown.ProtectedResourceMetadata{
		Resource:               resource,
		AuthorizationServers:   []string{g.cfg.Authority()},
		ScopesSupported:        []string{"api://" + g.cfg.Audience + "/user_impersonation"},
		BearerMethodsSupported: []string{"authorization_header"},
		ResourceName:           name,
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", jsonMediaType.String())
		_ = json.NewEncoder(w).Encode(doc)
	})
}
