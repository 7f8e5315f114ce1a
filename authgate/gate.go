package authgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tregate/authgate-go/auth"
	"github.com/tregate/authgate-go/directory"
	"github.com/tregate/authgate-go/internal/jwtauth"
	"github.com/tregate/authgate-go/internal/logctx"
	"github.com/tregate/authgate-go/keys"
	"github.com/tregate/authgate-go/workspace"
)

// Option configures a Gate.
type Option func(*newConfig)

type newConfig struct {
	logger *slog.Logger
	ws     workspace.Store
	kc     *keys.Cache
	dir    *directory.Client
	realm  string
	hc     *http.Client
}

// WithLogger sets the slog logger used by the gate. If not provided,
// slog.Default() is used.
func WithLogger(log *slog.Logger) Option {
	return func(c *newConfig) { c.logger = log }
}

// WithWorkspaceStore sets the workspace lookup used to resolve the
// workspace audience candidate. Defaults to an empty in-memory store.
func WithWorkspaceStore(s workspace.Store) Option {
	return func(c *newConfig) { c.ws = s }
}

// WithKeyCache substitutes a pre-built signing-key cache, e.g. one
// backed by a shared Redis store.
func WithKeyCache(kc *keys.Cache) Option {
	return func(c *newConfig) { c.kc = kc }
}

// WithDirectory substitutes a pre-built directory client.
func WithDirectory(d *directory.Client) Option {
	return func(c *newConfig) { c.dir = d }
}

// WithRealm sets the HTTP authentication realm advertised in
// WWW-Authenticate challenges. If empty (default), the realm attribute
// is omitted per RFC 6750.
func WithRealm(realm string) Option {
	return func(c *newConfig) { c.realm = strings.TrimSpace(realm) }
}

// WithHTTPClient sets the HTTP client used for identity provider and
// directory traffic. Primarily for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *newConfig) { c.hc = hc }
}

// Gate is the authorization gateway. It is stateless across requests
// except for the shared signing-key cache and is safe for concurrent
// use.
type Gate struct {
	cfg    Config
	log    *slog.Logger
	verify *jwtauth.Verifier
	keys   *keys.Cache
	ws     workspace.Store
	dir    *directory.Client
	realm  string
}

var _ auth.Authorizer = (*Gate)(nil)

// New constructs a Gate. The context governs background token refreshes
// for the directory client, not just construction. A directory client is
// built only when cfg carries confidential client credentials (or one is
// injected via WithDirectory); without one the directory-backed
// workflows return errors but Authorize works normally.
func New(ctx context.Context, cfg Config, opts ...Option) (*Gate, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	nc := &newConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(nc)
	}

	log := slog.New(logctx.Handler{Handler: nc.logger.Handler()})

	kc := nc.kc
	if kc == nil {
		kopts := []keys.Option{keys.WithLogger(log)}
		if nc.hc != nil {
			kopts = append(kopts, keys.WithHTTPClient(nc.hc))
		}
		var err error
		kc, err = keys.New(cfg.Authority(), kopts...)
		if err != nil {
			return nil, err
		}
	}

	vcfg := jwtauth.DefaultConfig()
	vcfg.Issuer = cfg.Authority()
	verifier, err := jwtauth.New(vcfg, kc)
	if err != nil {
		return nil, err
	}

	ws := nc.ws
	if ws == nil {
		ws = workspace.NewMemStore()
	}

	dir := nc.dir
	if dir == nil && cfg.ClientID != "" && cfg.ClientSecret != "" {
		dopts := []directory.Option{directory.WithLogger(log)}
		if nc.hc != nil {
			dopts = append(dopts, directory.WithHTTPClient(nc.hc))
		}
		dir, err = directory.New(ctx, directory.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Authority:    cfg.Instance + "/" + cfg.TenantID,
			BaseURL:      cfg.GraphURL,
		}, dopts...)
		if err != nil {
			return nil, err
		}
	}

	return &Gate{
		cfg:    cfg,
		log:    log,
		verify: verifier,
		keys:   kc,
		ws:     ws,
		dir:    dir,
		realm:  nc.realm,
	}, nil
}

// Authorize implements auth.Authorizer. It tries the workspace audience
// candidate first when the requirement is workspace scoped, then falls
// back to the core audience when the requirement names a core role. An
// unknown workspace is terminal: the request addresses a resource that
// does not exist, and no audience fallback may mask that.
func (g *Gate) Authorize(ctx context.Context, token string, req auth.Requirement) (auth.User, error) {
	if strings.TrimSpace(token) == "" {
		return auth.User{}, fmt.Errorf("%w: empty bearer token", auth.ErrUnauthenticated)
	}

	var (
		claims   map[string]any
		verified bool
	)

	if req.WorkspaceID != "" && req.IncludesWorkspaceRole() {
		ws, err := g.ws.GetWorkspace(ctx, req.WorkspaceID)
		switch {
		case errors.Is(err, workspace.ErrNotFound):
			return auth.User{}, err
		case err != nil:
			// Lookup fault: skip the candidate rather than fail the
			// request, the core audience may still authorize it.
			g.log.WarnContext(ctx, "auth.workspace.lookup_fail",
				slog.String("workspace_id", req.WorkspaceID),
				slog.String("err", err.Error()))
		case ws.ClientID == "" || ws.ClientID == workspace.ClientIDAutoCreate:
			g.log.DebugContext(ctx, "auth.workspace.no_client",
				slog.String("workspace_id", req.WorkspaceID))
		default:
			c, err := g.verify.Verify(ctx, token, ws.ClientID)
			if err != nil {
				g.log.DebugContext(ctx, "auth.check.fail",
					slog.String("candidate", "workspace"),
					slog.String("err", err.Error()))
			} else {
				claims = c
				verified = true
			}
		}
	}

	if !verified && req.IncludesCoreRole() {
		c, err := g.verify.Verify(ctx, token, g.cfg.Audience)
		if err != nil {
			g.log.DebugContext(ctx, "auth.check.fail",
				slog.String("candidate", "core"),
				slog.String("err", err.Error()))
		} else {
			claims = c
			verified = true
		}
	}

	if !verified {
		return auth.User{}, auth.ErrUnauthenticated
	}

	user, err := auth.UserFromClaims(claims)
	if err != nil {
		g.log.InfoContext(ctx, "auth.claims.fail", slog.String("err", err.Error()))
		return auth.User{}, err
	}

	if !user.HasAnyRole(req.Roles...) {
		g.log.InfoContext(ctx, "auth.role.denied",
			slog.String("user_id", user.ID))
		return auth.User{}, auth.ErrForbidden
	}

	return user, nil
}
