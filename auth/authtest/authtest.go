// Package authtest provides a canned Authorizer for testing handlers
// without an identity provider or directory service.
package authtest

import (
	"context"

	"github.com/tregate/authgate-go/auth"
)

// Static is an Authorizer that always resolves the same user. Err, when
// set, is returned for every call. Role requirements are still enforced so
// handler tests observe realistic Forbidden outcomes.
type Static struct {
	User auth.User
	Err  error
}

var _ auth.Authorizer = (*Static)(nil)

// NewStatic returns a Static authorizer for the given user. A user with no
// ID defaults to "test-user".
func NewStatic(user auth.User) *Static {
	if user.ID == "" {
		user.ID = "test-user"
	}
	return &Static{User: user}
}

// Authorize implements auth.Authorizer.
func (s *Static) Authorize(_ context.Context, _ string, req auth.Requirement) (auth.User, error) {
	if s.Err != nil {
		return auth.User{}, s.Err
	}
	if len(req.Roles) > 0 && !s.User.HasAnyRole(req.Roles...) {
		return auth.User{}, auth.ErrForbidden
	}
	return s.User, nil
}
