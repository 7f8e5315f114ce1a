package authtest

import (
	"context"
	"errors"
	"testing"

	"github.com/tregate/authgate-go/auth"
)

func TestStaticResolvesUser(t *testing.T) {
	a := NewStatic(auth.User{ID: "u1", Roles: []string{auth.RoleTREAdmin}})

	user, err := a.Authorize(context.Background(), "any-token", auth.Requirement{Roles: []string{auth.RoleTREAdmin}})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("user id = %q, want u1", user.ID)
	}
}

func TestStaticDefaultsUserID(t *testing.T) {
	a := NewStatic(auth.User{Roles: []string{auth.RoleTREUser}})

	user, err := a.Authorize(context.Background(), "", auth.Requirement{})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if user.ID != "test-user" {
		t.Fatalf("user id = %q, want test-user", user.ID)
	}
}

func TestStaticEnforcesRoles(t *testing.T) {
	a := NewStatic(auth.User{ID: "u1", Roles: []string{auth.RoleWorkspaceResearcher}})

	_, err := a.Authorize(context.Background(), "any-token", auth.Requirement{Roles: []string{auth.RoleWorkspaceOwner}})
	if !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestStaticErrPassthrough(t *testing.T) {
	a := &Static{Err: auth.ErrUnauthenticated}

	_, err := a.Authorize(context.Background(), "any-token", auth.Requirement{Roles: []string{auth.RoleTREAdmin}})
	if !errors.Is(err, auth.ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}
