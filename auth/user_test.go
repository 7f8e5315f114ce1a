package auth

import (
	"errors"
	"testing"
)

func TestUserFromClaims(t *testing.T) {
	claims := map[string]any{
		"oid":   "u1",
		"name":  "Ada Lovelace",
		"email": "ada@example.test",
		"roles": []any{"TREAdmin", "TREUser"},
	}

	u, err := UserFromClaims(claims)
	if err != nil {
		t.Fatalf("UserFromClaims() failed: %v", err)
	}
	if u.ID != "u1" {
		t.Fatalf("ID = %q, want %q", u.ID, "u1")
	}
	if u.Name != "Ada Lovelace" || u.Email != "ada@example.test" {
		t.Fatalf("unexpected identity fields: %+v", u)
	}
	if len(u.Roles) != 2 || u.Roles[0] != RoleTREAdmin || u.Roles[1] != RoleTREUser {
		t.Fatalf("Roles = %v, want [TREAdmin TREUser]", u.Roles)
	}
}

func TestUserFromClaimsDefaults(t *testing.T) {
	u, err := UserFromClaims(map[string]any{"oid": "u2"})
	if err != nil {
		t.Fatalf("UserFromClaims() failed: %v", err)
	}
	if u.Name != "" || u.Email != "" || len(u.Roles) != 0 {
		t.Fatalf("expected empty defaults, got %+v", u)
	}
}

func TestUserFromClaimsRequiresOid(t *testing.T) {
	for name, claims := range map[string]map[string]any{
		"absent":     {"name": "nobody"},
		"empty":      {"oid": ""},
		"non-string": {"oid": 42},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := UserFromClaims(claims)
			if !errors.Is(err, ErrUnauthenticated) {
				t.Fatalf("UserFromClaims() err = %v, want ErrUnauthenticated", err)
			}
		})
	}
}

func TestUserFromClaimsSkipsNonStringRoles(t *testing.T) {
	u, err := UserFromClaims(map[string]any{"oid": "u3", "roles": []any{"TREUser", 7, nil}})
	if err != nil {
		t.Fatalf("UserFromClaims() failed: %v", err)
	}
	if len(u.Roles) != 1 || u.Roles[0] != RoleTREUser {
		t.Fatalf("Roles = %v, want [TREUser]", u.Roles)
	}
}

func TestHasAnyRole(t *testing.T) {
	u := User{ID: "u1", Roles: []string{RoleTREUser}}
	if !u.HasAnyRole(RoleTREAdmin, RoleTREUser) {
		t.Fatal("expected TREUser to satisfy {TREAdmin, TREUser}")
	}
	if u.HasAnyRole(RoleTREAdmin) {
		t.Fatal("did not expect TREUser to satisfy {TREAdmin}")
	}
	if (User{}).HasAnyRole(RoleTREUser) {
		t.Fatal("user with no roles should satisfy nothing")
	}
}
