package auth

import "fmt"

// User is the authenticated caller. It is constructed exactly once per
// request, from the claims of the single token verification that succeeded,
// and is immutable after construction; role sets are never merged across
// verification attempts.
type User struct {
	ID    string
	Name  string
	Email string
	Roles []string
}

// HasAnyRole reports whether the user holds at least one of the named
// roles.
func (u User) HasAnyRole(roles ...string) bool {
	for _, have := range u.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// UserFromClaims builds a User from verified token claims. The directory
// object id claim ("oid") is required; display name, email and roles are
// optional and default to empty. Role entries that are not strings are
// dropped.
func UserFromClaims(claims map[string]any) (User, error) {
	id, _ := claims["oid"].(string)
	if id == "" {
		return User{}, fmt.Errorf("%w: oid claim missing", ErrUnauthenticated)
	}
	u := User{ID: id}
	u.Name, _ = claims["name"].(string)
	u.Email, _ = claims["email"].(string)
	u.Roles = stringsFromClaim(claims["roles"])
	return u, nil
}

// stringsFromClaim tolerates both decoded-JSON ([]any) and native []string
// shapes for list claims.
func stringsFromClaim(v any) []string {
	switch vv := v.(type) {
	case []string:
		return append([]string(nil), vv...)
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
