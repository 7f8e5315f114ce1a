package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tregate/authgate-go/auth"
)

// Directory object types reported by getByIds.
const (
	IdentityTypeUser             = "#microsoft.graph.user"
	IdentityTypeServicePrincipal = "#microsoft.graph.servicePrincipal"
)

type batchItem struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	URL    string `json:"url"`
}

type batchEnvelope struct {
	Responses []struct {
		ID     string          `json:"id"`
		Status int             `json:"status"`
		Body   json.RawMessage `json:"body"`
	} `json:"responses"`
}

// PrincipalEmails resolves the email addresses behind a set of role
// assignments in a single batched call. User principals resolve
// directly; Group principals expand to their transitive user members.
// Principals of any other type are skipped, as are entries without a
// mail address. The result maps directory object id to email.
func (c *Client) PrincipalEmails(ctx context.Context, assignments []AppRoleAssignment) (map[string]string, error) {
	items := make([]batchItem, 0, len(assignments))
	kinds := make(map[string]string, len(assignments))
	for _, a := range assignments {
		if a.PrincipalID == "" {
			continue
		}
		if _, seen := kinds[a.PrincipalID]; seen {
			continue
		}
		switch a.PrincipalType {
		case PrincipalTypeUser:
			items = append(items, batchItem{ID: a.PrincipalID, Method: http.MethodGet, URL: "/users/" + a.PrincipalID + "?$select=mail,id"})
		case PrincipalTypeGroup:
			items = append(items, batchItem{ID: a.PrincipalID, Method: http.MethodGet, URL: "/groups/" + a.PrincipalID + "/transitiveMembers?$select=mail,id"})
		default:
			c.log.DebugContext(ctx, "directory.batch.skip",
				slog.String("principal_id", a.PrincipalID),
				slog.String("principal_type", a.PrincipalType))
			continue
		}
		kinds[a.PrincipalID] = a.PrincipalType
	}
	emails := make(map[string]string, len(items))
	if len(items) == 0 {
		return emails, nil
	}

	var envelope batchEnvelope
	body := struct {
		Requests []batchItem `json:"requests"`
	}{Requests: items}
	if err := c.postJSON(ctx, "/$batch", body, &envelope); err != nil {
		return nil, err
	}

	for _, sub := range envelope.Responses {
		if sub.Status < 200 || sub.Status > 299 {
			c.log.DebugContext(ctx, "directory.batch.item.fail",
				slog.String("id", sub.ID),
				slog.Int("status", sub.Status))
			continue
		}
		switch kinds[sub.ID] {
		case PrincipalTypeUser:
			var user struct {
				ID   string  `json:"id"`
				Mail *string `json:"mail"`
			}
			if err := json.Unmarshal(sub.Body, &user); err != nil {
				return nil, fmt.Errorf("%w: decode batch user %s: %v", ErrUnavailable, sub.ID, err)
			}
			if user.Mail == nil || *user.Mail == "" {
				continue
			}
			emails[user.ID] = *user.Mail
		case PrincipalTypeGroup:
			var members struct {
				Value []struct {
					ID   string  `json:"id"`
					Mail *string `json:"mail"`
				} `json:"value"`
			}
			if err := json.Unmarshal(sub.Body, &members); err != nil {
				return nil, fmt.Errorf("%w: decode batch group %s: %v", ErrUnavailable, sub.ID, err)
			}
			for _, m := range members.Value {
				if m.Mail == nil || *m.Mail == "" {
					continue
				}
				emails[m.ID] = *m.Mail
			}
		}
	}
	return emails, nil
}

// IdentityType resolves whether an object id is a user or a service
// principal. Exactly one typed object must come back; anything else
// means the id cannot participate in role resolution.
func (c *Client) IdentityType(ctx context.Context, objectID string) (string, error) {
	body := struct {
		IDs   []string `json:"ids"`
		Types []string `json:"types"`
	}{
		IDs:   []string{objectID},
		Types: []string{"user", "servicePrincipal"},
	}
	var envelope struct {
		Value []struct {
			ODataType string `json:"@odata.type"`
		} `json:"value"`
	}
	if err := c.postJSON(ctx, "/directoryObjects/getByIds", body, &envelope); err != nil {
		return "", err
	}
	if len(envelope.Value) != 1 || envelope.Value[0].ODataType == "" {
		return "", fmt.Errorf("%w: could not determine identity type of %q", auth.ErrInvalidAuthConfig, objectID)
	}
	return envelope.Value[0].ODataType, nil
}

// PrincipalRoleAssignments lists the app role assignments held by a
// principal, routing through the user or servicePrincipal resource
// according to the principal's identity type.
func (c *Client) PrincipalRoleAssignments(ctx context.Context, principalID string) ([]auth.RoleAssignment, error) {
	kind, err := c.IdentityType(ctx, principalID)
	if err != nil {
		return nil, err
	}
	var path string
	switch kind {
	case IdentityTypeUser:
		path = "/users/" + url.PathEscape(principalID) + "/appRoleAssignments"
	case IdentityTypeServicePrincipal:
		path = "/servicePrincipals/" + url.PathEscape(principalID) + "/appRoleAssignments"
	default:
		return nil, fmt.Errorf("%w: unhandled identity type %q for %q", auth.ErrInvalidAuthConfig, kind, principalID)
	}
	var envelope struct {
		Value *[]struct {
			AppRoleID  string `json:"appRoleId"`
			ResourceID string `json:"resourceId"`
		} `json:"value"`
	}
	if err := c.getJSON(ctx, path, &envelope); err != nil {
		return nil, err
	}
	if envelope.Value == nil {
		return nil, fmt.Errorf("%w: role assignments for %q have no value", auth.ErrInvalidAuthConfig, principalID)
	}
	out := make([]auth.RoleAssignment, 0, len(*envelope.Value))
	for _, a := range *envelope.Value {
		out = append(out, auth.RoleAssignment{ResourceID: a.ResourceID, RoleID: a.AppRoleID})
	}
	return out, nil
}
