// Package wellknown carries the wire types served under /.well-known by
// the gateway.
package wellknown

// ProtectedResourceMetadata is the RFC 9728 document a protected resource
// publishes so clients can discover which authorization server to obtain
// tokens from. Only the fields the gateway advertises are modeled.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers,omitempty"`
	ScopesSupported        []string `json:"scopes_supported,omitempty"`
	BearerMethodsSupported []string `json:"bearer_methods_supported,omitempty"`
	ResourceName           string   `json:"resource_name,omitempty"`
	ResourceDocumentation  string   `json:"resource_documentation,omitempty"`
}
