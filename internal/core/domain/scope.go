package domain

// ScopeKind distinguishes the four addressable multicast group families.
type ScopeKind string

const (
	ScopeKindRole      ScopeKind = "role"
	ScopeKindPrincipal ScopeKind = "principal"
	ScopeKindTenant    ScopeKind = "tenant"
	ScopeKindTopic     ScopeKind = "topic"
)

// Scope is an addressable multicast group of connections. Scopes are created
// lazily on first join and garbage-collected when membership reaches zero, so
// a Scope value is just an address, never a handle to live state.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	Key  string    `json:"key"`
}

func RoleScope(r Role) Scope         { return Scope{Kind: ScopeKindRole, Key: string(r)} }
func PrincipalScope(id string) Scope { return Scope{Kind: ScopeKindPrincipal, Key: id} }
func TenantScope(id string) Scope    { return Scope{Kind: ScopeKindTenant, Key: id} }
func TopicScope(name string) Scope   { return Scope{Kind: ScopeKindTopic, Key: name} }

// SelectorKind distinguishes publish target selectors.
type SelectorKind string

const (
	SelectAllKind       SelectorKind = "all"
	SelectRoleKind      SelectorKind = "role"
	SelectPrincipalKind SelectorKind = "principal"
	SelectTenantKind    SelectorKind = "tenant"
	SelectTopicKind     SelectorKind = "topic"
)

// Selector names the audience of a publish call. It is resolved to a live
// connection set at publish time, never cached.
type Selector struct {
	Kind SelectorKind
	Key  string
}

func SelectAll() Selector                { return Selector{Kind: SelectAllKind} }
func SelectRole(r Role) Selector         { return Selector{Kind: SelectRoleKind, Key: string(r)} }
func SelectPrincipal(id string) Selector { return Selector{Kind: SelectPrincipalKind, Key: id} }
func SelectTenant(id string) Selector    { return Selector{Kind: SelectTenantKind, Key: id} }
func SelectTopic(name string) Selector   { return Selector{Kind: SelectTopicKind, Key: name} }

// Scope translates a non-all selector into the scope it addresses.
func (s Selector) Scope() (Scope, bool) {
	switch s.Kind {
	case SelectRoleKind:
		return Scope{Kind: ScopeKindRole, Key: s.Key}, true
	case SelectPrincipalKind:
		return Scope{Kind: ScopeKindPrincipal, Key: s.Key}, true
	case SelectTenantKind:
		return Scope{Kind: ScopeKindTenant, Key: s.Key}, true
	case SelectTopicKind:
		return Scope{Kind: ScopeKindTopic, Key: s.Key}, true
	default:
		return Scope{}, false
	}
}
