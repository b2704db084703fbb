package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixhub/realtime-backend/internal/core/domain"
	apperrors "github.com/fixhub/realtime-backend/internal/core/errors"
)

func TestRouter_JoinLeaveIdempotent(t *testing.T) {
	r := NewRouter(testLogger())
	scope := domain.TopicScope("deals")

	r.Join("c1", scope)
	r.Join("c1", scope)

	assert.ElementsMatch(t, []string{"c1"}, r.Members(scope))

	r.Leave("c1", scope)
	assert.Empty(t, r.Members(scope))

	// Leaving again is a no-op.
	r.Leave("c1", scope)
	assert.Empty(t, r.Members(scope))
}

func TestRouter_OnAuthenticateJoinsIdentityScopes(t *testing.T) {
	r := NewRouter(testLogger())

	p := domain.Principal{ID: "u1", Role: domain.RoleWorker, TenantID: "shop-7"}
	r.OnAuthenticate("c1", p)

	assert.ElementsMatch(t, []string{"c1"}, r.Members(domain.RoleScope(domain.RoleWorker)))
	assert.ElementsMatch(t, []string{"c1"}, r.Members(domain.PrincipalScope("u1")))
	assert.ElementsMatch(t, []string{"c1"}, r.Members(domain.TenantScope("shop-7")))

	// Same principal again: same membership set, no duplicates.
	r.OnAuthenticate("c1", p)
	assert.Len(t, r.ScopesOf("c1"), 3)
}

func TestRouter_OnAuthenticateWithoutTenant(t *testing.T) {
	r := NewRouter(testLogger())

	r.OnAuthenticate("c1", domain.Principal{ID: "u1", Role: domain.RoleDemo})

	assert.Len(t, r.ScopesOf("c1"), 2)
	assert.Empty(t, r.Members(domain.TenantScope("")))
}

func TestRouter_ReauthenticateReplacesIdentityScopesKeepsTopics(t *testing.T) {
	r := NewRouter(testLogger())

	r.OnAuthenticate("c1", domain.Principal{ID: "u1", Role: domain.RoleWorker})
	require.NoError(t, r.Subscribe("c1", "deals", domain.RoleWorker))

	// Different principal on the same connection.
	r.OnAuthenticate("c1", domain.Principal{ID: "u2", Role: domain.RoleOwner})

	assert.Empty(t, r.Members(domain.RoleScope(domain.RoleWorker)))
	assert.Empty(t, r.Members(domain.PrincipalScope("u1")))
	assert.ElementsMatch(t, []string{"c1"}, r.Members(domain.RoleScope(domain.RoleOwner)))
	assert.ElementsMatch(t, []string{"c1"}, r.Members(domain.PrincipalScope("u2")))
	assert.ElementsMatch(t, []string{"c1"}, r.Members(domain.TopicScope("deals")), "topic subscriptions survive re-authentication")
}

func TestRouter_SubscribeAuthorization(t *testing.T) {
	r := NewRouter(testLogger())

	require.NoError(t, r.Subscribe("c1", "inventory_alerts", domain.RoleWorker))
	require.NoError(t, r.Subscribe("c2", "inventory_alerts", domain.RoleAdmin))

	err := r.Subscribe("c3", "inventory_alerts", domain.RoleDemo)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	assert.NotContains(t, r.Members(domain.TopicScope("inventory_alerts")), "c3", "denied attempt creates no membership")

	err = r.Subscribe("c3", "", domain.RoleAdmin)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTopic)

	// Unrestricted topics are open to any valid role.
	require.NoError(t, r.Subscribe("c3", "deals", domain.RoleDemo))
}

func TestRouter_ResolveUnknownScopeIsEmpty(t *testing.T) {
	r := NewRouter(testLogger())

	assert.Empty(t, r.Resolve(domain.SelectRole(domain.RoleAdmin)))
	assert.Empty(t, r.Resolve(domain.SelectTopic("nothing")))
	assert.Empty(t, r.Resolve(domain.SelectAll()), "all-selector resolves through the registry, not the router")
}

func TestRouter_ResolveRoleIsolation(t *testing.T) {
	r := NewRouter(testLogger())

	r.OnAuthenticate("w1", domain.Principal{ID: "u1", Role: domain.RoleWorker})
	r.OnAuthenticate("w2", domain.Principal{ID: "u2", Role: domain.RoleWorker})
	r.OnAuthenticate("o1", domain.Principal{ID: "u3", Role: domain.RoleOwner})

	assert.ElementsMatch(t, []string{"w1", "w2"}, r.Resolve(domain.SelectRole(domain.RoleWorker)))
	assert.ElementsMatch(t, []string{"o1"}, r.Resolve(domain.SelectRole(domain.RoleOwner)))
	assert.Empty(t, r.Resolve(domain.SelectRole(domain.RoleAdmin)))
}

func TestRouter_RolesWithMembers(t *testing.T) {
	r := NewRouter(testLogger())
	assert.Empty(t, r.RolesWithMembers())

	r.OnAuthenticate("c1", domain.Principal{ID: "u1", Role: domain.RoleWorker})
	r.OnAuthenticate("c2", domain.Principal{ID: "u2", Role: domain.RoleOwner})

	assert.ElementsMatch(t, []domain.Role{domain.RoleWorker, domain.RoleOwner}, r.RolesWithMembers())

	r.RemoveConnection("c1")
	assert.ElementsMatch(t, []domain.Role{domain.RoleOwner}, r.RolesWithMembers())
}

func TestRouter_RemoveConnectionPurgesAllMemberships(t *testing.T) {
	r := NewRouter(testLogger())

	r.OnAuthenticate("c1", domain.Principal{ID: "u1", Role: domain.RoleWorker, TenantID: "shop-7"})
	require.NoError(t, r.Subscribe("c1", "deals", domain.RoleWorker))

	r.RemoveConnection("c1")

	assert.Empty(t, r.ScopesOf("c1"))
	assert.Empty(t, r.Members(domain.RoleScope(domain.RoleWorker)))
	assert.Empty(t, r.Members(domain.TenantScope("shop-7")))
	assert.Empty(t, r.Members(domain.TopicScope("deals")))

	// Unknown connections are a no-op.
	r.RemoveConnection("c1")
}
