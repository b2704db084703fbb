package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixhub/realtime-backend/internal/core/domain"
)

type pubFixture struct {
	registry  *Registry
	router    *Router
	publisher *Publisher
}

func newPubFixture() *pubFixture {
	registry := NewRegistry(testLogger())
	router := NewRouter(testLogger())
	return &pubFixture{
		registry:  registry,
		router:    router,
		publisher: NewPublisher(registry, router, testLogger()),
	}
}

func (f *pubFixture) connect(t *testing.T, connID string, p *domain.Principal) *testSink {
	t.Helper()
	sink := &testSink{}
	f.registry.Register(connID, sink)
	if p != nil {
		require.NoError(t, f.registry.AttachPrincipal(connID, *p))
		f.router.OnAuthenticate(connID, *p)
	}
	return sink
}

func TestPublisher_PublishToRoleReachesOnlyThatRole(t *testing.T) {
	f := newPubFixture()

	worker1 := f.connect(t, "w1", &domain.Principal{ID: "u1", Role: domain.RoleWorker})
	worker2 := f.connect(t, "w2", &domain.Principal{ID: "u2", Role: domain.RoleWorker})
	owner := f.connect(t, "o1", &domain.Principal{ID: "u3", Role: domain.RoleOwner})
	anon := f.connect(t, "a1", nil)

	f.publisher.PublishToRole(domain.RoleWorker, domain.EventInventoryAlerts, nil)

	assert.Len(t, worker1.Events(), 1)
	assert.Len(t, worker2.Events(), 1)
	assert.Empty(t, owner.Events())
	assert.Empty(t, anon.Events())
}

func TestPublisher_PublishToAllIncludesUnauthenticated(t *testing.T) {
	f := newPubFixture()

	worker := f.connect(t, "w1", &domain.Principal{ID: "u1", Role: domain.RoleWorker})
	anon := f.connect(t, "a1", nil)

	f.publisher.PublishToAll(domain.EventMetricsUpdate, nil)

	assert.Len(t, worker.Events(), 1)
	assert.Len(t, anon.Events(), 1)
}

func TestPublisher_PublishToPrincipalReachesAllTabs(t *testing.T) {
	f := newPubFixture()
	p := domain.Principal{ID: "u1", Role: domain.RoleWorker}

	tab1 := f.connect(t, "t1", &p)
	tab2 := f.connect(t, "t2", &p)
	other := f.connect(t, "t3", &domain.Principal{ID: "u2", Role: domain.RoleWorker})

	f.publisher.PublishToPrincipal("u1", domain.EventUserStatusUpdate, nil)

	assert.Len(t, tab1.Events(), 1)
	assert.Len(t, tab2.Events(), 1)
	assert.Empty(t, other.Events())
}

func TestPublisher_EmptyScopeIsNoOp(t *testing.T) {
	f := newPubFixture()
	f.publisher.PublishToRole(domain.RoleAdmin, domain.EventMetricsUpdate, nil)
	f.publisher.PublishToTenant("nobody", domain.EventMetricsUpdate, nil)
}

func TestPublisher_SlowConnectionIsSkipped(t *testing.T) {
	f := newPubFixture()
	p1 := domain.Principal{ID: "u1", Role: domain.RoleWorker}
	p2 := domain.Principal{ID: "u2", Role: domain.RoleWorker}

	slow := f.connect(t, "slow", &p1)
	slow.fail = true
	healthy := f.connect(t, "ok", &p2)

	f.publisher.PublishToRole(domain.RoleWorker, domain.EventMetricsUpdate, nil)

	assert.Empty(t, slow.Events(), "full buffer drops the event for that connection only")
	assert.Len(t, healthy.Events(), 1)
}

func TestPublisher_EventsCarryServerTimestamp(t *testing.T) {
	f := newPubFixture()
	sink := f.connect(t, "c1", &domain.Principal{ID: "u1", Role: domain.RoleAdmin})

	f.publisher.SendTo("c1", domain.EventPong, nil)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventPong, events[0].Type)
	assert.False(t, events[0].Timestamp.IsZero())
}
