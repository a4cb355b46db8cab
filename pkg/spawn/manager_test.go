package spawn

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/respawn/pkg/config"
)

// testConfig builds a config whose default group is private to the test,
// keeping the process-wide actors group out of unrelated assertions.
func testConfig(name string) *config.BaseConfig {
	cfg := config.New(name)
	cfg.Groups.Default = name + "-actors"
	return cfg
}

func TestSpawnCreatesRecordLazily(t *testing.T) {
	m := New(testConfig("lazy"))
	proto := NewBasic("projectile", nil)

	require.Equal(t, 0, m.Len())

	inst := m.Spawn(proto)
	require.NotNil(t, inst)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, "projectile (clone)", inst.Name())
	assert.True(t, inst.Active())

	// Same key never grows the registry
	m.Spawn(proto)
	assert.Equal(t, 1, m.Len())
}

func TestSpawnReusesOldestReleased(t *testing.T) {
	m := New(testConfig("fifo"))
	proto := NewBasic("projectile", nil)

	first := m.Spawn(proto)
	second := m.Spawn(proto)
	require.NotSame(t, first, second)

	m.Release(first)
	m.Release(second)

	assert.Same(t, first, m.Spawn(proto))
	assert.Same(t, second, m.Spawn(proto))

	// Pool empty again, so the next spawn instantiates
	third := m.Spawn(proto)
	assert.NotSame(t, first, third)
	assert.NotSame(t, second, third)
}

func TestKeysFollowCreationOrder(t *testing.T) {
	m := New(testConfig("order"))

	for _, name := range []string{"projectile", "enemy_grunt", "pickup_health"} {
		m.Spawn(NewBasic(name, nil))
	}
	// Respawning an old key must not reorder
	m.Spawn(NewBasic("projectile", nil))

	assert.Equal(t, []string{"projectile", "enemy_grunt", "pickup_health"}, m.Keys())
	assert.Equal(t, 3, m.Len())
}

func TestReleaseUnknownKeyLeavesInstanceUntouched(t *testing.T) {
	m := New(testConfig("unknown"))

	stray := NewEntity("ghost (clone)")
	stray.SetActive(true)

	m.Release(stray)

	assert.True(t, stray.Active(), "unpooled release must not deactivate")
	assert.Equal(t, 0, m.Len(), "unpooled release must not create a record")
}

func TestDoubleReleaseIgnored(t *testing.T) {
	m := New(testConfig("double"))
	proto := NewBasic("projectile", nil)

	inst := m.Spawn(proto)
	m.Release(inst)
	m.Release(inst)

	rec, ok := m.Record("projectile")
	require.True(t, ok)
	assert.Equal(t, 1, rec.IdleLen(), "double release must not enqueue twice")

	stats := rec.Stats()
	assert.Equal(t, int64(1), stats.Released)
	assert.Equal(t, int64(0), stats.Active)
}

func TestPrewarmTopsUp(t *testing.T) {
	m := New(testConfig("prewarm"))
	proto := NewBasic("enemy_grunt", nil)

	assert.Equal(t, 5, m.Prewarm(proto, 5))
	rec, ok := m.Record("enemy_grunt")
	require.True(t, ok)
	assert.Equal(t, 5, rec.IdleLen())

	// Top-up, not accumulate
	assert.Equal(t, 0, m.Prewarm(proto, 3))
	assert.Equal(t, 5, rec.IdleLen())
	assert.Equal(t, 3, m.Prewarm(proto, 8))
	assert.Equal(t, 8, rec.IdleLen())

	// n <= 0 is a no-op
	assert.Equal(t, 0, m.Prewarm(proto, 0))
	assert.Equal(t, 0, m.Prewarm(proto, -4))
	assert.Equal(t, 8, rec.IdleLen())

	// Prewarmed instances come out inactive until spawned
	inst := m.Spawn(proto)
	assert.True(t, inst.Active())
	assert.Equal(t, 7, rec.IdleLen())
}

func TestMaxIdlePerKeyDiscardsOverflow(t *testing.T) {
	cfg := testConfig("bounded")
	cfg.Pools.MaxIdlePerKey = 2
	m := New(cfg)
	proto := NewBasic("projectile", nil)

	instances := make([]Instance, 4)
	for i := range instances {
		instances[i] = m.Spawn(proto)
	}
	for _, inst := range instances {
		m.Release(inst)
	}

	rec, ok := m.Record("projectile")
	require.True(t, ok)
	assert.Equal(t, 2, rec.IdleLen(), "idle cap must discard overflow")

	stats := rec.Stats()
	assert.Equal(t, int64(4), stats.Released, "discarded releases still count")
	assert.Equal(t, int64(0), stats.Active)

	// Prewarm respects the cap too
	assert.Equal(t, 0, m.Prewarm(proto, 10))
	assert.Equal(t, 2, rec.IdleLen())
}

func TestGroupMembershipTracksLifecycle(t *testing.T) {
	m := New(testConfig("groups"))
	proto := NewBasic("projectile", nil)

	def := m.DefaultGroup()
	require.NotNil(t, def)

	inst := m.Spawn(proto)
	assert.True(t, def.Contains(inst))
	assert.Equal(t, 1, def.Len())

	m.Release(inst)
	assert.False(t, def.Contains(inst), "released instances leave their group")
	assert.Equal(t, 0, def.Len())

	effect := m.Spawn(proto, InGroup(GroupEffects))
	assert.True(t, GroupEffects.Contains(effect))
	assert.False(t, def.Contains(effect))
	m.Release(effect)
	assert.False(t, GroupEffects.Contains(effect))

	loner := m.Spawn(proto, InGroup(GroupNone))
	assert.False(t, def.Contains(loner))
	assert.Equal(t, 0, def.Len())
	m.Release(loner)

	rec, ok := m.Record("projectile")
	require.True(t, ok)
	assert.Equal(t, 3, rec.IdleLen())
}

func TestGroupTrackingDisabled(t *testing.T) {
	cfg := testConfig("untracked")
	cfg.Groups.Track = false
	m := New(cfg)

	assert.Nil(t, m.DefaultGroup())

	inst := m.Spawn(NewBasic("projectile", nil))
	require.NotNil(t, inst)
	assert.True(t, inst.Active())

	m.Release(inst)
	assert.False(t, inst.Active())
}

func TestWithInitRunsAfterActivation(t *testing.T) {
	m := New(testConfig("init"))
	proto := NewBasic("projectile", nil)

	activeInHook := false
	inst := m.Spawn(proto, WithInit(func(inst Instance) {
		activeInHook = inst.Active()
	}))

	require.NotNil(t, inst)
	assert.True(t, activeInHook, "init hook must see an activated instance")
}

func TestSpawnNilPrototype(t *testing.T) {
	m := New(testConfig("nilproto"))

	assert.Nil(t, m.Spawn(nil))
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, m.Prewarm(nil, 5))

	// Nil instance release is a warn-and-return
	m.Release(nil)
}

func TestPrototypeProducingNilInstance(t *testing.T) {
	m := New(testConfig("nilinst"))
	proto := NewBasic("broken", func() Instance { return nil })

	assert.Nil(t, m.Spawn(proto))

	rec, ok := m.Record("broken")
	require.True(t, ok, "record is created before instantiation")
	assert.Equal(t, 0, rec.IdleLen())
}

func TestWarmupMatchesEntriesByKey(t *testing.T) {
	cfg := testConfig("warmup")
	cfg.Warmup.Entries = []config.WarmupEntry{
		{Key: "projectile", Count: 4},
		{Key: "enemy_grunt", Count: 2},
		{Key: "missing", Count: 9},
	}

	projectile := NewBasic("projectile", nil)
	grunt := NewBasic("enemy_grunt", nil)

	m := New(cfg, projectile, grunt)

	rec, ok := m.Record("projectile")
	require.True(t, ok)
	assert.Equal(t, 4, rec.IdleLen())

	rec, ok = m.Record("enemy_grunt")
	require.True(t, ok)
	assert.Equal(t, 2, rec.IdleLen())

	_, ok = m.Record("missing")
	assert.False(t, ok, "entries without a prototype are skipped")
}

func TestWarmupDeferredWithoutOnStart(t *testing.T) {
	cfg := testConfig("deferred")
	cfg.Warmup.OnStart = false
	cfg.Warmup.Entries = []config.WarmupEntry{{Key: "projectile", Count: 3}}

	proto := NewBasic("projectile", nil)
	m := New(cfg, proto)
	assert.Equal(t, 0, m.Len(), "construction must not warm pools")

	assert.Equal(t, 3, m.Warmup(proto))
	rec, ok := m.Record("projectile")
	require.True(t, ok)
	assert.Equal(t, 3, rec.IdleLen())
}

func TestStatsAggregation(t *testing.T) {
	m := New(testConfig("stats"))
	projectile := NewBasic("projectile", nil)
	grunt := NewBasic("enemy_grunt", nil)

	m.Prewarm(projectile, 2)
	a := m.Spawn(projectile) // reused
	b := m.Spawn(projectile) // reused
	c := m.Spawn(grunt)      // created
	m.Release(a)
	m.Release(c)
	_ = b

	s := m.Stats()
	assert.Equal(t, 2, s.Keys)
	require.Len(t, s.Records, 2)
	assert.Equal(t, "projectile", s.Records[0].Key)
	assert.Equal(t, "enemy_grunt", s.Records[1].Key)

	assert.Equal(t, int64(3), s.Created, "2 prewarmed + 1 spawned")
	assert.Equal(t, int64(2), s.Reused)
	assert.Equal(t, int64(2), s.Released)
	assert.Equal(t, int64(1), s.Active)
	assert.Equal(t, 2, s.Idle)
	assert.InDelta(t, 0.4, s.ReuseRate(), 1e-9)
}

func TestResetClearsRegistryAndGroups(t *testing.T) {
	m := New(testConfig("reset"))
	proto := NewBasic("projectile", nil)

	inst := m.Spawn(proto)
	def := m.DefaultGroup()
	require.True(t, def.Contains(inst))

	m.Reset()

	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.Keys())
	assert.False(t, def.Contains(inst))

	// The manager keeps working after a reset
	again := m.Spawn(proto)
	require.NotNil(t, again)
	assert.Equal(t, 1, m.Len())
}

func TestConcurrentSpawnRelease(t *testing.T) {
	m := New(testConfig("concurrent"))

	protos := []*Basic{
		NewBasic("projectile", nil),
		NewBasic("enemy_grunt", nil),
		NewBasic("pickup_health", nil),
	}

	const workers = 8
	const iterations = 500

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				proto := protos[(w+i)%len(protos)]
				inst := m.Spawn(proto)
				if inst == nil {
					t.Errorf("worker %d: nil instance", w)
					return
				}
				m.Release(inst)
			}
		}(w)
	}
	wg.Wait()

	s := m.Stats()
	assert.Equal(t, len(protos), s.Keys)
	assert.Equal(t, int64(0), s.Active, "everything was released")
	assert.Equal(t, int64(workers*iterations), s.Reused+s.Created)
	assert.Equal(t, int64(workers*iterations), s.Released)
	assert.Equal(t, int(s.Created), s.Idle, "every created instance ends up pooled")
}

func TestConcurrentRecordCreation(t *testing.T) {
	m := New(testConfig("race-create"))

	const workers = 16
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			// Every worker hits the same fresh keys
			for i := 0; i < 20; i++ {
				m.Spawn(NewBasic(fmt.Sprintf("wave_%d", i), nil))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 20, m.Len(), "one record per key regardless of racing creators")
	for i, key := range m.Keys() {
		rec, ok := m.Record(key)
		require.True(t, ok)
		assert.Equal(t, int64(workers), rec.Stats().Active, "key %d", i)
	}
}

func TestManagerGroupLookup(t *testing.T) {
	cfg := testConfig("lookup")
	cfg.Groups.Names = []string{"pickups"}
	m := New(cfg)

	pickups := m.Group("pickups")
	require.NotNil(t, pickups)
	assert.Same(t, pickups, m.Group("pickups"))

	// Built-ins are shared process-wide
	assert.Same(t, GroupActors, m.Group("actors"))
	assert.Same(t, GroupEffects, m.Group("effects"))

	// Unknown names are created on first use
	custom := m.Group("bosses")
	assert.Equal(t, "bosses", custom.Name())
}

func TestObserverSeesServedOperations(t *testing.T) {
	m := New(testConfig("observer"))
	proto := NewBasic("projectile", nil)

	var events []Event
	m.SetObserver(func(ev Event) { events = append(events, ev) })

	m.Prewarm(proto, 2)
	inst := m.Spawn(proto)
	m.Release(inst)
	m.Release(inst) // refused, not reported

	m.SetObserver(nil)
	m.Release(m.Spawn(proto)) // unobserved

	require.Len(t, events, 3)

	assert.Equal(t, OpPrewarm, events[0].Op)
	assert.Equal(t, "projectile", events[0].Key)
	assert.Equal(t, 2, events[0].Count)

	assert.Equal(t, OpSpawn, events[1].Op)
	assert.Equal(t, SourceReused, events[1].Source)
	assert.NotEmpty(t, events[1].ID)

	assert.Equal(t, OpRelease, events[2].Op)
	assert.Equal(t, OutcomePooled, events[2].Outcome)
	assert.Equal(t, events[1].ID, events[2].ID)
}

func TestNilConfigGetsDefaults(t *testing.T) {
	m := New(nil)
	require.NotNil(t, m.Config())
	assert.Equal(t, "respawn", m.Config().Name)

	inst := m.Spawn(NewBasic("projectile", nil))
	require.NotNil(t, inst)
	m.Release(inst)
}
