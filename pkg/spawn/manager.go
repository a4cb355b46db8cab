package spawn

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/respawn/pkg/config"
	"github.com/ajitpratap0/respawn/pkg/lockfree"
	"github.com/ajitpratap0/respawn/pkg/logger"
	"github.com/ajitpratap0/respawn/pkg/metrics"
	"github.com/ajitpratap0/respawn/pkg/pool"
)

// Manager owns the pool registry: one record per lookup key, iterated in
// creation order, never removed. It routes spawn requests to records,
// tracks active instances in groups, and is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string

	groupsMu     sync.Mutex
	groups       map[string]*Group
	defaultGroup *Group

	actMu    sync.Mutex
	activeIn map[Instance]*Group

	obsMu    sync.RWMutex
	observer Observer

	cfg    *config.BaseConfig
	logger *zap.Logger

	maxIdle int
	intern  bool
	meter   bool
	debug   bool

	recycling int32
	recMu     sync.Mutex
	recQueue  *lockfree.Queue
	recStop   chan struct{}
	recWG     sync.WaitGroup
}

// New creates a Manager from cfg. A nil cfg gets defaults. Prototypes may
// be passed so that configured warmup entries can be applied during
// construction; with Warmup.OnStart disabled they are held for a later
// Warmup call.
func New(cfg *config.BaseConfig, protos ...Prototype) *Manager {
	if cfg == nil {
		cfg = config.New("respawn")
	}

	groups := map[string]*Group{
		GroupActors.Name():  GroupActors,
		GroupEffects.Name(): GroupEffects,
	}
	for _, name := range cfg.Groups.Names {
		if _, ok := groups[name]; !ok {
			groups[name] = NewGroup(name)
		}
	}
	var def *Group
	if cfg.Groups.Track {
		name := cfg.Groups.DefaultName()
		if _, ok := groups[name]; !ok {
			groups[name] = NewGroup(name)
		}
		def = groups[name]
	}

	m := &Manager{
		records:      make(map[string]*Record),
		order:        make([]string, 0, cfg.Pools.InitialCapacity),
		groups:       groups,
		defaultGroup: def,
		activeIn:     make(map[Instance]*Group),
		cfg:          cfg,
		logger:       logger.Get().With(zap.String("component", "spawn_manager"), zap.String("manager", cfg.Name)),
		maxIdle:      cfg.Pools.MaxIdlePerKey,
		intern:       cfg.Memory.InternKeys,
		meter:        cfg.Observability.EnableMetrics,
		debug:        cfg.Advanced.Debug,
	}

	if cfg.Warmup.OnStart && len(protos) > 0 {
		m.Warmup(protos...)
	}

	return m
}

// Config returns the manager's configuration
func (m *Manager) Config() *config.BaseConfig {
	return m.cfg
}

// internKey normalizes a display name into a lookup key. Interning keeps
// every spawn of the same key sharing one string.
func (m *Manager) internKey(name string) string {
	key := SpawnKey(name)
	if m.intern {
		key = pool.InternString(key)
	}
	return key
}

// lookup finds an existing record without creating one.
func (m *Manager) lookup(key string) (*Record, bool) {
	m.mu.RLock()
	rec, ok := m.records[key]
	m.mu.RUnlock()
	return rec, ok
}

// record finds or lazily creates the record for key. Records are never
// removed once created.
func (m *Manager) record(key string) *Record {
	if rec, ok := m.lookup(key); ok {
		return rec
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[key]; ok {
		return rec
	}
	rec := newRecord(key)
	m.records[key] = rec
	m.order = append(m.order, key)
	m.logger.Debug("pool record created",
		zap.String("key", key),
		zap.Int("records", len(m.order)))
	return rec
}

// Spawn serves an instance for the prototype's lookup key, reusing the
// oldest pooled instance when one exists and instantiating a fresh clone
// otherwise. The instance is activated, initialized via any WithInit hook,
// and placed in the requested group (the configured default when none is
// requested). Spawn never fails; a nil prototype logs a warning and
// returns nil.
func (m *Manager) Spawn(proto Prototype, opts ...SpawnOption) Instance {
	if proto == nil {
		m.logger.Warn("spawn requested with nil prototype")
		return nil
	}

	var start time.Time
	if m.meter {
		start = time.Now()
	}

	key := m.internKey(proto.DisplayName())
	rec := m.record(key)

	o := Options{group: m.defaultGroup}
	for _, opt := range opts {
		opt(&o)
	}

	source := SourceReused
	inst, ok := rec.take()
	if !ok {
		inst = proto.Instantiate()
		if inst == nil {
			m.logger.Warn("prototype produced nil instance", zap.String("key", key))
			return nil
		}
		source = SourceCreated
		atomic.AddInt64(&rec.created, 1)
	} else {
		atomic.AddInt64(&rec.reused, 1)
	}

	inst.SetActive(true)
	if o.init != nil {
		o.init(inst)
	}
	m.attach(inst, o.group)
	atomic.AddInt64(&rec.active, 1)

	if m.meter {
		metrics.SpawnsTotal.WithLabelValues(key, source).Inc()
		metrics.PoolInactive.WithLabelValues(key).Set(float64(rec.IdleLen()))
		metrics.SpawnDuration.WithLabelValues(key).Observe(float64(time.Since(start).Nanoseconds()))
	}
	if m.debug {
		m.logger.Debug("instance spawned",
			zap.String("key", key),
			zap.String("source", source),
			zap.String("group", o.group.Name()))
	}
	m.notify(Event{
		Op:     OpSpawn,
		Key:    key,
		Group:  o.group.Name(),
		ID:     instanceID(inst),
		Source: source,
	})

	return inst
}

// Release returns an instance to its pool. The lookup key is derived from
// the instance name by stripping the clone marker. A name with no
// registered pool logs a warning and leaves the instance untouched; that
// is the only failure handling on the return path. Releasing an already
// inactive instance warns and does nothing.
func (m *Manager) Release(inst Instance) {
	if inst == nil {
		m.logger.Warn("release requested with nil instance")
		return
	}

	key := m.internKey(inst.Name())
	rec, ok := m.lookup(key)
	if !ok {
		m.logger.Warn("release for unpooled name",
			zap.String("name", inst.Name()),
			zap.String("key", key))
		if m.meter {
			metrics.UnpooledReleases.Inc()
		}
		return
	}

	if !inst.Active() {
		m.logger.Warn("double release ignored", zap.String("key", key))
		if m.meter {
			metrics.ReleasesTotal.WithLabelValues(key, OutcomeDouble).Inc()
		}
		return
	}

	m.detach(inst)
	inst.SetActive(false)
	atomic.AddInt64(&rec.active, -1)
	atomic.AddInt64(&rec.released, 1)

	outcome := OutcomePooled
	if !rec.put(inst, m.maxIdle) {
		outcome = OutcomeDiscarded
	}

	if m.meter {
		metrics.ReleasesTotal.WithLabelValues(key, outcome).Inc()
		metrics.PoolInactive.WithLabelValues(key).Set(float64(rec.IdleLen()))
	}
	if m.debug {
		m.logger.Debug("instance released",
			zap.String("key", key),
			zap.String("outcome", outcome))
	}
	m.notify(Event{
		Op:      OpRelease,
		Key:     key,
		ID:      instanceID(inst),
		Outcome: outcome,
	})
}

// Prewarm bootstraps the prototype's pool so it holds at least n inactive
// instances, instantiating the shortfall. Repeated calls top up rather
// than accumulate. n <= 0 is a no-op. Returns the number of instances
// added.
func (m *Manager) Prewarm(proto Prototype, n int) int {
	if proto == nil {
		m.logger.Warn("prewarm requested with nil prototype")
		return 0
	}
	if n <= 0 {
		return 0
	}

	key := m.internKey(proto.DisplayName())
	rec := m.record(key)
	added := rec.topUp(n, m.maxIdle, proto.Instantiate)

	if m.meter {
		metrics.PrewarmTotal.WithLabelValues(key).Add(float64(added))
		metrics.PoolInactive.WithLabelValues(key).Set(float64(rec.IdleLen()))
	}
	m.logger.Debug("pool prewarmed",
		zap.String("key", key),
		zap.Int("requested", n),
		zap.Int("added", added))
	if added > 0 {
		m.notify(Event{
			Op:    OpPrewarm,
			Key:   key,
			Count: added,
		})
	}

	return added
}

// Warmup applies the configured warmup entries against the given
// prototypes, matching entries to prototypes by lookup key. Entries naming
// no known prototype log a warning. Returns the total number of instances
// pooled.
func (m *Manager) Warmup(protos ...Prototype) int {
	byKey := make(map[string]Prototype, len(protos))
	for _, proto := range protos {
		if proto == nil {
			continue
		}
		byKey[SpawnKey(proto.DisplayName())] = proto
	}

	total := 0
	for _, entry := range m.cfg.Warmup.Entries {
		proto, ok := byKey[entry.Key]
		if !ok {
			m.logger.Warn("warmup entry has no prototype", zap.String("key", entry.Key))
			continue
		}
		total += m.Prewarm(proto, entry.Count)
	}

	if total > 0 {
		m.logger.Info("pools warmed up",
			zap.Int("instances", total),
			zap.Int("entries", len(m.cfg.Warmup.Entries)))
	}
	return total
}

// attach places an active instance in g and remembers the association so
// Release can detach it. A nil group tracks nothing.
func (m *Manager) attach(inst Instance, g *Group) {
	if g == nil {
		return
	}
	if g.add(inst) && m.meter {
		metrics.PoolActive.WithLabelValues(g.Name()).Inc()
	}
	m.actMu.Lock()
	m.activeIn[inst] = g
	m.actMu.Unlock()
}

// detach removes an instance from the group it was spawned into.
func (m *Manager) detach(inst Instance) {
	m.actMu.Lock()
	g, ok := m.activeIn[inst]
	if ok {
		delete(m.activeIn, inst)
	}
	m.actMu.Unlock()
	if !ok {
		return
	}
	if g.remove(inst) && m.meter {
		metrics.PoolActive.WithLabelValues(g.Name()).Dec()
	}
}

// Group returns the named group, creating it on first use. The built-in
// actors and effects groups are shared process-wide.
func (m *Manager) Group(name string) *Group {
	m.groupsMu.Lock()
	defer m.groupsMu.Unlock()
	g, ok := m.groups[name]
	if !ok {
		g = NewGroup(name)
		m.groups[name] = g
	}
	return g
}

// DefaultGroup returns the group spawns join when none is requested. It is
// nil when group tracking is disabled.
func (m *Manager) DefaultGroup() *Group {
	return m.defaultGroup
}

// Len returns the number of pool records
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// Keys returns the lookup keys in record creation order.
func (m *Manager) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, len(m.order))
	copy(keys, m.order)
	return keys
}

// Record returns the pool record for key, if one exists.
func (m *Manager) Record(key string) (*Record, bool) {
	return m.lookup(key)
}

// Stats is an aggregate snapshot across all pool records, in record
// creation order.
type Stats struct {
	Records  []RecordStats `json:"records"`
	Keys     int           `json:"keys"`
	Idle     int           `json:"idle"`
	Active   int64         `json:"active"`
	Created  int64         `json:"created"`
	Reused   int64         `json:"reused"`
	Released int64         `json:"released"`
}

// ReuseRate returns the fraction of instance demand served from pools
// rather than by instantiation. Warmup instantiations count toward the
// created side.
func (s Stats) ReuseRate() float64 {
	total := s.Created + s.Reused
	if total == 0 {
		return 0
	}
	return float64(s.Reused) / float64(total)
}

// Stats returns a snapshot of every record plus aggregate totals.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	recs := make([]*Record, 0, len(m.order))
	for _, key := range m.order {
		recs = append(recs, m.records[key])
	}
	m.mu.RUnlock()

	s := Stats{
		Records: make([]RecordStats, 0, len(recs)),
		Keys:    len(recs),
	}
	for _, rec := range recs {
		rs := rec.Stats()
		s.Idle += rs.Idle
		s.Active += rs.Active
		s.Created += rs.Created
		s.Reused += rs.Reused
		s.Released += rs.Released
		s.Records = append(s.Records, rs)
	}
	return s
}

// Reset drops every record and group association (mainly for testing).
// Normal operation never clears the registry.
func (m *Manager) Reset() {
	m.actMu.Lock()
	for inst, g := range m.activeIn {
		if g.remove(inst) && m.meter {
			metrics.PoolActive.WithLabelValues(g.Name()).Dec()
		}
	}
	m.activeIn = make(map[Instance]*Group)
	m.actMu.Unlock()

	m.mu.Lock()
	m.records = make(map[string]*Record)
	m.order = m.order[:0]
	m.mu.Unlock()

	m.logger.Debug("manager reset")
}
