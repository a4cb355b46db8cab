package spawn

// Op identifies a manager operation seen by an Observer.
type Op string

// Operations reported to observers.
const (
	OpSpawn   Op = "spawn"
	OpRelease Op = "release"
	OpPrewarm Op = "prewarm"
)

// Sources and outcomes carried on events and metric labels.
const (
	SourceCreated    = "created"
	SourceReused     = "reused"
	OutcomePooled    = "pooled"
	OutcomeDiscarded = "discarded"
	OutcomeDouble    = "double"
)

// Event describes one served manager operation. Spawns carry the source
// (created or reused), releases the outcome (pooled or discarded), prewarms
// the number of instances added. Operations the manager refuses (unknown
// keys, double releases, nil prototypes) are not reported.
type Event struct {
	Op      Op
	Key     string
	Group   string
	ID      string
	Source  string
	Outcome string
	Count   int
}

// Observer receives an event for every operation the manager serves. It
// runs synchronously on the operation's goroutine, so implementations
// should hand off anything they cannot afford on a spawn hot path.
type Observer func(Event)

// SetObserver installs obs on the manager, replacing any previous
// observer. Passing nil stops observation.
func (m *Manager) SetObserver(obs Observer) {
	m.obsMu.Lock()
	m.observer = obs
	m.obsMu.Unlock()
}

// notify hands an event to the installed observer, if any.
func (m *Manager) notify(ev Event) {
	m.obsMu.RLock()
	obs := m.observer
	m.obsMu.RUnlock()
	if obs != nil {
		obs(ev)
	}
}

// instanceID extracts an instance's generated ID when it exposes one, the
// way Entity does.
func instanceID(inst Instance) string {
	if ided, ok := inst.(interface{ ID() string }); ok {
		return ided.ID()
	}
	return ""
}
