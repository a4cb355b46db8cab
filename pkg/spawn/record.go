package spawn

import (
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

// Record is one pool record: a lookup key and the FIFO of currently-inactive
// instances awaiting reuse. Records are created lazily on first sight of a
// key and survive for the manager's lifetime.
//
// The idle FIFO is guarded by the record's own mutex so spawns for different
// keys never contend; the hit counters are atomics readable without it.
type Record struct {
	key  string
	mu   sync.Mutex
	idle *queue.Queue

	created  int64 // instances instantiated for this key
	reused   int64 // spawns served from the pool
	released int64 // instances returned to the pool
	active   int64 // instances currently spawned out
}

func newRecord(key string) *Record {
	return &Record{
		key:  key,
		idle: queue.New(),
	}
}

// Key returns the record's lookup key
func (r *Record) Key() string {
	return r.key
}

// IdleLen returns the number of inactive instances currently pooled
func (r *Record) IdleLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.idle.Length()
}

// take pops the oldest pooled instance, if any.
func (r *Record) take() (Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.idle.Length() == 0 {
		return nil, false
	}
	inst, ok := r.idle.Remove().(Instance)
	if !ok {
		return nil, false
	}
	return inst, true
}

// put returns an instance to the pool. A positive maxIdle bounds the pool;
// at the bound the instance is left for the collector and put reports false.
func (r *Record) put(inst Instance, maxIdle int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if maxIdle > 0 && r.idle.Length() >= maxIdle {
		return false
	}
	r.idle.Add(inst)
	return true
}

// topUp instantiates clones until the pool holds at least n inactive
// instances, respecting maxIdle. Returns the number added. Holding the
// record lock across instantiate keeps concurrent top-ups from
// overshooting.
func (r *Record) topUp(n, maxIdle int, instantiate func() Instance) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	target := n
	if maxIdle > 0 && target > maxIdle {
		target = maxIdle
	}
	added := 0
	for r.idle.Length() < target {
		inst := instantiate()
		if inst == nil {
			break
		}
		inst.SetActive(false)
		r.idle.Add(inst)
		atomic.AddInt64(&r.created, 1)
		added++
	}
	return added
}

// RecordStats is a point-in-time snapshot of one pool record.
type RecordStats struct {
	Key      string `json:"key"`
	Idle     int    `json:"idle"`
	Active   int64  `json:"active"`
	Created  int64  `json:"created"`
	Reused   int64  `json:"reused"`
	Released int64  `json:"released"`
}

// Stats returns a snapshot of the record's counters
func (r *Record) Stats() RecordStats {
	return RecordStats{
		Key:      r.key,
		Idle:     r.IdleLen(),
		Active:   atomic.LoadInt64(&r.active),
		Created:  atomic.LoadInt64(&r.created),
		Reused:   atomic.LoadInt64(&r.reused),
		Released: atomic.LoadInt64(&r.released),
	}
}
