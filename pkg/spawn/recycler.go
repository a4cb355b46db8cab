package spawn

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/respawn/pkg/errors"
	"github.com/ajitpratap0/respawn/pkg/lockfree"
	"github.com/ajitpratap0/respawn/pkg/metrics"
)

// StartRecycler launches the deferred-release drain loop. Gameplay
// goroutines hand instances to ReleaseLater; a single recycler goroutine
// drains them through Release, keeping pool bookkeeping off the hot paths
// that produced the instances. The queue is bounded by
// Advanced.RecyclerQueueSize; a full queue falls back to a direct release.
func (m *Manager) StartRecycler() error {
	m.recMu.Lock()
	defer m.recMu.Unlock()

	if atomic.LoadInt32(&m.recycling) == 1 {
		return errors.New(errors.ErrorTypeState, "recycler is already running")
	}

	size := m.cfg.Advanced.RecyclerQueueSize
	m.recQueue = lockfree.NewQueue(size)
	m.recStop = make(chan struct{})
	atomic.StoreInt32(&m.recycling, 1)

	m.recWG.Add(1)
	go m.runRecycler(m.recQueue, m.recStop)

	m.logger.Info("recycler started",
		zap.Int("queue_size", size),
		zap.Duration("interval", m.cfg.Advanced.RecyclerInterval))
	return nil
}

// StopRecycler signals the drain loop to exit, waits for it, and drains
// any outstanding instances. Callers must stop handing instances to
// ReleaseLater before stopping; hand-offs that race the shutdown fall back
// to direct releases once the flag drops.
func (m *Manager) StopRecycler() error {
	m.recMu.Lock()
	defer m.recMu.Unlock()

	if atomic.LoadInt32(&m.recycling) == 0 {
		return errors.New(errors.ErrorTypeState, "recycler is not running")
	}

	atomic.StoreInt32(&m.recycling, 0)
	close(m.recStop)
	m.recWG.Wait()
	drained := m.drainReleases(m.recQueue)

	m.logger.Info("recycler stopped", zap.Int("final_drain", drained))
	return nil
}

// ReleaseLater queues an instance for the recycler goroutine to release.
// Without a running recycler, or when the queue is full, the instance is
// released directly instead.
func (m *Manager) ReleaseLater(inst Instance) {
	if inst == nil {
		m.logger.Warn("release requested with nil instance")
		return
	}
	if atomic.LoadInt32(&m.recycling) == 1 && m.recQueue.Enqueue(inst) {
		if m.meter {
			metrics.RecyclerQueueDepth.Set(float64(m.recQueue.Size()))
		}
		return
	}
	m.Release(inst)
}

// runRecycler is the single consumer of the release queue.
func (m *Manager) runRecycler(q *lockfree.Queue, stop chan struct{}) {
	defer m.recWG.Done()

	interval := m.cfg.Advanced.RecyclerInterval
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.drainReleases(q)
		select {
		case <-stop:
			m.drainReleases(q)
			return
		case <-ticker.C:
		}
	}
}

// drainReleases empties the queue through Release, returning the count.
func (m *Manager) drainReleases(q *lockfree.Queue) int {
	n := 0
	for {
		v, ok := q.Dequeue()
		if !ok {
			break
		}
		if inst, ok := v.(Instance); ok {
			m.Release(inst)
		}
		n++
	}
	if n > 0 && m.meter {
		metrics.RecyclerQueueDepth.Set(float64(q.Size()))
	}
	return n
}
