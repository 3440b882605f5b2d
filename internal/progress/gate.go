package progress

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Gate is the single global serialization point for the translation
// backend: only one job may be actively translating at a time. It is
// implemented as a semaphore of weight 1 with an explicit FIFO
// waiter list, matching the shape a task-based runtime would give a
// mutual-exclusion resource with visible queue position.
type Gate struct {
	sem *semaphore.Weighted

	mu     sync.Mutex
	queue  []string
	active string
}

func NewGate() *Gate {
	return &Gate{sem: semaphore.NewWeighted(1)}
}

// Acquire blocks until jobID is granted the gate or ctx is cancelled.
// While waiting, jobID appears in Pending() in FIFO order.
func (g *Gate) Acquire(ctx context.Context, jobID string) error {
	g.mu.Lock()
	g.queue = append(g.queue, jobID)
	g.mu.Unlock()

	if err := g.sem.Acquire(ctx, 1); err != nil {
		g.dequeue(jobID)
		return err
	}

	g.mu.Lock()
	g.active = jobID
	g.mu.Unlock()
	g.dequeue(jobID)
	return nil
}

// TryAcquire attempts to take the gate without blocking, returning
// false immediately if another job already holds it.
func (g *Gate) TryAcquire(jobID string) bool {
	if !g.sem.TryAcquire(1) {
		return false
	}
	g.mu.Lock()
	g.active = jobID
	g.mu.Unlock()
	return true
}

// Release gives up the gate. Releasing a gate that jobID does not
// currently hold (including a double release) is a no-op, so callers
// can always defer Release without tracking whether Acquire actually
// succeeded for them.
func (g *Gate) Release(jobID string) {
	g.mu.Lock()
	if g.active != jobID {
		g.mu.Unlock()
		return
	}
	g.active = ""
	g.mu.Unlock()
	g.sem.Release(1)
}

// Active returns the job ID currently holding the gate, or "" if idle.
func (g *Gate) Active() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Pending returns the FIFO-ordered list of job IDs waiting for the gate.
func (g *Gate) Pending() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.queue))
	copy(out, g.queue)
	return out
}

func (g *Gate) dequeue(jobID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, id := range g.queue {
		if id == jobID {
			g.queue = append(g.queue[:i], g.queue[i+1:]...)
			return
		}
	}
}
