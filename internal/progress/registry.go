// Package progress tracks in-flight translation jobs and serializes
// access to the translation backend through a single-slot gate.
package progress

import (
	"sync"
	"time"

	"github.com/larkspur-labs/subproxy/pkg/log"
)

// State is a translation job's position in the PENDING/ACTIVE state
// machine. A job starts Pending (queued behind the gate), becomes
// Active once it acquires the gate, and ends in exactly one of Done,
// Failed, or Cancelled — at which point it is removed from the
// registry entirely rather than retained in a terminal state.
type State string

const (
	Pending   State = "pending"
	Active    State = "active"
	Done      State = "done"
	Failed    State = "failed"
	Cancelled State = "cancelled"
)

// Job is a snapshot of one translation's progress.
type Job struct {
	ID             string
	Name           string
	State          State
	TotalCues      int
	CompletedCues  int
	Message        string
	Err            error
	StartedAt      time.Time
	UpdatedAt      time.Time
}

// Registry holds the live state of every active or pending job the
// proxy knows about. Reads return clones so callers never observe a
// struct being mutated concurrently.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Register creates a new Pending job entry under id, carrying a
// display name for the dashboard and the total cue count once known
// (0 if not yet determined).
func (r *Registry) Register(id, name string, totalCues int) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	j := &Job{ID: id, Name: name, State: Pending, TotalCues: totalCues, StartedAt: now, UpdatedAt: now}
	r.jobs[id] = j
	return cloneJob(j)
}

// Activate transitions a job to Active once it has acquired the gate.
func (r *Registry) Activate(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		j.State = Active
		j.UpdatedAt = time.Now()
	}
}

// Update reports incremental progress for an Active job.
func (r *Registry) Update(id string, completed, total int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		j.CompletedCues = completed
		j.TotalCues = total
		j.Message = message
		j.UpdatedAt = time.Now()
	}
}

// Finish ends job id, whether it succeeded, failed, or was cancelled,
// and removes it from the registry so List and Get stop reporting it.
// It is idempotent: calling it again, or on an id that was never
// registered, is a no-op, so a failure path can always call Finish
// without first checking whether some other path already did.
func (r *Registry) Finish(id string, state State, err error) {
	r.mu.Lock()
	_, ok := r.jobs[id]
	delete(r.jobs, id)
	r.mu.Unlock()

	if ok && state == Failed {
		log.Error("translation job %s failed: %v", id, err)
	}
}

// Get returns a snapshot of job id, or ok=false if it is unknown —
// including once it has finished and been removed.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *cloneJob(j), true
}

// List returns a snapshot of every active or pending job.
func (r *Registry) List() []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, *cloneJob(j))
	}
	return out
}

func cloneJob(j *Job) *Job {
	clone := *j
	return &clone
}
