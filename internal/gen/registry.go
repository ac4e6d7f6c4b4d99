package gen

import (
	"sync"

	"github.com/YuppyChen/ai-images-creator/internal/domain"
)

// Registry is the process-wide association from provider-issued task ids to
// the user and prompt that started them. The provider API does not echo back
// caller metadata, so this is the only place the link exists.
//
// The registry is deliberately not durable: it is a correlation cache, not a
// source of truth. A process restart loses in-flight associations, and a
// status query for an unknown id still forwards the provider's raw status.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]domain.Task
}

// NewRegistry creates an empty registry. It is owned and injected by the
// orchestrator rather than reached through package-level state.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]domain.Task)}
}

// Put records the association for a newly created task.
func (r *Registry) Put(task domain.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = task
}

// Get returns the association without removing it.
func (r *Registry) Get(taskID string) (domain.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[taskID]
	return task, ok
}

// Claim atomically removes and returns the association. Exactly one caller
// observes ok=true per task, so a credit restore or history append has a
// single winner even when duplicate terminal signals race each other.
func (r *Registry) Claim(taskID string) (domain.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if ok {
		delete(r.tasks, taskID)
	}
	return task, ok
}

// Len reports the number of in-flight associations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
