package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// record is the registry's mutable entry for one workflow.
type record struct {
	wf     Workflow
	cancel context.CancelFunc // nil once execution has finished
}

// Registry is the in-memory store of workflows, keyed by id.
//
// Entries are never evicted. A Registry is an ordinary value so tests and
// callers can hold isolated instances; nothing in this package keeps a
// process-wide one.
//
// Thread-safety: all methods are safe for concurrent use. Readers always
// receive copies.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*record
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*record)}
}

// Get returns a snapshot of the workflow with the given id.
// Returns false for unknown ids.
func (r *Registry) Get(id string) (Workflow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.runs[id]
	if !ok {
		return Workflow{}, false
	}
	return rec.wf.clone(), true
}

// List returns snapshots of all workflows, oldest first (ties by id).
func (r *Registry) List() []Workflow {
	r.mu.RLock()
	out := make([]Workflow, 0, len(r.runs))
	for _, rec := range r.runs {
		out = append(out, rec.wf.clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of registered workflows.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}

func (r *Registry) add(wf Workflow, cancel context.CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[wf.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateWorkflow, wf.ID)
	}
	r.runs[wf.ID] = &record{wf: wf, cancel: cancel}
	return nil
}

// update applies fn to the live record and returns the resulting snapshot.
func (r *Registry) update(id string, fn func(*Workflow)) (Workflow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.runs[id]
	if !ok {
		return Workflow{}, false
	}
	fn(&rec.wf)
	return rec.wf.clone(), true
}

// cancelRunning moves a running workflow to error and returns its context
// cancel func. ok is false when the workflow is unknown or not running.
func (r *Registry) cancelRunning(id string, mark func(*Workflow)) (wf Workflow, cancel context.CancelFunc, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.runs[id]
	if !exists || rec.wf.Status != StatusRunning {
		return Workflow{}, nil, false
	}
	mark(&rec.wf)
	return rec.wf.clone(), rec.cancel, true
}

// release drops the execution context of a finished workflow.
func (r *Registry) release(id string) {
	r.mu.Lock()
	rec, ok := r.runs[id]
	var cancel context.CancelFunc
	if ok {
		cancel = rec.cancel
		rec.cancel = nil
	}
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
