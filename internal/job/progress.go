// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package job runs analysis batches: it walks a list of source documents,
// resolves content for each, calls the AI backend, and collects one result
// record per source while publishing progress for pollers.
package job

import (
	"sync"
	"time"
)

// Status is the lifecycle phase of a batch run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// ProgressState is a point-in-time snapshot of a run, safe to serialize
// for status endpoints. ETASeconds is nil until at least one item has
// completed and after the run finishes.
type ProgressState struct {
	Status       Status   `json:"status"`
	Completed    int      `json:"completed"`
	Total        int      `json:"total"`
	CurrentLabel string   `json:"current,omitempty"`
	Message      string   `json:"message,omitempty"`
	ETASeconds   *float64 `json:"eta_seconds,omitempty"`
}

// ProgressTracker publishes the state of one run. All methods are safe for
// concurrent use; the orchestrator writes while pollers read snapshots.
type ProgressTracker struct {
	mu      sync.Mutex
	state   ProgressState
	started time.Time

	// now is overridden in tests to pin ETA arithmetic.
	now func() time.Time
}

// NewProgressTracker returns a tracker in the pending state.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{
		state: ProgressState{Status: StatusPending},
		now:   time.Now,
	}
}

// Start marks the run as running over total items and records the start
// time used for ETA estimates.
func (t *ProgressTracker) Start(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Status = StatusRunning
	t.state.Total = total
	t.state.Completed = 0
	t.started = t.now()
}

// SetLabel records a human-readable description of the item in flight.
func (t *ProgressTracker) SetLabel(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.CurrentLabel = label
}

// Advance records that n items have completed. The count never moves
// backwards and never exceeds the total.
func (t *ProgressTracker) Advance(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n > t.state.Total {
		n = t.state.Total
	}
	if n > t.state.Completed {
		t.state.Completed = n
	}
}

// Finish marks the run completed and clears the in-flight label.
func (t *ProgressTracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Status = StatusCompleted
	t.state.Completed = t.state.Total
	t.state.CurrentLabel = ""
}

// Fail marks the run as errored with a message for the poller.
func (t *ProgressTracker) Fail(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Status = StatusError
	t.state.Message = msg
	t.state.CurrentLabel = ""
}

// Snapshot returns a copy of the current state. While the run is in
// progress and at least one item has completed, the snapshot carries a
// linear ETA: remaining items times the mean seconds per completed item.
func (t *ProgressTracker) Snapshot() ProgressState {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.state
	if s.Status == StatusRunning && s.Completed > 0 && s.Completed < s.Total {
		elapsed := t.now().Sub(t.started).Seconds()
		perItem := elapsed / float64(s.Completed)
		eta := float64(s.Total-s.Completed) * perItem
		s.ETASeconds = &eta
	}
	return s
}
