package preview

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Status is where a project's preview is in its render cycle.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusComposing Status = "composing"
	StatusReady     Status = "ready"
	StatusErrored   Status = "errored"
)

// Outcomes the sandbox can report back after the document was delivered.
const (
	OutcomeReady      = "ready"
	OutcomeErrored    = "errored"
	OutcomeInitFailed = "init_failed"
)

// ErrUnknownOutcome is returned by Tracker.Report for an outcome it does not know.
var ErrUnknownOutcome = errors.New("unknown preview outcome")

// State is the last known preview state of one project. Fallback is set once
// the sandbox could not be initialized; the host then serves the static
// structural preview instead.
type State struct {
	ProjectID string    `json:"projectId"`
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Fallback  bool      `json:"fallback"`
	Timestamp time.Time `json:"timestamp"`
}

// Report is what the sandbox (or the host frame around it) posts back.
type Report struct {
	Status  string `json:"status" binding:"required"`
	Message string `json:"message"`
}

// Publisher receives every state transition.
type Publisher interface {
	Publish(State)
}

// Tracker keeps the per-project preview state. Reports are observational:
// nothing is retried and no transition ever blocks composition.
type Tracker struct {
	// order serializes store and publish so subscribers see transitions in
	// the order they were stored. Publish must not block.
	order     sync.Mutex
	mu        sync.RWMutex
	states    map[string]State
	publisher Publisher
	now       func() time.Time
}

// NewTracker returns an empty tracker. p may be nil.
func NewTracker(p Publisher) *Tracker {
	return &Tracker{
		states:    make(map[string]State),
		publisher: p,
		now:       time.Now,
	}
}

// Begin marks a new render cycle. The previous outcome, fallback included,
// is discarded with the previous document.
func (t *Tracker) Begin(projectID string) State {
	return t.set(State{ProjectID: projectID, Status: StatusComposing})
}

// Composed marks the document as built and handed to the sandbox.
func (t *Tracker) Composed(projectID string) State {
	return t.set(State{ProjectID: projectID, Status: StatusReady})
}

// Report records the sandbox's asynchronous outcome.
func (t *Tracker) Report(projectID string, r Report) (State, error) {
	next := State{ProjectID: projectID, Message: r.Message}
	switch r.Status {
	case OutcomeReady:
		next.Status = StatusReady
		next.Message = ""
	case OutcomeErrored:
		next.Status = StatusErrored
	case OutcomeInitFailed:
		next.Status = StatusErrored
		next.Fallback = true
		if next.Message == "" {
			next.Message = "sandbox failed to initialize"
		}
	default:
		return t.Snapshot(projectID), fmt.Errorf("%w: %q", ErrUnknownOutcome, r.Status)
	}
	return t.set(next), nil
}

// Snapshot returns the current state; projects never seen are idle.
func (t *Tracker) Snapshot(projectID string) State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.states[projectID]; ok {
		return s
	}
	return State{ProjectID: projectID, Status: StatusIdle}
}

// Forget drops a project's state, e.g. after the project was deleted.
func (t *Tracker) Forget(projectID string) {
	t.mu.Lock()
	delete(t.states, projectID)
	t.mu.Unlock()
}

func (t *Tracker) set(s State) State {
	t.order.Lock()
	defer t.order.Unlock()

	s.Timestamp = t.now().UTC()
	t.mu.Lock()
	t.states[s.ProjectID] = s
	t.mu.Unlock()
	if t.publisher != nil {
		t.publisher.Publish(s)
	}
	return s
}
