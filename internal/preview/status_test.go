package preview

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) Publish(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, len(r.states))
	for i, s := range r.states {
		out[i] = s.Status
	}
	return out
}

func TestTrackerLifecycle(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	assert.Equal(t, StatusIdle, tr.Snapshot("p1").Status)

	tr.Begin("p1")
	assert.Equal(t, StatusComposing, tr.Snapshot("p1").Status)

	tr.Composed("p1")
	assert.Equal(t, StatusReady, tr.Snapshot("p1").Status)

	s, err := tr.Report("p1", Report{Status: OutcomeErrored, Message: "boom"})
	require.NoError(t, err)
	assert.Equal(t, StatusErrored, s.Status)
	assert.Equal(t, "boom", s.Message)
	assert.False(t, s.Fallback)
	assert.Equal(t, fixed, s.Timestamp)

	assert.Equal(t, []Status{StatusComposing, StatusReady, StatusErrored}, rec.statuses())
}

func TestTrackerInitFailureSetsFallback(t *testing.T) {
	tr := NewTracker(nil)
	tr.Begin("p1")
	tr.Composed("p1")

	s, err := tr.Report("p1", Report{Status: OutcomeInitFailed})
	require.NoError(t, err)
	assert.Equal(t, StatusErrored, s.Status)
	assert.True(t, s.Fallback)
	assert.NotEmpty(t, s.Message)

	// A new render cycle starts clean.
	assert.False(t, tr.Begin("p1").Fallback)
}

func TestTrackerReadyClearsMessage(t *testing.T) {
	tr := NewTracker(nil)
	s, err := tr.Report("p1", Report{Status: OutcomeReady, Message: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, StatusReady, s.Status)
	assert.Empty(t, s.Message)
}

func TestTrackerUnknownOutcome(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec)
	tr.Composed("p1")

	s, err := tr.Report("p1", Report{Status: "exploded"})
	require.ErrorIs(t, err, ErrUnknownOutcome)
	assert.Equal(t, StatusReady, s.Status)
	assert.Len(t, rec.statuses(), 1)
}

func TestTrackerProjectsAreIndependent(t *testing.T) {
	tr := NewTracker(nil)
	tr.Begin("a")
	tr.Composed("b")

	assert.Equal(t, StatusComposing, tr.Snapshot("a").Status)
	assert.Equal(t, StatusReady, tr.Snapshot("b").Status)

	tr.Forget("a")
	assert.Equal(t, StatusIdle, tr.Snapshot("a").Status)
}

func TestTrackerConcurrentUse(t *testing.T) {
	tr := NewTracker(&recorder{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Begin("p")
			tr.Composed("p")
			_, _ = tr.Report("p", Report{Status: OutcomeReady})
			_ = tr.Snapshot("p")
		}()
	}
	wg.Wait()
	assert.Equal(t, StatusReady, tr.Snapshot("p").Status)
}

func TestTrackerPublishesInStoreOrder(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tr.Begin("p1")
		}()
		go func() {
			defer wg.Done()
			_, _ = tr.Report("p1", Report{Status: OutcomeErrored, Message: "boom"})
		}()
	}
	wg.Wait()

	rec.mu.Lock()
	last := rec.states[len(rec.states)-1]
	rec.mu.Unlock()
	assert.Len(t, rec.statuses(), 100)
	assert.Equal(t, tr.Snapshot("p1"), last)
}
