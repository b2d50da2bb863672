package mockapi

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/waterlens/internal/api"
	"github.com/abelbrown/waterlens/internal/logging"
)

// analysis is one upload being replayed through a scenario.
type analysis struct {
	id       string
	filename string
	userID   string
	size     int64
	started  time.Time
	naive    bool

	mu        sync.Mutex
	payloads  []string // data payloads emitted so far, in order
	latest    api.AnalysisStatus
	finished  bool
	completed *time.Time
	changed   chan struct{} // closed and replaced on every change
}

// snapshot returns the payloads from offset on, whether playback has
// finished, and a channel that is closed on the next change.
func (a *analysis) snapshot(offset int) ([]string, bool, <-chan struct{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	if offset < len(a.payloads) {
		out = append(out, a.payloads[offset:]...)
	}
	return out, a.finished, a.changed
}

func (a *analysis) status() api.AnalysisStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latest
}

func (a *analysis) completedAt() (time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.completed == nil {
		return time.Time{}, false
	}
	return *a.completed, true
}

// emit appends a frame and wakes every waiting stream.
func (a *analysis) emit(f Frame) {
	payload := f.Raw
	if payload == "" {
		data, err := json.Marshal(f.Update)
		if err != nil {
			logging.Error("encode mock frame", "analysis", a.id, "err", err)
			return
		}
		payload = string(data)
	}

	a.mu.Lock()
	a.payloads = append(a.payloads, payload)
	if f.Raw == "" {
		a.latest.Progress = f.Progress
		a.latest.Message = f.Message
		if f.Failed() {
			a.latest.Status = "error"
			a.latest.Error = f.Message
		}
	}
	a.broadcastLocked()
	a.mu.Unlock()
}

// finish marks playback as done with the given outcome.
func (a *analysis) finish(outcome string, at time.Time) {
	a.mu.Lock()
	a.finished = true
	a.latest.Status = outcome
	if outcome == "completed" {
		a.completed = &at
		done := a.stamp(at)
		a.latest.CompletedTime = &done
	}
	a.broadcastLocked()
	a.mu.Unlock()
}

// stamp renders t in the wire form the scenario asks for.
func (a *analysis) stamp(t time.Time) api.Timestamp {
	if a.naive {
		return api.NaiveTimestamp(t)
	}
	return api.Timestamp{Time: t}
}

func (a *analysis) broadcastLocked() {
	close(a.changed)
	a.changed = make(chan struct{})
}

// registry holds every analysis the server has accepted.
type registry struct {
	mu       sync.RWMutex
	analyses map[string]*analysis
}

func newRegistry() *registry {
	return &registry{analyses: make(map[string]*analysis)}
}

func (r *registry) add(filename, userID string, size int64, now time.Time, naive bool) *analysis {
	a := &analysis{
		id:       newAnalysisID(),
		filename: filename,
		userID:   userID,
		size:     size,
		started:  now,
		naive:    naive,
		changed:  make(chan struct{}),
	}
	a.latest = api.AnalysisStatus{ID: a.id, Status: "processing", StartTime: a.stamp(now)}

	r.mu.Lock()
	r.analyses[a.id] = a
	r.mu.Unlock()
	return a
}

func (r *registry) get(id string) (*analysis, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyses[id]
	return a, ok
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.analyses)
}

// newAnalysisID returns an id shaped like "analysis_3f2c9a1b7d4e".
func newAnalysisID() string {
	return "analysis_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// play replays sc into a, honoring each frame's delay. It stops early when
// ctx is cancelled.
func play(ctx context.Context, a *analysis, sc Scenario, now func() time.Time) {
	for _, f := range sc.Frames {
		if f.Delay > 0 {
			t := time.NewTimer(f.Delay)
			select {
			case <-ctx.Done():
				t.Stop()
				a.finish("error", now())
				return
			case <-t.C:
			}
		}
		a.emit(f)
	}
	a.finish(sc.Outcome(), now())
	logging.Debug("mock analysis finished", "analysis", a.id, "outcome", sc.Outcome())
}
