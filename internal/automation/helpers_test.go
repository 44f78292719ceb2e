package automation

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"qiandao/internal/progress"
	"qiandao/internal/screen"
	"qiandao/internal/shots"
)

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 8, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
}

type recorder struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recorder) Report(e progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kind(k progress.Kind) []progress.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []progress.Event
	for _, e := range r.events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	wf    *Workflow
	clock *fakeClock
	rec   *recorder
	store *shots.Store
	dir   string
}

func newHarness(t *testing.T, d screen.Display, cfg Config) *harness {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "screenshots")
	h := &harness{
		clock: newFakeClock(),
		rec:   &recorder{},
		store: shots.NewStore(dir, "qiandao"),
		dir:   dir,
	}
	wf, err := New(d, h.store, cfg,
		WithClock(h.clock),
		WithReporter(h.rec),
		WithRunID("run-1"),
	)
	require.NoError(t, err)
	h.wf = wf
	return h
}

func (h *harness) elapsed(since time.Time) time.Duration {
	return h.clock.Now().Sub(since)
}

func pos(name PositionName) screen.Point {
	return DefaultPositions()[name]
}

var (
	black = screen.Color{}
	red   = screen.Color{R: 255}
)

func sum(ds []time.Duration) time.Duration {
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total
}
