package app

import (
	"image"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qiandao/internal/config"
	"qiandao/internal/notify"
	"qiandao/internal/progress"
	"qiandao/internal/runner"
	"qiandao/internal/screen"
	"qiandao/internal/screen/screentest"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentNotifications struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (s *sentNotifications) Send(n notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return nil
}

func (s *sentNotifications) Name() string { return "test" }

// exclusiveDisplay counts display calls that start while another is still
// in flight.
type exclusiveDisplay struct {
	screen.Display
	inFlight  atomic.Int32
	overlaps  atomic.Int32
	locations atomic.Int32
}

func (d *exclusiveDisplay) enter() func() {
	if d.inFlight.Add(1) > 1 {
		d.overlaps.Add(1)
	}
	return func() { d.inFlight.Add(-1) }
}

func (d *exclusiveDisplay) Location() (screen.Point, error) {
	defer d.enter()()
	d.locations.Add(1)
	return d.Display.Location()
}

func (d *exclusiveDisplay) MoveTo(p screen.Point, dur time.Duration) error {
	defer d.enter()()
	time.Sleep(2 * time.Millisecond)
	return d.Display.MoveTo(p, dur)
}

func (d *exclusiveDisplay) Click(p screen.Point) error {
	defer d.enter()()
	return d.Display.Click(p)
}

func (d *exclusiveDisplay) Pixel(p screen.Point) (screen.Color, error) {
	defer d.enter()()
	return d.Display.Pixel(p)
}

func (d *exclusiveDisplay) Capture() (image.Image, error) {
	defer d.enter()()
	return d.Display.Capture()
}

func newTestApp(t *testing.T, fake screen.Display, mutate func(*config.Config)) (*App, *sentNotifications) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Screenshots.Dir = filepath.Join(dir, "screenshots")
	cfg.Screenshots.Keep = 1
	if mutate != nil {
		mutate(cfg)
	}

	sent := &sentNotifications{}
	a, err := New(cfg, Options{
		Display:     fake,
		Console:     &lockedBuffer{},
		Notifier:    sent,
		Clock:       &stepClock{now: time.Date(2025, 1, 1, 8, 30, 0, 0, time.UTC)},
		HistoryPath: filepath.Join(dir, "history.json"),
		NoLogFile:   true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(time.Second) })
	return a, sent
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func TestApp_RunRecordsAndNotifies(t *testing.T) {
	a, sent := newTestApp(t, screentest.New(), nil)
	events, cancel := a.Bus.Subscribe(256)
	defer cancel()

	res, err := a.Runner.RunSync(runner.SourceManual)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.FileExists(t, res.ScreenshotPath)

	entries, err := a.History.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "manual", entries[0].Source)
	assert.Equal(t, res.RunID, entries[0].RunID)

	require.Len(t, sent.sent, 1)
	assert.True(t, sent.sent[0].Success)

	results := 0
drain:
	for {
		select {
		case e := <-events:
			if e.Kind == progress.KindResult {
				results++
				assert.Equal(t, res.RunID, e.RunID)
			}
		default:
			break drain
		}
	}
	assert.Equal(t, 1, results)

	// A second run prunes down to one screenshot.
	_, err = a.Runner.RunSync(runner.SourceManual)
	require.NoError(t, err)
	files, err := a.Shots.List()
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestApp_InvalidConfigFailsRun(t *testing.T) {
	a, sent := newTestApp(t, screentest.New(), func(c *config.Config) {
		delete(c.Positions, "sign_btn")
	})

	res, err := a.Runner.RunSync(runner.SourceHTTP)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "sign_btn")
	assert.Empty(t, res.ScreenshotPath)
	require.Len(t, sent.sent, 1)
	assert.False(t, sent.sent[0].Success)
}

func TestApp_PanicSwitchResetsBetweenRuns(t *testing.T) {
	fake := screentest.New()
	a, _ := newTestApp(t, fake, nil)
	require.NotNil(t, a.Guard)

	fake.Warp(screen.Point{})
	res, err := a.Runner.RunSync(runner.SourceManual)
	require.NoError(t, err)
	assert.True(t, res.Aborted)

	fake.Warp(screen.Point{X: 800, Y: 600})
	res, err = a.Runner.RunSync(runner.SourceManual)
	require.NoError(t, err)
	assert.True(t, res.Success, res.Message)
}

func TestApp_DisplayCallsNeverOverlap(t *testing.T) {
	d := &exclusiveDisplay{Display: screentest.New()}
	a, _ := newTestApp(t, d, nil)
	require.NotNil(t, a.Guard)

	res, err := a.Runner.RunSync(runner.SourceManual)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Zero(t, d.overlaps.Load())
	// Pauses are covered by pointer checks on the worker.
	assert.Greater(t, d.locations.Load(), int32(30))
}

func TestApp_PanicSwitchDuringPause(t *testing.T) {
	fake := screentest.New()
	a, _ := newTestApp(t, fake, nil)
	// The first click lands, then the operator throws the pointer into the
	// corner while the browser window settles.
	fake.ClickErr = func(p screen.Point, n int) error {
		fake.Warp(screen.Point{})
		return nil
	}

	res, err := a.Runner.RunSync(runner.SourceManual)
	require.NoError(t, err)
	assert.True(t, res.Aborted)
	assert.Len(t, fake.Clicks(), 1)
}

func TestApp_StartScheduleRespectsConfig(t *testing.T) {
	off := false
	a, _ := newTestApp(t, screentest.New(), func(c *config.Config) {
		c.Schedule.Enabled = &off
	})
	require.NoError(t, a.StartSchedule())
	assert.False(t, a.Scheduler.Running())

	b, _ := newTestApp(t, screentest.New(), nil)
	require.NoError(t, b.StartSchedule())
	at, ok := b.Scheduler.At()
	require.True(t, ok)
	assert.Equal(t, 8, at.Hour)
	assert.Equal(t, 30, at.Minute)
}
