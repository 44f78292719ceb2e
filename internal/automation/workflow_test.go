package automation

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qiandao/internal/progress"
	"qiandao/internal/screen"
	"qiandao/internal/screen/screentest"
)

func TestRun_Success(t *testing.T) {
	fake := screentest.New()
	h := newHarness(t, fake, DefaultConfig())

	res := h.wf.Run()

	require.True(t, res.Success, res.Message)
	require.NotEmpty(t, res.ScreenshotPath)
	assert.FileExists(t, res.ScreenshotPath)
	assert.Contains(t, res.Message, res.ScreenshotPath)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, StageDone, res.Stage)
	assert.Equal(t, StageDone, h.wf.Stage())
	assert.False(t, res.Aborted)
	assert.True(t, res.FinishedAt.After(res.StartedAt))

	want := []screen.Point{
		pos(BrowserIcon), pos(BrowserIcon),
		pos(Bookmark), pos(GameSubtab), pos(GameLink),
		pos(Bookmark), pos(GameSubtab), pos(GameLink),
		pos(SignTab), pos(SignButton),
	}
	assert.Equal(t, want, fake.Clicks())

	results := h.rec.kind(progress.KindResult)
	require.Len(t, results, 1)
	assert.Equal(t, progress.LevelSuccess, results[0].Level)
}

func TestRun_StagesInOrder(t *testing.T) {
	h := newHarness(t, screentest.New(), DefaultConfig())
	h.wf.Run()

	var got []string
	for _, e := range h.rec.kind(progress.KindStage) {
		got = append(got, e.Stage)
	}
	assert.Equal(t, []string{
		"ActivatingWindow",
		"Navigating",
		"Renavigating",
		"AwaitingPageLoad",
		"ClickingSignTab",
		"AwaitingPanelLoad",
		"ClickingSignButton",
		"CapturingProof",
	}, got)

	var done []string
	for _, e := range h.rec.kind(progress.KindStageDone) {
		assert.Equal(t, progress.LevelSuccess, e.Level)
		done = append(done, e.Stage)
	}
	assert.Equal(t, got, done, "one completion message per stage")
}

func TestRun_FailedStageHasNoCompletion(t *testing.T) {
	fake := screentest.New()
	fake.ClickErr = func(p screen.Point, n int) error {
		if p == pos(SignTab) {
			return errors.New("stuck")
		}
		return nil
	}
	h := newHarness(t, fake, DefaultConfig())
	h.wf.Run()

	var done []string
	for _, e := range h.rec.kind(progress.KindStageDone) {
		done = append(done, e.Stage)
	}
	assert.Equal(t, []string{"ActivatingWindow", "Navigating", "Renavigating", "AwaitingPageLoad"}, done)
}

func TestStageUnmarshalText(t *testing.T) {
	var s Stage
	require.NoError(t, s.UnmarshalText([]byte("AwaitingPanelLoad")))
	assert.Equal(t, StageAwaitingPanelLoad, s)

	s = StageDone
	assert.Error(t, s.UnmarshalText([]byte("Launching")))
	assert.Equal(t, StageDone, s, "unchanged on error")
}

func TestPollingClock_ChecksBetweenSlices(t *testing.T) {
	base := newFakeClock()
	checks := 0
	c := PollingClock(base, 100*time.Millisecond, func() error {
		checks++
		return nil
	})

	c.Sleep(350 * time.Millisecond)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond, 50 * time.Millisecond,
	}, base.slept)
	assert.Equal(t, 4, checks)
}

func TestPollingClock_StopsOnceTripped(t *testing.T) {
	base := newFakeClock()
	c := PollingClock(base, 100*time.Millisecond, func() error {
		if len(base.slept) >= 2 {
			return screen.ErrPanicSwitch
		}
		return nil
	})

	c.Sleep(3 * time.Second)
	assert.Equal(t, 200*time.Millisecond, sum(base.slept))
}

func TestRun_PanicSwitchDuringPause(t *testing.T) {
	fake := screentest.New()
	guard := screen.NewGuard(fake, 0)
	h := newHarness(t, guard, DefaultConfig())
	// The operator reaches the corner while the bot waits for the browser
	// window; no further click may happen.
	start := h.clock.Now()
	h.wf.clock = PollingClock(h.clock, 100*time.Millisecond, func() error {
		if h.clock.Now().Sub(start) >= time.Second {
			fake.Warp(screen.Point{})
		}
		return guard.Check()
	})

	res := h.wf.Run()
	assert.True(t, res.Aborted)
	assert.Equal(t, StageActivatingWindow, res.Stage)
	assert.Equal(t, []screen.Point{pos(BrowserIcon)}, fake.Clicks())
}

func TestRun_FailureShortCircuits(t *testing.T) {
	tests := []struct {
		name      string
		failAt    PositionName
		stage     Stage
		message   string
		notAfter  []PositionName
		failCount int
	}{
		{
			name:      "sign-in button",
			failAt:    SignButton,
			stage:     StageClickingSignButton,
			message:   "clicking sign-in button failed",
			failCount: 3,
		},
		{
			name:      "sign-in tab",
			failAt:    SignTab,
			stage:     StageClickingSignTab,
			message:   "clicking sign-in tab failed",
			notAfter:  []PositionName{SignButton},
			failCount: 3,
		},
		{
			name:      "game sub-tab",
			failAt:    GameSubtab,
			stage:     StageNavigating,
			message:   "clicking game sub-tab failed",
			notAfter:  []PositionName{GameLink, SignTab, SignButton},
			failCount: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := screentest.New()
			target := pos(tt.failAt)
			fake.ClickErr = func(p screen.Point, n int) error {
				if p == target {
					return errors.New("click swallowed by overlay")
				}
				return nil
			}
			h := newHarness(t, fake, DefaultConfig())

			res := h.wf.Run()

			assert.False(t, res.Success)
			assert.Empty(t, res.ScreenshotPath)
			assert.Contains(t, res.Message, tt.message)
			assert.Equal(t, tt.stage, res.Stage)
			assert.Equal(t, tt.failCount, fake.Count(screentest.OpClick, target))
			for _, name := range tt.notAfter {
				assert.Zero(t, fake.Count(screentest.OpClick, pos(name)), "%s clicked after failure", name)
			}
			assert.Zero(t, fake.Count(screentest.OpCapture, screen.Point{}))
			assertNoScreenshots(t, h.dir)

			results := h.rec.kind(progress.KindResult)
			require.Len(t, results, 1)
			assert.Equal(t, progress.LevelError, results[0].Level)
		})
	}
}

func TestRun_UnreachableCoordinates(t *testing.T) {
	fake := screentest.New()
	fake.MoveErr = func(p screen.Point, n int) error { return errors.New("pointer unreachable") }
	h := newHarness(t, fake, DefaultConfig())

	res := h.wf.Run()

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "browser window activation failed")
	assert.Equal(t, StageActivatingWindow, res.Stage)
	assert.Equal(t, 3, fake.Count(screentest.OpMove, pos(BrowserIcon)))
	assert.Empty(t, fake.Clicks())
	assert.Len(t, h.rec.kind(progress.KindAttempt), 3)
	assert.Len(t, h.rec.kind(progress.KindExhausted), 1)
	assertNoScreenshots(t, h.dir)
}

func TestRun_ActivationReclickFailure(t *testing.T) {
	fake := screentest.New()
	icon := pos(BrowserIcon)
	fake.ClickErr = func(p screen.Point, n int) error {
		if p == icon && n == 1 {
			return errors.New("window vanished")
		}
		return nil
	}
	h := newHarness(t, fake, DefaultConfig())

	res := h.wf.Run()
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "browser window activation failed")
	assert.Zero(t, fake.Count(screentest.OpClick, pos(Bookmark)))
}

func TestRun_WaitColorTimesOut(t *testing.T) {
	fake := screentest.New()
	fake.Script(pos(GameLink), black)
	cfg := DefaultConfig()
	cfg.WaitColors = map[PositionName]screen.Color{GameLink: red}
	h := newHarness(t, fake, cfg)

	res := h.wf.Run()

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "game page load timed out")
	assert.Equal(t, StageAwaitingPageLoad, res.Stage)
	assert.Zero(t, fake.Count(screentest.OpClick, pos(SignTab)))
	assert.Len(t, h.rec.kind(progress.KindTimeout), 1)
}

func TestRun_WaitColorMatches(t *testing.T) {
	fake := screentest.New()
	fake.Script(pos(SignButton), black, black, red)
	cfg := DefaultConfig()
	cfg.WaitColors = map[PositionName]screen.Color{SignButton: red}
	h := newHarness(t, fake, cfg)

	res := h.wf.Run()
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 3, fake.Count(screentest.OpPixel, pos(SignButton)))
}

func TestRun_PanicSwitchAborts(t *testing.T) {
	fake := screentest.New()
	bookmark := pos(Bookmark)
	// The operator yanks the mouse into the corner as soon as the bot
	// reaches the bookmark bar.
	fake.OnMove = func(p screen.Point, d time.Duration) {
		if p == bookmark {
			fake.Warp(screen.Point{})
		}
	}
	guard := screen.NewGuard(fake, 0)
	h := newHarness(t, guard, DefaultConfig())

	res := h.wf.Run()

	assert.False(t, res.Success)
	assert.True(t, res.Aborted)
	assert.Contains(t, res.Message, "panic switch")
	assert.Equal(t, StageNavigating, res.Stage)
	assert.Zero(t, fake.Count(screentest.OpClick, bookmark))
	assert.Len(t, h.rec.kind(progress.KindExhausted), 0)
	assertNoScreenshots(t, h.dir)
}

func TestRun_CaptureFailure(t *testing.T) {
	fake := screentest.New()
	fake.CaptureErr = errors.New("no display")
	h := newHarness(t, fake, DefaultConfig())

	res := h.wf.Run()
	assert.False(t, res.Success)
	assert.Equal(t, StageCapturingProof, res.Stage)
	assert.Contains(t, res.Message, "capturing proof screenshot failed")
	assertNoScreenshots(t, h.dir)
}

func TestNew_Validation(t *testing.T) {
	fake := screentest.New()
	h := newHarness(t, fake, DefaultConfig())

	cfg := DefaultConfig()
	delete(cfg.Positions, SignTab)
	_, err := New(fake, h.store, cfg)
	assert.ErrorContains(t, err, "sign_tag")

	cfg = DefaultConfig()
	cfg.Timings.RetryTimes = 0
	_, err = New(fake, h.store, cfg)
	assert.ErrorContains(t, err, "retry_times")

	_, err = New(nil, h.store, DefaultConfig())
	assert.Error(t, err)
}

func TestNew_CopiesConfig(t *testing.T) {
	fake := screentest.New()
	cfg := DefaultConfig()
	h := newHarness(t, fake, cfg)

	cfg.Positions[Bookmark] = screen.Point{X: 1, Y: 1}
	res := h.wf.Run()
	require.True(t, res.Success)
	assert.Zero(t, fake.Count(screentest.OpClick, screen.Point{X: 1, Y: 1}))
}

func TestPositions(t *testing.T) {
	p := DefaultPositions()
	require.NoError(t, p.Validate())
	assert.Empty(t, p.Outside(1920, 1080))
	assert.Equal(t, []PositionName{Bookmark, BrowserIcon, GameSubtab, SignButton, SignTab}, p.Outside(1366, 768))

	p[GameLink] = screen.Point{X: -1, Y: 10}
	assert.ErrorContains(t, p.Validate(), "negative")
}

func TestResultInvariants(t *testing.T) {
	ok := succeeded("/tmp/x.png", "done")
	assert.True(t, ok.Success)
	assert.NotEmpty(t, ok.ScreenshotPath)

	bad := failed(StageNavigating, "")
	assert.False(t, bad.Success)
	assert.NotEmpty(t, bad.Message)
	assert.Empty(t, bad.ScreenshotPath)

	assert.Panics(t, func() { succeeded("", "done") })
}

func assertNoScreenshots(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return
	}
	require.NoError(t, err)
	assert.Empty(t, entries)
}
