package automation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qiandao/internal/progress"
	"qiandao/internal/screen"
	"qiandao/internal/screen/screentest"
)

func TestClickWithRetry_FirstAttempt(t *testing.T) {
	fake := screentest.New()
	h := newHarness(t, fake, DefaultConfig())

	start := h.clock.Now()
	ok, err := h.wf.ClickWithRetry(Bookmark, "bookmark bar", nil)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []screen.Point{pos(Bookmark)}, fake.Clicks())
	assert.Equal(t, DefaultTimings().LongWait, h.elapsed(start))
	require.Len(t, h.rec.kind(progress.KindAttempt), 1)
	assert.Equal(t, "attempt 1/3: bookmark bar", h.rec.kind(progress.KindAttempt)[0].Message)
	require.Len(t, h.rec.kind(progress.KindClick), 1)
	assert.Empty(t, h.rec.kind(progress.KindExhausted))
}

func TestClickWithRetry_ExhaustsRetryBound(t *testing.T) {
	fake := screentest.New()
	fake.ClickErr = func(p screen.Point, n int) error { return errors.New("click rejected") }
	h := newHarness(t, fake, DefaultConfig())

	ok, err := h.wf.ClickWithRetry(SignButton, "sign-in button", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 3, fake.Count(screentest.OpClick, pos(SignButton)))
	assert.Len(t, h.rec.kind(progress.KindAttempt), 3)
	assert.Len(t, h.rec.kind(progress.KindClickFail), 3)
	assert.Empty(t, h.rec.kind(progress.KindClick))

	exhausted := h.rec.kind(progress.KindExhausted)
	require.Len(t, exhausted, 1)
	assert.Equal(t, progress.LevelError, exhausted[0].Level)
	assert.Contains(t, exhausted[0].Message, "sign-in button")

	// Every failed attempt is followed by a long pause.
	assert.Equal(t, 3*DefaultTimings().LongWait, sum(h.clock.slept))
}

func TestClickWithRetry_CustomRetryBound(t *testing.T) {
	fake := screentest.New()
	fake.MoveErr = func(p screen.Point, n int) error { return errors.New("unreachable") }
	cfg := DefaultConfig()
	cfg.Timings.RetryTimes = 5
	h := newHarness(t, fake, cfg)

	ok, err := h.wf.ClickWithRetry(SignTab, "sign-in tab", nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 5, fake.Count(screentest.OpMove, pos(SignTab)))
	assert.Len(t, h.rec.kind(progress.KindAttempt), 5)
	assert.Empty(t, fake.Clicks())
}

func TestClickWithRetry_RecoversOnSecondAttempt(t *testing.T) {
	fake := screentest.New()
	fake.ClickErr = func(p screen.Point, n int) error {
		if n == 0 {
			return errors.New("transient")
		}
		return nil
	}
	h := newHarness(t, fake, DefaultConfig())

	ok, err := h.wf.ClickWithRetry(GameLink, "game link", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, fake.Count(screentest.OpClick, pos(GameLink)))
	assert.Len(t, h.rec.kind(progress.KindAttempt), 2)
	assert.Len(t, h.rec.kind(progress.KindClickFail), 1)
	assert.Empty(t, h.rec.kind(progress.KindExhausted))
}

func TestClickWithRetry_VerifiesTargetColor(t *testing.T) {
	fake := screentest.New()
	// 40 polls cover the 20s element timeout at 0.5s intervals.
	script := make([]screen.Color, 40)
	script = append(script, red)
	fake.Script(pos(SignTab), script...)
	h := newHarness(t, fake, DefaultConfig())

	ok, err := h.wf.ClickWithRetry(SignTab, "sign-in tab", &red)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 2, fake.Count(screentest.OpClick, pos(SignTab)))
	assert.Len(t, h.rec.kind(progress.KindTimeout), 1)
	assert.Len(t, h.rec.kind(progress.KindClick), 2)
}

func TestClickWithRetry_PanicSwitchStopsRetries(t *testing.T) {
	fake := screentest.New()
	guard := screen.NewGuard(fake, 0)
	h := newHarness(t, guard, DefaultConfig())

	fake.Warp(screen.Point{})
	ok, err := h.wf.ClickWithRetry(Bookmark, "bookmark bar", nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, screen.ErrPanicSwitch)
	assert.Empty(t, fake.Clicks())
	assert.Len(t, h.rec.kind(progress.KindAttempt), 1)
	assert.Empty(t, h.rec.kind(progress.KindExhausted))
}

func TestInputErrorUnwraps(t *testing.T) {
	err := &InputError{Op: "click", Point: screen.Point{X: 1, Y: 2}, Err: screen.ErrPanicSwitch}
	assert.True(t, IsAbort(err))
	assert.Contains(t, err.Error(), "click at (1, 2)")
}
