package automation

import (
	"time"

	"qiandao/internal/progress"
	"qiandao/internal/screen"
)

// WaitSpec describes what AwaitCondition polls for. A nil Target means a
// settle pause only: the wait succeeds right after the pointer reaches the
// position.
type WaitSpec struct {
	Position PositionName
	Target   *screen.Color
	Timeout  time.Duration
}

// AwaitCondition polls spec.Position every ShortWait until the sampled pixel
// equals spec.Target or spec.Timeout has elapsed. Failed moves and samples
// count as "not yet". The error is non-nil only for the panic switch or an
// unknown position.
func (w *Workflow) AwaitCondition(spec WaitSpec) (bool, error) {
	pt, err := w.point(spec.Position)
	if err != nil {
		return false, err
	}

	start := w.clock.Now()
	for w.clock.Now().Sub(start) < spec.Timeout {
		err := w.display.MoveTo(pt, w.timings.SettleMove)
		if IsAbort(err) {
			return false, err
		}
		if err == nil {
			if spec.Target == nil {
				w.clock.Sleep(w.timings.ShortWait)
				return true, nil
			}
			c, err := w.display.Pixel(pt)
			if IsAbort(err) {
				return false, err
			}
			if err == nil && c == *spec.Target {
				return true, nil
			}
		}
		// The move itself takes time; never sleep past the deadline.
		if rem := spec.Timeout - w.clock.Now().Sub(start); rem > 0 {
			w.clock.Sleep(min(w.timings.ShortWait, rem))
		}
	}

	w.emit(progress.LevelWarn, progress.KindTimeout, "waiting at %s timed out (%s)", pt, spec.Timeout)
	return false, nil
}
