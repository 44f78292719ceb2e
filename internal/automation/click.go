package automation

import (
	"qiandao/internal/progress"
	"qiandao/internal/screen"
)

// ClickWithRetry clicks the named position up to Timings.RetryTimes times.
// After a click that went through, a non-nil target must show up at the
// position within ElementTimeout; without a target the click is followed by
// a LongWait settle pause and counts as success. Only the panic switch
// yields an error; everything else ends in (false, nil) once attempts are
// used up.
func (w *Workflow) ClickWithRetry(name PositionName, desc string, target *screen.Color) (bool, error) {
	pt, err := w.point(name)
	if err != nil {
		return false, err
	}

	n := w.timings.RetryTimes
	for attempt := 1; attempt <= n; attempt++ {
		w.emit(progress.LevelInfo, progress.KindAttempt, "attempt %d/%d: %s", attempt, n, desc)

		if err := w.press(pt); err != nil {
			if IsAbort(err) {
				return false, err
			}
			w.emit(progress.LevelError, progress.KindClickFail, "clicking %s failed: %v", desc, err)
			w.clock.Sleep(w.timings.LongWait)
			continue
		}
		w.emit(progress.LevelSuccess, progress.KindClick, "clicked %s", desc)

		if target == nil {
			w.clock.Sleep(w.timings.LongWait)
			return true, nil
		}
		ok, err := w.AwaitCondition(WaitSpec{Position: name, Target: target, Timeout: w.timings.ElementTimeout})
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	w.emit(progress.LevelError, progress.KindExhausted, "%s still failing after %d attempts", desc, n)
	return false, nil
}

func (w *Workflow) press(pt screen.Point) error {
	if err := w.display.MoveTo(pt, w.timings.MoveDuration); err != nil {
		return &InputError{Op: "move", Point: pt, Err: err}
	}
	if err := w.display.Click(pt); err != nil {
		return &InputError{Op: "click", Point: pt, Err: err}
	}
	return nil
}
