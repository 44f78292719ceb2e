package automation

import (
	"fmt"
	"time"
)

// Timings holds every pause, timeout and retry bound of the workflow.
type Timings struct {
	RetryTimes       int           `yaml:"retry_times" json:"retry_times"`
	ElementTimeout   time.Duration `yaml:"element_timeout" json:"element_timeout"`     // colour verification after a click
	ShortWait        time.Duration `yaml:"short_wait" json:"short_wait"`               // poll interval
	LongWait         time.Duration `yaml:"long_wait" json:"long_wait"`                 // settle after a click or a failed attempt
	ActivateSettle   time.Duration `yaml:"activate_settle" json:"activate_settle"`     // browser window coming up
	PageLoadTimeout  time.Duration `yaml:"page_load_timeout" json:"page_load_timeout"` // game page
	PanelLoadTimeout time.Duration `yaml:"panel_load_timeout" json:"panel_load_timeout"`
	ProofDelay       time.Duration `yaml:"proof_delay" json:"proof_delay"` // before the proof screenshot
	MoveDuration     time.Duration `yaml:"move_duration" json:"move_duration"`
	SettleMove       time.Duration `yaml:"settle_move" json:"settle_move"`
}

// DefaultTimings are the values the bot has shipped with.
func DefaultTimings() Timings {
	return Timings{
		RetryTimes:       3,
		ElementTimeout:   20 * time.Second,
		ShortWait:        500 * time.Millisecond,
		LongWait:         2 * time.Second,
		ActivateSettle:   3 * time.Second,
		PageLoadTimeout:  20 * time.Second,
		PanelLoadTimeout: 15 * time.Second,
		ProofDelay:       3 * time.Second,
		MoveDuration:     300 * time.Millisecond,
		SettleMove:       200 * time.Millisecond,
	}
}

// Validate rejects a zero retry bound and negative durations.
func (t Timings) Validate() error {
	if t.RetryTimes < 1 {
		return fmt.Errorf("retry_times must be at least 1, got %d", t.RetryTimes)
	}
	for name, d := range map[string]time.Duration{
		"element_timeout":    t.ElementTimeout,
		"short_wait":         t.ShortWait,
		"long_wait":          t.LongWait,
		"activate_settle":    t.ActivateSettle,
		"page_load_timeout":  t.PageLoadTimeout,
		"panel_load_timeout": t.PanelLoadTimeout,
		"proof_delay":        t.ProofDelay,
		"move_duration":      t.MoveDuration,
		"settle_move":        t.SettleMove,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if t.ShortWait == 0 {
		return fmt.Errorf("short_wait must be positive")
	}
	return nil
}

// Clock is the time source of the workflow.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

type pollingClock struct {
	Clock
	poll  time.Duration
	check func() error
}

// PollingClock slices every Sleep of c into poll-sized steps and runs check
// between them, on the sleeping goroutine. Sleep returns early once check
// fails; the next display operation then reports the failure.
func PollingClock(c Clock, poll time.Duration, check func() error) Clock {
	if poll <= 0 || check == nil {
		return c
	}
	return pollingClock{Clock: c, poll: poll, check: check}
}

func (c pollingClock) Sleep(d time.Duration) {
	for d > 0 {
		step := min(c.poll, d)
		c.Clock.Sleep(step)
		d -= step
		if c.check() != nil {
			return
		}
	}
}
