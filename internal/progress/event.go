package progress

import (
	"fmt"
	"time"
)

// Level is the severity of a progress event.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
)

// Glyph returns the prefix shown in front of the message.
func (l Level) Glyph() string {
	switch l {
	case LevelSuccess:
		return "✓"
	case LevelWarn:
		return "!"
	case LevelError:
		return "✗"
	default:
		return "ℹ"
	}
}

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	for _, v := range []Level{LevelInfo, LevelSuccess, LevelWarn, LevelError} {
		if v.String() == string(b) {
			*l = v
			return nil
		}
	}
	return fmt.Errorf("unknown level %q", b)
}

// Kind classifies an event so consumers can filter without parsing text.
type Kind string

const (
	KindRun       Kind = "run"        // run started, environment info
	KindStage     Kind = "stage"      // a stage is about to act
	KindStageDone Kind = "stage_done" // a stage finished successfully
	KindAttempt   Kind = "attempt"    // one retrying-click attempt begins
	KindClick     Kind = "click"      // the click itself went through
	KindClickFail Kind = "click_failed"
	KindExhausted Kind = "exhausted" // retries used up
	KindTimeout   Kind = "timeout"   // a wait never matched
	KindResult    Kind = "result"    // terminal outcome, exactly once per run
)

// Event is one line of the ordered progress stream.
type Event struct {
	RunID   string    `json:"runId,omitempty"`
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Kind    Kind      `json:"kind"`
	Stage   string    `json:"stage,omitempty"`
	Message string    `json:"message"`
}

// String renders the glyph-prefixed text.
func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Level.Glyph(), e.Message)
}

// Reporter receives events from the automation core.
type Reporter interface {
	Report(e Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

func (f ReporterFunc) Report(e Event) { f(e) }

// Discard drops every event.
var Discard Reporter = ReporterFunc(func(Event) {})
