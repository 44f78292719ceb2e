package automation

import "time"

// Result is the verdict of one workflow run. Successful results always carry
// a screenshot path; failed ones always carry a message and never a path.
type Result struct {
	RunID          string    `json:"runId"`
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	ScreenshotPath string    `json:"screenshotPath,omitempty"`
	Stage          Stage     `json:"stage"`   // last stage entered
	Aborted        bool      `json:"aborted"` // panic switch fired
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
}

func succeeded(path, msg string) Result {
	if path == "" {
		panic("automation: successful result without screenshot path")
	}
	return Result{Success: true, Message: msg, ScreenshotPath: path, Stage: StageDone}
}

func failed(stage Stage, msg string) Result {
	if msg == "" {
		msg = stage.String() + " failed"
	}
	return Result{Success: false, Message: msg, Stage: stage}
}

// Duration is the wall time of the run.
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
