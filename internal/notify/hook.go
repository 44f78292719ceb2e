package notify

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	json "github.com/goccy/go-json"
)

// HookPayload is the JSON structure passed to hook scripts via stdin.
type HookPayload struct {
	RunID          string `json:"runId"`
	Source         string `json:"source,omitempty"`
	Success        bool   `json:"success"`
	Stage          string `json:"stage,omitempty"`
	Message        string `json:"message"`
	ScreenshotPath string `json:"screenshotPath,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// HookNotifier runs a user script with the run outcome on stdin.
type HookNotifier struct {
	ScriptPath string
	Timeout    time.Duration
}

// NewHookNotifier creates a HookNotifier with a 30-second timeout.
func NewHookNotifier(scriptPath string) *HookNotifier {
	return &HookNotifier{ScriptPath: scriptPath, Timeout: 30 * time.Second}
}

// Send runs the script. The JSON-encoded payload is passed via stdin.
func (h *HookNotifier) Send(n Notification) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.Timeout)
	defer cancel()

	data, err := json.Marshal(HookPayload{
		RunID:          n.RunID,
		Source:         n.Source,
		Success:        n.Success,
		Stage:          n.Stage,
		Message:        n.Message,
		ScreenshotPath: n.ScreenshotPath,
		Timestamp:      n.Time,
	})
	if err != nil {
		return fmt.Errorf("hook marshal payload: %w", err)
	}

	cmd := exec.CommandContext(ctx, h.ScriptPath)
	cmd.Stdin = bytes.NewReader(data)
	cmd.WaitDelay = time.Second
	output, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("hook timed out after %s: %s", h.Timeout, h.ScriptPath)
	}
	if err != nil {
		return fmt.Errorf("hook execution failed: %w (output: %s)", err, string(output))
	}
	return nil
}

// Name returns the name of this notifier.
func (h *HookNotifier) Name() string { return "hook" }
