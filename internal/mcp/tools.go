package mcpserver

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"qiandao/internal/automation"
	"qiandao/internal/runner"
)

type tools struct {
	runner  Runner
	history History
}

func registerTools(server *mcpsdk.Server, t *tools) {
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "sign_in_now",
		Description: "Run the daily sign-in immediately and wait for the verdict. Fails if a run is already in progress. Takes control of the mouse for about a minute.",
	}, t.signInNow)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "sign_in_status",
		Description: "Report whether a sign-in is running, its current stage, and the last result",
	}, t.signInStatus)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "sign_in_history",
		Description: "List recent sign-in runs, newest first",
	}, t.signInHistory)
}

// sign_in_now

type signInNowInput struct{}

// runSummary flattens a result into schema-friendly fields.
type runSummary struct {
	RunID          string `json:"runId"`
	Source         string `json:"source,omitempty"`
	Success        bool   `json:"success"`
	Aborted        bool   `json:"aborted"`
	Message        string `json:"message"`
	Stage          string `json:"stage"`
	ScreenshotPath string `json:"screenshotPath,omitempty"`
	StartedAt      string `json:"startedAt"`
	Duration       string `json:"duration"`
}

func summarize(source string, res automation.Result) runSummary {
	return runSummary{
		RunID:          res.RunID,
		Source:         source,
		Success:        res.Success,
		Aborted:        res.Aborted,
		Message:        res.Message,
		Stage:          res.Stage.String(),
		ScreenshotPath: res.ScreenshotPath,
		StartedAt:      res.StartedAt.Format(time.RFC3339),
		Duration:       res.Duration().Round(time.Millisecond).String(),
	}
}

type signInNowOutput struct {
	Run runSummary `json:"run"`
}

func (t *tools) signInNow(ctx context.Context, req *mcpsdk.CallToolRequest, input signInNowInput) (*mcpsdk.CallToolResult, signInNowOutput, error) {
	res, err := t.runner.RunSync(runner.SourceMCP)
	if err != nil {
		return nil, signInNowOutput{}, fmt.Errorf("sign-in not started: %w", err)
	}
	return nil, signInNowOutput{Run: summarize(string(runner.SourceMCP), res)}, nil
}

// sign_in_status

type signInStatusInput struct{}

type signInStatusOutput struct {
	Running bool        `json:"running"`
	RunID   string      `json:"runId,omitempty"`
	Source  string      `json:"source,omitempty"`
	Stage   string      `json:"stage,omitempty"`
	Last    *runSummary `json:"last,omitempty"`
}

func (t *tools) signInStatus(ctx context.Context, req *mcpsdk.CallToolRequest, input signInStatusInput) (*mcpsdk.CallToolResult, signInStatusOutput, error) {
	st := t.runner.Status()
	out := signInStatusOutput{
		Running: st.Running,
		RunID:   st.RunID,
		Source:  string(st.Source),
		Stage:   st.Stage,
	}
	if st.Last != nil {
		last := summarize(string(st.LastSource), *st.Last)
		out.Last = &last
	}
	return nil, out, nil
}

// sign_in_history

type signInHistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of runs to return (default 10)"`
}

type signInHistoryOutput struct {
	Runs []runSummary `json:"runs"`
}

func (t *tools) signInHistory(ctx context.Context, req *mcpsdk.CallToolRequest, input signInHistoryInput) (*mcpsdk.CallToolResult, signInHistoryOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}
	entries, err := t.history.List(limit)
	if err != nil {
		return nil, signInHistoryOutput{}, fmt.Errorf("failed to read history: %w", err)
	}
	out := signInHistoryOutput{Runs: make([]runSummary, 0, len(entries))}
	for _, e := range entries {
		out.Runs = append(out.Runs, summarize(e.Source, e.Result))
	}
	return nil, out, nil
}
