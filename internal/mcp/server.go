package mcpserver

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"qiandao/internal/automation"
	"qiandao/internal/history"
	"qiandao/internal/runner"
)

// Runner runs the sign-in and reports on it.
type Runner interface {
	RunSync(src runner.Source) (automation.Result, error)
	Status() runner.Status
}

// History lists past runs, newest first.
type History interface {
	List(n int) ([]history.Entry, error)
}

// NewServer builds an MCP server exposing the sign-in tools.
func NewServer(r Runner, h History, version string) *mcpsdk.Server {
	server := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "qiandao",
			Version: version,
		},
		nil,
	)
	registerTools(server, &tools{runner: r, history: h})
	return server
}

// RunServer serves the tools over stdio until the client disconnects or ctx
// is cancelled.
func RunServer(ctx context.Context, r Runner, h History, version string) error {
	return NewServer(r, h, version).Run(ctx, &mcpsdk.StdioTransport{})
}
