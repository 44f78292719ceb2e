package commands

import (
	"context"
	"log"
	"os"

	"qiandao/internal/app"
	mcpserver "qiandao/internal/mcp"
)

// RunMCP serves the sign-in tools over stdio. Stdout belongs to the
// JSON-RPC stream, so every log line goes to stderr.
func RunMCP() {
	log.SetOutput(os.Stderr)
	cfg := loadConfig()
	a := openApp(cfg, app.Options{Console: os.Stderr})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	err := mcpserver.RunServer(ctx, a.Runner, a.History, Version)
	if cerr := a.Close(shutdownGrace); err == nil {
		err = cerr
	}
	if err != nil && ctx.Err() == nil {
		log.Printf("[mcp-stdio] error: %v", err)
		os.Exit(1)
	}
}
