// Package commands implements the qiandao subcommands.
package commands

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"qiandao/internal/app"
	"qiandao/internal/config"
	"qiandao/internal/output"
	"qiandao/internal/runner"
	"qiandao/internal/tui"
	"qiandao/internal/ui"
)

// shutdownGrace bounds how long shutdown waits for a sign-in in flight.
const shutdownGrace = 90 * time.Second

// fail reports err and exits with status 1.
func fail(msg string, err error) {
	if output.JSONMode {
		if err != nil {
			output.PrintError(fmt.Errorf("%s: %w", msg, err))
		}
		output.PrintError(fmt.Errorf("%s", msg))
	}
	ui.ShowError(msg, err)
	os.Exit(1)
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fail("Failed to load config "+config.Path(), err)
	}
	return cfg
}

func openApp(cfg *config.Config, opts app.Options) *app.App {
	a, err := app.New(cfg, opts)
	if err != nil {
		fail("Failed to start", err)
	}
	return a
}

// RunTUI opens the dashboard. The stdlib logger is pointed at the log file
// so it does not draw over the screen.
func RunTUI() {
	cfg := loadConfig()
	a := openApp(cfg, app.Options{Console: io.Discard})
	log.SetOutput(a.LogOutput())

	if err := a.StartSchedule(); err != nil {
		log.Printf("[scheduler] %v", err)
	}
	err := tui.Run(a)
	if cerr := a.Close(shutdownGrace); cerr != nil && err == nil {
		err = cerr
	}
	log.SetOutput(os.Stderr)
	if err != nil {
		fail("TUI exited", err)
	}
}

// sourceLabel is the short human form of a run source.
func sourceLabel(s runner.Source) string {
	switch s {
	case runner.SourceScheduled:
		return "schedule"
	case "":
		return "-"
	default:
		return string(s)
	}
}
