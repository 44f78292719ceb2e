package commands

import (
	"io"
	"os"

	"qiandao/internal/app"
	"qiandao/internal/output"
	"qiandao/internal/progress"
	"qiandao/internal/runner"
	"qiandao/internal/ui"
)

// RunOnce signs in now and exits non-zero when the sign-in fails.
func RunOnce() {
	cfg := loadConfig()
	a := openApp(cfg, app.Options{Console: io.Discard})

	events, cancel := a.Bus.Subscribe(256)
	done := make(chan struct{})
	go func() {
		defer close(done)
		printEvents(events)
	}()

	if !output.JSONMode {
		ui.ShowHeader("qiandao sign-in")
		ui.ShowInfo("Move the pointer into the top-left corner to abort")
	}

	res, err := a.Runner.RunSync(runner.SourceManual)
	cancel()
	<-done
	if cerr := a.Close(shutdownGrace); err == nil {
		err = cerr
	}
	if err != nil {
		fail("Sign-in could not run", err)
	}

	// The result event already carried the message; JSON consumers also get
	// the full record.
	if output.JSONMode {
		output.Line(res)
	}
	if !res.Success {
		os.Exit(1)
	}
}

// printEvents echoes progress until the channel closes: JSON lines in JSON
// mode, glyph lines otherwise.
func printEvents(events <-chan progress.Event) {
	for e := range events {
		if output.JSONMode {
			output.Line(e)
		} else {
			ui.ShowEvent(e)
		}
	}
}
