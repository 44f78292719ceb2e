package commands

import (
	"context"
	"fmt"
	"log"
	"os"

	"qiandao/internal/app"
	"qiandao/internal/config"
	"qiandao/internal/httpserver"
	"qiandao/internal/ui"
)

// RunDaemon arms the daily trigger and, unless disabled, serves the HTTP API
// until SIGINT or SIGTERM. Shutdown waits for a sign-in in flight.
func RunDaemon(addr string, noHTTP bool) {
	cfg := loadConfig()
	a := openApp(cfg, app.Options{})

	if err := a.StartSchedule(); err != nil {
		a.Close(0)
		fail("Failed to start the scheduler", err)
	}
	if next, ok := a.Scheduler.Next(); ok {
		ui.ShowSuccess("Daily sign-in at %s, next %s", cfg.Schedule, next.Format("2006-01-02 15:04"))
	} else {
		ui.ShowWarning("Schedule disabled in %s; runs start only on request", config.Path())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	go func() {
		sig := <-sigCh
		log.Printf("[daemon] received %v, shutting down", sig)
		cancel()
	}()

	if addr == "" {
		addr = cfg.HTTP.Addr
	}
	httpDone := make(chan struct{})
	if noHTTP || addr == "" {
		close(httpDone)
	} else {
		srv := httpserver.NewHTTPServer(httpserver.Deps{
			Runner:   a.Runner,
			History:  a.History,
			Feed:     a.Bus,
			Schedule: scheduleStatus(a),
		}, cfg.HTTP.AllTokens(), Version)
		ui.ShowInfo("HTTP API listening on %s", addr)
		go func() {
			defer close(httpDone)
			if err := srv.ListenAndServe(ctx, addr, cfg.HTTP.Advertise); err != nil {
				log.Printf("[http] %v", err)
				cancel()
			}
		}()
	}

	<-ctx.Done()
	<-httpDone
	if a.Runner.Busy() {
		ui.ShowWarning("Waiting up to %s for the current sign-in to finish...", shutdownGrace)
	}
	if err := a.Close(shutdownGrace); err != nil {
		fail("Shutdown", err)
	}
	fmt.Println("Stopped.")
}

// scheduleStatus reports the daily trigger for /api/status.
func scheduleStatus(a *app.App) func() *httpserver.ScheduleStatus {
	return func() *httpserver.ScheduleStatus {
		cfg := a.Config()
		st := &httpserver.ScheduleStatus{Timezone: cfg.Schedule.Timezone}
		if at, ok := a.Scheduler.At(); ok {
			st.Enabled = true
			st.Time = at.String()
		} else {
			h, m := cfg.Schedule.Clock()
			st.Time = fmt.Sprintf("%02d:%02d", h, m)
		}
		if next, ok := a.Scheduler.Next(); ok {
			st.Next = &next
		}
		return st
	}
}
