// Package app assembles the sign-in bot from a loaded configuration.
package app

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"qiandao/internal/automation"
	"qiandao/internal/config"
	"qiandao/internal/history"
	"qiandao/internal/notify"
	"qiandao/internal/progress"
	"qiandao/internal/runner"
	"qiandao/internal/scheduler"
	"qiandao/internal/screen"
	"qiandao/internal/shots"
)

// Options override the parts of the app that touch the real machine.
type Options struct {
	Display     screen.Display   // defaults to the robotgo display
	Console     io.Writer        // progress log echo; nil means os.Stderr
	Notifier    notify.Notifier  // defaults to the configured notifiers
	Clock       automation.Clock // defaults to the wall clock
	HistoryPath string           // defaults to ~/.qiandao/history.json
	NoLogFile   bool
}

// App owns every long-lived component.
type App struct {
	cfgMu sync.Mutex
	cfg   *config.Config

	Bus       *progress.Bus
	Log       *progress.LogSink
	Guard     *screen.Guard // nil when the panic switch is disabled
	Shots     *shots.Store
	History   *history.Store
	Notifier  notify.Notifier
	Runner    *runner.Runner
	Scheduler *scheduler.Scheduler

	display screen.Display
	clock   automation.Clock
	logFile *os.File
	detach  []func()
}

// New wires the components. The scheduler is created but not started.
func New(cfg *config.Config, opts Options) (*App, error) {
	a := &App{cfg: cfg, Bus: progress.NewBus(), clock: opts.Clock}
	if a.clock == nil {
		a.clock = automation.SystemClock
	}

	writers := []io.Writer{opts.Console}
	if opts.Console == nil {
		writers[0] = os.Stderr
	}
	if !opts.NoLogFile && cfg.Log.File != "" {
		f, err := progress.OpenLogFile(cfg.Log.File)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		writers = append(writers, f)
	}
	a.Log = progress.NewLogSink("qiandao", writers...)
	a.detach = append(a.detach, a.Bus.Attach(a.Log))

	a.display = opts.Display
	if a.display == nil {
		a.display = screen.NewRobot()
	}
	if cfg.Failsafe.IsEnabled() {
		a.Guard = screen.NewGuard(a.display, cfg.Failsafe.Margin)
		a.display = a.Guard
	}

	a.Shots = shots.NewStore(cfg.Screenshots.Dir, cfg.Screenshots.Prefix)

	histPath := opts.HistoryPath
	if histPath == "" {
		histPath = config.HistoryPath()
	}
	a.History = history.NewStore(histPath, history.DefaultLimit)

	a.Notifier = opts.Notifier
	if a.Notifier == nil {
		a.Notifier = notify.FromConfig(cfg.Notify)
	}

	a.Runner = runner.New(a.job)
	a.detach = append(a.detach, a.Bus.Attach(a.Runner))
	a.Runner.OnResult(a.record)

	loc, err := cfg.Schedule.Location()
	if err != nil {
		return nil, err
	}
	a.Scheduler = scheduler.New(a.trigger, loc)
	return a, nil
}

// Config returns the configuration currently in force.
func (a *App) Config() *config.Config {
	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()
	return a.cfg
}

func (a *App) trigger() error {
	_, err := a.Runner.Submit(runner.SourceScheduled)
	return err
}

// job runs one workflow on the runner's worker.
func (a *App) job(runID string) automation.Result {
	cfg := a.Config()
	started := a.clock.Now()

	clock := a.clock
	if a.Guard != nil {
		a.Guard.Reset()
		clock = automation.PollingClock(a.clock, cfg.Failsafe.Poll, a.Guard.Check)
	}

	wc, err := cfg.Workflow()
	var wf *automation.Workflow
	if err == nil {
		wf, err = automation.New(a.display, a.Shots, wc,
			automation.WithReporter(a.Bus),
			automation.WithRunID(runID),
			automation.WithClock(clock),
		)
	}
	if err != nil {
		msg := "sign-in failed: " + err.Error()
		a.Bus.Publish(progress.Event{RunID: runID, Level: progress.LevelError, Kind: progress.KindResult, Message: msg})
		return automation.Result{RunID: runID, Message: msg, Stage: automation.StageIdle, StartedAt: started, FinishedAt: a.clock.Now()}
	}

	res := wf.Run()

	if keep := cfg.Screenshots.Keep; keep > 0 && res.Success {
		if n, err := a.Shots.Prune(keep); err != nil {
			log.Printf("[shots] prune: %v", err)
		} else if n > 0 {
			log.Printf("[shots] removed %d old screenshots", n)
		}
	}
	return res
}

// record persists and announces a finished run.
func (a *App) record(src runner.Source, res automation.Result) {
	if err := a.History.Append(history.Entry{Source: string(src), Result: res}); err != nil {
		log.Printf("[history] append: %v", err)
	}
	notify.Deliver(a.Notifier, notify.FromResult(string(src), res))
}

// LogOutput is the log file, or io.Discard when logging to a file is off.
// Interactive front ends point the stdlib logger here.
func (a *App) LogOutput() io.Writer {
	if a.logFile == nil {
		return io.Discard
	}
	return a.logFile
}

// StartSchedule arms the daily trigger when the config enables it.
func (a *App) StartSchedule() error {
	cfg := a.Config()
	if !cfg.Schedule.IsEnabled() {
		log.Printf("[scheduler] disabled in config")
		return nil
	}
	h, m := cfg.Schedule.Clock()
	return a.Scheduler.Start(scheduler.TimeOfDay{Hour: h, Minute: m})
}

// SetSchedule persists a new daily time and re-arms the trigger if it is
// running.
func (a *App) SetSchedule(hour, minute int) error {
	cfg, err := config.SetScheduleTime(hour, minute)
	if err != nil {
		return err
	}
	a.cfgMu.Lock()
	a.cfg.Schedule.Hour = cfg.Schedule.Hour
	a.cfg.Schedule.Minute = cfg.Schedule.Minute
	a.cfgMu.Unlock()

	if a.Scheduler.Running() {
		return a.Scheduler.Start(scheduler.TimeOfDay{Hour: hour, Minute: minute})
	}
	return nil
}

// Close stops the scheduler, waits up to grace for a run in flight, and
// flushes the log file.
func (a *App) Close(grace time.Duration) error {
	a.Scheduler.Stop()
	err := a.Runner.Stop(grace)
	if err != nil {
		log.Printf("[app] %v; the target application may need manual recovery", err)
	}
	for _, d := range a.detach {
		d()
	}
	if a.logFile != nil {
		a.logFile.Sync()
		a.logFile.Close()
	}
	return err
}
