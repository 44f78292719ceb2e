package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"qiandao/internal/config"
	"qiandao/internal/notify"
	"qiandao/internal/scheduler"
	"qiandao/internal/screen"
	"qiandao/internal/ui"
)

type doctorReport struct {
	pass, warn, fail int
}

func (r *doctorReport) ok(format string, args ...any) {
	ui.ShowSuccess(format, args...)
	r.pass++
}

func (r *doctorReport) warning(format string, args ...any) {
	ui.ShowWarning(format, args...)
	r.warn++
}

func (r *doctorReport) failed(msg string, err error) {
	ui.ShowError(msg, err)
	r.fail++
}

// RunDoctor performs diagnostic checks on the system.
func RunDoctor() {
	ui.ShowHeader("Running System Diagnostics")
	fmt.Println()
	var r doctorReport

	// 1. Config
	fmt.Println("1. Checking configuration...")
	path := config.Path()
	cfg, err := config.Load()
	if err != nil {
		r.failed("Config invalid: "+path, err)
		cfg = config.Default()
		ui.ShowInfo("Continuing with defaults")
	} else if _, statErr := os.Stat(path); statErr != nil {
		r.warning("No config file at %s, using defaults", path)
	} else {
		r.ok("Config loaded: %s", path)
	}
	fmt.Println()

	// 2. Screen vs coordinate map
	fmt.Println("2. Checking screen and coordinates...")
	checkScreen(&r, cfg)
	fmt.Println()

	// 3. Screenshots
	fmt.Println("3. Checking screenshot directory...")
	checkScreenshots(&r, cfg)
	fmt.Println()

	// 4. Log file
	fmt.Println("4. Checking log file...")
	if cfg.Log.File == "" {
		r.warning("Log file disabled")
	} else if dir := filepath.Dir(cfg.Log.File); ui.CanWriteTo(dir) {
		r.ok("Log file: %s", cfg.Log.File)
	} else {
		r.failed("Log directory not writable: "+dir, nil)
	}
	fmt.Println()

	// 5. Notifiers and schedule
	fmt.Println("5. Checking notifications and schedule...")
	checkNotify(&r, cfg)
	checkSchedule(&r, cfg)
	fmt.Println()

	ui.ShowHeader("Diagnostic Summary")
	fmt.Printf("  ✓ Passed: %d\n", r.pass)
	if r.warn > 0 {
		fmt.Printf("  ! Warnings: %d\n", r.warn)
	}
	if r.fail > 0 {
		fmt.Printf("  ✗ Failed: %d\n", r.fail)
	}
	fmt.Println()

	if r.fail > 0 {
		ui.ShowError("System has critical issues", nil)
		os.Exit(1)
	} else if r.warn > 0 {
		ui.ShowWarning("System has non-critical warnings")
	} else {
		ui.ShowSuccess("All checks passed!")
	}
}

func checkScreen(r *doctorReport, cfg *config.Config) {
	d := screen.NewRobot()
	w, h, err := d.Size()
	if err != nil {
		r.failed("Cannot read the screen size", err)
		return
	}
	ui.ShowInfo("Screen: %dx%d", w, h)

	wc, err := cfg.Workflow()
	if err != nil {
		r.failed("Coordinate map invalid", err)
		return
	}
	if off := wc.Positions.Outside(w, h); len(off) > 0 {
		names := make([]string, len(off))
		for i, n := range off {
			names[i] = fmt.Sprintf("%s %s", n, wc.Positions[n])
		}
		r.failed("Positions outside the screen: "+strings.Join(names, ", "), nil)
		ui.ShowInfo("Recalibrate with: qiandao probe --watch, then qiandao config set-position")
	} else {
		r.ok("All %d positions fit on the screen", len(wc.Positions))
	}

	if !cfg.Failsafe.IsEnabled() {
		r.warning("Panic switch disabled; a run can only be stopped by killing the process")
		return
	}
	if p, err := d.Location(); err == nil && p.X <= cfg.Failsafe.Margin && p.Y <= cfg.Failsafe.Margin {
		r.warning("Pointer is in the panic corner %s; a run would abort immediately", p)
	} else {
		r.ok("Panic switch armed (top-left corner, margin %dpx)", cfg.Failsafe.Margin)
	}
}

func checkScreenshots(r *doctorReport, cfg *config.Config) {
	dir := cfg.Screenshots.Dir
	if !ui.CanWriteTo(dir) {
		r.failed("Screenshot directory not writable: "+dir, nil)
		return
	}
	r.ok("Screenshot directory writable: %s", dir)

	usage, err := getDiskUsage(dir)
	switch {
	case err != nil:
		r.warning("Failed to check disk space: %v", err)
	case usage.Total == 0:
		// Unknown on this volume.
	case usage.Available < 100*1024*1024:
		r.warning("Low disk space: %s available", formatBytes(usage.Available))
	default:
		ui.ShowInfo("Disk usage: %.1f%% (%s / %s available)",
			usage.UsedPercent, formatBytes(usage.Available), formatBytes(usage.Total))
	}
	if cfg.Screenshots.Keep == 0 {
		ui.ShowInfo("Screenshots are kept forever (screenshots.keep = 0)")
	}
}

func checkNotify(r *doctorReport, cfg *config.Config) {
	m := notify.FromConfig(cfg.Notify)
	if m.Len() == 0 {
		r.warning("No notifiers configured; results are only logged")
	} else {
		r.ok("Notifiers: %s", m.Name())
	}
	if hook := cfg.Notify.Hook; hook != "" {
		info, err := os.Stat(hook)
		switch {
		case err != nil:
			r.failed("Hook script missing: "+hook, err)
		case runtime.GOOS != "windows" && info.Mode()&0111 == 0:
			r.warning("Hook script is not executable: %s", hook)
		}
	}
}

func checkSchedule(r *doctorReport, cfg *config.Config) {
	if !cfg.Schedule.IsEnabled() {
		r.warning("Daily schedule disabled")
		return
	}
	loc, err := cfg.Schedule.Location()
	if err != nil {
		r.failed("Timezone", err)
		return
	}
	h, m := cfg.Schedule.Clock()
	next := scheduler.NextAfter(scheduler.TimeOfDay{Hour: h, Minute: m}, time.Now().In(loc))
	r.ok("Daily at %s, next %s", cfg.Schedule, next.Format("2006-01-02 15:04"))
}

// formatBytes formats a byte count in human-readable format.
func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
