package commands

import (
	"fmt"
	"strconv"
	"time"

	"qiandao/internal/config"
	"qiandao/internal/output"
	"qiandao/internal/scheduler"
	"qiandao/internal/ui"
)

// parseScheduleArgs accepts either "HH:MM" or separate hour and minute.
func parseScheduleArgs(args []string) (hour, minute int, err error) {
	switch len(args) {
	case 1:
		return config.ParseTimeOfDay(args[0])
	case 2:
		if hour, err = strconv.Atoi(args[0]); err != nil {
			return 0, 0, fmt.Errorf("hour %q is not a number", args[0])
		}
		if minute, err = strconv.Atoi(args[1]); err != nil {
			return 0, 0, fmt.Errorf("minute %q is not a number", args[1])
		}
		return hour, minute, config.CheckTimeOfDay(hour, minute)
	}
	return 0, 0, fmt.Errorf("want <hour> <minute> or <HH:MM>")
}

// RunScheduleSet persists a new daily time. A running daemon picks it up
// on restart.
func RunScheduleSet(args []string) {
	hour, minute, err := parseScheduleArgs(args)
	if err != nil {
		fail("Invalid time", err)
	}
	cfg, err := config.SetScheduleTime(hour, minute)
	if err != nil {
		fail("Failed to save schedule", err)
	}
	output.Print(scheduleInfo(cfg, time.Now()), func() {
		ui.ShowSuccess("Daily sign-in time set to %02d:%02d (%s)", hour, minute, cfg.Schedule.Timezone)
		ui.ShowInfo("Restart a running daemon to apply it")
	})
}

type scheduleView struct {
	Enabled  bool      `json:"enabled"`
	Time     string    `json:"time"`
	Timezone string    `json:"timezone"`
	Next     time.Time `json:"next,omitempty"`
}

func scheduleInfo(cfg *config.Config, now time.Time) scheduleView {
	h, m := cfg.Schedule.Clock()
	v := scheduleView{
		Enabled:  cfg.Schedule.IsEnabled(),
		Time:     fmt.Sprintf("%02d:%02d", h, m),
		Timezone: cfg.Schedule.Timezone,
	}
	if loc, err := cfg.Schedule.Location(); err == nil && v.Enabled {
		v.Next = scheduler.NextAfter(scheduler.TimeOfDay{Hour: h, Minute: m}, now.In(loc))
	}
	return v
}

// RunScheduleShow prints the configured daily time.
func RunScheduleShow() {
	cfg := loadConfig()
	v := scheduleInfo(cfg, time.Now())
	output.Print(v, func() {
		ui.ShowHeader("Schedule")
		ui.ShowField(8, "Time", v.Time)
		ui.ShowField(8, "Timezone", v.Timezone)
		if v.Enabled {
			ui.ShowField(8, "Enabled", "yes")
			ui.ShowField(8, "Next", v.Next.Format("2006-01-02 15:04 MST"))
		} else {
			ui.ShowField(8, "Enabled", "no")
		}
	})
}
