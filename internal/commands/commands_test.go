package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qiandao/internal/automation"
	"qiandao/internal/config"
	"qiandao/internal/history"
	"qiandao/internal/screen"
)

func TestParseScheduleArgs(t *testing.T) {
	tests := []struct {
		args       []string
		hour, min  int
		wantErr    bool
		errContain string
	}{
		{args: []string{"8", "30"}, hour: 8, min: 30},
		{args: []string{"08:05"}, hour: 8, min: 5},
		{args: []string{"23", "59"}, hour: 23, min: 59},
		{args: []string{"24", "0"}, wantErr: true, errContain: "invalid time"},
		{args: []string{"7", "60"}, wantErr: true, errContain: "invalid time"},
		{args: []string{"x", "1"}, wantErr: true, errContain: "hour"},
		{args: []string{"1", "y"}, wantErr: true, errContain: "minute"},
		{args: []string{"8h30"}, wantErr: true},
		{args: nil, wantErr: true},
	}
	for _, tt := range tests {
		h, m, err := parseScheduleArgs(tt.args)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.args)
			if tt.errContain != "" {
				assert.ErrorContains(t, err, tt.errContain)
			}
			continue
		}
		require.NoError(t, err, "%v", tt.args)
		assert.Equal(t, tt.hour, h)
		assert.Equal(t, tt.min, m)
	}
}

func TestRedactedHidesTokens(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.Tokens = []string{"secret-a", "secret-b"}

	c := redacted(cfg)
	assert.Equal(t, []string{"***", "***"}, c.HTTP.Tokens)
	assert.Equal(t, []string{"secret-a", "secret-b"}, cfg.HTTP.Tokens, "original untouched")
}

func TestNearestPosition(t *testing.T) {
	positions := map[string]screen.Point{
		"bookmark":    {X: 1385, Y: 116},
		"game_subtag": {X: 1446, Y: 168},
	}

	name, ok := nearestPosition(positions, screen.Point{X: 1388, Y: 119})
	require.True(t, ok)
	assert.Equal(t, "bookmark", name)

	_, ok = nearestPosition(positions, screen.Point{X: 1420, Y: 140})
	assert.False(t, ok)
}

func TestScheduleInfo(t *testing.T) {
	cfg := config.Default()
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, loc)

	v := scheduleInfo(cfg, now)
	assert.True(t, v.Enabled)
	assert.Equal(t, "08:30", v.Time)
	assert.Equal(t, time.Date(2025, 3, 2, 8, 30, 0, 0, loc), v.Next)

	off := false
	cfg.Schedule.Enabled = &off
	v = scheduleInfo(cfg, now)
	assert.False(t, v.Enabled)
	assert.True(t, v.Next.IsZero())
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 GB", formatBytes(2<<30))
}

func TestHistoryLine(t *testing.T) {
	at := time.Date(2025, 3, 1, 8, 30, 0, 0, time.Local)
	ok := history.Entry{Source: "scheduled", Result: automation.Result{Success: true, Message: "sign-in succeeded", StartedAt: at}}
	assert.Equal(t, " ✓ 2025-03-01 08:30  schedule sign-in succeeded", historyLine(ok))

	aborted := history.Entry{Source: "manual", Result: automation.Result{Aborted: true, Message: "aborted", StartedAt: at}}
	assert.Contains(t, historyLine(aborted), " ! ")

	failed := history.Entry{Source: "http", Result: automation.Result{Message: "failed", StartedAt: at}}
	assert.Contains(t, historyLine(failed), " ✗ ")
}
