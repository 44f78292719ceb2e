package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qiandao/internal/automation"
	"qiandao/internal/screen"
)

func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	old := ConfigPath
	ConfigPath = path
	t.Cleanup(func() { ConfigPath = old })
	t.Setenv(EnvHTTPToken, "")
	t.Setenv(EnvWebhookURL, "")
	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	useTempConfig(t)

	cfg, err := Load()
	require.NoError(t, err)

	h, m := cfg.Schedule.Clock()
	assert.Equal(t, 8, h)
	assert.Equal(t, 30, m)
	assert.Equal(t, "Asia/Shanghai", cfg.Schedule.Timezone)
	assert.True(t, cfg.Schedule.IsEnabled())
	assert.True(t, cfg.Failsafe.IsEnabled())
	assert.Equal(t, automation.DefaultTimings(), cfg.Timings)
	assert.Len(t, cfg.Positions, len(automation.RequiredPositions))
	assert.Equal(t, "08:30 Asia/Shanghai", cfg.Schedule.String())
}

func TestLoad_PartialFileKeepsExplicitZeros(t *testing.T) {
	path := useTempConfig(t)
	require.NoError(t, os.WriteFile(path, []byte(`
schedule:
  hour: 0
  minute: 5
  enabled: false
positions:
  sign_btn: {x: 10, y: 20}
timings:
  retry_times: 5
  short_wait: 250ms
verify_colors:
  sign_tag: "#ff0000"
`), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	h, m := cfg.Schedule.Clock()
	assert.Equal(t, 0, h)
	assert.Equal(t, 5, m)
	assert.False(t, cfg.Schedule.IsEnabled())
	assert.Equal(t, "Asia/Shanghai", cfg.Schedule.Timezone)

	assert.Equal(t, screen.Point{X: 10, Y: 20}, cfg.Positions["sign_btn"])
	assert.Equal(t, automation.DefaultPositions()[automation.Bookmark], cfg.Positions["bookmark"])

	assert.Equal(t, 5, cfg.Timings.RetryTimes)
	assert.Equal(t, 250*time.Millisecond, cfg.Timings.ShortWait)
	assert.Equal(t, 20*time.Second, cfg.Timings.ElementTimeout)

	wc, err := cfg.Workflow()
	require.NoError(t, err)
	assert.Equal(t, screen.Color{R: 255}, wc.VerifyColors[automation.SignTab])
	assert.Empty(t, wc.WaitColors)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad hour", "schedule: {hour: 24}", "invalid time of day"},
		{"bad minute", "schedule: {minute: 60}", "invalid time of day"},
		{"bad timezone", "schedule: {timezone: Mars/Olympus}", "timezone"},
		{"negative position", "positions: {game_link: {x: -1, y: 5}}", "negative"},
		{"unknown colour position", "wait_colors: {nowhere: '#000000'}", "unknown position"},
		{"bad colour", "wait_colors: {sign_btn: 'red'}", "wait_colors.sign_btn"},
		{"bad webhook", "notify: {webhooks: [{url: 'http://x', format: pager}]}", "unknown format"},
		{"negative keep", "screenshots: {keep: -1}", "keep"},
		{"garbage", "schedule: [", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := useTempConfig(t)
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))
			_, err := Load()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	useTempConfig(t)
	t.Setenv(EnvHTTPToken, "secret")
	t.Setenv(EnvWebhookURL, "https://hooks.example.com/x")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"secret"}, cfg.HTTP.AllTokens())
	assert.Empty(t, cfg.HTTP.Tokens)
	hooks := cfg.Notify.AllWebhooks()
	require.Len(t, hooks, 1)
	assert.Equal(t, "slack", hooks[0].Format)

	require.NoError(t, Save(cfg))
	data, err := os.ReadFile(Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.NotContains(t, string(data), "hooks.example.com")
}

func TestPath_EnvOverride(t *testing.T) {
	old := ConfigPath
	ConfigPath = ""
	t.Cleanup(func() { ConfigPath = old })

	t.Setenv(EnvConfigPath, "/etc/qiandao.yaml")
	assert.Equal(t, "/etc/qiandao.yaml", Path())
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		h, m    int
		wantErr bool
	}{
		{"08:30", 8, 30, false},
		{"8:05", 8, 5, false},
		{"00:00", 0, 0, false},
		{"23:59", 23, 59, false},
		{"24:00", 0, 0, true},
		{"12:60", 0, 0, true},
		{"noon", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTime)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.h, h)
			assert.Equal(t, tt.m, m)
		})
	}
}

func TestSetScheduleTime(t *testing.T) {
	path := useTempConfig(t)

	_, err := SetScheduleTime(25, 0)
	assert.ErrorIs(t, err, ErrInvalidTime)
	assert.NoFileExists(t, path)

	_, err = SetScheduleTime(7, 45)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.NoFileExists(t, path+".tmp")

	cfg, err := Load()
	require.NoError(t, err)
	h, m := cfg.Schedule.Clock()
	assert.Equal(t, 7, h)
	assert.Equal(t, 45, m)
}

func TestSetPositionAndColor(t *testing.T) {
	useTempConfig(t)

	_, err := SetPosition("sign_btn", screen.Point{X: 1, Y: 2})
	require.NoError(t, err)
	_, err = SetPosition("nowhere", screen.Point{})
	assert.Error(t, err)

	_, err = SetColor("wait", "game_link", "#00ff00")
	require.NoError(t, err)
	_, err = SetColor("verify", "game_link", "zz")
	assert.Error(t, err)
	_, err = SetColor("other", "game_link", "#00ff00")
	assert.Error(t, err)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, screen.Point{X: 1, Y: 2}, cfg.Positions["sign_btn"])
	assert.Equal(t, "#00ff00", cfg.WaitColors["game_link"])

	_, err = SetColor("wait", "game_link", "")
	require.NoError(t, err)
	cfg, err = Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.WaitColors)
}
