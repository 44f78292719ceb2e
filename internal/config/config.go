package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"qiandao/internal/automation"
	"qiandao/internal/screen"
)

// ErrInvalidTime is returned for schedule times outside 00:00-23:59.
var ErrInvalidTime = errors.New("invalid time of day")

// Environment variables consulted after the config file is read.
const (
	EnvConfigPath = "QIANDAO_CONFIG"
	EnvHTTPToken  = "QIANDAO_HTTP_TOKEN"
	EnvWebhookURL = "QIANDAO_WEBHOOK_URL"
)

// Config is the on-disk configuration of qiandao.
type Config struct {
	Schedule     ScheduleConfig          `yaml:"schedule" json:"schedule"`
	Positions    map[string]screen.Point `yaml:"positions" json:"positions"`
	WaitColors   map[string]string       `yaml:"wait_colors,omitempty" json:"wait_colors,omitempty"`
	VerifyColors map[string]string       `yaml:"verify_colors,omitempty" json:"verify_colors,omitempty"`
	Timings      automation.Timings      `yaml:"timings" json:"timings"`
	Screenshots  ScreenshotConfig        `yaml:"screenshots" json:"screenshots"`
	Log          LogConfig               `yaml:"log" json:"log"`
	Failsafe     FailsafeConfig          `yaml:"failsafe" json:"failsafe"`
	Notify       NotifyConfig            `yaml:"notify" json:"notify"`
	HTTP         HTTPConfig              `yaml:"http" json:"http"`
}

// ScheduleConfig is the daily trigger. Pointer fields distinguish an
// explicit zero (midnight, disabled) from an absent key.
type ScheduleConfig struct {
	Hour     *int   `yaml:"hour" json:"hour"`
	Minute   *int   `yaml:"minute" json:"minute"`
	Timezone string `yaml:"timezone" json:"timezone"`
	Enabled  *bool  `yaml:"enabled" json:"enabled"`
}

type ScreenshotConfig struct {
	Dir    string `yaml:"dir" json:"dir"`
	Prefix string `yaml:"prefix" json:"prefix"`
	Keep   int    `yaml:"keep" json:"keep"` // 0 keeps everything
}

type LogConfig struct {
	File string `yaml:"file" json:"file"`
}

// FailsafeConfig controls the panic switch in the top-left screen corner.
type FailsafeConfig struct {
	Enabled *bool         `yaml:"enabled" json:"enabled"`
	Margin  int           `yaml:"margin" json:"margin"`
	Poll    time.Duration `yaml:"poll" json:"poll"`
}

type NotifyConfig struct {
	Desktop  *bool           `yaml:"desktop" json:"desktop"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty" json:"webhooks,omitempty"`
	Hook     string          `yaml:"hook,omitempty" json:"hook,omitempty"` // script run with the result JSON on stdin

	envWebhook string
}

// WebhookConfig describes one outgoing webhook.
type WebhookConfig struct {
	URL    string            `yaml:"url" json:"url"`
	Format string            `yaml:"format,omitempty" json:"format,omitempty"` // slack, feishu, dingtalk, telegram, custom
	Extra  map[string]string `yaml:"extra,omitempty" json:"extra,omitempty"`
}

type HTTPConfig struct {
	Addr      string   `yaml:"addr" json:"addr"`
	Tokens    []string `yaml:"tokens,omitempty" json:"-"`
	Advertise bool     `yaml:"advertise,omitempty" json:"advertise,omitempty"` // announce over mDNS

	envToken string
}

// AllTokens returns the configured bearer tokens plus $QIANDAO_HTTP_TOKEN.
func (h HTTPConfig) AllTokens() []string {
	out := append([]string(nil), h.Tokens...)
	if h.envToken != "" {
		out = append(out, h.envToken)
	}
	return out
}

// ConfigPath overrides path resolution when set.
var ConfigPath string

// Path returns the config file in use: $QIANDAO_CONFIG, then ./qiandao.yaml,
// then ~/.qiandao/config.yaml.
func Path() string {
	if ConfigPath != "" {
		return ConfigPath
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	// 优先使用当前目录下的配置
	pwd, _ := os.Getwd()
	local := filepath.Join(pwd, "qiandao.yaml")
	if _, err := os.Stat(local); err == nil {
		return local
	}
	return filepath.Join(Dir(), "config.yaml")
}

// Dir is the per-user state directory (~/.qiandao).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".qiandao"
	}
	return filepath.Join(home, ".qiandao")
}

// HistoryPath is where finished runs are recorded.
func HistoryPath() string {
	return filepath.Join(Dir(), "history.json")
}

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

// Default returns the built-in configuration.
func Default() *Config {
	positions := make(map[string]screen.Point)
	for name, p := range automation.DefaultPositions() {
		positions[string(name)] = p
	}
	return &Config{
		Schedule: ScheduleConfig{
			Hour:     intp(8),
			Minute:   intp(30),
			Timezone: "Asia/Shanghai",
			Enabled:  boolp(true),
		},
		Positions: positions,
		Timings:   automation.DefaultTimings(),
		Screenshots: ScreenshotConfig{
			Dir:    "screenshots",
			Prefix: "qiandao",
		},
		Log: LogConfig{File: "qiandao_log.txt"},
		Failsafe: FailsafeConfig{
			Enabled: boolp(true),
			Margin:  0,
			Poll:    100 * time.Millisecond,
		},
		Notify: NotifyConfig{Desktop: boolp(true)},
		HTTP:   HTTPConfig{Addr: "127.0.0.1:3457"},
	}
}

// Load reads the config at Path. A missing file yields the defaults.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads the config at path, fills unset keys from Default, applies
// environment overrides and validates the result.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := mergo.Merge(cfg, Default()); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Environment values are kept apart from the file so Save never persists them.
func (c *Config) applyEnv() {
	c.HTTP.envToken = strings.TrimSpace(os.Getenv(EnvHTTPToken))
	c.Notify.envWebhook = strings.TrimSpace(os.Getenv(EnvWebhookURL))
}

// Save writes cfg to Path atomically.
func Save(cfg *Config) error {
	return SaveTo(Path(), cfg)
}

// SaveTo writes cfg to path through a temp file and rename.
func SaveTo(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

var hhmm = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	m := hhmm.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q (want HH:MM)", ErrInvalidTime, s)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if err := CheckTimeOfDay(hour, minute); err != nil {
		return 0, 0, err
	}
	return hour, minute, nil
}

// CheckTimeOfDay rejects hours outside 0-23 and minutes outside 0-59.
func CheckTimeOfDay(hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("%w: %02d:%02d", ErrInvalidTime, hour, minute)
	}
	return nil
}

// SetScheduleTime validates and persists a new daily sign-in time.
func SetScheduleTime(hour, minute int) (*Config, error) {
	if err := CheckTimeOfDay(hour, minute); err != nil {
		return nil, err
	}
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	cfg.Schedule.Hour = intp(hour)
	cfg.Schedule.Minute = intp(minute)
	return cfg, Save(cfg)
}

// Clock returns the configured hour and minute.
func (s ScheduleConfig) Clock() (hour, minute int) {
	if s.Hour != nil {
		hour = *s.Hour
	}
	if s.Minute != nil {
		minute = *s.Minute
	}
	return hour, minute
}

// IsEnabled reports whether the daily trigger should be armed.
func (s ScheduleConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Location loads the schedule timezone.
func (s ScheduleConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

// String formats the schedule as "HH:MM tz".
func (s ScheduleConfig) String() string {
	h, m := s.Clock()
	return fmt.Sprintf("%02d:%02d %s", h, m, s.Timezone)
}

func (f FailsafeConfig) IsEnabled() bool { return f.Enabled == nil || *f.Enabled }

func (n NotifyConfig) DesktopEnabled() bool { return n.Desktop == nil || *n.Desktop }

// AllWebhooks returns the configured webhooks plus $QIANDAO_WEBHOOK_URL as a
// slack-format hook.
func (n NotifyConfig) AllWebhooks() []WebhookConfig {
	out := append([]WebhookConfig(nil), n.Webhooks...)
	if n.envWebhook != "" {
		out = append(out, WebhookConfig{URL: n.envWebhook, Format: "slack"})
	}
	return out
}

// Validate checks every section and reports the first problem found.
func (c *Config) Validate() error {
	h, m := c.Schedule.Clock()
	if err := CheckTimeOfDay(h, m); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	if _, err := c.Schedule.Location(); err != nil {
		return fmt.Errorf("schedule: timezone %q: %w", c.Schedule.Timezone, err)
	}
	if _, err := c.Workflow(); err != nil {
		return err
	}
	if c.Screenshots.Keep < 0 {
		return fmt.Errorf("screenshots: keep must be >= 0")
	}
	if c.Failsafe.Margin < 0 {
		return fmt.Errorf("failsafe: margin must be >= 0")
	}
	if c.Failsafe.Poll <= 0 {
		return fmt.Errorf("failsafe: poll must be positive")
	}
	for i, w := range c.Notify.Webhooks {
		if w.URL == "" {
			return fmt.Errorf("notify: webhook %d has no url", i)
		}
		switch w.Format {
		case "", "slack", "feishu", "dingtalk", "telegram", "custom":
		default:
			return fmt.Errorf("notify: webhook %d: unknown format %q", i, w.Format)
		}
	}
	return nil
}

// Workflow converts the file representation into an automation config.
func (c *Config) Workflow() (automation.Config, error) {
	wc := automation.Config{
		Positions: make(automation.Positions),
		Timings:   c.Timings,
	}
	for name, p := range c.Positions {
		wc.Positions[automation.PositionName(name)] = p
	}
	if err := wc.Positions.Validate(); err != nil {
		return wc, fmt.Errorf("positions: %w", err)
	}
	if err := wc.Timings.Validate(); err != nil {
		return wc, fmt.Errorf("timings: %w", err)
	}
	var err error
	if wc.WaitColors, err = parseColors("wait_colors", c.WaitColors); err != nil {
		return wc, err
	}
	if wc.VerifyColors, err = parseColors("verify_colors", c.VerifyColors); err != nil {
		return wc, err
	}
	return wc, nil
}

func parseColors(section string, in map[string]string) (map[automation.PositionName]screen.Color, error) {
	if len(in) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make(map[automation.PositionName]screen.Color, len(in))
	for _, name := range names {
		if !automation.IsPosition(automation.PositionName(name)) {
			return nil, fmt.Errorf("%s: unknown position %q", section, name)
		}
		col, err := screen.ParseColor(in[name])
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", section, name, err)
		}
		out[automation.PositionName(name)] = col
	}
	return out, nil
}

// SetPosition records a calibrated coordinate and persists the config.
func SetPosition(name string, p screen.Point) (*Config, error) {
	if !automation.IsPosition(automation.PositionName(name)) {
		return nil, fmt.Errorf("unknown position %q", name)
	}
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	cfg.Positions[name] = p
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, Save(cfg)
}

// SetColor records a wait or verify colour for a position. An empty hex
// clears it.
func SetColor(kind, name, hex string) (*Config, error) {
	if !automation.IsPosition(automation.PositionName(name)) {
		return nil, fmt.Errorf("unknown position %q", name)
	}
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	var target *map[string]string
	switch kind {
	case "wait":
		target = &cfg.WaitColors
	case "verify":
		target = &cfg.VerifyColors
	default:
		return nil, fmt.Errorf("unknown colour kind %q (want wait or verify)", kind)
	}
	if hex == "" {
		delete(*target, name)
	} else {
		if _, err := screen.ParseColor(hex); err != nil {
			return nil, err
		}
		if *target == nil {
			*target = make(map[string]string)
		}
		(*target)[name] = hex
	}
	return cfg, Save(cfg)
}
