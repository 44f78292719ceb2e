package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"qiandao/internal/config"
	"qiandao/internal/output"
	"qiandao/internal/screen"
	"qiandao/internal/ui"
)

// redacted returns a copy of cfg safe to print.
func redacted(cfg *config.Config) config.Config {
	c := *cfg
	if len(c.HTTP.Tokens) > 0 {
		c.HTTP.Tokens = make([]string, len(cfg.HTTP.Tokens))
		for i := range c.HTTP.Tokens {
			c.HTTP.Tokens[i] = "***"
		}
	}
	return c
}

// RunConfigShow prints the effective configuration, defaults included.
func RunConfigShow() {
	cfg := loadConfig()
	c := redacted(cfg)
	output.Print(c, func() {
		data, err := yaml.Marshal(c)
		if err != nil {
			fail("Failed to render config", err)
		}
		fmt.Printf("# %s\n", config.Path())
		os.Stdout.Write(data)
	})
}

// RunConfigPath prints the config file in use.
func RunConfigPath() {
	path := config.Path()
	output.Print(map[string]string{"path": path}, func() {
		fmt.Println(path)
	})
}

// RunConfigSetPosition stores a calibrated coordinate.
func RunConfigSetPosition(name, xs, ys string) {
	x, err := strconv.Atoi(xs)
	if err != nil {
		fail("Invalid x coordinate", err)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		fail("Invalid y coordinate", err)
	}
	p := screen.Point{X: x, Y: y}
	if _, err := config.SetPosition(name, p); err != nil {
		fail("Failed to set position", err)
	}
	output.Print(map[string]any{"name": name, "x": x, "y": y}, func() {
		ui.ShowSuccess("%s = %s", name, p)
	})
}

// RunConfigSetColor stores or clears a wait/verify colour. "none" clears.
func RunConfigSetColor(kind, name, hex string) {
	if strings.EqualFold(hex, "none") {
		hex = ""
	}
	if _, err := config.SetColor(kind, name, hex); err != nil {
		fail("Failed to set colour", err)
	}
	output.Print(map[string]string{"kind": kind, "name": name, "color": hex}, func() {
		if hex == "" {
			ui.ShowSuccess("Cleared %s colour of %s", kind, name)
		} else {
			ui.ShowSuccess("%s colour of %s = %s", kind, name, hex)
		}
	})
}
