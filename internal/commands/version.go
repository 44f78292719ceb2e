package commands

import (
	"fmt"
	"runtime"

	"qiandao/internal/output"
)

// Version information, set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func RunVersion() {
	info := map[string]string{
		"version":  Version,
		"commit":   Commit,
		"date":     Date,
		"platform": runtime.GOOS + "/" + runtime.GOARCH,
	}
	output.Print(info, func() {
		fmt.Printf("qiandao version %s (commit %s, built %s, %s)\n", Version, Commit, Date, info["platform"])
	})
}
