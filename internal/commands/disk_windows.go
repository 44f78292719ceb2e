//go:build windows

package commands

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

type diskUsage struct {
	Available   uint64
	Total       uint64
	UsedPercent float64
}

// getDiskUsage asks PowerShell about the drive holding path. Anything it
// cannot answer (UNC paths, restricted policy) reports a zero total.
func getDiskUsage(path string) (*diskUsage, error) {
	abs, err := filepath.Abs(path)
	if err != nil || len(abs) < 2 || abs[1] != ':' {
		return &diskUsage{}, nil
	}
	script := fmt.Sprintf(
		"$d = Get-PSDrive %s -ErrorAction SilentlyContinue; "+
			"if ($d -and $d.Free -ne $null) { $d.Free; $d.Used } else { 0; 0 }",
		abs[:1],
	)
	out, err := exec.Command("powershell", "-NoProfile", "-Command", script).Output()
	if err != nil {
		return &diskUsage{}, nil
	}
	fields := strings.Fields(string(out))
	if len(fields) < 2 {
		return &diskUsage{}, nil
	}
	free, err1 := strconv.ParseUint(fields[0], 10, 64)
	used, err2 := strconv.ParseUint(fields[1], 10, 64)
	if err1 != nil || err2 != nil || free+used == 0 {
		return &diskUsage{}, nil
	}
	total := free + used
	return &diskUsage{
		Available:   free,
		Total:       total,
		UsedPercent: float64(used) / float64(total) * 100,
	}, nil
}
