package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"qiandao/internal/progress"
)

func ShowHeader(title string) {
	fmt.Printf(" %s\n", strings.Repeat("─", len(title)+2))
	fmt.Printf(" %s\n", title)
	fmt.Printf(" %s\n", strings.Repeat("─", len(title)+2))
}

// ShowField prints an indented "label: value" line padded to width.
func ShowField(width int, label string, value any) {
	fmt.Printf("  %-*s %v\n", width+1, label+":", value)
}

func ShowSuccess(format string, args ...interface{}) {
	fmt.Printf(" ✓ %s\n", fmt.Sprintf(format, args...))
}

func ShowError(msg string, err error) {
	if err != nil {
		fmt.Printf(" ✗ %s: %v\n", msg, err)
	} else {
		fmt.Printf(" ✗ %s\n", msg)
	}
}

func ShowWarning(format string, args ...interface{}) {
	fmt.Printf(" ! %s\n", fmt.Sprintf(format, args...))
}

func ShowInfo(format string, args ...interface{}) {
	fmt.Printf(" ℹ %s\n", fmt.Sprintf(format, args...))
}

// ShowEvent prints a progress event with its clock time.
func ShowEvent(e progress.Event) {
	fmt.Printf(" %s %s %s\n", e.Time.Format("15:04:05"), e.Level.Glyph(), e.Message)
}

func CanWriteTo(dir string) bool {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false
	}
	testFile := filepath.Join(dir, ".test_write")
	f, err := os.Create(testFile)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(testFile)
	return true
}
