package commands

import (
	"fmt"

	"qiandao/internal/config"
	"qiandao/internal/history"
	"qiandao/internal/output"
	"qiandao/internal/runner"
	"qiandao/internal/ui"
)

type historyView struct {
	Stats   history.Stats   `json:"stats"`
	Entries []history.Entry `json:"entries"`
}

// RunHistory lists the most recent runs, newest first.
func RunHistory(limit int) {
	store := history.NewStore(config.HistoryPath(), history.DefaultLimit)
	entries, err := store.List(limit)
	if err != nil {
		fail("Failed to read history", err)
	}
	stats, err := store.Summary()
	if err != nil {
		fail("Failed to read history", err)
	}

	output.Print(historyView{Stats: stats, Entries: entries}, func() {
		ui.ShowHeader("Sign-in history")
		if len(entries) == 0 {
			ui.ShowInfo("No runs recorded yet")
			return
		}
		for _, e := range entries {
			fmt.Println(historyLine(e))
		}
		fmt.Println()
		ui.ShowInfo("%d runs: %d succeeded, %d failed, %d aborted; current streak %d",
			stats.Total, stats.Succeeded, stats.Failed, stats.Aborted, stats.Streak)
	})
}

func historyLine(e history.Entry) string {
	glyph := "✓"
	switch {
	case e.Aborted:
		glyph = "!"
	case !e.Success:
		glyph = "✗"
	}
	return fmt.Sprintf(" %s %s  %-8s %s", glyph, e.StartedAt.Local().Format("2006-01-02 15:04"),
		sourceLabel(runner.Source(e.Source)), e.Message)
}
