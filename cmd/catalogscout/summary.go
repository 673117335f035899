package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/IshaanNene/catalogscout/internal/config"
	"github.com/IshaanNene/catalogscout/internal/engine"
)

// printSummary renders the run counters and any failed entries.
func printSummary(w io.Writer, cfg *config.Config, result *engine.Result, written int) {
	s := result.Stats

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Run " + result.RunID)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Entries", s.EntriesTotal},
		{"Matched", fmt.Sprintf("%d (%s)", s.EntriesMatched, percent(s.EntriesMatched, s.EntriesTotal))},
		{"With images", fmt.Sprintf("%d (%s)", s.EntriesWithImages, percent(s.EntriesWithImages, s.EntriesMatched))},
		{"Images found", s.ImagesFound},
		{"Images stored", fmt.Sprintf("%d (%d cached)", s.ImagesDownloaded, s.ImagesCached)},
		{"Images failed", s.ImagesFailed},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Records written", written},
		{"Output", cfg.Storage.OutputPath},
		{"Images", cfg.Images.Dir},
		{"Duration", result.Duration.Round(time.Millisecond)},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()

	var failed []table.Row
	for _, rec := range result.Records {
		if rec.Failed() {
			failed = append(failed, table.Row{rec.Name, fmt.Sprintf("%.2f", rec.MatchScore), rec.Error})
		}
	}
	if len(failed) == 0 {
		return
	}

	ft := table.NewWriter()
	ft.SetOutputMirror(w)
	ft.SetTitle("Not matched")
	ft.AppendHeader(table.Row{"Product", "Best score", "Reason"})
	ft.AppendRows(failed)
	ft.SetStyle(table.StyleRounded)
	ft.Render()
}

func percent(n, total int64) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.0f%%", float64(n)*100/float64(total))
}
