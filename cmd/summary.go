package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/smazurov/ffrun/internal/metrics"
	"github.com/smazurov/ffrun/internal/runner"
)

// renderSummary renders the outcome of a run as a two-column table.
// m may be nil when no event reached the recorder.
func renderSummary(result runner.Result, m *metrics.RunMetrics, outcome string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Field", "Value"})

	tw.AppendRow(table.Row{"Run", result.RunID})
	tw.AppendRow(table.Row{"Outcome", outcome})
	if result.Elapsed > 0 {
		tw.AppendRow(table.Row{"Exit", result.Exit.String()})
		tw.AppendRow(table.Row{"Elapsed", result.Elapsed.Round(time.Millisecond).String()})
	}
	tw.AppendRow(table.Row{"Progress updates", strconv.Itoa(result.Snapshots)})
	tw.AppendRow(table.Row{"Warnings", strconv.Itoa(result.Warnings)})
	tw.AppendRow(table.Row{"Error lines", strconv.Itoa(len(result.ErrorLines))})

	if m != nil {
		tw.AppendSeparator()
		tw.AppendRow(table.Row{"Frames", formatFloat(m.Frames)})
		tw.AppendRow(table.Row{"FPS", formatFloat(m.FPS)})
		tw.AppendRow(table.Row{"Speed", formatFloat(m.Speed) + "x"})
		tw.AppendRow(table.Row{"Output time", (time.Duration(m.OutTimeSeconds * float64(time.Second))).Round(time.Millisecond).String()})
		if m.Completion > 0 {
			tw.AppendRow(table.Row{"Completion", fmt.Sprintf("%.1f%%", m.Completion*100)})
		}
		if m.DroppedFrames > 0 || m.DuplicateFrames > 0 {
			tw.AppendRow(table.Row{"Dropped / duplicated", formatFloat(m.DroppedFrames) + " / " + formatFloat(m.DuplicateFrames)})
		}
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
