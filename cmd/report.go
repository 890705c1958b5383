package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/MimeLyc/subtitle-trans/internal/service"
)

func renderReport(report *service.Report) string {
	if report == nil || len(report.Results) == 0 {
		return "No files processed"
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(table.Row{"File", "Status", "Cues", "Time", "Detail"})

	for _, res := range report.Results {
		detail := res.Reason
		if res.Err != nil {
			detail = res.Err.Error()
		} else if res.Status == service.StatusTranslated || res.Status == service.StatusCleared {
			detail = filepath.Base(res.Output)
		}
		tw.AppendRow(table.Row{
			filepath.Base(res.Path),
			string(res.Status),
			strconv.Itoa(res.Cues),
			res.Duration.Round(time.Millisecond).String(),
			detail,
		})
	}

	tw.AppendFooter(table.Row{
		fmt.Sprintf("%d files", len(report.Results)),
		fmt.Sprintf("%d translated, %d skipped, %d cleared, %d failed",
			report.Count(service.StatusTranslated),
			report.Count(service.StatusSkipped),
			report.Count(service.StatusCleared),
			report.Count(service.StatusFailed)),
	})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, WidthMax: 60},
	})

	return tw.Render()
}
