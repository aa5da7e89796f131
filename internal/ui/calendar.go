// Package ui renders week/day buckets as styled terminal output.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ufrutov/gitlab-client/internal/gitlab"
	"github.com/ufrutov/gitlab-client/internal/period"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	weekStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dayStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
	totalStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// RenderMonth renders the month's week buckets, most recent week first.
// Hour totals show one decimal place; the underlying seconds are untouched.
func RenderMonth(monthLabel string, weeks []period.WeekBucket, totalEntries int) string {
	var b strings.Builder

	var monthSeconds int64
	for _, w := range weeks {
		monthSeconds += w.TotalSeconds
	}

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s: %s logged, %d entries",
		monthLabel, gitlab.FormatHours(monthSeconds), totalEntries)))
	b.WriteString("\n\n")

	for _, week := range weeks {
		b.WriteString(weekStyle.Render(fmt.Sprintf("Week of %s", week.Start.Format("Mon 2006-01-02"))))
		b.WriteString("  ")
		// Zero-second entries are legal, so emptiness means no days at all.
		if len(week.Days) == 0 {
			b.WriteString(dimStyle.Render("no time logged"))
			b.WriteString("\n")
			continue
		}
		b.WriteString(dimStyle.Render(gitlab.FormatHours(week.TotalSeconds)))
		b.WriteString("\n")

		for _, day := range week.Days {
			b.WriteString("  ")
			b.WriteString(dayStyle.Render(day.Date.Format("Mon 02")))
			b.WriteString("  ")
			b.WriteString(gitlab.FormatDuration(day.TotalSeconds))
			b.WriteString("\n")
			for _, e := range day.Entries {
				ref := fmt.Sprintf("%s#%d", e.Issue.ProjectPath, e.Issue.IID)
				line := fmt.Sprintf("    %-9s %s  %s", gitlab.FormatDuration(e.TimeSpent), ref, e.Issue.Title)
				if e.Summary != "" {
					line += dimStyle.Render("  - " + e.Summary)
				}
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(totalStyle.Render(fmt.Sprintf("Total: %s", gitlab.FormatDuration(monthSeconds))))
	b.WriteString("\n")
	return b.String()
}
