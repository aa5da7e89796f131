package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ufrutov/gitlab-client/internal/gitlab"
	"github.com/ufrutov/gitlab-client/internal/period"
	"github.com/ufrutov/gitlab-client/internal/ui"
)

var (
	reportMonth   string
	reportRefresh bool
	reportFormat  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show your time entries bucketed by week and day",
	Long: `report renders one month of your time entries as a calendar of
Monday-aligned weeks, most recent first. Weeks are shown even when empty,
up to the current date. Data comes from the per-month cache unless
--refresh is given.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportMonth, "month", "", "Month to report (YYYY-MM); defaults to the current month")
	reportCmd.Flags().BoolVar(&reportRefresh, "refresh", false, "Ignore the cache and refetch")
	reportCmd.Flags().StringVar(&reportFormat, "format", "cal", "Output format: cal, json, csv")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	env, err := newEnv()
	if err != nil {
		failStorage(err)
	}
	s, err := env.session(ctx)
	if err != nil {
		failStorage(err)
	}

	loc := s.Config.Location()
	now := time.Now().In(loc)

	key := reportMonth
	if key == "" {
		key = period.Key(now)
	}
	month, err := period.ParseKey(key, loc)
	if err != nil {
		fail(err)
	}

	entries, err := s.Timelogs(ctx, key, reportRefresh)
	if err != nil {
		fail(err)
	}

	weeks, total := period.BucketByWeek(entries, month, now)

	switch reportFormat {
	case "json":
		data, err := json.MarshalIndent(weeks, "", "  ")
		if err != nil {
			fail(fmt.Errorf("encoding JSON: %w", err))
		}
		fmt.Println(string(data))
	case "csv":
		printEntriesCSV(weeks)
	default: // cal
		fmt.Print(ui.RenderMonth(month.Format("January 2006"), weeks, total))
	}
	return nil
}

func printEntriesCSV(weeks []period.WeekBucket) {
	fmt.Println("date,project,iid,summary,duration,duration_minutes")
	for _, week := range weeks {
		for _, day := range week.Days {
			for _, e := range day.Entries {
				fmt.Printf("%s,%s,%d,%s,%s,%d\n",
					day.Date.Format("2006-01-02"),
					csvEscape(e.Issue.ProjectPath),
					e.Issue.IID,
					csvEscape(e.Summary),
					csvEscape(gitlab.FormatDuration(e.TimeSpent)),
					e.TimeSpent/60,
				)
			}
		}
	}
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	needsQuote := false
	for _, c := range s {
		if c == ',' || c == '"' || c == '\n' || c == '\r' {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		return s
	}
	// Escape internal double quotes by doubling them.
	escaped := ""
	for _, c := range s {
		if c == '"' {
			escaped += "\""
		}
		escaped += string(c)
	}
	return `"` + escaped + `"`
}
