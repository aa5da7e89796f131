package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ufrutov/gitlab-client/internal/gitlab"
	"github.com/ufrutov/gitlab-client/internal/model"
	"github.com/ufrutov/gitlab-client/internal/period"
)

var (
	logNote string
	logDate string
)

var logCmd = &cobra.Command{
	Use:   "log <project> <iid> <duration>",
	Short: "Record time spent on an issue",
	Long: `log records a work-time entry against an issue. The duration uses the
compact form the service accepts, e.g. "1h30m", "2h" or "45m", and is sent
verbatim. The affected month's cache is cleared and re-fetched on success.`,
	Args: cobra.ExactArgs(3),
	RunE: runLog,
}

func init() {
	logCmd.Flags().StringVar(&logNote, "note", "", "Optional summary for the entry")
	logCmd.Flags().StringVar(&logDate, "date", "", "Spend date (YYYY-MM-DD); defaults to today")
}

func runLog(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fullPath := args[0]
	duration := args[2]

	iid, err := strconv.Atoi(args[1])
	if err != nil {
		fail(fmt.Errorf("invalid issue number %q: %w", args[1], err))
	}

	env, err := newEnv()
	if err != nil {
		failStorage(err)
	}
	s, err := env.session(ctx)
	if err != nil {
		failStorage(err)
	}

	var spentAt *time.Time
	if logDate != "" {
		d, err := time.ParseInLocation("2006-01-02", logDate, s.Config.Location())
		if err != nil {
			fail(fmt.Errorf("invalid --date value %q: %w", logDate, err))
		}
		spentAt = &d
	}

	// The "time entry added" signal triggers a forced reload of the
	// affected period so the next report renders from fresh data.
	s.OnTimeEntryAdded = func(e model.TimeEntry) {
		key := period.Key(e.SpentAt.In(s.Config.Location()))
		if _, err := s.Timelogs(ctx, key, true); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not refresh period %s: %v\n", key, err)
		}
	}

	entry, err := s.AddTimeEntry(ctx, fullPath, iid, duration, spentAt, logNote)
	if err != nil {
		fail(err)
	}

	fmt.Printf("Logged %s on %s#%d (%s).\n",
		gitlab.FormatDuration(entry.TimeSpent),
		fullPath, iid,
		entry.SpentAt.In(s.Config.Location()).Format("2006-01-02"))
	return nil
}
