package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ufrutov/gitlab-client/internal/gitlab"
	"github.com/ufrutov/gitlab-client/internal/model"
	"github.com/ufrutov/gitlab-client/internal/period"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <entry-id>",
	Short: "Delete one of your time entries",
	Long: `delete removes a time entry by its identifier, as printed by
"glt issue". Only the entry's owner may delete it; the service rejects
anything else. Exactly the affected month's cache is cleared.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

// normalizeEntryID accepts both a bare numeric id and the full global form.
func normalizeEntryID(id string) string {
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return "gid://gitlab/Timelog/" + id
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	env, err := newEnv()
	if err != nil {
		failStorage(err)
	}
	s, err := env.session(ctx)
	if err != nil {
		failStorage(err)
	}

	// Mirror of the add path: a successful delete forces a reload of the
	// period the entry was removed from.
	s.OnTimeEntryDeleted = func(e model.TimeEntry) {
		key := period.Key(e.SpentAt.In(s.Config.Location()))
		if _, err := s.Timelogs(ctx, key, true); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not refresh period %s: %v\n", key, err)
		}
	}

	entry, err := s.DeleteTimeEntry(ctx, normalizeEntryID(args[0]))
	if err != nil {
		fail(err)
	}

	fmt.Printf("Deleted %s logged on %s (%s#%d).\n",
		gitlab.FormatDuration(entry.TimeSpent),
		entry.SpentAt.In(s.Config.Location()).Format("2006-01-02"),
		entry.Issue.ProjectPath, entry.Issue.IID)
	return nil
}
