package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ufrutov/gitlab-client/internal/gitlab"
)

var issueCmd = &cobra.Command{
	Use:   "issue <project> <iid>",
	Short: "Show one issue with its time entries",
	Args:  cobra.ExactArgs(2),
	RunE:  runIssue,
}

func runIssue(cmd *cobra.Command, args []string) error {
	fullPath := args[0]
	iid, err := strconv.Atoi(args[1])
	if err != nil {
		fail(fmt.Errorf("invalid issue number %q: %w", args[1], err))
	}

	env, err := newEnv()
	if err != nil {
		failStorage(err)
	}
	s, err := env.session(cmd.Context())
	if err != nil {
		failStorage(err)
	}

	issue, entries, err := s.Issue(cmd.Context(), fullPath, iid)
	if err != nil {
		fail(err)
	}
	me, err := s.CurrentUser(cmd.Context())
	if err != nil {
		fail(err)
	}

	fmt.Printf("#%d %s (%s)\n", issue.IID, issue.Title, issue.State)
	fmt.Printf("Author: %s", issue.Author.Username)
	if len(issue.Assignees) > 0 {
		names := make([]string, len(issue.Assignees))
		for i, a := range issue.Assignees {
			names[i] = a.Username
		}
		fmt.Printf("  Assignees: %s", strings.Join(names, ", "))
	}
	fmt.Println()
	if len(issue.Labels) > 0 {
		fmt.Printf("Labels: %s\n", strings.Join(issue.Labels, ", "))
	}
	fmt.Println(issue.WebURL)
	if issue.Description != "" {
		fmt.Println()
		fmt.Println(issue.Description)
	}

	if len(entries) == 0 {
		fmt.Println("\nNo time logged.")
		return nil
	}

	var total int64
	fmt.Println("\nTime entries:")
	for _, e := range entries {
		total += e.TimeSpent
		// Only the owner can delete an entry; mark the others up front.
		deletable := ""
		if e.User.Username != me.Username {
			deletable = "  (not deletable: owned by " + e.User.Username + ")"
		}
		summary := ""
		if e.Summary != "" {
			summary = "  - " + e.Summary
		}
		fmt.Printf("  %s  %-9s %s  %s%s%s\n",
			e.SpentAt.Format("2006-01-02"),
			gitlab.FormatDuration(e.TimeSpent),
			e.User.Username,
			e.ID,
			summary,
			deletable)
	}
	fmt.Printf("Total: %s\n", gitlab.FormatDuration(total))
	return nil
}
