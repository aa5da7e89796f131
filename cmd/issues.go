package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ufrutov/gitlab-client/internal/gitlab"
	"github.com/ufrutov/gitlab-client/internal/model"
)

var (
	issuesSearch   string
	issuesState    string
	issuesLabel    string
	issuesAssignee string
	issuesRefresh  bool
)

var issuesCmd = &cobra.Command{
	Use:   "issues <project>",
	Short: "List a project's issues",
	Long: `issues lists the issues of one project (by full path), favorites first.
The unfiltered listing is cached per project; any filter bypasses the cache.`,
	Args: cobra.ExactArgs(1),
	RunE: runIssues,
}

func init() {
	issuesCmd.Flags().StringVar(&issuesSearch, "search", "", "Search term")
	issuesCmd.Flags().StringVar(&issuesState, "state", "", "Filter by state: opened or closed")
	issuesCmd.Flags().StringVar(&issuesLabel, "label", "", "Filter by label")
	issuesCmd.Flags().StringVar(&issuesAssignee, "assignee", "", "Filter by assignee username")
	issuesCmd.Flags().BoolVar(&issuesRefresh, "refresh", false, "Ignore the cache and refetch")
}

func runIssues(cmd *cobra.Command, args []string) error {
	fullPath := args[0]

	if issuesState != "" && issuesState != "opened" && issuesState != "closed" {
		fail(fmt.Errorf("invalid --state %q: use opened or closed", issuesState))
	}

	env, err := newEnv()
	if err != nil {
		failStorage(err)
	}
	s, err := env.session(cmd.Context())
	if err != nil {
		failStorage(err)
	}

	opts := gitlab.IssueOpts{
		Search:   issuesSearch,
		State:    issuesState,
		Label:    issuesLabel,
		Assignee: issuesAssignee,
	}
	issues, err := s.Issues(cmd.Context(), fullPath, opts, issuesRefresh)
	if err != nil {
		fail(err)
	}

	printIssues(env, issues)
	return nil
}

func printIssues(env *appEnv, issues []model.Issue) {
	if len(issues) == 0 {
		fmt.Println("No issues found.")
		return
	}
	for _, i := range issues {
		marker := "  "
		if env.fav.HasIssue(i.ID) {
			marker = "★ "
		}
		labels := ""
		if len(i.Labels) > 0 {
			labels = "  [" + strings.Join(i.Labels, ", ") + "]"
		}
		fmt.Printf("%s#%-5d %-7s %s%s\n", marker, i.IID, i.State, i.Title, labels)
	}
}
