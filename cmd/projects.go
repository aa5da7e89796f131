package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ufrutov/gitlab-client/internal/model"
)

var (
	projectsSearch  string
	projectsRefresh bool
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List your projects",
	Long: `projects lists the projects you are a member of, favorites first.
The plain listing is cached until a re-login or --refresh; a --search query
always asks the remote service.`,
	Args: cobra.NoArgs,
	RunE: runProjects,
}

func init() {
	projectsCmd.Flags().StringVar(&projectsSearch, "search", "", "Search term (bypasses the cache)")
	projectsCmd.Flags().BoolVar(&projectsRefresh, "refresh", false, "Ignore the cache and refetch")
}

func runProjects(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		failStorage(err)
	}
	s, err := env.session(cmd.Context())
	if err != nil {
		failStorage(err)
	}

	projects, err := s.Projects(cmd.Context(), projectsSearch, projectsRefresh)
	if err != nil {
		fail(err)
	}

	printProjects(env, projects)
	return nil
}

func printProjects(env *appEnv, projects []model.Project) {
	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return
	}
	for _, p := range projects {
		marker := "  "
		if env.fav.HasProject(p.ID) {
			marker = "★ "
		}
		activity := ""
		if p.LastActivityAt != nil {
			activity = p.LastActivityAt.Format("2006-01-02")
		}
		fmt.Printf("%s%-40s %-10s %s\n", marker, p.FullPath, p.Visibility, activity)
	}
}
