package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var favCmd = &cobra.Command{
	Use:   "fav",
	Short: "Manage favorites (pinned projects and issues)",
	Long: `Favorites move pinned projects and issues to the top of listings.
They never filter anything, and they are cleared on logout.`,
}

var favProjectCmd = &cobra.Command{
	Use:   "project <id>",
	Short: "Toggle a project favorite",
	Args:  cobra.ExactArgs(1),
	RunE:  runFavProject,
}

var favIssueCmd = &cobra.Command{
	Use:   "issue <id>",
	Short: "Toggle an issue favorite",
	Args:  cobra.ExactArgs(1),
	RunE:  runFavIssue,
}

var favListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all favorites",
	Args:  cobra.NoArgs,
	RunE:  runFavList,
}

func init() {
	favCmd.AddCommand(favProjectCmd)
	favCmd.AddCommand(favIssueCmd)
	favCmd.AddCommand(favListCmd)
}

func runFavProject(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		failStorage(err)
	}
	on, err := env.fav.ToggleProject(args[0])
	if err != nil {
		failStorage(err)
	}
	if on {
		fmt.Printf("Favorited project %s.\n", args[0])
	} else {
		fmt.Printf("Unfavorited project %s.\n", args[0])
	}
	return nil
}

func runFavIssue(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		failStorage(err)
	}
	on, err := env.fav.ToggleIssue(args[0])
	if err != nil {
		failStorage(err)
	}
	if on {
		fmt.Printf("Favorited issue %s.\n", args[0])
	} else {
		fmt.Printf("Unfavorited issue %s.\n", args[0])
	}
	return nil
}

func runFavList(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		failStorage(err)
	}

	projects := env.fav.Projects()
	issues := env.fav.Issues()
	if len(projects) == 0 && len(issues) == 0 {
		fmt.Println("No favorites.")
		return nil
	}
	if len(projects) > 0 {
		fmt.Println("Projects:")
		for _, id := range projects {
			fmt.Printf("  %s\n", id)
		}
	}
	if len(issues) > 0 {
		fmt.Println("Issues:")
		for _, id := range issues {
			fmt.Printf("  %s\n", id)
		}
	}
	return nil
}
