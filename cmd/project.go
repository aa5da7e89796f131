package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project <path>",
	Short: "Show one project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProject,
}

func runProject(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		failStorage(err)
	}
	s, err := env.session(cmd.Context())
	if err != nil {
		failStorage(err)
	}

	p, err := s.Project(cmd.Context(), args[0])
	if err != nil {
		fail(err)
	}

	fmt.Printf("%s (%s)\n", p.FullPath, p.Visibility)
	if p.Name != "" {
		fmt.Printf("Name: %s\n", p.Name)
	}
	if p.Namespace != "" {
		fmt.Printf("Namespace: %s\n", p.Namespace)
	}
	if p.LastActivityAt != nil {
		fmt.Printf("Last activity: %s\n", p.LastActivityAt.Format("2006-01-02"))
	}
	if p.Description != "" {
		fmt.Println()
		fmt.Println(p.Description)
	}
	return nil
}
