package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity behind the stored credential",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func runWhoami(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		failStorage(err)
	}
	s, err := env.session(cmd.Context())
	if err != nil {
		failStorage(err)
	}

	user, err := s.CurrentUser(cmd.Context())
	if err != nil {
		fail(err)
	}

	fmt.Printf("%s (%s) on %s\n", user.Username, user.Name, s.Config.Endpoint)
	return nil
}
