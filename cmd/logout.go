package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored credential and all cached data",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func runLogout(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		failStorage(err)
	}

	// Credential clearing cascades to the cache; favorites go too.
	if err := env.creds.Clear(); err != nil {
		failStorage(err)
	}
	if err := env.fav.Clear(); err != nil {
		failStorage(err)
	}

	fmt.Println("Logged out. Credentials, favorites and caches cleared.")
	return nil
}
