package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ufrutov/gitlab-client/internal/gitlab"
	"github.com/ufrutov/gitlab-client/internal/model"
)

var (
	loginToken    string
	loginDevice   bool
	loginEndpoint string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against a GitLab instance",
	Long: `login stores a credential record for the configured GitLab endpoint.
Provide a personal access token with --token (or interactively), or run the
OAuth2 device code flow with --device. A new login clears all cached data.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Personal access token with the api scope")
	loginCmd.Flags().BoolVar(&loginDevice, "device", false, "Use the OAuth2 device code flow")
	loginCmd.Flags().StringVar(&loginEndpoint, "endpoint", "", "GitLab base URL (overrides config)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	env, err := newEnv()
	if err != nil {
		failStorage(err)
	}

	endpoint := env.cfg.Endpoint
	if loginEndpoint != "" {
		endpoint = strings.TrimRight(loginEndpoint, "/")
	}

	var secret, refreshToken string
	var expiresAt time.Time
	switch {
	case loginDevice:
		tok, err := gitlab.DeviceLogin(ctx, endpoint, env.cfg.OAuthClientID)
		if err != nil {
			fail(err)
		}
		// Keep the refresh token so an expired access token can be
		// rotated instead of forcing a new browser round-trip.
		secret = tok.AccessToken
		refreshToken = tok.RefreshToken
		expiresAt = tok.Expiry
	case loginToken != "":
		secret = loginToken
	default:
		fmt.Printf("Personal access token for %s: ", endpoint)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			fail(fmt.Errorf("reading token: %w", err))
		}
		secret = strings.TrimSpace(line)
	}
	if secret == "" {
		fail(fmt.Errorf("no token provided"))
	}

	// Resolve the identity before persisting anything so a bad token never
	// replaces a working credential.
	probe := gitlab.NewClient(ctx, &model.Credential{
		Identity: "pending",
		Secret:   secret,
		Endpoint: endpoint,
	}, env.cfg.PageSize, env.logger)
	user, err := probe.CurrentUser(ctx)
	if err != nil {
		fail(fmt.Errorf("token verification failed: %w", err))
	}

	cred := model.Credential{
		Identity:     user.Username,
		Secret:       secret,
		Endpoint:     endpoint,
		IssuedAt:     time.Now(),
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}
	// Save cascades to clearing every cached collection.
	if err := env.creds.Save(cred); err != nil {
		failStorage(err)
	}

	fmt.Printf("Logged in to %s as %s (%s).\n", endpoint, user.Username, user.Name)
	return nil
}
