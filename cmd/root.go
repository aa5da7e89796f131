package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ufrutov/gitlab-client/internal/cache"
	"github.com/ufrutov/gitlab-client/internal/config"
	"github.com/ufrutov/gitlab-client/internal/creds"
	"github.com/ufrutov/gitlab-client/internal/favorites"
	"github.com/ufrutov/gitlab-client/internal/gitlab"
	"github.com/ufrutov/gitlab-client/internal/logging"
	"github.com/ufrutov/gitlab-client/internal/session"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "glt",
	Short: "GitLab time tracker - browse projects and log work time",
	Long: `glt is a single-binary command-line client for GitLab's time tracking.
It browses projects and issues, records and deletes work-time entries, and
shows them bucketed by week and day in a monthly calendar. Remote data is
cached as JSON files in ~/.glt/ until a mutation or re-login clears it.`,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(issuesCmd)
	rootCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(favCmd)
}

// appEnv bundles the local stores every command needs.
type appEnv struct {
	cfg    config.Config
	dir    string
	cache  *cache.Store
	creds  *creds.Store
	fav    *favorites.Store
	logger *zap.Logger
}

// newEnv loads config and opens the stores under ~/.glt.
func newEnv() (*appEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	cacheStore := cache.New(filepath.Join(dir, "cache"))
	return &appEnv{
		cfg:    cfg,
		dir:    dir,
		cache:  cacheStore,
		creds:  creds.New(dir, cacheStore),
		fav:    favorites.Load(dir),
		logger: logging.New(verbose),
	}, nil
}

// session builds the view session. Without a stored credential the session
// has no remote; operations needing one fail with gitlab.ErrNoCredentials.
// An expired device-flow credential is refreshed and persisted before the
// client is built.
func (e *appEnv) session(ctx context.Context) (*session.Session, error) {
	cred, err := e.creds.Load()
	if err != nil {
		return nil, err
	}
	var remote session.Remote
	if cred != nil {
		if cred.Expired(time.Now()) {
			tok, err := gitlab.Refresh(ctx, cred, e.cfg.OAuthClientID)
			if err != nil {
				fail(err)
			}
			cred.Secret = tok.AccessToken
			cred.RefreshToken = tok.RefreshToken
			cred.ExpiresAt = tok.Expiry
			if err := e.creds.Update(*cred); err != nil {
				failStorage(err)
			}
		}
		remote = gitlab.NewClient(ctx, cred, e.cfg.PageSize, e.logger)
	}
	return session.New(e.cfg, e.cache, e.fav, remote, e.logger), nil
}

// fail prints err and exits: code 2 for local storage trouble is the
// convention elsewhere; remote and auth failures use code 1.
func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func failStorage(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(2)
}
