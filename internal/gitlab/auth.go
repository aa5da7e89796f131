package gitlab

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/ufrutov/gitlab-client/internal/model"
)

// oauth2Config returns the oauth2.Config for a GitLab instance's device
// authorization grant.
func oauth2Config(endpoint, clientID string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: clientID,
		Scopes:   []string{"api"},
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: endpoint + "/oauth/authorize_device",
			TokenURL:      endpoint + "/oauth/token",
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// Refresh exchanges a credential's refresh token for a fresh access token.
// The caller persists the rotated credential; GitLab invalidates the old
// refresh token on use, so losing the new one means logging in again.
func Refresh(ctx context.Context, cred *model.Credential, clientID string) (*oauth2.Token, error) {
	if cred.RefreshToken == "" {
		return nil, errors.New("credential has no refresh token: log in again")
	}
	if clientID == "" {
		return nil, errors.New("token refresh needs an oauth_client_id in config.json")
	}
	cfg := oauth2Config(cred.Endpoint, clientID)
	tok, err := cfg.TokenSource(ctx, &oauth2.Token{
		AccessToken:  cred.Secret,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.ExpiresAt,
	}).Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed (log in again): %w", err)
	}
	return tok, nil
}

// DeviceLogin runs the OAuth2 device code flow against the GitLab endpoint
// and returns the granted token. clientID is the GitLab application ID from
// the config file; token login does not need it.
func DeviceLogin(ctx context.Context, endpoint, clientID string) (*oauth2.Token, error) {
	if clientID == "" {
		return nil, errors.New(`device login needs an oauth_client_id in config.json; use "glt login --token" instead`)
	}
	cfg := oauth2Config(endpoint, clientID)

	resp, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device auth request failed: %w", err)
	}

	fmt.Println()
	fmt.Println("To sign in, use a web browser to open the page:")
	fmt.Printf("  %s\n", resp.VerificationURI)
	fmt.Printf("Enter the code: %s\n", resp.UserCode)
	fmt.Println()

	tok, err := cfg.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("device authentication failed: %w", err)
	}
	return tok, nil
}
