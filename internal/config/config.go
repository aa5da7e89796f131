package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration for glt, stored in ~/.glt/config.json.
// The file supports single-line // comments for documentation purposes.
type Config struct {
	// Endpoint is the GitLab instance base URL (no trailing slash).
	Endpoint string `json:"endpoint"`
	// OAuthClientID is the GitLab application ID used for the OAuth2
	// device code flow ("glt login --device"). Not needed for token login.
	OAuthClientID string `json:"oauth_client_id"`
	// Timezone is the IANA timezone used to bucket time entries into
	// calendar days (e.g. "Europe/Berlin"). Empty = local time.
	Timezone string `json:"timezone"`
	// PageSize is the number of items requested per API page.
	PageSize int `json:"page_size"`
}

const (
	// DefaultEndpoint is the hosted GitLab instance.
	DefaultEndpoint = "https://gitlab.com"
	// DefaultPageSize matches the remote API's default page length.
	DefaultPageSize = 20
)

// defaultConfig returns a Config pre-filled with sensible defaults.
func defaultConfig() Config {
	return Config{
		Endpoint: DefaultEndpoint,
		PageSize: DefaultPageSize,
	}
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// glt configuration - ~/.glt/config.json
//
// All settings are optional; the built-in defaults shown below work out of
// the box against gitlab.com. Edit this file to customise glt behaviour.
{
  // GitLab instance base URL, without a trailing slash.
  // Self-hosted example: "https://gitlab.example.com"
  "endpoint": "https://gitlab.com",

  // GitLab application (client) ID for the OAuth2 device code flow.
  // Only needed for "glt login --device"; token login works without it.
  // Register an application with the "api" scope to obtain one.
  "oauth_client_id": "",

  // IANA timezone for bucketing time entries into calendar days,
  // e.g. "Europe/Berlin". Leave empty to use the local timezone.
  "timezone": "",

  // Number of items requested per API page.
  "page_size": 20
}
`

// Dir returns the root data directory (~/.glt).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".glt"), nil
}

// configFilePath returns the path to ~/.glt/config.json.
func configFilePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads ~/.glt/config.json, creating it with annotated defaults on first
// run. Lines starting with // are treated as comments and stripped before
// JSON parsing.
func Load() (Config, error) {
	path, err := configFilePath()
	if err != nil {
		return defaultConfig(), err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
		return defaultConfig(), nil
	}
	if err != nil {
		return defaultConfig(), fmt.Errorf("reading config file %s: %w", path, err)
	}

	cleaned := stripLineComments(data)
	var cfg Config
	if err := json.Unmarshal(cleaned, &cfg); err != nil {
		return defaultConfig(), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}

	// Fill zero-value fields with built-in defaults so callers always get
	// a usable Config even if the user only partially fills in the file.
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}

	return cfg, nil
}

// Location resolves the configured timezone, falling back to local time.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: unknown timezone %q, using local time\n", c.Timezone)
		return time.Local
	}
	return loc
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
