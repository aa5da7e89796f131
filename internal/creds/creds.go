// Package creds persists the single login record for the configured GitLab
// endpoint. Saving or clearing the record wipes the cache store: switching
// identity must never leak cached data across accounts.
package creds

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ufrutov/gitlab-client/internal/cache"
	"github.com/ufrutov/gitlab-client/internal/model"
)

const credentialsFile = "credentials.json"

// Store reads and writes the credential record under a data directory.
type Store struct {
	dir   string
	cache *cache.Store
}

// New returns a Store rooted at dir whose mutations cascade to cacheStore.
func New(dir string, cacheStore *cache.Store) *Store {
	return &Store{dir: dir, cache: cacheStore}
}

func (s *Store) path() string {
	return filepath.Join(s.dir, credentialsFile)
}

// Save validates and overwrites the credential record, then clears every
// cached collection.
func (s *Store) Save(cred model.Credential) error {
	if err := s.write(cred); err != nil {
		return err
	}
	return s.cache.ClearAll()
}

// Update overwrites the record without touching the caches. Only for token
// rotation on refresh, where the identity stays the same; a login with a
// possibly different identity goes through Save.
func (s *Store) Update(cred model.Credential) error {
	return s.write(cred)
}

func (s *Store) write(cred model.Credential) error {
	if cred.Identity == "" || cred.Secret == "" {
		return errors.New("credential must have a non-empty identity and secret")
	}
	if cred.Endpoint == "" {
		return errors.New("credential must have an endpoint")
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling credentials: %w", err)
	}

	tmpPath := s.path() + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path()); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving credentials file: %w", err)
	}
	return nil
}

// Load returns the stored credential, or nil when no login is recorded.
func (s *Store) Load() (*model.Credential, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	var cred model.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("corrupt credentials file (delete %s and log in again): %w", s.path(), err)
	}
	if cred.Identity == "" || cred.Secret == "" {
		return nil, fmt.Errorf("incomplete credentials file %s: log in again", s.path())
	}
	return &cred, nil
}

// Clear removes the credential record and wipes every cached collection.
// Clearing an absent record is a no-op.
func (s *Store) Clear() error {
	err := os.Remove(s.path())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing credentials file: %w", err)
	}
	return s.cache.ClearAll()
}
