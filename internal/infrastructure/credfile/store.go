// Package credfile is the command-line credential slot: one bearer credential
// kept in a user-private JSON file.
package credfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/voice-console/internal/domain"
)

// Credential is the stored slot content.
type Credential struct {
	AccessToken string    `json:"access_token"`
	Username    string    `json:"username,omitempty"`
	SavedAt     time.Time `json:"saved_at"`
}

// Store reads and writes the credential file at Path.
type Store struct {
	Path string
}

// DefaultPath is $XDG_CONFIG_HOME/voice-console/credential.json, or the
// platform's user config directory when XDG_CONFIG_HOME is unset.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "voice-console", "credential.json"), nil
}

func New(path string) *Store {
	return &Store{Path: path}
}

// Load returns the stored credential. An absent or empty slot wraps
// domain.ErrNotFound.
func (s *Store) Load() (*Credential, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no stored credential: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}
	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode credential %s: %w", s.Path, err)
	}
	if c.AccessToken == "" {
		return nil, fmt.Errorf("no stored credential: %w", domain.ErrNotFound)
	}
	return &c, nil
}

// Save replaces the slot with c. The file is written next to its final path
// and renamed into place so a reader never sees a partial credential.
func (s *Store) Save(c *Credential) error {
	if c.SavedAt.IsZero() {
		c.SavedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".credential-*")
	if err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write credential: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write credential: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	return nil
}

// Update stores token in the slot, keeping the username when token does not
// come with one.
func (s *Store) Update(token, username string) error {
	if username == "" {
		if prev, err := s.Load(); err == nil {
			username = prev.Username
		}
	}
	return s.Save(&Credential{AccessToken: token, Username: username})
}

// Clear empties the slot. Clearing an empty slot is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}
