package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/CrowderSoup/spearmint/database"
	"gopkg.in/yaml.v3"
)

// ErrNoSession is returned when an operation needs an owner identity and none is loaded.
var ErrNoSession = errors.New("no user session, please log in")

// Session is the identity every view and service call acts for. The username
// doubles as the owner id on every stored document.
type Session struct {
	Username string `yaml:"username"`
	Fullname string `yaml:"fullname,omitempty"`
	Email    string `yaml:"email,omitempty"`
}

// NewSession builds a session from a logged-in profile.
func NewSession(profile database.UserProfile) Session {
	return Session{Username: profile.Username, Fullname: profile.Fullname, Email: profile.Email}
}

// Resolved reports whether the session carries an identity.
func (s Session) Resolved() bool {
	return strings.TrimSpace(s.Username) != ""
}

// OwnerID is the owner filter applied to every query.
func (s Session) OwnerID() string {
	return s.Username
}

// SessionFile persists the CLI session between invocations.
type SessionFile struct {
	Path string
}

// Load reads the stored session. A missing file yields ErrNoSession.
func (f SessionFile) Load() (Session, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("parse session: %w", err)
	}
	if !s.Resolved() {
		return Session{}, ErrNoSession
	}
	return s, nil
}

// Save writes the session, creating the parent directory if needed.
func (f SessionFile) Save(s Session) error {
	if !s.Resolved() {
		return ErrNoSession
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(f.Path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the stored session. Clearing twice is not an error.
func (f SessionFile) Clear() error {
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
