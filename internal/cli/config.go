package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Environment variables read by roomctl
const (
	EnvServerURL = "ROOMCTL_URL"
	EnvToken     = "ROOMCTL_TOKEN"
	EnvTokenFile = "ROOMCTL_TOKEN_FILE"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Token     string
	TokenFile string
	Output    string
	Timeout   time.Duration
	Verbose   bool
}

// DefaultConfig seeds flags from the environment
func DefaultConfig() *Config {
	c := &Config{
		ServerURL: "http://localhost:8080",
		TokenFile: defaultTokenFile(),
		Output:    FormatText,
		Timeout:   10 * time.Second,
	}
	if v := os.Getenv(EnvServerURL); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv(EnvTokenFile); v != "" {
		c.TokenFile = v
	}
	c.Token = strings.TrimSpace(os.Getenv(EnvToken))
	return c
}

// Validate checks flag values before any request is made
func (c *Config) Validate() error {
	var errs []error
	if c.Output != FormatText && c.Output != FormatJSON {
		errs = append(errs, fmt.Errorf("unknown output format %q: want %s or %s", c.Output, FormatText, FormatJSON))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.ServerURL == "" {
		errs = append(errs, errors.New("server url is required"))
	}
	return errors.Join(errs...)
}

// LoadToken falls back to the token file when no token was given.
// A missing file leaves the token empty.
func (c *Config) LoadToken() error {
	if c.Token != "" {
		return nil
	}

	data, err := os.ReadFile(c.TokenFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("read token file: %w", err)
	}

	c.Token = strings.TrimSpace(string(data))
	return nil
}

// SaveToken stores token in the token file, readable only by the user
func (c *Config) SaveToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is empty")
	}

	if err := os.MkdirAll(filepath.Dir(c.TokenFile), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(c.TokenFile, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}

	c.Token = token
	return nil
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".roomctl", "token")
	}
	return filepath.Join(home, ".roomctl", "token")
}
