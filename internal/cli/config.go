package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	UserID    string
	UserFile  string
	Output    string
	Verbose   bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("CHESSCTL_SERVER", "http://localhost:8080"),
		UserID:    os.Getenv("CHESSCTL_USER"),
		UserFile:  getEnvOrDefault("CHESSCTL_USER_FILE", defaultUserFile()),
		Output:    "text",
		Verbose:   false,
	}
}

// LoadUser loads the user id from file if not already set. The first
// run generates a random id and saves it, so the same seats can be
// reclaimed later.
func (c *Config) LoadUser() error {
	if c.UserID != "" {
		return nil
	}

	data, err := os.ReadFile(c.UserFile)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			c.UserID = id
			return nil
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	return c.SaveUser(uuid.NewString())
}

// SaveUser saves the user id to the user file
func (c *Config) SaveUser(id string) error {
	c.UserID = id

	dir := filepath.Dir(c.UserFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	return os.WriteFile(c.UserFile, []byte(id+"\n"), 0600)
}

func defaultUserFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chessctl/user"
	}
	return filepath.Join(home, ".chessctl", "user")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
