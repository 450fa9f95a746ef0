package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDirectories ensures the node's data directory exists.
func (c *Config) EnsureDirectories() error {
	return os.MkdirAll(c.Node.DataPath, 0o755)
}

// GetDataPath joins name onto the node's data directory.
func (c *Config) GetDataPath(name string) string {
	return filepath.Join(c.Node.DataPath, name)
}

// IsDevelopment returns true if running with verbose console logging.
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}

// GetHTTPAddress returns the HTTPSERVER module's listen address.
func (c *Config) GetHTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}
