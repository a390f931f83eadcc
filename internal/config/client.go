package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

const (
	appName          = "clubadmin"
	clientConfigFile = "adminctl.yaml"
)

// EnvAPIKey holds the admin key used by adminctl. It is never written to disk.
const EnvAPIKey = "CLUBADMIN_API_KEY"

// Client is the adminctl configuration file.
type Client struct {
	Version int    `yaml:"version"`
	Server  string `yaml:"server"`
	Table   string `yaml:"table,omitempty"`
	Labels  string `yaml:"labels,omitempty"`
}

// NewClient returns the default client configuration.
func NewClient() *Client {
	return &Client{Version: 1, Server: "http://localhost:8080", Table: "members"}
}

// ConfigDir returns the OS-appropriate configuration directory:
//   - Linux: $XDG_CONFIG_HOME/clubadmin or $HOME/.config/clubadmin
//   - macOS: $HOME/.config/clubadmin
//   - Windows: %LOCALAPPDATA%\clubadmin
func ConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, appName), nil
		}
		return "", fmt.Errorf("cannot determine config directory (LOCALAPPDATA not set)")
	}
	if runtime.GOOS != "darwin" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// ClientPath returns the default location of the adminctl configuration file.
func ClientPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, clientConfigFile), nil
}

// LoadClient reads the client configuration at path.
// A missing file yields the defaults.
func LoadClient(path string) (*Client, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewClient(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	c := NewClient()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if c.Version != 1 {
		return nil, fmt.Errorf("unsupported config version: %d (expected 1)", c.Version)
	}
	return c, nil
}

// Save writes the client configuration to path atomically.
// PRE: path's directory is writable or creatable
// POST: path holds the YAML form of c with user-only permissions
func (c *Client) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	header := []byte("# adminctl configuration\n# The admin key is read from " + EnvAPIKey + " and never stored here.\n\n")
	data = append(header, data...)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}
