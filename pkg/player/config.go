package player

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// TOMLConfig represents the structure of the config file
type TOMLConfig struct {
	Connection ConnectionSection `toml:"connection"`
	Player     PlayerSection     `toml:"player"`
	History    HistorySection    `toml:"history"`
	Metrics    MetricsSection    `toml:"metrics"`
}

type ConnectionSection struct {
	// Target accepts host:port, tcp://host:port, unix:///path or
	// ssh://user@host/path forms.
	Target             string `toml:"target"`
	BackoffBaseSeconds int    `toml:"backoff_base_seconds"`
	BackoffMaxSeconds  int    `toml:"backoff_max_seconds"`
}

type PlayerSection struct {
	PollIntervalSeconds int  `toml:"poll_interval_seconds"`
	NotifyTrackChange   bool `toml:"notify_track_change"`
}

type HistorySection struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type MetricsSection struct {
	// Listen is the address for the Prometheus endpoint, empty to disable.
	Listen string `toml:"listen"`
}

// ConfigError represents a structured configuration error
type ConfigError struct {
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// getXDGDataHome returns the XDG data directory
func getXDGDataHome() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return xdg
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".local", "share")
}

// DefaultConfigPath returns the XDG location of the config file.
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mpvremote", "config.toml")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(homeDir, ".config", "mpvremote", "config.toml")
}

// DefaultTOMLConfig returns the default TOML configuration
func DefaultTOMLConfig() TOMLConfig {
	historyDB := filepath.Join(getXDGDataHome(), "mpvremote", "history.db")

	return TOMLConfig{
		Connection: ConnectionSection{
			Target:             "/tmp/mpvsocket",
			BackoffBaseSeconds: 5,
			BackoffMaxSeconds:  80,
		},
		Player: PlayerSection{
			PollIntervalSeconds: 5,
			NotifyTrackChange:   false,
		},
		History: HistorySection{
			Enabled: true,
			Path:    historyDB,
		},
		Metrics: MetricsSection{
			Listen: "",
		},
	}
}

// LoadConfig loads configuration from a TOML file, creates default if not found
func LoadConfig(path string) (TOMLConfig, error) {
	path = expandHome(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// File doesn't exist, create default config
		config := DefaultTOMLConfig()
		if err := writeDefaultConfig(path, config); err != nil {
			// If we can't write, just return defaults without error
			return config, nil
		}
		return config, nil
	}

	var config TOMLConfig
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return TOMLConfig{}, &ConfigError{
			Path:    path,
			Message: strings.TrimPrefix(err.Error(), "toml: "),
		}
	}

	if err := validateConfig(&config); err != nil {
		return TOMLConfig{}, &ConfigError{
			Path:    path,
			Message: err.Error(),
		}
	}

	return config, nil
}

// validateConfig validates configuration values
func validateConfig(config *TOMLConfig) error {
	var errors []string

	if strings.TrimSpace(config.Connection.Target) == "" {
		errors = append(errors, "Connection target cannot be empty")
	}
	if config.Connection.BackoffBaseSeconds < 0 {
		errors = append(errors, "Backoff base cannot be negative")
	}
	if config.Connection.BackoffMaxSeconds < 0 {
		errors = append(errors, "Backoff max cannot be negative")
	}
	if config.Player.PollIntervalSeconds < 0 {
		errors = append(errors, "Poll interval cannot be negative")
	}
	if config.History.Enabled && strings.TrimSpace(config.History.Path) == "" {
		errors = append(errors, "History path cannot be empty when history is enabled")
	}

	if len(errors) > 0 {
		return fmt.Errorf("Configuration validation failed:\n  • %s", strings.Join(errors, "\n  • "))
	}

	return nil
}

// writeDefaultConfig writes the default config to a file
func writeDefaultConfig(path string, config TOMLConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	header := `# mpvremote configuration
# This file was auto-generated with default values
# Edit as needed - changes take effect on next start

`
	if _, err := f.WriteString(header); err != nil {
		return err
	}

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetHistoryPath returns the history database path with ~ expanded
func (c *TOMLConfig) GetHistoryPath() string {
	return expandHome(c.History.Path)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[2:])
}
