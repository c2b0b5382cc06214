// Package config provides configuration handling for nodeharvest.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tcmartin/nodeharvest/pkg/staging"
)

// Config represents the application configuration
type Config struct {
	// Registry configuration
	Registry RegistryConfig `json:"registry"`

	// Staging configuration
	Staging StagingConfig `json:"staging"`

	// Loader configuration
	Loader LoaderConfig `json:"loader"`

	// Output configuration
	Output OutputConfig `json:"output"`

	// Webhook configuration
	Webhook WebhookConfig `json:"webhook"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`
}

// RegistryConfig contains package registry settings
type RegistryConfig struct {
	// BaseURL is the registry endpoint to resolve packages against
	BaseURL string `json:"base_url"`

	// TimeoutSeconds bounds a single registry request
	TimeoutSeconds int `json:"timeout_seconds"`
}

// StagingConfig contains package staging settings
type StagingConfig struct {
	// InstallCommand is the package manager invocation used to
	// install dependencies, as an argv list
	InstallCommand []string `json:"install_command"`

	// CorePackages are the platform runtime packages every staged
	// package must be able to resolve
	CorePackages []string `json:"core_packages"`
}

// LoaderConfig contains module loading settings
type LoaderConfig struct {
	// LoadTimeoutSeconds bounds a single module load
	LoadTimeoutSeconds int `json:"load_timeout_seconds"`
}

// OutputConfig contains artifact output settings
type OutputConfig struct {
	// Directory is where result artifacts are written
	Directory string `json:"directory"`
}

// WebhookConfig contains webhook notification settings
type WebhookConfig struct {
	// URL to notify when a run completes; empty disables webhooks
	URL string `json:"url"`

	// Headers to include in webhook requests
	Headers map[string]string `json:"headers,omitempty"`

	// Secret for signing webhook payloads
	Secret string `json:"secret,omitempty"`

	// MaxRetries is the maximum number of delivery retry attempts
	MaxRetries int `json:"max_retries"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	// Level is the logging level
	Level string `json:"level"` // "debug", "info", "warn", "error"

	// Format is the log format
	Format string `json:"format"` // "json", "text"

	// Output is the log output
	Output string `json:"output"` // "stdout", "stderr", "file"

	// FilePath is the path to the log file
	FilePath string `json:"file_path"`
}

// LoadConfig loads the configuration from a file
func LoadConfig(path string) (*Config, error) {
	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse the JSON
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			BaseURL:        "https://registry.npmjs.org",
			TimeoutSeconds: 30,
		},
		Staging: StagingConfig{
			InstallCommand: staging.DefaultInstallCommand,
			CorePackages:   staging.CorePackages,
		},
		Loader: LoaderConfig{
			LoadTimeoutSeconds: 10,
		},
		Output: OutputConfig{
			Directory: "./extracted-nodes",
		},
		Webhook: WebhookConfig{
			MaxRetries: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// SaveConfig saves the configuration to a file
func SaveConfig(config *Config, path string) error {
	// Create the directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal the JSON
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write the file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
