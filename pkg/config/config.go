// Package config provides configuration management for the polysecret CLI
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Davincible/polysecret/internal/validation"
	"github.com/Davincible/polysecret/pkg/crypto/interpolate"
	"github.com/Davincible/polysecret/pkg/crypto/reconstruct"
	"github.com/Davincible/polysecret/pkg/shareset"
)

// Config represents the main configuration structure
type Config struct {
	Version  string          `json:"version"`
	Defaults DefaultSettings `json:"defaults"`
	UI       UIConfig        `json:"ui"`
	Storage  StorageConfig   `json:"storage"`
}

// DefaultSettings contains default values for recovery runs
type DefaultSettings struct {
	Strategy        string `json:"strategy"`         // first-k or consensus
	Arithmetic      string `json:"arithmetic"`       // exact or truncating
	Parallelism     int    `json:"parallelism"`      // share-sets recovered at once
	MaxCombinations int    `json:"max_combinations"` // consensus subset cap
	FailFast        bool   `json:"fail_fast"`        // stop at the first failing share-set
}

// UIConfig contains user interface settings
type UIConfig struct {
	UseColor  bool   `json:"use_color"`
	Verbosity string `json:"verbosity"` // quiet, normal, verbose
}

// StorageConfig contains settings for sealed share-set files
type StorageConfig struct {
	SealFormat string `json:"seal_format"` // encoding inside sealed files: json or cbor
}

// ConfigManager manages configuration loading and saving
type ConfigManager struct {
	config     *Config
	configPath string
}

// NewConfigManager loads the configuration, writing the defaults on first use.
func NewConfigManager() (*ConfigManager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return NewConfigManagerAt(configPath)
}

func NewConfigManagerAt(configPath string) (*ConfigManager, error) {
	cm := &ConfigManager{configPath: configPath}

	if err := cm.LoadConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cm.config = DefaultConfig()
		if err := cm.SaveConfig(); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	}

	return cm, nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0.0",
		Defaults: DefaultSettings{
			Strategy:        string(reconstruct.StrategyFirstK),
			Arithmetic:      interpolate.ArithmeticExact.String(),
			Parallelism:     1,
			MaxCombinations: reconstruct.DefaultMaxCombinations,
			FailFast:        false,
		},
		UI: UIConfig{
			UseColor:  true,
			Verbosity: "normal",
		},
		Storage: StorageConfig{
			SealFormat: string(shareset.FormatJSON),
		},
	}
}

// LoadConfig loads the configuration from disk. Fields missing from the file
// keep their default values.
func (cm *ConfigManager) LoadConfig() error {
	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return err
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", cm.configPath, err)
	}

	cm.config = config
	return nil
}

// SaveConfig saves the configuration to disk
func (cm *ConfigManager) SaveConfig() error {
	configDir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cm.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(cm.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfig returns the current configuration
func (cm *ConfigManager) GetConfig() *Config {
	return cm.config
}

// Path returns the file the configuration is stored in
func (cm *ConfigManager) Path() string {
	return cm.configPath
}

// Validate checks that every default names a known option
func (c *Config) Validate() error {
	if _, err := reconstruct.ParseStrategy(c.Defaults.Strategy, c.Defaults.MaxCombinations); err != nil {
		return err
	}
	if _, err := interpolate.ParseArithmetic(c.Defaults.Arithmetic); err != nil {
		return err
	}
	if err := validation.ValidateParallelism(c.Defaults.Parallelism); err != nil {
		return err
	}
	if err := validation.ValidateMaxCombinations(c.Defaults.MaxCombinations); err != nil {
		return err
	}
	if _, err := shareset.ParseFormat(c.Storage.SealFormat); err != nil {
		return err
	}

	switch c.UI.Verbosity {
	case "quiet", "normal", "verbose":
	default:
		return fmt.Errorf("unknown verbosity %q", c.UI.Verbosity)
	}
	return nil
}

// getConfigPath returns the configuration file path
func getConfigPath() (string, error) {
	if customPath := os.Getenv("POLYSECRET_CONFIG"); customPath != "" {
		return customPath, nil
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "polysecret", "config.json"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "polysecret", "config.json"), nil
}
