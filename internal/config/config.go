// Package config manages application configuration from various sources.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SuggestionConfig controls the inline suggestion lifecycle.
type SuggestionConfig struct {
	Enabled              bool            `json:"enabled" mapstructure:"enabled"`
	AutoTrigger          bool            `json:"autoTrigger" mapstructure:"autoTrigger"`
	DebounceMs           int             `json:"debounceMs" mapstructure:"debounceMs"`
	MaxTokens            int64           `json:"maxTokens" mapstructure:"maxTokens"`
	HideDuringCompletion bool            `json:"hideDuringCompletion" mapstructure:"hideDuringCompletion"`
	Streaming            bool            `json:"streaming" mapstructure:"streaming"`
	Filetypes            map[string]bool `json:"filetypes" mapstructure:"filetypes"`
	IgnoreGlobs          []string        `json:"ignoreGlobs" mapstructure:"ignoreGlobs"`
}

// ProviderConfig selects and configures the completion backend. The API key
// is read from the environment variable named by APIKeyEnv, never from the
// config file itself.
type ProviderConfig struct {
	Name      string `json:"name" mapstructure:"name"`
	Model     string `json:"model" mapstructure:"model"`
	BaseURL   string `json:"baseUrl" mapstructure:"baseUrl"`
	APIKeyEnv string `json:"apiKeyEnv" mapstructure:"apiKeyEnv"`
}

// Config is the main configuration structure for the application.
type Config struct {
	WorkingDir string           `json:"wd,omitempty" mapstructure:"wd"`
	Debug      bool             `json:"debug,omitempty" mapstructure:"debug"`
	Suggestion SuggestionConfig `json:"suggestion" mapstructure:"suggestion"`
	Provider   ProviderConfig   `json:"provider" mapstructure:"provider"`
}

const (
	appName = "glint"

	defaultDebounceMs = 150
	defaultMaxTokens  = 256
)

// Global configuration instance
var cfg *Config

// Load initializes the configuration from environment variables and config
// files. It returns an error if configuration loading fails.
func Load(workingDir string, debug bool) (*Config, error) {
	if cfg != nil {
		return cfg, nil
	}

	cfg = &Config{
		WorkingDir: workingDir,
	}

	configureViper()
	setDefaults(debug)

	// Read global config
	if err := readConfig(viper.ReadInConfig()); err != nil {
		return cfg, err
	}

	// Load and merge local config
	mergeLocalConfig(workingDir)

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	defaultLevel := slog.LevelInfo
	if cfg.Debug {
		defaultLevel = slog.LevelDebug
	}
	slog.SetLogLoggerLevel(defaultLevel)

	if err := Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// configureViper sets up viper's configuration paths and environment variables.
func configureViper() {
	viper.SetConfigName(fmt.Sprintf(".%s", appName))
	viper.SetConfigType("json")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(fmt.Sprintf("$XDG_CONFIG_HOME/%s", appName))
	viper.AddConfigPath(fmt.Sprintf("$HOME/.config/%s", appName))
	viper.SetEnvPrefix(strings.ToUpper(appName))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// setDefaults configures default values for configuration options.
func setDefaults(debug bool) {
	viper.SetDefault("suggestion.enabled", true)
	viper.SetDefault("suggestion.autoTrigger", true)
	viper.SetDefault("suggestion.debounceMs", defaultDebounceMs)
	viper.SetDefault("suggestion.maxTokens", defaultMaxTokens)
	viper.SetDefault("suggestion.hideDuringCompletion", true)
	viper.SetDefault("suggestion.streaming", false)
	viper.SetDefault("suggestion.filetypes", map[string]bool{"*": true})
	viper.SetDefault("provider.name", "gemini")
	viper.SetDefault("provider.apiKeyEnv", "GEMINI_API_KEY")

	viper.SetDefault("debug", debug)
}

// readConfig handles the result of reading a configuration file.
func readConfig(err error) error {
	if err == nil {
		return nil
	}

	// It's okay if the config file doesn't exist
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return nil
	}

	return fmt.Errorf("failed to read config: %w", err)
}

// mergeLocalConfig loads and merges configuration from the local directory.
func mergeLocalConfig(workingDir string) {
	local := viper.New()
	local.SetConfigName(fmt.Sprintf(".%s", appName))
	local.SetConfigType("json")
	local.AddConfigPath(workingDir)

	if err := local.ReadInConfig(); err == nil {
		viper.MergeConfigMap(local.AllSettings())
	}
}

// Validate checks if the configuration is valid and applies defaults where
// needed.
func Validate() error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}
	if cfg.Suggestion.DebounceMs <= 0 {
		cfg.Suggestion.DebounceMs = defaultDebounceMs
	}
	if cfg.Suggestion.MaxTokens <= 0 {
		cfg.Suggestion.MaxTokens = defaultMaxTokens
	}
	if cfg.Suggestion.Filetypes == nil {
		cfg.Suggestion.Filetypes = map[string]bool{"*": true}
	}
	return nil
}

// Get returns the current configuration.
// It's safe to call this function multiple times.
func Get() *Config {
	return cfg
}

// WorkingDirectory returns the current working directory from the configuration.
func WorkingDirectory() string {
	if cfg == nil {
		panic("config not loaded")
	}
	return cfg.WorkingDir
}

// Debounce returns the suggestion debounce window as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Suggestion.DebounceMs) * time.Millisecond
}

// APIKey resolves the provider API key from the configured environment
// variable.
func (c *Config) APIKey() string {
	if c.Provider.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Provider.APIKeyEnv)
}

func updateCfgFile(updateCfg func(config *Config)) error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	configFile := viper.ConfigFileUsed()
	var configData []byte
	if configFile == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		configFile = filepath.Join(homeDir, fmt.Sprintf(".%s.json", appName))
		slog.Info("config file not found, creating new one", "path", configFile)
		configData = []byte(`{}`)
	} else {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		configData = data
	}

	var userCfg *Config
	if err := json.Unmarshal(configData, &userCfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	updateCfg(userCfg)

	updatedData, err := json.MarshalIndent(userCfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, updatedData, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// UpdateEnabled updates the suggestion toggle in memory and persists it to
// the config file so the choice survives restarts.
func UpdateEnabled(enabled bool) error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	cfg.Suggestion.Enabled = enabled

	return updateCfgFile(func(config *Config) {
		config.Suggestion.Enabled = enabled
	})
}
