package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envConfigPath = "AQUA_CONFIG"
	envPrefix     = "AQUA_"

	defaultChannelsFile = "channels_setting.json"
	defaultPollInterval = time.Second
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	BotName      string        `koanf:"bot-name"`
	APIToken     string        `koanf:"api-token"`
	AppToken     string        `koanf:"app-token"`
	ChannelsFile string        `koanf:"channels-file"`
	PollInterval string        `koanf:"poll-interval"`
	Logging      LoggingConfig `koanf:"logging"`
	Status       StatusConfig  `koanf:"status"`

	// path is the file the config was loaded from.
	path string
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `koanf:"format"`
	Level     string `koanf:"level"`
	AddSource bool   `koanf:"add-source"`
}

// StatusConfig configures the optional health/status HTTP server.
type StatusConfig struct {
	Enabled bool   `koanf:"enabled"`
	Host    string `koanf:"host"`
	Port    int    `koanf:"port"`
}

// LoadConfig resolves the config file, parses it, and overlays AQUA_* environment overrides.
//
// explicitPath wins over AQUA_CONFIG, which wins over cwd-local fallbacks.
func LoadConfig(explicitPath string) (*Config, error) {
	configPath, err := findConfigPath(explicitPath)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(configPath), json.Parser()); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
	}

	// AQUA_API_TOKEN -> api-token, AQUA_LOGGING__LEVEL -> logging.level
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.path = configPath

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps an AQUA_* variable name onto a config key.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, envPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	return strings.ReplaceAll(key, "_", "-")
}

// Validate checks the fields the bot cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BotName) == "" {
		return errors.New("bot-name is required")
	}
	if _, err := c.pollInterval(); err != nil {
		return err
	}
	if c.Status.Port < 0 {
		return fmt.Errorf("status.port must be non-negative, got %d", c.Status.Port)
	}

	return nil
}

// NormalizedBotName returns the bot name lower-cased for identity matching.
func (c *Config) NormalizedBotName() string {
	return strings.ToLower(strings.TrimSpace(c.BotName))
}

// PollDelay returns the sleep between two drains of the inbound queue.
func (c *Config) PollDelay() time.Duration {
	d, err := c.pollInterval()
	if err != nil {
		return defaultPollInterval
	}
	return d
}

func (c *Config) pollInterval() (time.Duration, error) {
	raw := strings.TrimSpace(c.PollInterval)
	if raw == "" {
		return defaultPollInterval, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid poll-interval %q: %w", raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("poll-interval must be positive, got %s", raw)
	}

	return d, nil
}

// ChannelsPath returns the readonly-channel policy file location.
//
// Relative paths are resolved against the directory of the loaded config file.
func (c *Config) ChannelsPath() string {
	name := strings.TrimSpace(c.ChannelsFile)
	if name == "" {
		name = defaultChannelsFile
	}
	if filepath.IsAbs(name) || c.path == "" {
		return name
	}

	return filepath.Join(filepath.Dir(c.path), name)
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

func findConfigPath(explicitPath string) (string, error) {
	if value := strings.TrimSpace(explicitPath); value != "" {
		return existingFile(value, "--config")
	}

	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		return existingFile(value, envConfigPath)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("config.json not found (checked %s and %s)", candidates[0], candidates[1])
}

func existingFile(path string, source string) (string, error) {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path, nil
	}
	return "", fmt.Errorf("%s does not point to a file: %s", source, path)
}
