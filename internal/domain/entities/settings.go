package entities

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	envPrefix = "AUTOPOLICY"

	ExecutorOutbox = "outbox"
	ExecutorLog    = "log"

	DiscoveryFile = "file"
)

// Settings holds the runtime configuration of the evaluator process. The policy
// itself lives in its own document referenced by PolicyPath.
type Settings struct {
	PolicyPath        string        `mapstructure:"policy"`
	StatePath         string        `mapstructure:"state"`
	InboxPath         string        `mapstructure:"inbox"`
	OutboxPath        string        `mapstructure:"outbox"`
	Discovery         string        `mapstructure:"discovery"`
	Executor          string        `mapstructure:"executor"`
	TickInterval      time.Duration `mapstructure:"tick_interval"`
	Listen            string        `mapstructure:"listen"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// NewSettings reads the settings file at path (optional when empty), applies
// AUTOPOLICY_* environment overrides and expands ${ENV_VAR} references in paths.
func NewSettings(path string) (*Settings, error) {
	v := viper.New()
	v.SetDefault("policy", "policy.yaml")
	v.SetDefault("state", ".autopolicy/state.cbor")
	v.SetDefault("inbox", ".autopolicy/candidates.yaml")
	v.SetDefault("outbox", ".autopolicy/decisions.jsonl")
	v.SetDefault("discovery", DiscoveryFile)
	v.SetDefault("executor", ExecutorOutbox)
	v.SetDefault("tick_interval", 5*time.Minute)
	v.SetDefault("listen", ":8080")
	v.SetDefault("requests_per_minute", 60)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings.PolicyPath = expandEnv(settings.PolicyPath)
	settings.StatePath = expandEnv(settings.StatePath)
	settings.InboxPath = expandEnv(settings.InboxPath)
	settings.OutboxPath = expandEnv(settings.OutboxPath)

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate checks for required configuration values.
func (s *Settings) Validate() error {
	if s.PolicyPath == "" {
		return errors.New("policy path is required")
	}
	if s.StatePath == "" {
		return errors.New("state path is required")
	}
	if s.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", s.TickInterval)
	}
	if s.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must not be negative, got %d", s.RequestsPerMinute)
	}
	return nil
}

// FindConfigFile searches for a settings file in standard locations.
// Returns the path to the first file found or an error if none is found.
func FindConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{
		".",
		".config",
		"configs",
	}
	if homeDir != "" {
		locations = append(
			locations,
			homeDir,
			filepath.Join(homeDir, ".config"),
		)
	}

	patterns := []string{
		".autopolicy.yaml",
		".autopolicy.yml",
		"autopolicy.yaml",
		"autopolicy.yml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// expandEnv expands ${ENV_VAR} references, warning about unset variables.
func expandEnv(raw string) string {
	if raw == "" {
		return raw
	}

	return envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})
}
