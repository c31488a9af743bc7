package ooxml

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

// Config contains the tunables of the mutation engine
type Config struct {
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string
	// DefaultAuthor is used for revision metadata when no identity is supplied
	DefaultAuthor string
	// BulletChar is the character bullet attached to Markdown paragraphs on slides
	BulletChar string
	// MaxPackageSize caps the total uncompressed size of a loaded package in bytes. 0 disables the check.
	MaxPackageSize int64
	// KeepOrphans keeps parts no longer reachable from the package root on
	// save. The zero value prunes them.
	KeepOrphans bool
}

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once
)

func init() {
	configOnce.Do(func() {
		globalConfig = ConfigFromEnvironment()
	})
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel:       "info",
		DefaultAuthor:  "ooxml",
		BulletChar:     "•",
		MaxPackageSize: 512 << 20,
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	if val := os.Getenv("OOXML_LOG_LEVEL"); val != "" {
		config.LogLevel = strings.ToLower(val)
	}

	if val := os.Getenv("OOXML_AUTHOR"); val != "" {
		config.DefaultAuthor = val
	}

	if val := os.Getenv("OOXML_BULLET_CHAR"); val != "" {
		config.BulletChar = val
	}

	if val := os.Getenv("OOXML_MAX_PACKAGE_BYTES"); val != "" {
		if size, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.MaxPackageSize = size
		}
	}

	if val := os.Getenv("OOXML_PRUNE_ORPHANS"); val != "" {
		config.KeepOrphans = !parseBool(val)
	}

	return config
}

// NewConfigWithDefaults creates a new configuration with defaults applied to
// unset string fields. MaxPackageSize is taken as given, so a zero value
// means no limit; start from DefaultConfig to keep the default cap.
func NewConfigWithDefaults(overrides *Config) *Config {
	defaults := DefaultConfig()
	if overrides == nil {
		return defaults
	}

	config := *overrides
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.DefaultAuthor == "" {
		config.DefaultAuthor = defaults.DefaultAuthor
	}
	if config.BulletChar == "" {
		config.BulletChar = defaults.BulletChar
	}
	return &config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}
	if !validLogLevels[c.LogLevel] {
		return errors.New("invalid log level: " + c.LogLevel)
	}

	if utf8.RuneCountInString(c.BulletChar) != 1 {
		return errors.New("bullet char must be a single character")
	}

	if c.MaxPackageSize < 0 {
		return errors.New("max package size cannot be negative")
	}

	if strings.TrimSpace(c.DefaultAuthor) == "" {
		return errors.New("default author cannot be blank")
	}

	return nil
}

// GetGlobalConfig returns a copy of the global configuration
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}
	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) {
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	// outside the lock: the logger reads the config back
	UpdateLoggerFromConfig()
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
