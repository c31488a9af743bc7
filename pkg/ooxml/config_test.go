package ooxml

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.LogLevel != "info" {
		t.Errorf("DefaultConfig LogLevel = %s, want info", config.LogLevel)
	}
	if config.DefaultAuthor != "ooxml" {
		t.Errorf("DefaultConfig DefaultAuthor = %s, want ooxml", config.DefaultAuthor)
	}
	if config.BulletChar != "•" {
		t.Errorf("DefaultConfig BulletChar = %s, want •", config.BulletChar)
	}
	if config.MaxPackageSize != 512<<20 {
		t.Errorf("DefaultConfig MaxPackageSize = %d", config.MaxPackageSize)
	}
	if config.KeepOrphans {
		t.Error("DefaultConfig KeepOrphans = true, want pruning")
	}
	if err := config.Validate(); err != nil {
		t.Errorf("DefaultConfig is invalid: %v", err)
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, config *Config)
	}{
		{
			name:    "log level",
			envVars: map[string]string{"OOXML_LOG_LEVEL": "DEBUG"},
			check: func(t *testing.T, config *Config) {
				if config.LogLevel != "debug" {
					t.Errorf("LogLevel = %s, want debug", config.LogLevel)
				}
			},
		},
		{
			name:    "author",
			envVars: map[string]string{"OOXML_AUTHOR": "Reviewer"},
			check: func(t *testing.T, config *Config) {
				if config.DefaultAuthor != "Reviewer" {
					t.Errorf("DefaultAuthor = %s, want Reviewer", config.DefaultAuthor)
				}
			},
		},
		{
			name:    "bullet",
			envVars: map[string]string{"OOXML_BULLET_CHAR": "-"},
			check: func(t *testing.T, config *Config) {
				if config.BulletChar != "-" {
					t.Errorf("BulletChar = %s, want -", config.BulletChar)
				}
			},
		},
		{
			name:    "max package size",
			envVars: map[string]string{"OOXML_MAX_PACKAGE_BYTES": "1024"},
			check: func(t *testing.T, config *Config) {
				if config.MaxPackageSize != 1024 {
					t.Errorf("MaxPackageSize = %d, want 1024", config.MaxPackageSize)
				}
			},
		},
		{
			name:    "invalid max package size keeps default",
			envVars: map[string]string{"OOXML_MAX_PACKAGE_BYTES": "lots"},
			check: func(t *testing.T, config *Config) {
				if config.MaxPackageSize != DefaultConfig().MaxPackageSize {
					t.Errorf("MaxPackageSize = %d", config.MaxPackageSize)
				}
			},
		},
		{
			name:    "prune orphans off",
			envVars: map[string]string{"OOXML_PRUNE_ORPHANS": "no"},
			check: func(t *testing.T, config *Config) {
				if !config.KeepOrphans {
					t.Error("KeepOrphans = false, want true")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			tt.check(t, ConfigFromEnvironment())
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "off level", modify: func(c *Config) { c.LogLevel = "off" }},
		{name: "bad level", modify: func(c *Config) { c.LogLevel = "verbose" }, wantErr: true},
		{name: "two rune bullet", modify: func(c *Config) { c.BulletChar = "->" }, wantErr: true},
		{name: "empty bullet", modify: func(c *Config) { c.BulletChar = "" }, wantErr: true},
		{name: "negative size", modify: func(c *Config) { c.MaxPackageSize = -1 }, wantErr: true},
		{name: "unlimited size", modify: func(c *Config) { c.MaxPackageSize = 0 }},
		{name: "blank author", modify: func(c *Config) { c.DefaultAuthor = "  " }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			if err := config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewConfigWithDefaults(t *testing.T) {
	config := NewConfigWithDefaults(&Config{DefaultAuthor: "Jo", MaxPackageSize: 10})
	if config.DefaultAuthor != "Jo" || config.MaxPackageSize != 10 {
		t.Errorf("overrides lost: %+v", config)
	}
	if config.LogLevel != "info" || config.BulletChar != "•" {
		t.Errorf("defaults not applied: %+v", config)
	}

	partial := NewConfigWithDefaults(&Config{LogLevel: "debug"})
	if partial.KeepOrphans {
		t.Error("a partial config should still prune orphans")
	}
	if partial.MaxPackageSize != 0 {
		t.Errorf("MaxPackageSize = %d, want it taken as given", partial.MaxPackageSize)
	}
	if got := NewConfigWithDefaults(nil); got.DefaultAuthor != "ooxml" {
		t.Errorf("NewConfigWithDefaults(nil) = %+v", got)
	}
}

func TestGlobalConfig(t *testing.T) {
	original := GetGlobalConfig()
	defer SetGlobalConfig(original)

	custom := DefaultConfig()
	custom.DefaultAuthor = "Global"
	custom.LogLevel = "error"
	SetGlobalConfig(custom)

	got := GetGlobalConfig()
	if got.DefaultAuthor != "Global" {
		t.Errorf("GetGlobalConfig().DefaultAuthor = %s", got.DefaultAuthor)
	}
	got.DefaultAuthor = "changed"
	if GetGlobalConfig().DefaultAuthor != "Global" {
		t.Error("GetGlobalConfig should return a copy")
	}
	if GetLogger().Enabled(LogWarn) {
		t.Error("logger level should follow the global config")
	}
	if New().Config().DefaultAuthor != "Global" {
		t.Error("New() should use the global config")
	}
}
