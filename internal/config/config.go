// Package config loads the process configuration of the ooxml server.
//
// Values are merged in this order, later sources winning:
// built-in defaults, ooxml.toml, .env and .env.local, then the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/benjaminschreck/go-ooxml/pkg/ooxml"
	"github.com/joho/godotenv"
)

const (
	DefaultFileName    = "ooxml.toml"
	DefaultServerName  = "ooxml"
	DefaultOutputDir   = "out"
	DefaultLedgerName  = ".ooxml-ledger.db"
	DefaultHTTPTimeout = 30 * time.Second
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Engine  EngineConfig  `toml:"engine"`
}

type ServerConfig struct {
	Name string `toml:"name"`
}

type StorageConfig struct {
	OutputDir   string        `toml:"output_dir"`
	LedgerPath  string        `toml:"ledger_path"`
	HTTPTimeout time.Duration `toml:"http_timeout"`
}

// EngineConfig mirrors ooxml.Config in file form.
type EngineConfig struct {
	LogLevel        string `toml:"log_level"`
	Author          string `toml:"author"`
	BulletChar      string `toml:"bullet_char"`
	MaxPackageBytes int64  `toml:"max_package_bytes"`
	PruneOrphans    bool   `toml:"prune_orphans"`
}

// Options controls where Load looks for files. An empty Dir means the
// working directory. An empty File means Dir/ooxml.toml, which may be absent;
// an explicitly named file must exist.
type Options struct {
	Dir  string
	File string
}

func Default() Config {
	engine := ooxml.DefaultConfig()
	return Config{
		Server: ServerConfig{Name: DefaultServerName},
		Storage: StorageConfig{
			OutputDir:   DefaultOutputDir,
			LedgerPath:  filepath.Join(DefaultOutputDir, DefaultLedgerName),
			HTTPTimeout: DefaultHTTPTimeout,
		},
		Engine: EngineConfig{
			LogLevel:        engine.LogLevel,
			Author:          engine.DefaultAuthor,
			BulletChar:      engine.BulletChar,
			MaxPackageBytes: engine.MaxPackageSize,
			PruneOrphans:    !engine.KeepOrphans,
		},
	}
}

func Load(opts Options) (*Config, error) {
	cfg := Default()

	if err := mergeFile(&cfg, opts); err != nil {
		return nil, err
	}
	if err := loadDotEnv(opts.Dir); err != nil {
		return nil, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeFile(cfg *Config, opts Options) error {
	path := opts.File
	required := path != ""
	if path == "" {
		path = filepath.Join(opts.Dir, DefaultFileName)
	} else if !filepath.IsAbs(path) && opts.Dir != "" {
		path = filepath.Join(opts.Dir, path)
	}

	ledgerBefore := cfg.Storage.LedgerPath
	outputBefore := cfg.Storage.OutputDir
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("config: %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config: %s: unknown key %q", path, undecoded[0].String())
	}
	// the ledger follows a relocated output directory unless set explicitly
	if cfg.Storage.LedgerPath == ledgerBefore && cfg.Storage.OutputDir != outputBefore {
		cfg.Storage.LedgerPath = filepath.Join(cfg.Storage.OutputDir, DefaultLedgerName)
	}
	return nil
}

// loadDotEnv copies .env then .env.local into the environment without
// replacing variables that already hold a value.
func loadDotEnv(dir string) error {
	for _, name := range []string{".env.local", ".env"} {
		values, err := godotenv.Read(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: %s: %w", name, err)
		}
		for k, v := range values {
			if existing, ok := os.LookupEnv(k); ok && strings.TrimSpace(existing) != "" {
				continue
			}
			if err := os.Setenv(k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func mergeEnv(cfg *Config) error {
	if v := env("OOXML_SERVER_NAME"); v != "" {
		cfg.Server.Name = v
	}
	if v := env("OOXML_OUTPUT_DIR"); v != "" {
		cfg.Storage.OutputDir = v
		if env("OOXML_LEDGER_PATH") == "" {
			cfg.Storage.LedgerPath = filepath.Join(v, DefaultLedgerName)
		}
	}
	if v := env("OOXML_LEDGER_PATH"); v != "" {
		cfg.Storage.LedgerPath = v
	}
	if v := env("OOXML_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: OOXML_HTTP_TIMEOUT: %w", err)
		}
		cfg.Storage.HTTPTimeout = d
	}
	if v := env("OOXML_LOG_LEVEL"); v != "" {
		cfg.Engine.LogLevel = strings.ToLower(v)
	}
	if v := env("OOXML_AUTHOR"); v != "" {
		cfg.Engine.Author = v
	}
	if v := env("OOXML_BULLET_CHAR"); v != "" {
		cfg.Engine.BulletChar = v
	}
	if v := env("OOXML_MAX_PACKAGE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: OOXML_MAX_PACKAGE_BYTES: %w", err)
		}
		cfg.Engine.MaxPackageBytes = n
	}
	if v := env("OOXML_PRUNE_ORPHANS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: OOXML_PRUNE_ORPHANS: %w", err)
		}
		cfg.Engine.PruneOrphans = b
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Name) == "" {
		return errors.New("config: server name must not be empty")
	}
	if strings.TrimSpace(c.Storage.OutputDir) == "" {
		return errors.New("config: output_dir must not be empty")
	}
	if strings.TrimSpace(c.Storage.LedgerPath) == "" {
		return errors.New("config: ledger_path must not be empty")
	}
	if c.Storage.HTTPTimeout <= 0 {
		return fmt.Errorf("config: http_timeout must be positive, got %s", c.Storage.HTTPTimeout)
	}
	if err := c.EngineConfig().Validate(); err != nil {
		return fmt.Errorf("config: engine: %w", err)
	}
	return nil
}

// EngineConfig converts the engine section for ooxml.NewWithConfig.
func (c *Config) EngineConfig() *ooxml.Config {
	return &ooxml.Config{
		LogLevel:       c.Engine.LogLevel,
		DefaultAuthor:  c.Engine.Author,
		BulletChar:     c.Engine.BulletChar,
		MaxPackageSize: c.Engine.MaxPackageBytes,
		KeepOrphans:    !c.Engine.PruneOrphans,
	}
}
