package locator

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvModules  = "LOCATOR_MODULES"
	EnvLogLevel = "LOCATOR_LOG_LEVEL"
	EnvValidate = "LOCATOR_VALIDATE"
)

// Config describes a Locator declaratively.
//
//	modules:
//	  - storage
//	  - api
//	log_level: debug
//	validate: true
type Config struct {
	// Modules are loaded by name through the registry.
	Modules []string `yaml:"modules"`

	// LogLevel is a slog level name: debug, info, warn or error.
	// Empty keeps slog.Default().
	LogLevel string `yaml:"log_level"`

	// Validate makes NewFromConfig fail when Validate reports a problem.
	Validate bool `yaml:"validate"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return &cfg, nil
}

// ConfigFromEnv loads the given .env files (".env" by default, if present)
// and builds a Config from LOCATOR_MODULES, LOCATOR_LOG_LEVEL and
// LOCATOR_VALIDATE. Variables already set in the environment win over the files.
func ConfigFromEnv(envFiles ...string) (*Config, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}

	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := &Config{
		LogLevel: strings.TrimSpace(os.Getenv(EnvLogLevel)),
	}

	for _, name := range strings.Split(os.Getenv(EnvModules), ",") {
		if name = strings.TrimSpace(name); name != "" {
			cfg.Modules = append(cfg.Modules, name)
		}
	}

	if v := strings.TrimSpace(os.Getenv(EnvValidate)); v != "" {
		validate, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", EnvValidate, err)
		}
		cfg.Validate = validate
	}

	return cfg, nil
}

// Options converts the config into Locator options.
func (c *Config) Options() ([]Option, error) {
	if c == nil {
		return nil, nil
	}

	var opts []Option
	if len(c.Modules) > 0 {
		opts = append(opts, WithModuleNames(c.Modules...))
	}

	if c.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
			return nil, fmt.Errorf("config: log_level: %w", err)
		}

		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		opts = append(opts, WithLogger(slog.New(handler)))
	}

	return opts, nil
}

// NewFromConfig creates a Locator from cfg plus any extra options. When
// cfg.Validate is set the catalog is built and validated immediately.
func NewFromConfig(cfg *Config, opts ...Option) (*Locator, error) {
	cfgOpts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	l := New(append(cfgOpts, opts...)...)

	if cfg != nil && cfg.Validate {
		if err := l.Validate(); err != nil {
			return nil, err
		}
	}

	return l, nil
}
