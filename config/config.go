// Package config handles loading and managing application configuration
// from YAML files, an optional .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/openclaw/qrstudio/widget"
)

// Defaults holds the values a freshly mounted widget view starts with.
type Defaults struct {
	Text       string `yaml:"text"`
	Size       int    `yaml:"size" validate:"min=100,max=400"`
	Background string `yaml:"background" validate:"required,hexcolor"`
	Foreground string `yaml:"foreground" validate:"required,hexcolor"`
}

// Config holds all application configuration values.
type Config struct {
	Port          int      `yaml:"port" validate:"min=1,max=65535"`
	LogLevel      string   `yaml:"log_level" validate:"oneof=debug info warn error"`
	MaxViews      int      `yaml:"max_views" validate:"min=0"`
	MaxPerClient  int      `yaml:"max_views_per_client" validate:"min=0"`
	ViewTTL       Duration `yaml:"view_ttl"`
	SweepInterval Duration `yaml:"sweep_interval"`
	Defaults      Defaults `yaml:"defaults"`
}

// Duration is a wrapper around time.Duration that supports YAML unmarshalling
// from human-readable strings like "30s", "5m", "1h".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	dc := widget.DefaultDisplayConfig()
	return &Config{
		Port:          8556,
		LogLevel:      "info",
		MaxViews:      256,
		MaxPerClient:  16,
		ViewTTL:       Duration{30 * time.Minute},
		SweepInterval: Duration{time.Minute},
		Defaults: Defaults{
			Text:       dc.PayloadText,
			Size:       dc.PixelSize,
			Background: dc.BackgroundColor,
			Foreground: dc.ForegroundColor,
		},
	}
}

// Load reads configuration from the YAML file at path, falling back to
// defaults if the file does not exist. A .env file in the working
// directory is loaded into the environment if present, then QRS_* variables
// override any file or default values.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// File doesn't exist; proceed with defaults.
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies QRS_* environment variable overrides to cfg.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QRS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("QRS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("QRS_MAX_VIEWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxViews = n
		}
	}
	if v := os.Getenv("QRS_MAX_VIEWS_PER_CLIENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxPerClient = n
		}
	}
	if v := os.Getenv("QRS_VIEW_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ViewTTL = Duration{d}
		}
	}
	if v := os.Getenv("QRS_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SweepInterval = Duration{d}
		}
	}
	if v, ok := os.LookupEnv("QRS_DEFAULT_TEXT"); ok {
		cfg.Defaults.Text = v
	}
	if v := os.Getenv("QRS_DEFAULT_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Defaults.Size = n
		}
	}
	if v := os.Getenv("QRS_DEFAULT_BACKGROUND"); v != "" {
		cfg.Defaults.Background = v
	}
	if v := os.Getenv("QRS_DEFAULT_FOREGROUND"); v != "" {
		cfg.Defaults.Foreground = v
	}
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New()
	})
	return validateInst
}

// Validate checks field ranges and formats.
func (c *Config) Validate() error {
	if err := validatorInstance().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ViewLimits converts the view bounds to registry limits.
func (c *Config) ViewLimits() widget.Limits {
	return widget.Limits{
		MaxViews:     c.MaxViews,
		MaxPerClient: c.MaxPerClient,
		TTL:          c.ViewTTL.Duration,
	}
}

// DisplayDefaults converts the configured defaults to a widget configuration.
func (c *Config) DisplayDefaults() widget.DisplayConfig {
	return widget.DisplayConfig{
		PayloadText:     c.Defaults.Text,
		PixelSize:       c.Defaults.Size,
		BackgroundColor: c.Defaults.Background,
		ForegroundColor: c.Defaults.Foreground,
	}
}
