// Package config loads fileconvert settings. Values from the YAML file are
// overridden by .env, which is overridden by the process environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

// FileName is the config file name searched for without an explicit --config
const FileName = "fileconvert"

// EnvPrefix prefixes every environment override, e.g. FILECONVERT_RENDER_DPI
const EnvPrefix = "FILECONVERT"

// RenderConfig holds settings for PDF rasterization.
type RenderConfig struct {
	// Backend selects the rasterizer: mupdf (in-process) or poppler (pdftoppm).
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`

	// DPI is the resolution used when a request does not name one (default 200).
	DPI float64 `json:"dpi" yaml:"dpi" mapstructure:"dpi"`

	// MaxDPI caps the accepted resolution (default 600).
	MaxDPI float64 `json:"max_dpi" yaml:"max_dpi" mapstructure:"max_dpi"`
}

// ImageConfig holds encoder settings for lossy image targets.
type ImageConfig struct {
	// JPEGQuality is the JPEG encoder quality, 1-100 (default 90).
	JPEGQuality int `json:"jpeg_quality" yaml:"jpeg_quality" mapstructure:"jpeg_quality"`

	// WebPQuality is the lossy WebP encoder quality, 1-100 (default 90).
	WebPQuality int `json:"webp_quality" yaml:"webp_quality" mapstructure:"webp_quality"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`
}

// Config is the complete fileconvert configuration.
type Config struct {
	Render RenderConfig `json:"render" yaml:"render" mapstructure:"render"`
	Image  ImageConfig  `json:"image" yaml:"image" mapstructure:"image"`
	Log    LogConfig    `json:"log" yaml:"log" mapstructure:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Render: RenderConfig{Backend: "mupdf", DPI: 200, MaxDPI: 600},
		Image:  ImageConfig{JPEGQuality: 90, WebPQuality: 90},
		Log:    LogConfig{Level: "info"},
	}
}

func (c RenderConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In("mupdf", "poppler")),
		validation.Field(&c.MaxDPI, validation.Required, validation.Min(1.0)),
		validation.Field(&c.DPI, validation.Required, validation.Min(1.0),
			validation.Max(c.MaxDPI).Error("must not exceed max_dpi")),
	)
}

func (c ImageConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.JPEGQuality, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.WebPQuality, validation.Required, validation.Min(1), validation.Max(100)),
	)
}

func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
	)
}

// Validate checks every section.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Render),
		validation.Field(&c.Image),
		validation.Field(&c.Log),
	)
}

// SlogLevel maps Log.Level onto a slog level; unknown names fall back to info.
func (c Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetDefaults registers the built-in values on v so that env overrides
// apply to every key.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("render.backend", d.Render.Backend)
	v.SetDefault("render.dpi", d.Render.DPI)
	v.SetDefault("render.max_dpi", d.Render.MaxDPI)
	v.SetDefault("image.jpeg_quality", d.Image.JPEGQuality)
	v.SetDefault("image.webp_quality", d.Image.WebPQuality)
	v.SetDefault("log.level", d.Log.Level)
}

// NewViper returns a viper instance wired for fileconvert: defaults, the
// FILECONVERT_ env prefix and either cfgFile or the standard search paths.
func NewViper(cfgFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "fileconvert"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load resolves the configuration. .env only fills variables the environment
// does not already set, and any FILECONVERT_ variable beats the config file.
// A missing config file is not an error; an explicit one that cannot be read is.
func Load(cfgFile string) (*Config, string, error) {
	_ = godotenv.Load()

	v := NewViper(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := FromViper(v)
	if err != nil {
		return nil, "", err
	}
	return cfg, v.ConfigFileUsed(), nil
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Write stores cfg as YAML at path, refusing to overwrite an existing file.
func Write(path string, cfg Config) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
