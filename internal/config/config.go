package config

import (
	"os"
	"strings"

	"fontwatch/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel   = "info"
	DefaultTestString = "BESbswy"
	DefaultTimeoutMs  = 5000
	DefaultIntervalMs = 25

	// DefaultVariation is the variation applied when a font spec names
	// only a family ("n4" = normal style, weight 400).
	DefaultVariation = "n4"

	defaultDBPath = "/var/lib/fontwatch/metrics.db"
)

// SimFont is one [[simulate]] entry: a font family the simulated
// environment serves, with its metrics and load behavior.
type SimFont struct {
	Family  string `mapstructure:"family"`
	Width   int    `mapstructure:"width"`
	Height  int    `mapstructure:"height"`
	DelayMs int    `mapstructure:"delay_ms"`
	Fail    bool   `mapstructure:"fail"`
}

type Config struct {
	Fonts      []string  `mapstructure:"fonts"`
	TestString string    `mapstructure:"test_string"`
	TimeoutMs  int       `mapstructure:"timeout_ms"`
	IntervalMs int       `mapstructure:"interval_ms"`
	WebkitBug  bool      `mapstructure:"webkit_bug"`
	LogLevel   string    `mapstructure:"log_level"`
	Metrics    bool      `mapstructure:"metrics"`
	MetricsDB  string    `mapstructure:"database"`
	Simulate   []SimFont `mapstructure:"simulate"`
}

// Load reads configuration from the config file (FONTWATCH_CONFIG or
// --config, falling back to fontwatch.toml in /etc and the working
// directory), then layers command-line flags on top.
func Load() (*Config, error) {
	errFactory := errors.New()

	fs := pflag.NewFlagSet("fontwatch", pflag.ContinueOnError)
	fs.String("config", "", "Path to config file")
	fs.StringSlice("font", nil, "Font to watch as family[:variation], repeatable")
	fs.String("test-string", "", "Test string rendered by the measurement probes")
	fs.Int("timeout", 0, "Detection timeout in milliseconds")
	fs.Int("interval", 0, "Poll interval in milliseconds")
	fs.Bool("webkit-bug", false, "Enable the WebKit fallback bug compensation")
	fs.String("log-level", "", "Log level (debug, info, warning, error)")
	fs.Bool("metrics", false, "Record detection outcomes to the metrics database")
	fs.String("database", "", "Path to the metrics database")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetDefault("test_string", DefaultTestString)
	v.SetDefault("timeout_ms", DefaultTimeoutMs)
	v.SetDefault("interval_ms", DefaultIntervalMs)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("metrics", false)
	v.SetDefault("database", defaultDBPath)

	bindings := map[string]string{
		"fonts":       "font",
		"test_string": "test-string",
		"timeout_ms":  "timeout",
		"interval_ms": "interval",
		"webkit_bug":  "webkit-bug",
		"log_level":   "log-level",
		"metrics":     "metrics",
		"database":    "database",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	configFile := os.Getenv("FONTWATCH_CONFIG")
	if explicit, err := fs.GetString("config"); err == nil && explicit != "" {
		configFile = explicit
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	} else {
		v.SetConfigName("fontwatch")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.TimeoutMs <= 0 {
		return errFactory.WithData(errors.ErrInvalidTimeout, c.TimeoutMs)
	}
	if c.IntervalMs <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.IntervalMs)
	}

	return nil
}

// ParseFont splits a font spec into family and variation. The
// variation is whatever follows the last colon and is passed through
// opaquely.
func ParseFont(spec string) (family, variation string) {
	if i := strings.LastIndex(spec, ":"); i >= 0 {
		return strings.TrimSpace(spec[:i]), strings.TrimSpace(spec[i+1:])
	}

	return strings.TrimSpace(spec), DefaultVariation
}
