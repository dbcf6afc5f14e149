package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/powerwatch/internal/errors"
	"codeberg.org/mutker/powerwatch/internal/sensor"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"

	DefaultInterval   = 100
	DefaultOutput     = "powerwatch.csv"
	DefaultFormat     = FormatCSV
	DefaultResolution = "milliseconds"
	DefaultLogLevel   = "info"

	configEnvVar = "POWERWATCH_CONFIG"
)

type Config struct {
	Interval      int    `mapstructure:"interval"` // milliseconds
	Output        string `mapstructure:"output"`
	Format        string `mapstructure:"format"`
	RequireMarker bool   `mapstructure:"require_marker"`
	Resolution    string `mapstructure:"resolution"`
	LogLevel      string `mapstructure:"log_level"`
	MetricsListen string `mapstructure:"metrics_listen"`
	NVML          bool   `mapstructure:"nvml"`
	RAPL          bool   `mapstructure:"rapl"`
	Dump          bool   `mapstructure:"dump"`
	Marker        string `mapstructure:"marker"`
}

func Load() (*Config, error) {
	errFactory := errors.New()

	flags := pflag.NewFlagSet("powerwatch", pflag.ContinueOnError)
	flags.Int("interval", DefaultInterval, "Sampling interval in milliseconds")
	flags.String("output", DefaultOutput, "Output file for collected measurements")
	flags.String("format", DefaultFormat, "Output format: csv or sqlite")
	flags.Bool("require-marker", false, "Discard measurements while no marker is active")
	flags.String("resolution", DefaultResolution, "Timestamp resolution")
	flags.String("log-level", DefaultLogLevel, "Log level: debug, info, warning or error")
	flags.String("metrics-listen", "", "Address for the Prometheus metrics endpoint")
	flags.Bool("nvml", true, "Collect from NVIDIA GPUs via NVML")
	flags.Bool("rapl", true, "Collect from Linux powercap (RAPL) zones")
	flags.Bool("dump", false, "Sample every sensor once and exit")
	flags.String("marker", "powerwatch", "Initial marker label for the collected stream")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("format", DefaultFormat)
	v.SetDefault("require_marker", false)
	v.SetDefault("resolution", DefaultResolution)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("metrics_listen", "")
	v.SetDefault("nvml", true)
	v.SetDefault("rapl", true)
	v.SetDefault("dump", false)
	v.SetDefault("marker", "powerwatch")

	v.SetConfigName("powerwatch")
	v.SetConfigType("toml")
	v.AddConfigPath("/etc")
	v.AddConfigPath(".")
	if path := os.Getenv(configEnvVar); path != "" {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err).WithMessage("Failed to read config file")
		}
	}

	// Command line flags take precedence over the config file.
	flags.Visit(func(f *pflag.Flag) {
		v.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
	})

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

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.Output == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "output path must not be empty")
	}
	if c.Format != FormatCSV && c.Format != FormatSQLite {
		return errFactory.WithData(errors.ErrInvalidConfig, c.Format)
	}
	if !sensor.Resolution(c.Resolution).IsValid() {
		return errFactory.WithData(errors.ErrInvalidConfig, c.Resolution)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warning", "warn", "error":
	default:
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

// SamplingInterval returns the polling period as a duration.
func (c *Config) SamplingInterval() time.Duration {
	return time.Duration(c.Interval) * time.Millisecond
}

// TimestampResolution returns the configured resolution as the sensor type.
func (c *Config) TimestampResolution() sensor.Resolution {
	return sensor.Resolution(c.Resolution)
}
