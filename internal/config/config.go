package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/pidashd/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"

	defaultHost               = "0.0.0.0"
	defaultPort               = 8080
	defaultDataDir            = "/var/lib/pidashd"
	defaultCollectionInterval = 5
	defaultMaxHistoryDuration = 1800
	defaultForecastHours      = 12
	defaultStopTimeout        = 10
	defaultTelemetryDB        = "/var/lib/pidashd/telemetry.db"

	minCollectionInterval = 1
	maxCollectionInterval = 60
	minHistoryDuration    = 60
	maxHistoryDuration    = 3600
	minForecastHours      = 1
	maxForecastHours      = 24
)

type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	APIKey  string `mapstructure:"api_key"`
	DataDir string `mapstructure:"data_dir"`
}

type MetricsConfig struct {
	CollectionInterval int `mapstructure:"collection_interval"`
	MaxHistoryDuration int `mapstructure:"max_history_duration"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Database string `mapstructure:"database"`
}

type WeatherConfig struct {
	Latitude      float64 `mapstructure:"latitude"`
	Longitude     float64 `mapstructure:"longitude"`
	LocationName  string  `mapstructure:"location_name"`
	ForecastHours int     `mapstructure:"forecast_hours"`
}

type ContainersConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	StopTimeout int  `mapstructure:"stop_timeout"`
}

type Config struct {
	LogLevel   string           `mapstructure:"log_level"`
	Server     ServerConfig     `mapstructure:"server"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Weather    WeatherConfig    `mapstructure:"weather"`
	Containers ContainersConfig `mapstructure:"containers"`
}

// Load reads configuration from file, environment and flags, in increasing
// order of precedence, and validates the result.
func Load() (*Config, error) {
	errFactory := errors.New()

	flags := pflag.NewFlagSet("pidashd", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	configFile := flags.String("config", "", "Path to configuration file")
	flags.String("log-level", "", "Log level (debug, info, warning, error)")
	flags.Int("port", 0, "HTTP listen port")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PIDASHD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if *configFile == "" {
		*configFile = os.Getenv("PIDASHD_CONFIG")
	}

	if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName("pidashd")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/pidashd")
		v.AddConfigPath("/etc")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	// Flags override file and environment values
	if level, err := flags.GetString("log-level"); err == nil && level != "" {
		v.Set("log_level", level)
	}
	if port, err := flags.GetInt("port"); err == nil && port != 0 {
		v.Set("server.port", port)
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("server.host", defaultHost)
	v.SetDefault("server.port", defaultPort)
	v.SetDefault("server.data_dir", defaultDataDir)
	v.SetDefault("metrics.collection_interval", defaultCollectionInterval)
	v.SetDefault("metrics.max_history_duration", defaultMaxHistoryDuration)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.database", defaultTelemetryDB)
	v.SetDefault("weather.forecast_hours", defaultForecastHours)
	v.SetDefault("containers.enabled", true)
	v.SetDefault("containers.stop_timeout", defaultStopTimeout)
}

// Validate enforces the documented bounds. Both the sampler and the history
// query read metrics.max_history_duration, so one invalid value here would
// skew both.
func (c *Config) Validate() error {
	errFactory := errors.New()

	switch c.LogLevel {
	case "debug", "info", "warning", "warn", "error":
	default:
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errFactory.WithData(ErrInvalidPort, c.Server.Port)
	}

	if c.Metrics.CollectionInterval < minCollectionInterval || c.Metrics.CollectionInterval > maxCollectionInterval {
		return errFactory.WithData(ErrInvalidInterval, c.Metrics.CollectionInterval)
	}

	if c.Metrics.MaxHistoryDuration < minHistoryDuration || c.Metrics.MaxHistoryDuration > maxHistoryDuration {
		return errFactory.WithData(ErrInvalidHistoryDuration, c.Metrics.MaxHistoryDuration)
	}

	if c.Weather.ForecastHours < minForecastHours || c.Weather.ForecastHours > maxForecastHours {
		return errFactory.WithData(ErrInvalidForecastHours, c.Weather.ForecastHours)
	}

	if c.Containers.StopTimeout < 1 {
		return errFactory.WithData(ErrInvalidStopTimeout, c.Containers.StopTimeout)
	}

	if c.Telemetry.Enabled && c.Telemetry.Database == "" {
		return errFactory.New(ErrInvalidTelemetryDB)
	}

	return nil
}
