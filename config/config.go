// Package config reads the monitor's settings from .env files, the
// environment and an optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/seo-optimizer/monitor/logging"
	"github.com/seo-optimizer/monitor/pagespeed"
	"github.com/seo-optimizer/monitor/store"
)

type Config struct {
	Server    ServerConfig
	Database  store.Config
	PageSpeed PageSpeedConfig
	Fetch     FetchConfig
	NATS      NATSConfig
	Stats     StatsConfig
	RateLimit RateLimitConfig
	Log       logging.Config
}

type ServerConfig struct {
	Port            string
	GinMode         string
	ShutdownTimeout time.Duration
}

type PageSpeedConfig struct {
	APIKey   string
	Endpoint string
	Strategy string
}

type FetchConfig struct {
	UserAgent string
}

type NATSConfig struct {
	URL string
}

// Enabled reports whether events should be published.
func (c NATSConfig) Enabled() bool { return c.URL != "" }

type StatsConfig struct {
	DataDir string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// LoadEnvFiles loads .env.development and falls back to .env. Variables
// already set in the environment win. It reports whether a file was found.
func LoadEnvFiles() bool {
	if err := godotenv.Load(".env.development"); err != nil {
		if err := godotenv.Load(); err != nil {
			return false
		}
	}
	return true
}

// New returns a viper instance bound to the environment with every default set.
// Nested keys map to upper-case environment names, so database.host reads
// DATABASE_HOST.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8082")
	v.SetDefault("gin.mode", gin.ReleaseMode)
	v.SetDefault("shutdown.timeout", 10*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "seo_monitor")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("pagespeed.api.key", "")
	v.SetDefault("pagespeed.endpoint", pagespeed.DefaultEndpoint)
	v.SetDefault("pagespeed.strategy", pagespeed.DefaultStrategy)

	v.SetDefault("fetch.user.agent", "SEOAnalyzer/1.0")

	v.SetDefault("nats.url", "")
	v.SetDefault("stats.data.dir", "./data")

	v.SetDefault("rate.limit.rps", 2.0)
	v.SetDefault("rate.limit.burst", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads the optional config file and builds a validated Config.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("port"),
			GinMode:         v.GetString("gin.mode"),
			ShutdownTimeout: v.GetDuration("shutdown.timeout"),
		},
		Database: store.Config{
			Host:     v.GetString("database.host"),
			Port:     v.GetString("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.name"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		PageSpeed: PageSpeedConfig{
			APIKey:   v.GetString("pagespeed.api.key"),
			Endpoint: v.GetString("pagespeed.endpoint"),
			Strategy: v.GetString("pagespeed.strategy"),
		},
		Fetch: FetchConfig{
			UserAgent: v.GetString("fetch.user.agent"),
		},
		NATS:  NATSConfig{URL: v.GetString("nats.url")},
		Stats: StatsConfig{DataDir: v.GetString("stats.data.dir")},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("rate.limit.rps"),
			Burst: v.GetInt("rate.limit.burst"),
		},
		Log: logging.Config{
			Level:       v.GetString("log.level"),
			Format:      v.GetString("log.format"),
			Development: v.GetString("gin.mode") == gin.DebugMode,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	switch c.Server.GinMode {
	case gin.ReleaseMode, gin.DebugMode, gin.TestMode:
	default:
		errs = append(errs, fmt.Errorf("GIN_MODE %q is not one of release, debug, test", c.Server.GinMode))
	}
	switch c.PageSpeed.Strategy {
	case "mobile", "desktop":
	default:
		errs = append(errs, fmt.Errorf("PAGESPEED_STRATEGY %q is not one of mobile, desktop", c.PageSpeed.Strategy))
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q is not one of json, console", c.Log.Format))
	}
	return errors.Join(errs...)
}
