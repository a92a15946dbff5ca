package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	errInvalidPort           = errors.New("config: invalid port number")
	errConcurrencyOutOfRange = errors.New("config: LINK_CHECK_CONCURRENCY must be 1-100")
	errWorkerConcurrency     = errors.New("config: worker.concurrency must be 1-100")
	errNonPositiveDuration   = errors.New("config: duration must be positive")
	errNegativeRate          = errors.New("config: analyzer.requests_per_second must not be negative")
	errInvalidAPIURL         = errors.New("config: dashboard.api_url must be an absolute http(s) URL")
)

// EnvPrefix namespaces every configuration key in the environment, e.g.
// LINKBOARD_WORKER_INTERVAL for worker.interval.
const EnvPrefix = "LINKBOARD"

// Config holds the configuration of both binaries.
type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	Server    ServerConfig    `mapstructure:"server"`
	Analyzer  AnalyzerConfig  `mapstructure:"analyzer"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Store     StoreConfig     `mapstructure:"store"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// ServerConfig configures the analysis API listener.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AnalyzerConfig tunes the page analysis engine.
type AnalyzerConfig struct {
	LinkCheckConcurrency int           `mapstructure:"link_check_concurrency"`
	RequestsPerSecond    float64       `mapstructure:"requests_per_second"`
	RespectRobots        bool          `mapstructure:"respect_robots"`
	UserAgent            string        `mapstructure:"user_agent"`
	Timeout              time.Duration `mapstructure:"timeout"`
}

// WorkerConfig drives the background analysis loop.
type WorkerConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	Concurrency int           `mapstructure:"concurrency"`
}

// StoreConfig selects the record store. An empty DatabaseURL means in-memory.
type StoreConfig struct {
	DatabaseURL string `mapstructure:"database_url"`
}

// DashboardConfig configures the operator dashboard.
type DashboardConfig struct {
	Port           string        `mapstructure:"port"`
	APIURL         string        `mapstructure:"api_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	NoticeLimit    int           `mapstructure:"notice_limit"`
}

// Load reads configuration from defaults, an optional YAML file, and the
// environment, in increasing order of precedence. With an empty path a
// linkboard.yaml in the working directory is used when present.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("linkboard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.LogLevel = strings.ToUpper(cfg.LogLevel)

	return cfg, cfg.validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "ERROR")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("analyzer.link_check_concurrency", 10)
	v.SetDefault("analyzer.requests_per_second", 20)
	v.SetDefault("analyzer.respect_robots", false)
	v.SetDefault("analyzer.user_agent", "linkboard/1.0")
	v.SetDefault("analyzer.timeout", "60s")

	v.SetDefault("worker.interval", "5s")
	v.SetDefault("worker.concurrency", 2)

	v.SetDefault("store.database_url", "")

	v.SetDefault("dashboard.port", "3000")
	v.SetDefault("dashboard.api_url", "http://localhost:8080")
	v.SetDefault("dashboard.request_timeout", "15s")
	v.SetDefault("dashboard.notice_limit", 20)
}

// bindEnv maps every key to LINKBOARD_<SECTION>_<KEY> and keeps the short
// names operators already use.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	short := map[string]string{
		"log_level":                       "LOG_LEVEL",
		"server.port":                     "PORT",
		"analyzer.link_check_concurrency": "LINK_CHECK_CONCURRENCY",
		"store.database_url":              "DATABASE_URL",
		"dashboard.api_url":               "API_URL",
	}
	for key, name := range short {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, prefixed, name)
	}
}

func (c Config) validate() error {
	for _, p := range []string{c.Server.Port, c.Dashboard.Port} {
		if err := validatePort(p); err != nil {
			return err
		}
	}

	if c.Analyzer.LinkCheckConcurrency < 1 || c.Analyzer.LinkCheckConcurrency > 100 {
		return fmt.Errorf("%w: got %d", errConcurrencyOutOfRange, c.Analyzer.LinkCheckConcurrency)
	}
	if c.Worker.Concurrency < 1 || c.Worker.Concurrency > 100 {
		return fmt.Errorf("%w: got %d", errWorkerConcurrency, c.Worker.Concurrency)
	}
	if c.Analyzer.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: got %v", errNegativeRate, c.Analyzer.RequestsPerSecond)
	}

	durations := map[string]time.Duration{
		"server.shutdown_timeout":   c.Server.ShutdownTimeout,
		"analyzer.timeout":          c.Analyzer.Timeout,
		"worker.interval":           c.Worker.Interval,
		"dashboard.request_timeout": c.Dashboard.RequestTimeout,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%w: %s=%v", errNonPositiveDuration, key, d)
		}
	}

	u, err := url.Parse(c.Dashboard.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", errInvalidAPIURL, c.Dashboard.APIURL)
	}

	return nil
}

func validatePort(p string) error {
	port, err := strconv.Atoi(p)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: %q", errInvalidPort, p)
	}
	return nil
}
