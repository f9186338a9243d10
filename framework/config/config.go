package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the central typed configuration struct.
type Config struct {
	App     AppConfig     `yaml:"app"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type AppConfig struct {
	Name            string        `yaml:"name"`
	Env             string        `yaml:"env"` // local | production | testing
	Debug           bool          `yaml:"debug"`
	URL             string        `yaml:"url"`
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | console
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		App: AppConfig{
			Name:            "busybody",
			Env:             "local",
			Debug:           true,
			URL:             "http://localhost",
			Port:            "8000",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	loadDotenv(envFiles)
	return overlay(Defaults())
}

// LoadYAML decodes the YAML file at path on top of Defaults, then applies
// .env files and environment variables, which win over the file.
func LoadYAML(path string, envFiles ...string) (*Config, error) {
	base := Defaults()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&base); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	loadDotenv(envFiles)
	return overlay(base), nil
}

func loadDotenv(files []string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)
}

// overlay returns base with every set environment variable applied.
func overlay(base Config) *Config {
	return &Config{
		App: AppConfig{
			Name:            env("APP_NAME", base.App.Name),
			Env:             env("APP_ENV", base.App.Env),
			Debug:           envBool("APP_DEBUG", base.App.Debug),
			URL:             env("APP_URL", base.App.URL),
			Port:            env("APP_PORT", base.App.Port),
			ShutdownTimeout: envDuration("APP_SHUTDOWN_TIMEOUT", base.App.ShutdownTimeout),
		},
		Log: LogConfig{
			Level:  env("LOG_LEVEL", base.Log.Level),
			Format: env("LOG_FORMAT", base.Log.Format),
		},
		Metrics: MetricsConfig{
			Enabled: envBool("METRICS_ENABLED", base.Metrics.Enabled),
			Path:    env("METRICS_PATH", base.Metrics.Path),
		},
	}
}

// Addr is the listen address derived from App.Port.
func (c *Config) Addr() string { return ":" + c.App.Port }

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
