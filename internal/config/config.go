// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Filler   FillerConfig   `mapstructure:"filler" yaml:"filler"`
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	History  HistoryConfig  `mapstructure:"history" yaml:"history"`
	Profile  ProfileConfig  `mapstructure:"profile" yaml:"profile"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ChromePath        string        `mapstructure:"chrome_path" yaml:"chrome_path"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	OperationTimeout  time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
	Args              []string      `mapstructure:"args" yaml:"args"`
}

// TimingConfig names every cooperative delay the interaction chain inserts
// between DOM mutations, so the host page's own handlers and re-renders can
// settle before the next read or write. All values may be zero; tests run
// with the zero value and never sleep.
type TimingConfig struct {
	// Settle is the generic pause after a mutation before re-reading state.
	Settle time.Duration `mapstructure:"settle" yaml:"settle"`
	// PostClick runs after focus/click sequences that may trigger lazy widget init.
	PostClick time.Duration `mapstructure:"post_click" yaml:"post_click"`
	// PostOpen runs after opening a dropdown popup, before enumerating options.
	PostOpen time.Duration `mapstructure:"post_open" yaml:"post_open"`
	// InterKey separates simulated keystrokes.
	InterKey time.Duration `mapstructure:"inter_key" yaml:"inter_key"`
	// InterStrategy separates consecutive strategy attempts on one field.
	InterStrategy time.Duration `mapstructure:"inter_strategy" yaml:"inter_strategy"`
}

// FillerConfig tunes the interaction strategy chain and the dropdown filler.
// The option score threshold and synonym scoring weights are empirically
// tuned; treat them as configuration, not validated truths.
type FillerConfig struct {
	Timing TimingConfig `mapstructure:"timing" yaml:"timing"`
	// OptionScoreThreshold is the minimum match score a dropdown option must
	// reach before it is clicked.
	OptionScoreThreshold int `mapstructure:"option_score_threshold" yaml:"option_score_threshold"`
	// MaxOptions caps how many visible popup options are scored per attempt.
	MaxOptions int `mapstructure:"max_options" yaml:"max_options"`
}

// ResolverConfig tunes the profile value resolver.
type ResolverConfig struct {
	// FuzzyMinLength is the shortest key fragment considered for fuzzy
	// default-answer matching; shorter fragments produce false positives.
	FuzzyMinLength int `mapstructure:"fuzzy_min_length" yaml:"fuzzy_min_length"`
	// DefaultExperienceYears is reported when the profile has no work history.
	DefaultExperienceYears int `mapstructure:"default_experience_years" yaml:"default_experience_years"`
}

// EngineConfig configures per-form orchestration.
type EngineConfig struct {
	MaxConcurrentTargets int `mapstructure:"max_concurrent_targets" yaml:"max_concurrent_targets"`
	// PageLoadsPerMinute rate-limits navigation across targets.
	PageLoadsPerMinute float64 `mapstructure:"page_loads_per_minute" yaml:"page_loads_per_minute"`
	// FieldTimeout is the external cap around one field's whole strategy
	// chain. The chain itself carries no timeout; a field cut off mid-flight
	// may leave partial DOM side effects behind.
	FieldTimeout time.Duration `mapstructure:"field_timeout" yaml:"field_timeout"`
	// DryRun resolves and plans without touching the page.
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`
}

// PostgresConfig holds the connection details for a PostgreSQL database.
type PostgresConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"-"`
	DBName   string `mapstructure:"dbname" yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// DSN renders the config as a pgx connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// SQLiteConfig points at the local history database file.
type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// HistoryConfig specifies the backend for the fill-history store.
type HistoryConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Backend  string         `mapstructure:"backend" yaml:"backend"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// ProfileConfig locates the stored user profile.
type ProfileConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with pure defaults, but fail loudly rather than run misconfigured.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "formpilot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.operation_timeout", "10s")

	// -- Filler --
	// Tens to low hundreds of milliseconds; enough for most host pages to
	// re-render between mutations.
	v.SetDefault("filler.timing.settle", "100ms")
	v.SetDefault("filler.timing.post_click", "150ms")
	v.SetDefault("filler.timing.post_open", "200ms")
	v.SetDefault("filler.timing.inter_key", "30ms")
	v.SetDefault("filler.timing.inter_strategy", "100ms")
	v.SetDefault("filler.option_score_threshold", 30)
	v.SetDefault("filler.max_options", 100)

	// -- Resolver --
	v.SetDefault("resolver.fuzzy_min_length", 4)
	v.SetDefault("resolver.default_experience_years", 2)

	// -- Engine --
	v.SetDefault("engine.max_concurrent_targets", 2)
	v.SetDefault("engine.page_loads_per_minute", 6.0)
	v.SetDefault("engine.field_timeout", "30s")
	v.SetDefault("engine.dry_run", false)

	// -- History --
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.backend", "sqlite")
	v.SetDefault("history.sqlite.path", "~/.formpilot/history.db")
	v.SetDefault("history.postgres.host", "localhost")
	v.SetDefault("history.postgres.port", 5432)
	v.SetDefault("history.postgres.user", "postgres")
	v.SetDefault("history.postgres.password", "") // Set via FORMPILOT_HISTORY_PG_PASSWORD.
	v.SetDefault("history.postgres.dbname", "formpilot")
	v.SetDefault("history.postgres.sslmode", "disable")

	// -- Profile --
	v.SetDefault("profile.path", "~/.formpilot/profile.json")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("history.postgres.password", "FORMPILOT_HISTORY_PG_PASSWORD")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Filler.Validate(); err != nil {
		return fmt.Errorf("filler configuration invalid: %w", err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine configuration invalid: %w", err)
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history configuration invalid: %w", err)
	}
	if c.Resolver.FuzzyMinLength < 1 {
		return fmt.Errorf("resolver.fuzzy_min_length must be at least 1")
	}
	if c.Resolver.DefaultExperienceYears < 0 {
		return fmt.Errorf("resolver.default_experience_years must not be negative")
	}
	return nil
}

// Validate checks the filler settings.
func (f *FillerConfig) Validate() error {
	if f.OptionScoreThreshold < 0 {
		return fmt.Errorf("option_score_threshold must not be negative")
	}
	if f.MaxOptions <= 0 {
		return fmt.Errorf("max_options must be a positive integer")
	}
	for name, d := range map[string]time.Duration{
		"settle":         f.Timing.Settle,
		"post_click":     f.Timing.PostClick,
		"post_open":      f.Timing.PostOpen,
		"inter_key":      f.Timing.InterKey,
		"inter_strategy": f.Timing.InterStrategy,
	} {
		if d < 0 {
			return fmt.Errorf("timing.%s must not be negative", name)
		}
	}
	return nil
}

// Validate checks the engine settings.
func (e *EngineConfig) Validate() error {
	if e.MaxConcurrentTargets <= 0 {
		return fmt.Errorf("max_concurrent_targets must be a positive integer")
	}
	if e.PageLoadsPerMinute <= 0 {
		return fmt.Errorf("page_loads_per_minute must be positive")
	}
	if e.FieldTimeout <= 0 {
		return fmt.Errorf("field_timeout must be a positive duration")
	}
	return nil
}

// Validate checks the history store settings.
func (h *HistoryConfig) Validate() error {
	if !h.Enabled {
		return nil
	}
	switch h.Backend {
	case "sqlite":
		if h.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path is required for the sqlite backend")
		}
	case "postgres":
		if h.Postgres.Host == "" || h.Postgres.DBName == "" {
			return fmt.Errorf("postgres.host and postgres.dbname are required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown history backend %q (expected sqlite or postgres)", h.Backend)
	}
	return nil
}
