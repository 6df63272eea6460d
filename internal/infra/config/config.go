package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	TelegramToken string `mapstructure:"telegram_token"`
	DatabaseURL   string `mapstructure:"database_url"`

	// TablePrefix is prepended to every logical table name (users, messages,
	// reminders) so several bot instances can share one database.
	TablePrefix string `mapstructure:"table_prefix"`

	// CanonicalTZ is the single timezone all scheduled_at values are
	// normalized to.
	CanonicalTZ string `mapstructure:"canonical_tz"`

	LogLevel    string `mapstructure:"log_level"`
	Environment string `mapstructure:"environment"`

	// Scheduler knobs.
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout"`
	FaultCooldown   time.Duration `mapstructure:"fault_cooldown"`
	BridgeAttempts  int           `mapstructure:"bridge_attempts"`
	BridgeInterval  time.Duration `mapstructure:"bridge_interval"`

	// CronSpecNormalize fires the nightly timezone repair pass.
	CronSpecNormalize string `mapstructure:"cron_spec_normalize"`

	// Supervisor knobs.
	MarkerFile       string        `mapstructure:"marker_file"`
	NotifierCommand  string        `mapstructure:"notifier_command"`
	MonitorInterval  time.Duration `mapstructure:"monitor_interval"`
	StoreConnRetries int           `mapstructure:"store_conn_retries"`
	StoreConnDelay   time.Duration `mapstructure:"store_conn_delay"`
}

// Load reads configuration from an optional config.yaml, the environment and
// an optional .env file. Environment variables win over file values.
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables; a missing .env
	// file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Secrets have no defaults, so viper needs explicit bindings to pick
	// them up from the environment alone.
	_ = v.BindEnv("telegram_token")
	_ = v.BindEnv("database_url")

	v.SetDefault("table_prefix", "")
	v.SetDefault("canonical_tz", "Europe/Moscow")
	v.SetDefault("log_level", "info")
	v.SetDefault("environment", "development")
	v.SetDefault("dispatch_timeout", 10*time.Second)
	v.SetDefault("fault_cooldown", 60*time.Second)
	v.SetDefault("bridge_attempts", 30)
	v.SetDefault("bridge_interval", 2*time.Second)
	v.SetDefault("cron_spec_normalize", "30 3 * * *")
	v.SetDefault("marker_file", "/tmp/reminder-notifier.pid")
	v.SetDefault("notifier_command", "notifier")
	v.SetDefault("monitor_interval", 5*time.Minute)
	v.SetDefault("store_conn_retries", 3)
	v.SetDefault("store_conn_delay", time.Second)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	if _, err := time.LoadLocation(cfg.CanonicalTZ); err != nil {
		return nil, fmt.Errorf("invalid CANONICAL_TZ %q: %w", cfg.CanonicalTZ, err)
	}

	return cfg, nil
}

// Location resolves the canonical timezone. Load has already validated it.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.CanonicalTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}
