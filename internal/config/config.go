// Package config loads process configuration from defaults, an optional
// kinesis.yaml and KINESIS_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvProduction is the only environment with stricter checks.
const EnvProduction = "production"

// DefaultAdminPassword is the development admin password. Production refuses it.
const DefaultAdminPassword = "kinesis-admin"

// Config holds the application's configuration.
type Config struct {
	Env  string `mapstructure:"env"`
	Addr string `mapstructure:"addr"`

	Database struct {
		Driver    string        `mapstructure:"driver"` // sqlite | postgres
		DSN       string        `mapstructure:"dsn"`
		SlowQuery time.Duration `mapstructure:"slow_query"`
	} `mapstructure:"database"`

	Admin struct {
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"admin"`

	Auth struct {
		TokenSecret    string        `mapstructure:"token_secret"`
		Issuer         string        `mapstructure:"issuer"`
		TokenTTL       time.Duration `mapstructure:"token_ttl"`
		EmailDomain    string        `mapstructure:"email_domain"`
		ProvisionURL   string        `mapstructure:"provision_url"`
		ProvisionKey   string        `mapstructure:"provision_key"`
		CSRFKey        string        `mapstructure:"csrf_key"`
		LoginPerMinute int           `mapstructure:"login_per_minute"`
	} `mapstructure:"auth"`

	Email struct {
		ResendKey string `mapstructure:"resend_key"`
		From      string `mapstructure:"from"`
		ReplyTo   string `mapstructure:"reply_to"`
	} `mapstructure:"email"`

	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"kafka"`

	Outbox struct {
		Interval  time.Duration `mapstructure:"interval"`
		BatchSize int           `mapstructure:"batch_size"`
		BaseDelay time.Duration `mapstructure:"base_delay"`
		MaxDelay  time.Duration `mapstructure:"max_delay"`
	} `mapstructure:"outbox"`
}

// IsProduction reports whether Env is production.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("addr", ":8080")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "kinesis.db")
	v.SetDefault("database.slow_query", "50ms")

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", DefaultAdminPassword)
	v.SetDefault("admin.name", "Trainer")

	v.SetDefault("auth.token_secret", "")
	v.SetDefault("auth.issuer", "kinesis")
	v.SetDefault("auth.token_ttl", "12h")
	v.SetDefault("auth.email_domain", "kinesis.local")
	v.SetDefault("auth.provision_url", "")
	v.SetDefault("auth.provision_key", "")
	v.SetDefault("auth.csrf_key", "")
	v.SetDefault("auth.login_per_minute", 10)

	v.SetDefault("email.resend_key", "")
	v.SetDefault("email.from", "Kinesis <noreply@kinesis.local>")
	v.SetDefault("email.reply_to", "")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "plan_events")

	v.SetDefault("outbox.interval", "1m")
	v.SetDefault("outbox.batch_size", 50)
	v.SetDefault("outbox.base_delay", "30s")
	v.SetDefault("outbox.max_delay", "1h")
}

// Load reads configuration. An empty path searches for kinesis.yaml in the
// working directory and ./config; a missing file is not an error. An explicit
// path must exist.
// POST: Returns a validated Config, or an error naming the bad key
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("KINESIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("kinesis")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		slog.Debug("config_event", "event", "file_not_found", "detail", "using defaults and environment")
	} else {
		slog.Info("config_event", "event", "file_loaded", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "postgres", "pgx":
	default:
		return fmt.Errorf("database.driver: unsupported %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Admin.Username == "" || c.Admin.Password == "" {
		return errors.New("admin.username and admin.password are required")
	}
	if c.Outbox.Interval <= 0 || c.Outbox.BatchSize <= 0 {
		return errors.New("outbox.interval and outbox.batch_size must be positive")
	}
	if c.IsProduction() {
		if c.Auth.TokenSecret == "" {
			return errors.New("auth.token_secret is required in production")
		}
		if len(c.Auth.CSRFKey) != 32 {
			return errors.New("auth.csrf_key must be 32 bytes in production")
		}
		if c.Admin.Password == DefaultAdminPassword {
			return errors.New("admin.password must be changed from the default in production")
		}
	}
	return nil
}

// splitList flattens comma separated entries, which is how a list arrives
// from a single environment variable.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
