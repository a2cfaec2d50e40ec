package config

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/practice-api/pkg/validator"
)

// EnvPrefix namespaces environment overrides, e.g. PRACTICE_DATABASE_HOST.
const EnvPrefix = "PRACTICE"

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auth         AuthConfig         `mapstructure:"auth"`
	SMTP         SMTPConfig         `mapstructure:"smtp"`
	Log          LogConfig          `mapstructure:"log"`
	Clinic       ClinicConfig       `mapstructure:"clinic"`
	Sweep        SweepConfig        `mapstructure:"sweep"`
	Discharge    DischargeConfig    `mapstructure:"discharge"`
	Notification NotificationConfig `mapstructure:"notification"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit" envconfig:"RATE_LIMIT"`
	Security     SecurityConfig     `mapstructure:"security"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Realtime     RealtimeConfig     `mapstructure:"realtime"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" split_words:"true"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" split_words:"true"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host" validate:"required"`
	Port            int           `mapstructure:"port" validate:"required"`
	User            string        `mapstructure:"user" validate:"required"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name" validate:"required"`
	SSLMode         string        `mapstructure:"sslmode" envconfig:"SSLMODE" validate:"oneof=disable require verify-ca verify-full"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" split_words:"true"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" split_words:"true"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" split_words:"true"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" validate:"required"`
	MaxRetries   int           `mapstructure:"max_retries" split_words:"true"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" split_words:"true"`
	PoolSize     int           `mapstructure:"pool_size" split_words:"true"`
	MinIdleConns int           `mapstructure:"min_idle_conns" split_words:"true"`
}

// AuthConfig only covers token validation; tokens are issued by the identity service.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" split_words:"true" validate:"required,min=16"`
	Issuer    string `mapstructure:"issuer" validate:"required"`
}

type SMTPConfig struct {
	// Enabled false swaps the SMTP transport for one that only logs.
	Enabled     bool   `mapstructure:"enabled"`
	Host        string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	FromAddress string `mapstructure:"from_address" split_words:"true" validate:"required_if=Enabled true"`
	FromName    string `mapstructure:"from_name" split_words:"true"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

type ClinicConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	// Timezone is an IANA name. Quiet hours and email dates use it.
	Timezone string `mapstructure:"timezone" validate:"required"`
}

type SweepConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval" validate:"required_if=Enabled true"`
}

type DischargeConfig struct {
	SweepEnabled        bool          `mapstructure:"sweep_enabled" split_words:"true"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval" split_words:"true" validate:"required_if=SweepEnabled true"`
	AutoDischargeOnGoal bool          `mapstructure:"auto_discharge_on_goal" split_words:"true"`
}

type NotificationConfig struct {
	EmailTimeout       time.Duration `mapstructure:"email_timeout" split_words:"true" validate:"required"`
	PreferenceCacheTTL time.Duration `mapstructure:"preference_cache_ttl" envconfig:"PREFERENCE_CACHE_TTL"`
	CleanupInterval    time.Duration `mapstructure:"cleanup_interval" split_words:"true" validate:"required"`
	// ReminderInterval is both the reminder job's period and the window it scans.
	ReminderEnabled    bool          `mapstructure:"reminder_enabled" split_words:"true"`
	ReminderInterval   time.Duration `mapstructure:"reminder_interval" split_words:"true" validate:"required_if=ReminderEnabled true"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" split_words:"true"`
	Burst             int     `mapstructure:"burst"`
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" split_words:"true"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

type RealtimeConfig struct {
	// Channel is the redis pub/sub channel the worker and API relay events over.
	Channel string `mapstructure:"channel" validate:"required"`
}

// Load reads config.yml (from path, or the usual search locations when path is empty), then
// applies PRACTICE_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !stderrors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Clinic.Timezone); err != nil {
		return fmt.Errorf("invalid config: clinic.timezone: %w", err)
	}
	return nil
}

// Location returns the clinic time zone. Validate has already checked it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Clinic.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c DatabaseConfig) String() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s", c.User, c.Host, c.Port, c.Name)
}

// AllowsAnyOrigin reports whether CORS is left fully open.
func (c SecurityConfig) AllowsAnyOrigin() bool {
	for _, o := range c.AllowedOrigins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "practice")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("auth.issuer", "practice-api")

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from_name", "Practice Notifications")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("clinic.name", "Practice")
	v.SetDefault("clinic.timezone", "UTC")

	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.interval", "15m")

	v.SetDefault("discharge.sweep_enabled", false)
	v.SetDefault("discharge.sweep_interval", "24h")
	v.SetDefault("discharge.auto_discharge_on_goal", false)

	v.SetDefault("notification.email_timeout", "10s")
	v.SetDefault("notification.preference_cache_ttl", "5m")
	v.SetDefault("notification.cleanup_interval", "1h")
	v.SetDefault("notification.reminder_enabled", true)
	v.SetDefault("notification.reminder_interval", "5m")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "practice")

	v.SetDefault("realtime.channel", "practice:realtime")
}
