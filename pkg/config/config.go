package config

import (
	"errors"
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/hugh/rateboard/pkg/util"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-in-production"

type Config struct {
	Server    ServerConfig
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Password  PasswordConfig
	Mail      MailConfig
	Invite    InviteConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host     string
	Port     int
	Env      string
	LogLevel string // empty picks the level from Env
}

// AppConfig holds settings that end up in user-facing links and CORS.
type AppConfig struct {
	HostURL        string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type JWTConfig struct {
	Secret            string
	ExpiryHours       int
	InviteExpiryHours int
}

// PasswordConfig tunes argon2id. MemoryKiB is in kibibytes.
type PasswordConfig struct {
	MemoryKiB     uint32
	Iterations    uint32
	Parallelism   uint8
	MaxConcurrent int
}

type MailConfig struct {
	Driver   string // smtp, queue, log
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type InviteConfig struct {
	ResendCron string
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// URL returns the database address in the postgres:// form golang-migrate expects.
func (d *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}

func (j *JWTConfig) InviteExpiry() time.Duration {
	return time.Duration(j.InviteExpiryHours) * time.Hour
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func (s *ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("SERVER_LOG_LEVEL", "")
	v.SetDefault("APP_HOST_URL", "http://localhost:8080")
	v.SetDefault("APP_ALLOWED_ORIGINS", "")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "rateboard")
	v.SetDefault("DATABASE_PASSWORD", "rateboard_secret")
	v.SetDefault("DATABASE_NAME", "rateboard")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_AUTOMIGRATE", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("JWT_INVITE_EXPIRY_HOURS", 72)
	v.SetDefault("PASSWORD_ARGON_MEMORY_KIB", 64*1024)
	v.SetDefault("PASSWORD_ARGON_ITERATIONS", 3)
	v.SetDefault("PASSWORD_ARGON_PARALLELISM", 2)
	v.SetDefault("PASSWORD_MAX_CONCURRENT", runtime.NumCPU())
	v.SetDefault("MAIL_DRIVER", "log")
	v.SetDefault("MAIL_HOST", "localhost")
	v.SetDefault("MAIL_PORT", 587)
	v.SetDefault("MAIL_USERNAME", "")
	v.SetDefault("MAIL_PASSWORD", "")
	v.SetDefault("MAIL_FROM", "Rateboard <no-reply@rateboard.local>")
	v.SetDefault("INVITE_RESEND_CRON", "*/15 * * * *")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host:     v.GetString("SERVER_HOST"),
			Port:     v.GetInt("SERVER_PORT"),
			Env:      v.GetString("SERVER_ENV"),
			LogLevel: v.GetString("SERVER_LOG_LEVEL"),
		},
		App: AppConfig{
			HostURL:        strings.TrimRight(v.GetString("APP_HOST_URL"), "/"),
			AllowedOrigins: splitList(v.GetString("APP_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:        v.GetString("DATABASE_HOST"),
			Port:        v.GetInt("DATABASE_PORT"),
			User:        v.GetString("DATABASE_USER"),
			Password:    v.GetString("DATABASE_PASSWORD"),
			Name:        v.GetString("DATABASE_NAME"),
			SSLMode:     v.GetString("DATABASE_SSLMODE"),
			AutoMigrate: v.GetBool("DATABASE_AUTOMIGRATE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:            v.GetString("JWT_SECRET"),
			ExpiryHours:       v.GetInt("JWT_EXPIRY_HOURS"),
			InviteExpiryHours: v.GetInt("JWT_INVITE_EXPIRY_HOURS"),
		},
		Password: PasswordConfig{
			MemoryKiB:     v.GetUint32("PASSWORD_ARGON_MEMORY_KIB"),
			Iterations:    v.GetUint32("PASSWORD_ARGON_ITERATIONS"),
			Parallelism:   uint8(v.GetUint("PASSWORD_ARGON_PARALLELISM")),
			MaxConcurrent: v.GetInt("PASSWORD_MAX_CONCURRENT"),
		},
		Mail: MailConfig{
			Driver:   strings.ToLower(v.GetString("MAIL_DRIVER")),
			Host:     v.GetString("MAIL_HOST"),
			Port:     v.GetInt("MAIL_PORT"),
			Username: v.GetString("MAIL_USERNAME"),
			Password: v.GetString("MAIL_PASSWORD"),
			From:     v.GetString("MAIL_FROM"),
		},
		Invite: InviteConfig{
			ResendCron: v.GetString("INVITE_RESEND_CRON"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects combinations that would only fail later at runtime.
func (c *Config) Validate() error {
	var errs []error

	switch c.Mail.Driver {
	case "smtp", "queue", "log":
	default:
		errs = append(errs, fmt.Errorf("config: MAIL_DRIVER must be smtp, queue or log, got %q", c.Mail.Driver))
	}

	if c.Invite.ResendCron != "" {
		if err := util.ValidateCronExpr(c.Invite.ResendCron); err != nil {
			errs = append(errs, fmt.Errorf("config: INVITE_RESEND_CRON: %w", err))
		}
	}

	if c.Server.IsProduction() && c.JWT.Secret == defaultJWTSecret {
		errs = append(errs, errors.New("config: JWT_SECRET must be changed in production"))
	}

	if c.JWT.ExpiryHours <= 0 {
		errs = append(errs, errors.New("config: JWT_EXPIRY_HOURS must be positive"))
	}
	if c.JWT.InviteExpiryHours <= 0 {
		errs = append(errs, errors.New("config: JWT_INVITE_EXPIRY_HOURS must be positive"))
	}

	if c.App.HostURL == "" {
		errs = append(errs, errors.New("config: APP_HOST_URL must be set"))
	}

	return errors.Join(errs...)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
