package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var knownWeakSecrets = []string{
	"change-me-in-production", "change-me", "secret", "password",
}

var supportedAlgorithms = map[string]bool{
	"HS256": true,
	"HS384": true,
	"HS512": true,
}

type Config struct {
	Server     ServerConfig
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Token      TokenConfig
	Cookie     CookieConfig
	Encryption EncryptionConfig
	Mail       MailConfig
	Contract   ContractConfig
	Telemetry  TelemetryConfig
	CORS       CORSConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type AppConfig struct {
	BaseURL     string
	PhoneRegion string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type TokenConfig struct {
	Algorithm          string
	Secret             string
	Issuer             string
	Audience           string
	ActivationLifetime time.Duration
	APILifetime        time.Duration
}

type CookieConfig struct {
	Name   string
	Secure bool
}

type EncryptionConfig struct {
	Key string
}

type MailConfig struct {
	Driver         string // log, smtp
	From           string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	EnqueueTimeout time.Duration
}

type ContractConfig struct {
	DefaultMaxMembers int
}

type TelemetryConfig struct {
	Endpoint string
	Insecure bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func (m *MailConfig) SMTPAddr() string {
	return fmt.Sprintf("%s:%d", m.SMTPHost, m.SMTPPort)
}

// Validate rejects settings that are unsafe outside development.
func (c *Config) Validate() error {
	if !supportedAlgorithms[c.Token.Algorithm] {
		return fmt.Errorf("TOKEN_ALGORITHM %q is not supported (use HS256, HS384 or HS512)", c.Token.Algorithm)
	}
	if c.Token.ActivationLifetime <= 0 || c.Token.APILifetime <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.Contract.DefaultMaxMembers < 1 {
		return fmt.Errorf("CONTRACT_DEFAULT_MAX_MEMBERS must be at least 1")
	}
	if c.Mail.Driver != "log" && c.Mail.Driver != "smtp" {
		return fmt.Errorf("MAIL_DRIVER %q is not supported (use log or smtp)", c.Mail.Driver)
	}

	if c.Server.IsDevelopment() {
		return nil
	}
	if len(c.Token.Secret) < 32 {
		return fmt.Errorf("TOKEN_SECRET must be at least 32 characters outside development")
	}
	for _, weak := range knownWeakSecrets {
		if c.Token.Secret == weak {
			return fmt.Errorf("TOKEN_SECRET is a known weak default")
		}
	}
	return nil
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
	v.SetDefault("APP_PHONE_REGION", "US")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "prompthub")
	v.SetDefault("DATABASE_PASSWORD", "prompthub_secret")
	v.SetDefault("DATABASE_NAME", "prompthub")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("TOKEN_ALGORITHM", "HS256")
	v.SetDefault("TOKEN_SECRET", "change-me-in-production")
	v.SetDefault("TOKEN_ISSUER", "prompthub")
	v.SetDefault("TOKEN_AUDIENCE", "")
	v.SetDefault("TOKEN_ACTIVATION_LIFETIME", time.Hour)
	v.SetDefault("TOKEN_API_LIFETIME", 14*24*time.Hour)
	v.SetDefault("COOKIE_NAME", "token")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("MAIL_DRIVER", "log")
	v.SetDefault("MAIL_FROM", "no-reply@prompthub.local")
	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 1025)
	v.SetDefault("MAIL_ENQUEUE_TIMEOUT", 5*time.Second)
	v.SetDefault("CONTRACT_DEFAULT_MAX_MEMBERS", 5)
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)

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
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
			Env:  v.GetString("SERVER_ENV"),
		},
		App: AppConfig{
			BaseURL:     strings.TrimRight(v.GetString("APP_BASE_URL"), "/"),
			PhoneRegion: v.GetString("APP_PHONE_REGION"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		Token: TokenConfig{
			Algorithm:          strings.ToUpper(v.GetString("TOKEN_ALGORITHM")),
			Secret:             v.GetString("TOKEN_SECRET"),
			Issuer:             v.GetString("TOKEN_ISSUER"),
			Audience:           v.GetString("TOKEN_AUDIENCE"),
			ActivationLifetime: v.GetDuration("TOKEN_ACTIVATION_LIFETIME"),
			APILifetime:        v.GetDuration("TOKEN_API_LIFETIME"),
		},
		Cookie: CookieConfig{
			Name:   v.GetString("COOKIE_NAME"),
			Secure: v.GetBool("COOKIE_SECURE"),
		},
		Encryption: EncryptionConfig{
			Key: v.GetString("ENCRYPTION_KEY"),
		},
		Mail: MailConfig{
			Driver:         v.GetString("MAIL_DRIVER"),
			From:           v.GetString("MAIL_FROM"),
			SMTPHost:       v.GetString("SMTP_HOST"),
			SMTPPort:       v.GetInt("SMTP_PORT"),
			SMTPUsername:   v.GetString("SMTP_USERNAME"),
			SMTPPassword:   v.GetString("SMTP_PASSWORD"),
			EnqueueTimeout: v.GetDuration("MAIL_ENQUEUE_TIMEOUT"),
		},
		Contract: ContractConfig{
			DefaultMaxMembers: v.GetInt("CONTRACT_DEFAULT_MAX_MEMBERS"),
		},
		Telemetry: TelemetryConfig{
			Endpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure: v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
