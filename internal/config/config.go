package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultPath = "config/config.yaml"

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	DSN          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	Migrate      bool   `yaml:"migrate"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
}

type AuthConfig struct {
	BcryptCost   int           `yaml:"bcrypt_cost"`
	OTPTTL       time.Duration `yaml:"otp_ttl"`
	TicketSecret string        `yaml:"ticket_secret"`
	TicketTTL    time.Duration `yaml:"ticket_ttl"`
}

type SessionConfig struct {
	TTL          time.Duration `yaml:"ttl"`
	CookieSecure bool          `yaml:"cookie_secure"`
}

type ListingsConfig struct {
	SweepSchedule string `yaml:"sweep_schedule"`
	PageSize      int    `yaml:"page_size"`
}

// TelegramConfig enables new-listing announcements when both fields are set.
type TelegramConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID int64  `yaml:"channel_id"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Email    EmailConfig    `yaml:"email"`
	Auth     AuthConfig     `yaml:"auth"`
	Session  SessionConfig  `yaml:"session"`
	Listings ListingsConfig `yaml:"listings"`
	Telegram TelegramConfig `yaml:"telegram"`
	Log      LogConfig      `yaml:"log"`
}

// LoadConfig reads the file named by INTERNBOARD_CONFIG (or config/config.yaml)
// and panics if it cannot be used.
func LoadConfig() *Config {
	_ = godotenv.Load()

	path := os.Getenv("INTERNBOARD_CONFIG")
	if path == "" {
		path = defaultPath
	}
	cfg, err := Load(path)
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	return cfg
}

// Load decodes the YAML file at path, applies defaults and environment
// overrides, and validates the result. A missing file is not an error when
// the environment supplies the required values.
func Load(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = 10
	}
	if c.Auth.OTPTTL <= 0 {
		c.Auth.OTPTTL = 5 * time.Minute
	}
	if c.Auth.TicketTTL <= 0 {
		c.Auth.TicketTTL = 15 * time.Minute
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.Listings.SweepSchedule == "" {
		c.Listings.SweepSchedule = "@hourly"
	}
	if c.Listings.PageSize <= 0 {
		c.Listings.PageSize = 50
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) applyEnv() error {
	envStr("DATABASE_URL", &c.Database.DSN)
	envStr("REDIS_ADDR", &c.Redis.Addr)
	envStr("REDIS_PASSWORD", &c.Redis.Password)
	envStr("SMTP_HOST", &c.Email.SMTPHost)
	envStr("SMTP_USER", &c.Email.SMTPUser)
	envStr("SMTP_PASSWORD", &c.Email.SMTPPassword)
	envStr("SMTP_FROM", &c.Email.FromEmail)
	envStr("TICKET_SECRET", &c.Auth.TicketSecret)
	envStr("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	envStr("LOG_LEVEL", &c.Log.Level)

	if err := envInt("APP_PORT", &c.Server.Port); err != nil {
		return err
	}
	if err := envInt("SMTP_PORT", &c.Email.SMTPPort); err != nil {
		return err
	}
	if v := os.Getenv("TELEGRAM_CHANNEL_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int for TELEGRAM_CHANNEL_ID: %q", v)
		}
		c.Telegram.ChannelID = id
	}
	return nil
}

var placeholderSecrets = map[string]bool{
	"change-me": true,
	"changeme":  true,
	"secret":    true,
}

func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database url is required")
	}
	if c.Auth.TicketSecret == "" {
		return errors.New("auth ticket_secret is required")
	}
	if placeholderSecrets[strings.ToLower(c.Auth.TicketSecret)] {
		return errors.New("auth ticket_secret is a placeholder, set TICKET_SECRET")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth bcrypt_cost out of range: %d", c.Auth.BcryptCost)
	}
	return nil
}

// TelegramEnabled reports whether listing announcements should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChannelID != 0
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid int for %s: %q", key, v)
	}
	*dst = n
	return nil
}
