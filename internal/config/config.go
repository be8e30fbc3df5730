package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`
	Timezone      string `mapstructure:"TIMEZONE"`

	JWTSigningKey string        `mapstructure:"JWT_SIGNING_KEY"`
	JWTTTL        time.Duration `mapstructure:"JWT_TTL"`
	URLSigningKey string        `mapstructure:"URL_SIGNING_KEY"`

	TelegramBotToken      string        `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramBotUsername   string        `mapstructure:"TELEGRAM_BOT_USERNAME"`
	TelegramAPIURL        string        `mapstructure:"TELEGRAM_API_URL"`
	TelegramPollTimeout   time.Duration `mapstructure:"TELEGRAM_POLL_TIMEOUT"`
	TelegramWebhookSecret string        `mapstructure:"TELEGRAM_WEBHOOK_SECRET"`
	NotifyMaxAttempts     uint          `mapstructure:"NOTIFY_MAX_ATTEMPTS"`
	NotifyBudget          time.Duration `mapstructure:"NOTIFY_BUDGET"`

	PINPeriod      time.Duration `mapstructure:"PIN_PERIOD"`
	PINMaxAttempts int           `mapstructure:"PIN_MAX_ATTEMPTS"`

	TeamMedicoPerBaby      int `mapstructure:"TEAM_MEDICO_PER_BABY"`
	TeamMatronaPerBaby     int `mapstructure:"TEAM_MATRONA_PER_BABY"`
	TeamTENSPerBaby        int `mapstructure:"TEAM_TENS_PER_BABY"`
	TeamNeonatologoPerBaby int `mapstructure:"TEAM_NEONATOLOGO_PER_BABY"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "CORS_ORIGINS",
	"MIGRATIONS_DIR", "TIMEZONE",
	"JWT_SIGNING_KEY", "JWT_TTL", "URL_SIGNING_KEY",
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_USERNAME", "TELEGRAM_API_URL", "TELEGRAM_POLL_TIMEOUT", "TELEGRAM_WEBHOOK_SECRET", "NOTIFY_MAX_ATTEMPTS", "NOTIFY_BUDGET",
	"PIN_PERIOD", "PIN_MAX_ATTEMPTS",
	"TEAM_MEDICO_PER_BABY", "TEAM_MATRONA_PER_BABY", "TEAM_TENS_PER_BABY", "TEAM_NEONATOLOGO_PER_BABY",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("TIMEZONE", "America/Santiago")
	v.SetDefault("JWT_TTL", "12h")
	v.SetDefault("TELEGRAM_API_URL", "https://api.telegram.org")
	v.SetDefault("TELEGRAM_POLL_TIMEOUT", "30s")
	v.SetDefault("NOTIFY_MAX_ATTEMPTS", 3)
	v.SetDefault("NOTIFY_BUDGET", "10s")
	v.SetDefault("PIN_PERIOD", "5m")
	v.SetDefault("PIN_MAX_ATTEMPTS", 5)
	v.SetDefault("TEAM_MEDICO_PER_BABY", 1)
	v.SetDefault("TEAM_MATRONA_PER_BABY", 1)
	v.SetDefault("TEAM_TENS_PER_BABY", 2)
	v.SetDefault("TEAM_NEONATOLOGO_PER_BABY", 1)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	if cfg.URLSigningKey == "" {
		cfg.URLSigningKey = cfg.JWTSigningKey
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: unauthenticated requests are granted ADMIN and plain numeric ids are accepted in URLs.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// TelegramEnabled reports whether outbound chat-bot relay is configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

// Location resolves Timezone. Day boundaries on the dashboard use it.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Validate checks that the configuration is safe to run. Outside development a
// JWT signing key of at least 32 bytes is required.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.JWTSigningKey == "" {
			return fmt.Errorf("JWT_SIGNING_KEY is required when ENV=%q", c.Env)
		}
		if len(c.JWTSigningKey) < 32 {
			return fmt.Errorf("JWT_SIGNING_KEY must be at least 32 bytes, got %d", len(c.JWTSigningKey))
		}
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.PINPeriod < 30*time.Second {
		return fmt.Errorf("PIN_PERIOD must be at least 30s, got %s", c.PINPeriod)
	}
	if c.PINMaxAttempts < 1 {
		return fmt.Errorf("PIN_MAX_ATTEMPTS must be at least 1")
	}
	if c.NotifyMaxAttempts < 1 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be at least 1")
	}
	if c.NotifyBudget <= 0 {
		return fmt.Errorf("NOTIFY_BUDGET must be positive")
	}
	for name, n := range map[string]int{
		"TEAM_MEDICO_PER_BABY":      c.TeamMedicoPerBaby,
		"TEAM_MATRONA_PER_BABY":     c.TeamMatronaPerBaby,
		"TEAM_TENS_PER_BABY":        c.TeamTENSPerBaby,
		"TEAM_NEONATOLOGO_PER_BABY": c.TeamNeonatologoPerBaby,
	} {
		if n < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}
