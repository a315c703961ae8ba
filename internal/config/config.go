// Package config loads the service configuration from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"fmt"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// --- HTTP ---
	Port               string  `envconfig:"PORT" default:"8080"`
	CORSAllowedOrigins string  `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	RateLimitRPS       float64 `envconfig:"RATE_LIMIT_RPS" default:"20"`
	RateLimitBurst     int     `envconfig:"RATE_LIMIT_BURST" default:"40"`

	// --- Database ---
	DBHost         string `envconfig:"DB_HOST" default:"localhost"`
	DBPort         int    `envconfig:"DB_PORT" default:"5432"`
	DBUser         string `envconfig:"DB_USER" default:"postgres"`
	DBPassword     string `envconfig:"DB_PASSWORD" required:"true"`
	DBName         string `envconfig:"DB_NAME" default:"qa_forum"`
	DBSSLMode      string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"100"`
	DBMaxIdleConns int    `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`

	// --- Auth ---
	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"72h"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Transactions ---
	// Attempts per unit of work, including the first one.
	TxMaxAttempts    int           `envconfig:"TX_MAX_ATTEMPTS" default:"5"`
	TxInitialBackoff time.Duration `envconfig:"TX_INITIAL_BACKOFF" default:"20ms"`
	TxMaxBackoff     time.Duration `envconfig:"TX_MAX_BACKOFF" default:"1s"`

	// --- Rating audit ---
	RatingAuditSchedule string `envconfig:"RATING_AUDIT_SCHEDULE" default:"@every 1h"`
	RatingAuditRepair   bool   `envconfig:"RATING_AUDIT_REPAIR" default:"false"`
}

// DatabaseDSN returns the PostgreSQL connection string in key/value form.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) Validate() error {
	if c.TxMaxAttempts < 1 {
		return fmt.Errorf("TX_MAX_ATTEMPTS must be >= 1")
	}
	if c.TxInitialBackoff <= 0 || c.TxMaxBackoff < c.TxInitialBackoff {
		return fmt.Errorf("invalid TX_INITIAL_BACKOFF/TX_MAX_BACKOFF")
	}
	if c.DBMaxOpenConns <= 0 || c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns {
		return fmt.Errorf("invalid DB_MAX_IDLE_CONNS/DB_MAX_OPEN_CONNS")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be > 0")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	return nil
}

// Load reads the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
