package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	JWTSecret   string `env:"JWT_SECRET,required,notEmpty"`
	Port        int    `env:"PORT" envDefault:"8080"`
	ProxyPort   int    `env:"PROXY_PORT" envDefault:"8090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`
	Timezone    string `env:"TIMEZONE" envDefault:"America/Sao_Paulo"`

	ProxyURL           string        `env:"PROXY_URL" envDefault:"http://localhost:8090/proxy"`
	ProviderBaseURL    string        `env:"PROVIDER_BASE_URL" envDefault:"https://api.pagar.me"`
	ProviderTimeout    time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"25s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	CredentialDBPath string `env:"CREDENTIAL_DB_PATH" envDefault:"data/credentials.db"`

	CacheTTL           time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	CacheMaxAge        time.Duration `env:"CACHE_MAX_AGE" envDefault:"24h"`
	CacheSweepInterval time.Duration `env:"CACHE_SWEEP_INTERVAL" envDefault:"1h"`

	RetryMax           int           `env:"RETRY_MAX" envDefault:"3"`
	RetryBaseDelay     time.Duration `env:"RETRY_BASE_DELAY" envDefault:"1s"`
	RateLimitRetryMax  int           `env:"RATE_LIMIT_RETRY_MAX" envDefault:"3"`
	RateLimitBaseDelay time.Duration `env:"RATE_LIMIT_BASE_DELAY" envDefault:"2s"`

	CollectPageSize    int           `env:"COLLECT_PAGE_SIZE" envDefault:"100"`
	CollectMaxPages    int           `env:"COLLECT_MAX_PAGES" envDefault:"50"`
	CollectEmptyStreak int           `env:"COLLECT_EMPTY_STREAK" envDefault:"3"`
	CollectPacing      time.Duration `env:"COLLECT_PACING" envDefault:"150ms"`

	DiagWindowDays int           `env:"DIAG_WINDOW_DAYS" envDefault:"30"`
	DiagBatchSize  int           `env:"DIAG_BATCH_SIZE" envDefault:"10"`
	DiagBatchPause time.Duration `env:"DIAG_BATCH_PAUSE" envDefault:"1500ms"`
	DiagScanCron   string        `env:"DIAG_SCAN_SCHEDULE" envDefault:"0 */30 * * * *"`
	RefreshCron    string        `env:"REFRESH_SCHEDULE"`
	CacheSweepCron string        `env:"CACHE_SWEEP_SCHEDULE" envDefault:"@hourly"`

	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	AutoMigrate   bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

// ProxyConfig is the subset the standalone proxy needs; it does not require a database.
type ProxyConfig struct {
	Port               int           `env:"PROXY_PORT" envDefault:"8090"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv             string        `env:"APP_ENV" envDefault:"production"`
	ProviderBaseURL    string        `env:"PROVIDER_BASE_URL" envDefault:"https://api.pagar.me"`
	ProviderTimeout    time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"25s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

func Load() (*Config, error) {
	loadDotEnv()
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func LoadProxy() (*ProxyConfig, error) {
	loadDotEnv()
	cfg, err := env.ParseAs[ProxyConfig]()
	if err != nil {
		return nil, fmt.Errorf("config.LoadProxy: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) validate() error {
	if c.CollectPageSize <= 0 {
		return fmt.Errorf("COLLECT_PAGE_SIZE must be positive")
	}
	if c.CollectMaxPages <= 0 {
		return fmt.Errorf("COLLECT_MAX_PAGES must be positive")
	}
	if c.DiagBatchSize <= 0 {
		return fmt.Errorf("DIAG_BATCH_SIZE must be positive")
	}
	if c.CacheMaxAge < c.CacheTTL {
		return fmt.Errorf("CACHE_MAX_AGE must not be shorter than CACHE_TTL")
	}
	return nil
}

// A missing .env is normal outside local development.
func loadDotEnv() {
	_ = godotenv.Load()
}
