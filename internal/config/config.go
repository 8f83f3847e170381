package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"finreport/internal/log"
)

type Config struct {
	// HTTP Server
	Port string

	// Record store
	RecordBackend string
	SQLiteDBPath  string
	SeedDir       string

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Reports
	ReportCacheSize  int
	ReportCacheTTL   time.Duration
	ReportTimezone   string
	DedupExpenses    bool
	ReportFlushEvery time.Duration

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel string
}

// fileConfig is the shape of the optional TOML overlay. Zero values leave
// the default in place.
type fileConfig struct {
	Server struct {
		Port           string  `toml:"port"`
		RateLimitRPS   float64 `toml:"rate_limit_rps"`
		RateLimitBurst int     `toml:"rate_limit_burst"`
	} `toml:"server"`
	Store struct {
		Backend string `toml:"backend"`
		Path    string `toml:"path"`
		SeedDir string `toml:"seed_dir"`
	} `toml:"store"`
	AMQP struct {
		URL      string `toml:"url"`
		Exchange string `toml:"exchange"`
		Queue    string `toml:"queue"`
	} `toml:"amqp"`
	Reports struct {
		CacheSize     int    `toml:"cache_size"`
		CacheTTL      string `toml:"cache_ttl"`
		Timezone      string `toml:"timezone"`
		DedupExpenses *bool  `toml:"dedup_expenses"`
		FlushEvery    string `toml:"flush_every"`
	} `toml:"reports"`
	Logging struct {
		Level string `toml:"level"`
	} `toml:"logging"`
}

func Default() *Config {
	return &Config{
		Port:             "8081",
		RecordBackend:    "memory",
		SQLiteDBPath:     "./data/finreport.db",
		SeedDir:          "./data/seed",
		AMQPExchange:     "finreport",
		AMQPQueue:        "report_invalidation",
		ReportCacheSize:  128,
		ReportCacheTTL:   5 * time.Minute,
		ReportTimezone:   "Local",
		DedupExpenses:    true,
		ReportFlushEvery: 15 * time.Minute,
		RateLimitRPS:     10,
		RateLimitBurst:   20,
		LogLevel:         "info",
	}
}

// Load builds the configuration from defaults, then the TOML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.RecordBackend = getEnv("RECORD_BACKEND", cfg.RecordBackend)
	cfg.SQLiteDBPath = getEnv("SQLITE_DB_PATH", cfg.SQLiteDBPath)
	cfg.SeedDir = getEnv("SEED_DIR", cfg.SeedDir)

	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)
	cfg.AMQPQueue = getEnv("AMQP_QUEUE", cfg.AMQPQueue)

	cfg.ReportCacheSize = getEnvInt("REPORT_CACHE_SIZE", cfg.ReportCacheSize)
	cfg.ReportCacheTTL = getEnvDuration("REPORT_CACHE_TTL", cfg.ReportCacheTTL)
	cfg.ReportTimezone = getEnv("REPORT_TIMEZONE", cfg.ReportTimezone)
	cfg.DedupExpenses = getEnvBool("DEDUP_EXPENSES", cfg.DedupExpenses)
	cfg.ReportFlushEvery = getEnvDuration("REPORT_FLUSH_INTERVAL", cfg.ReportFlushEvery)

	cfg.RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.Port, fc.Server.Port)
	if fc.Server.RateLimitRPS > 0 {
		c.RateLimitRPS = fc.Server.RateLimitRPS
	}
	if fc.Server.RateLimitBurst > 0 {
		c.RateLimitBurst = fc.Server.RateLimitBurst
	}

	setString(&c.RecordBackend, fc.Store.Backend)
	setString(&c.SQLiteDBPath, fc.Store.Path)
	setString(&c.SeedDir, fc.Store.SeedDir)

	setString(&c.AMQPURL, fc.AMQP.URL)
	setString(&c.AMQPExchange, fc.AMQP.Exchange)
	setString(&c.AMQPQueue, fc.AMQP.Queue)

	if fc.Reports.CacheSize > 0 {
		c.ReportCacheSize = fc.Reports.CacheSize
	}
	if err := setDuration(&c.ReportCacheTTL, fc.Reports.CacheTTL); err != nil {
		return fmt.Errorf("parse config file %s: reports.cache_ttl: %w", path, err)
	}
	if err := setDuration(&c.ReportFlushEvery, fc.Reports.FlushEvery); err != nil {
		return fmt.Errorf("parse config file %s: reports.flush_every: %w", path, err)
	}
	setString(&c.ReportTimezone, fc.Reports.Timezone)
	if fc.Reports.DedupExpenses != nil {
		c.DedupExpenses = *fc.Reports.DedupExpenses
	}

	setString(&c.LogLevel, fc.Logging.Level)
	return nil
}

// AMQPEnabled reports whether ledger-change events should be consumed.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Location resolves ReportTimezone.
func (c *Config) Location() (*time.Location, error) {
	switch c.ReportTimezone {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.ReportTimezone, err)
	}
	return loc, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.RecordBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid record backend '%s': must be one of %v", c.RecordBackend, validBackends))
	}

	if c.RecordBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ReportCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid report cache size %d: must be at least 1", c.ReportCacheSize))
	}
	if c.ReportCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid report cache TTL %v: must be at least 1 second", c.ReportCacheTTL))
	}
	if c.ReportFlushEvery < 0 {
		errors = append(errors, fmt.Sprintf("invalid report flush interval %v: must not be negative", c.ReportFlushEvery))
	}
	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid report timezone '%s'", c.ReportTimezone))
	}

	if c.RateLimitRPS <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
