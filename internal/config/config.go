package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Secrets (from .env)
	APIKey          string
	CORSAllowOrigin string
	WebhookURL      string
	ServiceName     string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Snapshot store
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Account registry
	AccountsPath string

	// Calendar defaults
	DayStartHour  int
	TZOffsetHours int

	// Metadata cache
	CacheTTLSeconds int

	// Drawdown monitor
	MonitorEnabled         bool
	MonitorIntervalMinutes int
	AlertDrawdownPercent   float64
	AlertRearmPercent      float64

	// Simulator defaults
	SimPaths       int
	SimPersistence float64
	SimHorizonDays int
	SimWorkers     int

	// HTTP server
	HTTPPort int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Secrets
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),
		WebhookURL:      envStr("WEBHOOK_URL", ""),
		ServiceName:     envStr("SERVICE_NAME", "PairStatsAnalytics"),

		// Database
		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "pairstats_analytics"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		// Snapshot store
		RedisAddr:     envStr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),

		// Account registry
		AccountsPath: envStr("ACCOUNTS_PATH", "accounts.yaml"),

		// Calendar defaults
		DayStartHour:  envInt("DAY_START_HOUR", 0),
		TZOffsetHours: envInt("TZ_OFFSET_HOURS", 0),

		// Metadata cache
		CacheTTLSeconds: envInt("CACHE_TTL_SECONDS", 60),

		// Drawdown monitor
		MonitorEnabled:         envBool("MONITOR_ENABLED", false),
		MonitorIntervalMinutes: envInt("MONITOR_INTERVAL_MINUTES", 15),
		AlertDrawdownPercent:   envFloat("ALERT_DRAWDOWN_PERCENT", 10),
		AlertRearmPercent:      envFloat("ALERT_REARM_PERCENT", 2),

		// Simulator defaults
		SimPaths:       envInt("SIM_PATHS", 2000),
		SimPersistence: envFloat("SIM_PERSISTENCE", 0.2),
		SimHorizonDays: envInt("SIM_HORIZON_DAYS", 365),
		SimWorkers:     envInt("SIM_WORKERS", 4),

		// HTTP server
		HTTPPort: envInt("HTTP_PORT", 8080),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.DBUser == "" {
		errs = append(errs, "DB_USER is required")
	}
	if c.DBName == "" {
		errs = append(errs, "DB_NAME is required")
	}
	if c.AccountsPath == "" {
		errs = append(errs, "ACCOUNTS_PATH is required")
	}
	if c.DayStartHour < 0 || c.DayStartHour > 23 {
		errs = append(errs, "DAY_START_HOUR must be between 0 and 23")
	}
	if c.SimPersistence <= 0 || c.SimPersistence > 1 {
		errs = append(errs, "SIM_PERSISTENCE must be in (0, 1]")
	}
	if c.MonitorEnabled && c.WebhookURL == "" {
		errs = append(errs, "WEBHOOK_URL is required when MONITOR_ENABLED is true")
	}
	if c.APIKey == "" {
		fmt.Println("[WARN] API_KEY not set - REST API has no authentication")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== Pair Analytics Service Configuration ===")
	fmt.Printf("Database: %s@%s:%d/%s\n", c.DBUser, c.DBHost, c.DBPort, c.DBName)
	fmt.Printf("Snapshot Store: %s (db %d)\n", c.RedisAddr, c.RedisDB)
	fmt.Printf("Account Registry: %s\n", c.AccountsPath)
	fmt.Println("--------------------------------------")
	fmt.Println("Calendar:")
	fmt.Printf("  Day Start Hour: %02d:00\n", c.DayStartHour)
	fmt.Printf("  TZ Offset: %+d hours\n", c.TZOffsetHours)
	fmt.Printf("  Metadata Cache TTL: %ds\n", c.CacheTTLSeconds)
	fmt.Println("--------------------------------------")
	fmt.Println("Drawdown Monitor:")
	if c.MonitorEnabled {
		fmt.Printf("  Interval: every %d minutes\n", c.MonitorIntervalMinutes)
		fmt.Printf("  Alert Threshold: -%.1f%%\n", c.AlertDrawdownPercent)
		fmt.Printf("  Re-arm Band: %.1f%%\n", c.AlertRearmPercent)
	} else {
		fmt.Println("  disabled")
	}
	fmt.Println("--------------------------------------")
	fmt.Println("Simulator Defaults:")
	fmt.Printf("  Paths: %d\n", c.SimPaths)
	fmt.Printf("  Persistence: %.2f\n", c.SimPersistence)
	fmt.Printf("  Horizon: %d days\n", c.SimHorizonDays)
	fmt.Printf("  Workers: %d\n", c.SimWorkers)
	fmt.Println("--------------------------------------")
	fmt.Printf("HTTP Port: %d\n", c.HTTPPort)
	fmt.Printf("API Auth: %s\n", boolLabel(c.APIKey != "", "bearer token", "disabled"))
	fmt.Println("============================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
