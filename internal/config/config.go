// Package config loads application configuration from environment
// variables.  A .env file in the working directory is read first when
// present; real environment variables always win over it.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // APP_ENV (dev, test, prod)
	Port           string // APP_PORT
	LogLevel       string // LOG_LEVEL
	DBUser         string // DB_USER
	DBPass         string // DB_PASS (optional)
	DBHost         string // DB_HOST
	DBPort         string // DB_PORT
	DBName         string // DB_NAME
	DBMaxOpen      int    // DB_MAX_OPEN_CONNS
	DBMaxIdle      int    // DB_MAX_IDLE_CONNS
	MigrateOnStart bool   // MIGRATE_ON_START
	JWTSecret      string // JWT_SECRET
	AccessTTLMin   int    // ACCESS_TOKEN_TTL_MIN
	RefreshTTLDays int    // REFRESH_TOKEN_TTL_DAYS
	BcryptCost     int    // BCRYPT_COST
	// MaterialCheckCron is the cron spec of the daily low-stock scan.
	MaterialCheckCron string
	TokenCleanupCron  string        // TOKEN_CLEANUP_CRON
	TokenRetention    time.Duration // TOKEN_RETENTION
}

// Load reads configuration values from the environment.  Required
// variables are enforced by must() and a missing value terminates the
// process.
func Load() Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	return Config{
		Env:               must("APP_ENV"),
		Port:              must("APP_PORT"),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		DBUser:            must("DB_USER"),
		DBPass:            os.Getenv("DB_PASS"),
		DBHost:            must("DB_HOST"),
		DBPort:            must("DB_PORT"),
		DBName:            must("DB_NAME"),
		DBMaxOpen:         envInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdle:         envInt("DB_MAX_IDLE_CONNS", 25),
		MigrateOnStart:    envBool("MIGRATE_ON_START", true),
		JWTSecret:         must("JWT_SECRET"),
		AccessTTLMin:      mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:    mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:        mustInt("BCRYPT_COST"),
		MaterialCheckCron: envStr("MATERIAL_CHECK_CRON", "0 6 * * *"),
		TokenCleanupCron:  envStr("TOKEN_CLEANUP_CRON", "30 3 * * *"),
		TokenRetention:    envDur("TOKEN_RETENTION", 7*24*time.Hour),
	}
}

// IsProd reports whether the service runs in production mode.
func (c Config) IsProd() bool { return c.Env == "prod" || c.Env == "production" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
