// apps/go-server/internal/config/config.go
//
// Process configuration, read from the environment (a .env file is loaded by
// main via godotenv before Load runs).
//
// Environment variables:
//   PORT               listen port (5175)
//   LOG_LEVEL          zerolog level (info)
//   DB_PATH            SQLite file (./data/app.db)
//   CLIENT_ORIGIN      CORS + websocket origin (http://localhost:5173)
//   JWT_SECRET         HS256 secret (dev_secret_change_me)
//   JWT_EXPIRES_DAYS   token lifetime in days (14)
//   COOKIE_NAME        auth cookie (tilematch_token)
//   NODE_ENV           "production" enables Secure/SameSite=None cookies
//   DAILY_SALT         salt of the daily board seed (local_dev_salt)
//   MISMATCH_DELAY_MS  how long a mismatched pair stays face up (1000)
//   SYMBOLS_FILE       optional symbol set file

package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries every setting of the server.
type Config struct {
	Port           string
	LogLevel       string
	DBPath         string
	ClientOrigin   string
	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	Production     bool
	DailySalt      string
	MismatchDelay  time.Duration
	SymbolsFile    string
}

// Load reads the environment, applying defaults for unset or malformed values.
func Load() Config {
	return Config{
		Port:           getEnv("PORT", "5175"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DBPath:         getEnv("DB_PATH", "./data/app.db"),
		ClientOrigin:   getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		JWTSecret:      getEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiresDays: getEnvInt("JWT_EXPIRES_DAYS", 14),
		CookieName:     getEnv("COOKIE_NAME", "tilematch_token"),
		Production:     os.Getenv("NODE_ENV") == "production",
		DailySalt:      getEnv("DAILY_SALT", "local_dev_salt"),
		MismatchDelay:  time.Duration(getEnvInt("MISMATCH_DELAY_MS", 1000)) * time.Millisecond,
		SymbolsFile:    os.Getenv("SYMBOLS_FILE"),
	}
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
