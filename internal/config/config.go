package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string

	// WeekLengthDays controls the operational week span used when a Week row
	// is materialized: 7 (Sunday-anchored full week) or 5 (Mon-Fri production
	// scheduling). The week-number formula is unaffected.
	WeekLengthDays int
}

func Load() *Config {
	godotenv.Load()

	cfg := &Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:    getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=mealcost port=5432 sslmode=disable"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		CORSOrigins:    getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		WeekLengthDays: 7,
	}

	switch getEnv("WEEK_LENGTH_DAYS", "7") {
	case "7":
		cfg.WeekLengthDays = 7
	case "5":
		cfg.WeekLengthDays = 5
	default:
		logrus.Fatal("WEEK_LENGTH_DAYS must be 5 or 7")
	}

	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET environment variable is not set, refusing to start")
	}
	if len(cfg.JWTSecret) < 32 {
		logrus.Fatal("JWT_SECRET must be at least 32 characters")
	}
	if cfg.DatabaseDSN == "host=localhost user=postgres password=postgres dbname=mealcost port=5432 sslmode=disable" {
		logrus.Warn("DATABASE_DSN is the default value, set your own Postgres connection for production")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
