package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver    string
	DSN         string
	DBPath      string
	Port        string
	AppEnv      string
	LogLevel    string
	JWTSecret   string
	CostWorkers int
	SeedDemo    bool
}

const devSecret = "costeo-dev-secret"

// Load reads .env when present and then the process environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults.
func FromEnv(getenv func(string) string) Config {
	get := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				return v
			}
		}
		return ""
	}
	or := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}

	c := Config{
		DBDriver:  strings.ToLower(or(get("DB_DRIVER"), "postgres")),
		DBPath:    or(get("DB_PATH"), "costeo.db"),
		Port:      or(get("PORT"), "8080"),
		AppEnv:    strings.ToLower(get("APP_ENV")),
		LogLevel:  strings.ToLower(or(get("LOG_LEVEL"), "info")),
		JWTSecret: or(get("JWT_SECRET", "SECRET_KEY"), devSecret),
	}

	c.DSN = get("DB_DSN")
	if c.DSN == "" && c.DBDriver == "postgres" {
		c.DSN = "host=" + or(get("DB_HOST"), "localhost") +
			" user=" + or(get("DB_USER", "POSTGRES_USER"), "postgres") +
			" password=" + or(get("DB_PASSWORD", "POSTGRES_PASSWORD"), "postgres") +
			" dbname=" + or(get("DB_NAME", "POSTGRES_DB"), "costeo") +
			" port=" + or(get("DB_PORT"), "5432") +
			" sslmode=" + or(get("DB_SSLMODE"), "disable")
	}

	c.CostWorkers = 4
	if n, err := strconv.Atoi(get("COST_WORKERS")); err == nil && n > 0 {
		c.CostWorkers = n
	}
	c.SeedDemo, _ = strconv.ParseBool(get("SEED_DEMO"))
	return c
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

func (c Config) UsingDevSecret() bool { return c.JWTSecret == devSecret }
