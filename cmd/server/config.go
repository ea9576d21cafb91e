package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"casino-engine/internal/db"
	"casino-engine/internal/redis"
	"casino-engine/internal/server/websocket"
)

// Config holds all configuration values for the application
type Config struct {
	DBConfig    db.Config
	RedisConfig redis.Config

	// Server configuration
	ServerPort     string
	AdminAddr      string
	Environment    string
	AllowedOrigins []string

	// Authentication
	JWTSecret string

	// Room defaults
	DefaultCredits  int
	RoomIdleTimeout time.Duration
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// LoadConfig loads configuration from environment variables
func LoadConfig() Config {
	// Load .env file if it exists
	godotenv.Load()

	env := getEnv("ENV", "development")
	return Config{
		DBConfig: db.Config{
			Driver:     getEnv("DB_DRIVER", "mysql"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "3306"),
			User:       getEnv("DB_USER", "root"),
			Password:   getEnv("DB_PASSWORD", ""),
			DBName:     getEnv("DB_NAME", "casino"),
			SQLitePath: getEnv("SQLITE_PATH", ""),
			Verbose:    env == "development",
		},
		RedisConfig: redis.Config{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		AdminAddr:       getEnv("ADMIN_ADDR", "127.0.0.1:9090"),
		Environment:     env,
		AllowedOrigins:  websocket.AllowedOriginsFromEnv(),
		JWTSecret:       getEnv("JWT_SECRET", "secret"),
		DefaultCredits:  getEnvInt("DEFAULT_CREDITS", 1000),
		RoomIdleTimeout: time.Duration(getEnvInt("ROOM_IDLE_TIMEOUT", 30)) * time.Second,
	}
}

// getEnv retrieves an environment variable or returns a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
