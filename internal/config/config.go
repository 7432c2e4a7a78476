package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	StoreDriver string
	StoreDSN    string
	KeyPrefix   string

	AdminID       string
	AdminName     string
	AdminEmail    string
	AdminPassword string

	SessionSecret string
	SessionTTL    time.Duration

	LoginRate  float64
	LoginBurst int
	BcryptCost int

	LogLevel string
}

func LoadConfig() Config {
	err := godotenv.Load()
	if err != nil {
		log.Println(".env file not found, using defaults")
	}
	if os.Getenv("SESSION_SECRET") == "" {
		log.Println("SESSION_SECRET not set, using default key")
	}

	return Config{
		StoreDriver: getEnv("STORE_DRIVER", "sqlite"),
		StoreDSN:    os.Getenv("STORE_DSN"),
		KeyPrefix:   getEnv("STORE_KEY_PREFIX", "aurelia_"),

		AdminID:       getEnv("ADMIN_ID", "admin-001"),
		AdminName:     getEnv("ADMIN_NAME", "Aurelia Admin"),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@aurelia.com"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),

		SessionSecret: getEnv("SESSION_SECRET", "default-session-secret-change-in-production"),
		SessionTTL:    getDuration("SESSION_TTL", 24*time.Hour),

		LoginRate:  getFloat("LOGIN_RATE", 5),
		LoginBurst: getInt("LOGIN_BURST", 10),
		BcryptCost: getInt("BCRYPT_COST", bcrypt.DefaultCost),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("invalid %s=%q, using %v", key, value, fallback)
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, value, fallback)
		return fallback
	}
	return d
}
