// Package config loads the daemon configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config carries everything the daemon needs to wire itself up.
type Config struct {
	Port        string
	DataDir     string
	BackupDir   string
	StoreDriver string // "file" or "mongo"
	MongoURI    string
	MongoDB     string

	AdminUser     string
	AdminPassword string
	SessionSecret string
	PaymentSecret string
}

// Load reads a .env file if one exists and then the environment. Every
// value has a development default so a bare `medibookd` starts up.
func Load() Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load(".env")

	return Config{
		Port:        getEnv("MEDIBOOK_PORT", "8080"),
		DataDir:     getEnv("MEDIBOOK_DATA_DIR", "./data"),
		BackupDir:   getEnv("MEDIBOOK_BACKUP_DIR", "./backups"),
		StoreDriver: getEnv("MEDIBOOK_STORE_DRIVER", "file"),
		MongoURI:    getEnv("MEDIBOOK_MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MEDIBOOK_MONGO_DB", "medibook"),

		AdminUser:     getEnv("MEDIBOOK_ADMIN_USER", "admin"),
		AdminPassword: getEnv("MEDIBOOK_ADMIN_PASSWORD", "admin"),
		SessionSecret: getEnv("MEDIBOOK_SESSION_SECRET", "medibook-dev-secret"),
		PaymentSecret: getEnv("MEDIBOOK_PAYMENT_SECRET", "medibook-dev-gateway"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
