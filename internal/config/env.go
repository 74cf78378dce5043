package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// ClientEnv configures the storefront client.
type ClientEnv struct {
	APIBaseURL string
	StatePath  string
}

func LoadClientEnv() ClientEnv {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Println(".env not loaded:", err)
	}

	return ClientEnv{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		StatePath:  getEnv("STOREFRONT_STATE", defaultStatePath()),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "storefront-state.json"
	}
	return filepath.Join(dir, "urbanharvest", "storefront.json")
}
