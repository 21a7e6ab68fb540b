// Package config loads server configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// ListenAddr is the HTTP bind address, e.g. ":8080".
	ListenAddr string
	// DatabaseURL is a lib/pq connection string. Empty selects the
	// in-memory store.
	DatabaseURL string
	// KafkaBrokers is a comma-separated broker list. Empty disables event
	// publishing.
	KafkaBrokers []string
	// KafkaTopic is the topic ledger-changed events are published to.
	KafkaTopic string
}

// Load reads the environment, after loading .env if present.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:  getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		KafkaTopic:  getenv("KAFKA_TOPIC", "ledger_changed"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
