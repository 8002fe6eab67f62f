package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type APIConfig struct {
	Addr               string
	DatabaseURL        string
	AdminPassword      string
	RestockInterval    time.Duration
	RestockDelay       time.Duration
	DecayInterval      time.Duration
	DecayIdleAfter     time.Duration
	StartupSeedCatalog bool
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("SHOP_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:               addr,
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AdminPassword:      strings.TrimSpace(os.Getenv("SHOP_ADMIN_PASSWORD")),
		RestockInterval:    envDurationDefault("SHOP_RESTOCK_INTERVAL", 2*time.Second),
		RestockDelay:       envDurationDefault("SHOP_RESTOCK_DELAY", 15*time.Second),
		DecayInterval:      envDurationDefault("SHOP_DECAY_INTERVAL", 5*time.Second),
		DecayIdleAfter:     envDurationDefault("SHOP_DECAY_IDLE_AFTER", 10*time.Second),
		StartupSeedCatalog: envBoolDefault("SHOP_STARTUP_SEED_CATALOG", true),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.AdminPassword == "" {
		return cfg, fmt.Errorf("SHOP_ADMIN_PASSWORD is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	_ = godotenv.Load()
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("SHOPCTL_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
