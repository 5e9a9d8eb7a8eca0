package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config reúne a configuração do serviço lida do ambiente
type Config struct {
	Port              string
	ServiceName       string
	Username          string
	Password          string
	Store             string
	RunMigrations     bool
	CheckoutMode      string
	DTMServer         string
	ServiceURL        string
	LowStockThreshold int
	OTelEnabled       bool
	OTLPEndpoint      string

	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
}

// Modos de armazenamento e de checkout suportados
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	CheckoutModeLocal = "local"
	CheckoutModeSaga  = "saga"
)

func loadConfig() (*Config, error) {
	// .env é opcional
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		ServiceName:  getEnv("SERVICE_NAME", "sales-service"),
		Username:     getEnv("POS_USER", "admin"),
		Password:     getEnv("POS_PASSWORD", "123"),
		Store:        getEnv("STORE", StoreMemory),
		CheckoutMode: getEnv("CHECKOUT_MODE", CheckoutModeLocal),
		DTMServer:    getEnv("DTM_SERVER", "http://dtm:36789/api/dtmsvr"),
		ServiceURL:   getEnv("SERVICE_URL", "http://sales-service:8080"),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),

		DatabaseHost:     getEnv("DATABASE_HOST", "localhost"),
		DatabasePort:     getEnv("DATABASE_PORT", "5432"),
		DatabaseUser:     getEnv("DATABASE_USER", "root"),
		DatabasePassword: getEnv("DATABASE_PASSWORD", "pass"),
		DatabaseName:     getEnv("DATABASE_NAME", "pos_db"),
	}

	var err error
	if cfg.LowStockThreshold, err = strconv.Atoi(getEnv("LOW_STOCK_THRESHOLD", "10")); err != nil {
		return nil, fmt.Errorf("invalid LOW_STOCK_THRESHOLD: %w", err)
	}
	if cfg.RunMigrations, err = strconv.ParseBool(getEnv("MIGRATIONS", "true")); err != nil {
		return nil, fmt.Errorf("invalid MIGRATIONS: %w", err)
	}
	if cfg.OTelEnabled, err = strconv.ParseBool(getEnv("OTEL_ENABLED", "true")); err != nil {
		return nil, fmt.Errorf("invalid OTEL_ENABLED: %w", err)
	}

	switch cfg.Store {
	case StoreMemory, StorePostgres:
	default:
		return nil, fmt.Errorf("unknown STORE %q", cfg.Store)
	}
	switch cfg.CheckoutMode {
	case CheckoutModeLocal, CheckoutModeSaga:
	default:
		return nil, fmt.Errorf("unknown CHECKOUT_MODE %q", cfg.CheckoutMode)
	}

	return cfg, nil
}

// databaseDSN monta a DSN aceita tanto pelo lib/pq quanto pelo pgx
func (cfg *Config) databaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DatabaseUser,
		cfg.DatabasePassword,
		cfg.DatabaseHost,
		cfg.DatabasePort,
		cfg.DatabaseName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
