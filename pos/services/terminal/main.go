package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/matheusmosca/pos-terminal/pos/cart"
)

// Config reúne a configuração do terminal do caixa
type Config struct {
	BaseURL     string
	Username    string
	Password    string
	CatalogFile string
	Timeout     time.Duration
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	opts := []cart.Option{
		cart.WithAlerter(cart.AlerterFunc(func(message string) {
			fmt.Fprintf(os.Stderr, "⚠️  %s\n", message)
		})),
	}
	if cfg.CatalogFile != "" {
		products, err := loadCatalog(cfg.CatalogFile)
		if err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
		log.Printf("ℹ️ Using injected catalog %s (%d products)", cfg.CatalogFile, len(products))
		opts = append(opts, cart.WithCatalog(products))
	}

	client := cart.NewHTTPClient(cfg.BaseURL,
		cart.WithBasicAuth(cfg.Username, cfg.Password),
		cart.WithTransport(otelhttp.NewTransport(http.DefaultTransport)),
		cart.WithTimeout(cfg.Timeout),
	)
	session := cart.NewSession(client, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	term := NewTerminal(session, os.Stdout)
	session.OnChange(term.Render)

	log.Printf("🚀 POS terminal connected to %s", cfg.BaseURL)
	session.Init(ctx)

	if err := term.Run(ctx, os.Stdin); err != nil {
		log.Fatalf("Terminal stopped: %v", err)
	}
}

func loadConfig() (*Config, error) {
	// .env é opcional
	_ = godotenv.Load()

	timeout, err := time.ParseDuration(getEnv("POS_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid POS_TIMEOUT: %w", err)
	}

	return &Config{
		BaseURL:     getEnv("POS_BASE_URL", "http://localhost:8080"),
		Username:    getEnv("POS_USER", "admin"),
		Password:    getEnv("POS_PASSWORD", "123"),
		CatalogFile: getEnv("POS_CATALOG_FILE", ""),
		Timeout:     timeout,
	}, nil
}

// loadCatalog lê um catálogo JSON (mesmo formato de /api/products)
func loadCatalog(path string) ([]cart.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var products []cart.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to decode catalog file: %w", err)
	}
	return products, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
