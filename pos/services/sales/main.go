package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize OpenTelemetry
	if cfg.OTelEnabled {
		tp, err := initTracer(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Printf("Error shutting down tracer: %v", err)
			}
		}()

		mp, err := initMetrics(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize metrics: %v", err)
		}
		defer func() {
			if err := mp.Shutdown(context.Background()); err != nil {
				log.Printf("Error shutting down meter: %v", err)
			}
		}()
	}

	// Initialize storage
	var repository Repository
	switch cfg.Store {
	case StorePostgres:
		dbPool, err := initDB(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer dbPool.Close()

		if cfg.RunMigrations {
			if err := runMigrations(cfg.databaseDSN()); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}

		repository = NewPostgresRepository(dbPool)
	default:
		log.Println("ℹ️ Using in-memory store with demo catalog")
		repository = NewMemoryRepository(seedProducts())
	}

	// Initialize dependencies
	var orchestrator CheckoutOrchestrator
	switch cfg.CheckoutMode {
	case CheckoutModeSaga:
		orchestrator = NewDTMSagaOrchestrator(cfg.DTMServer, cfg.ServiceURL)
	default:
		orchestrator = NewLocalCheckoutOrchestrator(repository)
	}

	metrics, err := NewSalesMetrics(otel.Meter(cfg.ServiceName))
	if err != nil {
		log.Fatalf("Failed to initialize sales metrics: %v", err)
	}

	useCase := NewSalesUseCase(repository, orchestrator, metrics, cfg.LowStockThreshold)
	handler := NewSalesHandler(useCase, otel.Tracer(cfg.ServiceName), cfg.ServiceName)

	r := newRouter(handler, cfg)

	log.Printf("🚀 Sales Service listening on port %s | Store=%s | Checkout=%s", cfg.Port, cfg.Store, cfg.CheckoutMode)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newRouter registra as rotas do PDV; /api exige login do caixa, /api/saga é chamado pelo DTM
func newRouter(handler *SalesHandler, cfg *Config) *gin.Engine {
	r := gin.Default()
	if cfg.OTelEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}

	// Health check
	r.GET("/health", handler.HealthCheck)

	api := r.Group("/api", gin.BasicAuth(gin.Accounts{cfg.Username: cfg.Password}))
	api.GET("/products", handler.ListProducts)
	api.GET("/inventory", handler.ListProducts)
	api.POST("/inventory", handler.CreateProduct)
	api.PUT("/inventory/:id", handler.UpdateProduct)
	api.DELETE("/inventory/:id", handler.DeleteProduct)
	api.POST("/checkout", handler.Checkout)
	api.GET("/receipts", handler.ListReceipts)
	api.GET("/receipts/:id", handler.GetReceipt)
	api.GET("/dashboard", handler.Dashboard)
	api.GET("/reports", handler.Reports)

	// SAGA action endpoints
	r.POST(sagaStockDecreasePath, handler.DecreaseStock)
	r.POST(sagaStockCompensatePath, handler.CompensateStock)
	r.POST(sagaReceiptCreatePath, handler.CreateReceipt)
	r.POST(sagaReceiptVoidPath, handler.VoidReceipt)

	return r
}

func initDB(cfg *Config) (*pgxpool.Pool, error) {
	dsn := cfg.databaseDSN() + "&pool_max_conns=10&pool_min_conns=2"

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Configure connection pool
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Wait for database to be ready
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			log.Println("✅ Connected to pos database with connection pool")
			return pool, nil
		}
		log.Printf("⏳ Waiting for database... (%d/30)", i+1)
		time.Sleep(1 * time.Second)
	}

	pool.Close()
	return nil, fmt.Errorf("failed to connect to database after 30 attempts")
}
