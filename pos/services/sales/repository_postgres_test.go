package main

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgresRepository(t *testing.T) Repository {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("pos_db"),
		postgres.WithUsername("root"),
		postgres.WithPassword("pass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, runMigrations(dsn))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewPostgresRepository(pool)
}

func TestPostgresRepository_SeededCatalog(t *testing.T) {
	repo := setupPostgresRepository(t)

	products, err := repo.ListProducts(context.Background())

	require.NoError(t, err)
	assert.Len(t, products, 5)
}

func TestPostgresRepository_CommitSale(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := setupPostgresRepository(t)
	items := []SaleItem{
		{ID: "3", Name: "Omeprazol 20mg", Price: 7.20, Qty: 20},
		{ID: "unknown", Name: "Ghost", Price: 1, Qty: 1},
	}
	receipt := NewReceipt("r-1", CheckoutRequest{Items: items, Customer: "Ana"}, time.Now())

	// Act
	err := repo.CommitSale(ctx, receipt, items)

	// Assert
	require.NoError(t, err)

	p, err := repo.GetProduct(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)

	stored, err := repo.GetReceipt(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, 145.0, stored.Total)
	assert.Equal(t, "Ana", stored.Customer)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "Omeprazol 20mg", stored.Items[0].Name)
}

func TestPostgresRepository_SagaStockCompensation(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := setupPostgresRepository(t)
	items := []SaleItem{{ID: "5", Qty: 5}}

	// Act
	require.NoError(t, repo.DecreaseStock(ctx, "r-2", items))
	require.NoError(t, repo.DecreaseStock(ctx, "r-2", items))
	afterDecrease, err := repo.GetProduct(ctx, "5")
	require.NoError(t, err)

	require.NoError(t, repo.IncreaseStock(ctx, "r-2"))
	require.NoError(t, repo.IncreaseStock(ctx, "r-2"))
	afterCompensation, err := repo.GetProduct(ctx, "5")
	require.NoError(t, err)

	// Assert
	assert.Equal(t, 45, afterDecrease.Stock)
	assert.Equal(t, 50, afterCompensation.Stock)
}

func TestPostgresRepository_ReceiptLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := setupPostgresRepository(t)
	now := time.Now()

	require.NoError(t, repo.CreateReceipt(ctx, &Receipt{ID: "old", DateTime: now.Add(-time.Hour), PaymentMethod: "cash", Total: 1, Status: ReceiptStatusCompleted}))
	require.NoError(t, repo.CreateReceipt(ctx, &Receipt{ID: "new", DateTime: now, PaymentMethod: "cash", Total: 2, Status: ReceiptStatusCompleted}))
	require.NoError(t, repo.CreateReceipt(ctx, &Receipt{ID: "new", DateTime: now, PaymentMethod: "cash", Total: 2, Status: ReceiptStatusCompleted}))

	receipts, err := repo.ListReceipts(ctx)
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	assert.Equal(t, "new", receipts[0].ID)

	require.NoError(t, repo.VoidReceipt(ctx, "new"))
	_, err = repo.GetReceipt(ctx, "new")
	assert.ErrorIs(t, err, ErrReceiptNotFound)
}
