package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository define a interface para operações de persistência do PDV
type Repository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, productID string) (*Product, error)
	CreateProduct(ctx context.Context, product *Product) error
	UpdateProduct(ctx context.Context, product *Product) error
	DeleteProduct(ctx context.Context, productID string) (int64, error)

	// CommitSale baixa o estoque e grava o recibo na mesma transação
	CommitSale(ctx context.Context, receipt *Receipt, items []SaleItem) error

	// DecreaseStock baixa o estoque dos itens (limitado a zero); idempotente por receiptID
	DecreaseStock(ctx context.Context, receiptID string, items []SaleItem) error

	// IncreaseStock devolve o que foi baixado para receiptID (compensação); idempotente
	IncreaseStock(ctx context.Context, receiptID string) error

	// CreateReceipt grava o recibo; recibo já existente não é duplicado
	CreateReceipt(ctx context.Context, receipt *Receipt) error
	VoidReceipt(ctx context.Context, receiptID string) error
	GetReceipt(ctx context.Context, receiptID string) (*Receipt, error)

	// ListReceipts retorna os recibos concluídos, do mais recente para o mais antigo
	ListReceipts(ctx context.Context) ([]Receipt, error)
}

// PostgresRepository implementa Repository usando PostgreSQL
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository cria uma nova instância de PostgresRepository
func NewPostgresRepository(db *pgxpool.Pool) Repository {
	return &PostgresRepository{
		db: db,
	}
}

func (r *PostgresRepository) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, sku, stock, price, expiry, category
		FROM products
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Stock, &p.Price, &p.Expiry, &p.Category); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (r *PostgresRepository) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var p Product
	err := r.db.QueryRow(ctx, `
		SELECT id, name, sku, stock, price, expiry, category
		FROM products WHERE id = $1
	`, productID).Scan(&p.ID, &p.Name, &p.SKU, &p.Stock, &p.Price, &p.Expiry, &p.Category)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) CreateProduct(ctx context.Context, p *Product) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO products (id, name, sku, stock, price, expiry, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Name, p.SKU, p.Stock, p.Price, p.Expiry, p.Category)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateProduct(ctx context.Context, p *Product) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE products
		SET name = $2, sku = $3, stock = $4, price = $5, expiry = $6, category = $7, updated_at = NOW()
		WHERE id = $1
	`, p.ID, p.Name, p.SKU, p.Stock, p.Price, p.Expiry, p.Category)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteProduct(ctx context.Context, productID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete product: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CommitSale executa baixa de estoque e gravação do recibo com lock pessimista nos produtos
func (r *PostgresRepository) CommitSale(ctx context.Context, receipt *Receipt, items []SaleItem) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := decreaseStockTx(ctx, tx, receipt.ID, items); err != nil {
		return err
	}
	if err := insertReceiptTx(ctx, tx, receipt); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit sale: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DecreaseStock(ctx context.Context, receiptID string, items []SaleItem) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	exists, err := movementExistsTx(ctx, tx, receiptID, MovementTypeDecreased)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := decreaseStockTx(ctx, tx, receiptID, items); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit stock decrease: %w", err)
	}
	return nil
}

func (r *PostgresRepository) IncreaseStock(ctx context.Context, receiptID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	exists, err := movementExistsTx(ctx, tx, receiptID, MovementTypeIncreased)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	rows, err := tx.Query(ctx, `
		SELECT product_id, change_quantity
		FROM stock_movements
		WHERE receipt_id = $1 AND movement_type = $2
		FOR UPDATE
	`, receiptID, MovementTypeDecreased)
	if err != nil {
		return fmt.Errorf("failed to query movements: %w", err)
	}
	var decreased []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ProductID, &m.ChangeQuantity); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan movement: %w", err)
		}
		decreased = append(decreased, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}

	for _, m := range decreased {
		if _, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2
		`, m.ChangeQuantity, m.ProductID); err != nil {
			return fmt.Errorf("failed to increase stock: %w", err)
		}
		if err := insertMovementTx(ctx, tx, m.ProductID, receiptID, m.ChangeQuantity, MovementTypeIncreased); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit stock compensation: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateReceipt(ctx context.Context, receipt *Receipt) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertReceiptTx(ctx, tx, receipt); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit receipt: %w", err)
	}
	return nil
}

func (r *PostgresRepository) VoidReceipt(ctx context.Context, receiptID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE receipts SET status = $1 WHERE id = $2 AND status != $1
	`, ReceiptStatusVoided, receiptID)
	if err != nil {
		return fmt.Errorf("failed to void receipt: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetReceipt(ctx context.Context, receiptID string) (*Receipt, error) {
	var rc Receipt
	err := r.db.QueryRow(ctx, `
		SELECT id, created_at, customer, payment_method, total, status
		FROM receipts WHERE id = $1 AND status = $2
	`, receiptID, ReceiptStatusCompleted).Scan(&rc.ID, &rc.DateTime, &rc.Customer, &rc.PaymentMethod, &rc.Total, &rc.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReceiptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	items, err := r.receiptItems(ctx, []string{rc.ID})
	if err != nil {
		return nil, err
	}
	rc.Items = items[rc.ID]
	if rc.Items == nil {
		rc.Items = []ReceiptItem{}
	}
	return &rc, nil
}

func (r *PostgresRepository) ListReceipts(ctx context.Context) ([]Receipt, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, created_at, customer, payment_method, total, status
		FROM receipts
		WHERE status = $1
		ORDER BY created_at DESC
	`, ReceiptStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	receipts := []Receipt{}
	ids := []string{}
	for rows.Next() {
		var rc Receipt
		if err := rows.Scan(&rc.ID, &rc.DateTime, &rc.Customer, &rc.PaymentMethod, &rc.Total, &rc.Status); err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, rc)
		ids = append(ids, rc.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	items, err := r.receiptItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range receipts {
		receipts[i].Items = items[receipts[i].ID]
		if receipts[i].Items == nil {
			receipts[i].Items = []ReceiptItem{}
		}
	}
	return receipts, nil
}

func (r *PostgresRepository) receiptItems(ctx context.Context, receiptIDs []string) (map[string][]ReceiptItem, error) {
	items := make(map[string][]ReceiptItem, len(receiptIDs))
	if len(receiptIDs) == 0 {
		return items, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT receipt_id, product_id, name, qty, price, subtotal
		FROM receipt_items
		WHERE receipt_id = ANY($1)
		ORDER BY receipt_id, position
	`, receiptIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipt items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var receiptID string
		var it ReceiptItem
		if err := rows.Scan(&receiptID, &it.ProductID, &it.Name, &it.Qty, &it.Price, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan receipt item: %w", err)
		}
		items[receiptID] = append(items[receiptID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

// decreaseStockTx baixa o estoque item a item com SELECT FOR UPDATE; ids desconhecidos são ignorados
func decreaseStockTx(ctx context.Context, tx pgx.Tx, receiptID string, items []SaleItem) error {
	for _, it := range items {
		var stock int
		err := tx.QueryRow(ctx, `
			SELECT stock FROM products WHERE id = $1 FOR UPDATE
		`, it.ID).Scan(&stock)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to get product with lock: %w", err)
		}

		change := clampedDecrease(stock, it.Qty)
		if _, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2
		`, change, it.ID); err != nil {
			return fmt.Errorf("failed to decrease stock: %w", err)
		}

		if err := insertMovementTx(ctx, tx, it.ID, receiptID, change, MovementTypeDecreased); err != nil {
			return err
		}
	}
	return nil
}

func insertMovementTx(ctx context.Context, tx pgx.Tx, productID, receiptID string, change int, movementType string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO stock_movements (id, product_id, receipt_id, change_quantity, movement_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New().String(), productID, receiptID, change, movementType, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert movement record: %w", err)
	}
	return nil
}

func movementExistsTx(ctx context.Context, tx pgx.Tx, receiptID, movementType string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM stock_movements
			WHERE receipt_id = $1 AND movement_type = $2
		)
	`, receiptID, movementType).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error to check idempotency: %w", err)
	}
	return exists, nil
}

func insertReceiptTx(ctx context.Context, tx pgx.Tx, receipt *Receipt) error {
	tag, err := tx.Exec(ctx, `
		INSERT INTO receipts (id, created_at, customer, payment_method, total, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, receipt.ID, receipt.DateTime, receipt.Customer, receipt.PaymentMethod, receipt.Total, receipt.Status)
	if err != nil {
		return fmt.Errorf("failed to insert receipt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	for i, it := range receipt.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO receipt_items (receipt_id, position, product_id, name, qty, price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, receipt.ID, i, it.ProductID, it.Name, it.Qty, it.Price, it.Subtotal); err != nil {
			return fmt.Errorf("failed to insert receipt item: %w", err)
		}
	}
	return nil
}
