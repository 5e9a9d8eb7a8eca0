package main

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// seedProducts é o catálogo de demonstração da farmácia
func seedProducts() []Product {
	return []Product{
		{ID: "1", Name: "Paracetamol 500mg", SKU: "750100010001", Stock: 120, Price: 5.50, Expiry: "2026-01-15", Category: "Analgésico"},
		{ID: "2", Name: "Amoxicilina 250mg", SKU: "750100010002", Stock: 42, Price: 8.75, Expiry: "2025-09-10", Category: "Antibiótico"},
		{ID: "3", Name: "Omeprazol 20mg", SKU: "750100010003", Stock: 12, Price: 7.20, Expiry: "2025-12-01", Category: "Antiácido"},
		{ID: "4", Name: "Loratadina 10mg", SKU: "750100010004", Stock: 0, Price: 6.80, Expiry: "2027-02-01", Category: "Antialérgico"},
		{ID: "5", Name: "Ibuprofeno 400mg", SKU: "750100010005", Stock: 50, Price: 4.50, Expiry: "2026-05-20", Category: "Analgésico"},
	}
}

// MemoryRepository implementa Repository em memória (modo demo e testes)
type MemoryRepository struct {
	mu        sync.RWMutex
	products  []Product
	receipts  []Receipt
	movements []StockMovement
}

// NewMemoryRepository cria uma nova instância de MemoryRepository com os produtos informados
func NewMemoryRepository(products []Product) *MemoryRepository {
	return &MemoryRepository{
		products: append([]Product{}, products...),
	}
}

func (r *MemoryRepository) ListProducts(_ context.Context) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Product{}, r.products...), nil
}

func (r *MemoryRepository) GetProduct(_ context.Context, productID string) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(productID)
	if i < 0 {
		return nil, ErrProductNotFound
	}
	p := r.products[i]
	return &p, nil
}

func (r *MemoryRepository) CreateProduct(_ context.Context, product *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products = append(r.products, *product)
	return nil
}

func (r *MemoryRepository) UpdateProduct(_ context.Context, product *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(product.ID)
	if i < 0 {
		return ErrProductNotFound
	}
	r.products[i] = *product
	return nil
}

func (r *MemoryRepository) DeleteProduct(_ context.Context, productID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.products[:0]
	var deleted int64
	for _, p := range r.products {
		if p.ID == productID {
			deleted++
			continue
		}
		kept = append(kept, p)
	}
	r.products = kept
	return deleted, nil
}

func (r *MemoryRepository) CommitSale(_ context.Context, receipt *Receipt, items []SaleItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decreaseLocked(receipt.ID, items)
	r.insertReceiptLocked(receipt)
	return nil
}

func (r *MemoryRepository) DecreaseStock(_ context.Context, receiptID string, items []SaleItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.movementExistsLocked(receiptID, MovementTypeDecreased) {
		return nil
	}
	r.decreaseLocked(receiptID, items)
	return nil
}

func (r *MemoryRepository) IncreaseStock(_ context.Context, receiptID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.movementExistsLocked(receiptID, MovementTypeIncreased) {
		return nil
	}

	for _, m := range append([]StockMovement{}, r.movements...) {
		if m.ReceiptID != receiptID || m.MovementType != MovementTypeDecreased {
			continue
		}
		if i := r.indexOf(m.ProductID); i >= 0 {
			r.products[i].Stock += m.ChangeQuantity
		}
		r.recordLocked(m.ProductID, receiptID, m.ChangeQuantity, MovementTypeIncreased)
	}
	return nil
}

func (r *MemoryRepository) CreateReceipt(_ context.Context, receipt *Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertReceiptLocked(receipt)
	return nil
}

func (r *MemoryRepository) VoidReceipt(_ context.Context, receiptID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.receipts {
		if r.receipts[i].ID == receiptID {
			r.receipts[i].Status = ReceiptStatusVoided
		}
	}
	return nil
}

func (r *MemoryRepository) GetReceipt(_ context.Context, receiptID string) (*Receipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rc := range r.receipts {
		if rc.ID == receiptID && rc.Status == ReceiptStatusCompleted {
			return &rc, nil
		}
	}
	return nil, ErrReceiptNotFound
}

func (r *MemoryRepository) ListReceipts(_ context.Context) ([]Receipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	receipts := []Receipt{}
	for _, rc := range r.receipts {
		if rc.Status == ReceiptStatusCompleted {
			receipts = append(receipts, rc)
		}
	}
	return receipts, nil
}

func (r *MemoryRepository) indexOf(productID string) int {
	for i, p := range r.products {
		if p.ID == productID {
			return i
		}
	}
	return -1
}

func (r *MemoryRepository) decreaseLocked(receiptID string, items []SaleItem) {
	for _, it := range items {
		i := r.indexOf(it.ID)
		if i < 0 {
			continue
		}
		change := clampedDecrease(r.products[i].Stock, it.Qty)
		r.products[i].Stock -= change
		r.recordLocked(it.ID, receiptID, change, MovementTypeDecreased)
	}
}

func (r *MemoryRepository) recordLocked(productID, receiptID string, change int, movementType string) {
	r.movements = append(r.movements, StockMovement{
		ID:             uuid.New().String(),
		ProductID:      productID,
		ReceiptID:      receiptID,
		ChangeQuantity: change,
		MovementType:   movementType,
		CreatedAt:      time.Now(),
	})
}

func (r *MemoryRepository) movementExistsLocked(receiptID, movementType string) bool {
	for _, m := range r.movements {
		if m.ReceiptID == receiptID && m.MovementType == movementType {
			return true
		}
	}
	return false
}

// insertReceiptLocked insere no início (mais recente primeiro) e ignora ids repetidos
func (r *MemoryRepository) insertReceiptLocked(receipt *Receipt) {
	for _, rc := range r.receipts {
		if rc.ID == receipt.ID {
			return
		}
	}
	r.receipts = append([]Receipt{*receipt}, r.receipts...)
}
