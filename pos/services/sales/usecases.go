package main

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// topProductsLimit é a quantidade de produtos no ranking do relatório
const topProductsLimit = 5

// reportDays é a janela de dias garantida no gráfico de vendas
const reportDays = 7

// Dashboard resume o estado do PDV
type Dashboard struct {
	TotalItems    int     `json:"total_items"`
	LowStock      int     `json:"low_stock"`
	TodaySales    float64 `json:"today_sales"`
	ReceiptsCount int     `json:"receipts_count"`
}

// Reports agrega vendas por dia e os produtos mais vendidos
type Reports struct {
	Labels    []string  `json:"labels"`
	Values    []float64 `json:"values"`
	TopLabels []string  `json:"top_labels"`
	TopValues []int     `json:"top_values"`
}

// SalesUseCase contém a lógica de negócio do PDV
type SalesUseCase struct {
	repository        Repository
	orchestrator      CheckoutOrchestrator
	metrics           *SalesMetrics
	lowStockThreshold int
	now               func() time.Time
}

// NewSalesUseCase cria uma nova instância de SalesUseCase
func NewSalesUseCase(
	repository Repository,
	orchestrator CheckoutOrchestrator,
	metrics *SalesMetrics,
	lowStockThreshold int,
) *SalesUseCase {
	return &SalesUseCase{
		repository:        repository,
		orchestrator:      orchestrator,
		metrics:           metrics,
		lowStockThreshold: lowStockThreshold,
		now:               time.Now,
	}
}

func (uc *SalesUseCase) ListProducts(ctx context.Context) ([]Product, error) {
	products, err := uc.repository.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// CreateProduct cria um produto com id novo e valores padrão para campos ausentes
func (uc *SalesUseCase) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	product := NewProduct(uuid.New().String(), in)
	if err := uc.repository.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	log.Printf("✅ Product created: %s (%s)", product.ID, product.Name)
	return product, nil
}

// UpdateProduct aplica uma edição parcial ao produto
func (uc *SalesUseCase) UpdateProduct(ctx context.Context, productID string, in ProductInput) (*Product, error) {
	product, err := uc.repository.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	product.Apply(in)
	if err := uc.repository.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}

	log.Printf("✅ Product updated: %s", product.ID)
	return product, nil
}

// DeleteProduct remove o produto e retorna quantos registros foram apagados
func (uc *SalesUseCase) DeleteProduct(ctx context.Context, productID string) (int64, error) {
	deleted, err := uc.repository.DeleteProduct(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete product: %w", err)
	}

	log.Printf("ℹ️ Product delete: %s | Deleted=%d", productID, deleted)
	return deleted, nil
}

// Checkout registra a venda e retorna o id do recibo
func (uc *SalesUseCase) Checkout(ctx context.Context, req CheckoutRequest) (string, error) {
	if len(req.Items) == 0 {
		return "", ErrEmptyCart
	}

	receipt := NewReceipt(uuid.New().String(), req, uc.now())
	log.Printf("➡️ [CHECKOUT] ReceiptID: %s | Items: %d | Total: %.2f", receipt.ID, len(receipt.Items), receipt.Total)

	if err := uc.orchestrator.Checkout(ctx, receipt, req.Items); err != nil {
		log.Printf("❌ Checkout failed: ReceiptID=%s | %v", receipt.ID, err)
		uc.metrics.RecordCheckout(ctx, false, 0)
		return "", err
	}

	uc.metrics.RecordCheckout(ctx, true, receipt.Total)
	log.Printf("✅ Checkout completed: %s", receipt.ID)
	return receipt.ID, nil
}

// DecreaseStock é a ação SAGA que baixa o estoque
func (uc *SalesUseCase) DecreaseStock(ctx context.Context, req SagaActionRequest) error {
	log.Printf("➡️ [DECREASE STOCK] TraceID: %s | ReceiptID: %s", req.TraceID, req.ReceiptID)

	if err := uc.repository.DecreaseStock(ctx, req.ReceiptID, req.Items); err != nil {
		log.Printf("❌ [DECREASE] | ReceiptID=%s Failed: %v", req.ReceiptID, err)
		return fmt.Errorf("failed to decrease stock: %w", err)
	}

	log.Printf("✅ [DECREASE] Success: ReceiptID=%s", req.ReceiptID)
	return nil
}

// CompensateStock devolve o estoque baixado (compensação)
func (uc *SalesUseCase) CompensateStock(ctx context.Context, req SagaActionRequest) error {
	log.Printf("↩️ [COMPENSATE STOCK] TraceID: %s | ReceiptID: %s", req.TraceID, req.ReceiptID)

	if err := uc.repository.IncreaseStock(ctx, req.ReceiptID); err != nil {
		log.Printf("❌ [COMPENSATE] | ReceiptID=%s Failed: %v", req.ReceiptID, err)
		return fmt.Errorf("failed to compensate stock: %w", err)
	}

	log.Printf("✅ [COMPENSATE] Success: ReceiptID=%s", req.ReceiptID)
	return nil
}

// CreateReceipt é a ação SAGA que grava o recibo
func (uc *SalesUseCase) CreateReceipt(ctx context.Context, req SagaActionRequest) error {
	log.Printf("➡️ [CREATE RECEIPT] TraceID: %s | ReceiptID: %s", req.TraceID, req.ReceiptID)

	receipt := req.Receipt
	if receipt == nil {
		receipt = NewReceipt(req.ReceiptID, CheckoutRequest{Items: req.Items}, uc.now())
	}
	receipt.ID = req.ReceiptID

	if err := uc.repository.CreateReceipt(ctx, receipt); err != nil {
		log.Printf("❌ Failed to create receipt: %v", err)
		return fmt.Errorf("failed to create receipt: %w", err)
	}

	log.Printf("✅ Receipt created: %s", req.ReceiptID)
	return nil
}

// VoidReceipt anula o recibo (compensação)
func (uc *SalesUseCase) VoidReceipt(ctx context.Context, req SagaActionRequest) error {
	log.Printf("↩️ [VOID RECEIPT] ReceiptID: %s", req.ReceiptID)

	if err := uc.repository.VoidReceipt(ctx, req.ReceiptID); err != nil {
		log.Printf("❌ Failed to void receipt: %v", err)
		return fmt.Errorf("failed to void receipt: %w", err)
	}

	log.Printf("♻️  Receipt voided: %s", req.ReceiptID)
	return nil
}

func (uc *SalesUseCase) ListReceipts(ctx context.Context) ([]Receipt, error) {
	receipts, err := uc.repository.ListReceipts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	return receipts, nil
}

func (uc *SalesUseCase) GetReceipt(ctx context.Context, receiptID string) (*Receipt, error) {
	return uc.repository.GetReceipt(ctx, receiptID)
}

// Dashboard calcula os indicadores da tela inicial
func (uc *SalesUseCase) Dashboard(ctx context.Context) (*Dashboard, error) {
	products, err := uc.repository.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	receipts, err := uc.repository.ListReceipts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}

	d := &Dashboard{ReceiptsCount: len(receipts)}
	for _, p := range products {
		d.TotalItems += p.Stock
		if p.Stock <= uc.lowStockThreshold {
			d.LowStock++
		}
	}

	today := dateKey(uc.now())
	todaySales := decimal.Zero
	for _, rc := range receipts {
		if dateKey(rc.DateTime) == today {
			todaySales = todaySales.Add(decimal.NewFromFloat(rc.Total))
		}
	}
	d.TodaySales = todaySales.Round(2).InexactFloat64()

	return d, nil
}

// Reports agrega vendas por dia (sempre incluindo os últimos 7 dias) e o top 5 por quantidade
func (uc *SalesUseCase) Reports(ctx context.Context) (*Reports, error) {
	receipts, err := uc.repository.ListReceipts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}

	byDay := map[string]decimal.Decimal{}
	for _, rc := range receipts {
		key := dateKey(rc.DateTime)
		byDay[key] = byDay[key].Add(decimal.NewFromFloat(rc.Total))
	}
	now := uc.now()
	for i := reportDays - 1; i >= 0; i-- {
		key := dateKey(now.AddDate(0, 0, -i))
		if _, ok := byDay[key]; !ok {
			byDay[key] = decimal.Zero
		}
	}

	rep := &Reports{
		Labels:    make([]string, 0, len(byDay)),
		Values:    make([]float64, 0, len(byDay)),
		TopLabels: []string{},
		TopValues: []int{},
	}
	for key := range byDay {
		rep.Labels = append(rep.Labels, key)
	}
	sort.Strings(rep.Labels)
	for _, key := range rep.Labels {
		rep.Values = append(rep.Values, byDay[key].Round(2).InexactFloat64())
	}

	// ordem de primeira aparição desempata o ranking
	qtyByName := map[string]int{}
	var names []string
	for _, rc := range receipts {
		for _, it := range rc.Items {
			if _, ok := qtyByName[it.Name]; !ok {
				names = append(names, it.Name)
			}
			qtyByName[it.Name] += it.Qty
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		return qtyByName[names[i]] > qtyByName[names[j]]
	})
	if len(names) > topProductsLimit {
		names = names[:topProductsLimit]
	}
	for _, name := range names {
		rep.TopLabels = append(rep.TopLabels, name)
		rep.TopValues = append(rep.TopValues, qtyByName[name])
	}

	return rep, nil
}

func dateKey(t time.Time) string {
	return t.Local().Format(time.DateOnly)
}
