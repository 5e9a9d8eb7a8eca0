package main

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrReceiptNotFound = errors.New("receipt not found")
	ErrEmptyCart       = errors.New("checkout requires at least one item")
)

// DefaultProductName é usado quando um produto é criado sem nome
const DefaultProductName = "Nuevo producto"

// DefaultPaymentMethod é usado quando o checkout não informa o método de pagamento
const DefaultPaymentMethod = "cash"

// ReceiptStatus representa os possíveis status de um recibo
const (
	ReceiptStatusCompleted = "completed"
	ReceiptStatusVoided    = "voided"
)

// MovementType representa os tipos de movimentação de estoque
const (
	MovementTypeDecreased = "decreased"
	MovementTypeIncreased = "increased"
)

// Product representa um produto do inventário
type Product struct {
	ID       string  `json:"id" db:"id"`
	Name     string  `json:"name" db:"name"`
	SKU      string  `json:"sku" db:"sku"`
	Stock    int     `json:"stock" db:"stock"`
	Price    float64 `json:"price" db:"price"`
	Expiry   string  `json:"expiry" db:"expiry"`
	Category string  `json:"category" db:"category"`
}

// ProductInput carrega os campos de criação/edição; campos ausentes mantêm o valor atual
type ProductInput struct {
	Name     *string  `json:"name"`
	SKU      *string  `json:"sku"`
	Stock    *int     `json:"stock" binding:"omitempty,gte=0"`
	Price    *float64 `json:"price" binding:"omitempty,gte=0"`
	Expiry   *string  `json:"expiry"`
	Category *string  `json:"category"`
}

// NewProduct cria um produto a partir do input, com valores padrão para campos ausentes
func NewProduct(id string, in ProductInput) *Product {
	p := &Product{
		ID:   id,
		Name: DefaultProductName,
	}
	p.Apply(in)
	return p
}

// Apply sobrescreve somente os campos presentes no input
func (p *Product) Apply(in ProductInput) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.SKU != nil {
		p.SKU = *in.SKU
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Expiry != nil {
		p.Expiry = *in.Expiry
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
}

// SaleItem é uma linha do carrinho enviada no checkout
type SaleItem struct {
	ID    string  `json:"id" binding:"required"`
	Name  string  `json:"name"`
	Price float64 `json:"price" binding:"gte=0"`
	Qty   int     `json:"qty" binding:"required,gt=0"`
}

// CheckoutRequest representa a requisição de checkout do caixa
type CheckoutRequest struct {
	Items         []SaleItem `json:"items" binding:"dive"`
	Customer      string     `json:"customer"`
	PaymentMethod string     `json:"payment_method"`
}

// ReceiptItem é uma linha do recibo
type ReceiptItem struct {
	ProductID string  `json:"product_id" db:"product_id"`
	Name      string  `json:"name" db:"name"`
	Qty       int     `json:"qty" db:"qty"`
	Price     float64 `json:"price" db:"price"`
	Subtotal  float64 `json:"subtotal" db:"subtotal"`
}

// Receipt representa uma venda concluída
type Receipt struct {
	ID            string        `json:"id" db:"id"`
	DateTime      time.Time     `json:"datetime" db:"created_at"`
	Customer      string        `json:"customer" db:"customer"`
	PaymentMethod string        `json:"payment_method" db:"payment_method"`
	Items         []ReceiptItem `json:"items"`
	Total         float64       `json:"total" db:"total"`
	Status        string        `json:"status" db:"status"`
}

// NewReceipt cria uma nova instância de Receipt calculando subtotais e total (2 casas)
func NewReceipt(id string, req CheckoutRequest, now time.Time) *Receipt {
	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = DefaultPaymentMethod
	}

	total := decimal.Zero
	items := make([]ReceiptItem, 0, len(req.Items))
	for _, it := range req.Items {
		subtotal := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Qty)))
		total = total.Add(subtotal)
		items = append(items, ReceiptItem{
			ProductID: it.ID,
			Name:      it.Name,
			Qty:       it.Qty,
			Price:     it.Price,
			Subtotal:  subtotal.InexactFloat64(),
		})
	}

	return &Receipt{
		ID:            id,
		DateTime:      now,
		Customer:      req.Customer,
		PaymentMethod: paymentMethod,
		Items:         items,
		Total:         total.Round(2).InexactFloat64(),
		Status:        ReceiptStatusCompleted,
	}
}

// StockMovement registra uma baixa ou devolução de estoque ligada a um recibo
type StockMovement struct {
	ID             string    `json:"id" db:"id"`
	ProductID      string    `json:"product_id" db:"product_id"`
	ReceiptID      string    `json:"receipt_id" db:"receipt_id"`
	ChangeQuantity int       `json:"change_quantity" db:"change_quantity"`
	MovementType   string    `json:"movement_type" db:"movement_type"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// clampedDecrease retorna quanto pode ser baixado sem deixar o estoque negativo
func clampedDecrease(stock, qty int) int {
	if qty > stock {
		return stock
	}
	return qty
}
