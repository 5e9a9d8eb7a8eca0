package cart

// DefaultPaymentMethod é o método de pagamento usado quando o caixa não escolhe outro
const DefaultPaymentMethod = "cash"

// Product representa um produto do catálogo carregado na sessão
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	SKU      string  `json:"sku,omitempty"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	Expiry   string  `json:"expiry,omitempty"`
	Category string  `json:"category,omitempty"`
}

// Line representa uma linha do carrinho (um produto e sua quantidade)
type Line struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Qty   int     `json:"qty"`
}

// CheckoutRequest é o corpo enviado para o endpoint de checkout
type CheckoutRequest struct {
	Items         []Line `json:"items"`
	Customer      string `json:"customer"`
	PaymentMethod string `json:"payment_method"`
}

// CheckoutResponse é a resposta de sucesso do endpoint de checkout
type CheckoutResponse struct {
	OK        bool   `json:"ok"`
	ReceiptID string `json:"receipt_id"`
}
