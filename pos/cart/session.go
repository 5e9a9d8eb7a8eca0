package cart

import (
	"context"
	"log"
	"sync"

	"github.com/shopspring/decimal"
)

// Alerter exibe uma mensagem bloqueante para o caixa
type Alerter interface {
	Alert(message string)
}

// AlerterFunc adapta uma função para Alerter
type AlerterFunc func(message string)

func (f AlerterFunc) Alert(message string) {
	f(message)
}

// State é um snapshot imutável da sessão, usado para derivar a tela
type State struct {
	Query         string
	Products      []Product
	Lines         []Line
	Customer      string
	PaymentMethod string
	Processing    bool
	ShowConfirm   bool
	LastReceiptID string
}

// Filtered aplica a busca atual sobre o catálogo do snapshot
func (st State) Filtered() []Product {
	return Filter(st.Query, st.Products)
}

// Total soma preço x quantidade das linhas do snapshot
func (st State) Total() decimal.Decimal {
	return linesTotal(st.Lines)
}

// Option configura uma Session
type Option func(s *Session)

// WithCatalog injeta um catálogo pré-carregado; a sessão não busca o endpoint de produtos
func WithCatalog(products []Product) Option {
	return func(s *Session) {
		s.injected = true
		s.catalog = append([]Product{}, products...)
	}
}

// WithAlerter define como os erros de checkout são exibidos
func WithAlerter(alerter Alerter) Option {
	return func(s *Session) {
		s.alerter = alerter
	}
}

// Session mantém o catálogo, a busca, o carrinho e o fluxo de checkout de um caixa
type Session struct {
	mu sync.Mutex

	client  Client
	alerter Alerter

	injected bool
	catalog  []Product

	query         string
	products      []Product
	lines         []Line
	customer      string
	paymentMethod string
	processing    bool
	showConfirm   bool
	lastReceiptID string

	listeners []func(State)
}

// NewSession cria uma nova instância de Session
func NewSession(client Client, opts ...Option) *Session {
	s := &Session{
		client:        client,
		paymentMethod: DefaultPaymentMethod,
		products:      []Product{},
		lines:         []Line{},
		alerter: AlerterFunc(func(message string) {
			log.Printf("❌ %s", message)
		}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// OnChange registra um callback chamado após cada mudança de estado
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Init carrega o catálogo: injetado quando existir, senão via endpoint de produtos.
// Falhas viram catálogo vazio e nunca chegam ao caixa.
func (s *Session) Init(ctx context.Context) {
	s.mu.Lock()
	if s.injected {
		s.products = append([]Product{}, s.catalog...)
		s.mu.Unlock()
		s.notify()
		return
	}
	s.mu.Unlock()

	products, err := s.client.FetchProducts(ctx)
	if err != nil {
		log.Printf("ℹ️ %v | starting with an empty catalog", &CatalogLoadError{Err: err})
		products = nil
	}
	if products == nil {
		products = []Product{}
	}

	s.mu.Lock()
	s.products = products
	s.mu.Unlock()
	s.notify()
}

// SetQuery atualiza o texto de busca
func (s *Session) SetQuery(query string) {
	s.mu.Lock()
	s.query = query
	s.mu.Unlock()
	s.notify()
}

// SetCustomer atualiza o nome do cliente
func (s *Session) SetCustomer(name string) {
	s.mu.Lock()
	s.customer = name
	s.mu.Unlock()
	s.notify()
}

// SetPaymentMethod atualiza o método de pagamento
func (s *Session) SetPaymentMethod(method string) {
	s.mu.Lock()
	s.paymentMethod = method
	s.mu.Unlock()
	s.notify()
}

// DismissConfirm fecha a confirmação da última venda
func (s *Session) DismissConfirm() {
	s.mu.Lock()
	s.showConfirm = false
	s.mu.Unlock()
	s.notify()
}

// Filtered retorna os produtos que casam com a busca atual
func (s *Session) Filtered() []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Filter(s.query, s.products)
}

// MaxStock retorna o estoque do produto ou zero se não existir no catálogo
func (s *Session) MaxStock(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.findProduct(productID); ok {
		return p.Stock
	}
	return 0
}

// Add adiciona o produto ao carrinho. Uma linha existente só é incrementada
// enquanto a quantidade for menor que o estoque do produto.
func (s *Session) Add(product Product) {
	s.mu.Lock()
	changed := s.addLocked(product)
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// AddByID adiciona um produto do catálogo pelo id; retorna false se não existir
func (s *Session) AddByID(productID string) bool {
	s.mu.Lock()
	product, ok := s.findProduct(productID)
	changed := ok && s.addLocked(product)
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return ok
}

// Remove apaga a linha na posição index; índices fora do intervalo são ignorados
func (s *Session) Remove(index int) {
	s.mu.Lock()
	if index < 0 || index >= len(s.lines) {
		s.mu.Unlock()
		return
	}
	s.lines = append(s.lines[:index], s.lines[index+1:]...)
	s.mu.Unlock()
	s.notify()
}

// ClearCart esvazia o carrinho e volta cliente e pagamento ao padrão
func (s *Session) ClearCart() {
	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()
	s.notify()
}

// Total retorna a soma de preço x quantidade do carrinho
func (s *Session) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return linesTotal(s.lines)
}

// State retorna um snapshot da sessão
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Checkout envia o carrinho ao backend uma única vez.
// Chamadas durante um checkout em andamento são descartadas sem chamada de rede.
func (s *Session) Checkout(ctx context.Context) error {
	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		return ErrCheckoutInProgress
	}
	s.processing = true
	req := CheckoutRequest{
		Items:         append([]Line{}, s.lines...),
		Customer:      s.customer,
		PaymentMethod: s.paymentMethod,
	}
	s.mu.Unlock()
	s.notify()

	// processing é liberado mesmo se o client ou o alerter entrarem em panic
	defer func() {
		s.mu.Lock()
		s.processing = false
		s.mu.Unlock()
		s.notify()
	}()

	resp, err := s.client.SubmitCheckout(ctx, req)
	if err != nil {
		cerr := &CheckoutError{Err: err}
		s.alerter.Alert(cerr.AlertMessage())
		return cerr
	}

	s.mu.Lock()
	if resp != nil {
		s.lastReceiptID = resp.ReceiptID
	}
	s.showConfirm = true
	s.clearLocked()
	s.mu.Unlock()

	return nil
}

func (s *Session) addLocked(product Product) bool {
	for i := range s.lines {
		if s.lines[i].ID != product.ID {
			continue
		}
		if s.lines[i].Qty < product.Stock {
			s.lines[i].Qty++
			return true
		}
		return false
	}

	s.lines = append(s.lines, Line{
		ID:    product.ID,
		Name:  product.Name,
		Price: product.Price,
		Qty:   1,
	})
	return true
}

func (s *Session) clearLocked() {
	s.lines = []Line{}
	s.customer = ""
	s.paymentMethod = DefaultPaymentMethod
}

func (s *Session) findProduct(productID string) (Product, bool) {
	for _, p := range s.products {
		if p.ID == productID {
			return p, true
		}
	}
	return Product{}, false
}

func (s *Session) snapshotLocked() State {
	return State{
		Query:         s.query,
		Products:      append([]Product{}, s.products...),
		Lines:         append([]Line{}, s.lines...),
		Customer:      s.customer,
		PaymentMethod: s.paymentMethod,
		Processing:    s.processing,
		ShowConfirm:   s.showConfirm,
		LastReceiptID: s.lastReceiptID,
	}
}

func (s *Session) notify() {
	s.mu.Lock()
	listeners := append([]func(State){}, s.listeners...)
	state := s.snapshotLocked()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

func linesTotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Qty))))
	}
	return total
}
