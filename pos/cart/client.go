package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	ProductsPath = "/api/products"
	CheckoutPath = "/api/checkout"
)

// Client abstrai as chamadas ao backend de vendas
type Client interface {
	FetchProducts(ctx context.Context) ([]Product, error)
	SubmitCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error)
}

// HTTPClient implementa Client usando resty
type HTTPClient struct {
	rc *resty.Client
}

// ClientOption configura o cliente resty subjacente
type ClientOption func(rc *resty.Client)

// WithBasicAuth envia as credenciais do caixa em todas as requisições
func WithBasicAuth(username, password string) ClientOption {
	return func(rc *resty.Client) {
		rc.SetBasicAuth(username, password)
	}
}

// WithTransport substitui o RoundTripper (ex.: otelhttp.NewTransport)
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(rc *resty.Client) {
		rc.SetTransport(rt)
	}
}

// WithTimeout define um timeout por requisição; zero mantém sem timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(rc *resty.Client) {
		if timeout > 0 {
			rc.SetTimeout(timeout)
		}
	}
}

// NewHTTPClient cria uma nova instância de HTTPClient apontando para baseURL
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")

	for _, opt := range opts {
		opt(rc)
	}

	return &HTTPClient{rc: rc}
}

// FetchProducts busca o catálogo no endpoint de produtos
func (c *HTTPClient) FetchProducts(ctx context.Context) ([]Product, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		Get(ProductsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("products endpoint returned status %d", resp.StatusCode())
	}

	var products []Product
	if err := json.Unmarshal(resp.Body(), &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	return products, nil
}

// SubmitCheckout envia o carrinho para o endpoint de checkout.
// Qualquer status fora de 2xx vira ErrProcessing, independente do corpo.
func (c *HTTPClient) SubmitCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	if req.Items == nil {
		req.Items = []Line{}
	}

	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(CheckoutPath)
	if err != nil {
		return nil, err
	}

	if !resp.IsSuccess() {
		return nil, ErrProcessing
	}

	var out CheckoutResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("failed to decode checkout response: %w", err)
	}

	return &out, nil
}
