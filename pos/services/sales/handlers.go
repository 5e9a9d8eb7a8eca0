package main

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/dtm-labs/client/dtmcli"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SalesUseCaseInterface define a interface para o use case
type SalesUseCaseInterface interface {
	ListProducts(ctx context.Context) ([]Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, productID string, in ProductInput) (*Product, error)
	DeleteProduct(ctx context.Context, productID string) (int64, error)
	Checkout(ctx context.Context, req CheckoutRequest) (string, error)
	DecreaseStock(ctx context.Context, req SagaActionRequest) error
	CompensateStock(ctx context.Context, req SagaActionRequest) error
	CreateReceipt(ctx context.Context, req SagaActionRequest) error
	VoidReceipt(ctx context.Context, req SagaActionRequest) error
	ListReceipts(ctx context.Context) ([]Receipt, error)
	GetReceipt(ctx context.Context, receiptID string) (*Receipt, error)
	Dashboard(ctx context.Context) (*Dashboard, error)
	Reports(ctx context.Context) (*Reports, error)
}

// SalesHandler contém os handlers HTTP
type SalesHandler struct {
	useCase     SalesUseCaseInterface
	tracer      trace.Tracer
	serviceName string
}

// NewSalesHandler cria uma nova instância de SalesHandler
func NewSalesHandler(useCase SalesUseCaseInterface, tracer trace.Tracer, serviceName string) *SalesHandler {
	return &SalesHandler{
		useCase:     useCase,
		tracer:      tracer,
		serviceName: serviceName,
	}
}

// ListProducts retorna o catálogo
func (h *SalesHandler) ListProducts(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "list_products")
	defer span.End()

	products, err := h.useCase.ListProducts(ctx)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(attribute.Int("products", len(products)))
	c.JSON(http.StatusOK, products)
}

// CreateProduct cadastra um novo produto
func (h *SalesHandler) CreateProduct(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "create_product")
	defer span.End()

	var in ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.useCase.CreateProduct(ctx, in)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(attribute.String("product_id", product.ID))
	c.JSON(http.StatusOK, gin.H{"ok": true, "item": product})
}

// UpdateProduct edita parcialmente um produto
func (h *SalesHandler) UpdateProduct(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "update_product")
	defer span.End()

	productID := c.Param("id")
	span.SetAttributes(attribute.String("product_id", productID))

	var in ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.useCase.UpdateProduct(ctx, productID, in)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "item": product})
}

// DeleteProduct remove um produto
func (h *SalesHandler) DeleteProduct(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "delete_product")
	defer span.End()

	productID := c.Param("id")
	span.SetAttributes(attribute.String("product_id", productID))

	deleted, err := h.useCase.DeleteProduct(ctx, productID)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": deleted})
}

// Checkout registra a venda do carrinho
func (h *SalesHandler) Checkout(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "checkout")
	defer span.End()

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.Int("items", len(req.Items)),
		attribute.String("payment_method", req.PaymentMethod),
	)

	receiptID, err := h.useCase.Checkout(ctx, req)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}

	span.SetAttributes(attribute.String("receipt_id", receiptID))
	c.JSON(http.StatusOK, gin.H{"ok": true, "receipt_id": receiptID})
}

// ListReceipts retorna os recibos, do mais recente para o mais antigo
func (h *SalesHandler) ListReceipts(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "list_receipts")
	defer span.End()

	receipts, err := h.useCase.ListReceipts(ctx)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, receipts)
}

// GetReceipt retorna um recibo para impressão
func (h *SalesHandler) GetReceipt(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "get_receipt")
	defer span.End()

	receiptID := c.Param("id")
	span.SetAttributes(attribute.String("receipt_id", receiptID))

	receipt, err := h.useCase.GetReceipt(ctx, receiptID)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, receipt)
}

// Dashboard retorna os indicadores da tela inicial
func (h *SalesHandler) Dashboard(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "dashboard")
	defer span.End()

	d, err := h.useCase.Dashboard(ctx)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, d)
}

// Reports retorna as séries dos gráficos de vendas
func (h *SalesHandler) Reports(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "reports")
	defer span.End()

	rep, err := h.useCase.Reports(ctx)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rep)
}

// DecreaseStock é o endpoint da ação SAGA para baixar estoque
func (h *SalesHandler) DecreaseStock(c *gin.Context) {
	h.sagaAction(c, "decrease_stock", h.useCase.DecreaseStock)
}

// CompensateStock é o endpoint da compensação SAGA do estoque
func (h *SalesHandler) CompensateStock(c *gin.Context) {
	h.sagaAction(c, "compensate_stock", h.useCase.CompensateStock)
}

// CreateReceipt é o endpoint da ação SAGA para gravar o recibo
func (h *SalesHandler) CreateReceipt(c *gin.Context) {
	h.sagaAction(c, "create_receipt", h.useCase.CreateReceipt)
}

// VoidReceipt é o endpoint da compensação SAGA do recibo
func (h *SalesHandler) VoidReceipt(c *gin.Context) {
	h.sagaAction(c, "void_receipt", h.useCase.VoidReceipt)
}

func (h *SalesHandler) sagaAction(c *gin.Context, operationName string, action func(context.Context, SagaActionRequest) error) {
	var req SagaActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// payload inválido nunca vai passar: FAILURE faz o DTM compensar em vez de repetir
		c.JSON(http.StatusConflict, gin.H{"dtm_result": dtmcli.ResultFailure, "error": err.Error()})
		return
	}

	ctx, span := startSpanFromPayload(c.Request.Context(), h.tracer, operationName, req)
	defer span.End()

	span.SetAttributes(
		attribute.String("receipt_id", req.ReceiptID),
		attribute.String("trace_id", req.TraceID),
		attribute.String("dtm_gid", c.Query("gid")),
	)

	if err := action(ctx, req); err != nil {
		span.RecordError(err)
		log.Printf("ℹ️ [%s] FAILED for ReceiptID=%s : %s", operationName, req.ReceiptID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"dtm_result": dtmcli.ResultSuccess})
}

// HealthCheck verifica a saúde do serviço
func (h *SalesHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.serviceName,
	})
}

// respondError traduz os erros de domínio para status HTTP
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrReceiptNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
