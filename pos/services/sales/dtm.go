package main

import (
	"context"
	"fmt"
	"log"

	"github.com/dtm-labs/client/dtmcli"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Endpoints das ações SAGA do checkout
const (
	sagaStockDecreasePath   = "/api/saga/stock/decrease"
	sagaStockCompensatePath = "/api/saga/stock/compensate"
	sagaReceiptCreatePath   = "/api/saga/receipts/create"
	sagaReceiptVoidPath     = "/api/saga/receipts/void"
)

// SagaActionRequest é o payload enviado pelo DTM para as ações SAGA
type SagaActionRequest struct {
	ReceiptID string     `json:"receipt_id" binding:"required"`
	Items     []SaleItem `json:"items" binding:"dive"`
	Receipt   *Receipt   `json:"receipt,omitempty"`
	// Manual trace context propagation (DTM doesn't propagate W3C headers)
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

// CheckoutOrchestrator abstrai como uma venda é efetivada
type CheckoutOrchestrator interface {
	Checkout(ctx context.Context, receipt *Receipt, items []SaleItem) error
}

// LocalCheckoutOrchestrator efetiva a venda numa única transação do repositório
type LocalCheckoutOrchestrator struct {
	repository Repository
}

// NewLocalCheckoutOrchestrator cria uma nova instância de LocalCheckoutOrchestrator
func NewLocalCheckoutOrchestrator(repository Repository) *LocalCheckoutOrchestrator {
	return &LocalCheckoutOrchestrator{repository: repository}
}

func (o *LocalCheckoutOrchestrator) Checkout(ctx context.Context, receipt *Receipt, items []SaleItem) error {
	if err := o.repository.CommitSale(ctx, receipt, items); err != nil {
		return fmt.Errorf("failed to commit sale: %w", err)
	}
	return nil
}

// DTMSagaOrchestrator efetiva a venda como SAGA no DTM (estoque -> recibo)
type DTMSagaOrchestrator struct {
	dtmServer  string
	serviceURL string
}

// NewDTMSagaOrchestrator cria uma nova instância do orquestrador SAGA
func NewDTMSagaOrchestrator(dtmServer, serviceURL string) *DTMSagaOrchestrator {
	return &DTMSagaOrchestrator{
		dtmServer:  dtmServer,
		serviceURL: serviceURL,
	}
}

// Checkout submete a SAGA e espera o resultado para responder ao caixa
func (so *DTMSagaOrchestrator) Checkout(ctx context.Context, receipt *Receipt, items []SaleItem) error {
	var traceID, spanID string
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		traceID = span.SpanContext().TraceID().String()
		spanID = span.SpanContext().SpanID().String()
	}

	gid, err := genGid(so.dtmServer)
	if err != nil {
		return err
	}

	_, span := createDTMSagaSpan(ctx, "checkout", gid)
	defer span.End()

	log.Printf("🚀 Starting SAGA | TraceID: %s | GID: %s | ReceiptID: %s", traceID, gid, receipt.ID)

	saga := so.buildSaga(gid, SagaActionRequest{
		ReceiptID: receipt.ID,
		Items:     items,
		Receipt:   receipt,
		TraceID:   traceID,
		SpanID:    spanID,
	})

	if err := saga.Submit(); err != nil {
		span.RecordError(err)
		log.Printf("❌ SAGA failed: %v", err)
		return fmt.Errorf("failed to process checkout: %w", err)
	}

	log.Printf("✅ SAGA finished - GID: %s, ReceiptID: %s", gid, receipt.ID)
	return nil
}

func (so *DTMSagaOrchestrator) buildSaga(gid string, payload SagaActionRequest) *dtmcli.Saga {
	saga := dtmcli.NewSaga(so.dtmServer, gid).
		Add(so.serviceURL+sagaStockDecreasePath, so.serviceURL+sagaStockCompensatePath, &payload).
		Add(so.serviceURL+sagaReceiptCreatePath, so.serviceURL+sagaReceiptVoidPath, &payload)

	// o caixa só recebe o receipt_id depois que a SAGA terminar
	saga.WaitResult = true
	return saga
}

// genGid pede um gid ao DTM sem deixar o panic de MustGenGid derrubar o request
func genGid(dtmServer string) (gid string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to generate gid: %v", r)
		}
	}()
	return dtmcli.MustGenGid(dtmServer), nil
}

// createDTMSagaSpan cria um span específico para operações SAGA do DTM
func createDTMSagaSpan(ctx context.Context, operationName string, gid string) (context.Context, trace.Span) {
	tracer := otel.Tracer("dtm-saga")
	ctx, span := tracer.Start(ctx, "dtm."+operationName)

	span.SetAttributes(
		attribute.String("dtm.gid", gid),
		attribute.String("dtm.operation", operationName),
		attribute.String("component", "dtm-coordinator"),
	)

	return ctx, span
}

// startSpanFromPayload cria um span filho ligado ao trace propagado no payload
func startSpanFromPayload(ctx context.Context, tracer trace.Tracer, operationName string, req SagaActionRequest) (context.Context, trace.Span) {
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		return tracer.Start(ctx, operationName)
	}

	if req.TraceID != "" && req.SpanID != "" {
		parsedTraceID, _ := trace.TraceIDFromHex(req.TraceID)
		parsedSpanID, _ := trace.SpanIDFromHex(req.SpanID)

		spanContext := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    parsedTraceID,
			SpanID:     parsedSpanID,
			TraceFlags: trace.FlagsSampled,
			Remote:     true,
		})

		ctx = trace.ContextWithSpanContext(ctx, spanContext)
	}

	return tracer.Start(ctx, operationName)
}
