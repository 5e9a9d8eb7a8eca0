package cart

import (
	"errors"
	"fmt"
)

// AlertPrefix é o prefixo fixo das mensagens de erro mostradas ao caixa
const AlertPrefix = "Error al procesar la venta: "

var (
	// ErrProcessing é retornado para qualquer resposta de checkout sem sucesso
	ErrProcessing = errors.New("Error al procesar la venta")

	// ErrCheckoutInProgress é retornado quando já existe um checkout em andamento
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// CatalogLoadError indica falha ao buscar ou decodificar o catálogo
type CatalogLoadError struct {
	Err error
}

func (e *CatalogLoadError) Error() string {
	return fmt.Sprintf("failed to load catalog: %v", e.Err)
}

func (e *CatalogLoadError) Unwrap() error {
	return e.Err
}

// CheckoutError indica falha de rede, de status ou de parse durante o checkout
type CheckoutError struct {
	Err error
}

func (e *CheckoutError) Error() string {
	return e.Err.Error()
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

// AlertMessage monta a mensagem exibida ao caixa
func (e *CheckoutError) AlertMessage() string {
	return AlertPrefix + e.Err.Error()
}
