package cart

import "strings"

// Filter retorna os produtos cujo nome ou SKU contém a busca (sem diferenciar maiúsculas).
// Busca vazia retorna o catálogo inteiro.
func Filter(query string, products []Product) []Product {
	if query == "" {
		return products
	}

	q := strings.ToLower(query)
	filtered := make([]Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			(p.SKU != "" && strings.Contains(strings.ToLower(p.SKU), q)) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
