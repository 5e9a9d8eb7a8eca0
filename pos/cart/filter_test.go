package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func demoCatalog() []Product {
	return []Product{
		{ID: "1", Name: "Paracetamol 500mg", SKU: "750100010001", Price: 5.50, Stock: 120},
		{ID: "2", Name: "Amoxicilina 250mg", SKU: "750100010002", Price: 8.75, Stock: 42},
		{ID: "3", Name: "Omeprazol 20mg", Price: 7.20, Stock: 12},
	}
}

func TestFilter_EmptyQueryReturnsAll(t *testing.T) {
	products := demoCatalog()

	assert.Equal(t, products, Filter("", products))
}

func TestFilter_MatchesNameCaseInsensitive(t *testing.T) {
	// Act
	got := Filter("AMOXI", demoCatalog())

	// Assert
	assert.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestFilter_MatchesSKU(t *testing.T) {
	got := Filter("010001", demoCatalog())

	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestFilter_MatchesSKUWhenNameDoesNot(t *testing.T) {
	// Arrange
	products := []Product{
		{ID: "1", Name: "Paracetamol 500mg", SKU: "750100010001"},
		{ID: "7", Name: "Jarabe infantil", SKU: "PX-99"},
	}

	// Act
	got := Filter("px-9", products)

	// Assert
	require.Len(t, got, 1)
	assert.Equal(t, "7", got[0].ID)
}

func TestFilter_ProductWithoutSKUOnlyMatchesName(t *testing.T) {
	got := Filter("7501", demoCatalog())

	assert.Len(t, got, 2)
	for _, p := range got {
		assert.NotEqual(t, "3", p.ID)
	}
}

func TestFilter_ResultIsSubsetOfCatalog(t *testing.T) {
	products := demoCatalog()

	for _, q := range []string{"mg", "z", "xyz", "250", "o"} {
		for _, p := range Filter(q, products) {
			assert.Contains(t, products, p, "query %q", q)
		}
	}
}

func TestFilter_NoMatch(t *testing.T) {
	assert.Empty(t, Filter("ibuprofeno", demoCatalog()))
}
