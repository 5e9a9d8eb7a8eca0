package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_FetchProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, ProductsPath, r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "123", pass)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(demoCatalog())
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, WithBasicAuth("admin", "123"))

	products, err := client.FetchProducts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, demoCatalog(), products)
}

func TestHTTPClient_FetchProducts_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL).FetchProducts(context.Background())

	assert.Error(t, err)
}

func TestHTTPClient_FetchProducts_InvalidBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>login</html>"))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL).FetchProducts(context.Background())

	assert.Error(t, err)
}

func TestHTTPClient_SubmitCheckout(t *testing.T) {
	var received CheckoutRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, CheckoutPath, r.URL.Path)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"receipt_id":"R123"}`))
	}))
	defer srv.Close()

	req := CheckoutRequest{
		Items:         []Line{{ID: "1", Name: "Widget", Price: 10, Qty: 2}},
		Customer:      "Ana",
		PaymentMethod: "card",
	}

	resp, err := NewHTTPClient(srv.URL).SubmitCheckout(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "R123", resp.ReceiptID)
	assert.True(t, resp.OK)
	assert.Equal(t, req, received)
}

func TestHTTPClient_SubmitCheckout_NilItemsSentAsEmptyArray(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"receipt_id":"R1"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL).SubmitCheckout(context.Background(), CheckoutRequest{PaymentMethod: "cash"})

	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw["items"]))
}

func TestHTTPClient_SubmitCheckout_NonSuccessIsGenericError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"items required"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL).SubmitCheckout(context.Background(), CheckoutRequest{})

	assert.ErrorIs(t, err, ErrProcessing)
}

func TestHTTPClient_SubmitCheckout_InvalidBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL).SubmitCheckout(context.Background(), CheckoutRequest{})

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrProcessing)
}
