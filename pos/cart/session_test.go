package cart

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient simula o backend de vendas
type MockClient struct {
	mock.Mock
}

func (m *MockClient) FetchProducts(ctx context.Context) ([]Product, error) {
	args := m.Called(ctx)
	products, _ := args.Get(0).([]Product)
	return products, args.Error(1)
}

func (m *MockClient) SubmitCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*CheckoutResponse)
	return resp, args.Error(1)
}

type recordingAlerter struct {
	mu       sync.Mutex
	messages []string
}

func (a *recordingAlerter) Alert(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
}

func widget() Product {
	return Product{ID: "1", Name: "Widget", SKU: "W1", Price: 10, Stock: 2}
}

func newWidgetSession(t *testing.T, client Client, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithCatalog([]Product{widget()})}, opts...)
	s := NewSession(client, opts...)
	s.Init(context.Background())
	return s
}

func TestInit_UsesInjectedCatalog(t *testing.T) {
	// Arrange
	client := new(MockClient)

	// Act
	s := newWidgetSession(t, client)

	// Assert
	assert.Equal(t, []Product{widget()}, s.State().Products)
	client.AssertNotCalled(t, "FetchProducts", mock.Anything)
}

func TestInit_InjectedEmptyCatalogSkipsFetch(t *testing.T) {
	client := new(MockClient)
	s := NewSession(client, WithCatalog([]Product{}))

	s.Init(context.Background())

	assert.Empty(t, s.State().Products)
	client.AssertNotCalled(t, "FetchProducts", mock.Anything)
}

func TestInit_FetchesWhenNoCatalogInjected(t *testing.T) {
	client := new(MockClient)
	client.On("FetchProducts", mock.Anything).Return(demoCatalog(), nil).Once()
	s := NewSession(client)

	s.Init(context.Background())

	assert.Equal(t, demoCatalog(), s.State().Products)
	client.AssertExpectations(t)
}

func TestInit_FetchFailureYieldsEmptyCatalog(t *testing.T) {
	client := new(MockClient)
	client.On("FetchProducts", mock.Anything).Return(nil, errors.New("connection refused")).Once()
	alerter := &recordingAlerter{}
	s := NewSession(client, WithAlerter(alerter))

	s.Init(context.Background())

	products := s.State().Products
	assert.NotNil(t, products)
	assert.Empty(t, products)
	assert.Empty(t, alerter.messages)
	client.AssertNumberOfCalls(t, "FetchProducts", 1)
}

func TestSession_FilteredFollowsQuery(t *testing.T) {
	s := NewSession(new(MockClient), WithCatalog(demoCatalog()))
	s.Init(context.Background())

	assert.Len(t, s.Filtered(), 3)

	s.SetQuery("omepra")
	assert.Len(t, s.Filtered(), 1)
	assert.Equal(t, "3", s.Filtered()[0].ID)

	s.SetQuery("")
	assert.Equal(t, demoCatalog(), s.Filtered())
}

func TestMaxStock(t *testing.T) {
	s := newWidgetSession(t, new(MockClient))

	assert.Equal(t, 2, s.MaxStock("1"))
	assert.Equal(t, 0, s.MaxStock("missing"))
}

func TestAdd_StopsAtStock(t *testing.T) {
	// Arrange
	s := newWidgetSession(t, new(MockClient))

	// Act
	s.Add(widget())
	s.Add(widget())

	// Assert
	lines := s.State().Lines
	require.Len(t, lines, 1)
	assert.Equal(t, Line{ID: "1", Name: "Widget", Price: 10, Qty: 2}, lines[0])
	assert.True(t, decimal.NewFromInt(20).Equal(s.Total()))

	// third add is a no-op
	s.Add(widget())
	lines = s.State().Lines
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Qty)
}

func TestAdd_RepeatedAddsNeverExceedStock(t *testing.T) {
	p := Product{ID: "x", Name: "Gauze", Price: 1.25, Stock: 5}
	s := NewSession(new(MockClient), WithCatalog([]Product{p}))
	s.Init(context.Background())

	for i := 1; i <= 10; i++ {
		s.Add(p)
		expected := i
		if expected > p.Stock {
			expected = p.Stock
		}
		assert.Equal(t, expected, s.State().Lines[0].Qty)
	}
}

func TestAdd_KeepsInsertionOrderAndOneLinePerProduct(t *testing.T) {
	s := NewSession(new(MockClient), WithCatalog(demoCatalog()))
	s.Init(context.Background())

	assert.True(t, s.AddByID("2"))
	assert.True(t, s.AddByID("1"))
	assert.True(t, s.AddByID("2"))
	assert.False(t, s.AddByID("missing"))

	lines := s.State().Lines
	require.Len(t, lines, 2)
	assert.Equal(t, "2", lines[0].ID)
	assert.Equal(t, 2, lines[0].Qty)
	assert.Equal(t, "1", lines[1].ID)
	assert.Equal(t, 1, lines[1].Qty)
}

func TestRemove(t *testing.T) {
	s := NewSession(new(MockClient), WithCatalog(demoCatalog()))
	s.Init(context.Background())
	s.AddByID("1")
	s.AddByID("2")
	s.AddByID("3")

	s.Remove(1)

	lines := s.State().Lines
	require.Len(t, lines, 2)
	assert.Equal(t, "1", lines[0].ID)
	assert.Equal(t, "3", lines[1].ID)
}

func TestRemove_OutOfRangeIsNoop(t *testing.T) {
	s := newWidgetSession(t, new(MockClient))
	s.Add(widget())

	s.Remove(5)
	s.Remove(-1)
	s.Remove(1)

	assert.Len(t, s.State().Lines, 1)
}

func TestClearCart_ResetsCartAndCustomerOnly(t *testing.T) {
	// Arrange
	s := newWidgetSession(t, new(MockClient))
	s.Add(widget())
	s.SetCustomer("Ana")
	s.SetPaymentMethod("card")
	s.SetQuery("wid")

	// Act
	s.ClearCart()

	// Assert
	st := s.State()
	assert.Empty(t, st.Lines)
	assert.Equal(t, "", st.Customer)
	assert.Equal(t, DefaultPaymentMethod, st.PaymentMethod)
	assert.Equal(t, "wid", st.Query)
	assert.Equal(t, []Product{widget()}, st.Products)
}

func TestTotal(t *testing.T) {
	s := NewSession(new(MockClient), WithCatalog(demoCatalog()))
	s.Init(context.Background())

	assert.True(t, decimal.Zero.Equal(s.Total()))

	s.AddByID("1")
	s.AddByID("1")
	s.AddByID("2")

	// 5.50*2 + 8.75
	assert.Equal(t, "19.75", s.Total().StringFixed(2))
	assert.True(t, s.Total().Equal(s.State().Total()))
}

func TestCheckout_Success(t *testing.T) {
	// Arrange
	client := new(MockClient)
	s := newWidgetSession(t, client)
	s.Add(widget())
	s.Add(widget())
	s.SetCustomer("Ana")

	expected := CheckoutRequest{
		Items:         []Line{{ID: "1", Name: "Widget", Price: 10, Qty: 2}},
		Customer:      "Ana",
		PaymentMethod: DefaultPaymentMethod,
	}
	client.On("SubmitCheckout", mock.Anything, expected).
		Return(&CheckoutResponse{OK: true, ReceiptID: "R123"}, nil).Once()

	// Act
	err := s.Checkout(context.Background())

	// Assert
	require.NoError(t, err)
	st := s.State()
	assert.Equal(t, "R123", st.LastReceiptID)
	assert.True(t, st.ShowConfirm)
	assert.False(t, st.Processing)
	assert.Empty(t, st.Lines)
	assert.Equal(t, "", st.Customer)
	client.AssertExpectations(t)

	s.DismissConfirm()
	assert.False(t, s.State().ShowConfirm)
}

func TestCheckout_FailureAlertsAndKeepsCart(t *testing.T) {
	// Arrange
	client := new(MockClient)
	alerter := &recordingAlerter{}
	s := newWidgetSession(t, client, WithAlerter(alerter))
	s.Add(widget())
	s.SetCustomer("Ana")
	client.On("SubmitCheckout", mock.Anything, mock.Anything).Return(nil, ErrProcessing).Once()

	// Act
	err := s.Checkout(context.Background())

	// Assert
	var cerr *CheckoutError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, ErrProcessing)
	require.Len(t, alerter.messages, 1)
	assert.Equal(t, "Error al procesar la venta: Error al procesar la venta", alerter.messages[0])

	st := s.State()
	assert.Len(t, st.Lines, 1)
	assert.Equal(t, "Ana", st.Customer)
	assert.False(t, st.Processing)
	assert.False(t, st.ShowConfirm)
	assert.Equal(t, "", st.LastReceiptID)
}

func TestCheckout_IgnoredWhileProcessing(t *testing.T) {
	// Arrange
	client := new(MockClient)
	s := newWidgetSession(t, client)
	s.Add(widget())

	started := make(chan struct{})
	release := make(chan struct{})
	client.On("SubmitCheckout", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&CheckoutResponse{OK: true, ReceiptID: "R1"}, nil).Once()

	done := make(chan error, 1)
	go func() {
		done <- s.Checkout(context.Background())
	}()
	<-started

	// Act
	assert.True(t, s.State().Processing)
	err := s.Checkout(context.Background())

	// Assert
	assert.ErrorIs(t, err, ErrCheckoutInProgress)
	close(release)
	require.NoError(t, <-done)
	client.AssertNumberOfCalls(t, "SubmitCheckout", 1)
	assert.False(t, s.State().Processing)
}

func TestCheckout_ReleasesProcessingAfterPanic(t *testing.T) {
	// Arrange
	client := new(MockClient)
	panicking := AlerterFunc(func(string) { panic("alert dialog crashed") })
	s := newWidgetSession(t, client, WithAlerter(panicking))
	s.Add(widget())
	client.On("SubmitCheckout", mock.Anything, mock.Anything).Return(nil, ErrProcessing).Once()
	client.On("SubmitCheckout", mock.Anything, mock.Anything).
		Return(&CheckoutResponse{OK: true, ReceiptID: "R2"}, nil).Once()

	// Act
	assert.Panics(t, func() {
		_ = s.Checkout(context.Background())
	})
	err := s.Checkout(context.Background())

	// Assert
	assert.NoError(t, err)
	assert.False(t, s.State().Processing)
	assert.Equal(t, "R2", s.State().LastReceiptID)
	client.AssertNumberOfCalls(t, "SubmitCheckout", 2)
}

func TestCheckout_NotifiesStateChanges(t *testing.T) {
	client := new(MockClient)
	s := newWidgetSession(t, client)
	s.Add(widget())
	client.On("SubmitCheckout", mock.Anything, mock.Anything).
		Return(&CheckoutResponse{OK: true, ReceiptID: "R9"}, nil).Once()

	var states []State
	s.OnChange(func(st State) {
		states = append(states, st)
	})

	require.NoError(t, s.Checkout(context.Background()))

	require.Len(t, states, 2)
	assert.True(t, states[0].Processing)
	assert.False(t, states[1].Processing)
	assert.Equal(t, "R9", states[1].LastReceiptID)
}

func TestCheckout_AgainstHTTPBackend(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     bool
		wantReceipt string
		wantLines   int
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom"}`, wantErr: true, wantLines: 1},
		{name: "success", status: http.StatusOK, body: `{"ok":true,"receipt_id":"R123"}`, wantReceipt: "R123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			alerter := &recordingAlerter{}
			s := newWidgetSession(t, NewHTTPClient(srv.URL), WithAlerter(alerter))
			s.Add(widget())

			err := s.Checkout(context.Background())

			st := s.State()
			assert.Equal(t, tt.wantErr, err != nil)
			assert.False(t, st.Processing)
			assert.Equal(t, tt.wantReceipt, st.LastReceiptID)
			assert.Equal(t, !tt.wantErr, st.ShowConfirm)
			assert.Len(t, st.Lines, tt.wantLines)
			if tt.wantErr {
				require.Len(t, alerter.messages, 1)
				assert.Contains(t, alerter.messages[0], AlertPrefix)
			} else {
				assert.Empty(t, alerter.messages)
			}
		})
	}
}
