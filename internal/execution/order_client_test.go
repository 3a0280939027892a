package execution

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/usealtoal/predictarb/pkg/types"
)

const testPrivateKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestClient(t *testing.T, baseURL string) *OrderClient {
	t.Helper()
	client, err := NewOrderClient(&OrderClientConfig{
		APIKey:        "test-api-key",
		Secret:        "dGVzdC1zZWNyZXQ=",
		Passphrase:    "test-passphrase",
		PrivateKey:    testPrivateKey,
		SignatureType: 0,
		Logger:        zap.NewNop(),
		BaseURL:       baseURL,
	})
	if err != nil {
		t.Fatalf("NewOrderClient: %v", err)
	}
	return client
}

func TestNewOrderClientDerivesAddressFromKey(t *testing.T) {
	client := newTestClient(t, "")
	if client.GetSignerAddress() == "" {
		t.Fatal("expected a derived signer address")
	}
	if client.GetMakerAddress() != client.GetSignerAddress() {
		t.Fatal("expected maker address to equal signer address when no proxy is configured")
	}
}

func TestPlaceSingleOrderSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/order" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(types.OrderSubmissionResponse{Success: true, OrderID: "order-1", Status: "live"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	orderID, err := client.SubmitLegOrder(context.Background(), "token-1", dec("0.45"), dec("10"), 0.01, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if orderID != "order-1" {
		t.Fatalf("expected order-1, got %s", orderID)
	}
}

func TestSubmitLegOrderRejectsBelowMinSize(t *testing.T) {
	client := newTestClient(t, "http://unused")
	_, err := client.SubmitLegOrder(context.Background(), "token-1", dec("0.45"), dec("0.5"), 0.01, 5.0)
	if err == nil {
		t.Fatal("expected an error for a size below the minimum order size")
	}
}

func TestSubmitLegOrderPropagatesServerRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(types.OrderSubmissionResponse{Success: false, ErrorMsg: "insufficient balance"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.SubmitLegOrder(context.Background(), "token-1", dec("0.45"), dec("10"), 0.01, 1.0)
	if err == nil {
		t.Fatal("expected an error when the server reports success=false")
	}
}

func TestGetOrderParsesQueryResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/order/order-1" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(types.OrderQueryResponse{OrderID: "order-1", Status: "matched", SizeFilled: 10, Price: 0.45})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	resp, err := client.GetOrder(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != "matched" || resp.SizeFilled != 10 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestCancelOrderSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/order" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.CancelOrder(context.Background(), "order-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCancelOrderPropagatesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("order already filled"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.CancelOrder(context.Background(), "order-1"); err == nil {
		t.Fatal("expected an error for a non-200 cancel response")
	}
}

func TestGetRoundingConfig(t *testing.T) {
	cases := []struct {
		tick               float64
		sizePrec, amtPrec int
	}{
		{0.1, 2, 3},
		{0.01, 2, 4},
		{0.001, 2, 5},
		{0.0001, 2, 6},
		{0.5, 2, 4}, // unknown tick falls back to the 0.01 default
	}
	for _, c := range cases {
		size, amt := getRoundingConfig(c.tick)
		if size != c.sizePrec || amt != c.amtPrec {
			t.Errorf("tick %v: expected (%d,%d), got (%d,%d)", c.tick, c.sizePrec, c.amtPrec, size, amt)
		}
	}
}

func TestRoundAmount(t *testing.T) {
	if got := roundAmount(1.23456, 2); got != 1.23 {
		t.Errorf("expected 1.23, got %v", got)
	}
}
