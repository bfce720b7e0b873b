package tradedesk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	c := NewClient(baseURL)

	if c == nil {
		t.Fatal("expected non-nil client")
	}
	if c.baseURL != baseURL {
		t.Errorf("expected baseURL %q, got %q", baseURL, c.baseURL)
	}
	if c.httpClient == nil {
		t.Fatal("expected non-nil httpClient")
	}
}

func TestSubmitOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/trading/order" {
			t.Errorf("got %s %s, want POST /api/trading/order", r.Method, r.URL.Path)
		}
		var req SubmitOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Order{
			ID:     "ord-1",
			Symbol: req.Symbol,
			Side:   req.Side,
			Qty:    req.Qty,
			Status: OrderStatusNew,
			Mode:   ModePaper,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	order, err := c.SubmitOrder(context.Background(), SubmitOrderRequest{
		Symbol:      "AAPL",
		Side:        OrderSideBuy,
		Type:        OrderTypeMarket,
		Qty:         decimal.NewFromInt(10),
		TimeInForce: TimeInForceDay,
	})
	if err != nil {
		t.Fatalf("SubmitOrder returned error: %v", err)
	}
	if order.ID != "ord-1" || order.Symbol != "AAPL" {
		t.Errorf("order = %+v, want ord-1/AAPL", order)
	}
}

func TestSubmitOrderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": "order rejected: market closed"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.SubmitOrder(context.Background(), SubmitOrderRequest{Symbol: "AAPL"})
	if err == nil {
		t.Fatal("SubmitOrder should surface the server error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Detail != "order rejected: market closed" {
		t.Errorf("detail = %q, want the server-provided reason", apiErr.Detail)
	}
}

func TestGetOrdersQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("mode") != "live" || q.Get("symbol") != "AAPL" || q.Get("limit") != "5" {
			t.Errorf("query = %v, want mode=live symbol=AAPL limit=5", q)
		}
		json.NewEncoder(w).Encode(OrderPage{
			Orders: []Order{{ID: "o1", Symbol: "AAPL"}},
			Total:  1,
			Limit:  5,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	page, err := c.GetOrders(context.Background(), ModeLive, OrderQuery{Symbol: "AAPL", Limit: 5})
	if err != nil {
		t.Fatalf("GetOrders returned error: %v", err)
	}
	if page.Total != 1 || len(page.Orders) != 1 {
		t.Errorf("page = %+v, want one order", page)
	}
}

func TestSwitchMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/session/mode" {
			t.Errorf("got %s %s, want PUT /api/session/mode", r.Method, r.URL.Path)
		}
		var req switchModeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(ModeResponse{Mode: req.Mode})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	mr, err := c.SwitchMode(context.Background(), ModeLive)
	if err != nil {
		t.Fatalf("SwitchMode returned error: %v", err)
	}
	if mr.Mode != ModeLive {
		t.Errorf("mode = %q, want %q", mr.Mode, ModeLive)
	}
}

func TestAssessRisk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/risk/TSLA" {
			t.Errorf("path = %s, want /api/risk/TSLA", r.URL.Path)
		}
		json.NewEncoder(w).Encode(RiskAssessment{Symbol: "TSLA", Level: RiskLevelHigh})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	a, err := c.AssessRisk(context.Background(), "TSLA", OrderSideBuy, "100", "248.50")
	if err != nil {
		t.Fatalf("AssessRisk returned error: %v", err)
	}
	if a.Level != RiskLevelHigh {
		t.Errorf("level = %q, want %q", a.Level, RiskLevelHigh)
	}
}

func TestWireTypesMatchServer(t *testing.T) {
	// The client package carries its own wire types; the field tags must
	// line up with the server's JSON so decoding is lossless.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "ord-9", "symbol": "NVDA", "side": "sell",
			"order_type": "limit", "quantity": "3", "limit_price": "880.10",
			"time_in_force": "gtc", "filled_quantity": "0",
			"status": "new", "mode": "live"
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	order, err := c.SubmitOrder(context.Background(), SubmitOrderRequest{Symbol: "NVDA"})
	if err != nil {
		t.Fatalf("SubmitOrder returned error: %v", err)
	}
	if order.Side != OrderSideSell || order.Type != OrderTypeLimit || order.Mode != ModeLive {
		t.Errorf("decoded order = %+v, want sell/limit/live", order)
	}
	if order.LimitPrice == nil || !order.LimitPrice.Equal(decimal.RequireFromString("880.10")) {
		t.Errorf("limit price = %v, want 880.10", order.LimitPrice)
	}
}
