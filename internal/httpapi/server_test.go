package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradedesk/internal/broker"
	"tradedesk/internal/domain"
	"tradedesk/internal/risk"
	"tradedesk/internal/session"
)

type fakeEngine struct {
	orders    map[domain.Mode][]domain.Order
	positions map[domain.Mode][]domain.Position
	submitted []*domain.OrderRequest
	cancelErr error
}

func (f *fakeEngine) ExecuteTrade(_ context.Context, req *domain.OrderRequest) (*domain.Order, error) {
	f.submitted = append(f.submitted, req)
	return &domain.Order{
		ID:     "ord-1",
		Symbol: req.Symbol,
		Side:   req.Side,
		Qty:    req.Qty,
		Status: domain.OrderStatusNew,
		Mode:   req.Mode,
	}, nil
}

func (f *fakeEngine) CancelOrder(_ context.Context, orderID string, _ domain.Mode) error {
	if f.cancelErr != nil {
		return fmt.Errorf("cancelling order %s: %w", orderID, f.cancelErr)
	}
	return nil
}

func (f *fakeEngine) GetOrders(_ context.Context, mode domain.Mode) ([]domain.Order, error) {
	return f.orders[mode], nil
}

func (f *fakeEngine) GetPositions(_ context.Context, mode domain.Mode) ([]domain.Position, error) {
	return f.positions[mode], nil
}

func (f *fakeEngine) GetPortfolio(_ context.Context, mode domain.Mode) (*domain.Portfolio, error) {
	return &domain.Portfolio{Mode: mode, TotalValue: decimal.NewFromInt(10000)}, nil
}

func (f *fakeEngine) GetAccount(_ context.Context, mode domain.Mode) (*domain.AccountInfo, error) {
	return &domain.AccountInfo{Mode: mode}, nil
}

type fixedAssessor struct {
	level domain.RiskLevel
}

func (a fixedAssessor) Assess(_ context.Context, p risk.Proposal) domain.RiskAssessment {
	return domain.RiskAssessment{Symbol: p.Symbol, Level: a.level}
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeEngine, *session.Controller) {
	t.Helper()
	eng := &fakeEngine{
		orders:    map[domain.Mode][]domain.Order{},
		positions: map[domain.Mode][]domain.Position{},
	}
	sess := session.NewController(nil, 600, nil)
	srv := NewServer(eng, sess, fixedAssessor{level: domain.RiskLevelMedium}, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, eng, sess
}

func TestSubmitOrder(t *testing.T) {
	ts, eng, _ := newTestServer(t)

	body := `{"symbol":"aapl","side":"buy","order_type":"market","quantity":"10","time_in_force":"day"}`
	resp, err := http.Post(ts.URL+"/api/trading/order", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST returned error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var order domain.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if order.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want %q (uppercased)", order.Symbol, "AAPL")
	}
	if order.Mode != domain.ModePaper {
		t.Errorf("mode = %q, want session default %q", order.Mode, domain.ModePaper)
	}
	if len(eng.submitted) != 1 {
		t.Fatalf("engine saw %d submissions, want 1", len(eng.submitted))
	}
}

func TestSubmitOrderValidation(t *testing.T) {
	ts, eng, _ := newTestServer(t)

	// Limit order without a limit price.
	body := `{"symbol":"AAPL","side":"buy","order_type":"limit","quantity":"10","time_in_force":"day"}`
	resp, err := http.Post(ts.URL+"/api/trading/order", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST returned error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	var ve ValidationErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&ve); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if ve.Fields["limit_price"] == "" {
		t.Errorf("fields = %v, want a limit_price error", ve.Fields)
	}
	if len(eng.submitted) != 0 {
		t.Error("invalid order must not reach the engine")
	}
}

func TestCancelOrder(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/trading/orders/ord-9/cancel", "application/json", nil)
	if err != nil {
		t.Fatalf("POST returned error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
}

func TestCancelOrderNotFound(t *testing.T) {
	ts, eng, _ := newTestServer(t)
	eng.cancelErr = broker.ErrOrderNotFound

	resp, err := http.Post(ts.URL+"/api/trading/orders/missing/cancel", "application/json", nil)
	if err != nil {
		t.Fatalf("POST returned error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestOrdersFilteredAndPaginated(t *testing.T) {
	ts, eng, _ := newTestServer(t)
	base := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	eng.orders[domain.ModePaper] = []domain.Order{
		{ID: "o1", Symbol: "AAPL", Side: domain.OrderSideBuy, Status: domain.OrderStatusFilled, CreatedAt: base},
		{ID: "o2", Symbol: "AAPL", Side: domain.OrderSideSell, Status: domain.OrderStatusPending, CreatedAt: base.Add(time.Hour)},
		{ID: "o3", Symbol: "TSLA", Side: domain.OrderSideBuy, Status: domain.OrderStatusFilled, CreatedAt: base.Add(2 * time.Hour)},
	}

	resp, err := http.Get(ts.URL + "/api/trading/orders?symbol=AAPL&limit=1")
	if err != nil {
		t.Fatalf("GET returned error: %v", err)
	}
	defer resp.Body.Close()

	var page struct {
		Orders []domain.Order `json:"orders"`
		Total  int            `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("total = %d, want 2", page.Total)
	}
	if len(page.Orders) != 1 || page.Orders[0].ID != "o2" {
		t.Errorf("orders = %+v, want just o2 (newest AAPL)", page.Orders)
	}
}

func TestModeSwitchRoundTrip(t *testing.T) {
	ts, _, sess := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/session/mode", bytes.NewBufferString(`{"mode":"live"}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT returned error: %v", err)
	}
	defer resp.Body.Close()

	var mr ModeResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if mr.Mode != domain.ModeLive {
		t.Errorf("mode = %q, want %q", mr.Mode, domain.ModeLive)
	}
	if sess.Mode() != domain.ModeLive {
		t.Errorf("session mode = %q, want %q", sess.Mode(), domain.ModeLive)
	}
}

func TestModeSwitchRejectsUnknown(t *testing.T) {
	ts, _, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/session/mode", bytes.NewBufferString(`{"mode":"demo"}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT returned error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestPortfolioModeParam(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/portfolio?mode=live")
	if err != nil {
		t.Fatalf("GET returned error: %v", err)
	}
	defer resp.Body.Close()

	var p domain.Portfolio
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if p.Mode != domain.ModeLive {
		t.Errorf("mode = %q, want %q", p.Mode, domain.ModeLive)
	}

	bad, err := http.Get(ts.URL + "/api/portfolio?mode=demo")
	if err != nil {
		t.Fatalf("GET returned error: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d for an unknown mode", bad.StatusCode, http.StatusBadRequest)
	}
}

func TestRiskLookup(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/risk/tsla?side=buy&quantity=100&price=248.50")
	if err != nil {
		t.Fatalf("GET returned error: %v", err)
	}
	defer resp.Body.Close()

	var a domain.RiskAssessment
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if a.Symbol != "TSLA" {
		t.Errorf("symbol = %q, want %q", a.Symbol, "TSLA")
	}
	if a.Level != domain.RiskLevelMedium {
		t.Errorf("level = %q, want %q", a.Level, domain.RiskLevelMedium)
	}
}

func TestBlockedStateVisibleOnModeEndpoint(t *testing.T) {
	ts, _, sess := newTestServer(t)
	sess.ApplyBlock("daily loss limit hit")

	resp, err := http.Get(ts.URL + "/api/session/mode")
	if err != nil {
		t.Fatalf("GET returned error: %v", err)
	}
	defer resp.Body.Close()

	var mr ModeResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !mr.Blocked || mr.BlockReason != "daily loss limit hit" {
		t.Errorf("mode response = %+v, want blocked with reason", mr)
	}
}
