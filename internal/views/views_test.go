package views

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradedesk/internal/domain"
)

type fakeSource struct {
	orders    map[domain.Mode][]domain.Order
	positions map[domain.Mode][]domain.Position
	calls     int
}

func (f *fakeSource) GetOrders(_ context.Context, mode domain.Mode) ([]domain.Order, error) {
	f.calls++
	return f.orders[mode], nil
}

func (f *fakeSource) GetPositions(_ context.Context, mode domain.Mode) ([]domain.Position, error) {
	f.calls++
	return f.positions[mode], nil
}

func order(id, symbol string, side domain.Side, status domain.OrderStatus, created time.Time) domain.Order {
	return domain.Order{
		ID:        id,
		Symbol:    symbol,
		Side:      side,
		Status:    status,
		Mode:      domain.ModePaper,
		CreatedAt: created,
	}
}

func testOrders() []domain.Order {
	base := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	return []domain.Order{
		order("o1", "AAPL", domain.OrderSideBuy, domain.OrderStatusFilled, base),
		order("o2", "TSLA", domain.OrderSideSell, domain.OrderStatusPending, base.Add(time.Hour)),
		order("o3", "AAPL", domain.OrderSideSell, domain.OrderStatusCancelled, base.Add(2*time.Hour)),
		order("o4", "MSFT", domain.OrderSideBuy, domain.OrderStatusFilled, base.Add(3*time.Hour)),
	}
}

func TestOrderHistoryNewestFirst(t *testing.T) {
	src := &fakeSource{orders: map[domain.Mode][]domain.Order{domain.ModePaper: testOrders()}}
	v := New(src)

	page, err := v.OrderHistory(context.Background(), domain.ModePaper, OrderFilter{}, Page{})
	if err != nil {
		t.Fatalf("OrderHistory returned error: %v", err)
	}
	if page.Total != 4 {
		t.Fatalf("Total = %d, want 4", page.Total)
	}
	if page.Orders[0].ID != "o4" || page.Orders[3].ID != "o1" {
		t.Errorf("order ids = %s..%s, want o4..o1 (newest first)", page.Orders[0].ID, page.Orders[3].ID)
	}
}

func TestOrderHistoryFilters(t *testing.T) {
	src := &fakeSource{orders: map[domain.Mode][]domain.Order{domain.ModePaper: testOrders()}}
	v := New(src)
	ctx := context.Background()

	bySymbol, err := v.OrderHistory(ctx, domain.ModePaper, OrderFilter{Symbol: "aapl"}, Page{})
	if err != nil {
		t.Fatalf("OrderHistory returned error: %v", err)
	}
	if bySymbol.Total != 2 {
		t.Errorf("symbol filter Total = %d, want 2", bySymbol.Total)
	}

	bySide, err := v.OrderHistory(ctx, domain.ModePaper, OrderFilter{Side: domain.OrderSideSell}, Page{})
	if err != nil {
		t.Fatalf("OrderHistory returned error: %v", err)
	}
	if bySide.Total != 2 {
		t.Errorf("side filter Total = %d, want 2", bySide.Total)
	}

	byStatus, err := v.OrderHistory(ctx, domain.ModePaper, OrderFilter{Status: domain.OrderStatusFilled}, Page{})
	if err != nil {
		t.Fatalf("OrderHistory returned error: %v", err)
	}
	if byStatus.Total != 2 {
		t.Errorf("status filter Total = %d, want 2", byStatus.Total)
	}

	cutoff := time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)
	byTime, err := v.OrderHistory(ctx, domain.ModePaper, OrderFilter{After: cutoff}, Page{})
	if err != nil {
		t.Fatalf("OrderHistory returned error: %v", err)
	}
	if byTime.Total != 2 {
		t.Errorf("time filter Total = %d, want 2", byTime.Total)
	}
}

func TestOrderHistoryPagination(t *testing.T) {
	src := &fakeSource{orders: map[domain.Mode][]domain.Order{domain.ModePaper: testOrders()}}
	v := New(src)
	ctx := context.Background()

	page, err := v.OrderHistory(ctx, domain.ModePaper, OrderFilter{}, Page{Offset: 1, Limit: 2})
	if err != nil {
		t.Fatalf("OrderHistory returned error: %v", err)
	}
	if len(page.Orders) != 2 {
		t.Fatalf("page size = %d, want 2", len(page.Orders))
	}
	if page.Orders[0].ID != "o3" || page.Orders[1].ID != "o2" {
		t.Errorf("page ids = %s,%s, want o3,o2", page.Orders[0].ID, page.Orders[1].ID)
	}
	if page.Total != 4 {
		t.Errorf("Total = %d, want the full match count 4", page.Total)
	}

	// Offset past the end yields an empty page, not an error.
	empty, err := v.OrderHistory(ctx, domain.ModePaper, OrderFilter{}, Page{Offset: 10, Limit: 2})
	if err != nil {
		t.Fatalf("OrderHistory returned error: %v", err)
	}
	if len(empty.Orders) != 0 {
		t.Errorf("out-of-range page size = %d, want 0", len(empty.Orders))
	}
}

func TestPositionsSortedByMarketValue(t *testing.T) {
	src := &fakeSource{positions: map[domain.Mode][]domain.Position{
		domain.ModeLive: {
			{Symbol: "AAPL", MarketValue: decimal.NewFromInt(1500)},
			{Symbol: "MSFT", MarketValue: decimal.NewFromInt(4100)},
			{Symbol: "TSLA", MarketValue: decimal.NewFromInt(2400)},
		},
	}}
	v := New(src)

	positions, err := v.Positions(context.Background(), domain.ModeLive, "")
	if err != nil {
		t.Fatalf("Positions returned error: %v", err)
	}
	if len(positions) != 3 {
		t.Fatalf("len = %d, want 3", len(positions))
	}
	if positions[0].Symbol != "MSFT" || positions[2].Symbol != "AAPL" {
		t.Errorf("order = %s..%s, want MSFT..AAPL (largest first)", positions[0].Symbol, positions[2].Symbol)
	}

	only, err := v.Positions(context.Background(), domain.ModeLive, "tsla")
	if err != nil {
		t.Fatalf("Positions returned error: %v", err)
	}
	if len(only) != 1 || only[0].Symbol != "TSLA" {
		t.Errorf("symbol filter = %+v, want just TSLA", only)
	}
}
