package validate

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"tradedesk/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestOrderAmount(t *testing.T) {
	cases := []struct {
		name    string
		qty     string
		price   string
		balance string
		wantErr error
	}{
		{"valid buy", "10", "150.25", "10000", nil},
		{"zero qty", "0", "150.25", "10000", ErrAmountNotPositive},
		{"negative qty", "-5", "150.25", "10000", ErrAmountNotPositive},
		{"insufficient funds", "1000", "248.50", "10000", ErrInsufficientFunds},
		{"exact balance", "10", "100", "1000", nil},
		{"no price estimate skips balance", "1000000", "0", "1", nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := OrderAmount(dec(c.qty), dec(c.price), dec(c.balance))
			if !errors.Is(err, c.wantErr) {
				t.Errorf("OrderAmount(%s, %s, %s) = %v, want %v", c.qty, c.price, c.balance, err, c.wantErr)
			}
		})
	}
}

func TestOrderAmountIdempotent(t *testing.T) {
	qty, price, bal := dec("1000"), dec("248.50"), dec("10000")
	first := OrderAmount(qty, price, bal)
	second := OrderAmount(qty, price, bal)
	if (first == nil) != (second == nil) {
		t.Fatal("OrderAmount is not idempotent for identical inputs")
	}
	if first != nil && first.Error() != second.Error() {
		t.Errorf("messages differ: %q vs %q", first, second)
	}
}

func TestPrice(t *testing.T) {
	cases := []struct {
		price   string
		wantErr error
	}{
		{"150.25", nil},
		{"0.01", nil},
		{"100", nil},
		{"0", ErrPriceNotPositive},
		{"-1.50", ErrPriceNotPositive},
		{"1.005", ErrPriceTooPrecise},
		{"1.10", nil}, // trailing zero is still two places
	}
	for _, c := range cases {
		if err := Price(dec(c.price)); !errors.Is(err, c.wantErr) {
			t.Errorf("Price(%s) = %v, want %v", c.price, err, c.wantErr)
		}
	}
}

func TestValidSymbol(t *testing.T) {
	valid := []string{"AAPL", "MSFT", "F", "BRK.B", "GOOG", "TSLA"}
	for _, s := range valid {
		if !ValidSymbol(s) {
			t.Errorf("ValidSymbol(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "aapl", "TOOLONGSYM", "AA PL", "AAPL!", ".B"}
	for _, s := range invalid {
		if ValidSymbol(s) {
			t.Errorf("ValidSymbol(%q) = true, want false", s)
		}
	}
}

func TestOrderRequestMarket(t *testing.T) {
	req := &domain.OrderRequest{
		Symbol:      "AAPL",
		Side:        domain.OrderSideBuy,
		Type:        domain.OrderTypeMarket,
		Qty:         dec("10"),
		TimeInForce: domain.TimeInForceDay,
		Mode:        domain.ModePaper,
	}
	errs := OrderRequest(req, dec("150.25"), dec("10000"))
	if len(errs) != 0 {
		t.Errorf("valid market order got errors: %v", errs)
	}
}

func TestOrderRequestLimitRequiresPrice(t *testing.T) {
	req := &domain.OrderRequest{
		Symbol:      "AAPL",
		Side:        domain.OrderSideBuy,
		Type:        domain.OrderTypeLimit,
		Qty:         dec("10"),
		TimeInForce: domain.TimeInForceDay,
		Mode:        domain.ModePaper,
	}
	errs := OrderRequest(req, dec("150"), dec("10000"))
	if !errors.Is(errs["limit_price"], ErrMissingLimitPrice) {
		t.Errorf("errs[limit_price] = %v, want %v", errs["limit_price"], ErrMissingLimitPrice)
	}

	req.LimitPrice = decPtr("0")
	errs = OrderRequest(req, dec("150"), dec("10000"))
	if !errors.Is(errs["limit_price"], ErrPriceNotPositive) {
		t.Errorf("errs[limit_price] = %v, want %v", errs["limit_price"], ErrPriceNotPositive)
	}
}

func TestOrderRequestStopRequiresStopPrice(t *testing.T) {
	for _, typ := range []domain.OrderType{domain.OrderTypeStop, domain.OrderTypeStopLimit} {
		req := &domain.OrderRequest{
			Symbol:      "MSFT",
			Side:        domain.OrderSideSell,
			Type:        typ,
			Qty:         dec("5"),
			TimeInForce: domain.TimeInForceGTC,
			Mode:        domain.ModeLive,
		}
		if typ == domain.OrderTypeStopLimit {
			req.LimitPrice = decPtr("410.00")
		}
		errs := OrderRequest(req, decimal.Zero, decimal.Zero)
		if !errors.Is(errs["stop_price"], ErrMissingStopPrice) {
			t.Errorf("%s: errs[stop_price] = %v, want %v", typ, errs["stop_price"], ErrMissingStopPrice)
		}
	}
}

func TestOrderRequestInsufficientFunds(t *testing.T) {
	// Scenario: 1000 shares of TSLA at 248.50 against a 10k balance.
	req := &domain.OrderRequest{
		Symbol:      "TSLA",
		Side:        domain.OrderSideBuy,
		Type:        domain.OrderTypeMarket,
		Qty:         dec("1000"),
		TimeInForce: domain.TimeInForceDay,
		Mode:        domain.ModePaper,
	}
	errs := OrderRequest(req, dec("248.50"), dec("10000"))
	if !errors.Is(errs["quantity"], ErrInsufficientFunds) {
		t.Errorf("errs[quantity] = %v, want %v", errs["quantity"], ErrInsufficientFunds)
	}
}

func TestOrderRequestSellSkipsBalance(t *testing.T) {
	req := &domain.OrderRequest{
		Symbol:      "MSFT",
		Side:        domain.OrderSideSell,
		Type:        domain.OrderTypeMarket,
		Qty:         dec("5"),
		TimeInForce: domain.TimeInForceDay,
		Mode:        domain.ModeLive,
	}
	errs := OrderRequest(req, dec("413.00"), decimal.Zero)
	if len(errs) != 0 {
		t.Errorf("sell with zero balance got errors: %v", errs)
	}
}

func TestOrderRequestBadEnums(t *testing.T) {
	req := &domain.OrderRequest{
		Symbol:      "aapl",
		Side:        "hold",
		Type:        "trailing",
		Qty:         dec("1"),
		TimeInForce: "gtd",
		Mode:        "demo",
	}
	errs := OrderRequest(req, decimal.Zero, decimal.Zero)
	for _, field := range []string{"symbol", "side", "order_type", "time_in_force", "mode"} {
		if errs[field] == nil {
			t.Errorf("expected error for field %q", field)
		}
	}
}
