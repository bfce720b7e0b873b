package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestOrderTypePriceRequirements(t *testing.T) {
	cases := []struct {
		typ       OrderType
		needLimit bool
		needStop  bool
	}{
		{OrderTypeMarket, false, false},
		{OrderTypeLimit, true, false},
		{OrderTypeStop, false, true},
		{OrderTypeStopLimit, true, true},
	}
	for _, c := range cases {
		if got := c.typ.NeedsLimitPrice(); got != c.needLimit {
			t.Errorf("%s.NeedsLimitPrice() = %v, want %v", c.typ, got, c.needLimit)
		}
		if got := c.typ.NeedsStopPrice(); got != c.needStop {
			t.Errorf("%s.NeedsStopPrice() = %v, want %v", c.typ, got, c.needStop)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	terminal := []OrderStatus{OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = false, want true", s)
		}
	}
	open := []OrderStatus{OrderStatusNew, OrderStatusPending, OrderStatusPartiallyFilled}
	for _, s := range open {
		if s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = true, want false", s)
		}
	}
}

func TestRiskLevelElevated(t *testing.T) {
	if RiskLevelLow.Elevated() || RiskLevelMedium.Elevated() {
		t.Error("low/medium risk should not be elevated")
	}
	for _, l := range []RiskLevel{RiskLevelHigh, RiskLevelVeryHigh, RiskLevelUnknown} {
		if !l.Elevated() {
			t.Errorf("%s.Elevated() = false, want true", l)
		}
	}
}

func TestUnknownAssessment(t *testing.T) {
	a := Unknown("AAPL")
	if a.Symbol != "AAPL" {
		t.Errorf("a.Symbol = %q, want %q", a.Symbol, "AAPL")
	}
	if a.Level != RiskLevelUnknown {
		t.Errorf("a.Level = %q, want %q", a.Level, RiskLevelUnknown)
	}
	if len(a.Warnings) == 0 {
		t.Error("expected at least one warning on unknown assessment")
	}
}

func TestModeValid(t *testing.T) {
	if !ModePaper.Valid() || !ModeLive.Valid() {
		t.Error("paper/live should be valid modes")
	}
	if Mode("margin").Valid() {
		t.Error("unexpected mode should be invalid")
	}
}

func TestOrderRequestZeroValue(t *testing.T) {
	var req OrderRequest
	if !req.Qty.Equal(decimal.Zero) {
		t.Error("zero-value OrderRequest should have zero quantity")
	}
	if req.LimitPrice != nil || req.StopPrice != nil {
		t.Error("zero-value OrderRequest should have nil price fields")
	}
}
