// Package domain defines the entities shared across the trading pipeline:
// order requests and orders, positions, portfolios, account state, and risk
// assessments. All monetary amounts and quantities use decimal.Decimal to
// avoid float rounding drift on financial values.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Enums
// ---------------------------------------------------------------------------

// Mode selects between simulated (paper) and real-money (live) trading.
// Every mode-scoped resource is keyed by it; paper and live data never mix.
type Mode string

const (
	ModePaper Mode = "paper"
	ModeLive  Mode = "live"
)

// Valid reports whether m is a known trading mode.
func (m Mode) Valid() bool {
	return m == ModePaper || m == ModeLive
}

// Side is the order direction.
type Side string

const (
	OrderSideBuy  Side = "buy"
	OrderSideSell Side = "sell"
)

// Valid reports whether s is a known order side.
func (s Side) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// OrderType determines how an order is priced and triggered.
type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStop, OrderTypeStopLimit:
		return true
	}
	return false
}

// NeedsLimitPrice reports whether orders of this type carry a limit price.
func (t OrderType) NeedsLimitPrice() bool {
	return t == OrderTypeLimit || t == OrderTypeStopLimit
}

// NeedsStopPrice reports whether orders of this type carry a stop price.
func (t OrderType) NeedsStopPrice() bool {
	return t == OrderTypeStop || t == OrderTypeStopLimit
}

// TimeInForce controls how long an order remains working.
type TimeInForce string

const (
	TimeInForceDay TimeInForce = "day"
	TimeInForceGTC TimeInForce = "gtc"
	TimeInForceIOC TimeInForce = "ioc"
	TimeInForceFOK TimeInForce = "fok"
)

// Valid reports whether tif is a known time-in-force.
func (tif TimeInForce) Valid() bool {
	switch tif {
	case TimeInForceDay, TimeInForceGTC, TimeInForceIOC, TimeInForceFOK:
		return true
	}
	return false
}

// OrderStatus is the server-tracked lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "new"
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "canceled"
	OrderStatusRejected        OrderStatus = "rejected"
)

// IsTerminal reports whether the order can no longer change state.
// Terminal orders cannot be cancelled.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// RiskLevel is the coarse classification returned by the risk service.
// RiskLevelUnknown is the fail-open value used when the service is
// unreachable or times out; it gates like RiskLevelHigh, never like low.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelVeryHigh RiskLevel = "very_high"
	RiskLevelUnknown  RiskLevel = "unknown"
)

// Elevated reports whether the level requires extra caution: HIGH,
// VERY_HIGH, or UNKNOWN (a missing assessment is never treated as safe).
func (l RiskLevel) Elevated() bool {
	switch l {
	case RiskLevelHigh, RiskLevelVeryHigh, RiskLevelUnknown:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Order entities
// ---------------------------------------------------------------------------

// OrderRequest is the client-side order intent produced by the order form.
// It exists only for the duration of a submission call and is never
// persisted beyond the journal's audit record.
//
// Invariant: LimitPrice is non-nil iff Type.NeedsLimitPrice(), StopPrice is
// non-nil iff Type.NeedsStopPrice(). validate.OrderRequest enforces this.
type OrderRequest struct {
	Symbol        string           `json:"symbol"`
	Side          Side             `json:"side"`
	Type          OrderType        `json:"order_type"`
	Qty           decimal.Decimal  `json:"quantity"`
	LimitPrice    *decimal.Decimal `json:"limit_price,omitempty"`
	StopPrice     *decimal.Decimal `json:"stop_price,omitempty"`
	TimeInForce   TimeInForce      `json:"time_in_force"`
	Mode          Mode             `json:"mode"`
	ClientOrderID string           `json:"client_order_id,omitempty"`
}

// Order is the server-tracked record created from a successful submission.
// The backend owns it; the client holds read-only cached copies per mode.
type Order struct {
	ID             string           `json:"id"`
	ClientOrderID  string           `json:"client_order_id,omitempty"`
	Symbol         string           `json:"symbol"`
	Side           Side             `json:"side"`
	Type           OrderType        `json:"order_type"`
	Qty            decimal.Decimal  `json:"quantity"`
	LimitPrice     *decimal.Decimal `json:"limit_price,omitempty"`
	StopPrice      *decimal.Decimal `json:"stop_price,omitempty"`
	TimeInForce    TimeInForce      `json:"time_in_force"`
	FilledQty      decimal.Decimal  `json:"filled_quantity"`
	FilledAvgPrice *decimal.Decimal `json:"filled_avg_price,omitempty"`
	Status         OrderStatus      `json:"status"`
	Mode           Mode             `json:"mode"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// ---------------------------------------------------------------------------
// Portfolio entities
// ---------------------------------------------------------------------------

// Position is a holding derived server-side from filled orders.
//
// Invariants: MarketValue = Qty × CurrentPrice and
// UnrealizedPnL = MarketValue − Qty × AvgEntryPrice.
type Position struct {
	Symbol           string          `json:"symbol"`
	Qty              decimal.Decimal `json:"quantity"`
	AvgEntryPrice    decimal.Decimal `json:"average_cost"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	MarketValue      decimal.Decimal `json:"market_value"`
	UnrealizedPnL    decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedPnLPct decimal.Decimal `json:"unrealized_pnl_percent"`
	Mode             Mode            `json:"mode"`
	LastUpdated      time.Time       `json:"last_updated"`
}

// Portfolio is the account-level snapshot for one trading mode.
//
// Invariant: TotalValue = CashBalance + PositionsValue, up to rounding.
type Portfolio struct {
	TotalValue     decimal.Decimal `json:"total_value"`
	CashBalance    decimal.Decimal `json:"cash_balance"`
	PositionsValue decimal.Decimal `json:"positions_value"`
	DayPnL         decimal.Decimal `json:"day_pnl"`
	TotalPnL       decimal.Decimal `json:"total_pnl"`
	Mode           Mode            `json:"mode"`
	Positions      []Position      `json:"positions"`
}

// DailyLimits tracks the remaining daily allowances reported by the server.
type DailyLimits struct {
	OrdersRemaining    int             `json:"orders_remaining"`
	LossLimitRemaining decimal.Decimal `json:"loss_limit_remaining"`
}

// AccountInfo is the account snapshot for one trading mode, including the
// block flags that gate submission.
type AccountInfo struct {
	ID          string          `json:"id"`
	Cash        decimal.Decimal `json:"cash"`
	Equity      decimal.Decimal `json:"equity"`
	BuyingPower decimal.Decimal `json:"buying_power"`
	Currency    string          `json:"currency"`
	Blocked     bool            `json:"trading_blocked"`
	BlockReason string          `json:"block_reason,omitempty"`
	DailyLimits DailyLimits     `json:"daily_limits"`
	Mode        Mode            `json:"mode"`
}

// ---------------------------------------------------------------------------
// Risk
// ---------------------------------------------------------------------------

// RiskAssessment is the risk service's verdict on a proposed trade. It is
// ephemeral: computed per proposal, cached briefly, never persisted.
type RiskAssessment struct {
	Symbol            string    `json:"symbol"`
	Level             RiskLevel `json:"risk_level"`
	Score             float64   `json:"risk_score"`
	Violations        []string  `json:"violations,omitempty"`
	Warnings          []string  `json:"warnings,omitempty"`
	RecommendedAction string    `json:"recommended_action,omitempty"`
}

// Unknown returns the conservative assessment used when the risk service
// cannot be reached.
func Unknown(symbol string) RiskAssessment {
	return RiskAssessment{
		Symbol:            symbol,
		Level:             RiskLevelUnknown,
		Warnings:          []string{"risk service unavailable; treating trade as high risk"},
		RecommendedAction: "confirm manually before submitting",
	}
}
