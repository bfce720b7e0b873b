package tradedesk

import (
	"time"

	"github.com/shopspring/decimal"
)

// The client carries its own copy of the API's wire types so importers
// outside this module can name every parameter and return value. The JSON
// shapes match the server exactly.

// Mode selects between simulated (paper) and real-money (live) trading.
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

// OrderType determines how an order is priced and triggered.
type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// TimeInForce controls how long an order remains working.
type TimeInForce string

const (
	TimeInForceDay TimeInForce = "day"
	TimeInForceGTC TimeInForce = "gtc"
	TimeInForceIOC TimeInForce = "ioc"
	TimeInForceFOK TimeInForce = "fok"
)

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

// RiskLevel is the coarse classification returned by the risk service.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelVeryHigh RiskLevel = "very_high"
	RiskLevelUnknown  RiskLevel = "unknown"
)

// SubmitOrderRequest is the POST /api/trading/order body. Mode is optional;
// it defaults to the server session's active mode.
type SubmitOrderRequest struct {
	Symbol      string           `json:"symbol"`
	Side        Side             `json:"side"`
	Type        OrderType        `json:"order_type"`
	Qty         decimal.Decimal  `json:"quantity"`
	LimitPrice  *decimal.Decimal `json:"limit_price,omitempty"`
	StopPrice   *decimal.Decimal `json:"stop_price,omitempty"`
	TimeInForce TimeInForce      `json:"time_in_force"`
	Mode        Mode             `json:"mode,omitempty"`
}

// Order is the server-tracked record created from a submission.
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

// Position is a holding derived server-side from filled orders.
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

// AccountInfo is the account snapshot for one trading mode.
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

// RiskAssessment is the risk service's verdict on a proposed trade.
type RiskAssessment struct {
	Symbol            string    `json:"symbol"`
	Level             RiskLevel `json:"risk_level"`
	Score             float64   `json:"risk_score"`
	Violations        []string  `json:"violations,omitempty"`
	Warnings          []string  `json:"warnings,omitempty"`
	RecommendedAction string    `json:"recommended_action,omitempty"`
}

// ModeResponse reports the session's trading mode state.
type ModeResponse struct {
	Mode        Mode   `json:"mode"`
	Blocked     bool   `json:"blocked"`
	BlockReason string `json:"block_reason,omitempty"`
}

type switchModeRequest struct {
	Mode Mode `json:"mode"`
}
