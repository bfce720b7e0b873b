// Package httpapi exposes the trading pipeline over a REST API: order
// submission and cancellation, portfolio and order history reads, session
// mode control, and risk lookups.
package httpapi

import (
	"github.com/shopspring/decimal"

	"tradedesk/internal/domain"
)

// SubmitOrderRequest is the POST /api/trading/order body. Mode is optional;
// it defaults to the session's active mode.
type SubmitOrderRequest struct {
	Symbol      string             `json:"symbol"`
	Side        domain.Side        `json:"side"`
	Type        domain.OrderType   `json:"order_type"`
	Qty         decimal.Decimal    `json:"quantity"`
	LimitPrice  *decimal.Decimal   `json:"limit_price,omitempty"`
	StopPrice   *decimal.Decimal   `json:"stop_price,omitempty"`
	TimeInForce domain.TimeInForce `json:"time_in_force"`
	Mode        domain.Mode        `json:"mode,omitempty"`
}

// ModeResponse reports the session's trading mode state.
type ModeResponse struct {
	Mode        domain.Mode `json:"mode"`
	Blocked     bool        `json:"blocked"`
	BlockReason string      `json:"block_reason,omitempty"`
}

// SwitchModeRequest is the PUT /api/session/mode body.
type SwitchModeRequest struct {
	Mode domain.Mode `json:"mode"`
}

// ValidationErrorResponse carries field-level validation failures.
type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}
