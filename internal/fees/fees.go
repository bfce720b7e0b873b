// Package fees estimates commissions and order totals for display before
// submission. The figures are advisory: the backend's fee schedule is
// authoritative and may differ.
package fees

import (
	"github.com/shopspring/decimal"

	"tradedesk/internal/domain"
)

// feeRate is the flat commission estimate: 0.01% of notional.
var feeRate = decimal.NewFromFloat(0.0001)

// Estimate is the fee/total breakdown shown on the order ticket.
type Estimate struct {
	OrderValue decimal.Decimal `json:"order_value"`
	Commission decimal.Decimal `json:"commission"`
	TotalFees  decimal.Decimal `json:"total_fees"`
	// Total is cost for a buy (value + fees) or proceeds for a sell
	// (value − fees).
	Total     decimal.Decimal `json:"total"`
	Simulated bool            `json:"simulated"`
}

// Calculate returns the fee estimate for an order of the given notional
// value. Paper-mode estimates are zero and flagged Simulated. Fees are
// never negative, and sell proceeds never go below zero.
func Calculate(orderValue decimal.Decimal, side domain.Side, mode domain.Mode) Estimate {
	if orderValue.IsNegative() {
		orderValue = decimal.Zero
	}

	est := Estimate{
		OrderValue: orderValue,
		Simulated:  mode == domain.ModePaper,
	}

	if !est.Simulated {
		est.Commission = orderValue.Mul(feeRate).Round(2)
	}
	est.TotalFees = est.Commission

	if side == domain.OrderSideSell {
		est.Total = orderValue.Sub(est.TotalFees)
		if est.Total.IsNegative() {
			est.Total = decimal.Zero
		}
	} else {
		est.Total = orderValue.Add(est.TotalFees)
	}
	return est
}

// Notional returns qty × price, the order value used for fee estimates and
// the balance check.
func Notional(qty, price decimal.Decimal) decimal.Decimal {
	return qty.Mul(price)
}
