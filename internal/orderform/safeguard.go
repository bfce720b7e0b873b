package orderform

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"tradedesk/internal/domain"
	"tradedesk/internal/fees"
)

// RequiresConfirmation is the safeguard rule: every live order confirms,
// and in any mode an elevated (HIGH, VERY_HIGH, or UNKNOWN) risk level
// confirms. Only low-risk paper orders skip the dialog.
func RequiresConfirmation(mode domain.Mode, level domain.RiskLevel) bool {
	return mode == domain.ModeLive || level.Elevated()
}

// Summary is what the confirmation dialog shows: the order parameters and
// the fee/total estimate.
type Summary struct {
	Symbol    string           `json:"symbol"`
	Side      domain.Side      `json:"side"`
	Type      domain.OrderType `json:"order_type"`
	Qty       decimal.Decimal  `json:"quantity"`
	Price     decimal.Decimal  `json:"price"`
	Mode      domain.Mode      `json:"mode"`
	RiskLevel domain.RiskLevel `json:"risk_level"`
	Estimate  fees.Estimate    `json:"estimate"`
}

// Confirmation defers execution until the user explicitly confirms. It is
// blocking from the user's perspective (the order does not move until
// resolved) but holds no locks, so the rest of the application keeps
// running. Confirm executes at most once; Cancel discards with no side
// effects. Either way the confirmation is spent after the first call.
type Confirmation struct {
	form    *Form
	req     *domain.OrderRequest
	summary Summary

	mu       sync.Mutex
	resolved bool
}

func (f *Form) newConfirmation(req *domain.OrderRequest, price decimal.Decimal, level domain.RiskLevel) *Confirmation {
	notional := fees.Notional(req.Qty, price)
	return &Confirmation{
		form: f,
		req:  req,
		summary: Summary{
			Symbol:    req.Symbol,
			Side:      req.Side,
			Type:      req.Type,
			Qty:       req.Qty,
			Price:     price,
			Mode:      req.Mode,
			RiskLevel: level,
			Estimate:  fees.Calculate(notional, req.Side, req.Mode),
		},
	}
}

// Summary returns the order details for display in the dialog.
func (c *Confirmation) Summary() Summary {
	return c.summary
}

// Confirm executes the deferred order. The blocked state is re-checked
// here: a block that landed while the dialog was open rejects the order
// regardless of the user's answer. Calling Confirm a second time returns
// ErrConfirmationResolved without executing.
func (c *Confirmation) Confirm(ctx context.Context) (*domain.Order, error) {
	c.mu.Lock()
	if c.resolved {
		c.mu.Unlock()
		return nil, ErrConfirmationResolved
	}
	c.resolved = true
	c.mu.Unlock()

	if blocked, reason := c.form.session.Blocked(); blocked {
		c.form.mu.Lock()
		c.form.state = StateEditing
		c.form.mu.Unlock()
		return nil, blockErr(reason)
	}

	c.form.mu.Lock()
	c.form.state = StateSubmitting
	c.form.mu.Unlock()
	return c.form.execute(ctx, c.req)
}

// Cancel abandons the order and returns the form to Editing. The entered
// values are untouched and nothing is executed.
func (c *Confirmation) Cancel() error {
	c.mu.Lock()
	if c.resolved {
		c.mu.Unlock()
		return ErrConfirmationResolved
	}
	c.resolved = true
	c.mu.Unlock()

	c.form.mu.Lock()
	if c.form.state == StateConfirming {
		c.form.state = StateEditing
	}
	c.form.mu.Unlock()
	return nil
}
