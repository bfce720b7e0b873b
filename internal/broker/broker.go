// Package broker defines the Broker interface and provides transports for
// submitting orders and reading account state: the platform's REST backend
// and a direct Alpaca adapter for live accounts.
package broker

import (
	"context"
	"errors"

	"tradedesk/internal/domain"
)

var (
	// ErrUnauthorized indicates a missing or expired bearer token. It is
	// propagated to callers, never swallowed.
	ErrUnauthorized = errors.New("authentication failed")

	// ErrOrderNotFound indicates the order id is unknown to the backend.
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderTerminal indicates a cancel was attempted on an order that
	// has already filled, been cancelled, or been rejected.
	ErrOrderTerminal = errors.New("order already in a terminal state")
)

// Broker abstracts the execution backend. All reads are mode-scoped;
// implementations must never return one mode's data for the other.
type Broker interface {
	// Name returns the broker identifier (e.g. "rest", "alpaca").
	Name() string

	// SubmitOrder sends the order for execution. The request's Mode
	// selects the account. Implementations must not retry internally: a
	// failed submission is reported once and left to the user.
	SubmitOrder(ctx context.Context, req *domain.OrderRequest) (*domain.Order, error)

	// CancelOrder requests cancellation of an open order. Terminal orders
	// yield ErrOrderTerminal.
	CancelOrder(ctx context.Context, orderID string, mode domain.Mode) error

	// GetOrders returns the order history for the mode.
	GetOrders(ctx context.Context, mode domain.Mode) ([]domain.Order, error)

	// GetPositions returns all open positions for the mode.
	GetPositions(ctx context.Context, mode domain.Mode) ([]domain.Position, error)

	// GetPortfolio returns the portfolio snapshot for the mode.
	GetPortfolio(ctx context.Context, mode domain.Mode) (*domain.Portfolio, error)

	// GetAccount returns the account snapshot, including block flags and
	// daily limits, for the mode.
	GetAccount(ctx context.Context, mode domain.Mode) (*domain.AccountInfo, error)
}
