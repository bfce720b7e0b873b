// Package engine coordinates trade execution: it applies the final
// submission gates, forwards orders to the broker, journals every attempt,
// and keeps the mode-scoped cache consistent by invalidating exactly the
// resources a mutation touched.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradedesk/internal/broker"
	"tradedesk/internal/cache"
	"tradedesk/internal/domain"
	"tradedesk/internal/journal"
	"tradedesk/internal/session"
	"tradedesk/internal/validate"
)

// submitInvalidates is the exact set of resources a successful submission
// dirties for its mode. The other mode is never touched.
var submitInvalidates = []cache.Resource{
	cache.ResourcePortfolio,
	cache.ResourcePositions,
	cache.ResourceOrderHistory,
	cache.ResourceAccount,
}

// cancelInvalidates is the set dirtied by a successful cancellation.
var cancelInvalidates = []cache.Resource{
	cache.ResourceOrderHistory,
	cache.ResourcePortfolio,
}

// Engine orchestrates the execution side of the order lifecycle.
type Engine struct {
	broker  broker.Broker
	cache   *cache.Store
	session *session.Controller
	journal *journal.Journal
	log     *slog.Logger
}

// New creates an Engine wired with the given dependencies. journal may be
// nil to disable the local audit trail.
func New(b broker.Broker, c *cache.Store, s *session.Controller, j *journal.Journal, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default().With("component", "engine")
	}
	return &Engine{broker: b, cache: c, session: s, journal: j, log: log}
}

// ExecuteTrade submits the order request. It re-checks the session gates
// immediately before submission (block state changes asynchronously), runs
// a final shape validation, journals the attempt, and on success
// invalidates the mode's portfolio, positions, order history, and account
// cache entries before returning, so any read that follows a successful
// ExecuteTrade refetches.
//
// Once the broker call starts it runs to completion; the request is never
// cancelled mid-flight, because resubmitting without knowing the first
// attempt's outcome risks a duplicate order. For the same reason there is
// no automatic retry.
func (e *Engine) ExecuteTrade(ctx context.Context, req *domain.OrderRequest) (*domain.Order, error) {
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("invalid trading mode %q", req.Mode)
	}
	// Final shape check; the balance estimate was already applied by the
	// order form, so a zero price skips it here.
	if errs := validate.OrderRequest(req, decimal.Zero, decimal.Zero); len(errs) > 0 {
		for field, err := range errs {
			return nil, fmt.Errorf("invalid order: %s: %w", field, err)
		}
	}
	if err := e.session.AllowOrder(ctx); err != nil {
		return nil, err
	}
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}

	if e.journal != nil {
		if err := e.journal.RecordAttempt(ctx, req); err != nil {
			// The journal is advisory; a write failure must not block the
			// trade.
			e.log.Warn("journaling attempt failed", "client_order_id", req.ClientOrderID, "error", err)
		}
	}

	// Detach from the caller's cancellation: the submission must run to
	// completion once started.
	order, err := e.broker.SubmitOrder(context.WithoutCancel(ctx), req)

	if e.journal != nil {
		if jerr := e.journal.RecordOutcome(context.WithoutCancel(ctx), req.ClientOrderID, order, err); jerr != nil {
			e.log.Warn("journaling outcome failed", "client_order_id", req.ClientOrderID, "error", jerr)
		}
	}

	if err != nil {
		e.log.Error("order submission failed",
			"symbol", req.Symbol, "side", req.Side, "mode", req.Mode, "error", err)
		return nil, err
	}

	e.session.RecordOrder()
	e.cache.Invalidate(req.Mode, submitInvalidates...)
	e.log.Info("order submitted",
		"order_id", order.ID, "symbol", order.Symbol, "side", order.Side,
		"qty", order.Qty, "mode", order.Mode, "broker", e.broker.Name())
	return order, nil
}

// CancelOrder cancels an open order and invalidates the mode's order
// history and portfolio entries.
func (e *Engine) CancelOrder(ctx context.Context, orderID string, mode domain.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid trading mode %q", mode)
	}
	if err := e.broker.CancelOrder(ctx, orderID, mode); err != nil {
		return err
	}
	e.cache.Invalidate(mode, cancelInvalidates...)
	e.log.Info("order cancelled", "order_id", orderID, "mode", mode)
	return nil
}

// ---------------------------------------------------------------------------
// Cache-aside reads
// ---------------------------------------------------------------------------

// GetPortfolio returns the mode's portfolio, from cache when fresh.
func (e *Engine) GetPortfolio(ctx context.Context, mode domain.Mode) (*domain.Portfolio, error) {
	key := cache.Key{Resource: cache.ResourcePortfolio, Mode: mode}
	return cache.FetchAs(ctx, e.cache, key, func(ctx context.Context) (*domain.Portfolio, error) {
		return e.broker.GetPortfolio(ctx, mode)
	})
}

// GetPositions returns the mode's open positions, from cache when fresh.
func (e *Engine) GetPositions(ctx context.Context, mode domain.Mode) ([]domain.Position, error) {
	key := cache.Key{Resource: cache.ResourcePositions, Mode: mode}
	return cache.FetchAs(ctx, e.cache, key, func(ctx context.Context) ([]domain.Position, error) {
		return e.broker.GetPositions(ctx, mode)
	})
}

// GetOrders returns the mode's order history, from cache when fresh.
func (e *Engine) GetOrders(ctx context.Context, mode domain.Mode) ([]domain.Order, error) {
	key := cache.Key{Resource: cache.ResourceOrderHistory, Mode: mode}
	return cache.FetchAs(ctx, e.cache, key, func(ctx context.Context) ([]domain.Order, error) {
		return e.broker.GetOrders(ctx, mode)
	})
}

// GetAccount returns the mode's account snapshot, from cache when fresh.
func (e *Engine) GetAccount(ctx context.Context, mode domain.Mode) (*domain.AccountInfo, error) {
	key := cache.Key{Resource: cache.ResourceAccount, Mode: mode}
	return cache.FetchAs(ctx, e.cache, key, func(ctx context.Context) (*domain.AccountInfo, error) {
		return e.broker.GetAccount(ctx, mode)
	})
}
