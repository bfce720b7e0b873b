// Package session holds the process-wide trading session state: the active
// trading mode, whether trading is blocked, and the remaining daily limits.
// The state is shared and read-mostly with a single writer: only the
// Controller mutates it; every other component reads snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tradedesk/internal/domain"
	"tradedesk/internal/util"
)

var (
	// ErrTradingBlocked is returned when an order is attempted while the
	// account is blocked. Submission paths must check this immediately
	// before executing, not just at form-open time.
	ErrTradingBlocked = errors.New("trading is blocked")

	// ErrDailyOrderLimit is returned when the day's order allowance is
	// exhausted.
	ErrDailyOrderLimit = errors.New("daily order limit reached")
)

// State is an immutable snapshot of the session.
type State struct {
	Mode           domain.Mode
	Blocked        bool
	BlockReason    string
	DailyLimits    domain.DailyLimits
	LastModeSwitch time.Time
}

// AccountFetchFunc retrieves the account snapshot for a mode. The session
// poller uses it to refresh block flags and limits; wiring it as a function
// keeps this package free of transport dependencies.
type AccountFetchFunc func(ctx context.Context, mode domain.Mode) (*domain.AccountInfo, error)

// Controller is the single writer of session state. Construct one per
// process and share it by reference.
type Controller struct {
	mu       sync.RWMutex
	state    State
	fetch    AccountFetchFunc
	throttle *util.RateLimiter
	log      *slog.Logger
}

// NewController creates a session starting in paper mode. ordersPerMinute
// bounds the order submission rate.
func NewController(fetch AccountFetchFunc, ordersPerMinute int, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default().With("component", "session")
	}
	if ordersPerMinute <= 0 {
		ordersPerMinute = 60
	}
	return &Controller{
		state: State{
			Mode: domain.ModePaper,
			DailyLimits: domain.DailyLimits{
				OrdersRemaining: -1, // unknown until first refresh
			},
		},
		fetch:    fetch,
		throttle: util.NewRateLimiter(ordersPerMinute),
		log:      log,
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Mode returns the active trading mode.
func (c *Controller) Mode() domain.Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Mode
}

// Blocked reports whether trading is blocked, with the reason.
func (c *Controller) Blocked() (bool, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Blocked, c.state.BlockReason
}

// SwitchMode changes the active trading mode. In-flight orders are not
// cancelled; mode-scoped caches miss by construction because every key
// includes the mode.
func (c *Controller) SwitchMode(m domain.Mode) error {
	if !m.Valid() {
		return fmt.Errorf("invalid trading mode %q", m)
	}
	c.mu.Lock()
	prev := c.state.Mode
	if prev != m {
		c.state.Mode = m
		c.state.LastModeSwitch = time.Now()
		// Block state and limits are per mode; stale values from the
		// previous mode must not gate the new one.
		c.state.Blocked = false
		c.state.BlockReason = ""
		c.state.DailyLimits = domain.DailyLimits{OrdersRemaining: -1}
	}
	c.mu.Unlock()
	if prev != m {
		c.log.Info("trading mode switched", "from", prev, "to", m)
	}
	return nil
}

// AllowOrder checks every submission precondition: block state, remaining
// daily orders, and the order throttle. It is called immediately before
// execution on every path, because blocking state changes asynchronously.
func (c *Controller) AllowOrder(ctx context.Context) error {
	c.mu.RLock()
	blocked, reason := c.state.Blocked, c.state.BlockReason
	remaining := c.state.DailyLimits.OrdersRemaining
	c.mu.RUnlock()

	if blocked {
		if reason != "" {
			return fmt.Errorf("%w: %s", ErrTradingBlocked, reason)
		}
		return ErrTradingBlocked
	}
	if remaining == 0 {
		return ErrDailyOrderLimit
	}
	return c.throttle.Wait(ctx)
}

// RecordOrder decrements the local order allowance after a successful
// submission. The server count is authoritative; the next Refresh
// reconciles.
func (c *Controller) RecordOrder() {
	c.mu.Lock()
	if c.state.DailyLimits.OrdersRemaining > 0 {
		c.state.DailyLimits.OrdersRemaining--
	}
	c.mu.Unlock()
}

// ApplyBlock marks trading as blocked. Used for server-pushed block events
// in addition to polling.
func (c *Controller) ApplyBlock(reason string) {
	c.mu.Lock()
	c.state.Blocked = true
	c.state.BlockReason = reason
	c.mu.Unlock()
	c.log.Warn("trading blocked", "reason", reason)
}

// ClearBlock lifts a block.
func (c *Controller) ClearBlock() {
	c.mu.Lock()
	wasBlocked := c.state.Blocked
	c.state.Blocked = false
	c.state.BlockReason = ""
	c.mu.Unlock()
	if wasBlocked {
		c.log.Info("trading block cleared")
	}
}

// Refresh polls the account endpoint once for the active mode and applies
// the server-reported block flags and daily limits.
func (c *Controller) Refresh(ctx context.Context) error {
	if c.fetch == nil {
		return nil
	}
	mode := c.Mode()
	acct, err := c.fetch(ctx, mode)
	if err != nil {
		return fmt.Errorf("refreshing session state: %w", err)
	}

	c.mu.Lock()
	// The response may race a mode switch; only apply if still current.
	if c.state.Mode == mode {
		c.state.Blocked = acct.Blocked
		c.state.BlockReason = acct.BlockReason
		c.state.DailyLimits = acct.DailyLimits
	}
	c.mu.Unlock()
	return nil
}

// Poll refreshes session state at the given interval until ctx is
// cancelled. Refresh failures are logged and retried on the next tick.
func (c *Controller) Poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.log.Warn("session refresh failed", "error", err)
			}
		}
	}
}
