// Package views provides the read-only consumers of the trading data:
// paginated, filtered order history and position listings. Views never hit
// the network themselves; they read through the execution engine's
// cache-aside layer, so a fresh cache entry serves repeated renders and a
// successful mutation forces the next render back to the server.
package views

import (
	"context"
	"sort"
	"strings"
	"time"

	"tradedesk/internal/domain"
)

// Source is the data access the views read through. *engine.Engine
// implements it.
type Source interface {
	GetOrders(ctx context.Context, mode domain.Mode) ([]domain.Order, error)
	GetPositions(ctx context.Context, mode domain.Mode) ([]domain.Position, error)
}

// OrderFilter narrows the order history. Zero-valued fields match
// everything.
type OrderFilter struct {
	Symbol string
	Side   domain.Side
	Status domain.OrderStatus
	After  time.Time
	Before time.Time
}

func (f OrderFilter) matches(o domain.Order) bool {
	if f.Symbol != "" && o.Symbol != strings.ToUpper(f.Symbol) {
		return false
	}
	if f.Side != "" && o.Side != f.Side {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if !f.After.IsZero() && o.CreatedAt.Before(f.After) {
		return false
	}
	if !f.Before.IsZero() && !o.CreatedAt.Before(f.Before) {
		return false
	}
	return true
}

// Page selects a window of results. Limit <= 0 means no limit.
type Page struct {
	Offset int
	Limit  int
}

// OrderPage is one window of the filtered order history. Total counts all
// matches, not just the returned window.
type OrderPage struct {
	Orders []domain.Order `json:"orders"`
	Total  int            `json:"total"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

// Views serves the read-only listings for one data source.
type Views struct {
	source Source
}

// New creates a Views over the given source.
func New(source Source) *Views {
	return &Views{source: source}
}

// OrderHistory returns a page of the mode's order history, newest first.
func (v *Views) OrderHistory(ctx context.Context, mode domain.Mode, filter OrderFilter, page Page) (*OrderPage, error) {
	orders, err := v.source.GetOrders(ctx, mode)
	if err != nil {
		return nil, err
	}

	matched := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if filter.matches(o) {
			matched = append(matched, o)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := page.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := total
	if page.Limit > 0 && start+page.Limit < end {
		end = start + page.Limit
	}

	return &OrderPage{
		Orders: matched[start:end],
		Total:  total,
		Offset: start,
		Limit:  page.Limit,
	}, nil
}

// Positions returns the mode's open positions sorted by market value,
// largest first. symbol, when non-empty, narrows to one holding.
func (v *Views) Positions(ctx context.Context, mode domain.Mode, symbol string) ([]domain.Position, error) {
	positions, err := v.source.GetPositions(ctx, mode)
	if err != nil {
		return nil, err
	}

	symbol = strings.ToUpper(symbol)
	out := make([]domain.Position, 0, len(positions))
	for _, p := range positions {
		if symbol != "" && p.Symbol != symbol {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MarketValue.GreaterThan(out[j].MarketValue)
	})
	return out, nil
}
