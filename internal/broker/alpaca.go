package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"tradedesk/internal/domain"
)

// Compile-time interface check.
var _ Broker = (*AlpacaBroker)(nil)

// AlpacaBroker executes against Alpaca directly, holding one client per
// trading mode: paper mode routes to the paper API host, live mode to the
// live host. The mode split is by endpoint, so the two accounts can never
// see each other's data.
type AlpacaBroker struct {
	clients map[domain.Mode]*alpacaapi.Client
}

// NewAlpacaBroker creates an AlpacaBroker with the given credentials.
// Empty URLs fall back to Alpaca's default hosts.
func NewAlpacaBroker(apiKey, apiSecret, paperURL, liveURL string) *AlpacaBroker {
	if paperURL == "" {
		paperURL = "https://paper-api.alpaca.markets"
	}
	if liveURL == "" {
		liveURL = "https://api.alpaca.markets"
	}
	newClient := func(baseURL string) *alpacaapi.Client {
		return alpacaapi.NewClient(alpacaapi.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		})
	}
	return &AlpacaBroker{
		clients: map[domain.Mode]*alpacaapi.Client{
			domain.ModePaper: newClient(paperURL),
			domain.ModeLive:  newClient(liveURL),
		},
	}
}

// Name returns "alpaca".
func (b *AlpacaBroker) Name() string { return "alpaca" }

func (b *AlpacaBroker) client(mode domain.Mode) (*alpacaapi.Client, error) {
	c, ok := b.clients[mode]
	if !ok {
		return nil, fmt.Errorf("no alpaca client for mode %q", mode)
	}
	return c, nil
}

// SubmitOrder places the order on the mode's Alpaca account.
func (b *AlpacaBroker) SubmitOrder(_ context.Context, req *domain.OrderRequest) (*domain.Order, error) {
	c, err := b.client(req.Mode)
	if err != nil {
		return nil, err
	}

	placeReq := alpacaapi.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Qty:           &req.Qty,
		Side:          alpacaapi.Side(req.Side),
		Type:          alpacaapi.OrderType(req.Type),
		TimeInForce:   alpacaapi.TimeInForce(req.TimeInForce),
		LimitPrice:    req.LimitPrice,
		StopPrice:     req.StopPrice,
		ClientOrderID: req.ClientOrderID,
	}

	placed, err := c.PlaceOrder(placeReq)
	if err != nil {
		return nil, fmt.Errorf("placing alpaca order: %w", mapAlpacaErr(err))
	}
	order := convertAlpacaOrder(placed, req.Mode)
	return &order, nil
}

// CancelOrder cancels an open order on the mode's account.
func (b *AlpacaBroker) CancelOrder(_ context.Context, orderID string, mode domain.Mode) error {
	c, err := b.client(mode)
	if err != nil {
		return err
	}
	if err := c.CancelOrder(orderID); err != nil {
		return fmt.Errorf("cancelling alpaca order %s: %w", orderID, mapAlpacaErr(err))
	}
	return nil
}

// GetOrders returns recent orders for the mode's account.
func (b *AlpacaBroker) GetOrders(_ context.Context, mode domain.Mode) ([]domain.Order, error) {
	c, err := b.client(mode)
	if err != nil {
		return nil, err
	}
	raw, err := c.GetOrders(alpacaapi.GetOrdersRequest{Status: "all", Limit: 500})
	if err != nil {
		return nil, fmt.Errorf("listing alpaca orders: %w", mapAlpacaErr(err))
	}
	orders := make([]domain.Order, 0, len(raw))
	for i := range raw {
		orders = append(orders, convertAlpacaOrder(&raw[i], mode))
	}
	return orders, nil
}

// GetPositions returns open positions for the mode's account.
func (b *AlpacaBroker) GetPositions(_ context.Context, mode domain.Mode) ([]domain.Position, error) {
	c, err := b.client(mode)
	if err != nil {
		return nil, err
	}
	raw, err := c.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("listing alpaca positions: %w", mapAlpacaErr(err))
	}
	positions := make([]domain.Position, 0, len(raw))
	for i := range raw {
		positions = append(positions, convertAlpacaPosition(&raw[i], mode))
	}
	return positions, nil
}

// GetPortfolio assembles a portfolio snapshot from the account and its
// positions.
func (b *AlpacaBroker) GetPortfolio(ctx context.Context, mode domain.Mode) (*domain.Portfolio, error) {
	c, err := b.client(mode)
	if err != nil {
		return nil, err
	}
	acct, err := c.GetAccount()
	if err != nil {
		return nil, fmt.Errorf("fetching alpaca account: %w", mapAlpacaErr(err))
	}
	positions, err := b.GetPositions(ctx, mode)
	if err != nil {
		return nil, err
	}

	positionsValue := decimal.Zero
	totalPnL := decimal.Zero
	for _, p := range positions {
		positionsValue = positionsValue.Add(p.MarketValue)
		totalPnL = totalPnL.Add(p.UnrealizedPnL)
	}

	return &domain.Portfolio{
		TotalValue:     acct.Equity,
		CashBalance:    acct.Cash,
		PositionsValue: positionsValue,
		DayPnL:         acct.Equity.Sub(acct.LastEquity),
		TotalPnL:       totalPnL,
		Mode:           mode,
		Positions:      positions,
	}, nil
}

// GetAccount returns the mode's account snapshot with block flags mapped.
func (b *AlpacaBroker) GetAccount(_ context.Context, mode domain.Mode) (*domain.AccountInfo, error) {
	c, err := b.client(mode)
	if err != nil {
		return nil, err
	}
	acct, err := c.GetAccount()
	if err != nil {
		return nil, fmt.Errorf("fetching alpaca account: %w", mapAlpacaErr(err))
	}

	info := &domain.AccountInfo{
		ID:          acct.ID,
		Cash:        acct.Cash,
		Equity:      acct.Equity,
		BuyingPower: acct.BuyingPower,
		Currency:    acct.Currency,
		DailyLimits: domain.DailyLimits{OrdersRemaining: -1}, // alpaca has no daily order cap
		Mode:        mode,
	}
	switch {
	case acct.AccountBlocked:
		info.Blocked = true
		info.BlockReason = "account blocked"
	case acct.TradingBlocked:
		info.Blocked = true
		info.BlockReason = "trading blocked"
	}
	return info, nil
}

func convertAlpacaOrder(o *alpacaapi.Order, mode domain.Mode) domain.Order {
	order := domain.Order{
		ID:             o.ID,
		ClientOrderID:  o.ClientOrderID,
		Symbol:         o.Symbol,
		Side:           domain.Side(o.Side),
		Type:           domain.OrderType(o.Type),
		TimeInForce:    domain.TimeInForce(o.TimeInForce),
		FilledQty:      o.FilledQty,
		FilledAvgPrice: o.FilledAvgPrice,
		LimitPrice:     o.LimitPrice,
		StopPrice:      o.StopPrice,
		Status:         mapAlpacaStatus(string(o.Status)),
		Mode:           mode,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.Qty != nil {
		order.Qty = *o.Qty
	}
	return order
}

func convertAlpacaPosition(p *alpacaapi.Position, mode domain.Mode) domain.Position {
	pos := domain.Position{
		Symbol:        p.Symbol,
		Qty:           p.Qty,
		AvgEntryPrice: p.AvgEntryPrice,
		Mode:          mode,
	}
	if p.CurrentPrice != nil {
		pos.CurrentPrice = *p.CurrentPrice
	}
	if p.MarketValue != nil {
		pos.MarketValue = *p.MarketValue
	}
	if p.UnrealizedPL != nil {
		pos.UnrealizedPnL = *p.UnrealizedPL
	}
	if p.UnrealizedPLPC != nil {
		pos.UnrealizedPnLPct = *p.UnrealizedPLPC
	}
	return pos
}

func mapAlpacaStatus(status string) domain.OrderStatus {
	switch status {
	case "new":
		return domain.OrderStatusNew
	case "partially_filled":
		return domain.OrderStatusPartiallyFilled
	case "filled":
		return domain.OrderStatusFilled
	case "canceled", "expired", "replaced", "done_for_day":
		return domain.OrderStatusCancelled
	case "rejected", "stopped", "suspended":
		return domain.OrderStatusRejected
	default:
		// accepted, pending_new, pending_cancel, calculated, ...
		return domain.OrderStatusPending
	}
}

// mapAlpacaErr translates alpaca API errors onto the broker sentinels so
// callers can use errors.Is regardless of transport.
func mapAlpacaErr(err error) error {
	var apiErr *alpacaapi.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
		case 404:
			return fmt.Errorf("%w: %s", ErrOrderNotFound, apiErr.Message)
		case 422:
			if strings.Contains(strings.ToLower(apiErr.Message), "cancel") {
				return fmt.Errorf("%w: %s", ErrOrderTerminal, apiErr.Message)
			}
		}
	}
	return err
}
