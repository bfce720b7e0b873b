// Package tradedesk provides a Go client for the tradedesk-server API.
package tradedesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to a tradedesk-server instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server, with the server-provided
// detail when available.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("server returned status %d", e.Status)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := ""
		if json.Unmarshal(raw, &envelope) == nil {
			detail = envelope.Error
		}
		return &APIError{Status: resp.StatusCode, Detail: detail}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// SubmitOrder submits a new order. A zero Mode uses the server session's
// active mode.
func (c *Client) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/api/trading/order", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder cancels an open order in the given mode.
func (c *Client) CancelOrder(ctx context.Context, orderID string, mode Mode) error {
	path := fmt.Sprintf("/api/trading/orders/%s/cancel?mode=%s", url.PathEscape(orderID), mode)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// OrderQuery narrows and pages the order history listing.
type OrderQuery struct {
	Symbol string
	Side   Side
	Status OrderStatus
	Offset int
	Limit  int
}

// OrderPage is one window of the order history.
type OrderPage struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

// GetOrders retrieves the mode's order history, newest first.
func (c *Client) GetOrders(ctx context.Context, mode Mode, q OrderQuery) (*OrderPage, error) {
	params := url.Values{}
	params.Set("mode", string(mode))
	if q.Symbol != "" {
		params.Set("symbol", q.Symbol)
	}
	if q.Side != "" {
		params.Set("side", string(q.Side))
	}
	if q.Status != "" {
		params.Set("status", string(q.Status))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var page OrderPage
	if err := c.do(ctx, http.MethodGet, "/api/trading/orders?"+params.Encode(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPositions retrieves the mode's open positions.
func (c *Client) GetPositions(ctx context.Context, mode Mode) ([]Position, error) {
	var positions []Position
	if err := c.do(ctx, http.MethodGet, "/api/trading/positions?mode="+string(mode), nil, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// GetPortfolio retrieves the mode's portfolio snapshot.
func (c *Client) GetPortfolio(ctx context.Context, mode Mode) (*Portfolio, error) {
	var p Portfolio
	if err := c.do(ctx, http.MethodGet, "/api/portfolio?mode="+string(mode), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetAccount retrieves the mode's account information.
func (c *Client) GetAccount(ctx context.Context, mode Mode) (*AccountInfo, error) {
	var a AccountInfo
	if err := c.do(ctx, http.MethodGet, "/api/trading/account?mode="+string(mode), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Mode retrieves the session's trading mode state.
func (c *Client) Mode(ctx context.Context) (*ModeResponse, error) {
	var mr ModeResponse
	if err := c.do(ctx, http.MethodGet, "/api/session/mode", nil, &mr); err != nil {
		return nil, err
	}
	return &mr, nil
}

// SwitchMode changes the session's trading mode.
func (c *Client) SwitchMode(ctx context.Context, mode Mode) (*ModeResponse, error) {
	var mr ModeResponse
	if err := c.do(ctx, http.MethodPut, "/api/session/mode", switchModeRequest{Mode: mode}, &mr); err != nil {
		return nil, err
	}
	return &mr, nil
}

// AssessRisk retrieves the risk assessment for a proposed trade.
func (c *Client) AssessRisk(ctx context.Context, symbol string, side Side, qty, price string) (*RiskAssessment, error) {
	params := url.Values{}
	params.Set("side", string(side))
	params.Set("quantity", qty)
	params.Set("price", price)

	var a RiskAssessment
	path := "/api/risk/" + url.PathEscape(symbol) + "?" + params.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
