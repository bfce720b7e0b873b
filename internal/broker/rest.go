package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"tradedesk/internal/domain"
	"tradedesk/internal/util"
)

// Compile-time interface check.
var _ Broker = (*RESTBroker)(nil)

// ModeHeader carries the trading mode on every backend request.
const ModeHeader = "X-Trading-Mode"

// RESTBroker talks to the platform's trading backend over HTTP. Every
// request carries a bearer token and the trading mode header; the backend
// scopes all data to that mode.
type RESTBroker struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewRESTBroker creates a RESTBroker for the given backend URL and bearer
// token.
func NewRESTBroker(baseURL, token string) *RESTBroker {
	return &RESTBroker{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name returns "rest".
func (b *RESTBroker) Name() string { return "rest" }

// apiError is the backend's error envelope. The server-provided detail is
// surfaced verbatim so the user sees the real rejection reason.
type apiError struct {
	Status int
	Detail string
}

func (e *apiError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("backend returned status %d", e.Status)
}

func (b *RESTBroker) do(ctx context.Context, method, path string, mode domain.Mode, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
	req.Header.Set(ModeHeader, string(mode))

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrOrderNotFound)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%s %s: %w", method, path, ErrOrderTerminal)
	case resp.StatusCode >= 400:
		var envelope struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := ""
		if json.Unmarshal(raw, &envelope) == nil {
			detail = envelope.Error
			if detail == "" {
				detail = envelope.Detail
			}
		}
		return &apiError{Status: resp.StatusCode, Detail: detail}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// get fetches an idempotent read, retrying transport failures with backoff.
// A definitive backend response, even an error one, is never retried; only
// reads retry, because a submission whose outcome is unknown must not be
// resent.
func (b *RESTBroker) get(ctx context.Context, path string, mode domain.Mode, out any) error {
	var lastErr error
	retryErr := util.Retry(ctx, 3, 200*time.Millisecond, func() error {
		lastErr = b.do(ctx, http.MethodGet, path, mode, nil, out)
		if lastErr == nil {
			return nil
		}
		var apiErr *apiError
		if errors.As(lastErr, &apiErr) ||
			errors.Is(lastErr, ErrUnauthorized) ||
			errors.Is(lastErr, ErrOrderNotFound) ||
			errors.Is(lastErr, ErrOrderTerminal) {
			return nil // the backend answered; stop retrying
		}
		return lastErr
	})
	if retryErr != nil {
		return retryErr
	}
	return lastErr
}

// SubmitOrder posts the order request to POST /trading/order.
func (b *RESTBroker) SubmitOrder(ctx context.Context, req *domain.OrderRequest) (*domain.Order, error) {
	var order domain.Order
	if err := b.do(ctx, http.MethodPost, "/trading/order", req.Mode, req, &order); err != nil {
		return nil, fmt.Errorf("submitting order: %w", err)
	}
	if order.Mode == "" {
		order.Mode = req.Mode
	}
	return &order, nil
}

// CancelOrder posts to POST /trading/orders/{id}/cancel.
func (b *RESTBroker) CancelOrder(ctx context.Context, orderID string, mode domain.Mode) error {
	path := fmt.Sprintf("/trading/orders/%s/cancel", orderID)
	if err := b.do(ctx, http.MethodPost, path, mode, nil, nil); err != nil {
		return fmt.Errorf("cancelling order %s: %w", orderID, err)
	}
	return nil
}

// GetOrders fetches GET /trading/orders for the mode.
func (b *RESTBroker) GetOrders(ctx context.Context, mode domain.Mode) ([]domain.Order, error) {
	var orders []domain.Order
	if err := b.get(ctx, "/trading/orders", mode, &orders); err != nil {
		return nil, fmt.Errorf("fetching orders: %w", err)
	}
	return orders, nil
}

// GetPositions fetches GET /trading/positions for the mode.
func (b *RESTBroker) GetPositions(ctx context.Context, mode domain.Mode) ([]domain.Position, error) {
	var positions []domain.Position
	if err := b.get(ctx, "/trading/positions", mode, &positions); err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}
	return positions, nil
}

// GetPortfolio fetches GET /portfolio for the mode.
func (b *RESTBroker) GetPortfolio(ctx context.Context, mode domain.Mode) (*domain.Portfolio, error) {
	var p domain.Portfolio
	if err := b.get(ctx, "/portfolio", mode, &p); err != nil {
		return nil, fmt.Errorf("fetching portfolio: %w", err)
	}
	if p.Mode == "" {
		p.Mode = mode
	}
	return &p, nil
}

// GetAccount fetches GET /trading/account for the mode.
func (b *RESTBroker) GetAccount(ctx context.Context, mode domain.Mode) (*domain.AccountInfo, error) {
	var a domain.AccountInfo
	if err := b.get(ctx, "/trading/account", mode, &a); err != nil {
		return nil, fmt.Errorf("fetching account: %w", err)
	}
	if a.Mode == "" {
		a.Mode = mode
	}
	return &a, nil
}
