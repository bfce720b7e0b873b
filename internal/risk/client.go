// Package risk queries the remote risk service for proposed trades. It
// memoizes assessments per proposal tuple for a short window so a form
// re-deriving on every keystroke does not storm the service, and it fails
// open: any transport or service failure yields an explicit UNKNOWN
// assessment, which downstream gating treats as high risk, never as safe.
package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tradedesk/internal/domain"
)

// Default bounds. The timeout caps how long an order form waits before
// proceeding with an UNKNOWN assessment.
const (
	DefaultTimeout = 4 * time.Second
	DefaultMemoTTL = 10 * time.Second
)

// Proposal identifies a trade for assessment. Two proposals with equal
// fields share one memoized assessment.
type Proposal struct {
	Symbol string
	Side   domain.Side
	Qty    decimal.Decimal
	Price  decimal.Decimal
}

func (p Proposal) memoKey() string {
	return fmt.Sprintf("%s|%s|%s|%s", p.Symbol, p.Side, p.Qty, p.Price)
}

type memoEntry struct {
	assessment domain.RiskAssessment
	expiresAt  time.Time
}

// Client calls POST /risk/assess-trade on the backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	timeout    time.Duration
	memoTTL    time.Duration
	log        *slog.Logger

	mu   sync.Mutex
	memo map[string]memoEntry
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-assessment deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithMemoTTL overrides the memoization window.
func WithMemoTTL(d time.Duration) Option {
	return func(c *Client) { c.memoTTL = d }
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a risk service client. token is the bearer token
// attached to every request.
func NewClient(baseURL, token string, log *slog.Logger, opts ...Option) *Client {
	if log == nil {
		log = slog.Default().With("component", "risk")
	}
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		timeout:    DefaultTimeout,
		memoTTL:    DefaultMemoTTL,
		log:        log,
		memo:       make(map[string]memoEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// assessRequest is the wire format of POST /risk/assess-trade.
type assessRequest struct {
	Symbol    string          `json:"symbol"`
	TradeType domain.Side     `json:"trade_type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Assess returns the risk assessment for the proposal. It never returns an
// error: on any failure (network, non-2xx, malformed body, timeout) it
// logs and returns domain.Unknown, so callers always have a gating signal.
func (c *Client) Assess(ctx context.Context, p Proposal) domain.RiskAssessment {
	c.mu.Lock()
	if e, ok := c.memo[p.memoKey()]; ok && time.Now().Before(e.expiresAt) {
		c.mu.Unlock()
		return e.assessment
	}
	c.mu.Unlock()

	assessment, err := c.fetch(ctx, p)
	if err != nil {
		c.log.Warn("risk assessment failed, treating as unknown",
			"symbol", p.Symbol, "side", p.Side, "error", err)
		return domain.Unknown(p.Symbol)
	}

	c.mu.Lock()
	c.memo[p.memoKey()] = memoEntry{assessment: assessment, expiresAt: time.Now().Add(c.memoTTL)}
	c.mu.Unlock()
	return assessment
}

func (c *Client) fetch(ctx context.Context, p Proposal) (domain.RiskAssessment, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(assessRequest{
		Symbol:    p.Symbol,
		TradeType: p.Side,
		Quantity:  p.Qty,
		Price:     p.Price,
	})
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("encoding assess request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/risk/assess-trade", bytes.NewReader(body))
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("building assess request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("calling risk service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.RiskAssessment{}, fmt.Errorf("risk service returned %d: %s", resp.StatusCode, detail)
	}

	var assessment domain.RiskAssessment
	if err := json.NewDecoder(resp.Body).Decode(&assessment); err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("decoding assessment: %w", err)
	}
	if assessment.Level == "" {
		return domain.RiskAssessment{}, fmt.Errorf("risk service returned no level for %s", p.Symbol)
	}
	return assessment, nil
}
