package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"tradedesk/internal/broker"
	"tradedesk/internal/domain"
	"tradedesk/internal/risk"
	"tradedesk/internal/session"
	"tradedesk/internal/validate"
	"tradedesk/internal/views"
)

// Engine is the execution surface the server fronts. *engine.Engine
// implements it.
type Engine interface {
	ExecuteTrade(ctx context.Context, req *domain.OrderRequest) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID string, mode domain.Mode) error
	GetPortfolio(ctx context.Context, mode domain.Mode) (*domain.Portfolio, error)
	GetAccount(ctx context.Context, mode domain.Mode) (*domain.AccountInfo, error)
	GetOrders(ctx context.Context, mode domain.Mode) ([]domain.Order, error)
	GetPositions(ctx context.Context, mode domain.Mode) ([]domain.Position, error)
}

// Assessor produces risk assessments. *risk.Client implements it.
type Assessor interface {
	Assess(ctx context.Context, p risk.Proposal) domain.RiskAssessment
}

// Server serves the trading REST API.
type Server struct {
	engine  Engine
	views   *views.Views
	session *session.Controller
	risk    Assessor
	log     *slog.Logger
}

// NewServer creates the API server. risk may be nil to disable the risk
// endpoint.
func NewServer(e Engine, s *session.Controller, r Assessor, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default().With("component", "httpapi")
	}
	return &Server{
		engine:  e,
		views:   views.New(e),
		session: s,
		risk:    r,
		log:     log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/trading/order", s.handleSubmitOrder)
	mux.HandleFunc("POST /api/trading/orders/{id}/cancel", s.handleCancelOrder)
	mux.HandleFunc("GET /api/trading/orders", s.handleOrders)
	mux.HandleFunc("GET /api/trading/positions", s.handlePositions)
	mux.HandleFunc("GET /api/trading/account", s.handleAccount)
	mux.HandleFunc("GET /api/portfolio", s.handlePortfolio)
	mux.HandleFunc("GET /api/session/mode", s.handleGetMode)
	mux.HandleFunc("PUT /api/session/mode", s.handleSwitchMode)
	mux.HandleFunc("GET /api/risk/{symbol}", s.handleRisk)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+broker.ModeHeader)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeTradingError maps pipeline errors onto HTTP statuses. The error text
// is surfaced verbatim so the caller sees the real rejection reason.
func writeTradingError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, broker.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, broker.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, broker.ErrOrderTerminal):
		status = http.StatusConflict
	case errors.Is(err, session.ErrTradingBlocked):
		status = http.StatusForbidden
	case errors.Is(err, session.ErrDailyOrderLimit):
		status = http.StatusTooManyRequests
	}
	writeError(w, status, err.Error())
}

// requestMode resolves the trading mode for a request: the "mode" query
// param, then the mode header, then the session's active mode.
func (s *Server) requestMode(r *http.Request) (domain.Mode, error) {
	raw := r.URL.Query().Get("mode")
	if raw == "" {
		raw = r.Header.Get(broker.ModeHeader)
	}
	if raw == "" {
		return s.session.Mode(), nil
	}
	mode := domain.Mode(strings.ToLower(raw))
	if !mode.Valid() {
		return "", errors.New("mode must be paper or live")
	}
	return mode, nil
}

// ---------------------------------------------------------------------------
// Trading
// ---------------------------------------------------------------------------

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var body SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode := body.Mode
	if mode == "" {
		mode = s.session.Mode()
	}
	if !mode.Valid() {
		writeError(w, http.StatusBadRequest, "mode must be paper or live")
		return
	}

	req := &domain.OrderRequest{
		Symbol:      strings.ToUpper(strings.TrimSpace(body.Symbol)),
		Side:        body.Side,
		Type:        body.Type,
		Qty:         body.Qty,
		LimitPrice:  body.LimitPrice,
		StopPrice:   body.StopPrice,
		TimeInForce: body.TimeInForce,
		Mode:        mode,
	}

	if errs := validate.OrderRequest(req, decimal.Zero, decimal.Zero); len(errs) > 0 {
		fields := make(map[string]string, len(errs))
		for field, ferr := range errs {
			fields[field] = ferr.Error()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ValidationErrorResponse{Error: "validation failed", Fields: fields})
		return
	}

	order, err := s.engine.ExecuteTrade(r.Context(), req)
	if err != nil {
		writeTradingError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(order)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	mode, err := s.requestMode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.CancelOrder(r.Context(), orderID, mode); err != nil {
		writeTradingError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	mode, err := s.requestMode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	filter := views.OrderFilter{
		Symbol: q.Get("symbol"),
		Side:   domain.Side(q.Get("side")),
		Status: domain.OrderStatus(q.Get("status")),
	}
	page := views.Page{
		Offset: intParam(q.Get("offset"), 0),
		Limit:  intParam(q.Get("limit"), 100),
	}

	result, err := s.views.OrderHistory(r.Context(), mode, filter, page)
	if err != nil {
		writeTradingError(w, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	mode, err := s.requestMode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	positions, err := s.views.Positions(r.Context(), mode, r.URL.Query().Get("symbol"))
	if err != nil {
		writeTradingError(w, err)
		return
	}
	writeJSON(w, positions)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	mode, err := s.requestMode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	portfolio, err := s.engine.GetPortfolio(r.Context(), mode)
	if err != nil {
		writeTradingError(w, err)
		return
	}
	writeJSON(w, portfolio)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	mode, err := s.requestMode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	account, err := s.engine.GetAccount(r.Context(), mode)
	if err != nil {
		writeTradingError(w, err)
		return
	}
	writeJSON(w, account)
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

func (s *Server) handleGetMode(w http.ResponseWriter, r *http.Request) {
	state := s.session.Snapshot()
	writeJSON(w, ModeResponse{
		Mode:        state.Mode,
		Blocked:     state.Blocked,
		BlockReason: state.BlockReason,
	})
}

func (s *Server) handleSwitchMode(w http.ResponseWriter, r *http.Request) {
	var body SwitchModeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.session.SwitchMode(body.Mode); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.handleGetMode(w, r)
}

// ---------------------------------------------------------------------------
// Risk
// ---------------------------------------------------------------------------

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	if s.risk == nil {
		writeError(w, http.StatusServiceUnavailable, "risk service not configured")
		return
	}

	symbol := strings.ToUpper(r.PathValue("symbol"))
	q := r.URL.Query()
	side := domain.Side(q.Get("side"))
	if side == "" {
		side = domain.OrderSideBuy
	}
	qty, _ := decimal.NewFromString(q.Get("quantity"))
	price, _ := decimal.NewFromString(q.Get("price"))

	assessment := s.risk.Assess(r.Context(), risk.Proposal{
		Symbol: symbol,
		Side:   side,
		Qty:    qty,
		Price:  price,
	})
	writeJSON(w, assessment)
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
