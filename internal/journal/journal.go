// Package journal keeps a local audit trail of every order submission
// attempt and its outcome in SQLite. The journal is append-mostly and
// advisory: the backend's order history is authoritative, but the journal
// records attempts that never produced a server order (rejections,
// transport failures), which the backend cannot show.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tradedesk/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Outcome classifies how a submission attempt ended.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeSubmitted Outcome = "submitted"
	OutcomeFailed    Outcome = "failed"
)

// Entry is one journaled submission attempt.
type Entry struct {
	ClientOrderID string
	OrderID       string
	Symbol        string
	Side          domain.Side
	Type          domain.OrderType
	Qty           decimal.Decimal
	Mode          domain.Mode
	Outcome       Outcome
	Detail        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Journal is a SQLite-backed submission log.
type Journal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
	client_order_id TEXT PRIMARY KEY,
	order_id        TEXT NOT NULL DEFAULT '',
	symbol          TEXT NOT NULL,
	side            TEXT NOT NULL,
	order_type      TEXT NOT NULL,
	qty             TEXT NOT NULL,
	mode            TEXT NOT NULL,
	outcome         TEXT NOT NULL,
	detail          TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMP NOT NULL,
	updated_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_mode ON submissions(mode, created_at);
`

// Open opens (or creates) the journal database at dbPath.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordAttempt logs a submission before it is sent. The entry starts in
// OutcomePending so a crash mid-submission leaves a visible trace.
func (j *Journal) RecordAttempt(ctx context.Context, req *domain.OrderRequest) error {
	now := time.Now().UTC()
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO submissions (client_order_id, symbol, side, order_type, qty, mode, outcome, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ClientOrderID, req.Symbol, string(req.Side), string(req.Type),
		req.Qty.String(), string(req.Mode), string(OutcomePending), now, now)
	if err != nil {
		return fmt.Errorf("recording submission attempt: %w", err)
	}
	return nil
}

// RecordOutcome updates the attempt with the result: the server order on
// success, or the failure detail.
func (j *Journal) RecordOutcome(ctx context.Context, clientOrderID string, order *domain.Order, submitErr error) error {
	outcome := OutcomeSubmitted
	orderID, detail := "", ""
	if submitErr != nil {
		outcome = OutcomeFailed
		detail = submitErr.Error()
	} else if order != nil {
		orderID = order.ID
	}

	_, err := j.db.ExecContext(ctx, `
		UPDATE submissions SET order_id = ?, outcome = ?, detail = ?, updated_at = ?
		WHERE client_order_id = ?`,
		orderID, string(outcome), detail, time.Now().UTC(), clientOrderID)
	if err != nil {
		return fmt.Errorf("recording submission outcome: %w", err)
	}
	return nil
}

// List returns the most recent entries for a mode, newest first. An empty
// mode lists both modes; a non-positive limit returns everything.
func (j *Journal) List(ctx context.Context, mode domain.Mode, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	query := `
		SELECT client_order_id, order_id, symbol, side, order_type, qty, mode, outcome, detail, created_at, updated_at
		FROM submissions`
	args := []any{}
	if mode != "" {
		query += ` WHERE mode = ?`
		args = append(args, string(mode))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing journal entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var side, typ, qty, mode, outcome string
		if err := rows.Scan(&e.ClientOrderID, &e.OrderID, &e.Symbol, &side, &typ, &qty,
			&mode, &outcome, &e.Detail, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		e.Side = domain.Side(side)
		e.Type = domain.OrderType(typ)
		e.Mode = domain.Mode(mode)
		e.Outcome = Outcome(outcome)
		e.Qty, err = decimal.NewFromString(qty)
		if err != nil {
			return nil, fmt.Errorf("parsing journaled quantity %q: %w", qty, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry for a client order id, or ErrNotFound.
func (j *Journal) Get(ctx context.Context, clientOrderID string) (*Entry, error) {
	entries, err := j.scanOne(ctx, clientOrderID)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (j *Journal) scanOne(ctx context.Context, clientOrderID string) (*Entry, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT client_order_id, order_id, symbol, side, order_type, qty, mode, outcome, detail, created_at, updated_at
		FROM submissions WHERE client_order_id = ?`, clientOrderID)

	var e Entry
	var side, typ, qty, mode, outcome string
	err := row.Scan(&e.ClientOrderID, &e.OrderID, &e.Symbol, &side, &typ, &qty,
		&mode, &outcome, &e.Detail, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("journal entry %s: not found", clientOrderID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading journal entry: %w", err)
	}
	e.Side = domain.Side(side)
	e.Type = domain.OrderType(typ)
	e.Mode = domain.Mode(mode)
	e.Outcome = Outcome(outcome)
	e.Qty, err = decimal.NewFromString(qty)
	if err != nil {
		return nil, fmt.Errorf("parsing journaled quantity %q: %w", qty, err)
	}
	return &e, nil
}
