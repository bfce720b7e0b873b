package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"tradedesk/internal/domain"
)

// SubmissionRecord is the Parquet schema for exported journal entries.
// Quantities are exported as strings to preserve decimal exactness.
type SubmissionRecord struct {
	ClientOrderID string `parquet:"client_order_id"`
	OrderID       string `parquet:"order_id"`
	Symbol        string `parquet:"symbol"`
	Side          string `parquet:"side"`
	OrderType     string `parquet:"order_type"`
	Qty           string `parquet:"qty"`
	Mode          string `parquet:"mode"`
	Outcome       string `parquet:"outcome"`
	Detail        string `parquet:"detail"`
	CreatedAt     int64  `parquet:"created_at,timestamp(millisecond)"`
	UpdatedAt     int64  `parquet:"updated_at,timestamp(millisecond)"`
}

// ExportParquet writes the journal entries to a Parquet file at path, for
// offline analysis. An empty mode exports both modes. The write goes
// through a temp file and rename so a crash never leaves a truncated
// export.
func (j *Journal) ExportParquet(ctx context.Context, path string, mode domain.Mode) (int, error) {
	entries, err := j.List(ctx, mode, 0)
	if err != nil {
		return 0, err
	}

	records := make([]SubmissionRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, SubmissionRecord{
			ClientOrderID: e.ClientOrderID,
			OrderID:       e.OrderID,
			Symbol:        e.Symbol,
			Side:          string(e.Side),
			OrderType:     string(e.Type),
			Qty:           e.Qty.String(),
			Mode:          string(e.Mode),
			Outcome:       string(e.Outcome),
			Detail:        e.Detail,
			CreatedAt:     e.CreatedAt.UnixMilli(),
			UpdatedAt:     e.UpdatedAt.UnixMilli(),
		})
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("creating export directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, records); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("writing parquet export: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("finalizing parquet export: %w", err)
	}
	return len(records), nil
}
