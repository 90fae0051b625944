// Package storage persists uploaded batches and their transactions in
// SQLite so that drill-down and re-computation work without re-uploading
// the source file. It also keeps an audit trail of published reports.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pnlengine/internal/core"

	_ "modernc.org/sqlite"
)

// ErrBatchNotFound is returned when a batch ID has no stored rows.
var ErrBatchNotFound = errors.New("batch not found")

// Batch describes a stored upload.
type Batch struct {
	ID             string
	Filename       string
	RowCount       int
	DegradedCount  int
	UnmatchedCount int
	CreatedAt      time.Time
}

// AuditRecord is one row of the published-report audit trail.
type AuditRecord struct {
	BatchID      string
	Months       int
	TotalRevenue float64
	EBITDA       float64
	ReceivedAt   time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveBatch stores a batch and its transactions atomically. lines maps a
// transaction index to its matched statement line (0 = unmatched).
func (r *SQLiteRepository) SaveBatch(ctx context.Context, batch Batch, txs []core.Transaction, lines []int) error {
	if len(lines) != len(txs) {
		return fmt.Errorf("lines length %d does not match transactions length %d", len(lines), len(txs))
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	_, err = dbTx.ExecContext(ctx,
		`INSERT INTO batches (id, filename, row_count, degraded_count, unmatched_count)
		 VALUES (?, ?, ?, ?, ?)`,
		batch.ID, batch.Filename, batch.RowCount, batch.DegradedCount, batch.UnmatchedCount)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	stmt, err := dbTx.PrepareContext(ctx,
		`INSERT INTO transactions (batch_id, tx_date, month, amount, cost_center, counterparty, category, description, line)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare transaction insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range txs {
		var txDate string
		if !t.Date.IsZero() {
			txDate = t.Date.Format(time.RFC3339)
		}
		_, err := stmt.ExecContext(ctx,
			batch.ID, txDate, string(t.Month), t.Amount,
			t.CostCenter, t.Counterparty, t.Category, t.Description, lines[i])
		if err != nil {
			return fmt.Errorf("insert transaction %d: %w", i, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	slog.InfoContext(ctx, "Batch saved to SQLite",
		"batch_id", batch.ID,
		"rows", len(txs),
		"degraded", batch.DegradedCount,
		"unmatched", batch.UnmatchedCount)

	return nil
}

// GetBatch returns batch metadata, or ErrBatchNotFound.
func (r *SQLiteRepository) GetBatch(ctx context.Context, batchID string) (*Batch, error) {
	var b Batch
	err := r.db.QueryRowContext(ctx,
		`SELECT id, filename, row_count, degraded_count, unmatched_count, created_at
		 FROM batches WHERE id = ?`, batchID).
		Scan(&b.ID, &b.Filename, &b.RowCount, &b.DegradedCount, &b.UnmatchedCount, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &b, nil
}

// ListBatches returns the most recent batches, newest first.
func (r *SQLiteRepository) ListBatches(ctx context.Context, limit int) ([]Batch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, filename, row_count, degraded_count, unmatched_count, created_at
		 FROM batches ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.Filename, &b.RowCount, &b.DegradedCount, &b.UnmatchedCount, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// GetTransactions rebuilds the transactions of a batch. Normalized fields
// are recomputed on load rather than stored.
func (r *SQLiteRepository) GetTransactions(ctx context.Context, batchID string) ([]core.Transaction, error) {
	if _, err := r.GetBatch(ctx, batchID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT tx_date, amount, cost_center, counterparty, category, description
		 FROM transactions WHERE batch_id = ? ORDER BY id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("get transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var txDate string
		if err := rows.Scan(&txDate, &t.Amount, &t.CostCenter, &t.Counterparty, &t.Category, &t.Description); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if txDate != "" {
			if parsed, err := time.Parse(time.RFC3339, txDate); err == nil {
				t.Date = parsed
			}
		}
		t.Reconcile()
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// RecordReportAudit appends one row to the published-report audit trail.
func (r *SQLiteRepository) RecordReportAudit(ctx context.Context, rec AuditRecord) error {
	receivedAt := rec.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO report_audit (batch_id, months, total_revenue, ebitda, received_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.BatchID, rec.Months, rec.TotalRevenue, rec.EBITDA, receivedAt)
	if err != nil {
		return fmt.Errorf("record report audit: %w", err)
	}

	slog.InfoContext(ctx, "Report audit recorded",
		"batch_id", rec.BatchID,
		"months", rec.Months,
		"ebitda", rec.EBITDA)
	return nil
}

// ListReportAudits returns audit rows for a batch, newest first.
func (r *SQLiteRepository) ListReportAudits(ctx context.Context, batchID string, limit int) ([]AuditRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT batch_id, months, total_revenue, ebitda, received_at
		 FROM report_audit WHERE batch_id = ? ORDER BY received_at DESC, id DESC LIMIT ?`,
		batchID, limit)
	if err != nil {
		return nil, fmt.Errorf("list report audits: %w", err)
	}
	defer rows.Close()

	var recs []AuditRecord
	for rows.Next() {
		var rec AuditRecord
		if err := rows.Scan(&rec.BatchID, &rec.Months, &rec.TotalRevenue, &rec.EBITDA, &rec.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan report audit: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
