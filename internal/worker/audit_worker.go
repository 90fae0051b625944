// Package worker records published reports into the SQLite audit trail.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"pnlengine/internal/amqp"
	"pnlengine/internal/storage"
)

// AuditWorker consumes report-ready messages and appends one audit row per
// published report. Requeued deliveries are safe: the audit trail is
// append-only and duplicates are visible with their timestamps.
type AuditWorker struct {
	storage *storage.SQLiteRepository
}

func NewAuditWorker(storage *storage.SQLiteRepository) *AuditWorker {
	return &AuditWorker{storage: storage}
}

// HandleReportReady processes a single report-ready message.
func (w *AuditWorker) HandleReportReady(ctx context.Context, msg *amqp.ReportReadyMessage) error {
	slog.InfoContext(ctx, "Processing report ready message",
		"batch_id", msg.BatchID,
		"months", len(msg.Months))

	if msg.BatchID == "" {
		return fmt.Errorf("report ready message without batch ID")
	}

	rec := storage.AuditRecord{
		BatchID:      msg.BatchID,
		Months:       len(msg.Months),
		TotalRevenue: msg.TotalRevenue,
		EBITDA:       msg.EBITDA,
		ReceivedAt:   msg.Timestamp,
	}
	if err := w.storage.RecordReportAudit(ctx, rec); err != nil {
		return fmt.Errorf("record report audit: %w", err)
	}

	return nil
}
