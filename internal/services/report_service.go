// Package services orchestrates the statement pipeline: ingestion, rule
// matching, aggregation, persistence, caching and event publishing.
package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	intamqp "pnlengine/internal/amqp"
	"pnlengine/internal/cache"
	"pnlengine/internal/core"
	"pnlengine/internal/engine"
	"pnlengine/internal/forecast"
	"pnlengine/internal/ingest"
	"pnlengine/internal/log"
	"pnlengine/internal/mapping"
	"pnlengine/internal/report"
	"pnlengine/internal/storage"
)

// ErrInvalidOverride is returned when an override targets a line that is
// not overridable or a malformed month.
var ErrInvalidOverride = errors.New("invalid override")

// UploadSummary is what an upload returns to the caller.
type UploadSummary struct {
	BatchID      string              `json:"batch_id"`
	Rows         int                 `json:"rows"`
	Degraded     int                 `json:"degraded"`
	Matched      int                 `json:"matched"`
	Unclassified engine.Unclassified `json:"unclassified"`
	Months       []core.MonthKey     `json:"months"`
}

// DrillDownRow is one transaction behind a statement cell.
type DrillDownRow struct {
	Date         string  `json:"date"`
	Amount       float64 `json:"amount"`
	CostCenter   string  `json:"cost_center"`
	Counterparty string  `json:"counterparty"`
	Category     string  `json:"category,omitempty"`
	Description  string  `json:"description,omitempty"`
}

// ReportService wires ingestion, matching and aggregation to the SQLite
// store, the report cache and the AMQP event stream.
type ReportService struct {
	storage    *storage.SQLiteRepository
	amqpClient *intamqp.Client
	matcher    *mapping.Matcher
	cache      cache.Cache[*engine.Result]
	logger     *log.Logger

	opts           engine.Options
	forecastMonths int

	mu        sync.RWMutex
	overrides map[string]engine.Overrides // batch ID -> override map
}

func NewReportService(
	storage *storage.SQLiteRepository,
	amqpClient *intamqp.Client,
	matcher *mapping.Matcher,
	resultCache cache.Cache[*engine.Result],
	opts engine.Options,
	forecastMonths int,
	logger *log.Logger,
) *ReportService {
	if forecastMonths <= 0 {
		forecastMonths = forecast.DefaultMonthsAhead
	}
	return &ReportService{
		storage:        storage,
		amqpClient:     amqpClient,
		matcher:        matcher,
		cache:          resultCache,
		opts:           opts,
		forecastMonths: forecastMonths,
		logger:         logger,
		overrides:      make(map[string]engine.Overrides),
	}
}

// ProcessUpload ingests one exported ledger file, matches and aggregates
// it, persists the batch and announces the computed report. A publish
// failure does not fail the upload; the batch is already stored.
func (s *ReportService) ProcessUpload(ctx context.Context, filename string, data []byte) (*UploadSummary, error) {
	table, err := ingest.Process(data, s.logger.Logger)
	if err != nil {
		return nil, err
	}

	res := engine.Compute(table.Transactions, s.matcher, nil, s.opts, s.logger.Logger)

	batchID := newBatchID()
	lines := make([]int, len(table.Transactions))
	for i := range table.Transactions {
		if m, ok := s.matcher.Match(&table.Transactions[i]); ok {
			lines[i] = m.Line
		}
	}

	batch := storage.Batch{
		ID:             batchID,
		Filename:       filename,
		RowCount:       len(table.Transactions),
		DegradedCount:  table.Degraded,
		UnmatchedCount: res.Unclassified.Count,
	}
	if err := s.storage.SaveBatch(ctx, batch, table.Transactions, lines); err != nil {
		return nil, fmt.Errorf("save batch: %w", err)
	}

	s.cache.Set(resultKey(batchID, s.opts), res)

	s.publishReportReady(ctx, batchID, res)

	s.logger.InfoContext(ctx, "Upload processed",
		log.FieldBatchID, batchID,
		log.FieldRows, len(table.Transactions),
		log.FieldDegraded, table.Degraded,
		"unmatched", res.Unclassified.Count)

	return &UploadSummary{
		BatchID:      batchID,
		Rows:         len(table.Transactions),
		Degraded:     table.Degraded,
		Matched:      res.Matched,
		Unclassified: res.Unclassified,
		Months:       res.Months,
	}, nil
}

// Result computes (or returns the cached) aggregation for a batch,
// applying its stored overrides and the optional date range.
func (s *ReportService) Result(ctx context.Context, batchID string, from, to time.Time) (*engine.Result, error) {
	opts := s.opts
	opts.From, opts.To = from, to

	key := resultKey(batchID, opts)
	if res, ok := s.cache.Get(key); ok {
		return res, nil
	}

	txs, err := s.storage.GetTransactions(ctx, batchID)
	if err != nil {
		return nil, err
	}

	res := engine.Compute(txs, s.matcher, s.overridesFor(batchID), opts, s.logger.Logger)
	s.cache.Set(key, res)
	return res, nil
}

// Statement returns the month-by-month statement for a batch.
func (s *ReportService) Statement(ctx context.Context, batchID string, from, to time.Time) (*report.Statement, error) {
	res, err := s.Result(ctx, batchID, from, to)
	if err != nil {
		return nil, err
	}
	return report.Build(res), nil
}

// StatementWithOverrides computes a statement with an ad-hoc override map,
// without touching the batch's stored overrides or the cache. Validation is
// the same as SetOverrides.
func (s *ReportService) StatementWithOverrides(ctx context.Context, batchID string, from, to time.Time, overrides engine.Overrides) (*report.Statement, error) {
	if len(overrides) == 0 {
		return s.Statement(ctx, batchID, from, to)
	}

	for line, byMonth := range overrides {
		if !core.FinalLines[line] {
			return nil, fmt.Errorf("%w: line %d is not overridable", ErrInvalidOverride, line)
		}
		for month := range byMonth {
			if !month.Valid() {
				return nil, fmt.Errorf("%w: malformed month %q", ErrInvalidOverride, month)
			}
		}
	}

	txs, err := s.storage.GetTransactions(ctx, batchID)
	if err != nil {
		return nil, err
	}

	opts := s.opts
	opts.From, opts.To = from, to
	res := engine.Compute(txs, s.matcher, overrides, opts, s.logger.Logger)
	return report.Build(res), nil
}

// Dashboard returns the KPI view for a batch.
func (s *ReportService) Dashboard(ctx context.Context, batchID string) (*report.Dashboard, error) {
	res, err := s.Result(ctx, batchID, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	return report.BuildDashboard(res), nil
}

// Forecast projects revenue and EBITDA past the observed months.
func (s *ReportService) Forecast(ctx context.Context, batchID string, monthsAhead int) (*forecast.Forecast, error) {
	if monthsAhead <= 0 {
		monthsAhead = s.forecastMonths
	}
	res, err := s.Result(ctx, batchID, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	return forecast.Project(res, monthsAhead), nil
}

// DrillDown lists the transactions behind one statement line, optionally
// restricted to a month, together with their sum. It reuses the matcher, so
// the listed rows are exactly the rows the aggregation counted.
func (s *ReportService) DrillDown(ctx context.Context, batchID string, line int, month core.MonthKey) ([]DrillDownRow, float64, error) {
	txs, err := s.storage.GetTransactions(ctx, batchID)
	if err != nil {
		return nil, 0, err
	}

	var total float64
	rows := make([]DrillDownRow, 0)
	for i := range txs {
		tx := &txs[i]
		if month != "" && tx.Month != month {
			continue
		}
		if !s.matcher.MatchesLine(tx, line) {
			continue
		}
		total += tx.Amount
		rows = append(rows, DrillDownRow{
			Date:         tx.Date.Format("2006-01-02"),
			Amount:       tx.Amount,
			CostCenter:   tx.CostCenter,
			Counterparty: tx.Counterparty,
			Category:     tx.Category,
			Description:  tx.Description,
		})
	}
	return rows, total, nil
}

// SetOverrides replaces the override map of a batch and invalidates its
// cached results. Only the reserved final lines accept overrides.
func (s *ReportService) SetOverrides(ctx context.Context, batchID string, overrides engine.Overrides) error {
	if _, err := s.storage.GetBatch(ctx, batchID); err != nil {
		return err
	}

	for line, byMonth := range overrides {
		if !core.FinalLines[line] {
			return fmt.Errorf("%w: line %d is not overridable", ErrInvalidOverride, line)
		}
		for month := range byMonth {
			if !month.Valid() {
				return fmt.Errorf("%w: malformed month %q", ErrInvalidOverride, month)
			}
		}
	}

	s.mu.Lock()
	if len(overrides) == 0 {
		delete(s.overrides, batchID)
	} else {
		s.overrides[batchID] = overrides
	}
	s.mu.Unlock()

	s.cache.DeletePrefix(cache.BatchPrefix(batchID))

	s.logger.InfoContext(ctx, "Overrides updated",
		log.FieldBatchID, batchID,
		"lines", len(overrides))
	return nil
}

// Overrides returns the current override map of a batch.
func (s *ReportService) Overrides(batchID string) engine.Overrides {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overrides[batchID]
}

// Batches lists the most recent stored batches.
func (s *ReportService) Batches(ctx context.Context, limit int) ([]storage.Batch, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.storage.ListBatches(ctx, limit)
}

func (s *ReportService) overridesFor(batchID string) engine.Overrides {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overrides[batchID]
}

func (s *ReportService) publishReportReady(ctx context.Context, batchID string, res *engine.Result) {
	if s.amqpClient == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping report ready message")
		return
	}

	var totalRevenue, ebitda float64
	for _, m := range res.Months {
		totalRevenue += res.Value(core.LineTotalRevenue, m)
		ebitda += res.Value(core.LineEBITDA, m)
	}

	msg := intamqp.NewReportReadyMessage(batchID, res.Months, totalRevenue, ebitda)
	if err := s.amqpClient.PublishReportReady(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish report ready message",
			log.FieldBatchID, batchID,
			log.FieldError, err)
	}
}

// Close closes storage and AMQP connections.
func (s *ReportService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close report service: %v", errs)
	}
	return nil
}

func newBatchID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("batch-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func resultKey(batchID string, opts engine.Options) string {
	view := "result"
	if !opts.From.IsZero() || !opts.To.IsZero() {
		view = fmt.Sprintf("result:%d:%d", opts.From.Unix(), opts.To.Unix())
	}
	return cache.Key(batchID, view)
}
