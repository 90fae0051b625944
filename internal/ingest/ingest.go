// Package ingest turns raw ledger export bytes into a cleaned transaction
// table: detected encoding and delimiter, reconciled columns, parsed dates
// and signed amounts, month keys and the payroll cost-center override.
//
// Structural problems (undetectable format, missing required columns) are
// fatal and typed; per-cell problems never are. A bad date excludes the row
// from aggregation, a bad amount becomes 0.0, and both are tallied in
// Table.Degraded so callers can audit data quality.
package ingest

import (
	"encoding/csv"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"pnlengine/internal/core"
)

// Table is the cleaned output of one ingestion pass.
type Table struct {
	Transactions []core.Transaction
	Columns      []string // header as seen in the accepted parse
	Degraded     int      // rows dropped or with unparsable date/amount cells
}

var dateFormats = []string{
	"02/01/2006", // day/month/year, the common Conta Azul format
	"2006-01-02", // ISO
	"01/02/2006", // month/day/year
	"02-01-2006", // dash-separated day/month/year
}

// outflowSynonyms classify a direction cell as money out. Matched by
// normalized substring, so "Saída", "Tipo: Débito" etc. all hit.
var outflowSynonyms = []string{
	"saida", "debito", "despesa", "pagamento",
	"outflow", "debit", "expense", "payment",
}

// payrollKeywords route salary-flavored rows into the canonical payroll cost
// center before matching. Pre-normalized once; accents in the source data are
// handled by normalizing the transaction text, not by listing variants here.
var payrollKeywords = normalizeAll(
	"folha de pagamento", "folha pagamento", "folha",
	"pro labore", "pro-labore",
	"salario", "holerite", "prestador de servico pj",
	"payroll", "pay slip", "salary",
)

func normalizeAll(keywords ...string) []string {
	out := make([]string, len(keywords))
	for i, k := range keywords {
		out[i] = core.Normalize(k)
	}
	return out
}

type tableEncoding struct {
	name   string
	decode func([]byte) (string, bool)
}

var tableEncodings = []tableEncoding{
	{"utf-8", func(b []byte) (string, bool) {
		if !utf8.Valid(b) {
			return "", false
		}
		return string(b), true
	}},
	{"iso-8859-1", charmapDecoder(charmap.ISO8859_1)},
	{"windows-1252", charmapDecoder(charmap.Windows1252)},
}

func charmapDecoder(cm *charmap.Charmap) func([]byte) (string, bool) {
	return func(b []byte) (string, bool) {
		decoded, err := cm.NewDecoder().Bytes(b)
		if err != nil {
			return "", false
		}
		return string(decoded), true
	}
}

var delimiters = []rune{',', ';', '\t'}

// Process runs the full ingestion pipeline over one export upload.
func Process(data []byte, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}

	records, dropped, err := detect(data, logger)
	if err != nil {
		return nil, err
	}

	header := records[0]
	index := reconcileColumns(header)

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		available := make([]string, len(header))
		for i, h := range header {
			available[i] = strings.TrimSpace(h)
		}
		return nil, &SchemaError{Missing: missing, Available: available}
	}

	_, hasDirection := index[colDirection]
	if !hasDirection {
		// Without a direction column the sign embedded in the amount cell is
		// all we have; accounting-negative vs. true-negative is then the
		// exporter's problem, not ours.
		logger.Warn("export has no direction column, trusting signs embedded in amount cells")
	}

	table := &Table{
		Columns:  header,
		Degraded: dropped,
	}

	for _, row := range records[1:] {
		tx, degraded := buildTransaction(row, index, hasDirection)
		if degraded {
			table.Degraded++
		}
		table.Transactions = append(table.Transactions, tx)
	}

	logger.Info("ingestion complete",
		"rows", len(table.Transactions),
		"degraded", table.Degraded,
	)
	return table, nil
}

// detect tries every encoding and delimiter combination with a strict CSV parse
// first, then falls back to a lenient parse that discards malformed rows. A
// parse is accepted only if its header exposes the date column.
func detect(data []byte, logger *slog.Logger) (records [][]string, dropped int, err error) {
	var lastErr error

	for _, enc := range tableEncodings {
		text, ok := enc.decode(data)
		if !ok {
			continue
		}
		text = strings.TrimPrefix(text, "\ufeff")

		for _, delim := range delimiters {
			recs, parseErr := parseStrict(text, delim)
			if parseErr != nil {
				lastErr = parseErr
				continue
			}
			if len(recs) > 0 && hasDateColumn(recs[0]) {
				return recs, 0, nil
			}
		}

		for _, delim := range delimiters {
			recs, skipped := parseLenient(text, delim)
			if len(recs) > 0 && hasDateColumn(recs[0]) {
				logger.Warn("strict parse failed, recovered with lenient parsing",
					"encoding", enc.name,
					"delimiter", string(delim),
					"dropped_rows", skipped,
				)
				return recs, skipped, nil
			}
		}
	}

	return nil, 0, &FormatError{Err: lastErr}
}

func parseStrict(text string, delim rune) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	return r.ReadAll()
}

// parseLenient reads row by row, skipping rows that fail to parse or whose
// field count disagrees with the header.
func parseLenient(text string, delim rune) (records [][]string, skipped int) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if len(records) > 0 && len(row) != len(records[0]) {
			skipped++
			continue
		}
		records = append(records, row)
	}
	return records, skipped
}

func buildTransaction(row []string, index map[string]int, hasDirection bool) (core.Transaction, bool) {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	degraded := false

	date, ok := parseDate(get(colDate))
	if !ok {
		degraded = true
	}

	rawAmount := get(colAmount)
	amount := core.ParseAmount(rawAmount)
	if amountDegraded(rawAmount, amount) {
		degraded = true
	}

	if hasDirection {
		// The direction column is authoritative: it overrides any sign
		// embedded in the raw amount string.
		dir := core.Normalize(get(colDirection))
		amount = math.Abs(amount)
		for _, syn := range outflowSynonyms {
			if strings.Contains(dir, syn) {
				amount = -amount
				break
			}
		}
	}

	tx := core.Transaction{
		Date:         date,
		Amount:       amount,
		CostCenter:   get(colCostCenter),
		Counterparty: get(colCounterparty),
		Category:     get(colCategory),
		Description:  get(colDescription),
	}

	if isPayroll(&tx) {
		tx.CostCenter = core.PayrollCostCenter
	}

	tx.Reconcile()
	return tx, degraded
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// isPayroll searches the payroll keyword list across all text fields
// combined, so a salary paid under an "Identificar" cost center with
// "pró-labore" in the description still lands on the payroll line.
func isPayroll(tx *core.Transaction) bool {
	combined := core.Normalize(tx.CostCenter) + " " +
		core.Normalize(tx.Category) + " " +
		core.Normalize(tx.Description) + " " +
		core.Normalize(tx.Counterparty)
	for _, kw := range payrollKeywords {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	return false
}

// amountDegraded reports whether a zero parse result actually lost data: the
// cell was non-empty and carried nonzero digits (or no digits at all) yet
// still parsed to 0.
func amountDegraded(raw string, parsed float64) bool {
	if parsed != 0 {
		return false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	hasDigit, hasNonzero := false, false
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			hasDigit = true
			if r != '0' {
				hasNonzero = true
			}
		}
	}
	if !hasDigit {
		return true
	}
	return hasNonzero
}
