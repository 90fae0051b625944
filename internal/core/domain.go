package core

import (
	"strings"
	"time"
)

const monthKeyLayout = "2006-01"

type (
	// MonthKey is a year-month aggregation bucket, formatted as "2006-01".
	// The zero value ("") marks a transaction without a parseable date.
	MonthKey string

	// Transaction is a single ledger export row after ingestion. The amount
	// carries the reconciled sign (positive inflow, negative outflow). Apart
	// from the payroll cost-center override applied during ingestion, a
	// transaction is never mutated once built.
	Transaction struct {
		Date         time.Time
		Amount       float64
		CostCenter   string
		Counterparty string
		Category     string
		Description  string
		Month        MonthKey

		// Normalized match fields, computed once so matching never has to
		// re-normalize per rule.
		NormCostCenter string
		NormCategory   string
		MatchText      string
	}
)

// MonthKeyFromTime derives the month bucket for a date. Zero dates map to the
// empty key.
func MonthKeyFromTime(t time.Time) MonthKey {
	if t.IsZero() {
		return ""
	}
	return MonthKey(t.Format(monthKeyLayout))
}

// Add returns the month key n months after m. Invalid keys are returned
// unchanged.
func (m MonthKey) Add(n int) MonthKey {
	t, err := time.Parse(monthKeyLayout, string(m))
	if err != nil {
		return m
	}
	return MonthKeyFromTime(t.AddDate(0, n, 0))
}

// Valid reports whether the key parses as "YYYY-MM".
func (m MonthKey) Valid() bool {
	_, err := time.Parse(monthKeyLayout, string(m))
	return err == nil
}

// Reconcile fills the derived fields of a transaction: the month key and the
// normalized text used by the matcher. MatchText combines counterparty and
// description so a rule pattern can hit either field.
func (t *Transaction) Reconcile() {
	t.Month = MonthKeyFromTime(t.Date)
	t.NormCostCenter = Normalize(t.CostCenter)
	t.NormCategory = Normalize(t.Category)
	t.MatchText = strings.TrimSpace(Normalize(t.Counterparty) + " " + Normalize(t.Description))
}
