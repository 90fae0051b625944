// Package engine accumulates matched transactions into the fixed monthly P&L
// line schema and derives the standard financial metrics (gross profit,
// EBITDA, margins) from them.
//
// The engine is pure batch state: everything is rebuilt per call, nothing is
// cached across calls, and a call either completes fully or returns nothing.
// Diagnostics go through the explicitly passed logger so the package stays
// side-effect-free and testable in isolation.
package engine

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"pnlengine/internal/core"
	"pnlengine/internal/mapping"
)

const (
	defaultMaterialityThreshold = 10000
	defaultMaxMonths            = 120
)

// Options tune one aggregation pass. Zero values select the defaults.
type Options struct {
	// PaymentProcessingRate is the store fee applied to sales revenue.
	PaymentProcessingRate float64
	// MaterialityThreshold is the absolute amount above which an unmatched
	// transaction is logged.
	MaterialityThreshold float64
	// MaxMonths bounds processed months to the most recent N, capping memory
	// on very long histories.
	MaxMonths int
	// From/To optionally restrict the pass to a date range (inclusive).
	From, To time.Time
}

func (o Options) withDefaults() Options {
	if o.PaymentProcessingRate == 0 {
		o.PaymentProcessingRate = core.DefaultPaymentProcessingRate
	}
	if o.MaterialityThreshold == 0 {
		o.MaterialityThreshold = defaultMaterialityThreshold
	}
	if o.MaxMonths == 0 {
		o.MaxMonths = defaultMaxMonths
	}
	return o
}

// Overrides is a sparse value map keyed by reserved final line and month.
// Entries for anything but total revenue, EBITDA and net result are ignored.
type Overrides map[int]map[core.MonthKey]float64

// Unclassified totals the transactions no rule claimed, making completeness
// checkable without reading logs.
type Unclassified struct {
	Count int     `json:"count"`
	Total float64 `json:"total"` // algebraic sum of unmatched signed amounts
}

// Result is the fully resolved (line, month) table for one pass.
type Result struct {
	Months          []core.MonthKey                   `json:"months"`
	Lines           map[int]map[core.MonthKey]float64 `json:"lines"`
	GrossMarginPct  map[core.MonthKey]float64         `json:"gross_margin_pct"`
	EBITDAMarginPct map[core.MonthKey]float64         `json:"ebitda_margin_pct"`
	Matched         int                               `json:"matched"`
	Skipped         int                               `json:"skipped"` // undated or out-of-range rows
	Unclassified    Unclassified                      `json:"unclassified"`
}

// Value reads one cell of the table; absent cells are 0.
func (r *Result) Value(line int, month core.MonthKey) float64 {
	if byMonth, ok := r.Lines[line]; ok {
		return byMonth[month]
	}
	return 0
}

func (r *Result) add(line int, month core.MonthKey, v float64) {
	byMonth, ok := r.Lines[line]
	if !ok {
		byMonth = make(map[core.MonthKey]float64)
		r.Lines[line] = byMonth
	}
	byMonth[month] += v
}

func (r *Result) set(line int, month core.MonthKey, v float64) {
	byMonth, ok := r.Lines[line]
	if !ok {
		byMonth = make(map[core.MonthKey]float64)
		r.Lines[line] = byMonth
	}
	byMonth[month] = v
}

// Compute runs one full accumulation + derivation pass.
//
// Transaction-sourced lines accumulate the exact signed amounts of their
// matched transactions, order-independently. The reserved derived lines are
// then written exactly once per month, overrides land last (restricted to
// the final lines), and margins are read off the final table.
func Compute(txs []core.Transaction, matcher *mapping.Matcher, overrides Overrides, opts Options, logger *slog.Logger) *Result {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()

	inRange := func(tx *core.Transaction) bool {
		if tx.Month == "" {
			return false // unparsable date, excluded from aggregation
		}
		if !opts.From.IsZero() && tx.Date.Before(opts.From) {
			return false
		}
		if !opts.To.IsZero() && tx.Date.After(opts.To) {
			return false
		}
		return true
	}

	// Month axis: every distinct month in range, ascending, capped to the
	// most recent MaxMonths.
	monthSet := make(map[core.MonthKey]struct{})
	for i := range txs {
		if inRange(&txs[i]) {
			monthSet[txs[i].Month] = struct{}{}
		}
	}
	months := make([]core.MonthKey, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })
	if len(months) > opts.MaxMonths {
		months = months[len(months)-opts.MaxMonths:]
		monthSet = make(map[core.MonthKey]struct{}, len(months))
		for _, m := range months {
			monthSet[m] = struct{}{}
		}
	}

	res := &Result{
		Months:          months,
		Lines:           make(map[int]map[core.MonthKey]float64),
		GrossMarginPct:  make(map[core.MonthKey]float64),
		EBITDAMarginPct: make(map[core.MonthKey]float64),
	}

	// Accumulation
	for i := range txs {
		tx := &txs[i]
		if !inRange(tx) {
			res.Skipped++
			continue
		}
		if _, ok := monthSet[tx.Month]; !ok {
			res.Skipped++
			continue
		}

		hit, ok := matcher.Match(tx)
		if !ok {
			res.Unclassified.Count++
			res.Unclassified.Total += tx.Amount
			if math.Abs(tx.Amount) > opts.MaterialityThreshold {
				logger.Warn("unclassified material transaction",
					"amount", tx.Amount,
					"cost_center", tx.NormCostCenter,
					"match_text", tx.MatchText,
					"month", tx.Month,
				)
			}
			continue
		}
		res.add(hit.Line, tx.Month, tx.Amount)
		res.Matched++
	}

	// Derivation, once per month
	for _, m := range months {
		deriveMonth(res, m, opts.PaymentProcessingRate)
	}

	// Overrides land last and only on the final lines; in-range months only.
	for line, byMonth := range overrides {
		if !core.FinalLines[line] {
			continue
		}
		for month, v := range byMonth {
			if _, ok := monthSet[month]; ok {
				res.set(line, month, v)
			}
		}
	}

	// Margins read the final table so an overridden revenue or EBITDA is
	// reflected. Zero revenue yields exactly 0, never NaN or Inf.
	for _, m := range months {
		rev := res.Value(core.LineTotalRevenue, m)
		if rev != 0 {
			res.GrossMarginPct[m] = res.Value(core.LineGrossProfit, m) / rev * 100
			res.EBITDAMarginPct[m] = res.Value(core.LineEBITDA, m) / rev * 100
		} else {
			res.GrossMarginPct[m] = 0
			res.EBITDAMarginPct[m] = 0
		}
	}

	logger.Info("aggregation complete",
		"months", len(months),
		"matched", res.Matched,
		"unclassified", res.Unclassified.Count,
		"unclassified_total", res.Unclassified.Total,
	)
	return res
}

// deriveMonth writes the reserved derived lines for one month. Revenue keeps
// its sign so refunds and chargebacks reduce rather than inflate it; cost
// lines are folded through abs() and stored negated for display.
func deriveMonth(res *Result, m core.MonthKey, processingRate float64) {
	googleRev := res.Value(core.LineGooglePlayRevenue, m)
	appleRev := res.Value(core.LineAppStoreRevenue, m)
	investIncome := res.Value(core.LineInvestmentIncome, m) + res.Value(core.LineMiscRevenue, m)

	totalRevenue := googleRev + appleRev + investIncome
	revenueNoTax := googleRev + appleRev

	// Negative sales revenue (refunds) makes the fee negative too, so
	// subtracting it below credits the fee back.
	paymentProcessing := revenueNoTax * processingRate

	var cogs float64
	for line := core.LineCOGSFirst; line <= core.LineCOGSLast; line++ {
		cogs += math.Abs(res.Value(line, m))
	}

	grossProfit := totalRevenue - paymentProcessing - cogs

	marketing := math.Abs(res.Value(core.LineMarketing, m))
	wages := math.Abs(res.Value(core.LineWages, m))
	techSupport := math.Abs(res.Value(core.LineTechSupport, m)) +
		math.Abs(res.Value(core.LineTechSupportGP, m))
	otherExpenses := math.Abs(res.Value(core.LineOtherExpenses, m))

	sga := marketing + wages + techSupport
	totalOpex := sga + otherExpenses

	ebitda := grossProfit - totalOpex
	netResult := ebitda // no D&A or tax modeling

	res.set(core.LineTotalRevenue, m, totalRevenue)
	res.set(core.LineRevenueNoTax, m, revenueNoTax)
	res.set(core.LineGooglePlayDisplay, m, googleRev)
	res.set(core.LineAppStoreDisplay, m, appleRev)
	res.set(core.LinePaymentProcessing, m, -paymentProcessing)
	res.set(core.LineCOGSTotal, m, -cogs)
	res.set(core.LineGrossProfit, m, grossProfit)
	res.set(core.LineSGA, m, -sga)
	res.set(core.LineEBITDA, m, ebitda)
	res.set(core.LineMarketingNeg, m, -marketing)
	res.set(core.LineWagesNeg, m, -wages)
	res.set(core.LineTechSupportNeg, m, -techSupport)
	res.set(core.LineOtherExpensesNeg, m, -otherExpenses)
	res.set(core.LineNetResult, m, netResult)
}
