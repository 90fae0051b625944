package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pnlengine/internal/core"
	"pnlengine/internal/mapping"
)

func mkTx(day string, amount float64, costCenter, counterparty string) core.Transaction {
	date, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	tx := core.Transaction{
		Date:         date,
		Amount:       amount,
		CostCenter:   costCenter,
		Counterparty: counterparty,
	}
	tx.Reconcile()
	return tx
}

func defaultMatcher() *mapping.Matcher {
	return mapping.NewMatcher(mapping.DefaultRules(), nil)
}

func TestComputeEndToEnd(t *testing.T) {
	txs := []core.Transaction{
		mkTx("2024-01-10", 10000, "Google Play Net Revenue", "GOOGLE BRASIL PAGAMENTOS LTDA"),
		mkTx("2024-01-12", 5000, "App Store Net Revenue", "App Store (Apple)"),
		mkTx("2024-01-15", -1000, "Web Services Expenses", "AWS"),
	}

	res := Compute(txs, defaultMatcher(), nil, Options{}, nil)

	require.Equal(t, []core.MonthKey{"2024-01"}, res.Months)
	m := core.MonthKey("2024-01")

	assert.InDelta(t, 15000.00, res.Value(core.LineTotalRevenue, m), 1e-2)
	assert.InDelta(t, -2647.50, res.Value(core.LinePaymentProcessing, m), 1e-2)
	assert.InDelta(t, -1000.00, res.Value(core.LineCOGSTotal, m), 1e-2)
	assert.InDelta(t, 11352.50, res.Value(core.LineGrossProfit, m), 1e-2)
	assert.InDelta(t, 11352.50, res.Value(core.LineEBITDA, m), 1e-2)
	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, 0, res.Unclassified.Count)
}

func TestComputeSignPreservation(t *testing.T) {
	// A refund month: a single negative revenue transaction must flow through
	// with its sign intact, crediting the processing fee back.
	txs := []core.Transaction{
		mkTx("2024-03-05", -5000, "Google Play Net Revenue", "GOOGLE BRASIL PAGAMENTOS LTDA"),
	}

	res := Compute(txs, defaultMatcher(), nil, Options{}, nil)
	m := core.MonthKey("2024-03")

	assert.InDelta(t, -5000.00, res.Value(core.LineTotalRevenue, m), 1e-2)
	assert.InDelta(t, 882.50, res.Value(core.LinePaymentProcessing, m), 1e-2) // -(-882.50)
	assert.InDelta(t, -4117.50, res.Value(core.LineGrossProfit, m), 1e-2)
	assert.InDelta(t, 0.0, res.Value(core.LineCOGSTotal, m), 1e-2)
}

func TestComputeAccumulationOrderIndependent(t *testing.T) {
	base := []core.Transaction{
		mkTx("2024-01-01", 100.25, "Google Play Net Revenue", "GOOGLE BRASIL PAGAMENTOS LTDA"),
		mkTx("2024-01-02", -30.10, "Google Play Net Revenue", "GOOGLE BRASIL PAGAMENTOS LTDA"),
		mkTx("2024-01-03", 250.00, "Google Play Net Revenue", "GOOGLE BRASIL PAGAMENTOS LTDA"),
		mkTx("2024-02-01", 75.50, "Google Play Net Revenue", "GOOGLE BRASIL PAGAMENTOS LTDA"),
	}
	want := Compute(base, defaultMatcher(), nil, Options{}, nil)

	shuffled := make([]core.Transaction, len(base))
	copy(shuffled, base)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5; i++ {
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got := Compute(shuffled, defaultMatcher(), nil, Options{}, nil)
		assert.InDelta(t,
			want.Value(core.LineGooglePlayRevenue, "2024-01"),
			got.Value(core.LineGooglePlayRevenue, "2024-01"), 1e-9)
		assert.InDelta(t,
			want.Value(core.LineGooglePlayRevenue, "2024-02"),
			got.Value(core.LineGooglePlayRevenue, "2024-02"), 1e-9)
	}

	// And the accumulator holds the exact algebraic sum.
	assert.InDelta(t, 100.25-30.10+250.00, want.Value(core.LineGooglePlayRevenue, "2024-01"), 1e-9)
}

func TestComputeDerivedIdentities(t *testing.T) {
	txs := []core.Transaction{
		mkTx("2024-01-05", 20000, "Google Play Net Revenue", "GOOGLE BRASIL PAGAMENTOS LTDA"),
		mkTx("2024-01-06", 8000, "App Store Net Revenue", "App Store (Apple)"),
		mkTx("2024-01-07", 120, "Rendimentos de Aplicações", "CONTA SIMPLES"),
		mkTx("2024-01-08", -900, "Web Services Expenses", "AWS"),
		mkTx("2024-01-09", -150, "Web Services Expenses", "AWS SES"),
		mkTx("2024-01-10", -2500, "Marketing & Growth Expenses", "MGA MARKETING LTDA"),
		mkTx("2024-01-11", -7000, "Wages Expenses", "Folha"),
		mkTx("2024-01-12", -300, "Tech Support & Services", "Adobe"),
		mkTx("2024-01-13", -1200, "Office Expenses", "GO OFFICES"),
		mkTx("2024-02-02", 1000, "Google Play Net Revenue", "GOOGLE BRASIL PAGAMENTOS LTDA"),
	}

	res := Compute(txs, defaultMatcher(), nil, Options{}, nil)
	require.Len(t, res.Months, 2)

	for _, m := range res.Months {
		totalRevenue := res.Value(core.LineTotalRevenue, m)
		paymentProcessing := -res.Value(core.LinePaymentProcessing, m)
		cogs := -res.Value(core.LineCOGSTotal, m)
		grossProfit := res.Value(core.LineGrossProfit, m)
		sga := -res.Value(core.LineSGA, m)
		otherExpenses := -res.Value(core.LineOtherExpensesNeg, m)
		ebitda := res.Value(core.LineEBITDA, m)

		assert.InDelta(t, totalRevenue-paymentProcessing-cogs, grossProfit, 1e-2,
			"gross profit identity, month %s", m)
		assert.InDelta(t, grossProfit-(sga+otherExpenses), ebitda, 1e-2,
			"ebitda identity, month %s", m)
		assert.InDelta(t, ebitda, res.Value(core.LineNetResult, m), 1e-9,
			"net result equals ebitda, month %s", m)
	}

	// Cost lines land with abs(): wages contributed -7000 above.
	assert.InDelta(t, -7000, res.Value(core.LineWagesNeg, "2024-01"), 1e-9)
}

func TestComputeZeroRevenueMargins(t *testing.T) {
	txs := []core.Transaction{
		mkTx("2024-05-10", -500, "Web Services Expenses", "AWS"),
	}
	res := Compute(txs, defaultMatcher(), nil, Options{}, nil)

	assert.Equal(t, 0.0, res.GrossMarginPct["2024-05"])
	assert.Equal(t, 0.0, res.EBITDAMarginPct["2024-05"])
}

func TestComputeOverrides(t *testing.T) {
	txs := []core.Transaction{
		mkTx("2024-01-10", 10000, "Google Play Net Revenue", "GOOGLE BRASIL PAGAMENTOS LTDA"),
	}
	overrides := Overrides{
		core.LineEBITDA:       {"2024-01": 1234.56},
		core.LineGrossProfit:  {"2024-01": 99999}, // intermediate derived: ignored
		core.LineWages:        {"2024-01": 42},    // transaction-sourced: ignored
		core.LineTotalRevenue: {"2023-01": 777},   // out-of-range month: ignored
	}

	res := Compute(txs, defaultMatcher(), overrides, Options{}, nil)
	m := core.MonthKey("2024-01")

	assert.InDelta(t, 1234.56, res.Value(core.LineEBITDA, m), 1e-9)
	assert.NotEqual(t, 99999.0, res.Value(core.LineGrossProfit, m))
	assert.Equal(t, 0.0, res.Value(core.LineWages, m))
	assert.NotContains(t, res.Lines[core.LineTotalRevenue], core.MonthKey("2023-01"))

	// Margins reflect the overridden EBITDA.
	assert.InDelta(t, 1234.56/res.Value(core.LineTotalRevenue, m)*100, res.EBITDAMarginPct[m], 1e-9)
}

func TestComputeUnclassifiedTotal(t *testing.T) {
	txs := []core.Transaction{
		mkTx("2024-01-10", 10000, "Google Play Net Revenue", "GOOGLE BRASIL PAGAMENTOS LTDA"),
		mkTx("2024-01-11", -123.45, "Unknown Center", "Mystery Vendor"),
		mkTx("2024-01-12", -50000, "Unknown Center", "Big Mystery Vendor"),
	}

	res := Compute(txs, defaultMatcher(), nil, Options{}, nil)

	assert.Equal(t, 2, res.Unclassified.Count)
	assert.InDelta(t, -50123.45, res.Unclassified.Total, 1e-9)
	assert.Equal(t, 1, res.Matched)
}

func TestComputeDateRangeFilter(t *testing.T) {
	txs := []core.Transaction{
		mkTx("2023-12-15", 1000, "Google Play Net Revenue", "GOOGLE BRASIL PAGAMENTOS LTDA"),
		mkTx("2024-01-15", 2000, "Google Play Net Revenue", "GOOGLE BRASIL PAGAMENTOS LTDA"),
		mkTx("2024-02-15", 3000, "Google Play Net Revenue", "GOOGLE BRASIL PAGAMENTOS LTDA"),
	}
	from, _ := time.Parse("2006-01-02", "2024-01-01")
	to, _ := time.Parse("2006-01-02", "2024-01-31")

	res := Compute(txs, defaultMatcher(), nil, Options{From: from, To: to}, nil)

	require.Equal(t, []core.MonthKey{"2024-01"}, res.Months)
	assert.InDelta(t, 2000, res.Value(core.LineTotalRevenue, "2024-01"), 1e-9)
	assert.Equal(t, 2, res.Skipped)
}

func TestComputeMaxMonthsCap(t *testing.T) {
	var txs []core.Transaction
	start, _ := time.Parse("2006-01-02", "2020-01-15")
	for i := 0; i < 10; i++ {
		tx := core.Transaction{
			Date:         start.AddDate(0, i, 0),
			Amount:       100,
			CostCenter:   "Google Play Net Revenue",
			Counterparty: "GOOGLE BRASIL PAGAMENTOS LTDA",
		}
		tx.Reconcile()
		txs = append(txs, tx)
	}

	res := Compute(txs, defaultMatcher(), nil, Options{MaxMonths: 3}, nil)

	require.Len(t, res.Months, 3)
	assert.Equal(t, core.MonthKey("2020-08"), res.Months[0])
	assert.Equal(t, core.MonthKey("2020-10"), res.Months[2])
	// Transactions outside the capped months contribute nothing.
	assert.Equal(t, 0.0, res.Value(core.LineTotalRevenue, "2020-01"))
}

func TestComputeExcludesUndatedRows(t *testing.T) {
	undated := core.Transaction{
		Amount:       999,
		CostCenter:   "Google Play Net Revenue",
		Counterparty: "GOOGLE BRASIL PAGAMENTOS LTDA",
	}
	undated.Reconcile()
	txs := []core.Transaction{
		undated,
		mkTx("2024-01-10", 100, "Google Play Net Revenue", "GOOGLE BRASIL PAGAMENTOS LTDA"),
	}

	res := Compute(txs, defaultMatcher(), nil, Options{}, nil)

	require.Equal(t, []core.MonthKey{"2024-01"}, res.Months)
	assert.InDelta(t, 100, res.Value(core.LineTotalRevenue, "2024-01"), 1e-9)
	assert.Equal(t, 1, res.Skipped)
}
