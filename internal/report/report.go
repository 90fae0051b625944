// Package report reshapes the engine's (line, month) table into the ordered
// statement rows and dashboard KPIs the outer surfaces consume. It performs
// no arithmetic beyond summation and percentages; every number originates in
// the engine.
package report

import (
	"math"

	"pnlengine/internal/core"
	"pnlengine/internal/engine"
)

// Row is one display row of the monthly statement. Values are keyed by month
// so sparse months read as zero. Rows are built once and read-only.
type Row struct {
	LineNumber int                       `json:"line_number"`
	Label      string                    `json:"label"`
	Values     map[core.MonthKey]float64 `json:"values"`
	IsHeader   bool                      `json:"is_header"`
	IsTotal    bool                      `json:"is_total"`
}

// Statement is the ordered-rows contract consumed by workbook generators and
// other external collaborators.
type Statement struct {
	Headers []core.MonthKey `json:"headers"`
	Rows    []Row           `json:"rows"`
}

// Build assembles the fixed statement layout from a finalized engine result.
func Build(res *engine.Result) *Statement {
	st := &Statement{Headers: res.Months}

	lineValues := func(line int) map[core.MonthKey]float64 {
		values := make(map[core.MonthKey]float64, len(res.Months))
		for _, m := range res.Months {
			values[m] = res.Value(line, m)
		}
		return values
	}
	sumValues := func(a, b int) map[core.MonthKey]float64 {
		values := make(map[core.MonthKey]float64, len(res.Months))
		for _, m := range res.Months {
			values[m] = res.Value(a, m) + res.Value(b, m)
		}
		return values
	}
	add := func(lineNumber int, label string, values map[core.MonthKey]float64, header, total bool) {
		st.Rows = append(st.Rows, Row{
			LineNumber: lineNumber,
			Label:      label,
			Values:     values,
			IsHeader:   header,
			IsTotal:    total,
		})
	}

	add(1, "RECEITA OPERACIONAL BRUTA", lineValues(core.LineTotalRevenue), true, false)
	add(2, "Receita de Vendas (Google + Apple)", lineValues(core.LineRevenueNoTax), false, false)
	add(21, "Google Play Revenue", lineValues(core.LineGooglePlayDisplay), false, false)
	add(22, "App Store Revenue", lineValues(core.LineAppStoreDisplay), false, false)
	add(3, "Rendimentos de Aplicações", lineValues(core.LineInvestmentIncome), false, false)

	add(4, "(-) CUSTOS DIRETOS", sumValues(core.LinePaymentProcessing, core.LineCOGSTotal), true, false)
	add(5, "Payment Processing (17.65%)", lineValues(core.LinePaymentProcessing), false, false)
	add(6, "COGS (Web Services)", lineValues(core.LineCOGSTotal), false, false)

	add(7, "(=) LUCRO BRUTO", lineValues(core.LineGrossProfit), false, true)

	add(8, "(-) DESPESAS OPERACIONAIS", sumValues(core.LineSGA, core.LineOtherExpensesNeg), true, false)
	add(9, "Marketing", lineValues(core.LineMarketingNeg), false, false)
	add(10, "Salários (Wages)", lineValues(core.LineWagesNeg), false, false)
	add(11, "Tech Support & Services", lineValues(core.LineTechSupportNeg), false, false)
	add(12, "Outras Despesas", lineValues(core.LineOtherExpensesNeg), false, false)

	add(13, "(=) EBITDA", lineValues(core.LineEBITDA), false, true)
	add(16, "(=) RESULTADO LÍQUIDO", lineValues(core.LineNetResult), false, true)

	add(14, "Margem EBITDA %", res.EBITDAMarginPct, false, false)
	add(15, "Margem Bruta %", res.GrossMarginPct, false, false)

	return st
}

// KPIs are year-to-date sums across every month in the result.
type KPIs struct {
	TotalRevenue  float64 `json:"total_revenue"`
	NetResult     float64 `json:"net_result"`
	EBITDA        float64 `json:"ebitda"`
	EBITDAMargin  float64 `json:"ebitda_margin"`
	GrossMargin   float64 `json:"gross_margin"`
	GoogleRevenue float64 `json:"google_revenue"`
	AppleRevenue  float64 `json:"apple_revenue"`
}

// MonthPoint is one month of the dashboard chart series. Costs and expenses
// are flipped positive for display.
type MonthPoint struct {
	Month    core.MonthKey `json:"month"`
	Revenue  float64       `json:"revenue"`
	EBITDA   float64       `json:"ebitda"`
	Costs    float64       `json:"costs"`
	Expenses float64       `json:"expenses"`
}

// CostStructure breaks down the most recent positive-revenue month, all
// values positive.
type CostStructure struct {
	Month             core.MonthKey `json:"month"`
	PaymentProcessing float64       `json:"payment_processing"`
	COGS              float64       `json:"cogs"`
	Marketing         float64       `json:"marketing"`
	Wages             float64       `json:"wages"`
	Tech              float64       `json:"tech"`
	Other             float64       `json:"other"`
}

// Dashboard is the KPI view of one engine result.
type Dashboard struct {
	KPIs          KPIs          `json:"kpis"`
	Monthly       []MonthPoint  `json:"monthly_data"`
	CostStructure CostStructure `json:"cost_structure"`
}

// BuildDashboard derives the dashboard from a finalized engine result.
func BuildDashboard(res *engine.Result) *Dashboard {
	d := &Dashboard{}
	if len(res.Months) == 0 {
		return d
	}

	var totalGrossProfit float64
	for _, m := range res.Months {
		d.KPIs.TotalRevenue += res.Value(core.LineTotalRevenue, m)
		d.KPIs.EBITDA += res.Value(core.LineEBITDA, m)
		totalGrossProfit += res.Value(core.LineGrossProfit, m)
		d.KPIs.GoogleRevenue += res.Value(core.LineGooglePlayDisplay, m)
		d.KPIs.AppleRevenue += res.Value(core.LineAppStoreDisplay, m)

		d.Monthly = append(d.Monthly, MonthPoint{
			Month:   m,
			Revenue: res.Value(core.LineTotalRevenue, m),
			EBITDA:  res.Value(core.LineEBITDA, m),
			Costs: math.Abs(res.Value(core.LinePaymentProcessing, m) +
				res.Value(core.LineCOGSTotal, m)),
			Expenses: math.Abs(res.Value(core.LineSGA, m) +
				res.Value(core.LineOtherExpensesNeg, m)),
		})
	}
	d.KPIs.NetResult = d.KPIs.EBITDA
	if d.KPIs.TotalRevenue > 0 {
		d.KPIs.EBITDAMargin = d.KPIs.EBITDA / d.KPIs.TotalRevenue
		d.KPIs.GrossMargin = totalGrossProfit / d.KPIs.TotalRevenue
	}

	// Cost breakdown of the most recent month with positive revenue; the
	// last month stands in when no month qualifies.
	latest := res.Months[len(res.Months)-1]
	for i := len(res.Months) - 1; i >= 0; i-- {
		if res.Value(core.LineTotalRevenue, res.Months[i]) > 0 {
			latest = res.Months[i]
			break
		}
	}
	d.CostStructure = CostStructure{
		Month:             latest,
		PaymentProcessing: math.Abs(res.Value(core.LinePaymentProcessing, latest)),
		COGS:              math.Abs(res.Value(core.LineCOGSTotal, latest)),
		Marketing:         math.Abs(res.Value(core.LineMarketingNeg, latest)),
		Wages:             math.Abs(res.Value(core.LineWagesNeg, latest)),
		Tech:              math.Abs(res.Value(core.LineTechSupportNeg, latest)),
		Other:             math.Abs(res.Value(core.LineOtherExpensesNeg, latest)),
	}
	return d
}
