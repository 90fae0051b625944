// Package forecast fits simple linear trends over the derived revenue and
// EBITDA series and projects them a few months forward. It is a direction
// indicator, not a financial model: one ordinary-least-squares line per
// series against a monotonically increasing month index.
package forecast

import (
	"math"

	"pnlengine/internal/core"
	"pnlengine/internal/engine"
)

// DefaultMonthsAhead is the projection horizon when the caller passes none.
const DefaultMonthsAhead = 3

// minHistoryMonths is the least history a trend fit is attempted on.
const minHistoryMonths = 3

// Point is one projected month.
type Point struct {
	Month      core.MonthKey `json:"month"`
	Revenue    float64       `json:"revenue"`
	EBITDA     float64       `json:"ebitda"`
	IsForecast bool          `json:"is_forecast"`
}

// Forecast carries the projection, or an explicit insufficient-data signal
// when the history is too short. Short history is not an error.
type Forecast struct {
	Points           []Point `json:"forecast"`
	InsufficientData bool    `json:"insufficient_data,omitempty"`
	Warning          string  `json:"warning,omitempty"`
}

// Project fits the revenue and EBITDA trends of a finalized engine result and
// predicts monthsAhead future months. Revenue predictions are clamped at zero;
// EBITDA may go negative. With fewer than three historical months no model is
// fit at all.
func Project(res *engine.Result, monthsAhead int) *Forecast {
	if monthsAhead <= 0 {
		monthsAhead = DefaultMonthsAhead
	}
	if len(res.Months) < minHistoryMonths {
		return &Forecast{
			InsufficientData: true,
			Warning:          "not enough data for a reliable forecast (need 3+ months)",
		}
	}

	revenue := make([]float64, len(res.Months))
	ebitda := make([]float64, len(res.Months))
	for i, m := range res.Months {
		revenue[i] = res.Value(core.LineTotalRevenue, m)
		ebitda[i] = res.Value(core.LineEBITDA, m)
	}

	revIntercept, revSlope := fitLine(revenue)
	ebIntercept, ebSlope := fitLine(ebitda)

	lastMonth := res.Months[len(res.Months)-1]
	lastIndex := float64(len(res.Months) - 1)

	f := &Forecast{Points: make([]Point, 0, monthsAhead)}
	for i := 1; i <= monthsAhead; i++ {
		x := lastIndex + float64(i)
		rev := round2(revIntercept + revSlope*x)
		if rev < 0 {
			rev = 0
		}
		f.Points = append(f.Points, Point{
			Month:      lastMonth.Add(i),
			Revenue:    rev,
			EBITDA:     round2(ebIntercept + ebSlope*x),
			IsForecast: true,
		})
	}
	return f
}

// fitLine runs ordinary least squares of ys against the index 0..n-1.
func fitLine(ys []float64) (intercept, slope float64) {
	n := float64(len(ys))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return intercept, slope
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
