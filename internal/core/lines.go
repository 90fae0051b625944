package core

// Transaction-sourced P&L lines. The identifiers are fixed: they mirror the
// row numbers of the company statement and mapping rules target them
// directly.
const (
	LineGooglePlayRevenue = 25
	LineAppStoreRevenue   = 33
	LineInvestmentIncome  = 38
	LineMiscRevenue       = 49

	// COGS occupies the contiguous range [LineCOGSFirst, LineCOGSLast]:
	// AWS, Cloudflare, Heroku, IAPHUB, MailGun, AWS SES.
	LineCOGSFirst = 43
	LineCOGSLast  = 48

	LineMarketing     = 56
	LineWages         = 62
	LineTechSupportGP = 65 // generic tech support bucket
	LineTechSupport   = 68
	LineOtherExpenses = 90
)

// Reserved derived lines, written exactly once per month after all
// transaction-sourced accumulation. Cost lines are stored negated so the
// statement reads naturally (revenues +, costs -).
const (
	LineTotalRevenue      = 100
	LineRevenueNoTax      = 101
	LinePaymentProcessing = 102
	LineCOGSTotal         = 103
	LineGrossProfit       = 104
	LineSGA               = 105
	LineEBITDA            = 106
	LineMarketingNeg      = 107
	LineWagesNeg          = 108
	LineTechSupportNeg    = 109
	LineOtherExpensesNeg  = 110
	LineNetResult         = 111
	LineGooglePlayDisplay = 112 // display copy of line 25
	LineAppStoreDisplay   = 113 // display copy of line 33
)

// FinalLines is the override-eligible subset: total revenue, EBITDA and net
// result. Overrides aimed anywhere else are silently ignored.
var FinalLines = map[int]bool{
	LineTotalRevenue: true,
	LineEBITDA:       true,
	LineNetResult:    true,
}

// PayrollCostCenter is the canonical cost center every payroll-flavored
// transaction is forced into during ingestion, so the matcher needs no
// payroll-specific logic.
const PayrollCostCenter = "Wages Expenses"

// DefaultPaymentProcessingRate is the blended store fee applied to sales
// revenue (Google Play + App Store).
const DefaultPaymentProcessingRate = 0.1765
