package mapping

import (
	"strconv"

	"pnlengine/internal/core"
)

func rule(costCenter, counterparty string, line int, kind, note string) Rule {
	return Rule{
		FinancialGroup: costCenter,
		CostCenter:     costCenter,
		Counterparty:   counterparty,
		TargetLine:     strconv.Itoa(line),
		Kind:           kind,
		Active:         true,
		Note:           note,
	}
}

// DefaultRules is the built-in mapping table used when the host supplies no
// rule file. Cost-center names match the Conta Azul export names exactly;
// "Diversos" is the wildcard counterparty.
func DefaultRules() []Rule {
	return []Rule{
		// Revenues
		rule("Google Play Net Revenue", "GOOGLE BRASIL PAGAMENTOS LTDA", core.LineGooglePlayRevenue, "Receita", "Receita Google Play"),
		rule("App Store Net Revenue", "App Store (Apple)", core.LineAppStoreRevenue, "Receita", "Receita App Store"),
		rule("Rendimentos de Aplicações", "CONTA SIMPLES", core.LineInvestmentIncome, "Receita", "Rendimentos CDI"),
		rule("Rendimentos de Aplicações", "BANCO INTER", core.LineInvestmentIncome, "Receita", "Rendimentos Inter"),

		// COGS (direct costs), one line per provider
		rule("Web Services Expenses", "AWS", 43, "Custo", "Amazon Web Services"),
		rule("Web Services Expenses", "Cloudflare", 44, "Custo", "Cloudflare"),
		rule("Web Services Expenses", "Heroku", 45, "Custo", "Heroku"),
		rule("Web Services Expenses", "IAPHUB", 46, "Custo", "IAPHUB"),
		rule("Web Services Expenses", "MailGun", 47, "Custo", "MailGun"),
		rule("Web Services Expenses", "AWS SES", 48, "Custo", "AWS SES"),
		rule("Web Services Expenses", "Diversos", 43, "Custo", "Web Services - Generic"),

		// SG&A
		rule("Marketing & Growth Expenses", "MGA MARKETING LTDA", core.LineMarketing, "Despesa", "Marketing Agency"),
		rule("Marketing & Growth Expenses", "Diversos", core.LineMarketing, "Despesa", "Marketing - Generic"),

		rule("Wages Expenses", "Diversos", core.LineWages, "Despesa", "Salários e Pró-labore"),

		rule("Tech Support & Services", "Adobe", core.LineTechSupport, "Despesa", "Adobe Creative Cloud"),
		rule("Tech Support & Services", "Canva", core.LineTechSupport, "Despesa", "Canva"),
		rule("Tech Support & Services", "ClickSign", core.LineTechSupport, "Despesa", "ClickSign"),
		rule("Tech Support & Services", "COMPANYHERO", core.LineTechSupport, "Despesa", "Company Hero"),
		rule("Tech Support & Services", "Diversos", core.LineTechSupportGP, "Despesa", "Tech Support - Generic"),

		// Other expenses and taxes, all folded into line 90
		rule("Legal & Accounting Expenses", "BHUB.AI", core.LineOtherExpenses, "Despesa", "BPO Financeiro"),
		rule("Legal & Accounting Expenses", "WOLFF", core.LineOtherExpenses, "Despesa", "Honorários Advocatícios"),
		rule("Legal & Accounting Expenses", "Diversos", core.LineOtherExpenses, "Despesa", "Legal & Accounting - Generic"),

		rule("Office Expenses", "GO OFFICES", core.LineOtherExpenses, "Despesa", "Aluguel"),
		rule("Office Expenses", "CO-SERVICES", core.LineOtherExpenses, "Despesa", "Serviços de Escritório"),
		rule("Office Expenses", "Diversos", core.LineOtherExpenses, "Despesa", "Office Expenses - Generic"),

		rule("Travel", "American Airlines", core.LineOtherExpenses, "Despesa", "Viagens"),
		rule("Travel", "Diversos", core.LineOtherExpenses, "Despesa", "Travel - Generic"),

		rule("Other Taxes", "IMPOSTOS/TRIBUTOS", core.LineOtherExpenses, "Despesa", "Impostos e Tributos"),
		rule("Other Taxes", "Diversos", core.LineOtherExpenses, "Despesa", "Other Taxes - Generic"),
		rule("Payroll Tax - Brazil", "IMPOSTOS/TRIBUTOS", core.LineOtherExpenses, "Despesa", "Impostos sobre Folha"),
		rule("Payroll Tax - Brazil", "Diversos", core.LineOtherExpenses, "Despesa", "Payroll Tax - Generic"),

		// Catch-alls
		rule("Other Expenses", "Diversos", core.LineOtherExpenses, "Despesa", "Despesas Gerais"),
		rule("Identificar", "Diversos", core.LineOtherExpenses, "Despesa", "Despesas a Identificar"),
		rule("Devoluções e Estornos", "Diversos", core.LineOtherExpenses, "Despesa", "Refunds & Chargebacks"),
	}
}
