package ingest

import "strings"

// Canonical column names. The export headers vary across historical Conta
// Azul formats, so every canonical column carries the list of aliases seen in
// the wild; the first alias present in the header wins.
const (
	colDate         = "date"
	colAmount       = "amount"
	colDirection    = "direction"
	colCostCenter   = "cost_center"
	colCounterparty = "counterparty"
	colCategory     = "category"
	colDescription  = "description"
)

var columnAliases = map[string][]string{
	colDate: {
		"Data de competência", "Data de Competência", "Data Competência",
		"data_competencia", "Data", "Date",
	},
	colAmount: {
		"Valor (R$)", "Valor", "Valor R$", "valor", "VALOR", "Amount", "Value",
	},
	colDirection: {
		"Tipo", "tipo",
		"Entrada/Saída", "Entrada/Saida",
		"Tipo (Entrada/Saída)", "Tipo (Entrada/Saida)",
		"Tipo de movimentação", "Tipo de Movimentação",
		"Natureza", "natureza", "Direction",
	},
	colCostCenter: {
		"Centro de Custo 1", "Centro de Custo", "CentroCusto", "centro_custo",
		"Centro de custo 1", "Cost Center",
	},
	colCounterparty: {
		"Nome do fornecedor/cliente", "Fornecedor/Cliente", "Nome Fornecedor",
		"fornecedor_cliente", "Fornecedor", "Cliente", "Counterparty",
	},
	colCategory: {
		"Categoria 1", "Categoria", "categoria", "Category",
	},
	colDescription: {
		"Descrição", "Descricao", "descrição", "Description",
	},
}

// requiredColumns must all resolve or ingestion fails with a SchemaError.
var requiredColumns = []string{colDate, colAmount, colCostCenter, colCounterparty}

// reconcileColumns maps canonical column names to header indices. Header
// cells are trimmed before comparison; aliases are matched exactly beyond
// that, mirroring how the historical exports differ (casing and accents are
// part of the alias lists on purpose).
func reconcileColumns(header []string) map[string]int {
	trimmed := make([]string, len(header))
	for i, h := range header {
		trimmed[i] = strings.TrimSpace(h)
	}

	index := make(map[string]int)
	for canonical, aliases := range columnAliases {
		for _, alias := range aliases {
			found := false
			for i, h := range trimmed {
				if h == alias {
					index[canonical] = i
					found = true
					break
				}
			}
			if found {
				break
			}
		}
	}
	return index
}

// hasDateColumn reports whether any date alias appears in the header. This is
// the acceptance test for the format-detection matrix: a parse that does not
// expose the date column is the wrong delimiter, not a valid table.
func hasDateColumn(header []string) bool {
	_, ok := reconcileColumns(header)[colDate]
	return ok
}
