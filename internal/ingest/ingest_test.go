package ingest

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

const sampleCSV = "Data de competência,Valor (R$),Tipo,Centro de Custo 1,Nome do fornecedor/cliente,Categoria 1,Descrição\n" +
	"15/01/2024,\"1.000,00\",Entrada,Google Play Net Revenue,GOOGLE BRASIL PAGAMENTOS LTDA,Receita,Vendas\n" +
	"20/01/2024,\"250,00\",Saída,Web Services Expenses,AWS,Custo,Hosting\n"

func TestProcess(t *testing.T) {
	table, err := Process([]byte(sampleCSV), nil)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(table.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(table.Transactions))
	}

	in := table.Transactions[0]
	if in.Amount != 1000 {
		t.Errorf("inflow amount = %v, want 1000", in.Amount)
	}
	if in.Month != "2024-01" {
		t.Errorf("month key = %q, want 2024-01", in.Month)
	}

	out := table.Transactions[1]
	if out.Amount != -250 {
		t.Errorf("outflow amount = %v, want -250", out.Amount)
	}
	if table.Degraded != 0 {
		t.Errorf("degraded = %d, want 0", table.Degraded)
	}
}

func TestProcessStripsByteOrderMark(t *testing.T) {
	// Excel re-saves prepend a UTF-8 BOM that must not leak into the header.
	table, err := Process([]byte("\ufeff"+sampleCSV), nil)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(table.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(table.Transactions))
	}
	if table.Transactions[0].Date.Format("2006-01-02") != "2024-01-15" {
		t.Errorf("first transaction date = %v, want 2024-01-15", table.Transactions[0].Date)
	}
}

func TestProcessSemicolonLatin1(t *testing.T) {
	// Semicolon-delimited, Latin-1 encoded, like older Conta Azul exports.
	utf8CSV := "Data de competência;Valor (R$);Centro de Custo 1;Nome do fornecedor/cliente\n" +
		"03/02/2024;1.234,56;Técnico;Fornecedor São Paulo\n"
	encoded, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(utf8CSV))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	table, err := Process(encoded, nil)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(table.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(table.Transactions))
	}
	tx := table.Transactions[0]
	if tx.Amount != 1234.56 {
		t.Errorf("amount = %v, want 1234.56", tx.Amount)
	}
	if tx.NormCostCenter != "tecnico" {
		t.Errorf("normalized cost center = %q, want tecnico", tx.NormCostCenter)
	}
}

func TestProcessDirectionOverridesEmbeddedSign(t *testing.T) {
	csvData := "Data,Valor,Tipo,Centro de Custo 1,Fornecedor\n" +
		"10/03/2024,\"-500,00\",Entrada,Rendimentos de Aplicações,BANCO INTER\n" +
		"11/03/2024,\"500,00\",Pagamento,Web Services Expenses,AWS\n"

	table, err := Process([]byte(csvData), nil)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if got := table.Transactions[0].Amount; got != 500 {
		t.Errorf("inflow with embedded minus = %v, want +500 (direction wins)", got)
	}
	if got := table.Transactions[1].Amount; got != -500 {
		t.Errorf("payment = %v, want -500", got)
	}
}

func TestProcessNoDirectionColumnKeepsSign(t *testing.T) {
	csvData := "Data,Valor,Centro de Custo 1,Fornecedor\n" +
		"10/03/2024,\"-500,00\",Devoluções e Estornos,Apple\n"

	table, err := Process([]byte(csvData), nil)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if got := table.Transactions[0].Amount; got != -500 {
		t.Errorf("amount = %v, want -500 (embedded sign stands)", got)
	}
}

func TestProcessPayrollOverride(t *testing.T) {
	cases := []struct {
		name string
		row  string
	}{
		{"keyword in description", "05/04/2024,\"8.000,00\",Saída,Identificar,João,,Pró-labore mensal"},
		{"keyword in cost center", "05/04/2024,\"8.000,00\",Saída,Folha de Pagamento,Maria,,"},
		{"keyword in counterparty", "05/04/2024,\"8.000,00\",Saída,Other Expenses,Payroll Services Inc,,"},
	}
	header := "Data de competência,Valor (R$),Tipo,Centro de Custo 1,Nome do fornecedor/cliente,Categoria 1,Descrição\n"
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			table, err := Process([]byte(header+tc.row+"\n"), nil)
			if err != nil {
				t.Fatalf("Process returned error: %v", err)
			}
			if got := table.Transactions[0].CostCenter; got != "Wages Expenses" {
				t.Errorf("cost center = %q, want Wages Expenses", got)
			}
		})
	}
}

func TestProcessDegradedRows(t *testing.T) {
	csvData := "Data,Valor,Centro de Custo 1,Fornecedor\n" +
		"not-a-date,\"100,00\",CC,Someone\n" +
		"10/05/2024,garbage123,CC,Someone\n" +
		"10/05/2024,\"0,00\",CC,Someone\n"

	table, err := Process([]byte(csvData), nil)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if table.Degraded != 2 {
		t.Errorf("degraded = %d, want 2 (bad date + bad amount, zero is fine)", table.Degraded)
	}
	if !table.Transactions[0].Date.IsZero() {
		t.Error("unparsable date should stay zero")
	}
	if table.Transactions[0].Month != "" {
		t.Error("unparsable date should yield empty month key")
	}
}

func TestProcessSchemaError(t *testing.T) {
	csvData := "Data,Valor,Alguma Coluna\n10/05/2024,\"100,00\",x\n"

	_, err := Process([]byte(csvData), nil)
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(schemaErr.Missing) != 2 {
		t.Errorf("missing = %v, want cost_center and counterparty", schemaErr.Missing)
	}
	if !strings.Contains(schemaErr.Error(), "Alguma Coluna") {
		t.Errorf("error should list available columns: %v", schemaErr)
	}
}

func TestProcessFormatError(t *testing.T) {
	_, err := Process([]byte("no delimiter here just words\nmore words\n"), nil)
	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestProcessLenientFallback(t *testing.T) {
	// Second data row has an unterminated quote that swallows the rest of
	// the file into one short record; strict parsing rejects the file,
	// lenient parsing drops the damaged record and keeps the good row.
	csvData := "Data;Valor;Centro de Custo 1;Fornecedor\n" +
		"10/05/2024;100,00;CC;Someone\n" +
		"11/05/2024;\"broken;CC;Someone;extra\n" +
		"12/05/2024;200,00;CC;Someone\n"

	table, err := Process([]byte(csvData), nil)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(table.Transactions) != 1 {
		t.Fatalf("expected 1 surviving transaction, got %d", len(table.Transactions))
	}
	if table.Degraded == 0 {
		t.Error("dropped rows should be counted as degraded")
	}
}

func TestProcessIdempotent(t *testing.T) {
	first, err := Process([]byte(sampleCSV), nil)
	if err != nil {
		t.Fatalf("first Process: %v", err)
	}
	second, err := Process([]byte(sampleCSV), nil)
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if len(first.Transactions) != len(second.Transactions) {
		t.Fatal("repeated ingestion of identical bytes differs in row count")
	}
	for i := range first.Transactions {
		if first.Transactions[i] != second.Transactions[i] {
			t.Errorf("row %d differs between runs", i)
		}
	}
}
