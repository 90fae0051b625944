package core

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"São Paulo  ", "sao paulo"},
		{"TÉCNICO", "tecnico"},
		{"  Pró-Labore ", "pro-labore"},
		{"AWS SES", "aws ses"},
		{"Rendimentos de Aplicações", "rendimentos de aplicacoes"},
		{"", ""},
		{"   ", ""},
		{"already lower", "already lower"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.out {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestMonthKey(t *testing.T) {
	if got := MonthKey("2024-11").Add(3); got != "2025-02" {
		t.Errorf("Add(3) = %q, want 2025-02", got)
	}
	if got := MonthKey("not-a-month").Add(1); got != "not-a-month" {
		t.Errorf("Add on invalid key should be a no-op, got %q", got)
	}
	if MonthKey("2024-13").Valid() {
		t.Error("2024-13 should not be a valid month key")
	}
	if !MonthKey("2024-01").Valid() {
		t.Error("2024-01 should be a valid month key")
	}
}

func TestTransactionReconcile(t *testing.T) {
	tx := Transaction{
		CostCenter:   "Web Services Expenses",
		Counterparty: "AMAZÔNIA LTDA",
		Category:     "Custo",
		Description:  "Fatura Março",
	}
	tx.Reconcile()

	if tx.Month != "" {
		t.Errorf("zero date should yield empty month key, got %q", tx.Month)
	}
	if tx.NormCostCenter != "web services expenses" {
		t.Errorf("unexpected NormCostCenter %q", tx.NormCostCenter)
	}
	if tx.MatchText != "amazonia ltda fatura marco" {
		t.Errorf("unexpected MatchText %q", tx.MatchText)
	}
}
