// Package mapping holds the cost-center/counterparty rule table and the
// deterministic matcher that assigns each transaction to a P&L target line.
package mapping

import (
	"encoding/json"
	"fmt"
	"os"

	"pnlengine/internal/core"
)

// genericSentinel marks the wildcard counterparty: a rule with this (or an
// empty) counterparty catches every transaction of its cost center that no
// specific rule claimed.
const genericSentinel = "diversos"

// Rule associates a (cost-center, counterparty-pattern) pair with a target
// P&L line. Rules are static for a run and supplied by the host, never
// inferred from data. TargetLine is kept as text because rule files are
// hand-maintained; a non-integer value disables the rule without aborting
// anything.
type Rule struct {
	FinancialGroup string `json:"financial_group"`
	CostCenter     string `json:"cost_center"`
	Counterparty   string `json:"counterparty"`
	TargetLine     string `json:"target_line"`
	Kind           string `json:"kind"`
	Active         bool   `json:"active"`
	Note           string `json:"note"`
}

// IsGeneric reports whether the rule is its cost center's wildcard fallback.
func (r Rule) IsGeneric() bool {
	supp := core.Normalize(r.Counterparty)
	return supp == "" || supp == genericSentinel
}

// LoadRules reads a host-supplied JSON rule file. The file is an ordered
// array of Rule objects.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return rules, nil
}
