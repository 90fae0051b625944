package mapping

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"pnlengine/internal/core"
)

// Match is a resolved rule hit: the integer target line plus the rule that
// produced it.
type Match struct {
	Line int
	Rule Rule
}

type preparedRule struct {
	line    int
	pattern string // normalized counterparty pattern
	rule    Rule
}

// Matcher is the indexed form of a rule set. Specific rules are grouped by
// normalized cost center and ordered by decreasing pattern length, so a
// shorter pattern ("aws") can never shadow a longer, more specific one
// ("aws ses"). Each cost center holds at most one generic rule.
type Matcher struct {
	specific map[string][]preparedRule
	generic  map[string]preparedRule
}

// NewMatcher indexes a rule set. Inactive rules and rules whose target line
// is not an integer are skipped with a warning; a malformed rule must never
// abort a batch.
func NewMatcher(rules []Rule, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Matcher{
		specific: make(map[string][]preparedRule),
		generic:  make(map[string]preparedRule),
	}

	for _, r := range rules {
		if !r.Active {
			continue
		}
		line, err := strconv.Atoi(strings.TrimSpace(r.TargetLine))
		if err != nil {
			logger.Warn("skipping rule with non-integer target line",
				"cost_center", r.CostCenter,
				"counterparty", r.Counterparty,
				"target_line", r.TargetLine,
			)
			continue
		}

		cc := core.Normalize(r.CostCenter)
		pr := preparedRule{line: line, pattern: core.Normalize(r.Counterparty), rule: r}

		if r.IsGeneric() {
			if prev, ok := m.generic[cc]; ok {
				logger.Warn("replacing duplicate generic rule",
					"cost_center", r.CostCenter,
					"previous_line", prev.line,
					"line", line,
				)
			}
			m.generic[cc] = pr
		} else {
			m.specific[cc] = append(m.specific[cc], pr)
		}
	}

	// Longest pattern first; stable so equally long patterns keep the
	// host-supplied order.
	for _, list := range m.specific {
		sort.SliceStable(list, func(i, j int) bool {
			return len(list[i].pattern) > len(list[j].pattern)
		})
	}

	return m
}

// Match resolves a transaction to a target line. Resolution is first hit
// wins: specific rules for the transaction's cost center, then that cost
// center's generic rule, then both again with the transaction's category
// standing in as the cost-center key. A miss is not an error; the engine
// decides what to do with unmatched transactions.
func (m *Matcher) Match(tx *core.Transaction) (Match, bool) {
	if hit, ok := m.lookup(tx.NormCostCenter, tx.MatchText); ok {
		return hit, true
	}
	if tx.NormCategory != "" {
		if hit, ok := m.lookup(tx.NormCategory, tx.MatchText); ok {
			return hit, true
		}
	}
	return Match{}, false
}

// MatchesLine is the drill-down predicate: whether tx resolves to exactly the
// given target line under the same rules that built the published totals.
func (m *Matcher) MatchesLine(tx *core.Transaction, line int) bool {
	hit, ok := m.Match(tx)
	return ok && hit.Line == line
}

func (m *Matcher) lookup(costCenter, matchText string) (Match, bool) {
	for _, pr := range m.specific[costCenter] {
		if strings.Contains(matchText, pr.pattern) {
			return Match{Line: pr.line, Rule: pr.rule}, true
		}
	}
	if pr, ok := m.generic[costCenter]; ok {
		return Match{Line: pr.line, Rule: pr.rule}, true
	}
	return Match{}, false
}
