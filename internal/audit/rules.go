package audit

import (
	"fmt"
	"strconv"
)

// Rule is one entry of the declarative risk rule table. Pattern is a
// case-insensitive regular expression evaluated per chunk; Check, when set,
// inspects the submatch groups and can veto a match (e.g. compare an
// extracted "N days" figure against a policy threshold). Absence rules
// invert the logic: they fire once per document when Pattern matches no
// chunk at all (optionally gated on Requires matching somewhere).
type Rule struct {
	RiskType    string
	Severity    string
	Description string
	Pattern     string
	Check       func(groups []string) bool
	Absence     bool
	Requires    string
}

// RuleLibraryVersion identifies the rule table. Audit output is only
// comparable across runs with the same version.
const RuleLibraryVersion = "v1"

// Policy holds the numeric thresholds referenced by the rule table. They are
// product policy, supplied from configuration.
type Policy struct {
	AutoRenewalNoticeDays        int
	ConfidentialitySurvivalYears int
}

// DefaultRules is the fixed rule library evaluated by the auditor.
func DefaultRules(policy Policy) []Rule {
	return []Rule{
		{
			RiskType: "auto_renewal_short_notice",
			Severity: "high",
			Description: fmt.Sprintf(
				"Auto-renewal clause with less than %d days notice period", policy.AutoRenewalNoticeDays),
			// Both clause orders: renew-then-notice and notice-then-renew.
			Pattern: `auto(?:matically)?[-\s]*renew(?:al|s|ed)?[^.?!]*?(?:written\s+)?notice[^.?!]*?(\d+)\s*days?` +
				`|(?:written\s+)?notice[^.?!]*?(\d+)\s*days?[^.?!]*?auto(?:matically)?[-\s]*renew(?:al|s|ed)?`,
			Check: lessThanDays(policy.AutoRenewalNoticeDays),
		},
		{
			RiskType:    "unlimited_liability",
			Severity:    "high",
			Description: "Unlimited liability clause detected",
			Pattern:     `(?:unlimited|no\s+limit|without\s+limit(?:ation)?)[^.?!]*?liabilit(?:y|ies)`,
		},
		{
			RiskType:    "broad_indemnity",
			Severity:    "high",
			Description: "Broad indemnity clause that may expose a party to excessive risk",
			Pattern:     `indemnif(?:y|ies|ication)[^.?!]*?(?:any\s+and\s+all|all|any)[^.?!]*?(?:loss(?:es)?|damages?|claims?|liabilit(?:y|ies))`,
		},
		{
			RiskType:    "unilateral_termination",
			Severity:    "medium",
			Description: "Clause that restricts or removes one party's termination rights",
			Pattern:     `(?:may\s+not\s+terminate|cannot\s+terminate|no\s+right\s+to\s+terminate|terminate[^.?!]*?sole\s+discretion|sole\s+discretion[^.?!]*?terminate)`,
		},
		{
			RiskType:    "exclusive_terms",
			Severity:    "medium",
			Description: "Exclusive vendor/supplier terms that limit flexibility",
			Pattern:     `exclusive[^.?!]*?(?:vendor|supplier|provider)`,
		},
		{
			RiskType: "long_confidentiality_survival",
			Severity: "medium",
			Description: fmt.Sprintf(
				"Confidentiality obligations survive longer than %d years", policy.ConfidentialitySurvivalYears),
			Pattern: `confidential(?:ity)?[^.?!]*?surviv(?:e|es|al)[^.?!]*?(\d+)\s*years?`,
			Check:   moreThanYears(policy.ConfidentialitySurvivalYears),
		},
		{
			RiskType:    "missing_governing_law",
			Severity:    "medium",
			Description: "No governing-law or jurisdiction clause found",
			Pattern:     `governed\s+by|governing\s+law|jurisdiction\s+of|laws?\s+of\s+(?:the\s+)?state`,
			Absence:     true,
		},
		{
			RiskType:    "missing_confidentiality_survival",
			Severity:    "low",
			Description: "Confidentiality clause has no survival period",
			Pattern:     `confidential(?:ity)?[^.?!]*?surviv(?:e|es|al)|surviv(?:e|es|al)[^.?!]*?confidential`,
			Absence:     true,
			Requires:    `confidential`,
		},
	}
}

func lessThanDays(threshold int) func(groups []string) bool {
	return func(groups []string) bool {
		days, ok := firstNumber(groups)
		return ok && days < threshold
	}
}

func moreThanYears(threshold int) func(groups []string) bool {
	return func(groups []string) bool {
		years, ok := firstNumber(groups)
		return ok && years > threshold
	}
}

// firstNumber returns the first parseable capture group. Alternations leave
// the groups of the branch that did not match empty.
func firstNumber(groups []string) (int, bool) {
	for _, g := range groups[1:] {
		if g == "" {
			continue
		}
		if n, err := strconv.Atoi(g); err == nil {
			return n, true
		}
	}
	return 0, false
}
