package audit

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/Dhruv501/contract-intelligence-api/internal/citation"
	"github.com/Dhruv501/contract-intelligence-api/internal/models"
)

// Auditor evaluates the compiled rule library against a document's chunks.
// Evaluation is pure: no randomness, no external calls, so identical input
// and rule-library version produce byte-identical finding lists.
type Auditor struct {
	rules    []compiledRule
	resolver *citation.Resolver
}

type compiledRule struct {
	Rule
	pattern  *regexp.Regexp
	requires *regexp.Regexp
}

// NewAuditor compiles the rule library. A malformed pattern is a
// configuration error: it fails here, at startup, never silently per
// document.
func NewAuditor(rules []Rule, resolver *citation.Resolver) (*Auditor, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		pattern, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: invalid pattern: %w", rule.RiskType, err)
		}
		cr := compiledRule{Rule: rule, pattern: pattern}
		if rule.Requires != "" {
			cr.requires, err = regexp.Compile("(?i)" + rule.Requires)
			if err != nil {
				return nil, fmt.Errorf("rule %q: invalid requires pattern: %w", rule.RiskType, err)
			}
		}
		compiled = append(compiled, cr)
	}
	return &Auditor{rules: compiled, resolver: resolver}, nil
}

// Audit runs every rule over every chunk and returns findings ordered by
// descending severity, then (page, start_offset) ascending. A rule may fire
// in several places of the same document and one chunk may trigger several
// rules; each distinct match is independently citable evidence.
func (a *Auditor) Audit(documentID string, pages []models.Page, chunks []models.Chunk) []models.Finding {
	pageText := make(map[int]string, len(pages))
	for _, p := range pages {
		pageText[p.Number] = p.Text
	}

	findings := []models.Finding{}
	// Overlapping chunks can surface the same match twice; that is one piece
	// of evidence, not two, so identical resolved ranges collapse. Distinct
	// matches of the same rule are all kept.
	seen := make(map[string]struct{})
	for _, rule := range a.rules {
		if rule.Absence {
			findings = append(findings, a.evaluateAbsence(documentID, rule, chunks)...)
			continue
		}
		for _, ch := range chunks {
			for _, f := range a.evaluateChunk(documentID, rule, ch, pageText[ch.Page]) {
				key := fmt.Sprintf("%s:%d:%d:%d", f.RiskType, f.Page, f.CharRange.Start(), f.CharRange.End())
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				findings = append(findings, f)
			}
		}
	}

	sortFindings(findings)
	return findings
}

func (a *Auditor) evaluateChunk(documentID string, rule compiledRule, ch models.Chunk, pageText string) []models.Finding {
	var findings []models.Finding
	for _, match := range rule.pattern.FindAllStringSubmatchIndex(ch.Text, -1) {
		if rule.Check != nil && !rule.Check(submatchGroups(ch.Text, match)) {
			continue
		}
		evidence := a.resolver.Resolve(pageText, ch, &citation.Span{Start: match[0], End: match[1]})
		findings = append(findings, models.Finding{
			RiskType:    rule.RiskType,
			Severity:    rule.Severity,
			Description: rule.Description,
			DocumentID:  documentID,
			Page:        evidence.Page,
			CharRange:   &evidence.CharRange,
			TextSnippet: evidence.TextSnippet,
		})
	}
	return findings
}

// evaluateAbsence fires when the rule's pattern matches nowhere in the
// document. There is no passage to quote, so the finding carries no
// char_range; the description names what was looked for and not found.
func (a *Auditor) evaluateAbsence(documentID string, rule compiledRule, chunks []models.Chunk) []models.Finding {
	required := rule.requires == nil
	for _, ch := range chunks {
		if !required && rule.requires.MatchString(ch.Text) {
			required = true
		}
		if rule.pattern.MatchString(ch.Text) {
			return nil
		}
	}
	if !required || len(chunks) == 0 {
		return nil
	}
	return []models.Finding{{
		RiskType:    rule.RiskType,
		Severity:    rule.Severity,
		Description: rule.Description,
		DocumentID:  documentID,
	}}
}

func submatchGroups(text string, match []int) []string {
	groups := make([]string, 0, len(match)/2)
	for i := 0; i < len(match); i += 2 {
		if match[i] < 0 {
			groups = append(groups, "")
			continue
		}
		groups = append(groups, text[match[i]:match[i+1]])
	}
	return groups
}

var severityRank = map[string]int{
	models.SeverityHigh:   3,
	models.SeverityMedium: 2,
	models.SeverityLow:    1,
}

func sortFindings(findings []models.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if severityRank[a.Severity] != severityRank[b.Severity] {
			return severityRank[a.Severity] > severityRank[b.Severity]
		}
		// Cited findings come before absence findings of equal severity.
		if (a.CharRange == nil) != (b.CharRange == nil) {
			return b.CharRange == nil
		}
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.CharRange != nil && b.CharRange != nil && a.CharRange.Start() != b.CharRange.Start() {
			return a.CharRange.Start() < b.CharRange.Start()
		}
		return a.RiskType < b.RiskType
	})
}
