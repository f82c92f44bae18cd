package fields

import (
	"regexp"
	"strings"

	"github.com/Dhruv501/contract-intelligence-api/internal/models"
)

// Pattern tables for structured field extraction. Compiled once at package
// load; a malformed pattern fails the build of the binary, not a request.
var (
	partyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:between|by and between)\s+([A-Z][A-Za-z0-9\s&,\.\-']+?)(?:\s+and\s+|\s*,\s*)([A-Z][A-Za-z0-9\s&,\.\-']+?)(?:\s+\(|,|\.|;|\n|$)`),
		regexp.MustCompile(`(?i)this\s+agreement\s+is\s+between\s+([A-Z][A-Za-z0-9\s&,\.\-']+?)\s+and\s+([A-Z][A-Za-z0-9\s&,\.\-']+?)(?:\s+\(|,|\.|;|\n|$)`),
	}

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)effective\s+(?:date|as\s+of)[\s:]+(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
		regexp.MustCompile(`(?i)effective\s+(?:date|as\s+of)[\s:]+([A-Z][a-z]+\s+\d{1,2},?\s+\d{4})`),
		regexp.MustCompile(`(?i)this\s+agreement\s+is\s+effective\s+(?:as\s+of\s+)?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
		regexp.MustCompile(`(?i)this\s+agreement\s+is\s+effective\s+(?:as\s+of\s+)?([A-Z][a-z]+\s+\d{1,2},?\s+\d{4})`),
		regexp.MustCompile(`(?i)dated[:\s]+(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
		regexp.MustCompile(`(?i)dated[:\s]+([A-Z][a-z]+\s+\d{1,2},?\s+\d{4})`),
		regexp.MustCompile(`(?i)executed\s+(?:on\s+)?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
	}

	termPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)term\s+(?:of\s+)?(?:this\s+)?(?:agreement|contract)[\s:]+(\d+)\s+(?:year|month|day)s?`),
		regexp.MustCompile(`(?i)initial\s+term[\s:]+(?:of\s+)?(\d+)\s+(?:year|month|day)s?`),
		regexp.MustCompile(`(?i)duration[\s:]+(\d+)\s+(?:year|month|day)s?`),
	}

	lawPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)governed\s+by\s+(?:the\s+)?laws?\s+of\s+([A-Z][A-Za-z\s,]+?)(?:\.|,|;|\n|$)`),
		regexp.MustCompile(`(?i)governing\s+law[\s:]+([A-Z][A-Za-z\s,]+?)(?:\.|,|;|\n|$)`),
	}

	paymentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)payment\s+(?:terms?|shall\s+be)[\s:]+([A-Za-z0-9\s,\$\.]+?)(?:\.|;|\n|$)`),
		regexp.MustCompile(`(?i)invoices?\s+(?:shall\s+be\s+)?(?:paid|due)[\s:]+([A-Za-z0-9\s,\$\.]+?)(?:\.|;|\n|$)`),
	}

	terminationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)may\s+terminate[\s:]?\s+([A-Za-z0-9\s,]+?)(?:\.|;|\n|$)`),
		regexp.MustCompile(`(?i)termination[\s:]+([A-Za-z0-9\s,]+?)(?:\.|;|\n|$)`),
	}

	renewalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)auto[-\s]?renew(?:al|s|ed)?[\s:]?\s*([A-Za-z0-9\s,]+?)(?:\.|;|\n|$)`),
		regexp.MustCompile(`(?i)automatically\s+renews?\s+([A-Za-z0-9\s,]+?)(?:\.|;|\n|$)`),
	}

	confidentialityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)confidential\s+information\s+(?:means|shall\s+mean|includes)[\s:]+([A-Za-z0-9\s,\(\)]+?)(?:\.|;|\n|$)`),
		regexp.MustCompile(`(?i)confidential(?:ity)?[\s:]+([A-Za-z0-9\s,\(\)]+?)(?:\.|;|\n|$)`),
	}

	indemnityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)shall\s+indemnify\s+([A-Za-z0-9\s,]+?)(?:\.|;|\n|$)`),
		regexp.MustCompile(`(?i)indemnif(?:y|ies)\s+([A-Za-z0-9\s,]+?)(?:\.|;|\n|$)`),
	}

	liabilityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)liability\s+(?:cap|limit)[\s:]+([\$£€]?\s*\d+(?:,\d{3})*(?:\.\d{2})?)\s*([A-Z]{3})?`),
		regexp.MustCompile(`(?i)maximum\s+liability[\s:]+([\$£€]?\s*\d+(?:,\d{3})*(?:\.\d{2})?)\s*([A-Z]{3})?`),
	}

	signatoryPattern = regexp.MustCompile(`(?i)(?:signed|executed)\s+by[\s:]+([A-Z][A-Za-z\s]+?)[\s:,]+(?:title|as)[\s:]+([A-Z][A-Za-z\s]+?)(?:\.|,|;|\n|$)`)
)

var partyNoise = map[string]struct{}{
	"party": {}, "parties": {}, "agreement": {}, "contract": {}, "document": {},
}

// Extract pulls structured contract fields out of the full document text
// with the pattern tables above. Absent fields stay nil; extraction never
// fails, it just finds less.
func Extract(text string) *models.ExtractedFields {
	result := &models.ExtractedFields{
		Parties:     []string{},
		Signatories: []models.Signatory{},
	}

	for _, pattern := range partyPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			for _, raw := range match[1:] {
				party := strings.TrimSpace(raw)
				if len(party) <= 3 {
					continue
				}
				if _, noise := partyNoise[strings.ToLower(party)]; noise {
					continue
				}
				if !contains(result.Parties, party) {
					result.Parties = append(result.Parties, party)
				}
			}
		}
	}

	result.EffectiveDate = firstGroup(datePatterns, text)
	result.Term = firstWhole(termPatterns, text)
	result.GoverningLaw = firstGroup(lawPatterns, text)
	result.PaymentTerms = firstGroup(paymentPatterns, text)
	result.Termination = firstGroup(terminationPatterns, text)
	result.AutoRenewal = firstGroup(renewalPatterns, text)
	result.Confidentiality = firstGroup(confidentialityPatterns, text)
	result.Indemnity = firstGroup(indemnityPatterns, text)

	for _, pattern := range liabilityPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			currency := "USD"
			if len(match) > 2 && match[2] != "" {
				currency = match[2]
			}
			result.LiabilityCap = &models.LiabilityCap{
				Amount:   strings.TrimSpace(match[1]),
				Currency: currency,
			}
			break
		}
	}

	for _, match := range signatoryPattern.FindAllStringSubmatch(text, -1) {
		result.Signatories = append(result.Signatories, models.Signatory{
			Name:  strings.TrimSpace(match[1]),
			Title: strings.TrimSpace(match[2]),
		})
	}

	return result
}

func firstGroup(patterns []*regexp.Regexp, text string) *string {
	for _, pattern := range patterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			value := strings.TrimSpace(match[1])
			if len(value) > 500 {
				value = value[:500]
			}
			if value != "" {
				return &value
			}
		}
	}
	return nil
}

func firstWhole(patterns []*regexp.Regexp, text string) *string {
	for _, pattern := range patterns {
		if match := pattern.FindString(text); match != "" {
			value := strings.TrimSpace(match)
			return &value
		}
	}
	return nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
