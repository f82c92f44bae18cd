package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Dhruv501/contract-intelligence-api/internal/models"
	"github.com/ledongthuc/pdf"
)

// Size caps applied during extraction. Pages beyond the caps are truncated,
// never dropped silently: every truncation is recorded as a warning.
const (
	MaxPageText     = 50 * 1000
	MaxDocumentText = 500 * 1000
)

// Result is the page-tagged text of one document.
type Result struct {
	Pages     []models.Page
	PageCount int
	Truncated bool
	Warnings  []string
}

// ExtractPDF extracts per-page plain text from a PDF. Pages that yield no
// text (scanned images) come back empty; extraction completeness for such
// pages is not guaranteed.
func ExtractPDF(data []byte) (*Result, error) {
	reader := bytes.NewReader(data)

	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	result := &Result{PageCount: pdfReader.NumPage()}
	total := 0

	for i := 1; i <= pdfReader.NumPage(); i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			result.Pages = append(result.Pages, models.Page{Number: i})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Keep the page slot so numbering stays aligned with the PDF.
			result.Warnings = append(result.Warnings, fmt.Sprintf("page %d: text extraction failed", i))
			result.Pages = append(result.Pages, models.Page{Number: i})
			continue
		}

		result.Pages = append(result.Pages, capPage(i, text, &total, result))
		if total >= MaxDocumentText && i < pdfReader.NumPage() {
			result.Truncated = true
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("document text cap reached; pages %d-%d dropped", i+1, pdfReader.NumPage()))
			break
		}
	}

	if allEmpty(result.Pages) {
		return nil, fmt.Errorf("no text could be extracted from PDF")
	}

	return result, nil
}

func capPage(number int, text string, total *int, result *Result) models.Page {
	page := models.Page{Number: number, Text: text}

	if len(page.Text) > MaxPageText {
		page.Text = page.Text[:MaxPageText]
		page.Truncated = true
		result.Truncated = true
		result.Warnings = append(result.Warnings, fmt.Sprintf("page %d truncated to %d bytes", number, MaxPageText))
	}

	if remaining := MaxDocumentText - *total; len(page.Text) > remaining {
		page.Text = page.Text[:remaining]
		page.Truncated = true
		result.Truncated = true
		result.Warnings = append(result.Warnings, fmt.Sprintf("page %d truncated at document text cap", number))
	}

	*total += len(page.Text)
	return page
}

func allEmpty(pages []models.Page) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return false
		}
	}
	return true
}
