package models

import (
	"time"
)

// Document is an ingested contract. Documents are immutable once stored;
// re-uploading produces a new ID.
type Document struct {
	ID          string     `json:"document_id" db:"document_id"`
	Filename    string     `json:"filename" db:"filename"`
	FileSize    int64      `json:"file_size" db:"file_size"`
	ContentType string     `json:"content_type" db:"content_type"`
	S3Key       string     `json:"s3_key" db:"s3_key"`
	PageCount   int        `json:"page_count" db:"page_count"`
	Truncated   bool       `json:"truncated,omitempty" db:"truncated"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ExtractedAt *time.Time `json:"extracted_at,omitempty" db:"extracted_at"`
}

// Page is one page of extracted text. Page numbers are 1-based.
type Page struct {
	DocumentID string `json:"document_id" db:"document_id"`
	Number     int    `json:"page" db:"page_number"`
	Text       string `json:"text" db:"text"`
	Truncated  bool   `json:"truncated,omitempty" db:"truncated"`
}

// Chunk is a position-tracked substring of one page's text. Offsets are
// relative to that page, so page_text[StartOffset:EndOffset] == Text always
// holds.
type Chunk struct {
	DocumentID  string `json:"document_id"`
	Page        int    `json:"page"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	Text        string `json:"text"`
}

// CharRange is an absolute (start, end) pair into a page's raw text,
// serialized as a two-element JSON array.
type CharRange [2]int

func (r CharRange) Start() int { return r[0] }
func (r CharRange) End() int   { return r[1] }

// Citation points an answer or finding back to exact source text.
// TextSnippet is always a verbatim substring of the cited page at CharRange.
type Citation struct {
	DocumentID  string    `json:"document_id"`
	Page        int       `json:"page"`
	CharRange   CharRange `json:"char_range"`
	TextSnippet string    `json:"text_snippet"`
}

// Severity levels for audit findings.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Finding is one occurrence of a matched risk rule. Citation fields are
// inlined; absence-type rules (nothing to quote) leave Page and CharRange
// unset.
type Finding struct {
	RiskType    string     `json:"risk_type"`
	Severity    string     `json:"severity"`
	Description string     `json:"description"`
	DocumentID  string     `json:"document_id"`
	Page        int        `json:"page,omitempty"`
	CharRange   *CharRange `json:"char_range,omitempty"`
	TextSnippet string     `json:"text_snippet,omitempty"`
}

// Answer is the response to a question, with citations ordered by descending
// relevance.
type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
	// NoSignal is set when the query produced no relevance signal and the
	// answer could not be grounded.
	NoSignal bool `json:"no_relevance_signal,omitempty"`
}

// StreamEvent is one server-sent event of a streamed answer: zero or more
// token events followed by exactly one terminal event carrying citations.
type StreamEvent struct {
	Token     string     `json:"token,omitempty"`
	Citations []Citation `json:"citations,omitempty"`
	Done      bool       `json:"done"`
}

type IngestResponse struct {
	DocumentIDs []string `json:"document_ids"`
	Count       int      `json:"count"`
	Warnings    []string `json:"warnings,omitempty"`
}

type AskRequest struct {
	Question    string   `json:"question"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

type AuditRequest struct {
	DocumentID string `json:"document_id"`
}

type AuditResponse struct {
	DocumentID string    `json:"document_id"`
	Findings   []Finding `json:"findings"`
	Count      int       `json:"count"`
}

type ExtractRequest struct {
	DocumentID string `json:"document_id"`
}

// LiabilityCap is a parsed liability limit.
type LiabilityCap struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type Signatory struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// ExtractedFields are the structured fields pulled out of a contract.
type ExtractedFields struct {
	Parties         []string      `json:"parties"`
	EffectiveDate   *string       `json:"effective_date"`
	Term            *string       `json:"term"`
	GoverningLaw    *string       `json:"governing_law"`
	PaymentTerms    *string       `json:"payment_terms"`
	Termination     *string       `json:"termination"`
	AutoRenewal     *string       `json:"auto_renewal"`
	Confidentiality *string       `json:"confidentiality"`
	Indemnity       *string       `json:"indemnity"`
	LiabilityCap    *LiabilityCap `json:"liability_cap"`
	Signatories     []Signatory   `json:"signatories"`
}
