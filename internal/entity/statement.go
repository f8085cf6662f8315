package entity

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/common"
)

// maxAbsValue bounds line-item magnitudes; anything at or beyond this is an
// implausible outlier and fails normalization.
const maxAbsValue = 1e12

// LineItem is one labeled statement row with one value per reporting year.
type LineItem struct {
	Label          string             `json:"label"`
	Values         map[string]float64 `json:"values"`
	NoteReferences []string           `json:"note_references"`
	Confidence     float64            `json:"confidence"`

	// Optional extraction hints carried through from the raw completion.
	ValueType  string `json:"value_type,omitempty"` // positive, negative, or calculated
	Formatting string `json:"formatting,omitempty"` // original formatting like (27.6)
}

// FinancialStatement is one extracted statement section.
type FinancialStatement struct {
	StatementType        string            `json:"statement_type"`
	CompanyName          string            `json:"company_name"`
	Currency             string            `json:"currency"`
	Rounding             string            `json:"rounding"`
	FinancialYears       []string          `json:"financial_years"`
	LineItems            []LineItem        `json:"line_items"`
	DocumentMetadata     *DocumentMetadata `json:"document_metadata,omitempty"`
	ExtractionConfidence float64           `json:"extraction_confidence"`
}

// Normalize uppercases the currency, lowercases the rounding scale, defaults
// per-item confidence, and enforces the construction invariants: both enums
// must land in their fixed sets and every value magnitude must be plausible.
func (s *FinancialStatement) Normalize() error {
	s.Currency = strings.ToUpper(strings.TrimSpace(s.Currency))
	s.Rounding = strings.ToLower(strings.TrimSpace(s.Rounding))

	if !constants.IsValidCurrency(s.Currency) {
		return common.NewAppError("INVALID_CURRENCY",
			fmt.Sprintf("currency must be one of %v, got %q", constants.ValidCurrencies, s.Currency),
			common.ErrValidation)
	}
	if !constants.IsValidRounding(s.Rounding) {
		return common.NewAppError("INVALID_ROUNDING",
			fmt.Sprintf("rounding must be one of %v, got %q", constants.ValidRounding, s.Rounding),
			common.ErrValidation)
	}
	if s.ExtractionConfidence == 0 {
		s.ExtractionConfidence = 1.0
	}
	for i := range s.LineItems {
		item := &s.LineItems[i]
		if item.Confidence == 0 {
			item.Confidence = 1.0
		}
		if item.NoteReferences == nil {
			item.NoteReferences = []string{}
		}
		for year, v := range item.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) >= maxAbsValue {
				return common.NewAppError("VALUE_OUT_OF_RANGE",
					fmt.Sprintf("value %v for %q in %s is out of range", v, item.Label, year),
					common.ErrValidation)
			}
		}
	}
	return nil
}

// TotalLineItems counts the line items across statements.
func TotalLineItems(statements []FinancialStatement) int {
	n := 0
	for _, s := range statements {
		n += len(s.LineItems)
	}
	return n
}

// DocumentMetadata holds document-wide hints computed once during structural
// analysis and shared read-only across all extraction attempts.
type DocumentMetadata struct {
	Currency      string `json:"currency"`
	Rounding      string `json:"rounding"`
	RoundingNote  string `json:"rounding_note,omitempty"`
	FiscalYearEnd string `json:"fiscal_year_end,omitempty"`
}

// ExtractionResult is the per-document outcome assembled by the pipeline
// coordinator. A completed result is expected to carry at least one statement;
// the coordinator fails the document otherwise.
type ExtractionResult struct {
	Filename        string                     `json:"filename"`
	DocumentID      string                     `json:"document_id,omitempty"`
	UploadTimestamp time.Time                  `json:"upload_timestamp"`
	ProcessingTime  float64                    `json:"processing_time"`
	Statements      []FinancialStatement       `json:"statements"`
	Status          constants.ExtractionStatus `json:"status"`
	Errors          []string                   `json:"errors"`
}

// ProcessingStatus is the live record tracked per document id. Exactly one
// record exists per id; the latest write wins.
type ProcessingStatus struct {
	DocumentID string                    `json:"document_id"`
	Filename   string                    `json:"filename"`
	Status     constants.ProcessingState `json:"status"`
	Progress   int                       `json:"progress"`
	Message    string                    `json:"message"`
	Result     *ExtractionResult         `json:"result,omitempty"`
}
