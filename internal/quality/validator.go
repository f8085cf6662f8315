// Package quality scores and cross-checks finished extraction results. It
// never mutates a result's status: warnings ride alongside the outcome the
// orchestrator already decided.
package quality

import (
	"fmt"
	"log/slog"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/entity"
)

// slowProcessingSeconds is where a document run starts costing quality score.
const slowProcessingSeconds = 300.0

// Validator inspects extraction results for fabricated data and metadata
// drift.
type Validator struct {
	logger *slog.Logger
}

// NewValidator builds a Validator.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// ValidateDocument reports whether the result looks like a genuine
// extraction: at least one statement, every statement's currency and
// rounding inside the fixed enums, and no line-item value matching a known
// fabricated-output fingerprint.
func (v *Validator) ValidateDocument(result *entity.ExtractionResult) bool {
	if result == nil || len(result.Statements) == 0 {
		return false
	}
	for _, s := range result.Statements {
		if !constants.IsValidCurrency(s.Currency) {
			v.logger.Warn("quality.invalid_currency",
				"file", result.Filename, "statement", s.StatementType, "currency", s.Currency)
			return false
		}
		if !constants.IsValidRounding(s.Rounding) {
			v.logger.Warn("quality.invalid_rounding",
				"file", result.Filename, "statement", s.StatementType, "rounding", s.Rounding)
			return false
		}
		for _, li := range s.LineItems {
			for year, val := range li.Values {
				if constants.IsSuspiciousValue(val) {
					v.logger.Warn("quality.suspicious_value",
						"file", result.Filename,
						"statement", s.StatementType,
						"label", li.Label,
						"year", year,
						"value", val,
					)
					return false
				}
			}
		}
	}
	return true
}

// Score computes a quality score in [0, 1]. A result with no statements, or
// no line items across all of them, scores 0. Otherwise the score starts at
// 1 and loses up to 0.5 for the suspicious-value count relative to the
// line-item count, 0.1 per accumulated error, and 0.1 when processing ran
// longer than slowProcessingSeconds.
func (v *Validator) Score(result *entity.ExtractionResult) float64 {
	if result == nil || len(result.Statements) == 0 {
		return 0.0
	}
	totalItems := entity.TotalLineItems(result.Statements)
	if totalItems == 0 {
		return 0.0
	}

	suspicious := 0
	for _, s := range result.Statements {
		for _, li := range s.LineItems {
			for _, val := range li.Values {
				if constants.IsSuspiciousValue(val) {
					suspicious++
				}
			}
		}
	}

	score := 1.0
	score -= (float64(suspicious) / float64(totalItems)) * 0.5
	score -= 0.1 * float64(len(result.Errors))
	if result.ProcessingTime > slowProcessingSeconds {
		score -= 0.1
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// Warnings cross-checks extracted statements against the document-wide
// metadata settled during structural analysis. Warnings are advisory and
// never change a result's status.
func (v *Validator) Warnings(result *entity.ExtractionResult, md entity.DocumentMetadata) []string {
	warnings := []string{}
	if result == nil || len(result.Statements) == 0 {
		warnings = append(warnings, "No financial statements extracted")
		return warnings
	}
	for _, s := range result.Statements {
		if md.Currency != "" && s.Currency != md.Currency {
			warnings = append(warnings,
				fmt.Sprintf("Currency mismatch: PDF=%s, Extracted=%s", md.Currency, s.Currency))
		}
		if md.Rounding != "" && s.Rounding != md.Rounding {
			warnings = append(warnings,
				fmt.Sprintf("Rounding mismatch: PDF=%s, Extracted=%s", md.Rounding, s.Rounding))
		}
		if len(s.LineItems) == 0 {
			warnings = append(warnings,
				fmt.Sprintf("No line items in %s statement", s.StatementType))
		}
	}
	return warnings
}
