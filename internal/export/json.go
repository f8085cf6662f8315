// Package export renders finished extraction results to their on-disk
// artifacts: a JSON result file written after every pipeline run, and an
// XLSX workbook produced on demand.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/common"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/entity"
)

// ResultArtifact is the denormalized JSON document written per processed
// file. Its field names are a stable contract with downstream consumers and
// deviate from the entity JSON tags: statements carry "type", the quality
// score is "extraction_quality".
type ResultArtifact struct {
	ExtractionTimestamp string                     `json:"extraction_timestamp"`
	Filename            string                     `json:"filename"`
	ProcessingTime      float64                    `json:"processing_time"`
	Status              constants.ExtractionStatus `json:"status"`
	Errors              []string                   `json:"errors"`
	ExtractionQuality   float64                    `json:"extraction_quality"`
	Statements          []ArtifactStatement        `json:"statements"`
}

// ArtifactStatement is one statement in the persisted artifact.
type ArtifactStatement struct {
	Type                 string             `json:"type"`
	CompanyName          string             `json:"company_name"`
	Currency             string             `json:"currency"`
	Rounding             string             `json:"rounding"`
	FinancialYears       []string           `json:"financial_years"`
	ExtractionConfidence float64            `json:"extraction_confidence"`
	LineItems            []ArtifactLineItem `json:"line_items"`
}

// ArtifactLineItem is one statement row in the persisted artifact.
type ArtifactLineItem struct {
	Label          string             `json:"label"`
	Values         map[string]float64 `json:"values"`
	NoteReferences []string           `json:"note_references"`
	Confidence     float64            `json:"confidence"`
}

// BuildResultArtifact maps an extraction result and its quality score onto
// the artifact shape.
func BuildResultArtifact(result *entity.ExtractionResult, score float64) ResultArtifact {
	artifact := ResultArtifact{
		ExtractionTimestamp: time.Now().UTC().Format(time.RFC3339),
		Filename:            result.Filename,
		ProcessingTime:      result.ProcessingTime,
		Status:              result.Status,
		Errors:              result.Errors,
		ExtractionQuality:   score,
		Statements:          make([]ArtifactStatement, 0, len(result.Statements)),
	}
	if artifact.Errors == nil {
		artifact.Errors = []string{}
	}
	for _, s := range result.Statements {
		stmt := ArtifactStatement{
			Type:                 s.StatementType,
			CompanyName:          s.CompanyName,
			Currency:             s.Currency,
			Rounding:             s.Rounding,
			FinancialYears:       s.FinancialYears,
			ExtractionConfidence: s.ExtractionConfidence,
			LineItems:            make([]ArtifactLineItem, 0, len(s.LineItems)),
		}
		for _, li := range s.LineItems {
			stmt.LineItems = append(stmt.LineItems, ArtifactLineItem{
				Label:          li.Label,
				Values:         li.Values,
				NoteReferences: li.NoteReferences,
				Confidence:     li.Confidence,
			})
		}
		artifact.Statements = append(artifact.Statements, stmt)
	}
	return artifact
}

// WriteResultJSON writes the artifact for docID under outputDir as
// <docID>_result.json and returns the written path.
func WriteResultJSON(outputDir, docID string, result *entity.ExtractionResult, score float64) (string, error) {
	artifact := BuildResultArtifact(result, score)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", common.NewAppError("EXPORT_JSON", "create output directory", err)
	}
	path := filepath.Join(outputDir, fmt.Sprintf("%s_result.json", docID))

	b, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", common.NewAppError("EXPORT_JSON", "encode result", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", common.NewAppError("EXPORT_JSON", "write result file", err)
	}
	return path, nil
}
