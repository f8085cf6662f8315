// Package document consumes page records from the structure-analysis
// collaborator and derives the inputs the extraction pipeline needs: block
// classification, financial-section matches, note references, document-wide
// metadata, and a combined text rendering.
package document

import (
	"context"
	"strings"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/entity"
)

// TextBlock is one positioned text run on a page.
type TextBlock struct {
	Text        string     `json:"text"`
	BoundingBox [4]float64 `json:"bounding_box"`
	Confidence  float64    `json:"confidence"`
}

// DetectedTable is a table region reported by the object-detection model.
type DetectedTable struct {
	BoundingBox [4]float64 `json:"bounding_box"`
	Confidence  float64    `json:"confidence"`
	Label       string     `json:"label"`
}

// Page is one page record as produced by the structure collaborator.
type Page struct {
	PageNum    int             `json:"page_num"`
	TextBlocks []TextBlock     `json:"text_blocks"`
	Tables     []DetectedTable `json:"detected_tables"`
	Width      float64         `json:"width"`
	Height     float64         `json:"height"`
}

// Text joins the page's blocks with single spaces.
func (p Page) Text() string {
	parts := make([]string, 0, len(p.TextBlocks))
	for _, b := range p.TextBlocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, " ")
}

// PageSource is the document-structure collaborator: it turns a stored file
// into page records. Model internals (token classification, table detection)
// live behind this boundary.
type PageSource interface {
	ExtractPages(ctx context.Context, path string) ([]Page, error)
}

// SectionMatch records where a financial statement section was first located.
type SectionMatch struct {
	Section constants.SectionType `json:"section"`
	Page    int                   `json:"page"`
	Pattern string                `json:"pattern_matched"`
	Text    string                `json:"-"`
}

// NoteRecord is a note reference located on a page token.
type NoteRecord struct {
	Text        string     `json:"text"`
	Page        int        `json:"page"`
	BoundingBox [4]float64 `json:"bounding_box"`
	NoteNumbers string     `json:"note_numbers"`
}

// Analysis is the full structural picture of one document.
type Analysis struct {
	Filename       string
	PageCount      int
	Pages          []Page
	Structured     []StructuredText
	Sections       map[constants.SectionType]*SectionMatch
	Notes          []NoteRecord
	FullText       string
	Metadata       entity.DocumentMetadata
	ProcessingTime float64
}

// CombineText renders classified pages into a single text stream: headers set
// off with === markers, then table rows, financial data, and paragraphs, with
// an explicit page break between pages. Unclassified pages fall back to their
// joined block text.
func CombineText(pages []Page, structured []StructuredText) string {
	var parts []string
	for i, page := range pages {
		if i < len(structured) {
			st := structured[i]
			for _, h := range st.Headers {
				parts = append(parts, "\n=== "+h.Text+" ===\n")
			}
			for _, r := range st.TableRows {
				parts = append(parts, r.Text)
			}
			for _, f := range st.FinancialData {
				parts = append(parts, f.Text)
			}
			for _, p := range st.Paragraphs {
				parts = append(parts, p.Text)
			}
		} else {
			parts = append(parts, page.Text())
		}
		parts = append(parts, "\n--- PAGE BREAK ---\n")
	}
	return strings.Join(parts, "\n")
}
