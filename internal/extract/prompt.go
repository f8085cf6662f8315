package extract

import (
	"fmt"
	"strings"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/entity"
)

// reducedMaxLines caps how deep into the section text the reduced-context
// tier scans, and reducedMaxKept caps how many matching lines survive.
const (
	reducedMaxLines = 50
	reducedMaxKept  = 20
)

func sectionDisplayName(section constants.SectionType) string {
	switch section {
	case constants.SectionProfitLoss:
		return "Profit and Loss Statement"
	case constants.SectionComprehensiveIncome:
		return "Statement of Comprehensive Income"
	case constants.SectionBalanceSheet:
		return "Balance Sheet"
	case constants.SectionCashFlow:
		return "Cash Flow Statement"
	default:
		return string(section)
	}
}

func sectionExampleItems(section constants.SectionType) string {
	switch section {
	case constants.SectionBalanceSheet:
		return `    {"label": "Cash and cash equivalents", "values": {"2023": 175.9, "2024": 233.3}, "note_references": ["8"]},
    {"label": "Trade and other receivables", "values": {"2023": 95.1, "2024": 102.4}, "note_references": ["9"]},
    {"label": "Total current assets", "values": {"2023": 271.0, "2024": 335.7}, "note_references": []}`
	case constants.SectionCashFlow:
		return `    {"label": "Receipts from customers", "values": {"2023": 312.5, "2024": 340.1}, "note_references": []},
    {"label": "Payments to suppliers and employees", "values": {"2023": -280.3, "2024": -301.7}, "note_references": []},
    {"label": "Net cash from operating activities", "values": {"2023": 32.2, "2024": 38.4}, "note_references": ["22"]}`
	default:
		return `    {"label": "Revenue", "values": {"2023": 175.9, "2024": 233.3}, "note_references": ["3"]},
    {"label": "Cost of sales", "values": {"2023": -120.4, "2024": -154.2}, "note_references": []},
    {"label": "Profit before income tax", "values": {"2023": 21.8, "2024": 26.6}, "note_references": ["5"]}`
	}
}

// BuildExtractionPrompt renders the full-context extraction prompt for one
// section. The response contract and example are spelled out in full; the
// detected document metadata pins currency and rounding so the model does not
// have to re-derive them.
func BuildExtractionPrompt(text string, section constants.SectionType, md entity.DocumentMetadata) string {
	name := sectionDisplayName(section)
	return fmt.Sprintf(`You are a financial data extraction system. Extract the %s from the document text below.

Document currency: %s
Document rounding: %s

Rules:
- Extract every line item with its label and a numeric value per financial year.
- Negative amounts may appear in parentheses, e.g. (27.6) means -27.6.
- Keep note references (the small numbers next to labels) as strings.
- Use the exact years found in the column headers as value keys.
- Respond with ONLY a JSON object, no commentary, no markdown.

JSON format:
{
  "statement_type": "%s",
  "company_name": "COMPANY NAME",
  "currency": "%s",
  "rounding": "%s",
  "financial_years": ["2023", "2024"],
  "line_items": [
%s
  ]
}

Document text:
%s

JSON:`, name, md.Currency, md.Rounding, section, md.Currency, md.Rounding, sectionExampleItems(section), text)
}

// ReduceText keeps only the lines most likely to carry statement rows: within
// the first reducedMaxLines lines, a line survives when it mentions a
// financial keyword and contains at least one digit. At most reducedMaxKept
// lines are returned.
func ReduceText(text string) string {
	keywords := []string{
		"revenue", "income", "expense", "profit", "loss",
		"asset", "liabilit", "equity", "cash", "tax", "total",
	}

	lines := strings.Split(text, "\n")
	if len(lines) > reducedMaxLines {
		lines = lines[:reducedMaxLines]
	}

	var kept []string
	for _, line := range lines {
		lower := strings.ToLower(line)
		hasKeyword := false
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hasKeyword = true
				break
			}
		}
		if !hasKeyword || !strings.ContainsAny(line, "0123456789") {
			continue
		}
		kept = append(kept, strings.TrimSpace(line))
		if len(kept) >= reducedMaxKept {
			break
		}
	}
	return strings.Join(kept, "\n")
}

// BuildReducedPrompt renders the terse retry prompt used after a full-context
// attempt failed to parse.
func BuildReducedPrompt(reduced string, section constants.SectionType, md entity.DocumentMetadata) string {
	return fmt.Sprintf(`Extract the %s as JSON. Respond with only the JSON object.

{"statement_type": "%s", "company_name": "...", "currency": "%s", "rounding": "%s", "financial_years": [...], "line_items": [{"label": "...", "values": {"YEAR": number}, "note_references": []}]}

Text:
%s

JSON:`, sectionDisplayName(section), section, md.Currency, md.Rounding, reduced)
}
