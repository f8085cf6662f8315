package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/entity"
)

var yearRe = regexp.MustCompile(`\b(20\d{2})\b`)

// BuildBasicStatement is the last-resort tier: no model call, just direct
// heuristics over the section text. The result carries the company name and
// reporting years when they can be found, an empty line-item list, and a low
// confidence so downstream consumers can tell it apart from a real
// extraction.
func BuildBasicStatement(text string, section constants.SectionType, md entity.DocumentMetadata) (*entity.FinancialStatement, error) {
	stmt := &entity.FinancialStatement{
		StatementType:        string(section),
		CompanyName:          extractCompanyName(text),
		Currency:             md.Currency,
		Rounding:             md.Rounding,
		FinancialYears:       extractYears(text),
		LineItems:            []entity.LineItem{},
		ExtractionConfidence: 0.1,
	}
	if err := stmt.Normalize(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// extractCompanyName scans the first ten lines for an Australian-style
// company designation.
func extractCompanyName(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > 10 {
		lines = lines[:10]
	}
	for _, line := range lines {
		upper := strings.ToUpper(strings.TrimSpace(line))
		if upper == "" {
			continue
		}
		if strings.Contains(upper, "PTY") && strings.Contains(upper, "LTD") {
			return upper
		}
		if strings.Contains(upper, "LIMITED") && len(upper) < 100 {
			return upper
		}
	}
	return "Unknown Company"
}

// extractYears collects plausible reporting years (2020-2025), deduplicated
// and sorted. When none are present the current reporting year is assumed.
func extractYears(text string) []string {
	seen := map[string]bool{}
	for _, m := range yearRe.FindAllStringSubmatch(text, -1) {
		y := m[1]
		if y >= "2020" && y <= "2025" {
			seen[y] = true
		}
	}
	if len(seen) == 0 {
		return []string{"2024"}
	}
	years := make([]string, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Strings(years)
	return years
}
