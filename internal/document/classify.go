package document

import (
	"regexp"
	"strings"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
)

// ClassifiedBlock is a text block with its assigned structural role.
type ClassifiedBlock struct {
	Text        string     `json:"text"`
	BoundingBox [4]float64 `json:"bounding_box"`
	Type        string     `json:"type"`
}

// StructuredText groups one page's blocks by role.
type StructuredText struct {
	Headers       []ClassifiedBlock `json:"headers"`
	TableRows     []ClassifiedBlock `json:"tables"`
	FinancialData []ClassifiedBlock `json:"financial_data"`
	Paragraphs    []ClassifiedBlock `json:"paragraphs"`
}

var headerPhrases = []string{
	"CONSOLIDATED STATEMENT OF COMPREHENSIVE INCOME",
	"STATEMENT OF COMPREHENSIVE INCOME",
	"STATEMENT OF PROFIT OR LOSS AND OTHER COMPREHENSIVE INCOME",
	"STATEMENT OF PROFIT OR LOSS",
	"CONSOLIDATED STATEMENT OF PROFIT OR LOSS",
	"STATEMENT OF FINANCIAL POSITION",
	"CONSOLIDATED STATEMENT OF FINANCIAL POSITION",
	"STATEMENT OF CASH FLOWS",
	"CONSOLIDATED STATEMENT OF CASH FLOWS",
	"BALANCE SHEET",
	"INCOME STATEMENT",
	"NOTE",
	"NOTES TO THE FINANCIAL STATEMENTS",
	"NOTES TO THE CONSOLIDATED FINANCIAL STATEMENTS",
}

var financialKeywords = []string{
	"revenue", "income", "expense", "profit", "loss", "assets", "liabilities",
	"cash", "dividend", "interest", "tax", "total", "net", "gross",
}

var (
	tableRowRe = regexp.MustCompile(`^[A-Za-z\s&,().-]+\s+[\d,()\-\s.]+[\d,()\-\s.]*$`)
	numberRe   = regexp.MustCompile(`\d+[,.]?\d*`)
)

// ClassifyPage sorts a page's blocks into headers, table rows, financial data
// lines, and plain paragraphs.
func ClassifyPage(page Page) StructuredText {
	var st StructuredText
	for _, block := range page.TextBlocks {
		text := strings.TrimSpace(block.Text)
		if text == "" {
			continue
		}
		cb := ClassifiedBlock{Text: text, BoundingBox: block.BoundingBox}
		switch {
		case isFinancialHeader(text):
			cb.Type = "header"
			st.Headers = append(st.Headers, cb)
		case isFinancialTableRow(text):
			cb.Type = "table_row"
			st.TableRows = append(st.TableRows, cb)
		case containsFinancialData(text):
			cb.Type = "financial_data"
			st.FinancialData = append(st.FinancialData, cb)
		default:
			cb.Type = "paragraph"
			st.Paragraphs = append(st.Paragraphs, cb)
		}
	}
	return st
}

func isFinancialHeader(text string) bool {
	upper := strings.ToUpper(text)
	for _, phrase := range headerPhrases {
		if strings.Contains(upper, phrase) {
			return true
		}
	}
	return false
}

func isFinancialTableRow(text string) bool {
	return tableRowRe.MatchString(text) && strings.ContainsAny(text, "0123456789")
}

func containsFinancialData(text string) bool {
	lower := strings.ToLower(text)
	hasKeyword := false
	for _, kw := range financialKeywords {
		if strings.Contains(lower, kw) {
			hasKeyword = true
			break
		}
	}
	return hasKeyword && numberRe.MatchString(text)
}

// FindSections scans pages in order for financial statement sections and note
// references.
//
// Section matching: for each page, section types are tested in the fixed scan
// order, each against its ordered synonym patterns over the page's uppercased
// text. The first page/pattern to match a type claims it permanently; later
// pages never overwrite an existing match. After the scan, a matched
// comprehensive_income stands in for a missing profit_loss.
//
// Note matching: every block on every page is tested against the three note
// forms in order; the first form to match records the note and stops testing
// that block.
func FindSections(pages []Page) (map[constants.SectionType]*SectionMatch, []NoteRecord) {
	sections := make(map[constants.SectionType]*SectionMatch)
	var notes []NoteRecord

	for _, page := range pages {
		pageText := page.Text()
		pageUpper := strings.ToUpper(pageText)

		for _, sectionType := range constants.SectionScanOrder {
			if _, claimed := sections[sectionType]; claimed {
				continue
			}
			for _, pattern := range constants.SectionPatterns[sectionType] {
				if pattern.MatchString(pageUpper) {
					sections[sectionType] = &SectionMatch{
						Section: sectionType,
						Page:    page.PageNum,
						Pattern: pattern.String(),
						Text:    pageText,
					}
					break
				}
			}
		}

		for _, block := range page.TextBlocks {
			upper := strings.ToUpper(block.Text)
			for _, pattern := range constants.NotePatterns {
				m := pattern.FindStringSubmatch(upper)
				if m == nil {
					continue
				}
				numbers := block.Text
				if len(m) > 1 && m[1] != "" {
					numbers = m[1]
				}
				notes = append(notes, NoteRecord{
					Text:        block.Text,
					Page:        page.PageNum,
					BoundingBox: block.BoundingBox,
					NoteNumbers: numbers,
				})
				break
			}
		}
	}

	if ci, ok := sections[constants.SectionComprehensiveIncome]; ok {
		if _, ok := sections[constants.SectionProfitLoss]; !ok {
			alias := *ci
			alias.Section = constants.SectionProfitLoss
			sections[constants.SectionProfitLoss] = &alias
		}
	}

	return sections, notes
}
