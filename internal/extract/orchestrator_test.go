package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/common"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/document"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/entity"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/llm"
)

const goodStatementJSON = `{
	"company_name": "ACME PTY LTD",
	"financial_years": ["2023", "2024"],
	"line_items": [
		{"label": "Revenue", "values": {"2023": 315.4, "2024": 320.5}, "note_references": ["3"]}
	]
}`

// scriptedCompleter replays responses in order and counts calls. A nil error
// with response "" falls back to garbage output.
type scriptedCompleter struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

func (s *scriptedCompleter) Complete(_ context.Context, _ llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return goodStatementJSON, nil
}

func (s *scriptedCompleter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

const sectionText = "ACME PTY LTD\nIncome Statement for 2023 and 2024\nRevenue 315.4\nTotal expenses 120.1"

func TestExtractSectionFullTierSucceeds(t *testing.T) {
	c := &scriptedCompleter{responses: []string{goodStatementJSON}}
	o := NewOrchestrator(c, nil, nil, nil)

	stmt, err := o.ExtractSection(context.Background(), sectionText, constants.SectionProfitLoss, testMetadata)
	if err != nil {
		t.Fatalf("ExtractSection: %v", err)
	}
	if c.callCount() != 1 {
		t.Errorf("completer calls = %d, want 1", c.callCount())
	}
	if stmt.CompanyName != "ACME PTY LTD" || len(stmt.LineItems) != 1 {
		t.Errorf("statement = %+v", stmt)
	}
}

func TestExtractSectionFallsThroughToReducedTier(t *testing.T) {
	c := &scriptedCompleter{responses: []string{"sorry, no JSON here", goodStatementJSON}}
	o := NewOrchestrator(c, nil, nil, nil)

	stmt, err := o.ExtractSection(context.Background(), sectionText, constants.SectionProfitLoss, testMetadata)
	if err != nil {
		t.Fatalf("ExtractSection: %v", err)
	}
	if c.callCount() != 2 {
		t.Errorf("completer calls = %d, want 2", c.callCount())
	}
	if len(stmt.LineItems) != 1 {
		t.Errorf("statement = %+v", stmt)
	}
}

func TestExtractSectionBasicTierNeedsNoCompleter(t *testing.T) {
	boom := errors.New("inference server down")
	c := &scriptedCompleter{errs: []error{boom, boom}}
	o := NewOrchestrator(c, nil, nil, nil)

	stmt, err := o.ExtractSection(context.Background(), sectionText, constants.SectionBalanceSheet, testMetadata)
	if err != nil {
		t.Fatalf("ExtractSection: %v", err)
	}
	if c.callCount() != 2 {
		t.Errorf("completer calls = %d, want 2 (basic tier is model-free)", c.callCount())
	}
	if stmt.CompanyName != "ACME PTY LTD" {
		t.Errorf("company = %q, want heuristic hit", stmt.CompanyName)
	}
	if len(stmt.LineItems) != 0 {
		t.Errorf("line items = %d, want none from the basic tier", len(stmt.LineItems))
	}
	if stmt.ExtractionConfidence >= 1.0 {
		t.Errorf("confidence = %v, want low", stmt.ExtractionConfidence)
	}
	if !strings.Contains(strings.Join(stmt.FinancialYears, ","), "2023") {
		t.Errorf("years = %v", stmt.FinancialYears)
	}
}

func TestExtractSectionAllTiersExhausted(t *testing.T) {
	o := NewOrchestrator(&scriptedCompleter{}, nil, nil, nil)
	o.strategies = []strategy{
		{name: "a", run: func(context.Context, string, constants.SectionType, entity.DocumentMetadata) (*entity.FinancialStatement, error) {
			return nil, errors.New("a failed")
		}},
		{name: "b", run: func(context.Context, string, constants.SectionType, entity.DocumentMetadata) (*entity.FinancialStatement, error) {
			return nil, errors.New("b failed")
		}},
		{name: "c", run: func(context.Context, string, constants.SectionType, entity.DocumentMetadata) (*entity.FinancialStatement, error) {
			return nil, errors.New("c failed")
		}},
	}

	_, err := o.ExtractSection(context.Background(), sectionText, constants.SectionProfitLoss, testMetadata)
	if err == nil {
		t.Fatal("want error after all tiers fail")
	}
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "EXTRACTION_EXHAUSTED" {
		t.Errorf("err = %v, want EXTRACTION_EXHAUSTED", err)
	}
	if !strings.Contains(err.Error(), "c failed") {
		t.Errorf("err %v does not carry the last tier failure", err)
	}
}

func testAnalysis(sections ...constants.SectionType) *document.Analysis {
	a := &document.Analysis{
		Filename: "report.pdf",
		FullText: sectionText,
		Sections: map[constants.SectionType]*document.SectionMatch{},
		Metadata: testMetadata,
	}
	for i, s := range sections {
		a.Sections[s] = &document.SectionMatch{Section: s, Page: i + 1, Text: sectionText}
	}
	return a
}

func TestExtractDocumentCompleted(t *testing.T) {
	c := &scriptedCompleter{}
	o := NewOrchestrator(c, nil, nil, nil)

	result := o.ExtractDocument(context.Background(), testAnalysis(
		constants.SectionBalanceSheet, constants.SectionProfitLoss))

	if result.Status != constants.ExtractionCompleted {
		t.Errorf("status = %s, want completed", result.Status)
	}
	if len(result.Statements) != 2 {
		t.Fatalf("statements = %d, want 2", len(result.Statements))
	}
	// Results come back in fixed section order regardless of detection order.
	if result.Statements[0].StatementType != "profit_loss" ||
		result.Statements[1].StatementType != "balance_sheet" {
		t.Errorf("order = %s, %s",
			result.Statements[0].StatementType, result.Statements[1].StatementType)
	}
	if len(result.Errors) != 0 {
		t.Errorf("errors = %v", result.Errors)
	}
}

func TestExtractDocumentNoSectionsFallsBackToFullText(t *testing.T) {
	c := &scriptedCompleter{}
	o := NewOrchestrator(c, nil, nil, nil)

	result := o.ExtractDocument(context.Background(), testAnalysis())

	if result.Status != constants.ExtractionCompleted {
		t.Errorf("status = %s, want completed", result.Status)
	}
	if len(result.Statements) != 1 {
		t.Fatalf("statements = %d, want 1", len(result.Statements))
	}
	if result.Statements[0].StatementType != "profit_loss" {
		t.Errorf("statement_type = %q, want profit_loss", result.Statements[0].StatementType)
	}
}

func TestExtractDocumentPartial(t *testing.T) {
	o := NewOrchestrator(&scriptedCompleter{}, nil, nil, nil)
	o.strategies = []strategy{
		{name: "stub", run: func(_ context.Context, text string, section constants.SectionType, md entity.DocumentMetadata) (*entity.FinancialStatement, error) {
			if section == constants.SectionBalanceSheet {
				return nil, errors.New("boom")
			}
			return BuildBasicStatement(text, section, md)
		}},
	}

	result := o.ExtractDocument(context.Background(), testAnalysis(
		constants.SectionProfitLoss, constants.SectionBalanceSheet, constants.SectionCashFlow))

	if result.Status != constants.ExtractionPartial {
		t.Errorf("status = %s, want partial", result.Status)
	}
	if len(result.Statements) != 2 {
		t.Errorf("statements = %d, want 2", len(result.Statements))
	}
	want := []string{"Failed to extract balance_sheet"}
	if len(result.Errors) != 1 || result.Errors[0] != want[0] {
		t.Errorf("errors = %v, want %v", result.Errors, want)
	}
}

func TestExtractDocumentAllSectionsFail(t *testing.T) {
	o := NewOrchestrator(&scriptedCompleter{}, nil, nil, nil)
	o.strategies = []strategy{
		{name: "stub", run: func(context.Context, string, constants.SectionType, entity.DocumentMetadata) (*entity.FinancialStatement, error) {
			return nil, errors.New("boom")
		}},
	}

	result := o.ExtractDocument(context.Background(), testAnalysis(
		constants.SectionProfitLoss, constants.SectionBalanceSheet))

	if result.Status != constants.ExtractionFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}
	if len(result.Statements) != 0 {
		t.Errorf("statements = %d, want 0", len(result.Statements))
	}
	if len(result.Errors) != 2 {
		t.Fatalf("errors = %v, want one per section", result.Errors)
	}
	for _, e := range result.Errors {
		if !strings.HasPrefix(e, "Failed to extract ") {
			t.Errorf("error %q has wrong shape", e)
		}
	}
}

func TestExtractDocumentPanicIsolation(t *testing.T) {
	o := NewOrchestrator(&scriptedCompleter{}, nil, nil, nil)
	o.strategies = []strategy{
		{name: "stub", run: func(_ context.Context, text string, section constants.SectionType, md entity.DocumentMetadata) (*entity.FinancialStatement, error) {
			if section == constants.SectionCashFlow {
				panic("index out of range")
			}
			return BuildBasicStatement(text, section, md)
		}},
	}

	result := o.ExtractDocument(context.Background(), testAnalysis(
		constants.SectionProfitLoss, constants.SectionCashFlow))

	if result.Status != constants.ExtractionPartial {
		t.Errorf("status = %s, want partial", result.Status)
	}
	if len(result.Statements) != 1 {
		t.Errorf("statements = %d, want the surviving section", len(result.Statements))
	}
	if len(result.Errors) != 1 || !strings.HasPrefix(result.Errors[0], fmt.Sprintf("Error in %s:", constants.SectionCashFlow)) {
		t.Errorf("errors = %v, want an Error in cash_flow entry", result.Errors)
	}
}
