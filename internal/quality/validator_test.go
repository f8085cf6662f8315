package quality

import (
	"math"
	"testing"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/entity"
)

func statementWithValues(values ...float64) entity.FinancialStatement {
	items := make([]entity.LineItem, 0, len(values))
	for _, v := range values {
		items = append(items, entity.LineItem{
			Label:      "Item",
			Values:     map[string]float64{"2024": v},
			Confidence: 1.0,
		})
	}
	return entity.FinancialStatement{
		StatementType: "profit_loss",
		Currency:      "AUD",
		Rounding:      "units",
		LineItems:     items,
	}
}

func resultWith(statements ...entity.FinancialStatement) *entity.ExtractionResult {
	return &entity.ExtractionResult{
		Filename:   "report.pdf",
		Statements: statements,
		Status:     constants.ExtractionCompleted,
		Errors:     []string{},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestValidateDocument(t *testing.T) {
	v := NewValidator(nil)

	tests := []struct {
		name   string
		result *entity.ExtractionResult
		want   bool
	}{
		{"nil result", nil, false},
		{"no statements", resultWith(), false},
		{"clean values", resultWith(statementWithValues(315.4, -27.6)), true},
		{"fabricated value", resultWith(statementWithValues(315.4, 1200.0)), false},
		{"near miss is fine", resultWith(statementWithValues(1000.01)), true},
		{"currency outside whitelist", func() *entity.ExtractionResult {
			s := statementWithValues(315.4)
			s.Currency = "JPY"
			return resultWith(s)
		}(), false},
		{"rounding outside whitelist", func() *entity.ExtractionResult {
			s := statementWithValues(315.4)
			s.Rounding = "lakhs"
			return resultWith(s)
		}(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.ValidateDocument(tt.result); got != tt.want {
				t.Errorf("ValidateDocument = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	v := NewValidator(nil)

	t.Run("no statements scores zero", func(t *testing.T) {
		if got := v.Score(resultWith()); got != 0.0 {
			t.Errorf("score = %v, want 0", got)
		}
	})

	t.Run("clean result scores one", func(t *testing.T) {
		if got := v.Score(resultWith(statementWithValues(315.4, -27.6))); !almostEqual(got, 1.0) {
			t.Errorf("score = %v, want 1.0", got)
		}
	})

	t.Run("suspicious fraction costs up to half", func(t *testing.T) {
		// One of two values is suspicious: 1.0 - (1/2)*0.5 = 0.75.
		got := v.Score(resultWith(statementWithValues(315.4, 1000.0)))
		if !almostEqual(got, 0.75) {
			t.Errorf("score = %v, want 0.75", got)
		}
	})

	t.Run("each error costs a tenth", func(t *testing.T) {
		r := resultWith(statementWithValues(315.4))
		r.Errors = []string{"Failed to extract balance_sheet", "Failed to extract cash_flow"}
		if got := v.Score(r); !almostEqual(got, 0.8) {
			t.Errorf("score = %v, want 0.8", got)
		}
	})

	t.Run("slow processing costs a tenth", func(t *testing.T) {
		r := resultWith(statementWithValues(315.4))
		r.ProcessingTime = 301.0
		if got := v.Score(r); !almostEqual(got, 0.9) {
			t.Errorf("score = %v, want 0.9", got)
		}
	})

	t.Run("clamped at zero", func(t *testing.T) {
		r := resultWith(statementWithValues(1000.0))
		r.Errors = []string{"a", "b", "c", "d", "e", "f", "g", "h"}
		r.ProcessingTime = 1000.0
		if got := v.Score(r); got != 0.0 {
			t.Errorf("score = %v, want clamp to 0", got)
		}
	})

	t.Run("zero line items scores zero", func(t *testing.T) {
		r := resultWith(entity.FinancialStatement{
			StatementType: "profit_loss",
			Currency:      "AUD",
			Rounding:      "units",
			LineItems:     []entity.LineItem{},
		})
		if got := v.Score(r); got != 0.0 {
			t.Errorf("score = %v, want 0 for an itemless statement", got)
		}
	})

	t.Run("suspicious fraction is over line items", func(t *testing.T) {
		// One item carrying two values, one suspicious: 1.0 - (1/1)*0.5 = 0.5.
		s := statementWithValues(315.4)
		s.LineItems[0].Values["2023"] = 1200.0
		if got := v.Score(resultWith(s)); !almostEqual(got, 0.5) {
			t.Errorf("score = %v, want 0.5", got)
		}
	})
}

func TestWarnings(t *testing.T) {
	v := NewValidator(nil)
	md := entity.DocumentMetadata{Currency: "AUD", Rounding: "thousands"}

	t.Run("no statements", func(t *testing.T) {
		got := v.Warnings(resultWith(), md)
		if len(got) != 1 || got[0] != "No financial statements extracted" {
			t.Errorf("warnings = %v", got)
		}
	})

	t.Run("metadata drift and empty statements", func(t *testing.T) {
		drifted := statementWithValues(315.4)
		drifted.Currency = "USD"
		drifted.Rounding = "millions"
		empty := entity.FinancialStatement{
			StatementType: "cash_flow", Currency: "AUD", Rounding: "thousands",
		}

		got := v.Warnings(resultWith(drifted, empty), md)
		want := []string{
			"Currency mismatch: PDF=AUD, Extracted=USD",
			"Rounding mismatch: PDF=thousands, Extracted=millions",
			"No line items in cash_flow statement",
		}
		if len(got) != len(want) {
			t.Fatalf("warnings = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("warnings[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("aligned statements produce none", func(t *testing.T) {
		s := statementWithValues(315.4)
		s.Currency = "AUD"
		s.Rounding = "thousands"
		if got := v.Warnings(resultWith(s), md); len(got) != 0 {
			t.Errorf("warnings = %v, want none", got)
		}
	})
}
