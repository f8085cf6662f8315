package llm

import (
	"context"
	"log/slog"
)

// MockCompleter returns a fixed canned statement for every prompt. It stands
// in for the real backend when the inference server is unavailable, and keeps
// the rest of the pipeline exercisable end to end.
type MockCompleter struct {
	logger *slog.Logger
}

// NewMockCompleter builds a MockCompleter.
func NewMockCompleter(logger *slog.Logger) *MockCompleter {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockCompleter{logger: logger}
}

const mockStatementJSON = `{
  "statement_type": "profit_and_loss",
  "company_name": "B & E FOODS PTY LTD",
  "currency": "AUD",
  "rounding": "thousands",
  "financial_years": ["2023", "2024"],
  "line_items": [
    {"label": "Revenue", "values": {"2023": 315.4, "2024": 320.0}, "note_references": ["3"]},
    {"label": "Other income", "values": {"2023": 0.3, "2024": 0.4}, "note_references": ["4"]},
    {"label": "Employee benefits expenses", "values": {"2023": -5.2, "2024": -5.2}, "note_references": []},
    {"label": "Profit before income tax", "values": {"2023": 1.0, "2024": 1.2}, "note_references": []}
  ]
}`

func (m *MockCompleter) Complete(ctx context.Context, req Request) (string, error) {
	m.logger.Warn("llm.complete.mock", "prompt_len", len(req.Prompt))
	return mockStatementJSON, nil
}
