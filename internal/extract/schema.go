package extract

// StatementSchema returns a JSON-Schema (draft 2020-12 subset) as a generic
// map. The parser validates the repaired completion object against it before
// decoding. The schema is deliberately loose where the numeric coercion rules
// take over: amounts may arrive as numbers, parenthesised strings, or null.
func StatementSchema() map[string]any {
	amountProp := map[string]any{
		"type": []string{"number", "string", "null"},
	}
	lineItem := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"label": map[string]any{"type": "string"},
			"values": map[string]any{
				"type":                 "object",
				"additionalProperties": amountProp,
			},
			"note_references": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": []string{"string", "number"}},
			},
		},
		"required": []string{"label", "values"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"statement_type": map[string]any{"type": "string"},
			"company_name":   map[string]any{"type": "string"},
			"currency":       map[string]any{"type": "string"},
			"rounding":       map[string]any{"type": "string"},
			"financial_years": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": []string{"string", "number"}},
			},
			"line_items": map[string]any{
				"type":  "array",
				"items": lineItem,
			},
		},
		"required": []string{"line_items"},
	}
}
