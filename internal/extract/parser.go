package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/common"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/entity"
)

// Parser turns raw completion text into a normalized FinancialStatement.
// Parsing is deterministic: the same raw text, section, and metadata always
// produce the same statement or the same error.
type Parser struct {
	log          *slog.Logger
	logResponses bool
}

// NewParser builds a Parser. When logResponses is set, every raw completion
// is logged at debug level before repair.
func NewParser(logger *slog.Logger, logResponses bool) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{log: logger, logResponses: logResponses}
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// CleanResponse isolates the first JSON object in raw model output and
// repairs the common truncation damage: markdown fences are stripped, text
// before the first '{' and after the balanced closing brace is dropped,
// unclosed brackets are closed in reverse open order, and trailing commas
// are removed. Returns an error when no object start is present at all.
func CleanResponse(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	if start < 0 {
		return "", common.NewAppError("NO_JSON_OBJECT",
			"completion contains no JSON object", common.ErrParse)
	}

	// Walk brackets from the object start. String contents are not
	// interpreted; real statements never embed braces in labels.
	var open []byte
	end := -1
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{', '[':
			open = append(open, s[i])
		case '}', ']':
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
			if len(open) == 0 {
				end = i
			}
		}
		if end >= 0 {
			break
		}
	}

	var candidate string
	if end >= 0 {
		candidate = s[start : end+1]
	} else {
		// Truncated mid-object: strip a dangling comma and close every
		// bracket still open, innermost first.
		candidate = strings.TrimRight(s[start:], " \t\n,")
		for i := len(open) - 1; i >= 0; i-- {
			if open[i] == '[' {
				candidate += "]"
			} else {
				candidate += "}"
			}
		}
	}

	return trailingCommaRe.ReplaceAllString(candidate, "$1"), nil
}

// ParseAmount coerces one raw line-item value into a float64. Numbers pass
// through, nil means the cell was empty, and strings go through the
// financial-number rules: surrounding parentheses negate, every character
// except digits, dot, and minus is dropped, and anything unparseable is 0.
func ParseAmount(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case string:
		return parseFinancialNumber(n)
	default:
		return 0
	}
}

func parseFinancialNumber(s string) float64 {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0
	}
	negative := strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")")

	var b strings.Builder
	for _, r := range t {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	if negative && f > 0 {
		f = -f
	}
	return f
}

// ParseStatement repairs, validates, and decodes one completion into a
// FinancialStatement for the given section. Document metadata wins over
// whatever currency and rounding the model echoed back. Statements with no
// line items or with known fabricated-output values are rejected so the
// caller falls through to the next tier.
func (p *Parser) ParseStatement(raw string, section constants.SectionType, md entity.DocumentMetadata) (*entity.FinancialStatement, error) {
	if p.logResponses {
		p.log.Debug("parse.raw_response", "section", section, "raw", raw)
	}

	cleaned, err := CleanResponse(raw)
	if err != nil {
		return nil, err
	}

	doc, err := validateStatementJSON([]byte(cleaned))
	if err != nil {
		return nil, common.NewAppError("SCHEMA_VALIDATION",
			err.Error(), common.ErrParse)
	}

	stmt := &entity.FinancialStatement{
		StatementType:  asString(doc["statement_type"], string(section)),
		CompanyName:    asString(doc["company_name"], "Unknown"),
		Currency:       asString(doc["currency"], ""),
		Rounding:       asString(doc["rounding"], ""),
		FinancialYears: asStringSlice(doc["financial_years"]),
	}
	// Structural analysis already settled these document-wide.
	if md.Currency != "" {
		stmt.Currency = md.Currency
	}
	if md.Rounding != "" {
		stmt.Rounding = md.Rounding
	}

	items, _ := doc["line_items"].([]any)
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		li := entity.LineItem{
			Label:          asString(m["label"], "Unknown Item"),
			Values:         map[string]float64{},
			NoteReferences: asStringSlice(m["note_references"]),
			ValueType:      asString(m["value_type"], ""),
			Formatting:     asString(m["formatting"], ""),
		}
		if vals, ok := m["values"].(map[string]any); ok {
			for year, v := range vals {
				li.Values[year] = ParseAmount(v)
			}
		}
		stmt.LineItems = append(stmt.LineItems, li)
	}

	if err := stmt.Normalize(); err != nil {
		return nil, err
	}

	if len(stmt.LineItems) == 0 {
		return nil, common.NewAppError("EMPTY_STATEMENT",
			fmt.Sprintf("no line items extracted for %s", section), common.ErrParse)
	}
	for _, li := range stmt.LineItems {
		for year, v := range li.Values {
			if constants.IsSuspiciousValue(v) {
				return nil, common.NewAppError("SUSPICIOUS_VALUE",
					fmt.Sprintf("fabricated-looking value %v for %q in %s", v, li.Label, year),
					common.ErrParse)
			}
		}
	}

	p.log.Debug("parse.statement.ok",
		"section", section,
		"company", stmt.CompanyName,
		"line_items", len(stmt.LineItems),
	)
	return stmt, nil
}

// validateStatementJSON decodes data and validates it against the statement
// schema, returning the decoded object on success.
func validateStatementJSON(data []byte) (map[string]any, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	schemaBytes, err := json.Marshal(StatementSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("statement.json", bytes.NewReader(schemaBytes)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile("statement.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, err
	}

	m, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level JSON value is not an object")
	}
	return m, nil
}

func asString(v any, fallback string) string {
	switch s := v.(type) {
	case string:
		if strings.TrimSpace(s) == "" {
			return fallback
		}
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fallback
	}
}

func asStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s := asString(item, ""); s != "" {
			out = append(out, s)
		}
	}
	return out
}
