package constants

import "regexp"

// CurrencyPattern binds a currency code to the regexes that detect it.
// Detection iterates the table in declared order against uppercased page text;
// the first code with a matching pattern wins for that page.
type CurrencyPattern struct {
	Code     string
	Patterns []*regexp.Regexp
}

// CurrencyPatterns is ordered: earlier entries shadow later ones within a page.
var CurrencyPatterns = []CurrencyPattern{
	{Code: "AUD", Patterns: compileAll(`\bAUD\b`, `AUSTRALIAN.*DOLLARS?`, `A\$`)},
	{Code: "USD", Patterns: compileAll(`\bUSD\b`, `US.*DOLLARS?`, `UNITED.*STATES.*DOLLARS?`)},
	{Code: "GBP", Patterns: compileAll(`\bGBP\b`, `BRITISH.*POUNDS?`, `£`)},
	{Code: "EUR", Patterns: compileAll(`\bEUR\b`, `EUROS?`, `€`)},
	{Code: "CAD", Patterns: compileAll(`\bCAD\b`, `CANADIAN.*DOLLARS?`, `C\$`)},
	{Code: "NZD", Patterns: compileAll(`\bNZD\b`, `NEW.*ZEALAND.*DOLLARS?`, `NZ\$`)},
}

// DefaultCurrency applies when no pattern matches on any page. A bare "$" is
// treated as the domestic default as well.
const DefaultCurrency = "AUD"

// RoundingPattern binds a rounding scale to its detection regexes.
type RoundingPattern struct {
	Scale    string
	Patterns []*regexp.Regexp
}

// RoundingPatterns is ordered most-aggregated first. Within a page the first
// scale with a matching pattern wins and no further scales are tested for that
// page; across pages the last page with any hit wins. Patterns run against
// lowercased page text.
var RoundingPatterns = []RoundingPattern{
	{Scale: "millions", Patterns: compileAll(
		`\$m\b`,
		`\bmillions?\b.*dollars?`,
		`amounts.*in.*millions?`,
		`figures.*millions?`,
		`\(\$.*millions?\)`,
	)},
	{Scale: "thousands", Patterns: compileAll(
		`\$[0-9,]+,000\b`,
		`\bthousands?\b.*dollars?`,
		`amounts.*in.*thousands?`,
		`figures.*thousands?`,
		`\(\$.*thousands?\)`,
	)},
	{Scale: "units", Patterns: compileAll(
		`^\$[0-9,]+$`,
	)},
}

// RoundingStatements is the free-form last resort tried when no scale-specific
// pattern matched on a page.
var RoundingStatements = compileAll(
	`amounts.*rounded.*nearest.*hundred.*thousand.*dollars`,
	`figures.*rounded.*nearest.*thousand.*dollars`,
	`amounts.*expressed.*millions.*dollars`,
	`figures.*expressed.*millions.*dollars`,
	`amounts.*stated.*millions`,
	`figures.*stated.*millions`,
)

// DefaultRounding applies when nothing matches anywhere in the document.
const DefaultRounding = "units"

// SectionPatterns maps each section type to its ordered synonym regexes,
// evaluated against uppercased page text.
var SectionPatterns = map[SectionType][]*regexp.Regexp{
	SectionComprehensiveIncome: compileAll(
		`CONSOLIDATED\s+STATEMENT\s+OF\s+COMPREHENSIVE\s+INCOME`,
		`STATEMENT\s+OF\s+COMPREHENSIVE\s+INCOME`,
		`STATEMENT\s+OF\s+PROFIT\s+OR\s+LOSS\s+AND\s+OTHER\s+COMPREHENSIVE\s+INCOME`,
	),
	SectionProfitLoss: compileAll(
		`CONSOLIDATED\s+STATEMENT\s+OF\s+PROFIT\s+(?:OR\s+LOSS|AND\s+LOSS)`,
		`STATEMENT\s+OF\s+PROFIT\s+(?:OR\s+LOSS|AND\s+LOSS)`,
		`INCOME\s+STATEMENT`,
		`PROFIT\s+(?:OR\s+LOSS|AND\s+LOSS)\s+STATEMENT`,
	),
	SectionBalanceSheet: compileAll(
		`CONSOLIDATED\s+STATEMENT\s+OF\s+FINANCIAL\s+POSITION`,
		`STATEMENT\s+OF\s+FINANCIAL\s+POSITION`,
		`BALANCE\s+SHEET`,
		`STATEMENT\s+OF\s+ASSETS?\s+AND\s+LIABILITIES`,
	),
	SectionCashFlow: compileAll(
		`CONSOLIDATED\s+STATEMENT\s+OF\s+CASH\s+FLOWS?`,
		`STATEMENT\s+OF\s+CASH\s+FLOWS?`,
		`CASH\s+FLOWS?\s+STATEMENT`,
	),
}

// SectionScanOrder fixes the iteration order over SectionPatterns so results
// are deterministic when one page matches several types.
var SectionScanOrder = []SectionType{
	SectionComprehensiveIncome,
	SectionProfitLoss,
	SectionBalanceSheet,
	SectionCashFlow,
}

// NotePatterns are the three note-numbering forms, tested in order against an
// uppercased text token; the first match wins for that token.
var NotePatterns = compileAll(
	`^NOTE\s+(\d+)(?:\s|$)`,
	`^(\d+)\.\s+[A-Z]`,
	`\bNOTE\s+(\d+(?:,\s*\d+)*)\b`,
)

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}
