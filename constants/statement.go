package constants

// SectionType identifies a financial statement section within a document.
type SectionType string

const (
	SectionProfitLoss          SectionType = "profit_loss"
	SectionComprehensiveIncome SectionType = "comprehensive_income"
	SectionBalanceSheet        SectionType = "balance_sheet"
	SectionCashFlow            SectionType = "cash_flow"
)

// SectionOrder is the order sections are dispatched for extraction.
// comprehensive_income is not extracted on its own; it only aliases to
// profit_loss when the latter was never matched.
var SectionOrder = []SectionType{
	SectionProfitLoss,
	SectionBalanceSheet,
	SectionCashFlow,
}

// ValidCurrencies is the closed set of currency codes a statement may carry.
var ValidCurrencies = []string{"AUD", "USD", "GBP", "EUR", "CAD", "NZD"}

// ValidRounding is the closed set of rounding scales a statement may carry.
var ValidRounding = []string{"units", "thousands", "millions", "billions"}

// SuspiciousValues are round numbers the local model emits when it fabricates
// data instead of reading the document. Any line-item value equal to one of
// these fails document validation.
var SuspiciousValues = []float64{1000.0, 1200.0, 800.0, 900.0, 1500.0, 1800.0}

// IsValidCurrency reports whether code is in ValidCurrencies.
func IsValidCurrency(code string) bool {
	for _, c := range ValidCurrencies {
		if c == code {
			return true
		}
	}
	return false
}

// IsValidRounding reports whether scale is in ValidRounding.
func IsValidRounding(scale string) bool {
	for _, r := range ValidRounding {
		if r == scale {
			return true
		}
	}
	return false
}

// IsSuspiciousValue reports whether v matches a known fabricated-output
// fingerprint exactly.
func IsSuspiciousValue(v float64) bool {
	for _, s := range SuspiciousValues {
		if v == s {
			return true
		}
	}
	return false
}
