package extract

import (
	"reflect"
	"strings"
	"testing"
)

func TestExtractCompanyName(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"pty ltd", "B & E Foods Pty Ltd\nAnnual Report", "B & E FOODS PTY LTD"},
		{"limited", "Wesfarmers Limited\nAnnual Report", "WESFARMERS LIMITED"},
		{"skips blank lines", "\n\nAcme Pty Ltd", "ACME PTY LTD"},
		{"nothing recognisable", "Annual Report\n2024", "Unknown Company"},
		{
			name: "only first ten lines scanned",
			text: strings.Repeat("filler line\n", 10) + "Acme Pty Ltd",
			want: "Unknown Company",
		},
		{
			name: "long limited sentence ignored",
			text: strings.Repeat("x", 90) + " limited recourse borrowing arrangements apply here",
			want: "Unknown Company",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractCompanyName(tt.text); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractYears(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"sorted and deduplicated", "2024 then 2022 then 2024 again", []string{"2022", "2024"}},
		{"out of range ignored", "founded 2012, forecast 2031", []string{"2024"}},
		{"none defaults", "no years here", []string{"2024"}},
		{"embedded digits ignored", "item 120231 is not a year", []string{"2024"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractYears(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
