package report

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

func grouped(whole int64) string {
	return printer.Sprintf("%d", whole)
}

func signed(v decimal.Decimal, body string) string {
	if v.IsNegative() {
		return "-" + body
	}
	return body
}

// Currency formats whole dollars: $1,234,567.
func Currency(v decimal.Decimal) string {
	rounded := v.Round(0)
	return signed(rounded, "$"+grouped(rounded.Abs().IntPart()))
}

// CurrencyExact formats dollars and cents: $1,234.56.
func CurrencyExact(v decimal.Decimal) string {
	rounded := v.Round(2)
	fixed := rounded.Abs().StringFixed(2)
	cents := fixed[strings.Index(fixed, ".")+1:]
	return signed(rounded, "$"+grouped(rounded.Abs().IntPart())+"."+cents)
}

// Percent formats with one decimal: 95.0%.
func Percent(v decimal.Decimal) string {
	return v.StringFixed(1) + "%"
}

// PercentExact formats with two decimals: 6.75%.
func PercentExact(v decimal.Decimal) string {
	return v.StringFixed(2) + "%"
}

// Multiple formats with two decimals: 1.25x.
func Multiple(v decimal.Decimal) string {
	return v.StringFixed(2) + "x"
}

// PerUnit formats a total spread over units: $12,000/unit. Zero units is N/A.
func PerUnit(total decimal.Decimal, units int) string {
	if units == 0 {
		return "N/A"
	}
	return Currency(total.Div(decimal.NewFromInt(int64(units)))) + "/unit"
}

// Years formats a year count: 1 year, 5 years.
func Years(n int) string {
	if n == 1 {
		return "1 year"
	}
	return printer.Sprintf("%d years", n)
}

// Integer formats with thousands separators: 1,234.
func Integer(n int) string {
	return grouped(int64(n))
}

// IRR formats an optional IRR percentage; nil is N/A.
func IRR(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return PercentExact(decimal.NewFromFloat(*v))
}
