// Package money formats minor-unit amounts for display.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const DefaultCurrency = "AUD"

// LocaleFor picks the formatting locale for a currency code.
func LocaleFor(code string) language.Tag {
	if strings.EqualFold(code, "AUD") {
		return language.MustParse("en-AU")
	}
	return language.AmericanEnglish
}

// Format renders cents in the given currency. Codes x/text does not know fall
// back to a plain "$12.34".
func Format(cents int64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = DefaultCurrency
	}

	unit, err := currency.ParseISO(code)
	if err != nil {
		return Fallback(cents)
	}

	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	// currency.Amount puts a space after the symbol, so symbol and number print separately.
	p := message.NewPrinter(LocaleFor(code))
	amount := decimal.New(cents, -2).InexactFloat64()
	return sign + p.Sprint(currency.NarrowSymbol(unit)) + p.Sprint(number.Decimal(amount, number.Scale(2)))
}

// FormatMajor renders a major-unit price such as a catalog unit price.
func FormatMajor(amount decimal.Decimal, code string) string {
	return Format(amount.Shift(2).Round(0).IntPart(), code)
}

// Fallback is the locale-free rendering.
func Fallback(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
