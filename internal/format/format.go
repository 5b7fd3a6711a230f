// Package format holds the presentation-boundary helpers: money is carried as
// int64 centavos everywhere else and only becomes reais here.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DateLayout     = "02/01/2006"
	DateTimeLayout = "02/01/2006 15:04"
)

var printer = message.NewPrinter(language.BrazilianPortuguese)

var hundred = decimal.NewFromInt(100)

func MajorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

func MinorUnits(major decimal.Decimal) int64 {
	return major.Mul(hundred).Round(0).IntPart()
}

// Currency renders centavos as "R$ 1.234,56".
func Currency(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return sign + "R$ " + printer.Sprintf("%.2f", MajorUnits(minor).InexactFloat64())
}

func Percent(v float64) string {
	return printer.Sprintf("%.1f%%", v)
}

// ParseAmount accepts "1.234,56", "1234.56" or "R$ 10,00" and returns centavos.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, fmt.Errorf("ParseAmount: empty value")
	}

	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("ParseAmount: %w", err)
	}
	return MinorUnits(d), nil
}

func Date(t time.Time, loc *time.Location) string {
	return t.In(locOrUTC(loc)).Format(DateLayout)
}

func DateTime(t time.Time, loc *time.Location) string {
	return t.In(locOrUTC(loc)).Format(DateTimeLayout)
}

func SameDay(a, b time.Time, loc *time.Location) bool {
	loc = locOrUTC(loc)
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

func SameMonth(a, b time.Time, loc *time.Location) bool {
	loc = locOrUTC(loc)
	ay, am, _ := a.In(loc).Date()
	by, bm, _ := b.In(loc).Date()
	return ay == by && am == bm
}

func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(locOrUTC(loc))
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func locOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
