// Package report formats engine results for people: KPI cards with rounded
// money and percentages, and aligned plain-text tables for the CLI.
package report

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"rxsavings/engine"
)

// Placeholder stands in for a value that cannot be computed, such as savings
// per Rx over zero prescriptions.
const Placeholder = "—"

var hundred = decimal.NewFromInt(100)

// Card is one headline figure.
type Card struct {
	Title  string `json:"title"`
	Value  string `json:"value"`
	Accent bool   `json:"accent"`
}

// KPICards renders the six headline cards. Spend cards come first, savings
// cards are flagged as accents.
func KPICards(k engine.KpiSet) []Card {
	return []Card{
		{Title: "Total", Value: Dollars(k.Total, 0)},
		{Title: "MCCPDC", Value: Dollars(k.MCTotal, 0)},
		{Title: "Rx Ct", Value: Count(k.RxCt)},
		{Title: "Estimated Savings", Value: Dollars(k.Diff, 0), Accent: true},
		{Title: "Savings Per Rx", Value: Dollars(float64(k.PerRx), 2), Accent: true},
		{Title: "Savings Percent", Value: Percent(k.DiffPct), Accent: true},
	}
}

// Dollars formats v as "$1,234.56" rounded half away from zero to places.
func Dollars(v float64, places int32) string {
	if !finite(v) {
		return Placeholder
	}
	d := decimal.NewFromFloat(v).Round(places)
	s := grouped(d, places)
	if d.IsNegative() {
		return "-$" + s
	}
	return "$" + s
}

// Percent formats a share as a whole percentage, 0.3429 as "34%".
func Percent(r engine.Ratio) string {
	if !r.Valid() {
		return Placeholder
	}
	d := decimal.NewFromFloat(float64(r)).Mul(hundred).Round(0)
	s := grouped(d, 0) + "%"
	if d.IsNegative() {
		return "-" + s
	}
	return s
}

// Count formats n with thousands separators.
func Count(n int64) string {
	d := decimal.NewFromInt(n)
	s := grouped(d, 0)
	if d.IsNegative() {
		return "-" + s
	}
	return s
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// grouped renders |d| with English thousands separators and a fixed number
// of decimal places. d must already be rounded to places.
func grouped(d decimal.Decimal, places int32) string {
	p := message.NewPrinter(language.English)
	if places <= 0 {
		return p.Sprintf("%d", d.Abs().IntPart())
	}
	return p.Sprintf("%.*f", int(places), d.Abs().InexactFloat64())
}
