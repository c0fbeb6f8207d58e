package calc

import (
	"strings"

	"github.com/shopspring/decimal"

	"quotedesk/backend/internal/domain"
)

// moneyPlaces is the scale every stored amount is rounded to. Rounding is
// half-up and happens after each step, so downstream steps always consume
// already-rounded values.
const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// CoerceAmount turns raw cell text into a decimal. Anything that does not
// parse as a number becomes zero; negative values are clamped to zero.
func CoerceAmount(raw string) decimal.Decimal {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || value.IsNegative() {
		return decimal.Zero
	}
	return value
}

func round(value decimal.Decimal) decimal.Decimal {
	return value.Round(moneyPlaces)
}

func clamp(value decimal.Decimal) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	return value
}

// clampPercent keeps percentages inside [0, 100]. A discount or GST rate
// above 100 would drive the derived amounts negative.
func clampPercent(value decimal.Decimal) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	if value.GreaterThan(hundred) {
		return hundred
	}
	return value
}

// ComputeLineItem derives the amount fields of a line from its inputs:
//
//	gross   = mrp * qty
//	disc    = gross * discPercent / 100
//	taxable = gross - disc
//	gst     = taxable * gstPercent / 100
//	net     = taxable + gst
//
// Each stored value is rounded to two places before feeding the next step.
// The function is pure and idempotent; recomputing an already-computed line
// changes nothing.
func ComputeLineItem(item domain.LineItem) domain.LineItem {
	mrp := clamp(item.MRP)
	qty := clamp(item.Qty)
	discPercent := clampPercent(item.DiscPercent)
	gstPercent := clampPercent(item.GSTPercent)

	item.MRP = mrp
	item.Qty = qty
	item.DiscPercent = discPercent
	item.GSTPercent = gstPercent

	item.GrossAmount = round(mrp.Mul(qty))
	item.DiscAmount = round(item.GrossAmount.Mul(discPercent).Div(hundred))
	item.TaxableAmount = round(item.GrossAmount.Sub(item.DiscAmount))
	item.GSTAmount = round(item.TaxableAmount.Mul(gstPercent).Div(hundred))
	item.NetAmount = round(item.TaxableAmount.Add(item.GSTAmount))
	return item
}

// ComputeTotals sums the already-rounded per-line amounts. Totals are derived
// state: callers recompute them after every mutation instead of adjusting
// them incrementally.
func ComputeTotals(items []domain.LineItem) domain.Totals {
	totals := domain.Totals{TotalItems: len(items)}
	for _, item := range items {
		totals.GrossAmount = totals.GrossAmount.Add(item.GrossAmount)
		totals.DiscountAmount = totals.DiscountAmount.Add(item.DiscAmount)
		totals.TaxableAmount = totals.TaxableAmount.Add(item.TaxableAmount)
		totals.GSTAmount = totals.GSTAmount.Add(item.GSTAmount)
		totals.NetAmount = totals.NetAmount.Add(item.NetAmount)
	}
	totals.GrossAmount = round(totals.GrossAmount)
	totals.DiscountAmount = round(totals.DiscountAmount)
	totals.TaxableAmount = round(totals.TaxableAmount)
	totals.GSTAmount = round(totals.GSTAmount)
	totals.NetAmount = round(totals.NetAmount)
	return totals
}
