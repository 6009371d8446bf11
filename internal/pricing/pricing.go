// Package pricing derives the billed quantity and subtotal for a catalog
// item. Every function is pure and never fails: malformed numeric input
// degrades to a safe default so a number can always be rendered.
package pricing

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/mch-billing/terminal/internal/catalog"
	"github.com/mch-billing/terminal/internal/enum"
	"github.com/shopspring/decimal"
)

// Mode selects the pricing formula.
type Mode int

const (
	// ModeQuantity bills a flat unit count (services, supplies, tests).
	ModeQuantity Mode = iota
	// ModeDosage bills dose × frequency × days (medicines).
	ModeDosage
)

func (m Mode) String() string {
	if m == ModeDosage {
		return "dosage"
	}
	return "quantity"
}

var dosageTypes = []string{enum.RouteInjection, enum.RouteTablet, enum.RouteCapsule, enum.RouteSyrup}

// ModeFor reports which formula applies to item: medicine categories and
// the injectable/oral dosage forms are priced by regimen.
func ModeFor(item catalog.Item) Mode {
	if item.Category == enum.CategoryMedicine || item.Category == enum.CategoryDischargeMedicine {
		return ModeDosage
	}
	if slices.Contains(dosageTypes, item.Type) {
		return ModeDosage
	}
	return ModeQuantity
}

// Regimen is the mode-specific input. It is either a Dosage or a Quantity.
type Regimen interface {
	Mode() Mode
	isRegimen()
}

// Dosage holds the raw dosage-panel fields. Route is descriptive only.
type Dosage struct {
	DoseQty   string
	Frequency string
	Days      string
	Route     string
}

func (Dosage) Mode() Mode { return ModeDosage }
func (Dosage) isRegimen() {}

// Quantity holds the raw "units required" field.
type Quantity struct {
	Units string
}

func (Quantity) Mode() Mode { return ModeQuantity }
func (Quantity) isRegimen() {}

// DefaultDosage is the dosage panel's initial state for item.
func DefaultDosage(item catalog.Item) Dosage {
	route := item.Type
	if route == "" {
		route = enum.RouteTablet
	}
	return Dosage{
		DoseQty:   enum.DefaultDoseQty,
		Frequency: enum.DefaultDoseFrequency,
		Days:      enum.DefaultDoseDays,
		Route:     route,
	}
}

// DefaultQuantity is the quantity panel's initial state.
func DefaultQuantity() Quantity {
	return Quantity{Units: enum.DefaultServiceQty}
}

// Quote is the result of pricing one item. The dosing breadcrumbs are only
// set in dosage mode.
type Quote struct {
	Mode        Mode
	UnitPrice   decimal.Decimal
	TotalQty    decimal.Decimal
	Subtotal    decimal.Decimal
	DosePerTime decimal.Decimal
	Frequency   decimal.Decimal
	Days        int64
	Route       string
}

// Compute prices item under regimen. A nil regimen uses the default input
// for the item's mode.
func Compute(item catalog.Item, regimen Regimen) Quote {
	if regimen == nil {
		if ModeFor(item) == ModeDosage {
			regimen = DefaultDosage(item)
		} else {
			regimen = DefaultQuantity()
		}
	}

	unitPrice := item.Price
	if unitPrice.IsNegative() {
		unitPrice = decimal.Zero
	}

	switch r := regimen.(type) {
	case Dosage:
		doseQty := nonNegative(parseFloat(r.DoseQty))
		freq := nonNegative(parseFloat(r.Frequency))
		days := max(parseInt(r.Days), 0)
		total := doseQty.Mul(freq).Mul(decimal.NewFromInt(days))
		return Quote{
			Mode:        ModeDosage,
			UnitPrice:   unitPrice,
			TotalQty:    total,
			Subtotal:    total.Mul(unitPrice),
			DosePerTime: doseQty,
			Frequency:   freq,
			Days:        days,
			Route:       r.Route,
		}
	case Quantity:
		units := parseFloat(r.Units)
		if !units.IsPositive() {
			units = decimal.NewFromInt(1)
		}
		return Quote{
			Mode:      ModeQuantity,
			UnitPrice: unitPrice,
			TotalQty:  units,
			Subtotal:  units.Mul(unitPrice),
		}
	}
	return Quote{Mode: regimen.Mode(), UnitPrice: unitPrice, TotalQty: decimal.Zero, Subtotal: decimal.Zero}
}

// FrequencyLabel returns the QD/BID/TID/QID label for a frequency value, or
// "" when it is not one of the offered choices.
func FrequencyLabel(freq decimal.Decimal) string {
	for _, f := range enum.DoseFrequencies {
		if freq.Equal(decimal.NewFromInt(int64(f.Value))) {
			return f.Label
		}
	}
	return ""
}

var (
	floatPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	intPrefix   = regexp.MustCompile(`^[+-]?\d+`)
)

// parseFloat reads the leading decimal number of s, ignoring leading
// whitespace and trailing garbage. Unparseable input is zero.
func parseFloat(s string) decimal.Decimal {
	m := floatPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return decimal.Zero
	}
	m = strings.TrimSuffix(strings.TrimPrefix(m, "+"), ".")
	if strings.HasPrefix(m, ".") {
		m = "0" + m
	} else if strings.HasPrefix(m, "-.") {
		m = "-0" + m[1:]
	}
	d, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseInt reads the leading integer of s, so "5.7" is 5. Unparseable
// input is zero.
func parseInt(s string) int64 {
	m := intPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
