// Package ledger holds the ordered bill for the active session.
//
// A Line is a snapshot: it copies the catalog fields at the moment of
// addition and keeps the subtotal the pricing engine produced, so later
// catalog edits never change an already-billed line. Lines are never
// modified after insertion, only removed.
package ledger

import (
	"slices"
	"sort"

	"github.com/mch-billing/terminal/internal/enum"
	"github.com/shopspring/decimal"
)

// State is the observable ledger state that governs whether commit is enabled.
type State string

const (
	StateEmpty    State = "EMPTY"
	StateNonEmpty State = "NONEMPTY"
)

// Line is one billed charge.
type Line struct {
	ItemID   int64
	Name     string
	Price    decimal.Decimal
	Type     string
	Category string
	Strength string

	Qty      decimal.Decimal
	Subtotal decimal.Decimal

	// Dosing breadcrumbs, kept for display and audit only.
	Duration    *int64
	Frequency   *decimal.Decimal
	DosePerTime *decimal.Decimal
	Route       string
}

// IndexedLine pairs a line with its position in the ledger, the position
// RemoveAt expects.
type IndexedLine struct {
	Index int
	Line  Line
}

// Group is the display projection of one category.
type Group struct {
	Category string
	Lines    []IndexedLine
	Subtotal decimal.Decimal
}

// Ledger is the ordered sequence of bill lines. It is not safe for
// concurrent use.
type Ledger struct {
	lines []Line
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Append adds line to the end. Identical items are never merged.
func (l *Ledger) Append(line Line) {
	l.lines = append(l.lines, line)
}

// RemoveAt removes the line at index. Out-of-range indices are a no-op.
// It reports whether a line was removed.
func (l *Ledger) RemoveAt(index int) bool {
	if index < 0 || index >= len(l.lines) {
		return false
	}
	l.lines = slices.Delete(l.lines, index, index+1)
	return true
}

// RemoveByName removes the first line whose name matches exactly.
// It reports whether a line was removed.
func (l *Ledger) RemoveByName(name string) bool {
	idx := slices.IndexFunc(l.lines, func(line Line) bool { return line.Name == name })
	if idx < 0 {
		return false
	}
	return l.RemoveAt(idx)
}

// Clear empties the ledger.
func (l *Ledger) Clear() {
	l.lines = nil
}

// Total is the sum of every line's subtotal; zero when empty.
func (l *Ledger) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range l.lines {
		total = total.Add(line.Subtotal)
	}
	return total
}

// Len is the number of lines.
func (l *Ledger) Len() int {
	return len(l.lines)
}

// State reports EMPTY or NONEMPTY.
func (l *Ledger) State() State {
	if len(l.lines) == 0 {
		return StateEmpty
	}
	return StateNonEmpty
}

// Lines returns a copy of the lines in ledger order.
func (l *Ledger) Lines() []Line {
	return slices.Clone(l.lines)
}

// Groups partitions the lines by category. Categories are sorted and lines
// keep ledger order within a category. The stored order is untouched.
func (l *Ledger) Groups() []Group {
	byCat := make(map[string]*Group)
	for i, line := range l.lines {
		g, ok := byCat[line.Category]
		if !ok {
			g = &Group{Category: line.Category, Subtotal: decimal.Zero}
			byCat[line.Category] = g
		}
		g.Lines = append(g.Lines, IndexedLine{Index: i, Line: line})
		g.Subtotal = g.Subtotal.Add(line.Subtotal)
	}

	cats := make([]string, 0, len(byCat))
	for cat := range byCat {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	groups := make([]Group, len(cats))
	for i, cat := range cats {
		groups[i] = *byCat[cat]
	}
	return groups
}

// ActiveMedicines lists the lines billed under a medicine category, the
// "active meds" strip shown beside the medicine views.
func (l *Ledger) ActiveMedicines() []IndexedLine {
	var out []IndexedLine
	for i, line := range l.lines {
		if line.Category == enum.CategoryMedicine || line.Category == enum.CategoryDischargeMedicine {
			out = append(out, IndexedLine{Index: i, Line: line})
		}
	}
	return out
}
