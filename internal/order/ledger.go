// Package order keeps one session's running order: the line items, their
// computed totals, and the coarse conversation stage.
package order

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TaxRate is the single tax rate applied to every order subtotal.
var TaxRate = decimal.NewFromFloat(0.085)

// Stage is the coarse lifecycle phase of an order within a session.
type Stage string

const (
	StageGreeting        Stage = "greeting"
	StageTakingOrder     Stage = "taking_order"
	StageConfirmingOrder Stage = "confirming_order"
	StagePayment         Stage = "payment"
	StageCompleted       Stage = "completed"
)

// Line is one ordered item. The unit price is copied from the catalog at
// add time so later menu edits never change an existing order. Lines are
// never mutated in place; re-adding the same item appends a new line.
type Line struct {
	Name            string
	UnitPrice       decimal.Decimal
	Quantity        int
	SpecialRequests string
	Category        string
}

// Total returns quantity times unit price for this line.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals is the computed money tuple for a ledger.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Ledger is the ordered sequence of lines for one session. Not safe for
// concurrent use on its own; the owning session serializes access.
type Ledger struct {
	lines []Line
	stage Stage
}

// NewLedger returns an empty ledger at the greeting stage.
func NewLedger() *Ledger {
	return &Ledger{stage: StageGreeting}
}

// Stage returns the current conversation stage.
func (g *Ledger) Stage() Stage {
	return g.stage
}

// SetStage moves the ledger to the given stage.
func (g *Ledger) SetStage(s Stage) {
	g.stage = s
}

// Lines returns a copy of the current lines.
func (g *Ledger) Lines() []Line {
	out := make([]Line, len(g.lines))
	copy(out, g.lines)
	return out
}

// Empty reports whether the ledger has no lines.
func (g *Ledger) Empty() bool {
	return len(g.lines) == 0
}

// AddLine appends a new line and moves the stage to taking_order.
func (g *Ledger) AddLine(line Line) {
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	g.lines = append(g.lines, line)
	g.stage = StageTakingOrder
}

// Clear empties the ledger and resets the stage to greeting.
func (g *Ledger) Clear() {
	g.lines = nil
	g.stage = StageGreeting
}

// ComputeTotals is the single source of truth for subtotal, tax and total.
// The conversational summary and the payment/completion checks both go
// through here so the figures can never diverge.
func (g *Ledger) ComputeTotals() Totals {
	subtotal := decimal.Zero
	for _, l := range g.lines {
		subtotal = subtotal.Add(l.Total())
	}
	tax := subtotal.Mul(TaxRate).Round(2)
	return Totals{
		Subtotal: subtotal.Round(2),
		Tax:      tax,
		Total:    subtotal.Round(2).Add(tax),
	}
}

// EmptyOrderMessage is the canonical rendering of an empty ledger.
const EmptyOrderMessage = "Your order is currently empty. Would you like to see our menu?"

// Summary renders the current order line by line with totals, or the
// canonical empty-order message.
func (g *Ledger) Summary() string {
	if g.Empty() {
		return EmptyOrderMessage
	}

	var sb strings.Builder
	sb.WriteString("Your Current Order:\n")
	for i, l := range g.lines {
		fmt.Fprintf(&sb, "%d. %s x%d - $%s\n", i+1, l.Name, l.Quantity, l.Total().StringFixed(2))
		if l.SpecialRequests != "" {
			fmt.Fprintf(&sb, "   Special requests: %s\n", l.SpecialRequests)
		}
	}

	t := g.ComputeTotals()
	fmt.Fprintf(&sb, "\nSubtotal: $%s\n", t.Subtotal.StringFixed(2))
	fmt.Fprintf(&sb, "Tax (8.5%%): $%s\n", t.Tax.StringFixed(2))
	fmt.Fprintf(&sb, "Total: $%s", t.Total.StringFixed(2))
	return sb.String()
}
