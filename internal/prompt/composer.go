// Package prompt assembles everything the language model needs for one
// turn: bounded history, order state, POS link status and any
// intent-resolved context text.
package prompt

import (
	"fmt"
	"strings"

	"bellavista-assistant/internal/session"
)

const systemPrompt = `You are the friendly ordering assistant for Bella Vista Ristorante, an Italian restaurant.
Help customers browse the menu, build their order, and answer questions about the restaurant.
Guidelines:
- Keep responses conversational and natural (2-4 sentences typically)
- Ground every menu, price, and order statement in the context data provided below
- Never invent menu items or prices
- When the customer's order changes, confirm what changed and offer to help further
- Be warm and welcoming, as if greeting a regular guest`

// LinkChecker reports whether the restaurant is linked to the POS provider.
type LinkChecker interface {
	IsLinked() bool
}

// Context is the composed input for one model call. Every field is always
// present: empty strings are replaced with explicit placeholders so the
// rendered prompt never carries a hole.
type Context struct {
	History        []session.Turn
	ContextSummary string
	OrderStatus    string
	PosStatus      string
	UserInput      string
	ContextText    string
}

// Composer builds prompt contexts. It keeps the history window bound and
// the POS status lookup, nothing per-session.
type Composer struct {
	maxHistoryPairs int
	pos             LinkChecker
}

func NewComposer(maxHistoryPairs int, pos LinkChecker) *Composer {
	if maxHistoryPairs < 1 {
		maxHistoryPairs = 10
	}
	return &Composer{maxHistoryPairs: maxHistoryPairs, pos: pos}
}

// Build composes the model input for one turn. userInput is the original
// raw utterance; intent-resolved context (menu text, search results,
// order confirmations) rides in contextText so the literal user turn is
// preserved in history while the model still gets its grounding data.
// The caller holds the session lock.
func (c *Composer) Build(sess *session.Session, userInput, contextText string) Context {
	summary := fmt.Sprintf("Conversation Stage: %s\nOrder Items: %d", sess.Ledger.Stage(), len(sess.Ledger.Lines()))
	if sess.Customer.Name != "" {
		summary += fmt.Sprintf("\nCustomer: %s", sess.Customer.Name)
	}

	posStatus := "Not connected"
	if c.pos != nil && c.pos.IsLinked() {
		posStatus = "Connected"
	}

	if contextText == "" {
		contextText = "(none)"
	}

	return Context{
		History:        sess.RecentHistory(c.maxHistoryPairs),
		ContextSummary: summary,
		OrderStatus:    sess.Ledger.Summary(),
		PosStatus:      posStatus,
		UserInput:      userInput,
		ContextText:    contextText,
	}
}

// Render flattens the context into the single prompt string fed to the
// model.
func (c Context) Render() string {
	var sb strings.Builder
	sb.WriteString(systemPrompt)

	fmt.Fprintf(&sb, "\n\n[Conversation Context]\n%s", c.ContextSummary)
	fmt.Fprintf(&sb, "\n\n[Current Order]\n%s", c.OrderStatus)
	fmt.Fprintf(&sb, "\n\n[POS Status]\n%s", c.PosStatus)
	fmt.Fprintf(&sb, "\n\n[Reference Data]\n%s", c.ContextText)

	if len(c.History) > 0 {
		sb.WriteString("\n\n[Recent Conversation]")
		for _, t := range c.History {
			fmt.Fprintf(&sb, "\n%s: %s", t.Role, t.Content)
		}
	}

	fmt.Fprintf(&sb, "\n\nuser: %s\nassistant:", c.UserInput)
	return sb.String()
}
