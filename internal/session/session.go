// Package session owns per-conversation state: the dialogue history, the
// order ledger and the customer profile, all keyed by a caller-supplied
// session identifier.
package session

import (
	"sync"

	"bellavista-assistant/internal/order"
)

// Role identifies the author of one dialogue turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance in a session's history. Append-only.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Customer is the optional profile attached to a session.
type Customer struct {
	Name  string
	Phone string
	Email string
}

// Session is one customer's conversation. The mutex serializes whole turns:
// the engine holds it from classification through history append, so
// concurrent requests on the same session identifier cannot interleave.
type Session struct {
	mu sync.Mutex

	ID       string
	Ledger   *order.Ledger
	Customer Customer

	history []Turn
}

func newSession(id string) *Session {
	return &Session{
		ID:     id,
		Ledger: order.NewLedger(),
	}
}

// Lock acquires the per-session turn lock.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the per-session turn lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// AppendExchange records one completed user/assistant pair.
func (s *Session) AppendExchange(userText, assistantText string) {
	s.history = append(s.history,
		Turn{Role: RoleUser, Content: userText},
		Turn{Role: RoleAssistant, Content: assistantText},
	)
}

// History returns a copy of the full dialogue history in order.
func (s *Session) History() []Turn {
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// RecentHistory returns the most recent maxPairs user/assistant pairs,
// dropping the oldest turns first.
func (s *Session) RecentHistory(maxPairs int) []Turn {
	limit := maxPairs * 2
	if limit <= 0 || len(s.history) <= limit {
		return s.History()
	}
	out := make([]Turn, limit)
	copy(out, s.history[len(s.history)-limit:])
	return out
}

// ClearConversation empties the history and the ledger and resets the
// stage to greeting. The session entry itself stays alive.
func (s *Session) ClearConversation() {
	s.history = nil
	s.Ledger.Clear()
}

// SetCustomer updates the provided profile fields, leaving blanks alone.
func (s *Session) SetCustomer(name, phone, email string) {
	if name != "" {
		s.Customer.Name = name
	}
	if phone != "" {
		s.Customer.Phone = phone
	}
	if email != "" {
		s.Customer.Email = email
	}
}
