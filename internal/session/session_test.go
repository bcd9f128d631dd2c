package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bellavista-assistant/internal/order"
)

func TestStore_LazyCreation(t *testing.T) {
	store := NewStore()
	require.Zero(t, store.Len())

	s := store.Get("s1")
	require.NotNil(t, s)
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, order.StageGreeting, s.Ledger.Stage())
	assert.Empty(t, s.History())
	assert.Equal(t, 1, store.Len())

	// Repeat access returns the same session.
	assert.Same(t, s, store.Get("s1"))
	assert.Equal(t, 1, store.Len())
}

func TestStore_PeekDoesNotCreate(t *testing.T) {
	store := NewStore()

	_, ok := store.Peek("never-seen")
	assert.False(t, ok)
	assert.Zero(t, store.Len())
}

func TestStore_ConcurrentFirstContact(t *testing.T) {
	store := NewStore()

	const goroutines = 32
	sessions := make([]*Session, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sessions[idx] = store.Get("shared")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, store.Len())
	for _, s := range sessions {
		assert.Same(t, sessions[0], s)
	}
}

func TestAppendExchange_OrderPreserved(t *testing.T) {
	s := newSession("s1")

	s.AppendExchange("hi", "hello!")
	s.AppendExchange("menu please", "here it is")

	history := s.History()
	require.Len(t, history, 4)
	assert.Equal(t, Turn{Role: RoleUser, Content: "hi"}, history[0])
	assert.Equal(t, Turn{Role: RoleAssistant, Content: "hello!"}, history[1])
	assert.Equal(t, Turn{Role: RoleUser, Content: "menu please"}, history[2])
}

func TestHistory_ReturnsCopy(t *testing.T) {
	s := newSession("s1")
	s.AppendExchange("hi", "hello!")

	history := s.History()
	history[0].Content = "mutated"

	assert.Equal(t, "hi", s.History()[0].Content)
}

func TestRecentHistory_Truncation(t *testing.T) {
	s := newSession("s1")
	for i := 1; i <= 25; i++ {
		s.AppendExchange(fmt.Sprintf("user %d", i), fmt.Sprintf("assistant %d", i))
	}

	recent := s.RecentHistory(10)

	require.Len(t, recent, 20, "10 pairs means 20 turns")
	assert.Equal(t, "user 16", recent[0].Content, "oldest 15 pairs dropped")
	assert.Equal(t, "assistant 25", recent[len(recent)-1].Content)
}

func TestRecentHistory_ShortHistoryUntouched(t *testing.T) {
	s := newSession("s1")
	s.AppendExchange("hi", "hello!")

	recent := s.RecentHistory(10)

	assert.Len(t, recent, 2)
}

func TestClearConversation(t *testing.T) {
	s := newSession("s1")
	s.AppendExchange("hi", "hello!")
	s.Ledger.AddLine(order.Line{Name: "Margherita", UnitPrice: decimal.RequireFromString("16.99"), Quantity: 1})

	s.ClearConversation()

	assert.Empty(t, s.History())
	assert.True(t, s.Ledger.Empty())
	assert.Equal(t, order.StageGreeting, s.Ledger.Stage())
}

func TestSetCustomer_BlanksLeaveFieldsAlone(t *testing.T) {
	s := newSession("s1")

	s.SetCustomer("Anna", "555-0100", "anna@example.com")
	s.SetCustomer("", "555-0199", "")

	assert.Equal(t, "Anna", s.Customer.Name)
	assert.Equal(t, "555-0199", s.Customer.Phone)
	assert.Equal(t, "anna@example.com", s.Customer.Email)
}
