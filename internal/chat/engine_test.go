package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bellavista-assistant/internal/common/logger"
	"bellavista-assistant/internal/llm"
	"bellavista-assistant/internal/menu"
	"bellavista-assistant/internal/order"
	"bellavista-assistant/internal/pos"
	"bellavista-assistant/internal/prompt"
	"bellavista-assistant/internal/session"
)

type fakeModel struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	reply   string
	err     error
}

func (f *fakeModel) Generate(ctx context.Context, promptText string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, promptText)
	if f.err != nil {
		return "", f.err
	}
	if f.reply == "" {
		return "Certainly!", nil
	}
	return f.reply, nil
}

func (f *fakeModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeModel) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fakePos struct {
	linked      bool
	chargeCalls int
	createCalls int
	chargeErr   error
	createErr   error
	lastTotals  order.Totals
}

func (f *fakePos) IsLinked() bool { return f.linked }

func (f *fakePos) ChargeOrder(ctx context.Context, totals order.Totals, lines []order.Line) (pos.ChargeResult, error) {
	f.chargeCalls++
	f.lastTotals = totals
	if f.chargeErr != nil {
		return pos.ChargeResult{}, f.chargeErr
	}
	return pos.ChargeResult{Reference: "PAY1", AmountDue: "$" + totals.Total.StringFixed(2)}, nil
}

func (f *fakePos) CreateOrder(ctx context.Context, lines []order.Line) (pos.OrderResult, error) {
	f.createCalls++
	if f.createErr != nil {
		return pos.OrderResult{}, f.createErr
	}
	return pos.OrderResult{OrderID: "ORD1"}, nil
}

func newTestEngine(t *testing.T, model *fakeModel, posGw *fakePos) (*Engine, *session.Store) {
	t.Helper()
	catalog, err := menu.Load()
	require.NoError(t, err)

	store := session.NewStore()
	composer := prompt.NewComposer(10, posGw)
	engine := NewEngine(catalog, store, composer, model, posGw, "default", logger.NewTestLogger(t))
	return engine, store
}

func TestHandleTurn_EmptyMessage(t *testing.T) {
	model := &fakeModel{}
	engine, _ := newTestEngine(t, model, &fakePos{})

	result := engine.HandleTurn(context.Background(), "s1", "   ")

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "EMPTY_MESSAGE", result.ErrorCode)
	assert.Equal(t, "s1", result.SessionID)
	assert.NotEmpty(t, result.Response)
	assert.Zero(t, model.callCount(), "empty input must never reach the model")
}

func TestHandleTurn_DefaultSessionID(t *testing.T) {
	engine, store := newTestEngine(t, &fakeModel{reply: "Hello!"}, &fakePos{})

	result := engine.HandleTurn(context.Background(), "", "hi there friend")

	assert.Equal(t, "default", result.SessionID)
	_, ok := store.Peek("default")
	assert.True(t, ok)
}

func TestHandleTurn_MenuIntentInjectsCatalog(t *testing.T) {
	model := &fakeModel{reply: "Here is our menu."}
	engine, _ := newTestEngine(t, model, &fakePos{})

	result := engine.HandleTurn(context.Background(), "s1", "What's on the menu?")

	require.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "menu", result.Intent)
	assert.Contains(t, model.lastPrompt(), "Margherita")
	assert.Contains(t, model.lastPrompt(), "Bruschetta")
}

func TestHandleTurn_SearchBeatsMenu(t *testing.T) {
	model := &fakeModel{}
	engine, _ := newTestEngine(t, model, &fakePos{})

	result := engine.HandleTurn(context.Background(), "s1", "search for the menu")

	assert.Equal(t, "search", result.Intent)
}

func TestHandleTurn_AddItemMargherita(t *testing.T) {
	model := &fakeModel{reply: "One Margherita coming up!"}
	engine, store := newTestEngine(t, model, &fakePos{})

	result := engine.HandleTurn(context.Background(), "s1", "I want a margherita pizza")

	require.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "add_item", result.Intent)
	assert.Equal(t, "Added 1x Margherita to your order. Anything else I can help you with?", result.ContextUpdate)

	sess, ok := store.Peek("s1")
	require.True(t, ok)
	lines := sess.Ledger.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "Margherita", lines[0].Name)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.True(t, lines[0].UnitPrice.Equal(decimal.RequireFromString("16.99")))

	totals := sess.Ledger.ComputeTotals()
	assert.Equal(t, "16.99", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "1.44", totals.Tax.StringFixed(2))
	assert.Equal(t, "18.43", totals.Total.StringFixed(2))
}

func TestHandleTurn_AddItemNotFound(t *testing.T) {
	model := &fakeModel{}
	engine, store := newTestEngine(t, model, &fakePos{})

	result := engine.HandleTurn(context.Background(), "s1", "I want a flying saucer sandwich")

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "ITEM_NOT_FOUND", result.ErrorCode)
	assert.Contains(t, result.Response, "couldn't find")
	assert.Zero(t, model.callCount(), "lookup misses resolve without a model call")

	sess, _ := store.Peek("s1")
	assert.Empty(t, engine.History("s1"), "failed turns leave no history")
	assert.True(t, sess.Ledger.Empty())
}

func TestHandleTurn_PaymentEmptyLedger(t *testing.T) {
	posGw := &fakePos{linked: true}
	model := &fakeModel{reply: "Your order is empty so far."}
	engine, _ := newTestEngine(t, model, posGw)

	result := engine.HandleTurn(context.Background(), "s1", "I'd like to pay now")

	require.Equal(t, StatusSuccess, result.Status)
	require.NotNil(t, result.Payment)
	assert.False(t, result.Payment.CanPay)
	assert.Zero(t, posGw.chargeCalls, "empty ledger must never reach the POS")
	assert.Contains(t, model.lastPrompt(), "Your order is currently empty")
}

func TestHandleTurn_PaymentChargesLinkedPos(t *testing.T) {
	posGw := &fakePos{linked: true}
	model := &fakeModel{reply: "Payment received, grazie!"}
	engine, store := newTestEngine(t, model, posGw)

	engine.HandleTurn(context.Background(), "s1", "I want 2 margherita pizza")
	result := engine.HandleTurn(context.Background(), "s1", "checkout please")

	require.Equal(t, StatusSuccess, result.Status)
	require.NotNil(t, result.Payment)
	assert.True(t, result.Payment.CanPay)
	assert.Equal(t, "PAY1", result.Payment.Reference)
	assert.Equal(t, 1, posGw.chargeCalls)
	assert.Equal(t, "36.87", posGw.lastTotals.Total.StringFixed(2))

	sess, _ := store.Peek("s1")
	assert.Equal(t, order.StagePayment, sess.Ledger.Stage())
}

func TestHandleTurn_PaymentFailureKeepsLedger(t *testing.T) {
	posGw := &fakePos{linked: true, chargeErr: fmt.Errorf("%w: provider down", pos.ErrCallFailed)}
	model := &fakeModel{}
	engine, store := newTestEngine(t, model, posGw)

	engine.HandleTurn(context.Background(), "s1", "I want a margherita pizza")
	result := engine.HandleTurn(context.Background(), "s1", "checkout please")

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "POS_CALL_FAILED", result.ErrorCode)
	assert.Contains(t, result.Error, "provider down", "envelope keeps the underlying failure")

	sess, _ := store.Peek("s1")
	assert.Len(t, sess.Ledger.Lines(), 1, "failed charge must not clear the ledger")
}

func TestHandleTurn_PaymentNotLinked(t *testing.T) {
	posGw := &fakePos{linked: false}
	model := &fakeModel{}
	engine, _ := newTestEngine(t, model, posGw)

	engine.HandleTurn(context.Background(), "s1", "I want a margherita pizza")
	result := engine.HandleTurn(context.Background(), "s1", "checkout please")

	require.Equal(t, StatusSuccess, result.Status)
	require.NotNil(t, result.Payment)
	assert.False(t, result.Payment.CanPay)
	assert.Zero(t, posGw.chargeCalls)
}

func TestHandleTurn_CompleteOrder(t *testing.T) {
	posGw := &fakePos{linked: true}
	model := &fakeModel{reply: "Your order is on its way to the kitchen!"}
	engine, store := newTestEngine(t, model, posGw)

	engine.HandleTurn(context.Background(), "s1", "I want a tiramisu")
	result := engine.HandleTurn(context.Background(), "s1", "please complete order")

	require.Equal(t, StatusSuccess, result.Status)
	require.NotNil(t, result.Completion)
	assert.Equal(t, "ORD1", result.Completion.OrderID)
	assert.Equal(t, 1, posGw.createCalls)

	sess, _ := store.Peek("s1")
	assert.Equal(t, order.StageCompleted, sess.Ledger.Stage())
	assert.Len(t, sess.Ledger.Lines(), 1, "lines survive completion until an explicit clear")
}

func TestHandleTurn_ModelTimeout(t *testing.T) {
	model := &fakeModel{err: llm.ErrModelTimeout}
	engine, _ := newTestEngine(t, model, &fakePos{})

	result := engine.HandleTurn(context.Background(), "s1", "hello there")

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "MODEL_TIMEOUT", result.ErrorCode)
	assert.Empty(t, engine.History("s1"), "failed model calls append no history")
}

func TestHandleTurn_ModelFailure(t *testing.T) {
	model := &fakeModel{err: errors.New("quota exceeded")}
	engine, _ := newTestEngine(t, model, &fakePos{})

	result := engine.HandleTurn(context.Background(), "s1", "hello there")

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "MODEL_CALL_FAILED", result.ErrorCode)
	assert.Contains(t, result.Error, "quota exceeded", "envelope keeps the underlying failure")
	assert.NotEmpty(t, result.Response)
}

func TestHistory_Idempotent(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeModel{reply: "Hi!"}, &fakePos{})

	engine.HandleTurn(context.Background(), "s1", "hello there")

	first := engine.History("s1")
	second := engine.History("s1")
	require.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, session.RoleUser, first[0].Role)
	assert.Equal(t, "hello there", first[0].Content)
	assert.Equal(t, session.RoleAssistant, first[1].Role)
}

func TestHistory_UnknownSession(t *testing.T) {
	engine, store := newTestEngine(t, &fakeModel{}, &fakePos{})

	history := engine.History("never-seen")

	assert.Empty(t, history)
	assert.Zero(t, store.Len(), "history lookups must not create sessions")
}

func TestClearSession_RoundTrip(t *testing.T) {
	engine, store := newTestEngine(t, &fakeModel{reply: "Sure!"}, &fakePos{})

	engine.HandleTurn(context.Background(), "s1", "I want a margherita pizza")
	require.NotEmpty(t, engine.History("s1"))

	assert.True(t, engine.ClearSession("s1"))
	assert.Empty(t, engine.History("s1"))

	sess, _ := store.Peek("s1")
	assert.Equal(t, order.StageGreeting, sess.Ledger.Stage())
	assert.Equal(t, order.EmptyOrderMessage, sess.Ledger.Summary())
}

func TestClearSession_Unknown(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeModel{}, &fakePos{})

	assert.True(t, engine.ClearSession("never-seen"))
}

func TestRandomGreeting(t *testing.T) {
	engine, store := newTestEngine(t, &fakeModel{}, &fakePos{})

	for i := 0; i < 20; i++ {
		greeting := engine.RandomGreeting()
		assert.NotEmpty(t, greeting)
	}
	assert.Zero(t, store.Len(), "greetings have no session effect")
}

func TestRandomGreeting_Concurrent(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeModel{}, &fakePos{})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				assert.NotEmpty(t, engine.RandomGreeting())
			}
		}()
	}
	wg.Wait()
}

func TestHandleTurn_ConcurrentAddsSameSession(t *testing.T) {
	engine, store := newTestEngine(t, &fakeModel{reply: "Got it!"}, &fakePos{})

	var wg sync.WaitGroup
	for _, msg := range []string{"I want 1 margherita pizza", "I want 2 tiramisu"} {
		wg.Add(1)
		go func(m string) {
			defer wg.Done()
			engine.HandleTurn(context.Background(), "s1", m)
		}(msg)
	}
	wg.Wait()

	sess, _ := store.Peek("s1")
	lines := sess.Ledger.Lines()
	require.Len(t, lines, 2, "no lost update under concurrent adds")

	quantities := map[string]int{}
	for _, l := range lines {
		quantities[l.Name] = l.Quantity
	}
	assert.Equal(t, 1, quantities["Margherita"])
	assert.Equal(t, 2, quantities["Tiramisu"])
}
