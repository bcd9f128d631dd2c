// Package chat is the dialogue engine: it owns one turn end to end, from
// intent classification through context composition, the model call, and
// the history update.
package chat

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	apperrors "bellavista-assistant/internal/common/errors"
	"bellavista-assistant/internal/common/logger"
	"bellavista-assistant/internal/common/metrics"
	"bellavista-assistant/internal/intent"
	"bellavista-assistant/internal/llm"
	"bellavista-assistant/internal/menu"
	"bellavista-assistant/internal/order"
	"bellavista-assistant/internal/pos"
	"bellavista-assistant/internal/prompt"
	"bellavista-assistant/internal/session"
)

// Generator is the language-model collaborator. One prompt in, one reply
// out; transport failures come back as llm sentinel errors.
type Generator interface {
	Generate(ctx context.Context, promptText string) (string, error)
}

// PosGateway is the point-of-sale collaborator used at checkout.
type PosGateway interface {
	IsLinked() bool
	ChargeOrder(ctx context.Context, totals order.Totals, lines []order.Line) (pos.ChargeResult, error)
	CreateOrder(ctx context.Context, lines []order.Line) (pos.OrderResult, error)
}

// starters is the curated greeting pool for the conversation-starter
// endpoint. Picks are uniform random and have no session effect.
var starters = []string{
	"Welcome to Bella Vista Ristorante! Can I tell you about today's specials?",
	"Buonasera! Would you like to see our menu, or shall I recommend something?",
	"Hello and welcome! Our wood-fired pizzas are fresh out of the oven. What sounds good?",
	"Hi there! Craving pasta, pizza, or something sweet? I'm happy to help you order.",
	"Welcome! If it's your first visit, our Margherita pizza and Spaghetti Carbonara are guest favorites.",
	"Buongiorno! Ready to order, or would you like to browse the menu first?",
}

// Engine orchestrates dialogue turns over shared session state. Turns on
// the same session identifier are serialized by the session lock; turns on
// different identifiers proceed independently.
type Engine struct {
	catalog  *menu.Catalog
	sessions *session.Store
	router   *intent.Router
	composer *prompt.Composer
	model    Generator
	pos      PosGateway

	defaultSessionID string
	logger           logger.Logger
}

func NewEngine(
	catalog *menu.Catalog,
	sessions *session.Store,
	composer *prompt.Composer,
	model Generator,
	posGateway PosGateway,
	defaultSessionID string,
	log logger.Logger,
) *Engine {
	if defaultSessionID == "" {
		defaultSessionID = "default"
	}
	return &Engine{
		catalog:          catalog,
		sessions:         sessions,
		router:           intent.NewRouter(),
		composer:         composer,
		model:            model,
		pos:              posGateway,
		defaultSessionID: defaultSessionID,
		logger:           log.With(map[string]interface{}{"component": "chat"}),
	}
}

// HandleTurn processes one inbound message to completion. The session lock
// is held for the whole turn, so concurrent messages on one session cannot
// interleave ledger or history mutations.
func (e *Engine) HandleTurn(ctx context.Context, sessionID, text string) TurnResult {
	if sessionID == "" {
		sessionID = e.defaultSessionID
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return e.errorResult(sessionID, "",
			"I didn't catch that. Could you tell me what you'd like?",
			apperrors.NewEmptyMessageError())
	}

	sess := e.sessions.Get(sessionID)
	sess.Lock()
	defer sess.Unlock()

	classified := e.router.Classify(trimmed)
	start := time.Now()

	turn, errResult := e.resolveIntent(ctx, sess, classified)
	if errResult != nil {
		return e.finishError(sessionID, classified.Kind, *errResult)
	}

	promptCtx := e.composer.Build(sess, trimmed, turn.contextText)
	reply, err := e.model.Generate(ctx, promptCtx.Render())
	if err != nil {
		cerr := apperrors.NewModelCallFailedError(err)
		if errors.Is(err, llm.ErrModelTimeout) {
			cerr = apperrors.NewModelTimeoutError()
		}
		e.logger.WithError(err).Error("model call failed", map[string]interface{}{
			"sessionId": sessionID,
			"intent":    string(classified.Kind),
		})
		return e.errorResult(sessionID, string(classified.Kind),
			"I'm sorry, I'm having trouble responding right now. Could you try again?", cerr)
	}

	sess.AppendExchange(trimmed, reply)

	metrics.TurnsCompleted.WithLabelValues(string(classified.Kind)).Inc()
	metrics.TurnDuration.WithLabelValues(string(classified.Kind)).Observe(time.Since(start).Seconds())

	return TurnResult{
		Response:      reply,
		SessionID:     sessionID,
		Status:        StatusSuccess,
		Intent:        string(classified.Kind),
		ContextUpdate: turn.contextUpdate,
		Payment:       turn.payment,
		Completion:    turn.completion,
	}
}

// turnState is the intent resolution carried into the model call.
type turnState struct {
	contextText   string
	contextUpdate string
	payment       *PaymentOutcome
	completion    *CompletionOutcome
}

// resolveIntent executes the intent's side effects against the locked
// session and produces the context text for the model. A non-nil error
// result short-circuits the turn before any model call.
func (e *Engine) resolveIntent(ctx context.Context, sess *session.Session, classified intent.Result) (turnState, *TurnResult) {
	switch classified.Kind {
	case intent.KindMenu:
		if classified.Params.Category != "" {
			return turnState{contextText: e.catalog.RenderCategory(classified.Params.Category)}, nil
		}
		return turnState{contextText: e.catalog.RenderFullMenu()}, nil

	case intent.KindRestaurantInfo:
		return turnState{contextText: e.catalog.RenderInfo()}, nil

	case intent.KindSearch:
		// A search keyword without a recognized term behaves like small
		// talk; the model answers from history alone.
		if !classified.Params.TermFound {
			return turnState{}, nil
		}
		return turnState{contextText: e.catalog.RenderSearch(classified.Params.SearchTerm)}, nil

	case intent.KindAddItem:
		return e.resolveAddItem(sess, classified.Params)

	case intent.KindOrderStatus:
		return turnState{contextText: sess.Ledger.Summary()}, nil

	case intent.KindPayment:
		return e.resolvePayment(ctx, sess)

	case intent.KindCompleteOrder:
		return e.resolveCompletion(ctx, sess)

	default:
		return turnState{}, nil
	}
}

func (e *Engine) resolveAddItem(sess *session.Session, params intent.Params) (turnState, *TurnResult) {
	item, category, ok := e.catalog.FindItem(params.ItemCandidate)
	if !ok {
		result := TurnResult{
			Response: fmt.Sprintf(
				"Sorry, I couldn't find '%s' on our menu. Would you like to see our menu or try a different item?",
				params.ItemCandidate),
		}
		result.apply(sess.ID, apperrors.NewItemNotFoundError(params.ItemCandidate))
		return turnState{}, &result
	}

	qty := params.Quantity
	if qty < 1 {
		qty = 1
	}
	sess.Ledger.AddLine(order.Line{
		Name:      item.Name,
		UnitPrice: item.Price,
		Quantity:  qty,
		Category:  category,
	})

	update := fmt.Sprintf("Added %dx %s to your order. Anything else I can help you with?", qty, item.Name)
	return turnState{contextText: update, contextUpdate: update}, nil
}

func (e *Engine) resolvePayment(ctx context.Context, sess *session.Session) (turnState, *TurnResult) {
	if sess.Ledger.Empty() {
		return turnState{
			contextText: order.EmptyOrderMessage,
			payment:     &PaymentOutcome{CanPay: false},
		}, nil
	}
	if e.pos == nil || !e.pos.IsLinked() {
		return turnState{
			contextText: "Payment cannot be processed yet: the restaurant is not connected to its payment provider.",
			payment:     &PaymentOutcome{CanPay: false},
		}, nil
	}

	sess.Ledger.SetStage(order.StagePayment)
	totals := sess.Ledger.ComputeTotals()

	charge, err := e.pos.ChargeOrder(ctx, totals, sess.Ledger.Lines())
	if err != nil {
		// The ledger is intentionally left intact so the customer can
		// retry the payment.
		result := TurnResult{
			Response: "I'm sorry, the payment could not be processed. Your order is still saved, please try again.",
		}
		result.apply(sess.ID, e.posError("charge_order", err))
		return turnState{}, &result
	}

	return turnState{
		contextText: fmt.Sprintf("Payment of %s processed successfully. Reference: %s.", charge.AmountDue, charge.Reference),
		payment:     &PaymentOutcome{CanPay: true, Reference: charge.Reference, AmountDue: charge.AmountDue},
	}, nil
}

func (e *Engine) resolveCompletion(ctx context.Context, sess *session.Session) (turnState, *TurnResult) {
	if sess.Ledger.Empty() {
		return turnState{contextText: order.EmptyOrderMessage}, nil
	}
	if e.pos == nil || !e.pos.IsLinked() {
		return turnState{
			contextText: "The order cannot be sent to the kitchen yet: the restaurant is not connected to its point of sale.",
		}, nil
	}

	created, err := e.pos.CreateOrder(ctx, sess.Ledger.Lines())
	if err != nil {
		result := TurnResult{
			Response: "I'm sorry, I couldn't place your order with the kitchen. Your order is still saved, please try again.",
		}
		result.apply(sess.ID, e.posError("create_order", err))
		return turnState{}, &result
	}

	// Lines stay on the ledger after completion; an explicit clear starts
	// the next order.
	sess.Ledger.SetStage(order.StageCompleted)

	return turnState{
		contextText: fmt.Sprintf("Order placed with the kitchen. Order ID: %s. %s", created.OrderID, sess.Ledger.Summary()),
		completion:  &CompletionOutcome{OrderID: created.OrderID},
	}, nil
}

func (e *Engine) posError(operation string, err error) *apperrors.ChatError {
	switch {
	case errors.Is(err, pos.ErrTimeout):
		return apperrors.NewPosTimeoutError(operation)
	case errors.Is(err, pos.ErrNotLinked):
		return apperrors.NewPosNotLinkedError()
	default:
		return apperrors.NewPosCallFailedError(operation, err)
	}
}

// History returns the full dialogue history for a session, oldest first.
// Unknown identifiers yield an empty history without creating a session.
func (e *Engine) History(sessionID string) []session.Turn {
	if sessionID == "" {
		sessionID = e.defaultSessionID
	}
	sess, ok := e.sessions.Peek(sessionID)
	if !ok {
		return []session.Turn{}
	}
	sess.Lock()
	defer sess.Unlock()
	return sess.History()
}

// ClearSession empties a session's history and ledger. Clearing an unknown
// session succeeds trivially.
func (e *Engine) ClearSession(sessionID string) bool {
	if sessionID == "" {
		sessionID = e.defaultSessionID
	}
	sess, ok := e.sessions.Peek(sessionID)
	if !ok {
		return true
	}
	sess.Lock()
	defer sess.Unlock()
	sess.ClearConversation()
	return true
}

// RandomGreeting picks one conversation starter. No session effect. The
// top-level rand functions are safe for the concurrent requests gin serves.
func (e *Engine) RandomGreeting() string {
	return starters[rand.Intn(len(starters))]
}

func (e *Engine) errorResult(sessionID, intentKind, response string, cerr *apperrors.ChatError) TurnResult {
	result := TurnResult{Response: response, Intent: intentKind}
	result.apply(sessionID, cerr)
	metrics.TurnsFailed.WithLabelValues(string(cerr.Code)).Inc()
	return result
}

// finishError stamps session/metrics data onto an error result produced
// during intent resolution.
func (e *Engine) finishError(sessionID string, kind intent.Kind, result TurnResult) TurnResult {
	result.SessionID = sessionID
	result.Intent = string(kind)
	metrics.TurnsFailed.WithLabelValues(result.ErrorCode).Inc()
	return result
}

// apply stamps the envelope fields shared by every error outcome. The
// underlying error detail rides along for diagnostics; the friendly text
// stays in Response.
func (r *TurnResult) apply(sessionID string, cerr *apperrors.ChatError) {
	r.SessionID = sessionID
	r.Status = StatusError
	r.Error = cerr.Message
	if cerr.Details != "" {
		r.Error = fmt.Sprintf("%s: %s", cerr.Message, cerr.Details)
	}
	r.ErrorCode = string(cerr.Code)
}

