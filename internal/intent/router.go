// Package intent classifies raw utterances into a closed set of restaurant
// intents using ordered keyword rules. The rule order is part of the
// contract: an utterance matching several rule keyword sets takes the first
// rule that fires, so "search for the menu" is a search, not a menu request.
package intent

import (
	"strconv"
	"strings"
)

// rule pairs a predicate with the intent it selects and the extractor for
// its parameters. Rules are evaluated in slice order, first match wins.
type rule struct {
	kind    Kind
	match   func(msg string) bool
	extract func(msg string) Params
}

func noParams(string) Params { return Params{} }

// rules is the fixed evaluation order. More specific intents (completion,
// payment, search, status) are tested before the broad menu/order keyword
// sets they overlap with.
var rules = []rule{
	{
		kind:    KindCompleteOrder,
		match:   keywordMatcher("complete order", "finish order", "finalize order", "place order"),
		extract: noParams,
	},
	{
		kind:    KindPayment,
		match:   keywordMatcher("pay", "payment", "checkout", "pay for", "process payment"),
		extract: noParams,
	},
	{
		kind:    KindSearch,
		match:   keywordMatcher("search", "find", "looking for"),
		extract: extractSearchTerm,
	},
	{
		kind:    KindOrderStatus,
		match:   keywordMatcher("my order", "current order", "what did i order", "order status"),
		extract: noParams,
	},
	{
		kind:    KindMenu,
		match:   keywordMatcher("menu", "food", "dishes", "what do you have"),
		extract: extractMenuCategory,
	},
	{
		kind:    KindRestaurantInfo,
		match:   keywordMatcher("hours", "open", "close", "location", "address", "phone", "contact"),
		extract: noParams,
	},
	{
		kind:    KindAddItem,
		match:   keywordMatcher("order", "add", "get", "want", "like to have"),
		extract: extractOrderRequest,
	},
}

// Router classifies utterances. Stateless; safe for concurrent use.
type Router struct{}

func NewRouter() *Router {
	return &Router{}
}

// Classify lower-cases the utterance and walks the rule table. Utterances
// matching no rule fall through to the language model unmodified.
func (r *Router) Classify(utterance string) Result {
	msg := strings.ToLower(strings.TrimSpace(utterance))
	for _, rl := range rules {
		if rl.match(msg) {
			return Result{Kind: rl.kind, Params: rl.extract(msg)}
		}
	}
	return Result{Kind: KindFallback}
}

func keywordMatcher(keywords ...string) func(string) bool {
	return func(msg string) bool {
		for _, kw := range keywords {
			if strings.Contains(msg, kw) {
				return true
			}
		}
		return false
	}
}

// categoryKeywords maps secondary keywords to catalog category names,
// checked in catalog declaration order.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"appetizers", []string{"appetizer", "starter"}},
	{"pasta", []string{"pasta"}},
	{"pizza", []string{"pizza"}},
	{"mains", []string{"main", "entree"}},
	{"desserts", []string{"dessert", "sweet"}},
	{"beverages", []string{"drink", "beverage", "wine"}},
}

func extractMenuCategory(msg string) Params {
	for _, ck := range categoryKeywords {
		for _, kw := range ck.keywords {
			if strings.Contains(msg, kw) {
				return Params{Category: ck.category}
			}
		}
	}
	return Params{}
}

// extractOrderRequest pulls a quantity and item-name candidate out of an
// ordering utterance. Left-to-right: the first purely numeric token sets
// the quantity and everything after it becomes the candidate; failing
// that, "a"/"an"/"one" sets quantity 1 the same way; failing both, the
// whole utterance is the candidate. Known limitation: spelled-out numbers
// ("twenty one") and item names starting with a digit mis-parse.
func extractOrderRequest(msg string) Params {
	tokens := strings.Fields(msg)

	for i, tok := range tokens {
		if qty, err := strconv.Atoi(tok); err == nil {
			return Params{
				Quantity:      qty,
				ItemCandidate: strings.Join(tokens[i+1:], " "),
			}
		}
	}

	for i, tok := range tokens {
		if tok == "a" || tok == "an" || tok == "one" {
			return Params{
				Quantity:      1,
				ItemCandidate: strings.Join(tokens[i+1:], " "),
			}
		}
	}

	return Params{Quantity: 1, ItemCandidate: msg}
}

// searchPhrases is the fixed order in which search lead-ins are honored;
// only the first phrase present in the utterance yields a term.
var searchPhrases = []string{"search for", "find", "looking for"}

func extractSearchTerm(msg string) Params {
	for _, phrase := range searchPhrases {
		if idx := strings.Index(msg, phrase); idx >= 0 {
			term := strings.TrimSpace(msg[idx+len(phrase):])
			return Params{SearchTerm: term, TermFound: term != ""}
		}
	}
	return Params{}
}
