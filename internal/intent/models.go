package intent

// Kind is the classified purpose of one user utterance.
type Kind string

const (
	KindMenu           Kind = "menu"
	KindRestaurantInfo Kind = "restaurant_info"
	KindAddItem        Kind = "add_item"
	KindOrderStatus    Kind = "order_status"
	KindSearch         Kind = "search"
	KindPayment        Kind = "payment"
	KindCompleteOrder  Kind = "complete_order"
	KindFallback       Kind = "fallback"
)

// Params carries the intent-specific values extracted from the utterance.
type Params struct {
	// Category is the menu sub-category inferred for a menu request; empty
	// means the full menu.
	Category string

	// ItemCandidate and Quantity are set for add-item requests. The
	// candidate is a best-effort slice of the utterance, not a parsed item
	// name.
	ItemCandidate string
	Quantity      int

	// SearchTerm is set for search requests. TermFound distinguishes "no
	// recognized search phrase" from an empty term: when false no search is
	// performed even though the general keyword matched.
	SearchTerm string
	TermFound  bool
}

// Result is the outcome of classifying one utterance.
type Result struct {
	Kind   Kind
	Params Params
}
