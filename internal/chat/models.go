package chat

// Status values for a turn result envelope.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// PaymentOutcome reports the payment decision for a payment-intent turn.
// CanPay is false when the ledger is empty or the POS is not linked; no
// charge is attempted in either case.
type PaymentOutcome struct {
	CanPay    bool   `json:"can_pay"`
	Reference string `json:"reference,omitempty"`
	AmountDue string `json:"amount_due,omitempty"`
}

// CompletionOutcome reports the POS order created for a completed checkout.
type CompletionOutcome struct {
	OrderID string `json:"order_id"`
}

// TurnResult is the structured envelope for one handled turn. Recoverable
// failures surface here with Status "error"; nothing propagates to the
// caller as a fault.
type TurnResult struct {
	Response      string             `json:"response"`
	SessionID     string             `json:"session_id"`
	Status        string             `json:"status"`
	Intent        string             `json:"intent,omitempty"`
	ContextUpdate string             `json:"context_update,omitempty"`
	Payment       *PaymentOutcome    `json:"payment,omitempty"`
	Completion    *CompletionOutcome `json:"completion,omitempty"`
	Error         string             `json:"error,omitempty"`
	ErrorCode     string             `json:"error_code,omitempty"`
}
