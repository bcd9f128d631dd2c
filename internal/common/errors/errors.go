// Package errors provides standardized error handling for the ordering assistant.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Validation errors: rejected before the utterance reaches the intent router.
	ErrCodeEmptyMessage ErrorCode = "EMPTY_MESSAGE"

	// Lookup errors: recoverable, yield guidance text back to the customer.
	ErrCodeItemNotFound     ErrorCode = "ITEM_NOT_FOUND"
	ErrCodeCategoryNotFound ErrorCode = "CATEGORY_NOT_FOUND"

	// Model errors: language-model transport or configuration failures.
	ErrCodeModelCallFailed ErrorCode = "MODEL_CALL_FAILED"
	ErrCodeModelTimeout    ErrorCode = "MODEL_TIMEOUT"

	// POS errors: payment/checkout provider failures. The ledger is never
	// cleared on one of these so the customer can retry.
	ErrCodePosCallFailed ErrorCode = "POS_CALL_FAILED"
	ErrCodePosNotLinked  ErrorCode = "POS_NOT_LINKED"
	ErrCodePosTimeout    ErrorCode = "POS_TIMEOUT"

	// Config errors: fatal at startup, the engine must not start without
	// required credentials.
	ErrCodeMissingCredentials ErrorCode = "MISSING_CREDENTIALS"

	// TTS errors: voice synthesis failures, surfaced by the transport layer.
	ErrCodeSpeechSynthesisFailed ErrorCode = "SPEECH_SYNTHESIS_FAILED"
)

// ChatError represents a structured application error.
type ChatError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *ChatError) Error() string {
	return fmt.Sprintf("ChatError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the error code from err, or empty when err is not a ChatError.
func CodeOf(err error) ErrorCode {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsRetryable reports whether err is a ChatError marked retryable.
func IsRetryable(err error) bool {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// ==========================
// 2. Error Constructors
// ==========================

// NewEmptyMessageError creates a non-retryable validation error.
func NewEmptyMessageError() *ChatError {
	return &ChatError{
		Code:      ErrCodeEmptyMessage,
		Message:   "User message is empty",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewItemNotFoundError creates a non-retryable lookup error naming the
// unresolved candidate.
func NewItemNotFoundError(candidate string) *ChatError {
	return &ChatError{
		Code:      ErrCodeItemNotFound,
		Message:   "Menu item not found",
		Details:   fmt.Sprintf("candidate: %s", candidate),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCategoryNotFoundError creates a non-retryable lookup error.
func NewCategoryNotFoundError(category string) *ChatError {
	return &ChatError{
		Code:      ErrCodeCategoryNotFound,
		Message:   "Menu category not found",
		Details:   fmt.Sprintf("category: %s", category),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelCallFailedError creates a retryable model transport error.
func NewModelCallFailedError(err error) *ChatError {
	return &ChatError{
		Code:      ErrCodeModelCallFailed,
		Message:   "Language model call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelTimeoutError creates a retryable model timeout error.
func NewModelTimeoutError() *ChatError {
	return &ChatError{
		Code:      ErrCodeModelTimeout,
		Message:   "Language model call timed out",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPosCallFailedError creates a retryable POS provider error carrying the
// raw provider detail.
func NewPosCallFailedError(operation string, err error) *ChatError {
	return &ChatError{
		Code:      ErrCodePosCallFailed,
		Message:   "POS request failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPosNotLinkedError creates a retryable error for an unlinked POS account.
func NewPosNotLinkedError() *ChatError {
	return &ChatError{
		Code:      ErrCodePosNotLinked,
		Message:   "Restaurant is not linked to the POS provider",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPosTimeoutError creates a retryable POS timeout error.
func NewPosTimeoutError(operation string) *ChatError {
	return &ChatError{
		Code:      ErrCodePosTimeout,
		Message:   "POS request timed out",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingCredentialsError creates a fatal configuration error.
func NewMissingCredentialsError(name string) *ChatError {
	return &ChatError{
		Code:      ErrCodeMissingCredentials,
		Message:   "Required credential is missing",
		Details:   fmt.Sprintf("credential: %s", name),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSpeechSynthesisFailedError creates a retryable TTS error.
func NewSpeechSynthesisFailedError(err error) *ChatError {
	return &ChatError{
		Code:      ErrCodeSpeechSynthesisFailed,
		Message:   "Speech synthesis failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
