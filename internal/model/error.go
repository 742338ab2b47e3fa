package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string         `json:"error"`
	Message       string         `json:"message"`
	Details       map[string]any `json:"details,omitempty"`
	CorrelationID string         `json:"correlationId,omitempty"`
}

// ErrorKind classifies an Error. The set is closed.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindBadRequest       ErrorKind = "bad_request"
	KindUnauthorised     ErrorKind = "unauthorised"
	KindForbidden        ErrorKind = "forbidden"
	KindInvalidSignature ErrorKind = "invalid_signature"
	KindPaymentProvider  ErrorKind = "payment_provider"
	KindConflict         ErrorKind = "conflict"
	KindInternal         ErrorKind = "internal"
)

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeMissingField       = "MISSING_FIELD"
	ErrCodeInvalidID          = "INVALID_ID"
	ErrCodeInvalidParameter   = "INVALID_PARAMETER"
	ErrCodeInvalidPromoCode   = "INVALID_PROMO_CODE"
	ErrCodeInvalidPromoLength = "INVALID_PROMO_LENGTH"
	ErrCodeProductNotFound    = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound      = "ORDER_NOT_FOUND"
	ErrCodeInvalidQuantity    = "INVALID_QUANTITY"
	ErrCodeEmptyOrder         = "EMPTY_ORDER"
	ErrCodeInsufficientStock  = "INSUFFICIENT_STOCK"
	ErrCodeInvalidTransition  = "INVALID_STATE_TRANSITION"
	ErrCodeInvalidAmount      = "INVALID_AMOUNT"
	ErrCodeInvalidRefund      = "INVALID_REFUND"
	ErrCodeCurrencyMismatch   = "CURRENCY_MISMATCH"
	ErrCodeInvalidSignature   = "INVALID_SIGNATURE"
	ErrCodeInvalidEvent       = "INVALID_EVENT"
	ErrCodePaymentProvider    = "PAYMENT_PROVIDER_ERROR"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeDuplicateOrder     = "DUPLICATE_ORDER"
	ErrCodeUnauthorised       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// Error is the single domain error type. Kind drives the HTTP status, Code is
// the stable machine-readable identifier and Details carries structured context
// such as the offending product of an insufficient stock failure.
type Error struct {
	Kind      ErrorKind
	Code      string
	Message   string
	Details   map[string]any
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same kind and code, so the
// package-level sentinels below match errors that carry extra details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// StatusCode maps the error kind to an HTTP status.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorised, KindInvalidSignature:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindPaymentProvider:
		if e.Retryable {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// NewError creates a new domain error.
func NewError(kind ErrorKind, code, message string) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewDomainError creates a bad request error with the given code.
func NewDomainError(code, message string) *Error {
	return NewError(KindBadRequest, code, message)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(code, message string) *Error {
	return NewError(KindNotFound, code, message)
}

// NewForbiddenError creates a forbidden error.
func NewForbiddenError(message string) *Error {
	return NewError(KindForbidden, ErrCodeForbidden, message)
}

// NewInsufficientStockError reports that a stock unit cannot cover a request.
func NewInsufficientStockError(productID string, variantID *string, available, requested int) *Error {
	details := map[string]any{
		"productId": productID,
		"available": available,
		"requested": requested,
	}
	message := fmt.Sprintf("insufficient stock for product %s", productID)
	if variantID != nil {
		details["variantId"] = *variantID
		message = fmt.Sprintf("insufficient stock for product %s variant %s", productID, *variantID)
	}
	return &Error{
		Kind:    KindBadRequest,
		Code:    ErrCodeInsufficientStock,
		Message: message,
		Details: details,
	}
}

// NewInvalidTransitionError reports an order status move that is not an edge of
// the order state machine.
func NewInvalidTransitionError(from, to OrderStatus) *Error {
	return &Error{
		Kind:    KindBadRequest,
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition order from %s to %s", from, to),
		Details: map[string]any{"from": string(from), "to": string(to)},
	}
}

// NewPaymentProviderError wraps a failure reported by, or while talking to, a
// payment provider.
func NewPaymentProviderError(message string, providerStatusCode int, raw error, retryable bool) *Error {
	return &Error{
		Kind:      KindPaymentProvider,
		Code:      ErrCodePaymentProvider,
		Message:   message,
		Details:   map[string]any{"providerStatusCode": providerStatusCode},
		Retryable: retryable,
		Cause:     raw,
	}
}

// NewConflictError wraps a lock timeout, deadlock or serialisation failure.
func NewConflictError(cause error) *Error {
	return &Error{
		Kind:      KindConflict,
		Code:      ErrCodeConflict,
		Message:   "concurrent update conflict, retry the request",
		Retryable: true,
		Cause:     cause,
	}
}

// NewInvalidSignatureError rejects an unauthenticated webhook delivery.
func NewInvalidSignatureError(reason string) *Error {
	return NewError(KindInvalidSignature, ErrCodeInvalidSignature, "invalid webhook signature: "+reason)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) ErrorKind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindInternal
}

// Common domain errors
var (
	ErrInvalidPromoCode   = NewDomainError(ErrCodeInvalidPromoCode, "Promo code must appear in at least two coupon files")
	ErrInvalidPromoLength = NewDomainError(ErrCodeInvalidPromoLength, "Promo code must be between 8 and 10 characters")
	ErrProductNotFound    = NewNotFoundError(ErrCodeProductNotFound, "One or more products not found")
	ErrOrderNotFound      = NewNotFoundError(ErrCodeOrderNotFound, "Order not found")
	ErrInvalidQuantity    = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrEmptyOrder         = NewDomainError(ErrCodeEmptyOrder, "Order must contain at least one item")
	ErrInvalidAmount      = NewDomainError(ErrCodeInvalidAmount, "Amount must be greater than zero and not exceed the order total")
	ErrNoPaymentIntent    = NewDomainError(ErrCodeInvalidRefund, "Order has no payment to refund")
	ErrAlreadyRefunded    = NewDomainError(ErrCodeInvalidRefund, "Order is already refunded or cancelled")
	ErrCurrencyMismatch   = NewDomainError(ErrCodeCurrencyMismatch, "Currency does not match the order currency")
	ErrInvalidEvent       = NewDomainError(ErrCodeInvalidEvent, "Malformed provider event")
	ErrDuplicateOrder     = NewError(KindConflict, ErrCodeDuplicateOrder, "Order with this idempotency key already exists")
	ErrUnauthenticated    = NewError(KindUnauthorised, ErrCodeUnauthorised, "Missing caller identity")
	ErrAdminRequired      = NewForbiddenError("Administrator role required")
)
