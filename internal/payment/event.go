package payment

import (
	"encoding/json"
	"fmt"

	"kart-commerce/internal/model"
)

// Provider event types the reconciler acts on.
const (
	EventPaymentSucceeded  = "payment_intent.succeeded"
	EventPaymentFailed     = "payment_intent.payment_failed"
	EventPaymentCanceled   = "payment_intent.canceled"
	EventPaymentProcessing = "payment_intent.processing"
	EventChargeRefunded    = "charge.refunded"
	EventRefundUpdated     = "charge.refund.updated"
)

var knownEvents = map[string]struct{}{
	EventPaymentSucceeded:  {},
	EventPaymentFailed:     {},
	EventPaymentCanceled:   {},
	EventPaymentProcessing: {},
	EventChargeRefunded:    {},
	EventRefundUpdated:     {},
}

// Event is a decoded provider notification. PaymentIntentID and the refund
// fields are filled for known event types only.
type Event struct {
	ID              string
	Type            string
	PaymentIntentID string
	RefundID        string
	RefundStatus    model.RefundStatus
}

// Known reports whether the event type is one the reconciler handles.
func (e *Event) Known() bool {
	_, ok := knownEvents[e.Type]
	return ok
}

// IsRefund reports whether the event settles a refund.
func (e *Event) IsRefund() bool {
	return e.Type == EventChargeRefunded || e.Type == EventRefundUpdated
}

type rawEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type rawObject struct {
	ID            string `json:"id"`
	Object        string `json:"object"`
	PaymentIntent string `json:"payment_intent"`
	Status        string `json:"status"`
	Refunds       *struct {
		Data []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	} `json:"refunds"`
}

// ParseEvent decodes a webhook payload. Malformed payloads of known types fail
// with model.ErrInvalidEvent.
func ParseEvent(payload []byte) (*Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, invalidEvent(fmt.Errorf("failed to decode event: %w", err))
	}
	if raw.ID == "" || raw.Type == "" {
		return nil, invalidEvent(fmt.Errorf("event id and type are required"))
	}

	event := &Event{ID: raw.ID, Type: raw.Type}
	if !event.Known() {
		return event, nil
	}

	var obj rawObject
	if err := json.Unmarshal(raw.Data.Object, &obj); err != nil {
		return nil, invalidEvent(fmt.Errorf("failed to decode event object: %w", err))
	}

	switch raw.Type {
	case EventChargeRefunded:
		event.PaymentIntentID = obj.PaymentIntent
		event.RefundStatus = model.RefundStatusSucceeded
		if obj.Refunds != nil && len(obj.Refunds.Data) > 0 {
			latest := obj.Refunds.Data[0]
			event.RefundID = latest.ID
		}
	case EventRefundUpdated:
		event.PaymentIntentID = obj.PaymentIntent
		event.RefundID = obj.ID
		status, err := mapRefundStatus(obj.Status)
		if err != nil {
			return nil, invalidEvent(err)
		}
		event.RefundStatus = status
	default:
		event.PaymentIntentID = obj.ID
	}

	if event.PaymentIntentID == "" {
		return nil, invalidEvent(fmt.Errorf("event %s carries no payment intent", raw.ID))
	}
	return event, nil
}

func invalidEvent(cause error) error {
	err := *model.ErrInvalidEvent
	err.Cause = cause
	return &err
}
