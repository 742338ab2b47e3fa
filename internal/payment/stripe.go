package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"kart-commerce/internal/config"
	"kart-commerce/internal/model"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// ProviderStripe is the configuration name of the Stripe gateway.
const ProviderStripe = "stripe"

// stripeIntent is the subset of a PaymentIntent object the gateway reads.
type stripeIntent struct {
	ID               string          `json:"id"`
	ClientSecret     string          `json:"client_secret"`
	Status           string          `json:"status"`
	Amount           int64           `json:"amount"`
	Currency         string          `json:"currency"`
	LastPaymentError *stripeAPIError `json:"last_payment_error"`
}

type stripeRefund struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type stripeAPIError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type stripeErrorBody struct {
	Error stripeAPIError `json:"error"`
}

// StripeGateway talks to a Stripe-compatible REST API.
type StripeGateway struct {
	client    *resty.Client
	publicKey string
	logger    zerolog.Logger
}

// NewStripeGateway creates a gateway from the payment configuration.
func NewStripeGateway(cfg config.PaymentConfig, logger zerolog.Logger) *StripeGateway {
	client := resty.New().
		SetBaseURL(cfg.APIURL).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.SecretKey).
		SetHeader("Accept", "application/json")

	return &StripeGateway{
		client:    client,
		publicKey: cfg.PublicKey,
		logger:    logger.With().Str("gateway", ProviderStripe).Logger(),
	}
}

// CreatePayment opens a PaymentIntent for the order.
func (g *StripeGateway) CreatePayment(ctx context.Context, input CreatePaymentInput) (*PaymentIntent, error) {
	form := map[string]string{
		"amount":                             strconv.FormatInt(input.Amount, 10),
		"currency":                           model.NormaliseCurrency(input.Currency),
		"description":                        input.Description,
		"metadata[order_id]":                 input.OrderID.String(),
		"metadata[user_id]":                  input.UserID,
		"automatic_payment_methods[enabled]": "true",
	}

	var intent stripeIntent
	req := g.client.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&intent).
		SetError(&stripeErrorBody{})
	if input.IdempotencyKey != "" {
		req.SetHeader("Idempotency-Key", input.IdempotencyKey)
	}

	resp, err := req.Post("/v1/payment_intents")
	if err := g.check(resp, err, "create payment intent"); err != nil {
		return nil, err
	}

	status, err := mapIntentStatus(&intent)
	if err != nil {
		return nil, err
	}

	g.logger.Info().
		Str("order_id", input.OrderID.String()).
		Str("payment_intent_id", intent.ID).
		Int64("amount", input.Amount).
		Str("currency", input.Currency).
		Msg("payment intent created")

	return &PaymentIntent{
		ProviderTransactionID: intent.ID,
		ClientSecret:          intent.ClientSecret,
		Status:                status,
	}, nil
}

// GetPaymentStatus retrieves a PaymentIntent.
func (g *StripeGateway) GetPaymentStatus(ctx context.Context, providerTransactionID string) (*StatusResult, error) {
	var intent stripeIntent
	resp, err := g.client.R().
		SetContext(ctx).
		SetPathParam("id", providerTransactionID).
		SetResult(&intent).
		SetError(&stripeErrorBody{}).
		Get("/v1/payment_intents/{id}")
	if err := g.check(resp, err, "retrieve payment intent"); err != nil {
		return nil, err
	}

	status, err := mapIntentStatus(&intent)
	if err != nil {
		return nil, err
	}

	return &StatusResult{
		Status:   status,
		Amount:   intent.Amount,
		Currency: intent.Currency,
	}, nil
}

// RefundPayment refunds a PaymentIntent, fully when no amount is given. A
// repeated key returns the refund created by the first request.
func (g *StripeGateway) RefundPayment(ctx context.Context, input RefundInput) (*Refund, error) {
	form := map[string]string{"payment_intent": input.ProviderTransactionID}
	if input.Amount != nil {
		form["amount"] = strconv.FormatInt(*input.Amount, 10)
	}

	var refund stripeRefund
	req := g.client.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&refund).
		SetError(&stripeErrorBody{})
	if input.IdempotencyKey != "" {
		req.SetHeader("Idempotency-Key", input.IdempotencyKey)
	}

	resp, err := req.Post("/v1/refunds")
	if err := g.check(resp, err, "create refund"); err != nil {
		return nil, err
	}

	// The refund exists at this point; an unrecognised status settles later
	// through the webhook.
	status, err := mapRefundStatus(refund.Status)
	if err != nil {
		g.logger.Warn().
			Err(err).
			Str("refund_id", refund.ID).
			Msg("unrecognised refund status, treating as pending")
		status = model.RefundStatusPending
	}

	g.logger.Info().
		Str("payment_intent_id", input.ProviderTransactionID).
		Str("refund_id", refund.ID).
		Str("status", string(status)).
		Msg("refund created")

	return &Refund{
		RefundID: refund.ID,
		Status:   status,
		Amount:   refund.Amount,
		Currency: refund.Currency,
	}, nil
}

// GetClientConfig returns the publishable key.
func (g *StripeGateway) GetClientConfig() ClientConfig {
	return ClientConfig{Provider: ProviderStripe, PublicKey: g.publicKey}
}

// check converts transport failures and non-2xx responses into provider errors.
// Transport failures, 429 and 5xx are retryable.
func (g *StripeGateway) check(resp *resty.Response, err error, op string) error {
	if err != nil {
		g.logger.Error().Err(err).Str("operation", op).Msg("payment provider unreachable")
		return model.NewPaymentProviderError(fmt.Sprintf("failed to %s", op), 0, err, true)
	}
	if !resp.IsError() {
		return nil
	}

	status := resp.StatusCode()
	message := fmt.Sprintf("failed to %s: provider returned %d", op, status)
	raw := errors.New(resp.String())
	if body, ok := resp.Error().(*stripeErrorBody); ok && body.Error.Message != "" {
		message = fmt.Sprintf("failed to %s: %s", op, body.Error.Message)
		raw = fmt.Errorf("%s (type=%s code=%s)", body.Error.Message, body.Error.Type, body.Error.Code)
	}

	retryable := status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
	g.logger.Warn().
		Str("operation", op).
		Int("status_code", status).
		Bool("retryable", retryable).
		Msg("payment provider rejected request")

	return model.NewPaymentProviderError(message, status, raw, retryable)
}

func mapIntentStatus(intent *stripeIntent) (model.PaymentStatus, error) {
	switch intent.Status {
	case "requires_payment_method":
		if intent.LastPaymentError != nil {
			return model.PaymentStatusFailed, nil
		}
		return model.PaymentStatusRequiresAction, nil
	case "requires_confirmation", "requires_action":
		return model.PaymentStatusRequiresAction, nil
	case "processing", "requires_capture":
		return model.PaymentStatusProcessing, nil
	case "succeeded":
		return model.PaymentStatusSucceeded, nil
	case "canceled":
		return model.PaymentStatusCanceled, nil
	default:
		return "", model.NewPaymentProviderError(
			fmt.Sprintf("unknown payment intent status %q", intent.Status), http.StatusOK, nil, false)
	}
}

func mapRefundStatus(status string) (model.RefundStatus, error) {
	switch status {
	case "pending", "requires_action":
		return model.RefundStatusPending, nil
	case "succeeded":
		return model.RefundStatusSucceeded, nil
	case "failed":
		return model.RefundStatusFailed, nil
	case "canceled":
		return model.RefundStatusCanceled, nil
	default:
		return "", model.NewPaymentProviderError(
			fmt.Sprintf("unknown refund status %q", status), http.StatusOK, nil, false)
	}
}
