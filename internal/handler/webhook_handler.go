package handler

import (
	"errors"
	"io"
	"net/http"

	"kart-commerce/internal/model"
	"kart-commerce/internal/payment"
	"kart-commerce/internal/service"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// maxWebhookBytes bounds provider event payloads.
const maxWebhookBytes = 64 << 10

// WebhookHandler receives provider events. Lock conflicts are retried in
// process; every other failure is returned so the provider redelivers.
type WebhookHandler struct {
	service    service.WebhookService
	maxRetries uint64
	newBackOff func() backoff.BackOff
	logger     zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(service service.WebhookService, maxRetries int, logger zerolog.Logger) *WebhookHandler {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &WebhookHandler{
		service:    service,
		maxRetries: uint64(maxRetries),
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		logger:     logger.With().Str("handler", "webhook").Logger(),
	}
}

type webhookAck struct {
	Received bool `json:"received"`
}

// Handle handles POST /webhooks/payments requests.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, r, model.NewDomainError(model.ErrCodeInvalidEvent, "unreadable event payload"), h.logger)
		return
	}
	signature := r.Header.Get(payment.SignatureHeaderName)

	attempt := 0
	operation := func() error {
		attempt++
		err := h.service.HandleProviderEvent(r.Context(), payload, signature)
		if err == nil {
			return nil
		}
		if model.KindOf(err) != model.KindConflict {
			return backoff.Permanent(err)
		}
		h.logger.Warn().Err(err).Int("attempt", attempt).Msg("webhook conflicted, retrying")
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(h.newBackOff(), h.maxRetries), r.Context())
	if err := backoff.Retry(operation, b); err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, webhookAck{Received: true})
}
