package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"shopify-embedded-app/internal/domain"

	"github.com/rs/zerolog"
)

// WebhookHandler processes webhook events for the topics it accepts
type WebhookHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookDispatcher routes verified webhook events to their handlers
type WebhookDispatcher struct {
	handlers []WebhookHandler
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates a dispatcher with no handlers
func NewWebhookDispatcher(logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{logger: logger}
}

// RegisterHandler adds a handler
func (d *WebhookDispatcher) RegisterHandler(h WebhookHandler) {
	d.handlers = append(d.handlers, h)
}

// Dispatch runs every handler that accepts the event's topic and joins their
// errors. A verified delivery no handler accepts is still logged once.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) error {
	var errs []error
	handled := 0
	for _, h := range d.handlers {
		if !h.CanHandle(event.Topic) {
			continue
		}
		handled++
		if err := h.Handle(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", h, err))
		}
	}

	if handled == 0 {
		log := d.logger.Info().
			Str("webhookId", event.ID).
			Str("topic", event.Topic).
			Str("shop", event.Shop).
			Str("apiVersion", event.APIVersion)
		if json.Valid(event.Payload) {
			log = log.RawJSON("payload", event.Payload)
		} else {
			log = log.Str("payload", string(event.Payload))
		}
		log.Msg("received webhook")
	}
	return errors.Join(errs...)
}
