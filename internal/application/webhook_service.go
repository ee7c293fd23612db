package application

import (
	"context"
	"errors"
	"fmt"

	"shopify-embedded-app/internal/domain"
	"shopify-embedded-app/internal/infrastructure/metrics"
	"shopify-embedded-app/internal/ports"

	"github.com/rs/zerolog"
)

// WebhookService handles verified webhook deliveries
type WebhookService struct {
	deduper    ports.WebhookDeduper
	dispatcher *WebhookDispatcher
	repository ports.Repository
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewWebhookService creates a new webhook service. deduper, repository and m may be nil.
func NewWebhookService(
	deduper ports.WebhookDeduper,
	dispatcher *WebhookDispatcher,
	repository ports.Repository,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *WebhookService {
	return &WebhookService{
		deduper:    deduper,
		dispatcher: dispatcher,
		repository: repository,
		metrics:    m,
		logger:     logger,
	}
}

// Receive processes one delivery. A redelivered id returns
// domain.ErrDuplicateWebhook without running handlers again. When a handler
// fails the claim is released so Shopify's retry is processed.
func (s *WebhookService) Receive(ctx context.Context, event *domain.WebhookEvent) error {
	if event == nil || !event.Verified {
		return domain.ErrInvalidWebhook
	}

	if s.deduper != nil {
		first, err := s.deduper.Claim(ctx, event.ID)
		if err != nil {
			// fail open, a double delivery beats a lost one
			s.logger.Warn().Err(err).Str("webhookId", event.ID).Msg("Failed to claim webhook, processing anyway")
		} else if !first {
			s.logger.Info().
				Str("webhookId", event.ID).
				Str("topic", event.Topic).
				Str("shop", event.Shop).
				Msg("Duplicate webhook ignored")
			s.count(event, metrics.ResultDuplicate)
			return domain.ErrDuplicateWebhook
		}
	}

	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		s.logger.Error().
			Err(err).
			Str("webhookId", event.ID).
			Str("topic", event.Topic).
			Str("shop", event.Shop).
			Msg("Failed to dispatch webhook event")
		if s.deduper != nil {
			if rerr := s.deduper.Release(ctx, event.ID); rerr != nil {
				s.logger.Warn().Err(rerr).Str("webhookId", event.ID).Msg("Failed to release webhook claim")
			}
		}
		s.count(event, metrics.ResultFailure)
		return fmt.Errorf("failed to process webhook: %w", err)
	}

	if s.repository != nil {
		if err := s.repository.LogWebhook(ctx, event); err != nil {
			s.logger.Error().Err(err).Str("webhookId", event.ID).Msg("Failed to log webhook")
		}
	}

	s.count(event, metrics.ResultSuccess)
	return nil
}

// IsDuplicate reports whether err marks an already-processed delivery
func IsDuplicate(err error) bool {
	return errors.Is(err, domain.ErrDuplicateWebhook)
}

func (s *WebhookService) count(event *domain.WebhookEvent, result string) {
	if s.metrics != nil {
		s.metrics.WebhooksReceived.WithLabelValues(event.Topic, result).Inc()
	}
}
