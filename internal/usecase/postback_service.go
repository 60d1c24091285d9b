package usecase

import (
	"context"

	"postbackbot/internal/domain"
	"postbackbot/pkg/logger"
	"postbackbot/pkg/metrics"
)

// PostbackService turns tracker postbacks into chat notifications.
type PostbackService struct {
	normalizer *Normalizer
	renderer   *Renderer
	dispatcher *Dispatcher
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewPostbackService(
	normalizer *Normalizer,
	renderer *Renderer,
	dispatcher *Dispatcher,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *PostbackService {
	return &PostbackService{
		normalizer: normalizer,
		renderer:   renderer,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// HandlePostback normalizes, renders and delivers one postback. Duplicate
// postbacks are delivered again; there is no idempotency key to dedupe on.
func (s *PostbackService) HandlePostback(ctx context.Context, raw domain.RawPayload) domain.DeliveryOutcome {
	params, encoding := s.normalizer.Decode(raw)
	event := s.normalizer.Build(params)
	s.metrics.RecordPostback(raw.Method, string(encoding))

	log := s.logger.WithContext(ctx)
	log.WithFields(map[string]any{
		"encoding": encoding,
		"sub_id":   event.SubID,
		"status":   event.Status,
		"campaign": event.Campaign,
	}).Info("Postback received")

	outcome := s.dispatcher.DeliverDefault(ctx, s.renderer.RenderEvent(event))
	s.metrics.RecordNotification("event", outcome.OK)

	if !outcome.OK {
		log.WithField("details", outcome.Details).Error("Postback notification failed")
	}

	return outcome
}
