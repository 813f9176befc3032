package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/apperror"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/events"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/observability"
)

// LogEventPublisher is a basic publisher that only logs events. It is used
// when no broker is configured.
type LogEventPublisher struct {
	logger zerolog.Logger
}

// NewLogEventPublisher constructs a logging publisher.
func NewLogEventPublisher(logger zerolog.Logger) *LogEventPublisher {
	return &LogEventPublisher{logger: logger.With().Str("component", "event_delivery").Logger()}
}

// Publish logs the event and returns nil to indicate success.
func (l *LogEventPublisher) Publish(ctx context.Context, event events.Event) error {
	l.logger.Info().
		Str("event_kind", string(event.Kind)).
		Uint("subject_id", event.SubjectID).
		Strs("fields", event.Changes.Fields()).
		Msg("workflow event recorded")
	return nil
}

// emitter hands workflow events to the notifier once the triggering state
// change has committed. Delivery failures are logged and counted, never returned.
type emitter struct {
	publisher events.Publisher
	logger    zerolog.Logger
}

func (e emitter) emit(ctx context.Context, event events.Event) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		failure := apperror.NotificationDelivery(err)
		observability.NotificationFailures().WithLabelValues(string(event.Kind)).Inc()
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.RecordError(failure)
		}
		e.logger.Warn().
			Err(failure).
			Str("event_kind", string(event.Kind)).
			Uint("subject_id", event.SubjectID).
			Msg("failed to publish workflow event")
	}
}

func lookupError(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(entity)
	}
	return err
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(apperror.KindOf(err)))
}
