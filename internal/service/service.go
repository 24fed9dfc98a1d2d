// Package service holds helpers shared by the domain services.
package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/vetclinic-api/internal/repository"
	apperrors "github.com/jwalitptl/vetclinic-api/pkg/errors"
	"github.com/jwalitptl/vetclinic-api/pkg/messaging"
	"github.com/jwalitptl/vetclinic-api/pkg/metrics"
)

// MapRepoError turns repository sentinels into the AppError taxonomy.
// AppErrors pass through untouched.
func MapRepoError(resource string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, err)
	case errors.Is(err, repository.ErrDuplicate):
		return &apperrors.AppError{Code: apperrors.ErrConflict, Message: resource + " already exists", Err: err}
	default:
		return apperrors.NewInternal(err)
	}
}

// Publish sends an event after a commit. Failures are logged and counted, never returned.
func Publish(ctx context.Context, pub messaging.Publisher, m *metrics.Metrics, eventType string, payload interface{}) {
	if pub == nil {
		return
	}
	outcome := metrics.OutcomeSuccess
	if err := pub.Publish(ctx, eventType, payload); err != nil {
		outcome = metrics.OutcomeFailure
		log.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
	if m != nil {
		m.EventsPublished.WithLabelValues(eventType, outcome).Inc()
	}
}
