package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/vetclinic-api/internal/email"
	"github.com/jwalitptl/vetclinic-api/internal/model"
	"github.com/jwalitptl/vetclinic-api/internal/repository"
	"github.com/jwalitptl/vetclinic-api/pkg/messaging"
	"github.com/jwalitptl/vetclinic-api/pkg/metrics"
)

// Service turns transfer events into emails for the staff member who has to act on them.
type Service struct {
	staff   repository.StaffRepository
	mailer  email.Service
	metrics *metrics.Metrics
}

func NewService(staff repository.StaffRepository, mailer email.Service, m *metrics.Metrics) *Service {
	return &Service{
		staff:   staff,
		mailer:  mailer,
		metrics: m,
	}
}

// HandleMessage is a messaging.Handler. Unknown event types are ignored.
func (s *Service) HandleMessage(ctx context.Context, msg messaging.Message) error {
	switch msg.Type {
	case model.EventTransferRequested, model.EventTransferAccepted, model.EventTransferRejected:
	default:
		return nil
	}

	var evt model.TransferEvent
	if err := msg.Decode(&evt); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", msg.Type, err)
	}

	recipient, subject, body := compose(msg.Type, evt)
	if recipient == uuid.Nil {
		s.outcome(metrics.OutcomeSkipped)
		return nil
	}

	staff, err := s.staff.Get(ctx, recipient)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn().Str("staff_id", recipient.String()).Str("event_type", msg.Type).Msg("notification recipient not in directory")
		s.outcome(metrics.OutcomeSkipped)
		return nil
	}
	if err != nil {
		s.outcome(metrics.OutcomeFailure)
		return fmt.Errorf("failed to look up staff %s: %w", recipient, err)
	}

	if err := s.mailer.SendCustom(ctx, staff.Email, subject, fmt.Sprintf("Hi %s,\n\n%s\n", staff.Name, body)); err != nil {
		s.outcome(metrics.OutcomeFailure)
		return err
	}
	s.outcome(metrics.OutcomeSuccess)
	return nil
}

// compose picks who hears about the event: the target's owner for new requests, the requester for answers.
func compose(eventType string, evt model.TransferEvent) (uuid.UUID, string, string) {
	switch eventType {
	case model.EventTransferRequested:
		if evt.TargetStaffID == nil {
			return uuid.Nil, "", ""
		}
		return *evt.TargetStaffID,
			"New shift transfer request",
			fmt.Sprintf("A colleague asked to swap their shift %s with your shift %s. Transfer request: %s.",
				evt.SourceShiftID, evt.TargetShiftID, evt.TransferID)
	case model.EventTransferAccepted:
		return evt.RequestingStaffID,
			"Shift transfer accepted",
			fmt.Sprintf("Your request %s was accepted. You now work shift %s.", evt.TransferID, evt.TargetShiftID)
	case model.EventTransferRejected:
		return evt.RequestingStaffID,
			"Shift transfer rejected",
			fmt.Sprintf("Your request %s was rejected. You keep shift %s.", evt.TransferID, evt.SourceShiftID)
	}
	return uuid.Nil, "", ""
}

func (s *Service) outcome(outcome string) {
	if s.metrics != nil {
		s.metrics.EmailsSent.WithLabelValues(outcome).Inc()
	}
}
