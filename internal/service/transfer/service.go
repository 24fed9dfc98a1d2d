package transfer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/vetclinic-api/internal/model"
	"github.com/jwalitptl/vetclinic-api/internal/repository"
	"github.com/jwalitptl/vetclinic-api/internal/service"
	apperrors "github.com/jwalitptl/vetclinic-api/pkg/errors"
	"github.com/jwalitptl/vetclinic-api/pkg/messaging"
	"github.com/jwalitptl/vetclinic-api/pkg/metrics"
)

type TransferServicer interface {
	CreateTransferRequest(ctx context.Context, requesterID, sourceShiftID, targetShiftID uuid.UUID) (*model.TransferRequest, error)
	AcceptTransferRequest(ctx context.Context, responderID, transferID uuid.UUID) (*model.TransferRequest, error)
	RejectTransferRequest(ctx context.Context, responderID, transferID uuid.UUID) (*model.TransferRequest, error)
	ListMyTransferRequests(ctx context.Context, userID uuid.UUID) ([]*model.TransferRequest, error)
	ListSwappableShifts(ctx context.Context, currentShiftID, excludeUserID uuid.UUID) ([]*model.WorkShift, error)
}

type Service struct {
	shifts    repository.ShiftRepository
	transfers repository.TransferRepository
	publisher messaging.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

type Option func(*Service)

func WithPublisher(p messaging.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(shifts repository.ShiftRepository, transfers repository.TransferRepository, opts ...Option) *Service {
	s := &Service{
		shifts:    shifts,
		transfers: transfers,
		publisher: messaging.NopPublisher{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTransferRequest records a pending swap proposal between two shifts of the same clinic.
// Only the source shift's owner may raise it; the target's owner is checked when the request is answered.
func (s *Service) CreateTransferRequest(ctx context.Context, requesterID, sourceShiftID, targetShiftID uuid.UUID) (*model.TransferRequest, error) {
	source, err := s.shifts.Get(ctx, sourceShiftID)
	if err != nil {
		return nil, service.MapRepoError("source shift", err)
	}
	target, err := s.shifts.Get(ctx, targetShiftID)
	if err != nil {
		return nil, service.MapRepoError("target shift", err)
	}
	if !source.IsOwnedBy(requesterID) {
		s.count("create", outcomeForbidden)
		return nil, apperrors.NewForbidden("you are not assigned to the source shift")
	}
	if sourceShiftID == targetShiftID {
		s.count("create", outcomeConflict)
		return nil, apperrors.NewConflict("cannot transfer a shift to itself")
	}
	if source.ClinicID != target.ClinicID {
		s.count("create", outcomeForbidden)
		return nil, apperrors.NewForbidden("target shift belongs to another clinic")
	}

	transfer := &model.TransferRequest{
		ID:                uuid.New(),
		RequestingStaffID: requesterID,
		SourceShiftID:     sourceShiftID,
		TargetShiftID:     targetShiftID,
		Status:            model.TransferStatusPending,
		RequestedAt:       s.now().UTC(),
	}
	if err := s.transfers.Create(ctx, transfer); err != nil {
		return nil, service.MapRepoError("transfer request", err)
	}

	s.count("create", metrics.OutcomeSuccess)
	service.Publish(ctx, s.publisher, s.metrics, model.EventTransferRequested, transferEvent(transfer, target.StaffID))
	return transfer, nil
}

// AcceptTransferRequest swaps the two shifts' assignees and closes the request in one unit of work.
func (s *Service) AcceptTransferRequest(ctx context.Context, responderID, transferID uuid.UUID) (*model.TransferRequest, error) {
	var (
		resolved   *model.TransferRequest
		prevTarget *uuid.UUID
	)

	err := s.transfers.WithTx(ctx, func(tx repository.TransferTx) error {
		transfer, err := s.lockPending(ctx, tx, transferID)
		if err != nil {
			return err
		}
		if transfer.SourceShiftID == transfer.TargetShiftID {
			return apperrors.NewConflict("source and target shift are the same")
		}

		shifts, err := tx.GetShiftsForUpdate(ctx, transfer.SourceShiftID, transfer.TargetShiftID)
		if err != nil {
			return service.MapRepoError("shift", err)
		}
		source, target := shifts[transfer.SourceShiftID], shifts[transfer.TargetShiftID]
		if !target.IsOwnedBy(responderID) {
			return apperrors.NewForbidden("you are not assigned to the target shift")
		}
		if !source.IsOwnedBy(transfer.RequestingStaffID) {
			return apperrors.NewConflict("source shift is no longer held by the requester")
		}
		prevTarget = target.StaffID

		source.SwapStaff(target)
		if err := tx.SaveShift(ctx, source); err != nil {
			return service.MapRepoError("source shift", err)
		}
		if err := tx.SaveShift(ctx, target); err != nil {
			return service.MapRepoError("target shift", err)
		}

		resolved, err = s.resolve(ctx, tx, transfer.ID, model.TransferStatusAccepted)
		return err
	})
	if err != nil {
		s.count("accept", outcomeOf(err))
		return nil, err
	}

	log.Info().
		Str("transfer_id", resolved.ID.String()).
		Str("source_shift_id", resolved.SourceShiftID.String()).
		Str("target_shift_id", resolved.TargetShiftID.String()).
		Msg("shift transfer accepted")

	s.count("accept", metrics.OutcomeSuccess)
	service.Publish(ctx, s.publisher, s.metrics, model.EventTransferAccepted, transferEvent(resolved, prevTarget))
	return resolved, nil
}

// RejectTransferRequest closes the request without touching either shift.
func (s *Service) RejectTransferRequest(ctx context.Context, responderID, transferID uuid.UUID) (*model.TransferRequest, error) {
	var (
		resolved   *model.TransferRequest
		prevTarget *uuid.UUID
	)

	err := s.transfers.WithTx(ctx, func(tx repository.TransferTx) error {
		transfer, err := s.lockPending(ctx, tx, transferID)
		if err != nil {
			return err
		}

		shifts, err := tx.GetShiftsForUpdate(ctx, transfer.TargetShiftID)
		if err != nil {
			return service.MapRepoError("target shift", err)
		}
		target := shifts[transfer.TargetShiftID]
		if !target.IsOwnedBy(responderID) {
			return apperrors.NewForbidden("you are not assigned to the target shift")
		}
		prevTarget = target.StaffID

		resolved, err = s.resolve(ctx, tx, transfer.ID, model.TransferStatusRejected)
		return err
	})
	if err != nil {
		s.count("reject", outcomeOf(err))
		return nil, err
	}

	s.count("reject", metrics.OutcomeSuccess)
	service.Publish(ctx, s.publisher, s.metrics, model.EventTransferRejected, transferEvent(resolved, prevTarget))
	return resolved, nil
}

// ListMyTransferRequests returns pending requests the user raised or must answer, newest first.
func (s *Service) ListMyTransferRequests(ctx context.Context, userID uuid.UUID) ([]*model.TransferRequest, error) {
	transfers, err := s.transfers.ListPendingForStaff(ctx, userID)
	if err != nil {
		return nil, service.MapRepoError("transfer requests", err)
	}
	return transfers, nil
}

// ListSwappableShifts returns shifts in the current shift's clinic held by someone other than excludeUserID.
func (s *Service) ListSwappableShifts(ctx context.Context, currentShiftID, excludeUserID uuid.UUID) ([]*model.WorkShift, error) {
	current, err := s.shifts.Get(ctx, currentShiftID)
	if err != nil {
		return nil, service.MapRepoError("shift", err)
	}

	shifts, err := s.shifts.ListSwappable(ctx, current.ClinicID, currentShiftID, excludeUserID)
	if err != nil {
		return nil, service.MapRepoError("shifts", err)
	}
	return shifts, nil
}

func (s *Service) lockPending(ctx context.Context, tx repository.TransferTx, id uuid.UUID) (*model.TransferRequest, error) {
	transfer, err := tx.GetTransferForUpdate(ctx, id)
	if err != nil {
		return nil, service.MapRepoError("transfer request", err)
	}
	if transfer.IsTerminal() {
		return nil, apperrors.NewConflict("transfer request is already " + string(transfer.Status))
	}
	return transfer, nil
}

func (s *Service) resolve(ctx context.Context, tx repository.TransferTx, id uuid.UUID, status model.TransferStatus) (*model.TransferRequest, error) {
	resolved, err := tx.ResolveTransfer(ctx, id, status, s.now().UTC())
	if errors.Is(err, repository.ErrConditionFailed) {
		return nil, apperrors.NewConflict("transfer request is no longer pending")
	}
	if err != nil {
		return nil, service.MapRepoError("transfer request", err)
	}
	return resolved, nil
}

const (
	outcomeForbidden = "forbidden"
	outcomeConflict  = "conflict"
)

func outcomeOf(err error) string {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrForbidden:
		return outcomeForbidden
	case apperrors.ErrConflict:
		return outcomeConflict
	case apperrors.ErrNotFound:
		return "not_found"
	default:
		return metrics.OutcomeFailure
	}
}

func (s *Service) count(action, outcome string) {
	if s.metrics != nil {
		s.metrics.TransferRequests.WithLabelValues(action, outcome).Inc()
	}
}

func transferEvent(t *model.TransferRequest, targetStaffID *uuid.UUID) model.TransferEvent {
	return model.TransferEvent{
		TransferID:        t.ID,
		Status:            t.Status,
		RequestingStaffID: t.RequestingStaffID,
		SourceShiftID:     t.SourceShiftID,
		TargetShiftID:     t.TargetShiftID,
		TargetStaffID:     targetStaffID,
	}
}
