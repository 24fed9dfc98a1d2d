package shift

import (
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/vetclinic-api/internal/model"
	"github.com/jwalitptl/vetclinic-api/internal/repository"
	"github.com/jwalitptl/vetclinic-api/internal/service"
	apperrors "github.com/jwalitptl/vetclinic-api/pkg/errors"
	"github.com/jwalitptl/vetclinic-api/pkg/metrics"
	"github.com/jwalitptl/vetclinic-api/pkg/validator"
)

const (
	dateLayout     = "2006-01-02"
	calendarProdID = "-//vetclinic//shifts//EN"
	// maxCalendarRange bounds a single export.
	maxCalendarRange = 366 * 24 * time.Hour
)

type ShiftServicer interface {
	CreateShift(ctx context.Context, clinicID uuid.UUID, req *model.CreateShiftRequest) (*model.WorkShift, error)
	GetShift(ctx context.Context, clinicID, id uuid.UUID) (*model.WorkShift, error)
	ListShifts(ctx context.Context, filters *model.ShiftFilters) ([]*model.WorkShift, error)
	UpdateShiftTimes(ctx context.Context, clinicID, id uuid.UUID, req *model.UpdateShiftRequest) (*model.WorkShift, error)
	DeleteShift(ctx context.Context, clinicID, id uuid.UUID) error
	ClaimShift(ctx context.Context, staffID, clinicID, id uuid.UUID) (*model.WorkShift, error)
	ExportCalendar(ctx context.Context, clinicID, staffID uuid.UUID, from, to time.Time) (string, error)
}

type Service struct {
	repo      repository.ShiftRepository
	validator validator.Validator
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(repo repository.ShiftRepository, m *metrics.Metrics) *Service {
	return &Service{
		repo:      repo,
		validator: validator.New(),
		metrics:   m,
		now:       time.Now,
	}
}

func (s *Service) CreateShift(ctx context.Context, clinicID uuid.UUID, req *model.CreateShiftRequest) (*model.WorkShift, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, apperrors.NewBadRequest("date must be YYYY-MM-DD", err)
	}
	start, end, err := parseTimes(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	shift := &model.WorkShift{
		Base:      model.Base{ID: uuid.New()},
		ClinicID:  clinicID,
		StaffID:   req.StaffID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
	}
	if err := s.repo.Create(ctx, shift); err != nil {
		return nil, service.MapRepoError("shift", err)
	}
	return shift, nil
}

func (s *Service) GetShift(ctx context.Context, clinicID, id uuid.UUID) (*model.WorkShift, error) {
	shift, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, service.MapRepoError("shift", err)
	}
	if shift.ClinicID != clinicID {
		return nil, apperrors.NewForbidden("shift belongs to another clinic")
	}
	return shift, nil
}

func (s *Service) ListShifts(ctx context.Context, filters *model.ShiftFilters) ([]*model.WorkShift, error) {
	if !filters.Range.From.IsZero() && !filters.Range.To.IsZero() && filters.Range.To.Before(filters.Range.From) {
		return nil, apperrors.NewBadRequest("to must not be before from", nil)
	}
	shifts, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, service.MapRepoError("shifts", err)
	}
	return shifts, nil
}

// UpdateShiftTimes changes the hours of a shift; its kind follows the new hours.
func (s *Service) UpdateShiftTimes(ctx context.Context, clinicID, id uuid.UUID, req *model.UpdateShiftRequest) (*model.WorkShift, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	start, end, err := parseTimes(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	shift, err := s.GetShift(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	shift.StartTime = start
	shift.EndTime = end
	if err := s.repo.Update(ctx, shift); err != nil {
		return nil, service.MapRepoError("shift", err)
	}
	return shift, nil
}

func (s *Service) DeleteShift(ctx context.Context, clinicID, id uuid.UUID) error {
	if _, err := s.GetShift(ctx, clinicID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return service.MapRepoError("shift", err)
	}
	return nil
}

// ClaimShift assigns a vacant shift to the caller. Only one concurrent claimant can win.
func (s *Service) ClaimShift(ctx context.Context, staffID, clinicID, id uuid.UUID) (*model.WorkShift, error) {
	if _, err := s.GetShift(ctx, clinicID, id); err != nil {
		s.claimOutcome(apperrors.CodeOf(err))
		return nil, err
	}

	shift, err := s.repo.AssignIfVacant(ctx, id, staffID)
	if errors.Is(err, repository.ErrConditionFailed) {
		s.claimOutcome(apperrors.ErrConflict)
		return nil, apperrors.NewConflict("shift is already assigned")
	}
	if err != nil {
		s.claimOutcome(apperrors.ErrInternal)
		return nil, service.MapRepoError("shift", err)
	}

	s.claimOutcome(0)
	log.Info().
		Str("shift_id", id.String()).
		Str("staff_id", staffID.String()).
		Msg("shift claimed")
	return shift, nil
}

// ExportCalendar renders the staff member's shifts between from and to as an iCalendar feed.
func (s *Service) ExportCalendar(ctx context.Context, clinicID, staffID uuid.UUID, from, to time.Time) (string, error) {
	if from.IsZero() {
		from = s.now().UTC().Truncate(24 * time.Hour)
	}
	if to.IsZero() {
		to = from.Add(30 * 24 * time.Hour)
	}
	if to.Before(from) {
		return "", apperrors.NewBadRequest("to must not be before from", nil)
	}
	if to.Sub(from) > maxCalendarRange {
		return "", apperrors.NewBadRequest("calendar range must not exceed one year", nil)
	}

	shifts, err := s.repo.List(ctx, &model.ShiftFilters{
		ClinicID: clinicID,
		StaffID:  &staffID,
		Range:    model.DateRange{From: from, To: to},
	})
	if err != nil {
		return "", service.MapRepoError("shifts", err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProdID)
	cal.SetXWRCalName("Work shifts")

	stamp := s.now().UTC()
	for _, sh := range shifts {
		event := cal.AddEvent(sh.ID.String() + "@vetclinic")
		event.SetDtStampTime(stamp)
		event.SetModifiedAt(sh.UpdatedAt)
		event.SetStartAt(sh.Start())
		event.SetEndAt(sh.End())
		event.SetSummary(fmt.Sprintf("%s shift", sh.Kind))
		event.SetDescription(fmt.Sprintf("%s-%s", sh.StartTime, sh.EndTime))
	}
	return cal.Serialize(), nil
}

func parseTimes(startRaw, endRaw string) (model.TimeOfDay, model.TimeOfDay, error) {
	start, err := model.ParseTimeOfDay(startRaw)
	if err != nil {
		return "", "", apperrors.NewBadRequest("start_time must be HH:MM", err)
	}
	end, err := model.ParseTimeOfDay(endRaw)
	if err != nil {
		return "", "", apperrors.NewBadRequest("end_time must be HH:MM", err)
	}
	if start == end {
		return "", "", apperrors.NewBadRequest("start_time and end_time must differ", nil)
	}
	return start, end, nil
}

func (s *Service) claimOutcome(code apperrors.ErrorCode) {
	if s.metrics == nil {
		return
	}
	outcome := metrics.OutcomeSuccess
	switch code {
	case 0:
	case apperrors.ErrConflict:
		outcome = "conflict"
	case apperrors.ErrForbidden:
		outcome = "forbidden"
	case apperrors.ErrNotFound:
		outcome = "not_found"
	default:
		outcome = metrics.OutcomeFailure
	}
	s.metrics.ShiftClaims.WithLabelValues(outcome).Inc()
}
