package discount

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/vetclinic-api/internal/model"
	"github.com/jwalitptl/vetclinic-api/internal/repository"
	"github.com/jwalitptl/vetclinic-api/internal/service"
	apperrors "github.com/jwalitptl/vetclinic-api/pkg/errors"
	"github.com/jwalitptl/vetclinic-api/pkg/lock"
	"github.com/jwalitptl/vetclinic-api/pkg/messaging"
	"github.com/jwalitptl/vetclinic-api/pkg/metrics"
	"github.com/jwalitptl/vetclinic-api/pkg/validator"
)

const (
	msgUsageLimit   = "usage limit reached"
	msgInactive     = "no longer valid"
	msgAlreadyUsed  = "already used"
	msgOutOfWindow  = "expired or not yet active"
	msgWrongClinic  = "not applicable to this clinic"
	msgSweepRunning = "sweep already running"

	defaultSweepLockKey = "vetclinic:discount-sweep"
	defaultSweepLockTTL = 10 * time.Minute
)

type DiscountServicer interface {
	CreateDiscountCode(ctx context.Context, clinicID uuid.UUID, req *model.CreateDiscountCodeRequest) (*model.DiscountCode, error)
	GetDiscountCode(ctx context.Context, clinicID, id uuid.UUID) (*model.DiscountCode, error)
	ListDiscountCodes(ctx context.Context, clinicID uuid.UUID) ([]*model.DiscountCode, error)
	DeleteDiscountCode(ctx context.Context, clinicID, id uuid.UUID) error
	Validate(ctx context.Context, code string, clinicID, userID uuid.UUID) (*model.DiscountCode, error)
	Apply(ctx context.Context, discount *model.DiscountCode, totalAmount float64, userID uuid.UUID) (*model.ApplyResult, error)
	ValidateAndApply(ctx context.Context, code string, clinicID uuid.UUID, totalAmount float64, userID uuid.UUID) (*model.ApplyResult, error)
	SweepExpiredCodes(ctx context.Context) (int64, error)
}

type Service struct {
	repo      repository.DiscountRepository
	validator validator.Validator
	publisher messaging.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time

	sweepMu sync.Mutex
	locker  lock.Locker
	lockKey string
	lockTTL time.Duration
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

// WithSweepLock makes the sweep take a distributed lease so only one process runs it at a time.
func WithSweepLock(locker lock.Locker, key string, ttl time.Duration) Option {
	return func(s *Service) {
		s.locker = locker
		if key != "" {
			s.lockKey = key
		}
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

func NewService(repo repository.DiscountRepository, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		validator: validator.New(),
		publisher: messaging.NopPublisher{},
		now:       time.Now,
		lockKey:   defaultSweepLockKey,
		lockTTL:   defaultSweepLockTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeCode is applied to codes on creation and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *Service) CreateDiscountCode(ctx context.Context, clinicID uuid.UUID, req *model.CreateDiscountCodeRequest) (*model.DiscountCode, error) {
	req.Code = NormalizeCode(req.Code)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := s.validateAmounts(req); err != nil {
		return nil, err
	}

	code := &model.DiscountCode{
		Base:              model.Base{ID: uuid.New()},
		ClinicID:          clinicID,
		Code:              req.Code,
		DiscountType:      req.DiscountType,
		DiscountValue:     req.DiscountValue,
		MaxDiscountAmount: req.MaxDiscountAmount,
		MaxUse:            req.MaxUse,
		UsedBy:            []string{},
		IsActive:          true,
		StartDate:         req.StartDate.UTC(),
		EndDate:           req.EndDate.UTC(),
	}
	if err := s.repo.Create(ctx, code); err != nil {
		return nil, service.MapRepoError("discount code", err)
	}

	log.Info().
		Str("discount_id", code.ID.String()).
		Str("clinic_id", clinicID.String()).
		Str("code", code.Code).
		Msg("discount code created")
	return code, nil
}

// validateAmounts enforces the rules that depend on the discount type.
func (s *Service) validateAmounts(req *model.CreateDiscountCodeRequest) error {
	switch req.DiscountType {
	case model.DiscountTypePercentage:
		if err := s.validator.ValidateVar("discount_value", req.DiscountValue, "gte=0,lte=100"); err != nil {
			return err
		}
		if req.MaxDiscountAmount <= 0 {
			return apperrors.NewBadRequest("max_discount_amount is required for percentage discounts", nil)
		}
	case model.DiscountTypeFixed:
		if err := s.validator.ValidateVar("discount_value", req.DiscountValue, "gt=0"); err != nil {
			return err
		}
		if req.MaxDiscountAmount != 0 {
			return apperrors.NewBadRequest("max_discount_amount only applies to percentage discounts", nil)
		}
	}
	return nil
}

func (s *Service) GetDiscountCode(ctx context.Context, clinicID, id uuid.UUID) (*model.DiscountCode, error) {
	code, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, service.MapRepoError("discount code", err)
	}
	if code.ClinicID != clinicID {
		return nil, apperrors.NewForbidden(msgWrongClinic)
	}
	return code, nil
}

func (s *Service) ListDiscountCodes(ctx context.Context, clinicID uuid.UUID) ([]*model.DiscountCode, error) {
	codes, err := s.repo.ListByClinic(ctx, clinicID)
	if err != nil {
		return nil, service.MapRepoError("discount codes", err)
	}
	return codes, nil
}

func (s *Service) DeleteDiscountCode(ctx context.Context, clinicID, id uuid.UUID) error {
	if _, err := s.GetDiscountCode(ctx, clinicID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return service.MapRepoError("discount code", err)
	}
	return nil
}

// Validate runs the applicability checks in order and reports the first that fails.
func (s *Service) Validate(ctx context.Context, code string, clinicID, userID uuid.UUID) (*model.DiscountCode, error) {
	discount, err := s.repo.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, service.MapRepoError("discount code", err)
	}
	if err := check(discount, clinicID, userID, s.now()); err != nil {
		return nil, err
	}
	return discount, nil
}

func check(d *model.DiscountCode, clinicID, userID uuid.UUID, now time.Time) error {
	switch {
	case d.ClinicID != clinicID:
		return apperrors.NewForbidden(msgWrongClinic)
	case d.IsExhausted():
		return apperrors.NewConflict(msgUsageLimit)
	case !d.IsActive:
		return apperrors.NewConflict(msgInactive)
	case d.HasBeenUsedBy(userID):
		return apperrors.NewConflict(msgAlreadyUsed)
	case !d.InWindow(now):
		return apperrors.NewConflict(msgOutOfWindow)
	}
	return nil
}

// Apply computes the discount for totalAmount and records the use atomically.
// The store only accepts the use while the code is still redeemable by userID.
func (s *Service) Apply(ctx context.Context, discount *model.DiscountCode, totalAmount float64, userID uuid.UUID) (*model.ApplyResult, error) {
	actual, final, err := discount.Calculate(totalAmount)
	if err != nil {
		s.count(metrics.OutcomeFailure)
		return nil, apperrors.NewBadRequest(err.Error(), err)
	}

	now := s.now()
	redeemed, err := s.repo.Redeem(ctx, discount.ID, userID, now)
	if errors.Is(err, repository.ErrConditionFailed) {
		s.count("conflict")
		return nil, s.explainRejection(ctx, discount, userID, now)
	}
	if err != nil {
		s.count(metrics.OutcomeFailure)
		return nil, service.MapRepoError("discount code", err)
	}

	s.count(metrics.OutcomeSuccess)
	if s.metrics != nil {
		s.metrics.DiscountAmount.Add(actual)
	}
	service.Publish(ctx, s.publisher, s.metrics, model.EventDiscountRedeemed, model.DiscountRedeemedEvent{
		DiscountID:     redeemed.ID,
		ClinicID:       redeemed.ClinicID,
		UserID:         userID,
		ActualDiscount: actual,
		Deactivated:    !redeemed.IsActive,
	})

	return &model.ApplyResult{
		TotalAmount:    totalAmount,
		FinalAmount:    final,
		Code:           redeemed.Code,
		DiscountType:   redeemed.DiscountType,
		DiscountValue:  redeemed.DiscountValue,
		ActualDiscount: actual,
	}, nil
}

// explainRejection reloads the code after a lost race and reports which check now fails.
func (s *Service) explainRejection(ctx context.Context, discount *model.DiscountCode, userID uuid.UUID, now time.Time) error {
	current, err := s.repo.Get(ctx, discount.ID)
	if err != nil {
		return service.MapRepoError("discount code", err)
	}
	if err := check(current, current.ClinicID, userID, now); err != nil {
		return err
	}
	return apperrors.NewConflict(msgUsageLimit)
}

// ValidateAndApply is the checkout flow: the validated record feeds straight into Apply.
func (s *Service) ValidateAndApply(ctx context.Context, code string, clinicID uuid.UUID, totalAmount float64, userID uuid.UUID) (*model.ApplyResult, error) {
	discount, err := s.Validate(ctx, code, clinicID, userID)
	if err != nil {
		s.count("rejected")
		return nil, err
	}
	return s.Apply(ctx, discount, totalAmount, userID)
}

// SweepExpiredCodes deactivates codes past their end date or usage cap.
// Overlapping runs fail with a Conflict instead of waiting.
func (s *Service) SweepExpiredCodes(ctx context.Context) (int64, error) {
	if !s.sweepMu.TryLock() {
		s.sweepOutcome(metrics.OutcomeSkipped)
		return 0, apperrors.NewConflict(msgSweepRunning)
	}
	defer s.sweepMu.Unlock()

	if s.locker != nil {
		lease, err := s.locker.Acquire(ctx, s.lockKey, s.lockTTL)
		if errors.Is(err, lock.ErrNotAcquired) {
			s.sweepOutcome(metrics.OutcomeSkipped)
			return 0, apperrors.NewConflict(msgSweepRunning)
		}
		if err != nil {
			s.sweepOutcome(metrics.OutcomeFailure)
			return 0, apperrors.NewInternal(err)
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := lease.Release(releaseCtx); err != nil {
				log.Warn().Err(err).Msg("failed to release sweep lock")
			}
		}()
	}

	now := s.now()
	n, err := s.repo.DeactivateExpired(ctx, now)
	if err != nil {
		s.sweepOutcome(metrics.OutcomeFailure)
		return 0, service.MapRepoError("discount codes", err)
	}

	s.sweepOutcome(metrics.OutcomeSuccess)
	if s.metrics != nil {
		s.metrics.SweepDeactivated.Add(float64(n))
	}
	log.Info().Int64("deactivated", n).Msg("discount sweep finished")

	if n > 0 {
		service.Publish(ctx, s.publisher, s.metrics, model.EventDiscountsSwept, model.DiscountsSweptEvent{
			Deactivated: n,
			RanAt:       now.UTC(),
		})
	}
	return n, nil
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.DiscountApplications.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) sweepOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.SweepRuns.WithLabelValues(outcome).Inc()
	}
}
