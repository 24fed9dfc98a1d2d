package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/vetclinic-api/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrConditionFailed is returned when a conditional update matched no row.
	ErrConditionFailed = errors.New("condition not met")
)

// All repository interfaces in one file
type (
	ShiftRepository interface {
		Create(ctx context.Context, shift *model.WorkShift) error
		Get(ctx context.Context, id uuid.UUID) (*model.WorkShift, error)
		Update(ctx context.Context, shift *model.WorkShift) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.ShiftFilters) ([]*model.WorkShift, error)
		// AssignIfVacant sets staff_id only while it is still NULL.
		AssignIfVacant(ctx context.Context, id, staffID uuid.UUID) (*model.WorkShift, error)
		ListSwappable(ctx context.Context, clinicID, currentShiftID, excludeStaffID uuid.UUID) ([]*model.WorkShift, error)
	}

	TransferRepository interface {
		Create(ctx context.Context, transfer *model.TransferRequest) error
		Get(ctx context.Context, id uuid.UUID) (*model.TransferRequest, error)
		// ListPendingForStaff returns pending requests raised by staffID or targeting a shift staffID holds.
		ListPendingForStaff(ctx context.Context, staffID uuid.UUID) ([]*model.TransferRequest, error)
		// WithTx runs fn as one unit of work; any error rolls everything back.
		WithTx(ctx context.Context, fn func(tx TransferTx) error) error
	}

	// TransferTx is the view of the store available inside a transfer unit of work.
	TransferTx interface {
		GetTransferForUpdate(ctx context.Context, id uuid.UUID) (*model.TransferRequest, error)
		GetShiftsForUpdate(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*model.WorkShift, error)
		SaveShift(ctx context.Context, shift *model.WorkShift) error
		// ResolveTransfer moves a pending request to status; ErrConditionFailed if it was no longer pending.
		ResolveTransfer(ctx context.Context, id uuid.UUID, status model.TransferStatus, at time.Time) (*model.TransferRequest, error)
	}

	DiscountRepository interface {
		Create(ctx context.Context, code *model.DiscountCode) error
		Get(ctx context.Context, id uuid.UUID) (*model.DiscountCode, error)
		GetByCode(ctx context.Context, code string) (*model.DiscountCode, error)
		ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.DiscountCode, error)
		Delete(ctx context.Context, id uuid.UUID) error
		// Redeem atomically records a use by userID; ErrConditionFailed if the code is no longer redeemable.
		Redeem(ctx context.Context, id, userID uuid.UUID, now time.Time) (*model.DiscountCode, error)
		DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
	}

	StaffRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Staff, error)
	}
)
