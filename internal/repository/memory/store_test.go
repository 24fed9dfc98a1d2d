package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/vetclinic-api/internal/model"
	"github.com/jwalitptl/vetclinic-api/internal/repository"
)

func newShift(t *testing.T, repo repository.ShiftRepository, clinicID uuid.UUID, staffID *uuid.UUID) *model.WorkShift {
	t.Helper()
	s := &model.WorkShift{
		ClinicID:  clinicID,
		StaffID:   staffID,
		Date:      time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
		StartTime: "08:00",
		EndTime:   "16:00",
	}
	require.NoError(t, repo.Create(context.Background(), s))
	return s
}

func TestTransferTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	shifts := NewShiftRepository(store)
	transfers := NewTransferRepository(store)

	alice, bob := uuid.New(), uuid.New()
	clinic := uuid.New()
	a := newShift(t, shifts, clinic, &alice)
	b := newShift(t, shifts, clinic, &bob)

	boom := errors.New("boom")
	err := transfers.WithTx(ctx, func(tx repository.TransferTx) error {
		locked, err := tx.GetShiftsForUpdate(ctx, a.ID, b.ID)
		require.NoError(t, err)
		locked[a.ID].SwapStaff(locked[b.ID])
		require.NoError(t, tx.SaveShift(ctx, locked[a.ID]))
		require.NoError(t, tx.SaveShift(ctx, locked[b.ID]))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := shifts.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOwnedBy(alice))
	assert.Nil(t, got.SwappedWithID)
}

func TestResolveTransferOnlyOnce(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	shifts := NewShiftRepository(store)
	transfers := NewTransferRepository(store)

	alice := uuid.New()
	clinic := uuid.New()
	a := newShift(t, shifts, clinic, &alice)
	b := newShift(t, shifts, clinic, nil)

	tr := &model.TransferRequest{
		RequestingStaffID: alice,
		SourceShiftID:     a.ID,
		TargetShiftID:     b.ID,
		Status:            model.TransferStatusPending,
		RequestedAt:       time.Now(),
	}
	require.NoError(t, transfers.Create(ctx, tr))

	resolve := func() error {
		return transfers.WithTx(ctx, func(tx repository.TransferTx) error {
			_, err := tx.ResolveTransfer(ctx, tr.ID, model.TransferStatusRejected, time.Now())
			return err
		})
	}
	require.NoError(t, resolve())
	assert.ErrorIs(t, resolve(), repository.ErrConditionFailed)
}

func TestAssignIfVacant(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	shifts := NewShiftRepository(store)
	s := newShift(t, shifts, uuid.New(), nil)

	first, second := uuid.New(), uuid.New()
	got, err := shifts.AssignIfVacant(ctx, s.ID, first)
	require.NoError(t, err)
	assert.True(t, got.IsOwnedBy(first))

	_, err = shifts.AssignIfVacant(ctx, s.ID, second)
	assert.ErrorIs(t, err, repository.ErrConditionFailed)

	_, err = shifts.AssignIfVacant(ctx, uuid.New(), second)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDiscountRedeemAndSweep(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	discounts := NewDiscountRepository(store)
	now := time.Now()

	code := &model.DiscountCode{
		ClinicID:      uuid.New(),
		Code:          "SPRING10",
		DiscountType:  model.DiscountTypeFixed,
		DiscountValue: 10,
		MaxUse:        1,
		IsActive:      true,
		StartDate:     now.Add(-time.Hour),
		EndDate:       now.Add(time.Hour),
	}
	require.NoError(t, discounts.Create(ctx, code))
	assert.ErrorIs(t, discounts.Create(ctx, &model.DiscountCode{Code: "SPRING10"}), repository.ErrDuplicate)

	redeemed, err := discounts.Redeem(ctx, code.ID, uuid.New(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, redeemed.UsedCount)
	assert.False(t, redeemed.IsActive)

	_, err = discounts.Redeem(ctx, code.ID, uuid.New(), now)
	assert.ErrorIs(t, err, repository.ErrConditionFailed)

	expired := &model.DiscountCode{
		Code:      "OLD",
		MaxUse:    5,
		IsActive:  true,
		StartDate: now.Add(-48 * time.Hour),
		EndDate:   now.Add(-24 * time.Hour),
	}
	require.NoError(t, discounts.Create(ctx, expired))

	n, err := discounts.DeactivateExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = discounts.DeactivateExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
