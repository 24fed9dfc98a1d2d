package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscountCalculate(t *testing.T) {
	t.Run("percentage is capped", func(t *testing.T) {
		d := &DiscountCode{DiscountType: DiscountTypePercentage, DiscountValue: 20, MaxDiscountAmount: 50000}

		discount, final, err := d.Calculate(1000000)
		require.NoError(t, err)
		assert.Equal(t, 50000.0, discount)
		assert.Equal(t, 950000.0, final)
	})

	t.Run("percentage below cap", func(t *testing.T) {
		d := &DiscountCode{DiscountType: DiscountTypePercentage, DiscountValue: 10, MaxDiscountAmount: 50000}

		discount, final, err := d.Calculate(200000)
		require.NoError(t, err)
		assert.Equal(t, 20000.0, discount)
		assert.Equal(t, 180000.0, final)
	})

	t.Run("fixed", func(t *testing.T) {
		d := &DiscountCode{DiscountType: DiscountTypeFixed, DiscountValue: 15000}

		discount, final, err := d.Calculate(20000)
		require.NoError(t, err)
		assert.Equal(t, 15000.0, discount)
		assert.Equal(t, 5000.0, final)
	})

	t.Run("fixed exceeding total", func(t *testing.T) {
		d := &DiscountCode{DiscountType: DiscountTypeFixed, DiscountValue: 30000}

		_, _, err := d.Calculate(20000)
		assert.ErrorIs(t, err, ErrDiscountExceedsTotal)
	})

	t.Run("non positive total", func(t *testing.T) {
		d := &DiscountCode{DiscountType: DiscountTypeFixed, DiscountValue: 1}

		_, _, err := d.Calculate(0)
		assert.ErrorIs(t, err, ErrNonPositiveTotal)
		_, _, err = d.Calculate(-5)
		assert.ErrorIs(t, err, ErrNonPositiveTotal)
	})
}

func TestDiscountRedeem(t *testing.T) {
	now := time.Now()
	user := uuid.New()
	d := &DiscountCode{MaxUse: 2, IsActive: true}

	d.Redeem(user, now)
	assert.Equal(t, 1, d.UsedCount)
	assert.True(t, d.IsActive)
	assert.True(t, d.HasBeenUsedBy(user))

	d.Redeem(uuid.New(), now)
	assert.Equal(t, 2, d.UsedCount)
	assert.False(t, d.IsActive)
	assert.True(t, d.IsExhausted())
}

func TestDiscountWindowAndSweepPredicate(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	d := &DiscountCode{
		MaxUse:    5,
		IsActive:  true,
		StartDate: now.Add(-time.Hour),
		EndDate:   now,
	}

	assert.True(t, d.InWindow(now), "end date is inclusive")
	assert.False(t, d.InWindow(d.StartDate), "start date is exclusive")
	assert.False(t, d.ShouldDeactivate(now))
	assert.True(t, d.ShouldDeactivate(now.Add(time.Second)))

	d.UsedCount = 5
	assert.True(t, d.ShouldDeactivate(now))

	d.IsActive = false
	assert.False(t, d.ShouldDeactivate(now.Add(time.Hour)))
}
