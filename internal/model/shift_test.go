package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveShiftKind(t *testing.T) {
	cases := []struct {
		start, end TimeOfDay
		want       ShiftKind
	}{
		{"07:00", "21:00", ShiftKindOpening},
		{"09:30", "17:30", ShiftKindOpening},
		{"06:59", "15:00", ShiftKindClosing},
		{"13:00", "21:01", ShiftKindClosing},
		{"22:00", "06:00", ShiftKindClosing},
		{"20:00", "07:30", ShiftKindClosing},
		{"08:00", "08:00", ShiftKindClosing},
		{"07:00:00", "21:00:00", ShiftKindOpening},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, DeriveShiftKind(c.start, c.end), "%s-%s", c.start, c.end)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("08:15:00")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay("08:15"), got)
	assert.Equal(t, 8*60+15, got.Minutes())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
	assert.False(t, TimeOfDay("nope").Valid())
}

func TestWorkShiftSwapStaff(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	a := &WorkShift{Base: Base{ID: uuid.New()}, StaffID: &alice, StartTime: "08:00", EndTime: "16:00"}
	b := &WorkShift{Base: Base{ID: uuid.New()}, StaffID: &bob, StartTime: "16:00", EndTime: "23:00"}

	a.SwapStaff(b)

	require.NotNil(t, a.StaffID)
	require.NotNil(t, b.StaffID)
	assert.Equal(t, bob, *a.StaffID)
	assert.Equal(t, alice, *b.StaffID)
	assert.Equal(t, b.ID, *a.SwappedWithID)
	assert.Equal(t, a.ID, *b.SwappedWithID)
	assert.Equal(t, ShiftKindOpening, a.Kind)
	assert.Equal(t, ShiftKindClosing, b.Kind)
}

func TestWorkShiftOvernightEnd(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s := &WorkShift{Date: day, StartTime: "22:00", EndTime: "06:00"}

	assert.Equal(t, day.Add(22*time.Hour), s.Start())
	assert.Equal(t, day.Add(30*time.Hour), s.End())

	s.Normalize()
	assert.Equal(t, ShiftKindClosing, s.Kind)
}

func TestWorkShiftOwnership(t *testing.T) {
	owner := uuid.New()
	s := &WorkShift{StaffID: &owner}

	assert.True(t, s.IsOwnedBy(owner))
	assert.False(t, s.IsOwnedBy(uuid.New()))
	assert.False(t, (&WorkShift{}).IsOwnedBy(owner))
}
