package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ShiftKind string

const (
	ShiftKindOpening ShiftKind = "opening"
	ShiftKindClosing ShiftKind = "closing"
)

// Opening shifts must start at or after OpeningStart and end at or before OpeningEnd.
const (
	OpeningStart TimeOfDay = "07:00"
	OpeningEnd   TimeOfDay = "21:00"
)

// TimeOfDay is a wall-clock time in HH:MM form.
type TimeOfDay string

// ParseTimeOfDay accepts HH:MM or HH:MM:SS and normalises to HH:MM.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay(t.Format("15:04")), nil
		}
	}
	return "", fmt.Errorf("invalid time of day %q", s)
}

// Minutes returns minutes since midnight, or -1 when the value is malformed.
func (t TimeOfDay) Minutes() int {
	parsed, err := ParseTimeOfDay(string(t))
	if err != nil {
		return -1
	}
	p, _ := time.Parse("15:04", string(parsed))
	return p.Hour()*60 + p.Minute()
}

func (t TimeOfDay) Valid() bool {
	return t.Minutes() >= 0
}

func (t TimeOfDay) String() string {
	return string(t)
}

// DeriveShiftKind is the only source of a shift's kind. A shift that runs past midnight is always closing.
func DeriveShiftKind(start, end TimeOfDay) ShiftKind {
	s, e := start.Minutes(), end.Minutes()
	if e > s && s >= OpeningStart.Minutes() && e <= OpeningEnd.Minutes() {
		return ShiftKindOpening
	}
	return ShiftKindClosing
}

type WorkShift struct {
	Base
	ClinicID      uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	StaffID       *uuid.UUID `db:"staff_id" json:"staff_id,omitempty"`
	Date          time.Time  `db:"shift_date" json:"date"`
	StartTime     TimeOfDay  `db:"start_time" json:"start_time"`
	EndTime       TimeOfDay  `db:"end_time" json:"end_time"`
	Kind          ShiftKind  `db:"shift_kind" json:"shift_kind"`
	SwappedWithID *uuid.UUID `db:"swapped_with_id" json:"swapped_with_id,omitempty"`
}

// Normalize recomputes derived fields. Every save path calls it.
func (s *WorkShift) Normalize() {
	s.Kind = DeriveShiftKind(s.StartTime, s.EndTime)
	s.Date = time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), 0, 0, 0, 0, time.UTC)
}

// IsOwnedBy reports whether staffID is the shift's current assignee.
func (s *WorkShift) IsOwnedBy(staffID uuid.UUID) bool {
	return s.StaffID != nil && *s.StaffID == staffID
}

// Start returns the shift start as an absolute UTC time.
func (s *WorkShift) Start() time.Time {
	return s.Date.Add(time.Duration(s.StartTime.Minutes()) * time.Minute)
}

// End returns the shift end. Shifts whose end is not after the start run past midnight.
func (s *WorkShift) End() time.Time {
	end := s.Date.Add(time.Duration(s.EndTime.Minutes()) * time.Minute)
	if !end.After(s.Start()) {
		end = end.Add(24 * time.Hour)
	}
	return end
}

// SwapStaff exchanges assignees with other and links both shifts to each other.
func (s *WorkShift) SwapStaff(other *WorkShift) {
	s.StaffID, other.StaffID = other.StaffID, s.StaffID

	sID, oID := s.ID, other.ID
	s.SwappedWithID = &oID
	other.SwappedWithID = &sID

	s.Normalize()
	other.Normalize()
}

type CreateShiftRequest struct {
	StaffID   *uuid.UUID `json:"staff_id"`
	Date      string     `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string     `json:"start_time" validate:"required"`
	EndTime   string     `json:"end_time" validate:"required"`
}

type UpdateShiftRequest struct {
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

type ShiftFilters struct {
	ClinicID uuid.UUID
	StaffID  *uuid.UUID
	Range    DateRange
}
