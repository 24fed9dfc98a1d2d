package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/vetclinic-api/internal/model"
	"github.com/jwalitptl/vetclinic-api/internal/repository"
)

type shiftRepository struct {
	store *Store
}

func NewShiftRepository(store *Store) repository.ShiftRepository {
	return &shiftRepository{store: store}
}

func (r *shiftRepository) Create(_ context.Context, shift *model.WorkShift) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if shift.ID == uuid.Nil {
		shift.ID = uuid.New()
	}
	if _, exists := r.store.shifts[shift.ID]; exists {
		return fmt.Errorf("failed to create shift: %w", repository.ErrDuplicate)
	}
	now := time.Now().UTC()
	shift.CreatedAt = now
	shift.UpdatedAt = now
	shift.Normalize()

	r.store.shifts[shift.ID] = copyShift(shift)
	return nil
}

func (r *shiftRepository) Get(_ context.Context, id uuid.UUID) (*model.WorkShift, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	shift, ok := r.store.shifts[id]
	if !ok {
		return nil, fmt.Errorf("failed to get shift: %w", repository.ErrNotFound)
	}
	return copyShift(shift), nil
}

func (r *shiftRepository) Update(_ context.Context, shift *model.WorkShift) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.store.saveShift(shift)
}

func (r *shiftRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.shifts[id]; !ok {
		return fmt.Errorf("failed to delete shift: %w", repository.ErrNotFound)
	}
	delete(r.store.shifts, id)
	for tid, t := range r.store.transfers {
		if t.SourceShiftID == id || t.TargetShiftID == id {
			delete(r.store.transfers, tid)
		}
	}
	for _, s := range r.store.shifts {
		if s.SwappedWithID != nil && *s.SwappedWithID == id {
			s.SwappedWithID = nil
		}
	}
	return nil
}

func (r *shiftRepository) List(_ context.Context, filters *model.ShiftFilters) ([]*model.WorkShift, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	shifts := []*model.WorkShift{}
	for _, s := range r.store.shifts {
		if s.ClinicID != filters.ClinicID {
			continue
		}
		if filters.StaffID != nil && !s.IsOwnedBy(*filters.StaffID) {
			continue
		}
		if !filters.Range.Contains(s.Date) {
			continue
		}
		shifts = append(shifts, copyShift(s))
	}
	sortShifts(shifts)
	return shifts, nil
}

func (r *shiftRepository) AssignIfVacant(_ context.Context, id, staffID uuid.UUID) (*model.WorkShift, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	shift, ok := r.store.shifts[id]
	if !ok {
		return nil, fmt.Errorf("failed to get shift: %w", repository.ErrNotFound)
	}
	if shift.StaffID != nil {
		return nil, fmt.Errorf("failed to assign shift: %w", repository.ErrConditionFailed)
	}
	sid := staffID
	shift.StaffID = &sid
	shift.UpdatedAt = time.Now().UTC()
	return copyShift(shift), nil
}

func (r *shiftRepository) ListSwappable(_ context.Context, clinicID, currentShiftID, excludeStaffID uuid.UUID) ([]*model.WorkShift, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	shifts := []*model.WorkShift{}
	for _, s := range r.store.shifts {
		if s.ClinicID != clinicID || s.ID == currentShiftID {
			continue
		}
		if s.StaffID == nil || *s.StaffID == excludeStaffID {
			continue
		}
		shifts = append(shifts, copyShift(s))
	}
	sortShifts(shifts)
	return shifts, nil
}

// saveShift must be called with the store lock held.
func (s *Store) saveShift(shift *model.WorkShift) error {
	if _, ok := s.shifts[shift.ID]; !ok {
		return fmt.Errorf("failed to update shift: %w", repository.ErrNotFound)
	}
	shift.Normalize()
	shift.UpdatedAt = time.Now().UTC()
	s.shifts[shift.ID] = copyShift(shift)
	return nil
}

func sortShifts(shifts []*model.WorkShift) {
	sort.Slice(shifts, func(i, j int) bool {
		if !shifts[i].Date.Equal(shifts[j].Date) {
			return shifts[i].Date.Before(shifts[j].Date)
		}
		return shifts[i].StartTime < shifts[j].StartTime
	})
}
