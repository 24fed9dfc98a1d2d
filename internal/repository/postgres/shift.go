package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/vetclinic-api/internal/model"
	"github.com/jwalitptl/vetclinic-api/internal/repository"
)

const shiftColumns = `id, clinic_id, staff_id, shift_date, start_time, end_time,
	shift_kind, swapped_with_id, created_at, updated_at`

type shiftRepository struct {
	BaseRepository
}

func NewShiftRepository(base BaseRepository) repository.ShiftRepository {
	return &shiftRepository{base}
}

func (r *shiftRepository) Create(ctx context.Context, shift *model.WorkShift) error {
	query := `
		INSERT INTO work_shifts (
			id, clinic_id, staff_id, shift_date, start_time, end_time,
			shift_kind, swapped_with_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if shift.ID == uuid.Nil {
		shift.ID = uuid.New()
	}
	now := time.Now().UTC()
	shift.CreatedAt = now
	shift.UpdatedAt = now
	shift.Normalize()

	_, err := r.db.ExecContext(ctx, query,
		shift.ID,
		shift.ClinicID,
		shift.StaffID,
		shift.Date,
		shift.StartTime,
		shift.EndTime,
		shift.Kind,
		shift.SwappedWithID,
		shift.CreatedAt,
		shift.UpdatedAt,
	)
	return mapError("create shift", err)
}

func (r *shiftRepository) Get(ctx context.Context, id uuid.UUID) (*model.WorkShift, error) {
	query := `SELECT ` + shiftColumns + ` FROM work_shifts WHERE id = $1`

	var shift model.WorkShift
	if err := r.db.GetContext(ctx, &shift, query, id); err != nil {
		return nil, mapError("get shift", err)
	}
	return &shift, nil
}

func (r *shiftRepository) Update(ctx context.Context, shift *model.WorkShift) error {
	return updateShift(ctx, r.db, shift)
}

func (r *shiftRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM work_shifts WHERE id = $1`, id)
	if err != nil {
		return mapError("delete shift", err)
	}
	return checkRowsAffected("delete shift", result)
}

func (r *shiftRepository) List(ctx context.Context, filters *model.ShiftFilters) ([]*model.WorkShift, error) {
	query := `SELECT ` + shiftColumns + ` FROM work_shifts WHERE clinic_id = $1`
	args := []interface{}{filters.ClinicID}
	argCount := 2

	if filters.StaffID != nil {
		query += fmt.Sprintf(" AND staff_id = $%d", argCount)
		args = append(args, *filters.StaffID)
		argCount++
	}

	if !filters.Range.From.IsZero() {
		query += fmt.Sprintf(" AND shift_date >= $%d", argCount)
		args = append(args, filters.Range.From)
		argCount++
	}

	if !filters.Range.To.IsZero() {
		query += fmt.Sprintf(" AND shift_date <= $%d", argCount)
		args = append(args, filters.Range.To)
		argCount++
	}

	query += " ORDER BY shift_date ASC, start_time ASC"

	shifts := []*model.WorkShift{}
	if err := r.db.SelectContext(ctx, &shifts, query, args...); err != nil {
		return nil, mapError("list shifts", err)
	}
	return shifts, nil
}

func (r *shiftRepository) AssignIfVacant(ctx context.Context, id, staffID uuid.UUID) (*model.WorkShift, error) {
	query := `
		UPDATE work_shifts
		SET staff_id = $2, updated_at = $3
		WHERE id = $1 AND staff_id IS NULL
		RETURNING ` + shiftColumns

	var shift model.WorkShift
	err := r.db.GetContext(ctx, &shift, query, id, staffID, time.Now().UTC())
	if err == nil {
		return &shift, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, mapError("assign shift", err)
	}

	// Tell a missing shift apart from one that is already taken.
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("failed to assign shift: %w", repository.ErrConditionFailed)
}

func (r *shiftRepository) ListSwappable(ctx context.Context, clinicID, currentShiftID, excludeStaffID uuid.UUID) ([]*model.WorkShift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM work_shifts
		WHERE clinic_id = $1
		  AND id <> $2
		  AND staff_id IS NOT NULL
		  AND staff_id <> $3
		ORDER BY shift_date ASC, start_time ASC
	`
	shifts := []*model.WorkShift{}
	if err := r.db.SelectContext(ctx, &shifts, query, clinicID, currentShiftID, excludeStaffID); err != nil {
		return nil, mapError("list swappable shifts", err)
	}
	return shifts, nil
}

func updateShift(ctx context.Context, exec sqlx.ExecerContext, shift *model.WorkShift) error {
	query := `
		UPDATE work_shifts
		SET staff_id = $1, shift_date = $2, start_time = $3, end_time = $4,
			shift_kind = $5, swapped_with_id = $6, updated_at = $7
		WHERE id = $8
	`
	shift.Normalize()
	shift.UpdatedAt = time.Now().UTC()

	result, err := exec.ExecContext(ctx, query,
		shift.StaffID,
		shift.Date,
		shift.StartTime,
		shift.EndTime,
		shift.Kind,
		shift.SwappedWithID,
		shift.UpdatedAt,
		shift.ID,
	)
	if err != nil {
		return mapError("update shift", err)
	}
	return checkRowsAffected("update shift", result)
}
