package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/vetclinic-api/internal/model"
	"github.com/jwalitptl/vetclinic-api/internal/repository"
)

type staffRepository struct {
	BaseRepository
}

func NewStaffRepository(base BaseRepository) repository.StaffRepository {
	return &staffRepository{base}
}

func (r *staffRepository) Get(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	query := `
		SELECT id, clinic_id, name, email, role, created_at, updated_at
		FROM staff
		WHERE id = $1
	`
	var staff model.Staff
	if err := r.db.GetContext(ctx, &staff, query, id); err != nil {
		return nil, mapError("get staff", err)
	}
	return &staff, nil
}
