package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/vetclinic-api/internal/model"
	"github.com/jwalitptl/vetclinic-api/internal/repository"
)

type staffRepository struct {
	store *Store
}

func NewStaffRepository(store *Store) repository.StaffRepository {
	return &staffRepository{store: store}
}

func (r *staffRepository) Get(_ context.Context, id uuid.UUID) (*model.Staff, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	s, ok := r.store.staff[id]
	if !ok {
		return nil, fmt.Errorf("failed to get staff: %w", repository.ErrNotFound)
	}
	c := *s
	return &c, nil
}
