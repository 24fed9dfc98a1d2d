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

type discountRepository struct {
	store *Store
}

func NewDiscountRepository(store *Store) repository.DiscountRepository {
	return &discountRepository{store: store}
}

func (r *discountRepository) Create(_ context.Context, code *model.DiscountCode) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.discounts {
		if existing.Code == code.Code {
			return fmt.Errorf("failed to create discount code: %w", repository.ErrDuplicate)
		}
	}
	if code.ID == uuid.Nil {
		code.ID = uuid.New()
	}
	now := time.Now().UTC()
	code.CreatedAt = now
	code.UpdatedAt = now
	if code.UsedBy == nil {
		code.UsedBy = []string{}
	}
	r.store.discounts[code.ID] = copyDiscount(code)
	return nil
}

func (r *discountRepository) Get(_ context.Context, id uuid.UUID) (*model.DiscountCode, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	d, ok := r.store.discounts[id]
	if !ok {
		return nil, fmt.Errorf("failed to get discount code: %w", repository.ErrNotFound)
	}
	return copyDiscount(d), nil
}

func (r *discountRepository) GetByCode(_ context.Context, code string) (*model.DiscountCode, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, d := range r.store.discounts {
		if d.Code == code {
			return copyDiscount(d), nil
		}
	}
	return nil, fmt.Errorf("failed to get discount code by code: %w", repository.ErrNotFound)
}

func (r *discountRepository) ListByClinic(_ context.Context, clinicID uuid.UUID) ([]*model.DiscountCode, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	codes := []*model.DiscountCode{}
	for _, d := range r.store.discounts {
		if d.ClinicID == clinicID {
			codes = append(codes, copyDiscount(d))
		}
	}
	sort.Slice(codes, func(i, j int) bool {
		return codes[i].CreatedAt.After(codes[j].CreatedAt)
	})
	return codes, nil
}

func (r *discountRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.discounts[id]; !ok {
		return fmt.Errorf("failed to delete discount code: %w", repository.ErrNotFound)
	}
	delete(r.store.discounts, id)
	return nil
}

func (r *discountRepository) Redeem(_ context.Context, id, userID uuid.UUID, now time.Time) (*model.DiscountCode, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	d, ok := r.store.discounts[id]
	if !ok {
		return nil, fmt.Errorf("failed to redeem discount code: %w", repository.ErrNotFound)
	}
	if !d.IsActive || d.IsExhausted() || d.HasBeenUsedBy(userID) || !d.InWindow(now) {
		return nil, fmt.Errorf("failed to redeem discount code: %w", repository.ErrConditionFailed)
	}
	d.Redeem(userID, now)
	return copyDiscount(d), nil
}

func (r *discountRepository) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var count int64
	for _, d := range r.store.discounts {
		if d.ShouldDeactivate(now) {
			d.IsActive = false
			d.UpdatedAt = now
			count++
		}
	}
	return count, nil
}
