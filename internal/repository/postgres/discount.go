package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/vetclinic-api/internal/model"
	"github.com/jwalitptl/vetclinic-api/internal/repository"
)

const discountColumns = `id, clinic_id, code, discount_type, discount_value, max_discount_amount,
	max_use, used_count, used_by, is_active, start_date, end_date, created_at, updated_at`

type discountRepository struct {
	BaseRepository
}

func NewDiscountRepository(base BaseRepository) repository.DiscountRepository {
	return &discountRepository{base}
}

func (r *discountRepository) Create(ctx context.Context, code *model.DiscountCode) error {
	query := `
		INSERT INTO discount_codes (
			id, clinic_id, code, discount_type, discount_value, max_discount_amount,
			max_use, used_count, used_by, is_active, start_date, end_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	if code.ID == uuid.Nil {
		code.ID = uuid.New()
	}
	now := time.Now().UTC()
	code.CreatedAt = now
	code.UpdatedAt = now
	if code.UsedBy == nil {
		code.UsedBy = []string{}
	}

	_, err := r.db.ExecContext(ctx, query,
		code.ID,
		code.ClinicID,
		code.Code,
		code.DiscountType,
		code.DiscountValue,
		code.MaxDiscountAmount,
		code.MaxUse,
		code.UsedCount,
		code.UsedBy,
		code.IsActive,
		code.StartDate,
		code.EndDate,
		code.CreatedAt,
		code.UpdatedAt,
	)
	return mapError("create discount code", err)
}

func (r *discountRepository) Get(ctx context.Context, id uuid.UUID) (*model.DiscountCode, error) {
	query := `SELECT ` + discountColumns + ` FROM discount_codes WHERE id = $1`

	var code model.DiscountCode
	if err := r.db.GetContext(ctx, &code, query, id); err != nil {
		return nil, mapError("get discount code", err)
	}
	return &code, nil
}

func (r *discountRepository) GetByCode(ctx context.Context, code string) (*model.DiscountCode, error) {
	query := `SELECT ` + discountColumns + ` FROM discount_codes WHERE code = $1`

	var discount model.DiscountCode
	if err := r.db.GetContext(ctx, &discount, query, code); err != nil {
		return nil, mapError("get discount code by code", err)
	}
	return &discount, nil
}

func (r *discountRepository) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.DiscountCode, error) {
	query := `
		SELECT ` + discountColumns + `
		FROM discount_codes
		WHERE clinic_id = $1
		ORDER BY created_at DESC
	`
	codes := []*model.DiscountCode{}
	if err := r.db.SelectContext(ctx, &codes, query, clinicID); err != nil {
		return nil, mapError("list discount codes", err)
	}
	return codes, nil
}

func (r *discountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM discount_codes WHERE id = $1`, id)
	if err != nil {
		return mapError("delete discount code", err)
	}
	return checkRowsAffected("delete discount code", result)
}

// Redeem is a single conditional update; the WHERE clause is the whole redeemability check.
func (r *discountRepository) Redeem(ctx context.Context, id, userID uuid.UUID, now time.Time) (*model.DiscountCode, error) {
	query := `
		UPDATE discount_codes
		SET used_count = used_count + 1,
			used_by = array_append(used_by, $2::text),
			is_active = (used_count + 1 < max_use),
			updated_at = $3
		WHERE id = $1
		  AND is_active
		  AND used_count < max_use
		  AND NOT ($2::text = ANY(used_by))
		  AND start_date < $3
		  AND end_date >= $3
		RETURNING ` + discountColumns

	var code model.DiscountCode
	err := r.db.GetContext(ctx, &code, query, id, userID.String(), now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to redeem discount code: %w", repository.ErrConditionFailed)
	}
	if err != nil {
		return nil, mapError("redeem discount code", err)
	}
	return &code, nil
}

func (r *discountRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE discount_codes
		SET is_active = FALSE, updated_at = $1
		WHERE is_active
		  AND (end_date < $1 OR used_count >= max_use)
	`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, mapError("deactivate expired discount codes", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
