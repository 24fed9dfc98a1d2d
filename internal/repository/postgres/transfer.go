package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/vetclinic-api/internal/model"
	"github.com/jwalitptl/vetclinic-api/internal/repository"
)

const transferColumns = `id, requesting_staff_id, source_shift_id, target_shift_id,
	status, requested_at, responded_at`

type transferRepository struct {
	BaseRepository
}

func NewTransferRepository(base BaseRepository) repository.TransferRepository {
	return &transferRepository{base}
}

func (r *transferRepository) Create(ctx context.Context, transfer *model.TransferRequest) error {
	query := `
		INSERT INTO transfer_requests (
			id, requesting_staff_id, source_shift_id, target_shift_id,
			status, requested_at, responded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if transfer.ID == uuid.Nil {
		transfer.ID = uuid.New()
	}

	_, err := r.db.ExecContext(ctx, query,
		transfer.ID,
		transfer.RequestingStaffID,
		transfer.SourceShiftID,
		transfer.TargetShiftID,
		transfer.Status,
		transfer.RequestedAt,
		transfer.RespondedAt,
	)
	return mapError("create transfer request", err)
}

func (r *transferRepository) Get(ctx context.Context, id uuid.UUID) (*model.TransferRequest, error) {
	query := `SELECT ` + transferColumns + ` FROM transfer_requests WHERE id = $1`

	var transfer model.TransferRequest
	if err := r.db.GetContext(ctx, &transfer, query, id); err != nil {
		return nil, mapError("get transfer request", err)
	}
	return &transfer, nil
}

func (r *transferRepository) ListPendingForStaff(ctx context.Context, staffID uuid.UUID) ([]*model.TransferRequest, error) {
	query := `
		SELECT t.id, t.requesting_staff_id, t.source_shift_id, t.target_shift_id,
			   t.status, t.requested_at, t.responded_at
		FROM transfer_requests t
		LEFT JOIN work_shifts target ON target.id = t.target_shift_id
		WHERE t.status = $1
		  AND (t.requesting_staff_id = $2 OR target.staff_id = $2)
		ORDER BY t.requested_at DESC
	`
	transfers := []*model.TransferRequest{}
	if err := r.db.SelectContext(ctx, &transfers, query, model.TransferStatusPending, staffID); err != nil {
		return nil, mapError("list transfer requests", err)
	}
	return transfers, nil
}

func (r *transferRepository) WithTx(ctx context.Context, fn func(tx repository.TransferTx) error) error {
	return r.BaseRepository.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&transferTx{tx: tx})
	})
}

type transferTx struct {
	tx *sqlx.Tx
}

func (t *transferTx) GetTransferForUpdate(ctx context.Context, id uuid.UUID) (*model.TransferRequest, error) {
	query := `SELECT ` + transferColumns + ` FROM transfer_requests WHERE id = $1 FOR UPDATE`

	var transfer model.TransferRequest
	if err := t.tx.GetContext(ctx, &transfer, query, id); err != nil {
		return nil, mapError("lock transfer request", err)
	}
	return &transfer, nil
}

// GetShiftsForUpdate locks the rows in id order so concurrent swaps cannot deadlock on each other.
func (t *transferTx) GetShiftsForUpdate(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*model.WorkShift, error) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.String())
	}

	query := `
		SELECT ` + shiftColumns + `
		FROM work_shifts
		WHERE id = ANY($1::uuid[])
		ORDER BY id
		FOR UPDATE
	`
	var shifts []*model.WorkShift
	if err := t.tx.SelectContext(ctx, &shifts, query, pq.Array(keys)); err != nil {
		return nil, mapError("lock shifts", err)
	}

	found := make(map[uuid.UUID]*model.WorkShift, len(shifts))
	for _, s := range shifts {
		found[s.ID] = s
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return nil, fmt.Errorf("failed to lock shift %s: %w", id, repository.ErrNotFound)
		}
	}
	return found, nil
}

func (t *transferTx) SaveShift(ctx context.Context, shift *model.WorkShift) error {
	return updateShift(ctx, t.tx, shift)
}

func (t *transferTx) ResolveTransfer(ctx context.Context, id uuid.UUID, status model.TransferStatus, at time.Time) (*model.TransferRequest, error) {
	query := `
		UPDATE transfer_requests
		SET status = $2, responded_at = $3
		WHERE id = $1 AND status = $4
		RETURNING ` + transferColumns

	var transfer model.TransferRequest
	err := t.tx.GetContext(ctx, &transfer, query, id, status, at, model.TransferStatusPending)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to resolve transfer request: %w", repository.ErrConditionFailed)
	}
	if err != nil {
		return nil, mapError("resolve transfer request", err)
	}
	return &transfer, nil
}
