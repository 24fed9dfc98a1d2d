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

type transferRepository struct {
	store *Store
}

func NewTransferRepository(store *Store) repository.TransferRepository {
	return &transferRepository{store: store}
}

func (r *transferRepository) Create(_ context.Context, transfer *model.TransferRequest) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if transfer.ID == uuid.Nil {
		transfer.ID = uuid.New()
	}
	for _, id := range []uuid.UUID{transfer.SourceShiftID, transfer.TargetShiftID} {
		if _, ok := r.store.shifts[id]; !ok {
			return fmt.Errorf("failed to create transfer request: %w", repository.ErrNotFound)
		}
	}
	r.store.transfers[transfer.ID] = copyTransfer(transfer)
	return nil
}

func (r *transferRepository) Get(_ context.Context, id uuid.UUID) (*model.TransferRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	t, ok := r.store.transfers[id]
	if !ok {
		return nil, fmt.Errorf("failed to get transfer request: %w", repository.ErrNotFound)
	}
	return copyTransfer(t), nil
}

func (r *transferRepository) ListPendingForStaff(_ context.Context, staffID uuid.UUID) ([]*model.TransferRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	transfers := []*model.TransferRequest{}
	for _, t := range r.store.transfers {
		if !t.IsPending() {
			continue
		}
		target, ok := r.store.shifts[t.TargetShiftID]
		if t.RequestingStaffID == staffID || (ok && target.IsOwnedBy(staffID)) {
			transfers = append(transfers, copyTransfer(t))
		}
	}
	sort.Slice(transfers, func(i, j int) bool {
		return transfers[i].RequestedAt.After(transfers[j].RequestedAt)
	})
	return transfers, nil
}

// WithTx holds the store lock for the whole unit and applies staged writes only when fn succeeds.
func (r *transferRepository) WithTx(ctx context.Context, fn func(tx repository.TransferTx) error) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx := &transferTx{
		store:     r.store,
		shifts:    make(map[uuid.UUID]*model.WorkShift),
		transfers: make(map[uuid.UUID]*model.TransferRequest),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for id, s := range tx.shifts {
		r.store.shifts[id] = s
	}
	for id, t := range tx.transfers {
		r.store.transfers[id] = t
	}
	return nil
}

type transferTx struct {
	store     *Store
	shifts    map[uuid.UUID]*model.WorkShift
	transfers map[uuid.UUID]*model.TransferRequest
}

func (t *transferTx) GetTransferForUpdate(_ context.Context, id uuid.UUID) (*model.TransferRequest, error) {
	if staged, ok := t.transfers[id]; ok {
		return copyTransfer(staged), nil
	}
	tr, ok := t.store.transfers[id]
	if !ok {
		return nil, fmt.Errorf("failed to lock transfer request: %w", repository.ErrNotFound)
	}
	return copyTransfer(tr), nil
}

func (t *transferTx) GetShiftsForUpdate(_ context.Context, ids ...uuid.UUID) (map[uuid.UUID]*model.WorkShift, error) {
	found := make(map[uuid.UUID]*model.WorkShift, len(ids))
	for _, id := range ids {
		if staged, ok := t.shifts[id]; ok {
			found[id] = copyShift(staged)
			continue
		}
		s, ok := t.store.shifts[id]
		if !ok {
			return nil, fmt.Errorf("failed to lock shift %s: %w", id, repository.ErrNotFound)
		}
		found[id] = copyShift(s)
	}
	return found, nil
}

func (t *transferTx) SaveShift(_ context.Context, shift *model.WorkShift) error {
	if _, ok := t.store.shifts[shift.ID]; !ok {
		return fmt.Errorf("failed to update shift: %w", repository.ErrNotFound)
	}
	shift.Normalize()
	shift.UpdatedAt = time.Now().UTC()
	t.shifts[shift.ID] = copyShift(shift)
	return nil
}

func (t *transferTx) ResolveTransfer(ctx context.Context, id uuid.UUID, status model.TransferStatus, at time.Time) (*model.TransferRequest, error) {
	current, err := t.GetTransferForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsPending() {
		return nil, fmt.Errorf("failed to resolve transfer request: %w", repository.ErrConditionFailed)
	}
	current.Status = status
	current.RespondedAt = &at
	t.transfers[id] = copyTransfer(current)
	return copyTransfer(current), nil
}
