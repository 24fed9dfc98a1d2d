// Package memory is an in-process store used for local runs and tests.
// Writes are serialised by one mutex, which gives every unit of work serializable isolation.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jwalitptl/vetclinic-api/internal/model"
)

type Store struct {
	mu        sync.Mutex
	shifts    map[uuid.UUID]*model.WorkShift
	transfers map[uuid.UUID]*model.TransferRequest
	discounts map[uuid.UUID]*model.DiscountCode
	staff     map[uuid.UUID]*model.Staff
}

func NewStore() *Store {
	return &Store{
		shifts:    make(map[uuid.UUID]*model.WorkShift),
		transfers: make(map[uuid.UUID]*model.TransferRequest),
		discounts: make(map[uuid.UUID]*model.DiscountCode),
		staff:     make(map[uuid.UUID]*model.Staff),
	}
}

// PutStaff seeds the staff directory.
func (s *Store) PutStaff(staff *model.Staff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *staff
	s.staff[staff.ID] = &c
}

func copyShift(in *model.WorkShift) *model.WorkShift {
	out := *in
	if in.StaffID != nil {
		id := *in.StaffID
		out.StaffID = &id
	}
	if in.SwappedWithID != nil {
		id := *in.SwappedWithID
		out.SwappedWithID = &id
	}
	return &out
}

func copyTransfer(in *model.TransferRequest) *model.TransferRequest {
	out := *in
	if in.RespondedAt != nil {
		at := *in.RespondedAt
		out.RespondedAt = &at
	}
	return &out
}

func copyDiscount(in *model.DiscountCode) *model.DiscountCode {
	out := *in
	out.UsedBy = append([]string(nil), in.UsedBy...)
	return &out
}
