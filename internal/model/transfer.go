package model

import (
	"time"

	"github.com/google/uuid"
)

type TransferStatus string

const (
	TransferStatusPending  TransferStatus = "pending"
	TransferStatusAccepted TransferStatus = "accepted"
	TransferStatusRejected TransferStatus = "rejected"
)

// TransferRequest proposes exchanging the assignees of two shifts.
type TransferRequest struct {
	ID                uuid.UUID      `db:"id" json:"id"`
	RequestingStaffID uuid.UUID      `db:"requesting_staff_id" json:"requesting_staff_id"`
	SourceShiftID     uuid.UUID      `db:"source_shift_id" json:"source_shift_id"`
	TargetShiftID     uuid.UUID      `db:"target_shift_id" json:"target_shift_id"`
	Status            TransferStatus `db:"status" json:"status"`
	RequestedAt       time.Time      `db:"requested_at" json:"requested_at"`
	RespondedAt       *time.Time     `db:"responded_at" json:"responded_at,omitempty"`
}

func (t *TransferRequest) IsPending() bool {
	return t.Status == TransferStatusPending
}

// IsTerminal reports whether the request has been accepted or rejected.
func (t *TransferRequest) IsTerminal() bool {
	return t.Status == TransferStatusAccepted || t.Status == TransferStatusRejected
}

type CreateTransferRequest struct {
	SourceShiftID uuid.UUID `json:"source_shift_id" validate:"required"`
	TargetShiftID uuid.UUID `json:"target_shift_id" validate:"required"`
}
