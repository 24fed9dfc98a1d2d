package model

import (
	"time"

	"github.com/google/uuid"
)

// Event types published after a state change commits
const (
	EventTransferRequested = "transfer.requested"
	EventTransferAccepted  = "transfer.accepted"
	EventTransferRejected  = "transfer.rejected"
	EventDiscountRedeemed  = "discount.redeemed"
	EventDiscountsSwept    = "discount.swept"
)

// TransferEvent is the payload of every transfer.* event.
type TransferEvent struct {
	TransferID        uuid.UUID      `json:"transfer_id"`
	Status            TransferStatus `json:"status"`
	RequestingStaffID uuid.UUID      `json:"requesting_staff_id"`
	SourceShiftID     uuid.UUID      `json:"source_shift_id"`
	TargetShiftID     uuid.UUID      `json:"target_shift_id"`
	TargetStaffID     *uuid.UUID     `json:"target_staff_id,omitempty"`
}

type DiscountRedeemedEvent struct {
	DiscountID     uuid.UUID `json:"discount_id"`
	ClinicID       uuid.UUID `json:"clinic_id"`
	UserID         uuid.UUID `json:"user_id"`
	ActualDiscount float64   `json:"actual_discount"`
	Deactivated    bool      `json:"deactivated"`
}

type DiscountsSweptEvent struct {
	Deactivated int64     `json:"deactivated"`
	RanAt       time.Time `json:"ran_at"`
}
