package model

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

var (
	ErrNonPositiveTotal     = errors.New("total amount must be greater than zero")
	ErrDiscountExceedsTotal = errors.New("discount exceeds total")
	ErrUnknownDiscountType  = errors.New("unknown discount type")
)

type DiscountCode struct {
	Base
	ClinicID          uuid.UUID      `db:"clinic_id" json:"clinic_id"`
	Code              string         `db:"code" json:"code"`
	DiscountType      DiscountType   `db:"discount_type" json:"discount_type"`
	DiscountValue     float64        `db:"discount_value" json:"discount_value"`
	MaxDiscountAmount float64        `db:"max_discount_amount" json:"max_discount_amount,omitempty"`
	MaxUse            int            `db:"max_use" json:"max_use"`
	UsedCount         int            `db:"used_count" json:"used_count"`
	UsedBy            pq.StringArray `db:"used_by" json:"used_by"`
	IsActive          bool           `db:"is_active" json:"is_active"`
	StartDate         time.Time      `db:"start_date" json:"start_date"`
	EndDate           time.Time      `db:"end_date" json:"end_date"`
}

// HasBeenUsedBy reports whether userID already redeemed the code.
func (d *DiscountCode) HasBeenUsedBy(userID uuid.UUID) bool {
	id := userID.String()
	for _, u := range d.UsedBy {
		if u == id {
			return true
		}
	}
	return false
}

func (d *DiscountCode) IsExhausted() bool {
	return d.UsedCount >= d.MaxUse
}

func (d *DiscountCode) IsExpired(now time.Time) bool {
	return d.EndDate.Before(now)
}

// InWindow reports startDate < now <= endDate.
func (d *DiscountCode) InWindow(now time.Time) bool {
	return d.StartDate.Before(now) && !now.After(d.EndDate)
}

// ShouldDeactivate is the sweep predicate.
func (d *DiscountCode) ShouldDeactivate(now time.Time) bool {
	return d.IsActive && (d.IsExpired(now) || d.IsExhausted())
}

// Redeem records a use by userID and deactivates the code once it reaches maxUse.
func (d *DiscountCode) Redeem(userID uuid.UUID, now time.Time) {
	d.UsedCount++
	d.UsedBy = append(d.UsedBy, userID.String())
	if d.UsedCount >= d.MaxUse {
		d.IsActive = false
	}
	d.UpdatedAt = now
}

// Calculate returns the discount actually granted and the amount left to pay.
func (d *DiscountCode) Calculate(total float64) (discount, final float64, err error) {
	if total <= 0 {
		return 0, 0, ErrNonPositiveTotal
	}

	switch d.DiscountType {
	case DiscountTypePercentage:
		discount = total * d.DiscountValue / 100
		if d.MaxDiscountAmount > 0 && discount > d.MaxDiscountAmount {
			discount = d.MaxDiscountAmount
		}
	case DiscountTypeFixed:
		discount = d.DiscountValue
	default:
		return 0, 0, ErrUnknownDiscountType
	}

	discount = roundCents(discount)
	final = roundCents(total - discount)
	if final < 0 {
		return 0, 0, ErrDiscountExceedsTotal
	}
	return discount, final, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// ApplyResult is what a checkout shows on the receipt.
type ApplyResult struct {
	TotalAmount    float64      `json:"total_amount"`
	FinalAmount    float64      `json:"final_amount"`
	Code           string       `json:"code"`
	DiscountType   DiscountType `json:"discount_type"`
	DiscountValue  float64      `json:"discount_value"`
	ActualDiscount float64      `json:"actual_discount"`
}

type CreateDiscountCodeRequest struct {
	Code              string       `json:"code" validate:"required,alphanum,min=3,max=32"`
	DiscountType      DiscountType `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue     float64      `json:"discount_value" validate:"gte=0"`
	MaxDiscountAmount float64      `json:"max_discount_amount" validate:"gte=0"`
	MaxUse            int          `json:"max_use" validate:"required,min=1"`
	StartDate         time.Time    `json:"start_date" validate:"required"`
	EndDate           time.Time    `json:"end_date" validate:"required,gtfield=StartDate"`
}

type ValidateDiscountRequest struct {
	Code     string    `json:"code" validate:"required"`
	ClinicID uuid.UUID `json:"clinic_id" validate:"required"`
}

type ApplyDiscountRequest struct {
	Code        string    `json:"code" validate:"required"`
	ClinicID    uuid.UUID `json:"clinic_id" validate:"required"`
	TotalAmount float64   `json:"total_amount"`
}
