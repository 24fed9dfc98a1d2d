package model

import (
	"github.com/google/uuid"
)

// Role constants carried in access tokens
const (
	RoleManager  = "manager"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

// Staff is a directory entry for a clinic employee. It is maintained elsewhere and only read here.
type Staff struct {
	Base
	ClinicID uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Name     string    `db:"name" json:"name"`
	Email    string    `db:"email" json:"email"`
	Role     string    `db:"role" json:"role"`
}
