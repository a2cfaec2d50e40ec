package model

import (
	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleClinician  Role = "clinician"
	RoleStaff      Role = "staff"
)

// User is the read model the core needs for addressing notifications. Accounts are
// managed elsewhere.
type User struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Email string    `json:"email" db:"email"`
	Name  string    `json:"name" db:"name"`
	Role  Role      `json:"role" db:"role"`
}
