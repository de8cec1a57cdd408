package model

import (
	"time"
)

// Role identifies what a user is allowed to do in the system.
type Role string

const (
	RoleGovernment Role = "GOVERNMENT"
	RoleContractor Role = "CONTRACTOR"
	RoleAuditor    Role = "AUDITOR"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleGovernment, RoleContractor, RoleAuditor:
		return true
	}
	return false
}

// User represents a registered actor: a government officer, a contractor,
// or an auditor. The role is fixed at registration.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Username     string    `json:"username" gorm:"uniqueIndex;size:50;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role         Role      `json:"role" gorm:"type:varchar(20);not null;index"`
	CreatedAt    time.Time `json:"created_at"`
}
