package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MilestoneStatus represents the review state of a milestone.
// APPROVED and FLAGGED are terminal: a milestone is reviewed exactly once.
type MilestoneStatus string

const (
	MilestoneStatusPending  MilestoneStatus = "PENDING"
	MilestoneStatusApproved MilestoneStatus = "APPROVED"
	MilestoneStatusFlagged  MilestoneStatus = "FLAGGED"
)

// Valid reports whether the status is one of the known values.
func (s MilestoneStatus) Valid() bool {
	switch s {
	case MilestoneStatusPending, MilestoneStatusApproved, MilestoneStatusFlagged:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted.
func (s MilestoneStatus) Terminal() bool {
	return s == MilestoneStatusApproved || s == MilestoneStatusFlagged
}

// Milestone is a contractor's disbursement request against a project budget.
type Milestone struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	ProjectID       uint            `json:"project_id" gorm:"not null;index"`
	Title           string          `json:"title" gorm:"size:200;not null"`
	Description     string          `json:"description,omitempty" gorm:"size:1000"`
	RequestedAmount decimal.Decimal `json:"requested_amount" gorm:"type:decimal(20,2);not null"`
	Status          MilestoneStatus `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ContractorID    uint            `json:"contractor_id" gorm:"not null;index"`
	AuditorID       *uint           `json:"auditor_id" gorm:"index"`
	CreatedAt       time.Time       `json:"created_at"`
	ApprovedAt      *time.Time      `json:"approved_at"`

	// Relations
	Project    Project `json:"-" gorm:"foreignKey:ProjectID"`
	Contractor User    `json:"-" gorm:"foreignKey:ContractorID"`
	Auditor    *User   `json:"-" gorm:"foreignKey:AuditorID"`
}
