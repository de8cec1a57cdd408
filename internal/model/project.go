package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectStatusCreated    ProjectStatus = "CREATED"
	ProjectStatusInProgress ProjectStatus = "IN_PROGRESS"
	ProjectStatusCompleted  ProjectStatus = "COMPLETED"
)

// Valid reports whether the status is one of the known values.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusCreated, ProjectStatusInProgress, ProjectStatusCompleted:
		return true
	}
	return false
}

// Project is a government-funded unit of work. The budget is fixed at
// creation; milestones draw against it but may never exceed it in total.
type Project struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"size:200;not null"`
	Description string          `json:"description,omitempty" gorm:"size:1000"`
	Budget      decimal.Decimal `json:"budget" gorm:"type:decimal(20,2);not null"`
	Status      ProjectStatus   `json:"status" gorm:"type:varchar(20);not null;default:'CREATED';index"`
	CreatorID   uint            `json:"creator_id" gorm:"not null;index"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Relations
	Creator    User        `json:"-" gorm:"foreignKey:CreatorID"`
	Milestones []Milestone `json:"milestones,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}
