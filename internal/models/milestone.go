package models

import "time"

// MilestoneStatus is the lifecycle state of a milestone.
type MilestoneStatus string

const (
	MilestonePlanned   MilestoneStatus = "planned"
	MilestoneActive    MilestoneStatus = "active"
	MilestoneCompleted MilestoneStatus = "completed"
)

// Valid reports whether s is a known milestone status.
func (s MilestoneStatus) Valid() bool {
	switch s {
	case MilestonePlanned, MilestoneActive, MilestoneCompleted:
		return true
	}
	return false
}

// Milestone is a dated goal inside a workspace, optionally tied to a project.
type Milestone struct {
	Base
	WorkspaceID string          `json:"workspaceId" gorm:"size:36;not null;index"`
	ProjectID   *string         `json:"projectId" gorm:"size:36;index"`
	Name        string          `json:"name" gorm:"not null"`
	Description string          `json:"description"`
	StartDate   *time.Time      `json:"startDate"`
	DueDate     *time.Time      `json:"dueDate"`
	Priority    TaskPriority    `json:"priority" gorm:"not null;default:'none'"`
	Status      MilestoneStatus `json:"status" gorm:"not null;default:'planned'"`
	CreatorID   string          `json:"creatorId" gorm:"size:36"`
	Assignees   []User          `json:"assignees,omitempty" gorm:"many2many:milestone_assignees"`
	TaskCount   int64           `json:"taskCount" gorm:"-"`
}

// TableName specifies the table name for Milestone Model
func (Milestone) TableName() string {
	return "milestones"
}

// MilestoneAssignee is the join row between milestones and users.
type MilestoneAssignee struct {
	MilestoneID string `gorm:"primaryKey;size:36"`
	UserID      string `gorm:"primaryKey;size:36"`
}

// TableName specifies the table name for MilestoneAssignee Model
func (MilestoneAssignee) TableName() string {
	return "milestone_assignees"
}
