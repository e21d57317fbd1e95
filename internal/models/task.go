package models

import (
	"time"
)

// TaskPriority represents the priority of a task
type TaskPriority string

const (
	PriorityNone   TaskPriority = "none"
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task represents a task in the system
type Task struct {
	Base
	WorkspaceID string       `json:"workspaceId" gorm:"size:36;not null;index"`
	ProjectID   string       `json:"projectId" gorm:"size:36;not null;uniqueIndex:idx_project_task_number"`
	Number      int          `json:"number" gorm:"not null;uniqueIndex:idx_project_task_number"`
	Title       string       `json:"title" gorm:"not null"`
	Description string       `json:"description"`
	StatusID    *string      `json:"statusId" gorm:"size:36;index"`
	Priority    TaskPriority `json:"priority" gorm:"not null;default:'none'"`
	// Position orders tasks inside a status column.
	Position         float64    `json:"position" gorm:"not null;default:0"`
	AssigneeID       *string    `json:"assigneeId" gorm:"size:36;index"`
	CreatorID        string     `json:"creatorId" gorm:"size:36"`
	MilestoneID      *string    `json:"milestoneId" gorm:"size:36;index"`
	ParentID         *string    `json:"parentId" gorm:"size:36;index"`
	Progress         int        `json:"progress" gorm:"not null;default:0"`
	EstimatedMinutes *int       `json:"estimatedMinutes"`
	SpentMinutes     int        `json:"spentMinutes" gorm:"not null;default:0"`
	StartDate        *time.Time `json:"startDate"`
	DueDate          *time.Time `json:"dueDate"`

	Status    *TaskStatus `json:"status,omitempty" gorm:"foreignKey:StatusID"`
	Assignee  *User       `json:"assignee,omitempty" gorm:"foreignKey:AssigneeID"`
	Creator   *User       `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
	Milestone *Milestone  `json:"milestone,omitempty" gorm:"foreignKey:MilestoneID"`
	Labels    []Label     `json:"labels,omitempty" gorm:"many2many:task_labels"`
	Tags      []Tag       `json:"tags,omitempty" gorm:"many2many:task_tags"`
	Children  []Task      `json:"children,omitempty" gorm:"foreignKey:ParentID"`
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

// TaskLabel is the join row between tasks and labels.
type TaskLabel struct {
	TaskID  string `gorm:"primaryKey;size:36"`
	LabelID string `gorm:"primaryKey;size:36"`
}

// TableName specifies the table name for TaskLabel Model
func (TaskLabel) TableName() string {
	return "task_labels"
}

// TaskTag is the join row between tasks and tags.
type TaskTag struct {
	TaskID string `gorm:"primaryKey;size:36"`
	TagID  string `gorm:"primaryKey;size:36"`
}

// TableName specifies the table name for TaskTag Model
func (TaskTag) TableName() string {
	return "task_tags"
}
