package models

import "gorm.io/datatypes"

// ActivityLog is an audit row written alongside the mutation it describes.
type ActivityLog struct {
	Base
	WorkspaceID string            `json:"workspaceId" gorm:"size:36;not null;index"`
	TaskID      *string           `json:"taskId" gorm:"size:36;index"`
	ActorID     string            `json:"actorId" gorm:"size:36"`
	Action      string            `json:"action" gorm:"not null"`
	Details     datatypes.JSONMap `json:"details"`
	Actor       *User             `json:"actor,omitempty" gorm:"foreignKey:ActorID"`
}

// TableName specifies the table name for ActivityLog Model
func (ActivityLog) TableName() string {
	return "activity_logs"
}
