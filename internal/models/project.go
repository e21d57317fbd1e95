package models

// Project groups tasks and milestones inside a workspace.
type Project struct {
	Base
	WorkspaceID string `json:"workspaceId" gorm:"size:36;not null;uniqueIndex:idx_project_key"`
	Name        string `json:"name" gorm:"not null"`
	Key         string `json:"key" gorm:"not null;uniqueIndex:idx_project_key"`
	Description string `json:"description"`
	CreatorID   string `json:"creatorId" gorm:"size:36"`
	// TaskCounter is the last task number handed out in this project.
	TaskCounter int    `json:"-" gorm:"not null;default:0"`
	Members     []User `json:"members,omitempty" gorm:"many2many:project_members"`
}

// TableName specifies the table name for Project Model
func (Project) TableName() string {
	return "projects"
}

// ProjectMember is the join row between projects and users.
type ProjectMember struct {
	ProjectID string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"primaryKey;size:36"`
}

// TableName specifies the table name for ProjectMember Model
func (ProjectMember) TableName() string {
	return "project_members"
}
