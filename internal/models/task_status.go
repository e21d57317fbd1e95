package models

import "gorm.io/gorm"

// TaskStatus is a board column. Statuses are scoped to a workspace, or to one
// project when ProjectID is set.
type TaskStatus struct {
	Base
	WorkspaceID string  `json:"workspaceId" gorm:"size:36;not null;uniqueIndex:idx_status_name"`
	ProjectID   *string `json:"projectId" gorm:"size:36"`
	Scope       string  `json:"-" gorm:"size:36;not null;default:'';uniqueIndex:idx_status_name"`
	Name        string  `json:"name" gorm:"not null;uniqueIndex:idx_status_name"`
	Color       string  `json:"color"`
	BgColor     string  `json:"bgColor"`
	TextColor   string  `json:"textColor"`
	Order       int     `json:"order" gorm:"column:sort_order;not null;default:0"`
	IsDone      bool    `json:"isDone"`
	IsSystem    bool    `json:"isSystem"`
}

// TableName specifies the table name for TaskStatus Model
func (TaskStatus) TableName() string {
	return "task_statuses"
}

// BeforeSave derives the scope key from the project reference.
func (s *TaskStatus) BeforeSave(tx *gorm.DB) error {
	s.Scope = ScopeKey(s.ProjectID)
	return nil
}

// ScopeKey turns an optional project id into a non-null index component.
func ScopeKey(projectID *string) string {
	if projectID == nil {
		return ""
	}
	return *projectID
}

// DefaultTaskStatuses is the set provisioned for a workspace that has none.
// Projects start out on the workspace set.
func DefaultTaskStatuses(workspaceID string) []TaskStatus {
	specs := []struct {
		name, color, bg, text string
		done                  bool
	}{
		{"To Do", "#64748b", "#f1f5f9", "#334155", false},
		{"In Progress", "#2563eb", "#dbeafe", "#1e40af", false},
		{"In Review", "#d97706", "#fef3c7", "#92400e", false},
		{"Done", "#16a34a", "#dcfce7", "#166534", true},
	}
	out := make([]TaskStatus, 0, len(specs))
	for i, s := range specs {
		out = append(out, TaskStatus{
			WorkspaceID: workspaceID,
			Name:        s.name,
			Color:       s.color,
			BgColor:     s.bg,
			TextColor:   s.text,
			Order:       i,
			IsDone:      s.done,
			IsSystem:    true,
		})
	}
	return out
}
