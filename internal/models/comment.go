package models

// Comment is a discussion entry on a task.
type Comment struct {
	Base
	TaskID   string `json:"taskId" gorm:"size:36;not null;index"`
	AuthorID string `json:"authorId" gorm:"size:36;not null"`
	Body     string `json:"body" gorm:"not null"`
	Author   *User  `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
}

// TableName specifies the table name for Comment Model
func (Comment) TableName() string {
	return "comments"
}

// Attachment records a file uploaded against a task.
type Attachment struct {
	Base
	TaskID     string `json:"taskId" gorm:"size:36;not null;index"`
	UploaderID string `json:"uploaderId" gorm:"size:36"`
	FileName   string `json:"fileName" gorm:"not null"`
	URL        string `json:"url" gorm:"not null"`
	Size       int64  `json:"size"`
	MimeType   string `json:"mimeType"`
}

// TableName specifies the table name for Attachment Model
func (Attachment) TableName() string {
	return "attachments"
}
