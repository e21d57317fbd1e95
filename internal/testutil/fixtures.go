package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"project-management-api/internal/database"
	"project-management-api/internal/models"

	"github.com/stretchr/testify/require"
)

// CreateUser inserts a user named after the local part of email.
func CreateUser(t *testing.T, db *database.DB, email string) *models.User {
	t.Helper()
	name, _, _ := strings.Cut(email, "@")
	u := &models.User{Name: name, Email: email}
	require.NoError(t, db.Conn(context.Background()).Create(u).Error)
	return u
}

// CreateWorkspace inserts a bare workspace with the given slug.
func CreateWorkspace(t *testing.T, db *database.DB, slug string) *models.Workspace {
	t.Helper()
	ws := &models.Workspace{Name: strings.ToUpper(slug[:1]) + slug[1:], Slug: slug}
	require.NoError(t, db.Conn(context.Background()).Create(ws).Error)
	return ws
}

// AddMember gives userID an active role in the workspace.
func AddMember(t *testing.T, db *database.DB, workspaceID, userID string, role models.Role) *models.WorkspaceMember {
	t.Helper()
	joined := time.Now()
	m := &models.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		Status:      models.MemberActive,
		JoinedAt:    &joined,
	}
	require.NoError(t, db.Conn(context.Background()).Create(m).Error)
	return m
}

// CreateProject inserts a project in the workspace.
func CreateProject(t *testing.T, db *database.DB, workspaceID, key string) *models.Project {
	t.Helper()
	p := &models.Project{WorkspaceID: workspaceID, Name: key + " project", Key: key}
	require.NoError(t, db.Conn(context.Background()).Create(p).Error)
	return p
}
