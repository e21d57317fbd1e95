package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"project-management-api/internal/handlers"
	"project-management-api/internal/models"
	"project-management-api/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestGetWorkspace_MissingReturnsNull(t *testing.T) {
	e := newEnv(t)
	user := testutil.CreateUser(t, e.db, "alice@example.com")

	w := e.request(http.MethodGet, "/api/workspaces/does-not-exist", e.token(user), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	require.Contains(t, body, "workspace")
	require.Nil(t, body["workspace"])
}

func TestGetWorkspace_ByIDOrSlug(t *testing.T) {
	e := newEnv(t)
	ws, owner := e.seedWorkspace("acme")
	outsider := testutil.CreateUser(t, e.db, "mallory@example.com")

	for _, ref := range []string{ws.ID, "acme"} {
		w := e.request(http.MethodGet, "/api/workspaces/"+ref, e.token(owner), nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode[struct {
			Workspace   handlers.WorkspaceResponse `json:"workspace"`
			MemberCount int64                      `json:"memberCount"`
		}](t, w)
		require.Equal(t, ws.ID, body.Workspace.ID)
		require.Equal(t, models.RoleOwner, body.Workspace.Role)
		require.EqualValues(t, 1, body.MemberCount)
	}

	w := e.request(http.MethodGet, "/api/workspaces/acme", e.token(outsider), nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "forbidden", decode[errorBody](t, w).Code)
}

func TestCreateWorkspace(t *testing.T) {
	e := newEnv(t)
	user := testutil.CreateUser(t, e.db, "alice@example.com")
	token := e.token(user)

	w := e.request(http.MethodPost, "/api/workspaces", token, map[string]string{"name": "Acme Corp"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[handlers.WorkspaceResponse](t, w)
	require.Equal(t, "acme-corp", created.Slug)
	require.Equal(t, models.RoleOwner, created.Role)

	w = e.request(http.MethodPost, "/api/workspaces", token, map[string]string{"name": "Other", "slug": "Acme Corp"})
	require.Equal(t, http.StatusConflict, w.Code)

	w = e.request(http.MethodPost, "/api/workspaces", token, map[string]string{"name": "!!!"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = e.request(http.MethodGet, "/api/workspaces", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Workspaces []handlers.WorkspaceResponse `json:"workspaces"`
	}](t, w)
	require.Len(t, list.Workspaces, 1)
}

func TestListWorkspaces_OnlyActiveMemberships(t *testing.T) {
	e := newEnv(t)
	ws, owner := e.seedWorkspace("acme")
	e.seedWorkspace("other")
	invited := testutil.CreateUser(t, e.db, "pending@example.com")
	m := testutil.AddMember(t, e.db, ws.ID, invited.ID, models.RoleMember)
	require.NoError(t, e.db.Conn(context.Background()).Model(m).Update("status", models.MemberInvited).Error)

	w := e.request(http.MethodGet, "/api/workspaces", e.token(owner), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, decode[map[string]any](t, w)["count"])

	w = e.request(http.MethodGet, "/api/workspaces", e.token(invited), nil)
	require.EqualValues(t, 0, decode[map[string]any](t, w)["count"])
}

func TestUpdateWorkspace_RequiresAdmin(t *testing.T) {
	e := newEnv(t)
	ws, owner := e.seedWorkspace("acme")
	member := e.addUser(ws, "bob@example.com", models.RoleMember)

	w := e.request(http.MethodPut, "/api/workspaces/"+ws.ID, e.token(member), map[string]string{"name": "Renamed"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = e.request(http.MethodPut, "/api/workspaces/"+ws.ID, e.token(owner), map[string]string{"name": "Renamed", "slug": "renamed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[handlers.WorkspaceResponse](t, w)
	require.Equal(t, "Renamed", updated.Name)
	require.Equal(t, "renamed", updated.Slug)
}

func TestDeleteWorkspace_RemovesEverything(t *testing.T) {
	e := newEnv(t)
	ws, owner := e.seedWorkspace("acme")
	admin := e.addUser(ws, "admin@example.com", models.RoleAdmin)
	project := testutil.CreateProject(t, e.db, ws.ID, "WEB")
	token := e.token(owner)

	w := e.request(http.MethodPost, "/api/projects/"+project.ID+"/tasks", token, map[string]string{"title": "Ship it"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.request(http.MethodDelete, "/api/workspaces/"+ws.ID, e.token(admin), nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = e.request(http.MethodDelete, "/api/workspaces/"+ws.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	db := e.conn()
	require.Zero(t, db.count(&models.Workspace{}, "id = ?", ws.ID))
	require.Zero(t, db.count(&models.WorkspaceMember{}, "workspace_id = ?", ws.ID))
	require.Zero(t, db.count(&models.Task{}, "workspace_id = ?", ws.ID))
	require.Zero(t, db.count(&models.TaskStatus{}, "workspace_id = ?", ws.ID))
	require.Zero(t, db.count(&models.ActivityLog{}, "workspace_id = ?", ws.ID))

	w = e.request(http.MethodGet, "/api/workspaces/"+ws.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, decode[map[string]any](t, w)["workspace"])
}
