package handlers_test

import (
	"net/http"
	"testing"

	"project-management-api/internal/models"
	"project-management-api/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestCreateProject(t *testing.T) {
	e := newEnv(t)
	ws, owner := e.seedWorkspace("acme")
	bob := e.addUser(ws, "bob@example.com", models.RoleMember)
	path := "/api/workspaces/" + ws.ID + "/projects"

	w := e.request(http.MethodPost, path, e.token(owner), map[string]any{"name": "Apollo Launch", "memberIds": []string{bob.ID}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	project := decode[models.Project](t, w)
	require.Equal(t, "AL", project.Key)
	require.Len(t, project.Members, 2)

	w = e.request(http.MethodPost, path, e.token(bob), map[string]any{"name": "Another", "key": "al"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "conflict", decode[errorBody](t, w).Code)

	w = e.request(http.MethodPost, path, e.token(bob), map[string]any{"name": "Website"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "WEBS", decode[models.Project](t, w).Key)

	w = e.request(http.MethodPost, path, e.token(bob), map[string]any{"name": "Bad", "key": "9X"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	outsider := testutil.CreateUser(t, e.db, "out@example.com")
	w = e.request(http.MethodPost, path, e.token(owner), map[string]any{"name": "Mixed", "memberIds": []string{outsider.ID}})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = e.request(http.MethodGet, path+"?search=apo", e.token(bob), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, decode[map[string]any](t, w)["count"])
}

func TestCreateProject_ViewerForbidden(t *testing.T) {
	e := newEnv(t)
	ws, _ := e.seedWorkspace("acme")
	viewer := e.addUser(ws, "viewer@example.com", models.RoleViewer)

	w := e.request(http.MethodPost, "/api/workspaces/"+ws.ID+"/projects", e.token(viewer), map[string]any{"name": "Nope"})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Zero(t, e.conn().count(&models.Project{}, "workspace_id = ?", ws.ID))
}

func TestGetProject(t *testing.T) {
	e := newEnv(t)
	ws, owner := e.seedWorkspace("acme")
	project := testutil.CreateProject(t, e.db, ws.ID, "APP")

	w := e.request(http.MethodGet, "/api/projects/"+project.ID, e.token(owner), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Project   models.Project `json:"project"`
		TaskCount int64          `json:"taskCount"`
	}](t, w)
	require.Equal(t, "APP", body.Project.Key)
	require.Zero(t, body.TaskCount)

	w = e.request(http.MethodGet, "/api/projects/missing", e.token(owner), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "not_found", decode[errorBody](t, w).Code)

	stranger := testutil.CreateUser(t, e.db, "stranger@example.com")
	w = e.request(http.MethodGet, "/api/projects/"+project.ID, e.token(stranger), nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateProject_KeyChangeNeedsAdmin(t *testing.T) {
	e := newEnv(t)
	ws, owner := e.seedWorkspace("acme")
	bob := e.addUser(ws, "bob@example.com", models.RoleMember)
	project := testutil.CreateProject(t, e.db, ws.ID, "APP")
	path := "/api/projects/" + project.ID

	w := e.request(http.MethodPut, path, e.token(bob), map[string]any{"name": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "Renamed", decode[models.Project](t, w).Name)

	w = e.request(http.MethodPut, path, e.token(bob), map[string]any{"key": "NEW"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = e.request(http.MethodPut, path, e.token(owner), map[string]any{"key": "NEW", "memberIds": []string{bob.ID}})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[models.Project](t, w)
	require.Equal(t, "NEW", updated.Key)
	require.Len(t, updated.Members, 1)
}

func TestDeleteProject_RemovesTasks(t *testing.T) {
	e := newEnv(t)
	ws, owner := e.seedWorkspace("acme")
	bob := e.addUser(ws, "bob@example.com", models.RoleMember)
	project := testutil.CreateProject(t, e.db, ws.ID, "APP")

	w := e.request(http.MethodPost, "/api/projects/"+project.ID+"/tasks", e.token(bob), map[string]string{"title": "Ship it"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.request(http.MethodPost, "/api/workspaces/"+ws.ID+"/task-statuses", e.token(owner), map[string]any{"name": "Blocked", "projectId": project.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.EqualValues(t, 5, e.conn().count(&models.TaskStatus{}, "project_id = ?", project.ID))

	require.Equal(t, http.StatusForbidden, e.request(http.MethodDelete, "/api/projects/"+project.ID, e.token(bob), nil).Code)

	w = e.request(http.MethodDelete, "/api/projects/"+project.ID, e.token(owner), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Zero(t, e.conn().count(&models.Task{}, "project_id = ?", project.ID))
	require.Zero(t, e.conn().count(&models.TaskStatus{}, "project_id = ?", project.ID))
	require.Zero(t, e.conn().count(&models.Project{}, "id = ?", project.ID))
}
