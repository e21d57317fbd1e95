package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"project-management-api/internal/config"
	"project-management-api/internal/routes"
	"project-management-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	cfg := config.Default()
	cfg.Uploads.Dir = t.TempDir()
	return routes.Build(cfg, db, zerolog.Nop())
}

func TestHealth(t *testing.T) {
	r := newRouter(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHealth_DatabaseDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	cfg := config.Default()
	cfg.Uploads.Dir = t.TempDir()
	r := routes.Build(cfg, db, zerolog.Nop())
	require.NoError(t, db.Close())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), "unavailable")
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	r := newRouter(t)
	for _, path := range []string{"/api/workspaces", "/api/auth/session", "/api/tasks/abc"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRouteTable(t *testing.T) {
	r := newRouter(t)
	seen := map[string]bool{}
	for _, ri := range r.Routes() {
		seen[ri.Method+" "+ri.Path] = true
	}
	for _, want := range []string{
		"POST /api/auth/register",
		"GET /api/workspaces/:workspaceId",
		"POST /api/invites/accept",
		"POST /api/projects/:projectId/tasks",
		"PATCH /api/tasks/:taskId/move",
		"PUT /api/workspaces/:workspaceId/task-statuses/reorder",
		"DELETE /api/workspaces/:workspaceId/saved-views/:itemId",
		"GET /api/workspaces/:workspaceId/ws",
	} {
		require.True(t, seen[want], want)
	}
}
