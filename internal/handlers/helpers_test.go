package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"project-management-api/internal/auth"
	"project-management-api/internal/config"
	"project-management-api/internal/database"
	"project-management-api/internal/models"
	"project-management-api/internal/routes"
	"project-management-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const bridgeSecret = "bridge-secret"

type env struct {
	t      *testing.T
	db     *database.DB
	cfg    *config.Config
	router *gin.Engine
	tokens *auth.TokenIssuer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Default()
	cfg.Uploads.Dir = t.TempDir()
	cfg.Uploads.MaxBytes = 64
	cfg.Auth.OAuthBridgeSecret = bridgeSecret

	return &env{
		t:      t,
		db:     db,
		cfg:    cfg,
		router: routes.Build(cfg, db, zerolog.Nop()),
		tokens: auth.NewTokenIssuer(cfg.Auth),
	}
}

func (e *env) token(u *models.User) string {
	e.t.Helper()
	tok, err := e.tokens.GenerateToken(u)
	require.NoError(e.t, err)
	return tok
}

func (e *env) request(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) conn() *gormConn {
	return &gormConn{e}
}

// gormConn shortens direct database assertions.
type gormConn struct{ e *env }

func (g *gormConn) count(model any, query string, args ...any) int64 {
	g.e.t.Helper()
	var n int64
	require.NoError(g.e.t, g.e.db.Conn(context.Background()).Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// seedWorkspace creates a workspace owned by a fresh user.
func (e *env) seedWorkspace(slug string) (*models.Workspace, *models.User) {
	e.t.Helper()
	owner := testutil.CreateUser(e.t, e.db, slug+"-owner@example.com")
	ws := testutil.CreateWorkspace(e.t, e.db, slug)
	testutil.AddMember(e.t, e.db, ws.ID, owner.ID, models.RoleOwner)
	return ws, owner
}

// addUser creates a user holding role in ws.
func (e *env) addUser(ws *models.Workspace, email string, role models.Role) *models.User {
	e.t.Helper()
	u := testutil.CreateUser(e.t, e.db, email)
	testutil.AddMember(e.t, e.db, ws.ID, u.ID, role)
	return u
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}
