package handlers_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"project-management-api/internal/models"
	"project-management-api/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestInvitation_CreateAndAccept(t *testing.T) {
	e := newEnv(t)
	ws, owner := e.seedWorkspace("acme")
	carol := testutil.CreateUser(t, e.db, "carol@example.com")

	w := e.request(http.MethodPost, "/api/workspaces/"+ws.ID+"/invitations", e.token(owner),
		map[string]string{"email": "Carol@Example.com", "role": "member"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	invite := decode[models.WorkspaceInvite](t, w)
	require.Len(t, invite.Token, 64)
	require.Equal(t, "carol@example.com", invite.Email)
	require.WithinDuration(t, time.Now().Add(e.cfg.Invites.TTL), invite.ExpiresAt, time.Minute)

	w = e.request(http.MethodPost, "/api/workspaces/"+ws.ID+"/invitations", e.token(owner),
		map[string]string{"email": "carol@example.com", "role": "member"})
	require.Equal(t, http.StatusConflict, w.Code)

	w = e.request(http.MethodPost, "/api/invites/accept", e.token(carol), map[string]string{"token": invite.Token, "type": "workspace"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	accepted := decode[struct {
		Member models.WorkspaceMember `json:"member"`
	}](t, w)
	require.Equal(t, models.RoleMember, accepted.Member.Role)
	require.Equal(t, models.MemberActive, accepted.Member.Status)

	// single use
	w = e.request(http.MethodPost, "/api/invites/accept", e.token(carol), map[string]string{"token": invite.Token})
	require.Equal(t, http.StatusConflict, w.Code)
	require.EqualValues(t, 1, e.conn().count(&models.WorkspaceMember{}, "workspace_id = ? AND user_id = ?", ws.ID, carol.ID))

	w = e.request(http.MethodGet, "/api/workspaces/"+ws.ID, e.token(carol), nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func insertInvite(t *testing.T, e *env, ws *models.Workspace, inviter *models.User, email string, expires time.Time) *models.WorkspaceInvite {
	t.Helper()
	inv := &models.WorkspaceInvite{
		WorkspaceID: ws.ID,
		Email:       email,
		Role:        models.RoleMember,
		Token:       "tok-" + email,
		Status:      models.InvitePending,
		InvitedByID: inviter.ID,
		InvitedAt:   time.Now().Add(-8 * 24 * time.Hour),
		ExpiresAt:   expires,
	}
	require.NoError(t, e.db.Conn(context.Background()).Create(inv).Error)
	return inv
}

func TestInvitation_ConcurrentAcceptConsumesOnce(t *testing.T) {
	e := newEnv(t)
	ws, owner := e.seedWorkspace("acme")
	frank := testutil.CreateUser(t, e.db, "frank@example.com")
	inv := insertInvite(t, e, ws, owner, "frank@example.com", time.Now().Add(time.Hour))
	token := e.token(frank)

	const n = 4
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = e.request(http.MethodPost, "/api/invites/accept", token, map[string]string{"token": inv.Token}).Code
		}()
	}
	wg.Wait()

	var ok, conflict int
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		}
	}
	require.Equal(t, 1, ok, codes)
	require.Equal(t, n-1, conflict, codes)
	require.EqualValues(t, 1, e.conn().count(&models.WorkspaceMember{}, "workspace_id = ? AND user_id = ?", ws.ID, frank.ID))
	require.EqualValues(t, 1, e.conn().count(&models.ActivityLog{}, "workspace_id = ? AND action = ?", ws.ID, "member.joined"))
	require.EqualValues(t, 1, e.conn().count(&models.WorkspaceInvite{}, "id = ? AND status = ?", inv.ID, models.InviteAccepted))
}

func TestInvitation_ExpiredCreatesNoMember(t *testing.T) {
	e := newEnv(t)
	ws, owner := e.seedWorkspace("acme")
	dave := testutil.CreateUser(t, e.db, "dave@example.com")
	inv := insertInvite(t, e, ws, owner, "dave@example.com", time.Now().Add(-time.Hour))

	w := e.request(http.MethodPost, "/api/invites/accept", e.token(dave), map[string]string{"token": inv.Token})
	require.Equal(t, http.StatusGone, w.Code)
	require.Equal(t, "expired", decode[errorBody](t, w).Code)
	require.Zero(t, e.conn().count(&models.WorkspaceMember{}, "user_id = ?", dave.ID))
	require.EqualValues(t, 1, e.conn().count(&models.WorkspaceInvite{}, "id = ? AND status = ?", inv.ID, models.InvitePending))
}

func TestInvitation_WrongRecipientAndUnknownToken(t *testing.T) {
	e := newEnv(t)
	ws, owner := e.seedWorkspace("acme")
	eve := testutil.CreateUser(t, e.db, "eve@example.com")
	inv := insertInvite(t, e, ws, owner, "dave@example.com", time.Now().Add(time.Hour))

	w := e.request(http.MethodPost, "/api/invites/accept", e.token(eve), map[string]string{"token": inv.Token})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Zero(t, e.conn().count(&models.WorkspaceMember{}, "user_id = ?", eve.ID))

	w = e.request(http.MethodPost, "/api/invites/accept", e.token(eve), map[string]string{"token": "nope"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = e.request(http.MethodPost, "/api/invites/accept", e.token(eve), map[string]string{"token": inv.Token, "type": "project"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvitation_RevokedCannotBeAccepted(t *testing.T) {
	e := newEnv(t)
	ws, owner := e.seedWorkspace("acme")
	dave := testutil.CreateUser(t, e.db, "dave@example.com")
	inv := insertInvite(t, e, ws, owner, "dave@example.com", time.Now().Add(time.Hour))
	member := e.addUser(ws, "member@example.com", models.RoleMember)

	path := "/api/workspaces/" + ws.ID + "/invitations/" + inv.ID
	require.Equal(t, http.StatusForbidden, e.request(http.MethodDelete, path, e.token(member), nil).Code)
	require.Equal(t, http.StatusOK, e.request(http.MethodDelete, path, e.token(owner), nil).Code)
	require.Equal(t, http.StatusNotFound, e.request(http.MethodDelete, path, e.token(owner), nil).Code)

	w := e.request(http.MethodPost, "/api/invites/accept", e.token(dave), map[string]string{"token": inv.Token})
	require.Equal(t, http.StatusGone, w.Code)
	require.Zero(t, e.conn().count(&models.WorkspaceMember{}, "user_id = ?", dave.ID))

	w = e.request(http.MethodGet, "/api/workspaces/"+ws.ID+"/invitations", e.token(owner), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, decode[map[string]any](t, w)["count"])
}
