package authz_test

import (
	"context"
	"testing"
	"time"

	"project-management-api/internal/apperr"
	"project-management-api/internal/authz"
	"project-management-api/internal/models"
	"project-management-api/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestHasWorkspaceAccess_RolePairs(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	ctx := context.Background()
	svc := authz.NewService(db, time.Minute)

	ws := testutil.CreateWorkspace(t, db, "acme")
	for _, caller := range models.Roles() {
		user := testutil.CreateUser(t, db, string(caller)+"@example.com")
		testutil.AddMember(t, db, ws.ID, user.ID, caller)

		ok, err := svc.HasWorkspaceAccess(ctx, ws.ID, user.ID)
		require.NoError(t, err)
		require.True(t, ok)

		for _, required := range models.Roles() {
			ok, err := svc.HasWorkspaceAccess(ctx, ws.ID, user.ID, required)
			require.NoError(t, err)
			require.Equal(t, caller.Rank() >= required.Rank(), ok, "%s vs %s", caller, required)

			_, err = svc.Require(ctx, ws.ID, user.ID, required)
			if ok {
				require.NoError(t, err)
			} else {
				require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
			}
		}
	}
}

func TestHasWorkspaceAccess_NonMemberAndInvited(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	ctx := context.Background()
	svc := authz.NewService(db, time.Minute)

	ws := testutil.CreateWorkspace(t, db, "acme")
	outsider := testutil.CreateUser(t, db, "out@example.com")
	ok, err := svc.HasWorkspaceAccess(ctx, ws.ID, outsider.ID)
	require.NoError(t, err)
	require.False(t, ok)

	invited := testutil.CreateUser(t, db, "inv@example.com")
	m := testutil.AddMember(t, db, ws.ID, invited.ID, models.RoleAdmin)
	require.NoError(t, db.Conn(ctx).Model(m).Update("status", models.MemberInvited).Error)
	ok, err = svc.HasWorkspaceAccess(ctx, ws.ID, invited.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestForget_InvalidatesCachedRole(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	ctx := context.Background()
	svc := authz.NewService(db, time.Hour)

	ws := testutil.CreateWorkspace(t, db, "acme")
	user := testutil.CreateUser(t, db, "u@example.com")
	m := testutil.AddMember(t, db, ws.ID, user.ID, models.RoleViewer)

	ok, _ := svc.HasWorkspaceAccess(ctx, ws.ID, user.ID, models.RoleAdmin)
	require.False(t, ok)

	require.NoError(t, db.Conn(ctx).Model(m).Update("role", models.RoleAdmin).Error)
	ok, _ = svc.HasWorkspaceAccess(ctx, ws.ID, user.ID, models.RoleAdmin)
	require.False(t, ok, "cached role still in effect")

	svc.Forget(ws.ID, user.ID)
	ok, _ = svc.HasWorkspaceAccess(ctx, ws.ID, user.ID, models.RoleAdmin)
	require.True(t, ok)

	require.NoError(t, db.Conn(ctx).Delete(m).Error)
	svc.ForgetWorkspace(ws.ID)
	ok, _ = svc.HasWorkspaceAccess(ctx, ws.ID, user.ID)
	require.False(t, ok)
}

func TestCanManageRole(t *testing.T) {
	require.True(t, authz.CanManageRole(models.RoleOwner, models.RoleOwner))
	require.True(t, authz.CanManageRole(models.RoleAdmin, models.RoleMember))
	require.False(t, authz.CanManageRole(models.RoleAdmin, models.RoleAdmin))
	require.False(t, authz.CanManageRole(models.RoleAdmin, models.RoleOwner))
	require.True(t, authz.CanManageRole(models.RoleMember, models.RoleViewer))
	require.False(t, authz.CanManageRole(models.RoleViewer, models.RoleViewer))
	require.False(t, authz.CanManageRole(models.RoleOwner, models.Role("god")))
}
