package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoleAtLeast_AllPairs(t *testing.T) {
	roles := Roles()
	for i, caller := range roles {
		for j, required := range roles {
			require.Equal(t, i >= j, caller.AtLeast(required), "%s vs %s", caller, required)
		}
	}
}

func TestRoleAtLeast_UnknownNeverGrants(t *testing.T) {
	require.False(t, Role("superuser").AtLeast(RoleViewer))
	require.False(t, RoleOwner.AtLeast(Role("")))
	require.False(t, Role("").Valid())
	require.True(t, RoleAdmin.Valid())
}

func TestScopeAndTagKeys(t *testing.T) {
	require.Equal(t, "", ScopeKey(nil))
	p := "proj-1"
	require.Equal(t, "proj-1", ScopeKey(&p))
	require.Equal(t, "backend", TagKey("  BackEnd "))
}

func TestDefaultTaskStatuses(t *testing.T) {
	statuses := DefaultTaskStatuses("ws-1")
	require.Len(t, statuses, 4)
	for i, s := range statuses {
		require.Equal(t, i, s.Order)
		require.True(t, s.IsSystem)
		require.Equal(t, "ws-1", s.WorkspaceID)
		require.Nil(t, s.ProjectID)
	}
	require.True(t, statuses[3].IsDone)
}

func TestInviteExpired(t *testing.T) {
	now := time.Now()
	require.True(t, WorkspaceInvite{ExpiresAt: now.Add(-time.Minute)}.Expired(now))
	require.True(t, WorkspaceInvite{ExpiresAt: now}.Expired(now))
	require.False(t, WorkspaceInvite{ExpiresAt: now.Add(time.Hour)}.Expired(now))
}
