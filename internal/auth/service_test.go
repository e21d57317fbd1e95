package auth_test

import (
	"context"
	"sync"
	"testing"

	"project-management-api/internal/apperr"
	"project-management-api/internal/auth"
	"project-management-api/internal/config"
	"project-management-api/internal/database"
	"project-management-api/internal/models"
	"project-management-api/internal/testutil"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*auth.Service, *database.DB) {
	t.Helper()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	return auth.NewService(db, auth.NewTokenIssuer(config.Default().Auth), zerolog.Nop()), db
}

func TestRegister_ProvisionsPersonalWorkspace(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "Alice", "Alice@Example.com", "supersecret")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", reg.User.Email)
	require.NotEmpty(t, reg.Token)
	require.Equal(t, "alice", reg.Workspace.Slug)

	var member models.WorkspaceMember
	require.NoError(t, db.Conn(ctx).Where("workspace_id = ? AND user_id = ?", reg.Workspace.ID, reg.User.ID).First(&member).Error)
	require.Equal(t, models.RoleOwner, member.Role)
	require.Equal(t, models.MemberActive, member.Status)
}

func TestRegister_DuplicateEmailNeverCreatesSecondUser(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Alice", "alice@example.com", "supersecret")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Alice Again", "ALICE@example.com", "supersecret")
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	var count int64
	require.NoError(t, db.Conn(ctx).Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRegister_ConcurrentDuplicates(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Register(ctx, "Racer", "racer@example.com", "supersecret")
		}()
	}
	wg.Wait()

	var count int64
	require.NoError(t, db.Conn(ctx).Model(&models.User{}).Where("email = ?", "racer@example.com").Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "a@example.com", "supersecret")
	require.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
	_, err = svc.Register(ctx, "A", "not-an-email", "supersecret")
	require.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
	_, err = svc.Register(ctx, "A", "a@example.com", "short")
	require.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
}

func TestAuthorize(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Alice", "alice@example.com", "supersecret")
	require.NoError(t, err)
	_, _, err = svc.SignInWithProvider(ctx, auth.Profile{Provider: "github", Email: "oauth@example.com", Name: "O"})
	require.NoError(t, err)

	user, err := svc.Authorize(ctx, auth.Credentials{Email: "ALICE@example.com", Password: "supersecret"})
	require.NoError(t, err)
	require.NotNil(t, user)

	cases := []auth.Credentials{
		{Email: "alice@example.com", Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "supersecret"},
		{Email: "not-an-email", Password: "supersecret"},
		{Email: "oauth@example.com", Password: "anything"},
	}
	for _, c := range cases {
		user, err := svc.Authorize(ctx, c)
		require.NoError(t, err, c.Email)
		require.Nil(t, user, c.Email)
	}
}

func TestSignInWithProvider_ProvisionsOnce(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	profile := auth.Profile{Provider: "google", Email: "carol@example.com", Name: "Carol", Image: "c.png"}
	user, created, err := svc.SignInWithProvider(ctx, profile)
	require.NoError(t, err)
	require.True(t, created)
	require.Nil(t, user.PasswordHash)

	again, created, err := svc.SignInWithProvider(ctx, profile)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, user.ID, again.ID)

	var workspaces int64
	require.NoError(t, db.Conn(ctx).Model(&models.Workspace{}).Where("creator_id = ?", user.ID).Count(&workspaces).Error)
	require.EqualValues(t, 1, workspaces)
}

func TestUpdateProfile_ReissuesToken(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "Alice", "alice@example.com", "supersecret")
	require.NoError(t, err)

	name := "Alice Cooper"
	user, token, err := svc.UpdateProfile(ctx, reg.User.ID, &name, nil)
	require.NoError(t, err)
	require.Equal(t, "Alice Cooper", user.Name)

	claims, err := svc.Tokens().ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "Alice Cooper", claims.Name)

	empty := " "
	_, _, err = svc.UpdateProfile(ctx, reg.User.ID, &empty, nil)
	require.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
}
