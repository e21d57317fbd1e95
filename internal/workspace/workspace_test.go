package workspace_test

import (
	"context"
	"testing"

	"project-management-api/internal/apperr"
	"project-management-api/internal/models"
	"project-management-api/internal/testutil"
	"project-management-api/internal/workspace"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSlugify(t *testing.T) {
	require.Equal(t, "acme-corp", workspace.Slugify("  Acme Corp!! "))
	require.Equal(t, "", workspace.Slugify("!!!"))
	require.True(t, workspace.ValidSlug("acme-corp"))
	require.False(t, workspace.ValidSlug("Acme Corp"))
	require.False(t, workspace.ValidSlug("-acme"))
}

func TestUniqueSlug_AppendsSuffix(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	conn := db.Conn(context.Background())

	require.NoError(t, conn.Create(&models.Workspace{Name: "Acme", Slug: "acme"}).Error)
	require.NoError(t, conn.Create(&models.Workspace{Name: "Acme", Slug: "acme-2"}).Error)

	slug, err := workspace.UniqueSlug(conn, "Acme")
	require.NoError(t, err)
	require.Equal(t, "acme-3", slug)
}

func TestCreateWithOwner_AndFind(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	ctx := context.Background()

	user := &models.User{Name: "Alice", Email: "alice@example.com"}
	require.NoError(t, db.Conn(ctx).Create(user).Error)

	ws := &models.Workspace{Name: "Acme", Slug: "acme"}
	err = db.Transaction(ctx, func(tx *gorm.DB) error {
		member, err := workspace.CreateWithOwner(tx, ws, user.ID)
		if err != nil {
			return err
		}
		require.Equal(t, models.RoleOwner, member.Role)
		return nil
	})
	require.NoError(t, err)

	byID, err := workspace.Find(db.Conn(ctx), ws.ID)
	require.NoError(t, err)
	require.Equal(t, "acme", byID.Slug)

	bySlug, err := workspace.Find(db.Conn(ctx), "ACME")
	require.NoError(t, err)
	require.Equal(t, ws.ID, bySlug.ID)

	missing, err := workspace.Find(db.Conn(ctx), "nope")
	require.NoError(t, err)
	require.Nil(t, missing)

	_, err = workspace.Resolve(db.Conn(ctx), "nope")
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestProvisionPersonal_FallsBackToEmail(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	ctx := context.Background()

	user := &models.User{Name: "***", Email: "bob.smith@example.com"}
	require.NoError(t, db.Conn(ctx).Create(user).Error)

	var ws *models.Workspace
	require.NoError(t, db.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		ws, err = workspace.ProvisionPersonal(tx, user)
		return err
	}))
	require.Equal(t, "bob-smith", ws.Slug)
	require.Equal(t, user.ID, ws.CreatorID)
}
