package database_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"project-management-api/internal/apperr"
	"project-management-api/internal/database"
	"project-management-api/internal/models"
	"project-management-api/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDo_RetriesOnceOnStaleConnection(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	attempts := 0
	err = db.Do(context.Background(), func(tx *gorm.DB) error {
		attempts++
		if attempts == 1 {
			return fmt.Errorf("query: %w", driver.ErrBadConn)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
}

func TestDo_GivesUpAfterSecondStaleFailure(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	attempts := 0
	err = db.Do(context.Background(), func(tx *gorm.DB) error {
		attempts++
		return driver.ErrBadConn
	})
	require.Equal(t, 2, attempts)
	require.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
}

func TestDo_DoesNotRetryOtherErrors(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	attempts := 0
	err = db.Do(context.Background(), func(tx *gorm.DB) error {
		attempts++
		return errors.New("syntax error")
	})
	require.Equal(t, 1, attempts)
	require.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestClassify_TranslatedErrors(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	ctx := context.Background()

	err = db.Do(ctx, func(tx *gorm.DB) error {
		var u models.User
		return tx.First(&u, "id = ?", "missing").Error
	})
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	require.NoError(t, db.Conn(ctx).Create(&models.Workspace{Name: "A", Slug: "acme"}).Error)
	err = db.Do(ctx, func(tx *gorm.DB) error {
		return tx.Create(&models.Workspace{Name: "B", Slug: "acme"}).Error
	})
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestClassify_PassesThroughAppErrors(t *testing.T) {
	err := database.Classify(apperr.Forbidden("nope"))
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	require.NoError(t, database.Classify(nil))
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	ctx := context.Background()

	err = db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&models.Workspace{Name: "A", Slug: "rollback"}).Error; err != nil {
			return err
		}
		return apperr.Invalid("abort")
	})
	require.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	var count int64
	require.NoError(t, db.Conn(ctx).Model(&models.Workspace{}).Where("slug = ?", "rollback").Count(&count).Error)
	require.Zero(t, count)
}
