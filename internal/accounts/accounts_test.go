package accounts

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	dbpkg "github.com/ldcshop/storefront/internal/db"
	"github.com/ldcshop/storefront/internal/models"
	"github.com/ldcshop/storefront/internal/security"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openAccountsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:accounts_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, errOpen)
	require.NoError(t, dbpkg.Migrate(db))
	return db
}

func TestCreateAdmin(t *testing.T) {
	db := openAccountsTestDB(t)
	ctx := context.Background()

	admin, err := CreateAdmin(ctx, db, CreateAdminParams{
		Username:    "ops",
		Password:    "hunter22",
		Permissions: []string{"GET /v0/admin/orders", "GET /v0/admin/orders"},
	})
	require.NoError(t, err)
	require.True(t, admin.Active)
	require.True(t, security.CheckPassword(admin.Password, "hunter22"))
	require.JSONEq(t, `["GET /v0/admin/orders"]`, string(admin.Permissions))

	_, err = CreateAdmin(ctx, db, CreateAdminParams{Username: "ops", Password: "x"})
	require.True(t, errors.Is(err, ErrUsernameTaken), "got %v", err)

	_, err = CreateAdmin(ctx, db, CreateAdminParams{Username: "other", Password: "x", Permissions: []string{"GET /nope"}})
	require.True(t, errors.Is(err, ErrInvalidPermissions), "got %v", err)

	_, err = CreateAdmin(ctx, db, CreateAdminParams{Username: " ", Password: "x"})
	require.True(t, errors.Is(err, ErrMissingCredentials), "got %v", err)
}

func TestUpsertUserRefreshesProfile(t *testing.T) {
	db := openAccountsTestDB(t)
	ctx := context.Background()

	require.NoError(t, UpsertUser(ctx, db, models.User{UserID: "42", Username: "alice"}))
	require.NoError(t, UpsertUser(ctx, db, models.User{UserID: "42", Username: "Alice2", Email: "a@example.com"}))

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	require.Equal(t, "Alice2", users[0].Username)
	require.Equal(t, "a@example.com", users[0].Email)

	require.Error(t, UpsertUser(ctx, db, models.User{}))
}

func TestSetAdminActive(t *testing.T) {
	db := openAccountsTestDB(t)
	ctx := context.Background()

	root, err := CreateAdmin(ctx, db, CreateAdminParams{Username: "root", Password: "pw", IsSuperAdmin: true})
	require.NoError(t, err)
	ops, err := CreateAdmin(ctx, db, CreateAdminParams{Username: "ops", Password: "pw"})
	require.NoError(t, err)

	require.ErrorIs(t, SetAdminActive(ctx, db, root.ID, root.ID, false), ErrSelfLockout)
	require.NoError(t, SetAdminActive(ctx, db, root.ID, ops.ID, false))

	var reloaded models.Admin
	require.NoError(t, db.First(&reloaded, ops.ID).Error)
	require.False(t, reloaded.Active)

	require.ErrorIs(t, SetAdminActive(ctx, db, root.ID, 9999, true), ErrAdminNotFound)
}

func TestSetAdminPermissions(t *testing.T) {
	db := openAccountsTestDB(t)
	ctx := context.Background()

	ops, err := CreateAdmin(ctx, db, CreateAdminParams{Username: "ops", Password: "pw"})
	require.NoError(t, err)

	granted, err := SetAdminPermissions(ctx, db, ops.ID, []string{" GET /v0/admin/products", "GET /v0/admin/orders"})
	require.NoError(t, err)
	require.Equal(t, []string{"GET /v0/admin/orders", "GET /v0/admin/products"}, granted)

	_, err = SetAdminPermissions(ctx, db, ops.ID, []string{"DELETE /v0/admin/everything"})
	require.ErrorIs(t, err, ErrInvalidPermissions)

	_, err = SetAdminPermissions(ctx, db, 9999, nil)
	require.ErrorIs(t, err, ErrAdminNotFound)
}
