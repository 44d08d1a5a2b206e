// Package accounts manages administrator accounts and the customer directory.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	permissions "github.com/ldcshop/storefront/internal/http/api/admin/permissions"
	"github.com/ldcshop/storefront/internal/models"
	"github.com/ldcshop/storefront/internal/security"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Account errors.
var (
	ErrMissingCredentials = errors.New("accounts: username and password are required")
	ErrInvalidPermissions = errors.New("accounts: invalid permissions")
	ErrUsernameTaken      = errors.New("accounts: username already exists")
	ErrAdminNotFound      = errors.New("accounts: admin not found")
	ErrSelfLockout        = errors.New("accounts: admins cannot disable themselves")
)

// CreateAdminParams holds inputs for admin creation.
type CreateAdminParams struct {
	Username     string
	Password     string
	Permissions  []string
	IsSuperAdmin bool
}

// CreateAdmin hashes the password, validates permissions and stores a new active admin.
func CreateAdmin(ctx context.Context, db *gorm.DB, params CreateAdminParams) (*models.Admin, error) {
	username := strings.TrimSpace(params.Username)
	password := strings.TrimSpace(params.Password)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	normalized := permissions.NormalizePermissions(params.Permissions)
	if errValidate := permissions.ValidatePermissions(normalized); errValidate != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPermissions, errValidate)
	}
	permissionsJSON, errMarshal := permissions.MarshalPermissions(normalized)
	if errMarshal != nil {
		return nil, fmt.Errorf("accounts: marshal permissions: %w", errMarshal)
	}

	var existing int64
	if errCount := db.WithContext(ctx).Model(&models.Admin{}).Where("username = ?", username).Count(&existing).Error; errCount != nil {
		return nil, fmt.Errorf("accounts: check username: %w", errCount)
	}
	if existing > 0 {
		return nil, ErrUsernameTaken
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return nil, fmt.Errorf("accounts: hash password: %w", errHash)
	}
	now := time.Now().UTC()
	admin := models.Admin{
		Username:     username,
		Password:     hash,
		Active:       true,
		IsSuperAdmin: params.IsSuperAdmin,
		Permissions:  datatypes.JSON(permissionsJSON),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if errCreate := db.WithContext(ctx).Create(&admin).Error; errCreate != nil {
		return nil, fmt.Errorf("accounts: create admin: %w", errCreate)
	}
	return &admin, nil
}

// SetAdminActive enables or disables an admin. actorID is the admin making
// the change; nobody may disable their own account.
func SetAdminActive(ctx context.Context, db *gorm.DB, actorID, adminID uint64, active bool) error {
	if !active && actorID == adminID {
		return ErrSelfLockout
	}
	res := db.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Updates(map[string]any{"active": active, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("accounts: update admin: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAdminNotFound
	}
	return nil
}

// SetAdminPermissions replaces an admin's granted permission keys.
func SetAdminPermissions(ctx context.Context, db *gorm.DB, adminID uint64, list []string) ([]string, error) {
	normalized := permissions.NormalizePermissions(list)
	if errValidate := permissions.ValidatePermissions(normalized); errValidate != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPermissions, errValidate)
	}
	raw, errMarshal := permissions.MarshalPermissions(normalized)
	if errMarshal != nil {
		return nil, fmt.Errorf("accounts: marshal permissions: %w", errMarshal)
	}
	res := db.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Updates(map[string]any{"permissions": datatypes.JSON(raw), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, fmt.Errorf("accounts: update permissions: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrAdminNotFound
	}
	return normalized, nil
}

// UpsertUser records or refreshes a customer in the user directory.
func UpsertUser(ctx context.Context, db *gorm.DB, user models.User) error {
	user.UserID = strings.TrimSpace(user.UserID)
	if user.UserID == "" {
		return errors.New("accounts: empty user id")
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "name", "email", "updated_at"}),
	}).Create(&user).Error
}
