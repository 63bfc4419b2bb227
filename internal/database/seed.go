package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/buddy0323/IA-TEK-streamlit/internal/access"
	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/mudler/xlog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Bootstrap ensures the superadministrador role exists with the full
// permission catalogue and, when adminPassword is set, creates the
// superadmin user bound to it. Existing rows are left untouched apart from
// resyncing the super role's permissions.
func Bootstrap(ctx context.Context, db *gorm.DB, adminEmail, adminPassword string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role model.Role
		err := tx.Where("LOWER(name) = ?", model.SuperRoleName).First(&role).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			role = model.Role{
				Name:        model.SuperRoleName,
				Description: "Acceso total al sistema",
				Permissions: access.NewPermissionSet(access.AllPermissions...).String(),
			}
			if err := tx.Create(&role).Error; err != nil {
				return fmt.Errorf("failed to seed role '%s': %w", model.SuperRoleName, err)
			}
			xlog.Info("Seeded role", "role", role.Name)
		case err != nil:
			return err
		default:
			all := access.NewPermissionSet(access.AllPermissions...).String()
			if role.Permissions != all {
				if err := tx.Model(&role).Update("permissions", all).Error; err != nil {
					return fmt.Errorf("failed to resync role '%s': %w", role.Name, err)
				}
			}
		}

		if adminPassword == "" {
			return nil
		}

		var count int64
		if err := tx.Model(&model.User{}).Where("LOWER(username) = ?", model.SuperadminUsername).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash bootstrap password: %w", err)
		}
		admin := model.User{
			Username: model.SuperadminUsername,
			Email:    adminEmail,
			Password: string(hash),
			RoleID:   role.ID,
			Status:   model.StatusActive,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to seed user '%s': %w", admin.Username, err)
		}
		xlog.Info("Seeded user", "username", admin.Username)
		return nil
	})
}
