package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/bouramah/GovTrack-sub003/internal/config"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
)

var defaultPermissions = []string{
	"users.create", "users.update", "users.delete",
	"entites.create", "entites.update", "entites.delete", "entites.affecter",
	"projets.create", "projets.update", "projets.delete",
	"taches.create", "taches.update", "taches.delete",
	"audit.read",
}

// seedDefaults installe les permissions, le rôle admin et le compte
// administrateur initial. Idempotent, ne touche pas à l'existant.
func seedDefaults(db *gorm.DB) error {
	now := time.Now()

	permIDs := make(map[string]string, len(defaultPermissions))
	for _, code := range defaultPermissions {
		var perm entity.Permission
		err := db.Where("code = ?", code).First(&perm).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			perm = entity.Permission{
				ID:          newID(),
				Code:        code,
				Description: "Permission " + code,
				CreatedAt:   now,
			}
			if err = db.Create(&perm).Error; err != nil {
				return fmt.Errorf("failed to seed permission %s: %w", code, err)
			}
		} else if err != nil {
			return err
		}
		permIDs[code] = perm.ID
	}

	var admin entity.Role
	err := db.Where("code = ?", "admin").First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		admin = entity.Role{
			ID:          newID(),
			Code:        "admin",
			Nom:         "Administrateur",
			Description: "Accès complet à la plateforme",
			IsSystem:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err = db.Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to seed admin role: %w", err)
		}
		for _, permID := range permIDs {
			pivot := entity.RolePermission{RoleID: admin.ID, PermissionID: permID, CreatedAt: now}
			if err = db.Create(&pivot).Error; err != nil {
				return err
			}
		}
	} else if err != nil {
		return err
	}

	var count int64
	if err = db.Model(&entity.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := config.GetEnvOrDefault("ADMIN_PASSWORD", "ChangezMoi123!")
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := entity.User{
		ID:           newID(),
		Matricule:    "ADMIN-001",
		Nom:          "Système",
		Prenom:       "Administrateur",
		Email:        config.GetEnvOrDefault("ADMIN_EMAIL", "admin@govtrack.local"),
		PasswordHash: string(hash),
		Statut:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err = db.Create(&user).Error; err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	pivot := entity.UserRole{UserID: user.ID, RoleID: admin.ID, CreatedAt: now}
	return db.Create(&pivot).Error
}

func newID() string {
	return uuid.New().String()[:32]
}
