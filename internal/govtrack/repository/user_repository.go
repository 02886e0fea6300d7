package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"gorm.io/gorm"
)

// UserRepository dépôt des utilisateurs
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository crée le dépôt des utilisateurs
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID recherche un utilisateur par ID, rôles et permissions inclus
func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Preload("Roles").
		Preload("Roles.Permissions").
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	fillRoleCodes(&user)
	return &user, nil
}

// FindByEmail recherche un utilisateur par email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Preload("Roles").
		Preload("Roles.Permissions").
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	fillRoleCodes(&user)
	return &user, nil
}

// FindByMatricule recherche un utilisateur par matricule
func (r *UserRepository) FindByMatricule(ctx context.Context, matricule string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Where("matricule = ?", matricule).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Create crée un utilisateur
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// Update met à jour un utilisateur
func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// Delete supprime un utilisateur
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.User{}).Error
}

// UpdateLastLogin enregistre la date de dernière connexion
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

// UpdatePassword remplace le hash du mot de passe
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash).Error
}

// List liste paginée avec filtres
func (r *UserRepository) List(ctx context.Context, page, pageSize int, filters map[string]interface{}) ([]entity.User, int64, error) {
	var users []entity.User
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.User{})

	if statut, ok := filters["statut"].(bool); ok {
		query = query.Where("statut = ?", statut)
	}
	if entiteID, ok := filters["entite_id"].(string); ok && entiteID != "" {
		query = query.Where("id IN (SELECT user_id FROM utilisateur_entite_histories WHERE entite_id = ? AND statut = true)", entiteID)
	}
	if search, ok := filters["search"].(string); ok && search != "" {
		like := "%" + search + "%"
		query = query.Where("nom ILIKE ? OR prenom ILIKE ? OR matricule ILIKE ? OR email ILIKE ?", like, like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Roles").
		Order("nom ASC, prenom ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	for i := range users {
		fillRoleCodes(&users[i])
	}
	return users, total, nil
}

// CountByEmail compte les utilisateurs portant cet email, hors excludeID
func (r *UserRepository) CountByEmail(ctx context.Context, email, excludeID string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&entity.User{}).Where("email = ?", email)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count, err
}

// CountByMatricule compte les utilisateurs portant ce matricule, hors excludeID
func (r *UserRepository) CountByMatricule(ctx context.Context, matricule, excludeID string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&entity.User{}).Where("matricule = ?", matricule)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count, err
}

// AssignRole ajoute un rôle à un utilisateur (idempotent)
func (r *UserRepository) AssignRole(ctx context.Context, userID, roleID string) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO user_roles (user_id, role_id, created_at)
		VALUES (?, ?, NOW())
		ON CONFLICT (user_id, role_id) DO NOTHING
	`, userID, roleID).Error
}

// RemoveRole retire un rôle d'un utilisateur
func (r *UserRepository) RemoveRole(ctx context.Context, userID, roleID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&entity.UserRole{}).Error
}

// HasRole vérifie l'attribution d'un rôle
func (r *UserRepository) HasRole(ctx context.Context, userID, roleID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.UserRole{}).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Count(&count).Error
	return count > 0, err
}

// fillRoleCodes projette rôles et permissions en listes de codes
func fillRoleCodes(user *entity.User) {
	seen := make(map[string]bool)
	for _, role := range user.Roles {
		user.RoleCodes = append(user.RoleCodes, role.Code)
		for _, perm := range role.Permissions {
			if !seen[perm.Code] {
				seen[perm.Code] = true
				user.PermissionCodes = append(user.PermissionCodes, perm.Code)
			}
		}
	}
}

// LoginActivityRepository dépôt du journal de connexions, append-only
type LoginActivityRepository struct {
	db *gorm.DB
}

// NewLoginActivityRepository crée le dépôt du journal de connexions
func NewLoginActivityRepository(db *gorm.DB) *LoginActivityRepository {
	return &LoginActivityRepository{db: db}
}

// Create enregistre une activité de connexion
func (r *LoginActivityRepository) Create(ctx context.Context, activity *entity.LoginActivity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

// ListByUser liste paginée des activités d'un utilisateur
func (r *LoginActivityRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]entity.LoginActivity, int64, error) {
	var activities []entity.LoginActivity
	var total int64

	query := r.db.WithContext(ctx).
		Model(&entity.LoginActivity{}).
		Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&activities).Error
	return activities, total, err
}
