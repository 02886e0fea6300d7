package repository

import (
	"context"
	"errors"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"gorm.io/gorm"
)

// RoleRepository dépôt des rôles
type RoleRepository struct {
	db *gorm.DB
}

// NewRoleRepository crée le dépôt des rôles
func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// FindByID recherche un rôle par ID, permissions incluses
func (r *RoleRepository) FindByID(ctx context.Context, id string) (*entity.Role, error) {
	var role entity.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("id = ?", id).
		First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// FindByCode recherche un rôle par code
func (r *RoleRepository) FindByCode(ctx context.Context, code string) (*entity.Role, error) {
	var role entity.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("code = ?", code).
		First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// Create crée un rôle
func (r *RoleRepository) Create(ctx context.Context, role *entity.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

// Update met à jour un rôle
func (r *RoleRepository) Update(ctx context.Context, role *entity.Role) error {
	return r.db.WithContext(ctx).Save(role).Error
}

// Delete supprime un rôle
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.Role{}).Error
}

// List liste tous les rôles avec leurs permissions
func (r *RoleRepository) List(ctx context.Context) ([]entity.Role, error) {
	var roles []entity.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Order("code ASC").
		Find(&roles).Error
	return roles, err
}

// CountUsers compte les utilisateurs portant ce rôle
func (r *RoleRepository) CountUsers(ctx context.Context, roleID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.UserRole{}).
		Where("role_id = ?", roleID).
		Count(&count).Error
	return count, err
}

// AddPermission ajoute une permission à un rôle (idempotent)
func (r *RoleRepository) AddPermission(ctx context.Context, roleID, permissionID string) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO role_permissions (role_id, permission_id, created_at)
		VALUES (?, ?, NOW())
		ON CONFLICT (role_id, permission_id) DO NOTHING
	`, roleID, permissionID).Error
}

// RemovePermission retire une permission d'un rôle
func (r *RoleRepository) RemovePermission(ctx context.Context, roleID, permissionID string) error {
	return r.db.WithContext(ctx).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Delete(&entity.RolePermission{}).Error
}

// PermissionRepository dépôt des permissions
type PermissionRepository struct {
	db *gorm.DB
}

// NewPermissionRepository crée le dépôt des permissions
func NewPermissionRepository(db *gorm.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// FindByID recherche une permission par ID
func (r *PermissionRepository) FindByID(ctx context.Context, id string) (*entity.Permission, error) {
	var perm entity.Permission
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&perm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &perm, nil
}

// FindByCode recherche une permission par code
func (r *PermissionRepository) FindByCode(ctx context.Context, code string) (*entity.Permission, error) {
	var perm entity.Permission
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&perm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &perm, nil
}

// Create crée une permission
func (r *PermissionRepository) Create(ctx context.Context, perm *entity.Permission) error {
	return r.db.WithContext(ctx).Create(perm).Error
}

// List liste toutes les permissions
func (r *PermissionRepository) List(ctx context.Context) ([]entity.Permission, error) {
	var perms []entity.Permission
	err := r.db.WithContext(ctx).
		Order("code ASC").
		Find(&perms).Error
	return perms, err
}
