package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/repository"
	"golang.org/x/crypto/bcrypt"
)

// UserService gestion des utilisateurs, rôles et permissions
type UserService struct {
	userRepo *repository.UserRepository
	roleRepo *repository.RoleRepository
	permRepo *repository.PermissionRepository
	audit    *AuditService
}

// NewUserService crée le service utilisateurs
func NewUserService(userRepo *repository.UserRepository, roleRepo *repository.RoleRepository, permRepo *repository.PermissionRepository, audit *AuditService) *UserService {
	return &UserService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		permRepo: permRepo,
		audit:    audit,
	}
}

// CreateUserInput données de création d'un utilisateur
type CreateUserInput struct {
	Matricule string `json:"matricule" binding:"required"`
	Nom       string `json:"nom" binding:"required"`
	Prenom    string `json:"prenom" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	Telephone string `json:"telephone"`
}

// CreateUser crée un utilisateur, email et matricule uniques
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*entity.User, error) {
	fields := map[string]string{}
	if len(input.Password) < 8 {
		fields["password"] = "8 caractères minimum"
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if count, err := s.userRepo.CountByEmail(ctx, email, ""); err != nil {
		return nil, err
	} else if count > 0 {
		fields["email"] = "email déjà utilisé"
	}
	if count, err := s.userRepo.CountByMatricule(ctx, input.Matricule, ""); err != nil {
		return nil, err
	} else if count > 0 {
		fields["matricule"] = "matricule déjà utilisé"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := &entity.User{
		ID:           generateID(),
		Matricule:    input.Matricule,
		Nom:          input.Nom,
		Prenom:       input.Prenom,
		Email:        email,
		PasswordHash: string(hash),
		Telephone:    input.Telephone,
		Statut:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUserInput données de mise à jour d'un utilisateur
type UpdateUserInput struct {
	Nom       *string `json:"nom"`
	Prenom    *string `json:"prenom"`
	Email     *string `json:"email"`
	Telephone *string `json:"telephone"`
	Statut    *bool   `json:"statut"`
}

// UpdateUser met à jour un utilisateur
func (s *UserService) UpdateUser(ctx context.Context, id string, input UpdateUserInput) (*entity.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if count, err := s.userRepo.CountByEmail(ctx, email, id); err != nil {
			return nil, err
		} else if count > 0 {
			return nil, NewValidationError("email", "email déjà utilisé")
		}
		user.Email = email
	}
	if input.Nom != nil {
		user.Nom = *input.Nom
	}
	if input.Prenom != nil {
		user.Prenom = *input.Prenom
	}
	if input.Telephone != nil {
		user.Telephone = *input.Telephone
	}
	if input.Statut != nil {
		user.Statut = *input.Statut
	}
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retourne un utilisateur
func (s *UserService) GetUser(ctx context.Context, id string) (*entity.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

// ListUsers liste paginée des utilisateurs
func (s *UserService) ListUsers(ctx context.Context, page, pageSize int, filters map[string]interface{}) ([]entity.User, int64, error) {
	return s.userRepo.List(ctx, page, pageSize, filters)
}

// DeleteUser supprime un utilisateur, trace d'audit incluse
func (s *UserService) DeleteUser(ctx context.Context, id string, meta RequestMeta, reason string) error {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(meta, entity.AuditActionDelete, entity.User{}.TableName(), id, entity.JSONB{
		"matricule": user.Matricule,
		"nom":       user.Nom,
		"prenom":    user.Prenom,
		"email":     user.Email,
	}, reason)
	return nil
}

// GetUserPermissions ensemble effectif des permissions, union dédupliquée
// des rôles de l'utilisateur
func (s *UserService) GetUserPermissions(ctx context.Context, id string) ([]string, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.PermissionCodes == nil {
		return []string{}, nil
	}
	return user.PermissionCodes, nil
}

// AssignRole attribue un rôle, refuse la double attribution
func (s *UserService) AssignRole(ctx context.Context, userID, roleID string) error {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return err
	}
	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return err
	}

	has, err := s.userRepo.HasRole(ctx, userID, roleID)
	if err != nil {
		return err
	}
	if has {
		return &ConflictError{Message: fmt.Sprintf("le rôle %s est déjà attribué", role.Code)}
	}
	return s.userRepo.AssignRole(ctx, userID, roleID)
}

// RemoveRole retire un rôle, refuse le retrait d'un rôle non attribué
func (s *UserService) RemoveRole(ctx context.Context, userID, roleID string) error {
	has, err := s.userRepo.HasRole(ctx, userID, roleID)
	if err != nil {
		return err
	}
	if !has {
		return &ConflictError{Message: "rôle non attribué à cet utilisateur"}
	}
	return s.userRepo.RemoveRole(ctx, userID, roleID)
}

// RoleInput données de création ou mise à jour d'un rôle
type RoleInput struct {
	Code        string `json:"code" binding:"required"`
	Nom         string `json:"nom" binding:"required"`
	Description string `json:"description"`
}

// CreateRole crée un rôle
func (s *UserService) CreateRole(ctx context.Context, input RoleInput) (*entity.Role, error) {
	if _, err := s.roleRepo.FindByCode(ctx, input.Code); err == nil {
		return nil, &ConflictError{Message: fmt.Sprintf("le code %s existe déjà", input.Code)}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	role := &entity.Role{
		ID:          generateID(),
		Code:        input.Code,
		Nom:         input.Nom,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.roleRepo.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// UpdateRole met à jour un rôle non système
func (s *UserService) UpdateRole(ctx context.Context, id string, input RoleInput) (*entity.Role, error) {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.IsSystem {
		return nil, &ForbiddenError{Message: "rôle système non modifiable"}
	}

	role.Code = input.Code
	role.Nom = input.Nom
	role.Description = input.Description
	role.UpdatedAt = time.Now()

	if err := s.roleRepo.Update(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// DeleteRole supprime un rôle non système et non attribué
func (s *UserService) DeleteRole(ctx context.Context, id string, meta RequestMeta, reason string) error {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return &ForbiddenError{Message: "rôle système non supprimable"}
	}
	count, err := s.roleRepo.CountUsers(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &ConflictError{Message: fmt.Sprintf("rôle attribué à %d utilisateur(s)", count)}
	}
	if err := s.roleRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(meta, entity.AuditActionDelete, entity.Role{}.TableName(), id, entity.JSONB{
		"code": role.Code,
		"nom":  role.Nom,
	}, reason)
	return nil
}

// GetRole retourne un rôle avec ses permissions
func (s *UserService) GetRole(ctx context.Context, id string) (*entity.Role, error) {
	return s.roleRepo.FindByID(ctx, id)
}

// ListRoles liste tous les rôles
func (s *UserService) ListRoles(ctx context.Context) ([]entity.Role, error) {
	return s.roleRepo.List(ctx)
}

// ListPermissions liste toutes les permissions
func (s *UserService) ListPermissions(ctx context.Context) ([]entity.Permission, error) {
	return s.permRepo.List(ctx)
}

// AddPermissionToRole ajoute une permission à un rôle, refuse le doublon
func (s *UserService) AddPermissionToRole(ctx context.Context, roleID, permissionID string) error {
	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return err
	}
	perm, err := s.permRepo.FindByID(ctx, permissionID)
	if err != nil {
		return err
	}
	for _, p := range role.Permissions {
		if p.ID == permissionID {
			return &ConflictError{Message: fmt.Sprintf("la permission %s est déjà attachée", perm.Code)}
		}
	}
	return s.roleRepo.AddPermission(ctx, roleID, permissionID)
}

// RemovePermissionFromRole retire une permission, refuse le retrait d'une
// permission non attachée
func (s *UserService) RemovePermissionFromRole(ctx context.Context, roleID, permissionID string) error {
	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return err
	}
	attached := false
	for _, p := range role.Permissions {
		if p.ID == permissionID {
			attached = true
			break
		}
	}
	if !attached {
		return &ConflictError{Message: "permission non attachée à ce rôle"}
	}
	return s.roleRepo.RemovePermission(ctx, roleID, permissionID)
}
