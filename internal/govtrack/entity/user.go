package entity

import (
	"time"
)

// User utilisateur de la plateforme
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	Matricule    string     `json:"matricule" gorm:"size:32;uniqueIndex"`
	Nom          string     `json:"nom" gorm:"size:64;not null"`
	Prenom       string     `json:"prenom" gorm:"size:64;not null"`
	Email        string     `json:"email" gorm:"size:128;not null;uniqueIndex"`
	PasswordHash string     `json:"-" gorm:"column:password_hash;size:128;not null"`
	Telephone    string     `json:"telephone" gorm:"size:32"`
	Statut       bool       `json:"statut" gorm:"not null;default:true"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Chargés par LoadRolesAndPermissions, jamais mappés en base
	Roles           []Role   `json:"roles,omitempty" gorm:"many2many:user_roles;"`
	RoleCodes       []string `json:"role_codes,omitempty" gorm:"-"`
	PermissionCodes []string `json:"permission_codes,omitempty" gorm:"-"`
}

func (User) TableName() string {
	return "users"
}

// NomComplet prénom + nom pour l'affichage
func (u *User) NomComplet() string {
	return u.Prenom + " " + u.Nom
}

// Role rôle applicatif
type Role struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Code        string    `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Nom         string    `json:"nom" gorm:"size:128;not null"`
	Description string    `json:"description" gorm:"type:text"`
	IsSystem    bool      `json:"is_system" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Permissions []Permission `json:"permissions,omitempty" gorm:"many2many:role_permissions;"`
}

func (Role) TableName() string {
	return "roles"
}

// Permission permission nommée, portée globale
type Permission struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Code        string    `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Permission) TableName() string {
	return "permissions"
}

// UserRole pivot utilisateur↔rôle
type UserRole struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;size:32"`
	RoleID    string    `json:"role_id" gorm:"primaryKey;size:32"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

// RolePermission pivot rôle↔permission
type RolePermission struct {
	RoleID       string    `json:"role_id" gorm:"primaryKey;size:32"`
	PermissionID string    `json:"permission_id" gorm:"primaryKey;size:32"`
	CreatedAt    time.Time `json:"created_at"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}

// Actions enregistrées dans le journal de connexion
const (
	LoginActionLogin         = "login"
	LoginActionLogout        = "logout"
	LoginActionFailedLogin   = "failed_login"
	LoginActionPasswordReset = "password_reset"
)

// LoginActivity journal de connexion, append-only
type LoginActivity struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	UserID    *string   `json:"user_id" gorm:"size:32;index"`
	Action    string    `json:"action" gorm:"size:20;not null"`
	Email     string    `json:"email" gorm:"size:128"`
	IPAddress string    `json:"ip_address" gorm:"size:45"`
	UserAgent string    `json:"user_agent" gorm:"size:512"`
	SessionID string    `json:"session_id" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (LoginActivity) TableName() string {
	return "login_activities"
}
