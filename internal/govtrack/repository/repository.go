package repository

import (
	"errors"

	"gorm.io/gorm"
)

// Erreurs communes
var (
	ErrNotFound = errors.New("record not found")
)

// Repositories collection des dépôts
type Repositories struct {
	User          *UserRepository
	Role          *RoleRepository
	Permission    *PermissionRepository
	LoginActivity *LoginActivityRepository
	TypeEntite    *TypeEntiteRepository
	Entite        *EntiteRepository
	Poste         *PosteRepository
	TypeProjet    *TypeProjetRepository
	Projet        *ProjetRepository
	Tache         *TacheRepository
	PieceJointe   *PieceJointeRepository
	Discussion    *DiscussionRepository
	AuditLog      *AuditLogRepository
}

// NewRepositories crée la collection des dépôts
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:          NewUserRepository(db),
		Role:          NewRoleRepository(db),
		Permission:    NewPermissionRepository(db),
		LoginActivity: NewLoginActivityRepository(db),
		TypeEntite:    NewTypeEntiteRepository(db),
		Entite:        NewEntiteRepository(db),
		Poste:         NewPosteRepository(db),
		TypeProjet:    NewTypeProjetRepository(db),
		Projet:        NewProjetRepository(db),
		Tache:         NewTacheRepository(db),
		PieceJointe:   NewPieceJointeRepository(db),
		Discussion:    NewDiscussionRepository(db),
		AuditLog:      NewAuditLogRepository(db),
	}
}
