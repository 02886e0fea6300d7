package entity

import (
	"time"
)

// TypeEntite type d'unité organisationnelle (direction, service, ...)
type TypeEntite struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Nom         string    `json:"nom" gorm:"size:128;not null;uniqueIndex"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (TypeEntite) TableName() string {
	return "type_entites"
}

// Entite unité organisationnelle, noeud d'une forêt (parent_id nullable)
type Entite struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	Nom          string    `json:"nom" gorm:"size:128;not null"`
	Description  string    `json:"description" gorm:"type:text"`
	TypeEntiteID string    `json:"type_entite_id" gorm:"size:32;not null"`
	ParentID     *string   `json:"parent_id" gorm:"size:32;index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	TypeEntite *TypeEntite `json:"type_entite,omitempty" gorm:"foreignKey:TypeEntiteID"`
	Parent     *Entite     `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
	Enfants    []Entite    `json:"enfants,omitempty" gorm:"foreignKey:ParentID"`
}

func (Entite) TableName() string {
	return "entites"
}

// Poste poste de travail assignable au sein d'une entité
type Poste struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Nom         string    `json:"nom" gorm:"size:128;not null;uniqueIndex"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Poste) TableName() string {
	return "postes"
}

// EntiteChefHistory mandat de chef d'entité. date_fin IS NULL = mandat en
// cours; au plus un mandat en cours par entité. Historique append-only.
type EntiteChefHistory struct {
	ID        string     `json:"id" gorm:"primaryKey;size:32"`
	EntiteID  string     `json:"entite_id" gorm:"size:32;not null;index"`
	UserID    string     `json:"user_id" gorm:"size:32;not null;index"`
	DateDebut time.Time  `json:"date_debut" gorm:"type:date;not null"`
	DateFin   *time.Time `json:"date_fin" gorm:"type:date"`
	CreatedAt time.Time  `json:"created_at"`

	Entite *Entite `json:"entite,omitempty" gorm:"foreignKey:EntiteID"`
	User   *User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (EntiteChefHistory) TableName() string {
	return "entite_chef_histories"
}

// UtilisateurEntiteHistory affectation d'un utilisateur à un poste dans une
// entité. statut=true = affectation active; au plus une active par
// utilisateur.
type UtilisateurEntiteHistory struct {
	ID        string     `json:"id" gorm:"primaryKey;size:32"`
	UserID    string     `json:"user_id" gorm:"size:32;not null;index"`
	PosteID   string     `json:"poste_id" gorm:"size:32;not null"`
	EntiteID  string     `json:"entite_id" gorm:"size:32;not null;index"`
	Statut    bool       `json:"statut" gorm:"not null;default:true"`
	DateDebut time.Time  `json:"date_debut" gorm:"type:date;not null"`
	DateFin   *time.Time `json:"date_fin" gorm:"type:date"`
	CreatedAt time.Time  `json:"created_at"`

	User   *User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Poste  *Poste  `json:"poste,omitempty" gorm:"foreignKey:PosteID"`
	Entite *Entite `json:"entite,omitempty" gorm:"foreignKey:EntiteID"`
}

func (UtilisateurEntiteHistory) TableName() string {
	return "utilisateur_entite_histories"
}
