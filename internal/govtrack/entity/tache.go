package entity

import (
	"time"
)

// Tache tâche rattachée à un projet. Même machine à états que le projet.
type Tache struct {
	ID                      string     `json:"id" gorm:"primaryKey;size:32"`
	ProjetID                string     `json:"projet_id" gorm:"size:32;not null;index"`
	Titre                   string     `json:"titre" gorm:"size:255;not null"`
	Description             string     `json:"description" gorm:"type:text"`
	ResponsableID           *string    `json:"responsable_id" gorm:"size:32;index"`
	Statut                  string     `json:"statut" gorm:"size:32;not null;default:a_faire;index"`
	NiveauExecution         int        `json:"niveau_execution" gorm:"not null;default:0"`
	DateDebutPrevisionnelle *time.Time `json:"date_debut_previsionnelle" gorm:"type:date"`
	DateFinPrevisionnelle   *time.Time `json:"date_fin_previsionnelle" gorm:"type:date"`
	DateDebutReelle         *time.Time `json:"date_debut_reelle" gorm:"type:date"`
	DateFinReelle           *time.Time `json:"date_fin_reelle" gorm:"type:date"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
	CreatedBy               string     `json:"created_by" gorm:"size:32"`

	Projet      *Projet `json:"projet,omitempty" gorm:"foreignKey:ProjetID"`
	Responsable *User   `json:"responsable,omitempty" gorm:"foreignKey:ResponsableID"`
}

func (Tache) TableName() string {
	return "taches"
}

// TacheHistoriqueStatut journal append-only des transitions de statut.
type TacheHistoriqueStatut struct {
	ID               string    `json:"id" gorm:"primaryKey;size:32"`
	TacheID          string    `json:"tache_id" gorm:"size:32;not null;index"`
	AncienStatut     string    `json:"ancien_statut" gorm:"size:32;not null"`
	NouveauStatut    string    `json:"nouveau_statut" gorm:"size:32;not null"`
	Commentaire      string    `json:"commentaire" gorm:"type:text"`
	JustificatifPath *string   `json:"justificatif_path" gorm:"size:512"`
	UserID           string    `json:"user_id" gorm:"size:32;not null"`
	CreatedAt        time.Time `json:"created_at"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (TacheHistoriqueStatut) TableName() string {
	return "tache_historique_statuts"
}

// PieceJointeTache fichier rattaché à une tâche.
type PieceJointeTache struct {
	ID              string    `json:"id" gorm:"primaryKey;size:32"`
	TacheID         string    `json:"tache_id" gorm:"size:32;not null;index"`
	UserID          string    `json:"user_id" gorm:"size:32;not null"`
	FichierPath     string    `json:"fichier_path" gorm:"size:512;not null"`
	NomOriginal     string    `json:"nom_original" gorm:"size:255;not null"`
	Mimetype        string    `json:"mimetype" gorm:"size:128"`
	Taille          int64     `json:"taille"`
	TypeDocument    string    `json:"type_document" gorm:"size:32;not null"`
	EstJustificatif bool      `json:"est_justificatif" gorm:"not null;default:false"`
	Description     string    `json:"description" gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (PieceJointeTache) TableName() string {
	return "piece_jointe_taches"
}

// DiscussionTache commentaire de tâche, fil à un seul niveau.
type DiscussionTache struct {
	ID        string     `json:"id" gorm:"primaryKey;size:32"`
	TacheID   string     `json:"tache_id" gorm:"size:32;not null;index"`
	UserID    string     `json:"user_id" gorm:"size:32;not null"`
	Message   string     `json:"message" gorm:"type:text;not null"`
	ParentID  *string    `json:"parent_id" gorm:"size:32;index"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	User     *User             `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Reponses []DiscussionTache `json:"reponses,omitempty" gorm:"foreignKey:ParentID"`
}

func (DiscussionTache) TableName() string {
	return "discussion_taches"
}
