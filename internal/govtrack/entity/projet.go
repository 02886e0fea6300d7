package entity

import (
	"time"
)

// TypeProjet type de projet, porte le SLA (durée prévisionnelle en jours).
type TypeProjet struct {
	ID                     string    `json:"id" gorm:"primaryKey;size:32"`
	Nom                    string    `json:"nom" gorm:"size:128;not null;uniqueIndex"`
	Description            string    `json:"description" gorm:"type:text"`
	DureePrevisionnelleJrs *int      `json:"duree_previsionnelle_jours" gorm:"column:duree_previsionnelle_jours"`
	DescriptionSLA         string    `json:"description_sla" gorm:"column:description_sla;type:text"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (TypeProjet) TableName() string {
	return "type_projets"
}

// Projet instruction / projet suivi. niveau_execution est dérivé des tâches
// dès qu'il en existe au moins une.
type Projet struct {
	ID                      string     `json:"id" gorm:"primaryKey;size:32"`
	Titre                   string     `json:"titre" gorm:"size:255;not null"`
	Description             string     `json:"description" gorm:"type:text"`
	TypeProjetID            string     `json:"type_projet_id" gorm:"size:32;not null"`
	PorteurID               string     `json:"porteur_id" gorm:"size:32;not null;index"`
	DonneurOrdreID          string     `json:"donneur_ordre_id" gorm:"size:32;not null"`
	EntiteID                *string    `json:"entite_id" gorm:"size:32;index"`
	Statut                  string     `json:"statut" gorm:"size:32;not null;default:a_faire;index"`
	NiveauExecution         int        `json:"niveau_execution" gorm:"not null;default:0"`
	DateDebutPrevisionnelle *time.Time `json:"date_debut_previsionnelle" gorm:"type:date"`
	DateFinPrevisionnelle   *time.Time `json:"date_fin_previsionnelle" gorm:"type:date"`
	DateDebutReelle         *time.Time `json:"date_debut_reelle" gorm:"type:date"`
	DateFinReelle           *time.Time `json:"date_fin_reelle" gorm:"type:date"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
	CreatedBy               string     `json:"created_by" gorm:"size:32"`
	EnRetard                bool       `json:"en_retard" gorm:"-"`

	TypeProjet   *TypeProjet `json:"type_projet,omitempty" gorm:"foreignKey:TypeProjetID"`
	Porteur      *User       `json:"porteur,omitempty" gorm:"foreignKey:PorteurID"`
	DonneurOrdre *User       `json:"donneur_ordre,omitempty" gorm:"foreignKey:DonneurOrdreID"`
	Entite       *Entite     `json:"entite,omitempty" gorm:"foreignKey:EntiteID"`
	Taches       []Tache     `json:"taches,omitempty" gorm:"foreignKey:ProjetID"`
}

func (Projet) TableName() string {
	return "projets"
}

// CalculeEnRetard vrai si l'échéance prévisionnelle est dépassée sans clôture
func (p *Projet) CalculeEnRetard(now time.Time) bool {
	return p.DateFinPrevisionnelle != nil &&
		p.Statut != StatutTermine &&
		p.DateFinPrevisionnelle.Before(now)
}

// ProjetHistoriqueStatut journal append-only des transitions de statut.
type ProjetHistoriqueStatut struct {
	ID               string    `json:"id" gorm:"primaryKey;size:32"`
	ProjetID         string    `json:"projet_id" gorm:"size:32;not null;index"`
	AncienStatut     string    `json:"ancien_statut" gorm:"size:32;not null"`
	NouveauStatut    string    `json:"nouveau_statut" gorm:"size:32;not null"`
	Commentaire      string    `json:"commentaire" gorm:"type:text"`
	JustificatifPath *string   `json:"justificatif_path" gorm:"size:512"`
	UserID           string    `json:"user_id" gorm:"size:32;not null"`
	CreatedAt        time.Time `json:"created_at"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (ProjetHistoriqueStatut) TableName() string {
	return "projet_historique_statuts"
}

// PieceJointeProjet fichier rattaché à un projet. Au moins une pièce
// est_justificatif est exigée pour passer en demande_de_cloture.
type PieceJointeProjet struct {
	ID               string    `json:"id" gorm:"primaryKey;size:32"`
	ProjetID         string    `json:"projet_id" gorm:"size:32;not null;index"`
	UserID           string    `json:"user_id" gorm:"size:32;not null"`
	FichierPath      string    `json:"fichier_path" gorm:"size:512;not null"`
	NomOriginal      string    `json:"nom_original" gorm:"size:255;not null"`
	Mimetype         string    `json:"mimetype" gorm:"size:128"`
	Taille           int64     `json:"taille"`
	TypeDocument     string    `json:"type_document" gorm:"size:32;not null"`
	EstJustificatif  bool      `json:"est_justificatif" gorm:"not null;default:false"`
	Description      string    `json:"description" gorm:"type:text"`
	CreatedAt        time.Time `json:"created_at"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (PieceJointeProjet) TableName() string {
	return "piece_jointe_projets"
}

// DiscussionProjet commentaire de projet, fil à un seul niveau
// (parent_id non null = réponse, jamais de réponse à une réponse).
type DiscussionProjet struct {
	ID        string     `json:"id" gorm:"primaryKey;size:32"`
	ProjetID  string     `json:"projet_id" gorm:"size:32;not null;index"`
	UserID    string     `json:"user_id" gorm:"size:32;not null"`
	Message   string     `json:"message" gorm:"type:text;not null"`
	ParentID  *string    `json:"parent_id" gorm:"size:32;index"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	User     *User              `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Reponses []DiscussionProjet `json:"reponses,omitempty" gorm:"foreignKey:ParentID"`
}

func (DiscussionProjet) TableName() string {
	return "discussion_projets"
}

// ProjetFavori marque-page utilisateur sur un projet.
type ProjetFavori struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;size:32"`
	ProjetID  string    `json:"projet_id" gorm:"primaryKey;size:32"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProjetFavori) TableName() string {
	return "projet_favoris"
}
