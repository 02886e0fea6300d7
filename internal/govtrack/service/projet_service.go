package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/repository"
	"gorm.io/gorm"
)

// ProjetService gestion des projets et de leur cycle de vie
type ProjetService struct {
	projetRepo *repository.ProjetRepository
	typeRepo   *repository.TypeProjetRepository
	tacheRepo  *repository.TacheRepository
	userRepo   *repository.UserRepository
	entiteRepo *repository.EntiteRepository
	audit      *AuditService
}

// NewProjetService crée le service des projets
func NewProjetService(projetRepo *repository.ProjetRepository, typeRepo *repository.TypeProjetRepository, tacheRepo *repository.TacheRepository, userRepo *repository.UserRepository, entiteRepo *repository.EntiteRepository, audit *AuditService) *ProjetService {
	return &ProjetService{
		projetRepo: projetRepo,
		typeRepo:   typeRepo,
		tacheRepo:  tacheRepo,
		userRepo:   userRepo,
		entiteRepo: entiteRepo,
		audit:      audit,
	}
}

// ProjetInput données de création ou mise à jour d'un projet
type ProjetInput struct {
	Titre                          string     `json:"titre" binding:"required"`
	Description                    string     `json:"description"`
	TypeProjetID                   string     `json:"type_projet_id" binding:"required"`
	PorteurID                      string     `json:"porteur_id" binding:"required"`
	DonneurOrdreID                 string     `json:"donneur_ordre_id" binding:"required"`
	EntiteID                       *string    `json:"entite_id"`
	DateDebutPrevisionnelle        *time.Time `json:"date_debut_previsionnelle"`
	DateFinPrevisionnelle          *time.Time `json:"date_fin_previsionnelle"`
	JustificationModificationDates string     `json:"justification_modification_dates"`
}

// CreateProjet crée un projet. L'échéance prévisionnelle découle du SLA du
// type de projet; une échéance explicite qui s'en écarte exige une
// justification.
func (s *ProjetService) CreateProjet(ctx context.Context, input ProjetInput, actorID string) (*entity.Projet, error) {
	typeProjet, err := s.typeRepo.FindByID(ctx, input.TypeProjetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewValidationError("type_projet_id", "type de projet inconnu")
		}
		return nil, err
	}
	if err := s.checkActeurs(ctx, input); err != nil {
		return nil, err
	}

	dateFin, err := s.resolveDateFin(typeProjet, input.DateDebutPrevisionnelle, input.DateFinPrevisionnelle, input.JustificationModificationDates)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	projet := &entity.Projet{
		ID:                      generateID(),
		Titre:                   input.Titre,
		Description:             input.Description,
		TypeProjetID:            input.TypeProjetID,
		PorteurID:               input.PorteurID,
		DonneurOrdreID:          input.DonneurOrdreID,
		EntiteID:                input.EntiteID,
		Statut:                  entity.StatutAFaire,
		DateDebutPrevisionnelle: input.DateDebutPrevisionnelle,
		DateFinPrevisionnelle:   dateFin,
		CreatedAt:               now,
		UpdatedAt:               now,
		CreatedBy:               actorID,
	}
	if err := s.projetRepo.Create(ctx, projet); err != nil {
		return nil, err
	}
	projet.TypeProjet = typeProjet
	return projet, nil
}

func (s *ProjetService) checkActeurs(ctx context.Context, input ProjetInput) error {
	if _, err := s.userRepo.FindByID(ctx, input.PorteurID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewValidationError("porteur_id", "utilisateur inconnu")
		}
		return err
	}
	if _, err := s.userRepo.FindByID(ctx, input.DonneurOrdreID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewValidationError("donneur_ordre_id", "utilisateur inconnu")
		}
		return err
	}
	if input.EntiteID != nil {
		if _, err := s.entiteRepo.FindByID(ctx, *input.EntiteID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NewValidationError("entite_id", "entité inconnue")
			}
			return err
		}
	}
	return nil
}

// resolveDateFin applique le SLA du type. Sans échéance explicite la date
// SLA fait foi; une échéance explicite différente exige une justification.
func (s *ProjetService) resolveDateFin(typeProjet *entity.TypeProjet, dateDebut, dateFin *time.Time, justification string) (*time.Time, error) {
	var dateSLA *time.Time
	if typeProjet.DureePrevisionnelleJrs != nil && dateDebut != nil {
		d := dateDebut.AddDate(0, 0, *typeProjet.DureePrevisionnelleJrs)
		dateSLA = &d
	}

	if dateFin == nil {
		return dateSLA, nil
	}
	if dateSLA != nil && !dateFin.Equal(*dateSLA) && strings.TrimSpace(justification) == "" {
		return nil, NewValidationError("justification_modification_dates",
			fmt.Sprintf("l'échéance s'écarte du SLA (%s), une justification est requise", dateSLA.Format("2006-01-02")))
	}
	return dateFin, nil
}

// UpdateProjet met à jour un projet, mêmes règles de dates qu'à la création
func (s *ProjetService) UpdateProjet(ctx context.Context, id string, input ProjetInput) (*entity.Projet, error) {
	projet, err := s.projetRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	typeProjet, err := s.typeRepo.FindByID(ctx, input.TypeProjetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewValidationError("type_projet_id", "type de projet inconnu")
		}
		return nil, err
	}
	if err := s.checkActeurs(ctx, input); err != nil {
		return nil, err
	}

	datesChanged := !equalDates(projet.DateDebutPrevisionnelle, input.DateDebutPrevisionnelle) ||
		!equalDates(projet.DateFinPrevisionnelle, input.DateFinPrevisionnelle)

	dateFin := projet.DateFinPrevisionnelle
	if datesChanged {
		dateFin, err = s.resolveDateFin(typeProjet, input.DateDebutPrevisionnelle, input.DateFinPrevisionnelle, input.JustificationModificationDates)
		if err != nil {
			return nil, err
		}
	}

	projet.Titre = input.Titre
	projet.Description = input.Description
	projet.TypeProjetID = input.TypeProjetID
	projet.PorteurID = input.PorteurID
	projet.DonneurOrdreID = input.DonneurOrdreID
	projet.EntiteID = input.EntiteID
	projet.DateDebutPrevisionnelle = input.DateDebutPrevisionnelle
	projet.DateFinPrevisionnelle = dateFin
	projet.UpdatedAt = time.Now()

	if err := s.projetRepo.Update(ctx, projet); err != nil {
		return nil, err
	}
	return projet, nil
}

func equalDates(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// GetProjet retourne un projet, drapeau en_retard calculé
func (s *ProjetService) GetProjet(ctx context.Context, id string) (*entity.Projet, error) {
	projet, err := s.projetRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	projet.EnRetard = projet.CalculeEnRetard(time.Now())
	return projet, nil
}

// ListProjets liste paginée, drapeau en_retard calculé
func (s *ProjetService) ListProjets(ctx context.Context, page, pageSize int, filters map[string]interface{}) ([]entity.Projet, int64, error) {
	projets, total, err := s.projetRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, 0, err
	}
	now := time.Now()
	for i := range projets {
		projets[i].EnRetard = projets[i].CalculeEnRetard(now)
	}
	return projets, total, nil
}

// DeleteProjet supprime un projet sans tâches, trace d'audit incluse
func (s *ProjetService) DeleteProjet(ctx context.Context, id string, meta RequestMeta, reason string) error {
	projet, err := s.projetRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	taches, err := s.tacheRepo.ListByProjet(ctx, id, nil)
	if err != nil {
		return err
	}
	if len(taches) > 0 {
		return &ConflictError{Message: fmt.Sprintf("le projet porte %d tâche(s)", len(taches))}
	}
	if err := s.projetRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(meta, entity.AuditActionDelete, entity.Projet{}.TableName(), id, entity.JSONB{
		"titre":      projet.Titre,
		"statut":     projet.Statut,
		"porteur_id": projet.PorteurID,
	}, reason)
	return nil
}

// ChangerStatutInput demande de transition de statut. justificatif_path,
// facultatif, cite la pièce justificative appuyée par la transition et
// doit pointer sur un justificatif déjà attaché au projet.
type ChangerStatutInput struct {
	NouveauStatut    string `json:"nouveau_statut" binding:"required"`
	Commentaire      string `json:"commentaire"`
	JustificatifPath string `json:"justificatif_path"`
}

// ChangerStatut fait avancer le projet dans la machine à états. Le projet
// est verrouillé le temps de la transaction; ligne d'historique et mise à
// jour des champs commitent ensemble.
//
// Un appel vers le statut courant est une pseudo-transition de mise à jour
// de commentaire: commentaire obligatoire et distinct du dernier.
func (s *ProjetService) ChangerStatut(ctx context.Context, id string, input ChangerStatutInput, meta RequestMeta) (*entity.Projet, error) {
	if !entity.IsValidStatut(input.NouveauStatut) {
		return nil, NewValidationError("nouveau_statut", "statut inconnu")
	}

	var projet *entity.Projet
	err := s.projetRepo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		projet, err = s.projetRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		commentaire := strings.TrimSpace(input.Commentaire)

		if input.NouveauStatut == projet.Statut {
			if commentaire == "" {
				return NewValidationError("commentaire", "commentaire requis pour une mise à jour sans changement de statut")
			}
			latest, err := s.projetRepo.LatestHistorique(ctx, tx, id)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			if latest != nil && latest.Commentaire == commentaire {
				return &ConflictError{Message: "commentaire identique au dernier enregistré"}
			}
			return s.projetRepo.AddHistorique(ctx, tx, &entity.ProjetHistoriqueStatut{
				ID:            generateID(),
				ProjetID:      id,
				AncienStatut:  projet.Statut,
				NouveauStatut: projet.Statut,
				Commentaire:   commentaire,
				UserID:        meta.UserID,
				CreatedAt:     time.Now(),
			})
		}

		if !entity.CanTransition(projet.Statut, input.NouveauStatut) {
			return NewValidationError("nouveau_statut",
				fmt.Sprintf("transition %s -> %s interdite", projet.Statut, input.NouveauStatut))
		}

		var justifPath *string
		if p := strings.TrimSpace(input.JustificatifPath); p != "" {
			has, err := s.projetRepo.HasJustificatifPath(ctx, tx, id, p)
			if err != nil {
				return err
			}
			if !has {
				return NewValidationError("justificatif_path", "aucun justificatif du projet ne porte ce chemin")
			}
			justifPath = &p
		}

		switch input.NouveauStatut {
		case entity.StatutDemandeDeCloture:
			has, err := s.projetRepo.HasJustificatif(ctx, tx, id)
			if err != nil {
				return err
			}
			if !has {
				return &ConflictError{Message: "aucun justificatif attaché au projet"}
			}
		case entity.StatutTermine:
			restantes, err := s.projetRepo.CountTachesNonTerminees(ctx, tx, id)
			if err != nil {
				return err
			}
			if restantes > 0 {
				return &ConflictError{Message: fmt.Sprintf("%d tâche(s) non terminée(s)", restantes)}
			}
		}

		now := time.Now()
		ancien := projet.Statut
		projet.Statut = input.NouveauStatut
		projet.UpdatedAt = now

		if input.NouveauStatut == entity.StatutEnCours && projet.DateDebutReelle == nil {
			projet.DateDebutReelle = &now
		}
		if input.NouveauStatut == entity.StatutTermine {
			projet.DateFinReelle = &now
			projet.NiveauExecution = 100
		}

		if err := s.projetRepo.UpdateTx(ctx, tx, projet); err != nil {
			return err
		}
		return s.projetRepo.AddHistorique(ctx, tx, &entity.ProjetHistoriqueStatut{
			ID:               generateID(),
			ProjetID:         id,
			AncienStatut:     ancien,
			NouveauStatut:    input.NouveauStatut,
			Commentaire:      commentaire,
			JustificatifPath: justifPath,
			UserID:           meta.UserID,
			CreatedAt:        now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(meta, entity.AuditActionStatusChange, entity.Projet{}.TableName(), id, nil, input.Commentaire)

	projet.EnRetard = projet.CalculeEnRetard(time.Now())
	return projet, nil
}

// ListHistorique historique des statuts du projet
func (s *ProjetService) ListHistorique(ctx context.Context, id string) ([]entity.ProjetHistoriqueStatut, error) {
	if _, err := s.projetRepo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.projetRepo.ListHistorique(ctx, id)
}

// TableauBord indicateurs agrégés du portefeuille de projets
type TableauBord struct {
	ParStatut            map[string]int64 `json:"par_statut"`
	Total                int64            `json:"total"`
	EnRetard             int64            `json:"en_retard"`
	NiveauExecutionMoyen float64          `json:"niveau_execution_moyen"`
}

// GetTableauBord calcule les indicateurs du tableau de bord
func (s *ProjetService) GetTableauBord(ctx context.Context, filters map[string]interface{}) (*TableauBord, error) {
	parStatut, err := s.projetRepo.CountByStatut(ctx, filters)
	if err != nil {
		return nil, err
	}
	enRetard, err := s.projetRepo.CountEnRetard(ctx, filters)
	if err != nil {
		return nil, err
	}
	moyenne, err := s.projetRepo.AvgNiveauExecution(ctx, filters)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, count := range parStatut {
		total += count
	}

	return &TableauBord{
		ParStatut:            parStatut,
		Total:                total,
		EnRetard:             enRetard,
		NiveauExecutionMoyen: moyenne,
	}, nil
}

// AddFavori marque un projet en favori de l'acteur
func (s *ProjetService) AddFavori(ctx context.Context, userID, projetID string) error {
	if _, err := s.projetRepo.FindByID(ctx, projetID); err != nil {
		return err
	}
	return s.projetRepo.AddFavori(ctx, userID, projetID)
}

// RemoveFavori retire un projet des favoris de l'acteur
func (s *ProjetService) RemoveFavori(ctx context.Context, userID, projetID string) error {
	favori, err := s.projetRepo.IsFavori(ctx, userID, projetID)
	if err != nil {
		return err
	}
	if !favori {
		return &ConflictError{Message: "projet absent des favoris"}
	}
	return s.projetRepo.RemoveFavori(ctx, userID, projetID)
}

// ListFavoris projets favoris de l'acteur
func (s *ProjetService) ListFavoris(ctx context.Context, userID string, page, pageSize int) ([]entity.Projet, int64, error) {
	return s.ListProjets(ctx, page, pageSize, map[string]interface{}{"favoris_de": userID})
}

// TypeProjetInput données de création ou mise à jour d'un type de projet
type TypeProjetInput struct {
	Nom                    string `json:"nom" binding:"required"`
	Description            string `json:"description"`
	DureePrevisionnelleJrs *int   `json:"duree_previsionnelle_jours"`
	DescriptionSLA         string `json:"description_sla"`
}

// CreateTypeProjet crée un type de projet
func (s *ProjetService) CreateTypeProjet(ctx context.Context, input TypeProjetInput) (*entity.TypeProjet, error) {
	if input.DureePrevisionnelleJrs != nil && *input.DureePrevisionnelleJrs <= 0 {
		return nil, NewValidationError("duree_previsionnelle_jours", "durée strictement positive requise")
	}

	now := time.Now()
	typeProjet := &entity.TypeProjet{
		ID:                     generateID(),
		Nom:                    input.Nom,
		Description:            input.Description,
		DureePrevisionnelleJrs: input.DureePrevisionnelleJrs,
		DescriptionSLA:         input.DescriptionSLA,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.typeRepo.Create(ctx, typeProjet); err != nil {
		return nil, err
	}
	return typeProjet, nil
}

// UpdateTypeProjet met à jour un type de projet
func (s *ProjetService) UpdateTypeProjet(ctx context.Context, id string, input TypeProjetInput) (*entity.TypeProjet, error) {
	typeProjet, err := s.typeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.DureePrevisionnelleJrs != nil && *input.DureePrevisionnelleJrs <= 0 {
		return nil, NewValidationError("duree_previsionnelle_jours", "durée strictement positive requise")
	}

	typeProjet.Nom = input.Nom
	typeProjet.Description = input.Description
	typeProjet.DureePrevisionnelleJrs = input.DureePrevisionnelleJrs
	typeProjet.DescriptionSLA = input.DescriptionSLA
	typeProjet.UpdatedAt = time.Now()

	if err := s.typeRepo.Update(ctx, typeProjet); err != nil {
		return nil, err
	}
	return typeProjet, nil
}

// DeleteTypeProjet supprime un type sans projet rattaché
func (s *ProjetService) DeleteTypeProjet(ctx context.Context, id string, meta RequestMeta, reason string) error {
	typeProjet, err := s.typeRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.typeRepo.CountProjets(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &ConflictError{Message: fmt.Sprintf("%d projet(s) utilisent ce type", count)}
	}
	if err := s.typeRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(meta, entity.AuditActionDelete, entity.TypeProjet{}.TableName(), id, entity.JSONB{
		"nom": typeProjet.Nom,
	}, reason)
	return nil
}

// ListTypeProjets liste tous les types de projet
func (s *ProjetService) ListTypeProjets(ctx context.Context) ([]entity.TypeProjet, error) {
	return s.typeRepo.List(ctx)
}

// GetTypeProjet retourne un type de projet
func (s *ProjetService) GetTypeProjet(ctx context.Context, id string) (*entity.TypeProjet, error) {
	return s.typeRepo.FindByID(ctx, id)
}
