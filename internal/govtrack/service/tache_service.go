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

// TacheService gestion des tâches et du report d'avancement vers le projet
type TacheService struct {
	tacheRepo  *repository.TacheRepository
	projetRepo *repository.ProjetRepository
	userRepo   *repository.UserRepository
	audit      *AuditService
}

// NewTacheService crée le service des tâches
func NewTacheService(tacheRepo *repository.TacheRepository, projetRepo *repository.ProjetRepository, userRepo *repository.UserRepository, audit *AuditService) *TacheService {
	return &TacheService{
		tacheRepo:  tacheRepo,
		projetRepo: projetRepo,
		userRepo:   userRepo,
		audit:      audit,
	}
}

// TacheInput données de création ou mise à jour d'une tâche
type TacheInput struct {
	Titre                   string     `json:"titre" binding:"required"`
	Description             string     `json:"description"`
	ResponsableID           *string    `json:"responsable_id"`
	NiveauExecution         *int       `json:"niveau_execution"`
	DateDebutPrevisionnelle *time.Time `json:"date_debut_previsionnelle"`
	DateFinPrevisionnelle   *time.Time `json:"date_fin_previsionnelle"`
}

// CreateTache crée une tâche sous un projet. Le niveau du projet est
// recalculé dans la même transaction, une tâche neuve tire la moyenne
// vers le bas.
func (s *TacheService) CreateTache(ctx context.Context, projetID string, input TacheInput, actorID string) (*entity.Tache, error) {
	if _, err := s.projetRepo.FindByID(ctx, projetID); err != nil {
		return nil, err
	}
	if input.ResponsableID != nil {
		if _, err := s.userRepo.FindByID(ctx, *input.ResponsableID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, NewValidationError("responsable_id", "utilisateur inconnu")
			}
			return nil, err
		}
	}
	if input.NiveauExecution != nil && (*input.NiveauExecution < 0 || *input.NiveauExecution > 100) {
		return nil, NewValidationError("niveau_execution", "valeur entre 0 et 100 requise")
	}

	now := time.Now()
	tache := &entity.Tache{
		ID:                      generateID(),
		ProjetID:                projetID,
		Titre:                   input.Titre,
		Description:             input.Description,
		ResponsableID:           input.ResponsableID,
		Statut:                  entity.StatutAFaire,
		DateDebutPrevisionnelle: input.DateDebutPrevisionnelle,
		DateFinPrevisionnelle:   input.DateFinPrevisionnelle,
		CreatedAt:               now,
		UpdatedAt:               now,
		CreatedBy:               actorID,
	}
	if input.NiveauExecution != nil {
		tache.NiveauExecution = *input.NiveauExecution
	}

	err := s.tacheRepo.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Create(tache).Error; err != nil {
			return err
		}
		return s.recomputeNiveauProjet(ctx, tx, projetID)
	})
	if err != nil {
		return nil, err
	}
	return tache, nil
}

// UpdateTache met à jour une tâche. Tout changement de niveau est reporté
// sur le projet dans la même transaction.
func (s *TacheService) UpdateTache(ctx context.Context, id string, input TacheInput) (*entity.Tache, error) {
	if input.ResponsableID != nil {
		if _, err := s.userRepo.FindByID(ctx, *input.ResponsableID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, NewValidationError("responsable_id", "utilisateur inconnu")
			}
			return nil, err
		}
	}
	if input.NiveauExecution != nil && (*input.NiveauExecution < 0 || *input.NiveauExecution > 100) {
		return nil, NewValidationError("niveau_execution", "valeur entre 0 et 100 requise")
	}

	var tache *entity.Tache
	err := s.tacheRepo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		tache, err = s.tacheRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		niveauChanged := false
		tache.Titre = input.Titre
		tache.Description = input.Description
		tache.ResponsableID = input.ResponsableID
		tache.DateDebutPrevisionnelle = input.DateDebutPrevisionnelle
		tache.DateFinPrevisionnelle = input.DateFinPrevisionnelle
		if input.NiveauExecution != nil && *input.NiveauExecution != tache.NiveauExecution {
			tache.NiveauExecution = *input.NiveauExecution
			niveauChanged = true
		}
		tache.UpdatedAt = time.Now()

		if err := s.tacheRepo.UpdateTx(ctx, tx, tache); err != nil {
			return err
		}
		if niveauChanged {
			return s.recomputeNiveauProjet(ctx, tx, tache.ProjetID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tache, nil
}

// GetTache retourne une tâche
func (s *TacheService) GetTache(ctx context.Context, id string) (*entity.Tache, error) {
	return s.tacheRepo.FindByID(ctx, id)
}

// ListByProjet tâches d'un projet
func (s *TacheService) ListByProjet(ctx context.Context, projetID string, filters map[string]interface{}) ([]entity.Tache, error) {
	if _, err := s.projetRepo.FindByID(ctx, projetID); err != nil {
		return nil, err
	}
	return s.tacheRepo.ListByProjet(ctx, projetID, filters)
}

// MesTaches tâches assignées à l'acteur
func (s *TacheService) MesTaches(ctx context.Context, userID string, page, pageSize int, filters map[string]interface{}) ([]entity.Tache, int64, error) {
	return s.tacheRepo.ListByResponsable(ctx, userID, page, pageSize, filters)
}

// DeleteTache supprime une tâche puis recalcule le niveau du projet
func (s *TacheService) DeleteTache(ctx context.Context, id string, meta RequestMeta, reason string) error {
	tache, err := s.tacheRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.tacheRepo.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Where("id = ?", id).Delete(&entity.Tache{}).Error; err != nil {
			return err
		}
		return s.recomputeNiveauProjet(ctx, tx, tache.ProjetID)
	})
	if err != nil {
		return err
	}

	s.audit.Record(meta, entity.AuditActionDelete, entity.Tache{}.TableName(), id, entity.JSONB{
		"titre":     tache.Titre,
		"projet_id": tache.ProjetID,
		"statut":    tache.Statut,
	}, reason)
	return nil
}

// ChangerStatutTacheInput demande de transition de statut d'une tâche
type ChangerStatutTacheInput struct {
	NouveauStatut    string `json:"nouveau_statut" binding:"required"`
	Commentaire      string `json:"commentaire"`
	JustificatifPath string `json:"justificatif_path"`
}

// ChangerStatut fait avancer la tâche dans la machine à états. La demande
// de clôture exige un justificatif_path résolvant vers une pièce jointe
// marquée justificatif; la clôture définitive est réservée au porteur du
// projet. Le niveau du projet est recalculé dans la même transaction.
func (s *TacheService) ChangerStatut(ctx context.Context, id string, input ChangerStatutTacheInput, meta RequestMeta) (*entity.Tache, error) {
	if !entity.IsValidStatut(input.NouveauStatut) {
		return nil, NewValidationError("nouveau_statut", "statut inconnu")
	}

	var tache *entity.Tache
	err := s.tacheRepo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		tache, err = s.tacheRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		commentaire := strings.TrimSpace(input.Commentaire)

		if input.NouveauStatut == tache.Statut {
			if commentaire == "" {
				return NewValidationError("commentaire", "commentaire requis pour une mise à jour sans changement de statut")
			}
			latest, err := s.tacheRepo.LatestHistorique(ctx, tx, id)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			if latest != nil && latest.Commentaire == commentaire {
				return &ConflictError{Message: "commentaire identique au dernier enregistré"}
			}
			return s.tacheRepo.AddHistorique(ctx, tx, &entity.TacheHistoriqueStatut{
				ID:            generateID(),
				TacheID:       id,
				AncienStatut:  tache.Statut,
				NouveauStatut: tache.Statut,
				Commentaire:   commentaire,
				UserID:        meta.UserID,
				CreatedAt:     time.Now(),
			})
		}

		if !entity.CanTransition(tache.Statut, input.NouveauStatut) {
			return NewValidationError("nouveau_statut",
				fmt.Sprintf("transition %s -> %s interdite", tache.Statut, input.NouveauStatut))
		}

		var justifPath *string
		if p := strings.TrimSpace(input.JustificatifPath); p != "" {
			has, err := s.tacheRepo.HasJustificatifPath(ctx, tx, id, p)
			if err != nil {
				return err
			}
			if !has {
				return NewValidationError("justificatif_path", "aucun justificatif de la tâche ne porte ce chemin")
			}
			justifPath = &p
		}

		switch input.NouveauStatut {
		case entity.StatutDemandeDeCloture:
			if justifPath == nil {
				return NewValidationError("justificatif_path", "justificatif requis pour demander la clôture")
			}
		case entity.StatutTermine:
			projet, err := s.projetRepo.FindByIDForUpdate(ctx, tx, tache.ProjetID)
			if err != nil {
				return err
			}
			if projet.PorteurID != meta.UserID {
				return &ForbiddenError{Message: "seul le porteur du projet peut clôturer une tâche"}
			}
		}

		now := time.Now()
		ancien := tache.Statut
		tache.Statut = input.NouveauStatut
		tache.UpdatedAt = now

		if input.NouveauStatut == entity.StatutEnCours && tache.DateDebutReelle == nil {
			tache.DateDebutReelle = &now
		}
		if input.NouveauStatut == entity.StatutTermine {
			tache.DateFinReelle = &now
			tache.NiveauExecution = 100
		}

		if err := s.tacheRepo.UpdateTx(ctx, tx, tache); err != nil {
			return err
		}
		if err := s.tacheRepo.AddHistorique(ctx, tx, &entity.TacheHistoriqueStatut{
			ID:               generateID(),
			TacheID:          id,
			AncienStatut:     ancien,
			NouveauStatut:    input.NouveauStatut,
			Commentaire:      commentaire,
			JustificatifPath: justifPath,
			UserID:           meta.UserID,
			CreatedAt:        now,
		}); err != nil {
			return err
		}
		return s.recomputeNiveauProjet(ctx, tx, tache.ProjetID)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(meta, entity.AuditActionStatusChange, entity.Tache{}.TableName(), id, nil, input.Commentaire)
	return tache, nil
}

// ListHistorique historique des statuts d'une tâche
func (s *TacheService) ListHistorique(ctx context.Context, id string) ([]entity.TacheHistoriqueStatut, error) {
	if _, err := s.tacheRepo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.tacheRepo.ListHistorique(ctx, id)
}

// recomputeNiveauProjet reporte sur le projet la moyenne non pondérée des
// niveaux de ses tâches, arrondie au plus proche. Un projet sans tâche
// garde son niveau courant.
func (s *TacheService) recomputeNiveauProjet(ctx context.Context, tx *gorm.DB, projetID string) error {
	niveaux, err := s.tacheRepo.NiveauxByProjet(ctx, tx, projetID)
	if err != nil {
		return err
	}
	if len(niveaux) == 0 {
		return nil
	}

	sum := 0
	for _, niveau := range niveaux {
		sum += niveau
	}
	moyenne := (sum + len(niveaux)/2) / len(niveaux)

	return tx.WithContext(ctx).
		Model(&entity.Projet{}).
		Where("id = ?", projetID).
		Updates(map[string]interface{}{
			"niveau_execution": moyenne,
			"updated_at":       time.Now(),
		}).Error
}
