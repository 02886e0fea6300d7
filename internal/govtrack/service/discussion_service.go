package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/repository"
)

// DiscussionService fils de discussion des projets et tâches, un seul
// niveau de réponse
type DiscussionService struct {
	repo       *repository.DiscussionRepository
	projetRepo *repository.ProjetRepository
	tacheRepo  *repository.TacheRepository
	audit      *AuditService
}

// NewDiscussionService crée le service des discussions
func NewDiscussionService(repo *repository.DiscussionRepository, projetRepo *repository.ProjetRepository, tacheRepo *repository.TacheRepository, audit *AuditService) *DiscussionService {
	return &DiscussionService{
		repo:       repo,
		projetRepo: projetRepo,
		tacheRepo:  tacheRepo,
		audit:      audit,
	}
}

// MessageInput contenu d'un commentaire
type MessageInput struct {
	Message  string  `json:"message" binding:"required"`
	ParentID *string `json:"parent_id"`
}

// CreateForProjet ajoute un commentaire de projet. Une réponse à une
// réponse est refusée, le fil reste à un niveau.
func (s *DiscussionService) CreateForProjet(ctx context.Context, projetID string, input MessageInput, actorID string) (*entity.DiscussionProjet, error) {
	if _, err := s.projetRepo.FindByID(ctx, projetID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Message) == "" {
		return nil, NewValidationError("message", "message requis")
	}

	if input.ParentID != nil {
		parent, err := s.repo.FindProjetByID(ctx, *input.ParentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, NewValidationError("parent_id", "commentaire parent inconnu")
			}
			return nil, err
		}
		if parent.ProjetID != projetID {
			return nil, NewValidationError("parent_id", "le commentaire parent relève d'un autre projet")
		}
		if parent.ParentID != nil {
			return nil, NewValidationError("parent_id", "impossible de répondre à une réponse")
		}
	}

	now := time.Now()
	d := &entity.DiscussionProjet{
		ID:        generateID(),
		ProjetID:  projetID,
		UserID:    actorID,
		Message:   input.Message,
		ParentID:  input.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateForProjet(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ListForProjet fil de discussion d'un projet
func (s *DiscussionService) ListForProjet(ctx context.Context, projetID string, page, pageSize int) ([]entity.DiscussionProjet, int64, error) {
	if _, err := s.projetRepo.FindByID(ctx, projetID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByProjet(ctx, projetID, page, pageSize)
}

// UpdateForProjet modifie un commentaire, l'auteur seul y est autorisé
func (s *DiscussionService) UpdateForProjet(ctx context.Context, id, message, actorID string) (*entity.DiscussionProjet, error) {
	d, err := s.repo.FindProjetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.UserID != actorID {
		return nil, &ForbiddenError{Message: "seul l'auteur peut modifier son commentaire"}
	}
	if strings.TrimSpace(message) == "" {
		return nil, NewValidationError("message", "message requis")
	}

	d.Message = message
	d.UpdatedAt = time.Now()
	if err := s.repo.UpdateForProjet(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteForProjet supprime un commentaire sans réponse, auteur seul
func (s *DiscussionService) DeleteForProjet(ctx context.Context, id, actorID string, meta RequestMeta) error {
	d, err := s.repo.FindProjetByID(ctx, id)
	if err != nil {
		return err
	}
	if d.UserID != actorID {
		return &ForbiddenError{Message: "seul l'auteur peut supprimer son commentaire"}
	}
	replies, err := s.repo.CountReponsesProjet(ctx, id)
	if err != nil {
		return err
	}
	if replies > 0 {
		return &ConflictError{Message: "commentaire avec réponses, suppression refusée"}
	}

	if err := s.repo.DeleteForProjet(ctx, id); err != nil {
		return err
	}
	s.audit.Record(meta, entity.AuditActionDelete, entity.DiscussionProjet{}.TableName(), id, entity.JSONB{
		"projet_id": d.ProjetID,
		"message":   d.Message,
	}, "")
	return nil
}

// CreateForTache ajoute un commentaire de tâche, mêmes règles que côté projet
func (s *DiscussionService) CreateForTache(ctx context.Context, tacheID string, input MessageInput, actorID string) (*entity.DiscussionTache, error) {
	if _, err := s.tacheRepo.FindByID(ctx, tacheID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Message) == "" {
		return nil, NewValidationError("message", "message requis")
	}

	if input.ParentID != nil {
		parent, err := s.repo.FindTacheByID(ctx, *input.ParentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, NewValidationError("parent_id", "commentaire parent inconnu")
			}
			return nil, err
		}
		if parent.TacheID != tacheID {
			return nil, NewValidationError("parent_id", "le commentaire parent relève d'une autre tâche")
		}
		if parent.ParentID != nil {
			return nil, NewValidationError("parent_id", "impossible de répondre à une réponse")
		}
	}

	now := time.Now()
	d := &entity.DiscussionTache{
		ID:        generateID(),
		TacheID:   tacheID,
		UserID:    actorID,
		Message:   input.Message,
		ParentID:  input.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateForTache(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ListForTache fil de discussion d'une tâche
func (s *DiscussionService) ListForTache(ctx context.Context, tacheID string, page, pageSize int) ([]entity.DiscussionTache, int64, error) {
	if _, err := s.tacheRepo.FindByID(ctx, tacheID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByTache(ctx, tacheID, page, pageSize)
}

// UpdateForTache modifie un commentaire de tâche, auteur seul
func (s *DiscussionService) UpdateForTache(ctx context.Context, id, message, actorID string) (*entity.DiscussionTache, error) {
	d, err := s.repo.FindTacheByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.UserID != actorID {
		return nil, &ForbiddenError{Message: "seul l'auteur peut modifier son commentaire"}
	}
	if strings.TrimSpace(message) == "" {
		return nil, NewValidationError("message", "message requis")
	}

	d.Message = message
	d.UpdatedAt = time.Now()
	if err := s.repo.UpdateForTache(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteForTache supprime un commentaire de tâche sans réponse, auteur seul
func (s *DiscussionService) DeleteForTache(ctx context.Context, id, actorID string, meta RequestMeta) error {
	d, err := s.repo.FindTacheByID(ctx, id)
	if err != nil {
		return err
	}
	if d.UserID != actorID {
		return &ForbiddenError{Message: "seul l'auteur peut supprimer son commentaire"}
	}
	replies, err := s.repo.CountReponsesTache(ctx, id)
	if err != nil {
		return err
	}
	if replies > 0 {
		return &ConflictError{Message: "commentaire avec réponses, suppression refusée"}
	}

	if err := s.repo.DeleteForTache(ctx, id); err != nil {
		return err
	}
	s.audit.Record(meta, entity.AuditActionDelete, entity.DiscussionTache{}.TableName(), id, entity.JSONB{
		"tache_id": d.TacheID,
		"message":  d.Message,
	}, "")
	return nil
}
