package repository

import (
	"context"
	"errors"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"gorm.io/gorm"
)

// DiscussionRepository dépôt des discussions, projets et tâches confondus
type DiscussionRepository struct {
	db *gorm.DB
}

// NewDiscussionRepository crée le dépôt des discussions
func NewDiscussionRepository(db *gorm.DB) *DiscussionRepository {
	return &DiscussionRepository{db: db}
}

// CreateForProjet ajoute un commentaire de projet
func (r *DiscussionRepository) CreateForProjet(ctx context.Context, d *entity.DiscussionProjet) error {
	return r.db.WithContext(ctx).Create(d).Error
}

// FindProjetByID recherche un commentaire de projet par ID
func (r *DiscussionRepository) FindProjetByID(ctx context.Context, id string) (*entity.DiscussionProjet, error) {
	var d entity.DiscussionProjet
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ?", id).
		First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListByProjet commentaires racines d'un projet avec leurs réponses
func (r *DiscussionRepository) ListByProjet(ctx context.Context, projetID string, page, pageSize int) ([]entity.DiscussionProjet, int64, error) {
	var discussions []entity.DiscussionProjet
	var total int64

	query := r.db.WithContext(ctx).
		Model(&entity.DiscussionProjet{}).
		Where("projet_id = ? AND parent_id IS NULL", projetID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("User").
		Preload("Reponses", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Reponses.User").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&discussions).Error
	return discussions, total, err
}

// UpdateForProjet met à jour un commentaire de projet
func (r *DiscussionRepository) UpdateForProjet(ctx context.Context, d *entity.DiscussionProjet) error {
	return r.db.WithContext(ctx).Save(d).Error
}

// DeleteForProjet supprime un commentaire de projet
func (r *DiscussionRepository) DeleteForProjet(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.DiscussionProjet{}).Error
}

// CountReponsesProjet compte les réponses à un commentaire de projet
func (r *DiscussionRepository) CountReponsesProjet(ctx context.Context, parentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.DiscussionProjet{}).
		Where("parent_id = ?", parentID).
		Count(&count).Error
	return count, err
}

// CreateForTache ajoute un commentaire de tâche
func (r *DiscussionRepository) CreateForTache(ctx context.Context, d *entity.DiscussionTache) error {
	return r.db.WithContext(ctx).Create(d).Error
}

// FindTacheByID recherche un commentaire de tâche par ID
func (r *DiscussionRepository) FindTacheByID(ctx context.Context, id string) (*entity.DiscussionTache, error) {
	var d entity.DiscussionTache
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ?", id).
		First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListByTache commentaires racines d'une tâche avec leurs réponses
func (r *DiscussionRepository) ListByTache(ctx context.Context, tacheID string, page, pageSize int) ([]entity.DiscussionTache, int64, error) {
	var discussions []entity.DiscussionTache
	var total int64

	query := r.db.WithContext(ctx).
		Model(&entity.DiscussionTache{}).
		Where("tache_id = ? AND parent_id IS NULL", tacheID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("User").
		Preload("Reponses", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Reponses.User").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&discussions).Error
	return discussions, total, err
}

// UpdateForTache met à jour un commentaire de tâche
func (r *DiscussionRepository) UpdateForTache(ctx context.Context, d *entity.DiscussionTache) error {
	return r.db.WithContext(ctx).Save(d).Error
}

// DeleteForTache supprime un commentaire de tâche
func (r *DiscussionRepository) DeleteForTache(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.DiscussionTache{}).Error
}

// CountReponsesTache compte les réponses à un commentaire de tâche
func (r *DiscussionRepository) CountReponsesTache(ctx context.Context, parentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.DiscussionTache{}).
		Where("parent_id = ?", parentID).
		Count(&count).Error
	return count, err
}
