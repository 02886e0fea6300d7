package repository

import (
	"context"
	"errors"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TacheRepository dépôt des tâches
type TacheRepository struct {
	db *gorm.DB
}

// NewTacheRepository crée le dépôt des tâches
func NewTacheRepository(db *gorm.DB) *TacheRepository {
	return &TacheRepository{db: db}
}

// FindByID recherche une tâche par ID, associations incluses
func (r *TacheRepository) FindByID(ctx context.Context, id string) (*entity.Tache, error) {
	var tache entity.Tache
	err := r.db.WithContext(ctx).
		Preload("Projet").
		Preload("Responsable").
		Where("id = ?", id).
		First(&tache).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tache, nil
}

// FindByIDForUpdate recherche une tâche verrouillée pour mise à jour, dans tx
func (r *TacheRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*entity.Tache, error) {
	var tache entity.Tache
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&tache).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tache, nil
}

// Create crée une tâche
func (r *TacheRepository) Create(ctx context.Context, tache *entity.Tache) error {
	return r.db.WithContext(ctx).Create(tache).Error
}

// Update met à jour une tâche
func (r *TacheRepository) Update(ctx context.Context, tache *entity.Tache) error {
	return r.db.WithContext(ctx).Save(tache).Error
}

// UpdateTx met à jour une tâche dans tx
func (r *TacheRepository) UpdateTx(ctx context.Context, tx *gorm.DB, tache *entity.Tache) error {
	return tx.WithContext(ctx).Save(tache).Error
}

// Delete supprime une tâche
func (r *TacheRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.Tache{}).Error
}

// ListByProjet liste les tâches d'un projet
func (r *TacheRepository) ListByProjet(ctx context.Context, projetID string, filters map[string]interface{}) ([]entity.Tache, error) {
	var taches []entity.Tache

	query := r.db.WithContext(ctx).Where("projet_id = ?", projetID)

	if statut, ok := filters["statut"].(string); ok && statut != "" {
		query = query.Where("statut = ?", statut)
	}
	if responsableID, ok := filters["responsable_id"].(string); ok && responsableID != "" {
		query = query.Where("responsable_id = ?", responsableID)
	}

	err := query.
		Preload("Responsable").
		Order("created_at ASC").
		Find(&taches).Error
	return taches, err
}

// ListByResponsable liste paginée des tâches assignées à un utilisateur
func (r *TacheRepository) ListByResponsable(ctx context.Context, userID string, page, pageSize int, filters map[string]interface{}) ([]entity.Tache, int64, error) {
	var taches []entity.Tache
	var total int64

	query := r.db.WithContext(ctx).
		Model(&entity.Tache{}).
		Where("responsable_id = ?", userID)

	if statut, ok := filters["statut"].(string); ok && statut != "" {
		query = query.Where("statut = ?", statut)
	}
	if projetID, ok := filters["projet_id"].(string); ok && projetID != "" {
		query = query.Where("projet_id = ?", projetID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Projet").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&taches).Error
	return taches, total, err
}

// NiveauxByProjet niveaux d'exécution de toutes les tâches du projet, dans tx
func (r *TacheRepository) NiveauxByProjet(ctx context.Context, tx *gorm.DB, projetID string) ([]int, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var niveaux []int
	err := db.WithContext(ctx).
		Model(&entity.Tache{}).
		Where("projet_id = ?", projetID).
		Pluck("niveau_execution", &niveaux).Error
	return niveaux, err
}

// AddHistorique enregistre une transition de statut, dans tx si fourni
func (r *TacheRepository) AddHistorique(ctx context.Context, tx *gorm.DB, h *entity.TacheHistoriqueStatut) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Create(h).Error
}

// LatestHistorique dernière transition enregistrée de la tâche, dans tx si fourni
func (r *TacheRepository) LatestHistorique(ctx context.Context, tx *gorm.DB, tacheID string) (*entity.TacheHistoriqueStatut, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var h entity.TacheHistoriqueStatut
	err := db.WithContext(ctx).
		Where("tache_id = ?", tacheID).
		Order("created_at DESC").
		First(&h).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

// ListHistorique historique des statuts d'une tâche
func (r *TacheRepository) ListHistorique(ctx context.Context, tacheID string) ([]entity.TacheHistoriqueStatut, error) {
	var historique []entity.TacheHistoriqueStatut
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("tache_id = ?", tacheID).
		Order("created_at DESC").
		Find(&historique).Error
	return historique, err
}

// HasJustificatifPath vérifie qu'un justificatif de la tâche porte ce chemin
func (r *TacheRepository) HasJustificatifPath(ctx context.Context, tx *gorm.DB, tacheID, path string) (bool, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var count int64
	err := db.WithContext(ctx).
		Model(&entity.PieceJointeTache{}).
		Where("tache_id = ? AND fichier_path = ? AND est_justificatif = true", tacheID, path).
		Count(&count).Error
	return count > 0, err
}

// HasJustificatif vérifie la présence d'un justificatif attaché à la tâche
func (r *TacheRepository) HasJustificatif(ctx context.Context, tx *gorm.DB, tacheID string) (bool, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var count int64
	err := db.WithContext(ctx).
		Model(&entity.PieceJointeTache{}).
		Where("tache_id = ? AND est_justificatif = true", tacheID).
		Count(&count).Error
	return count > 0, err
}

// Transaction exécute fn dans une transaction
func (r *TacheRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
