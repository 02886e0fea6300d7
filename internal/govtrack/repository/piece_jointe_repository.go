package repository

import (
	"context"
	"errors"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"gorm.io/gorm"
)

// PieceJointeRepository dépôt des pièces jointes, projets et tâches confondus
type PieceJointeRepository struct {
	db *gorm.DB
}

// NewPieceJointeRepository crée le dépôt des pièces jointes
func NewPieceJointeRepository(db *gorm.DB) *PieceJointeRepository {
	return &PieceJointeRepository{db: db}
}

// CreateForProjet attache un fichier à un projet
func (r *PieceJointeRepository) CreateForProjet(ctx context.Context, pj *entity.PieceJointeProjet) error {
	return r.db.WithContext(ctx).Create(pj).Error
}

// FindProjetByID recherche une pièce jointe de projet par ID
func (r *PieceJointeRepository) FindProjetByID(ctx context.Context, id string) (*entity.PieceJointeProjet, error) {
	var pj entity.PieceJointeProjet
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ?", id).
		First(&pj).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &pj, nil
}

// ListByProjet pièces jointes d'un projet
func (r *PieceJointeRepository) ListByProjet(ctx context.Context, projetID string, filters map[string]interface{}) ([]entity.PieceJointeProjet, error) {
	var pjs []entity.PieceJointeProjet
	query := r.db.WithContext(ctx).Where("projet_id = ?", projetID)

	if typeDocument, ok := filters["type_document"].(string); ok && typeDocument != "" {
		query = query.Where("type_document = ?", typeDocument)
	}
	if justificatifs, ok := filters["justificatifs"].(bool); ok && justificatifs {
		query = query.Where("est_justificatif = true")
	}

	err := query.
		Preload("User").
		Order("created_at DESC").
		Find(&pjs).Error
	return pjs, err
}

// DeleteForProjet supprime une pièce jointe de projet
func (r *PieceJointeRepository) DeleteForProjet(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.PieceJointeProjet{}).Error
}

// CountJustificatifsProjet compte les justificatifs du projet, hors excludeID
func (r *PieceJointeRepository) CountJustificatifsProjet(ctx context.Context, projetID, excludeID string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&entity.PieceJointeProjet{}).
		Where("projet_id = ? AND est_justificatif = true", projetID)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count, err
}

// HistoriqueReferencesProjet vérifie si un chemin de fichier est cité par
// une ligne d'historique de statut du projet
func (r *PieceJointeRepository) HistoriqueReferencesProjet(ctx context.Context, projetID, path string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.ProjetHistoriqueStatut{}).
		Where("projet_id = ? AND justificatif_path = ?", projetID, path).
		Count(&count).Error
	return count > 0, err
}

// CreateForTache attache un fichier à une tâche
func (r *PieceJointeRepository) CreateForTache(ctx context.Context, pj *entity.PieceJointeTache) error {
	return r.db.WithContext(ctx).Create(pj).Error
}

// FindTacheByID recherche une pièce jointe de tâche par ID
func (r *PieceJointeRepository) FindTacheByID(ctx context.Context, id string) (*entity.PieceJointeTache, error) {
	var pj entity.PieceJointeTache
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ?", id).
		First(&pj).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &pj, nil
}

// ListByTache pièces jointes d'une tâche
func (r *PieceJointeRepository) ListByTache(ctx context.Context, tacheID string, filters map[string]interface{}) ([]entity.PieceJointeTache, error) {
	var pjs []entity.PieceJointeTache
	query := r.db.WithContext(ctx).Where("tache_id = ?", tacheID)

	if typeDocument, ok := filters["type_document"].(string); ok && typeDocument != "" {
		query = query.Where("type_document = ?", typeDocument)
	}
	if justificatifs, ok := filters["justificatifs"].(bool); ok && justificatifs {
		query = query.Where("est_justificatif = true")
	}

	err := query.
		Preload("User").
		Order("created_at DESC").
		Find(&pjs).Error
	return pjs, err
}

// DeleteForTache supprime une pièce jointe de tâche
func (r *PieceJointeRepository) DeleteForTache(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.PieceJointeTache{}).Error
}

// CountJustificatifsTache compte les justificatifs de la tâche, hors excludeID
func (r *PieceJointeRepository) CountJustificatifsTache(ctx context.Context, tacheID, excludeID string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&entity.PieceJointeTache{}).
		Where("tache_id = ? AND est_justificatif = true", tacheID)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count, err
}

// HistoriqueReferencesTache vérifie si un chemin de fichier est cité par
// une ligne d'historique de statut de la tâche
func (r *PieceJointeRepository) HistoriqueReferencesTache(ctx context.Context, tacheID, path string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.TacheHistoriqueStatut{}).
		Where("tache_id = ? AND justificatif_path = ?", tacheID, path).
		Count(&count).Error
	return count > 0, err
}
