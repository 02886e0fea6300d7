package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TypeEntiteRepository dépôt des types d'entité
type TypeEntiteRepository struct {
	db *gorm.DB
}

// NewTypeEntiteRepository crée le dépôt des types d'entité
func NewTypeEntiteRepository(db *gorm.DB) *TypeEntiteRepository {
	return &TypeEntiteRepository{db: db}
}

// FindByID recherche un type d'entité par ID
func (r *TypeEntiteRepository) FindByID(ctx context.Context, id string) (*entity.TypeEntite, error) {
	var typeEntite entity.TypeEntite
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&typeEntite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &typeEntite, nil
}

// Create crée un type d'entité
func (r *TypeEntiteRepository) Create(ctx context.Context, typeEntite *entity.TypeEntite) error {
	return r.db.WithContext(ctx).Create(typeEntite).Error
}

// Update met à jour un type d'entité
func (r *TypeEntiteRepository) Update(ctx context.Context, typeEntite *entity.TypeEntite) error {
	return r.db.WithContext(ctx).Save(typeEntite).Error
}

// Delete supprime un type d'entité
func (r *TypeEntiteRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.TypeEntite{}).Error
}

// List liste tous les types d'entité
func (r *TypeEntiteRepository) List(ctx context.Context) ([]entity.TypeEntite, error) {
	var types []entity.TypeEntite
	err := r.db.WithContext(ctx).Order("nom ASC").Find(&types).Error
	return types, err
}

// CountByNom compte les types portant ce nom, hors excludeID
func (r *TypeEntiteRepository) CountByNom(ctx context.Context, nom, excludeID string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&entity.TypeEntite{}).Where("nom = ?", nom)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count, err
}

// CountEntites compte les entités rattachées à ce type
func (r *TypeEntiteRepository) CountEntites(ctx context.Context, typeEntiteID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Entite{}).
		Where("type_entite_id = ?", typeEntiteID).
		Count(&count).Error
	return count, err
}

// EntiteRepository dépôt des entités organisationnelles
type EntiteRepository struct {
	db *gorm.DB
}

// NewEntiteRepository crée le dépôt des entités
func NewEntiteRepository(db *gorm.DB) *EntiteRepository {
	return &EntiteRepository{db: db}
}

// FindByID recherche une entité par ID
func (r *EntiteRepository) FindByID(ctx context.Context, id string) (*entity.Entite, error) {
	var ent entity.Entite
	err := r.db.WithContext(ctx).
		Preload("TypeEntite").
		Preload("Parent").
		Where("id = ?", id).
		First(&ent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ent, nil
}

// Create crée une entité
func (r *EntiteRepository) Create(ctx context.Context, ent *entity.Entite) error {
	return r.db.WithContext(ctx).Create(ent).Error
}

// Update met à jour une entité
func (r *EntiteRepository) Update(ctx context.Context, ent *entity.Entite) error {
	return r.db.WithContext(ctx).Save(ent).Error
}

// Delete supprime une entité
func (r *EntiteRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.Entite{}).Error
}

// List liste paginée avec filtres
func (r *EntiteRepository) List(ctx context.Context, page, pageSize int, filters map[string]interface{}) ([]entity.Entite, int64, error) {
	var entites []entity.Entite
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Entite{})

	if typeEntiteID, ok := filters["type_entite_id"].(string); ok && typeEntiteID != "" {
		query = query.Where("type_entite_id = ?", typeEntiteID)
	}
	if parentID, ok := filters["parent_id"].(string); ok && parentID != "" {
		query = query.Where("parent_id = ?", parentID)
	}
	if racines, ok := filters["racines"].(bool); ok && racines {
		query = query.Where("parent_id IS NULL")
	}
	if search, ok := filters["search"].(string); ok && search != "" {
		query = query.Where("nom ILIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("TypeEntite").
		Preload("Parent").
		Order("nom ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&entites).Error
	return entites, total, err
}

// ListAll liste toutes les entités, pour la construction d'arbres
func (r *EntiteRepository) ListAll(ctx context.Context) ([]entity.Entite, error) {
	var entites []entity.Entite
	err := r.db.WithContext(ctx).
		Preload("TypeEntite").
		Order("nom ASC").
		Find(&entites).Error
	return entites, err
}

// ListChildren liste les entités filles directes
func (r *EntiteRepository) ListChildren(ctx context.Context, parentID string) ([]entity.Entite, error) {
	var entites []entity.Entite
	err := r.db.WithContext(ctx).
		Preload("TypeEntite").
		Where("parent_id = ?", parentID).
		Order("nom ASC").
		Find(&entites).Error
	return entites, err
}

// CountChildren compte les entités filles directes
func (r *EntiteRepository) CountChildren(ctx context.Context, parentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Entite{}).
		Where("parent_id = ?", parentID).
		Count(&count).Error
	return count, err
}

// CountProjets compte les projets rattachés à cette entité
func (r *EntiteRepository) CountProjets(ctx context.Context, entiteID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Projet{}).
		Where("entite_id = ?", entiteID).
		Count(&count).Error
	return count, err
}

// FindChefActif retourne le mandat de chef en cours. Sous transaction la
// ligne est verrouillée pour mise à jour.
func (r *EntiteRepository) FindChefActif(ctx context.Context, tx *gorm.DB, entiteID string) (*entity.EntiteChefHistory, error) {
	db := r.db
	if tx != nil {
		db = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var mandat entity.EntiteChefHistory
	err := db.WithContext(ctx).
		Where("entite_id = ? AND date_fin IS NULL", entiteID).
		First(&mandat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &mandat, nil
}

// CreateChefMandat ouvre un mandat de chef
func (r *EntiteRepository) CreateChefMandat(ctx context.Context, tx *gorm.DB, mandat *entity.EntiteChefHistory) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Create(mandat).Error
}

// CloseChefMandat clôture un mandat de chef à la date donnée
func (r *EntiteRepository) CloseChefMandat(ctx context.Context, tx *gorm.DB, mandatID string, dateFin time.Time) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).
		Model(&entity.EntiteChefHistory{}).
		Where("id = ?", mandatID).
		Update("date_fin", dateFin).Error
}

// ListChefHistory historique des mandats de chef d'une entité
func (r *EntiteRepository) ListChefHistory(ctx context.Context, entiteID string) ([]entity.EntiteChefHistory, error) {
	var mandats []entity.EntiteChefHistory
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("entite_id = ?", entiteID).
		Order("date_debut DESC").
		Find(&mandats).Error
	return mandats, err
}

// FindAffectationActive retourne l'affectation active d'un utilisateur.
// Sous transaction la ligne est verrouillée pour mise à jour.
func (r *EntiteRepository) FindAffectationActive(ctx context.Context, tx *gorm.DB, userID string) (*entity.UtilisateurEntiteHistory, error) {
	db := r.db
	if tx != nil {
		db = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var affectation entity.UtilisateurEntiteHistory
	err := db.WithContext(ctx).
		Where("user_id = ? AND statut = true", userID).
		First(&affectation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &affectation, nil
}

// CreateAffectation ouvre une affectation
func (r *EntiteRepository) CreateAffectation(ctx context.Context, tx *gorm.DB, affectation *entity.UtilisateurEntiteHistory) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Create(affectation).Error
}

// CloseAffectation clôture une affectation à la date donnée
func (r *EntiteRepository) CloseAffectation(ctx context.Context, tx *gorm.DB, affectationID string, dateFin time.Time) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).
		Model(&entity.UtilisateurEntiteHistory{}).
		Where("id = ?", affectationID).
		Updates(map[string]interface{}{
			"statut":   false,
			"date_fin": dateFin,
		}).Error
}

// ListAffectationsActives affectations actives d'une entité
func (r *EntiteRepository) ListAffectationsActives(ctx context.Context, entiteID string) ([]entity.UtilisateurEntiteHistory, error) {
	var affectations []entity.UtilisateurEntiteHistory
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Poste").
		Where("entite_id = ? AND statut = true", entiteID).
		Order("date_debut ASC").
		Find(&affectations).Error
	return affectations, err
}

// ListAffectationsByUser historique des affectations d'un utilisateur
func (r *EntiteRepository) ListAffectationsByUser(ctx context.Context, userID string) ([]entity.UtilisateurEntiteHistory, error) {
	var affectations []entity.UtilisateurEntiteHistory
	err := r.db.WithContext(ctx).
		Preload("Entite").
		Preload("Poste").
		Where("user_id = ?", userID).
		Order("date_debut DESC").
		Find(&affectations).Error
	return affectations, err
}

// Transaction exécute fn dans une transaction
func (r *EntiteRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// PosteRepository dépôt des postes
type PosteRepository struct {
	db *gorm.DB
}

// NewPosteRepository crée le dépôt des postes
func NewPosteRepository(db *gorm.DB) *PosteRepository {
	return &PosteRepository{db: db}
}

// FindByID recherche un poste par ID
func (r *PosteRepository) FindByID(ctx context.Context, id string) (*entity.Poste, error) {
	var poste entity.Poste
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&poste).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &poste, nil
}

// Create crée un poste
func (r *PosteRepository) Create(ctx context.Context, poste *entity.Poste) error {
	return r.db.WithContext(ctx).Create(poste).Error
}

// Update met à jour un poste
func (r *PosteRepository) Update(ctx context.Context, poste *entity.Poste) error {
	return r.db.WithContext(ctx).Save(poste).Error
}

// Delete supprime un poste
func (r *PosteRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.Poste{}).Error
}

// List liste tous les postes
func (r *PosteRepository) List(ctx context.Context) ([]entity.Poste, error) {
	var postes []entity.Poste
	err := r.db.WithContext(ctx).Order("nom ASC").Find(&postes).Error
	return postes, err
}

// CountAffectations compte les affectations actives utilisant ce poste
func (r *PosteRepository) CountAffectations(ctx context.Context, posteID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.UtilisateurEntiteHistory{}).
		Where("poste_id = ? AND statut = true", posteID).
		Count(&count).Error
	return count, err
}
