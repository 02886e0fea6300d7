package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TypeProjetRepository dépôt des types de projet
type TypeProjetRepository struct {
	db *gorm.DB
}

// NewTypeProjetRepository crée le dépôt des types de projet
func NewTypeProjetRepository(db *gorm.DB) *TypeProjetRepository {
	return &TypeProjetRepository{db: db}
}

// FindByID recherche un type de projet par ID
func (r *TypeProjetRepository) FindByID(ctx context.Context, id string) (*entity.TypeProjet, error) {
	var typeProjet entity.TypeProjet
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&typeProjet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &typeProjet, nil
}

// Create crée un type de projet
func (r *TypeProjetRepository) Create(ctx context.Context, typeProjet *entity.TypeProjet) error {
	return r.db.WithContext(ctx).Create(typeProjet).Error
}

// Update met à jour un type de projet
func (r *TypeProjetRepository) Update(ctx context.Context, typeProjet *entity.TypeProjet) error {
	return r.db.WithContext(ctx).Save(typeProjet).Error
}

// Delete supprime un type de projet
func (r *TypeProjetRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.TypeProjet{}).Error
}

// List liste tous les types de projet
func (r *TypeProjetRepository) List(ctx context.Context) ([]entity.TypeProjet, error) {
	var types []entity.TypeProjet
	err := r.db.WithContext(ctx).Order("nom ASC").Find(&types).Error
	return types, err
}

// CountProjets compte les projets rattachés à ce type
func (r *TypeProjetRepository) CountProjets(ctx context.Context, typeProjetID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Projet{}).
		Where("type_projet_id = ?", typeProjetID).
		Count(&count).Error
	return count, err
}

// ProjetRepository dépôt des projets
type ProjetRepository struct {
	db *gorm.DB
}

// NewProjetRepository crée le dépôt des projets
func NewProjetRepository(db *gorm.DB) *ProjetRepository {
	return &ProjetRepository{db: db}
}

// FindByID recherche un projet par ID, associations incluses
func (r *ProjetRepository) FindByID(ctx context.Context, id string) (*entity.Projet, error) {
	var projet entity.Projet
	err := r.db.WithContext(ctx).
		Preload("TypeProjet").
		Preload("Porteur").
		Preload("DonneurOrdre").
		Preload("Entite").
		Where("id = ?", id).
		First(&projet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &projet, nil
}

// FindByIDForUpdate recherche un projet verrouillé pour mise à jour, dans tx
func (r *ProjetRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*entity.Projet, error) {
	var projet entity.Projet
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&projet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &projet, nil
}

// Create crée un projet
func (r *ProjetRepository) Create(ctx context.Context, projet *entity.Projet) error {
	return r.db.WithContext(ctx).Create(projet).Error
}

// Update met à jour un projet
func (r *ProjetRepository) Update(ctx context.Context, projet *entity.Projet) error {
	return r.db.WithContext(ctx).Save(projet).Error
}

// UpdateTx met à jour un projet dans tx
func (r *ProjetRepository) UpdateTx(ctx context.Context, tx *gorm.DB, projet *entity.Projet) error {
	return tx.WithContext(ctx).Save(projet).Error
}

// Delete supprime un projet
func (r *ProjetRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.Projet{}).Error
}

// List liste paginée avec filtres
func (r *ProjetRepository) List(ctx context.Context, page, pageSize int, filters map[string]interface{}) ([]entity.Projet, int64, error) {
	var projets []entity.Projet
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Projet{})

	if statut, ok := filters["statut"].(string); ok && statut != "" {
		query = query.Where("statut = ?", statut)
	}
	if typeProjetID, ok := filters["type_projet_id"].(string); ok && typeProjetID != "" {
		query = query.Where("type_projet_id = ?", typeProjetID)
	}
	if porteurID, ok := filters["porteur_id"].(string); ok && porteurID != "" {
		query = query.Where("porteur_id = ?", porteurID)
	}
	if donneurOrdreID, ok := filters["donneur_ordre_id"].(string); ok && donneurOrdreID != "" {
		query = query.Where("donneur_ordre_id = ?", donneurOrdreID)
	}
	if entiteIDs, ok := filters["entite_ids"].([]string); ok && len(entiteIDs) > 0 {
		query = query.Where("entite_id IN ?", entiteIDs)
	}
	if enRetard, ok := filters["en_retard"].(bool); ok && enRetard {
		query = query.Where("date_fin_previsionnelle < ? AND statut <> ?", time.Now(), entity.StatutTermine)
	}
	if favorisDe, ok := filters["favoris_de"].(string); ok && favorisDe != "" {
		query = query.Where("id IN (SELECT projet_id FROM projet_favoris WHERE user_id = ?)", favorisDe)
	}
	if search, ok := filters["search"].(string); ok && search != "" {
		query = query.Where("titre ILIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("TypeProjet").
		Preload("Porteur").
		Preload("DonneurOrdre").
		Preload("Entite").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&projets).Error
	return projets, total, err
}

// AddHistorique enregistre une transition de statut, dans tx si fourni
func (r *ProjetRepository) AddHistorique(ctx context.Context, tx *gorm.DB, h *entity.ProjetHistoriqueStatut) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Create(h).Error
}

// LatestHistorique dernière transition enregistrée du projet, dans tx si fourni
func (r *ProjetRepository) LatestHistorique(ctx context.Context, tx *gorm.DB, projetID string) (*entity.ProjetHistoriqueStatut, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var h entity.ProjetHistoriqueStatut
	err := db.WithContext(ctx).
		Where("projet_id = ?", projetID).
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

// ListHistorique historique des statuts d'un projet, du plus récent au plus ancien
func (r *ProjetRepository) ListHistorique(ctx context.Context, projetID string) ([]entity.ProjetHistoriqueStatut, error) {
	var historique []entity.ProjetHistoriqueStatut
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("projet_id = ?", projetID).
		Order("created_at DESC").
		Find(&historique).Error
	return historique, err
}

// CountByStatut répartition des projets par statut
func (r *ProjetRepository) CountByStatut(ctx context.Context, filters map[string]interface{}) (map[string]int64, error) {
	var results []struct {
		Statut string `gorm:"column:statut"`
		Count  int64  `gorm:"column:count"`
	}
	query := r.db.WithContext(ctx).
		Model(&entity.Projet{}).
		Select("statut, COUNT(*) as count")

	if entiteIDs, ok := filters["entite_ids"].([]string); ok && len(entiteIDs) > 0 {
		query = query.Where("entite_id IN ?", entiteIDs)
	}
	if porteurID, ok := filters["porteur_id"].(string); ok && porteurID != "" {
		query = query.Where("porteur_id = ?", porteurID)
	}

	err := query.Group("statut").Find(&results).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(results))
	for _, res := range results {
		counts[res.Statut] = res.Count
	}
	return counts, nil
}

// CountEnRetard compte les projets dont l'échéance prévisionnelle est dépassée
func (r *ProjetRepository) CountEnRetard(ctx context.Context, filters map[string]interface{}) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&entity.Projet{}).
		Where("date_fin_previsionnelle < ? AND statut <> ?", time.Now(), entity.StatutTermine)

	if entiteIDs, ok := filters["entite_ids"].([]string); ok && len(entiteIDs) > 0 {
		query = query.Where("entite_id IN ?", entiteIDs)
	}
	if porteurID, ok := filters["porteur_id"].(string); ok && porteurID != "" {
		query = query.Where("porteur_id = ?", porteurID)
	}

	err := query.Count(&count).Error
	return count, err
}

// AvgNiveauExecution moyenne des niveaux d'exécution
func (r *ProjetRepository) AvgNiveauExecution(ctx context.Context, filters map[string]interface{}) (float64, error) {
	var result struct {
		Avg float64 `gorm:"column:avg"`
	}
	query := r.db.WithContext(ctx).
		Model(&entity.Projet{}).
		Select("COALESCE(AVG(niveau_execution), 0) as avg")

	if entiteIDs, ok := filters["entite_ids"].([]string); ok && len(entiteIDs) > 0 {
		query = query.Where("entite_id IN ?", entiteIDs)
	}
	if porteurID, ok := filters["porteur_id"].(string); ok && porteurID != "" {
		query = query.Where("porteur_id = ?", porteurID)
	}

	err := query.Scan(&result).Error
	return result.Avg, err
}

// AddFavori marque un projet en favori (idempotent)
func (r *ProjetRepository) AddFavori(ctx context.Context, userID, projetID string) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO projet_favoris (user_id, projet_id, created_at)
		VALUES (?, ?, NOW())
		ON CONFLICT (user_id, projet_id) DO NOTHING
	`, userID, projetID).Error
}

// RemoveFavori retire un projet des favoris
func (r *ProjetRepository) RemoveFavori(ctx context.Context, userID, projetID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND projet_id = ?", userID, projetID).
		Delete(&entity.ProjetFavori{}).Error
}

// IsFavori vérifie si un projet est en favori
func (r *ProjetRepository) IsFavori(ctx context.Context, userID, projetID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.ProjetFavori{}).
		Where("user_id = ? AND projet_id = ?", userID, projetID).
		Count(&count).Error
	return count > 0, err
}

// HasJustificatif vérifie la présence d'un justificatif attaché au projet
func (r *ProjetRepository) HasJustificatif(ctx context.Context, tx *gorm.DB, projetID string) (bool, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var count int64
	err := db.WithContext(ctx).
		Model(&entity.PieceJointeProjet{}).
		Where("projet_id = ? AND est_justificatif = true", projetID).
		Count(&count).Error
	return count > 0, err
}

// HasJustificatifPath vérifie qu'un justificatif du projet porte ce chemin
func (r *ProjetRepository) HasJustificatifPath(ctx context.Context, tx *gorm.DB, projetID, path string) (bool, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var count int64
	err := db.WithContext(ctx).
		Model(&entity.PieceJointeProjet{}).
		Where("projet_id = ? AND est_justificatif = true AND fichier_path = ?", projetID, path).
		Count(&count).Error
	return count > 0, err
}

// CountTachesNonTerminees compte les tâches du projet hors statut termine
func (r *ProjetRepository) CountTachesNonTerminees(ctx context.Context, tx *gorm.DB, projetID string) (int64, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var count int64
	err := db.WithContext(ctx).
		Model(&entity.Tache{}).
		Where("projet_id = ? AND statut <> ?", projetID, entity.StatutTermine).
		Count(&count).Error
	return count, err
}

// Transaction exécute fn dans une transaction
func (r *ProjetRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
