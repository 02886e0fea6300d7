package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"gorm.io/gorm"
)

// AuditLogRepository dépôt de la piste d'audit, append-only
type AuditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository crée le dépôt de la piste d'audit
func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Create enregistre une entrée d'audit
func (r *AuditLogRepository) Create(ctx context.Context, log *entity.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// FindByID recherche une entrée d'audit par ID
func (r *AuditLogRepository) FindByID(ctx context.Context, id string) (*entity.AuditLog, error) {
	var log entity.AuditLog
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ?", id).
		First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &log, nil
}

// List liste paginée avec filtres
func (r *AuditLogRepository) List(ctx context.Context, page, pageSize int, filters map[string]interface{}) ([]entity.AuditLog, int64, error) {
	var logs []entity.AuditLog
	var total int64

	query := r.auditQuery(ctx, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("User").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&logs).Error
	return logs, total, err
}

// ListAll liste non paginée, pour l'export
func (r *AuditLogRepository) ListAll(ctx context.Context, filters map[string]interface{}, limit int) ([]entity.AuditLog, error) {
	var logs []entity.AuditLog
	err := r.auditQuery(ctx, filters).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// CountByAction répartition des entrées par action
func (r *AuditLogRepository) CountByAction(ctx context.Context, filters map[string]interface{}) (map[string]int64, error) {
	var results []struct {
		Action string `gorm:"column:action"`
		Count  int64  `gorm:"column:count"`
	}
	err := r.auditQuery(ctx, filters).
		Select("action, COUNT(*) as count").
		Group("action").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(results))
	for _, res := range results {
		counts[res.Action] = res.Count
	}
	return counts, nil
}

// CountByTable répartition des entrées par table
func (r *AuditLogRepository) CountByTable(ctx context.Context, filters map[string]interface{}) (map[string]int64, error) {
	var results []struct {
		TableName string `gorm:"column:table_name"`
		Count     int64  `gorm:"column:count"`
	}
	err := r.auditQuery(ctx, filters).
		Select("table_name, COUNT(*) as count").
		Group("table_name").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(results))
	for _, res := range results {
		counts[res.TableName] = res.Count
	}
	return counts, nil
}

// TopUsers utilisateurs les plus actifs
func (r *AuditLogRepository) TopUsers(ctx context.Context, filters map[string]interface{}, limit int) ([]AuditUserCount, error) {
	var results []AuditUserCount
	err := r.auditQuery(ctx, filters).
		Select("user_id, COUNT(*) as count").
		Where("user_id IS NOT NULL").
		Group("user_id").
		Order("count DESC").
		Limit(limit).
		Find(&results).Error
	return results, err
}

// AuditUserCount volume d'activité par utilisateur
type AuditUserCount struct {
	UserID string `gorm:"column:user_id" json:"user_id"`
	Count  int64  `gorm:"column:count" json:"count"`
}

func (r *AuditLogRepository) auditQuery(ctx context.Context, filters map[string]interface{}) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&entity.AuditLog{})

	if userID, ok := filters["user_id"].(string); ok && userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if action, ok := filters["action"].(string); ok && action != "" {
		query = query.Where("action = ?", action)
	}
	if tableName, ok := filters["table_name"].(string); ok && tableName != "" {
		query = query.Where("table_name = ?", tableName)
	}
	if recordID, ok := filters["record_id"].(string); ok && recordID != "" {
		query = query.Where("record_id = ?", recordID)
	}
	if dateDebut, ok := filters["date_debut"].(time.Time); ok {
		query = query.Where("created_at >= ?", dateDebut)
	}
	if dateFin, ok := filters["date_fin"].(time.Time); ok {
		query = query.Where("created_at <= ?", dateFin)
	}
	return query
}
