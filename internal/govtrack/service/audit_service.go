package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/repository"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// AuditService piste d'audit des actions destructrices
type AuditService struct {
	repo   *repository.AuditLogRepository
	logger *zap.Logger
}

// NewAuditService crée le service d'audit
func NewAuditService(repo *repository.AuditLogRepository, logger *zap.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger}
}

// RequestMeta contexte HTTP de l'acteur, propagé jusqu'à la piste d'audit
type RequestMeta struct {
	UserID    string
	IPAddress string
	URL       string
	Method    string
	UserAgent string
}

// Record écrit une entrée d'audit sans bloquer l'appelant. L'échec est
// journalisé puis avalé, jamais remonté au client.
func (s *AuditService) Record(meta RequestMeta, action, table, recordID string, deletedData entity.JSONB, reason string) {
	log := &entity.AuditLog{
		ID:          generateID(),
		Action:      action,
		Table:       table,
		RecordID:    recordID,
		DeletedData: deletedData,
		Reason:      reason,
		IPAddress:   meta.IPAddress,
		URL:         meta.URL,
		Method:      meta.Method,
		UserAgent:   meta.UserAgent,
		CreatedAt:   time.Now(),
	}
	if meta.UserID != "" {
		userID := meta.UserID
		log.UserID = &userID
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.Create(ctx, log); err != nil {
			s.logger.Error("audit write failed",
				zap.String("action", action),
				zap.String("table", table),
				zap.String("record_id", recordID),
				zap.Error(err))
		}
	}()
}

// List liste paginée des entrées d'audit
func (s *AuditService) List(ctx context.Context, page, pageSize int, filters map[string]interface{}) ([]entity.AuditLog, int64, error) {
	return s.repo.List(ctx, page, pageSize, filters)
}

// Get retourne une entrée d'audit
func (s *AuditService) Get(ctx context.Context, id string) (*entity.AuditLog, error) {
	return s.repo.FindByID(ctx, id)
}

// AuditStats statistiques agrégées de la piste d'audit
type AuditStats struct {
	Total     int64                       `json:"total"`
	ParAction map[string]int64            `json:"par_action"`
	ParTable  map[string]int64            `json:"par_table"`
	TopUsers  []repository.AuditUserCount `json:"top_users"`
}

// Stats calcule les statistiques de la piste d'audit
func (s *AuditService) Stats(ctx context.Context, filters map[string]interface{}) (*AuditStats, error) {
	parAction, err := s.repo.CountByAction(ctx, filters)
	if err != nil {
		return nil, err
	}
	parTable, err := s.repo.CountByTable(ctx, filters)
	if err != nil {
		return nil, err
	}
	topUsers, err := s.repo.TopUsers(ctx, filters, 10)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, count := range parAction {
		total += count
	}

	return &AuditStats{
		Total:     total,
		ParAction: parAction,
		ParTable:  parTable,
		TopUsers:  topUsers,
	}, nil
}

// exportLimit plafond de lignes d'un export
const exportLimit = 10000

// Export génère un classeur xlsx des entrées filtrées
func (s *AuditService) Export(ctx context.Context, filters map[string]interface{}) ([]byte, string, error) {
	logs, err := s.repo.ListAll(ctx, filters, exportLimit)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Audit"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Date", "Utilisateur", "Action", "Table", "Enregistrement", "Motif", "IP", "Méthode", "URL"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, log := range logs {
		userName := ""
		if log.User != nil {
			userName = log.User.NomComplet()
		}
		values := []interface{}{
			log.ID,
			log.CreatedAt.Format("2006-01-02 15:04:05"),
			userName,
			log.Action,
			log.Table,
			log.RecordID,
			log.Reason,
			log.IPAddress,
			log.Method,
			log.URL,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("write workbook: %w", err)
	}

	filename := fmt.Sprintf("audit_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	return buf.Bytes(), filename, nil
}
