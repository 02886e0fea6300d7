package service

import (
	"fmt"
	"strings"

	"github.com/bouramah/GovTrack-sub003/internal/config"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/repository"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services collection des services
type Services struct {
	Auth        *AuthService
	User        *UserService
	Entite      *EntiteService
	Projet      *ProjetService
	Tache       *TacheService
	PieceJointe *PieceJointeService
	Discussion  *DiscussionService
	Audit       *AuditService
}

// NewServices crée la collection des services
func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("minio unavailable, falling back to local storage", zap.Error(err))
			minioClient = nil
		}
	}

	auditSvc := NewAuditService(repos.AuditLog, logger)
	tacheSvc := NewTacheService(repos.Tache, repos.Projet, repos.User, auditSvc)

	return &Services{
		Auth:        NewAuthService(repos.User, repos.LoginActivity, rdb, cfg, logger),
		User:        NewUserService(repos.User, repos.Role, repos.Permission, auditSvc),
		Entite:      NewEntiteService(repos.Entite, repos.TypeEntite, repos.Poste, repos.User, auditSvc),
		Projet:      NewProjetService(repos.Projet, repos.TypeProjet, repos.Tache, repos.User, repos.Entite, auditSvc),
		Tache:       tacheSvc,
		PieceJointe: NewPieceJointeService(repos.PieceJointe, repos.Projet, repos.Tache, minioClient, cfg.MinIO.Bucket, cfg.Upload.Dir, auditSvc),
		Discussion:  NewDiscussionService(repos.Discussion, repos.Projet, repos.Tache, auditSvc),
		Audit:       auditSvc,
	}
}

// generateID identifiant 32 caractères
func generateID() string {
	return uuid.New().String()[:32]
}

// ValidationError erreur de validation, champ -> message (HTTP 422)
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return "validation: " + strings.Join(parts, "; ")
}

// NewValidationError erreur sur un seul champ
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// ConflictError conflit métier (HTTP 409), peut embarquer la ressource en cause
type ConflictError struct {
	Message string
	Data    interface{}
}

func (e *ConflictError) Error() string {
	return e.Message
}

// ForbiddenError action refusée à l'acteur (HTTP 403)
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}
