package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/repository"
	"github.com/minio/minio-go/v7"
)

// MaxUploadSize taille maximale d'une pièce jointe
const MaxUploadSize = 10 << 20 // 10 MB

// PieceJointeService pièces jointes des projets et tâches. Stockage MinIO
// quand un client est configuré, système de fichiers local sinon.
type PieceJointeService struct {
	repo        *repository.PieceJointeRepository
	projetRepo  *repository.ProjetRepository
	tacheRepo   *repository.TacheRepository
	minioClient *minio.Client
	bucket      string
	uploadDir   string
	audit       *AuditService
}

// NewPieceJointeService crée le service des pièces jointes
func NewPieceJointeService(repo *repository.PieceJointeRepository, projetRepo *repository.ProjetRepository, tacheRepo *repository.TacheRepository, minioClient *minio.Client, bucket, uploadDir string, audit *AuditService) *PieceJointeService {
	if uploadDir == "" {
		uploadDir = "./uploads"
	}
	return &PieceJointeService{
		repo:        repo,
		projetRepo:  projetRepo,
		tacheRepo:   tacheRepo,
		minioClient: minioClient,
		bucket:      bucket,
		uploadDir:   uploadDir,
		audit:       audit,
	}
}

// UploadInput métadonnées d'un téléversement
type UploadInput struct {
	TypeDocument    string
	EstJustificatif bool
	Description     string
}

func (s *PieceJointeService) validateUpload(fileHeader *multipart.FileHeader, input UploadInput) error {
	fields := map[string]string{}
	if fileHeader.Size > MaxUploadSize {
		fields["fichier"] = "taille maximale 10 Mo dépassée"
	}
	if !entity.IsValidTypeDocument(input.TypeDocument) {
		fields["type_document"] = "type de document inconnu"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// store écrit l'objet et retourne son chemin de stockage
func (s *PieceJointeService) store(ctx context.Context, prefix string, fileHeader *multipart.FileHeader) (string, error) {
	objectName := fmt.Sprintf("%s/%s_%s", prefix, generateID(), filepath.Base(fileHeader.Filename))

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	if s.minioClient != nil {
		contentType := fileHeader.Header.Get("Content-Type")
		_, err = s.minioClient.PutObject(ctx, s.bucket, objectName, src, fileHeader.Size,
			minio.PutObjectOptions{ContentType: contentType})
		if err != nil {
			return "", fmt.Errorf("put object: %w", err)
		}
		return objectName, nil
	}

	savePath := filepath.Join(s.uploadDir, objectName)
	if err := os.MkdirAll(filepath.Dir(savePath), 0755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	dst, err := os.Create(savePath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return objectName, nil
}

// open ouvre l'objet stocké en lecture
func (s *PieceJointeService) open(ctx context.Context, path string) (io.ReadCloser, error) {
	if s.minioClient != nil {
		obj, err := s.minioClient.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
		if err != nil {
			return nil, fmt.Errorf("get object: %w", err)
		}
		return obj, nil
	}
	return os.Open(filepath.Join(s.uploadDir, path))
}

// remove supprime l'objet stocké, l'échec est ignoré
func (s *PieceJointeService) remove(ctx context.Context, path string) {
	if s.minioClient != nil {
		_ = s.minioClient.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{})
		return
	}
	_ = os.Remove(filepath.Join(s.uploadDir, path))
}

// UploadForProjet attache un fichier à un projet
func (s *PieceJointeService) UploadForProjet(ctx context.Context, projetID string, fileHeader *multipart.FileHeader, input UploadInput, actorID string, meta RequestMeta) (*entity.PieceJointeProjet, error) {
	if _, err := s.projetRepo.FindByID(ctx, projetID); err != nil {
		return nil, err
	}
	if err := s.validateUpload(fileHeader, input); err != nil {
		return nil, err
	}

	path, err := s.store(ctx, "projets/"+projetID, fileHeader)
	if err != nil {
		return nil, err
	}

	pj := &entity.PieceJointeProjet{
		ID:              generateID(),
		ProjetID:        projetID,
		UserID:          actorID,
		FichierPath:     path,
		NomOriginal:     fileHeader.Filename,
		Mimetype:        fileHeader.Header.Get("Content-Type"),
		Taille:          fileHeader.Size,
		TypeDocument:    input.TypeDocument,
		EstJustificatif: input.EstJustificatif,
		Description:     input.Description,
		CreatedAt:       time.Now(),
	}
	if err := s.repo.CreateForProjet(ctx, pj); err != nil {
		s.remove(ctx, path)
		return nil, err
	}

	s.audit.Record(meta, entity.AuditActionUpload, entity.PieceJointeProjet{}.TableName(), pj.ID, nil, "")
	return pj, nil
}

// ListForProjet pièces jointes d'un projet
func (s *PieceJointeService) ListForProjet(ctx context.Context, projetID string, filters map[string]interface{}) ([]entity.PieceJointeProjet, error) {
	if _, err := s.projetRepo.FindByID(ctx, projetID); err != nil {
		return nil, err
	}
	return s.repo.ListByProjet(ctx, projetID, filters)
}

// DownloadForProjet ouvre le flux d'une pièce jointe de projet
func (s *PieceJointeService) DownloadForProjet(ctx context.Context, id string) (*entity.PieceJointeProjet, io.ReadCloser, error) {
	pj, err := s.repo.FindProjetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	reader, err := s.open(ctx, pj.FichierPath)
	if err != nil {
		return nil, nil, err
	}
	return pj, reader, nil
}

// DeleteForProjet supprime une pièce jointe de projet. Un justificatif
// cité par une ligne d'historique de statut est intouchable, de même que
// le dernier justificatif d'un projet en demande de clôture ou terminé.
func (s *PieceJointeService) DeleteForProjet(ctx context.Context, id string, meta RequestMeta, reason string) error {
	pj, err := s.repo.FindProjetByID(ctx, id)
	if err != nil {
		return err
	}

	if pj.EstJustificatif {
		cite, err := s.repo.HistoriqueReferencesProjet(ctx, pj.ProjetID, pj.FichierPath)
		if err != nil {
			return err
		}
		if cite {
			return &ConflictError{Message: "justificatif cité par l'historique de statut, suppression refusée"}
		}
		projet, err := s.projetRepo.FindByID(ctx, pj.ProjetID)
		if err != nil {
			return err
		}
		if projet.Statut == entity.StatutDemandeDeCloture || projet.Statut == entity.StatutTermine {
			restants, err := s.repo.CountJustificatifsProjet(ctx, pj.ProjetID, id)
			if err != nil {
				return err
			}
			if restants == 0 {
				return &ConflictError{Message: "dernier justificatif d'un projet en clôture, suppression refusée"}
			}
		}
	}

	if err := s.repo.DeleteForProjet(ctx, id); err != nil {
		return err
	}
	s.remove(ctx, pj.FichierPath)

	s.audit.Record(meta, entity.AuditActionDelete, entity.PieceJointeProjet{}.TableName(), id, entity.JSONB{
		"nom_original":     pj.NomOriginal,
		"projet_id":        pj.ProjetID,
		"est_justificatif": pj.EstJustificatif,
	}, reason)
	return nil
}

// UploadForTache attache un fichier à une tâche
func (s *PieceJointeService) UploadForTache(ctx context.Context, tacheID string, fileHeader *multipart.FileHeader, input UploadInput, actorID string, meta RequestMeta) (*entity.PieceJointeTache, error) {
	if _, err := s.tacheRepo.FindByID(ctx, tacheID); err != nil {
		return nil, err
	}
	if err := s.validateUpload(fileHeader, input); err != nil {
		return nil, err
	}

	path, err := s.store(ctx, "taches/"+tacheID, fileHeader)
	if err != nil {
		return nil, err
	}

	pj := &entity.PieceJointeTache{
		ID:              generateID(),
		TacheID:         tacheID,
		UserID:          actorID,
		FichierPath:     path,
		NomOriginal:     fileHeader.Filename,
		Mimetype:        fileHeader.Header.Get("Content-Type"),
		Taille:          fileHeader.Size,
		TypeDocument:    input.TypeDocument,
		EstJustificatif: input.EstJustificatif,
		Description:     input.Description,
		CreatedAt:       time.Now(),
	}
	if err := s.repo.CreateForTache(ctx, pj); err != nil {
		s.remove(ctx, path)
		return nil, err
	}

	s.audit.Record(meta, entity.AuditActionUpload, entity.PieceJointeTache{}.TableName(), pj.ID, nil, "")
	return pj, nil
}

// ListForTache pièces jointes d'une tâche
func (s *PieceJointeService) ListForTache(ctx context.Context, tacheID string, filters map[string]interface{}) ([]entity.PieceJointeTache, error) {
	if _, err := s.tacheRepo.FindByID(ctx, tacheID); err != nil {
		return nil, err
	}
	return s.repo.ListByTache(ctx, tacheID, filters)
}

// DownloadForTache ouvre le flux d'une pièce jointe de tâche
func (s *PieceJointeService) DownloadForTache(ctx context.Context, id string) (*entity.PieceJointeTache, io.ReadCloser, error) {
	pj, err := s.repo.FindTacheByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	reader, err := s.open(ctx, pj.FichierPath)
	if err != nil {
		return nil, nil, err
	}
	return pj, reader, nil
}

// DeleteForTache supprime une pièce jointe de tâche, même garde que côté projet
func (s *PieceJointeService) DeleteForTache(ctx context.Context, id string, meta RequestMeta, reason string) error {
	pj, err := s.repo.FindTacheByID(ctx, id)
	if err != nil {
		return err
	}

	if pj.EstJustificatif {
		cite, err := s.repo.HistoriqueReferencesTache(ctx, pj.TacheID, pj.FichierPath)
		if err != nil {
			return err
		}
		if cite {
			return &ConflictError{Message: "justificatif cité par l'historique de statut, suppression refusée"}
		}
		tache, err := s.tacheRepo.FindByID(ctx, pj.TacheID)
		if err != nil {
			return err
		}
		if tache.Statut == entity.StatutDemandeDeCloture || tache.Statut == entity.StatutTermine {
			restants, err := s.repo.CountJustificatifsTache(ctx, pj.TacheID, id)
			if err != nil {
				return err
			}
			if restants == 0 {
				return &ConflictError{Message: "dernier justificatif d'une tâche en clôture, suppression refusée"}
			}
		}
	}

	if err := s.repo.DeleteForTache(ctx, id); err != nil {
		return err
	}
	s.remove(ctx, pj.FichierPath)

	s.audit.Record(meta, entity.AuditActionDelete, entity.PieceJointeTache{}.TableName(), id, entity.JSONB{
		"nom_original":     pj.NomOriginal,
		"tache_id":         pj.TacheID,
		"est_justificatif": pj.EstJustificatif,
	}, reason)
	return nil
}
