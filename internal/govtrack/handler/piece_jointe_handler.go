package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/service"
)

// PieceJointeHandler pièces jointes de projets et de tâches
type PieceJointeHandler struct {
	svc *service.PieceJointeService
}

// NewPieceJointeHandler crée le handler pièces jointes
func NewPieceJointeHandler(svc *service.PieceJointeService) *PieceJointeHandler {
	return &PieceJointeHandler{svc: svc}
}

// uploadInput lit les champs du formulaire multipart
func uploadInput(c *gin.Context) service.UploadInput {
	return service.UploadInput{
		TypeDocument:    c.PostForm("type_document"),
		EstJustificatif: c.PostForm("est_justificatif") == "true",
		Description:     c.PostForm("description"),
	}
}

// pieceJointeFilters lit les filtres de liste
func pieceJointeFilters(c *gin.Context) map[string]interface{} {
	filters := map[string]interface{}{
		"type_document": c.Query("type_document"),
	}
	if c.Query("justificatifs") == "true" {
		filters["justificatifs"] = true
	}
	return filters
}

// UploadForProjet POST /api/v1/projets/:id/pieces-jointes
func (h *PieceJointeHandler) UploadForProjet(c *gin.Context) {
	fileHeader, err := c.FormFile("fichier")
	if err != nil {
		BadRequest(c, "champ fichier manquant")
		return
	}

	piece, err := h.svc.UploadForProjet(c.Request.Context(), c.Param("id"), fileHeader, uploadInput(c), GetUserID(c), RequestMeta(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, piece)
}

// ListForProjet GET /api/v1/projets/:id/pieces-jointes
func (h *PieceJointeHandler) ListForProjet(c *gin.Context) {
	pieces, err := h.svc.ListForProjet(c.Request.Context(), c.Param("id"), pieceJointeFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"items": pieces})
}

// DownloadForProjet GET /api/v1/pieces-jointes/projets/:id/download
func (h *PieceJointeHandler) DownloadForProjet(c *gin.Context) {
	piece, reader, err := h.svc.DownloadForProjet(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, piece.Taille, piece.Mimetype, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", piece.NomOriginal),
	})
}

// DeleteForProjet DELETE /api/v1/pieces-jointes/projets/:id
func (h *PieceJointeHandler) DeleteForProjet(c *gin.Context) {
	if err := h.svc.DeleteForProjet(c.Request.Context(), c.Param("id"), RequestMeta(c), c.Query("motif")); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "pièce jointe supprimée"})
}

// UploadForTache POST /api/v1/taches/:id/pieces-jointes
func (h *PieceJointeHandler) UploadForTache(c *gin.Context) {
	fileHeader, err := c.FormFile("fichier")
	if err != nil {
		BadRequest(c, "champ fichier manquant")
		return
	}

	piece, err := h.svc.UploadForTache(c.Request.Context(), c.Param("id"), fileHeader, uploadInput(c), GetUserID(c), RequestMeta(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, piece)
}

// ListForTache GET /api/v1/taches/:id/pieces-jointes
func (h *PieceJointeHandler) ListForTache(c *gin.Context) {
	pieces, err := h.svc.ListForTache(c.Request.Context(), c.Param("id"), pieceJointeFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"items": pieces})
}

// DownloadForTache GET /api/v1/pieces-jointes/taches/:id/download
func (h *PieceJointeHandler) DownloadForTache(c *gin.Context) {
	piece, reader, err := h.svc.DownloadForTache(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, piece.Taille, piece.Mimetype, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", piece.NomOriginal),
	})
}

// DeleteForTache DELETE /api/v1/pieces-jointes/taches/:id
func (h *PieceJointeHandler) DeleteForTache(c *gin.Context) {
	if err := h.svc.DeleteForTache(c.Request.Context(), c.Param("id"), RequestMeta(c), c.Query("motif")); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "pièce jointe supprimée"})
}
