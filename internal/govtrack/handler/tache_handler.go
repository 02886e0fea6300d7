package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/service"
)

// TacheHandler tâches et avancement
type TacheHandler struct {
	svc *service.TacheService
}

// NewTacheHandler crée le handler tâches
func NewTacheHandler(svc *service.TacheService) *TacheHandler {
	return &TacheHandler{svc: svc}
}

// Create POST /api/v1/projets/:id/taches
func (h *TacheHandler) Create(c *gin.Context) {
	var input service.TacheInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}

	tache, err := h.svc.CreateTache(c.Request.Context(), c.Param("id"), input, GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, tache)
}

// Update PUT /api/v1/taches/:id
func (h *TacheHandler) Update(c *gin.Context) {
	var input service.TacheInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide")
		return
	}

	tache, err := h.svc.UpdateTache(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, tache)
}

// Get GET /api/v1/taches/:id
func (h *TacheHandler) Get(c *gin.Context) {
	tache, err := h.svc.GetTache(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, tache)
}

// ListByProjet GET /api/v1/projets/:id/taches
func (h *TacheHandler) ListByProjet(c *gin.Context) {
	filters := map[string]interface{}{
		"statut":         c.Query("statut"),
		"responsable_id": c.Query("responsable_id"),
	}

	taches, err := h.svc.ListByProjet(c.Request.Context(), c.Param("id"), filters)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"items": taches})
}

// MesTaches GET /api/v1/taches/mes-taches
func (h *TacheHandler) MesTaches(c *gin.Context) {
	page, pageSize := GetPagination(c)

	filters := map[string]interface{}{
		"statut":    c.Query("statut"),
		"projet_id": c.Query("projet_id"),
	}

	taches, total, err := h.svc.MesTaches(c.Request.Context(), GetUserID(c), page, pageSize, filters)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, NewListResponse(taches, page, pageSize, total))
}

// Delete DELETE /api/v1/taches/:id
func (h *TacheHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteTache(c.Request.Context(), c.Param("id"), RequestMeta(c), c.Query("motif")); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "tâche supprimée"})
}

// ChangerStatut POST /api/v1/taches/:id/changer-statut
func (h *TacheHandler) ChangerStatut(c *gin.Context) {
	var input service.ChangerStatutTacheInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}

	tache, err := h.svc.ChangerStatut(c.Request.Context(), c.Param("id"), input, RequestMeta(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, tache)
}

// Historique GET /api/v1/taches/:id/historique-statuts
func (h *TacheHandler) Historique(c *gin.Context) {
	historique, err := h.svc.ListHistorique(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"items": historique})
}
