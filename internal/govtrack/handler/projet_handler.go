package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/service"
)

// ProjetHandler projets, statuts, favoris et types de projet
type ProjetHandler struct {
	svc *service.ProjetService
}

// NewProjetHandler crée le handler projets
func NewProjetHandler(svc *service.ProjetService) *ProjetHandler {
	return &ProjetHandler{svc: svc}
}

// Create POST /api/v1/projets
func (h *ProjetHandler) Create(c *gin.Context) {
	var input service.ProjetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}

	projet, err := h.svc.CreateProjet(c.Request.Context(), input, GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, projet)
}

// Update PUT /api/v1/projets/:id
func (h *ProjetHandler) Update(c *gin.Context) {
	var input service.ProjetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide")
		return
	}

	projet, err := h.svc.UpdateProjet(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, projet)
}

// Get GET /api/v1/projets/:id
func (h *ProjetHandler) Get(c *gin.Context) {
	projet, err := h.svc.GetProjet(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, projet)
}

// projetFilters lit les filtres de liste depuis la query string
func projetFilters(c *gin.Context) map[string]interface{} {
	filters := map[string]interface{}{
		"statut":           c.Query("statut"),
		"type_projet_id":   c.Query("type_projet_id"),
		"porteur_id":       c.Query("porteur_id"),
		"donneur_ordre_id": c.Query("donneur_ordre_id"),
		"search":           c.Query("search"),
	}
	if raw := c.Query("entite_ids"); raw != "" {
		filters["entite_ids"] = strings.Split(raw, ",")
	}
	if c.Query("en_retard") == "true" {
		filters["en_retard"] = true
	}
	if c.Query("favoris") == "true" {
		filters["favoris_de"] = GetUserID(c)
	}
	return filters
}

// List GET /api/v1/projets
func (h *ProjetHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	projets, total, err := h.svc.ListProjets(c.Request.Context(), page, pageSize, projetFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, NewListResponse(projets, page, pageSize, total))
}

// Delete DELETE /api/v1/projets/:id
func (h *ProjetHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteProjet(c.Request.Context(), c.Param("id"), RequestMeta(c), c.Query("motif")); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "projet supprimé"})
}

// ChangerStatut POST /api/v1/projets/:id/changer-statut
func (h *ProjetHandler) ChangerStatut(c *gin.Context) {
	var input service.ChangerStatutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}

	projet, err := h.svc.ChangerStatut(c.Request.Context(), c.Param("id"), input, RequestMeta(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, projet)
}

// Historique GET /api/v1/projets/:id/historique-statuts
func (h *ProjetHandler) Historique(c *gin.Context) {
	historique, err := h.svc.ListHistorique(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"items": historique})
}

// TableauBord GET /api/v1/projets/tableau-bord
func (h *ProjetHandler) TableauBord(c *gin.Context) {
	tableau, err := h.svc.GetTableauBord(c.Request.Context(), projetFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, tableau)
}

// AddFavori POST /api/v1/projets/:id/favori
func (h *ProjetHandler) AddFavori(c *gin.Context) {
	if err := h.svc.AddFavori(c.Request.Context(), GetUserID(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}

	Created(c, gin.H{"message": "projet ajouté aux favoris"})
}

// RemoveFavori DELETE /api/v1/projets/:id/favori
func (h *ProjetHandler) RemoveFavori(c *gin.Context) {
	if err := h.svc.RemoveFavori(c.Request.Context(), GetUserID(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "projet retiré des favoris"})
}

// Favoris GET /api/v1/projets/favoris
func (h *ProjetHandler) Favoris(c *gin.Context) {
	page, pageSize := GetPagination(c)

	projets, total, err := h.svc.ListFavoris(c.Request.Context(), GetUserID(c), page, pageSize)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, NewListResponse(projets, page, pageSize, total))
}

// CreateTypeProjet POST /api/v1/type-projets
func (h *ProjetHandler) CreateTypeProjet(c *gin.Context) {
	var input service.TypeProjetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}

	typeProjet, err := h.svc.CreateTypeProjet(c.Request.Context(), input)
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, typeProjet)
}

// UpdateTypeProjet PUT /api/v1/type-projets/:id
func (h *ProjetHandler) UpdateTypeProjet(c *gin.Context) {
	var input service.TypeProjetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide")
		return
	}

	typeProjet, err := h.svc.UpdateTypeProjet(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, typeProjet)
}

// DeleteTypeProjet DELETE /api/v1/type-projets/:id
func (h *ProjetHandler) DeleteTypeProjet(c *gin.Context) {
	if err := h.svc.DeleteTypeProjet(c.Request.Context(), c.Param("id"), RequestMeta(c), c.Query("motif")); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "type de projet supprimé"})
}

// GetTypeProjet GET /api/v1/type-projets/:id
func (h *ProjetHandler) GetTypeProjet(c *gin.Context) {
	typeProjet, err := h.svc.GetTypeProjet(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, typeProjet)
}

// ListTypeProjets GET /api/v1/type-projets
func (h *ProjetHandler) ListTypeProjets(c *gin.Context) {
	types, err := h.svc.ListTypeProjets(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"items": types})
}
