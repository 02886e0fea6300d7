package handler

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/service"
)

// EntiteHandler entités, types, postes et affectations
type EntiteHandler struct {
	svc *service.EntiteService
}

// NewEntiteHandler crée le handler entités
func NewEntiteHandler(svc *service.EntiteService) *EntiteHandler {
	return &EntiteHandler{svc: svc}
}

// Create POST /api/v1/entites
func (h *EntiteHandler) Create(c *gin.Context) {
	var input service.EntiteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}

	entite, err := h.svc.CreateEntite(c.Request.Context(), input)
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, entite)
}

// Update PUT /api/v1/entites/:id
func (h *EntiteHandler) Update(c *gin.Context) {
	var input service.EntiteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide")
		return
	}

	entite, err := h.svc.UpdateEntite(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, entite)
}

// Get GET /api/v1/entites/:id
func (h *EntiteHandler) Get(c *gin.Context) {
	entite, err := h.svc.GetEntite(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, entite)
}

// List GET /api/v1/entites
func (h *EntiteHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	filters := map[string]interface{}{
		"type_entite_id": c.Query("type_entite_id"),
		"parent_id":      c.Query("parent_id"),
		"search":         c.Query("search"),
	}
	if c.Query("racines") == "true" {
		filters["racines"] = true
	}

	entites, total, err := h.svc.ListEntites(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, NewListResponse(entites, page, pageSize, total))
}

// Delete DELETE /api/v1/entites/:id
func (h *EntiteHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteEntite(c.Request.Context(), c.Param("id"), RequestMeta(c), c.Query("motif")); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "entité supprimée"})
}

// Hierarchie GET /api/v1/entites/:id/hierarchie
func (h *EntiteHandler) Hierarchie(c *gin.Context) {
	hierarchie, err := h.svc.GetHierarchie(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, hierarchie)
}

// Organigramme GET /api/v1/entites/organigramme
func (h *EntiteHandler) Organigramme(c *gin.Context) {
	arbre, err := h.svc.GetOrganigramme(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"items": arbre})
}

// AffecterChef POST /api/v1/entites/:id/affecter-chef
func (h *EntiteHandler) AffecterChef(c *gin.Context) {
	var input service.AffecterChefInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}

	mandat, err := h.svc.AffecterChef(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, mandat)
}

// TerminerMandatRequest corps de clôture de mandat ou d'affectation
type TerminerMandatRequest struct {
	DateFin *time.Time `json:"date_fin"`
}

func (r TerminerMandatRequest) dateFin() time.Time {
	if r.DateFin != nil {
		return *r.DateFin
	}
	return time.Now()
}

// TerminerMandatChef POST /api/v1/entites/:id/terminer-mandat-chef
func (h *EntiteHandler) TerminerMandatChef(c *gin.Context) {
	var req TerminerMandatRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(c, "corps de requête invalide")
		return
	}

	if err := h.svc.TerminerMandatChef(c.Request.Context(), c.Param("id"), req.dateFin()); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "mandat clôturé"})
}

// ChefActif GET /api/v1/entites/:id/chef
func (h *EntiteHandler) ChefActif(c *gin.Context) {
	mandat, err := h.svc.GetChefActif(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, mandat)
}

// ChefHistory GET /api/v1/entites/:id/chef/historique
func (h *EntiteHandler) ChefHistory(c *gin.Context) {
	mandats, err := h.svc.ListChefHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"items": mandats})
}

// AffecterUtilisateur POST /api/v1/entites/:id/affecter-utilisateur
func (h *EntiteHandler) AffecterUtilisateur(c *gin.Context) {
	var input service.AffecterUtilisateurInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}

	affectation, err := h.svc.AffecterUtilisateur(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, affectation)
}

// TerminerAffectationRequest corps de clôture d'affectation
type TerminerAffectationRequest struct {
	UserID  string     `json:"user_id" binding:"required"`
	DateFin *time.Time `json:"date_fin"`
}

// TerminerAffectation POST /api/v1/entites/:id/terminer-affectation
func (h *EntiteHandler) TerminerAffectation(c *gin.Context) {
	var req TerminerAffectationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}

	dateFin := time.Now()
	if req.DateFin != nil {
		dateFin = *req.DateFin
	}

	if err := h.svc.TerminerAffectation(c.Request.Context(), c.Param("id"), req.UserID, dateFin); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "affectation clôturée"})
}

// Affectations GET /api/v1/entites/:id/utilisateurs
func (h *EntiteHandler) Affectations(c *gin.Context) {
	affectations, err := h.svc.ListAffectations(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"items": affectations})
}

// AffectationsUtilisateur GET /api/v1/users/:id/affectations
func (h *EntiteHandler) AffectationsUtilisateur(c *gin.Context) {
	affectations, err := h.svc.ListAffectationsUtilisateur(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"items": affectations})
}

// CreateTypeEntite POST /api/v1/type-entites
func (h *EntiteHandler) CreateTypeEntite(c *gin.Context) {
	var input service.TypeEntiteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}

	typeEntite, err := h.svc.CreateTypeEntite(c.Request.Context(), input)
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, typeEntite)
}

// UpdateTypeEntite PUT /api/v1/type-entites/:id
func (h *EntiteHandler) UpdateTypeEntite(c *gin.Context) {
	var input service.TypeEntiteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide")
		return
	}

	typeEntite, err := h.svc.UpdateTypeEntite(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, typeEntite)
}

// DeleteTypeEntite DELETE /api/v1/type-entites/:id
func (h *EntiteHandler) DeleteTypeEntite(c *gin.Context) {
	if err := h.svc.DeleteTypeEntite(c.Request.Context(), c.Param("id"), RequestMeta(c), c.Query("motif")); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "type d'entité supprimé"})
}

// GetTypeEntite GET /api/v1/type-entites/:id
func (h *EntiteHandler) GetTypeEntite(c *gin.Context) {
	typeEntite, err := h.svc.GetTypeEntite(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, typeEntite)
}

// ListTypeEntites GET /api/v1/type-entites
func (h *EntiteHandler) ListTypeEntites(c *gin.Context) {
	types, err := h.svc.ListTypeEntites(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"items": types})
}

// CreatePoste POST /api/v1/postes
func (h *EntiteHandler) CreatePoste(c *gin.Context) {
	var input service.PosteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}

	poste, err := h.svc.CreatePoste(c.Request.Context(), input)
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, poste)
}

// UpdatePoste PUT /api/v1/postes/:id
func (h *EntiteHandler) UpdatePoste(c *gin.Context) {
	var input service.PosteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide")
		return
	}

	poste, err := h.svc.UpdatePoste(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, poste)
}

// DeletePoste DELETE /api/v1/postes/:id
func (h *EntiteHandler) DeletePoste(c *gin.Context) {
	if err := h.svc.DeletePoste(c.Request.Context(), c.Param("id"), RequestMeta(c), c.Query("motif")); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "poste supprimé"})
}

// GetPoste GET /api/v1/postes/:id
func (h *EntiteHandler) GetPoste(c *gin.Context) {
	poste, err := h.svc.GetPoste(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, poste)
}

// ListPostes GET /api/v1/postes
func (h *EntiteHandler) ListPostes(c *gin.Context) {
	postes, err := h.svc.ListPostes(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"items": postes})
}
