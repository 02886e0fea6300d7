package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/service"
)

// DiscussionHandler fils de discussion de projets et de tâches
type DiscussionHandler struct {
	svc *service.DiscussionService
}

// NewDiscussionHandler crée le handler discussions
func NewDiscussionHandler(svc *service.DiscussionService) *DiscussionHandler {
	return &DiscussionHandler{svc: svc}
}

// UpdateMessageRequest corps de mise à jour d'un message
type UpdateMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// CreateForProjet POST /api/v1/projets/:id/discussions
func (h *DiscussionHandler) CreateForProjet(c *gin.Context) {
	var input service.MessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}

	message, err := h.svc.CreateForProjet(c.Request.Context(), c.Param("id"), input, GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, message)
}

// ListForProjet GET /api/v1/projets/:id/discussions
func (h *DiscussionHandler) ListForProjet(c *gin.Context) {
	page, pageSize := GetPagination(c)

	messages, total, err := h.svc.ListForProjet(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, NewListResponse(messages, page, pageSize, total))
}

// UpdateForProjet PUT /api/v1/discussions/projets/:id
func (h *DiscussionHandler) UpdateForProjet(c *gin.Context) {
	var req UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "corps de requête invalide")
		return
	}

	message, err := h.svc.UpdateForProjet(c.Request.Context(), c.Param("id"), req.Message, GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, message)
}

// DeleteForProjet DELETE /api/v1/discussions/projets/:id
func (h *DiscussionHandler) DeleteForProjet(c *gin.Context) {
	if err := h.svc.DeleteForProjet(c.Request.Context(), c.Param("id"), GetUserID(c), RequestMeta(c)); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "message supprimé"})
}

// CreateForTache POST /api/v1/taches/:id/discussions
func (h *DiscussionHandler) CreateForTache(c *gin.Context) {
	var input service.MessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}

	message, err := h.svc.CreateForTache(c.Request.Context(), c.Param("id"), input, GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, message)
}

// ListForTache GET /api/v1/taches/:id/discussions
func (h *DiscussionHandler) ListForTache(c *gin.Context) {
	page, pageSize := GetPagination(c)

	messages, total, err := h.svc.ListForTache(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, NewListResponse(messages, page, pageSize, total))
}

// UpdateForTache PUT /api/v1/discussions/taches/:id
func (h *DiscussionHandler) UpdateForTache(c *gin.Context) {
	var req UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "corps de requête invalide")
		return
	}

	message, err := h.svc.UpdateForTache(c.Request.Context(), c.Param("id"), req.Message, GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, message)
}

// DeleteForTache DELETE /api/v1/discussions/taches/:id
func (h *DiscussionHandler) DeleteForTache(c *gin.Context) {
	if err := h.svc.DeleteForTache(c.Request.Context(), c.Param("id"), GetUserID(c), RequestMeta(c)); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "message supprimé"})
}
