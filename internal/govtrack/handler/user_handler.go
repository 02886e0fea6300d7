package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/service"
)

// UserHandler utilisateurs, rôles et permissions
type UserHandler struct {
	svc *service.UserService
}

// NewUserHandler crée le handler utilisateurs
func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Create POST /api/v1/users
func (h *UserHandler) Create(c *gin.Context) {
	var input service.CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}

	user, err := h.svc.CreateUser(c.Request.Context(), input)
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, user)
}

// Update PUT /api/v1/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	var input service.UpdateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide")
		return
	}

	user, err := h.svc.UpdateUser(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, user)
}

// Get GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.svc.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, user)
}

// List GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	filters := map[string]interface{}{
		"entite_id": c.Query("entite_id"),
		"search":    c.Query("search"),
	}
	if statut := c.Query("statut"); statut != "" {
		filters["statut"] = statut == "true"
	}

	users, total, err := h.svc.ListUsers(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, NewListResponse(users, page, pageSize, total))
}

// Delete DELETE /api/v1/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteUser(c.Request.Context(), c.Param("id"), RequestMeta(c), c.Query("motif")); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "utilisateur supprimé"})
}

// Permissions GET /api/v1/users/:id/permissions
func (h *UserHandler) Permissions(c *gin.Context) {
	codes, err := h.svc.GetUserPermissions(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"permissions": codes})
}

// AssignRole POST /api/v1/users/:id/roles/:roleId
func (h *UserHandler) AssignRole(c *gin.Context) {
	if err := h.svc.AssignRole(c.Request.Context(), c.Param("id"), c.Param("roleId")); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "rôle attribué"})
}

// RemoveRole DELETE /api/v1/users/:id/roles/:roleId
func (h *UserHandler) RemoveRole(c *gin.Context) {
	if err := h.svc.RemoveRole(c.Request.Context(), c.Param("id"), c.Param("roleId")); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "rôle retiré"})
}

// CreateRole POST /api/v1/roles
func (h *UserHandler) CreateRole(c *gin.Context) {
	var input service.RoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}

	role, err := h.svc.CreateRole(c.Request.Context(), input)
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, role)
}

// UpdateRole PUT /api/v1/roles/:id
func (h *UserHandler) UpdateRole(c *gin.Context) {
	var input service.RoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide")
		return
	}

	role, err := h.svc.UpdateRole(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, role)
}

// DeleteRole DELETE /api/v1/roles/:id
func (h *UserHandler) DeleteRole(c *gin.Context) {
	if err := h.svc.DeleteRole(c.Request.Context(), c.Param("id"), RequestMeta(c), c.Query("motif")); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "rôle supprimé"})
}

// GetRole GET /api/v1/roles/:id
func (h *UserHandler) GetRole(c *gin.Context) {
	role, err := h.svc.GetRole(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, role)
}

// ListRoles GET /api/v1/roles
func (h *UserHandler) ListRoles(c *gin.Context) {
	roles, err := h.svc.ListRoles(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"items": roles})
}

// ListPermissions GET /api/v1/permissions
func (h *UserHandler) ListPermissions(c *gin.Context) {
	permissions, err := h.svc.ListPermissions(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"items": permissions})
}

// AddPermissionToRole POST /api/v1/roles/:id/permissions/:permissionId
func (h *UserHandler) AddPermissionToRole(c *gin.Context) {
	if err := h.svc.AddPermissionToRole(c.Request.Context(), c.Param("id"), c.Param("permissionId")); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "permission ajoutée"})
}

// RemovePermissionFromRole DELETE /api/v1/roles/:id/permissions/:permissionId
func (h *UserHandler) RemovePermissionFromRole(c *gin.Context) {
	if err := h.svc.RemovePermissionFromRole(c.Request.Context(), c.Param("id"), c.Param("permissionId")); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "permission retirée"})
}
