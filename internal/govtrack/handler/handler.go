package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bouramah/GovTrack-sub003/internal/config"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/repository"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/service"
)

// Handlers collection des handlers HTTP
type Handlers struct {
	Auth        *AuthHandler
	User        *UserHandler
	Entite      *EntiteHandler
	Projet      *ProjetHandler
	Tache       *TacheHandler
	PieceJointe *PieceJointeHandler
	Discussion  *DiscussionHandler
	Audit       *AuditHandler
}

// NewHandlers crée la collection des handlers
func NewHandlers(svc *service.Services, cfg *config.Config) *Handlers {
	return &Handlers{
		Auth:        NewAuthHandler(svc.Auth),
		User:        NewUserHandler(svc.User),
		Entite:      NewEntiteHandler(svc.Entite),
		Projet:      NewProjetHandler(svc.Projet),
		Tache:       NewTacheHandler(svc.Tache),
		PieceJointe: NewPieceJointeHandler(svc.PieceJointe),
		Discussion:  NewDiscussionHandler(svc.Discussion),
		Audit:       NewAuditHandler(svc.Audit),
	}
}

// Response structure de réponse unifiée
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse réponse de liste paginée
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination informations de pagination
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewListResponse construit une réponse de liste paginée
func NewListResponse(items interface{}, page, pageSize int, total int64) *ListResponse {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &ListResponse{
		Items: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}

// Success réponse de succès
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created réponse de création
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error réponse d'erreur, le statut HTTP dérive du code métier
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = http.StatusInternalServerError
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// ErrorWithData réponse d'erreur enrichie de données de contexte
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = http.StatusInternalServerError
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// BadRequest requête invalide
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized non authentifié
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// Forbidden accès refusé
func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

// NotFound ressource introuvable
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// InternalError erreur serveur
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// RespondError traduit les erreurs typées des services en réponse HTTP.
// Tous les handlers passent par ici pour garder un contrat d'erreur unique.
func RespondError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	var conflictErr *service.ConflictError
	var forbiddenErr *service.ForbiddenError

	switch {
	case errors.As(err, &validationErr):
		ErrorWithData(c, 42200, validationErr.Error(), gin.H{"errors": validationErr.Fields})
	case errors.As(err, &conflictErr):
		ErrorWithData(c, 40900, conflictErr.Message, conflictErr.Data)
	case errors.As(err, &forbiddenErr):
		Forbidden(c, forbiddenErr.Message)
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, "ressource introuvable")
	case errors.Is(err, service.ErrInvalidCredentials):
		Unauthorized(c, "identifiants invalides")
	default:
		InternalError(c, err.Error())
	}
}

// GetUserID récupère l'identifiant utilisateur du contexte
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// HasRole vérifie si l'acteur courant porte le rôle donné
func HasRole(c *gin.Context, role string) bool {
	value, _ := c.Get("roles")
	roles, ok := value.([]string)
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// GetPagination récupère les paramètres de pagination de la requête
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

// RequestMeta construit les métadonnées d'audit de la requête courante
func RequestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		UserID:    GetUserID(c),
		IPAddress: c.ClientIP(),
		URL:       c.Request.URL.String(),
		Method:    c.Request.Method,
		UserAgent: c.Request.UserAgent(),
	}
}
