package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/service"
)

// AuthHandler authentification et session
type AuthHandler struct {
	svc *service.AuthService
}

// NewAuthHandler crée le handler d'authentification
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// LoginRequest corps de connexion
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}

	user, tokenPair, err := h.svc.Login(c.Request.Context(), req.Email, req.Password, RequestMeta(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{
		"access_token":  tokenPair.AccessToken,
		"refresh_token": tokenPair.RefreshToken,
		"expires_in":    tokenPair.ExpiresIn,
		"user": gin.H{
			"id":          user.ID,
			"matricule":   user.Matricule,
			"nom":         user.Nom,
			"prenom":      user.Prenom,
			"nom_complet": user.NomComplet(),
			"email":       user.Email,
			"roles":       user.RoleCodes,
			"permissions": user.PermissionCodes,
		},
	})
}

// RefreshTokenRequest corps de rafraîchissement
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "corps de requête invalide")
		return
	}

	tokenPair, err := h.svc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		Unauthorized(c, "jeton de rafraîchissement invalide ou expiré")
		return
	}

	Success(c, gin.H{
		"access_token":  tokenPair.AccessToken,
		"refresh_token": tokenPair.RefreshToken,
		"expires_in":    tokenPair.ExpiresIn,
	})
}

// Logout POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "corps de requête invalide")
		return
	}

	if err := h.svc.Logout(c.Request.Context(), GetUserID(c), req.RefreshToken, RequestMeta(c)); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "déconnexion effectuée"})
}

// Me GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.svc.GetCurrentUser(c.Request.Context(), GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{
		"id":          user.ID,
		"matricule":   user.Matricule,
		"nom":         user.Nom,
		"prenom":      user.Prenom,
		"nom_complet": user.NomComplet(),
		"email":       user.Email,
		"telephone":   user.Telephone,
		"statut":      user.Statut,
		"roles":       user.RoleCodes,
		"permissions": user.PermissionCodes,
		"last_login":  user.LastLoginAt,
	})
}

// ForgotPasswordRequest corps de demande de réinitialisation
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword POST /api/v1/auth/forgot-password
//
// La réponse est identique que l'email existe ou non.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "corps de requête invalide")
		return
	}

	token, err := h.svc.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		RespondError(c, err)
		return
	}

	data := gin.H{"message": "si le compte existe, un jeton de réinitialisation a été émis"}
	if token != "" {
		// Pas d'envoi d'email: le jeton est retourné à l'appelant.
		data["reset_token"] = token
	}
	Success(c, data)
}

// ResetPasswordRequest corps de réinitialisation
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ResetPassword POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "corps de requête invalide")
		return
	}

	if err := h.svc.ResetPassword(c.Request.Context(), req.Token, req.NewPassword, RequestMeta(c)); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"message": "mot de passe réinitialisé"})
}

// Activites GET /api/v1/auth/activites. Chacun consulte ses propres
// connexions; viser un autre utilisateur est réservé aux admins.
func (h *AuthHandler) Activites(c *gin.Context) {
	page, pageSize := GetPagination(c)
	userID := GetUserID(c)
	if target := c.Query("user_id"); target != "" && target != userID {
		if !HasRole(c, "admin") {
			Forbidden(c, "consultation des activités d'un autre utilisateur réservée aux admins")
			return
		}
		userID = target
	}

	activites, total, err := h.svc.ListActivites(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, NewListResponse(activites, page, pageSize, total))
}
