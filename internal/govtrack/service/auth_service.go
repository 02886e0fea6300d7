package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bouramah/GovTrack-sub003/internal/config"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials email ou mot de passe invalide
var ErrInvalidCredentials = errors.New("invalid credentials")

// Clés redis
const (
	refreshTokenKeyPrefix = "token:refresh:"
	resetTokenKeyPrefix   = "token:reset:"
	resetTokenTTL         = 30 * time.Minute
)

// AuthService authentification et gestion de session
type AuthService struct {
	userRepo     *repository.UserRepository
	activityRepo *repository.LoginActivityRepository
	rdb          *redis.Client
	cfg          *config.Config
	logger       *zap.Logger
}

// NewAuthService crée le service d'authentification
func NewAuthService(userRepo *repository.UserRepository, activityRepo *repository.LoginActivityRepository, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		activityRepo: activityRepo,
		rdb:          rdb,
		cfg:          cfg,
		logger:       logger,
	}
}

// TokenPair paire access / refresh
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login vérifie les identifiants et délivre une paire de jetons. Toute
// tentative, réussie ou non, laisse une trace dans le journal de connexions.
func (s *AuthService) Login(ctx context.Context, email, password string, meta RequestMeta) (*entity.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordActivity(nil, entity.LoginActionFailedLogin, email, "", meta)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordActivity(&user.ID, entity.LoginActionFailedLogin, email, "", meta)
		return nil, nil, ErrInvalidCredentials
	}

	if !user.Statut {
		s.recordActivity(&user.ID, entity.LoginActionFailedLogin, email, "", meta)
		return nil, nil, &ForbiddenError{Message: "compte désactivé"}
	}

	pair, refreshJti, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("update last login failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	user.LastLoginAt = &now

	s.recordActivity(&user.ID, entity.LoginActionLogin, email, refreshJti, meta)

	return user, pair, nil
}

// generateTokenPair signe la paire HS256 et dépose le jti de refresh en redis
func (s *AuthService) generateTokenPair(ctx context.Context, user *entity.User) (*TokenPair, string, error) {
	now := time.Now()
	jti := uuid.New().String()

	accessClaims := jwt.MapClaims{
		"sub":   user.ID,
		"uid":   user.ID,
		"name":  user.NomComplet(),
		"email": user.Email,
		"roles": user.RoleCodes,
		"perms": user.PermissionCodes,
		"iss":   s.cfg.JWT.Issuer,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.JWT.AccessTokenExpire).Unix(),
		"jti":   jti,
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessTokenString, err := accessToken.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, "", fmt.Errorf("sign access token: %w", err)
	}

	refreshJti := uuid.New().String()
	refreshClaims := jwt.MapClaims{
		"sub":  user.ID,
		"type": "refresh",
		"iss":  s.cfg.JWT.Issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.JWT.RefreshTokenExpire).Unix(),
		"jti":  refreshJti,
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	refreshTokenString, err := refreshToken.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, "", fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.rdb.Set(ctx, refreshTokenKeyPrefix+refreshJti, user.ID, s.cfg.JWT.RefreshTokenExpire).Err(); err != nil {
		return nil, "", fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessTokenString,
		RefreshToken: refreshTokenString,
		ExpiresIn:    int64(s.cfg.JWT.AccessTokenExpire.Seconds()),
	}, refreshJti, nil
}

// RefreshToken échange un refresh token valide contre une nouvelle paire.
// Le jti consommé est révoqué, un refresh ne sert qu'une fois.
func (s *AuthService) RefreshToken(ctx context.Context, refreshTokenString string) (*TokenPair, error) {
	token, err := jwt.Parse(refreshTokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWT.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims["type"] != "refresh" {
		return nil, fmt.Errorf("invalid token type")
	}

	jti, _ := claims["jti"].(string)
	userID, err := s.rdb.Get(ctx, refreshTokenKeyPrefix+jti).Result()
	if err != nil {
		return nil, fmt.Errorf("refresh token expired or revoked")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user not found")
	}
	if !user.Statut {
		return nil, &ForbiddenError{Message: "compte désactivé"}
	}

	s.rdb.Del(ctx, refreshTokenKeyPrefix+jti)

	pair, _, err := s.generateTokenPair(ctx, user)
	return pair, err
}

// Logout révoque le refresh token et journalise la déconnexion
func (s *AuthService) Logout(ctx context.Context, userID, refreshTokenString string, meta RequestMeta) error {
	if refreshTokenString != "" {
		token, err := jwt.Parse(refreshTokenString, func(token *jwt.Token) (interface{}, error) {
			return []byte(s.cfg.JWT.Secret), nil
		})
		if err == nil {
			if claims, ok := token.Claims.(jwt.MapClaims); ok {
				if jti, ok := claims["jti"].(string); ok {
					s.rdb.Del(ctx, refreshTokenKeyPrefix+jti)
				}
			}
		}
	}

	s.recordActivity(&userID, entity.LoginActionLogout, "", "", meta)
	return nil
}

// GetCurrentUser retourne l'utilisateur courant, rôles et permissions chargés
func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (*entity.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

// ForgotPassword émet un jeton de réinitialisation à durée limitée. La
// réponse est identique que l'email existe ou non. L'envoi du jeton par
// email est une intégration hors périmètre, il est retourné à l'appelant.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	token := uuid.New().String()
	if err := s.rdb.Set(ctx, resetTokenKeyPrefix+token, user.ID, resetTokenTTL).Err(); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	return token, nil
}

// ResetPassword consomme un jeton de réinitialisation et remplace le mot de passe
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string, meta RequestMeta) error {
	if len(newPassword) < 8 {
		return NewValidationError("password", "8 caractères minimum")
	}

	userID, err := s.rdb.Get(ctx, resetTokenKeyPrefix+token).Result()
	if err != nil {
		return NewValidationError("token", "jeton invalide ou expiré")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}

	s.rdb.Del(ctx, resetTokenKeyPrefix+token)
	s.recordActivity(&userID, entity.LoginActionPasswordReset, "", "", meta)
	return nil
}

// ListActivites journal de connexions d'un utilisateur
func (s *AuthService) ListActivites(ctx context.Context, userID string, page, pageSize int) ([]entity.LoginActivity, int64, error) {
	return s.activityRepo.ListByUser(ctx, userID, page, pageSize)
}

// recordActivity écrit la trace de connexion sans bloquer l'appelant
func (s *AuthService) recordActivity(userID *string, action, email, sessionID string, meta RequestMeta) {
	activity := &entity.LoginActivity{
		ID:        generateID(),
		UserID:    userID,
		Action:    action,
		Email:     email,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		SessionID: sessionID,
		CreatedAt: time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.activityRepo.Create(ctx, activity); err != nil {
			s.logger.Error("login activity write failed", zap.String("action", action), zap.Error(err))
		}
	}()
}
