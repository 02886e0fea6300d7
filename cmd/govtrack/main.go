package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bouramah/GovTrack-sub003/internal/config"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/handler"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/repository"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/service"
	"github.com/bouramah/GovTrack-sub003/internal/middleware"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting govtrack service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := migrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	if err := seedDefaults(db); err != nil {
		zapLogger.Fatal("Failed to seed defaults", zap.Error(err))
	}

	rdb := initRedis(cfg.Redis)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, rdb, cfg, zapLogger)
	handlers := handler.NewHandlers(services, cfg)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Role{},
		&entity.Permission{},
		&entity.UserRole{},
		&entity.RolePermission{},
		&entity.LoginActivity{},
		&entity.TypeEntite{},
		&entity.Entite{},
		&entity.Poste{},
		&entity.EntiteChefHistory{},
		&entity.UtilisateurEntiteHistory{},
		&entity.TypeProjet{},
		&entity.Projet{},
		&entity.ProjetHistoriqueStatut{},
		&entity.PieceJointeProjet{},
		&entity.DiscussionProjet{},
		&entity.ProjetFavori{},
		&entity.Tache{},
		&entity.TacheHistoriqueStatut{},
		&entity.PieceJointeTache{},
		&entity.DiscussionTache{},
		&entity.AuditLog{},
	)
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	v1 := r.Group("/api/v1")
	{
		// authentification, sans session
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
			auth.POST("/forgot-password", h.Auth.ForgotPassword)
			auth.POST("/reset-password", h.Auth.ResetPassword)
		}

		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/activites", h.Auth.Activites)

			// utilisateurs et RBAC
			users := authorized.Group("/users")
			{
				users.GET("", h.User.List)
				users.POST("", middleware.RequirePermission("users.create"), h.User.Create)
				users.GET("/:id", h.User.Get)
				users.PUT("/:id", middleware.RequirePermission("users.update"), h.User.Update)
				users.DELETE("/:id", middleware.RequirePermission("users.delete"), h.User.Delete)
				users.GET("/:id/permissions", h.User.Permissions)
				users.GET("/:id/affectations", h.Entite.AffectationsUtilisateur)
				users.POST("/:id/roles/:roleId", middleware.RequireRole("admin"), h.User.AssignRole)
				users.DELETE("/:id/roles/:roleId", middleware.RequireRole("admin"), h.User.RemoveRole)
			}

			roles := authorized.Group("/roles")
			{
				roles.GET("", h.User.ListRoles)
				roles.POST("", middleware.RequireRole("admin"), h.User.CreateRole)
				roles.GET("/:id", h.User.GetRole)
				roles.PUT("/:id", middleware.RequireRole("admin"), h.User.UpdateRole)
				roles.DELETE("/:id", middleware.RequireRole("admin"), h.User.DeleteRole)
				roles.POST("/:id/permissions/:permissionId", middleware.RequireRole("admin"), h.User.AddPermissionToRole)
				roles.DELETE("/:id/permissions/:permissionId", middleware.RequireRole("admin"), h.User.RemovePermissionFromRole)
			}

			authorized.GET("/permissions", h.User.ListPermissions)

			// entités et organisation
			entites := authorized.Group("/entites")
			{
				entites.GET("", h.Entite.List)
				entites.POST("", middleware.RequirePermission("entites.create"), h.Entite.Create)
				entites.GET("/organigramme", h.Entite.Organigramme)
				entites.GET("/:id", h.Entite.Get)
				entites.PUT("/:id", middleware.RequirePermission("entites.update"), h.Entite.Update)
				entites.DELETE("/:id", middleware.RequirePermission("entites.delete"), h.Entite.Delete)
				entites.GET("/:id/hierarchie", h.Entite.Hierarchie)
				entites.GET("/:id/chef", h.Entite.ChefActif)
				entites.GET("/:id/chef/historique", h.Entite.ChefHistory)
				entites.POST("/:id/affecter-chef", middleware.RequirePermission("entites.affecter"), h.Entite.AffecterChef)
				entites.POST("/:id/terminer-mandat-chef", middleware.RequirePermission("entites.affecter"), h.Entite.TerminerMandatChef)
				entites.GET("/:id/utilisateurs", h.Entite.Affectations)
				entites.POST("/:id/affecter-utilisateur", middleware.RequirePermission("entites.affecter"), h.Entite.AffecterUtilisateur)
				entites.POST("/:id/terminer-affectation", middleware.RequirePermission("entites.affecter"), h.Entite.TerminerAffectation)
			}

			typeEntites := authorized.Group("/type-entites")
			{
				typeEntites.GET("", h.Entite.ListTypeEntites)
				typeEntites.POST("", middleware.RequirePermission("entites.create"), h.Entite.CreateTypeEntite)
				typeEntites.GET("/:id", h.Entite.GetTypeEntite)
				typeEntites.PUT("/:id", middleware.RequirePermission("entites.update"), h.Entite.UpdateTypeEntite)
				typeEntites.DELETE("/:id", middleware.RequirePermission("entites.delete"), h.Entite.DeleteTypeEntite)
			}

			postes := authorized.Group("/postes")
			{
				postes.GET("", h.Entite.ListPostes)
				postes.POST("", middleware.RequirePermission("entites.create"), h.Entite.CreatePoste)
				postes.GET("/:id", h.Entite.GetPoste)
				postes.PUT("/:id", middleware.RequirePermission("entites.update"), h.Entite.UpdatePoste)
				postes.DELETE("/:id", middleware.RequirePermission("entites.delete"), h.Entite.DeletePoste)
			}

			// projets
			projets := authorized.Group("/projets")
			{
				projets.GET("", h.Projet.List)
				projets.POST("", middleware.RequirePermission("projets.create"), h.Projet.Create)
				projets.GET("/tableau-bord", h.Projet.TableauBord)
				projets.GET("/favoris", h.Projet.Favoris)
				projets.GET("/:id", h.Projet.Get)
				projets.PUT("/:id", middleware.RequirePermission("projets.update"), h.Projet.Update)
				projets.DELETE("/:id", middleware.RequirePermission("projets.delete"), h.Projet.Delete)
				projets.POST("/:id/changer-statut", h.Projet.ChangerStatut)
				projets.GET("/:id/historique-statuts", h.Projet.Historique)
				projets.POST("/:id/favori", h.Projet.AddFavori)
				projets.DELETE("/:id/favori", h.Projet.RemoveFavori)

				// tâches du projet
				projets.GET("/:id/taches", h.Tache.ListByProjet)
				projets.POST("/:id/taches", middleware.RequirePermission("taches.create"), h.Tache.Create)

				// discussions et pièces jointes du projet
				projets.GET("/:id/discussions", h.Discussion.ListForProjet)
				projets.POST("/:id/discussions", h.Discussion.CreateForProjet)
				projets.GET("/:id/pieces-jointes", h.PieceJointe.ListForProjet)
				projets.POST("/:id/pieces-jointes", h.PieceJointe.UploadForProjet)
			}

			typeProjets := authorized.Group("/type-projets")
			{
				typeProjets.GET("", h.Projet.ListTypeProjets)
				typeProjets.POST("", middleware.RequirePermission("projets.create"), h.Projet.CreateTypeProjet)
				typeProjets.GET("/:id", h.Projet.GetTypeProjet)
				typeProjets.PUT("/:id", middleware.RequirePermission("projets.update"), h.Projet.UpdateTypeProjet)
				typeProjets.DELETE("/:id", middleware.RequirePermission("projets.delete"), h.Projet.DeleteTypeProjet)
			}

			// tâches
			taches := authorized.Group("/taches")
			{
				taches.GET("/mes-taches", h.Tache.MesTaches)
				taches.GET("/:id", h.Tache.Get)
				taches.PUT("/:id", middleware.RequirePermission("taches.update"), h.Tache.Update)
				taches.DELETE("/:id", middleware.RequirePermission("taches.delete"), h.Tache.Delete)
				taches.POST("/:id/changer-statut", h.Tache.ChangerStatut)
				taches.GET("/:id/historique-statuts", h.Tache.Historique)
				taches.GET("/:id/discussions", h.Discussion.ListForTache)
				taches.POST("/:id/discussions", h.Discussion.CreateForTache)
				taches.GET("/:id/pieces-jointes", h.PieceJointe.ListForTache)
				taches.POST("/:id/pieces-jointes", h.PieceJointe.UploadForTache)
			}

			// discussions et pièces jointes par identifiant
			discussions := authorized.Group("/discussions")
			{
				discussions.PUT("/projets/:id", h.Discussion.UpdateForProjet)
				discussions.DELETE("/projets/:id", h.Discussion.DeleteForProjet)
				discussions.PUT("/taches/:id", h.Discussion.UpdateForTache)
				discussions.DELETE("/taches/:id", h.Discussion.DeleteForTache)
			}

			piecesJointes := authorized.Group("/pieces-jointes")
			{
				piecesJointes.GET("/projets/:id/download", h.PieceJointe.DownloadForProjet)
				piecesJointes.DELETE("/projets/:id", h.PieceJointe.DeleteForProjet)
				piecesJointes.GET("/taches/:id/download", h.PieceJointe.DownloadForTache)
				piecesJointes.DELETE("/taches/:id", h.PieceJointe.DeleteForTache)
			}

			// journal d'audit
			audit := authorized.Group("/audit", middleware.RequirePermission("audit.read"))
			{
				audit.GET("", h.Audit.List)
				audit.GET("/stats", h.Audit.Stats)
				audit.GET("/export", h.Audit.Export)
				audit.GET("/:id", h.Audit.Get)
			}
		}
	}
}
