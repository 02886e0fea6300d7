package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"github.com/bouramah/GovTrack-sub003/internal/middleware"
)

const (
	TestSchema = "test_govtrack"
	JWTSecret  = "govtrack-jwt-secret-key-2024"
)

// TestEnv regroupe les dépendances partagées par les tests d'un handler.
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// projectRoot remonte jusqu'au répertoire contenant go.mod
func projectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func loadEnv() {
	root := projectRoot()
	if root != "" {
		godotenv.Load(filepath.Join(root, ".env"))
	}
}

// SetupTestDB ouvre une connexion sur un schéma de test dédié.
// Chaque test obtient un schéma isolé, supprimé en fin de test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	loadEnv()

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "govtrack")
	password := getEnv("DB_PASSWORD", "govtrack123")
	dbname := getEnv("DB_NAME", "govtrack")

	baseDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	schemaName := fmt.Sprintf("%s_%d", TestSchema, time.Now().UnixNano()%1000000)

	setupDB, err := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to database for schema setup: %v", err)
	}
	setupDB.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName))
	sqlSetup, _ := setupDB.DB()
	sqlSetup.Close()

	// search_path dans le DSN pour que tout le pool vise le schéma de test
	testDSN := fmt.Sprintf("%s search_path=%s", baseDSN, schemaName)
	db, err := gorm.Open(postgres.Open(testDSN), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	err = db.AutoMigrate(
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
	if err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		cleanDB, cleanErr := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if cleanErr == nil {
			cleanDB.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName))
			sqlClean, _ := cleanDB.DB()
			if sqlClean != nil {
				sqlClean.Close()
			}
		}
	})

	return db
}

// SetupRouter crée un routeur gin de test
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup crée un groupe protégé par le middleware JWT
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken délivre un jeton JWT valide pour les tests
func GenerateTestToken(userID, name, email string, roles, permissions []string) string {
	if roles == nil {
		roles = []string{}
	}
	if permissions == nil {
		permissions = []string{}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"uid":   userID,
		"name":  name,
		"email": email,
		"roles": roles,
		"perms": permissions,
		"iss":   "govtrack",
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
		"jti":   fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken jeton d'un administrateur de test
func DefaultTestToken() string {
	return GenerateTestToken(
		"test-user-001",
		"Admin Test",
		"admin@test.local",
		[]string{"admin"},
		[]string{"*"},
	)
}

// DoRequest exécute une requête HTTP contre le routeur de test
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse décode le corps JSON de la réponse
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedTestUser crée un utilisateur de test
func SeedTestUser(t *testing.T, db *gorm.DB, id, nom, email string) *entity.User {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte("motdepasse"), bcrypt.MinCost)
	user := &entity.User{
		ID:           id,
		Matricule:    "MAT-" + id,
		Nom:          nom,
		Prenom:       "Test",
		Email:        email,
		PasswordHash: string(hash),
		Statut:       true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to seed test user: %v", err)
	}
	return user
}

// SeedTestRole crée un rôle de test
func SeedTestRole(t *testing.T, db *gorm.DB, id, code, nom string, isSystem bool) *entity.Role {
	t.Helper()
	role := &entity.Role{
		ID:        id,
		Code:      code,
		Nom:       nom,
		IsSystem:  isSystem,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(role).Error; err != nil {
		t.Fatalf("Failed to seed test role: %v", err)
	}
	return role
}

// SeedTestTypeProjet crée un type de projet de test
func SeedTestTypeProjet(t *testing.T, db *gorm.DB, id, nom string, dureeJrs *int) *entity.TypeProjet {
	t.Helper()
	typeProjet := &entity.TypeProjet{
		ID:                     id,
		Nom:                    nom,
		DureePrevisionnelleJrs: dureeJrs,
		CreatedAt:              time.Now(),
		UpdatedAt:              time.Now(),
	}
	if err := db.Create(typeProjet).Error; err != nil {
		t.Fatalf("Failed to seed test type projet: %v", err)
	}
	return typeProjet
}

// SeedTestProjet crée un projet de test au statut donné
func SeedTestProjet(t *testing.T, db *gorm.DB, id, typeProjetID, porteurID, statut string) *entity.Projet {
	t.Helper()
	projet := &entity.Projet{
		ID:             id,
		Titre:          "Projet " + id,
		TypeProjetID:   typeProjetID,
		PorteurID:      porteurID,
		DonneurOrdreID: porteurID,
		Statut:         statut,
		CreatedBy:      porteurID,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := db.Create(projet).Error; err != nil {
		t.Fatalf("Failed to seed test projet: %v", err)
	}
	return projet
}

// SeedTestTache crée une tâche de test au statut donné
func SeedTestTache(t *testing.T, db *gorm.DB, id, projetID string, responsableID *string, statut string, niveau int) *entity.Tache {
	t.Helper()
	tache := &entity.Tache{
		ID:              id,
		Titre:           "Tache " + id,
		ProjetID:        projetID,
		ResponsableID:   responsableID,
		Statut:          statut,
		NiveauExecution: niveau,
		CreatedBy:       "test-user-001",
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := db.Create(tache).Error; err != nil {
		t.Fatalf("Failed to seed test tache: %v", err)
	}
	return tache
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
