package handler

import (
	"net/http"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/testutil"
)

func setupEntiteTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	svc := newTestServices(t, db)
	h := NewEntiteHandler(svc.Entite)

	api := testutil.AuthGroup(router, "/api/v1")
	api.POST("/entites", h.Create)
	api.GET("/entites", h.List)
	api.GET("/entites/organigramme", h.Organigramme)
	api.GET("/entites/:id", h.Get)
	api.PUT("/entites/:id", h.Update)
	api.DELETE("/entites/:id", h.Delete)
	api.GET("/entites/:id/hierarchie", h.Hierarchie)
	api.POST("/entites/:id/affecter-chef", h.AffecterChef)
	api.POST("/entites/:id/terminer-mandat-chef", h.TerminerMandatChef)
	api.GET("/entites/:id/chef", h.ChefActif)
	api.GET("/entites/:id/chef/historique", h.ChefHistory)
	api.POST("/entites/:id/affecter-utilisateur", h.AffecterUtilisateur)
	api.POST("/entites/:id/terminer-affectation", h.TerminerAffectation)
	api.GET("/entites/:id/affectations", h.Affectations)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func seedTypeEntite(t *testing.T, db *gorm.DB, id, nom string) {
	t.Helper()
	now := time.Now()
	te := &entity.TypeEntite{ID: id, Nom: nom, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(te).Error; err != nil {
		t.Fatalf("Failed to seed type entite: %v", err)
	}
}

func seedEntite(t *testing.T, db *gorm.DB, id, nom, typeEntiteID string, parentID *string) {
	t.Helper()
	now := time.Now()
	ent := &entity.Entite{ID: id, Nom: nom, TypeEntiteID: typeEntiteID, ParentID: parentID, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(ent).Error; err != nil {
		t.Fatalf("Failed to seed entite: %v", err)
	}
}

func seedPoste(t *testing.T, db *gorm.DB, id, nom string) {
	t.Helper()
	now := time.Now()
	poste := &entity.Poste{ID: id, Nom: nom, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(poste).Error; err != nil {
		t.Fatalf("Failed to seed poste: %v", err)
	}
}

func TestEntiteCycleParentRefuse(t *testing.T) {
	env := setupEntiteTest(t)
	token := testutil.DefaultTestToken()
	seedTypeEntite(t, env.DB, "te-001", "Direction")
	seedEntite(t, env.DB, "ent-racine", "Direction Générale", "te-001", nil)
	racine := "ent-racine"
	seedEntite(t, env.DB, "ent-fille", "Service Courrier", "te-001", &racine)

	// rattacher la racine à sa fille créerait un cycle
	w := testutil.DoRequest(env.Router, "PUT", "/api/v1/entites/ent-racine", map[string]interface{}{
		"nom":            "Direction Générale",
		"type_entite_id": "te-001",
		"parent_id":      "ent-fille",
	}, token)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422 for cycle, got %d: %s", w.Code, w.Body.String())
	}

	// une entité ne peut être son propre parent
	w2 := testutil.DoRequest(env.Router, "PUT", "/api/v1/entites/ent-racine", map[string]interface{}{
		"nom":            "Direction Générale",
		"type_entite_id": "te-001",
		"parent_id":      "ent-racine",
	}, token)
	if w2.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422 for self parent, got %d: %s", w2.Code, w2.Body.String())
	}
}

func TestEntiteDeleteRefuseAvecFilles(t *testing.T) {
	env := setupEntiteTest(t)
	token := testutil.DefaultTestToken()
	seedTypeEntite(t, env.DB, "te-001", "Direction")
	seedEntite(t, env.DB, "ent-racine", "Direction Générale", "te-001", nil)
	racine := "ent-racine"
	seedEntite(t, env.DB, "ent-fille", "Service Courrier", "te-001", &racine)

	w := testutil.DoRequest(env.Router, "DELETE", "/api/v1/entites/ent-racine", nil, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 with children, got %d: %s", w.Code, w.Body.String())
	}

	w2 := testutil.DoRequest(env.Router, "DELETE", "/api/v1/entites/ent-fille?motif=réorganisation", nil, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200 for leaf, got %d: %s", w2.Code, w2.Body.String())
	}
}

func TestEntiteMandatChef(t *testing.T) {
	env := setupEntiteTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "user-chef-1", "Premier", "chef1@test.local")
	testutil.SeedTestUser(t, env.DB, "user-chef-2", "Second", "chef2@test.local")
	seedTypeEntite(t, env.DB, "te-001", "Direction")
	seedEntite(t, env.DB, "ent-001", "Direction Générale", "te-001", nil)

	// premier mandat
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/entites/ent-001/affecter-chef", map[string]interface{}{
		"user_id":    "user-chef-1",
		"date_debut": "2025-01-01T00:00:00Z",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// second candidat sans relève explicite
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/entites/ent-001/affecter-chef", map[string]interface{}{
		"user_id":    "user-chef-2",
		"date_debut": "2025-06-01T00:00:00Z",
	}, token)
	if w2.Code != http.StatusConflict {
		t.Fatalf("Expected 409 without terminer_mandat_precedent, got %d: %s", w2.Code, w2.Body.String())
	}

	// relève explicite: l'ancien mandat est clos la veille
	w3 := testutil.DoRequest(env.Router, "POST", "/api/v1/entites/ent-001/affecter-chef", map[string]interface{}{
		"user_id":                   "user-chef-2",
		"date_debut":                "2025-06-01T00:00:00Z",
		"terminer_mandat_precedent": true,
	}, token)
	if w3.Code != http.StatusCreated {
		t.Fatalf("Expected 201 with relève, got %d: %s", w3.Code, w3.Body.String())
	}

	var ancien entity.EntiteChefHistory
	if err := env.DB.Where("entite_id = ? AND user_id = ?", "ent-001", "user-chef-1").First(&ancien).Error; err != nil {
		t.Fatalf("Failed to reload mandat: %v", err)
	}
	if ancien.DateFin == nil {
		t.Fatal("Expected previous mandat to be closed")
	}
	if got := ancien.DateFin.Format("2006-01-02"); got != "2025-05-31" {
		t.Errorf("Expected date_fin 2025-05-31, got %s", got)
	}

	// le chef actif est le second
	w4 := testutil.DoRequest(env.Router, "GET", "/api/v1/entites/ent-001/chef", nil, token)
	data := testutil.ParseResponse(w4)["data"].(map[string]interface{})
	if data["user_id"] != "user-chef-2" {
		t.Errorf("Expected user-chef-2 as chef actif, got %v", data["user_id"])
	}

	// l'historique garde les deux mandats
	w5 := testutil.DoRequest(env.Router, "GET", "/api/v1/entites/ent-001/chef/historique", nil, token)
	items := testutil.ParseResponse(w5)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("Expected 2 mandats, got %d", len(items))
	}
}

func TestEntiteTerminerMandatChefSansMandat(t *testing.T) {
	env := setupEntiteTest(t)
	token := testutil.DefaultTestToken()
	seedTypeEntite(t, env.DB, "te-001", "Direction")
	seedEntite(t, env.DB, "ent-001", "Direction Générale", "te-001", nil)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/entites/ent-001/terminer-mandat-chef", nil, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 without active mandat, got %d: %s", w.Code, w.Body.String())
	}
}

func TestEntiteAffectationUtilisateur(t *testing.T) {
	env := setupEntiteTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "user-001", "Agent", "agent@test.local")
	seedTypeEntite(t, env.DB, "te-001", "Direction")
	seedEntite(t, env.DB, "ent-001", "Direction Générale", "te-001", nil)
	seedEntite(t, env.DB, "ent-002", "Direction Technique", "te-001", nil)
	seedPoste(t, env.DB, "poste-001", "Chargé d'études")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/entites/ent-001/affecter-utilisateur", map[string]interface{}{
		"user_id":  "user-001",
		"poste_id": "poste-001",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// une seule affectation active par utilisateur
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/entites/ent-002/affecter-utilisateur", map[string]interface{}{
		"user_id":  "user-001",
		"poste_id": "poste-001",
	}, token)
	if w2.Code != http.StatusConflict {
		t.Fatalf("Expected 409 for second active affectation, got %d: %s", w2.Code, w2.Body.String())
	}

	// mutation avec clôture de la précédente
	w3 := testutil.DoRequest(env.Router, "POST", "/api/v1/entites/ent-002/affecter-utilisateur", map[string]interface{}{
		"user_id":                         "user-001",
		"poste_id":                        "poste-001",
		"terminer_affectation_precedente": true,
	}, token)
	if w3.Code != http.StatusCreated {
		t.Fatalf("Expected 201 for mutation, got %d: %s", w3.Code, w3.Body.String())
	}

	// clôturer depuis la mauvaise entité échoue
	w4 := testutil.DoRequest(env.Router, "POST", "/api/v1/entites/ent-001/terminer-affectation", map[string]interface{}{
		"user_id": "user-001",
	}, token)
	if w4.Code != http.StatusConflict {
		t.Fatalf("Expected 409 for wrong entite, got %d: %s", w4.Code, w4.Body.String())
	}

	w5 := testutil.DoRequest(env.Router, "POST", "/api/v1/entites/ent-002/terminer-affectation", map[string]interface{}{
		"user_id": "user-001",
	}, token)
	if w5.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w5.Code, w5.Body.String())
	}
}

func TestEntiteHierarchie(t *testing.T) {
	env := setupEntiteTest(t)
	token := testutil.DefaultTestToken()
	seedTypeEntite(t, env.DB, "te-001", "Direction")
	seedEntite(t, env.DB, "ent-racine", "Direction Générale", "te-001", nil)
	racine := "ent-racine"
	seedEntite(t, env.DB, "ent-fille", "Service Courrier", "te-001", &racine)
	fille := "ent-fille"
	seedEntite(t, env.DB, "ent-petite-fille", "Bureau Archives", "te-001", &fille)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/entites/ent-petite-fille/hierarchie", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	ancetres := data["ancetres"].([]interface{})
	if len(ancetres) != 2 {
		t.Fatalf("Expected 2 ancestors, got %d", len(ancetres))
	}
	premier := ancetres[0].(map[string]interface{})
	if premier["id"] != "ent-racine" {
		t.Errorf("Expected root first, got %v", premier["id"])
	}
}
