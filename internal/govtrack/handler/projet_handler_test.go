package handler

import (
	"net/http"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/testutil"
)

func setupProjetTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	svc := newTestServices(t, db)
	h := NewProjetHandler(svc.Projet)
	th := NewTacheHandler(svc.Tache)

	api := testutil.AuthGroup(router, "/api/v1")
	api.POST("/projets", h.Create)
	api.GET("/projets", h.List)
	api.GET("/projets/tableau-bord", h.TableauBord)
	api.GET("/projets/favoris", h.Favoris)
	api.GET("/projets/:id", h.Get)
	api.PUT("/projets/:id", h.Update)
	api.DELETE("/projets/:id", h.Delete)
	api.POST("/projets/:id/changer-statut", h.ChangerStatut)
	api.GET("/projets/:id/historique-statuts", h.Historique)
	api.POST("/projets/:id/favori", h.AddFavori)
	api.DELETE("/projets/:id/favori", h.RemoveFavori)
	api.POST("/projets/:id/taches", th.Create)
	api.POST("/taches/:id/changer-statut", th.ChangerStatut)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func seedJustificatifProjet(t *testing.T, db *gorm.DB, projetID string) {
	t.Helper()
	piece := &entity.PieceJointeProjet{
		ID:              "pj-" + projetID,
		ProjetID:        projetID,
		UserID:          "test-user-001",
		FichierPath:     "projets/" + projetID + "/justif.pdf",
		NomOriginal:     "justif.pdf",
		Mimetype:        "application/pdf",
		Taille:          128,
		TypeDocument:    entity.TypeDocumentJustificatif,
		EstJustificatif: true,
		CreatedAt:       time.Now(),
	}
	if err := db.Create(piece).Error; err != nil {
		t.Fatalf("Failed to seed justificatif: %v", err)
	}
}

func TestProjetCreateAvecSLA(t *testing.T) {
	env := setupProjetTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "test-user-001", "Admin", "admin@test.local")
	duree := 30
	testutil.SeedTestTypeProjet(t, env.DB, "tp-001", "Programme", &duree)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/projets", map[string]interface{}{
		"titre":                     "Modernisation état civil",
		"type_projet_id":            "tp-001",
		"porteur_id":                "test-user-001",
		"donneur_ordre_id":          "test-user-001",
		"date_debut_previsionnelle": "2025-03-01T00:00:00Z",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	dateFin, _ := data["date_fin_previsionnelle"].(string)
	if len(dateFin) < 10 || dateFin[:10] != "2025-03-31" {
		t.Errorf("Expected date_fin_previsionnelle 2025-03-31, got %v", dateFin)
	}
}

func TestProjetCreateEcartSLASansJustification(t *testing.T) {
	env := setupProjetTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "test-user-001", "Admin", "admin@test.local")
	duree := 30
	testutil.SeedTestTypeProjet(t, env.DB, "tp-001", "Programme", &duree)

	body := map[string]interface{}{
		"titre":                     "Projet hors SLA",
		"type_projet_id":            "tp-001",
		"porteur_id":                "test-user-001",
		"donneur_ordre_id":          "test-user-001",
		"date_debut_previsionnelle": "2025-03-01T00:00:00Z",
		"date_fin_previsionnelle":   "2025-06-30T00:00:00Z",
	}

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/projets", body, token)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422 without justification, got %d: %s", w.Code, w.Body.String())
	}

	body["justification_modification_dates"] = "étude d'impact complémentaire demandée"
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/projets", body, token)
	if w2.Code != http.StatusCreated {
		t.Fatalf("Expected 201 with justification, got %d: %s", w2.Code, w2.Body.String())
	}
}

func TestProjetMachineEtats(t *testing.T) {
	env := setupProjetTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "test-user-001", "Admin", "admin@test.local")
	testutil.SeedTestTypeProjet(t, env.DB, "tp-001", "Programme", nil)
	testutil.SeedTestProjet(t, env.DB, "prj-001", "tp-001", "test-user-001", entity.StatutAFaire)

	// transition interdite depuis a_faire
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/projets/prj-001/changer-statut",
		map[string]interface{}{"nouveau_statut": entity.StatutTermine}, token)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422 for a_faire->termine, got %d: %s", w.Code, w.Body.String())
	}

	// a_faire -> en_cours fixe la date de début réelle
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/projets/prj-001/changer-statut",
		map[string]interface{}{"nouveau_statut": entity.StatutEnCours}, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200 for a_faire->en_cours, got %d: %s", w2.Code, w2.Body.String())
	}
	data := testutil.ParseResponse(w2)["data"].(map[string]interface{})
	if data["date_debut_reelle"] == nil {
		t.Error("Expected date_debut_reelle to be set on first en_cours")
	}

	// historique
	w3 := testutil.DoRequest(env.Router, "GET", "/api/v1/projets/prj-001/historique-statuts", nil, token)
	items := testutil.ParseResponse(w3)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("Expected 1 history row, got %d", len(items))
	}
}

func TestProjetPseudoTransitionCommentaire(t *testing.T) {
	env := setupProjetTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "test-user-001", "Admin", "admin@test.local")
	testutil.SeedTestTypeProjet(t, env.DB, "tp-001", "Programme", nil)
	testutil.SeedTestProjet(t, env.DB, "prj-001", "tp-001", "test-user-001", entity.StatutEnCours)

	// même statut sans commentaire
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/projets/prj-001/changer-statut",
		map[string]interface{}{"nouveau_statut": entity.StatutEnCours}, token)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422 without commentaire, got %d: %s", w.Code, w.Body.String())
	}

	// même statut avec commentaire
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/projets/prj-001/changer-statut",
		map[string]interface{}{"nouveau_statut": entity.StatutEnCours, "commentaire": "point d'étape hebdomadaire"}, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200 with commentaire, got %d: %s", w2.Code, w2.Body.String())
	}

	// le même commentaire une seconde fois est refusé
	w3 := testutil.DoRequest(env.Router, "POST", "/api/v1/projets/prj-001/changer-statut",
		map[string]interface{}{"nouveau_statut": entity.StatutEnCours, "commentaire": "point d'étape hebdomadaire"}, token)
	if w3.Code != http.StatusConflict {
		t.Fatalf("Expected 409 for duplicate commentaire, got %d: %s", w3.Code, w3.Body.String())
	}
}

func TestProjetDemandeClotureExigeJustificatif(t *testing.T) {
	env := setupProjetTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "test-user-001", "Admin", "admin@test.local")
	testutil.SeedTestTypeProjet(t, env.DB, "tp-just", "Marché public", nil)
	testutil.SeedTestProjet(t, env.DB, "prj-001", "tp-just", "test-user-001", entity.StatutEnCours)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/projets/prj-001/changer-statut",
		map[string]interface{}{"nouveau_statut": entity.StatutDemandeDeCloture}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 without justificatif, got %d: %s", w.Code, w.Body.String())
	}

	seedJustificatifProjet(t, env.DB, "prj-001")
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/projets/prj-001/changer-statut",
		map[string]interface{}{"nouveau_statut": entity.StatutDemandeDeCloture}, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200 with justificatif, got %d: %s", w2.Code, w2.Body.String())
	}
}

func TestProjetTransitionCiteJustificatif(t *testing.T) {
	env := setupProjetTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "test-user-001", "Admin", "admin@test.local")
	testutil.SeedTestTypeProjet(t, env.DB, "tp-001", "Programme", nil)
	testutil.SeedTestProjet(t, env.DB, "prj-001", "tp-001", "test-user-001", entity.StatutEnCours)
	seedJustificatifProjet(t, env.DB, "prj-001")

	// un chemin qui ne correspond à aucun justificatif du projet est refusé
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/projets/prj-001/changer-statut",
		map[string]interface{}{
			"nouveau_statut":    entity.StatutDemandeDeCloture,
			"justificatif_path": "projets/prj-001/inconnu.pdf",
		}, token)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422 for unknown justificatif_path, got %d: %s", w.Code, w.Body.String())
	}

	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/projets/prj-001/changer-statut",
		map[string]interface{}{
			"nouveau_statut":    entity.StatutDemandeDeCloture,
			"justificatif_path": "projets/prj-001/justif.pdf",
		}, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}

	// la ligne d'historique cite le justificatif
	var histo entity.ProjetHistoriqueStatut
	if err := env.DB.Where("projet_id = ?", "prj-001").Order("created_at DESC").First(&histo).Error; err != nil {
		t.Fatalf("Failed to load history row: %v", err)
	}
	if histo.JustificatifPath == nil || *histo.JustificatifPath != "projets/prj-001/justif.pdf" {
		t.Errorf("Expected justificatif_path on history row, got %v", histo.JustificatifPath)
	}
}

func TestProjetChangerStatutAuditeLaRequete(t *testing.T) {
	env := setupProjetTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "test-user-001", "Admin", "admin@test.local")
	testutil.SeedTestTypeProjet(t, env.DB, "tp-001", "Programme", nil)
	testutil.SeedTestProjet(t, env.DB, "prj-001", "tp-001", "test-user-001", entity.StatutAFaire)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/projets/prj-001/changer-statut",
		map[string]interface{}{"nouveau_statut": entity.StatutEnCours}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// l'écriture d'audit est asynchrone
	var log entity.AuditLog
	deadline := time.Now().Add(3 * time.Second)
	for {
		err := env.DB.Where("action = ? AND record_id = ?", entity.AuditActionStatusChange, "prj-001").
			First(&log).Error
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Audit row not written: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	if log.Method != "POST" {
		t.Errorf("Expected method POST on audit row, got %q", log.Method)
	}
	if log.IPAddress == "" {
		t.Error("Expected client IP on audit row")
	}
	if log.URL == "" {
		t.Error("Expected request URL on audit row")
	}
}

func TestProjetTermineBloqueParTachesOuvertes(t *testing.T) {
	env := setupProjetTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "test-user-001", "Admin", "admin@test.local")
	testutil.SeedTestTypeProjet(t, env.DB, "tp-001", "Programme", nil)
	testutil.SeedTestProjet(t, env.DB, "prj-001", "tp-001", "test-user-001", entity.StatutDemandeDeCloture)
	testutil.SeedTestTache(t, env.DB, "tch-001", "prj-001", nil, entity.StatutEnCours, 40)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/projets/prj-001/changer-statut",
		map[string]interface{}{"nouveau_statut": entity.StatutTermine}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 with open task, got %d: %s", w.Code, w.Body.String())
	}

	env.DB.Model(&entity.Tache{}).Where("id = ?", "tch-001").Update("statut", entity.StatutTermine)

	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/projets/prj-001/changer-statut",
		map[string]interface{}{"nouveau_statut": entity.StatutTermine}, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200 after task closed, got %d: %s", w2.Code, w2.Body.String())
	}
	data := testutil.ParseResponse(w2)["data"].(map[string]interface{})
	if data["niveau_execution"].(float64) != 100 {
		t.Errorf("Expected niveau_execution 100 on termine, got %v", data["niveau_execution"])
	}
	if data["date_fin_reelle"] == nil {
		t.Error("Expected date_fin_reelle to be set on termine")
	}
}

func TestProjetFavoris(t *testing.T) {
	env := setupProjetTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "test-user-001", "Admin", "admin@test.local")
	testutil.SeedTestTypeProjet(t, env.DB, "tp-001", "Programme", nil)
	testutil.SeedTestProjet(t, env.DB, "prj-001", "tp-001", "test-user-001", entity.StatutAFaire)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/projets/prj-001/favori", nil, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w2 := testutil.DoRequest(env.Router, "GET", "/api/v1/projets/favoris", nil, token)
	items := testutil.ParseResponse(w2)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("Expected 1 favori, got %d", len(items))
	}

	w3 := testutil.DoRequest(env.Router, "DELETE", "/api/v1/projets/prj-001/favori", nil, token)
	if w3.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w3.Code, w3.Body.String())
	}

	// retirer un favori absent est un conflit
	w4 := testutil.DoRequest(env.Router, "DELETE", "/api/v1/projets/prj-001/favori", nil, token)
	if w4.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", w4.Code, w4.Body.String())
	}
}

func TestProjetTableauBord(t *testing.T) {
	env := setupProjetTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "test-user-001", "Admin", "admin@test.local")
	testutil.SeedTestTypeProjet(t, env.DB, "tp-001", "Programme", nil)
	testutil.SeedTestProjet(t, env.DB, "prj-001", "tp-001", "test-user-001", entity.StatutAFaire)
	testutil.SeedTestProjet(t, env.DB, "prj-002", "tp-001", "test-user-001", entity.StatutEnCours)
	testutil.SeedTestProjet(t, env.DB, "prj-003", "tp-001", "test-user-001", entity.StatutEnCours)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/projets/tableau-bord", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["total"].(float64) != 3 {
		t.Errorf("Expected total 3, got %v", data["total"])
	}
	parStatut := data["par_statut"].(map[string]interface{})
	if parStatut[entity.StatutEnCours].(float64) != 2 {
		t.Errorf("Expected 2 en_cours, got %v", parStatut[entity.StatutEnCours])
	}
}

func TestProjetDeleteRefuseAvecTaches(t *testing.T) {
	env := setupProjetTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "test-user-001", "Admin", "admin@test.local")
	testutil.SeedTestTypeProjet(t, env.DB, "tp-001", "Programme", nil)
	testutil.SeedTestProjet(t, env.DB, "prj-001", "tp-001", "test-user-001", entity.StatutAFaire)
	testutil.SeedTestTache(t, env.DB, "tch-001", "prj-001", nil, entity.StatutAFaire, 0)

	w := testutil.DoRequest(env.Router, "DELETE", "/api/v1/projets/prj-001", nil, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", w.Code, w.Body.String())
	}
}
