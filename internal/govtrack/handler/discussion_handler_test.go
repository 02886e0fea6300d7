package handler

import (
	"net/http"
	"testing"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/testutil"
)

func setupDiscussionTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	svc := newTestServices(t, db)
	h := NewDiscussionHandler(svc.Discussion)

	api := testutil.AuthGroup(router, "/api/v1")
	api.POST("/projets/:id/discussions", h.CreateForProjet)
	api.GET("/projets/:id/discussions", h.ListForProjet)
	api.PUT("/discussions/projets/:id", h.UpdateForProjet)
	api.DELETE("/discussions/projets/:id", h.DeleteForProjet)
	api.POST("/taches/:id/discussions", h.CreateForTache)
	api.GET("/taches/:id/discussions", h.ListForTache)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func seedDiscussionFixtures(t *testing.T, env *testutil.TestEnv) {
	t.Helper()
	testutil.SeedTestUser(t, env.DB, "test-user-001", "Admin", "admin@test.local")
	testutil.SeedTestTypeProjet(t, env.DB, "tp-001", "Programme", nil)
	testutil.SeedTestProjet(t, env.DB, "prj-001", "tp-001", "test-user-001", entity.StatutEnCours)
}

func TestDiscussionUnSeulNiveau(t *testing.T) {
	env := setupDiscussionTest(t)
	token := testutil.DefaultTestToken()
	seedDiscussionFixtures(t, env)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/projets/prj-001/discussions",
		map[string]interface{}{"message": "Quel est l'état d'avancement ?"}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	racineID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	// réponse au commentaire racine
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/projets/prj-001/discussions",
		map[string]interface{}{"message": "Le rapport est en relecture.", "parent_id": racineID}, token)
	if w2.Code != http.StatusCreated {
		t.Fatalf("Expected 201 for reply, got %d: %s", w2.Code, w2.Body.String())
	}
	reponseID := testutil.ParseResponse(w2)["data"].(map[string]interface{})["id"].(string)

	// répondre à une réponse est refusé
	w3 := testutil.DoRequest(env.Router, "POST", "/api/v1/projets/prj-001/discussions",
		map[string]interface{}{"message": "Merci.", "parent_id": reponseID}, token)
	if w3.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422 for reply-to-reply, got %d: %s", w3.Code, w3.Body.String())
	}
}

func TestDiscussionSeulAuteurModifie(t *testing.T) {
	env := setupDiscussionTest(t)
	token := testutil.DefaultTestToken()
	seedDiscussionFixtures(t, env)
	testutil.SeedTestUser(t, env.DB, "user-autre", "Autre", "autre@test.local")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/projets/prj-001/discussions",
		map[string]interface{}{"message": "Commentaire initial"}, token)
	id := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	autreToken := testutil.GenerateTestToken("user-autre", "Autre", "autre@test.local",
		[]string{"admin"}, []string{"*"})
	w2 := testutil.DoRequest(env.Router, "PUT", "/api/v1/discussions/projets/"+id,
		map[string]interface{}{"message": "Commentaire détourné"}, autreToken)
	if w2.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for non-author, got %d: %s", w2.Code, w2.Body.String())
	}

	w3 := testutil.DoRequest(env.Router, "PUT", "/api/v1/discussions/projets/"+id,
		map[string]interface{}{"message": "Commentaire corrigé"}, token)
	if w3.Code != http.StatusOK {
		t.Fatalf("Expected 200 for author, got %d: %s", w3.Code, w3.Body.String())
	}
	data := testutil.ParseResponse(w3)["data"].(map[string]interface{})
	if data["message"] != "Commentaire corrigé" {
		t.Errorf("Expected updated message, got %v", data["message"])
	}
}

func TestDiscussionSuppressionAvecReponsesRefusee(t *testing.T) {
	env := setupDiscussionTest(t)
	token := testutil.DefaultTestToken()
	seedDiscussionFixtures(t, env)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/projets/prj-001/discussions",
		map[string]interface{}{"message": "Fil principal"}, token)
	racineID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/projets/prj-001/discussions",
		map[string]interface{}{"message": "Une réponse", "parent_id": racineID}, token)
	reponseID := testutil.ParseResponse(w2)["data"].(map[string]interface{})["id"].(string)

	w3 := testutil.DoRequest(env.Router, "DELETE", "/api/v1/discussions/projets/"+racineID, nil, token)
	if w3.Code != http.StatusConflict {
		t.Fatalf("Expected 409 with replies, got %d: %s", w3.Code, w3.Body.String())
	}

	// la réponse d'abord, puis la racine
	w4 := testutil.DoRequest(env.Router, "DELETE", "/api/v1/discussions/projets/"+reponseID, nil, token)
	if w4.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w4.Code, w4.Body.String())
	}
	w5 := testutil.DoRequest(env.Router, "DELETE", "/api/v1/discussions/projets/"+racineID, nil, token)
	if w5.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w5.Code, w5.Body.String())
	}
}

func TestDiscussionTache(t *testing.T) {
	env := setupDiscussionTest(t)
	token := testutil.DefaultTestToken()
	seedDiscussionFixtures(t, env)
	testutil.SeedTestTache(t, env.DB, "tch-001", "prj-001", nil, entity.StatutEnCours, 0)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/taches/tch-001/discussions",
		map[string]interface{}{"message": "Point bloquant sur les accès"}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w2 := testutil.DoRequest(env.Router, "GET", "/api/v1/taches/tch-001/discussions", nil, token)
	items := testutil.ParseResponse(w2)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("Expected 1 discussion, got %d", len(items))
	}
}
