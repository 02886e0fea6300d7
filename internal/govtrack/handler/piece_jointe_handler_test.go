package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/testutil"
)

func setupPieceJointeTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	svc := newTestServices(t, db)
	h := NewPieceJointeHandler(svc.PieceJointe)
	th := NewTacheHandler(svc.Tache)

	api := testutil.AuthGroup(router, "/api/v1")
	api.POST("/projets/:id/pieces-jointes", h.UploadForProjet)
	api.GET("/projets/:id/pieces-jointes", h.ListForProjet)
	api.GET("/pieces-jointes/projets/:id/download", h.DownloadForProjet)
	api.DELETE("/pieces-jointes/projets/:id", h.DeleteForProjet)
	api.POST("/taches/:id/pieces-jointes", h.UploadForTache)
	api.DELETE("/pieces-jointes/taches/:id", h.DeleteForTache)
	api.POST("/taches/:id/changer-statut", th.ChangerStatut)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

// doUpload envoie un fichier en multipart avec ses métadonnées
func doUpload(r *gin.Engine, path, filename, contenu string, fields map[string]string, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("fichier", filename)
	part.Write([]byte(contenu))
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedPieceJointeFixtures(t *testing.T, env *testutil.TestEnv, statut string) {
	t.Helper()
	testutil.SeedTestUser(t, env.DB, "test-user-001", "Admin", "admin@test.local")
	testutil.SeedTestTypeProjet(t, env.DB, "tp-001", "Programme", nil)
	testutil.SeedTestProjet(t, env.DB, "prj-001", "tp-001", "test-user-001", statut)
}

func TestPieceJointeUploadDownload(t *testing.T) {
	env := setupPieceJointeTest(t)
	token := testutil.DefaultTestToken()
	seedPieceJointeFixtures(t, env, entity.StatutEnCours)

	w := doUpload(env.Router, "/api/v1/projets/prj-001/pieces-jointes", "rapport.pdf", "contenu du rapport", map[string]string{
		"type_document":    entity.TypeDocumentRapport,
		"est_justificatif": "false",
		"description":      "rapport intermédiaire",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	id := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	w2 := testutil.DoRequest(env.Router, "GET", "/api/v1/pieces-jointes/projets/"+id+"/download", nil, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
	if w2.Body.String() != "contenu du rapport" {
		t.Errorf("Expected original content, got %q", w2.Body.String())
	}
}

func TestPieceJointeTypeDocumentInconnu(t *testing.T) {
	env := setupPieceJointeTest(t)
	token := testutil.DefaultTestToken()
	seedPieceJointeFixtures(t, env, entity.StatutEnCours)

	w := doUpload(env.Router, "/api/v1/projets/prj-001/pieces-jointes", "note.txt", "note", map[string]string{
		"type_document": "memo",
	}, token)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPieceJointeDernierJustificatifIntouchable(t *testing.T) {
	env := setupPieceJointeTest(t)
	token := testutil.DefaultTestToken()
	seedPieceJointeFixtures(t, env, entity.StatutDemandeDeCloture)

	w := doUpload(env.Router, "/api/v1/projets/prj-001/pieces-jointes", "justif.pdf", "pièce justificative", map[string]string{
		"type_document":    entity.TypeDocumentJustificatif,
		"est_justificatif": "true",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	id := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	w2 := testutil.DoRequest(env.Router, "DELETE", "/api/v1/pieces-jointes/projets/"+id, nil, token)
	if w2.Code != http.StatusConflict {
		t.Fatalf("Expected 409 for last justificatif, got %d: %s", w2.Code, w2.Body.String())
	}

	// un second justificatif débloque la suppression du premier
	w3 := doUpload(env.Router, "/api/v1/projets/prj-001/pieces-jointes", "justif2.pdf", "seconde pièce", map[string]string{
		"type_document":    entity.TypeDocumentJustificatif,
		"est_justificatif": "true",
	}, token)
	if w3.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w3.Code, w3.Body.String())
	}

	w4 := testutil.DoRequest(env.Router, "DELETE", "/api/v1/pieces-jointes/projets/"+id, nil, token)
	if w4.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w4.Code, w4.Body.String())
	}
}

func TestPieceJointeCiteeParHistoriqueIntouchable(t *testing.T) {
	env := setupPieceJointeTest(t)
	token := testutil.DefaultTestToken()
	seedPieceJointeFixtures(t, env, entity.StatutEnCours)
	testutil.SeedTestTache(t, env.DB, "tch-001", "prj-001", nil, entity.StatutEnCours, 40)

	w := doUpload(env.Router, "/api/v1/taches/tch-001/pieces-jointes", "justif.pdf", "pièce justificative", map[string]string{
		"type_document":    entity.TypeDocumentJustificatif,
		"est_justificatif": "true",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	citeeID := data["id"].(string)
	citeePath := data["fichier_path"].(string)

	// la demande de clôture cite le justificatif dans l'historique
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/taches/tch-001/changer-statut", map[string]interface{}{
		"nouveau_statut":    entity.StatutDemandeDeCloture,
		"justificatif_path": citeePath,
	}, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}

	w3 := doUpload(env.Router, "/api/v1/taches/tch-001/pieces-jointes", "justif2.pdf", "seconde pièce", map[string]string{
		"type_document":    entity.TypeDocumentJustificatif,
		"est_justificatif": "true",
	}, token)
	if w3.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w3.Code, w3.Body.String())
	}
	libreID := testutil.ParseResponse(w3)["data"].(map[string]interface{})["id"].(string)

	// la pièce citée reste intouchable même avec un autre justificatif présent
	w4 := testutil.DoRequest(env.Router, "DELETE", "/api/v1/pieces-jointes/taches/"+citeeID, nil, token)
	if w4.Code != http.StatusConflict {
		t.Fatalf("Expected 409 for justificatif cited by history, got %d: %s", w4.Code, w4.Body.String())
	}

	// la pièce non citée se supprime normalement
	w5 := testutil.DoRequest(env.Router, "DELETE", "/api/v1/pieces-jointes/taches/"+libreID, nil, token)
	if w5.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w5.Code, w5.Body.String())
	}
}

func TestPieceJointeListeFiltreJustificatifs(t *testing.T) {
	env := setupPieceJointeTest(t)
	token := testutil.DefaultTestToken()
	seedPieceJointeFixtures(t, env, entity.StatutEnCours)

	doUpload(env.Router, "/api/v1/projets/prj-001/pieces-jointes", "justif.pdf", "pièce", map[string]string{
		"type_document":    entity.TypeDocumentJustificatif,
		"est_justificatif": "true",
	}, token)
	doUpload(env.Router, "/api/v1/projets/prj-001/pieces-jointes", "rapport.pdf", "rapport", map[string]string{
		"type_document": entity.TypeDocumentRapport,
	}, token)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/projets/prj-001/pieces-jointes?justificatifs=true", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	items := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("Expected 1 justificatif, got %d", len(items))
	}
}
