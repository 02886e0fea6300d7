package handler

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/testutil"
)

func setupAuditTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	svc := newTestServices(t, db)
	h := NewAuditHandler(svc.Audit)

	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/audit", h.List)
	api.GET("/audit/stats", h.Stats)
	api.GET("/audit/export", h.Export)
	api.GET("/audit/:id", h.Get)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func seedAuditLog(t *testing.T, db *gorm.DB, id, action, table, recordID string, createdAt time.Time) {
	t.Helper()
	userID := "test-user-001"
	log := &entity.AuditLog{
		ID:        id,
		UserID:    &userID,
		Action:    action,
		Table:     table,
		RecordID:  recordID,
		Reason:    "nettoyage",
		IPAddress: "127.0.0.1",
		Method:    "DELETE",
		URL:       "/api/v1/" + table + "/" + recordID,
		CreatedAt: createdAt,
	}
	if err := db.Create(log).Error; err != nil {
		t.Fatalf("Failed to seed audit log: %v", err)
	}
}

func TestAuditListEtFiltres(t *testing.T) {
	env := setupAuditTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "test-user-001", "Admin", "admin@test.local")
	now := time.Now()
	seedAuditLog(t, env.DB, "audit-001", entity.AuditActionDelete, "projets", "prj-001", now.Add(-2*time.Hour))
	seedAuditLog(t, env.DB, "audit-002", entity.AuditActionDelete, "taches", "tch-001", now.Add(-time.Hour))
	seedAuditLog(t, env.DB, "audit-003", entity.AuditActionStatusChange, "projets", "prj-001", now)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/audit", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	if len(items) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(items))
	}
	// tri anté-chronologique
	premier := items[0].(map[string]interface{})
	if premier["id"] != "audit-003" {
		t.Errorf("Expected audit-003 first, got %v", premier["id"])
	}

	w2 := testutil.DoRequest(env.Router, "GET", "/api/v1/audit?action=delete&table_name=projets", nil, token)
	items2 := testutil.ParseResponse(w2)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items2) != 1 {
		t.Fatalf("Expected 1 filtered entry, got %d", len(items2))
	}
}

func TestAuditStats(t *testing.T) {
	env := setupAuditTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "test-user-001", "Admin", "admin@test.local")
	now := time.Now()
	seedAuditLog(t, env.DB, "audit-001", entity.AuditActionDelete, "projets", "prj-001", now)
	seedAuditLog(t, env.DB, "audit-002", entity.AuditActionDelete, "taches", "tch-001", now)
	seedAuditLog(t, env.DB, "audit-003", entity.AuditActionUpload, "piece_jointe_projets", "pj-001", now)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/audit/stats", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["total"].(float64) != 3 {
		t.Errorf("Expected total 3, got %v", data["total"])
	}
	parAction := data["par_action"].(map[string]interface{})
	if parAction["delete"].(float64) != 2 {
		t.Errorf("Expected 2 deletes, got %v", parAction["delete"])
	}
}

func TestAuditExport(t *testing.T) {
	env := setupAuditTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "test-user-001", "Admin", "admin@test.local")
	seedAuditLog(t, env.DB, "audit-001", entity.AuditActionDelete, "projets", "prj-001", time.Now())

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/audit/export", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("Unexpected content type %s", ct)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), ".xlsx") {
		t.Errorf("Expected xlsx attachment, got %s", w.Header().Get("Content-Disposition"))
	}
	if w.Body.Len() == 0 {
		t.Error("Expected non-empty workbook")
	}
}

func TestAuditGet(t *testing.T) {
	env := setupAuditTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "test-user-001", "Admin", "admin@test.local")
	seedAuditLog(t, env.DB, "audit-001", entity.AuditActionDelete, "projets", "prj-001", time.Now())

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/audit/audit-001", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["record_id"] != "prj-001" {
		t.Errorf("Expected prj-001, got %v", data["record_id"])
	}

	w2 := testutil.DoRequest(env.Router, "GET", "/api/v1/audit/inconnu", nil, token)
	if w2.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d: %s", w2.Code, w2.Body.String())
	}
}
