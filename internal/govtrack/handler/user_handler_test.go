package handler

import (
	"net/http"
	"testing"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/testutil"
)

func setupUserTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	svc := newTestServices(t, db)
	h := NewUserHandler(svc.User)

	api := testutil.AuthGroup(router, "/api/v1")
	api.POST("/users", h.Create)
	api.GET("/users", h.List)
	api.GET("/users/:id", h.Get)
	api.PUT("/users/:id", h.Update)
	api.DELETE("/users/:id", h.Delete)
	api.GET("/users/:id/permissions", h.Permissions)
	api.POST("/users/:id/roles/:roleId", h.AssignRole)
	api.DELETE("/users/:id/roles/:roleId", h.RemoveRole)
	api.POST("/roles", h.CreateRole)
	api.DELETE("/roles/:id", h.DeleteRole)
	api.GET("/roles", h.ListRoles)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestUserCreateEmailDuplique(t *testing.T) {
	env := setupUserTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "user-001", "Existant", "pris@test.local")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/users", map[string]interface{}{
		"matricule": "MAT-100",
		"nom":       "Diallo",
		"prenom":    "Aïssata",
		"email":     "pris@test.local",
		"password":  "motdepasse",
	}, token)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	fields := data["errors"].(map[string]interface{})
	if fields["email"] == nil {
		t.Errorf("Expected email field error, got %v", fields)
	}
}

func TestUserCreateMotDePasseCourt(t *testing.T) {
	env := setupUserTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/users", map[string]interface{}{
		"matricule": "MAT-100",
		"nom":       "Diallo",
		"prenom":    "Aïssata",
		"email":     "aissata@test.local",
		"password":  "court",
	}, token)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	fields := data["errors"].(map[string]interface{})
	if fields["password"] == nil {
		t.Errorf("Expected password field error, got %v", fields)
	}
}

func TestUserAssignRole(t *testing.T) {
	env := setupUserTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "user-001", "Agent", "agent@test.local")
	testutil.SeedTestRole(t, env.DB, "role-001", "chef_projet", "Chef de projet", false)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/users/user-001/roles/role-001", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// attribution déjà faite
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/users/user-001/roles/role-001", nil, token)
	if w2.Code != http.StatusConflict {
		t.Fatalf("Expected 409 for duplicate, got %d: %s", w2.Code, w2.Body.String())
	}

	w3 := testutil.DoRequest(env.Router, "DELETE", "/api/v1/users/user-001/roles/role-001", nil, token)
	if w3.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w3.Code, w3.Body.String())
	}

	// retrait d'un rôle non attribué
	w4 := testutil.DoRequest(env.Router, "DELETE", "/api/v1/users/user-001/roles/role-001", nil, token)
	if w4.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", w4.Code, w4.Body.String())
	}
}

func TestRoleSystemeNonSupprimable(t *testing.T) {
	env := setupUserTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestRole(t, env.DB, "role-admin", "admin", "Administrateur", true)

	w := testutil.DoRequest(env.Router, "DELETE", "/api/v1/roles/role-admin", nil, token)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for system role, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRoleCodeDuplique(t *testing.T) {
	env := setupUserTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestRole(t, env.DB, "role-001", "chef_projet", "Chef de projet", false)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/roles", map[string]interface{}{
		"code": "chef_projet",
		"nom":  "Chef de projet bis",
	}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUserPermissionsAgregees(t *testing.T) {
	env := setupUserTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "user-001", "Agent", "agent@test.local")
	testutil.SeedTestRole(t, env.DB, "role-001", "chef_projet", "Chef de projet", false)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/users/user-001/roles/role-001", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w2 := testutil.DoRequest(env.Router, "GET", "/api/v1/users/user-001/permissions", nil, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
}
