package handler

import (
	"net/http"
	"testing"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/testutil"
)

func setupAuthTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	svc := newTestServices(t, db)
	h := NewAuthHandler(svc.Auth)

	// routes publiques
	router.POST("/api/v1/auth/login", h.Login)
	router.POST("/api/v1/auth/refresh", h.RefreshToken)
	router.POST("/api/v1/auth/forgot-password", h.ForgotPassword)
	router.POST("/api/v1/auth/reset-password", h.ResetPassword)

	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/auth/me", h.Me)
	api.POST("/auth/logout", h.Logout)
	api.GET("/auth/activites", h.Activites)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestAuthLogin(t *testing.T) {
	env := setupAuthTest(t)
	testutil.SeedTestUser(t, env.DB, "user-001", "Agent", "agent@test.local")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/login", map[string]interface{}{
		"email":    "agent@test.local",
		"password": "motdepasse",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["access_token"] == nil || data["refresh_token"] == nil {
		t.Fatal("Expected token pair in response")
	}
	user := data["user"].(map[string]interface{})
	if user["email"] != "agent@test.local" {
		t.Errorf("Expected agent@test.local, got %v", user["email"])
	}
}

func TestAuthLoginEmailInsensibleALaCasse(t *testing.T) {
	env := setupAuthTest(t)
	testutil.SeedTestUser(t, env.DB, "user-001", "Agent", "agent@test.local")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/login", map[string]interface{}{
		"email":    "Agent@Test.Local",
		"password": "motdepasse",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for case-variant email, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthLoginMauvaisMotDePasse(t *testing.T) {
	env := setupAuthTest(t)
	testutil.SeedTestUser(t, env.DB, "user-001", "Agent", "agent@test.local")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/login", map[string]interface{}{
		"email":    "agent@test.local",
		"password": "mauvais-mot-de-passe",
	}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthRefreshEtLogout(t *testing.T) {
	env := setupAuthTest(t)
	testutil.SeedTestUser(t, env.DB, "user-001", "Agent", "agent@test.local")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/login", map[string]interface{}{
		"email":    "agent@test.local",
		"password": "motdepasse",
	}, "")
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	accessToken := data["access_token"].(string)
	refreshToken := data["refresh_token"].(string)

	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/refresh",
		map[string]interface{}{"refresh_token": refreshToken}, "")
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
	data2 := testutil.ParseResponse(w2)["data"].(map[string]interface{})
	newRefresh := data2["refresh_token"].(string)

	w3 := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/logout",
		map[string]interface{}{"refresh_token": newRefresh}, accessToken)
	if w3.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w3.Code, w3.Body.String())
	}

	// le jeton révoqué ne permet plus le rafraîchissement
	w4 := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/refresh",
		map[string]interface{}{"refresh_token": newRefresh}, "")
	if w4.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 after logout, got %d: %s", w4.Code, w4.Body.String())
	}
}

func TestAuthMe(t *testing.T) {
	env := setupAuthTest(t)
	testutil.SeedTestUser(t, env.DB, "test-user-001", "Admin", "admin@test.local")

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/auth/me", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["email"] != "admin@test.local" {
		t.Errorf("Expected admin@test.local, got %v", data["email"])
	}
}

func TestAuthActivitesAutreUtilisateurReserveAdmin(t *testing.T) {
	env := setupAuthTest(t)
	testutil.SeedTestUser(t, env.DB, "user-001", "Agent", "agent@test.local")
	testutil.SeedTestUser(t, env.DB, "user-002", "Autre agent", "autre@test.local")
	agentToken := testutil.GenerateTestToken("user-002", "Autre agent", "autre@test.local",
		[]string{"agent"}, []string{"*"})

	// un non-admin ne voit pas les connexions d'un autre utilisateur
	w := testutil.DoRequest(env.Router, "GET", "/api/v1/auth/activites?user_id=user-001", nil, agentToken)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for non-admin, got %d: %s", w.Code, w.Body.String())
	}

	// chacun consulte ses propres connexions
	w2 := testutil.DoRequest(env.Router, "GET", "/api/v1/auth/activites", nil, agentToken)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200 for self view, got %d: %s", w2.Code, w2.Body.String())
	}

	// l'admin consulte celles de n'importe qui
	w3 := testutil.DoRequest(env.Router, "GET", "/api/v1/auth/activites?user_id=user-001", nil, testutil.DefaultTestToken())
	if w3.Code != http.StatusOK {
		t.Fatalf("Expected 200 for admin, got %d: %s", w3.Code, w3.Body.String())
	}
}

func TestAuthResetPassword(t *testing.T) {
	env := setupAuthTest(t)
	testutil.SeedTestUser(t, env.DB, "user-001", "Agent", "agent@test.local")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/forgot-password",
		map[string]interface{}{"email": "agent@test.local"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	resetToken, _ := data["reset_token"].(string)
	if resetToken == "" {
		t.Fatal("Expected reset_token for existing account")
	}

	// email inconnu: même message, pas de jeton
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/forgot-password",
		map[string]interface{}{"email": "inconnu@test.local"}, "")
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200 for unknown email, got %d: %s", w2.Code, w2.Body.String())
	}
	if testutil.ParseResponse(w2)["data"].(map[string]interface{})["reset_token"] != nil {
		t.Error("Expected no reset_token for unknown email")
	}

	w3 := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/reset-password",
		map[string]interface{}{"token": resetToken, "new_password": "NouveauMotDePasse1"}, "")
	if w3.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w3.Code, w3.Body.String())
	}

	// connexion avec le nouveau mot de passe
	w4 := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/login", map[string]interface{}{
		"email":    "agent@test.local",
		"password": "NouveauMotDePasse1",
	}, "")
	if w4.Code != http.StatusOK {
		t.Fatalf("Expected 200 with new password, got %d: %s", w4.Code, w4.Body.String())
	}
}
