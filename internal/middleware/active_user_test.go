package middleware_test

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"cutting-report-backend/internal/middleware"
	"cutting-report-backend/internal/models"
	"cutting-report-backend/internal/services"
	"cutting-report-backend/internal/testutil"
)

func TestActiveUserPasses(t *testing.T) {
	env := testutil.NewApp(t, services.Policy{})
	user := testutil.SeedUser(t, env.DB, "operator1", models.RoleOperator)

	resp := env.DoRequest(http.MethodGet, "/api/v1/me", nil, testutil.TestToken(t, user))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := testutil.ParseResponse(t, resp)
	profile, ok := body["user"].(map[string]interface{})
	if !ok || profile["username"] != "operator1" {
		t.Errorf("profile = %v", body)
	}
}

func TestDeactivatedUserIsLoggedOut(t *testing.T) {
	env := testutil.NewApp(t, services.Policy{})
	admin := testutil.SeedUser(t, env.DB, "admin1", models.RoleAdmin)
	user := testutil.SeedUser(t, env.DB, "operator1", models.RoleOperator)
	token := testutil.TestToken(t, user)

	resp := env.DoRequest(http.MethodPatch, "/api/v1/admin/users/"+strconv.FormatUint(uint64(user.ID), 10)+"/active",
		map[string]any{"is_active": false}, testutil.TestToken(t, admin))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deactivate status = %d", resp.StatusCode)
	}

	resp = env.DoRequest(http.MethodGet, "/api/v1/reports", nil, token)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, middleware.InactivePath+"?error=") {
		t.Errorf("Location = %q", loc)
	}
	var cleared bool
	for _, c := range resp.Cookies() {
		if c.Name == middleware.TokenCookie && c.Value == "" {
			cleared = true
		}
	}
	if !cleared {
		t.Error("token cookie not cleared")
	}

	// reactivating the account does not bring the revoked token back
	if err := env.DB.Model(user).Update("is_active", true).Error; err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	resp = env.DoRequest(http.MethodGet, "/api/v1/me", nil, token)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("revoked token status = %d, want 401", resp.StatusCode)
	}

	resp = env.DoRequest(http.MethodGet, "/api/v1/me", nil, testutil.TestToken(t, user))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("fresh token status = %d, want 200", resp.StatusCode)
	}
}

func TestDeletedUserIsLoggedOut(t *testing.T) {
	env := testutil.NewApp(t, services.Policy{})
	user := testutil.SeedUser(t, env.DB, "operator1", models.RoleOperator)
	token := testutil.TestToken(t, user)
	if err := env.DB.Delete(&models.User{}, user.ID).Error; err != nil {
		t.Fatalf("delete: %v", err)
	}

	resp := env.DoRequest(http.MethodGet, "/api/v1/me", nil, token)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
}

func TestJWTProtected(t *testing.T) {
	env := testutil.NewApp(t, services.Policy{})
	user := testutil.SeedUser(t, env.DB, "operator1", models.RoleOperator)

	resp := env.DoRequest(http.MethodGet, "/api/v1/me", nil, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", resp.StatusCode)
	}

	resp = env.DoRequest(http.MethodGet, "/api/v1/me", nil, "not-a-jwt")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d, want 401", resp.StatusCode)
	}

	other, err := middleware.GenerateJWT("another-secret", time.Hour, user.ID, user.Role)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	resp = env.DoRequest(http.MethodGet, "/api/v1/me", nil, other)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("foreign token status = %d, want 401", resp.StatusCode)
	}
}

func TestRoleProtected(t *testing.T) {
	env := testutil.NewApp(t, services.Policy{})
	operator := testutil.SeedUser(t, env.DB, "operator1", models.RoleOperator)

	resp := env.DoRequest(http.MethodGet, "/api/v1/admin/users", nil, testutil.TestToken(t, operator))
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestDBRevoker(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	r := middleware.NewDBRevoker(db)

	if err := r.Revoke(ctx, "live", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	// revoking twice is harmless
	if err := r.Revoke(ctx, "live", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if err := r.Revoke(ctx, "stale", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	if ok, err := r.IsRevoked(ctx, "live"); err != nil || !ok {
		t.Errorf("live revoked = %v, %v", ok, err)
	}
	if ok, err := r.IsRevoked(ctx, "unknown"); err != nil || ok {
		t.Errorf("unknown revoked = %v, %v", ok, err)
	}

	n, err := r.Purge(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}
}
