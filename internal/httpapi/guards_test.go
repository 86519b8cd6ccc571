package httpapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"procmap.org/internal/auth"
)

func setGuardSecret(t *testing.T) {
	t.Helper()
	t.Setenv("PROCMAP_AUTH_SECRET", "guard-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)
}

func TestResolveRoutePicksMostSpecificEntry(t *testing.T) {
	meta, ok := resolveRoute(http.MethodDelete, "/v1/departments/dep-1")
	if !ok {
		t.Fatal("expected route match")
	}
	if len(meta.Roles) != 1 || meta.Roles[0] != "admin" {
		t.Fatalf("expected admin-only delete, got %+v", meta.Roles)
	}

	meta, ok = resolveRoute(http.MethodGet, "/v1/departments/dep-1")
	if !ok {
		t.Fatal("expected route match")
	}
	if len(meta.Roles) != 0 || meta.Public {
		t.Fatalf("expected authenticated-any read, got %+v", meta)
	}

	if _, ok := resolveRoute(http.MethodGet, "/v1/unknown"); ok {
		t.Fatal("expected no match for unknown path")
	}
}

func TestMatchPathSegments(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/v1/departments", "/v1/departments", true},
		{"/v1/departments/:id", "/v1/departments/dep-1", true},
		{"/v1/departments/:id", "/v1/departments/dep-1/status", false},
		{"/v1/departments/:id/status", "/v1/departments/dep-1/status", true},
		{"/v1/processes/:id/children", "/v1/processes/p1/children", true},
		{"/v1/processes/:id", "/v1/processes", false},
	}
	for _, tc := range cases {
		if got := matchPath(tc.pattern, tc.path); got != tc.want {
			t.Errorf("matchPath(%q, %q) = %v, want %v", tc.pattern, tc.path, got, tc.want)
		}
	}
}

func TestAccessGuardPublicRoute(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	if _, err := (AccessGuard{}).Check(r, RouteMeta{Public: true}); err != nil {
		t.Fatalf("public route should pass: %v", err)
	}
}

func TestAccessGuardMissingToken(t *testing.T) {
	setGuardSecret(t)
	r := httptest.NewRequest(http.MethodGet, "/v1/departments", nil)
	_, err := (AccessGuard{}).Check(r, RouteMeta{})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("err = %v, want ErrMissingCredentials", err)
	}
}

func TestAccessGuardAttachesIdentity(t *testing.T) {
	setGuardSecret(t)
	token, err := auth.GenerateToken(auth.Identity{ID: "user-1", Email: "admin@procmap.org", Role: "admin"}, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/v1/departments", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	req, err := (AccessGuard{}).Check(r, RouteMeta{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	identity, ok := auth.IdentityFromContext(req.Context())
	if !ok || identity.ID != "user-1" || identity.Role != "admin" {
		t.Fatalf("identity not attached: %+v", identity)
	}
}

func TestAccessGuardRejectsTamperedToken(t *testing.T) {
	setGuardSecret(t)
	r := httptest.NewRequest(http.MethodGet, "/v1/departments", nil)
	r.Header.Set("Authorization", "Bearer abc.def.ghi")
	_, err := (AccessGuard{}).Check(r, RouteMeta{})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRoleGuard(t *testing.T) {
	meta := RouteMeta{Roles: []string{"admin"}}

	r := httptest.NewRequest(http.MethodDelete, "/v1/departments/dep-1", nil)
	r = r.WithContext(auth.ContextWithIdentity(r.Context(), auth.Identity{ID: "u1", Role: "user"}))
	if _, err := (RoleGuard{}).Check(r, meta); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	r = httptest.NewRequest(http.MethodDelete, "/v1/departments/dep-1", nil)
	r = r.WithContext(auth.ContextWithIdentity(r.Context(), auth.Identity{ID: "u1", Role: "admin"}))
	if _, err := (RoleGuard{}).Check(r, meta); err != nil {
		t.Fatalf("admin should pass: %v", err)
	}

	// No role list: any authenticated caller passes.
	r = httptest.NewRequest(http.MethodGet, "/v1/departments", nil)
	if _, err := (RoleGuard{}).Check(r, RouteMeta{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGuardChainPreflightPasses(t *testing.T) {
	setGuardSecret(t)
	r := httptest.NewRequest(http.MethodOptions, "/v1/departments", nil)
	if _, err := (AccessGuard{}).Check(r, RouteMeta{}); err != nil {
		t.Fatalf("preflight should bypass access guard: %v", err)
	}
	if _, err := (RoleGuard{}).Check(r, RouteMeta{Roles: []string{"admin"}}); err != nil {
		t.Fatalf("preflight should bypass role guard: %v", err)
	}
}
