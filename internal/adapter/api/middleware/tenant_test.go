package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/user/spa-platform/internal/domain"
	"github.com/user/spa-platform/internal/domain/mocks"
	"github.com/user/spa-platform/internal/usecase"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func captureIdentity(identity *domain.TenantIdentity, seen *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := TenantFromContext(r.Context()); ok {
			*identity = id
			*seen = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

func tenantCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == TenantCookieName {
			return c
		}
	}
	return nil
}

func TestTenant_ManagedSubdomain(t *testing.T) {
	resolver := usecase.NewTenantResolver("platform.com")
	var identity domain.TenantIdentity
	var seen bool
	handler := Tenant(resolver, nil, testLogger(), nil, TenantOptions{})(captureIdentity(&identity, &seen))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Host = "sparenaissance.platform.com"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !seen {
		t.Fatal("identity not injected into context")
	}
	if identity.Slug != "sparenaissance" || identity.Classification != domain.ManagedSubdomain {
		t.Errorf("unexpected identity: %+v", identity)
	}

	cookie := tenantCookie(rec)
	if cookie == nil {
		t.Fatal("tenant cookie not set")
	}
	if cookie.Value != "sparenaissance" {
		t.Errorf("cookie value = %q, want sparenaissance", cookie.Value)
	}
	if cookie.Path != "/" {
		t.Errorf("cookie path = %q, want /", cookie.Path)
	}
	if cookie.MaxAge != tenantCookieMaxAge {
		t.Errorf("cookie max-age = %d, want %d", cookie.MaxAge, tenantCookieMaxAge)
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie samesite = %v, want lax", cookie.SameSite)
	}
	if cookie.HttpOnly {
		t.Error("tenant cookie must stay readable by client script")
	}
	if cookie.Secure {
		t.Error("cookie must not be secure outside production")
	}
}

func TestTenant_SecureCookieInProduction(t *testing.T) {
	resolver := usecase.NewTenantResolver("platform.com")
	var identity domain.TenantIdentity
	var seen bool
	handler := Tenant(resolver, nil, testLogger(), nil, TenantOptions{SecureCookie: true})(captureIdentity(&identity, &seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "spa1.platform.com"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	cookie := tenantCookie(rec)
	if cookie == nil {
		t.Fatal("tenant cookie not set")
	}
	if !cookie.Secure {
		t.Error("production cookie must be secure")
	}
}

func TestTenant_PlatformRootGetsNoCookie(t *testing.T) {
	resolver := usecase.NewTenantResolver("platform.com")
	var identity domain.TenantIdentity
	var seen bool
	handler := Tenant(resolver, nil, testLogger(), nil, TenantOptions{})(captureIdentity(&identity, &seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "www.platform.com"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !seen {
		t.Fatal("identity not injected into context")
	}
	if identity.Classification != domain.PlatformRoot {
		t.Errorf("classification = %v, want platform root", identity.Classification)
	}
	if tenantCookie(rec) != nil {
		t.Error("platform root must not receive a tenant cookie")
	}
}

func TestTenant_CustomDomainDirectoryLookup(t *testing.T) {
	resolver := usecase.NewTenantResolver("platform.com")
	directory := &mocks.MockTenantDirectory{Hosts: map[string]string{"myspa.example": "sparenaissance"}}
	var identity domain.TenantIdentity
	var seen bool
	handler := Tenant(resolver, directory, testLogger(), nil, TenantOptions{})(captureIdentity(&identity, &seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "myspa.example"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if identity.Slug != "sparenaissance" || identity.Classification != domain.CustomDomain {
		t.Errorf("unexpected identity: %+v", identity)
	}
	if cookie := tenantCookie(rec); cookie == nil || cookie.Value != "sparenaissance" {
		t.Errorf("cookie should carry the directory slug, got %+v", cookie)
	}
}

func TestTenant_CustomDomainWithoutMatchKeepsRawHost(t *testing.T) {
	resolver := usecase.NewTenantResolver("platform.com")
	directory := &mocks.MockTenantDirectory{Hosts: map[string]string{}}
	var identity domain.TenantIdentity
	var seen bool
	handler := Tenant(resolver, directory, testLogger(), nil, TenantOptions{})(captureIdentity(&identity, &seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "unknown.example"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if identity.Slug != "unknown.example" || identity.Classification != domain.CustomDomain {
		t.Errorf("unexpected identity: %+v", identity)
	}
}

func TestTenant_DirectoryErrorDegradesNotFails(t *testing.T) {
	resolver := usecase.NewTenantResolver("platform.com")
	directory := &mocks.MockTenantDirectory{Err: errors.New("db down")}
	var identity domain.TenantIdentity
	var seen bool
	handler := Tenant(resolver, directory, testLogger(), nil, TenantOptions{})(captureIdentity(&identity, &seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "myspa.example"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("directory failure must never abort the request, got %d", rec.Code)
	}
	if !seen {
		t.Error("identity should still be injected on directory failure")
	}
}

func TestTenant_BypassPrefixSkipsResolution(t *testing.T) {
	resolver := usecase.NewTenantResolver("platform.com")
	directory := &mocks.MockTenantDirectory{Hosts: map[string]string{}}
	var identity domain.TenantIdentity
	var seen bool
	handler := Tenant(resolver, directory, testLogger(), nil, TenantOptions{
		BypassPrefixes: []string{"/static/", "/healthz"},
	})(captureIdentity(&identity, &seen))

	req := httptest.NewRequest(http.MethodGet, "/static/app.css", nil)
	req.Host = "spa1.platform.com"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen {
		t.Error("bypassed route must not carry a tenant identity")
	}
	if tenantCookie(rec) != nil {
		t.Error("bypassed route must not set the tenant cookie")
	}
	if len(directory.Lookups) != 0 {
		t.Error("bypassed route must not hit the directory")
	}
}

func TestTenant_OverrideHeader(t *testing.T) {
	resolver := usecase.NewTenantResolver("platform.com")
	var identity domain.TenantIdentity
	var seen bool
	handler := Tenant(resolver, nil, testLogger(), nil, TenantOptions{})(captureIdentity(&identity, &seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "localhost:3000"
	req.Header.Set(OverrideHeader, "spa1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if identity.Slug != "spa1" || identity.Classification != domain.ManagedSubdomain {
		t.Errorf("override not honored: %+v", identity)
	}
}

func TestRequireTenant(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guarded := RequireTenant(testLogger())(next)

	t.Run("rejects without identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("rejects platform root", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
		req = req.WithContext(ContextWithTenant(req.Context(), domain.TenantIdentity{Classification: domain.PlatformRoot}))
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("passes tenant-scoped requests", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
		req = req.WithContext(ContextWithTenant(req.Context(), domain.TenantIdentity{
			Slug: "spa1", OriginHost: "spa1.platform.com", Classification: domain.ManagedSubdomain,
		}))
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}
