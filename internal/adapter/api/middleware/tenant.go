package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/user/spa-platform/internal/adapter/metrics"
	"github.com/user/spa-platform/internal/domain"
	"github.com/user/spa-platform/internal/usecase"
)

// TenantCookieName is the client-visible tenant marker. It is informational
// only: readable by script, trivially forged, and never an authorization
// boundary. The authoritative tenant check is the per-request resolution
// below.
const TenantCookieName = "spa_tenant"

// OverrideHeader lets development and test clients name a tenant when the
// host itself carries none.
const OverrideHeader = "X-Tenant-Override"

const tenantCookieMaxAge = 365 * 24 * 60 * 60 // one year

type contextKey int

const tenantContextKey contextKey = iota

// TenantFromContext reads the identity injected by Tenant.
func TenantFromContext(ctx context.Context) (domain.TenantIdentity, bool) {
	identity, ok := ctx.Value(tenantContextKey).(domain.TenantIdentity)
	return identity, ok
}

// ContextWithTenant attaches an identity to a context. Exposed for handler
// tests.
func ContextWithTenant(ctx context.Context, identity domain.TenantIdentity) context.Context {
	return context.WithValue(ctx, tenantContextKey, identity)
}

// TenantOptions configures the propagator middleware.
type TenantOptions struct {
	// SecureCookie marks the tenant cookie Secure (production).
	SecureCookie bool
	// BypassPrefixes name path prefixes that need no tenant scoping
	// (static assets, platform-level API prefixes); both resolution and the
	// cookie are skipped for them.
	BypassPrefixes []string
}

// Tenant resolves the request host to a tenant identity, injects it into
// the request context, and refreshes the non-authoritative tenant cookie.
// Resolution ambiguity never aborts a request: it degrades to platform
// scope and tenant-scoped handlers reject independently.
func Tenant(
	resolver *usecase.TenantResolver,
	directory domain.TenantDirectory,
	logger *slog.Logger,
	m *metrics.SyncMetrics,
	opts TenantOptions,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range opts.BypassPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			identity := resolver.Resolve(r.Host, r.Header.Get(OverrideHeader))

			// Custom domains carry the raw host as slug until the tenant
			// directory maps them. No match keeps the raw host; a lookup
			// error degrades rather than failing the request.
			if identity.Classification == domain.CustomDomain && directory != nil {
				slug, err := directory.LookupHost(r.Context(), identity.OriginHost)
				switch {
				case err == nil:
					identity.Slug = slug
				case errors.Is(err, domain.ErrHostNotFound):
					// keep raw host
				default:
					logger.Error("tenant directory lookup failed",
						"host", identity.OriginHost, "error", err)
				}
			}

			if m != nil {
				m.TenantResolutions.WithLabelValues(identity.Classification.String()).Inc()
			}

			if identity.IsTenantScoped() {
				http.SetCookie(w, &http.Cookie{
					Name:     TenantCookieName,
					Value:    identity.Slug,
					Path:     "/",
					MaxAge:   tenantCookieMaxAge,
					SameSite: http.SameSiteLaxMode,
					Secure:   opts.SecureCookie,
					HttpOnly: false, // client script reads it for display only
				})
			}

			ctx := ContextWithTenant(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTenant rejects requests that reached a tenant-scoped route without
// a tenant identity (platform root, unresolved custom domain).
func RequireTenant(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := TenantFromContext(r.Context())
			if !ok || !identity.IsTenantScoped() {
				logger.Warn("tenant-scoped route hit without tenant", "host", r.Host, "path", r.URL.Path)
				http.Error(w, "tenant not found", http.StatusNotFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
