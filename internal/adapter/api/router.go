package api

import (
	"log/slog"
	"net/http"

	"github.com/user/spa-platform/internal/adapter/api/handler"
	"github.com/user/spa-platform/internal/adapter/api/middleware"
	"github.com/user/spa-platform/internal/adapter/metrics"
	"github.com/user/spa-platform/internal/domain"
	"github.com/user/spa-platform/internal/pkg/config"
	"github.com/user/spa-platform/internal/usecase"
)

// NewRouter creates and configures the main HTTP router for the sync
// service. Every route below the tenant middleware sees a resolved
// identity; /healthz and the bypass prefixes skip resolution entirely.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	resolver *usecase.TenantResolver,
	directory domain.TenantDirectory,
	bus *usecase.BookingEventBus,
	validator domain.CredentialValidator,
	bookingRepo domain.BookingRepository,
	m *metrics.SyncMetrics,
) http.Handler {
	mux := http.NewServeMux()

	realtimeHandler := handler.NewRealtimeHandler(bus, validator, logger)
	bookingsHandler := handler.NewBookingsHandler(bookingRepo, validator, logger)

	requireTenant := middleware.RequireTenant(logger)
	connectLimiter := middleware.NewRateLimiter(cfg.ConnectRatePerMinute, cfg.ConnectRateBurst)

	// Each realtime connect pins a goroutine pair and a bus subscription,
	// so it gets the per-IP limiter; the plain fetch does not.
	mux.Handle("GET /realtime", requireTenant(connectLimiter.Middleware(realtimeHandler)))
	mux.Handle("GET /api/bookings", requireTenant(bookingsHandler))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	tenantMiddleware := middleware.Tenant(resolver, directory, logger, m, middleware.TenantOptions{
		SecureCookie:   cfg.IsProduction(),
		BypassPrefixes: cfg.TenantBypassPrefixes(),
	})

	return tenantMiddleware(mux)
}
