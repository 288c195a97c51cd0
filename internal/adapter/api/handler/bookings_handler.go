package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/user/spa-platform/internal/adapter/api/middleware"
	"github.com/user/spa-platform/internal/domain"
)

// BookingsHandler serves the on-demand full fetch: the reconcile source for
// reconnecting sessions and the manual refresh path in degraded mode.
type BookingsHandler struct {
	repo      domain.BookingRepository
	validator domain.CredentialValidator
	logger    *slog.Logger
}

// NewBookingsHandler creates a new BookingsHandler.
func NewBookingsHandler(repo domain.BookingRepository, validator domain.CredentialValidator, logger *slog.Logger) *BookingsHandler {
	return &BookingsHandler{
		repo:      repo,
		validator: validator,
		logger:    logger.With("component", "bookings_handler"),
	}
}

type bookingsResponse struct {
	Bookings []domain.BookingRecord `json:"bookings"`
}

// ServeHTTP returns the caller's scope-filtered view of the tenant's live
// bookings.
func (h *BookingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.TenantFromContext(r.Context())
	if !ok || !identity.IsTenantScoped() {
		http.Error(w, "tenant not found", http.StatusNotFound)
		return
	}

	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing credentials", http.StatusUnauthorized)
		return
	}
	claims, err := h.validator.Validate(token)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if claims.TenantSlug != identity.Slug {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var bookings []domain.BookingRecord
	switch claims.Scope.Role {
	case domain.RoleAdmin:
		bookings, err = h.repo.ListByTenant(r.Context(), identity.Slug)
	case domain.RoleStaff:
		bookings, err = h.repo.ListByStaff(r.Context(), identity.Slug, claims.Scope.StaffID)
	default:
		// Closed role set: anything else is visible to nothing.
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if err != nil {
		h.logger.Error("failed to list bookings", "tenant", identity.Slug, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if bookings == nil {
		bookings = []domain.BookingRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(bookingsResponse{Bookings: bookings}); err != nil {
		h.logger.Error("failed to encode bookings response", "error", err)
	}
}
