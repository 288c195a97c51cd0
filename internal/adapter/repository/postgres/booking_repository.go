package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/user/spa-platform/internal/domain"
)

// BookingRepository reads the booking tables owned by the upstream booking
// system. This core never writes them.
type BookingRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewBookingRepository creates a new read-only booking repository.
func NewBookingRepository(db *sql.DB, logger *slog.Logger) *BookingRepository {
	return &BookingRepository{
		db:     db,
		logger: logger.With("component", "booking_repository"),
	}
}

const bookingColumns = `id, tenant_slug, COALESCE(assigned_staff_id, ''), status, scheduled_at, COALESCE(client_ref, '')`

// ListByTenant returns all live bookings for a tenant. Cancelled bookings
// are excluded: the synchronized view treats cancellation as removal.
func (r *BookingRepository) ListByTenant(ctx context.Context, tenantSlug string) ([]domain.BookingRecord, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE tenant_slug = $1 AND status <> $2
		ORDER BY scheduled_at`
	rows, err := r.db.QueryContext(ctx, query, tenantSlug, domain.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("list bookings for tenant %q: %w", tenantSlug, err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ListByStaff returns live bookings for a tenant assigned to one staff
// member.
func (r *BookingRepository) ListByStaff(ctx context.Context, tenantSlug, staffID string) ([]domain.BookingRecord, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE tenant_slug = $1 AND assigned_staff_id = $2 AND status <> $3
		ORDER BY scheduled_at`
	rows, err := r.db.QueryContext(ctx, query, tenantSlug, staffID, domain.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("list bookings for staff %q: %w", staffID, err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func scanBookings(rows *sql.Rows) ([]domain.BookingRecord, error) {
	var bookings []domain.BookingRecord
	for rows.Next() {
		var b domain.BookingRecord
		if err := rows.Scan(&b.ID, &b.TenantSlug, &b.AssignedStaffID, &b.Status, &b.ScheduledAt, &b.ClientRef); err != nil {
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking rows: %w", err)
	}
	return bookings, nil
}
