package domain

import (
	"context"
	"errors"
)

// ErrHostNotFound is returned by a TenantDirectory when a custom domain has
// no registered tenant.
var ErrHostNotFound = errors.New("host not registered to any tenant")

// ErrTransportUnavailable wraps connect/reconnect failures of the real-time
// channel. It is retried with bounded backoff before the subscription
// degrades.
var ErrTransportUnavailable = errors.New("realtime transport unavailable")

// TenantDirectory resolves custom-domain hosts to tenant slugs. Consulted
// only for CustomDomain classifications; managed subdomains resolve purely
// from the host.
type TenantDirectory interface {
	// LookupHost returns the slug registered for the host, or
	// ErrHostNotFound.
	LookupHost(ctx context.Context, host string) (string, error)
}

// BookingRepository reads the authoritative booking state. It backs the
// full-refresh path used on reconnect and in degraded mode, since missed
// events are not replayable.
type BookingRepository interface {
	// ListByTenant returns all live (non-cancelled) bookings for a tenant.
	ListByTenant(ctx context.Context, tenantSlug string) ([]BookingRecord, error)

	// ListByStaff returns live bookings for a tenant assigned to one staff
	// member.
	ListByStaff(ctx context.Context, tenantSlug, staffID string) ([]BookingRecord, error)
}

// Claims is the identity carried by a bearer credential on the real-time
// channel. Credentials are issued by an external authenticator; this core
// only validates them.
type Claims struct {
	TenantSlug string
	Scope      VisibilityScope
}

// CredentialValidator validates bearer credentials presented at connect
// time.
type CredentialValidator interface {
	Validate(token string) (Claims, error)
}
