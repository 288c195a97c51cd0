package mocks

import (
	"context"
	"sync"

	"github.com/user/spa-platform/internal/domain"
)

// MockTenantDirectory is a mock implementation of domain.TenantDirectory for testing.
type MockTenantDirectory struct {
	mu      sync.Mutex
	Hosts   map[string]string
	Lookups []string
	Err     error
}

func (m *MockTenantDirectory) LookupHost(ctx context.Context, host string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lookups = append(m.Lookups, host)
	if m.Err != nil {
		return "", m.Err
	}
	slug, ok := m.Hosts[host]
	if !ok {
		return "", domain.ErrHostNotFound
	}
	return slug, nil
}

// MockBookingRepository is a mock implementation of domain.BookingRepository for testing.
type MockBookingRepository struct {
	mu       sync.Mutex
	Bookings []domain.BookingRecord
	Err      error
}

func (m *MockBookingRepository) ListByTenant(ctx context.Context, tenantSlug string) ([]domain.BookingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []domain.BookingRecord
	for _, b := range m.Bookings {
		if b.TenantSlug == tenantSlug && b.Status != domain.StatusCancelled {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *MockBookingRepository) ListByStaff(ctx context.Context, tenantSlug, staffID string) ([]domain.BookingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []domain.BookingRecord
	for _, b := range m.Bookings {
		if b.TenantSlug == tenantSlug && b.AssignedStaffID == staffID && b.Status != domain.StatusCancelled {
			out = append(out, b)
		}
	}
	return out, nil
}

// MockCredentialValidator is a mock implementation of domain.CredentialValidator for testing.
type MockCredentialValidator struct {
	Claims domain.Claims
	Err    error
}

func (m *MockCredentialValidator) Validate(token string) (domain.Claims, error) {
	if m.Err != nil {
		return domain.Claims{}, m.Err
	}
	return m.Claims, nil
}
