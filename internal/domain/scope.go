package domain

import "fmt"

// Role is the closed set of visibility roles. Scope filtering matches
// exhaustively on it; an unrecognized role never defaults to open
// visibility.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// ParseRole validates a role string against the closed enumeration.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleStaff:
		return RoleStaff, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// VisibilityScope determines which booking events a session retains.
type VisibilityScope struct {
	Role    Role
	StaffID string
}

// Allows reports whether a booking is visible to the scope. Admins see all
// bookings for their tenant; staff see only bookings assigned to them.
func (s VisibilityScope) Allows(b BookingRecord) bool {
	switch s.Role {
	case RoleAdmin:
		return true
	case RoleStaff:
		return s.StaffID != "" && b.AssignedStaffID == s.StaffID
	default:
		return false
	}
}
