package domain

import "testing"

func TestVisibilityScope_Allows(t *testing.T) {
	booking := BookingRecord{ID: "b1", TenantSlug: "spa1", AssignedStaffID: "staffA"}

	cases := []struct {
		name  string
		scope VisibilityScope
		want  bool
	}{
		{"admin sees everything", VisibilityScope{Role: RoleAdmin}, true},
		{"assigned staff sees own booking", VisibilityScope{Role: RoleStaff, StaffID: "staffA"}, true},
		{"other staff is blind", VisibilityScope{Role: RoleStaff, StaffID: "staffB"}, false},
		{"staff without id is blind", VisibilityScope{Role: RoleStaff}, false},
		{"unknown role never defaults open", VisibilityScope{Role: Role("superuser")}, false},
		{"empty role is blind", VisibilityScope{}, false},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scope.Allows(booking); got != tt.want {
				t.Errorf("Allows = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	if _, err := ParseRole("admin"); err != nil {
		t.Errorf("admin should parse: %v", err)
	}
	if _, err := ParseRole("staff"); err != nil {
		t.Errorf("staff should parse: %v", err)
	}
	if _, err := ParseRole("root"); err == nil {
		t.Error("unknown role must be rejected")
	}
	if _, err := ParseRole(""); err == nil {
		t.Error("empty role must be rejected")
	}
}

func TestParseEventName(t *testing.T) {
	for _, et := range []EventType{EventCreated, EventUpdated, EventStatusChanged, EventCancelled} {
		got, ok := ParseEventName(et.WireName())
		if !ok || got != et {
			t.Errorf("ParseEventName(%q) = %q, %v", et.WireName(), got, ok)
		}
	}
	if _, ok := ParseEventName("booking:exploded"); ok {
		t.Error("unknown event name must not parse")
	}
	if _, ok := ParseEventName("chat:message"); ok {
		t.Error("foreign named events must not parse")
	}
}
