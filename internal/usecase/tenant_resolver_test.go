package usecase

import (
	"testing"

	"github.com/user/spa-platform/internal/domain"
)

func TestTenantResolver_Resolve(t *testing.T) {
	resolver := NewTenantResolver("platform.com")

	cases := []struct {
		name           string
		host           string
		override       string
		slug           string
		classification domain.TenantClassification
	}{
		{"managed subdomain", "sparenaissance.platform.com", "", "sparenaissance", domain.ManagedSubdomain},
		{"managed subdomain with port", "spa1.platform.com:3000", "", "spa1", domain.ManagedSubdomain},
		{"mixed case and port", "Spa1.Platform.Com:3000", "", "spa1", domain.ManagedSubdomain},
		{"nested label uses innermost", "a.spa1.platform.com", "", "spa1", domain.ManagedSubdomain},
		{"platform root", "platform.com", "", "", domain.PlatformRoot},
		{"platform root with port", "platform.com:8080", "", "", domain.PlatformRoot},
		{"www alias", "www.platform.com", "", "", domain.PlatformRoot},
		{"reserved api label", "api.platform.com", "", "", domain.PlatformRoot},
		{"empty host", "", "", "", domain.PlatformRoot},
		{"whitespace host", "   ", "", "", domain.PlatformRoot},
		{"localhost without override", "localhost:3000", "", "", domain.PlatformRoot},
		{"loopback ip without override", "127.0.0.1:3000", "", "", domain.PlatformRoot},
		{"localhost with override", "localhost:3000", "spa1", "spa1", domain.ManagedSubdomain},
		{"platform root ignores override", "platform.com", "spa1", "", domain.PlatformRoot},
		{"managed subdomain wins over override", "spa1.platform.com", "other", "spa1", domain.ManagedSubdomain},
		{"custom domain", "sparenaissance.co", "", "sparenaissance.co", domain.CustomDomain},
		{"custom domain with port", "bookings.myspa.io:443", "", "bookings.myspa.io", domain.CustomDomain},
		{"suffix lookalike is custom", "notplatform.com", "", "notplatform.com", domain.CustomDomain},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got := resolver.Resolve(tt.host, tt.override)
			if got.Slug != tt.slug {
				t.Errorf("Resolve(%q, %q).Slug = %q, want %q", tt.host, tt.override, got.Slug, tt.slug)
			}
			if got.Classification != tt.classification {
				t.Errorf("Resolve(%q, %q).Classification = %v, want %v", tt.host, tt.override, got.Classification, tt.classification)
			}
		})
	}
}

func TestTenantResolver_CaseAndPortInsensitive(t *testing.T) {
	resolver := NewTenantResolver("platform.com")

	a := resolver.Resolve("Spa1.Platform.com:3000", "")
	b := resolver.Resolve("spa1.platform.com", "")
	if a != b {
		t.Errorf("resolution is not normalization-invariant: %+v != %+v", a, b)
	}
}

func TestTenantResolver_Deterministic(t *testing.T) {
	resolver := NewTenantResolver("platform.com")

	first := resolver.Resolve("sparenaissance.platform.com", "")
	for i := 0; i < 100; i++ {
		if got := resolver.Resolve("sparenaissance.platform.com", ""); got != first {
			t.Fatalf("resolution not deterministic: %+v != %+v", got, first)
		}
	}
}

func TestTenantIdentity_IsTenantScoped(t *testing.T) {
	resolver := NewTenantResolver("platform.com")

	if resolver.Resolve("platform.com", "").IsTenantScoped() {
		t.Error("platform root must not be tenant scoped")
	}
	if !resolver.Resolve("spa1.platform.com", "").IsTenantScoped() {
		t.Error("managed subdomain must be tenant scoped")
	}
	if !resolver.Resolve("myspa.example", "").IsTenantScoped() {
		t.Error("custom domain must be tenant scoped")
	}
}
