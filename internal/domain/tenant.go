package domain

// TenantClassification describes how a request's host mapped to a tenant.
type TenantClassification int

const (
	// PlatformRoot is the platform's own domain (or an unresolvable host).
	// Tenant-scoped operations are forbidden for this classification.
	PlatformRoot TenantClassification = iota
	// ManagedSubdomain is a tenant reached via <slug>.<platform-domain>.
	ManagedSubdomain
	// CustomDomain is a tenant reached via an externally owned hostname.
	// The slug carries the raw host until the tenant directory resolves it.
	CustomDomain
)

func (c TenantClassification) String() string {
	switch c {
	case ManagedSubdomain:
		return "managed_subdomain"
	case CustomDomain:
		return "custom_domain"
	default:
		return "platform_root"
	}
}

// TenantIdentity is the per-request resolution result. It is immutable and
// discarded at the end of the request.
type TenantIdentity struct {
	Slug           string
	OriginHost     string
	Classification TenantClassification
}

// IsTenantScoped reports whether the identity refers to an actual tenant.
func (t TenantIdentity) IsTenantScoped() bool {
	return t.Classification != PlatformRoot && t.Slug != ""
}
