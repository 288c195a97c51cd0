package usecase

import (
	"net"
	"strings"

	"github.com/user/spa-platform/internal/domain"
)

// reservedLabels are platform-owned subdomain labels that never identify a
// tenant.
var reservedLabels = map[string]bool{
	"www": true,
	"api": true,
}

// TenantResolver maps an inbound host header to a tenant identity. It is a
// pure function of its inputs: no network or storage access, so resolution
// stays on the request hot path at O(1).
type TenantResolver struct {
	platformDomain string
}

// NewTenantResolver creates a resolver for the given platform root domain,
// e.g. "platform.com".
func NewTenantResolver(platformDomain string) *TenantResolver {
	return &TenantResolver{platformDomain: normalizeHost(platformDomain)}
}

// Resolve classifies a host header. The override is a development/test
// convenience and applies only when the host itself yields no tenant.
// Resolution ambiguity is never fatal: anything unresolvable degrades to
// PlatformRoot and tenant-scoped handlers reject the request downstream.
func (r *TenantResolver) Resolve(hostHeader, override string) domain.TenantIdentity {
	host := normalizeHost(hostHeader)
	if host == "" {
		return domain.TenantIdentity{OriginHost: host, Classification: domain.PlatformRoot}
	}

	// Managed subdomain: <label>.<platform-domain>.
	if suffix := "." + r.platformDomain; r.platformDomain != "" && strings.HasSuffix(host, suffix) {
		label := strings.TrimSuffix(host, suffix)
		if i := strings.LastIndexByte(label, '.'); i >= 0 {
			label = label[i+1:]
		}
		if label == "" || reservedLabels[label] {
			return domain.TenantIdentity{OriginHost: host, Classification: domain.PlatformRoot}
		}
		return domain.TenantIdentity{Slug: label, OriginHost: host, Classification: domain.ManagedSubdomain}
	}

	// The platform root itself is never tenant-scoped, override or not.
	if host == r.platformDomain {
		return domain.TenantIdentity{OriginHost: host, Classification: domain.PlatformRoot}
	}

	if o := normalizeHost(override); o != "" {
		return domain.TenantIdentity{Slug: o, OriginHost: host, Classification: domain.ManagedSubdomain}
	}

	// Local development without an override carries no tenant context.
	if isLoopback(host) {
		return domain.TenantIdentity{OriginHost: host, Classification: domain.PlatformRoot}
	}

	// Arbitrary host: a custom domain. The slug carries the raw host; the
	// tenant directory maps it to a real slug outside this pure function.
	return domain.TenantIdentity{Slug: host, OriginHost: host, Classification: domain.CustomDomain}
}

// normalizeHost lower-cases the host and strips any port and trailing dot.
func normalizeHost(raw string) string {
	host := strings.ToLower(strings.TrimSpace(raw))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}

func isLoopback(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
