package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/user/spa-platform/internal/domain"
)

// tokenClaims is the credential shape issued by the external authenticator.
type tokenClaims struct {
	TenantSlug string `json:"tenant_slug"`
	Role       string `json:"role"`
	StaffID    string `json:"staff_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenValidator validates bearer credentials for the real-time channel.
// Token issuance is the authenticator collaborator's job; this side only
// verifies signature, expiry, and the closed role set.
type TokenValidator struct {
	secret []byte
}

// NewTokenValidator creates a validator sharing the authenticator's HMAC
// secret.
func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{secret: []byte(secret)}
}

// Validate parses and verifies a bearer token and maps it to domain claims.
func (v *TokenValidator) Validate(token string) (domain.Claims, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return domain.Claims{}, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return domain.Claims{}, fmt.Errorf("invalid token")
	}
	if claims.TenantSlug == "" {
		return domain.Claims{}, fmt.Errorf("token carries no tenant")
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Claims{}, err
	}
	if role == domain.RoleStaff && claims.StaffID == "" {
		return domain.Claims{}, fmt.Errorf("staff token carries no staff id")
	}

	return domain.Claims{
		TenantSlug: claims.TenantSlug,
		Scope:      domain.VisibilityScope{Role: role, StaffID: claims.StaffID},
	}, nil
}
