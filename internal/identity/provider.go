// Package identity wraps the platform's external identity provider. The
// provider is purely a credential/login backend; the accounts table remains
// authoritative for authorization decisions.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrIdentityExists is returned by CreateIdentity when the email is
	// already registered with the provider. Callers rely on this being
	// distinguishable from ErrProviderUnavailable to take the
	// reconcile-by-email branch instead of the degraded fallback.
	ErrIdentityExists    = errors.New("identity already exists for email")
	ErrIdentityNotFound  = errors.New("identity not found")
	ErrInvalidActionCode = errors.New("invalid action code")
	ErrExpiredActionCode = errors.New("expired action code")
	ErrUserDisabled      = errors.New("identity is disabled")
	ErrInvalidIDToken    = errors.New("invalid id token")
	// ErrProviderUnavailable covers transport failures and 5xx responses.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

type NewIdentity struct {
	Email       string
	Password    string
	DisplayName string
	Verified    bool
}

// IdentityPatch updates an existing provider identity. Nil fields are left
// untouched.
type IdentityPatch struct {
	Password    *string
	DisplayName *string
	Verified    *bool
}

type ActionCodeInfo struct {
	Email string
}

type IDTokenInfo struct {
	IdentityID    string
	Email         string
	EmailVerified bool
}

type Provider interface {
	CreateIdentity(ctx context.Context, id NewIdentity) (string, error)
	FindIdentityByEmail(ctx context.Context, email string) (string, error)
	UpdateIdentity(ctx context.Context, identityID string, patch IdentityPatch) error
	VerifyActionCode(ctx context.Context, code string) (*ActionCodeInfo, error)
	ApplyActionCode(ctx context.Context, code string) error
	VerifyIDToken(ctx context.Context, idToken string) (*IDTokenInfo, error)
	Ping(ctx context.Context) error
}
