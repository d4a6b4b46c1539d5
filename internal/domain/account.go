package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleCustomer   Role = "CUSTOMER"
	RoleVendor     Role = "VENDOR"
	RoleDriver     Role = "DRIVER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

func ParseRole(v string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(v))) {
	case RoleCustomer:
		return RoleCustomer, true
	case RoleVendor:
		return RoleVendor, true
	case RoleDriver:
		return RoleDriver, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleSuperAdmin:
		return RoleSuperAdmin, true
	}
	return "", false
}

// ActivationState is derived from Account fields; it is never stored.
type ActivationState string

const (
	StateUnverified         ActivationState = "UNVERIFIED"
	StateVerifiedNoIdentity ActivationState = "VERIFIED_NO_IDENTITY"
	StateActive             ActivationState = "ACTIVE"
)

// placeholderIdentityPrefix marks identity ids minted locally at account
// creation, before the external provider has issued a real one.
const placeholderIdentityPrefix = "temp_"

// Account is the system-of-record for a person across all roles. The
// external identity provider holds a parallel record linked via IdentityID;
// authorization decisions (EmailVerified, Role) are made from this row only.
type Account struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	IdentityID        string    `gorm:"size:128;index" json:"identity_id"`
	Email             string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Username          string    `gorm:"size:255;not null" json:"username"`
	CredentialHash    string    `gorm:"size:1024" json:"-"`
	Role              Role      `gorm:"size:32;not null;default:CUSTOMER;index" json:"role"`
	EmailVerified     bool      `gorm:"not null;default:false" json:"email_verified"`
	VerificationToken *string   `gorm:"size:128;index" json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HasRealIdentity reports whether IdentityID points at a provider-issued
// identity rather than being absent or a local placeholder.
func (a *Account) HasRealIdentity() bool {
	return a.IdentityID != "" && !strings.HasPrefix(a.IdentityID, placeholderIdentityPrefix)
}

func (a *Account) State() ActivationState {
	if !a.EmailVerified {
		return StateUnverified
	}
	if !a.HasRealIdentity() {
		return StateVerifiedNoIdentity
	}
	return StateActive
}

// NormalizeEmail is applied on every comparison and write involving an
// account email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
