package database

import (
	"errors"
	"fmt"

	"github.com/AquariesX/quick-delivey-sub001/internal/domain"
	"github.com/AquariesX/quick-delivey-sub001/internal/security"

	"gorm.io/gorm"
)

type SeedReport struct {
	CreatedAdmin bool `json:"created_admin"`
	Noop         bool `json:"noop"`
}

// Seed provisions the bootstrap SUPER_ADMIN account so a fresh deployment
// has an operator able to reach the repair endpoint. Existing rows are never
// modified.
func Seed(db *gorm.DB, bootstrapAdminEmail string) (*SeedReport, error) {
	report := &SeedReport{Noop: true}

	email := domain.NormalizeEmail(bootstrapAdminEmail)
	if email == "" {
		return report, nil
	}

	var existing domain.Account
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("look up bootstrap admin: %w", err)
	}

	password, err := security.RandomPassword(16)
	if err != nil {
		return nil, err
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}
	admin := domain.Account{
		Email:          email,
		Username:       "Bootstrap Admin",
		Role:           domain.RoleSuperAdmin,
		EmailVerified:  true,
		CredentialHash: hash,
	}
	if err := db.Create(&admin).Error; err != nil {
		return nil, fmt.Errorf("create bootstrap admin: %w", err)
	}
	report.CreatedAdmin = true
	report.Noop = false
	return report, nil
}
