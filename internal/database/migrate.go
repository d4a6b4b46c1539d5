package database

import (
	"github.com/AquariesX/quick-delivey-sub001/internal/domain"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Account{})
}
