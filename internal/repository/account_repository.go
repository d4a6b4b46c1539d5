package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AquariesX/quick-delivey-sub001/internal/domain"

	"gorm.io/gorm"
)

var ErrAccountNotFound = errors.New("account not found")

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	FindByID(ctx context.Context, id uint) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByEmailAndToken(ctx context.Context, email, token string) (*domain.Account, error)
	Update(ctx context.Context, id uint, patch map[string]any) error
	// ConsumeVerificationToken applies patch (plus clearing the token) only
	// while the stored token still matches. A concurrent consumer loses the
	// race and observes ErrAccountNotFound.
	ConsumeVerificationToken(ctx context.Context, id uint, token string, patch map[string]any) error
}

type GormAccountRepository struct {
	db    *gorm.DB
	retry retryPolicy
}

func NewAccountRepository(db *gorm.DB, retryCount int, retryBackoff time.Duration) AccountRepository {
	return &GormAccountRepository{db: db, retry: retryPolicy{attempts: retryCount, backoff: retryBackoff}}
}

func (r *GormAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	account.Email = domain.NormalizeEmail(account.Email)
	return r.retry.do(ctx, func() error {
		return r.db.WithContext(ctx).Create(account).Error
	})
}

func (r *GormAccountRepository) FindByID(ctx context.Context, id uint) (*domain.Account, error) {
	var a domain.Account
	err := r.retry.do(ctx, func() error {
		return r.db.WithContext(ctx).First(&a, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *GormAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var a domain.Account
	err := r.retry.do(ctx, func() error {
		return r.db.WithContext(ctx).Where("email = ?", domain.NormalizeEmail(email)).First(&a).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *GormAccountRepository) FindByEmailAndToken(ctx context.Context, email, token string) (*domain.Account, error) {
	var a domain.Account
	err := r.retry.do(ctx, func() error {
		return r.db.WithContext(ctx).
			Where("email = ? AND verification_token = ?", domain.NormalizeEmail(email), token).
			First(&a).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *GormAccountRepository) Update(ctx context.Context, id uint, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	updates := clonePatch(patch)
	updates["updated_at"] = time.Now().UTC()
	var res *gorm.DB
	err := r.retry.do(ctx, func() error {
		res = r.db.WithContext(ctx).Model(&domain.Account{}).Where("id = ?", id).Updates(updates)
		return res.Error
	})
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *GormAccountRepository) ConsumeVerificationToken(ctx context.Context, id uint, token string, patch map[string]any) error {
	updates := clonePatch(patch)
	updates["verification_token"] = nil
	updates["updated_at"] = time.Now().UTC()
	var res *gorm.DB
	err := r.retry.do(ctx, func() error {
		res = r.db.WithContext(ctx).Model(&domain.Account{}).
			Where("id = ? AND verification_token = ?", id, token).
			Updates(updates)
		return res.Error
	})
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func clonePatch(patch map[string]any) map[string]any {
	out := make(map[string]any, len(patch)+2)
	for k, v := range patch {
		out[k] = v
	}
	return out
}
