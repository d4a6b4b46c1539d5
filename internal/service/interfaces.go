package service

import "context"

type ActivationServiceInterface interface {
	Verify(ctx context.Context, token, email string) (*ActivationResult, error)
	RepairVendorIdentity(ctx context.Context, email string) (*ActivationResult, error)
	ApplyProviderActionCode(ctx context.Context, code string) (string, error)
	ResetVendorPassword(ctx context.Context, email string) error
}

type AuthServiceInterface interface {
	LoginWithIDToken(ctx context.Context, idToken string) (*LoginResult, error)
}
