package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/AquariesX/quick-delivey-sub001/internal/config"
	"github.com/AquariesX/quick-delivey-sub001/internal/domain"
	"github.com/AquariesX/quick-delivey-sub001/internal/identity"
	"github.com/AquariesX/quick-delivey-sub001/internal/observability"
	"github.com/AquariesX/quick-delivey-sub001/internal/repository"
	"github.com/AquariesX/quick-delivey-sub001/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrVendorNotActivated gates vendor sign-in until the account is both
	// email-verified and bound to a real provider identity.
	ErrVendorNotActivated = errors.New("vendor account is not activated")
)

type LoginResult struct {
	Account     *domain.Account `json:"account"`
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

// AuthService exchanges a provider-issued ID token for an access token. The
// accounts table stays authoritative: the provider only proves who is
// calling, the row decides what they may do.
type AuthService struct {
	cfg      *config.Config
	accounts repository.AccountRepository
	provider identity.Provider
	jwt      *security.JWTManager
	logger   *slog.Logger
}

func NewAuthService(
	cfg *config.Config,
	accounts repository.AccountRepository,
	provider identity.Provider,
	jwt *security.JWTManager,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{cfg: cfg, accounts: accounts, provider: provider, jwt: jwt, logger: logger}
}

func (s *AuthService) LoginWithIDToken(ctx context.Context, idToken string) (*LoginResult, error) {
	if idToken == "" {
		return nil, ErrInvalidCredentials
	}

	info, err := s.provider.VerifyIDToken(ctx, idToken)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidIDToken) || errors.Is(err, identity.ErrUserDisabled) {
			observability.RecordAuthLogin(ctx, "invalid_token")
			return nil, ErrInvalidCredentials
		}
		observability.RecordAuthLogin(ctx, "provider_error")
		return nil, err
	}

	account, err := s.accounts.FindByEmail(ctx, info.Email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			observability.RecordAuthLogin(ctx, "unknown_account")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if account.Role == domain.RoleVendor && account.State() != domain.StateActive {
		s.logger.InfoContext(ctx, "vendor login rejected before activation",
			"account_id", account.ID,
			"state", account.State(),
		)
		observability.RecordAuthLogin(ctx, "vendor_not_activated")
		return nil, ErrVendorNotActivated
	}

	// The provider id is authoritative once issued; adopt it if the row still
	// carries a placeholder from before activation.
	if info.IdentityID != "" && account.IdentityID != info.IdentityID && !account.HasRealIdentity() {
		if err := s.accounts.Update(ctx, account.ID, map[string]any{"identity_id": info.IdentityID}); err != nil {
			s.logger.WarnContext(ctx, "identity id adoption failed", "account_id", account.ID, "error", err)
		} else {
			account.IdentityID = info.IdentityID
		}
	}

	token, err := s.jwt.SignAccessToken(account.ID, account.Email, string(account.Role), s.cfg.JWTAccessTTL)
	if err != nil {
		return nil, err
	}

	observability.RecordAuthLogin(ctx, "success")
	return &LoginResult{
		Account:     account,
		AccessToken: token,
		ExpiresAt:   time.Now().Add(s.cfg.JWTAccessTTL),
	}, nil
}
