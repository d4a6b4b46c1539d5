package service

import (
	"context"
	"errors"
	"fmt"
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
	ErrInvalidToken = errors.New("invalid verification token")
	ErrTokenExpired = errors.New("verification token expired")
	ErrNotFound     = errors.New("account not found")
	ErrNotVerified  = errors.New("email not verified")
)

// PersistenceError marks the one failure mode that needs operator attention:
// the identity provider already committed a mutation but the account row
// could not be updated to match. Retrying the whole transition is safe; the
// provider-side reconcile-by-email branch makes re-runs converge.
type PersistenceError struct {
	Op         string
	IdentityID string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: account store write failed after provider mutation (identity %s): %v", e.Op, e.IdentityID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

type ActivationResult struct {
	Account *domain.Account `json:"account"`
	// AlreadyActive means the transition was a no-op because the account was
	// verified with a real identity before this call.
	AlreadyActive bool `json:"already_active,omitempty"`
	// Degraded means the identity id was minted locally because the provider
	// could not be reached or reconciled.
	Degraded bool `json:"degraded,omitempty"`
}

// provisionOutcome carries what provisionIdentity decided so Verify and the
// repair entry point can persist and classify failures the same way.
type provisionOutcome struct {
	identityID      string
	credentialHash  string
	freshPassword   string
	storedFresh     bool
	degraded        bool
	providerMutated bool
}

// ActivationService is the account activation state machine. All entry
// points mutate the same account row; the row is the only shared state.
type ActivationService struct {
	cfg      *config.Config
	accounts repository.AccountRepository
	provider identity.Provider
	notifier Notifier
	logger   *slog.Logger
}

func NewActivationService(
	cfg *config.Config,
	accounts repository.AccountRepository,
	provider identity.Provider,
	notifier Notifier,
	logger *slog.Logger,
) *ActivationService {
	return &ActivationService{
		cfg:      cfg,
		accounts: accounts,
		provider: provider,
		notifier: notifier,
		logger:   logger,
	}
}

// Verify consumes a verification token. Vendors get a provider identity
// provisioned before the flag flips; other roles only flip the flag. The
// token is cleared in the same conditional update that sets email_verified,
// so a concurrent caller with the same token loses cleanly.
func (s *ActivationService) Verify(ctx context.Context, token, email string) (*ActivationResult, error) {
	if token == "" || email == "" {
		return nil, ErrInvalidToken
	}
	email = domain.NormalizeEmail(email)

	account, err := s.accounts.FindByEmailAndToken(ctx, email, token)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			observability.RecordActivationTransition(ctx, "verify", "invalid_token")
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if time.Since(account.CreatedAt) > s.cfg.VerificationTokenTTL {
		observability.RecordActivationTransition(ctx, "verify", "token_expired")
		return nil, ErrTokenExpired
	}

	if account.State() == domain.StateActive {
		observability.RecordActivationTransition(ctx, "verify", "already_active")
		return &ActivationResult{Account: account, AlreadyActive: true}, nil
	}

	patch := map[string]any{"email_verified": true}
	var outcome provisionOutcome
	if account.Role == domain.RoleVendor {
		outcome, err = s.provisionIdentity(ctx, account)
		if err != nil {
			observability.RecordActivationTransition(ctx, "verify", "error")
			return nil, err
		}
		patch["identity_id"] = outcome.identityID
		patch["credential_hash"] = outcome.credentialHash
	}

	if err := s.accounts.ConsumeVerificationToken(ctx, account.ID, token, patch); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			// Lost the consume race; the other caller's write stands.
			observability.RecordActivationTransition(ctx, "verify", "invalid_token")
			return nil, ErrInvalidToken
		}
		observability.RecordActivationTransition(ctx, "verify", "persistence_failure")
		if outcome.providerMutated {
			return nil, &PersistenceError{Op: "verify", IdentityID: outcome.identityID, Err: err}
		}
		return nil, err
	}

	account.EmailVerified = true
	account.VerificationToken = nil
	if account.Role == domain.RoleVendor {
		account.IdentityID = outcome.identityID
		account.CredentialHash = outcome.credentialHash
	}

	s.notifyActivation(account, outcome)

	if outcome.degraded {
		observability.RecordActivationTransition(ctx, "verify", "degraded")
	} else {
		observability.RecordActivationTransition(ctx, "verify", "success")
	}
	return &ActivationResult{Account: account, Degraded: outcome.degraded}, nil
}

// RepairVendorIdentity re-runs identity provisioning for a vendor stuck in
// the verified-but-no-identity state, typically after a degraded fallback or
// a past persistence failure.
func (s *ActivationService) RepairVendorIdentity(ctx context.Context, email string) (*ActivationResult, error) {
	account, err := s.findVendor(ctx, email)
	if err != nil {
		return nil, err
	}
	if !account.EmailVerified {
		return nil, ErrNotVerified
	}
	if account.State() == domain.StateActive {
		observability.RecordActivationTransition(ctx, "repair", "already_active")
		return &ActivationResult{Account: account, AlreadyActive: true}, nil
	}

	outcome, err := s.provisionIdentity(ctx, account)
	if err != nil {
		observability.RecordActivationTransition(ctx, "repair", "error")
		return nil, err
	}

	patch := map[string]any{
		"identity_id":     outcome.identityID,
		"credential_hash": outcome.credentialHash,
	}
	if err := s.accounts.Update(ctx, account.ID, patch); err != nil {
		observability.RecordActivationTransition(ctx, "repair", "persistence_failure")
		if outcome.providerMutated {
			return nil, &PersistenceError{Op: "repair", IdentityID: outcome.identityID, Err: err}
		}
		return nil, err
	}

	account.IdentityID = outcome.identityID
	account.CredentialHash = outcome.credentialHash
	s.notifyActivation(account, outcome)

	if outcome.degraded {
		observability.RecordActivationTransition(ctx, "repair", "degraded")
	} else {
		observability.RecordActivationTransition(ctx, "repair", "success")
	}
	return &ActivationResult{Account: account, Degraded: outcome.degraded}, nil
}

// ApplyProviderActionCode handles verification links issued by the provider
// itself. It never touches the account row; the system-of-record flag is
// reconciled by whichever flow reads the provider state next.
func (s *ActivationService) ApplyProviderActionCode(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", identity.ErrInvalidActionCode
	}
	info, err := s.provider.VerifyActionCode(ctx, code)
	if err != nil {
		observability.RecordActivationTransition(ctx, "apply_action_code", "error")
		return "", err
	}
	if err := s.provider.ApplyActionCode(ctx, code); err != nil {
		observability.RecordActivationTransition(ctx, "apply_action_code", "error")
		return "", err
	}
	observability.RecordActivationTransition(ctx, "apply_action_code", "success")
	return info.Email, nil
}

// ResetVendorPassword rotates a verified vendor's credential. A role
// mismatch reads as NotFound so the endpoint cannot be used to probe which
// emails belong to vendors.
func (s *ActivationService) ResetVendorPassword(ctx context.Context, email string) error {
	account, err := s.findVendor(ctx, email)
	if err != nil {
		return err
	}
	if !account.EmailVerified {
		return ErrNotVerified
	}

	password, err := security.RandomPassword(s.cfg.IdentityMinPasswordLen)
	if err != nil {
		return err
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.accounts.Update(ctx, account.ID, map[string]any{"credential_hash": hash}); err != nil {
		observability.RecordActivationTransition(ctx, "reset_password", "persistence_failure")
		return err
	}

	if account.HasRealIdentity() {
		patch := identity.IdentityPatch{Password: &password}
		if err := s.provider.UpdateIdentity(ctx, account.IdentityID, patch); err != nil {
			s.logger.WarnContext(ctx, "provider credential update failed after password reset",
				"account_id", account.ID,
				"identity_id", account.IdentityID,
				"error", err,
			)
		}
	}

	note := CredentialNotification{Email: account.Email, Username: account.Username, Password: password}
	dispatch(s.logger, "vendor_credentials", func(ctx context.Context) error {
		return s.notifier.SendVendorCredentials(ctx, note)
	})

	observability.RecordActivationTransition(ctx, "reset_password", "success")
	return nil
}

// provisionIdentity binds the account to a provider identity, reconciling by
// email when the provider already knows it and falling back to a local id
// when the provider cannot be reached at all. Safe to re-run; every path
// converges on a single provider identity per email.
func (s *ActivationService) provisionIdentity(ctx context.Context, account *domain.Account) (provisionOutcome, error) {
	var out provisionOutcome

	password, err := security.RandomPassword(s.cfg.IdentityMinPasswordLen)
	if err != nil {
		return out, err
	}
	out.freshPassword = password

	identityID, err := s.provider.CreateIdentity(ctx, identity.NewIdentity{
		Email:       account.Email,
		Password:    password,
		DisplayName: account.Username,
		Verified:    true,
	})
	switch {
	case err == nil:
		out.identityID = identityID
		out.providerMutated = true
	case errors.Is(err, identity.ErrIdentityExists):
		out, err = s.reconcileExistingIdentity(ctx, account, out)
		if err != nil {
			return out, err
		}
	default:
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		// Creation failed for an unknown reason; the email may still be
		// registered from a previous partial run.
		if foundID, lookupErr := s.provider.FindIdentityByEmail(ctx, account.Email); lookupErr == nil {
			out.identityID = foundID
		} else {
			out = s.degradedFallback(ctx, account, out, err)
		}
	}

	out.credentialHash, out.storedFresh, err = s.decideCredential(account, password)
	if err != nil {
		return out, err
	}
	return out, nil
}

func (s *ActivationService) reconcileExistingIdentity(ctx context.Context, account *domain.Account, out provisionOutcome) (provisionOutcome, error) {
	foundID, err := s.provider.FindIdentityByEmail(ctx, account.Email)
	if err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		// Provider said the email exists but cannot produce the identity.
		return s.degradedFallback(ctx, account, out, err), nil
	}
	verified := true
	patch := identity.IdentityPatch{
		Password:    &out.freshPassword,
		DisplayName: &account.Username,
		Verified:    &verified,
	}
	if err := s.provider.UpdateIdentity(ctx, foundID, patch); err != nil {
		// The identity is located and usable; a stale provider credential is
		// recoverable via reset.
		s.logger.WarnContext(ctx, "identity reconciliation update failed",
			"account_id", account.ID,
			"identity_id", foundID,
			"error", err,
		)
	} else {
		out.providerMutated = true
	}
	out.identityID = foundID
	return out, nil
}

func (s *ActivationService) degradedFallback(ctx context.Context, account *domain.Account, out provisionOutcome, cause error) provisionOutcome {
	// The temp_ prefix keeps the account in VERIFIED_NO_IDENTITY so a later
	// repair can replace the placeholder with a provider-issued id.
	fallbackID := fmt.Sprintf("temp_%d", time.Now().Unix())
	if token, err := security.RandomToken(16); err == nil {
		fallbackID = "temp_" + token
	}
	s.logger.WarnContext(ctx, "identity provider unreachable, using degraded fallback id",
		"account_id", account.ID,
		"email", account.Email,
		"fallback_id", fallbackID,
		"cause", cause,
	)
	observability.RecordDegradedFallback(ctx)
	out.identityID = fallbackID
	out.degraded = true
	return out
}

// decideCredential keeps an existing hash untouched, hashes legacy plaintext
// in place, and otherwise stores the freshly generated password.
func (s *ActivationService) decideCredential(account *domain.Account, freshPassword string) (hash string, storedFresh bool, err error) {
	if account.CredentialHash != "" {
		if security.IsHashed(account.CredentialHash) {
			return account.CredentialHash, false, nil
		}
		migrated, err := security.HashPassword(account.CredentialHash)
		if err != nil {
			return "", false, err
		}
		return migrated, false, nil
	}
	fresh, err := security.HashPassword(freshPassword)
	if err != nil {
		return "", false, err
	}
	return fresh, true, nil
}

func (s *ActivationService) findVendor(ctx context.Context, email string) (*domain.Account, error) {
	account, err := s.accounts.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if account.Role != domain.RoleVendor {
		return nil, ErrNotFound
	}
	return account, nil
}

func (s *ActivationService) notifyActivation(account *domain.Account, outcome provisionOutcome) {
	confirmation := ActivationNotification{
		Email:       account.Email,
		Username:    account.Username,
		Role:        string(account.Role),
		ActivatedAt: time.Now().UTC(),
	}
	dispatch(s.logger, "activation_confirmation", func(ctx context.Context) error {
		return s.notifier.SendActivationConfirmation(ctx, confirmation)
	})

	if outcome.storedFresh {
		credentials := CredentialNotification{
			Email:    account.Email,
			Username: account.Username,
			Password: outcome.freshPassword,
		}
		dispatch(s.logger, "vendor_credentials", func(ctx context.Context) error {
			return s.notifier.SendVendorCredentials(ctx, credentials)
		})
	}
}
