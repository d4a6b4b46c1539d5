package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AquariesX/quick-delivey-sub001/internal/domain"
	"github.com/AquariesX/quick-delivey-sub001/internal/http/middleware"
	"github.com/AquariesX/quick-delivey-sub001/internal/http/response"
	"github.com/AquariesX/quick-delivey-sub001/internal/identity"
	"github.com/AquariesX/quick-delivey-sub001/internal/observability"
	"github.com/AquariesX/quick-delivey-sub001/internal/service"
)

type ActivationHandler struct {
	activationSvc service.ActivationServiceInterface
	guard         service.AbuseGuard
}

func NewActivationHandler(activationSvc service.ActivationServiceInterface, guard service.AbuseGuard) *ActivationHandler {
	if guard == nil {
		guard = service.NewNoopAbuseGuard()
	}
	return &ActivationHandler{activationSvc: activationSvc, guard: guard}
}

type verifyRequest struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

func (h *ActivationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	req.Email = strings.TrimSpace(req.Email)
	if req.Token == "" || req.Email == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "token and email are required")
		return
	}

	ip := middleware.ClientIP(r)
	if h.blocked(w, r, service.AbuseScopeVerify, req.Email, ip) {
		return
	}

	result, err := h.activationSvc.Verify(r.Context(), req.Token, req.Email)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) || errors.Is(err, service.ErrTokenExpired) {
			_, _ = h.guard.RegisterFailure(r.Context(), service.AbuseScopeVerify, req.Email, ip)
		}
		observability.Audit(r, "activation.verify.failed", "email", req.Email, "reason", errorCode(err))
		writeActivationError(w, r, err)
		return
	}

	_ = h.guard.Reset(r.Context(), service.AbuseScopeVerify, req.Email, ip)
	observability.Audit(r, "activation.verify.succeeded",
		"account_id", result.Account.ID,
		"state", result.Account.State(),
		"degraded", result.Degraded,
	)
	response.JSON(w, r, http.StatusOK, map[string]any{
		"message":        verifyMessage(result),
		"account":        accountSummary(result.Account),
		"already_active": result.AlreadyActive,
		"degraded":       result.Degraded,
	})
}

type actionCodeRequest struct {
	Code string `json:"code"`
}

func (h *ActivationHandler) ApplyActionCode(w http.ResponseWriter, r *http.Request) {
	var req actionCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "code is required")
		return
	}

	email, err := h.activationSvc.ApplyProviderActionCode(r.Context(), strings.TrimSpace(req.Code))
	if err != nil {
		observability.Audit(r, "activation.action_code.failed", "reason", errorCode(err))
		writeActivationError(w, r, err)
		return
	}
	observability.Audit(r, "activation.action_code.applied", "email", email)
	response.JSON(w, r, http.StatusOK, map[string]any{"email": email})
}

type resetPasswordRequest struct {
	Email string `json:"email"`
}

func (h *ActivationHandler) ResetVendorPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "email is required")
		return
	}

	ip := middleware.ClientIP(r)
	if h.blocked(w, r, service.AbuseScopeReset, req.Email, ip) {
		return
	}

	if err := h.activationSvc.ResetVendorPassword(r.Context(), req.Email); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			_, _ = h.guard.RegisterFailure(r.Context(), service.AbuseScopeReset, req.Email, ip)
		}
		observability.Audit(r, "activation.reset_password.failed", "email", req.Email, "reason", errorCode(err))
		writeActivationError(w, r, err)
		return
	}
	observability.Audit(r, "activation.reset_password.succeeded", "email", req.Email)
	// The new password travels by email only.
	response.JSON(w, r, http.StatusOK, map[string]any{"message": "a new password has been sent to your email"})
}

type repairRequest struct {
	Email string `json:"email"`
}

func (h *ActivationHandler) RepairIdentity(w http.ResponseWriter, r *http.Request) {
	var req repairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "email is required")
		return
	}

	result, err := h.activationSvc.RepairVendorIdentity(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		observability.Audit(r, "activation.repair.failed", "email", req.Email, "reason", errorCode(err))
		writeActivationError(w, r, err)
		return
	}
	observability.Audit(r, "activation.repair.succeeded",
		"account_id", result.Account.ID,
		"degraded", result.Degraded,
	)
	response.JSON(w, r, http.StatusOK, map[string]any{
		"account":        accountSummary(result.Account),
		"already_active": result.AlreadyActive,
		"degraded":       result.Degraded,
	})
}

func (h *ActivationHandler) blocked(w http.ResponseWriter, r *http.Request, scope service.AbuseScope, subject, ip string) bool {
	cooldown, err := h.guard.Check(r.Context(), scope, subject, ip)
	if err != nil {
		// Guard backend trouble never blocks activation itself.
		return false
	}
	if cooldown > 0 {
		w.Header().Set("Retry-After", retryAfterSeconds(cooldown))
		response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many failed attempts, try again later")
		return true
	}
	return false
}

func writeActivationError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *service.PersistenceError
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		response.Error(w, r, http.StatusBadRequest, "INVALID_TOKEN", "verification token is invalid or already used")
	case errors.Is(err, service.ErrTokenExpired):
		response.Error(w, r, http.StatusBadRequest, "TOKEN_EXPIRED", "verification token has expired, request a new verification email")
	case errors.Is(err, service.ErrNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "no matching account")
	case errors.Is(err, service.ErrNotVerified):
		response.Error(w, r, http.StatusBadRequest, "NOT_VERIFIED", "email address is not verified yet")
	case errors.Is(err, identity.ErrInvalidActionCode):
		response.Error(w, r, http.StatusBadRequest, "INVALID_ACTION_CODE", "action code is invalid")
	case errors.Is(err, identity.ErrExpiredActionCode):
		response.Error(w, r, http.StatusBadRequest, "EXPIRED_ACTION_CODE", "action code has expired")
	case errors.Is(err, identity.ErrUserDisabled):
		response.Error(w, r, http.StatusBadRequest, "USER_DISABLED", "this account has been disabled")
	case errors.Is(err, identity.ErrProviderUnavailable):
		response.Error(w, r, http.StatusBadGateway, "PROVIDER_UNAVAILABLE", "identity provider is unavailable, try again later")
	case errors.As(err, &pe):
		response.Error(w, r, http.StatusInternalServerError, "PERSISTENCE_FAILURE", "activation could not be saved, please retry")
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "something went wrong")
	}
}

func errorCode(err error) string {
	var pe *service.PersistenceError
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, service.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, service.ErrNotFound):
		return "not_found"
	case errors.Is(err, service.ErrNotVerified):
		return "not_verified"
	case errors.Is(err, identity.ErrInvalidActionCode):
		return "invalid_action_code"
	case errors.Is(err, identity.ErrExpiredActionCode):
		return "expired_action_code"
	case errors.Is(err, identity.ErrUserDisabled):
		return "user_disabled"
	case errors.Is(err, identity.ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.As(err, &pe):
		return "persistence_failure"
	default:
		return "internal"
	}
}

func verifyMessage(result *service.ActivationResult) string {
	if result.AlreadyActive {
		return "account is already active"
	}
	if result.Degraded {
		return "email verified; account setup will complete shortly"
	}
	return "email verified successfully"
}

func accountSummary(a *domain.Account) map[string]any {
	return map[string]any{
		"id":             a.ID,
		"identity_id":    a.IdentityID,
		"username":       a.Username,
		"email":          a.Email,
		"role":           a.Role,
		"email_verified": a.EmailVerified,
	}
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
