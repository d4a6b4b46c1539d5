package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/AquariesX/quick-delivey-sub001/internal/http/middleware"
	"github.com/AquariesX/quick-delivey-sub001/internal/http/response"
	"github.com/AquariesX/quick-delivey-sub001/internal/identity"
	"github.com/AquariesX/quick-delivey-sub001/internal/observability"
	"github.com/AquariesX/quick-delivey-sub001/internal/service"
)

type AuthHandler struct {
	authSvc service.AuthServiceInterface
	guard   service.AbuseGuard
}

func NewAuthHandler(authSvc service.AuthServiceInterface, guard service.AbuseGuard) *AuthHandler {
	if guard == nil {
		guard = service.NewNoopAbuseGuard()
	}
	return &AuthHandler{authSvc: authSvc, guard: guard}
}

type loginRequest struct {
	IDToken string `json:"id_token"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	if strings.TrimSpace(req.IDToken) == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "id_token is required")
		return
	}

	ip := middleware.ClientIP(r)
	if cooldown, err := h.guard.Check(r.Context(), service.AbuseScopeLogin, "", ip); err == nil && cooldown > 0 {
		w.Header().Set("Retry-After", retryAfterSeconds(cooldown))
		response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many failed attempts, try again later")
		return
	}

	result, err := h.authSvc.LoginWithIDToken(r.Context(), strings.TrimSpace(req.IDToken))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			_, _ = h.guard.RegisterFailure(r.Context(), service.AbuseScopeLogin, "", ip)
			observability.Audit(r, "auth.login.failed", "reason", "invalid_credentials")
			response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials")
		case errors.Is(err, service.ErrVendorNotActivated):
			observability.Audit(r, "auth.login.failed", "reason", "vendor_not_activated")
			response.Error(w, r, http.StatusForbidden, "VENDOR_NOT_ACTIVATED", "complete email verification before signing in")
		case errors.Is(err, identity.ErrProviderUnavailable):
			observability.Audit(r, "auth.login.failed", "reason", "provider_unavailable")
			response.Error(w, r, http.StatusBadGateway, "PROVIDER_UNAVAILABLE", "identity provider is unavailable, try again later")
		default:
			observability.Audit(r, "auth.login.failed", "reason", "internal")
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "something went wrong")
		}
		return
	}

	_ = h.guard.Reset(r.Context(), service.AbuseScopeLogin, result.Account.Email, ip)
	observability.Audit(r, "auth.login.succeeded", "account_id", result.Account.ID, "role", result.Account.Role)
	response.JSON(w, r, http.StatusOK, map[string]any{
		"account":      accountSummary(result.Account),
		"access_token": result.AccessToken,
		"expires_at":   result.ExpiresAt,
	})
}
