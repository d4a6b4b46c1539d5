package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/AquariesX/quick-delivey-sub001/internal/domain"
	"github.com/AquariesX/quick-delivey-sub001/internal/identity"
	"github.com/AquariesX/quick-delivey-sub001/internal/service"
)

type stubAuthService struct {
	result *service.LoginResult
	err    error
}

func (s *stubAuthService) LoginWithIDToken(context.Context, string) (*service.LoginResult, error) {
	return s.result, s.err
}

func TestLoginHandlerSuccess(t *testing.T) {
	account := &domain.Account{
		ID: 1, IdentityID: "idp_42", Username: "Vendor", Email: "v@x.com",
		Role: domain.RoleVendor, EmailVerified: true,
	}
	h := NewAuthHandler(&stubAuthService{result: &service.LoginResult{
		Account:     account,
		AccessToken: "signed.jwt.token",
		ExpiresAt:   time.Now().Add(15 * time.Minute),
	}}, nil)

	rec := doJSON(t, h.Login, `{"id_token":"provider-token"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["access_token"] != "signed.jwt.token" {
		t.Errorf("access_token = %v", data["access_token"])
	}
	if strings.Contains(rec.Body.String(), "credential") {
		t.Error("credential material leaked into login response")
	}
}

func TestLoginHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"vendor gate", service.ErrVendorNotActivated, http.StatusForbidden, "VENDOR_NOT_ACTIVATED"},
		{"provider down", identity.ErrProviderUnavailable, http.StatusBadGateway, "PROVIDER_UNAVAILABLE"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAuthHandler(&stubAuthService{err: tc.err}, nil)
			rec := doJSON(t, h.Login, `{"id_token":"provider-token"}`)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if code := errorCodeOf(t, rec); code != tc.wantCode {
				t.Errorf("code = %q, want %q", code, tc.wantCode)
			}
		})
	}
}

func TestLoginHandlerValidation(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, nil)
	for name, body := range map[string]string{
		"bad json":   `{`,
		"empty body": `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := doJSON(t, h.Login, body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}
