package integration

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/AquariesX/quick-delivey-sub001/internal/domain"
	"github.com/AquariesX/quick-delivey-sub001/internal/identity"
)

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Account     struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"account"`
}

func TestActivatedVendorCanLogin(t *testing.T) {
	env, closeFn := newActivationTestServer(t, testServerOptions{})
	defer closeFn()

	seedAccount(t, env.db, domain.Account{
		Email:         "vendor@example.com",
		Username:      "Vendor",
		Role:          domain.RoleVendor,
		EmailVerified: true,
		IdentityID:    "idp_9",
	})
	env.provider.EXPECT().
		VerifyIDToken(gomock.Any(), "good-id-token").
		Return(&identity.IDTokenInfo{IdentityID: "idp_9", Email: "vendor@example.com", EmailVerified: true}, nil)

	resp, envlp := doJSON(t, env.client, http.MethodPost, env.baseURL+"/api/v1/auth/login", map[string]string{
		"id_token": "good-id-token",
	}, nil)
	if resp.StatusCode != http.StatusOK || !envlp.Success {
		t.Fatalf("login failed: status=%d error=%#v", resp.StatusCode, envlp.Error)
	}

	var data loginResponse
	if err := json.Unmarshal(envlp.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	claims, err := env.jwt.ParseAccessToken(data.AccessToken)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.Email != "vendor@example.com" || claims.Role != "VENDOR" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestUnactivatedVendorLoginBlocked(t *testing.T) {
	env, closeFn := newActivationTestServer(t, testServerOptions{})
	defer closeFn()

	// Verified but still on a placeholder identity: not ACTIVE yet.
	seedAccount(t, env.db, domain.Account{
		Email:         "pending@example.com",
		Username:      "Pending Vendor",
		Role:          domain.RoleVendor,
		EmailVerified: true,
		IdentityID:    "temp_123",
	})
	env.provider.EXPECT().
		VerifyIDToken(gomock.Any(), "pending-token").
		Return(&identity.IDTokenInfo{IdentityID: "idp_x", Email: "pending@example.com", EmailVerified: true}, nil)

	resp, envlp := doJSON(t, env.client, http.MethodPost, env.baseURL+"/api/v1/auth/login", map[string]string{
		"id_token": "pending-token",
	}, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if envlp.Error == nil || envlp.Error.Code != "VENDOR_NOT_ACTIVATED" {
		t.Fatalf("expected VENDOR_NOT_ACTIVATED, got %#v", envlp.Error)
	}
}

func TestLoginWithBadIDTokenRejected(t *testing.T) {
	env, closeFn := newActivationTestServer(t, testServerOptions{})
	defer closeFn()

	env.provider.EXPECT().
		VerifyIDToken(gomock.Any(), "forged").
		Return(nil, identity.ErrInvalidIDToken)

	resp, envlp := doJSON(t, env.client, http.MethodPost, env.baseURL+"/api/v1/auth/login", map[string]string{
		"id_token": "forged",
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if envlp.Error == nil || envlp.Error.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("expected INVALID_CREDENTIALS, got %#v", envlp.Error)
	}
}

func TestRepairEndpointRejectsNonAdmin(t *testing.T) {
	env, closeFn := newActivationTestServer(t, testServerOptions{})
	defer closeFn()

	vendorToken, err := env.jwt.SignAccessToken(5, "vendor@example.com", string(domain.RoleVendor), env.cfg.JWTAccessTTL)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	resp, _ := doJSON(t, env.client, http.MethodPost, env.baseURL+"/api/v1/activation/repair-identity", map[string]string{
		"email": "anyone@example.com",
	}, map[string]string{"Authorization": "Bearer " + vendorToken})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for vendor token, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, env.client, http.MethodPost, env.baseURL+"/api/v1/activation/repair-identity", map[string]string{
		"email": "anyone@example.com",
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}
