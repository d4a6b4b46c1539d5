package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AquariesX/quick-delivey-sub001/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *RESTClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRESTClient(&config.Config{
		IdentityBaseURL: srv.URL,
		IdentityTimeout: 2 * time.Second,
	})
}

func providerErrorResponse(w http.ResponseWriter, status int, code string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": status, "message": code},
	})
}

func TestCreateIdentitySuccess(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/accounts:signUp" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"localId": "idp_42"})
	})

	id, err := c.CreateIdentity(context.Background(), NewIdentity{
		Email: "v@x.com", Password: "Abcdef123456", DisplayName: "Vendor X", Verified: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != "idp_42" {
		t.Fatalf("expected idp_42, got %q", id)
	}
	if gotBody["emailVerified"] != true {
		t.Fatalf("expected pre-verified signup, got %+v", gotBody)
	}
}

func TestCreateIdentityEmailExists(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		providerErrorResponse(w, http.StatusBadRequest, "EMAIL_EXISTS")
	})

	_, err := c.CreateIdentity(context.Background(), NewIdentity{Email: "v@x.com"})
	if !errors.Is(err, ErrIdentityExists) {
		t.Fatalf("expected ErrIdentityExists, got %v", err)
	}
}

func TestCreateIdentityServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.CreateIdentity(context.Background(), NewIdentity{Email: "v@x.com"})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestCreateIdentityConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewRESTClient(&config.Config{IdentityBaseURL: srv.URL, IdentityTimeout: time.Second})

	_, err := c.CreateIdentity(context.Background(), NewIdentity{Email: "v@x.com"})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestFindIdentityByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"users": []map[string]any{{"localId": "idp_7"}},
			})
		})
		id, err := c.FindIdentityByEmail(context.Background(), "v@x.com")
		if err != nil || id != "idp_7" {
			t.Fatalf("expected idp_7, got %q err=%v", id, err)
		}
	})

	t.Run("empty user list", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"users": []any{}})
		})
		_, err := c.FindIdentityByEmail(context.Background(), "v@x.com")
		if !errors.Is(err, ErrIdentityNotFound) {
			t.Fatalf("expected ErrIdentityNotFound, got %v", err)
		}
	})

	t.Run("provider code", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			providerErrorResponse(w, http.StatusBadRequest, "EMAIL_NOT_FOUND")
		})
		_, err := c.FindIdentityByEmail(context.Background(), "v@x.com")
		if !errors.Is(err, ErrIdentityNotFound) {
			t.Fatalf("expected ErrIdentityNotFound, got %v", err)
		}
	})
}

func TestUpdateIdentitySendsOnlyPatchedFields(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{})
	})

	pw := "NewPassw0rd12"
	if err := c.UpdateIdentity(context.Background(), "idp_9", IdentityPatch{Password: &pw}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if gotBody["localId"] != "idp_9" || gotBody["password"] != pw {
		t.Fatalf("unexpected body: %+v", gotBody)
	}
	if _, ok := gotBody["displayName"]; ok {
		t.Fatal("displayName should not be sent when not patched")
	}
}

func TestActionCodeTaxonomy(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{"INVALID_OOB_CODE", ErrInvalidActionCode},
		{"EXPIRED_OOB_CODE", ErrExpiredActionCode},
		{"USER_DISABLED", ErrUserDisabled},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				providerErrorResponse(w, http.StatusBadRequest, tc.code)
			})
			_, err := c.VerifyActionCode(context.Background(), "oob123")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestVerifyActionCodeSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["oobCode"] != "oob123" {
			t.Errorf("unexpected body: %+v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"email": "v@x.com"})
	})

	info, err := c.VerifyActionCode(context.Background(), "oob123")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if info.Email != "v@x.com" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestVerifyIDToken(t *testing.T) {
	t.Run("success normalizes email", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"users": []map[string]any{{"localId": "idp_1", "email": "Vendor@X.com", "emailVerified": true}},
			})
		})
		info, err := c.VerifyIDToken(context.Background(), "token")
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if info.Email != "vendor@x.com" || info.IdentityID != "idp_1" || !info.EmailVerified {
			t.Fatalf("unexpected info: %+v", info)
		}
	})

	t.Run("invalid token code", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			providerErrorResponse(w, http.StatusUnauthorized, "INVALID_ID_TOKEN")
		})
		_, err := c.VerifyIDToken(context.Background(), "bad")
		if !errors.Is(err, ErrInvalidIDToken) {
			t.Fatalf("expected ErrInvalidIDToken, got %v", err)
		}
	})

	t.Run("no user", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"users": []any{}})
		})
		_, err := c.VerifyIDToken(context.Background(), "ghost")
		if !errors.Is(err, ErrInvalidIDToken) {
			t.Fatalf("expected ErrInvalidIDToken, got %v", err)
		}
	})
}
