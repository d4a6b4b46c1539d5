package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/AquariesX/quick-delivey-sub001/internal/service"
)

func TestRepeatedInvalidTokensTriggerCooldown(t *testing.T) {
	guard := service.NewInMemoryAbuseGuard(service.AbusePolicy{
		FreeAttempts: 1,
		BaseDelay:    time.Minute,
		Multiplier:   2,
		MaxDelay:     5 * time.Minute,
		ResetWindow:  30 * time.Minute,
	})
	env, closeFn := newActivationTestServer(t, testServerOptions{guard: guard})
	defer closeFn()

	body := map[string]string{"token": "tok_bogus", "email": "target@example.com"}

	// First failure is within the free attempts.
	resp, envlp := doJSON(t, env.client, http.MethodPost, env.baseURL+"/api/v1/activation/verify", body, nil)
	if resp.StatusCode != http.StatusBadRequest || envlp.Error == nil || envlp.Error.Code != "INVALID_TOKEN" {
		t.Fatalf("first attempt: status=%d error=%#v", resp.StatusCode, envlp.Error)
	}

	// Second failure starts the cooldown.
	resp, _ = doJSON(t, env.client, http.MethodPost, env.baseURL+"/api/v1/activation/verify", body, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("second attempt: status=%d", resp.StatusCode)
	}

	resp, envlp = doJSON(t, env.client, http.MethodPost, env.baseURL+"/api/v1/activation/verify", body, nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected cooldown 429, got %d", resp.StatusCode)
	}
	if envlp.Error == nil || envlp.Error.Code != "RATE_LIMITED" {
		t.Fatalf("expected RATE_LIMITED, got %#v", envlp.Error)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("expected Retry-After header on cooldown response")
	}

	// The IP dimension throttles too: switching subjects does not help the
	// same caller.
	resp, _ = doJSON(t, env.client, http.MethodPost, env.baseURL+"/api/v1/activation/verify", map[string]string{
		"token": "tok_bogus",
		"email": "someone-else@example.com",
	}, nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("same caller with new subject should stay throttled, got %d", resp.StatusCode)
	}
}
