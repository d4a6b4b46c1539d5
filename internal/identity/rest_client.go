package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/AquariesX/quick-delivey-sub001/internal/config"
	"github.com/AquariesX/quick-delivey-sub001/internal/observability"

	"golang.org/x/oauth2/clientcredentials"
)

// RESTClient talks to the identity-toolkit style HTTP API exposed by the
// provider. All calls are remote; there is no local state.
type RESTClient struct {
	baseURL string
	client  *http.Client
}

func NewRESTClient(cfg *config.Config) *RESTClient {
	client := &http.Client{Timeout: cfg.IdentityTimeout}
	if cfg.IdentityClientID != "" && cfg.IdentityTokenURL != "" {
		cc := &clientcredentials.Config{
			ClientID:     cfg.IdentityClientID,
			ClientSecret: cfg.IdentityClientSecret,
			TokenURL:     cfg.IdentityTokenURL,
		}
		client = cc.Client(context.Background())
		client.Timeout = cfg.IdentityTimeout
	}
	return &RESTClient{baseURL: strings.TrimRight(cfg.IdentityBaseURL, "/"), client: client}
}

type providerError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *RESTClient) CreateIdentity(ctx context.Context, id NewIdentity) (string, error) {
	var out struct {
		LocalID string `json:"localId"`
	}
	err := c.post(ctx, "signup", "/v1/accounts:signUp", map[string]any{
		"email":         id.Email,
		"password":      id.Password,
		"displayName":   id.DisplayName,
		"emailVerified": id.Verified,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.LocalID == "" {
		return "", fmt.Errorf("%w: signUp returned no identity id", ErrProviderUnavailable)
	}
	return out.LocalID, nil
}

func (c *RESTClient) FindIdentityByEmail(ctx context.Context, email string) (string, error) {
	var out struct {
		Users []struct {
			LocalID string `json:"localId"`
		} `json:"users"`
	}
	err := c.post(ctx, "lookup", "/v1/accounts:lookup", map[string]any{
		"email": []string{email},
	}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Users) == 0 {
		return "", ErrIdentityNotFound
	}
	return out.Users[0].LocalID, nil
}

func (c *RESTClient) UpdateIdentity(ctx context.Context, identityID string, patch IdentityPatch) error {
	body := map[string]any{"localId": identityID}
	if patch.Password != nil {
		body["password"] = *patch.Password
	}
	if patch.DisplayName != nil {
		body["displayName"] = *patch.DisplayName
	}
	if patch.Verified != nil {
		body["emailVerified"] = *patch.Verified
	}
	return c.post(ctx, "update", "/v1/accounts:update", body, nil)
}

func (c *RESTClient) VerifyActionCode(ctx context.Context, code string) (*ActionCodeInfo, error) {
	var out struct {
		Email string `json:"email"`
	}
	if err := c.post(ctx, "verify_oob", "/v1/accounts:verifyOobCode", map[string]any{"oobCode": code}, &out); err != nil {
		return nil, err
	}
	return &ActionCodeInfo{Email: out.Email}, nil
}

func (c *RESTClient) ApplyActionCode(ctx context.Context, code string) error {
	return c.post(ctx, "apply_oob", "/v1/accounts:applyOobCode", map[string]any{"oobCode": code}, nil)
}

func (c *RESTClient) VerifyIDToken(ctx context.Context, idToken string) (*IDTokenInfo, error) {
	var out struct {
		Users []struct {
			LocalID       string `json:"localId"`
			Email         string `json:"email"`
			EmailVerified bool   `json:"emailVerified"`
		} `json:"users"`
	}
	if err := c.post(ctx, "verify_token", "/v1/accounts:lookup", map[string]any{"idToken": idToken}, &out); err != nil {
		return nil, err
	}
	if len(out.Users) == 0 {
		return nil, ErrInvalidIDToken
	}
	u := out.Users[0]
	return &IDTokenInfo{IdentityID: u.LocalID, Email: strings.ToLower(u.Email), EmailVerified: u.EmailVerified}, nil
}

func (c *RESTClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: healthz status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *RESTClient) post(ctx context.Context, op, path string, body any, out any) error {
	start := time.Now()
	err := c.doPost(ctx, path, body, out)
	observability.RecordProviderRequestDuration(ctx, op, statusLabel(err), time.Since(start))
	return err
}

func (c *RESTClient) doPost(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var pe providerError
		if err := json.NewDecoder(resp.Body).Decode(&pe); err != nil {
			return fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
		}
		return mapProviderCode(pe.Error.Message, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrProviderUnavailable, err)
	}
	return nil
}

// mapProviderCode translates the provider's string error codes into the
// adapter taxonomy. Unknown 4xx codes are kept as opaque errors so callers
// do not confuse them with an outage.
func mapProviderCode(code string, status int) error {
	switch {
	case strings.HasPrefix(code, "EMAIL_EXISTS"):
		return ErrIdentityExists
	case strings.HasPrefix(code, "EMAIL_NOT_FOUND"), strings.HasPrefix(code, "USER_NOT_FOUND"):
		return ErrIdentityNotFound
	case strings.HasPrefix(code, "INVALID_OOB_CODE"):
		return ErrInvalidActionCode
	case strings.HasPrefix(code, "EXPIRED_OOB_CODE"):
		return ErrExpiredActionCode
	case strings.HasPrefix(code, "USER_DISABLED"):
		return ErrUserDisabled
	case strings.HasPrefix(code, "INVALID_ID_TOKEN"), strings.HasPrefix(code, "TOKEN_EXPIRED"):
		return ErrInvalidIDToken
	default:
		return fmt.Errorf("provider error %q (status %d)", code, status)
	}
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
