package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/AquariesX/quick-delivey-sub001/internal/config"
	"github.com/AquariesX/quick-delivey-sub001/internal/database"
	"github.com/AquariesX/quick-delivey-sub001/internal/domain"
	"github.com/AquariesX/quick-delivey-sub001/internal/http/handler"
	"github.com/AquariesX/quick-delivey-sub001/internal/http/router"
	"github.com/AquariesX/quick-delivey-sub001/internal/identity/identitymock"
	"github.com/AquariesX/quick-delivey-sub001/internal/repository"
	"github.com/AquariesX/quick-delivey-sub001/internal/security"
	"github.com/AquariesX/quick-delivey-sub001/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *errorBody      `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type testServerOptions struct {
	cfgOverride func(*config.Config)
	guard       service.AbuseGuard
}

type testEnv struct {
	baseURL  string
	client   *http.Client
	provider *identitymock.MockProvider
	db       *gorm.DB
	cfg      *config.Config
	jwt      *security.JWTManager
}

func newActivationTestServer(t *testing.T, opts testServerOptions) (*testEnv, func()) {
	t.Helper()

	cfg := &config.Config{
		Env:                    "test",
		VerificationTokenTTL:   24 * time.Hour,
		IdentityMinPasswordLen: 12,
		JWTSecret:              "integration-secret-0123456789abcdef",
		JWTIssuer:              "quick-delivey",
		JWTAudience:            "quick-delivey-api",
		JWTAccessTTL:           15 * time.Minute,
		AuthRateLimitPerMin:    1000,
		APIRateLimitPerMin:     1000,
		CORSAllowedOrigins:     []string{"http://localhost:3000"},
	}
	if opts.cfgOverride != nil {
		opts.cfgOverride(cfg)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.NewAccountRepository(db, 1, time.Millisecond)
	ctrl := gomock.NewController(t)
	provider := identitymock.NewMockProvider(ctrl)
	notifier := service.NewDevNotifier(logger)
	jwtMgr := security.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)

	activationSvc := service.NewActivationService(cfg, repo, provider, notifier, logger)
	authSvc := service.NewAuthService(cfg, repo, provider, jwtMgr, logger)

	guard := opts.guard
	if guard == nil {
		guard = service.NewNoopAbuseGuard()
	}

	h := router.NewRouter(router.Dependencies{
		ActivationHandler: handler.NewActivationHandler(activationSvc, guard),
		AuthHandler:       handler.NewAuthHandler(authSvc, guard),
		JWTManager:        jwtMgr,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		AuthRateLimitRPM:  cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:   cfg.APIRateLimitPerMin,
	})
	srv := httptest.NewServer(h)

	env := &testEnv{
		baseURL:  srv.URL,
		client:   srv.Client(),
		provider: provider,
		db:       db,
		cfg:      cfg,
		jwt:      jwtMgr,
	}
	return env, srv.Close
}

func seedAccount(t *testing.T, db *gorm.DB, account domain.Account) *domain.Account {
	t.Helper()
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("seed account %s: %v", account.Email, err)
	}
	return &account
}

func loadAccount(t *testing.T, db *gorm.DB, email string) *domain.Account {
	t.Helper()
	var account domain.Account
	if err := db.Where("email = ?", email).First(&account).Error; err != nil {
		t.Fatalf("load account %s: %v", email, err)
	}
	return &account
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, envelope) {
	t.Helper()
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, env
}

// adminToken signs a short-lived access token for an operator account so
// tests can reach the admin-only repair endpoint.
func adminToken(t *testing.T, env *testEnv) string {
	t.Helper()
	token, err := env.jwt.SignAccessToken(999, "ops@example.com", string(domain.RoleAdmin), env.cfg.JWTAccessTTL)
	if err != nil {
		t.Fatalf("sign admin token: %v", err)
	}
	return token
}

func strPtr(s string) *string { return &s }
