package di

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AquariesX/quick-delivey-sub001/internal/config"
	"github.com/AquariesX/quick-delivey-sub001/internal/service"
)

func TestProvideHTTPServer(t *testing.T) {
	cfg := &config.Config{HTTPPort: "9999"}
	srv := provideHTTPServer(cfg, nil)
	if srv.Addr != ":9999" {
		t.Fatalf("unexpected addr: %s", srv.Addr)
	}
	if srv.ReadTimeout.Seconds() != 10 {
		t.Fatalf("unexpected read timeout: %v", srv.ReadTimeout)
	}
}

func TestProvideRouterDependencies(t *testing.T) {
	cfg := &config.Config{
		CORSAllowedOrigins:  []string{"http://localhost:3000"},
		AuthRateLimitPerMin: 10,
		APIRateLimitPerMin:  100,
		OTELMetricsEnabled:  true,
	}
	dep := provideRouterDependencies(nil, nil, nil, nil, nil, cfg)
	if dep.AuthRateLimitRPM != 10 || dep.APIRateLimitRPM != 100 {
		t.Fatalf("unexpected rate limits: %+v", dep)
	}
	if !dep.EnableOTelHTTP {
		t.Fatal("expected otel http enabled")
	}
	if len(dep.CORSOrigins) != 1 || dep.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %+v", dep.CORSOrigins)
	}
	if dep.ActivationRateLimiter != nil {
		t.Fatal("expected local limiter fallback when redis is absent")
	}
}

func TestProvideRouterDependenciesRedisLimiter(t *testing.T) {
	cfg := &config.Config{AuthRateLimitPerMin: 5, APIRateLimitPerMin: 50}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	dep := provideRouterDependencies(nil, nil, nil, client, nil, cfg)
	if dep.ActivationRateLimiter == nil {
		t.Fatal("expected distributed activation limiter when redis is configured")
	}

	// The distributed limiter fails closed, so an unreachable redis rejects.
	h := dep.ActivationRateLimiter(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/activation/verify", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected fail-closed response when redis unavailable, got %d", rr.Code)
	}
}

func TestProvideRedisClient(t *testing.T) {
	cfg := &config.Config{RedisEnabled: false, RedisAddr: "localhost:6379"}
	if client := provideRedisClient(cfg); client != nil {
		t.Fatal("expected nil client when redis is disabled")
	}

	cfg.RedisEnabled = true
	cfg.RedisPassword = "secret"
	cfg.RedisDB = 2
	client := provideRedisClient(cfg)
	if client == nil {
		t.Fatal("expected redis client when enabled")
	}
	redisClient, ok := client.(*redis.Client)
	if !ok {
		t.Fatalf("expected *redis.Client, got %T", client)
	}
	opts := redisClient.Options()
	if opts.Addr != cfg.RedisAddr || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected redis options: %+v", opts)
	}
}

func TestProvideAbuseGuard(t *testing.T) {
	cfg := &config.Config{
		AbuseProtectionEnabled: true,
		AbuseFreeAttempts:      3,
		AbuseBaseDelay:         time.Second,
		AbuseMultiplier:        2,
		AbuseMaxDelay:          5 * time.Minute,
		AbuseResetWindow:       30 * time.Minute,
		AbuseRedisPrefix:       "activation_abuse",
	}
	if _, ok := provideAbuseGuard(cfg, nil).(*service.InMemoryAbuseGuard); !ok {
		t.Fatal("expected in-memory guard without redis")
	}

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	if _, ok := provideAbuseGuard(cfg, client).(*service.RedisAbuseGuard); !ok {
		t.Fatal("expected redis guard when redis is configured")
	}

	cfg.AbuseProtectionEnabled = false
	if _, ok := provideAbuseGuard(cfg, nil).(*service.NoopAbuseGuard); !ok {
		t.Fatal("expected noop guard when protection is disabled")
	}
}

func TestProvideReadinessProbeRunner(t *testing.T) {
	cfg := &config.Config{ReadinessProbeTimeout: time.Second}
	runner := provideReadinessProbeRunner(cfg, nil, nil, nil)
	if runner == nil {
		t.Fatal("expected probe runner even without dependencies")
	}
}

func TestProvideJWTManager(t *testing.T) {
	cfg := &config.Config{
		JWTSecret:    "abcdefghijklmnopqrstuvwxyz123456",
		JWTIssuer:    "iss",
		JWTAudience:  "aud",
		JWTAccessTTL: 15 * time.Minute,
	}
	mgr := provideJWTManager(cfg)
	token, err := mgr.SignAccessToken(7, "v@example.com", "VENDOR", cfg.JWTAccessTTL)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := mgr.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Email != "v@example.com" || claims.Role != "VENDOR" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}
