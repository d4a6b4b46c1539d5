package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/AquariesX/quick-delivey-sub001/internal/app"
	"github.com/AquariesX/quick-delivey-sub001/internal/config"
	"github.com/AquariesX/quick-delivey-sub001/internal/database"
	"github.com/AquariesX/quick-delivey-sub001/internal/health"
	"github.com/AquariesX/quick-delivey-sub001/internal/http/handler"
	"github.com/AquariesX/quick-delivey-sub001/internal/http/middleware"
	"github.com/AquariesX/quick-delivey-sub001/internal/http/router"
	"github.com/AquariesX/quick-delivey-sub001/internal/identity"
	"github.com/AquariesX/quick-delivey-sub001/internal/observability"
	"github.com/AquariesX/quick-delivey-sub001/internal/repository"
	"github.com/AquariesX/quick-delivey-sub001/internal/security"
	"github.com/AquariesX/quick-delivey-sub001/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(provideAccountRepository)

var SecuritySet = wire.NewSet(provideJWTManager)

var IdentitySet = wire.NewSet(
	identity.NewRESTClient,
	wire.Bind(new(identity.Provider), new(*identity.RESTClient)),
)

var ServiceSet = wire.NewSet(
	service.NewNotifier,
	provideAbuseGuard,
	service.NewActivationService,
	service.NewAuthService,
	wire.Bind(new(service.ActivationServiceInterface), new(*service.ActivationService)),
	wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
)

var HTTPSet = wire.NewSet(
	handler.NewActivationHandler,
	handler.NewAuthHandler,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideApp)

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideRuntimeDB(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	report, err := database.Seed(db, cfg.BootstrapAdminEmail)
	if err != nil {
		return nil, err
	}
	if report.CreatedAdmin {
		logger.Info("bootstrap admin created", "email", cfg.BootstrapAdminEmail)
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config) redis.UniversalClient {
	if !cfg.RedisEnabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func provideAccountRepository(cfg *config.Config, db *gorm.DB) repository.AccountRepository {
	return repository.NewAccountRepository(db, cfg.StoreRetryCount, cfg.StoreRetryBackoff)
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
}

func provideAbuseGuard(cfg *config.Config, redisClient redis.UniversalClient) service.AbuseGuard {
	if !cfg.AbuseProtectionEnabled {
		return service.NewNoopAbuseGuard()
	}
	policy := service.AbusePolicy{
		FreeAttempts: cfg.AbuseFreeAttempts,
		BaseDelay:    cfg.AbuseBaseDelay,
		Multiplier:   cfg.AbuseMultiplier,
		MaxDelay:     cfg.AbuseMaxDelay,
		ResetWindow:  cfg.AbuseResetWindow,
	}
	if redisClient != nil {
		return service.NewRedisAbuseGuard(redisClient, cfg.AbuseRedisPrefix, policy)
	}
	return service.NewInMemoryAbuseGuard(policy)
}

func provideRouterDependencies(
	activationHandler *handler.ActivationHandler,
	authHandler *handler.AuthHandler,
	jwt *security.JWTManager,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	var activationLimiter func(http.Handler) http.Handler
	if redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, "rl:activation")
		activationLimiter = middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.AuthRateLimitPerMin,
			time.Minute,
			middleware.FailClosed,
			"activation",
		).Middleware()
	}
	return router.Dependencies{
		ActivationHandler:     activationHandler,
		AuthHandler:           authHandler,
		JWTManager:            jwt,
		CORSOrigins:           cfg.CORSAllowedOrigins,
		AuthRateLimitRPM:      cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:       cfg.APIRateLimitPerMin,
		ActivationRateLimiter: activationLimiter,
		Readiness:             readiness,
		EnableOTelHTTP:        cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient, provider identity.Provider) *health.ProbeRunner {
	checkers := make([]health.Checker, 0, 3)
	if c := health.NewDBChecker(db); c != nil {
		checkers = append(checkers, c)
	}
	if redisClient != nil {
		if c := health.NewRedisChecker(redisClient); c != nil {
			checkers = append(checkers, c)
		}
	}
	if c := health.NewIdentityProviderChecker(provider); c != nil {
		checkers = append(checkers, c)
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
) *app.App {
	return app.New(cfg, logger, server, runtime, db, redisClient)
}
