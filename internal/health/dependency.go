package health

import (
	"context"

	"github.com/AquariesX/quick-delivey-sub001/internal/identity"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type DBChecker struct {
	db *gorm.DB
}

func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return &DBChecker{db: db}
}

func (c *DBChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "db", Healthy: true}
	sqlDB, err := c.db.DB()
	if err != nil {
		res.Healthy = false
		res.Error = err.Error()
		return res
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "redis", Healthy: true}
	if err := c.client.Ping(ctx).Err(); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

// IdentityProviderChecker reports provider reachability. The activation flow
// survives a provider outage via the degraded fallback, but readiness still
// surfaces it.
type IdentityProviderChecker struct {
	provider identity.Provider
}

func NewIdentityProviderChecker(provider identity.Provider) Checker {
	if provider == nil {
		return nil
	}
	return &IdentityProviderChecker{provider: provider}
}

func (c *IdentityProviderChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "identity_provider", Healthy: true}
	if err := c.provider.Ping(ctx); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}
