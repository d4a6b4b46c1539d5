package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// AbuseScope separates cooldown state per entry point, so a burst of bad
// verification tokens does not lock the same caller out of login.
type AbuseScope string

const (
	AbuseScopeVerify AbuseScope = "verify"
	AbuseScopeReset  AbuseScope = "reset"
	AbuseScopeLogin  AbuseScope = "login"
)

// AbusePolicy drives exponential cooldowns after FreeAttempts failures
// within ResetWindow.
type AbusePolicy struct {
	FreeAttempts int
	BaseDelay    time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	ResetWindow  time.Duration
}

// AbuseGuard throttles repeated failures against the activation and login
// endpoints, keyed independently by subject (email) and caller IP.
type AbuseGuard interface {
	Check(ctx context.Context, scope AbuseScope, subject, ip string) (time.Duration, error)
	RegisterFailure(ctx context.Context, scope AbuseScope, subject, ip string) (time.Duration, error)
	Reset(ctx context.Context, scope AbuseScope, subject, ip string) error
}

type NoopAbuseGuard struct{}

func NewNoopAbuseGuard() *NoopAbuseGuard { return &NoopAbuseGuard{} }

func (g *NoopAbuseGuard) Check(context.Context, AbuseScope, string, string) (time.Duration, error) {
	return 0, nil
}

func (g *NoopAbuseGuard) RegisterFailure(context.Context, AbuseScope, string, string) (time.Duration, error) {
	return 0, nil
}

func (g *NoopAbuseGuard) Reset(context.Context, AbuseScope, string, string) error {
	return nil
}

type abuseEntry struct {
	failCount     int
	lastFailureAt time.Time
	cooldownUntil time.Time
}

// InMemoryAbuseGuard is the single-instance fallback used when redis is
// disabled.
type InMemoryAbuseGuard struct {
	mu     sync.Mutex
	policy AbusePolicy
	data   map[string]abuseEntry
}

func NewInMemoryAbuseGuard(policy AbusePolicy) *InMemoryAbuseGuard {
	return &InMemoryAbuseGuard{policy: normalizeAbusePolicy(policy), data: make(map[string]abuseEntry)}
}

func (g *InMemoryAbuseGuard) Check(_ context.Context, scope AbuseScope, subject, ip string) (time.Duration, error) {
	now := time.Now().UTC()
	g.mu.Lock()
	defer g.mu.Unlock()

	subjectDelay := g.activeCooldownLocked(now, abuseStateKey("", scope, "subject", normalizeAbuseSubject(subject)))
	ipDelay := g.activeCooldownLocked(now, abuseStateKey("", scope, "ip", normalizeAbuseIP(ip)))
	return max(subjectDelay, ipDelay), nil
}

func (g *InMemoryAbuseGuard) RegisterFailure(_ context.Context, scope AbuseScope, subject, ip string) (time.Duration, error) {
	now := time.Now().UTC()
	g.mu.Lock()
	defer g.mu.Unlock()

	subjectDelay := g.bumpLocked(now, abuseStateKey("", scope, "subject", normalizeAbuseSubject(subject)))
	ipDelay := g.bumpLocked(now, abuseStateKey("", scope, "ip", normalizeAbuseIP(ip)))
	return max(subjectDelay, ipDelay), nil
}

func (g *InMemoryAbuseGuard) Reset(_ context.Context, scope AbuseScope, subject, ip string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.data, abuseStateKey("", scope, "subject", normalizeAbuseSubject(subject)))
	delete(g.data, abuseStateKey("", scope, "ip", normalizeAbuseIP(ip)))
	return nil
}

func (g *InMemoryAbuseGuard) bumpLocked(now time.Time, key string) time.Duration {
	entry := g.data[key]
	if entry.lastFailureAt.IsZero() || now.Sub(entry.lastFailureAt) > g.policy.ResetWindow {
		entry.failCount = 0
	}
	entry.failCount++
	entry.lastFailureAt = now
	delay := computeAbuseDelay(g.policy, entry.failCount)
	entry.cooldownUntil = now.Add(delay)
	g.data[key] = entry
	return delay
}

func (g *InMemoryAbuseGuard) activeCooldownLocked(now time.Time, key string) time.Duration {
	entry, ok := g.data[key]
	if !ok {
		return 0
	}
	if now.Sub(entry.lastFailureAt) > g.policy.ResetWindow {
		delete(g.data, key)
		return 0
	}
	if now.After(entry.cooldownUntil) {
		return 0
	}
	return entry.cooldownUntil.Sub(now)
}

func computeAbuseDelay(policy AbusePolicy, failCount int) time.Duration {
	if failCount <= policy.FreeAttempts {
		return 0
	}
	power := math.Pow(policy.Multiplier, float64(failCount-policy.FreeAttempts-1))
	delay := time.Duration(float64(policy.BaseDelay) * power)
	if delay > policy.MaxDelay {
		return policy.MaxDelay
	}
	return delay
}

func abuseStateKey(prefix string, scope AbuseScope, dim, value string) string {
	digest := sha256.Sum256([]byte(value))
	if prefix == "" {
		return fmt.Sprintf("%s:%s:%s", scope, dim, hex.EncodeToString(digest[:16]))
	}
	return fmt.Sprintf("%s:%s:%s:%s", prefix, scope, dim, hex.EncodeToString(digest[:16]))
}

func normalizeAbuseSubject(subject string) string {
	v := strings.TrimSpace(strings.ToLower(subject))
	if v == "" {
		return "anonymous"
	}
	return v
}

func normalizeAbuseIP(ip string) string {
	v := strings.TrimSpace(strings.ToLower(ip))
	if v == "" {
		return "unknown"
	}
	return v
}

func normalizeAbusePolicy(policy AbusePolicy) AbusePolicy {
	if policy.FreeAttempts < 0 {
		policy.FreeAttempts = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 2 * time.Second
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 2
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = 5 * time.Minute
	}
	if policy.ResetWindow <= 0 {
		policy.ResetWindow = 30 * time.Minute
	}
	return policy
}
