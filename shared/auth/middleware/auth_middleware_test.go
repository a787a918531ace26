package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsetrack/shared/auth/pkg/jwtutil"
	"pulsetrack/shared/auth/rbac"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestGate(t *testing.T) (*Gate, *jwtutil.Authority) {
	t.Helper()
	authority, err := jwtutil.NewAuthority(testSecret, time.Hour)
	require.NoError(t, err)
	gate := NewGate(authority, GateConfig{
		PublicPrefixes: DefaultPublicPrefixes,
		AdminPrefixes:  DefaultAdminPrefixes,
	}, nil)
	return gate, authority
}

// echoPrincipal reports what the gate put into the request context.
func echoPrincipal(t *testing.T, seen *rbac.Principal, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if p, ok := PrincipalFrom(r.Context()); ok {
			*seen = p
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestGateAllowsPublicPathsWithoutToken(t *testing.T) {
	gate, _ := newTestGate(t)
	var p rbac.Principal
	var called bool
	h := gate.Handler(echoPrincipal(t, &p, &called))

	for _, path := range []string{"/auth/login", "/actuator/health", "/api-docs/index"} {
		called = false
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Authorization", "Bearer garbage")
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.True(t, called, path)
	}
}

func TestGateRejectsWithEmptyBody(t *testing.T) {
	gate, authority := newTestGate(t)
	expired, err := jwtutil.NewAuthority(testSecret, time.Hour,
		jwtutil.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }))
	require.NoError(t, err)
	stale, err := expired.Issue("a@x.com", rbac.RoleUser)
	require.NoError(t, err)
	valid, err := authority.Issue("a@x.com", rbac.RoleUser)
	require.NoError(t, err)

	cases := map[string]string{
		"missing header": "",
		"basic scheme":   "Basic YTpi",
		"lowercase":      "bearer " + valid,
		"empty bearer":   "Bearer ",
		"garbage":        "Bearer abc.def.ghi",
		"expired":        "Bearer " + stale,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			var p rbac.Principal
			var called bool
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			gate.Handler(echoPrincipal(t, &p, &called)).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Empty(t, rec.Body.Bytes())
			assert.False(t, called)
		})
	}
}

func TestGateStoresPrincipal(t *testing.T) {
	gate, authority := newTestGate(t)
	tok, err := authority.Issue("a@x.com", rbac.RoleUser)
	require.NoError(t, err)

	var p rbac.Principal
	var called bool
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	gate.Handler(echoPrincipal(t, &p, &called)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, rbac.Principal{Subject: "a@x.com", Role: rbac.RoleUser}, p)
}

func TestGateAdminPaths(t *testing.T) {
	gate, authority := newTestGate(t)
	userTok, err := authority.Issue("a@x.com", rbac.RoleUser)
	require.NoError(t, err)
	adminTok, err := authority.Issue("root@x.com", rbac.RoleAdmin)
	require.NoError(t, err)

	serve := func(tok string) int {
		var p rbac.Principal
		var called bool
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/analytics/events", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		gate.Handler(echoPrincipal(t, &p, &called)).ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusForbidden, serve(userTok))
	assert.Equal(t, http.StatusOK, serve(adminTok))
}

// readOnly grants USER read access only.
type readOnly struct{}

func (readOnly) Authorize(p rbac.Principal, perm rbac.Permission) bool {
	if p.Role == rbac.RoleUser {
		return perm == rbac.PermPatientsRead
	}
	return p.Can(perm)
}

func TestGateMethodScopedRules(t *testing.T) {
	authority, err := jwtutil.NewAuthority(testSecret, time.Hour)
	require.NoError(t, err)
	gate := NewGate(authority, GateConfig{
		PublicPrefixes: DefaultPublicPrefixes,
		Rules:          DefaultRules,
		Authorizer:     readOnly{},
	}, nil)
	tok, err := authority.Issue("a@x.com", rbac.RoleUser)
	require.NoError(t, err)

	serve := func(method string) int {
		var p rbac.Principal
		var called bool
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(method, "/api/patients/1", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		gate.Handler(echoPrincipal(t, &p, &called)).ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, serve(http.MethodGet))
	assert.Equal(t, http.StatusForbidden, serve(http.MethodDelete))
	assert.Equal(t, http.StatusForbidden, serve(http.MethodPost))
}

func TestForwardedIdentity(t *testing.T) {
	var p rbac.Principal
	var called bool
	h := ForwardedIdentity(echoPrincipal(t, &p, &called))

	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	SetIdentityHeaders(WithPrincipal(req.Context(), rbac.Principal{Subject: "a@x.com", Role: rbac.RoleAdmin}), req.Header)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "a@x.com", p.Subject)
	assert.Equal(t, rbac.RoleAdmin, p.Role)

	p = rbac.Principal{}
	req = httptest.NewRequest(http.MethodGet, "/patients", nil)
	req.Header.Set(HeaderUserEmail, "a@x.com")
	req.Header.Set(HeaderUserRole, "ROOT")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Empty(t, p.Subject)
}

func TestSetIdentityHeadersStripsSpoofedValues(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderUserEmail, "mallory@x.com")
	h.Set(HeaderUserRole, "ADMIN")

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	SetIdentityHeaders(req.Context(), h)
	assert.Empty(t, h.Get(HeaderUserEmail))
	assert.Empty(t, h.Get(HeaderUserRole))
}

func TestRateLimiterFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 20 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	var called bool
	h := RateLimiter(rdb, RateLimitConfig{Limit: 1, Window: time.Minute, BlockDuration: time.Minute, KeyPrefix: "rl"}, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/patients", nil))
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, "ip:10.0.0.9", clientKey(req, false))

	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, "ip:10.0.0.9", clientKey(req, false))
	assert.Equal(t, "ip:1.2.3.4", clientKey(req, true))

	req.Header.Set("X-Forwarded-For", " , 10.0.0.1")
	assert.Equal(t, "ip:10.0.0.9", clientKey(req, true))

	req = req.WithContext(WithPrincipal(req.Context(), rbac.Principal{Subject: "a@x.com", Role: rbac.RoleUser}))
	assert.Equal(t, "sub:a@x.com", clientKey(req, false))
}

// counterRedis implements the few commands RateLimiter issues; anything
// else panics via the nil embedded interface.
type counterRedis struct {
	redis.Cmdable
	mu   sync.Mutex
	vals map[string]string
}

func newCounterRedis() *counterRedis { return &counterRedis{vals: map[string]string{}} }

func (c *counterRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vals[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (c *counterRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := strconv.ParseInt(c.vals[key], 10, 64)
	n++
	c.vals[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func (c *counterRedis) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func (c *counterRedis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (c *counterRedis) TTL(ctx context.Context, key string) *redis.DurationCmd {
	return redis.NewDurationResult(time.Minute, nil)
}

func TestRateLimiterIgnoresRotatedForwardedFor(t *testing.T) {
	cfg := RateLimitConfig{Limit: 2, Window: time.Minute, BlockDuration: time.Minute, KeyPrefix: "rl"}
	h := RateLimiter(newCounterRedis(), cfg, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestRateLimiterTrustedForwardedForSeparatesClients(t *testing.T) {
	cfg := RateLimitConfig{Limit: 1, Window: time.Minute, BlockDuration: time.Minute, KeyPrefix: "rl", TrustForwarded: true}
	h := RateLimiter(newCounterRedis(), cfg, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.2:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d, 10.0.0.2", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
