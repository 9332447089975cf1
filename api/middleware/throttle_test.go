package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/ecofinds-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
)

type countingLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newCountingLimiter() *countingLimiter {
	return &countingLimiter{counts: map[string]int64{}}
}

func (c *countingLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, 0, c.err
	}
	c.counts[scope]++
	return c.counts[scope] <= limit, c.counts[scope], nil
}

func okHandler(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func signinRequest(email string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = "1.2.3.4:5678"
	return req
}

func TestThrottleCountsBucketsAndRestoresBody(t *testing.T) {
	limiter := newCountingLimiter()
	policy := ThrottlePolicy{Name: "signin", Window: time.Minute, PerIP: 2, PerEmail: 2}
	handler := Throttle(policy, limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if !strings.Contains(string(body), `"email":"Tester@example.com"`) {
			t.Fatalf("body was not restored: %s", body)
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signinRequest("Tester@example.com"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if limiter.counts["signin:ip:1.2.3.4"] != 1 || limiter.counts["signin:email:"+digest("tester@example.com")] != 1 {
		t.Fatalf("unexpected counters %v", limiter.counts)
	}
}

func TestThrottleBlocksAfterEmailLimit(t *testing.T) {
	handler := Throttle(ThrottlePolicy{Name: "signin", Window: time.Minute, PerEmail: 2}, newCountingLimiter(), nil)(http.HandlerFunc(okHandler))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, signinRequest("blocked@example.com"))
		if i < 2 {
			if rec.Code != http.StatusOK {
				t.Fatalf("attempt %d: expected 200, got %d", i, rec.Code)
			}
			continue
		}
		if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "60" {
			t.Fatalf("expected 429 with retry-after, got %d %q", rec.Code, rec.Header().Get("Retry-After"))
		}
		var payload struct {
			Error struct {
				Code      string `json:"code"`
				Retryable bool   `json:"retryable"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if payload.Error.Code != string(pkgerrors.CodeRateLimit) || !payload.Error.Retryable {
			t.Fatalf("unexpected error %+v", payload.Error)
		}
	}
}

func TestThrottleKeysOnForwardedFor(t *testing.T) {
	limiter := newCountingLimiter()
	handler := Throttle(ThrottlePolicy{Name: "signup", Window: time.Minute, PerIP: 1}, limiter, nil)(http.HandlerFunc(okHandler))

	codes := []int{}
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", strings.NewReader(`{}`))
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", "5.6.7.8, 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}
	if limiter.counts["signup:ip:5.6.7.8"] != 2 {
		t.Fatalf("expected forwarded ip key, got %v", limiter.counts)
	}
}

func TestThrottleLimiterFailureIsDependencyError(t *testing.T) {
	limiter := newCountingLimiter()
	limiter.err = errors.New("redis down")
	handler := Throttle(ThrottlePolicy{Window: time.Minute, PerIP: 1}, limiter, nil)(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signinRequest("a@b.co"))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestThrottleInactivePolicyPassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	for _, policy := range []ThrottlePolicy{
		{Name: "x", PerIP: 5, PerEmail: 5},
		{Name: "x", Window: time.Minute},
	} {
		rec := httptest.NewRecorder()
		Throttle(policy, newCountingLimiter(), nil)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("policy %+v: expected passthrough, got %d", policy, rec.Code)
		}
	}
}

func TestPoliciesFromConfig(t *testing.T) {
	cfg := config.AuthRateLimitConfig{SignInWindow: time.Minute, SignInIPLimit: 20, SignInEmailLimit: 5, SignUpWindow: 5 * time.Minute, SignUpIPLimit: 10, SignUpEmailLimit: 3}
	if p := SignInThrottle(cfg); p.Name != "signin" || p.PerEmail != 5 || p.PerIP != 20 {
		t.Fatalf("unexpected sign-in policy %+v", p)
	}
	if p := SignUpThrottle(cfg); p.Name != "signup" || p.Window != 5*time.Minute || p.PerEmail != 3 {
		t.Fatalf("unexpected sign-up policy %+v", p)
	}
}
