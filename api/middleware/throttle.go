package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/ecofinds-storefront/api/responses"
	"github.com/angelmondragon/ecofinds-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
)

const maxThrottledBodyBytes = 64 << 10

// RateLimiter counts attempts per scope inside a fixed window.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// ThrottlePolicy bounds attempts on one credential endpoint. A zero limit
// disables that bucket.
type ThrottlePolicy struct {
	Name     string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func SignInThrottle(cfg config.AuthRateLimitConfig) ThrottlePolicy {
	return ThrottlePolicy{Name: "signin", Window: cfg.SignInWindow, PerIP: cfg.SignInIPLimit, PerEmail: cfg.SignInEmailLimit}
}

func SignUpThrottle(cfg config.AuthRateLimitConfig) ThrottlePolicy {
	return ThrottlePolicy{Name: "signup", Window: cfg.SignUpWindow, PerIP: cfg.SignUpIPLimit, PerEmail: cfg.SignUpEmailLimit}
}

func (p ThrottlePolicy) active() bool {
	return p.Window > 0 && (p.PerIP > 0 || p.PerEmail > 0)
}

type bucket struct {
	kind  string
	key   string
	limit int
}

// Throttle rejects requests once the client IP or the hashed, lowercased
// email in the JSON body has exceeded its bucket for the window.
func Throttle(policy ThrottlePolicy, limiter RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	if strings.TrimSpace(policy.Name) == "" {
		policy.Name = "auth"
	}
	return func(next http.Handler) http.Handler {
		if !policy.active() || limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			buckets, err := policy.buckets(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			for _, b := range buckets {
				if !policy.admit(r.Context(), w, limiter, b, logg) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// buckets resolves the keys for r, restoring the body it peeks at.
func (p ThrottlePolicy) buckets(r *http.Request) ([]bucket, error) {
	var out []bucket
	if ip := clientIP(r); p.PerIP > 0 && ip != "" {
		out = append(out, bucket{kind: "ip", key: ip, limit: p.PerIP})
	}
	if p.PerEmail > 0 && r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxThrottledBodyBytes))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request")
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		if email := emailFrom(body); email != "" {
			out = append(out, bucket{kind: "email", key: digest(email), limit: p.PerEmail})
		}
	}
	return out, nil
}

func (p ThrottlePolicy) admit(ctx context.Context, w http.ResponseWriter, limiter RateLimiter, b bucket, logg *logger.Logger) bool {
	allowed, count, err := limiter.FixedWindowAllow(ctx, p.Name+":"+b.kind+":"+b.key, int64(b.limit), p.Window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return false
	}
	if allowed {
		return true
	}

	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":         p.Name,
			"bucket":         b.kind,
			"attempts":       count,
			"limit":          b.limit,
			"window_seconds": int(p.Window.Seconds()),
		}), "auth.throttled")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(p.Window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "Too many attempts. Please try again later."))
	return false
}

// clientIP trusts the first X-Forwarded-For hop.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func emailFrom(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
