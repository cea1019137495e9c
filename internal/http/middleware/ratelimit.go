// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file adapts the fixed-window limiter in internal/ratelimit to Gin.
// Each route group installs one handler bound to a tier; the read tier keys
// on client IP (anonymous browsing dominates reads) and the create tier keys
// on the authenticated user.
//
// Every response carries the standard quota headers so well-behaved clients
// can pace themselves:
//
//	X-RateLimit-Limit:     <ceiling for the window>
//	X-RateLimit-Remaining: <requests left in the current window>
//	X-RateLimit-Reset:     <unix seconds when the window resets>
//
// Rejections respond 429 with Retry-After and a compact JSON body. Idempotent
// replays (marked by IdempotencyValidator) bypass limiting so a client
// retrying a completed request is never pushed into a retry loop.
package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/ratelimit"
)

// keyFunc selects the identity used to key a rate-limit counter.
//
// Implementations should return a stable string for the duration of a request
// (e.g. "user:<id>" or "ip:<addr>").
type keyFunc func(*gin.Context) string

// KeyByUser keys counters on the authenticated user, falling back to the
// client IP for anonymous requests. Prefixes keep the namespaces disjoint.
func KeyByUser() keyFunc {
	return func(c *gin.Context) string {
		if id := IdentityFrom(c); !id.Anonymous() {
			return "user:" + id.ID
		}
		return "ip:" + c.ClientIP()
	}
}

// KeyByIP keys counters on the client IP regardless of authentication.
func KeyByIP() keyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

// writeQuotaHeaders sets the standard X-RateLimit-* headers from a limiter
// result.
func writeQuotaHeaders(c *gin.Context, res ratelimit.Result) {
	h := c.Writer.Header()
	h.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
	if !res.ResetAt.IsZero() {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	}
}

// IsRateBypass reports whether IdempotencyValidator marked this request for
// rate-limit bypass (i.e. it is a replay of a previously completed request).
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// RateLimit returns a Gin middleware enforcing the given tier with the
// shared limiter.
//
// Behavior:
//   - Quota headers are written on every response, allowed or not.
//   - If IsRateBypass(c) is true (idempotent replay), no counter is consumed;
//     the headers reflect the current window state.
//   - On rejection the middleware responds:
//
//     HTTP/1.1 429 Too Many Requests
//     Retry-After: <seconds>
//     {
//     "request_id": "<uuid>",
//     "code":       "rate_limited",
//     "message":    "rate limit exceeded"
//     }
//
//   - On counter-store failure the tier's fail-open policy decides; the
//     error is logged with the request-scoped logger either way.
func RateLimit(limiter *ratelimit.Limiter, tier ratelimit.Tier, keyFn keyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			// Replays consume no quota but still report the window state.
			if res, err := limiter.Status(c.Request.Context(), keyFn(c), tier); err == nil {
				writeQuotaHeaders(c, res)
			}
			c.Next()
			return
		}

		res, err := limiter.Check(c.Request.Context(), keyFn(c), tier)
		if err != nil {
			LoggerFrom(c).Error().Err(err).
				Str("tier", tier.Name).
				Bool("fail_open", tier.FailOpen).
				Msg("rate limit store unavailable")
		}

		writeQuotaHeaders(c, res)

		if res.Allowed {
			c.Next()
			return
		}

		retry := int(res.RetryAfter.Seconds())
		if retry < 1 {
			retry = 1
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
