// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller identity for each request. Authentication is
// terminated upstream (the gateway validates the session and forwards the
// result as trusted headers), so this middleware only parses headers into a
// typed Identity and enforces role and ban gates.
//
// Headers consumed:
//   - X-User-ID:     opaque user identifier; empty means anonymous visitor
//   - X-User-Role:   MEMBER | MODERATOR | ADMIN (defaults per presence of ID)
//   - X-User-Banned: "true" when the account is banned
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/domain"
)

// Identity header names as forwarded by the gateway.
const (
	HeaderUserID     = "X-User-ID"
	HeaderUserRole   = "X-User-Role"
	HeaderUserBanned = "X-User-Banned"
)

// ctxKeyIdentity is the Gin context key under which the Identity is stored.
const ctxKeyIdentity = "identity"

// Identity is the resolved caller for one request.
type Identity struct {
	ID     string
	Role   domain.Role
	Banned bool
}

// Anonymous reports whether the request carries no user identity.
func (id Identity) Anonymous() bool { return id.ID == "" }

// IdentityFrom returns the Identity resolved by Identity(). Requests that
// never passed through the middleware resolve to an anonymous visitor.
func IdentityFrom(c *gin.Context) Identity {
	if v, ok := c.Get(ctxKeyIdentity); ok {
		if id, ok := v.(Identity); ok {
			return id
		}
	}
	return Identity{Role: domain.RoleVisitor}
}

// IdentityResolver parses the trusted identity headers into the Gin context.
// It never rejects; gates are separate middleware so public read routes can
// share the chain.
func IdentityResolver() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := Identity{
			ID:     strings.TrimSpace(c.GetHeader(HeaderUserID)),
			Banned: strings.EqualFold(c.GetHeader(HeaderUserBanned), "true"),
		}

		switch strings.ToUpper(strings.TrimSpace(c.GetHeader(HeaderUserRole))) {
		case string(domain.RoleAdmin):
			id.Role = domain.RoleAdmin
		case string(domain.RoleModerator):
			id.Role = domain.RoleModerator
		case string(domain.RoleMember):
			id.Role = domain.RoleMember
		default:
			if id.ID != "" {
				id.Role = domain.RoleMember
			} else {
				id.Role = domain.RoleVisitor
			}
		}

		c.Set(ctxKeyIdentity, id)
		// Mirror the plain user ID for the logging and idempotency layers.
		if id.ID != "" {
			c.Set("userID", id.ID)
		}
		c.Next()
	}
}

// RequireUser aborts with 401 when the request is anonymous and with 403
// when the account is banned. Write routes hang off this gate.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := IdentityFrom(c)
		if id.Anonymous() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthenticated",
				"message":    "authentication required",
			})
			return
		}
		if id.Banned {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "user_banned",
				"message":    "account is banned",
			})
			return
		}
		c.Next()
	}
}

// RequireRole aborts with 403 unless the caller holds at least the given
// role. Stacks after RequireUser on moderation routes.
func RequireRole(min domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IdentityFrom(c).Role.AtLeast(min) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "forbidden",
				"message":    "insufficient role",
			})
			return
		}
		c.Next()
	}
}
