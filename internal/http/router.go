// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, identity, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/config"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/domain"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/http/handlers"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/http/middleware"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/moderation"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/ratelimit"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/repo"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/services"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/tagging"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), identity,
// idempotency and rate limiting, CORS and security headers, health and
// metrics endpoints, and then mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter, gzip
//  6. Metrics
//  7. Identity resolution (headers from the upstream auth layer)
//  8. Idempotency validator (before rate limiting to allow bypass on replay)
//  9. Per-tier rate limiting (read globally, create on write groups)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, store ratelimit.Store, checker moderation.Checker, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			middleware.HeaderUserID,
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB) and response compression
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Identity from trusted gateway headers
	r.Use(middleware.IdentityResolver())

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Fixed-window admission control. The read tier keys on client IP and
	// admits on store failure; the create tier keys on the user and rejects.
	limiter := ratelimit.NewLimiter(store)
	readTier := ratelimit.Tier{
		Name:     "read",
		Limit:    cfg.Rate.Read.Limit,
		Window:   cfg.Rate.Read.Window,
		FailOpen: true,
	}
	createTier := ratelimit.Tier{
		Name:     "create",
		Limit:    cfg.Rate.Create.Limit,
		Window:   cfg.Rate.Create.Window,
		FailOpen: false,
	}
	readLimit := middleware.RateLimit(limiter, readTier, middleware.KeyByIP())
	createLimit := middleware.RateLimit(limiter, createTier, middleware.KeyByUser())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderUserRole, middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderUserRole, middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/collaborators
	screen := moderation.NewScreen(cfg.Content.ExtraScreenTerms)
	subSvc := &services.SubmissionService{
		DB:            db,
		Screen:        screen,
		Checker:       checker,
		MaxTitleRunes: cfg.Content.MaxTitleRunes,
		MaxBodyRunes:  cfg.Content.MaxBodyRunes,
		Tagger:        tagging.New(),
		Log:           log.With().Str("component", "submission").Logger(),
	}
	contentSvc := &services.ContentService{
		DB:            db,
		MaxTitleRunes: cfg.Content.MaxTitleRunes,
		MaxBodyRunes:  cfg.Content.MaxBodyRunes,
	}
	reportSvc := &services.ReportService{
		DB:                  db,
		MaxDescriptionRunes: cfg.Content.MaxReportDescRunes,
	}
	modSvc := &services.ModerationService{DB: db}
	auditSvc := &services.AuditService{DB: db}

	h := handlers.New(subSvc, contentSvc, reportSvc, modSvc, auditSvc, db, cfg.IdempotencyTTL)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Reads (public, IP-keyed tier)
		reads := api.Group("", readLimit)
		{
			reads.GET("/threads", h.ListThreads)
			reads.GET("/threads/:id", h.GetThread)
			reads.GET("/threads/:id/posts", h.ListPosts)
			reads.GET("/posts/:id", h.GetPost)
		}

		// Member writes (user-keyed tier, authenticated, not banned)
		writes := api.Group("", middleware.RequireUser(), createLimit)
		{
			writes.POST("/threads", h.CreateThread)
			writes.POST("/threads/:id/posts", h.CreatePost)
			writes.PUT("/threads/:id", h.UpdateThread)
			writes.PUT("/posts/:id", h.UpdatePost)
			writes.DELETE("/threads/:id", h.DeleteThread)
			writes.DELETE("/posts/:id", h.DeletePost)
			writes.POST("/reports", h.CreateReport)
		}

		// Moderation surface
		mod := api.Group("", middleware.RequireUser(), middleware.RequireRole(domain.RoleModerator), createLimit)
		{
			mod.GET("/reports", h.ListReports)
			mod.GET("/reports/:id", h.GetReport)
			mod.POST("/reports/:id/resolve", h.ResolveReport)
			mod.POST("/moderation/actions", h.CreateAction)
		}

		// Audit log (admin only)
		api.GET("/audit", middleware.RequireUser(), middleware.RequireRole(domain.RoleAdmin), readLimit, h.ListAudit)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
