package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/config"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/moderation"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/ratelimit"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/repo"
)

// --- stub checkers so the pipeline never dials out ---

type passChecker struct{}

func (passChecker) Check(context.Context, moderation.CheckRequest) (*moderation.Verdict, error) {
	return &moderation.Verdict{Decision: moderation.DecisionPass, Confidence: 0.99}, nil
}

type blockChecker struct{}

func (blockChecker) Check(context.Context, moderation.CheckRequest) (*moderation.Verdict, error) {
	return &moderation.Verdict{
		Decision:   moderation.DecisionBlocked,
		Confidence: 0.97,
		Reasons:    []string{"hate speech"},
	}, nil
}

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig(base string) config.Config {
	return config.Config{
		APIBasePath: base,
		CORS:        config.CORSConfig{},
		Security:    config.SecurityConfig{EnableHSTS: false},
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
		AICheck: config.AICheckConfig{
			BaseURL:    "http://localhost:9",
			Timeout:    time.Second,
			MaxRetries: 0,
			RPS:        100,
			Burst:      100,
		},
		Rate: config.RateLimitConfig{
			Read:   config.RateTier{Limit: 1000, Window: time.Minute},
			Create: config.RateTier{Limit: 1000, Window: time.Minute},
		},
		Content: config.ContentConfig{
			MaxTitleRunes:      200,
			MaxBodyRunes:       20000,
			MaxReportDescRunes: 2000,
		},
		IdempotencyTTL: time.Hour,
	}
}

func newRouter(t *testing.T, dbName string, checker moderation.Checker, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t, dbName)
	RegisterRoutes(r, db, ratelimit.NewMemoryStore(), checker, cfg)
	return r
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r := newRouter(t, "routerdb", passChecker{}, testConfig("/api/v1"))

	// /health works
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || len(w.Body.Bytes()) == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (POST /health)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig("/api/v2")
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r := newRouter(t, "routerdb_cors", passChecker{}, cfg)

	// Any request runs through CORS middleware; header should reflect origin.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	root1 := groupWithPrefix(r, "/")
	root1.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	root2 := groupWithPrefix(r, "")
	root2.GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })

	// non-root prefix
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	// Hit all three
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/one", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "one" {
		t.Fatalf("GET /one got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/two", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "two" {
		t.Fatalf("GET /two got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("GET /api/ping got %d %q", rec.Code, rec.Body.String())
	}
}

// Smoke test that a request traverses identity + idempotency + ratelimit +
// otel + security headers pipeline on a real API route.
func TestPipeline_Smoke(t *testing.T) {
	cfg := testConfig("/api/v1")
	cfg.Security = config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour}
	r := newRouter(t, "routerdb_smoke", passChecker{}, cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/threads", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("pipeline GET /threads = %d", w.Code)
	}
	// RequestID header should be present (from RequestID middleware)
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
	// Read tier must advertise its budget on every response
	if w.Header().Get("X-RateLimit-Limit") == "" || w.Header().Get("X-RateLimit-Remaining") == "" {
		t.Fatalf("expected rate limit headers on read route")
	}
}

func TestRegisterRoutes_WriteGates(t *testing.T) {
	r := newRouter(t, "routerdb_gates", passChecker{}, testConfig("/api/v1"))

	body := `{"title":"Chronology of the Mauryan arc","body":"Sources disagree on the coronation year."}`

	// Anonymous write → 401
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/threads", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous POST /threads expected 401, got %d", w.Code)
	}

	// Banned user → 403
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/threads", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u-banned")
	req.Header.Set("X-User-Banned", "true")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("banned POST /threads expected 403, got %d", w.Code)
	}

	// Member hitting the moderation surface → 403
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	req.Header.Set("X-User-ID", "u-member")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("member GET /reports expected 403, got %d", w.Code)
	}

	// Moderator gets through the role gate (empty queue is a 200)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	req.Header.Set("X-User-ID", "u-mod")
	req.Header.Set("X-User-Role", "MODERATOR")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("moderator GET /reports expected 200, got %d", w.Code)
	}

	// Audit log is admin only
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
	req.Header.Set("X-User-ID", "u-mod")
	req.Header.Set("X-User-Role", "MODERATOR")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("moderator GET /audit expected 403, got %d", w.Code)
	}
}

func TestRegisterRoutes_CreateThread_EndToEnd(t *testing.T) {
	r := newRouter(t, "routerdb_create", passChecker{}, testConfig("/api/v1"))

	body := `{"title":"Chronology of the Mauryan arc","body":"Sources disagree on the coronation year."}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/threads", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "author-1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("POST /threads expected 201, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			ID       string `json:"id"`
			AuthorID string `json:"author_id"`
			Status   string `json:"status"`
		} `json:"data"`
		AIStatus string `json:"ai_status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if resp.Data.ID == "" || resp.Data.AuthorID != "author-1" {
		t.Fatalf("unexpected created thread: %+v", resp.Data)
	}
	if resp.Data.Status != "PUBLISHED" || resp.AIStatus != "PASS" {
		t.Fatalf("expected PUBLISHED/PASS, got %s/%s", resp.Data.Status, resp.AIStatus)
	}

	// The published thread is readable anonymously.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/threads/"+resp.Data.ID, nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET created thread expected 200, got %d", w.Code)
	}
}

func TestRegisterRoutes_CreateThread_Quarantined(t *testing.T) {
	r := newRouter(t, "routerdb_quar", passChecker{}, testConfig("/api/v1"))

	// A heuristic hit quarantines without consulting the checker.
	body := `{"title":"Amazing offer","body":"Get your free robux right here."}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/threads", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "author-4")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("POST /threads expected 201, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
		AIStatus string `json:"ai_status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	// Clients branch on ai_status QUARANTINED for the pending-review notice.
	if resp.Data.Status != "QUARANTINED" || resp.AIStatus != "QUARANTINED" {
		t.Fatalf("expected QUARANTINED/QUARANTINED, got %s/%s", resp.Data.Status, resp.AIStatus)
	}
}

func TestRegisterRoutes_CreateThread_Blocked422(t *testing.T) {
	r := newRouter(t, "routerdb_blocked", blockChecker{}, testConfig("/api/v1"))

	body := `{"title":"Chronology of the Mauryan arc","body":"Sources disagree on the coronation year."}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/threads", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "author-2")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Code    string   `json:"code"`
		Reasons []string `json:"reasons"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if resp.Code != "AI_CONTENT_BLOCKED" {
		t.Fatalf("expected AI_CONTENT_BLOCKED, got %q", resp.Code)
	}
	if len(resp.Reasons) != 1 || resp.Reasons[0] != "hate speech" {
		t.Fatalf("expected verdict reasons, got %v", resp.Reasons)
	}
}

func TestRegisterRoutes_Idempotency_ReplaysCreation(t *testing.T) {
	r := newRouter(t, "routerdb_idem", passChecker{}, testConfig("/api/v1"))

	body := `{"title":"Chronology of the Mauryan arc","body":"Sources disagree on the coronation year."}`
	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/threads", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", "author-3")
		req.Header.Set("Idempotency-Key", "retry-1")
		r.ServeHTTP(w, req)
		return w
	}

	first := do()
	if first.Code != http.StatusCreated {
		t.Fatalf("first POST expected 201, got %d body=%s", first.Code, first.Body.String())
	}
	second := do()
	if second.Code != http.StatusCreated {
		t.Fatalf("replayed POST expected 201, got %d body=%s", second.Code, second.Body.String())
	}
	// The replay skips the counter but still reports the quota state.
	if second.Header().Get("X-RateLimit-Limit") == "" || second.Header().Get("X-RateLimit-Remaining") == "" {
		t.Fatalf("replayed response must carry rate limit headers")
	}

	type created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	var a, b created
	if err := json.Unmarshal(first.Body.Bytes(), &a); err != nil {
		t.Fatalf("first body: %v", err)
	}
	if err := json.Unmarshal(second.Body.Bytes(), &b); err != nil {
		t.Fatalf("second body: %v", err)
	}
	if a.Data.ID == "" || a.Data.ID != b.Data.ID {
		t.Fatalf("replay must return the original entity: %q vs %q", a.Data.ID, b.Data.ID)
	}
}
