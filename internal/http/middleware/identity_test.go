package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/domain"
)

func TestIdentityResolver_HeaderParsing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name     string
		headers  map[string]string
		wantID   string
		wantRole domain.Role
		wantBan  bool
	}{
		{
			name:     "anonymous",
			headers:  nil,
			wantRole: domain.RoleVisitor,
		},
		{
			name:     "id without role defaults to member",
			headers:  map[string]string{HeaderUserID: "u1"},
			wantID:   "u1",
			wantRole: domain.RoleMember,
		},
		{
			name:     "explicit moderator",
			headers:  map[string]string{HeaderUserID: "u1", HeaderUserRole: "MODERATOR"},
			wantID:   "u1",
			wantRole: domain.RoleModerator,
		},
		{
			name:     "role header is case-insensitive",
			headers:  map[string]string{HeaderUserID: "u1", HeaderUserRole: "admin"},
			wantID:   "u1",
			wantRole: domain.RoleAdmin,
		},
		{
			name:     "unknown role falls back by id presence",
			headers:  map[string]string{HeaderUserID: "u1", HeaderUserRole: "WIZARD"},
			wantID:   "u1",
			wantRole: domain.RoleMember,
		},
		{
			name:     "banned flag",
			headers:  map[string]string{HeaderUserID: "u1", HeaderUserBanned: "TRUE"},
			wantID:   "u1",
			wantRole: domain.RoleMember,
			wantBan:  true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(IdentityResolver())

			var got Identity
			r.GET("/", func(c *gin.Context) {
				got = IdentityFrom(c)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if got.ID != tc.wantID || got.Role != tc.wantRole || got.Banned != tc.wantBan {
				t.Fatalf("identity = %+v, want id=%q role=%s banned=%v", got, tc.wantID, tc.wantRole, tc.wantBan)
			}
		})
	}
}

func TestIdentityFrom_DefaultWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	id := IdentityFrom(c)
	if !id.Anonymous() || id.Role != domain.RoleVisitor {
		t.Fatalf("expected anonymous visitor, got %+v", id)
	}
}

func TestRequireUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdentityResolver(), RequireUser())
	r.POST("/w", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Anonymous → 401 with the standard envelope.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/w", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["code"] != "unauthenticated" {
		t.Fatalf("unexpected body: %v", body)
	}

	// Banned → 403.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/w", nil)
	req.Header.Set(HeaderUserID, "u1")
	req.Header.Set(HeaderUserBanned, "true")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("banned: expected 403, got %d", w.Code)
	}
	body = map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["code"] != "user_banned" {
		t.Fatalf("unexpected body: %v", body)
	}

	// Plain member passes.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/w", nil)
	req.Header.Set(HeaderUserID, "u1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("member: expected 200, got %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdentityResolver(), RequireRole(domain.RoleModerator))
	r.GET("/m", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Member below the floor → 403.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/m", nil)
	req.Header.Set(HeaderUserID, "u1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("member: expected 403, got %d", w.Code)
	}

	// Moderator and admin pass.
	for _, role := range []string{"MODERATOR", "ADMIN"} {
		w = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, "/m", nil)
		req.Header.Set(HeaderUserID, "u1")
		req.Header.Set(HeaderUserRole, role)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", role, w.Code)
		}
	}
}
