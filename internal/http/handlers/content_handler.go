// Content HTTP handlers.
//
// This file exposes REST endpoints for thread and post resources:
//   - POST   /threads              (create, runs the submission pipeline)
//   - GET    /threads              (list, paginated, visibility-filtered)
//   - GET    /threads/{id}         (fetch)
//   - POST   /threads/{id}/posts   (reply, runs the submission pipeline)
//   - GET    /threads/{id}/posts   (list, paginated)
//   - GET    /posts/{id}           (fetch)
//   - PUT    /threads/{id}         (author edit)
//   - PUT    /posts/{id}           (author edit)
//   - DELETE /threads/{id}         (author soft delete)
//   - DELETE /posts/{id}           (author soft delete)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Creation endpoints honor the
// Idempotency-Key header so a retried POST replays the original entity
// instead of double-posting.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/domain"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/http/middleware"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/repo"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/services"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/utils"
)

//
// Service contracts (context-aware)
//

// SubmissionService runs the submission pipeline for new content.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type SubmissionService interface {
	// SubmitThread screens, persists, and audits a new thread.
	SubmitThread(ctx context.Context, authorID, title, body string) (*domain.Thread, error)
	// SubmitPost screens, persists, and audits a new post under a thread.
	SubmitPost(ctx context.Context, authorID, threadID, body string) (*domain.Post, error)
}

// ContentService defines the read and author-lifecycle operations consumed
// by HTTP handlers.
type ContentService interface {
	GetThread(ctx context.Context, id, viewerID string, role domain.Role) (*domain.Thread, error)
	GetPost(ctx context.Context, id, viewerID string, role domain.Role) (*domain.Post, error)
	ListThreadsPage(ctx context.Context, role domain.Role, page, pageSize int) ([]domain.Thread, int64, error)
	ListPostsPage(ctx context.Context, threadID, viewerID string, role domain.Role, page, pageSize int) ([]domain.Post, int64, error)
	EditThread(ctx context.Context, actorID, threadID, title, body string) (*domain.Thread, error)
	EditPost(ctx context.Context, actorID, postID, body string) (*domain.Post, error)
	DeleteThread(ctx context.Context, actorID, threadID string) error
	DeletePost(ctx context.Context, actorID, postID string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for content, reports, moderation, and the
// audit log. It depends on abstract service interfaces to keep transport
// concerns separate from business logic. The database handle is used only
// for idempotency bookkeeping.
type Handlers struct {
	subSvc     SubmissionService
	contentSvc ContentService
	reportSvc  ReportService
	modSvc     ModerationService
	auditSvc   AuditService

	db      *gorm.DB
	idemTTL time.Duration
}

// New constructs a Handlers instance bound to the given services. idemTTL
// bounds how long a creation replay stays servable; values <= 0 default to
// 24h.
func New(sub SubmissionService, content ContentService, reports ReportService, mod ModerationService, audit AuditService, db *gorm.DB, idemTTL time.Duration) *Handlers {
	if idemTTL <= 0 {
		idemTTL = 24 * time.Hour
	}
	return &Handlers{
		subSvc:     sub,
		contentSvc: content,
		reportSvc:  reports,
		modSvc:     mod,
		auditSvc:   audit,
		db:         db,
		idemTTL:    idemTTL,
	}
}

//
// DTOs
//

// CreateThreadRequest is the JSON payload for creating a thread.
type CreateThreadRequest struct {
	// Title names the thread (1–200 chars after normalization).
	Title string `json:"title" binding:"required" example:"Chronology of the Mauryan arc"`
	// Body is the opening text.
	Body string `json:"body" binding:"required" example:"Sources disagree on the coronation year..."`
}

// CreatePostRequest is the JSON payload for replying to a thread.
type CreatePostRequest struct {
	Body string `json:"body" binding:"required" example:"The Puranic lists support the later date."`
}

// UpdateThreadRequest is the JSON payload for an author edit of a thread.
type UpdateThreadRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body" binding:"required"`
}

// UpdatePostRequest is the JSON payload for an author edit of a post.
type UpdatePostRequest struct {
	Body string `json:"body" binding:"required"`
}

// CreatedResponse wraps a newly created entity together with the outcome of
// the content checks that admitted it.
type CreatedResponse struct {
	Data any `json:"data"`
	// AIStatus is PASS when the content was published and QUARANTINED when
	// it was held for moderator review.
	AIStatus string `json:"ai_status"`
}

// aiStatusFor maps the resolved content status onto the ai_status value
// creation responses expose. Clients branch on QUARANTINED to show the
// pending-review notice.
func aiStatusFor(status domain.ContentStatus) string {
	if status == domain.StatusQuarantined {
		return string(domain.StatusQuarantined)
	}
	return string(domain.AICheckPass)
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListResponse wraps a page of items and pagination information.
type ListResponse struct {
	Items      any        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// paginate builds the standard list envelope.
func paginate(items any, page, pageSize int, total int64) ListResponse {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return ListResponse{
		Items: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}
}

// failFromService maps common service errors onto the HTTP error envelope.
// Returns true when it handled the error.
func failFromService(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, services.ErrEmptyBody), errors.Is(err, services.ErrTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrThreadNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "thread not found")
	case errors.Is(err, services.ErrPostNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "post not found")
	case errors.Is(err, services.ErrNotAuthor):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "only the author may modify this content")
	case errors.Is(err, services.ErrTerminalStatus):
		fail(c, http.StatusConflict, ErrCodeConflict, "content is in a terminal state")
	case errors.Is(err, services.ErrCheckUnavailable):
		fail(c, http.StatusBadGateway, ErrCodeDependencyFailure, "content check temporarily unavailable, try again")
	default:
		if blocked, ok := services.IsContentBlocked(err); ok {
			failBlocked(c, blocked.Reasons)
			return true
		}
		return false
	}
	return true
}

// replayCreation serves a stored creation result for an idempotent retry.
// fetch loads the previously created entity by id. Returns true when the
// replay was served.
func (h *Handlers) replayCreation(c *gin.Context, uid string, fetch func(ctx context.Context, entityID string) (any, domain.ContentStatus, error)) bool {
	key, okKey := middleware.GetIdempotencyKey(c)
	if !okKey || !middleware.IsReplay(c) {
		return false
	}
	scope := middleware.IdempotencyScope(c)
	rec, err := repo.GetIdempotency(c.Request.Context(), h.db, uid, scope, key, time.Now().UTC())
	if err != nil {
		return false
	}
	data, status, err := fetch(c.Request.Context(), rec.EntityID)
	if err != nil {
		return false
	}
	ok(c, rec.Status, CreatedResponse{Data: data, AIStatus: aiStatusFor(status)})
	return true
}

// rememberCreation persists the idempotency record after a successful
// creation. Best effort; a duplicate means a concurrent retry won the race.
func (h *Handlers) rememberCreation(c *gin.Context, uid, entityID string, status int) {
	key, okKey := middleware.GetIdempotencyKey(c)
	if !okKey {
		return
	}
	scope := middleware.IdempotencyScope(c)
	if _, err := repo.CreateIdempotency(c.Request.Context(), h.db, uid, scope, key, entityID, status, h.idemTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record write failed")
	}
}

//
// Handlers
//

// CreateThread godoc
// @ID          createThread
// @Summary     Create a thread
// @Description Runs the submission pipeline and returns the created thread with its AI check status.
// @Tags        Threads
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key header string false "Dedup key for safe retries"
// @Param       body body handlers.CreateThreadRequest true "Create thread payload"
//
// @Success     201 {object} handlers.CreatedResponse
// @Failure     400 {object} handlers.ErrorResponse "Bad request"
// @Failure     422 {object} handlers.ErrorResponse "Blocked by the AI content check"
// @Failure     502 {object} handlers.ErrorResponse "Content check unavailable"
// @Router      /threads [post]
func (h *Handlers) CreateThread(c *gin.Context) {
	id := middleware.IdentityFrom(c)

	if h.replayCreation(c, id.ID, func(ctx context.Context, entityID string) (any, domain.ContentStatus, error) {
		t, err := h.contentSvc.GetThread(ctx, entityID, id.ID, id.Role)
		if err != nil {
			return nil, "", err
		}
		return t, t.Status, nil
	}) {
		return
	}

	var req CreateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	t, err := h.subSvc.SubmitThread(c.Request.Context(), id.ID, req.Title, req.Body)
	if err != nil {
		if !failFromService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}

	h.rememberCreation(c, id.ID, t.ID, http.StatusCreated)
	ok(c, http.StatusCreated, CreatedResponse{Data: t, AIStatus: aiStatusFor(t.Status)})
}

// CreatePost godoc
// @ID          createPost
// @Summary     Reply to a thread
// @Description Runs the submission pipeline for a new post under the thread.
// @Tags        Posts
// @Accept      json
// @Produce     json
//
// @Param       id   path string true "Thread ID (UUID)" format(uuid)
// @Param       body body handlers.CreatePostRequest true "Create post payload"
//
// @Success     201 {object} handlers.CreatedResponse
// @Failure     404 {object} handlers.ErrorResponse "Thread not found or closed"
// @Failure     422 {object} handlers.ErrorResponse "Blocked by the AI content check"
// @Router      /threads/{id}/posts [post]
func (h *Handlers) CreatePost(c *gin.Context) {
	threadID := c.Param("id")
	if _, err := uuid.Parse(threadID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "thread id must be a UUID")
		return
	}
	id := middleware.IdentityFrom(c)

	if h.replayCreation(c, id.ID, func(ctx context.Context, entityID string) (any, domain.ContentStatus, error) {
		p, err := h.contentSvc.GetPost(ctx, entityID, id.ID, id.Role)
		if err != nil {
			return nil, "", err
		}
		return p, p.Status, nil
	}) {
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	p, err := h.subSvc.SubmitPost(c.Request.Context(), id.ID, threadID, req.Body)
	if err != nil {
		if !failFromService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}

	h.rememberCreation(c, id.ID, p.ID, http.StatusCreated)
	ok(c, http.StatusCreated, CreatedResponse{Data: p, AIStatus: aiStatusFor(p.Status)})
}

// ListThreads godoc
// @ID          listThreads
// @Summary     List threads (paginated)
// @Description Returns a page of threads visible to the caller, newest first.
// @Tags        Threads
// @Produce     json
//
// @Param       page      query int false "Page number"    minimum(1) default(1)
// @Param       page_size query int false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200 {object} handlers.ListResponse
// @Router      /threads [get]
func (h *Handlers) ListThreads(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	page, pageSize := clampPagination(c)

	items, total, err := h.contentSvc.ListThreadsPage(c.Request.Context(), id.Role, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, paginate(items, page, pageSize, total))
}

// GetThread godoc
// @ID          getThread
// @Summary     Fetch a thread
// @Tags        Threads
// @Produce     json
// @Param       id path string true "Thread ID (UUID)" format(uuid)
// @Success     200 {object} domain.Thread
// @Failure     404 {object} handlers.ErrorResponse "Thread not found"
// @Router      /threads/{id} [get]
func (h *Handlers) GetThread(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	t, err := h.contentSvc.GetThread(c.Request.Context(), c.Param("id"), id.ID, id.Role)
	if err != nil {
		if !failFromService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, t)
}

// ListPosts godoc
// @ID          listPosts
// @Summary     List a thread's posts (paginated)
// @Tags        Posts
// @Produce     json
// @Param       id        path  string true  "Thread ID (UUID)" format(uuid)
// @Param       page      query int    false "Page number"    minimum(1) default(1)
// @Param       page_size query int    false "Items per page" minimum(1) maximum(100) default(20)
// @Success     200 {object} handlers.ListResponse
// @Failure     404 {object} handlers.ErrorResponse "Thread not found"
// @Router      /threads/{id}/posts [get]
func (h *Handlers) ListPosts(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	page, pageSize := clampPagination(c)

	items, total, err := h.contentSvc.ListPostsPage(c.Request.Context(), c.Param("id"), id.ID, id.Role, page, pageSize)
	if err != nil {
		if !failFromService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, paginate(items, page, pageSize, total))
}

// GetPost godoc
// @ID          getPost
// @Summary     Fetch a post
// @Tags        Posts
// @Produce     json
// @Param       id path string true "Post ID (UUID)" format(uuid)
// @Success     200 {object} domain.Post
// @Failure     404 {object} handlers.ErrorResponse "Post not found"
// @Router      /posts/{id} [get]
func (h *Handlers) GetPost(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	p, err := h.contentSvc.GetPost(c.Request.Context(), c.Param("id"), id.ID, id.Role)
	if err != nil {
		if !failFromService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, p)
}

// UpdateThread godoc
// @ID          updateThread
// @Summary     Edit a thread (author only)
// @Tags        Threads
// @Accept      json
// @Produce     json
// @Param       id   path string true "Thread ID (UUID)" format(uuid)
// @Param       body body handlers.UpdateThreadRequest true "New title and body"
// @Success     200 {object} domain.Thread
// @Failure     403 {object} handlers.ErrorResponse "Not the author"
// @Failure     409 {object} handlers.ErrorResponse "Terminal status"
// @Router      /threads/{id} [put]
func (h *Handlers) UpdateThread(c *gin.Context) {
	var req UpdateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	id := middleware.IdentityFrom(c)

	t, err := h.contentSvc.EditThread(c.Request.Context(), id.ID, c.Param("id"), req.Title, req.Body)
	if err != nil {
		if !failFromService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, t)
}

// UpdatePost godoc
// @ID          updatePost
// @Summary     Edit a post (author only)
// @Tags        Posts
// @Accept      json
// @Produce     json
// @Param       id   path string true "Post ID (UUID)" format(uuid)
// @Param       body body handlers.UpdatePostRequest true "New body"
// @Success     200 {object} domain.Post
// @Failure     403 {object} handlers.ErrorResponse "Not the author"
// @Failure     409 {object} handlers.ErrorResponse "Terminal status"
// @Router      /posts/{id} [put]
func (h *Handlers) UpdatePost(c *gin.Context) {
	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	id := middleware.IdentityFrom(c)

	p, err := h.contentSvc.EditPost(c.Request.Context(), id.ID, c.Param("id"), req.Body)
	if err != nil {
		if !failFromService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, p)
}

// DeleteThread godoc
// @ID          deleteThread
// @Summary     Delete a thread (author only, soft delete)
// @Tags        Threads
// @Param       id path string true "Thread ID (UUID)" format(uuid)
// @Success     204 {string} string "No Content"
// @Failure     403 {object} handlers.ErrorResponse "Not the author"
// @Failure     409 {object} handlers.ErrorResponse "Already removed by moderation"
// @Router      /threads/{id} [delete]
func (h *Handlers) DeleteThread(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	if err := h.contentSvc.DeleteThread(c.Request.Context(), id.ID, c.Param("id")); err != nil {
		if !failFromService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// DeletePost godoc
// @ID          deletePost
// @Summary     Delete a post (author only, soft delete)
// @Tags        Posts
// @Param       id path string true "Post ID (UUID)" format(uuid)
// @Success     204 {string} string "No Content"
// @Failure     403 {object} handlers.ErrorResponse "Not the author"
// @Failure     409 {object} handlers.ErrorResponse "Already removed by moderation"
// @Router      /posts/{id} [delete]
func (h *Handlers) DeletePost(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	if err := h.contentSvc.DeletePost(c.Request.Context(), id.ID, c.Param("id")); err != nil {
		if !failFromService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}
