// Moderation HTTP handlers.
//
// This file exposes REST endpoints for the moderation action executor:
//   - POST /moderation/actions    (execute an action, MODERATOR+)
//   - POST /reports/{id}/resolve  (close a report, MODERATOR+)
//
// Acting and resolving are two calls; Resolve is idempotent so a moderator
// client can safely retry after a partial failure.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/domain"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/http/middleware"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/services"
)

// ModerationService defines the moderation operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ModerationService interface {
	// Act executes a moderation action on behalf of actorID.
	Act(ctx context.Context, actorID string, req services.ActionRequest) (*domain.ModerationAction, error)
	// Resolve closes a report with a terminal status, idempotently.
	Resolve(ctx context.Context, actorID, reportID string, status domain.ReportStatus, resolution string) (*domain.Report, error)
}

// CreateActionRequest is the JSON payload for executing a moderation action.
type CreateActionRequest struct {
	Action string `json:"action" binding:"required" example:"REMOVE_CONTENT"`
	Reason string `json:"reason" binding:"required"`
	// Exactly one of thread_id and post_id for REMOVE_CONTENT; user_id for
	// WARN_USER.
	ThreadID string `json:"thread_id"`
	PostID   string `json:"post_id"`
	UserID   string `json:"user_id"`
}

// ResolveReportRequest is the JSON payload for closing a report.
type ResolveReportRequest struct {
	Status     string `json:"status" binding:"required" example:"RESOLVED_REMOVED"`
	Resolution string `json:"resolution"`
}

// CreateAction godoc
// @ID          createAction
// @Summary     Execute a moderation action
// @Description REMOVE_CONTENT transitions the target to REMOVED; WARN_USER records a warning.
// @Tags        Moderation
// @Accept      json
// @Produce     json
//
// @Param       body body handlers.CreateActionRequest true "Action payload"
//
// @Success     201 {object} domain.ModerationAction
// @Failure     400 {object} handlers.ErrorResponse "Invalid action or target"
// @Failure     404 {object} handlers.ErrorResponse "Target not found"
// @Failure     409 {object} handlers.ErrorResponse "Target already in a terminal state"
// @Router      /moderation/actions [post]
func (h *Handlers) CreateAction(c *gin.Context) {
	var req CreateActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	var target domain.Target
	if req.ThreadID != "" || req.PostID != "" {
		t, err := domain.NewTarget(req.ThreadID, req.PostID)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "exactly one of thread_id and post_id is required")
			return
		}
		target = t
	}

	id := middleware.IdentityFrom(c)
	action, err := h.modSvc.Act(c.Request.Context(), id.ID, services.ActionRequest{
		Action:       domain.ActionType(req.Action),
		Reason:       req.Reason,
		Target:       target,
		TargetUserID: req.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAction):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown moderation action")
		case errors.Is(err, services.ErrActionTargetMissing):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "action requires a target")
		default:
			if !failFromService(c, err) {
				fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
			}
		}
		return
	}
	ok(c, http.StatusCreated, action)
}

// ResolveReport godoc
// @ID          resolveReport
// @Summary     Resolve a report
// @Description Idempotent: resolving an already-resolved report with the same status succeeds unchanged.
// @Tags        Moderation
// @Accept      json
// @Produce     json
//
// @Param       id   path string true "Report ID (UUID)" format(uuid)
// @Param       body body handlers.ResolveReportRequest true "Resolution payload"
//
// @Success     200 {object} domain.Report
// @Failure     400 {object} handlers.ErrorResponse "Non-terminal status"
// @Failure     404 {object} handlers.ErrorResponse "Report not found"
// @Failure     409 {object} handlers.ErrorResponse "Resolved with a different status"
// @Router      /reports/{id}/resolve [post]
func (h *Handlers) ResolveReport(c *gin.Context) {
	var req ResolveReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	id := middleware.IdentityFrom(c)
	r, err := h.modSvc.Resolve(c.Request.Context(), id.ID, c.Param("id"), domain.ReportStatus(req.Status), req.Resolution)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidResolution):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be a RESOLVED_* value")
		case errors.Is(err, services.ErrReportNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "report not found")
		case errors.Is(err, services.ErrReportResolved):
			fail(c, http.StatusConflict, ErrCodeConflict, "report already resolved with a different status")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, r)
}
