// Report HTTP handlers.
//
// This file exposes REST endpoints for the report queue:
//   - POST /reports           (file a report, MEMBER+)
//   - GET  /reports?status=   (triage listing, MODERATOR+)
//   - GET  /reports/{id}      (fetch, MODERATOR+)
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

// ReportService defines the report queue operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ReportService interface {
	// File records a complaint against exactly one thread or post.
	File(ctx context.Context, filerID string, reason domain.ReportReason, description string, target domain.Target) (*domain.Report, error)
	// Get fetches a single report.
	Get(ctx context.Context, id string) (*domain.Report, error)
	// ListPage returns a page of reports in the given status plus the total.
	ListPage(ctx context.Context, status domain.ReportStatus, page, pageSize int) ([]domain.Report, int64, error)
}

// CreateReportRequest is the JSON payload for filing a report. Exactly one
// of thread_id and post_id must be set.
type CreateReportRequest struct {
	Reason      string `json:"reason" binding:"required" example:"SPAM"`
	Description string `json:"description"`
	ThreadID    string `json:"thread_id"`
	PostID      string `json:"post_id"`
}

// CreateReport godoc
// @ID          createReport
// @Summary     File a report
// @Description Records a complaint against exactly one thread or post.
// @Tags        Reports
// @Accept      json
// @Produce     json
//
// @Param       body body handlers.CreateReportRequest true "Report payload"
//
// @Success     201 {object} domain.Report
// @Failure     400 {object} handlers.ErrorResponse "Invalid reason or target"
// @Failure     404 {object} handlers.ErrorResponse "Target not found"
// @Failure     409 {object} handlers.ErrorResponse "Duplicate open report"
// @Router      /reports [post]
func (h *Handlers) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	target, err := domain.NewTarget(req.ThreadID, req.PostID)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "exactly one of thread_id and post_id is required")
		return
	}

	id := middleware.IdentityFrom(c)
	r, err := h.reportSvc.File(c.Request.Context(), id.ID, domain.ReportReason(req.Reason), req.Description, target)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidReason):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown report reason")
		case errors.Is(err, services.ErrDuplicateReport):
			fail(c, http.StatusConflict, ErrCodeConflict, "an open report against this target already exists")
		default:
			if !failFromService(c, err) {
				fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
			}
		}
		return
	}
	ok(c, http.StatusCreated, r)
}

// ListReports godoc
// @ID          listReports
// @Summary     List reports by status (paginated)
// @Description Triage listing for moderators; defaults to OPEN.
// @Tags        Reports
// @Produce     json
//
// @Param       status    query string false "Report status filter" default(OPEN)
// @Param       page      query int    false "Page number"    minimum(1) default(1)
// @Param       page_size query int    false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200 {object} handlers.ListResponse
// @Failure     400 {object} handlers.ErrorResponse "Unknown status"
// @Router      /reports [get]
func (h *Handlers) ListReports(c *gin.Context) {
	status := domain.ReportStatus(c.DefaultQuery("status", string(domain.ReportOpen)))
	page, pageSize := clampPagination(c)

	items, total, err := h.reportSvc.ListPage(c.Request.Context(), status, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrInvalidStatusFilter) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown report status")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, paginate(items, page, pageSize, total))
}

// GetReport godoc
// @ID          getReport
// @Summary     Fetch a report
// @Tags        Reports
// @Produce     json
// @Param       id path string true "Report ID (UUID)" format(uuid)
// @Success     200 {object} domain.Report
// @Failure     404 {object} handlers.ErrorResponse "Report not found"
// @Router      /reports/{id} [get]
func (h *Handlers) GetReport(c *gin.Context) {
	r, err := h.reportSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "report not found")
		return
	}
	ok(c, http.StatusOK, r)
}
