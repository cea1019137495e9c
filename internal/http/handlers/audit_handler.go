// Audit HTTP handlers.
//
// This file exposes the admin-only, read-only view of the append-only audit
// log:
//   - GET /audit (paginated, filterable by actor, entity, and action)
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/domain"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/repo"
)

// AuditService defines the audit log reads consumed by HTTP handlers.
type AuditService interface {
	// ListPage returns a page of entries matching the filter, newest first.
	ListPage(ctx context.Context, f repo.AuditFilter, page, pageSize int) ([]domain.AuditLogEntry, int64, error)
}

// ListAudit godoc
// @ID          listAudit
// @Summary     List audit log entries (paginated)
// @Description Admin-only. Filters compose: actor, entity_type, entity_id, action.
// @Tags        Audit
// @Produce     json
//
// @Param       actor       query string false "Filter by acting user id"
// @Param       entity_type query string false "Filter by entity type (thread, post, report, user)"
// @Param       entity_id   query string false "Filter by entity id"
// @Param       action      query string false "Filter by action tag (e.g. thread.create)"
// @Param       page        query int    false "Page number"    minimum(1) default(1)
// @Param       page_size   query int    false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200 {object} handlers.ListResponse
// @Router      /audit [get]
func (h *Handlers) ListAudit(c *gin.Context) {
	page, pageSize := clampPagination(c)
	f := repo.AuditFilter{
		UserID:     c.Query("actor"),
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
		Action:     c.Query("action"),
	}

	items, total, err := h.auditSvc.ListPage(c.Request.Context(), f, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, paginate(items, page, pageSize, total))
}
