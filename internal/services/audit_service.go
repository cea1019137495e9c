// Package services – AuditService
//
// Read side of the append-only audit log. Writes happen inside the other
// services' transactions so an audit entry commits or rolls back together
// with the mutation it describes; this service only adds the standalone
// append used by operational tooling and the filtered listing the admin
// surface reads.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/domain"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/repo"
)

// AuditService exposes the audit log to the HTTP layer.
type AuditService struct {
	DB *gorm.DB
}

// Append writes a standalone audit entry outside any other transaction.
func (s *AuditService) Append(ctx context.Context, action, entityType, entityID, userID string, changes map[string]any) (*domain.AuditLogEntry, error) {
	return repo.AppendAudit(ctx, s.DB, action, entityType, entityID, userID, encodeChanges(changes))
}

// ListPage returns a page of audit entries matching the filter, newest
// first, plus the total count.
func (s *AuditService) ListPage(ctx context.Context, f repo.AuditFilter, page, pageSize int) ([]domain.AuditLogEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountAudit(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.AuditLogEntry{}, 0, nil
	}
	items, err := repo.ListAuditPage(ctx, s.DB, f, offset, pageSize)
	return items, total, err
}
