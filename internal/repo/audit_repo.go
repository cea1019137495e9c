// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// append-only AuditLogEntry model.
//
// Audit rows are never updated or deleted; the only mutations are inserts.
// Concurrent appends are independent rows and need no locking beyond the
// store's write guarantees.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/domain"
)

// AuditFilter narrows audit queries. Zero-valued fields are ignored.
type AuditFilter struct {
	UserID     string
	EntityType string
	EntityID   string
	Action     string
}

// AppendAudit inserts an audit log entry. Changes is an already-encoded
// JSON payload (before/after snapshot or decision metadata).
func AppendAudit(ctx context.Context, db *gorm.DB, action, entityType, entityID, userID, changes string) (*domain.AuditLogEntry, error) {
	e := &domain.AuditLogEntry{
		ID:         uuid.NewString(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		Changes:    changes,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

// auditQuery applies the filter to a base query.
func auditQuery(db *gorm.DB, f AuditFilter) *gorm.DB {
	q := db.Model(&domain.AuditLogEntry{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	return q
}

// CountAudit returns the number of entries matching the filter.
func CountAudit(ctx context.Context, db *gorm.DB, f AuditFilter) (int64, error) {
	var total int64
	err := auditQuery(db.WithContext(ctx), f).Count(&total).Error
	return total, err
}

// ListAuditPage returns a page of entries matching the filter, newest
// first.
func ListAuditPage(ctx context.Context, db *gorm.DB, f AuditFilter, offset, limit int) ([]domain.AuditLogEntry, error) {
	var out []domain.AuditLogEntry
	err := auditQuery(db.WithContext(ctx), f).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
