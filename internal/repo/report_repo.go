// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Report
// model.
//
// Error semantics:
//   - Missing reports are reported as ErrNotFound.
//   - ResolveReportCAS conditions the update on the report still being
//     unresolved, so a concurrent resolver loses cleanly (ErrNotFound)
//     instead of overwriting a terminal state.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/domain"
)

// CreateReport inserts a new OPEN report against the given target.
func CreateReport(ctx context.Context, db *gorm.DB, filerID string, reason domain.ReportReason, description string, target domain.Target) (*domain.Report, error) {
	threadID, postID := target.Columns()
	r := &domain.Report{
		ID:             uuid.NewString(),
		Reason:         reason,
		Description:    description,
		FilerID:        filerID,
		TargetThreadID: threadID,
		TargetPostID:   postID,
		Status:         domain.ReportOpen,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetReport fetches a report by ID, or ErrNotFound.
func GetReport(ctx context.Context, db *gorm.DB, id string) (*domain.Report, error) {
	var r domain.Report
	err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// FindUnresolvedByFilerTarget returns the filer's existing non-resolved
// report against the same target, or ErrNotFound. Backs the "at most one
// open report per (filer, target)" invariant.
func FindUnresolvedByFilerTarget(ctx context.Context, db *gorm.DB, filerID string, target domain.Target) (*domain.Report, error) {
	q := db.WithContext(ctx).
		Where("filer_id = ? AND status IN ?", filerID,
			[]domain.ReportStatus{domain.ReportOpen, domain.ReportInReview})

	threadID, postID := target.Columns()
	if threadID != nil {
		q = q.Where("target_thread_id = ?", *threadID)
	} else {
		q = q.Where("target_post_id = ?", *postID)
	}

	var r domain.Report
	if err := q.First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// CountReportsByStatus returns the number of reports in the given status.
func CountReportsByStatus(ctx context.Context, db *gorm.DB, status domain.ReportStatus) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Report{}).
		Where("status = ?", status).
		Count(&total).Error
	return total, err
}

// ListReportsPageByStatus returns a page of reports in the given status,
// oldest first so triage works through the backlog in arrival order.
func ListReportsPageByStatus(ctx context.Context, db *gorm.DB, status domain.ReportStatus, offset, limit int) ([]domain.Report, error) {
	var out []domain.Report
	err := db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ResolveReportCAS marks a report resolved if and only if it is still
// unresolved. Returns ErrNotFound when the row is missing or already
// terminal; the caller decides whether that is an idempotent success.
func ResolveReportCAS(ctx context.Context, db *gorm.DB, id string, status domain.ReportStatus, resolverID, resolution string) error {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Report{}).
		Where("id = ? AND status IN ?", id,
			[]domain.ReportStatus{domain.ReportOpen, domain.ReportInReview}).
		Updates(map[string]any{
			"status":      status,
			"resolver_id": resolverID,
			"resolution":  resolution,
			"resolved_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkReportInReview moves an OPEN report to IN_REVIEW. A report already in
// review (or resolved) is left untouched; only a genuine DB failure is
// returned.
func MarkReportInReview(ctx context.Context, db *gorm.DB, id string) error {
	err := db.WithContext(ctx).
		Model(&domain.Report{}).
		Where("id = ? AND status = ?", id, domain.ReportOpen).
		Update("status", domain.ReportInReview).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
