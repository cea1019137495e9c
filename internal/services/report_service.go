// Package services – ReportService
//
// This file implements the report queue: filing complaints against content
// and listing them for moderation triage. A report targets exactly one
// thread or one post (the Target variant makes the alternative
// unrepresentable), and a filer may hold at most one non-resolved report
// per target, so retries and double-clicks surface the existing report
// instead of growing the queue.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/domain"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/repo"
)

// ReportService implements the use-cases around filing and triaging
// reports.
type ReportService struct {
	DB *gorm.DB

	// MaxDescriptionRunes caps the optional free-text description.
	MaxDescriptionRunes int
}

// File records a complaint by filerID against the target.
//
// Validation:
//   - reason must be one of the accepted values; otherwise ErrInvalidReason.
//   - target must reference existing, reportable content; otherwise the
//     matching not-found error.
//   - a non-resolved report by the same filer against the same target
//     yields ErrDuplicateReport.
//
// The existence check and insert run in one transaction so two racing
// submissions cannot both pass the duplicate check.
func (s *ReportService) File(ctx context.Context, filerID string, reason domain.ReportReason, description string, target domain.Target) (*domain.Report, error) {
	tr := otel.Tracer("services/ReportService")
	ctx, span := tr.Start(ctx, "File",
		trace.WithAttributes(
			attribute.String("filer.id", filerID),
			attribute.String("target.kind", string(target.Kind())),
		),
	)
	defer span.End()

	if !reason.Valid() {
		return nil, ErrInvalidReason
	}
	if target.IsZero() {
		return nil, domain.ErrInvalidTarget
	}
	description = strings.TrimSpace(description)
	if s.MaxDescriptionRunes > 0 && utf8.RuneCountInString(description) > s.MaxDescriptionRunes {
		return nil, ErrTooLong
	}

	var report *domain.Report
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The target must exist and not already be deleted; reporting
		// removed content is allowed so stale clients get a sensible
		// duplicate/conflict path rather than a 404.
		switch target.Kind() {
		case domain.TargetThread:
			t, err := repo.GetThread(ctx, tx, target.ID())
			if err != nil {
				return ErrThreadNotFound
			}
			if t.Status == domain.StatusDeleted {
				return ErrThreadNotFound
			}
		case domain.TargetPost:
			p, err := repo.GetPost(ctx, tx, target.ID())
			if err != nil {
				return ErrPostNotFound
			}
			if p.Status == domain.StatusDeleted {
				return ErrPostNotFound
			}
		}

		if _, err := repo.FindUnresolvedByFilerTarget(ctx, tx, filerID, target); err == nil {
			return ErrDuplicateReport
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}

		r, err := repo.CreateReport(ctx, tx, filerID, reason, description, target)
		if err != nil {
			return err
		}
		report = r

		changes := encodeChanges(map[string]any{
			"reason":      reason,
			"target_kind": target.Kind(),
			"target_id":   target.ID(),
		})
		_, err = repo.AppendAudit(ctx, tx, "report.create", "report", r.ID, filerID, changes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Get fetches a single report.
func (s *ReportService) Get(ctx context.Context, id string) (*domain.Report, error) {
	r, err := repo.GetReport(ctx, s.DB, id)
	if err != nil {
		return nil, ErrReportNotFound
	}
	return r, nil
}

// ListPage returns a page of reports in the given status for triage, plus
// the total count.
func (s *ReportService) ListPage(ctx context.Context, status domain.ReportStatus, page, pageSize int) ([]domain.Report, int64, error) {
	if !status.Valid() {
		return nil, 0, ErrInvalidStatusFilter
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountReportsByStatus(ctx, s.DB, status)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Report{}, 0, nil
	}
	items, err := repo.ListReportsPageByStatus(ctx, s.DB, status, offset, pageSize)
	return items, total, err
}
