// Package services – ModerationService
//
// This file implements the moderation action executor. Act applies a human
// moderator's decision (remove content, warn a user) and Resolve closes the
// originating report. The two calls are deliberately sequenced by the
// caller rather than wrapped in one transaction, which leaves a
// partial-failure window: content can be REMOVED while its report is still
// OPEN. Resolve is therefore idempotent and safe to retry. Resolving an
// already-resolved report with the same status is a no-op success, and
// Resolve never touches content, so reconciling after a failed first
// attempt cannot re-apply the action.
package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/domain"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/repo"
)

// ActionRequest names the decision a moderator is executing.
type ActionRequest struct {
	Action domain.ActionType
	Reason string
	// Target identifies the content for REMOVE_CONTENT. WARN_USER may
	// carry a content target for provenance but requires TargetUserID.
	Target       domain.Target
	TargetUserID string
	// Metadata is an optional, already-encoded JSON payload.
	Metadata string
}

// ModerationService executes moderator decisions and resolves reports.
type ModerationService struct {
	DB *gorm.DB
}

// Act executes a moderation action on behalf of actorID and records it.
//
// REMOVE_CONTENT transitions the target to REMOVED via compare-and-set;
// content already in a terminal state yields ErrTerminalStatus so the
// moderator reconciles by resolving the report instead of re-applying.
// WARN_USER mutates nothing; it records the warning for the audit trail.
// Every action writes its own audit entry, independent of any report
// resolution entry.
func (s *ModerationService) Act(ctx context.Context, actorID string, req ActionRequest) (*domain.ModerationAction, error) {
	tr := otel.Tracer("services/ModerationService")
	ctx, span := tr.Start(ctx, "Act",
		trace.WithAttributes(
			attribute.String("actor.id", actorID),
			attribute.String("action", string(req.Action)),
		),
	)
	defer span.End()

	if !req.Action.Valid() {
		return nil, ErrInvalidAction
	}

	var action *domain.ModerationAction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch req.Action {
		case domain.ActionRemoveContent:
			if req.Target.IsZero() {
				return ErrActionTargetMissing
			}
			if err := s.removeContent(ctx, tx, actorID, req); err != nil {
				return err
			}
		case domain.ActionWarnUser:
			if req.TargetUserID == "" {
				return ErrActionTargetMissing
			}
		}

		threadID, postID := req.Target.Columns()
		rec := &domain.ModerationAction{
			Action:         req.Action,
			Reason:         req.Reason,
			ActorID:        actorID,
			TargetThreadID: threadID,
			TargetPostID:   postID,
			Metadata:       req.Metadata,
		}
		if req.TargetUserID != "" {
			rec.TargetUserID = &req.TargetUserID
		}
		a, err := repo.CreateModerationAction(ctx, tx, rec)
		if err != nil {
			return err
		}
		action = a

		entityType, entityID := "user", req.TargetUserID
		if !req.Target.IsZero() {
			entityType, entityID = string(req.Target.Kind()), req.Target.ID()
		}
		changes := encodeChanges(map[string]any{
			"action": req.Action,
			"reason": req.Reason,
		})
		_, err = repo.AppendAudit(ctx, tx, "moderation."+string(req.Action), entityType, entityID, actorID, changes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return action, nil
}

// removeContent applies the REMOVED transition to the action's target and
// audits the status change.
func (s *ModerationService) removeContent(ctx context.Context, tx *gorm.DB, actorID string, req ActionRequest) error {
	var (
		before domain.ContentStatus
		kind   = string(req.Target.Kind())
	)
	switch req.Target.Kind() {
	case domain.TargetThread:
		t, err := repo.GetThread(ctx, tx, req.Target.ID())
		if err != nil {
			return ErrThreadNotFound
		}
		before = t.Status
		if before.Terminal() {
			return ErrTerminalStatus
		}
		if err := repo.RemoveThreadCAS(ctx, tx, req.Target.ID()); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrTerminalStatus
			}
			return err
		}
	case domain.TargetPost:
		p, err := repo.GetPost(ctx, tx, req.Target.ID())
		if err != nil {
			return ErrPostNotFound
		}
		before = p.Status
		if before.Terminal() {
			return ErrTerminalStatus
		}
		if err := repo.RemovePostCAS(ctx, tx, req.Target.ID()); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrTerminalStatus
			}
			return err
		}
	}

	changes := encodeChanges(map[string]any{
		"before": map[string]any{"status": before},
		"after":  map[string]any{"status": domain.StatusRemoved},
		"reason": req.Reason,
	})
	_, err := repo.AppendAudit(ctx, tx, kind+".remove", kind, req.Target.ID(), actorID, changes)
	return err
}

// Resolve closes a report with a terminal status. Semantics:
//   - resolving an unresolved report records resolver, resolution text, and
//     timestamp, and writes an audit entry;
//   - resolving an already-resolved report with the same status returns the
//     report unchanged (idempotent retry);
//   - a different terminal status yields ErrReportResolved so a second
//     moderator cannot silently overwrite the first decision.
func (s *ModerationService) Resolve(ctx context.Context, actorID, reportID string, status domain.ReportStatus, resolution string) (*domain.Report, error) {
	tr := otel.Tracer("services/ModerationService")
	ctx, span := tr.Start(ctx, "Resolve",
		trace.WithAttributes(
			attribute.String("actor.id", actorID),
			attribute.String("report.id", reportID),
		),
	)
	defer span.End()

	if !status.Resolved() {
		return nil, ErrInvalidResolution
	}

	var resolved *domain.Report
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := repo.GetReport(ctx, tx, reportID)
		if err != nil {
			return ErrReportNotFound
		}
		if r.Status.Resolved() {
			if r.Status == status {
				resolved = r
				return nil
			}
			return ErrReportResolved
		}

		if err := repo.ResolveReportCAS(ctx, tx, reportID, status, actorID, resolution); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				// Lost a race against a concurrent resolver.
				return ErrReportResolved
			}
			return err
		}
		changes := encodeChanges(map[string]any{
			"before":     map[string]any{"status": r.Status},
			"after":      map[string]any{"status": status},
			"resolution": resolution,
		})
		if _, err := repo.AppendAudit(ctx, tx, "report.resolve", "report", reportID, actorID, changes); err != nil {
			return err
		}

		updated, err := repo.GetReport(ctx, tx, reportID)
		if err != nil {
			return err
		}
		resolved = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// BeginReview marks an OPEN report IN_REVIEW so triage views show who is
// already looking at what. Best effort; already-claimed reports are left
// alone.
func (s *ModerationService) BeginReview(ctx context.Context, reportID string) error {
	return repo.MarkReportInReview(ctx, s.DB, reportID)
}
