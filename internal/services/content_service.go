// Package services – ContentService
//
// This file implements the content status state machine's author-facing
// operations: editing (PUBLISHED or QUARANTINED only) and soft deletion.
// Moderator removal lives in ModerationService. Every status write goes
// through a compare-and-set repository helper so a stale edit can never
// resurrect removed content, and every mutation leaves an audit entry with
// the before/after body.
//
// Editing does not re-run the moderation pipeline; the audit entry keeps
// the previous text reviewable.
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

// ContentService owns author-driven lifecycle operations on threads and
// posts, plus the visibility rules readers see.
type ContentService struct {
	DB *gorm.DB

	MaxTitleRunes int
	MaxBodyRunes  int
}

// visibleStatuses returns the content statuses the given viewer may see in
// listings. Quarantined content is hidden from general readers pending
// review; moderators see it for triage.
func visibleStatuses(role domain.Role) []domain.ContentStatus {
	if role.AtLeast(domain.RoleModerator) {
		return []domain.ContentStatus{domain.StatusPublished, domain.StatusQuarantined, domain.StatusRemoved}
	}
	return []domain.ContentStatus{domain.StatusPublished}
}

// CanView reports whether the viewer may fetch this item directly.
// Quarantined and deleted content stays visible to its author; removed
// content is visible to moderators for reconciliation.
func CanView(status domain.ContentStatus, authorID, viewerID string, role domain.Role) bool {
	switch status {
	case domain.StatusPublished:
		return true
	case domain.StatusQuarantined, domain.StatusDeleted:
		return viewerID == authorID || role.AtLeast(domain.RoleModerator)
	case domain.StatusRemoved:
		return role.AtLeast(domain.RoleModerator)
	default:
		return role.AtLeast(domain.RoleModerator)
	}
}

// GetThread fetches a thread and applies the viewer's visibility rules.
func (s *ContentService) GetThread(ctx context.Context, id, viewerID string, role domain.Role) (*domain.Thread, error) {
	t, err := repo.GetThread(ctx, s.DB, id)
	if err != nil {
		return nil, ErrThreadNotFound
	}
	if !CanView(t.Status, t.AuthorID, viewerID, role) {
		return nil, ErrThreadNotFound
	}
	return t, nil
}

// GetPost fetches a post and applies the viewer's visibility rules.
func (s *ContentService) GetPost(ctx context.Context, id, viewerID string, role domain.Role) (*domain.Post, error) {
	p, err := repo.GetPost(ctx, s.DB, id)
	if err != nil {
		return nil, ErrPostNotFound
	}
	if !CanView(p.Status, p.AuthorID, viewerID, role) {
		return nil, ErrPostNotFound
	}
	return p, nil
}

// ListThreadsPage returns a page of threads visible to the viewer, plus the
// total count for pagination metadata.
func (s *ContentService) ListThreadsPage(ctx context.Context, role domain.Role, page, pageSize int) ([]domain.Thread, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	statuses := visibleStatuses(role)

	total, err := repo.CountThreads(ctx, s.DB, statuses)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Thread{}, 0, nil
	}
	items, err := repo.ListThreadsPage(ctx, s.DB, statuses, offset, pageSize)
	return items, total, err
}

// ListPostsPage returns a page of a thread's posts visible to the viewer.
func (s *ContentService) ListPostsPage(ctx context.Context, threadID string, viewerID string, role domain.Role, page, pageSize int) ([]domain.Post, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	// The thread itself must be visible before its posts are.
	if _, err := s.GetThread(ctx, threadID, viewerID, role); err != nil {
		return nil, 0, err
	}
	statuses := visibleStatuses(role)

	total, err := repo.CountPosts(ctx, s.DB, threadID, statuses)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Post{}, 0, nil
	}
	items, err := repo.ListPostsPage(ctx, s.DB, threadID, statuses, offset, pageSize)
	return items, total, err
}

// EditThread updates a thread's title and body on the author's behalf.
// Permitted only while the status is PUBLISHED or QUARANTINED; the audit
// entry captures the before/after text.
func (s *ContentService) EditThread(ctx context.Context, actorID, threadID, title, body string) (*domain.Thread, error) {
	tr := otel.Tracer("services/ContentService")
	ctx, span := tr.Start(ctx, "EditThread",
		trace.WithAttributes(attribute.String("thread.id", threadID)),
	)
	defer span.End()

	title = normalizeTitle(title)
	body = strings.TrimSpace(body)
	if title == "" || body == "" {
		return nil, ErrEmptyBody
	}
	if s.MaxTitleRunes > 0 && utf8.RuneCountInString(title) > s.MaxTitleRunes {
		return nil, ErrTooLong
	}
	if s.MaxBodyRunes > 0 && utf8.RuneCountInString(body) > s.MaxBodyRunes {
		return nil, ErrTooLong
	}

	var updated *domain.Thread
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := repo.GetThread(ctx, tx, threadID)
		if err != nil {
			return ErrThreadNotFound
		}
		if before.AuthorID != actorID {
			return ErrNotAuthor
		}
		if !before.Status.Editable() {
			return ErrTerminalStatus
		}
		if err := repo.UpdateThreadBody(ctx, tx, threadID, actorID, title, body); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				// Lost the CAS race against a concurrent removal.
				return ErrTerminalStatus
			}
			return err
		}
		changes := encodeChanges(map[string]any{
			"before": map[string]string{"title": before.Title, "body": before.Body},
			"after":  map[string]string{"title": title, "body": body},
		})
		if _, err := repo.AppendAudit(ctx, tx, "thread.edit", entityThread, threadID, actorID, changes); err != nil {
			return err
		}
		after := *before
		after.Title, after.Body = title, body
		updated = &after
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// EditPost updates a post's body on the author's behalf under the same
// rules as EditThread.
func (s *ContentService) EditPost(ctx context.Context, actorID, postID, body string) (*domain.Post, error) {
	tr := otel.Tracer("services/ContentService")
	ctx, span := tr.Start(ctx, "EditPost",
		trace.WithAttributes(attribute.String("post.id", postID)),
	)
	defer span.End()

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if s.MaxBodyRunes > 0 && utf8.RuneCountInString(body) > s.MaxBodyRunes {
		return nil, ErrTooLong
	}

	var updated *domain.Post
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := repo.GetPost(ctx, tx, postID)
		if err != nil {
			return ErrPostNotFound
		}
		if before.AuthorID != actorID {
			return ErrNotAuthor
		}
		if !before.Status.Editable() {
			return ErrTerminalStatus
		}
		if err := repo.UpdatePostBody(ctx, tx, postID, actorID, body); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrTerminalStatus
			}
			return err
		}
		changes := encodeChanges(map[string]any{
			"before": map[string]string{"body": before.Body},
			"after":  map[string]string{"body": body},
		})
		if _, err := repo.AppendAudit(ctx, tx, "post.edit", entityPost, postID, actorID, changes); err != nil {
			return err
		}
		after := *before
		after.Body = body
		updated = &after
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteThread soft-deletes a thread on the author's behalf. Rejected once
// the thread is REMOVED (moderator enforcement outranks self-service).
func (s *ContentService) DeleteThread(ctx context.Context, actorID, threadID string) error {
	return s.deleteContent(ctx, actorID, threadID, entityThread)
}

// DeletePost soft-deletes a post on the author's behalf.
func (s *ContentService) DeletePost(ctx context.Context, actorID, postID string) error {
	return s.deleteContent(ctx, actorID, postID, entityPost)
}

// deleteContent is the shared author-delete path for both content kinds.
func (s *ContentService) deleteContent(ctx context.Context, actorID, id, kind string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var (
			authorID string
			status   domain.ContentStatus
			cas      func() error
		)
		switch kind {
		case entityThread:
			t, err := repo.GetThread(ctx, tx, id)
			if err != nil {
				return ErrThreadNotFound
			}
			authorID, status = t.AuthorID, t.Status
			cas = func() error { return repo.DeleteThreadCAS(ctx, tx, id, actorID) }
		case entityPost:
			p, err := repo.GetPost(ctx, tx, id)
			if err != nil {
				return ErrPostNotFound
			}
			authorID, status = p.AuthorID, p.Status
			cas = func() error { return repo.DeletePostCAS(ctx, tx, id, actorID) }
		default:
			return ErrThreadNotFound
		}

		if authorID != actorID {
			return ErrNotAuthor
		}
		if status == domain.StatusDeleted {
			// Deleting twice is a harmless retry.
			return nil
		}
		if status.Terminal() {
			return ErrTerminalStatus
		}
		if err := cas(); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrTerminalStatus
			}
			return err
		}
		changes := encodeChanges(map[string]any{
			"before": map[string]any{"status": status},
			"after":  map[string]any{"status": domain.StatusDeleted},
		})
		_, err := repo.AppendAudit(ctx, tx, kind+".delete", kind, id, actorID, changes)
		return err
	})
}
