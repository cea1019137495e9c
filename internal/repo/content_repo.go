// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for threads and
// posts.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Status transitions use compare-and-set updates conditioned on the current
// status so a stale writer can never resurrect removed content. Callers
// inspect ErrNotFound to distinguish "row missing or not in the expected
// state" from other DB failures.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist (or, for
// compare-and-set updates, is not in one of the expected states). It
// aliases gorm.ErrRecordNotFound for consistency across layers.
var ErrNotFound = gorm.ErrRecordNotFound

// editableStatuses gates author edits, which change the text but not the
// status. It coincides with the removable set today but is a distinct rule.
var editableStatuses = []domain.ContentStatus{domain.StatusPublished, domain.StatusQuarantined}

// CAS transitions draw their allowed source states from the domain
// transition table.
var (
	removableStatuses = domain.TransitionSources(domain.StatusRemoved)
	deletableStatuses = domain.TransitionSources(domain.StatusDeleted)
)

// CreateThread inserts a new thread row with the status and AI check result
// the submission pipeline resolved.
func CreateThread(ctx context.Context, db *gorm.DB, authorID, title, body string, status domain.ContentStatus, aiResult domain.AICheckResult) (*domain.Thread, error) {
	t := &domain.Thread{
		ID:            uuid.NewString(),
		AuthorID:      authorID,
		Title:         title,
		Body:          body,
		Status:        status,
		AICheckResult: aiResult,
		CreatedAt:     time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// CreatePost inserts a new post row under threadID.
func CreatePost(ctx context.Context, db *gorm.DB, threadID, authorID, body string, status domain.ContentStatus, aiResult domain.AICheckResult) (*domain.Post, error) {
	p := &domain.Post{
		ID:            uuid.NewString(),
		ThreadID:      threadID,
		AuthorID:      authorID,
		Body:          body,
		Status:        status,
		AICheckResult: aiResult,
		CreatedAt:     time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetThread fetches a thread by ID regardless of status. Soft-deleted rows
// are included so owners and moderation tooling can still see them; callers
// apply visibility rules.
func GetThread(ctx context.Context, db *gorm.DB, id string) (*domain.Thread, error) {
	var t domain.Thread
	err := db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetPost fetches a post by ID regardless of status.
func GetPost(ctx context.Context, db *gorm.DB, id string) (*domain.Post, error) {
	var p domain.Post
	err := db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CountThreads returns the number of threads in the given statuses.
func CountThreads(ctx context.Context, db *gorm.DB, statuses []domain.ContentStatus) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Thread{}).
		Where("status IN ?", statuses).
		Count(&total).Error
	return total, err
}

// ListThreadsPage returns a page of threads in the given statuses, newest
// first. Soft-deleted rows are excluded by GORM's default scope.
func ListThreadsPage(ctx context.Context, db *gorm.DB, statuses []domain.ContentStatus, offset, limit int) ([]domain.Thread, error) {
	var out []domain.Thread
	err := db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountPosts returns the number of posts under threadID in the given statuses.
func CountPosts(ctx context.Context, db *gorm.DB, threadID string, statuses []domain.ContentStatus) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("thread_id = ? AND status IN ?", threadID, statuses).
		Count(&total).Error
	return total, err
}

// ListPostsPage returns a page of posts under threadID in the given
// statuses, oldest first (reading order).
func ListPostsPage(ctx context.Context, db *gorm.DB, threadID string, statuses []domain.ContentStatus, offset, limit int) ([]domain.Post, error) {
	var out []domain.Post
	err := db.WithContext(ctx).
		Where("thread_id = ? AND status IN ?", threadID, statuses).
		Order("created_at asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateThreadBody updates a thread's title and body, conditioned on the
// author owning the row and the status still being editable. Returns
// ErrNotFound when no row matched (missing, not owned, or already in a
// terminal state).
func UpdateThreadBody(ctx context.Context, db *gorm.DB, id, authorID, title, body string) error {
	res := db.WithContext(ctx).
		Model(&domain.Thread{}).
		Where("id = ? AND author_id = ? AND status IN ?", id, authorID, editableStatuses).
		Updates(map[string]any{"title": title, "body": body})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePostBody updates a post's body under the same conditions as
// UpdateThreadBody.
func UpdatePostBody(ctx context.Context, db *gorm.DB, id, authorID, body string) error {
	res := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id = ? AND author_id = ? AND status IN ?", id, authorID, editableStatuses).
		Update("body", body)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveThreadCAS transitions a thread to REMOVED if and only if it is
// currently PUBLISHED or QUARANTINED. Returns ErrNotFound when the row is
// missing or already terminal.
func RemoveThreadCAS(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Thread{}).
		Where("id = ? AND status IN ?", id, removableStatuses).
		Update("status", domain.StatusRemoved)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RemovePostCAS transitions a post to REMOVED under the same conditions.
func RemovePostCAS(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id = ? AND status IN ?", id, removableStatuses).
		Update("status", domain.StatusRemoved)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteThreadCAS transitions a thread to DELETED on the author's behalf.
// The soft-delete marker is set in the same statement so default listings
// stop returning the row, while Unscoped fetches still can.
func DeleteThreadCAS(ctx context.Context, db *gorm.DB, id, authorID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Thread{}).
		Where("id = ? AND author_id = ? AND status IN ?", id, authorID, deletableStatuses).
		Updates(map[string]any{"status": domain.StatusDeleted, "deleted_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePostCAS transitions a post to DELETED on the author's behalf.
func DeletePostCAS(ctx context.Context, db *gorm.DB, id, authorID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id = ? AND author_id = ? AND status IN ?", id, authorID, deletableStatuses).
		Updates(map[string]any{"status": domain.StatusDeleted, "deleted_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetThreadTags stores the advisory tag list produced by auto-tagging.
// Failures here never affect publication; callers log and move on.
func SetThreadTags(ctx context.Context, db *gorm.DB, id, tags string) error {
	return db.WithContext(ctx).
		Model(&domain.Thread{}).
		Where("id = ?", id).
		Update("tags", tags).Error
}

// SetPostTags stores the advisory tag list for a post.
func SetPostTags(ctx context.Context, db *gorm.DB, id, tags string) error {
	return db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id = ?", id).
		Update("tags", tags).Error
}
