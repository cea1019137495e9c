// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// write-once ModerationAction model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/domain"
)

// CreateModerationAction inserts a moderation action row. Actions are
// write-once: there are no update or delete helpers.
func CreateModerationAction(ctx context.Context, db *gorm.DB, a *domain.ModerationAction) (*domain.ModerationAction, error) {
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// ListActionsByActorPage returns a page of a moderator's actions, newest
// first.
func ListActionsByActorPage(ctx context.Context, db *gorm.DB, actorID string, offset, limit int) ([]domain.ModerationAction, error) {
	var out []domain.ModerationAction
	err := db.WithContext(ctx).
		Where("actor_id = ?", actorID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountWarningsForUser returns how many WARN_USER actions target the given
// user. Warnings do not escalate automatically; the count exists for
// moderator tooling.
func CountWarningsForUser(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ModerationAction{}).
		Where("action = ? AND target_user_id = ?", domain.ActionWarnUser, userID).
		Count(&total).Error
	return total, err
}
