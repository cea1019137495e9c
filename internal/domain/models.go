// Package domain defines the persistence models and enumerated values for
// the content-trust pipeline. This file holds the GORM entities.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Thread is a top-level discussion item. Its status and AI check result are
// written only by the submission pipeline (creation), the author (edit or
// soft delete), or the moderation action executor (removal).
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - AuthorID: identifier of the thread owner; indexed for retrieval.
//   - Title / Body: user-submitted text, screened before persistence.
//   - Status: lifecycle state (see ContentStatus).
//   - AICheckResult: outcome the pipeline recorded at creation time.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: GORM soft-delete marker, set alongside Status=DELETED so
//     the row stays fetchable by the owner and moderation tooling.
type Thread struct {
	ID            string         `json:"id"              gorm:"type:char(36);primaryKey"`
	AuthorID      string         `json:"author_id"       gorm:"type:varchar(64);not null;index:idx_author_threads"`
	Title         string         `json:"title"           gorm:"type:varchar(255);not null"`
	Body          string         `json:"body"            gorm:"type:text;not null"`
	Status        ContentStatus  `json:"status"          gorm:"type:varchar(16);not null;index;check:status IN ('DRAFT','PUBLISHED','QUARANTINED','REMOVED','DELETED')"`
	AICheckResult AICheckResult  `json:"ai_check_result" gorm:"type:varchar(16);not null;check:ai_check_result IN ('PASS','FLAGGED','SKIPPED')"`
	Tags          string         `json:"tags,omitempty"  gorm:"type:varchar(255)"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"               gorm:"index"`
}

// TableName returns the database table name for Thread.
func (Thread) TableName() string { return "threads" }

// Post is a reply within a thread. Lifecycle rules mirror Thread.
type Post struct {
	ID            string         `json:"id"              gorm:"type:char(36);primaryKey"`
	ThreadID      string         `json:"thread_id"       gorm:"type:char(36);not null;index:idx_thread_posts,priority:1"`
	AuthorID      string         `json:"author_id"       gorm:"type:varchar(64);not null;index"`
	Body          string         `json:"body"            gorm:"type:text;not null"`
	Status        ContentStatus  `json:"status"          gorm:"type:varchar(16);not null;index;check:status IN ('DRAFT','PUBLISHED','QUARANTINED','REMOVED','DELETED')"`
	AICheckResult AICheckResult  `json:"ai_check_result" gorm:"type:varchar(16);not null;check:ai_check_result IN ('PASS','FLAGGED','SKIPPED')"`
	Tags          string         `json:"tags,omitempty"  gorm:"type:varchar(255)"`
	CreatedAt     time.Time      `json:"created_at"      gorm:"index:idx_thread_posts,priority:2"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"               gorm:"index"`

	// Thread is the parent discussion. Posts are cascade-deleted if their
	// thread row is hard-removed.
	Thread Thread `json:"-" gorm:"foreignKey:ThreadID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }

// Report is a user complaint against exactly one thread or one post. The
// thread-xor-post invariant is enforced by the service layer (via the
// Target variant) and again by a row-level CHECK constraint.
type Report struct {
	ID             string         `json:"id"                         gorm:"type:char(36);primaryKey"`
	Reason         ReportReason   `json:"reason"                     gorm:"type:varchar(32);not null"`
	Description    string         `json:"description,omitempty"      gorm:"type:text"`
	FilerID        string         `json:"filer_id"                   gorm:"type:varchar(64);not null;index"`
	TargetThreadID *string        `json:"target_thread_id,omitempty" gorm:"type:char(36);index;check:chk_one_target,(target_thread_id IS NULL) <> (target_post_id IS NULL)"`
	TargetPostID   *string        `json:"target_post_id,omitempty"   gorm:"type:char(36);index"`
	Status         ReportStatus   `json:"status"                     gorm:"type:varchar(32);not null;index;default:'OPEN'"`
	ResolverID     *string        `json:"resolver_id,omitempty"      gorm:"type:varchar(64)"`
	Resolution     string         `json:"resolution,omitempty"       gorm:"type:text"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
	DeletedAt      gorm.DeletedAt `json:"-"                          gorm:"index"`
}

// TableName returns the database table name for Report.
func (Report) TableName() string { return "reports" }

// ModerationAction is a write-once record of a moderator decision. It feeds
// the audit log and provides the provenance link required for REMOVED
// content.
type ModerationAction struct {
	ID             string     `json:"id"                         gorm:"type:char(36);primaryKey"`
	Action         ActionType `json:"action"                     gorm:"type:varchar(32);not null"`
	Reason         string     `json:"reason"                     gorm:"type:text;not null"`
	ActorID        string     `json:"actor_id"                   gorm:"type:varchar(64);not null;index"`
	TargetUserID   *string    `json:"target_user_id,omitempty"   gorm:"type:varchar(64);index"`
	TargetThreadID *string    `json:"target_thread_id,omitempty" gorm:"type:char(36);index"`
	TargetPostID   *string    `json:"target_post_id,omitempty"   gorm:"type:char(36);index"`
	Metadata       string     `json:"metadata,omitempty"         gorm:"type:text"`
	CreatedAt      time.Time  `json:"created_at"                 gorm:"index"`
}

// TableName returns the database table name for ModerationAction.
func (ModerationAction) TableName() string { return "moderation_actions" }

// AuditLogEntry is an append-only record of a state-changing action. Rows
// are never updated or deleted; they are the sole source of historical
// truth for "who did what".
type AuditLogEntry struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	Action     string    `json:"action"      gorm:"type:varchar(64);not null;index"`
	EntityType string    `json:"entity_type" gorm:"type:varchar(32);not null;index:idx_audit_entity,priority:1"`
	EntityID   string    `json:"entity_id"   gorm:"type:char(36);index:idx_audit_entity,priority:2"`
	UserID     string    `json:"user_id"     gorm:"type:varchar(64);not null;index"`
	Changes    string    `json:"changes"     gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"  gorm:"index"`
}

// TableName returns the database table name for AuditLogEntry.
func (AuditLogEntry) TableName() string { return "audit_log" }

// Idempotency represents a recorded result of a previously processed
// creation request, keyed by (user_id, scope, key). It enables safe retries
// for POST operations by returning the originally produced entity without
// re-running the moderation pipeline.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:1"`
	Scope     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:3"`
	EntityID  string    `gorm:"type:TEXT NOT NULL"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
