// Package domain defines the persistence models and enumerated values for
// the content-trust pipeline: threads, posts, reports, moderation actions,
// and the append-only audit log. These types are mapped with GORM and are
// shared across the repository and service layers.
package domain

// ContentStatus is the lifecycle state of a thread or post.
//
// Transitions:
//
//	PUBLISHED|QUARANTINED -> REMOVED   (moderator only)
//	PUBLISHED|QUARANTINED -> DELETED   (author only)
//
// REMOVED and DELETED are terminal; no transition leaves them. DRAFT exists
// for completeness but the submission pipeline writes directly into
// PUBLISHED or QUARANTINED.
type ContentStatus string

const (
	StatusDraft       ContentStatus = "DRAFT"
	StatusPublished   ContentStatus = "PUBLISHED"
	StatusQuarantined ContentStatus = "QUARANTINED"
	StatusRemoved     ContentStatus = "REMOVED"
	StatusDeleted     ContentStatus = "DELETED"
)

// Terminal reports whether no transition may leave the status.
func (s ContentStatus) Terminal() bool {
	return s == StatusRemoved || s == StatusDeleted
}

// Editable reports whether an author may still change the content body.
func (s ContentStatus) Editable() bool {
	return s == StatusPublished || s == StatusQuarantined
}

// contentStatuses lists every ContentStatus in declaration order.
var contentStatuses = []ContentStatus{
	StatusDraft, StatusPublished, StatusQuarantined, StatusRemoved, StatusDeleted,
}

// TransitionSources returns every status from which the state machine
// permits a move to to. The persistence layer builds its compare-and-set
// predicates from this, so the transition table stays the single source of
// truth for the graph.
func TransitionSources(to ContentStatus) []ContentStatus {
	var out []ContentStatus
	for _, from := range contentStatuses {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// CanTransition reports whether the state machine permits from -> to.
// Who may drive the transition (author vs. moderator) is enforced by the
// service layer; this only encodes the shape of the graph.
func CanTransition(from, to ContentStatus) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case StatusPublished, StatusQuarantined:
		return from == StatusDraft
	case StatusRemoved, StatusDeleted:
		return from == StatusPublished || from == StatusQuarantined
	default:
		return false
	}
}

// AICheckResult records the outcome of the moderation pipeline for a
// persisted content item. A BLOCKED verdict never produces a row, so the
// stored values are PASS, FLAGGED, or SKIPPED.
type AICheckResult string

const (
	AICheckPass    AICheckResult = "PASS"
	AICheckFlagged AICheckResult = "FLAGGED"
	AICheckBlocked AICheckResult = "BLOCKED"
	AICheckSkipped AICheckResult = "SKIPPED"
)

// ReportReason categorizes a user complaint.
type ReportReason string

const (
	ReasonSpam           ReportReason = "SPAM"
	ReasonHarassment     ReportReason = "HARASSMENT"
	ReasonHateSpeech     ReportReason = "HATE_SPEECH"
	ReasonMisinformation ReportReason = "MISINFORMATION"
	ReasonOffTopic       ReportReason = "OFF_TOPIC"
	ReasonSpoilers       ReportReason = "SPOILERS"
	ReasonOther          ReportReason = "OTHER"
)

// Valid reports whether the reason is one of the accepted values.
func (r ReportReason) Valid() bool {
	switch r {
	case ReasonSpam, ReasonHarassment, ReasonHateSpeech,
		ReasonMisinformation, ReasonOffTopic, ReasonSpoilers, ReasonOther:
		return true
	}
	return false
}

// ReportStatus tracks a report through triage. RESOLVED_* values are
// terminal.
type ReportStatus string

const (
	ReportOpen             ReportStatus = "OPEN"
	ReportInReview         ReportStatus = "IN_REVIEW"
	ReportResolvedRemoved  ReportStatus = "RESOLVED_REMOVED"
	ReportResolvedDismiss  ReportStatus = "RESOLVED_DISMISSED"
	ReportResolvedWarned   ReportStatus = "RESOLVED_WARNED"
)

// Resolved reports whether the status is terminal.
func (s ReportStatus) Resolved() bool {
	switch s {
	case ReportResolvedRemoved, ReportResolvedDismiss, ReportResolvedWarned:
		return true
	}
	return false
}

// Valid reports whether the status is one of the accepted values.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportOpen, ReportInReview,
		ReportResolvedRemoved, ReportResolvedDismiss, ReportResolvedWarned:
		return true
	}
	return false
}

// ActionType identifies a moderation action.
type ActionType string

const (
	ActionRemoveContent ActionType = "REMOVE_CONTENT"
	ActionWarnUser      ActionType = "WARN_USER"
)

// Valid reports whether the action type is one of the accepted values.
func (a ActionType) Valid() bool {
	return a == ActionRemoveContent || a == ActionWarnUser
}

// Role is the caller's privilege level, provided by the upstream auth layer.
type Role string

const (
	RoleVisitor   Role = "VISITOR"
	RoleMember    Role = "MEMBER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// roleRank orders roles for AtLeast comparisons.
var roleRank = map[Role]int{
	RoleVisitor:   0,
	RoleMember:    1,
	RoleModerator: 2,
	RoleAdmin:     3,
}

// AtLeast reports whether the role grants at least the privileges of other.
// Unknown roles rank below VISITOR.
func (r Role) AtLeast(other Role) bool {
	ra, ok := roleRank[r]
	if !ok {
		return false
	}
	return ra >= roleRank[other]
}
