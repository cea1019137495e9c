package domain

import "errors"

// TargetKind discriminates the content kind a report or action points at.
type TargetKind string

const (
	TargetThread TargetKind = "thread"
	TargetPost   TargetKind = "post"
)

// ErrInvalidTarget is returned when a target does not reference exactly one
// thread or one post.
var ErrInvalidTarget = errors.New("target must reference exactly one thread or post")

// Target is a tagged variant identifying exactly one thread or one post.
// Constructing it through ThreadTarget/PostTarget (or NewTarget for the
// two-nullable-field wire shape) keeps the exclusivity invariant out of
// reach of callers.
type Target struct {
	kind TargetKind
	id   string
}

// ThreadTarget returns a Target pointing at the given thread.
func ThreadTarget(id string) Target { return Target{kind: TargetThread, id: id} }

// PostTarget returns a Target pointing at the given post.
func PostTarget(id string) Target { return Target{kind: TargetPost, id: id} }

// NewTarget builds a Target from the optional thread/post id pair used on
// the wire. Exactly one of the two must be non-empty.
func NewTarget(threadID, postID string) (Target, error) {
	switch {
	case threadID != "" && postID == "":
		return ThreadTarget(threadID), nil
	case postID != "" && threadID == "":
		return PostTarget(postID), nil
	default:
		return Target{}, ErrInvalidTarget
	}
}

// Kind returns the discriminator.
func (t Target) Kind() TargetKind { return t.kind }

// ID returns the referenced entity id.
func (t Target) ID() string { return t.id }

// IsZero reports whether the target was never initialized.
func (t Target) IsZero() bool { return t.kind == "" || t.id == "" }

// Columns splits the target back into the nullable column pair used by the
// persistence layer. Exactly one pointer is non-nil.
func (t Target) Columns() (threadID, postID *string) {
	switch t.kind {
	case TargetThread:
		return &t.id, nil
	case TargetPost:
		return nil, &t.id
	default:
		return nil, nil
	}
}
