// Package moderation implements the two-stage content screening used by the
// submission pipeline: a fast, local heuristic screen and a client for the
// companion service's AI content check.
package moderation

// Decision is the AI content check's judgment on a piece of text.
type Decision string

const (
	DecisionPass    Decision = "PASS"
	DecisionFlagged Decision = "FLAGGED"
	DecisionBlocked Decision = "BLOCKED"
	DecisionSkipped Decision = "SKIPPED"
)

// Verdict is the structured moderation result returned by the AI content
// check. It is an immutable value object: never persisted verbatim except
// embedded in an audit log entry's payload.
type Verdict struct {
	Decision   Decision `json:"decision"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
	Categories []string `json:"categories"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// CheckRequest is the input contract of the AI content check.
type CheckRequest struct {
	Content     string `json:"content"`
	ContentType string `json:"contentType"` // "thread" or "post"
	AuthorID    string `json:"authorId"`
	Context     string `json:"context,omitempty"`
}
