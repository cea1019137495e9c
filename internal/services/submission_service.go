// Package services – SubmissionService
//
// This file implements the submission pipeline, the application-level
// component that decides whether user-submitted text is published,
// quarantined, or rejected. The order is fixed: the local heuristic screen
// runs first and, when it flags, the AI content check is skipped entirely
// (cost control); otherwise the AI verdict decides. A BLOCKED verdict never
// produces a persisted row: blocking happens before creation, and only an
// audit entry records the attempt.
//
// Observability: public methods are OpenTelemetry-instrumented, and every
// pipeline decision increments a Prometheus counter labeled by content type
// and outcome.
package services

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/domain"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/moderation"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/repo"
)

const (
	entityThread = "thread"
	entityPost   = "post"
)

// submissionDecisions counts pipeline outcomes for dashboards and abuse
// analytics ("how much is the screen saving us", "how often does the AI
// block").
var submissionDecisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "submission_pipeline_decisions_total",
		Help: "Submission pipeline outcomes by content type and decision.",
	},
	[]string{"content_type", "outcome"},
)

func init() {
	prometheus.MustRegister(submissionDecisions)
}

// Tagger suggests advisory tags for published content. Implementations must
// be safe for concurrent use; failures are logged and swallowed.
type Tagger interface {
	Suggest(text string, max int) []string
}

// SubmissionService orchestrates the heuristic screen and the AI content
// check, persists the resulting content item, and writes the audit trail.
type SubmissionService struct {
	DB      *gorm.DB
	Screen  *moderation.Screen
	Checker moderation.Checker

	// Optional guards
	MaxTitleRunes int
	MaxBodyRunes  int

	// Tagger, when set, runs asynchronously after a PUBLISHED submission.
	Tagger Tagger
	Log    zerolog.Logger
}

// decision is the resolved outcome of the two-stage screening for one text.
type decision struct {
	status   domain.ContentStatus
	aiResult domain.AICheckResult
	verdict  *moderation.Verdict // nil when the heuristic screen decided
	matches  []string            // heuristic matches, for the audit payload
}

// SubmitThread runs the pipeline for a new thread and persists it with the
// resolved status. On a BLOCKED verdict it returns *ContentBlockedError and
// persists nothing but the audit entry describing the attempt.
func (s *SubmissionService) SubmitThread(ctx context.Context, authorID, title, body string) (*domain.Thread, error) {
	tr := otel.Tracer("services/SubmissionService")
	ctx, span := tr.Start(ctx, "SubmitThread",
		trace.WithAttributes(attribute.String("author.id", authorID)),
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

	dec, err := s.moderate(ctx, authorID, entityThread, title+"\n"+body)
	if err != nil {
		return nil, s.recordBlocked(ctx, err, entityThread, authorID)
	}

	var thread *domain.Thread
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := repo.CreateThread(ctx, tx, authorID, title, body, dec.status, dec.aiResult)
		if err != nil {
			return err
		}
		thread = t
		payload := map[string]any{
			"title":           title,
			"content_status":  dec.status,
			"ai_check_result": dec.aiResult,
		}
		if len(dec.matches) > 0 {
			payload["heuristic_matches"] = dec.matches
		}
		changes := encodeChanges(payload)
		_, err = repo.AppendAudit(ctx, tx, "thread.create", entityThread, t.ID, authorID, changes)
		return err
	})
	if err != nil {
		return nil, err
	}

	submissionDecisions.WithLabelValues(entityThread, string(dec.status)).Inc()
	if dec.status == domain.StatusPublished {
		s.autoTag(entityThread, thread.ID, title+"\n"+body)
	}
	return thread, nil
}

// SubmitPost runs the pipeline for a new post under threadID. The parent
// thread must exist and accept replies (PUBLISHED).
func (s *SubmissionService) SubmitPost(ctx context.Context, authorID, threadID, body string) (*domain.Post, error) {
	tr := otel.Tracer("services/SubmissionService")
	ctx, span := tr.Start(ctx, "SubmitPost",
		trace.WithAttributes(
			attribute.String("author.id", authorID),
			attribute.String("thread.id", threadID),
		),
	)
	defer span.End()

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if s.MaxBodyRunes > 0 && utf8.RuneCountInString(body) > s.MaxBodyRunes {
		return nil, ErrTooLong
	}

	parent, err := repo.GetThread(ctx, s.DB, threadID)
	if err != nil {
		return nil, ErrThreadNotFound
	}
	if parent.Status != domain.StatusPublished {
		return nil, ErrThreadNotFound
	}

	dec, err := s.moderate(ctx, authorID, entityPost, body)
	if err != nil {
		return nil, s.recordBlocked(ctx, err, entityPost, authorID)
	}

	var post *domain.Post
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := repo.CreatePost(ctx, tx, threadID, authorID, body, dec.status, dec.aiResult)
		if err != nil {
			return err
		}
		post = p
		payload := map[string]any{
			"thread_id":       threadID,
			"content_status":  dec.status,
			"ai_check_result": dec.aiResult,
		}
		if len(dec.matches) > 0 {
			payload["heuristic_matches"] = dec.matches
		}
		changes := encodeChanges(payload)
		_, err = repo.AppendAudit(ctx, tx, "post.create", entityPost, p.ID, authorID, changes)
		return err
	})
	if err != nil {
		return nil, err
	}

	submissionDecisions.WithLabelValues(entityPost, string(dec.status)).Inc()
	if dec.status == domain.StatusPublished {
		s.autoTag(entityPost, post.ID, body)
	}
	return post, nil
}

// moderate resolves the publication decision for text. It returns
// *ContentBlockedError when the AI verdict is BLOCKED and ErrCheckUnavailable
// when the check cannot run; it never substitutes a default verdict.
func (s *SubmissionService) moderate(ctx context.Context, authorID, contentType, text string) (decision, error) {
	// Stage 1: local heuristic screen. A hit quarantines and skips the AI
	// call entirely.
	if res := s.Screen.Scan(text); res.Flagged {
		return decision{
			status:   domain.StatusQuarantined,
			aiResult: domain.AICheckFlagged,
			matches:  res.Matches,
		}, nil
	}

	// Stage 2: AI content check. Failure here is a hard dependency
	// failure; publishing is never the fallback of an unavailable safety
	// check.
	verdict, err := s.Checker.Check(ctx, moderation.CheckRequest{
		Content:     text,
		ContentType: contentType,
		AuthorID:    authorID,
	})
	if err != nil {
		return decision{}, ErrCheckUnavailable
	}

	switch verdict.Decision {
	case moderation.DecisionBlocked:
		return decision{verdict: verdict}, &ContentBlockedError{Reasons: verdict.Reasons}
	case moderation.DecisionFlagged:
		return decision{
			status:   domain.StatusQuarantined,
			aiResult: domain.AICheckFlagged,
			verdict:  verdict,
		}, nil
	default: // PASS or SKIPPED publish
		return decision{
			status:   domain.StatusPublished,
			aiResult: domain.AICheckPass,
			verdict:  verdict,
		}, nil
	}
}

// recordBlocked writes the audit entry for a blocked attempt (no entity id,
// the content was never created) and passes the error through. Dependency
// failures are returned untouched.
func (s *SubmissionService) recordBlocked(ctx context.Context, err error, contentType, authorID string) error {
	blocked, ok := IsContentBlocked(err)
	if !ok {
		return err
	}
	changes := encodeChanges(map[string]any{
		"ai_check_result": domain.AICheckBlocked,
		"reasons":         blocked.Reasons,
	})
	if _, aerr := repo.AppendAudit(ctx, s.DB, contentType+".create.blocked", contentType, "", authorID, changes); aerr != nil {
		// The rejection stands either way; losing the analytics row is
		// worth a log line, not a different answer to the caller.
		s.Log.Error().Err(aerr).Str("content_type", contentType).Msg("audit blocked attempt failed")
	}
	submissionDecisions.WithLabelValues(contentType, string(domain.AICheckBlocked)).Inc()
	return err
}

// autoTag dispatches the best-effort tagging task for published content.
// Errors are logged, never surfaced; tagging is advisory and must not block
// or reverse publication.
func (s *SubmissionService) autoTag(contentType, id, text string) {
	if s.Tagger == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.Log.Error().Interface("panic", r).Msg("auto-tagging panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		tags := s.Tagger.Suggest(text, 5)
		if len(tags) == 0 {
			return
		}
		joined := strings.Join(tags, ",")

		var err error
		switch contentType {
		case entityThread:
			err = repo.SetThreadTags(ctx, s.DB, id, joined)
		case entityPost:
			err = repo.SetPostTags(ctx, s.DB, id, joined)
		}
		if err != nil {
			s.Log.Warn().Err(err).Str("id", id).Msg("auto-tagging write failed")
		}
	}()
}

// encodeChanges marshals an audit payload; encoding a plain map cannot
// realistically fail, so errors degrade to an empty object.
func encodeChanges(m map[string]any) string {
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// normalizeTitle trims whitespace and collapses multiple spaces to one.
func normalizeTitle(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
