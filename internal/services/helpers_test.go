package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/domain"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/moderation"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/repo"
)

// newTestDB opens a named shared in-memory SQLite and migrates the schema.
func newTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// fakeChecker returns a canned verdict (or error) and counts calls, so tests
// can assert the AI check was or was not consulted.
type fakeChecker struct {
	verdict *moderation.Verdict
	err     error
	calls   atomic.Int64
}

func (f *fakeChecker) Check(context.Context, moderation.CheckRequest) (*moderation.Verdict, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.verdict, nil
}

func passVerdict() *moderation.Verdict {
	return &moderation.Verdict{Decision: moderation.DecisionPass, Confidence: 0.95}
}

func blockedVerdict(reasons ...string) *moderation.Verdict {
	return &moderation.Verdict{Decision: moderation.DecisionBlocked, Confidence: 0.9, Reasons: reasons}
}

// newSubmission wires a SubmissionService against the given DB and checker
// with the default screen and no tagger.
func newSubmission(db *gorm.DB, checker moderation.Checker) *SubmissionService {
	return &SubmissionService{
		DB:            db,
		Screen:        moderation.NewScreen(nil),
		Checker:       checker,
		MaxTitleRunes: 200,
		MaxBodyRunes:  20000,
	}
}

// seedThread inserts a thread directly in the given status.
func seedThread(t *testing.T, db *gorm.DB, authorID string, status domain.ContentStatus) *domain.Thread {
	t.Helper()
	th, err := repo.CreateThread(context.Background(), db, authorID, "Seeded title", "Seeded body", status, domain.AICheckPass)
	if err != nil {
		t.Fatalf("seed thread: %v", err)
	}
	return th
}

// seedPost inserts a post directly in the given status.
func seedPost(t *testing.T, db *gorm.DB, threadID, authorID string, status domain.ContentStatus) *domain.Post {
	t.Helper()
	p, err := repo.CreatePost(context.Background(), db, threadID, authorID, "Seeded post body", status, domain.AICheckPass)
	if err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return p
}

// countAudit returns how many audit entries match the filter.
func countAudit(t *testing.T, db *gorm.DB, f repo.AuditFilter) int64 {
	t.Helper()
	n, err := repo.CountAudit(context.Background(), db, f)
	if err != nil {
		t.Fatalf("count audit: %v", err)
	}
	return n
}
