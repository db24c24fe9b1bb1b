package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"storycurator/internal/flagging"
	"storycurator/internal/tagging"
)

// Run is one persisted review run over the corpus.
type Run struct {
	ID            string
	CreatedAt     time.Time
	Provider      string
	Model         string
	StoryCount    int
	FlagCount     int
	SkillCount    int
	CriticalCount int
}

// NewRun mints a run record for the given provider and model.
func NewRun(provider, model string) Run {
	return Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Provider:  provider,
		Model:     model,
	}
}

// FlagRecord is one persisted safety flag.
type FlagRecord struct {
	StoryID      string
	Severity     string
	IssueType    string
	TextEvidence string
	Rationale    string
	Confidence   float64
}

// SkillRecord is one persisted skill tag.
type SkillRecord struct {
	StoryID      string
	SkillID      string
	SkillName    string
	TextEvidence string
	Rationale    string
	Confidence   float64
}

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS review_runs (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP NOT NULL,
			provider TEXT,
			model TEXT,
			story_count INTEGER,
			flag_count INTEGER,
			skill_count INTEGER,
			critical_count INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS story_flags (
			run_id TEXT NOT NULL,
			story_id TEXT NOT NULL,
			severity TEXT,
			issue_type TEXT,
			text_evidence TEXT,
			rationale TEXT,
			confidence REAL
		);`,
		`CREATE TABLE IF NOT EXISTS story_skills (
			run_id TEXT NOT NULL,
			story_id TEXT NOT NULL,
			skill_id TEXT,
			skill_name TEXT,
			text_evidence TEXT,
			rationale TEXT,
			confidence REAL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_story_flags_run ON story_flags(run_id);`,
		`CREATE INDEX IF NOT EXISTS idx_story_skills_run ON story_skills(run_id);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun persists one review run with its flags and skill tags in a
// single transaction, filling in the run's counters. Degraded story
// entries contribute no rows.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run, reviews []flagging.StoryReview, tags []tagging.StoryTags) error {
	run.StoryCount = len(reviews)
	if len(tags) > run.StoryCount {
		run.StoryCount = len(tags)
	}
	run.FlagCount = 0
	run.SkillCount = 0
	run.CriticalCount = 0
	for _, review := range reviews {
		run.FlagCount += len(review.Flags)
		if review.HasCritical {
			run.CriticalCount++
		}
	}
	for _, story := range tags {
		run.SkillCount += len(story.Tags)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO review_runs (id, created_at, provider, model, story_count, flag_count, skill_count, critical_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.CreatedAt, run.Provider, run.Model, run.StoryCount, run.FlagCount, run.SkillCount, run.CriticalCount); err != nil {
		return err
	}

	flagStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO story_flags (run_id, story_id, severity, issue_type, text_evidence, rationale, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer flagStmt.Close()

	for _, review := range reviews {
		for _, flag := range review.Flags {
			if _, err := flagStmt.Exec(run.ID, review.StoryID, flag.Severity, flag.IssueType, flag.TextEvidence, flag.Rationale, flag.Confidence); err != nil {
				return err
			}
		}
	}

	skillStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO story_skills (run_id, story_id, skill_id, skill_name, text_evidence, rationale, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer skillStmt.Close()

	for _, story := range tags {
		for _, tag := range story.Tags {
			if _, err := skillStmt.Exec(run.ID, story.StoryID, tag.SkillID, tag.SkillName, tag.SentenceEvidence, tag.Rationale, tag.Confidence); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// ListRuns returns runs newest first. A non-positive limit returns all.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT id, created_at, provider, model, story_count, flag_count, skill_count, critical_count FROM review_runs ORDER BY created_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.CreatedAt, &run.Provider, &run.Model, &run.StoryCount, &run.FlagCount, &run.SkillCount, &run.CriticalCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// FlagsForRun returns the flags persisted for one run in insert order.
func (s *SQLiteStore) FlagsForRun(ctx context.Context, runID string) ([]FlagRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT story_id, severity, issue_type, text_evidence, rationale, confidence FROM story_flags WHERE run_id = ? ORDER BY rowid", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []FlagRecord
	for rows.Next() {
		var r FlagRecord
		if err := rows.Scan(&r.StoryID, &r.Severity, &r.IssueType, &r.TextEvidence, &r.Rationale, &r.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan flag: %w", err)
		}
		records = append(records, r)
	}
	return records, nil
}

// SkillsForRun returns the skill tags persisted for one run in insert order.
func (s *SQLiteStore) SkillsForRun(ctx context.Context, runID string) ([]SkillRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT story_id, skill_id, skill_name, text_evidence, rationale, confidence FROM story_skills WHERE run_id = ? ORDER BY rowid", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SkillRecord
	for rows.Next() {
		var r SkillRecord
		if err := rows.Scan(&r.StoryID, &r.SkillID, &r.SkillName, &r.TextEvidence, &r.Rationale, &r.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		records = append(records, r)
	}
	return records, nil
}
