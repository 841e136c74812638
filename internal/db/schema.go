package db

import (
	"context"
	"fmt"
	"log/slog"
)

// Migration is one idempotent bootstrap statement.
type Migration struct {
	Name string
	SQL  string
}

// Migrations creates the tables and unique indexes the stores rely on.
// Conflict detection (duplicate bookmark, vote, email, paper url) depends on
// these indexes, so they are kept next to the code that reads their names.
var Migrations = []Migration{
	{Name: "create_users", SQL: `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL CONSTRAINT users_username_key UNIQUE,
			email         TEXT NOT NULL CONSTRAINT users_email_key UNIQUE,
			password_hash TEXT NOT NULL,
			display_name  TEXT NOT NULL DEFAULT '',
			is_active     BOOLEAN NOT NULL DEFAULT TRUE,
			is_verified   BOOLEAN NOT NULL DEFAULT FALSE,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_login_at TIMESTAMPTZ
		)`},
	{Name: "create_sessions", SQL: `
		CREATE TABLE IF NOT EXISTS sessions (
			session_token TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at    TIMESTAMPTZ NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{Name: "index_sessions_user", SQL: `CREATE INDEX IF NOT EXISTS sessions_user_idx ON sessions (user_id)`},
	{Name: "create_jobs", SQL: `
		CREATE TABLE IF NOT EXISTS jobs (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			company     TEXT NOT NULL,
			location    TEXT NOT NULL DEFAULT '',
			department  TEXT NOT NULL DEFAULT '',
			salary_min  INTEGER,
			salary_max  INTEGER,
			skills      TEXT[] NOT NULL DEFAULT '{}',
			description TEXT NOT NULL DEFAULT '',
			url         TEXT NOT NULL DEFAULT '',
			source      TEXT NOT NULL DEFAULT '',
			created_by  TEXT REFERENCES users(id) ON DELETE SET NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{Name: "create_research_papers", SQL: `
		CREATE TABLE IF NOT EXISTS research_papers (
			id               TEXT PRIMARY KEY,
			title            TEXT NOT NULL,
			authors          TEXT[] NOT NULL DEFAULT '{}',
			publication_date DATE,
			abstract         TEXT NOT NULL DEFAULT '',
			url              TEXT NOT NULL CONSTRAINT research_papers_url_key UNIQUE,
			company          TEXT NOT NULL DEFAULT '',
			tags             TEXT[] NOT NULL DEFAULT '{}',
			created_by       TEXT REFERENCES users(id) ON DELETE SET NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{Name: "create_job_paper_relations", SQL: `
		CREATE TABLE IF NOT EXISTS job_paper_relations (
			job_id          TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			paper_id        TEXT NOT NULL REFERENCES research_papers(id) ON DELETE CASCADE,
			relevance_score REAL NOT NULL CHECK (relevance_score >= 0 AND relevance_score <= 1),
			reason          TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (job_id, paper_id)
		)`},
	resourceTable("user_resources"),
	resourceTable("job_resources"),
	resourceTable("interview_resources"),
	{Name: "create_bookmarks", SQL: `
		CREATE TABLE IF NOT EXISTS bookmarks (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			bookmark_type TEXT NOT NULL CHECK (bookmark_type IN ('job', 'paper', 'resource', 'user_resource')),
			job_id        TEXT REFERENCES jobs(id) ON DELETE CASCADE,
			paper_id      TEXT REFERENCES research_papers(id) ON DELETE CASCADE,
			resource_id   TEXT,
			notes         TEXT NOT NULL DEFAULT '',
			tags          TEXT[] NOT NULL DEFAULT '{}',
			is_favorite   BOOLEAN NOT NULL DEFAULT FALSE,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (num_nonnulls(job_id, paper_id, resource_id) = 1)
		)`},
	{Name: "index_bookmarks_target", SQL: `
		CREATE UNIQUE INDEX IF NOT EXISTS bookmarks_target_key
		ON bookmarks (user_id, bookmark_type, COALESCE(job_id, paper_id, resource_id))`},
	{Name: "create_comments", SQL: `
		CREATE TABLE IF NOT EXISTS comments (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			target_type       TEXT NOT NULL CHECK (target_type IN ('job', 'paper', 'resource', 'user_resource')),
			target_id         TEXT NOT NULL,
			parent_comment_id TEXT REFERENCES comments(id) ON DELETE CASCADE,
			content           TEXT NOT NULL,
			is_edited         BOOLEAN NOT NULL DEFAULT FALSE,
			is_deleted        BOOLEAN NOT NULL DEFAULT FALSE,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{Name: "index_comments_target", SQL: `CREATE INDEX IF NOT EXISTS comments_target_idx ON comments (target_type, target_id)`},
	{Name: "create_votes", SQL: `
		CREATE TABLE IF NOT EXISTS votes (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			target_type TEXT NOT NULL CHECK (target_type IN ('job', 'paper', 'resource', 'user_resource', 'comment')),
			job_id      TEXT REFERENCES jobs(id) ON DELETE CASCADE,
			paper_id    TEXT REFERENCES research_papers(id) ON DELETE CASCADE,
			resource_id TEXT,
			comment_id  TEXT REFERENCES comments(id) ON DELETE CASCADE,
			vote_type   SMALLINT NOT NULL CHECK (vote_type IN (-1, 1)),
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (num_nonnulls(job_id, paper_id, resource_id, comment_id) = 1)
		)`},
	{Name: "index_votes_target", SQL: `
		CREATE UNIQUE INDEX IF NOT EXISTS votes_target_key
		ON votes (user_id, target_type, COALESCE(job_id, paper_id, resource_id, comment_id))`},
	{Name: "create_projects", SQL: `
		CREATE TABLE IF NOT EXISTS projects (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			status           TEXT NOT NULL DEFAULT 'planning'
			                 CHECK (status IN ('planning', 'in_progress', 'completed', 'on_hold')),
			priority         TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
			category         TEXT NOT NULL DEFAULT 'other'
			                 CHECK (category IN ('job_search', 'skill_development', 'research', 'networking', 'other')),
			progress         INTEGER NOT NULL DEFAULT 0 CHECK (progress >= 0 AND progress <= 100),
			tags             TEXT[] NOT NULL DEFAULT '{}',
			linked_jobs      TEXT[] NOT NULL DEFAULT '{}',
			linked_papers    TEXT[] NOT NULL DEFAULT '{}',
			linked_resources TEXT[] NOT NULL DEFAULT '{}',
			notes            TEXT NOT NULL DEFAULT '',
			is_public        BOOLEAN NOT NULL DEFAULT FALSE,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
}

func resourceTable(name string) Migration {
	return Migration{
		Name: "create_" + name,
		SQL: fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title         TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			content       TEXT NOT NULL DEFAULT '',
			url           TEXT NOT NULL DEFAULT '',
			resource_type TEXT NOT NULL DEFAULT 'link',
			tags          TEXT[] NOT NULL DEFAULT '{}',
			visibility    TEXT NOT NULL DEFAULT 'public' CHECK (visibility IN ('public', 'private')),
			job_id        TEXT REFERENCES jobs(id) ON DELETE SET NULL,
			company       TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, name),
	}
}

// Bootstrap applies Migrations in order. Each statement is idempotent.
func Bootstrap(ctx context.Context, conn DBTX) error {
	slog.Info("applying schema bootstrap", "statements", len(Migrations))
	for _, m := range Migrations {
		if _, err := conn.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		slog.Debug("migration applied", "name", m.Name)
	}
	return nil
}
