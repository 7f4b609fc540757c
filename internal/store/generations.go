package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	mysql "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrDuplicateRecord signals that a generation ID already exists.
var ErrDuplicateRecord = errors.New("duplicate generation record")

// Generation is one image generation attempt for a document section.
type Generation struct {
	ID             string        `json:"id"`
	Slug           string        `json:"slug"`
	SectionTitle   string        `json:"sectionTitle"`
	Intent         string        `json:"intent"`
	ImageURL       string        `json:"imageUrl,omitempty"`
	Success        bool          `json:"success"`
	Error          string        `json:"error,omitempty"`
	ProcessingTime time.Duration `json:"processingTime"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// GenerationLog records generation attempts in the image_generations table.
type GenerationLog struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

func NewGenerationLog(db *sql.DB, driver string) *GenerationLog {
	return &GenerationLog{db: db, driver: driver, now: time.Now}
}

const mysqlSchema = `CREATE TABLE IF NOT EXISTS image_generations (
	id VARCHAR(36) NOT NULL PRIMARY KEY,
	slug VARCHAR(255) NOT NULL,
	section_title VARCHAR(512) NOT NULL,
	intent TEXT NOT NULL,
	image_url TEXT NOT NULL,
	success TINYINT(1) NOT NULL,
	error TEXT NOT NULL,
	processing_ms BIGINT NOT NULL,
	created_at BIGINT NOT NULL,
	INDEX idx_image_generations_slug (slug, created_at)
)`

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS image_generations (
	id TEXT NOT NULL PRIMARY KEY,
	slug TEXT NOT NULL,
	section_title TEXT NOT NULL,
	intent TEXT NOT NULL,
	image_url TEXT NOT NULL,
	success INTEGER NOT NULL,
	error TEXT NOT NULL,
	processing_ms INTEGER NOT NULL,
	created_at INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_image_generations_slug ON image_generations (slug, created_at)`,
}

// Migrate creates the schema when it does not exist yet.
func (l *GenerationLog) Migrate(ctx context.Context) error {
	stmts := []string{mysqlSchema}
	if l.driver == DriverSQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record inserts g, assigning an ID and timestamp when missing.
func (l *GenerationLog) Record(ctx context.Context, g *Generation) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = l.now()
	}
	g.CreatedAt = g.CreatedAt.UTC().Truncate(time.Millisecond)

	const insert = `INSERT INTO image_generations
		(id, slug, section_title, intent, image_url, success, error, processing_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := l.db.ExecContext(ctx, insert,
		g.ID, g.Slug, g.SectionTitle, g.Intent, g.ImageURL, g.Success, g.Error,
		g.ProcessingTime.Milliseconds(), g.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateRecord
		}
		return err
	}
	return nil
}

// Recent returns up to limit attempts for slug, newest first.
func (l *GenerationLog) Recent(ctx context.Context, slug string, limit int) ([]Generation, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT id, slug, section_title, intent, image_url, success, error, processing_ms, created_at
		FROM image_generations WHERE slug = ? ORDER BY created_at DESC, id LIMIT ?`
	rows, err := l.db.QueryContext(ctx, query, slug, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Generation
	for rows.Next() {
		var (
			g            Generation
			processingMS int64
			createdMS    int64
		)
		if err := rows.Scan(&g.ID, &g.Slug, &g.SectionTitle, &g.Intent, &g.ImageURL, &g.Success, &g.Error, &processingMS, &createdMS); err != nil {
			return nil, err
		}
		g.ProcessingTime = time.Duration(processingMS) * time.Millisecond
		g.CreatedAt = time.UnixMilli(createdMS).UTC()
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func isDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
		}
	}
	return false
}
