// Package docstore reads and rewrites the .mdx documents behind static posts.
package docstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"cockpit/internal/content"
	"cockpit/internal/mdx"
)

const (
	// BackupDir is created inside the content directory.
	BackupDir = ".backups"
	docExt    = ".mdx"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidSlug = errors.New("invalid document slug")
)

// ValidationError is returned by Update when at least one insertion is invalid.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid insertions: " + strings.Join(e.Errors, "; ")
}

// UpdateOutcome describes a completed Update.
type UpdateOutcome struct {
	mdx.UpdateResult
	BackupPath string `json:"backupPath,omitempty"`
}

// Store manages documents stored as {dir}/{slug}.mdx.
type Store struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time

	// serializes read-modify-write cycles
	mu sync.Mutex
}

func New(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger, now: time.Now}
}

// Dir returns the content directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path for slug.
func (s *Store) Path(slug string) (string, error) {
	if !validSlug(slug) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}
	return filepath.Join(s.dir, slug+docExt), nil
}

// Resolve maps a requested name to a document slug. A name that already
// names a file is used as is, so My_Post finds My_Post.mdx; anything else is
// normalized the way post slugs are.
func (s *Store) Resolve(name string) (string, error) {
	raw := strings.TrimSpace(name)
	if validSlug(raw) {
		if _, err := os.Stat(filepath.Join(s.dir, raw+docExt)); err == nil {
			return raw, nil
		}
	}
	if slug, err := content.NormalizeSlug(raw); err == nil {
		return slug, nil
	}
	if !validSlug(raw) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlug, name)
	}
	return raw, nil
}

func validSlug(slug string) bool {
	if slug == "" || strings.HasPrefix(slug, ".") {
		return false
	}
	if strings.ContainsAny(slug, `/\`) || strings.Contains(slug, "..") {
		return false
	}
	return true
}

// Read returns the raw document for slug.
func (s *Store) Read(slug string) (string, error) {
	path, err := s.Path(slug)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, slug)
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// List returns the slugs of the top-level documents, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var slugs []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != docExt {
			continue
		}
		slugs = append(slugs, strings.TrimSuffix(name, docExt))
	}
	sort.Strings(slugs)
	return slugs, nil
}

// Backup copies the current document to the backup directory and returns
// the backup path.
func (s *Store) Backup(slug string) (string, error) {
	content, err := s.Read(slug)
	if err != nil {
		return "", err
	}
	return s.writeBackup(slug, content)
}

func (s *Store) writeBackup(slug, content string) (string, error) {
	dir := filepath.Join(s.dir, BackupDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	name := fmt.Sprintf("%s.backup-%d%s", slug, s.now().UnixMilli(), docExt)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	s.logger.Info("document backed up", zap.String("slug", slug), zap.String("path", path))
	return path, nil
}

// Validate checks insertions against the stored document.
func (s *Store) Validate(slug string, insertions []mdx.ImageInsertion) (mdx.ValidationResult, error) {
	content, err := s.Read(slug)
	if err != nil {
		return mdx.ValidationResult{}, err
	}
	return mdx.ValidateInsertions(content, insertions), nil
}

// Update applies insertions to the stored document. The original is backed
// up before the file is replaced. Invalid insertions leave the disk untouched.
func (s *Store) Update(slug string, insertions []mdx.ImageInsertion) (UpdateOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.Path(slug)
	if err != nil {
		return UpdateOutcome{}, err
	}
	content, err := s.Read(slug)
	if err != nil {
		return UpdateOutcome{}, err
	}

	if v := mdx.ValidateInsertions(content, insertions); !v.Valid {
		return UpdateOutcome{}, &ValidationError{Errors: v.Errors}
	}

	res := mdx.ApplyInsertions(content, insertions)
	if !res.Success {
		return UpdateOutcome{}, errors.New(res.Error)
	}
	if res.InsertionsMade == 0 {
		return UpdateOutcome{UpdateResult: res}, nil
	}

	backup, err := s.writeBackup(slug, content)
	if err != nil {
		return UpdateOutcome{}, err
	}

	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := atomicWrite(path, []byte(res.UpdatedContent), perm); err != nil {
		return UpdateOutcome{}, err
	}

	s.logger.Info("document updated",
		zap.String("slug", slug),
		zap.Int("insertions", res.InsertionsMade),
		zap.String("backup", backup),
	)
	return UpdateOutcome{UpdateResult: res, BackupPath: backup}, nil
}
