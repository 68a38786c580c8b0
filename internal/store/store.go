// Package store provides SQLite-backed persistence for wikis and their
// generated pages. It is the single source of truth for in-flight generation
// status: the conditional upsert in ClaimForGeneration is what makes
// duplicate-run rejection race-free.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/julianshen/reposcribe/internal/wiki"
)

// Store wraps a SQLite database for wiki persistence.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) a SQLite database at dbPath and ensures
// all required tables exist. Use ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The conditional upsert relies on serialized writers; a single
	// connection avoids SQLITE_BUSY under concurrent page inserts.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS wikis (
			id         TEXT PRIMARY KEY,
			repository TEXT NOT NULL UNIQUE,
			status     TEXT NOT NULL,
			branch     TEXT,
			created_at DATETIME NOT NULL DEFAULT (datetime('now')),
			updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS wiki_pages (
			id               TEXT PRIMARY KEY,
			wiki_id          TEXT NOT NULL REFERENCES wikis(id),
			title            TEXT NOT NULL,
			slug             TEXT NOT NULL,
			position         INTEGER NOT NULL,
			markdown_content TEXT NOT NULL,
			created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
			UNIQUE (wiki_id, slug)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// ExistsByRepository returns true if a wiki exists for the repository.
func (s *Store) ExistsByRepository(ctx context.Context, owner, repo string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM wikis WHERE repository = ?`,
		wiki.CanonicalRepository(owner, repo),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking wiki existence: %w", err)
	}
	return count > 0, nil
}

// FindOneByRepository returns the wiki for the repository, or nil if absent.
func (s *Store) FindOneByRepository(ctx context.Context, owner, repo string) (*wiki.Wiki, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, repository, status, branch FROM wikis WHERE repository = ?`,
		wiki.CanonicalRepository(owner, repo),
	)

	w, err := scanWiki(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding wiki: %w", err)
	}
	return w, nil
}

// ClaimForGeneration upserts the wiki at STARTED, unless a run is already in
// flight for the repository. The WHERE clause on the conflict update is what
// closes the race between two concurrent requests that both observed no
// in-flight run. A successful claim also clears the wiki's pages in the same
// transaction: regeneration replaces the previous run's output, it does not
// accumulate on top of it.
func (s *Store) ClaimForGeneration(ctx context.Context, owner, repo string) (*wiki.Wiki, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("claiming wiki: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`INSERT INTO wikis (id, repository, status, branch)
		 VALUES (?, ?, ?, NULL)
		 ON CONFLICT(repository) DO UPDATE
		   SET status = excluded.status, branch = NULL, updated_at = datetime('now')
		   WHERE wikis.status NOT IN (?, ?)
		 RETURNING id, repository, status, branch`,
		uuid.NewString(), wiki.CanonicalRepository(owner, repo), wiki.StatusStarted,
		wiki.StatusStarted, wiki.StatusGenerating,
	)

	w, err := scanWiki(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wiki.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("claiming wiki: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM wiki_pages WHERE wiki_id = ?`, w.ID); err != nil {
		return nil, fmt.Errorf("clearing pages for reclaim: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("claiming wiki: %w", err)
	}
	return w, nil
}

// Upsert inserts the wiki if its repository key is absent; otherwise it
// updates status and branch only, leaving the id stable.
func (s *Store) Upsert(ctx context.Context, w *wiki.Wiki) (*wiki.Wiki, error) {
	id := w.ID
	if id == "" {
		id = uuid.NewString()
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO wikis (id, repository, status, branch)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(repository) DO UPDATE
		   SET status = excluded.status,
		       branch = COALESCE(excluded.branch, wikis.branch),
		       updated_at = datetime('now')
		 RETURNING id, repository, status, branch`,
		id, w.Repository, w.Status, nullable(w.Branch),
	)

	out, err := scanWiki(row)
	if err != nil {
		return nil, fmt.Errorf("upserting wiki: %w", err)
	}
	return out, nil
}

// UpdateStatus sets the status of an existing wiki. It returns
// wiki.ErrWikiNotFound if no wiki has the given id.
func (s *Store) UpdateStatus(ctx context.Context, wikiID string, status wiki.Status) (*wiki.Wiki, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE wikis SET status = ?, updated_at = datetime('now')
		 WHERE id = ?
		 RETURNING id, repository, status, branch`,
		status, wikiID,
	)

	w, err := scanWiki(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wiki.ErrWikiNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating wiki status: %w", err)
	}
	return w, nil
}

// InsertPage persists a generated page, assigning an id if the caller did not.
// A page with the same slug in the same wiki is overwritten in place, keeping
// slug uniqueness an invariant rather than a runtime failure when a plan
// yields two pages with colliding titles.
func (s *Store) InsertPage(ctx context.Context, page *wiki.WikiPage) (*wiki.WikiPage, error) {
	id := page.ID
	if id == "" {
		id = uuid.NewString()
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO wiki_pages (id, wiki_id, title, slug, position, markdown_content)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(wiki_id, slug) DO UPDATE
		   SET title = excluded.title,
		       position = excluded.position,
		       markdown_content = excluded.markdown_content
		 RETURNING id`,
		id, page.WikiID, page.Title, page.Slug, page.Order, page.MarkdownContent,
	)

	out := *page
	if err := row.Scan(&out.ID); err != nil {
		return nil, fmt.Errorf("inserting page: %w", err)
	}
	return &out, nil
}

// FindPagesByRepository returns all pages of the repository's wiki ordered by
// their navigation position.
func (s *Store) FindPagesByRepository(ctx context.Context, owner, repo string) ([]*wiki.WikiPage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.wiki_id, p.title, p.slug, p.position, p.markdown_content
		 FROM wiki_pages p
		 JOIN wikis w ON w.id = p.wiki_id
		 WHERE w.repository = ?
		 ORDER BY p.position ASC`,
		wiki.CanonicalRepository(owner, repo),
	)
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	defer rows.Close()

	var pages []*wiki.WikiPage
	for rows.Next() {
		var p wiki.WikiPage
		if err := rows.Scan(&p.ID, &p.WikiID, &p.Title, &p.Slug, &p.Order, &p.MarkdownContent); err != nil {
			return nil, fmt.Errorf("scanning page: %w", err)
		}
		pages = append(pages, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	return pages, nil
}

// FindPageBySlug returns one page of the repository's wiki, or nil if absent.
func (s *Store) FindPageBySlug(ctx context.Context, owner, repo, slug string) (*wiki.WikiPage, error) {
	var p wiki.WikiPage
	err := s.db.QueryRowContext(ctx,
		`SELECT p.id, p.wiki_id, p.title, p.slug, p.position, p.markdown_content
		 FROM wiki_pages p
		 JOIN wikis w ON w.id = p.wiki_id
		 WHERE w.repository = ? AND p.slug = ?`,
		wiki.CanonicalRepository(owner, repo), slug,
	).Scan(&p.ID, &p.WikiID, &p.Title, &p.Slug, &p.Order, &p.MarkdownContent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding page: %w", err)
	}
	return &p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWiki(row rowScanner) (*wiki.Wiki, error) {
	var w wiki.Wiki
	var branch sql.NullString
	if err := row.Scan(&w.ID, &w.Repository, &w.Status, &branch); err != nil {
		return nil, err
	}
	w.Branch = branch.String
	return &w, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
