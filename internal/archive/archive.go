// Package archive records extracted videos in a SQLite database so that
// repeated runs can skip them. Videos are keyed by archive id
// ("<extractor key> <id>"); ids a video was known under before are kept
// as aliases.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"funidl/internal/extractor"
	"funidl/internal/media"
)

const schema = `
CREATE TABLE IF NOT EXISTS videos (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	series       TEXT NOT NULL DEFAULT '',
	season       TEXT NOT NULL DEFAULT '',
	episode      INTEGER NOT NULL DEFAULT 0,
	extracted_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS aliases (
	old_id TEXT PRIMARY KEY,
	id     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS aliases_id ON aliases (id);`

// Store is an open archive database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating archive dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	// a single connection serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing archive %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Has reports whether any of ids is archived, directly or as an alias.
func (s *Store) Has(ctx context.Context, ids ...string) (bool, error) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		var n int
		if err := s.db.QueryRowContext(ctx, hasQuery, id, id).Scan(&n); err != nil {
			return false, fmt.Errorf("checking archive for %q: %w", id, err)
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

const hasQuery = `
SELECT
	(SELECT COUNT(*) FROM videos WHERE id = ?) +
	(SELECT COUNT(*) FROM aliases WHERE old_id = ?);`

// Record stores entry, replacing an existing row with the same id, and
// registers oldIDs as its aliases.
func (s *Store) Record(ctx context.Context, entry media.ArchiveEntry, oldIDs ...string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("recording %q: %w", entry.ID, err)
		}
	}()

	if entry.ID == "" {
		return fmt.Errorf("empty archive id")
	}
	if entry.ExtractedAt == 0 {
		entry.ExtractedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, recordQuery,
		entry.ID, entry.Title, entry.Series, entry.Season, entry.Episode, entry.ExtractedAt,
	); err != nil {
		return err
	}
	for _, old := range oldIDs {
		if old == "" || old == entry.ID {
			continue
		}
		if _, err = tx.ExecContext(ctx, aliasQuery, old, entry.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const recordQuery = `
INSERT INTO videos (id, title, series, season, episode, extracted_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	title = excluded.title,
	series = excluded.series,
	season = excluded.season,
	episode = excluded.episode,
	extracted_at = excluded.extracted_at;`

const aliasQuery = `
INSERT INTO aliases (old_id, id) VALUES (?, ?)
ON CONFLICT (old_id) DO UPDATE SET id = excluded.id;`

// List returns every archived video, oldest first.
func (s *Store) List(ctx context.Context) ([]media.ArchiveEntry, error) {
	rows, err := s.db.QueryContext(ctx, listQuery)
	if err != nil {
		return nil, fmt.Errorf("listing archive: %w", err)
	}
	defer rows.Close()

	var entries []media.ArchiveEntry
	for rows.Next() {
		var e media.ArchiveEntry
		if err := rows.Scan(&e.ID, &e.Title, &e.Series, &e.Season, &e.Episode, &e.ExtractedAt); err != nil {
			return nil, fmt.Errorf("scanning archive entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing archive: %w", err)
	}
	return entries, nil
}

const listQuery = `
SELECT id, title, series, season, episode, extracted_at
FROM videos
ORDER BY extracted_at, id;`

// Remove deletes a video and its aliases. id may be an alias. It
// reports whether anything was deleted.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("removing %q: %w", id, err)
	}
	defer tx.Rollback()

	var target string
	err = tx.QueryRowContext(ctx, `SELECT id FROM aliases WHERE old_id = ?`, id).Scan(&target)
	switch {
	case err == sql.ErrNoRows:
		target = id
	case err != nil:
		return false, fmt.Errorf("removing %q: %w", id, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, target)
	if err != nil {
		return false, fmt.Errorf("removing %q: %w", id, err)
	}
	n, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx, `DELETE FROM aliases WHERE id = ?`, target); err != nil {
		return false, fmt.Errorf("removing aliases of %q: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("removing %q: %w", id, err)
	}
	return n > 0, nil
}

// EntryFor builds the archive entry of an extracted video.
func EntryFor(info *media.Info) media.ArchiveEntry {
	e := media.ArchiveEntry{
		ID:     extractor.ArchiveID(info.Extractor, info.ID),
		Title:  info.Title,
		Series: info.Series,
		Season: info.Season,
	}
	if info.EpisodeNumber != nil {
		e.Episode = *info.EpisodeNumber
	}
	return e
}

// FormatForDisplay renders entries one per line.
func FormatForDisplay(entries []media.ArchiveEntry) []string {
	var items []string
	for _, e := range entries {
		var b strings.Builder
		b.WriteString(e.ID)
		b.WriteString("\t")
		if e.Series != "" {
			b.WriteString(e.Series)
			if e.Episode > 0 {
				fmt.Fprintf(&b, " E%02d", e.Episode)
			}
			b.WriteString(" - ")
		}
		b.WriteString(e.Title)
		items = append(items, b.String())
	}
	return items
}
