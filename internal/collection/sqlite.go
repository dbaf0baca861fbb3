package collection

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/wrohdewald/gpxity/internal/track"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tracks (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT '',
	public      INTEGER NOT NULL DEFAULT 0,
	keywords    TEXT NOT NULL DEFAULT '',
	ids         TEXT NOT NULL DEFAULT '',
	gpx         BLOB NOT NULL
)`

// SQLite hosts tracks in a SQLite database. Metadata is kept in columns
// next to the GPX blob, so single fields can be written without
// rewriting the document.
type SQLite struct {
	path string
	db   *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: empty path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{path: path, db: db}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error { return s.db.Close() }

// Identifier implements track.Collection.
func (s *SQLite) Identifier() string { return "sqlite:" + s.path }

// Capabilities implements track.Collection.
func (s *SQLite) Capabilities() track.Capabilities { return track.FullCapabilities() }

// List implements track.Collection. The metadata columns fill the
// header cache so listings need no blob reads.
func (s *SQLite) List() ([]*track.Track, error) {
	rows, err := s.db.Query(
		`SELECT id, title, description, category, public, keywords FROM tracks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*track.Track
	for rows.Next() {
		var ident, title, description, category, keywords string
		var public int
		if err := rows.Scan(&ident, &title, &description, &category, &public, &keywords); err != nil {
			return nil, err
		}
		t := newAttached(s, ident)
		err := t.Decoupled(func() error {
			if err := t.SetTitle(title); err != nil {
				return err
			}
			if err := t.SetDescription(description); err != nil {
				return err
			}
			if err := t.SetCategory(category); err != nil {
				return err
			}
			if err := t.SetPublic(public != 0); err != nil {
				return err
			}
			return t.SetKeywords(splitList(keywords)...)
		})
		if err != nil {
			return nil, err
		}
		t.MarkHeader(track.FieldTitle, track.FieldDescription, track.FieldCategory,
			track.FieldPublic, track.FieldKeywords)
		result = append(result, t)
	}
	return result, rows.Err()
}

// ReadFull implements track.Collection. The document is parsed first,
// then the columns win for metadata so field-level writes and the blob
// never disagree from the caller's point of view.
func (s *SQLite) ReadFull(t *track.Track) error {
	var title, description, category, keywords, ids string
	var public int
	var blob []byte
	err := s.db.QueryRow(
		`SELECT title, description, category, public, keywords, ids, gpx FROM tracks WHERE id = ?`,
		t.ID()).Scan(&title, &description, &category, &public, &keywords, &ids, &blob)
	if err == sql.ErrNoRows {
		return fmt.Errorf("sqlite: no track %q", t.ID())
	}
	if err != nil {
		return err
	}
	if err := t.ParseGPX(blob); err != nil {
		return err
	}
	if err := t.SetTitle(title); err != nil {
		return err
	}
	if err := t.SetDescription(description); err != nil {
		return err
	}
	if err := t.SetCategory(category); err != nil {
		return err
	}
	if err := t.SetPublic(public != 0); err != nil {
		return err
	}
	if err := t.SetKeywords(splitList(keywords)...); err != nil {
		return err
	}
	return t.SetIDs(splitList(ids))
}

// WriteFull implements track.Collection.
func (s *SQLite) WriteFull(t *track.Track, ident string) (string, error) {
	if ident == "" {
		ident = uuid.NewString()
	}
	blob, err := t.Xml()
	if err != nil {
		return "", err
	}
	title, err := t.Title()
	if err != nil {
		return "", err
	}
	description, err := t.Description()
	if err != nil {
		return "", err
	}
	category, err := t.Category()
	if err != nil {
		return "", err
	}
	public, err := t.Public()
	if err != nil {
		return "", err
	}
	keywords, err := t.Keywords()
	if err != nil {
		return "", err
	}
	ids, err := t.IDs()
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(
		`INSERT INTO tracks (id, title, description, category, public, keywords, ids, gpx)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title, description = excluded.description,
		   category = excluded.category, public = excluded.public,
		   keywords = excluded.keywords, ids = excluded.ids, gpx = excluded.gpx`,
		ident, title, description, category, boolInt(public),
		joinList(keywords), joinList(ids), blob)
	if err != nil {
		return "", err
	}
	return ident, nil
}

// WriteField implements track.Collection.
func (s *SQLite) WriteField(t *track.Track, field string) error {
	var column string
	var value any
	var err error
	switch field {
	case track.FieldTitle:
		column = "title"
		value, err = t.Title()
	case track.FieldDescription:
		column = "description"
		value, err = t.Description()
	case track.FieldCategory:
		column = "category"
		value, err = t.Category()
	case track.FieldPublic:
		column = "public"
		var public bool
		public, err = t.Public()
		value = boolInt(public)
	case track.FieldKeywords:
		column = "keywords"
		var keywords []string
		keywords, err = t.Keywords()
		value = joinList(keywords)
	default:
		return &track.ErrUnsupportedOperation{Collection: s.Identifier(), Op: "write field " + field}
	}
	if err != nil {
		return err
	}
	result, err := s.db.Exec(
		fmt.Sprintf("UPDATE tracks SET %s = ? WHERE id = ?", column), value, t.ID())
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("sqlite: no track %q", t.ID())
	}
	return nil
}

// Remove implements track.Collection.
func (s *SQLite) Remove(ident string) error {
	result, err := s.db.Exec("DELETE FROM tracks WHERE id = ?", ident)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("sqlite: no track %q", ident)
	}
	return nil
}

// Rename implements track.Collection.
func (s *SQLite) Rename(t *track.Track, newIdent string) error {
	result, err := s.db.Exec("UPDATE tracks SET id = ? WHERE id = ?", newIdent, t.ID())
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("sqlite: no track %q", t.ID())
	}
	return t.SetID(newIdent)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func joinList(values []string) string { return strings.Join(values, "\n") }

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, "\n")
}

var _ track.Collection = (*SQLite)(nil)
