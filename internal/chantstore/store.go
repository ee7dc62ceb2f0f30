// Package chantstore persists chant corpora in SQLite. The store keys
// each chant by its canonical reference string and supports incipit
// search for interactive lookup. Driver selection (pure Go or CGO)
// follows core/sqlite.
package chantstore

import (
	"database/sql"
	"strings"

	"github.com/chantlab/neuma/core/chant"
	apperrors "github.com/chantlab/neuma/core/errors"
	"github.com/chantlab/neuma/core/sqlite"
	"github.com/chantlab/neuma/internal/fixtures"
)

// Store wraps a SQLite database holding a chant corpus.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a chant store at the given path.
// Call Init before importing into a fresh database.
func Open(path string) (*Store, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, apperrors.NewIO("open", path, err)
	}
	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing chant store in read-only mode.
func OpenReadOnly(path string) (*Store, error) {
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, apperrors.NewIO("open", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Init creates the schema. Safe to call on an existing store.
func (s *Store) Init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chants (
			id TEXT PRIMARY KEY,
			siglum TEXT,
			folio TEXT,
			sequence INTEGER,
			incipit TEXT,
			full_text TEXT,
			volpiano TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_chants_incipit ON chants(incipit);
		CREATE INDEX IF NOT EXISTS idx_chants_source ON chants(siglum, folio, sequence);
	`)
	if err != nil {
		return apperrors.Wrap(err, "create schema")
	}
	return nil
}

// Import inserts a corpus, replacing records that share a reference.
// Returns the number of chants written. The import is transactional:
// on error nothing is written.
func (s *Store) Import(chants []fixtures.Chant) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, apperrors.Wrap(err, "begin import")
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO chants (id, siglum, folio, sequence, incipit, full_text, volpiano)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, apperrors.Wrap(err, "prepare import")
	}
	defer stmt.Close()

	for _, c := range chants {
		_, err := stmt.Exec(c.Ref.String(), c.Ref.Siglum, c.Ref.Folio, c.Ref.Sequence,
			c.Incipit, c.FullText, c.Volpiano)
		if err != nil {
			tx.Rollback()
			return 0, apperrors.Wrapf(err, "import %s", c.Ref.String())
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.Wrap(err, "commit import")
	}
	return len(chants), nil
}

// Lookup returns the chant with the given reference.
func (s *Store) Lookup(ref *chant.Ref) (*fixtures.Chant, error) {
	row := s.db.QueryRow(`
		SELECT siglum, folio, sequence, incipit, full_text, volpiano
		FROM chants WHERE id = ?
	`, ref.String())

	c, err := scanChant(row)
	if err == sql.ErrNoRows {
		return nil, &apperrors.NotFoundError{Resource: "chant", ID: ref.String()}
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "lookup %s", ref.String())
	}
	return c, nil
}

// Search returns chants whose incipit starts with the given text,
// ordered by source. Matching is case-insensitive for ASCII, following
// SQLite LIKE semantics. LIKE wildcards in the query match literally.
func (s *Store) Search(incipit string) ([]fixtures.Chant, error) {
	if strings.TrimSpace(incipit) == "" {
		return nil, apperrors.NewValidation("incipit", "empty search query")
	}

	pattern := likeEscaper.Replace(incipit) + "%"
	rows, err := s.db.Query(`
		SELECT siglum, folio, sequence, incipit, full_text, volpiano
		FROM chants WHERE incipit LIKE ? ESCAPE '\'
		ORDER BY siglum, folio, sequence
	`, pattern)
	if err != nil {
		return nil, apperrors.Wrapf(err, "search %q", incipit)
	}
	defer rows.Close()

	return collectChants(rows)
}

// All returns the complete corpus ordered by source.
func (s *Store) All() ([]fixtures.Chant, error) {
	rows, err := s.db.Query(`
		SELECT siglum, folio, sequence, incipit, full_text, volpiano
		FROM chants ORDER BY siglum, folio, sequence
	`)
	if err != nil {
		return nil, apperrors.Wrap(err, "list chants")
	}
	defer rows.Close()

	return collectChants(rows)
}

// Count returns the number of chants in the store.
func (s *Store) Count() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chants`).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "count chants")
	}
	return count, nil
}

// likeEscaper makes LIKE wildcards in user queries match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanChant(row scanner) (*fixtures.Chant, error) {
	var c fixtures.Chant
	err := row.Scan(&c.Ref.Siglum, &c.Ref.Folio, &c.Ref.Sequence,
		&c.Incipit, &c.FullText, &c.Volpiano)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectChants(rows *sql.Rows) ([]fixtures.Chant, error) {
	var chants []fixtures.Chant
	for rows.Next() {
		c, err := scanChant(rows)
		if err != nil {
			return nil, err
		}
		chants = append(chants, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return chants, nil
}
