// Package searchstore is the sqlite-backed content-addressed store of
// SearchResult rows (spec §4.2).
package searchstore

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"sniffdognode/internal/searchresult"
)

const schema = `
CREATE TABLE IF NOT EXISTS search_cache (
	hash         BLOB PRIMARY KEY,
	title        TEXT NOT NULL,
	search_url   TEXT NOT NULL,
	description  TEXT NOT NULL,
	content_type TEXT NOT NULL,
	score        INTEGER NOT NULL DEFAULT 0
);
`

// Store is a sqlite-backed result cache. All exported methods are safe
// for concurrent use; sqlite itself serializes writers.
type Store struct {
	db *sql.DB
}

// Open creates or attaches to the sqlite file at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("searchstore: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("searchstore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanResult(rows interface {
	Scan(dest ...interface{}) error
}) (searchresult.Result, error) {
	var r searchresult.Result
	var hashBytes []byte
	if err := rows.Scan(&hashBytes, &r.Title, &r.URL, &r.Description, &r.ContentType, &r.Score); err != nil {
		return searchresult.Result{}, err
	}
	copy(r.Hash[:], hashBytes)
	return r, nil
}

// All returns every stored result, in no particular order.
func (s *Store) All() ([]searchresult.Result, error) {
	rows, err := s.db.Query(`SELECT hash, title, search_url, description, content_type, score FROM search_cache`)
	if err != nil {
		return nil, fmt.Errorf("searchstore: all: %w", err)
	}
	defer rows.Close()

	var out []searchresult.Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("searchstore: all: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Hashes returns every stored result's hash, for sync negotiation
// (spec §4.2, §4.7: "which of my results does this peer not have").
func (s *Store) Hashes() ([]searchresult.Hash, error) {
	rows, err := s.db.Query(`SELECT hash FROM search_cache`)
	if err != nil {
		return nil, fmt.Errorf("searchstore: hashes: %w", err)
	}
	defer rows.Close()

	var out []searchresult.Hash
	for rows.Next() {
		var hashBytes []byte
		if err := rows.Scan(&hashBytes); err != nil {
			return nil, fmt.Errorf("searchstore: hashes: scan: %w", err)
		}
		var h searchresult.Hash
		copy(h[:], hashBytes)
		out = append(out, h)
	}
	return out, rows.Err()
}

// ResultsNotIn returns the stored results whose hash is absent from
// known (the requesting peer's hash set), for GET_RESULTS_FOR_SYNC.
func (s *Store) ResultsNotIn(known []searchresult.Hash) ([]searchresult.Result, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	knownSet := make(map[searchresult.Hash]struct{}, len(known))
	for _, h := range known {
		knownSet[h] = struct{}{}
	}
	var out []searchresult.Result
	for _, r := range all {
		if _, ok := knownSet[r.Hash]; !ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// InsertNewResult builds and stores a Result from scratch, per spec
// §11's supplement: a newly discovered result is assigned the default
// content type when the caller doesn't know it.
func (s *Store) InsertNewResult(title, url, description, contentType string) (searchresult.Result, error) {
	r := searchresult.New(title, url, description, contentType)
	if err := s.insertIfAbsent(r); err != nil {
		return searchresult.Result{}, err
	}
	return r, nil
}

// InsertMany stores each result that isn't already present, keyed by
// hash. Pre-existing rows are left untouched (spec §4.2).
func (s *Store) InsertMany(results []searchresult.Result) error {
	for _, r := range results {
		if err := s.insertIfAbsent(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertIfAbsent(r searchresult.Result) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO search_cache (hash, title, search_url, description, content_type, score)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.Hash[:], r.Title, r.URL, r.Description, r.ContentType, r.Score,
	)
	if err != nil {
		return fmt.Errorf("searchstore: insert: %w", err)
	}
	return nil
}

// SyncFrom merges results received from a remote peer: each candidate
// is fingerprint-checked (InconsistencyError: silently dropped if
// tampered, per spec §4.2/§7) then inserted only if its hash isn't
// already present. Score is never adjusted by sync.
func (s *Store) SyncFrom(candidates []searchresult.Result) error {
	for _, r := range candidates {
		if !r.IsConsistent() {
			continue
		}
		if err := s.insertIfAbsent(r); err != nil {
			return err
		}
	}
	return nil
}

// BumpScore adds delta to the stored score of the result identified by
// hash. A result absent from the store is a silent no-op.
func (s *Store) BumpScore(hash searchresult.Hash, delta int64) error {
	res, err := s.db.Exec(`UPDATE search_cache SET score = score + ? WHERE hash = ?`, delta, hash[:])
	if err != nil {
		return fmt.Errorf("searchstore: bump score: %w", err)
	}
	_, err = res.RowsAffected()
	return err
}

// Search returns stored results whose title, url, or description
// case-insensitively contains query, OR-expanded across the query's
// whitespace-separated tokens (skipping purely-numeric tokens), per
// spec §4.2 and the mandatory OR-clause decided in the expanded spec.
// An empty (or all-whitespace) query returns every stored result.
func (s *Store) Search(query string) ([]searchresult.Result, error) {
	if strings.TrimSpace(query) == "" {
		return s.All()
	}

	terms := searchTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	var clauses []string
	var args []interface{}
	for _, term := range terms {
		clauses = append(clauses, `(title LIKE ? OR search_url LIKE ? OR description LIKE ?)`)
		like := "%" + term + "%"
		args = append(args, like, like, like)
	}

	stmt := fmt.Sprintf(
		`SELECT hash, title, search_url, description, content_type, score FROM search_cache WHERE %s COLLATE NOCASE`,
		strings.Join(clauses, " OR "),
	)
	rows, err := s.db.Query(stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("searchstore: search: %w", err)
	}
	defer rows.Close()

	var out []searchresult.Result
	seen := make(map[searchresult.Hash]struct{})
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("searchstore: search: scan: %w", err)
		}
		if _, dup := seen[r.Hash]; dup {
			continue
		}
		seen[r.Hash] = struct{}{}
		out = append(out, r)
	}
	return out, rows.Err()
}

// searchTerms builds the OR-clause term list: the full (trimmed) query
// always matches as one clause, and when the query contains spaces each
// whitespace-separated token is added as an additional clause, except
// tokens that are purely numeric (spec §4.2 expansion rule, §8 scenario 6).
func searchTerms(query string) []string {
	full := strings.TrimSpace(query)
	terms := []string{full}

	fields := strings.Fields(query)
	if len(fields) > 1 {
		for _, f := range fields {
			if _, err := strconv.ParseFloat(f, 64); err == nil {
				continue
			}
			terms = append(terms, f)
		}
	}
	return terms
}
