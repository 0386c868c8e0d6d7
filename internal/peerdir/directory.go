// Package peerdir is the sqlite-backed peer directory (spec §4.3).
package peerdir

import (
	"database/sql"
	"fmt"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"sniffdognode/internal/peerinfo"
)

const schema = `
CREATE TABLE IF NOT EXISTS peers (
	address    TEXT PRIMARY KEY,
	rank       INTEGER NOT NULL DEFAULT 0,
	proxy_type TEXT NOT NULL DEFAULT 'none',
	proxy_addr TEXT NOT NULL DEFAULT ''
);
`

// Directory is the sqlite-backed peer registry.
type Directory struct {
	db *sql.DB
}

// Open creates or attaches to the sqlite file at path and ensures the
// schema exists.
func Open(path string) (*Directory, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("peerdir: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("peerdir: migrate: %w", err)
	}
	return &Directory{db: db}, nil
}

// Close releases the underlying database handle.
func (d *Directory) Close() error {
	return d.db.Close()
}

// SeedKnownPeers registers the node's configured known peers if they
// aren't already present, leaving any existing rank untouched.
func (d *Directory) SeedKnownPeers(known []peerinfo.Info) error {
	for _, p := range known {
		if err := d.insertIfAbsent(p); err != nil {
			return err
		}
	}
	return nil
}

func (d *Directory) insertIfAbsent(p peerinfo.Info) error {
	_, err := d.db.Exec(
		`INSERT OR IGNORE INTO peers (address, rank, proxy_type, proxy_addr) VALUES (?, ?, ?, ?)`,
		p.Address, p.Rank, p.ProxyType.String(), p.ProxyAddress,
	)
	if err != nil {
		return fmt.Errorf("peerdir: insert: %w", err)
	}
	return nil
}

// All returns every known peer sorted by rank ascending (best peers
// first, per spec §4.3/§4.7's rank-ordered fan-out selection).
func (d *Directory) All() ([]peerinfo.Info, error) {
	rows, err := d.db.Query(`SELECT address, rank, proxy_type, proxy_addr FROM peers`)
	if err != nil {
		return nil, fmt.Errorf("peerdir: all: %w", err)
	}
	defer rows.Close()

	var out []peerinfo.Info
	for rows.Next() {
		var p peerinfo.Info
		var proxyType string
		if err := rows.Scan(&p.Address, &p.Rank, &proxyType, &p.ProxyAddress); err != nil {
			return nil, fmt.Errorf("peerdir: all: scan: %w", err)
		}
		p.ProxyType = peerinfo.ParseProxyType(proxyType)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

// Addresses returns every known peer's address, in the same
// rank-ascending order as All.
func (d *Directory) Addresses() ([]string, error) {
	all, err := d.All()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, p := range all {
		out = append(out, p.Address)
	}
	return out, nil
}

// SyncFrom merges peers received from a remote peer: each candidate is
// inserted only if its address isn't already known. An existing rank
// is never overwritten by a peer's self-reported rank (spec §4.3/§4.7 —
// rank is a purely local measurement).
func (d *Directory) SyncFrom(candidates []peerinfo.Info) error {
	for _, p := range candidates {
		if err := d.insertIfAbsent(p); err != nil {
			return err
		}
	}
	return nil
}

// UpdateRank writes back the locally measured rank for address. A peer
// not already known is a silent no-op.
func (d *Directory) UpdateRank(address string, rank int64) error {
	_, err := d.db.Exec(`UPDATE peers SET rank = ? WHERE address = ?`, rank, address)
	if err != nil {
		return fmt.Errorf("peerdir: update rank: %w", err)
	}
	return nil
}
