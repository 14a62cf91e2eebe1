package vfs

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store is where a sketchbook lives between runs.
type Store interface {
	Load(b *Sketchbook) error
	Persist(b *Sketchbook) error
	Close() error
}

// OpenStore picks a store for location: a path ending in ".db" is a SQLite
// database, anything else a directory of source files.
func OpenStore(location string) (Store, error) {
	if strings.HasSuffix(location, ".db") {
		return OpenDB(location)
	}
	return DirStore(location), nil
}

// DirStore keeps one host file per sketchbook file.
type DirStore string

func (d DirStore) Load(b *Sketchbook) error    { return b.LoadFrom(string(d)) }
func (d DirStore) Persist(b *Sketchbook) error { return b.PersistTo(string(d)) }
func (d DirStore) Close() error                { return nil }

// DBStore keeps the sketchbook in a SQLite table.
type DBStore struct {
	conn *sql.DB
}

// OpenDB opens (or creates) the database at path and makes sure the
// sketches table exists.
func OpenDB(path string) (*DBStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// One connection so that ":memory:" databases are shared.
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS sketches (
		name TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		created INTEGER NOT NULL,
		modified INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sketches table: %w", err)
	}
	return &DBStore{conn: db}, nil
}

func (s *DBStore) Close() error { return s.conn.Close() }

// Load fills b from the table. Rows whose name the book would not accept
// are skipped.
func (s *DBStore) Load(b *Sketchbook) error {
	rows, err := s.conn.Query(`SELECT name, source, created, modified FROM sketches`)
	if err != nil {
		return err
	}
	defer rows.Close()

	b.mu.Lock()
	defer b.mu.Unlock()
	for rows.Next() {
		var name, src string
		var created, modified int64
		if err := rows.Scan(&name, &src, &created, &modified); err != nil {
			return err
		}
		if !validFilename.MatchString(name) {
			continue
		}
		b.put(name, &Entry{
			Source:   src,
			Created:  time.UnixMilli(created),
			Modified: time.UnixMilli(modified),
		})
	}
	return rows.Err()
}

// Persist writes the pending changes of b in one transaction. On failure
// every drained name is marked dirty again.
func (s *DBStore) Persist(b *Sketchbook) (err error) {
	writes, deletes := b.drain()
	if len(writes) == 0 && len(deletes) == 0 {
		return nil
	}
	defer func() {
		if err == nil {
			return
		}
		for name := range writes {
			b.markDirty(name)
		}
		for _, name := range deletes {
			b.markDirty(name)
		}
	}()

	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, name := range deletes {
		if _, err := tx.Exec(`DELETE FROM sketches WHERE name = ?`, name); err != nil {
			return err
		}
	}
	for name, e := range writes {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO sketches (name, source, created, modified) VALUES (?, ?, ?, ?)`,
			name, e.Source, e.Created.UnixMilli(), e.Modified.UnixMilli(),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}
