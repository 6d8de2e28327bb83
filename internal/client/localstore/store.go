// Package localstore is the client's offline cache: a small sqlite-backed
// key-value store that plays the role the browser's localStorage plays for
// the web editor. Character snapshots live under character-scoped keys; a
// fixed allowlist of preference keys survives any character-data sweep.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/avelyth/loresheet/internal/client/localstore/migrations"
	"github.com/avelyth/loresheet/internal/dbx"
)

// ErrNotFound is returned by Get for keys that were never written.
var ErrNotFound = errors.New("key not found")

// Key layout. Everything belonging to one character hangs off its id so a
// sweep can find it by prefix.
const (
	characterPrefix = "character:"
	snapshotSuffix  = ":snapshot"

	// KeyIndex holds the directory of known characters.
	KeyIndex = "characters:index"
	// KeyCurrent holds the id of the character open in the editor.
	KeyCurrent = "character:current"
)

// protectedKeys are preferences that must survive ClearCharacterData.
var protectedKeys = map[string]bool{
	"theme":         true,
	"accent_color":  true,
	"accent_hover":  true,
	"reduce_motion": true,
}

// SnapshotKey returns the cache key holding a character's full snapshot.
func SnapshotKey(characterID string) string {
	return characterPrefix + characterID + snapshotSuffix
}

// Store is a sqlite-backed KV store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at path and applies pending
// migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("run cache migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put upserts one key. The write happens in a single statement, so a
// failure never leaves a partially written value behind.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to upsert %q: %w", key, err)
	}
	return nil
}

// Get returns the value stored under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// KeysWithPrefix lists all keys starting with prefix, sorted.
func (s *Store) KeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv WHERE key LIKE ? ESCAPE '\' ORDER BY key`,
		escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// escapeLike makes a literal string safe for use in a LIKE pattern.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ClearCharacter removes everything stored for one character.
func (s *Store) ClearCharacter(ctx context.Context, characterID string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key LIKE ? ESCAPE '\'`,
			escapeLike(characterPrefix+characterID+":")+"%")
		return err
	})
}

// ClearCharacterData sweeps every character-scoped key plus the index and
// current pointer, leaving the protected preference keys untouched. The
// sweep runs in one transaction so an interrupted clear cannot leave the
// index pointing at deleted snapshots.
func (s *Store) ClearCharacterData(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rows, err := tx.QueryContext(ctx, `SELECT key FROM kv`)
		if err != nil {
			return err
		}
		defer rows.Close()

		var doomed []string
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				return err
			}
			if protectedKeys[k] {
				continue
			}
			if strings.HasPrefix(k, characterPrefix) || k == KeyIndex {
				doomed = append(doomed, k)
			}
		}
		if err := rows.Err(); err != nil {
			return err
		}

		for _, k := range doomed {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, k); err != nil {
				return err
			}
		}
		return nil
	})
}
