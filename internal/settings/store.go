package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	bolt "go.etcd.io/bbolt"
)

// Key is the fixed key the settings blob is stored under.
const Key = "mch-settings"

// ErrNotFound is returned by a Store when nothing is stored under a key.
var ErrNotFound = errors.New("settings not found")

// Store persists opaque blobs by key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// --- bbolt ---

var boltBucket = []byte("settings")

// BoltStore keeps settings in a local bbolt file, the terminal's
// equivalent of browser local storage.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if needed) the bbolt file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create settings bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// bbolt values are only valid inside the transaction.
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

func (s *BoltStore) Put(_ context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), value)
	})
}

// Close releases the bbolt file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// --- Postgres ---

// DB is the subset of *pgxpool.Pool the Postgres store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	pgCreateTable = `CREATE TABLE IF NOT EXISTS app_settings (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	pgSelect = `SELECT value FROM app_settings WHERE key = $1`
	pgUpsert = `INSERT INTO app_settings (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
)

// PgStore keeps settings in a shared Postgres key/value table.
type PgStore struct {
	db DB
}

// NewPgStore returns a store backed by db. Call EnsureSchema once at startup.
func NewPgStore(db DB) *PgStore {
	return &PgStore{db: db}
}

// EnsureSchema creates the app_settings table if it does not exist.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, pgCreateTable); err != nil {
		return fmt.Errorf("create app_settings: %w", err)
	}
	return nil
}

func (s *PgStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	if err := s.db.QueryRow(ctx, pgSelect, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select settings: %w", err)
	}
	return value, nil
}

func (s *PgStore) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.Exec(ctx, pgUpsert, key, value); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
