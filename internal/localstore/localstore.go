// Package localstore is the synchronous device-local key-value persistence:
// cart contents and the cached session survive a restart here, independent
// of the remote document store.
package localstore

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

type sqliteKV struct {
	db *sqlx.DB
}

// OpenSQLite открывает (или создаёт) локальную базу. WAL — чтобы
// синхронные записи при каждой мутации корзины оставались дешёвыми.
func OpenSQLite(path string) (KV, error) {
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv_store (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init local store: %w", err)
	}
	return &sqliteKV{db: db}, nil
}

func (s *sqliteKV) Get(key string) (string, bool, error) {
	var value string
	err := s.db.Get(&value, `SELECT value FROM kv_store WHERE key = ?`, key)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *sqliteKV) Set(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO kv_store (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (s *sqliteKV) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv_store WHERE key = ?`, key)
	return err
}

func (s *sqliteKV) Close() error { return s.db.Close() }
