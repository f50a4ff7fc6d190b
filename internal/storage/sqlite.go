package storage

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the default on-disk backend.
type SQLiteStore struct {
	sqlStore
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{sqlStore{db: db}}
	if err := s.init([]string{
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password_hash BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS projects (
			owner TEXT NOT NULL REFERENCES users(username) ON DELETE CASCADE,
			name TEXT NOT NULL,
			data TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (owner, name)
		)`,
	}); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
