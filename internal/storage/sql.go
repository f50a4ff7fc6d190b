package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// sqlStore implements Store over database/sql. Queries are written with "?"
// placeholders and rebound for drivers that number them.
type sqlStore struct {
	db       *sql.DB
	numbered bool
}

func (s *sqlStore) q(query string) string {
	if !s.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) init(schema []string) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (s *sqlStore) UserAdd(username, password string) error {
	if err := validateUser(username, password); err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	// The insert is the existence check, so concurrent sign-ups for one name
	// see exactly one winner.
	res, err := s.db.Exec(s.q("INSERT INTO users (username, password_hash) VALUES (?, ?) ON CONFLICT (username) DO NOTHING"), username, hash)
	if err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUserExists, username)
	}
	return nil
}

func (s *sqlStore) UserDelete(username string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(s.q("DELETE FROM projects WHERE owner = ?"), username); err != nil {
		return fmt.Errorf("failed to delete user's projects: %w", err)
	}
	res, err := tx.Exec(s.q("DELETE FROM users WHERE username = ?"), username)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *sqlStore) UserAuthenticate(username, password string) error {
	var hash []byte
	err := s.db.QueryRow(s.q("SELECT password_hash FROM users WHERE username = ?"), username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("failed to authenticate user: %w", err)
	}
	return checkPassword(hash, password)
}

func (s *sqlStore) UserList() ([]string, error) {
	rows, err := s.db.Query("SELECT username FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *sqlStore) ProjectSave(owner, name string, data []byte) error {
	if err := validateProjectName(name); err != nil {
		return err
	}
	_, err := s.db.Exec(s.q(`
		INSERT INTO projects (owner, name, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (owner, name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`), owner, name, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save project %q: %w", name, err)
	}
	return nil
}

func (s *sqlStore) ProjectLoad(owner, name string) ([]byte, error) {
	var data string
	err := s.db.QueryRow(s.q("SELECT data FROM projects WHERE owner = ? AND name = ?"), owner, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project %q: %w", name, err)
	}
	return []byte(data), nil
}

func (s *sqlStore) ProjectList(owner string) ([]ProjectInfo, error) {
	rows, err := s.db.Query(s.q("SELECT name, updated_at FROM projects WHERE owner = ? ORDER BY updated_at DESC, name"), owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()
	infos := []ProjectInfo{}
	for rows.Next() {
		var info ProjectInfo
		if err := rows.Scan(&info.Name, &info.UpdatedAt); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *sqlStore) ProjectDelete(owner, name string) error {
	res, err := s.db.Exec(s.q("DELETE FROM projects WHERE owner = ? AND name = ?"), owner, name)
	if err != nil {
		return fmt.Errorf("failed to delete project %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %q: %w", name, ErrNotFound)
	}
	return nil
}

func (s *sqlStore) Close() error { return s.db.Close() }
