// Package storage persists users and their projects for the project server.
// Every project operation is scoped to an owning username.
package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("invalid username or password")
	ErrUserExists   = errors.New("user already exists")
)

// ProjectInfo describes a stored project without its contents.
type ProjectInfo struct {
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is implemented by every storage backend.
type Store interface {
	UserAdd(username, password string) error
	UserDelete(username string) error
	UserAuthenticate(username, password string) error
	UserList() ([]string, error)

	ProjectSave(owner, name string, data []byte) error
	ProjectLoad(owner, name string) ([]byte, error)
	ProjectList(owner string) ([]ProjectInfo, error)
	ProjectDelete(owner, name string) error

	Close() error
}

// Open creates the backend named by kind: "memory", "sqlite" or "postgresql".
func Open(kind, path, url string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(path)
	case "postgres", "postgresql":
		return NewPostgresStore(url)
	default:
		return nil, fmt.Errorf("unknown storage type %q", kind)
	}
}

func hashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

func checkPassword(hash []byte, password string) error {
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrUnauthorized
	}
	return nil
}

func validateUser(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("username must not be empty")
	}
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	return nil
}

func validateProjectName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("project name must not be empty")
	}
	return nil
}
