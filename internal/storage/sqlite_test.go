package storage

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "board.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteConcurrentSignUp(t *testing.T) {
	s := newTestSQLiteStore(t)

	const attempts = 6
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.UserAdd("coach", "secret1")
		}()
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case !errors.Is(err, ErrUserExists):
			t.Errorf("Expected ErrUserExists for a losing sign-up, got %v", err)
		}
	}
	if created != 1 {
		t.Errorf("Expected exactly one sign-up to win, got %d", created)
	}
	if err := s.UserAuthenticate("coach", "secret1"); err != nil {
		t.Errorf("Expected the winner to log in, got %v", err)
	}
}

func TestSQLiteProjects(t *testing.T) {
	s := newTestSQLiteStore(t)
	if err := s.UserAdd("alpha", "password"); err != nil {
		t.Fatal(err)
	}
	if err := s.ProjectSave("alpha", "rush", []byte(`{"name":"rush"}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.ProjectSave("alpha", "rush", []byte(`{"name":"rush","v":2}`)); err != nil {
		t.Fatal(err)
	}
	data, err := s.ProjectLoad("alpha", "rush")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"name":"rush","v":2}` {
		t.Errorf("Expected the second save to replace the first, got %s", data)
	}
	if _, err := s.ProjectLoad("bravo", "rush"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for another user, got %v", err)
	}

	if err := s.UserDelete("alpha"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ProjectLoad("alpha", "rush"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Deleting a user must delete their projects, got %v", err)
	}
}
