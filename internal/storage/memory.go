package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

type memoryProject struct {
	data      []byte
	updatedAt time.Time
}

// MemoryStore keeps everything in process memory. Used for tests and for a
// throwaway server.
type MemoryStore struct {
	users    map[string][]byte
	projects map[string]map[string]memoryProject // owner -> name -> project
	mu       sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string][]byte),
		projects: make(map[string]map[string]memoryProject),
	}
}

func (m *MemoryStore) UserAdd(username, password string) error {
	if err := validateUser(username, password); err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; ok {
		return fmt.Errorf("%w: %s", ErrUserExists, username)
	}
	m.users[username] = hash
	return nil
}

// UserDelete removes the user and every project they own.
func (m *MemoryStore) UserDelete(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; !ok {
		return fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	delete(m.users, username)
	delete(m.projects, username)
	return nil
}

func (m *MemoryStore) UserAuthenticate(username, password string) error {
	m.mu.RLock()
	hash, ok := m.users[username]
	m.mu.RUnlock()
	if !ok {
		return ErrUnauthorized
	}
	return checkPassword(hash, password)
}

func (m *MemoryStore) UserList() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.users))
	for name := range m.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) ProjectSave(owner, name string, data []byte) error {
	if err := validateProjectName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[owner]; !ok {
		return fmt.Errorf("user %s: %w", owner, ErrNotFound)
	}
	if m.projects[owner] == nil {
		m.projects[owner] = make(map[string]memoryProject)
	}
	m.projects[owner][name] = memoryProject{
		data:      append([]byte(nil), data...),
		updatedAt: time.Now().UTC(),
	}
	return nil
}

func (m *MemoryStore) ProjectLoad(owner, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[owner][name]
	if !ok {
		return nil, fmt.Errorf("project %q: %w", name, ErrNotFound)
	}
	return append([]byte(nil), p.data...), nil
}

// ProjectList returns the owner's projects, most recently updated first.
func (m *MemoryStore) ProjectList(owner string) ([]ProjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := make([]ProjectInfo, 0, len(m.projects[owner]))
	for name, p := range m.projects[owner] {
		infos = append(infos, ProjectInfo{Name: name, UpdatedAt: p.updatedAt})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].UpdatedAt.Equal(infos[j].UpdatedAt) {
			return infos[i].Name < infos[j].Name
		}
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos, nil
}

func (m *MemoryStore) ProjectDelete(owner, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[owner][name]; !ok {
		return fmt.Errorf("project %q: %w", name, ErrNotFound)
	}
	delete(m.projects[owner], name)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
