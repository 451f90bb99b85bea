// Package memory keeps calculations and users in process memory. It backs
// the "memory" storage driver and the HTTP tests.
package memory

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"go-chi-calculations/internal/auth"
	"go-chi-calculations/internal/calculation"
)

var (
	_ calculation.Store = (*Store)(nil)
	_ auth.UserStore    = (*Store)(nil)
)

type Store struct {
	mu           sync.RWMutex
	calculations map[uuid.UUID]*calculation.Record
	users        map[uuid.UUID]*auth.User
}

func New() *Store {
	return &Store{
		calculations: make(map[uuid.UUID]*calculation.Record),
		users:        make(map[uuid.UUID]*auth.User),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) Put(_ context.Context, rec *calculation.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculations[rec.ID] = rec.Clone()
	return nil
}

func (s *Store) Get(_ context.Context, id uuid.UUID) (*calculation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.calculations[id]
	if !ok {
		return nil, calculation.ErrNotFound
	}
	return rec.Clone(), nil
}

// Update holds the write lock for the whole read-modify-write.
func (s *Store) Update(_ context.Context, id uuid.UUID, fn func(*calculation.Record) error) (*calculation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.calculations[id]
	if !ok {
		return nil, calculation.ErrNotFound
	}

	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.calculations[id] = next
	return next.Clone(), nil
}

func (s *Store) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calculations[id]; !ok {
		return false, nil
	}
	delete(s.calculations, id)
	return true, nil
}

func (s *Store) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*calculation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*calculation.Record, 0)
	for _, rec := range s.calculations {
		if rec.OwnerID == ownerID {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, u *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username || strings.EqualFold(existing.Email, u.Email) {
			return auth.ErrUserExists
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*auth.User, error) {
	return s.findUser(func(u *auth.User) bool { return u.Username == username })
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	return s.findUser(func(u *auth.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *Store) findUser(match func(*auth.User) bool) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrUserNotFound
}
