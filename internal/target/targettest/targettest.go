// Package targettest provides an in-memory target.Checker.
package targettest

import (
	"context"
	"sync"

	"jobmate/research-service/internal/target"
)

// Set is a target.Checker over an explicit set of rows.
type Set struct {
	mu   sync.Mutex
	rows map[target.Ref]string
}

// New returns an empty Set.
func New() *Set { return &Set{rows: map[target.Ref]string{}} }

// Add registers a row visible to everyone.
func (s *Set) Add(t target.Type, id string) *Set { return s.add(t, id, "") }

// AddPrivate registers a row visible only to owner.
func (s *Set) AddPrivate(t target.Type, id, owner string) *Set { return s.add(t, id, owner) }

// Remove unregisters a row.
func (s *Set) Remove(t target.Type, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, target.Ref{Type: t, ID: id})
}

func (s *Set) add(t target.Type, id, owner string) *Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[target.Ref{Type: t, ID: id}] = owner
	return s
}

// Exists implements target.Checker.
func (s *Set) Exists(_ context.Context, ref target.Ref, viewerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.rows[ref]
	return ok && (owner == "" || owner == viewerID), nil
}
