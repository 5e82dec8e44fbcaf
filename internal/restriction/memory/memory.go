/*
Copyright 2026 The MessageQueue Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package memory implements restriction.Store over an in-process set.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/KyleGonzalez/MessageQueue/internal/restriction"
)

// Store is the in-memory restriction.Store implementation. It has no
// internal plumbing that could collide with a real sub-queue name, so it
// reserves nothing.
type Store struct {
	mu  sync.RWMutex
	set map[string]struct{}
}

var _ restriction.Store = (*Store)(nil)

func New() *Store {
	return &Store{set: make(map[string]struct{})}
}

func (s *Store) IsRestricted(_ context.Context, subQueue string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.set[subQueue]
	return ok, nil
}

func (s *Store) Add(_ context.Context, subQueue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set[subQueue] = struct{}{}
	return nil
}

func (s *Store) Remove(_ context.Context, subQueue string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.set[subQueue]
	delete(s.set, subQueue)
	return ok, nil
}

func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.set))
	for name := range s.set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Clear(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.set)
	s.set = make(map[string]struct{})
	return n, nil
}

func (s *Store) ReservedSubQueues() []string { return nil }

func (s *Store) Ping(context.Context) error { return nil }
