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

// Package redis implements restriction.Store over a single Redis Set,
// namespaced under the same prefix convention as internal/backend/redis so
// the two stores can safely share one Redis instance.
package redis

import (
	"context"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/KyleGonzalez/MessageQueue/internal/queueerrors"
	"github.com/KyleGonzalez/MessageQueue/internal/restriction"
)

const restrictedSetSuffix = "restricted"

// Store is the cache-backed restriction.Store implementation.
type Store struct {
	client redis.UniversalClient
	prefix string
}

var _ restriction.Store = (*Store)(nil)

func New(client redis.UniversalClient, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key() string { return s.prefix + restrictedSetSuffix }

func (s *Store) IsRestricted(ctx context.Context, subQueue string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.key(), subQueue).Result()
	if err != nil {
		return false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return ok, nil
}

func (s *Store) Add(ctx context.Context, subQueue string) error {
	if err := s.client.SAdd(ctx, s.key(), subQueue).Err(); err != nil {
		return queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, subQueue string) (bool, error) {
	n, err := s.client.SRem(ctx, s.key(), subQueue).Result()
	if err != nil {
		return false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return n > 0, nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.key()).Result()
	if err != nil {
		return nil, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Clear(ctx context.Context) (int, error) {
	names, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(names) == 0 {
		return 0, nil
	}
	if err := s.client.Del(ctx, s.key()).Err(); err != nil {
		return 0, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return len(names), nil
}

// ReservedSubQueues reports this store's own Set key. The HTTP layer
// rejects messages addressed to a sub-queue of that name; Add itself does
// not check it.
func (s *Store) ReservedSubQueues() []string {
	return []string{s.key()}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return queueerrors.WrapBackend(queueerrors.BackendUnavailable, err)
	}
	return nil
}
