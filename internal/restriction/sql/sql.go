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

// Package sql implements restriction.Store over a dedicated table in the
// same database the relational message backend uses, grounded the same way
// (pgx/v5 stdlib driver, see internal/backend/sql).
package sql

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/KyleGonzalez/MessageQueue/internal/queueerrors"
	"github.com/KyleGonzalez/MessageQueue/internal/restriction"
)

const schema = `
CREATE TABLE IF NOT EXISTS restricted_sub_queues (
	sub_queue TEXT PRIMARY KEY
);
`

// EnsureSchema creates the restricted_sub_queues table if absent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return nil
}

// Store is the relational restriction.Store implementation.
type Store struct {
	db *sql.DB
}

var _ restriction.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) IsRestricted(ctx context.Context, subQueue string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM restricted_sub_queues WHERE sub_queue = $1)`, subQueue).Scan(&exists)
	if err != nil {
		return false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return exists, nil
}

func (s *Store) Add(ctx context.Context, subQueue string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO restricted_sub_queues (sub_queue) VALUES ($1) ON CONFLICT DO NOTHING`, subQueue)
	if err != nil {
		return queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, subQueue string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM restricted_sub_queues WHERE sub_queue = $1`, subQueue)
	if err != nil {
		return false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return n > 0, nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sub_queue FROM restricted_sub_queues ORDER BY sub_queue`)
	if err != nil {
		return nil, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, queueerrors.WrapBackend(queueerrors.BackendIO, err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return out, nil
}

func (s *Store) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM restricted_sub_queues`)
	if err != nil {
		return 0, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return int(n), nil
}

// ReservedSubQueues is empty: this store's table is independent of the
// relational message backend's messages table namespace.
func (s *Store) ReservedSubQueues() []string { return nil }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return queueerrors.WrapBackend(queueerrors.BackendUnavailable, err)
	}
	return nil
}
