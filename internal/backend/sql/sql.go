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

// Package sql implements the backend.Adapter contract over a relational
// table, grounded in pkg/scalers/postgresql_scaler.go: a blank
// "github.com/jackc/pgx/v5/stdlib" import registers the "pgx" driver name
// with database/sql, and the scaler otherwise only ever talks to
// *sql.DB/*sql.Rows. Ordinality is Intrinsic: the auto-increment "id"
// column assigns ordering, so the core never pre-computes it here.
package sql

import (
	"context"
	"database/sql"
	"errors"

	// pgx driver required for this backend.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/KyleGonzalez/MessageQueue/internal/backend"
	"github.com/KyleGonzalez/MessageQueue/internal/message"
	"github.com/KyleGonzalez/MessageQueue/internal/queueerrors"
)

// Connect opens a pgx-backed *sql.DB against dsn, mirroring the
// sql.Open("pgx", ...) + Ping sequence in postgresql_scaler.go's
// getConnection.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, queueerrors.WrapBackend(queueerrors.BackendUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, queueerrors.WrapBackend(queueerrors.BackendUnavailable, err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id BIGSERIAL,
	uuid TEXT UNIQUE NOT NULL,
	sub_queue TEXT NOT NULL,
	content_type TEXT NOT NULL,
	payload BYTEA,
	assigned_to TEXT NOT NULL DEFAULT '',
	assigned_at TIMESTAMPTZ,
	PRIMARY KEY (sub_queue, id)
);
CREATE INDEX IF NOT EXISTS messages_sub_queue_id_idx ON messages (sub_queue, id);
CREATE INDEX IF NOT EXISTS messages_assigned_to_idx ON messages (assigned_to);
`

// EnsureSchema creates the messages table and its indices if absent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return nil
}

// Backend is the relational backend.Adapter implementation.
type Backend struct {
	db *sql.DB
}

var _ backend.Adapter = (*Backend)(nil)

func New(db *sql.DB) *Backend {
	return &Backend{db: db}
}

func (b *Backend) OrdinalityPolicy() backend.OrdinalityPolicy { return backend.Intrinsic }

func (b *Backend) Append(ctx context.Context, rec message.Record) (message.Record, error) {
	const q = `INSERT INTO messages (uuid, sub_queue, content_type, payload, assigned_to, assigned_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := b.db.QueryRowContext(ctx, q, rec.UUID, rec.SubQueue, rec.Payload.ContentType, rec.Payload.Body, rec.AssignedTo, rec.AssignedAt).Scan(&rec.ID)
	if isUniqueViolation(err) {
		return message.Record{}, queueerrors.WrapBackend(queueerrors.BackendConflict, err)
	}
	if err != nil {
		return message.Record{}, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return rec, nil
}

func (b *Backend) RemoveByUUID(ctx context.Context, uuid string) (bool, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM messages WHERE uuid = $1`, uuid)
	if err != nil {
		return false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return n > 0, nil
}

// UpdateByUUID implements the Open Question resolution in SPEC_FULL.md §4:
// it looks the record up by uuid, ignores any id/sub_queue on rec, and
// updates only the mutable columns.
func (b *Backend) UpdateByUUID(ctx context.Context, uuid string, rec message.Record) (bool, error) {
	const q = `UPDATE messages SET content_type = $1, payload = $2, assigned_to = $3, assigned_at = $4 WHERE uuid = $5`
	res, err := b.db.ExecContext(ctx, q, rec.Payload.ContentType, rec.Payload.Body, rec.AssignedTo, rec.AssignedAt, uuid)
	if err != nil {
		return false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return n > 0, nil
}

func (b *Backend) FindByUUID(ctx context.Context, uuid string) (message.Record, bool, error) {
	const q = `SELECT id, uuid, sub_queue, content_type, payload, assigned_to, assigned_at FROM messages WHERE uuid = $1`
	row := b.db.QueryRowContext(ctx, q, uuid)
	return scanRecord(row)
}

func (b *Backend) FindSubQueueOf(ctx context.Context, uuid string) (string, bool, error) {
	rec, ok, err := b.FindByUUID(ctx, uuid)
	if err != nil || !ok {
		return "", false, err
	}
	return rec.SubQueue, true, nil
}

func (b *Backend) IterateSubQueue(ctx context.Context, subQueue string, filter backend.Filter) ([]message.Record, error) {
	q := `SELECT id, uuid, sub_queue, content_type, payload, assigned_to, assigned_at FROM messages WHERE sub_queue = $1`
	args := []interface{}{subQueue}

	switch filter.Mode {
	case backend.FilterAssigned:
		q += ` AND assigned_to <> ''`
	case backend.FilterAssignedTo:
		q += ` AND assigned_to = $2`
		args = append(args, filter.AssignedTo)
	case backend.FilterUnassigned:
		q += ` AND assigned_to = ''`
	}
	q += ` ORDER BY id ASC`

	rows, err := b.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	defer rows.Close()

	out := []message.Record{}
	for rows.Next() {
		rec, ok, err := scanRecordRows(rows)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return out, nil
}

func (b *Backend) MaxIDOf(ctx context.Context, subQueue string) (int64, bool, error) {
	// Intrinsic ordinality: the core never calls this for the relational
	// backend, but it's implemented for completeness and diagnostics.
	var maxID sql.NullInt64
	err := b.db.QueryRowContext(ctx, `SELECT MAX(id) FROM messages WHERE sub_queue = $1`, subQueue).Scan(&maxID)
	if err != nil {
		return 0, false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	if !maxID.Valid {
		return 0, false, nil
	}
	return maxID.Int64, true, nil
}

func (b *Backend) SizeOf(ctx context.Context, subQueue string) (int, error) {
	var n int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE sub_queue = $1`, subQueue).Scan(&n)
	if err != nil {
		return 0, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return n, nil
}

func (b *Backend) DistinctSubQueues(ctx context.Context) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT DISTINCT sub_queue FROM messages ORDER BY sub_queue`)
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

func (b *Backend) DeleteSubQueue(ctx context.Context, subQueue string) (int, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM messages WHERE sub_queue = $1`, subQueue)
	if err != nil {
		return 0, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return int(n), nil
}

func (b *Backend) DeleteAll(ctx context.Context) (int, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM messages`)
	if err != nil {
		return 0, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return int(n), nil
}

func (b *Backend) Ping(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return queueerrors.WrapBackend(queueerrors.BackendUnavailable, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (message.Record, bool, error) {
	rec, ok, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return message.Record{}, false, nil
	}
	if err != nil {
		return message.Record{}, false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return rec, ok, nil
}

func scanRecordRows(rows *sql.Rows) (message.Record, bool, error) {
	rec, ok, err := scanInto(rows)
	if err != nil {
		return message.Record{}, false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return rec, ok, nil
}

func scanInto(row rowScanner) (message.Record, bool, error) {
	var (
		rec         message.Record
		contentType string
		payload     []byte
		assignedTo  string
		assignedAt  sql.NullTime
	)
	if err := row.Scan(&rec.ID, &rec.UUID, &rec.SubQueue, &contentType, &payload, &assignedTo, &assignedAt); err != nil {
		return message.Record{}, false, err
	}
	rec.Payload = message.Payload{ContentType: contentType, Body: payload}
	rec.AssignedTo = assignedTo
	if assignedAt.Valid {
		t := assignedAt.Time
		rec.AssignedAt = &t
	}
	return rec, true, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// pgx/v5 surfaces *pgconn.PgError with Code "23505" for unique
	// violations; avoid importing pgconn just for this by checking via
	// errors.As against the minimal interface it satisfies.
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
