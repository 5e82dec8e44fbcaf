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

// Package backend defines the narrow storage contract every backend
// adapter implements (spec.md §4.2). All higher-level semantics —
// uniqueness, ordering-key assignment, poll = peek + remove, retainAll,
// ownersMap — live in the queue core, not here. This mirrors the teacher's
// Scaler interface in pkg/scalers/scaler.go: one small interface, one
// struct per concrete implementation, no shared base type.
package backend

import (
	"context"

	"github.com/KyleGonzalez/MessageQueue/internal/message"
)

// OrdinalityPolicy reports who is responsible for assigning Record.ID.
type OrdinalityPolicy int

const (
	// Intrinsic means the backend assigns ID itself (e.g. a relational
	// auto-increment sequence); the core must not pre-assign.
	Intrinsic OrdinalityPolicy = iota
	// CoreAssigned means the core picks the next ID via max(ID)+1.
	CoreAssigned
)

// Filter selects which records of a sub-queue GetForSubQueue / iterateSubQueue return.
type Filter struct {
	Mode       FilterMode
	AssignedTo string // only meaningful when Mode == FilterAssignedTo
}

// FilterMode enumerates the filter kinds from spec.md §4.1.
type FilterMode int

const (
	FilterAll FilterMode = iota
	FilterAssigned
	FilterAssignedTo
	FilterUnassigned
)

// Adapter is the storage contract implemented once per backend variant.
type Adapter interface {
	// OrdinalityPolicy reports whether this backend or the core assigns IDs.
	OrdinalityPolicy() OrdinalityPolicy

	// Append stores rec (backend-intrinsic backends fill rec.ID) and
	// returns the stored record.
	Append(ctx context.Context, rec message.Record) (message.Record, error)

	// RemoveByUUID deletes the record with the given uuid, if any, and
	// reports whether a record was removed.
	RemoveByUUID(ctx context.Context, uuid string) (bool, error)

	// UpdateByUUID replaces the mutable metadata of the record identified
	// by uuid, preserving ID and SubQueue, and reports whether a record
	// was found and updated.
	UpdateByUUID(ctx context.Context, uuid string, rec message.Record) (bool, error)

	// FindByUUID returns the record with the given uuid, if any.
	FindByUUID(ctx context.Context, uuid string) (message.Record, bool, error)

	// FindSubQueueOf returns the sub-queue owning uuid, if any.
	FindSubQueueOf(ctx context.Context, uuid string) (string, bool, error)

	// IterateSubQueue returns subQueue's records in ascending ID order
	// (ties broken by insertion order), filtered by filter.
	IterateSubQueue(ctx context.Context, subQueue string, filter Filter) ([]message.Record, error)

	// MaxIDOf returns the current maximum ID in subQueue, or false if the
	// sub-queue is empty. Only required for CoreAssigned backends.
	MaxIDOf(ctx context.Context, subQueue string) (int64, bool, error)

	// SizeOf returns the number of records currently stored in subQueue.
	SizeOf(ctx context.Context, subQueue string) (int, error)

	// DistinctSubQueues returns the sub-queue identifiers the backend
	// currently holds. A sub-queue emptied by RemoveByUUID may still be
	// listed (the in-memory backend keeps it until DeleteSubQueue or
	// DeleteAll); callers that need only non-empty ones check SizeOf.
	DistinctSubQueues(ctx context.Context) ([]string, error)

	// DeleteSubQueue removes every record in subQueue and returns the count removed.
	DeleteSubQueue(ctx context.Context, subQueue string) (int, error)

	// DeleteAll removes every record in every sub-queue and returns the
	// total count removed.
	DeleteAll(ctx context.Context) (int, error)

	// Ping verifies backend reachability.
	Ping(ctx context.Context) error
}
