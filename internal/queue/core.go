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

// Package queue implements the backend-agnostic MultiQueue core (spec.md
// §4.1): uniqueness, ordering-key assignment, assignment/release,
// retainAll, and ownersMap, composed over a single backend.Adapter. No
// inheritance, no per-backend subclassing — the teacher's template-method
// base class (spec.md §9) is replaced by one struct that holds an
// interface, following the same shape as the teacher's scaleHandler
// holding a client.Client and a map of caches (pkg/scaling/scale_handler.go).
package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/KyleGonzalez/MessageQueue/internal/backend"
	"github.com/KyleGonzalez/MessageQueue/internal/message"
	"github.com/KyleGonzalez/MessageQueue/internal/queueerrors"
)

const maxIDAllocationAttempts = 5

// Core is the backend-agnostic multi-queue orchestrator.
type Core struct {
	backend backend.Adapter
	logger  logr.Logger

	// locks serializes the "read max(id), then append" sequence for
	// CoreAssigned backends within this process (spec.md §5). Add retries
	// up to maxIDAllocationAttempts when Append reports a conflict: the
	// document backend reports a duplicate (subQueue, id) that way, while the
	// cache backend does not detect a duplicate id written by another process.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New builds a Core over the given backend. logger is scoped with a
// "backend" field up front (the teacher's .WithValues(...) convention) so
// every log line this Core emits already carries which adapter is in use.
func New(b backend.Adapter, logger logr.Logger) *Core {
	return &Core{
		backend: b,
		logger:  logger.WithValues("backend", fmt.Sprintf("%T", b)),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (c *Core) lockFor(subQueue string) *sync.Mutex {
	c.locksMu.Lock()
	defer c.locksMu.Unlock()
	l, ok := c.locks[subQueue]
	if !ok {
		l = &sync.Mutex{}
		c.locks[subQueue] = l
	}
	return l
}

// Add assigns a uuid if absent, rejects duplicates, assigns the ordering
// key for CoreAssigned backends, and stores the record.
func (c *Core) Add(ctx context.Context, rec message.Record) (message.Record, error) {
	if rec.SubQueue == "" {
		return message.Record{}, fmt.Errorf("add: subQueue must not be empty")
	}
	if rec.UUID == "" {
		rec.UUID = uuid.NewString()
	}

	if sq, ok, err := c.backend.FindSubQueueOf(ctx, rec.UUID); err != nil {
		return message.Record{}, err
	} else if ok {
		c.logger.Info("add rejected: duplicate uuid", "subQueue", rec.SubQueue, "uuid", rec.UUID, "existingSubQueue", sq)
		return message.Record{}, &queueerrors.DuplicateMessageError{UUID: rec.UUID, ExistingSubQueue: sq}
	}

	if c.backend.OrdinalityPolicy() == backend.Intrinsic {
		stored, err := c.backend.Append(ctx, rec)
		if err != nil {
			c.logger.Error(err, "append failed", "subQueue", rec.SubQueue, "uuid", rec.UUID)
			return message.Record{}, err
		}
		c.logger.Info("message added", "subQueue", stored.SubQueue, "uuid", stored.UUID, "id", stored.ID)
		return stored, nil
	}

	lock := c.lockFor(rec.SubQueue)
	lock.Lock()
	defer lock.Unlock()

	var lastErr error
	for attempt := 0; attempt < maxIDAllocationAttempts; attempt++ {
		next := int64(1)
		if max, ok, err := c.backend.MaxIDOf(ctx, rec.SubQueue); err != nil {
			return message.Record{}, err
		} else if ok {
			next = max + 1
		}
		rec.ID = next

		stored, err := c.backend.Append(ctx, rec)
		if err == nil {
			c.logger.Info("message added", "subQueue", stored.SubQueue, "uuid", stored.UUID, "id", stored.ID)
			return stored, nil
		}
		if be, ok := queueerrors.AsBackend(err); ok && be.Kind == queueerrors.BackendConflict {
			c.logger.Info("id allocation conflict, retrying", "subQueue", rec.SubQueue, "uuid", rec.UUID, "attempt", attempt)
			lastErr = err
			continue
		}
		c.logger.Error(err, "append failed", "subQueue", rec.SubQueue, "uuid", rec.UUID)
		return message.Record{}, err
	}
	c.logger.Error(lastErr, "id allocation exhausted retries", "subQueue", rec.SubQueue, "uuid", rec.UUID)
	return message.Record{}, queueerrors.WrapBackend(queueerrors.BackendConflict, lastErr)
}

// Remove deletes the record identified by uuid and reports whether one was removed.
func (c *Core) Remove(ctx context.Context, uuid string) (bool, error) {
	return c.backend.RemoveByUUID(ctx, uuid)
}

// Poll returns and removes the head (lowest ID) of subQueue. The backend's
// RemoveByUUID is the linearization point: if two concurrent Polls observe
// the same head, at most one RemoveByUUID succeeds; the loser re-peeks
// once and, finding a new head (or none), returns that result rather than
// retrying indefinitely.
func (c *Core) Poll(ctx context.Context, subQueue string) (message.Record, bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		head, ok, err := c.Peek(ctx, subQueue)
		if err != nil || !ok {
			return message.Record{}, ok, err
		}
		removed, err := c.backend.RemoveByUUID(ctx, head.UUID)
		if err != nil {
			c.logger.Error(err, "poll: remove failed", "subQueue", subQueue, "uuid", head.UUID)
			return message.Record{}, false, err
		}
		if removed {
			c.logger.Info("message polled", "subQueue", subQueue, "uuid", head.UUID)
			return head, true, nil
		}
		// Someone else removed it first; re-peek once more.
	}
	return message.Record{}, false, nil
}

// Peek returns the head of subQueue without removing it.
func (c *Core) Peek(ctx context.Context, subQueue string) (message.Record, bool, error) {
	recs, err := c.backend.IterateSubQueue(ctx, subQueue, All())
	if err != nil {
		return message.Record{}, false, err
	}
	if len(recs) == 0 {
		return message.Record{}, false, nil
	}
	return recs[0], true, nil
}

// GetMessageByUUID returns the record with the given uuid, if any.
func (c *Core) GetMessageByUUID(ctx context.Context, uuid string) (message.Record, bool, error) {
	return c.backend.FindByUUID(ctx, uuid)
}

// ContainsUUID returns the sub-queue owning uuid, if any.
func (c *Core) ContainsUUID(ctx context.Context, uuid string) (string, bool, error) {
	return c.backend.FindSubQueueOf(ctx, uuid)
}

// GetForSubQueue returns subQueue's records matching filter, in ascending ID order.
func (c *Core) GetForSubQueue(ctx context.Context, subQueue string, filter backend.Filter) ([]message.Record, error) {
	return c.backend.IterateSubQueue(ctx, subQueue, filter)
}

// Keys returns the set of sub-queue identifiers; when includeEmpty is
// false, only sub-queues with at least one record are returned.
func (c *Core) Keys(ctx context.Context, includeEmpty bool) ([]string, error) {
	names, err := c.backend.DistinctSubQueues(ctx)
	if err != nil {
		return nil, err
	}
	if includeEmpty {
		sort.Strings(names)
		return names, nil
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		size, err := c.backend.SizeOf(ctx, name)
		if err != nil {
			return nil, err
		}
		if size > 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// SizeOf returns the number of records in subQueue.
func (c *Core) SizeOf(ctx context.Context, subQueue string) (int, error) {
	return c.backend.SizeOf(ctx, subQueue)
}

// Size returns the total number of records across every sub-queue.
func (c *Core) Size(ctx context.Context) (int, error) {
	names, err := c.backend.DistinctSubQueues(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, name := range names {
		n, err := c.backend.SizeOf(ctx, name)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// IsEmpty reports whether the service holds any records at all.
func (c *Core) IsEmpty(ctx context.Context) (bool, error) {
	n, err := c.Size(ctx)
	return n == 0, err
}

// IsEmptyFor reports whether subQueue holds any records.
func (c *Core) IsEmptyFor(ctx context.Context, subQueue string) (bool, error) {
	n, err := c.backend.SizeOf(ctx, subQueue)
	return n == 0, err
}

// ClearFor removes every record in subQueue and returns the count removed.
func (c *Core) ClearFor(ctx context.Context, subQueue string) (int, error) {
	return c.backend.DeleteSubQueue(ctx, subQueue)
}

// ClearAll removes every record in every sub-queue and returns the total count removed.
func (c *Core) ClearAll(ctx context.Context) (int, error) {
	return c.backend.DeleteAll(ctx)
}

// Assign sets assignedTo on the message identified by uuid. Idempotent:
// re-assigning to the same owner succeeds without altering assignedAt.
func (c *Core) Assign(ctx context.Context, uuid, owner string) (message.Record, error) {
	if owner == "" {
		return message.Record{}, fmt.Errorf("assign: owner must not be empty")
	}
	rec, ok, err := c.backend.FindByUUID(ctx, uuid)
	if err != nil {
		return message.Record{}, err
	}
	if !ok {
		return message.Record{}, queueerrors.ErrNotFound
	}

	if rec.IsAssigned() {
		if rec.AssignedTo == owner {
			return rec, nil
		}
		c.logger.Info("assign rejected: already assigned", "subQueue", rec.SubQueue, "uuid", uuid, "otherOwner", rec.AssignedTo)
		return message.Record{}, &queueerrors.AlreadyAssignedError{UUID: uuid, OtherOwner: rec.AssignedTo}
	}

	now := time.Now().UTC()
	rec.AssignedTo = owner
	rec.AssignedAt = &now

	updated, err := c.backend.UpdateByUUID(ctx, uuid, rec)
	if err != nil {
		c.logger.Error(err, "assign: update failed", "subQueue", rec.SubQueue, "uuid", uuid)
		return message.Record{}, err
	}
	if !updated {
		return message.Record{}, queueerrors.ErrUpdateFailed
	}
	c.logger.Info("message assigned", "subQueue", rec.SubQueue, "uuid", uuid, "owner", owner)
	return rec, nil
}

// Release clears assignedTo if owner currently holds the message.
func (c *Core) Release(ctx context.Context, uuid, owner string) (message.Record, error) {
	rec, ok, err := c.backend.FindByUUID(ctx, uuid)
	if err != nil {
		return message.Record{}, err
	}
	if !ok {
		return message.Record{}, queueerrors.ErrNotFound
	}
	if !rec.IsAssigned() || rec.AssignedTo != owner {
		c.logger.Info("release rejected: assignment mismatch", "subQueue", rec.SubQueue, "uuid", uuid, "owner", owner)
		return message.Record{}, queueerrors.ErrAssignmentMismatch
	}

	rec.AssignedTo = ""
	rec.AssignedAt = nil

	updated, err := c.backend.UpdateByUUID(ctx, uuid, rec)
	if err != nil {
		c.logger.Error(err, "release: update failed", "subQueue", rec.SubQueue, "uuid", uuid)
		return message.Record{}, err
	}
	if !updated {
		return message.Record{}, queueerrors.ErrUpdateFailed
	}
	c.logger.Info("message released", "subQueue", rec.SubQueue, "uuid", uuid, "owner", owner)
	return rec, nil
}

// Persist replaces the mutable metadata of the record identified by
// rec.UUID, preserving ID and SubQueue. The record must already exist.
func (c *Core) Persist(ctx context.Context, rec message.Record) (message.Record, error) {
	existing, ok, err := c.backend.FindByUUID(ctx, rec.UUID)
	if err != nil {
		return message.Record{}, err
	}
	if !ok {
		return message.Record{}, queueerrors.ErrNotFound
	}

	rec.ID = existing.ID
	rec.SubQueue = existing.SubQueue
	rec.Seq = existing.Seq

	updated, err := c.backend.UpdateByUUID(ctx, rec.UUID, rec)
	if err != nil {
		return message.Record{}, err
	}
	if !updated {
		return message.Record{}, queueerrors.ErrUpdateFailed
	}
	return rec, nil
}

// RetainAll removes every stored record whose uuid is not in keep. Returns
// whether any removal occurred.
func (c *Core) RetainAll(ctx context.Context, keep map[string]struct{}) (bool, error) {
	names, err := c.backend.DistinctSubQueues(ctx)
	if err != nil {
		return false, err
	}

	removedAny := false
	for _, name := range names {
		recs, err := c.backend.IterateSubQueue(ctx, name, All())
		if err != nil {
			return false, err
		}
		for _, r := range recs {
			if _, ok := keep[r.UUID]; ok {
				continue
			}
			removed, err := c.backend.RemoveByUUID(ctx, r.UUID)
			if err != nil {
				return false, err
			}
			removedAny = removedAny || removed
		}
	}
	return removedAny, nil
}

// OwnersMap returns, for each owner with at least one assigned message,
// the set of sub-queues they hold a message in. When subQueue is non-nil,
// only that sub-queue is considered.
func (c *Core) OwnersMap(ctx context.Context, subQueue *string) (map[string][]string, error) {
	var names []string
	if subQueue != nil {
		names = []string{*subQueue}
	} else {
		var err error
		names, err = c.backend.DistinctSubQueues(ctx)
		if err != nil {
			return nil, err
		}
	}

	owners := make(map[string]map[string]struct{})
	for _, name := range names {
		recs, err := c.backend.IterateSubQueue(ctx, name, Assigned())
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			set, ok := owners[r.AssignedTo]
			if !ok {
				set = make(map[string]struct{})
				owners[r.AssignedTo] = set
			}
			set[name] = struct{}{}
		}
	}

	out := make(map[string][]string, len(owners))
	for owner, set := range owners {
		list := make([]string, 0, len(set))
		for name := range set {
			list = append(list, name)
		}
		sort.Strings(list)
		out[owner] = list
	}
	return out, nil
}

// HealthCheck verifies backend reachability.
func (c *Core) HealthCheck(ctx context.Context) error {
	return c.backend.Ping(ctx)
}
