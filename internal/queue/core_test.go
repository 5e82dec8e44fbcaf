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

package queue_test

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyleGonzalez/MessageQueue/internal/backend/memory"
	"github.com/KyleGonzalez/MessageQueue/internal/message"
	"github.com/KyleGonzalez/MessageQueue/internal/queue"
	"github.com/KyleGonzalez/MessageQueue/internal/queueerrors"
)

func newCore() *queue.Core {
	return queue.New(memory.New(), logr.Discard())
}

func TestCore_AddAssignsIDsAndRejectsDuplicateUUID(t *testing.T) {
	c := newCore()
	ctx := context.Background()

	first, err := c.Add(ctx, message.Record{UUID: "a", SubQueue: "orders"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.ID)

	second, err := c.Add(ctx, message.Record{UUID: "b", SubQueue: "orders"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, second.ID)

	_, err = c.Add(ctx, message.Record{UUID: "a", SubQueue: "shipping"})
	require.Error(t, err)
	dup, ok := queueerrors.AsDuplicateMessage(err)
	require.True(t, ok)
	assert.Equal(t, "orders", dup.ExistingSubQueue)
}

func TestCore_AddAssignsUUIDWhenAbsent(t *testing.T) {
	c := newCore()
	rec, err := c.Add(context.Background(), message.Record{SubQueue: "orders"})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.UUID)
}

func TestCore_PollRemovesHeadInOrder(t *testing.T) {
	c := newCore()
	ctx := context.Background()

	_, err := c.Add(ctx, message.Record{UUID: "a", SubQueue: "orders"})
	require.NoError(t, err)
	_, err = c.Add(ctx, message.Record{UUID: "b", SubQueue: "orders"})
	require.NoError(t, err)

	peeked, ok, err := c.Peek(ctx, "orders")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", peeked.UUID)

	polled, ok, err := c.Poll(ctx, "orders")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", polled.UUID)

	_, ok, err = c.GetMessageByUUID(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	size, err := c.SizeOf(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	next, ok, err := c.Peek(ctx, "orders")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", next.UUID)
}

func TestCore_PollOnEmptySubQueueReturnsNone(t *testing.T) {
	c := newCore()
	_, ok, err := c.Poll(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCore_AssignmentContention(t *testing.T) {
	c := newCore()
	ctx := context.Background()

	_, err := c.Add(ctx, message.Record{UUID: "b", SubQueue: "jobs"})
	require.NoError(t, err)

	rec, err := c.Assign(ctx, "b", "worker-1")
	require.NoError(t, err)
	firstAssignedAt := rec.AssignedAt

	_, err = c.Assign(ctx, "b", "worker-2")
	require.Error(t, err)
	aa, ok := queueerrors.AsAlreadyAssigned(err)
	require.True(t, ok)
	assert.Equal(t, "worker-1", aa.OtherOwner)

	// Idempotent re-assign to the current owner is a no-op on assignedAt.
	again, err := c.Assign(ctx, "b", "worker-1")
	require.NoError(t, err)
	assert.Equal(t, firstAssignedAt, again.AssignedAt)

	_, err = c.Release(ctx, "b", "worker-2")
	assert.ErrorIs(t, err, queueerrors.ErrAssignmentMismatch)

	released, err := c.Release(ctx, "b", "worker-1")
	require.NoError(t, err)
	assert.False(t, released.IsAssigned())
}

func TestCore_RetainAllAcrossSubQueues(t *testing.T) {
	c := newCore()
	ctx := context.Background()

	ids := []string{"m1", "m2", "m3", "m4", "m5"}
	subs := []string{"a", "a", "b", "b", "b"}
	for i, id := range ids {
		_, err := c.Add(ctx, message.Record{UUID: id, SubQueue: subs[i]})
		require.NoError(t, err)
	}

	removed, err := c.RetainAll(ctx, map[string]struct{}{"m2": {}, "m4": {}})
	require.NoError(t, err)
	assert.True(t, removed)

	total, err := c.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	for _, id := range []string{"m2", "m4"} {
		_, ok, err := c.GetMessageByUUID(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok, "expected %s to survive retainAll", id)
	}
}

func TestCore_KeysIncludeEmptyVsNonEmpty(t *testing.T) {
	c := newCore()
	ctx := context.Background()

	_, err := c.Add(ctx, message.Record{UUID: "a", SubQueue: "jobs"})
	require.NoError(t, err)
	_, err = c.Add(ctx, message.Record{UUID: "b", SubQueue: "orders"})
	require.NoError(t, err)
	_, err = c.Remove(ctx, "b")
	require.NoError(t, err)

	nonEmpty, err := c.Keys(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"jobs"}, nonEmpty)

	all, err := c.Keys(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"jobs", "orders"}, all)
}

func TestCore_OwnersMap(t *testing.T) {
	c := newCore()
	ctx := context.Background()

	_, err := c.Add(ctx, message.Record{UUID: "a", SubQueue: "jobs"})
	require.NoError(t, err)
	_, err = c.Add(ctx, message.Record{UUID: "b", SubQueue: "orders"})
	require.NoError(t, err)

	_, err = c.Assign(ctx, "a", "worker-1")
	require.NoError(t, err)
	_, err = c.Assign(ctx, "b", "worker-1")
	require.NoError(t, err)

	owners, err := c.OwnersMap(ctx, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"jobs", "orders"}, owners["worker-1"])
}

func TestCore_PersistPreservesIDAndSubQueue(t *testing.T) {
	c := newCore()
	ctx := context.Background()

	rec, err := c.Add(ctx, message.Record{UUID: "a", SubQueue: "jobs", Payload: message.Payload{ContentType: "text/plain", Body: []byte("x")}})
	require.NoError(t, err)

	updated, err := c.Persist(ctx, message.Record{UUID: "a", SubQueue: "ignored", ID: 999, Payload: message.Payload{ContentType: "text/plain", Body: []byte("y")}})
	require.NoError(t, err)
	assert.Equal(t, rec.ID, updated.ID)
	assert.Equal(t, "jobs", updated.SubQueue)
	assert.Equal(t, []byte("y"), updated.Payload.Body)
}

func TestCore_PersistUnknownUUIDFails(t *testing.T) {
	c := newCore()
	_, err := c.Persist(context.Background(), message.Record{UUID: "ghost"})
	assert.ErrorIs(t, err, queueerrors.ErrNotFound)
}
