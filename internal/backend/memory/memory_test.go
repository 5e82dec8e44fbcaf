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

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyleGonzalez/MessageQueue/internal/backend"
	"github.com/KyleGonzalez/MessageQueue/internal/message"
)

func TestBackend_AppendAndFind(t *testing.T) {
	b := New()
	ctx := context.Background()

	rec, err := b.Append(ctx, message.Record{UUID: "a", SubQueue: "orders", ID: 1})
	require.NoError(t, err)
	assert.Equal(t, "a", rec.UUID)

	found, ok, err := b.FindByUUID(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "orders", found.SubQueue)
}

func TestBackend_IterateSubQueueOrdersByIDThenSeq(t *testing.T) {
	b := New()
	ctx := context.Background()

	_, _ = b.Append(ctx, message.Record{UUID: "b", SubQueue: "jobs", ID: 2})
	_, _ = b.Append(ctx, message.Record{UUID: "a", SubQueue: "jobs", ID: 1})
	_, _ = b.Append(ctx, message.Record{UUID: "c", SubQueue: "jobs", ID: 2})

	recs, err := b.IterateSubQueue(ctx, "jobs", backend.Filter{Mode: backend.FilterAll})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "a", recs[0].UUID)
	assert.Equal(t, "b", recs[1].UUID) // inserted before c at the same ID
	assert.Equal(t, "c", recs[2].UUID)
}

func TestBackend_RemoveByUUID(t *testing.T) {
	b := New()
	ctx := context.Background()

	_, _ = b.Append(ctx, message.Record{UUID: "a", SubQueue: "jobs", ID: 1})

	removed, err := b.RemoveByUUID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, removed)

	_, ok, err := b.FindByUUID(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	removedAgain, err := b.RemoveByUUID(ctx, "a")
	require.NoError(t, err)
	assert.False(t, removedAgain)
}

func TestBackend_DistinctSubQueuesKeepsEmptiedSubQueue(t *testing.T) {
	b := New()
	ctx := context.Background()

	_, _ = b.Append(ctx, message.Record{UUID: "a", SubQueue: "jobs", ID: 1})
	_, _ = b.Append(ctx, message.Record{UUID: "b", SubQueue: "orders", ID: 1})
	_, _ = b.RemoveByUUID(ctx, "b")

	// DeleteSubQueue was never called for "orders", so the key persists
	// even though it's empty; memory's DistinctSubQueues reports every key
	// it still holds, and the core filters emptiness itself via SizeOf.
	names, err := b.DistinctSubQueues(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"jobs", "orders"}, names)

	size, err := b.SizeOf(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}

func TestBackend_DeleteSubQueueAndDeleteAll(t *testing.T) {
	b := New()
	ctx := context.Background()

	_, _ = b.Append(ctx, message.Record{UUID: "a", SubQueue: "jobs", ID: 1})
	_, _ = b.Append(ctx, message.Record{UUID: "b", SubQueue: "jobs", ID: 2})
	_, _ = b.Append(ctx, message.Record{UUID: "c", SubQueue: "orders", ID: 1})

	n, err := b.DeleteSubQueue(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	total, err := b.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	names, _ := b.DistinctSubQueues(ctx)
	assert.Empty(t, names)
}

func TestBackend_MaxIDOf(t *testing.T) {
	b := New()
	ctx := context.Background()

	_, ok, err := b.MaxIDOf(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _ = b.Append(ctx, message.Record{UUID: "a", SubQueue: "jobs", ID: 5})
	_, _ = b.Append(ctx, message.Record{UUID: "b", SubQueue: "jobs", ID: 3})

	max, ok, err := b.MaxIDOf(ctx, "jobs")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 5, max)
}
