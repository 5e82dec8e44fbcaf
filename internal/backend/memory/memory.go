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

// Package memory implements the backend.Adapter contract over an
// in-process map of ordered slices, guarded by a process-wide lock for
// sub-queue creation/enumeration and per-sub-queue locks for ordered
// mutation (spec.md §5), the same split the teacher uses for its
// scalerCaches map (pkg/scaling/scale_handler.go: a process-wide
// sync.RWMutex around the map, per-entry state beneath it).
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/KyleGonzalez/MessageQueue/internal/backend"
	"github.com/KyleGonzalez/MessageQueue/internal/message"
)

type subQueue struct {
	mu      sync.Mutex
	records []message.Record // kept sorted by (ID, Seq)
}

// Backend is the in-memory backend.Adapter implementation. Ordinality is
// CoreAssigned: this backend never invents an ID on its own.
type Backend struct {
	mu        sync.RWMutex
	subQueues map[string]*subQueue
	seq       int64
}

// New returns an empty in-memory backend.
func New() *Backend {
	return &Backend{subQueues: make(map[string]*subQueue)}
}

var _ backend.Adapter = (*Backend)(nil)

func (b *Backend) OrdinalityPolicy() backend.OrdinalityPolicy { return backend.CoreAssigned }

func (b *Backend) getOrCreate(name string) *subQueue {
	b.mu.RLock()
	sq, ok := b.subQueues[name]
	b.mu.RUnlock()
	if ok {
		return sq
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if sq, ok = b.subQueues[name]; ok {
		return sq
	}
	sq = &subQueue{}
	b.subQueues[name] = sq
	return sq
}

func (b *Backend) get(name string) (*subQueue, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sq, ok := b.subQueues[name]
	return sq, ok
}

func (b *Backend) Append(_ context.Context, rec message.Record) (message.Record, error) {
	sq := b.getOrCreate(rec.SubQueue)
	rec.Seq = atomic.AddInt64(&b.seq, 1)

	sq.mu.Lock()
	defer sq.mu.Unlock()
	sq.records = append(sq.records, rec.Clone())
	sortRecords(sq.records)
	return rec, nil
}

func (b *Backend) RemoveByUUID(_ context.Context, uuid string) (bool, error) {
	b.mu.RLock()
	sqs := make([]*subQueue, 0, len(b.subQueues))
	for _, sq := range b.subQueues {
		sqs = append(sqs, sq)
	}
	b.mu.RUnlock()

	for _, sq := range sqs {
		sq.mu.Lock()
		for i, r := range sq.records {
			if r.UUID == uuid {
				sq.records = append(sq.records[:i], sq.records[i+1:]...)
				sq.mu.Unlock()
				return true, nil
			}
		}
		sq.mu.Unlock()
	}
	return false, nil
}

func (b *Backend) UpdateByUUID(_ context.Context, uuid string, rec message.Record) (bool, error) {
	b.mu.RLock()
	sqs := make([]*subQueue, 0, len(b.subQueues))
	for _, sq := range b.subQueues {
		sqs = append(sqs, sq)
	}
	b.mu.RUnlock()

	for _, sq := range sqs {
		sq.mu.Lock()
		for i, r := range sq.records {
			if r.UUID == uuid {
				updated := rec.Clone()
				updated.ID = r.ID
				updated.SubQueue = r.SubQueue
				updated.Seq = r.Seq
				sq.records[i] = updated
				sq.mu.Unlock()
				return true, nil
			}
		}
		sq.mu.Unlock()
	}
	return false, nil
}

func (b *Backend) FindByUUID(_ context.Context, uuid string) (message.Record, bool, error) {
	b.mu.RLock()
	sqs := make([]*subQueue, 0, len(b.subQueues))
	for _, sq := range b.subQueues {
		sqs = append(sqs, sq)
	}
	b.mu.RUnlock()

	for _, sq := range sqs {
		sq.mu.Lock()
		for _, r := range sq.records {
			if r.UUID == uuid {
				found := r.Clone()
				sq.mu.Unlock()
				return found, true, nil
			}
		}
		sq.mu.Unlock()
	}
	return message.Record{}, false, nil
}

func (b *Backend) FindSubQueueOf(ctx context.Context, uuid string) (string, bool, error) {
	rec, ok, err := b.FindByUUID(ctx, uuid)
	if err != nil || !ok {
		return "", false, err
	}
	return rec.SubQueue, true, nil
}

func (b *Backend) IterateSubQueue(_ context.Context, name string, filter backend.Filter) ([]message.Record, error) {
	sq, ok := b.get(name)
	if !ok {
		return nil, nil
	}
	sq.mu.Lock()
	defer sq.mu.Unlock()

	out := make([]message.Record, 0, len(sq.records))
	for _, r := range sq.records {
		if !matches(r, filter) {
			continue
		}
		out = append(out, r.Clone())
	}
	return out, nil
}

func (b *Backend) MaxIDOf(_ context.Context, name string) (int64, bool, error) {
	sq, ok := b.get(name)
	if !ok {
		return 0, false, nil
	}
	sq.mu.Lock()
	defer sq.mu.Unlock()
	if len(sq.records) == 0 {
		return 0, false, nil
	}
	var max int64
	for _, r := range sq.records {
		if r.ID > max {
			max = r.ID
		}
	}
	return max, true, nil
}

func (b *Backend) SizeOf(_ context.Context, name string) (int, error) {
	sq, ok := b.get(name)
	if !ok {
		return 0, nil
	}
	sq.mu.Lock()
	defer sq.mu.Unlock()
	return len(sq.records), nil
}

func (b *Backend) DistinctSubQueues(_ context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.subQueues))
	for name := range b.subQueues {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (b *Backend) DeleteSubQueue(_ context.Context, name string) (int, error) {
	b.mu.Lock()
	sq, ok := b.subQueues[name]
	if ok {
		delete(b.subQueues, name)
	}
	b.mu.Unlock()
	if !ok {
		return 0, nil
	}
	sq.mu.Lock()
	n := len(sq.records)
	sq.mu.Unlock()
	return n, nil
}

func (b *Backend) DeleteAll(_ context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, sq := range b.subQueues {
		sq.mu.Lock()
		total += len(sq.records)
		sq.mu.Unlock()
	}
	b.subQueues = make(map[string]*subQueue)
	return total, nil
}

func (b *Backend) Ping(context.Context) error { return nil }

func matches(r message.Record, f backend.Filter) bool {
	switch f.Mode {
	case backend.FilterAssigned:
		return r.IsAssigned()
	case backend.FilterAssignedTo:
		return r.AssignedTo == f.AssignedTo
	case backend.FilterUnassigned:
		return !r.IsAssigned()
	default:
		return true
	}
}

func sortRecords(records []message.Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].ID != records[j].ID {
			return records[i].ID < records[j].ID
		}
		return records[i].Seq < records[j].Seq
	})
}
