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

// Package redis implements the backend.Adapter contract over a key/value
// cache. Connection construction (plain, and sentinel-mode addressing via
// host[:port] lists with a default port applied when absent) follows
// pkg/scalers/redis_scaler.go's parseRedisMetadata / createSentinelRedisScaler.
//
// Each sub-queue is a Redis hash (uuid -> JSON-encoded message.Record), the
// "set-like structure keyed by a prefixed identifier" spec.md §4.2
// describes. Ordinality is CoreAssigned: the core computes max(id)+1 via
// MaxIDOf, so this adapter never invents an ID. Enumeration of sub-queues
// and the global uuid index are maintained in two reserved control keys
// alongside the per-sub-queue hashes, resolving the Open Question on cache
// poll ordering by breaking ties on message.Record.Seq (see SPEC_FULL.md §4).
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/KyleGonzalez/MessageQueue/internal/backend"
	"github.com/KyleGonzalez/MessageQueue/internal/message"
	"github.com/KyleGonzalez/MessageQueue/internal/queueerrors"
)

// Options mirrors the connectivity fields spec.md §6 enumerates for the
// cache backend.
type Options struct {
	Endpoints      []string // host:port, sentinel addresses or a single standalone address
	SentinelMode   bool
	SentinelMaster string
	Username       string
	Password       string
	Prefix         string
}

// NewClient builds a redis.UniversalClient the way
// pkg/scalers/redis_scaler.go builds its sentinel/standalone clients:
// sentinel mode uses a NewFailoverClient against the master name, otherwise
// a single-node client is built from the first endpoint.
func NewClient(opts Options) redis.UniversalClient {
	if opts.SentinelMode {
		return redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    opts.SentinelMaster,
			SentinelAddrs: opts.Endpoints,
			Username:      opts.Username,
			Password:      opts.Password,
		})
	}
	addr := "localhost:6379"
	if len(opts.Endpoints) > 0 {
		addr = opts.Endpoints[0]
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: opts.Username,
		Password: opts.Password,
	})
}

const (
	subQueueHashInfix = "q:"
	uuidIndexSuffix   = "uuidindex"
	subQueueSetSuffix = "subqueues"
)

// Backend is the key/value cache backend.Adapter implementation.
type Backend struct {
	client redis.UniversalClient
	prefix string
	seq    atomic.Int64
}

var _ backend.Adapter = (*Backend)(nil)

// New wraps client, namespacing every key under prefix.
func New(client redis.UniversalClient, prefix string) *Backend {
	return &Backend{client: client, prefix: prefix}
}

func (b *Backend) OrdinalityPolicy() backend.OrdinalityPolicy { return backend.CoreAssigned }

func (b *Backend) subQueueKey(name string) string { return b.prefix + subQueueHashInfix + name }
func (b *Backend) uuidIndexKey() string           { return b.prefix + uuidIndexSuffix }
func (b *Backend) subQueueSetKey() string         { return b.prefix + subQueueSetSuffix }

// ReservedKeys lists the control keys this adapter occupies alongside the
// per-sub-queue hashes.
func (b *Backend) ReservedKeys() []string {
	return []string{b.uuidIndexKey(), b.subQueueSetKey()}
}

func (b *Backend) Append(ctx context.Context, rec message.Record) (message.Record, error) {
	if _, exists, err := b.FindSubQueueOf(ctx, rec.UUID); err == nil && exists {
		return message.Record{}, queueerrors.WrapBackend(queueerrors.BackendConflict, fmt.Errorf("uuid %q already indexed", rec.UUID))
	} else if err != nil {
		return message.Record{}, err
	}

	rec.Seq = b.seq.Add(1)

	raw, err := json.Marshal(rec)
	if err != nil {
		return message.Record{}, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}

	pipe := b.client.TxPipeline()
	pipe.HSet(ctx, b.subQueueKey(rec.SubQueue), rec.UUID, raw)
	pipe.HSet(ctx, b.uuidIndexKey(), rec.UUID, rec.SubQueue)
	pipe.SAdd(ctx, b.subQueueSetKey(), rec.SubQueue)
	if _, err := pipe.Exec(ctx); err != nil {
		return message.Record{}, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return rec, nil
}

func (b *Backend) RemoveByUUID(ctx context.Context, uuid string) (bool, error) {
	subQueue, ok, err := b.FindSubQueueOf(ctx, uuid)
	if err != nil || !ok {
		return false, err
	}

	pipe := b.client.TxPipeline()
	hdel := pipe.HDel(ctx, b.subQueueKey(subQueue), uuid)
	pipe.HDel(ctx, b.uuidIndexKey(), uuid)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}

	// The cache backend drops a sub-queue's key space entirely once empty
	// (spec.md §9: keys(false) and keys(true) coincide here), so keep the
	// enumeration set in sync.
	remaining, err := b.client.HLen(ctx, b.subQueueKey(subQueue)).Result()
	if err != nil {
		return false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	if remaining == 0 {
		if err := b.client.SRem(ctx, b.subQueueSetKey(), subQueue).Err(); err != nil {
			return false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
		}
	}

	return hdel.Val() > 0, nil
}

func (b *Backend) UpdateByUUID(ctx context.Context, uuid string, rec message.Record) (bool, error) {
	subQueue, ok, err := b.FindSubQueueOf(ctx, uuid)
	if err != nil || !ok {
		return false, err
	}
	existing, found, err := b.FindByUUID(ctx, uuid)
	if err != nil || !found {
		return false, err
	}

	rec.ID = existing.ID
	rec.SubQueue = subQueue
	rec.Seq = existing.Seq

	raw, err := json.Marshal(rec)
	if err != nil {
		return false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	if err := b.client.HSet(ctx, b.subQueueKey(subQueue), uuid, raw).Err(); err != nil {
		return false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return true, nil
}

func (b *Backend) FindByUUID(ctx context.Context, uuid string) (message.Record, bool, error) {
	subQueue, ok, err := b.FindSubQueueOf(ctx, uuid)
	if err != nil || !ok {
		return message.Record{}, false, err
	}

	raw, err := b.client.HGet(ctx, b.subQueueKey(subQueue), uuid).Result()
	if err == redis.Nil {
		return message.Record{}, false, nil
	}
	if err != nil {
		return message.Record{}, false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}

	var rec message.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return message.Record{}, false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return rec, true, nil
}

func (b *Backend) FindSubQueueOf(ctx context.Context, uuid string) (string, bool, error) {
	subQueue, err := b.client.HGet(ctx, b.uuidIndexKey(), uuid).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return subQueue, true, nil
}

func (b *Backend) IterateSubQueue(ctx context.Context, subQueue string, filter backend.Filter) ([]message.Record, error) {
	values, err := b.client.HGetAll(ctx, b.subQueueKey(subQueue)).Result()
	if err != nil {
		return nil, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}

	out := make([]message.Record, 0, len(values))
	for _, raw := range values {
		var rec message.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, queueerrors.WrapBackend(queueerrors.BackendIO, err)
		}
		if matches(rec, filter) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (b *Backend) MaxIDOf(ctx context.Context, subQueue string) (int64, bool, error) {
	recs, err := b.IterateSubQueue(ctx, subQueue, backend.Filter{Mode: backend.FilterAll})
	if err != nil {
		return 0, false, err
	}
	if len(recs) == 0 {
		return 0, false, nil
	}
	return recs[len(recs)-1].ID, true, nil
}

func (b *Backend) SizeOf(ctx context.Context, subQueue string) (int, error) {
	n, err := b.client.HLen(ctx, b.subQueueKey(subQueue)).Result()
	if err != nil {
		return 0, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return int(n), nil
}

func (b *Backend) DistinctSubQueues(ctx context.Context) ([]string, error) {
	names, err := b.client.SMembers(ctx, b.subQueueSetKey()).Result()
	if err != nil {
		return nil, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	sort.Strings(names)
	return names, nil
}

func (b *Backend) DeleteSubQueue(ctx context.Context, subQueue string) (int, error) {
	recs, err := b.IterateSubQueue(ctx, subQueue, backend.Filter{Mode: backend.FilterAll})
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, nil
	}

	pipe := b.client.TxPipeline()
	pipe.Del(ctx, b.subQueueKey(subQueue))
	for _, r := range recs {
		pipe.HDel(ctx, b.uuidIndexKey(), r.UUID)
	}
	pipe.SRem(ctx, b.subQueueSetKey(), subQueue)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return len(recs), nil
}

func (b *Backend) DeleteAll(ctx context.Context) (int, error) {
	names, err := b.DistinctSubQueues(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, name := range names {
		n, err := b.DeleteSubQueue(ctx, name)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (b *Backend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return queueerrors.WrapBackend(queueerrors.BackendUnavailable, err)
	}
	return nil
}

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
