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

// Package mongo implements the backend.Adapter contract over a single
// document-store collection, one document per message.Record, following
// pkg/scalers/mongo_scaler.go's client/options construction
// (options.Client().ApplyURI(...) and a dedicated connect timeout in
// Connect; every other call runs under the caller's context). Ordinality
// is CoreAssigned: the
// core computes max(id)+1 via MaxIDOf, same as the cache backend.
package mongo

import (
	"context"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/KyleGonzalez/MessageQueue/internal/backend"
	"github.com/KyleGonzalez/MessageQueue/internal/message"
	"github.com/KyleGonzalez/MessageQueue/internal/queueerrors"
)

const connectTimeout = 10 * time.Second

// Connect dials connStr and returns a ready client, mirroring the
// ApplyURI + Connect + Ping sequence in NewMongoDBScaler.
func Connect(ctx context.Context, connStr string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	opt := options.Client().ApplyURI(connStr)
	client, err := mongo.Connect(ctx, opt)
	if err != nil {
		return nil, queueerrors.WrapBackend(queueerrors.BackendUnavailable, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, queueerrors.WrapBackend(queueerrors.BackendUnavailable, err)
	}
	return client, nil
}

// EnsureIndexes creates the unique uuid index and the unique (subQueue, id)
// compound index the relational backend gets for free from its schema.
func EnsureIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "uuid", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "subQueue", Value: 1}, {Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "assignedTo", Value: 1}}},
	})
	if err != nil {
		return queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return nil
}

// Backend is the document-store backend.Adapter implementation.
type Backend struct {
	coll *mongo.Collection
	seq  atomic.Int64
}

var _ backend.Adapter = (*Backend)(nil)

// New wraps coll, the single collection storing every sub-queue's records.
func New(coll *mongo.Collection) *Backend {
	return &Backend{coll: coll}
}

func (b *Backend) OrdinalityPolicy() backend.OrdinalityPolicy { return backend.CoreAssigned }

type document struct {
	UUID       string          `bson:"uuid"`
	SubQueue   string          `bson:"subQueue"`
	Payload    message.Payload `bson:"payload"`
	ID         int64           `bson:"id"`
	Seq        int64           `bson:"seq"`
	AssignedTo string          `bson:"assignedTo,omitempty"`
	AssignedAt *time.Time      `bson:"assignedAt,omitempty"`
}

func toDocument(rec message.Record) document {
	return document{
		UUID:       rec.UUID,
		SubQueue:   rec.SubQueue,
		Payload:    rec.Payload,
		ID:         rec.ID,
		Seq:        rec.Seq,
		AssignedTo: rec.AssignedTo,
		AssignedAt: rec.AssignedAt,
	}
}

func (d document) toRecord() message.Record {
	return message.Record{
		UUID:       d.UUID,
		SubQueue:   d.SubQueue,
		Payload:    d.Payload,
		ID:         d.ID,
		Seq:        d.Seq,
		AssignedTo: d.AssignedTo,
		AssignedAt: d.AssignedAt,
	}
}

func (b *Backend) Append(ctx context.Context, rec message.Record) (message.Record, error) {
	rec.Seq = b.seq.Add(1)

	_, err := b.coll.InsertOne(ctx, toDocument(rec))
	if mongo.IsDuplicateKeyError(err) {
		return message.Record{}, queueerrors.WrapBackend(queueerrors.BackendConflict, err)
	}
	if err != nil {
		return message.Record{}, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return rec, nil
}

func (b *Backend) RemoveByUUID(ctx context.Context, uuid string) (bool, error) {
	res, err := b.coll.DeleteOne(ctx, bson.M{"uuid": uuid})
	if err != nil {
		return false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return res.DeletedCount > 0, nil
}

func (b *Backend) UpdateByUUID(ctx context.Context, uuid string, rec message.Record) (bool, error) {
	update := bson.M{"$set": bson.M{
		"payload":    rec.Payload,
		"assignedTo": rec.AssignedTo,
		"assignedAt": rec.AssignedAt,
	}}
	res, err := b.coll.UpdateOne(ctx, bson.M{"uuid": uuid}, update)
	if err != nil {
		return false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return res.MatchedCount > 0, nil
}

func (b *Backend) FindByUUID(ctx context.Context, uuid string) (message.Record, bool, error) {
	var doc document
	err := b.coll.FindOne(ctx, bson.M{"uuid": uuid}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return message.Record{}, false, nil
	}
	if err != nil {
		return message.Record{}, false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return doc.toRecord(), true, nil
}

func (b *Backend) FindSubQueueOf(ctx context.Context, uuid string) (string, bool, error) {
	rec, ok, err := b.FindByUUID(ctx, uuid)
	if err != nil || !ok {
		return "", false, err
	}
	return rec.SubQueue, true, nil
}

func (b *Backend) IterateSubQueue(ctx context.Context, subQueue string, filter backend.Filter) ([]message.Record, error) {
	query := bson.M{"subQueue": subQueue}
	switch filter.Mode {
	// assignedTo is omitted from never-assigned documents (omitempty), so
	// "unassigned" matches both a missing field (null) and "".
	case backend.FilterAssigned:
		query["assignedTo"] = bson.M{"$nin": bson.A{"", nil}}
	case backend.FilterAssignedTo:
		query["assignedTo"] = filter.AssignedTo
	case backend.FilterUnassigned:
		query["assignedTo"] = bson.M{"$in": bson.A{"", nil}}
	}

	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}, {Key: "seq", Value: 1}})
	cur, err := b.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	defer cur.Close(ctx)

	out := []message.Record{}
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, queueerrors.WrapBackend(queueerrors.BackendIO, err)
		}
		out = append(out, doc.toRecord())
	}
	if err := cur.Err(); err != nil {
		return nil, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return out, nil
}

func (b *Backend) MaxIDOf(ctx context.Context, subQueue string) (int64, bool, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "id", Value: -1}})
	var doc document
	err := b.coll.FindOne(ctx, bson.M{"subQueue": subQueue}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return doc.ID, true, nil
}

func (b *Backend) SizeOf(ctx context.Context, subQueue string) (int, error) {
	n, err := b.coll.CountDocuments(ctx, bson.M{"subQueue": subQueue})
	if err != nil {
		return 0, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return int(n), nil
}

func (b *Backend) DistinctSubQueues(ctx context.Context) ([]string, error) {
	raw, err := b.coll.Distinct(ctx, "subQueue", bson.M{})
	if err != nil {
		return nil, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (b *Backend) DeleteSubQueue(ctx context.Context, subQueue string) (int, error) {
	res, err := b.coll.DeleteMany(ctx, bson.M{"subQueue": subQueue})
	if err != nil {
		return 0, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return int(res.DeletedCount), nil
}

func (b *Backend) DeleteAll(ctx context.Context) (int, error) {
	res, err := b.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return int(res.DeletedCount), nil
}

func (b *Backend) Ping(ctx context.Context) error {
	if err := b.coll.Database().Client().Ping(ctx, nil); err != nil {
		return queueerrors.WrapBackend(queueerrors.BackendUnavailable, err)
	}
	return nil
}
