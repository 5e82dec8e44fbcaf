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

// Package mongo implements restriction.Store over a dedicated collection,
// one document per restricted sub-queue, following the same client
// construction as internal/backend/mongo.
package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/KyleGonzalez/MessageQueue/internal/queueerrors"
	"github.com/KyleGonzalez/MessageQueue/internal/restriction"
)

type document struct {
	SubQueue string `bson:"subQueue"`
}

// EnsureIndexes creates the unique index on subQueue.
func EnsureIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "subQueue", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return nil
}

// Store is the document-store restriction.Store implementation.
type Store struct {
	coll *mongo.Collection
}

var _ restriction.Store = (*Store)(nil)

func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

func (s *Store) IsRestricted(ctx context.Context, subQueue string) (bool, error) {
	err := s.coll.FindOne(ctx, bson.M{"subQueue": subQueue}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return true, nil
}

func (s *Store) Add(ctx context.Context, subQueue string) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"subQueue": subQueue},
		bson.M{"$set": document{SubQueue: subQueue}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, subQueue string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"subQueue": subQueue})
	if err != nil {
		return false, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return res.DeletedCount > 0, nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	opts := options.Find().SetSort(bson.D{{Key: "subQueue", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	defer cur.Close(ctx)

	out := []string{}
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, queueerrors.WrapBackend(queueerrors.BackendIO, err)
		}
		out = append(out, doc.SubQueue)
	}
	if err := cur.Err(); err != nil {
		return nil, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return out, nil
}

func (s *Store) Clear(ctx context.Context) (int, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, queueerrors.WrapBackend(queueerrors.BackendIO, err)
	}
	return int(res.DeletedCount), nil
}

func (s *Store) ReservedSubQueues() []string { return nil }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.coll.Database().Client().Ping(ctx, nil); err != nil {
		return queueerrors.WrapBackend(queueerrors.BackendUnavailable, err)
	}
	return nil
}
