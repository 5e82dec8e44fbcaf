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

package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestDocument_RoundTripsSubQueueName(t *testing.T) {
	raw, err := bson.Marshal(document{SubQueue: "orders"})
	require.NoError(t, err)

	var back document
	require.NoError(t, bson.Unmarshal(raw, &back))
	assert.Equal(t, "orders", back.SubQueue)
}

func TestStore_ReservedSubQueuesIsEmpty(t *testing.T) {
	s := New(nil)
	assert.Empty(t, s.ReservedSubQueues())
}
