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
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/KyleGonzalez/MessageQueue/internal/message"
)

func TestDocumentRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	rec := message.Record{
		UUID:       "a",
		SubQueue:   "orders",
		Payload:    message.Payload{ContentType: "application/json", Body: []byte(`{"x":1}`)},
		ID:         3,
		Seq:        7,
		AssignedTo: "worker-1",
		AssignedAt: &now,
	}

	doc := toDocument(rec)
	back := doc.toRecord()

	assert.Equal(t, rec.UUID, back.UUID)
	assert.Equal(t, rec.SubQueue, back.SubQueue)
	assert.Equal(t, rec.Payload, back.Payload)
	assert.Equal(t, rec.ID, back.ID)
	assert.Equal(t, rec.Seq, back.Seq)
	assert.Equal(t, rec.AssignedTo, back.AssignedTo)
	assert.Equal(t, rec.AssignedAt, back.AssignedAt)
}

func TestDocumentRoundTripUnassigned(t *testing.T) {
	rec := message.Record{UUID: "a", SubQueue: "orders", ID: 1}
	back := toDocument(rec).toRecord()
	assert.False(t, back.IsAssigned())
	assert.Nil(t, back.AssignedAt)
}
