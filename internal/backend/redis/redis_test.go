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

package redis

import (
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestNewClient_Standalone(t *testing.T) {
	client := NewClient(Options{Endpoints: []string{"localhost:6380"}})
	defer client.Close()

	_, ok := client.(*goredis.Client)
	assert.True(t, ok, "expected a standalone *redis.Client when sentinel mode is off")
}

func TestNewClient_SentinelMode(t *testing.T) {
	client := NewClient(Options{
		SentinelMode:   true,
		SentinelMaster: "mymaster",
		Endpoints:      []string{"sentinel-1:26379", "sentinel-2:26379"},
	})
	defer client.Close()

	_, ok := client.(*goredis.Client)
	assert.True(t, ok, "NewFailoverClient still returns a *redis.Client wrapping a failover-aware connector")
}

func TestBackend_KeyNamespacing(t *testing.T) {
	b := New(NewClient(Options{Endpoints: []string{"localhost:6379"}}), "mq:")
	defer b.client.Close()

	assert.Equal(t, "mq:q:orders", b.subQueueKey("orders"))
	assert.Equal(t, "mq:uuidindex", b.uuidIndexKey())
	assert.Equal(t, "mq:subqueues", b.subQueueSetKey())
	assert.ElementsMatch(t, []string{"mq:uuidindex", "mq:subqueues"}, b.ReservedKeys())
}

func TestBackend_OrdinalityPolicyIsCoreAssigned(t *testing.T) {
	b := New(NewClient(Options{Endpoints: []string{"localhost:6379"}}), "mq:")
	defer b.client.Close()

	assert.Equal(t, 1, int(b.OrdinalityPolicy()))
}
