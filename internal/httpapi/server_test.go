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

package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyleGonzalez/MessageQueue/internal/auth"
	"github.com/KyleGonzalez/MessageQueue/internal/backend/memory"
	"github.com/KyleGonzalez/MessageQueue/internal/config"
	"github.com/KyleGonzalez/MessageQueue/internal/message"
	"github.com/KyleGonzalez/MessageQueue/internal/queue"
	"github.com/KyleGonzalez/MessageQueue/internal/restriction"
	restrictionmemory "github.com/KyleGonzalez/MessageQueue/internal/restriction/memory"
)

func newTestServer(t *testing.T, mode config.AuthMode) (*Server, *auth.TokenProvider) {
	t.Helper()
	core := queue.New(memory.New(), logr.Discard())
	restrictions := restriction.NewRegistry(restrictionmemory.New())
	tokens := auth.NewTokenProvider("s3cret", time.Hour)
	filter := auth.NewFilter(mode, tokens, restrictions, "admin-secret")
	cfg := config.Config{AuthenticationMode: mode, BackendKind: config.BackendMemory}
	return NewServer(core, restrictions, tokens, filter, cfg, logr.Discard(), prometheus.NewRegistry()), tokens
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPublishConsumeRoundTrip(t *testing.T) {
	s, _ := newTestServer(t, config.AuthNone)
	handler := s.Routes()

	add := doJSON(t, handler, http.MethodPost, "/message", message.Record{
		UUID:     "a",
		SubQueue: "orders",
		Payload:  message.Payload{ContentType: "text/plain", Body: []byte("x")},
	}, "")
	require.Equal(t, http.StatusCreated, add.Code)

	peek := doJSON(t, handler, http.MethodGet, "/queue/orders/peek", nil, "")
	require.Equal(t, http.StatusOK, peek.Code)

	next := doJSON(t, handler, http.MethodGet, "/queue/orders/next", nil, "")
	require.Equal(t, http.StatusOK, next.Code)

	peekAfter := doJSON(t, handler, http.MethodGet, "/queue/orders/peek", nil, "")
	assert.Equal(t, http.StatusNoContent, peekAfter.Code)
}

func TestDuplicateUUID(t *testing.T) {
	s, _ := newTestServer(t, config.AuthNone)
	handler := s.Routes()

	first := doJSON(t, handler, http.MethodPost, "/message", message.Record{UUID: "a", SubQueue: "orders"}, "")
	require.Equal(t, http.StatusCreated, first.Code)

	second := doJSON(t, handler, http.MethodPost, "/message", message.Record{UUID: "a", SubQueue: "shipping"}, "")
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), "orders")
}

func TestAssignmentContention(t *testing.T) {
	s, _ := newTestServer(t, config.AuthNone)
	handler := s.Routes()

	require.Equal(t, http.StatusCreated, doJSON(t, handler, http.MethodPost, "/message", message.Record{UUID: "b", SubQueue: "jobs"}, "").Code)

	assign1 := doJSON(t, handler, http.MethodPost, "/queue/jobs/assign?uuid=b", assignRequest{Owner: "worker-1"}, "")
	require.Equal(t, http.StatusOK, assign1.Code)

	assign2 := doJSON(t, handler, http.MethodPost, "/queue/jobs/assign?uuid=b", assignRequest{Owner: "worker-2"}, "")
	assert.Equal(t, http.StatusConflict, assign2.Code)

	release2 := doJSON(t, handler, http.MethodPost, "/queue/jobs/release?uuid=b", assignRequest{Owner: "worker-2"}, "")
	assert.Equal(t, http.StatusConflict, release2.Code)

	release1 := doJSON(t, handler, http.MethodPost, "/queue/jobs/release?uuid=b", assignRequest{Owner: "worker-1"}, "")
	assert.Equal(t, http.StatusOK, release1.Code)
}

func TestRestrictedAccess(t *testing.T) {
	s, tokens := newTestServer(t, config.AuthRestricted)
	handler := s.Routes()

	addRestriction := doJSON(t, handler, http.MethodPut, "/restriction/secure", nil, "admin-secret")
	require.Equal(t, http.StatusOK, addRestriction.Code)

	rightToken, err := tokens.Issue("secure", 0)
	require.NoError(t, err)

	require.Equal(t, http.StatusCreated, doJSON(t, handler, http.MethodPost, "/message", message.Record{UUID: "c", SubQueue: "secure"}, rightToken).Code)

	noToken := doJSON(t, handler, http.MethodGet, "/queue/secure/next", nil, "")
	assert.Equal(t, http.StatusUnauthorized, noToken.Code)

	wrongToken, err := tokens.Issue("other", 0)
	require.NoError(t, err)
	wrong := doJSON(t, handler, http.MethodGet, "/queue/secure/next", nil, wrongToken)
	assert.Equal(t, http.StatusForbidden, wrong.Code)

	right := doJSON(t, handler, http.MethodGet, "/queue/secure/next", nil, rightToken)
	assert.Equal(t, http.StatusOK, right.Code)
}

// reservingStore wraps a memory restriction store but reserves one fixed
// sub-queue name, the way the redis restriction store reserves its own Set key.
type reservingStore struct {
	*restrictionmemory.Store
	reserved string
}

func (s *reservingStore) ReservedSubQueues() []string { return []string{s.reserved} }

func TestAddMessageToReservedSubQueueRejected(t *testing.T) {
	core := queue.New(memory.New(), logr.Discard())
	restrictions := restriction.NewRegistry(&reservingStore{Store: restrictionmemory.New(), reserved: "restricted"})
	tokens := auth.NewTokenProvider("s3cret", time.Hour)
	filter := auth.NewFilter(config.AuthNone, tokens, restrictions, "admin-secret")
	cfg := config.Config{AuthenticationMode: config.AuthNone, BackendKind: config.BackendMemory}
	s := NewServer(core, restrictions, tokens, filter, cfg, logr.Discard(), prometheus.NewRegistry())
	handler := s.Routes()

	rec := doJSON(t, handler, http.MethodPost, "/message", message.Record{UUID: "r1", SubQueue: "restricted"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndSettings(t *testing.T) {
	s, _ := newTestServer(t, config.AuthHybrid)
	handler := s.Routes()

	health := doJSON(t, handler, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, health.Code)

	settings := doJSON(t, handler, http.MethodGet, "/settings", nil, "")
	assert.Equal(t, http.StatusOK, settings.Code)
	assert.Contains(t, settings.Body.String(), "hybrid")
}

func TestAdminEndpointsRequireAdminToken(t *testing.T) {
	s, _ := newTestServer(t, config.AuthNone)
	handler := s.Routes()

	rec := doJSON(t, handler, http.MethodPut, "/restriction/orders", nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, handler, http.MethodPut, "/restriction/orders", nil, "admin-secret")
	assert.Equal(t, http.StatusOK, rec.Code)
}
