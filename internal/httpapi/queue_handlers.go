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
	"encoding/json"
	"net/http"

	"github.com/KyleGonzalez/MessageQueue/internal/backend"
)

type assignRequest struct {
	Owner string `json:"owner"`
}

func (s *Server) handleGetForSubQueue(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	subQueue := r.PathValue("subQueue")

	if ok, err := s.authorize(w, r, subQueue); err != nil || !ok {
		return
	}

	filter := backend.Filter{Mode: backend.FilterAll}
	if assignedTo := r.URL.Query().Get("assignedTo"); assignedTo != "" {
		filter = backend.Filter{Mode: backend.FilterAssignedTo, AssignedTo: assignedTo}
	} else if r.URL.Query().Get("unassignedOnly") == "true" {
		filter = backend.Filter{Mode: backend.FilterUnassigned}
	}

	recs, err := s.core.GetForSubQueue(ctx, subQueue, filter)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	subQueue := r.PathValue("subQueue")

	if ok, err := s.authorize(w, r, subQueue); err != nil || !ok {
		return
	}

	rec, found, err := s.core.Poll(ctx, subQueue)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePeek(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	subQueue := r.PathValue("subQueue")

	if ok, err := s.authorize(w, r, subQueue); err != nil || !ok {
		return
	}

	rec, found, err := s.core.Peek(ctx, subQueue)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleClearSubQueue(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	subQueue := r.PathValue("subQueue")

	if ok, err := s.authorize(w, r, subQueue); err != nil || !ok {
		return
	}

	n, err := s.core.ClearFor(ctx, subQueue)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	subQueue := r.PathValue("subQueue")

	var body assignRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Owner == "" {
		writeError(w, http.StatusBadRequest, "owner is required")
		return
	}

	if ok, err := s.authorize(w, r, subQueue); err != nil || !ok {
		return
	}

	// assign/release are scoped to a sub-queue's messages by uuid; the
	// client names the uuid via the owner-bearing body's accompanying
	// query parameter so the gate above checks the sub-queue before the
	// core resolves the specific record.
	uuid := r.URL.Query().Get("uuid")
	rec, err := s.core.Assign(ctx, uuid, body.Owner)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	subQueue := r.PathValue("subQueue")

	var body assignRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Owner == "" {
		writeError(w, http.StatusBadRequest, "owner is required")
		return
	}

	if ok, err := s.authorize(w, r, subQueue); err != nil || !ok {
		return
	}

	uuid := r.URL.Query().Get("uuid")
	rec, err := s.core.Release(ctx, uuid, body.Owner)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
