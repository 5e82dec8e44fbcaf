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

	"github.com/KyleGonzalez/MessageQueue/internal/auth"
	"github.com/KyleGonzalez/MessageQueue/internal/config"
	"github.com/KyleGonzalez/MessageQueue/internal/message"
	"github.com/KyleGonzalez/MessageQueue/internal/queueerrors"
)

func (s *Server) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)

	var rec message.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "malformed message body")
		return
	}
	if rec.SubQueue == "" {
		writeError(w, http.StatusBadRequest, "subQueue is required")
		return
	}
	for _, reserved := range s.restriction.ReservedSubQueues() {
		if rec.SubQueue == reserved {
			writeCoreError(w, &queueerrors.ReservedError{SubQueue: rec.SubQueue})
			return
		}
	}

	if ok, err := s.authorize(w, r, rec.SubQueue); err != nil || !ok {
		return
	}

	stored, err := s.core.Add(ctx, rec)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	uuid := r.PathValue("uuid")

	rec, found, err := s.core.GetMessageByUUID(ctx, uuid)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	if ok, err := s.authorize(w, r, rec.SubQueue); err != nil || !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRemoveMessage(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	uuid := r.PathValue("uuid")

	subQueue, found, err := s.core.ContainsUUID(ctx, uuid)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, map[string]bool{"removed": false})
		return
	}
	if ok, err := s.authorize(w, r, subQueue); err != nil || !ok {
		return
	}

	removed, err := s.core.Remove(ctx, uuid)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (s *Server) handlePersistMessage(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	uuid := r.PathValue("uuid")

	var rec message.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "malformed message body")
		return
	}
	rec.UUID = uuid

	subQueue, found, err := s.core.ContainsUUID(ctx, uuid)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, queueerrors.ErrNotFound.Error())
		return
	}
	if ok, err := s.authorize(w, r, subQueue); err != nil || !ok {
		return
	}

	updated, err := s.core.Persist(ctx, rec)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// authorize checks the access-control gate for targetSubQueue, returning
// (false, nil) when denied after writing a 401 (RESTRICTED mode, no verified
// token) or a 403 (otherwise), or (false, err) on a backend failure while
// evaluating the gate.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, targetSubQueue string) (bool, error) {
	ok, err := s.filter.IsAuthorizedFor(requestContext(r), targetSubQueue)
	if err != nil {
		writeCoreError(w, err)
		return false, err
	}
	if !ok {
		if _, hasClaim := auth.ClaimedSubQueue(requestContext(r)); !hasClaim && s.cfg.AuthenticationMode == config.AuthRestricted {
			writeCoreError(w, queueerrors.ErrAuthMissing)
			return false, nil
		}
		writeCoreError(w, &queueerrors.NotAuthorizedError{Target: targetSubQueue})
		return false, nil
	}
	return true, nil
}
