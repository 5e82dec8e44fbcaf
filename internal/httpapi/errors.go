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
	"errors"
	"net/http"

	"github.com/KyleGonzalez/MessageQueue/internal/queueerrors"
)

// writeCoreError maps the core's error taxonomy (spec.md §7) onto the
// status codes spec.md §6 enumerates.
func writeCoreError(w http.ResponseWriter, err error) {
	if err == nil {
		writeError(w, http.StatusInternalServerError, "unexpected nil error")
		return
	}

	if dup, ok := queueerrors.AsDuplicateMessage(err); ok {
		writeError(w, http.StatusConflict, dup.Error())
		return
	}
	if assigned, ok := queueerrors.AsAlreadyAssigned(err); ok {
		writeError(w, http.StatusConflict, assigned.Error())
		return
	}
	if notAuth, ok := queueerrors.AsNotAuthorized(err); ok {
		writeError(w, http.StatusForbidden, notAuth.Error())
		return
	}
	if reserved, ok := queueerrors.AsReserved(err); ok {
		writeError(w, http.StatusBadRequest, reserved.Error())
		return
	}
	if be, ok := queueerrors.AsBackend(err); ok {
		switch be.Kind {
		case queueerrors.BackendUnavailable, queueerrors.BackendTimeout:
			writeError(w, http.StatusServiceUnavailable, be.Error())
		default:
			writeError(w, http.StatusInternalServerError, be.Error())
		}
		return
	}

	switch {
	case errors.Is(err, queueerrors.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, queueerrors.ErrAssignmentMismatch):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, queueerrors.ErrUpdateFailed):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, queueerrors.ErrAuthMissing):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, queueerrors.ErrAuthInvalid):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, queueerrors.ErrAuthFormat):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
