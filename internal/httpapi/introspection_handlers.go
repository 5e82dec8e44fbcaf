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

import "net/http"

// healthResponse matches spec.md §4.6: {ok, backendOk, mode, restrictionStoreOk}.
type healthResponse struct {
	OK                 bool   `json:"ok"`
	BackendOK          bool   `json:"backendOk"`
	Mode               string `json:"mode"`
	RestrictionStoreOK bool   `json:"restrictionStoreOk"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)

	backendErr := s.core.HealthCheck(ctx)
	restrictionErr := s.restriction.HealthCheck(ctx)

	resp := healthResponse{
		OK:                 backendErr == nil && restrictionErr == nil,
		BackendOK:          backendErr == nil,
		Mode:               string(s.cfg.AuthenticationMode),
		RestrictionStoreOK: restrictionErr == nil,
	}

	status := http.StatusOK
	if !resp.OK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Settings())
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	includeEmpty := r.URL.Query().Get("includeEmpty") == "true"

	names, err := s.core.Keys(requestContext(r), includeEmpty)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleOwnersMap(w http.ResponseWriter, r *http.Request) {
	var subQueue *string
	if v := r.URL.Query().Get("subQueue"); v != "" {
		subQueue = &v
	}

	owners, err := s.core.OwnersMap(requestContext(r), subQueue)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, owners)
}
