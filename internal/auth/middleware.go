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

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/KyleGonzalez/MessageQueue/internal/config"
	"github.com/KyleGonzalez/MessageQueue/internal/queueerrors"
	"github.com/KyleGonzalez/MessageQueue/internal/restriction"
)

type contextKey int

const claimedSubQueueKey contextKey = iota

// Filter extracts and verifies the Authorization header and places the
// token's claimed sub-queue (if any) on the request context, following the
// extract-verify-gate sequence in spec.md §7. It never itself writes the
// HTTP response for authorization rejections — handlers call
// IsAuthorizedFor and translate its error to the right status code, since
// the gate is per-operation (a restricted sub-queue name is only known once
// routing has matched a handler).
type Filter struct {
	mode       config.AuthMode
	provider   *TokenProvider
	restricted *restriction.Registry
	adminToken string
}

// NewFilter builds a Filter.
func NewFilter(mode config.AuthMode, provider *TokenProvider, restricted *restriction.Registry, adminToken string) *Filter {
	return &Filter{mode: mode, provider: provider, restricted: restricted, adminToken: adminToken}
}

// Middleware wraps next, extracting and verifying any bearer token before
// calling through. It never rejects the request by itself except for a
// malformed header or a token that fails verification under RESTRICTED
// mode — both unconditional regardless of target sub-queue.
func (f *Filter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		// The administrator token (spec.md §7) is a distinct static bearer,
		// never a signed sub-queue claim, so it never goes through Verify —
		// admin-gated handlers check IsAdmin themselves.
		if f.IsAdmin(r) {
			next.ServeHTTP(w, r)
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeAuthError(w, queueerrors.ErrAuthFormat)
			return
		}

		subQueue, err := f.provider.Verify(raw)
		if err != nil {
			if f.mode == config.AuthRestricted {
				writeAuthError(w, queueerrors.ErrAuthInvalid)
				return
			}
			// HYBRID/NONE: proceed as if no token was presented.
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), claimedSubQueueKey, subQueue)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimedSubQueue returns the sub-queue claimed by the request's verified
// token, if any.
func ClaimedSubQueue(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(claimedSubQueueKey).(string)
	return v, ok
}

// IsAuthorizedFor implements spec.md §7 step 4's gate: true iff mode is
// NONE, or mode is HYBRID and targetSubQueue is not restricted, or the
// context's claimed sub-queue equals targetSubQueue.
func (f *Filter) IsAuthorizedFor(ctx context.Context, targetSubQueue string) (bool, error) {
	claimed, hasClaim := ClaimedSubQueue(ctx)
	if hasClaim && claimed == targetSubQueue {
		return true, nil
	}

	switch f.mode {
	case config.AuthNone:
		return true, nil
	case config.AuthHybrid:
		restricted, err := f.restricted.IsRestricted(ctx, targetSubQueue)
		if err != nil {
			return false, err
		}
		return !restricted, nil
	case config.AuthRestricted:
		return false, nil
	default:
		return false, nil
	}
}

// IsAdmin reports whether r carries the configured administrator bearer
// token, a credential distinct from per-sub-queue tokens (spec.md §7).
func (f *Filter) IsAdmin(r *http.Request) bool {
	if f.adminToken == "" {
		return false
	}
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	return ok && raw == f.adminToken
}

func writeAuthError(w http.ResponseWriter, err error) {
	status := http.StatusUnauthorized
	if errors.Is(err, queueerrors.ErrAuthFormat) {
		status = http.StatusBadRequest
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(err.Error()))
}
