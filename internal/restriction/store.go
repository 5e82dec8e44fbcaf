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

// Package restriction implements the restriction registry (spec.md §4.3):
// the set of sub-queue identifiers that require a matching bearer token.
// Storage is pluggable in parallel to the message backend (four variants),
// so Store mirrors backend.Adapter's shape: a narrow interface, one struct
// per storage strategy, no shared base type.
package restriction

import "context"

// Store is the storage contract for restriction records.
type Store interface {
	// IsRestricted reports whether subQueue requires a token.
	IsRestricted(ctx context.Context, subQueue string) (bool, error)

	// Add marks subQueue as restricted. Idempotent.
	Add(ctx context.Context, subQueue string) error

	// Remove un-marks subQueue and reports whether it had been restricted.
	Remove(ctx context.Context, subQueue string) (bool, error)

	// List returns every restricted sub-queue identifier.
	List(ctx context.Context) ([]string, error)

	// Clear removes every restriction and returns the count removed.
	Clear(ctx context.Context) (int, error)

	// ReservedSubQueues returns identifiers this store's own plumbing
	// occupies, which must never be used as real sub-queue names (e.g. the
	// cache backend's internal set key).
	ReservedSubQueues() []string

	// Ping verifies store reachability.
	Ping(ctx context.Context) error
}

// Registry is the public surface over a Store, matching spec.md §4.3's
// operation names exactly.
type Registry struct {
	store Store
}

// NewRegistry wraps store in a Registry.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

func (r *Registry) IsRestricted(ctx context.Context, subQueue string) (bool, error) {
	return r.store.IsRestricted(ctx, subQueue)
}

func (r *Registry) AddRestriction(ctx context.Context, subQueue string) error {
	return r.store.Add(ctx, subQueue)
}

func (r *Registry) RemoveRestriction(ctx context.Context, subQueue string) (bool, error) {
	return r.store.Remove(ctx, subQueue)
}

func (r *Registry) ListRestricted(ctx context.Context) ([]string, error) {
	return r.store.List(ctx)
}

func (r *Registry) ClearRestrictions(ctx context.Context) (int, error) {
	return r.store.Clear(ctx)
}

func (r *Registry) ReservedSubQueues() []string {
	return r.store.ReservedSubQueues()
}

func (r *Registry) HealthCheck(ctx context.Context) error {
	return r.store.Ping(ctx)
}
