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

package queue

import "github.com/KyleGonzalez/MessageQueue/internal/backend"

// All, Assigned, Unassigned, and AssignedTo build the backend.Filter values
// GetForSubQueue accepts, so callers don't need to reach into the backend
// package directly.
func All() backend.Filter { return backend.Filter{Mode: backend.FilterAll} }

func Assigned() backend.Filter { return backend.Filter{Mode: backend.FilterAssigned} }

func Unassigned() backend.Filter { return backend.Filter{Mode: backend.FilterUnassigned} }

func AssignedTo(owner string) backend.Filter {
	return backend.Filter{Mode: backend.FilterAssignedTo, AssignedTo: owner}
}
