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

package sql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakePgError struct{ code string }

func (e fakePgError) Error() string    { return "pg error " + e.code }
func (e fakePgError) SQLState() string { return e.code }

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(errors.New("boom")))
	assert.True(t, isUniqueViolation(fakePgError{code: "23505"}))
	assert.False(t, isUniqueViolation(fakePgError{code: "23503"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert failed: %w", fakePgError{code: "23505"})))
}

func TestOrdinalityPolicyIsIntrinsic(t *testing.T) {
	b := New(nil)
	assert.Equal(t, 0, int(b.OrdinalityPolicy()))
}
