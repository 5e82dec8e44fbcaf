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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyleGonzalez/MessageQueue/internal/queueerrors"
)

func TestTokenProvider_IssueAndVerify(t *testing.T) {
	p := NewTokenProvider("s3cret", time.Hour)

	token, err := p.Issue("orders", 0)
	require.NoError(t, err)

	subQueue, err := p.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "orders", subQueue)
}

func TestTokenProvider_VerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenProvider("s3cret", time.Hour)
	verifier := NewTokenProvider("different", time.Hour)

	token, err := issuer.Issue("orders", 0)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestTokenProvider_VerifyRejectsExpired(t *testing.T) {
	p := NewTokenProvider("s3cret", -time.Hour)

	token, err := p.Issue("orders", 0)
	require.NoError(t, err)

	_, err = p.Verify(token)
	assert.Error(t, err)
}

func TestTokenProvider_EmptySecretRefusesIssueAndVerify(t *testing.T) {
	p := NewTokenProvider("", time.Hour)

	_, err := p.Issue("orders", 0)
	assert.ErrorIs(t, err, queueerrors.ErrAuthUnconfigured)

	// A token signed under a real secret must still be rejected once the
	// provider is reconfigured without one.
	signed, err := NewTokenProvider("s3cret", time.Hour).Issue("orders", 0)
	require.NoError(t, err)

	_, err = p.Verify(signed)
	assert.ErrorIs(t, err, queueerrors.ErrAuthInvalid)
}

func TestTokenProvider_IssueHonorsExplicitTTL(t *testing.T) {
	p := NewTokenProvider("s3cret", time.Hour)

	token, err := p.Issue("orders", -time.Minute)
	require.NoError(t, err)

	_, err = p.Verify(token)
	assert.Error(t, err, "an explicit negative ttl should produce an already-expired token")
}
