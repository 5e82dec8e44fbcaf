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

// Package auth issues and verifies the bearer tokens the access-control
// filter checks (spec.md §4.5 / §7). A TokenProvider wraps a single
// symmetric secret the way pkg/scalers/kafka_scaler_oauth_token_provider.go
// wraps an oauth2.TokenSource: one small type, Token-in Token-out.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/KyleGonzalez/MessageQueue/internal/queueerrors"
)

// subQueueClaims is the JWT payload: the sub-queue this token authorizes,
// plus the registered issued-at/expiry claims.
type subQueueClaims struct {
	SubQueue string `json:"subQueue"`
	jwt.RegisteredClaims
}

// TokenProvider issues and verifies sub-queue scoped bearer tokens signed
// with a single shared secret (spec.md §6's tokenSecret).
type TokenProvider struct {
	secret     []byte
	defaultTTL time.Duration
}

// NewTokenProvider builds a TokenProvider. defaultTTL is used by Issue when
// the caller does not request an explicit lifetime.
func NewTokenProvider(secret string, defaultTTL time.Duration) *TokenProvider {
	return &TokenProvider{secret: []byte(secret), defaultTTL: defaultTTL}
}

// Issue mints a token authorizing subQueue. ttl of zero uses the provider's
// default. Refuses if no secret is configured (spec.md §4.4).
func (p *TokenProvider) Issue(subQueue string, ttl time.Duration) (string, error) {
	if len(p.secret) == 0 {
		return "", queueerrors.ErrAuthUnconfigured
	}
	if ttl == 0 {
		ttl = p.defaultTTL
	}
	now := time.Now().UTC()
	claims := subQueueClaims{
		SubQueue: subQueue,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates raw, returning the sub-queue it authorizes.
// Rejects every token if no secret is configured (spec.md §4.4).
func (p *TokenProvider) Verify(raw string) (string, error) {
	if len(p.secret) == 0 {
		return "", queueerrors.ErrAuthInvalid
	}
	var claims subQueueClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return "", queueerrors.ErrAuthInvalid
	}
	return claims.SubQueue, nil
}
