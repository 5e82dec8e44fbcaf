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

// Package config loads the service's effective configuration from
// environment variables with CLI-flag overrides, the same shape the
// teacher uses (pkg/util/env_resolver.go's Resolve* helpers plus pflag in
// cmd/*/main.go) rather than a configuration-management framework. Loading
// itself is a thin external collaborator (spec.md §1); this package is the
// minimal surface that collaborator needs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// BackendKind selects the storage strategy for messages and restrictions.
type BackendKind string

const (
	BackendMemory     BackendKind = "in-memory"
	BackendRelational BackendKind = "relational"
	BackendCache      BackendKind = "cache"
	BackendDocument   BackendKind = "document"
)

// AuthMode is the service-wide authentication-mode state machine (spec.md §4.5).
type AuthMode string

const (
	AuthNone       AuthMode = "none"
	AuthHybrid     AuthMode = "hybrid"
	AuthRestricted AuthMode = "restricted"
)

// CacheConfig carries key/value backend connectivity (spec.md §6).
type CacheConfig struct {
	Endpoints      []string // host[:port], comma-separated at the source
	SentinelMode   bool
	SentinelMaster string
	Username       string
	Password       string
	Prefix         string
}

// RelationalConfig carries relational backend connectivity.
type RelationalConfig struct {
	DSN          string
	DatabaseName string
}

// DocumentConfig carries document-store backend connectivity.
type DocumentConfig struct {
	URI          string
	DatabaseName string
}

// Config is the effective, fully-resolved process configuration.
type Config struct {
	BindAddress string

	BackendKind            BackendKind
	RestrictionBackendKind BackendKind

	AuthenticationMode     AuthMode
	TokenSecret            string
	TokenDefaultTTL        time.Duration
	AdminToken             string

	Cache      CacheConfig
	Relational RelationalConfig
	Document   DocumentConfig

	LogDevelopment bool
	LogLevel       string
}

const defaultCachePort = "6379"

// Load resolves configuration from the environment. Flags passed in by the
// caller (already parsed by pflag in cmd/mqsvc) take precedence over
// environment variables, matching the teacher's layering of pflag defaults
// over KEDA_* environment lookups.
func Load(overrides Overrides) (Config, error) {
	cfg := Config{
		BindAddress:            firstNonEmpty(overrides.BindAddress, os.Getenv("MQ_BIND_ADDRESS"), ":8080"),
		BackendKind:            BackendKind(firstNonEmpty(overrides.BackendKind, os.Getenv("MQ_BACKEND_KIND"), string(BackendMemory))),
		RestrictionBackendKind: BackendKind(firstNonEmpty(overrides.RestrictionBackendKind, os.Getenv("MQ_RESTRICTION_BACKEND_KIND"), string(BackendMemory))),
		AuthenticationMode:     AuthMode(firstNonEmpty(overrides.AuthMode, os.Getenv("MQ_AUTH_MODE"), string(AuthNone))),
		TokenSecret:            firstNonEmpty(overrides.TokenSecret, os.Getenv("MQ_TOKEN_SECRET"), ""),
		AdminToken:             firstNonEmpty(overrides.AdminToken, os.Getenv("MQ_ADMIN_TOKEN"), ""),
		LogDevelopment:         overrides.LogDevelopment,
		LogLevel:               firstNonEmpty(overrides.LogLevel, os.Getenv("MQ_LOG_LEVEL"), "info"),
	}

	ttlSeconds, err := resolveEnvInt("MQ_TOKEN_DEFAULT_TTL_SECONDS", overrides.TokenDefaultTTLSeconds, 3600)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQ_TOKEN_DEFAULT_TTL_SECONDS: %w", err)
	}
	if ttlSeconds <= 0 {
		return Config{}, fmt.Errorf("invalid token default TTL: must be positive, got %d seconds", ttlSeconds)
	}
	cfg.TokenDefaultTTL = time.Duration(ttlSeconds) * time.Second

	switch cfg.BackendKind {
	case BackendMemory, BackendRelational, BackendCache, BackendDocument:
	default:
		return Config{}, fmt.Errorf("invalid backendKind %q", cfg.BackendKind)
	}
	switch cfg.AuthenticationMode {
	case AuthNone, AuthHybrid, AuthRestricted:
	default:
		return Config{}, fmt.Errorf("invalid authenticationMode %q", cfg.AuthenticationMode)
	}

	cfg.Cache = CacheConfig{
		Endpoints:      splitEndpoints(firstNonEmpty(overrides.CacheEndpoints, os.Getenv("MQ_CACHE_ENDPOINTS"), "localhost:6379"), defaultCachePort),
		SentinelMode:   resolveEnvBool("MQ_CACHE_SENTINEL_MODE", overrides.CacheSentinelMode),
		SentinelMaster: firstNonEmpty(overrides.CacheSentinelMaster, os.Getenv("MQ_CACHE_SENTINEL_MASTER"), ""),
		Username:       firstNonEmpty(overrides.CacheUsername, os.Getenv("MQ_CACHE_USERNAME"), ""),
		Password:       firstNonEmpty(overrides.CachePassword, os.Getenv("MQ_CACHE_PASSWORD"), ""),
		Prefix:         firstNonEmpty(overrides.CachePrefix, os.Getenv("MQ_CACHE_PREFIX"), "mq:"),
	}

	cfg.Relational = RelationalConfig{
		DSN:          firstNonEmpty(overrides.RelationalDSN, os.Getenv("MQ_RELATIONAL_DSN"), ""),
		DatabaseName: firstNonEmpty(overrides.RelationalDatabase, os.Getenv("MQ_RELATIONAL_DATABASE"), "messagequeue"),
	}

	cfg.Document = DocumentConfig{
		URI:          firstNonEmpty(overrides.DocumentURI, os.Getenv("MQ_DOCUMENT_URI"), "mongodb://localhost:27017"),
		DatabaseName: firstNonEmpty(overrides.DocumentDatabase, os.Getenv("MQ_DOCUMENT_DATABASE"), "messagequeue"),
	}

	return cfg, nil
}

// Overrides carries CLI-flag values that, when non-zero, take precedence
// over environment variables. Kept separate from Config so cmd/mqsvc can
// bind pflag variables directly without this package importing pflag.
type Overrides struct {
	BindAddress            string
	BackendKind            string
	RestrictionBackendKind string
	AuthMode               string
	TokenSecret            string
	TokenDefaultTTLSeconds int
	AdminToken             string
	LogDevelopment         bool
	LogLevel               string

	CacheEndpoints      string
	CacheSentinelMode   bool
	CacheSentinelMaster string
	CacheUsername       string
	CachePassword       string
	CachePrefix         string

	RelationalDSN      string
	RelationalDatabase string

	DocumentURI      string
	DocumentDatabase string
}

// Settings is the effective, non-secret configuration surfaced by
// GET /settings (spec.md §4.6). Secrets (TokenSecret, AdminToken, passwords,
// DSNs) are deliberately excluded.
type Settings struct {
	BackendKind            BackendKind `json:"backendKind"`
	RestrictionBackendKind BackendKind `json:"restrictionBackendKind"`
	AuthenticationMode     AuthMode    `json:"authenticationMode"`
	TokenDefaultTTLSeconds int         `json:"tokenDefaultTtlSeconds"`
}

// Settings projects the non-secret view of Config.
func (c Config) Settings() Settings {
	return Settings{
		BackendKind:            c.BackendKind,
		RestrictionBackendKind: c.RestrictionBackendKind,
		AuthenticationMode:     c.AuthenticationMode,
		TokenDefaultTTLSeconds: int(c.TokenDefaultTTL / time.Second),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func resolveEnvInt(envName string, override int, defaultValue int) (int, error) {
	if override != 0 {
		return override, nil
	}
	valueStr, found := os.LookupEnv(envName)
	if found && valueStr != "" {
		return strconv.Atoi(valueStr)
	}
	return defaultValue, nil
}

func resolveEnvBool(envName string, override bool) bool {
	if override {
		return true
	}
	valueStr, found := os.LookupEnv(envName)
	if found && valueStr != "" {
		b, err := strconv.ParseBool(valueStr)
		if err == nil {
			return b
		}
	}
	return false
}

// splitEndpoints parses a comma-separated host[:port] list, applying
// defaultPort when a host has none, matching spec.md §6's description of
// cache connectivity configuration.
func splitEndpoints(raw, defaultPort string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, ":") {
			p = p + ":" + defaultPort
		}
		out = append(out, p)
	}
	return out
}
