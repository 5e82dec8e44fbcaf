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

// Command mqsvc runs the message queue service: it resolves configuration,
// wires a backend.Adapter and restriction.Store for the configured storage
// strategy, and serves the REST surface until SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/KyleGonzalez/MessageQueue/internal/auth"
	"github.com/KyleGonzalez/MessageQueue/internal/backend"
	backendmemory "github.com/KyleGonzalez/MessageQueue/internal/backend/memory"
	backendmongo "github.com/KyleGonzalez/MessageQueue/internal/backend/mongo"
	backendredis "github.com/KyleGonzalez/MessageQueue/internal/backend/redis"
	backendsql "github.com/KyleGonzalez/MessageQueue/internal/backend/sql"
	"github.com/KyleGonzalez/MessageQueue/internal/config"
	"github.com/KyleGonzalez/MessageQueue/internal/httpapi"
	"github.com/KyleGonzalez/MessageQueue/internal/logging"
	"github.com/KyleGonzalez/MessageQueue/internal/queue"
	"github.com/KyleGonzalez/MessageQueue/internal/restriction"
	restrictionmemory "github.com/KyleGonzalez/MessageQueue/internal/restriction/memory"
	restrictionmongo "github.com/KyleGonzalez/MessageQueue/internal/restriction/mongo"
	restrictionredis "github.com/KyleGonzalez/MessageQueue/internal/restriction/redis"
	restrictionsql "github.com/KyleGonzalez/MessageQueue/internal/restriction/sql"
)

func main() {
	var overrides config.Overrides
	var development bool

	pflag.StringVar(&overrides.BindAddress, "bind-address", "", "address to serve the REST API on")
	pflag.StringVar(&overrides.BackendKind, "backend-kind", "", "message backend: in-memory, relational, cache, document")
	pflag.StringVar(&overrides.RestrictionBackendKind, "restriction-backend-kind", "", "restriction registry backend")
	pflag.StringVar(&overrides.AuthMode, "auth-mode", "", "authentication mode: none, hybrid, restricted")
	pflag.StringVar(&overrides.TokenSecret, "token-secret", "", "symmetric secret signing bearer tokens")
	pflag.IntVar(&overrides.TokenDefaultTTLSeconds, "token-default-ttl-seconds", 0, "default bearer token lifetime")
	pflag.StringVar(&overrides.AdminToken, "admin-token", "", "administrator bearer token")
	pflag.StringVar(&overrides.LogLevel, "log-level", "", "zap log level")
	pflag.BoolVar(&development, "development", false, "use zap's development logging encoder")
	pflag.StringVar(&overrides.CacheEndpoints, "cache-endpoints", "", "comma-separated cache host[:port] list")
	pflag.BoolVar(&overrides.CacheSentinelMode, "cache-sentinel-mode", false, "enable Redis sentinel addressing")
	pflag.StringVar(&overrides.CacheSentinelMaster, "cache-sentinel-master", "", "Redis sentinel master name")
	pflag.StringVar(&overrides.CachePrefix, "cache-prefix", "", "key prefix for the cache backend")
	pflag.StringVar(&overrides.RelationalDSN, "relational-dsn", "", "pgx connection string")
	pflag.StringVar(&overrides.DocumentURI, "document-uri", "", "MongoDB connection URI")
	pflag.Parse()

	overrides.LogDevelopment = development

	cfg, err := config.Load(overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogDevelopment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger.WithName("mqsvc")); err != nil {
		logger.Error(err, "mqsvc exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger logr.Logger) error {
	messageBackend, err := buildMessageBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build message backend: %w", err)
	}

	restrictionStore, err := buildRestrictionStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build restriction store: %w", err)
	}

	core := queue.New(messageBackend, logger.WithName("core"))
	restrictions := restriction.NewRegistry(restrictionStore)
	tokens := auth.NewTokenProvider(cfg.TokenSecret, cfg.TokenDefaultTTL)
	filter := auth.NewFilter(cfg.AuthenticationMode, tokens, restrictions, cfg.AdminToken)

	server := httpapi.NewServer(core, restrictions, tokens, filter, cfg, logger, prometheus.DefaultRegisterer)

	httpServer := &http.Server{
		Addr:              cfg.BindAddress,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.BindAddress, "backendKind", cfg.BackendKind, "authenticationMode", cfg.AuthenticationMode)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Info("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

// buildMessageBackend selects and connects the message backend.Adapter for
// cfg.BackendKind, ensuring schema/indices exist for the backends that need
// them set up explicitly.
func buildMessageBackend(ctx context.Context, cfg config.Config) (backend.Adapter, error) {
	switch cfg.BackendKind {
	case config.BackendMemory:
		return backendmemory.New(), nil

	case config.BackendRelational:
		db, err := backendsql.Connect(ctx, cfg.Relational.DSN)
		if err != nil {
			return nil, err
		}
		if err := backendsql.EnsureSchema(ctx, db); err != nil {
			return nil, err
		}
		return backendsql.New(db), nil

	case config.BackendCache:
		client := backendredis.NewClient(backendredis.Options{
			Endpoints:      cfg.Cache.Endpoints,
			SentinelMode:   cfg.Cache.SentinelMode,
			SentinelMaster: cfg.Cache.SentinelMaster,
			Username:       cfg.Cache.Username,
			Password:       cfg.Cache.Password,
		})
		return backendredis.New(client, cfg.Cache.Prefix), nil

	case config.BackendDocument:
		client, err := backendmongo.Connect(ctx, cfg.Document.URI)
		if err != nil {
			return nil, err
		}
		coll := client.Database(cfg.Document.DatabaseName).Collection("messages")
		if err := backendmongo.EnsureIndexes(ctx, coll); err != nil {
			return nil, err
		}
		return backendmongo.New(coll), nil

	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.BackendKind)
	}
}

// buildRestrictionStore selects and connects the restriction.Store for
// cfg.RestrictionBackendKind, which may differ from the message backend.
func buildRestrictionStore(ctx context.Context, cfg config.Config) (restriction.Store, error) {
	switch cfg.RestrictionBackendKind {
	case config.BackendMemory:
		return restrictionmemory.New(), nil

	case config.BackendRelational:
		db, err := backendsql.Connect(ctx, cfg.Relational.DSN)
		if err != nil {
			return nil, err
		}
		if err := restrictionsql.EnsureSchema(ctx, db); err != nil {
			return nil, err
		}
		return restrictionsql.New(db), nil

	case config.BackendCache:
		client := backendredis.NewClient(backendredis.Options{
			Endpoints:      cfg.Cache.Endpoints,
			SentinelMode:   cfg.Cache.SentinelMode,
			SentinelMaster: cfg.Cache.SentinelMaster,
			Username:       cfg.Cache.Username,
			Password:       cfg.Cache.Password,
		})
		return restrictionredis.New(client, cfg.Cache.Prefix), nil

	case config.BackendDocument:
		mongoClient, err := backendmongo.Connect(ctx, cfg.Document.URI)
		if err != nil {
			return nil, err
		}
		coll := mongoClient.Database(cfg.Document.DatabaseName).Collection("restrictions")
		if err := restrictionmongo.EnsureIndexes(ctx, coll); err != nil {
			return nil, err
		}
		return restrictionmongo.New(coll), nil

	default:
		return nil, fmt.Errorf("unknown restriction backend kind %q", cfg.RestrictionBackendKind)
	}
}
