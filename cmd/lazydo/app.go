package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/LAZYDOINDIA/LazyUI/internal/api"
	"github.com/LAZYDOINDIA/LazyUI/internal/audit"
	auditrepo "github.com/LAZYDOINDIA/LazyUI/internal/audit/repository"
	"github.com/LAZYDOINDIA/LazyUI/internal/config"
	"github.com/LAZYDOINDIA/LazyUI/internal/db"
	"github.com/LAZYDOINDIA/LazyUI/internal/health"
	"github.com/LAZYDOINDIA/LazyUI/internal/policy/engine"
	"github.com/LAZYDOINDIA/LazyUI/internal/security"
	"github.com/LAZYDOINDIA/LazyUI/internal/session"
	"github.com/LAZYDOINDIA/LazyUI/internal/storage"
	"github.com/LAZYDOINDIA/LazyUI/internal/telemetry"
	telemetryotel "github.com/LAZYDOINDIA/LazyUI/internal/telemetry/otel"
)

// app is everything one CLI invocation needs, built from config and torn down by Close.
type app struct {
	cfg       *config.Config
	kv        storage.Storage
	store     *session.Store
	client    *api.Client
	policy    *engine.OPAEvaluator
	tokens    *security.TokenProvider // nil when the mock token is issued
	audit     *audit.Logger           // nil unless the postgres backend is used
	pinger    health.Pinger
	providers *telemetryotel.Providers
	closers   []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close(ctx)
		}
	}()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	a.providers = providers

	if err := a.openStorage(); err != nil {
		return nil, err
	}

	opts := []session.Option{
		session.WithEventSource("lazydo-cli"),
		session.WithEmitter(telemetry.Fanout(
			telemetryotel.NewEventEmitter(providers.LoggerProvider),
			a.auditEmitter(),
		)),
	}
	if cfg.SignedTokens() {
		signer, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
		if err != nil {
			return nil, fmt.Errorf("jwt keys: %w", err)
		}
		a.tokens = security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
		opts = append(opts, session.WithIssuer(a.tokens))
	}
	a.store = session.NewStore(a.kv, opts...)
	a.closers = append(a.closers, a.store.Close)

	var extra []string
	if cfg.PolicyPath != "" {
		b, err := os.ReadFile(cfg.PolicyPath)
		if err != nil {
			log.Printf("policy: %v, using defaults", err)
		} else {
			extra = append(extra, string(b))
		}
	}
	a.policy, err = engine.NewOPAEvaluator(ctx, extra...)
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}

	a.client = api.NewClient(cfg.APIBaseURL, cfg.Timeout(), a.kv)
	ok = true
	return a, nil
}

// openStorage picks the session backend from config.
func (a *app) openStorage() error {
	switch a.cfg.StorageBackend {
	case config.StorageMemory:
		a.kv = storage.NewMemoryStore()
	case config.StoragePostgres:
		conn, err := db.Open(a.cfg.DatabaseURL)
		if err != nil {
			return err
		}
		pg := storage.NewPostgresStore(conn)
		a.closers = append(a.closers, pg.Close)
		a.kv = pg
		a.pinger = pg
		a.audit = audit.NewLogger(auditrepo.NewPostgresRepository(pg.DB()))
	default:
		path := a.cfg.StoragePath
		if path == "" {
			dir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("storage: %w", err)
			}
			path = filepath.Join(dir, "lazydo", "session.json")
		}
		fs, err := storage.NewFileStore(path)
		if err != nil {
			return err
		}
		a.kv = fs
	}
	return nil
}

func (a *app) auditEmitter() telemetry.EventEmitter {
	if a.audit == nil {
		return nil
	}
	return a.audit
}

// Close waits for pending session events, then releases resources in reverse order of
// acquisition. Errors are logged.
func (a *app) Close(ctx context.Context) {
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := telemetry.Wait(waitCtx); err != nil {
		log.Printf("lazydo: pending events dropped: %v", err)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("lazydo: close: %v", err)
		}
	}
	a.closers = nil
	if a.providers != nil {
		if err := a.providers.Shutdown(ctx); err != nil {
			log.Printf("lazydo: telemetry shutdown: %v", err)
		}
	}
}
