package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"vctodwn/internal/dwn/agent"
	"vctodwn/internal/dwn/messagestore"
	"vctodwn/internal/dwn/messagestore/migrations"
	"vctodwn/internal/dwn/models"
	"vctodwn/internal/dwn/remote"
	"vctodwn/internal/grant"
	grantHandler "vctodwn/internal/grant/handler"
	grantMetrics "vctodwn/internal/grant/metrics"
	"vctodwn/internal/identity"
	"vctodwn/internal/platform/config"
	"vctodwn/internal/platform/database"
	"vctodwn/internal/platform/health"
	"vctodwn/internal/platform/logger"
	"vctodwn/internal/platform/metrics"
	"vctodwn/internal/platform/tracer"
	"vctodwn/internal/protocol"
	protocolHandler "vctodwn/internal/protocol/handler"
	httptransport "vctodwn/internal/transport/http"
	"vctodwn/pkg/platform/circuit"
)

const serviceName = "vctodwn"

// main wires the identity, the protocol and the grant engine, then serves HTTP
// until SIGINT or SIGTERM. Any startup failure exits non-zero before the
// listener opens.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, net.Listen); err != nil {
		log.Error("vctodwn stopped with error", "error", err)
		stop()
		os.Exit(1)
	}
	log.Info("server stopped")
}

// listenFunc opens the HTTP listener; net.Listen in production.
type listenFunc func(network, address string) (net.Listener, error)

// run starts the service and blocks until ctx is done. The listener is only
// opened once startup, including protocol reconciliation, has succeeded.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger, listen listenFunc) error {
	probes := health.New(cfg.Server.Environment)
	handler, cleanup, err := startup(ctx, cfg, log, probes)
	defer cleanup()
	if err != nil {
		return err
	}

	ln, err := listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// startup builds every component, loads the identity and reconciles the
// protocol. probes turn ready only after all of it succeeded. cleanup is
// always safe to call.
func startup(ctx context.Context, cfg *config.Config, log *slog.Logger, probes *health.Handler) (http.Handler, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	log.Info("initializing vctodwn",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
		"dwn_endpoints", cfg.Identity.DWNEndpoints,
	)
	if cfg.UsesDefaultPassword() {
		log.Warn("AGENT_PASSWORD is not set, the agent vault is sealed with the development placeholder")
	}

	shutdownTracing, err := tracer.Setup(ctx, serviceName, cfg.Server.OTLPEndpoint)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("flush traces failed", "error", err)
		}
	})
	tr := tracer.NewOTel()
	m := metrics.New()

	if dir := filepath.Dir(cfg.Identity.DataPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, cleanup, fmt.Errorf("create data directory: %w", err)
		}
	}
	pool, err := database.Open(ctx, database.DefaultConfig(cfg.Identity.DataPath), migrations.FS)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, func() { _ = pool.Close() })
	messages := messagestore.NewSQLiteStore(pool.DB())

	client := remote.New(
		remote.WithLogger(log),
		remote.WithTracer(tr),
		remote.WithBreakerObserver(m),
		remote.WithHTTPClient(&http.Client{Timeout: cfg.Store.RemoteTimeout}),
		remote.WithRetry(cfg.Store.MaxRetries, cfg.Store.CallTimeout),
		remote.WithBreaker(
			circuit.WithFailureThreshold(cfg.Store.BreakerFailures),
			circuit.WithCooldown(cfg.Store.BreakerCooldown),
		),
	)
	connector := agent.New(messages, client, agent.WithLogger(log), agent.WithTracer(tr))

	identities := identity.NewService(
		identity.NewFileStore(cfg.Identity.File),
		connector,
		cfg.Identity.AgentPassword,
		cfg.Identity.DWNEndpoints,
		identity.WithLogger(log),
	)
	id, err := identities.LoadOrCreate(ctx)
	if err != nil {
		return nil, cleanup, err
	}
	log.Info("customer identity ready", "did", id.DID, "created", id.Created)

	definition, err := loadDefinition(cfg.Protocol.DefinitionFile)
	if err != nil {
		return nil, cleanup, err
	}
	reconciler := protocol.NewReconciler(id.Store, id.DID, definition, cfg.Protocol.SuccessCode,
		protocol.WithLogger(log),
		protocol.WithTracer(tr),
		protocol.WithObserver(m),
		protocol.WithRemoteCheck(cfg.Protocol.RemoteCheck),
		protocol.WithCallTimeout(cfg.Store.CallTimeout),
	)
	if _, err := reconciler.EnsureInstalled(ctx); err != nil {
		return nil, cleanup, err
	}

	grants, err := grant.NewService(id.Store, id.DID, definition,
		grant.WithRolePath(cfg.Grant.RolePath),
		grant.WithQueryScope(cfg.Grant.QueryScope),
		grant.WithCallTimeout(cfg.Store.CallTimeout),
		grant.WithLogger(log),
		grant.WithTracer(tr),
		grant.WithMetrics(grantMetrics.New(m.Registerer())),
	)
	if err != nil {
		return nil, cleanup, err
	}
	protocols, err := protocolHandler.New(definition, log)
	if err != nil {
		return nil, cleanup, err
	}

	probes.RegisterCheck("message_store", pool.Health)
	probes.MarkReady()
	log.Info("startup complete", "did", id.DID, "protocol", definition.Protocol)

	return httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		Metrics:        m,
		Health:         probes,
		RequestTimeout: cfg.Server.RequestTimeout,
		Handlers: []httptransport.RouteRegistrar{
			protocols,
			grantHandler.New(grants, log),
		},
	}), cleanup, nil
}

func loadDefinition(path string) (models.ProtocolDefinition, error) {
	if path == "" {
		return protocol.DefaultDefinition()
	}
	return protocol.LoadDefinition(path)
}
